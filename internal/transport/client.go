package transport

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"golang.org/x/time/rate"

	"github.com/0x6d61/hopper/internal/header"
)

// ErrInvalidProxy is returned by NewClient for an unusable proxy URL.
var ErrInvalidProxy = errors.New("invalid proxy URL")

// Client sends a single HTTP request and returns the raw response. All
// redirect handling happens above this interface.
type Client interface {
	// Do sends req and returns the response without following redirects.
	Do(ctx context.Context, req *Request) (*Response, error)

	// Stats returns transport statistics.
	Stats() *Stats
}

// Stats holds aggregate statistics for the transport client.
type Stats struct {
	TotalRequests int64
	TotalDuration time.Duration
	AvgDuration   time.Duration
	P50           time.Duration
	P95           time.Duration
	P99           time.Duration
}

// ClientOptions holds configuration for creating a new DefaultClient.
type ClientOptions struct {
	// Timeout bounds every single exchange, body read included. Zero
	// means no timeout.
	Timeout time.Duration

	// ProxyURL is the proxy URL (HTTP or SOCKS5). Empty uses the
	// environment.
	ProxyURL string

	// RootCAs are trusted in addition to the system roots.
	RootCAs []*x509.Certificate

	// DisableHostnameVerification accepts any certificate that chains to
	// a trusted root, whatever name it was issued for.
	DisableHostnameVerification bool

	// MaxRPS is the maximum requests per second (0 = unlimited).
	MaxRPS float64
}

// DefaultClient is the default implementation of the Client interface,
// backed by net/http.
type DefaultClient struct {
	httpClient *http.Client
	opts       ClientOptions
	limiter    *rate.Limiter

	mu              sync.Mutex
	totalRequests   int64
	totalDurationNs int64
	latency         *hdrhistogram.Histogram
}

// Compile-time check that DefaultClient implements Client.
var _ Client = (*DefaultClient)(nil)

// NewClient creates a new DefaultClient with the given options.
func NewClient(opts ClientOptions) (*DefaultClient, error) {
	tlsConfig, err := newTLSConfig(opts)
	if err != nil {
		return nil, err
	}

	dialer := &net.Dialer{
		Timeout:   opts.Timeout,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		Proxy:             http.ProxyFromEnvironment,
		DialContext:       dialer.DialContext,
		TLSClientConfig:   tlsConfig,
		ForceAttemptHTTP2: true,
		// Accept-Encoding is negotiated by the caller, so the body must
		// reach it untouched.
		DisableCompression: true,
	}

	if opts.ProxyURL != "" {
		proxyURL, err := url.Parse(opts.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidProxy, err)
		}
		if proxyURL.Scheme == "" || proxyURL.Host == "" {
			return nil, fmt.Errorf("%w: missing scheme or host", ErrInvalidProxy)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	client := &http.Client{
		Transport: transport,
		Timeout:   opts.Timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	dc := &DefaultClient{
		httpClient: client,
		opts:       opts,
		// 1us to 60s, 3 significant digits.
		latency: hdrhistogram.New(1, 60_000_000, 3),
	}

	if opts.MaxRPS > 0 {
		dc.limiter = rate.NewLimiter(rate.Limit(opts.MaxRPS), 1)
	}

	return dc, nil
}

// newTLSConfig builds the trust configuration. It returns nil when the
// defaults apply.
func newTLSConfig(opts ClientOptions) (*tls.Config, error) {
	if len(opts.RootCAs) == 0 && !opts.DisableHostnameVerification {
		return nil, nil
	}

	var roots *x509.CertPool
	if len(opts.RootCAs) > 0 {
		pool, err := x509.SystemCertPool()
		if err != nil {
			return nil, fmt.Errorf("load system roots: %w", err)
		}
		for _, cert := range opts.RootCAs {
			if cert == nil {
				return nil, errors.New("nil root certificate")
			}
			pool.AddCert(cert)
		}
		roots = pool
	}

	cfg := &tls.Config{
		RootCAs:    roots,
		MinVersion: tls.VersionTLS12,
	}

	if opts.DisableHostnameVerification {
		// Skip the built-in check, which verifies the name, and verify
		// the chain alone.
		cfg.InsecureSkipVerify = true
		cfg.VerifyConnection = func(cs tls.ConnectionState) error {
			return verifyChain(cs, roots)
		}
	}

	return cfg, nil
}

func verifyChain(cs tls.ConnectionState, roots *x509.CertPool) error {
	if len(cs.PeerCertificates) == 0 {
		return errors.New("tls: server presented no certificates")
	}
	intermediates := x509.NewCertPool()
	for _, cert := range cs.PeerCertificates[1:] {
		intermediates.AddCert(cert)
	}
	_, err := cs.PeerCertificates[0].Verify(x509.VerifyOptions{
		Roots:         roots,
		Intermediates: intermediates,
	})
	return err
}

// Do sends an HTTP request and returns the response. It applies rate
// limiting and timing measurement. Redirects are returned as-is.
func (c *DefaultClient) Do(ctx context.Context, req *Request) (*Response, error) {
	if req.URL == nil {
		return nil, errors.New("request has no URL")
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL.String(), req.Body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header = req.Header.HTTP()
	if req.Body != nil {
		httpReq.ContentLength = req.ContentLength
		if req.ContentLength < 0 {
			httpReq.ContentLength = -1
		}
	}
	if host := httpReq.Header.Get("Host"); host != "" {
		httpReq.Host = host
		httpReq.Header.Del("Host")
	}

	start := time.Now()
	httpResp, err := c.httpClient.Do(httpReq)
	duration := time.Since(start)

	if err != nil {
		return nil, err
	}

	resp := &Response{
		StatusCode:    httpResp.StatusCode,
		Status:        httpResp.Status,
		Header:        header.FromHTTP(httpResp.Header),
		URL:           httpResp.Request.URL,
		Body:          httpResp.Body,
		ContentLength: httpResp.ContentLength,
		Duration:      duration,
		Protocol:      fmt.Sprintf("HTTP/%d.%d", httpResp.ProtoMajor, httpResp.ProtoMinor),
	}

	c.record(duration)

	return resp, nil
}

func (c *DefaultClient) record(d time.Duration) {
	us := d.Microseconds()
	if us < 1 {
		us = 1
	}
	if us > 60_000_000 {
		us = 60_000_000
	}

	c.mu.Lock()
	c.totalRequests++
	c.totalDurationNs += d.Nanoseconds()
	_ = c.latency.RecordValue(us)
	c.mu.Unlock()
}

// Stats returns aggregate transport statistics.
func (c *DefaultClient) Stats() *Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := &Stats{
		TotalRequests: c.totalRequests,
		TotalDuration: time.Duration(c.totalDurationNs),
	}
	if c.totalRequests > 0 {
		stats.AvgDuration = time.Duration(c.totalDurationNs / c.totalRequests)
		stats.P50 = time.Duration(c.latency.ValueAtQuantile(50)) * time.Microsecond
		stats.P95 = time.Duration(c.latency.ValueAtQuantile(95)) * time.Microsecond
		stats.P99 = time.Duration(c.latency.ValueAtQuantile(99)) * time.Microsecond
	}
	return stats
}
