package client

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/0x6d61/hopper/internal/metrics"
	"github.com/0x6d61/hopper/internal/redirect"
	"github.com/0x6d61/hopper/internal/transport"
)

// DefaultUserAgent is sent when a request carries no User-Agent.
const DefaultUserAgent = "hopper/" + Version

// Version is the library version reported in the default User-Agent.
const Version = "0.1.0"

type builderState int

const (
	stateBuilding builderState = iota
	stateBuilt
)

// config is everything a Client is built from. It is never modified once
// a Client holds it.
type config struct {
	gzip                 bool
	hostnameVerification bool
	redirectPolicy       redirect.Policy
	referer              bool
	timeout              time.Duration
	roots                []*Certificate

	userAgent string
	proxy     string
	rateLimit float64
	logger    *slog.Logger
	metrics   *metrics.Collector
	transport transport.Client
}

func defaultConfig() *config {
	return &config{
		gzip:                 true,
		hostnameVerification: true,
		redirectPolicy:       redirect.Default(),
		referer:              true,
		userAgent:            DefaultUserAgent,
	}
}

// Builder configures a Client. It is single use: Build consumes it, after
// which every setter panics with ErrBuilderReused and Build returns it.
//
// Setters return the Builder so calls can be chained:
//
//	c, err := client.NewBuilder().
//		Gzip(false).
//		Redirect(redirect.Limit(5)).
//		Timeout(10 * time.Second).
//		Build()
type Builder struct {
	state  builderState
	config *config
}

// NewBuilder returns a Builder with secure defaults: gzip on, hostname
// verification on, at most 10 redirects, Referer on, no timeout.
func NewBuilder() *Builder {
	return &Builder{state: stateBuilding, config: defaultConfig()}
}

func (b *Builder) mutable() *config {
	if b.state != stateBuilding {
		panic(ErrBuilderReused)
	}
	return b.config
}

// AddRootCertificate trusts cert in addition to the system roots.
func (b *Builder) AddRootCertificate(cert *Certificate) error {
	if b.state != stateBuilding {
		return ErrBuilderReused
	}
	if cert == nil || cert.cert == nil {
		return &TLSConfigError{Err: errors.New("nil certificate")}
	}
	b.config.roots = append(b.config.roots, cert)
	return nil
}

// DangerDisableHostnameVerification accepts certificates issued for any
// host as long as they chain to a trusted root.
//
// Any valid certificate for any site will then be trusted for every other
// site, which opens the client to man-in-the-middle attacks.
func (b *Builder) DangerDisableHostnameVerification() *Builder {
	b.mutable().hostnameVerification = false
	return b
}

// EnableHostnameVerification turns hostname verification back on.
func (b *Builder) EnableHostnameVerification() *Builder {
	b.mutable().hostnameVerification = true
	return b
}

// Gzip toggles Accept-Encoding negotiation and transparent decoding of
// gzip responses. Default is enabled.
func (b *Builder) Gzip(enable bool) *Builder {
	b.mutable().gzip = enable
	return b
}

// Redirect sets the redirect policy. Default follows up to 10 redirects.
func (b *Builder) Redirect(policy redirect.Policy) *Builder {
	b.mutable().redirectPolicy = policy
	return b
}

// Referer toggles automatic Referer headers on redirects. Default is
// enabled.
func (b *Builder) Referer(enable bool) *Builder {
	b.mutable().referer = enable
	return b
}

// Timeout bounds the read and write of every hop. Each hop gets the full
// duration.
func (b *Builder) Timeout(d time.Duration) *Builder {
	b.mutable().timeout = d
	return b
}

// UserAgent replaces the default User-Agent.
func (b *Builder) UserAgent(ua string) *Builder {
	b.mutable().userAgent = ua
	return b
}

// Proxy routes requests through the given HTTP or SOCKS5 proxy URL.
func (b *Builder) Proxy(proxyURL string) *Builder {
	b.mutable().proxy = proxyURL
	return b
}

// RateLimit caps outgoing exchanges per second across all requests made by
// the Client. Zero disables the limit.
func (b *Builder) RateLimit(rps float64) *Builder {
	b.mutable().rateLimit = rps
	return b
}

// Logger sets the structured logger. Default discards everything.
func (b *Builder) Logger(l *slog.Logger) *Builder {
	b.mutable().logger = l
	return b
}

// Metrics records execution metrics into m.
func (b *Builder) Metrics(m *metrics.Collector) *Builder {
	b.mutable().metrics = m
	return b
}

// Transport replaces the net/http transport. TLS, timeout, proxy and rate
// settings are then the transport's responsibility and are ignored.
func (b *Builder) Transport(t transport.Client) *Builder {
	b.mutable().transport = t
	return b
}

// Build consumes the Builder and returns the configured Client.
func (b *Builder) Build() (*Client, error) {
	if b.state != stateBuilding {
		return nil, ErrBuilderReused
	}
	cfg := b.config
	b.state = stateBuilt
	b.config = nil

	if cfg.transport == nil {
		opts := transport.ClientOptions{
			Timeout:                     cfg.timeout,
			ProxyURL:                    cfg.proxy,
			DisableHostnameVerification: !cfg.hostnameVerification,
			MaxRPS:                      cfg.rateLimit,
		}
		for _, root := range cfg.roots {
			opts.RootCAs = append(opts.RootCAs, root.cert)
		}
		t, err := transport.NewClient(opts)
		if errors.Is(err, transport.ErrInvalidProxy) {
			return nil, fmt.Errorf("client: %w", err)
		}
		if err != nil {
			return nil, &TLSConfigError{Err: err}
		}
		cfg.transport = t
	}

	if cfg.logger == nil {
		cfg.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Client{config: cfg}, nil
}
