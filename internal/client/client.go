// Package client executes HTTP requests and follows redirects under a
// security policy: credentials never cross origins, Referer never leaks
// from https to http, and redirect chains are bounded and loop-checked.
//
// A Client is immutable once built and safe for concurrent use. Each
// Execute call keeps its own redirect history.
package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/0x6d61/hopper/internal/body"
	"github.com/0x6d61/hopper/internal/header"
	"github.com/0x6d61/hopper/internal/metrics"
	"github.com/0x6d61/hopper/internal/redirect"
	"github.com/0x6d61/hopper/internal/transport"
)

// Client executes requests. Copying the pointer shares the same
// configuration and connection pool.
type Client struct {
	config *config
}

// New returns a Client with the default configuration.
func New() (*Client, error) {
	return NewBuilder().Build()
}

// Stats returns the statistics of the underlying transport.
func (c *Client) Stats() *transport.Stats {
	return c.config.transport.Stats()
}

func (c *Client) String() string {
	return fmt.Sprintf("Client{gzip: %t, redirect_policy: %s, referer: %t}",
		c.config.gzip, c.config.redirectPolicy, c.config.referer)
}

// Execute sends req and follows redirects until a terminal response.
//
// A redirect the policy declines, or one whose Location is missing or
// unparsable, is returned as the response. Loops and exceeded limits are
// errors. Transport failures are returned as *TransportError and never
// retried.
func (c *Client) Execute(ctx context.Context, req *Request) (*Response, error) {
	cfg := c.config
	start := time.Now()
	cfg.metrics.Begin()

	resp, err := c.execute(ctx, req)

	cfg.metrics.End(Outcome(resp, err), time.Since(start))
	return resp, err
}

func (c *Client) execute(ctx context.Context, req *Request) (*Response, error) {
	cfg := c.config
	log := cfg.logger

	if req == nil {
		return nil, &InvalidURLError{Err: fmt.Errorf("nil request")}
	}
	if err := validateURL(req.URL); err != nil {
		raw := ""
		if req.URL != nil {
			raw = req.URL.String()
		}
		return nil, &InvalidURLError{URL: raw, Err: err}
	}
	if err := req.Header.Validate(); err != nil {
		return nil, fmt.Errorf("client: %w", err)
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	current := cloneURL(req.URL)
	headers := req.Header.Clone()
	payload := req.Body

	c.setDefaultHeaders(headers)

	var (
		history   []*url.URL
		redirects []Hop
	)

	for {
		log.Debug("request", "method", method, "url", current.String())

		out := &transport.Request{
			Method: method,
			URL:    current,
			Header: headers,
		}
		if payload != nil {
			out.Body = payload.Reader()
			out.ContentLength = payload.Len()
		}

		res, err := cfg.transport.Do(ctx, out)
		if err != nil {
			return nil, &TransportError{URL: current.String(), Redirects: redirects, Err: err}
		}
		cfg.metrics.ObserveHop(res.StatusCode)

		sent := method
		var follow bool
		method, payload, follow = rewriteForRedirect(res.StatusCode, method, payload)
		if !follow {
			return newResponse(res, cfg.gzip, redirects), nil
		}

		if !res.Header.Has(header.Location) {
			log.Debug("redirect response has no Location", "status", res.StatusCode, "url", current.String())
			return newResponse(res, cfg.gzip, redirects), nil
		}
		// An empty Location resolves to the current URL.
		location := res.Header.Location()
		next, err := current.Parse(location)
		if err != nil {
			log.Debug("Location header had invalid URI", "location", location, "error", err)
			return newResponse(res, cfg.gzip, redirects), nil
		}

		if cfg.referer {
			if ref, ok := redirect.MakeReferer(next, current); ok {
				headers.SetReferer(ref)
			} else {
				headers.Del(header.Referer)
			}
		}

		history = append(history, current)
		action := cfg.redirectPolicy.Check(next, history)
		cfg.metrics.ObserveRedirect(action.String())

		switch action {
		case redirect.Follow:
		case redirect.LoopDetected:
			res.Discard()
			return nil, &RedirectLoopError{URL: responseURL(res, current), Redirects: redirects}
		case redirect.TooManyRedirects:
			res.Discard()
			return nil, &TooManyRedirectsError{URL: responseURL(res, current), Redirects: redirects}
		default:
			log.Debug("redirect policy disallowed redirection", "location", next.String())
			return newResponse(res, cfg.gzip, redirects), nil
		}

		redirects = append(redirects, Hop{
			Method:     sent,
			URL:        current.String(),
			StatusCode: res.StatusCode,
			Location:   next.String(),
		})
		res.Discard()

		current = next
		redirect.RemoveSensitiveHeaders(headers, current, history)
		log.Info("following redirect", "status", res.StatusCode, "method", method, "url", current.String())
	}
}

// setDefaultHeaders fills in User-Agent, Accept and, when gzip is on and
// no range is requested, Accept-Encoding.
func (c *Client) setDefaultHeaders(h *header.Header) {
	if !h.Has(header.UserAgent) && c.config.userAgent != "" {
		h.SetUserAgent(c.config.userAgent)
	}
	if !h.Has(header.Accept) {
		h.SetAccept("*/*")
	}
	if c.config.gzip && !h.Has(header.AcceptEncoding) && !h.Has(header.Range) {
		h.SetAcceptEncoding("gzip")
	}
}

// rewriteForRedirect applies the per-status method and body rules and
// reports whether the status is a redirect to follow.
//
// 301, 302 and 303 always drop the body and turn anything but GET and HEAD
// into GET. 307 and 308 keep method and body; a body that cannot be
// replayed is dropped and the hop is still followed.
func rewriteForRedirect(status int, method string, payload *body.Body) (string, *body.Body, bool) {
	switch status {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther:
		if method != http.MethodGet && method != http.MethodHead {
			method = http.MethodGet
		}
		return method, nil, true
	case http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		if payload != nil && !payload.Resettable() {
			payload = nil
		}
		return method, payload, true
	default:
		return method, payload, false
	}
}

func responseURL(res *transport.Response, fallback *url.URL) string {
	if res.URL != nil {
		return res.URL.String()
	}
	return fallback.String()
}

func cloneURL(u *url.URL) *url.URL {
	out := *u
	if u.User != nil {
		user := *u.User
		out.User = &user
	}
	return &out
}

// Outcome classifies the result of Execute with one of the metrics
// outcome labels.
func Outcome(resp *Response, err error) string {
	switch err.(type) {
	case nil:
		if resp != nil && isRedirectStatus(resp.StatusCode()) {
			return metrics.OutcomeStopped
		}
		return metrics.OutcomeOK
	case *TransportError:
		return metrics.OutcomeTransportError
	case *TooManyRedirectsError:
		return metrics.OutcomeTooManyRedirects
	case *RedirectLoopError:
		return metrics.OutcomeRedirectLoop
	default:
		return metrics.OutcomeInvalid
	}
}

func isRedirectStatus(code int) bool {
	switch code {
	case http.StatusMovedPermanently,
		http.StatusFound,
		http.StatusSeeOther,
		http.StatusTemporaryRedirect,
		http.StatusPermanentRedirect:
		return true
	}
	return false
}
