package client

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/0x6d61/hopper/internal/body"
	"github.com/0x6d61/hopper/internal/header"
)

// Request is a request ready to be executed.
type Request struct {
	Method string
	URL    *url.URL
	Header *header.Header
	// Body is nil for requests without a payload.
	Body *body.Body
}

// NewRequest parses rawURL and returns a Request with an empty header.
func NewRequest(method, rawURL string) (*Request, error) {
	u, err := parseURL(rawURL)
	if err != nil {
		return nil, err
	}
	return &Request{Method: method, URL: u, Header: header.New()}, nil
}

func parseURL(rawURL string) (*url.URL, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, &InvalidURLError{URL: rawURL, Err: err}
	}
	if err := validateURL(u); err != nil {
		return nil, &InvalidURLError{URL: rawURL, Err: err}
	}
	return u, nil
}

func validateURL(u *url.URL) error {
	if u == nil {
		return errors.New("missing URL")
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return fmt.Errorf("unsupported scheme %q (only http and https are allowed)", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("URL must have a host")
	}
	return nil
}

// RequestBuilder assembles a Request for a Client. The first error
// encountered is kept and reported by Build or Send.
type RequestBuilder struct {
	client *Client
	req    *Request
	err    error
}

// Request starts building a request with the given method and URL.
func (c *Client) Request(method, rawURL string) *RequestBuilder {
	req, err := NewRequest(method, rawURL)
	return &RequestBuilder{client: c, req: req, err: err}
}

// Get starts a GET request.
func (c *Client) Get(rawURL string) *RequestBuilder { return c.Request(http.MethodGet, rawURL) }

// Post starts a POST request.
func (c *Client) Post(rawURL string) *RequestBuilder { return c.Request(http.MethodPost, rawURL) }

// Put starts a PUT request.
func (c *Client) Put(rawURL string) *RequestBuilder { return c.Request(http.MethodPut, rawURL) }

// Patch starts a PATCH request.
func (c *Client) Patch(rawURL string) *RequestBuilder { return c.Request(http.MethodPatch, rawURL) }

// Delete starts a DELETE request.
func (c *Client) Delete(rawURL string) *RequestBuilder { return c.Request(http.MethodDelete, rawURL) }

// Head starts a HEAD request.
func (c *Client) Head(rawURL string) *RequestBuilder { return c.Request(http.MethodHead, rawURL) }

// Header sets a header, replacing existing values.
func (rb *RequestBuilder) Header(name, value string) *RequestBuilder {
	if rb.err == nil {
		rb.req.Header.Set(name, value)
	}
	return rb
}

// AddHeader appends a header value.
func (rb *RequestBuilder) AddHeader(name, value string) *RequestBuilder {
	if rb.err == nil {
		rb.req.Header.Add(name, value)
	}
	return rb
}

// Headers appends every value of h.
func (rb *RequestBuilder) Headers(h *header.Header) *RequestBuilder {
	if rb.err == nil {
		for _, name := range h.Names() {
			for _, v := range h.Values(name) {
				rb.req.Header.Add(name, v)
			}
		}
	}
	return rb
}

// BasicAuth sets HTTP basic authentication.
func (rb *RequestBuilder) BasicAuth(username, password string) *RequestBuilder {
	creds := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
	return rb.Header(header.Authorization, "Basic "+creds)
}

// BearerAuth sets a bearer token.
func (rb *RequestBuilder) BearerAuth(token string) *RequestBuilder {
	return rb.Header(header.Authorization, "Bearer "+token)
}

// Body sets the payload.
func (rb *RequestBuilder) Body(b *body.Body) *RequestBuilder {
	if rb.err == nil {
		rb.req.Body = b
	}
	return rb
}

// JSON encodes v as the payload and sets Content-Type to
// application/json.
func (rb *RequestBuilder) JSON(v any) *RequestBuilder {
	if rb.err != nil {
		return rb
	}
	data, err := json.Marshal(v)
	if err != nil {
		rb.err = fmt.Errorf("client: encode json body: %w", err)
		return rb
	}
	rb.req.Header.Set(header.ContentType, "application/json")
	rb.req.Body = body.FromBytes(data)
	return rb
}

// Form encodes values as an application/x-www-form-urlencoded payload.
func (rb *RequestBuilder) Form(values url.Values) *RequestBuilder {
	if rb.err != nil {
		return rb
	}
	rb.req.Header.Set(header.ContentType, "application/x-www-form-urlencoded")
	rb.req.Body = body.FromString(values.Encode())
	return rb
}

// Build returns the assembled Request.
func (rb *RequestBuilder) Build() (*Request, error) {
	if rb.err != nil {
		return nil, rb.err
	}
	return rb.req, nil
}

// Send builds the request and executes it on the Client.
func (rb *RequestBuilder) Send(ctx context.Context) (*Response, error) {
	req, err := rb.Build()
	if err != nil {
		return nil, err
	}
	return rb.client.Execute(ctx, req)
}
