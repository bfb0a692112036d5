package client

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/0x6d61/hopper/internal/header"
	"github.com/0x6d61/hopper/internal/transport"
)

// Hop is one redirect that was followed.
type Hop struct {
	// Method is the method of the request that was redirected.
	Method string `json:"method"`
	// URL is the URL that answered with the redirect.
	URL string `json:"url"`
	// StatusCode is the redirect status.
	StatusCode int `json:"status_code"`
	// Location is the resolved URL the redirect pointed to.
	Location string `json:"location"`
}

// Response is the terminal response of an executed request. Its body must
// be closed.
type Response struct {
	statusCode int
	status     string
	header     *header.Header
	url        *url.URL
	body       io.ReadCloser
	protocol   string
	redirects  []Hop
}

func newResponse(res *transport.Response, gzipEnabled bool, redirects []Hop) *Response {
	r := &Response{
		statusCode: res.StatusCode,
		status:     res.Status,
		header:     res.Header,
		url:        res.URL,
		body:       res.Body,
		protocol:   res.Protocol,
		redirects:  redirects,
	}
	if r.header == nil {
		r.header = header.New()
	}
	if r.body == nil {
		r.body = http.NoBody
	}

	if gzipEnabled && r.header.ContentEncoding() == "gzip" && res.ContentLength != 0 {
		r.body = &gzipBody{src: r.body}
		r.header.Del(header.ContentEncoding)
		r.header.Del(header.ContentLength)
	}
	return r
}

// StatusCode returns the HTTP status code.
func (r *Response) StatusCode() int { return r.statusCode }

// Status returns the status line text, e.g. "200 OK".
func (r *Response) Status() string { return r.status }

// Header returns the response headers.
func (r *Response) Header() *header.Header { return r.header }

// URL returns the URL the response came from, after redirects.
func (r *Response) URL() *url.URL { return r.url }

// Protocol returns the protocol version, e.g. "HTTP/1.1".
func (r *Response) Protocol() string { return r.protocol }

// Redirects returns the redirects followed to reach this response.
func (r *Response) Redirects() []Hop { return r.redirects }

// Read reads the (decoded) body.
func (r *Response) Read(p []byte) (int, error) { return r.body.Read(p) }

// Close closes the body.
func (r *Response) Close() error { return r.body.Close() }

// Bytes reads the remaining body and closes it.
func (r *Response) Bytes() ([]byte, error) {
	defer r.body.Close()
	data, err := io.ReadAll(r.body)
	if err != nil {
		return nil, fmt.Errorf("client: read body: %w", err)
	}
	return data, nil
}

// Text reads the remaining body as a string and closes it.
func (r *Response) Text() (string, error) {
	data, err := r.Bytes()
	return string(data), err
}

// JSON decodes the body into v and closes it.
func (r *Response) JSON(v any) error {
	defer r.body.Close()
	if err := json.NewDecoder(r.body).Decode(v); err != nil {
		return fmt.Errorf("client: decode json body: %w", err)
	}
	return nil
}

// gzipBody defers reading the gzip header until the body is first read.
type gzipBody struct {
	src io.ReadCloser
	zr  *gzip.Reader
	err error
}

func (g *gzipBody) Read(p []byte) (int, error) {
	if g.zr == nil && g.err == nil {
		g.zr, g.err = gzip.NewReader(g.src)
	}
	if g.err != nil {
		return 0, g.err
	}
	return g.zr.Read(p)
}

func (g *gzipBody) Close() error {
	if g.zr != nil {
		_ = g.zr.Close()
	}
	return g.src.Close()
}
