package transport

import (
	"io"
	"net/url"
	"time"

	"github.com/0x6d61/hopper/internal/header"
)

// Response is the raw result of a single exchange. Body is unread; the
// caller must close it.
type Response struct {
	// StatusCode is the HTTP status code.
	StatusCode int

	// Status is the status line text, e.g. "302 Found".
	Status string

	// Header contains the response headers.
	Header *header.Header

	// URL is the URL that produced this response.
	URL *url.URL

	// Body streams the response payload.
	Body io.ReadCloser

	// ContentLength is the declared length, -1 when unknown.
	ContentLength int64

	// Duration is the time until response headers arrived.
	Duration time.Duration

	// Protocol is the protocol version (e.g., "HTTP/1.1", "HTTP/2.0").
	Protocol string
}

// Discard drains and closes the body so the connection can be reused.
func (r *Response) Discard() {
	if r == nil || r.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(r.Body, 64<<10))
	_ = r.Body.Close()
}
