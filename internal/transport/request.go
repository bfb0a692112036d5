// Package transport is the HTTP exchange layer underneath the redirect
// engine. It sends exactly one request per call and never follows
// redirects itself.
package transport

import (
	"io"
	"net/url"

	"github.com/0x6d61/hopper/internal/header"
)

// Request is a fully prepared request handed to a Client.
type Request struct {
	// Method is the HTTP method (GET, POST, PUT, etc.).
	Method string

	// URL is the absolute target URL.
	URL *url.URL

	// Header holds every header to send. The Client does not add any.
	Header *header.Header

	// Body is the payload, or nil for none.
	Body io.Reader

	// ContentLength is the body length, -1 when unknown. Ignored when
	// Body is nil.
	ContentLength int64
}

// Clone returns a copy of the Request with its own URL and Header. The
// Body reader is shared.
func (r *Request) Clone() *Request {
	if r == nil {
		return nil
	}

	clone := &Request{
		Method:        r.Method,
		Header:        r.Header.Clone(),
		Body:          r.Body,
		ContentLength: r.ContentLength,
	}

	if r.URL != nil {
		u := *r.URL
		if r.URL.User != nil {
			user := *r.URL.User
			u.User = &user
		}
		clone.URL = &u
	}

	return clone
}
