package client

import (
	"errors"
	"fmt"
)

// ErrBuilderReused is returned, or used as the panic value, when a Builder
// is touched after Build consumed it.
var ErrBuilderReused = errors.New("client: builder cannot be reused after Build")

// InvalidURLError reports a request URL rejected before anything was sent.
type InvalidURLError struct {
	URL string
	Err error
}

func (e *InvalidURLError) Error() string {
	return fmt.Sprintf("client: invalid URL %q: %v", e.URL, e.Err)
}

func (e *InvalidURLError) Unwrap() error { return e.Err }

// TLSConfigError reports an unusable certificate or trust store.
type TLSConfigError struct {
	Err error
}

func (e *TLSConfigError) Error() string {
	return fmt.Sprintf("client: tls configuration: %v", e.Err)
}

func (e *TLSConfigError) Unwrap() error { return e.Err }

// TransportError reports a failed exchange. It is never retried.
type TransportError struct {
	// URL is the request URL that failed.
	URL string
	// Redirects lists the hops followed before the failure.
	Redirects []Hop
	Err       error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("client: request to %s failed: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// TooManyRedirectsError is returned when the redirect policy's hop limit is
// exceeded.
type TooManyRedirectsError struct {
	// URL is the URL of the response that asked for one redirect too many.
	URL string
	// Redirects lists the hops followed before giving up.
	Redirects []Hop
}

func (e *TooManyRedirectsError) Error() string {
	return fmt.Sprintf("client: too many redirects at %s (after %d redirects)", e.URL, len(e.Redirects))
}

// RedirectLoopError is returned when a redirect points back to a URL
// already visited by the same request.
type RedirectLoopError struct {
	// URL is the URL of the response that closed the loop.
	URL string
	// Redirects lists the hops followed before the loop was found.
	Redirects []Hop
}

func (e *RedirectLoopError) Error() string {
	return fmt.Sprintf("client: redirect loop detected at %s (after %d redirects)", e.URL, len(e.Redirects))
}

// RedirectsOf returns the hops recorded in err, if it is one of the
// redirect or transport errors.
func RedirectsOf(err error) []Hop {
	var tooMany *TooManyRedirectsError
	if errors.As(err, &tooMany) {
		return tooMany.Redirects
	}
	var loop *RedirectLoopError
	if errors.As(err, &loop) {
		return loop.Redirects
	}
	var transport *TransportError
	if errors.As(err, &transport) {
		return transport.Redirects
	}
	return nil
}
