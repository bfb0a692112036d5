package redirect

import (
	"net"
	"net/url"
	"strings"

	"github.com/0x6d61/hopper/internal/header"
)

// sensitiveHeaders carry credentials or session state.
var sensitiveHeaders = []string{
	header.Authorization,
	header.Cookie,
	header.Cookie2,
	header.ProxyAuthorization,
	header.WWWAuthenticate,
}

// SensitiveHeaders returns the names stripped on a cross-origin redirect.
func SensitiveHeaders() []string {
	return append([]string(nil), sensitiveHeaders...)
}

// RemoveSensitiveHeaders strips credential headers from h when next does
// not share scheme, host and port with the last URL in previous. With an
// empty history nothing is removed.
func RemoveSensitiveHeaders(h *header.Header, next *url.URL, previous []*url.URL) {
	if len(previous) == 0 {
		return
	}
	if SameOrigin(next, previous[len(previous)-1]) {
		return
	}
	for _, name := range sensitiveHeaders {
		h.Del(name)
	}
}

// SameOrigin reports whether a and b have the same scheme, host and
// effective port. Scheme and host compare case-insensitively.
func SameOrigin(a, b *url.URL) bool {
	if !strings.EqualFold(a.Scheme, b.Scheme) {
		return false
	}
	if !strings.EqualFold(a.Hostname(), b.Hostname()) {
		return false
	}
	return effectivePort(a) == effectivePort(b)
}

func effectivePort(u *url.URL) string {
	if p := u.Port(); p != "" {
		return p
	}
	return defaultPort(u.Scheme)
}

func defaultPort(scheme string) string {
	switch strings.ToLower(scheme) {
	case "http":
		return "80"
	case "https":
		return "443"
	}
	return ""
}

// Canonical renders u with scheme and host lowercased, the default port
// and fragment removed, and an empty path written as "/".
func Canonical(u *url.URL) string {
	c := *u
	c.Scheme = strings.ToLower(c.Scheme)
	c.Fragment, c.RawFragment = "", ""
	if c.Host != "" {
		host := strings.ToLower(c.Hostname())
		if p := c.Port(); p != "" && p != defaultPort(c.Scheme) {
			c.Host = net.JoinHostPort(host, p)
		} else if strings.Contains(host, ":") {
			c.Host = "[" + host + "]"
		} else {
			c.Host = host
		}
	}
	if c.Opaque == "" && c.Path == "" {
		c.Path, c.RawPath = "/", ""
	}
	return c.String()
}
