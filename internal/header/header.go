// Package header provides the case-insensitive header multimap used by the
// client and transport layers, with typed accessors for the handful of
// headers the client manages itself.
package header

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"golang.org/x/net/http/httpguts"
)

// Well-known header names.
const (
	Accept             = "Accept"
	AcceptEncoding     = "Accept-Encoding"
	Authorization      = "Authorization"
	ContentEncoding    = "Content-Encoding"
	ContentLength      = "Content-Length"
	ContentType        = "Content-Type"
	Cookie             = "Cookie"
	Cookie2            = "Cookie2"
	Location           = "Location"
	ProxyAuthorization = "Proxy-Authorization"
	Range              = "Range"
	Referer            = "Referer"
	UserAgent          = "User-Agent"
	WWWAuthenticate    = "WWW-Authenticate"
)

type field struct {
	name   string
	values []string
}

// Header is a multimap of header fields. Names compare case-insensitively
// and keep the spelling they were first added with. Values of a single
// name keep their insertion order.
//
// The zero value is an empty Header ready to use.
type Header struct {
	fields map[string]*field
	order  []string
}

// New returns an empty Header.
func New() *Header {
	return &Header{fields: make(map[string]*field)}
}

// FromHTTP copies a net/http header into a new Header. Names are visited in
// sorted order so the result is deterministic.
func FromHTTP(h http.Header) *Header {
	out := New()
	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		for _, v := range h[name] {
			out.Add(name, v)
		}
	}
	return out
}

func key(name string) string {
	return strings.ToLower(name)
}

func (h *Header) init() {
	if h.fields == nil {
		h.fields = make(map[string]*field)
	}
}

// Get returns the first value associated with name, or "" if there is none.
func (h *Header) Get(name string) string {
	if h == nil {
		return ""
	}
	f, ok := h.fields[key(name)]
	if !ok || len(f.values) == 0 {
		return ""
	}
	return f.values[0]
}

// Values returns a copy of all values associated with name.
func (h *Header) Values(name string) []string {
	if h == nil {
		return nil
	}
	f, ok := h.fields[key(name)]
	if !ok {
		return nil
	}
	return append([]string(nil), f.values...)
}

// Has reports whether name is present.
func (h *Header) Has(name string) bool {
	if h == nil {
		return false
	}
	_, ok := h.fields[key(name)]
	return ok
}

// Set replaces all values of name with value.
func (h *Header) Set(name, value string) {
	h.init()
	k := key(name)
	if f, ok := h.fields[k]; ok {
		f.values = []string{value}
		return
	}
	h.fields[k] = &field{name: name, values: []string{value}}
	h.order = append(h.order, k)
}

// Add appends value to the values of name.
func (h *Header) Add(name, value string) {
	h.init()
	k := key(name)
	if f, ok := h.fields[k]; ok {
		f.values = append(f.values, value)
		return
	}
	h.fields[k] = &field{name: name, values: []string{value}}
	h.order = append(h.order, k)
}

// Del removes every value of name.
func (h *Header) Del(name string) {
	if h == nil || h.fields == nil {
		return
	}
	k := key(name)
	if _, ok := h.fields[k]; !ok {
		return
	}
	delete(h.fields, k)
	for i, o := range h.order {
		if o == k {
			h.order = append(h.order[:i], h.order[i+1:]...)
			break
		}
	}
}

// Len returns the number of distinct names.
func (h *Header) Len() int {
	if h == nil {
		return 0
	}
	return len(h.order)
}

// Names returns the header names in first-insertion order.
func (h *Header) Names() []string {
	if h == nil {
		return nil
	}
	names := make([]string, 0, len(h.order))
	for _, k := range h.order {
		names = append(names, h.fields[k].name)
	}
	return names
}

// Clone returns a deep copy of h. Cloning a nil Header returns an empty one.
func (h *Header) Clone() *Header {
	out := New()
	if h == nil {
		return out
	}
	for _, k := range h.order {
		f := h.fields[k]
		out.fields[k] = &field{name: f.name, values: append([]string(nil), f.values...)}
		out.order = append(out.order, k)
	}
	return out
}

// HTTP converts h to a net/http header with canonical names.
func (h *Header) HTTP() http.Header {
	out := make(http.Header, h.Len())
	if h == nil {
		return out
	}
	for _, k := range h.order {
		f := h.fields[k]
		canonical := http.CanonicalHeaderKey(f.name)
		out[canonical] = append(out[canonical], f.values...)
	}
	return out
}

// Validate checks every name and value against the HTTP/1.1 field grammar.
func (h *Header) Validate() error {
	if h == nil {
		return nil
	}
	for _, k := range h.order {
		f := h.fields[k]
		if !httpguts.ValidHeaderFieldName(f.name) {
			return fmt.Errorf("header: invalid field name %q", f.name)
		}
		for _, v := range f.values {
			if !httpguts.ValidHeaderFieldValue(v) {
				return fmt.Errorf("header: invalid value for %q", f.name)
			}
		}
	}
	return nil
}

// Location returns the Location header.
func (h *Header) Location() string { return h.Get(Location) }

// Referer returns the Referer header.
func (h *Header) Referer() string { return h.Get(Referer) }

// SetReferer sets the Referer header.
func (h *Header) SetReferer(v string) { h.Set(Referer, v) }

// UserAgent returns the User-Agent header.
func (h *Header) UserAgent() string { return h.Get(UserAgent) }

// SetUserAgent sets the User-Agent header.
func (h *Header) SetUserAgent(v string) { h.Set(UserAgent, v) }

// SetAccept sets the Accept header.
func (h *Header) SetAccept(v string) { h.Set(Accept, v) }

// SetAcceptEncoding sets the Accept-Encoding header.
func (h *Header) SetAcceptEncoding(v string) { h.Set(AcceptEncoding, v) }

// ContentEncoding returns the trimmed, lower-cased Content-Encoding value.
func (h *Header) ContentEncoding() string {
	return strings.ToLower(strings.TrimSpace(h.Get(ContentEncoding)))
}

// String renders h one "Name: value" line per value, in insertion order.
func (h *Header) String() string {
	var b strings.Builder
	for _, name := range h.Names() {
		for _, v := range h.Values(name) {
			fmt.Fprintf(&b, "%s: %s\n", name, v)
		}
	}
	return b.String()
}
