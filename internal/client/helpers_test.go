package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/0x6d61/hopper/internal/header"
	"github.com/0x6d61/hopper/internal/transport"
)

// sent is what the fake transport observed for one exchange.
type sent struct {
	Method  string
	URL     string
	Header  *header.Header
	Body    string
	HasBody bool
}

type route func(req *transport.Request) *transport.Response

// fakeTransport answers from a fixed route table keyed by absolute URL
// and records every request it receives.
type fakeTransport struct {
	mu     sync.Mutex
	routes map[string]route
	fail   map[string]error
	calls  []sent
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{routes: make(map[string]route), fail: make(map[string]error)}
}

func (f *fakeTransport) on(rawURL string, r route) *fakeTransport {
	f.routes[rawURL] = r
	return f
}

func (f *fakeTransport) Do(ctx context.Context, req *transport.Request) (*transport.Response, error) {
	rec := sent{Method: req.Method, URL: req.URL.String(), Header: req.Header.Clone()}
	if req.Body != nil {
		data, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		rec.Body = string(data)
		rec.HasBody = true
	}

	f.mu.Lock()
	f.calls = append(f.calls, rec)
	f.mu.Unlock()

	if err, ok := f.fail[rec.URL]; ok {
		return nil, err
	}
	r, ok := f.routes[rec.URL]
	if !ok {
		return nil, fmt.Errorf("fake transport: no route for %s", rec.URL)
	}
	res := r(req)
	res.URL = req.URL
	return res, nil
}

func (f *fakeTransport) Stats() *transport.Stats {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &transport.Stats{TotalRequests: int64(len(f.calls))}
}

func (f *fakeTransport) requests() []sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sent(nil), f.calls...)
}

func respond(status int, h *header.Header, text string) *transport.Response {
	if h == nil {
		h = header.New()
	}
	return &transport.Response{
		StatusCode:    status,
		Status:        fmt.Sprintf("%d %s", status, http.StatusText(status)),
		Header:        h,
		Body:          io.NopCloser(strings.NewReader(text)),
		ContentLength: int64(len(text)),
	}
}

func redirectTo(status int, location string) route {
	return func(*transport.Request) *transport.Response {
		h := header.New()
		if location != "" {
			h.Set(header.Location, location)
		}
		return respond(status, h, "")
	}
}

func ok(text string) route {
	return func(*transport.Request) *transport.Response {
		return respond(http.StatusOK, nil, text)
	}
}

func newTestClient(t *testing.T, ft *fakeTransport, configure ...func(*Builder)) *Client {
	t.Helper()
	b := NewBuilder().Transport(ft)
	for _, fn := range configure {
		fn(b)
	}
	c, err := b.Build()
	require.NoError(t, err)
	return c
}

func mustRequest(t *testing.T, method, rawURL string) *Request {
	t.Helper()
	req, err := NewRequest(method, rawURL)
	require.NoError(t, err)
	return req
}
