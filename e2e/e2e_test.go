//go:build e2e

// Package e2e contains end-to-end tests against a live httpbin-compatible
// server (for example mccutchen/go-httpbin).
//
// Run with:
//
//	docker run -d -p 18080:8080 mccutchen/go-httpbin
//	go test -v -tags e2e -count=1 -timeout 120s ./e2e/...
package e2e_test

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"os"
	"testing"
	"time"

	"github.com/0x6d61/hopper/internal/client"
	"github.com/0x6d61/hopper/internal/redirect"
)

const defaultE2EURL = "http://localhost:18080"

// e2eBaseURL returns the base URL of the test server.
// If the server is unreachable, the test is skipped automatically.
func e2eBaseURL(t *testing.T) string {
	t.Helper()
	base := os.Getenv("HOPPER_E2E_URL")
	if base == "" {
		base = defaultE2EURL
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/get", nil)
	if err != nil {
		t.Skipf("cannot build health-check request for %s: %v", base, err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Skipf("E2E server not available at %s: %v", base, err)
	}
	resp.Body.Close()
	return base
}

func newE2EClient(t *testing.T, configure ...func(*client.Builder)) *client.Client {
	t.Helper()
	b := client.NewBuilder().Timeout(10 * time.Second)
	for _, fn := range configure {
		fn(b)
	}
	c, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return c
}

// httpbinEcho is the subset of the /anything response the tests read.
type httpbinEcho struct {
	Method  string              `json:"method"`
	Headers map[string][]string `json:"headers"`
	Data    string              `json:"data"`
}

func TestE2E_RelativeRedirects(t *testing.T) {
	base := e2eBaseURL(t)

	resp, err := newE2EClient(t).Get(base + "/relative-redirect/3").Send(context.Background())
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	defer resp.Close()

	if resp.StatusCode() != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode())
	}
	if n := len(resp.Redirects()); n != 3 {
		t.Errorf("redirects = %d, want 3", n)
	}
}

func TestE2E_TooManyRedirects(t *testing.T) {
	base := e2eBaseURL(t)

	c := newE2EClient(t, func(b *client.Builder) { b.Redirect(redirect.Limit(2)) })
	_, err := c.Get(base + "/redirect/5").Send(context.Background())

	var tooMany *client.TooManyRedirectsError
	if !errors.As(err, &tooMany) {
		t.Fatalf("error = %v, want TooManyRedirectsError", err)
	}
}

func TestE2E_SeeOtherTurnsPostIntoGet(t *testing.T) {
	base := e2eBaseURL(t)

	target := base + "/redirect-to?status_code=303&url=" + url.QueryEscape("/anything")
	resp, err := newE2EClient(t).Post(target).
		Form(url.Values{"k": {"v"}}).
		Send(context.Background())
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	var echo httpbinEcho
	if err := resp.JSON(&echo); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if echo.Method != http.MethodGet || echo.Data != "" {
		t.Errorf("got %s with data %q, want GET without body", echo.Method, echo.Data)
	}
}

func TestE2E_TemporaryRedirectKeepsBody(t *testing.T) {
	base := e2eBaseURL(t)

	target := base + "/redirect-to?status_code=307&url=" + url.QueryEscape("/anything")
	resp, err := newE2EClient(t).Put(target).
		JSON(map[string]string{"k": "v"}).
		Send(context.Background())
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	var echo httpbinEcho
	if err := resp.JSON(&echo); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if echo.Method != http.MethodPut || echo.Data != `{"k":"v"}` {
		t.Errorf("got %s with data %q, want PUT with JSON body", echo.Method, echo.Data)
	}
	if got := echo.Headers["Referer"]; len(got) != 1 {
		t.Errorf("Referer = %v, want one value", got)
	}
}

func TestE2E_GzipDecoded(t *testing.T) {
	base := e2eBaseURL(t)

	resp, err := newE2EClient(t).Get(base + "/gzip").Send(context.Background())
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	var out struct {
		Gzipped bool `json:"gzipped"`
	}
	if err := resp.JSON(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !out.Gzipped {
		t.Error("server did not report a gzipped response")
	}
}
