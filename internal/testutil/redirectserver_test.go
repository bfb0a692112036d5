package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"testing"
)

// rawClient does not follow redirects so the server's answers can be
// checked directly.
var rawClient = &http.Client{
	CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
}

func TestRedirectServer_Echo(t *testing.T) {
	srv := NewRedirectServer()
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/echo?x=1", "text/plain", strings.NewReader("payload"))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	var echo Echo
	if err := json.NewDecoder(resp.Body).Decode(&echo); err != nil {
		t.Fatalf("decode echo: %v", err)
	}
	if echo.Method != "POST" || echo.Path != "/echo" || echo.Query != "x=1" || echo.Body != "payload" {
		t.Errorf("echo = %+v", echo)
	}
}

func TestRedirectServer_Chain(t *testing.T) {
	srv := NewRedirectServer()
	defer srv.Close()

	tests := []struct {
		path     string
		location string
	}{
		{"/chain/3", "/chain/2"},
		{"/chain/1", "/chain/0"},
		{"/chain/0", "/echo"},
	}
	for _, tt := range tests {
		resp, err := rawClient.Get(srv.URL + tt.path)
		if err != nil {
			t.Fatalf("GET %s failed: %v", tt.path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusFound {
			t.Errorf("GET %s status = %d, want 302", tt.path, resp.StatusCode)
		}
		if got := resp.Header.Get("Location"); got != tt.location {
			t.Errorf("GET %s Location = %q, want %q", tt.path, got, tt.location)
		}
	}

	resp, err := rawClient.Get(srv.URL + "/chain/x")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad chain status = %d, want 400", resp.StatusCode)
	}
}

func TestRedirectServer_Status(t *testing.T) {
	srv := NewRedirectServer()
	defer srv.Close()

	for _, code := range []int{301, 302, 303, 307, 308} {
		resp, err := rawClient.Get(srv.URL + "/status/" + strconv.Itoa(code) + "?to=http://elsewhere/")
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != code {
			t.Errorf("status = %d, want %d", resp.StatusCode, code)
		}
		if got := resp.Header.Get("Location"); got != "http://elsewhere/" {
			t.Errorf("Location = %q", got)
		}
	}
}

func TestRedirectServer_NoLocation(t *testing.T) {
	srv := NewRedirectServer()
	defer srv.Close()

	resp, err := rawClient.Get(srv.URL + "/no-location")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != "" {
		t.Errorf("got %d with Location %q", resp.StatusCode, resp.Header.Get("Location"))
	}
}

func TestRedirectServer_Gzip(t *testing.T) {
	srv := NewRedirectServer()
	defer srv.Close()

	req, _ := http.NewRequest("GET", srv.URL+"/gzip", nil)
	req.Header.Set("Accept-Encoding", "identity")
	resp, err := rawClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if string(body) != "compressed payload" {
		t.Errorf("identity body = %q", body)
	}
}
