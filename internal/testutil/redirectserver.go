// Package testutil provides a mock HTTP server with redirect endpoints for
// integration testing of the hopper client and CLI.
package testutil

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
)

// Echo is the JSON document returned by the /echo endpoint.
type Echo struct {
	Method string              `json:"method"`
	Path   string              `json:"path"`
	Query  string              `json:"query,omitempty"`
	Header map[string][]string `json:"header"`
	Body   string              `json:"body"`
}

// NewRedirectServer creates a mock server with these endpoints:
//
//	/echo                 describes the request it received as Echo JSON
//	/chain/{n}            302 to /chain/{n-1}; /chain/0 redirects to /echo
//	/status/{code}?to=URL redirects to URL (default /echo) with code
//	/loop/a, /loop/b      302 to each other
//	/no-location          302 without a Location header
//	/gzip                 gzip-encoded text when the client accepts it
//
// The returned *httptest.Server should be closed after use.
func NewRedirectServer() *httptest.Server {
	return httptest.NewServer(newMux())
}

// NewTLSRedirectServer is NewRedirectServer over TLS with the httptest
// self-signed certificate.
func NewTLSRedirectServer() *httptest.Server {
	return httptest.NewTLSServer(newMux())
}

func newMux() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/echo", handleEcho)
	mux.HandleFunc("/chain/", handleChain)
	mux.HandleFunc("/status/", handleStatus)
	mux.HandleFunc("/loop/a", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/loop/b", http.StatusFound)
	})
	mux.HandleFunc("/loop/b", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/loop/a", http.StatusFound)
	})
	mux.HandleFunc("/no-location", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusFound)
	})
	mux.HandleFunc("/gzip", handleGzip)
	return mux
}

func handleEcho(w http.ResponseWriter, r *http.Request) {
	data, _ := io.ReadAll(r.Body)
	echo := Echo{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.RawQuery,
		Header: r.Header,
		Body:   string(data),
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(echo)
}

func handleChain(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(strings.TrimPrefix(r.URL.Path, "/chain/"))
	if err != nil || n < 0 {
		http.Error(w, "bad chain length", http.StatusBadRequest)
		return
	}
	if n == 0 {
		http.Redirect(w, r, "/echo", http.StatusFound)
		return
	}
	http.Redirect(w, r, fmt.Sprintf("/chain/%d", n-1), http.StatusFound)
}

func handleStatus(w http.ResponseWriter, r *http.Request) {
	code, err := strconv.Atoi(strings.TrimPrefix(r.URL.Path, "/status/"))
	if err != nil || code < 100 || code > 599 {
		http.Error(w, "bad status", http.StatusBadRequest)
		return
	}
	to := r.URL.Query().Get("to")
	if to == "" {
		to = "/echo"
	}
	io.Copy(io.Discard, r.Body)
	w.Header().Set("Location", to)
	w.WriteHeader(code)
}

func handleGzip(w http.ResponseWriter, r *http.Request) {
	const text = "compressed payload"
	if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
		io.WriteString(w, text)
		return
	}
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	io.WriteString(zw, text)
	zw.Close()

	w.Header().Set("Content-Encoding", "gzip")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Write(buf.Bytes())
}
