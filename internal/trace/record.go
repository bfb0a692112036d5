package trace

import (
	"time"

	"github.com/0x6d61/hopper/internal/client"
)

// FromResult builds a Trace from the result of client.Execute. The
// response body is not touched.
func FromResult(method, startURL string, resp *client.Response, err error, d time.Duration) *Trace {
	t := &Trace{
		Method:   method,
		StartURL: startURL,
		Outcome:  client.Outcome(resp, err),
		Duration: d,
	}
	if resp != nil {
		t.StatusCode = resp.StatusCode()
		t.Hops = resp.Redirects()
		if u := resp.URL(); u != nil {
			t.FinalURL = u.String()
		}
	}
	if err != nil {
		t.Error = err.Error()
		if resp == nil {
			t.Hops = client.RedirectsOf(err)
		}
	}
	return t
}
