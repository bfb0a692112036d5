package redirect

import (
	"net/url"
	"strings"
)

// MakeReferer derives the Referer to send to next after leaving previous.
// Credentials and the fragment of previous are removed. ok is false when
// the hop downgrades from https to http; the header must then be absent.
func MakeReferer(next, previous *url.URL) (referer string, ok bool) {
	if strings.EqualFold(next.Scheme, "http") && strings.EqualFold(previous.Scheme, "https") {
		return "", false
	}

	u := *previous
	u.User = nil
	u.Fragment = ""
	u.RawFragment = ""
	return u.String(), true
}
