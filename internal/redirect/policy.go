// Package redirect holds the security policy applied while following HTTP
// redirects: the follow/stop decision, sensitive header removal across
// origins, and Referer computation.
//
// Everything here is a pure function of its inputs. The redirect history
// passed in is owned by a single request execution and never shared.
package redirect

import (
	"fmt"
	"net/url"
)

// DefaultMaxRedirects is the hop limit of the default policy.
const DefaultMaxRedirects = 10

// Action is the outcome of checking a redirect against a Policy.
type Action int

const (
	// Follow sends the request to the candidate URL.
	Follow Action = iota
	// Stop returns the redirect response to the caller as the result.
	Stop
	// LoopDetected aborts because the candidate was already visited.
	LoopDetected
	// TooManyRedirects aborts because the hop limit was exceeded.
	TooManyRedirects
)

func (a Action) String() string {
	switch a {
	case Follow:
		return "follow"
	case Stop:
		return "stop"
	case LoopDetected:
		return "loop_detected"
	case TooManyRedirects:
		return "too_many_redirects"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// Attempt describes a pending redirect to a custom policy.
type Attempt struct {
	next     *url.URL
	previous []*url.URL
}

// NewAttempt returns an Attempt for next with the given history.
func NewAttempt(next *url.URL, previous []*url.URL) Attempt {
	return Attempt{next: next, previous: previous}
}

// Next is the URL the redirect points to.
func (a Attempt) Next() *url.URL { return a.next }

// Previous lists the URLs already visited, oldest first. The last entry is
// the URL that returned the redirect. The slice must not be modified.
func (a Attempt) Previous() []*url.URL { return a.previous }

// Follow returns the Follow action.
func (a Attempt) Follow() Action { return Follow }

// Stop returns the Stop action.
func (a Attempt) Stop() Action { return Stop }

// LoopDetected returns the LoopDetected action.
func (a Attempt) LoopDetected() Action { return LoopDetected }

// TooManyRedirects returns the TooManyRedirects action.
func (a Attempt) TooManyRedirects() Action { return TooManyRedirects }

// Visited reports whether Next already appears in Previous. URLs are
// compared in canonical form, so https://A and https://a:443/ match.
func (a Attempt) Visited() bool {
	next := Canonical(a.next)
	for _, u := range a.previous {
		if Canonical(u) == next {
			return true
		}
	}
	return false
}

type policyKind int

const (
	kindDefault policyKind = iota
	kindLimit
	kindNone
	kindCustom
)

// Policy decides what happens when a response asks to be redirected.
//
// The zero value behaves like Default.
type Policy struct {
	kind   policyKind
	max    int
	custom func(Attempt) Action
}

// Default returns Limit(DefaultMaxRedirects).
func Default() Policy {
	return Limit(DefaultMaxRedirects)
}

// Limit follows up to max redirects and fails on loops.
func Limit(max int) Policy {
	return Policy{kind: kindLimit, max: max}
}

// None never follows a redirect; the redirect response itself is returned.
func None() Policy {
	return Policy{kind: kindNone}
}

// Custom delegates the decision to fn. fn sees the same candidate and
// history the built-in policies use, so it can implement its own loop and
// count rules. A nil fn behaves like None.
func Custom(fn func(Attempt) Action) Policy {
	return Policy{kind: kindCustom, custom: fn}
}

// Check decides whether to follow next given the visited history.
func (p Policy) Check(next *url.URL, previous []*url.URL) Action {
	attempt := NewAttempt(next, previous)

	switch p.kind {
	case kindNone:
		return Stop
	case kindCustom:
		if p.custom == nil {
			return Stop
		}
		return p.custom(attempt)
	case kindLimit:
		return checkLimit(attempt, p.max)
	default:
		return checkLimit(attempt, DefaultMaxRedirects)
	}
}

// checkLimit evaluates loops before the count so a revisited URL is always
// reported as a loop.
func checkLimit(a Attempt, max int) Action {
	if a.Visited() {
		return LoopDetected
	}
	if len(a.previous) > max {
		return TooManyRedirects
	}
	return Follow
}

// MaxRedirects returns the hop limit and true for limit policies.
func (p Policy) MaxRedirects() (int, bool) {
	switch p.kind {
	case kindLimit:
		return p.max, true
	case kindDefault:
		return DefaultMaxRedirects, true
	default:
		return 0, false
	}
}

func (p Policy) String() string {
	switch p.kind {
	case kindNone:
		return "None"
	case kindCustom:
		return "Custom"
	default:
		max, _ := p.MaxRedirects()
		return fmt.Sprintf("Limit(%d)", max)
	}
}
