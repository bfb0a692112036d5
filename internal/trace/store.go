// Package trace persists the redirect chains of executed requests so they
// can be listed and inspected after the fact.
package trace

import (
	"context"
	"time"

	"github.com/0x6d61/hopper/internal/client"
)

// Trace is the record of one executed request.
type Trace struct {
	ID         string        `json:"id"`
	Method     string        `json:"method"`
	StartURL   string        `json:"start_url"`
	FinalURL   string        `json:"final_url,omitempty"`
	StatusCode int           `json:"status_code,omitempty"`
	Outcome    string        `json:"outcome"`
	Error      string        `json:"error,omitempty"`
	Hops       []client.Hop  `json:"hops"`
	Duration   time.Duration `json:"duration"`
	CreatedAt  time.Time     `json:"created_at"`
}

// Summary is a lightweight trace overview.
type Summary struct {
	ID         string    `json:"id"`
	StartURL   string    `json:"start_url"`
	StatusCode int       `json:"status_code"`
	Outcome    string    `json:"outcome"`
	Redirects  int       `json:"redirects"`
	CreatedAt  time.Time `json:"created_at"`
}

// Store persists and retrieves traces.
type Store interface {
	Save(ctx context.Context, t *Trace) error
	Load(ctx context.Context, startURL string) (*Trace, error)
	LoadByID(ctx context.Context, id string) (*Trace, error)
	List(ctx context.Context) ([]*Summary, error)
	Delete(ctx context.Context, id string) error
	Cleanup(ctx context.Context, maxAge time.Duration) (int64, error)
	Close() error
}
