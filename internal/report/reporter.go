// Package report formats the results of a fetch run.
package report

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/0x6d61/hopper/internal/trace"
	"github.com/0x6d61/hopper/internal/transport"
)

// Entry is one fetched URL.
type Entry struct {
	Trace *trace.Trace
	// Body is included in the report when non-nil.
	Body []byte
}

// Result is everything a run produced.
type Result struct {
	Entries   []Entry
	StartTime time.Time
	EndTime   time.Time
	Stats     *transport.Stats
}

// Failed counts entries that ended in an error.
func (r *Result) Failed() int {
	n := 0
	for _, e := range r.Entries {
		if e.Trace.Error != "" {
			n++
		}
	}
	return n
}

// Reporter generates output in a specific format.
type Reporter interface {
	// Format returns the format name (e.g., "text", "json").
	Format() string

	// Generate writes the formatted result to w.
	Generate(ctx context.Context, result *Result, w io.Writer) error
}

// New creates a reporter by format name ("text" or "json").
// The format name is case-insensitive.
func New(format string) (Reporter, error) {
	switch strings.ToLower(format) {
	case "text":
		return &TextReporter{}, nil
	case "json":
		return &JSONReporter{}, nil
	default:
		return nil, fmt.Errorf("unsupported report format: %q", format)
	}
}
