package report

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/0x6d61/hopper/internal/client"
)

// JSONReporter outputs structured JSON.
type JSONReporter struct {
	// Compact outputs single-line JSON when true (no indentation).
	Compact bool
}

// Format returns "json".
func (r *JSONReporter) Format() string {
	return "json"
}

type jsonOutput struct {
	SchemaVersion string      `json:"schema_version"`
	Tool          string      `json:"tool"`
	Run           jsonRun     `json:"run"`
	Results       []jsonEntry `json:"results"`
	Summary       jsonSummary `json:"summary"`
}

type jsonRun struct {
	StartTime       time.Time  `json:"start_time"`
	EndTime         time.Time  `json:"end_time"`
	DurationSeconds float64    `json:"duration_seconds"`
	Requests        *jsonStats `json:"requests,omitempty"`
}

type jsonStats struct {
	Total int64   `json:"total"`
	AvgMs float64 `json:"avg_ms"`
	P50Ms float64 `json:"p50_ms"`
	P95Ms float64 `json:"p95_ms"`
	P99Ms float64 `json:"p99_ms"`
}

type jsonEntry struct {
	TraceID    string       `json:"trace_id,omitempty"`
	Method     string       `json:"method"`
	URL        string       `json:"url"`
	FinalURL   string       `json:"final_url,omitempty"`
	StatusCode int          `json:"status_code,omitempty"`
	Outcome    string       `json:"outcome"`
	Error      string       `json:"error,omitempty"`
	Redirects  []client.Hop `json:"redirects"`
	DurationMs float64      `json:"duration_ms"`
	Body       *string      `json:"body,omitempty"`
}

type jsonSummary struct {
	Total  int `json:"total"`
	Failed int `json:"failed"`
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// Generate writes JSON results to w.
func (r *JSONReporter) Generate(ctx context.Context, result *Result, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	output := jsonOutput{
		SchemaVersion: "1.0",
		Tool:          "hopper",
		Run: jsonRun{
			StartTime:       result.StartTime,
			EndTime:         result.EndTime,
			DurationSeconds: result.EndTime.Sub(result.StartTime).Seconds(),
		},
		Results: make([]jsonEntry, 0, len(result.Entries)),
		Summary: jsonSummary{
			Total:  len(result.Entries),
			Failed: result.Failed(),
		},
	}

	if s := result.Stats; s != nil {
		output.Run.Requests = &jsonStats{
			Total: s.TotalRequests,
			AvgMs: ms(s.AvgDuration),
			P50Ms: ms(s.P50),
			P95Ms: ms(s.P95),
			P99Ms: ms(s.P99),
		}
	}

	for _, e := range result.Entries {
		t := e.Trace
		entry := jsonEntry{
			TraceID:    t.ID,
			Method:     t.Method,
			URL:        t.StartURL,
			FinalURL:   t.FinalURL,
			StatusCode: t.StatusCode,
			Outcome:    t.Outcome,
			Error:      t.Error,
			Redirects:  t.Hops,
			DurationMs: ms(t.Duration),
		}
		if entry.Redirects == nil {
			entry.Redirects = []client.Hop{}
		}
		if e.Body != nil {
			s := string(e.Body)
			entry.Body = &s
		}
		output.Results = append(output.Results, entry)
	}

	enc := json.NewEncoder(w)
	if !r.Compact {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(output)
}
