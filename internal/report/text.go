package report

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/0x6d61/hopper/internal/metrics"
)

const (
	doubleLine = "\u2550" // ═
	singleLine = "\u2500" // ─
	lineWidth  = 50
)

// TextReporter outputs terminal text, colored when the terminal allows.
type TextReporter struct {
	// NoColor disables ANSI colors regardless of the terminal.
	NoColor bool
	// Verbose adds transport statistics.
	Verbose bool
}

// Format returns "text".
func (r *TextReporter) Format() string {
	return "text"
}

type palette struct {
	ok, redirect, fail, bold, dim func(a ...any) string
}

func (r *TextReporter) palette() palette {
	mk := func(attrs ...color.Attribute) func(a ...any) string {
		c := color.New(attrs...)
		if r.NoColor {
			c.DisableColor()
		}
		return c.SprintFunc()
	}
	return palette{
		ok:       mk(color.FgGreen),
		redirect: mk(color.FgYellow),
		fail:     mk(color.FgRed),
		bold:     mk(color.Bold),
		dim:      mk(color.FgCyan),
	}
}

func (p palette) status(code int) string {
	s := fmt.Sprint(code)
	switch {
	case code >= 300 && code < 400:
		return p.redirect(s)
	case code >= 400:
		return p.fail(s)
	default:
		return p.ok(s)
	}
}

// Generate writes every entry with its redirect chain, then a summary.
func (r *TextReporter) Generate(ctx context.Context, result *Result, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p := r.palette()
	b := &strings.Builder{}
	doubleBar := strings.Repeat(doubleLine, lineWidth)
	singleBar := strings.Repeat(singleLine, lineWidth)

	fmt.Fprintln(b, doubleBar)
	fmt.Fprintln(b, p.bold("hopper - Redirect Trace"))
	fmt.Fprintln(b, doubleBar)

	for i, e := range result.Entries {
		if i > 0 {
			fmt.Fprintln(b, singleBar)
		}
		t := e.Trace
		fmt.Fprintf(b, "%s %s\n", p.bold(t.Method), t.StartURL)
		for n, hop := range t.Hops {
			fmt.Fprintf(b, "  %d. %s %s -> %s\n", n+1, p.status(hop.StatusCode), hop.URL, hop.Location)
		}

		switch {
		case t.Error != "":
			fmt.Fprintf(b, "  %s %s\n", p.fail("error:"), t.Error)
		case t.Outcome == metrics.OutcomeStopped:
			fmt.Fprintf(b, "  %s %s (redirect not followed)\n", p.status(t.StatusCode), t.FinalURL)
		default:
			fmt.Fprintf(b, "  %s %s\n", p.status(t.StatusCode), t.FinalURL)
		}
		fmt.Fprintf(b, "  %s %d redirect(s) in %s\n", p.dim("took"), len(t.Hops), t.Duration.Round(1e6))
		if t.ID != "" {
			fmt.Fprintf(b, "  %s %s\n", p.dim("trace"), t.ID)
		}
		if e.Body != nil {
			fmt.Fprintln(b, singleBar)
			b.Write(e.Body)
			if len(e.Body) > 0 && e.Body[len(e.Body)-1] != '\n' {
				fmt.Fprintln(b)
			}
		}
	}

	fmt.Fprintln(b, doubleBar)
	duration := result.EndTime.Sub(result.StartTime)
	fmt.Fprintf(b, "Summary: %d URL(s), %d failed, %.1fs\n", len(result.Entries), result.Failed(), duration.Seconds())
	if r.Verbose && result.Stats != nil {
		s := result.Stats
		fmt.Fprintf(b, "Requests: %d (avg %s, p50 %s, p95 %s, p99 %s)\n",
			s.TotalRequests, s.AvgDuration, s.P50, s.P95, s.P99)
	}
	fmt.Fprintln(b, doubleBar)

	_, err := io.WriteString(w, b.String())
	return err
}
