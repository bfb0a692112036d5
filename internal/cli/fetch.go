package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"os/signal"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/0x6d61/hopper/internal/batch"
	"github.com/0x6d61/hopper/internal/body"
	"github.com/0x6d61/hopper/internal/client"
	"github.com/0x6d61/hopper/internal/config"
	"github.com/0x6d61/hopper/internal/metrics"
	"github.com/0x6d61/hopper/internal/report"
	"github.com/0x6d61/hopper/internal/trace"
)

func newFetchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch URL [URL...]",
		Short: "Fetch URLs and report their redirect chains",
		Long: `Fetch sends one request per URL, follows redirects under the configured
policy and reports every hop. Several URLs are fetched concurrently on one
shared connection pool.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runFetch,
	}

	f := cmd.Flags()
	f.StringP("method", "X", "GET", "HTTP method")
	f.StringP("data", "d", "", "Request body (implies POST when --method is not set)")
	f.StringArrayP("header", "H", nil, "Extra header (repeatable, e.g., -H 'X-Custom: value')")
	f.String("user-agent", "", "User-Agent header")

	f.Int("max-redirects", 0, "Maximum redirects to follow (default 10)")
	f.Bool("no-follow", false, "Return redirect responses instead of following them")
	f.Bool("no-referer", false, "Do not send Referer on redirects")
	f.Bool("no-gzip", false, "Do not request or decode gzip responses")

	f.Duration("timeout", 30*time.Second, "Per-hop read and write timeout")
	f.StringArray("cacert", nil, "Extra trusted root certificate, PEM or DER (repeatable)")
	f.Bool("insecure-hostname", false, "Skip hostname verification (chain is still verified)")
	f.String("proxy", "", "Proxy URL (http://host:port or socks5://host:port)")
	f.Float64("rate", 0, "Maximum requests per second (0 = unlimited)")
	f.IntP("concurrency", "c", 0, "Concurrent fetches (default 4)")

	f.StringP("format", "f", "text", "Output format (text, json)")
	f.StringP("output", "o", "", "Output file path")
	f.Bool("include-body", false, "Include response bodies in the report")
	f.Bool("no-color", false, "Disable colored text output")
	f.String("metrics-file", "", "Write Prometheus metrics to this file after the run")
	return cmd
}

// fetchOptions are the fetch flags merged over the configuration file.
type fetchOptions struct {
	cfg         *config.Config
	method      string
	data        string
	hasData     bool
	headers     [][2]string
	format      string
	output      string
	includeBody bool
	noColor     bool
	verbose     int
}

func readFetchOptions(cmd *cobra.Command) (*fetchOptions, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	f := cmd.Flags()
	c := &cfg.Client

	if f.Changed("user-agent") {
		c.UserAgent, _ = f.GetString("user-agent")
	}
	if f.Changed("max-redirects") {
		c.MaxRedirects, _ = f.GetInt("max-redirects")
	}
	if noFollow, _ := f.GetBool("no-follow"); noFollow {
		c.FollowRedirects = false
	}
	if noReferer, _ := f.GetBool("no-referer"); noReferer {
		c.Referer = false
	}
	if noGzip, _ := f.GetBool("no-gzip"); noGzip {
		c.Gzip = false
	}
	if f.Changed("timeout") || c.Timeout == 0 {
		c.Timeout, _ = f.GetDuration("timeout")
	}
	if certs, _ := f.GetStringArray("cacert"); len(certs) > 0 {
		c.RootCertificates = append(c.RootCertificates, certs...)
	}
	if insecure, _ := f.GetBool("insecure-hostname"); insecure {
		c.InsecureHostname = true
	}
	if f.Changed("proxy") {
		c.Proxy, _ = f.GetString("proxy")
	}
	if f.Changed("rate") {
		c.RateLimit, _ = f.GetFloat64("rate")
	}
	if f.Changed("concurrency") {
		cfg.Batch.Concurrency, _ = f.GetInt("concurrency")
	}
	if f.Changed("metrics-file") {
		cfg.Metrics.Textfile, _ = f.GetString("metrics-file")
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	opts := &fetchOptions{cfg: cfg}
	opts.method, _ = f.GetString("method")
	opts.data, _ = f.GetString("data")
	opts.hasData = f.Changed("data")
	if opts.hasData && !f.Changed("method") {
		opts.method = "POST"
	}
	opts.method = strings.ToUpper(opts.method)

	for _, name := range slices.Sorted(maps.Keys(cfg.Headers)) {
		opts.headers = append(opts.headers, [2]string{name, cfg.Headers[name]})
	}
	rawHeaders, _ := f.GetStringArray("header")
	parsed, err := parseHeaders(rawHeaders)
	if err != nil {
		return nil, err
	}
	opts.headers = append(opts.headers, parsed...)

	opts.format, _ = f.GetString("format")
	opts.output, _ = f.GetString("output")
	opts.includeBody, _ = f.GetBool("include-body")
	opts.noColor, _ = f.GetBool("no-color")
	opts.verbose, _ = f.GetInt("verbose")
	return opts, nil
}

// parseHeaders parses header strings (e.g., "X-Custom: value").
func parseHeaders(rawHeaders []string) ([][2]string, error) {
	var out [][2]string
	for _, h := range rawHeaders {
		name, value, ok := strings.Cut(h, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid header %q (want 'Name: value')", h)
		}
		out = append(out, [2]string{name, strings.TrimSpace(value)})
	}
	return out, nil
}

// runFetch wires config, client, worker pool, trace store and reporter.
func runFetch(cmd *cobra.Command, args []string) error {
	opts, err := readFetchOptions(cmd)
	if err != nil {
		return err
	}
	cfg := opts.cfg
	log := newLogger(cmd.ErrOrStderr(), opts.verbose)

	reporter, err := report.New(opts.format)
	if err != nil {
		return err
	}
	if tr, ok := reporter.(*report.TextReporter); ok {
		tr.NoColor = opts.noColor || opts.output != ""
		tr.Verbose = opts.verbose > 0
	}

	var collector *metrics.Collector
	if cfg.Metrics.Textfile != "" {
		collector = metrics.New()
	}

	builder, err := cfg.Client.Builder()
	if err != nil {
		return err
	}
	c, err := builder.Logger(log).Metrics(collector).Build()
	if err != nil {
		return fmt.Errorf("failed to create HTTP client: %w", err)
	}
	log.Debug("client ready", "client", c.String())

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	var store trace.Store
	if cfg.Trace.Database != "" {
		s, err := trace.NewSQLiteStore(cfg.Trace.Database)
		if err != nil {
			return fmt.Errorf("failed to open trace database %q: %w", cfg.Trace.Database, err)
		}
		defer s.Close()
		store = s
	}

	result := &report.Result{StartTime: time.Now()}
	entries := make([]report.Entry, len(args))

	var (
		reqs    []*client.Request
		indexes []int
	)
	for i, rawURL := range args {
		req, err := newFetchRequest(opts, rawURL)
		if err != nil {
			entries[i] = report.Entry{Trace: trace.FromResult(opts.method, rawURL, nil, err, 0)}
			continue
		}
		reqs = append(reqs, req)
		indexes = append(indexes, i)
	}

	results := batch.Run(ctx, c, reqs, batch.Options{Workers: cfg.Batch.Concurrency, Logger: log})
	for n, r := range results {
		i := indexes[n]
		entry := report.Entry{Trace: trace.FromResult(opts.method, args[i], r.Response, r.Err, r.Duration)}
		if opts.includeBody && r.Err == nil {
			entry.Body = r.Body
			if entry.Body == nil {
				entry.Body = []byte{}
			}
		}
		entries[i] = entry
	}

	if store != nil {
		for _, e := range entries {
			if err := store.Save(ctx, e.Trace); err != nil {
				log.Warn("failed to save trace", "url", e.Trace.StartURL, "error", err)
			}
		}
	}

	result.Entries = entries
	result.EndTime = time.Now()
	result.Stats = c.Stats()

	if err := writeReport(ctx, reporter, result, cmd.OutOrStdout(), opts.output); err != nil {
		return err
	}

	if cfg.Metrics.Textfile != "" {
		if err := collector.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			return fmt.Errorf("failed to write metrics: %w", err)
		}
	}

	if failed := result.Failed(); failed > 0 {
		return fmt.Errorf("%d of %d fetches failed", failed, len(entries))
	}
	return nil
}

func newFetchRequest(opts *fetchOptions, rawURL string) (*client.Request, error) {
	req, err := client.NewRequest(opts.method, rawURL)
	if err != nil {
		return nil, err
	}
	for _, h := range opts.headers {
		req.Header.Add(h[0], h[1])
	}
	if opts.hasData {
		req.Body = body.FromString(opts.data)
		if !req.Header.Has("Content-Type") {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	}
	return req, nil
}

func writeReport(ctx context.Context, reporter report.Reporter, result *report.Result, stdout io.Writer, path string) error {
	out := stdout
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create output file %q: %w", path, err)
		}
		defer f.Close()
		out = f
	}
	if err := reporter.Generate(ctx, result, out); err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return fmt.Errorf("failed to generate report: %w", err)
	}
	return nil
}
