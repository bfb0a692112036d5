// Package batch executes many requests concurrently on one shared client.
package batch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/0x6d61/hopper/internal/client"
)

// Executor runs a single request. *client.Client satisfies it.
type Executor interface {
	Execute(ctx context.Context, req *client.Request) (*client.Response, error)
}

// Options tunes Run.
type Options struct {
	// Workers is the number of concurrent requests. Values below 1 mean 1.
	Workers int
	// Logger receives per-job failures. Nil uses slog.Default().
	Logger *slog.Logger
}

// Result is the outcome of one request. Response, when set, has already
// been read into Body and closed.
type Result struct {
	Index    int
	Request  *client.Request
	Response *client.Response
	Body     []byte
	Err      error
	Duration time.Duration
}

type job struct {
	index int
	req   *client.Request
}

// Run executes reqs with a bounded number of workers and returns one
// Result per request in input order. A panic in one job is recovered and
// reported as that job's error. Jobs not started before ctx is done get
// ctx.Err().
func Run(ctx context.Context, exec Executor, reqs []*client.Request, opts Options) []Result {
	workers := opts.Workers
	if workers <= 0 {
		workers = 1
	}
	if workers > len(reqs) && len(reqs) > 0 {
		workers = len(reqs)
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	results := make([]Result, len(reqs))
	jobs := make(chan job, workers*2)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				results[j.index] = runOne(ctx, exec, j, log)
			}
		}()
	}

	for i, req := range reqs {
		jobs <- job{index: i, req: req}
	}
	close(jobs)
	wg.Wait()

	return results
}

func runOne(ctx context.Context, exec Executor, j job, log *slog.Logger) (res Result) {
	res = Result{Index: j.index, Request: j.req}

	defer func() {
		if r := recover(); r != nil {
			log.Error("worker recovered from panic", "index", j.index, "panic", fmt.Sprintf("%v", r))
			res.Err = fmt.Errorf("batch: job %d panicked: %v", j.index, r)
		}
	}()

	if err := ctx.Err(); err != nil {
		res.Err = err
		return res
	}

	start := time.Now()
	resp, err := exec.Execute(ctx, j.req)
	if err != nil {
		res.Duration = time.Since(start)
		res.Err = err
		log.Debug("request failed", "index", j.index, "error", err)
		return res
	}

	res.Response = resp
	res.Body, err = io.ReadAll(resp)
	resp.Close()
	res.Duration = time.Since(start)
	if err != nil {
		res.Err = fmt.Errorf("batch: read body: %w", err)
	}
	return res
}
