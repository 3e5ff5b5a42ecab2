package executor

import (
	"context"
	"log/slog"
	"time"

	"quotefetcher/internal/fetcher"
	"quotefetcher/internal/payload"
)

const (
	// DefaultMaxWorkers bounds concurrent fetch tasks.
	DefaultMaxWorkers = 24

	// DefaultMaxRuntime is the wall-clock budget for a whole fetch phase.
	DefaultMaxRuntime = 180 * time.Second

	// progressEvery is the completion cadence for progress reports.
	progressEvery = 50
)

// Config tunes one executor run.
type Config struct {
	MaxWorkers int
	MaxRuntime time.Duration

	// TaskTimeout caps a single symbol's fetch, attempts included. Zero
	// means no per-task cap beyond the run budget.
	TaskTimeout time.Duration

	// OnProgress, if set, is invoked from the collection loop at a fixed
	// cadence. It must be cheap; it runs on the hot path's goroutine.
	OnProgress func(Progress)
}

// Progress is a point-in-time completion report.
type Progress struct {
	Processed int
	Total     int
	Successes int
	Failures  int
}

// Failure describes one symbol that produced no usable price.
type Failure struct {
	Symbol   string   `json:"symbol"`
	Attempts int      `json:"attempts"`
	Errors   []string `json:"errors"`
}

// Result aggregates one run. Successes and Failures together never exceed
// the input symbol count; when Aborted is true, results still in flight at
// the deadline were discarded.
type Result struct {
	Successes []payload.Record
	Failures  []Failure
	Elapsed   time.Duration
	Aborted   bool
}

type taskResult struct {
	symbol  string
	ok      bool
	record  payload.Record
	failure Failure
}

// Run fans out one fetch-and-build task per symbol under a bounded worker
// budget and collects completions until done or the wall-clock budget is
// exhausted. The budget stops collection only: in-flight requests are given
// a cooperative cancel signal but are never waited on past the deadline.
func Run(ctx context.Context, symbols []string, fetch fetcher.Fetcher, cfg Config) Result {
	start := time.Now()
	total := len(symbols)

	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = DefaultMaxWorkers
	}
	if cfg.MaxRuntime <= 0 {
		cfg.MaxRuntime = DefaultMaxRuntime
	}

	if total == 0 {
		return Result{Elapsed: time.Since(start)}
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Buffered to the task count so abandoned workers can finish and exit
	// without a reader.
	results := make(chan taskResult, total)
	sem := make(chan struct{}, cfg.MaxWorkers)

	for _, symbol := range symbols {
		go func(symbol string) {
			sem <- struct{}{}
			defer func() { <-sem }()

			// A task that never started before the abort has nothing to
			// report; the collector is no longer listening anyway.
			if runCtx.Err() != nil {
				return
			}
			results <- runTask(runCtx, symbol, fetch, cfg.TaskTimeout)
		}(symbol)
	}

	var out Result
	timer := time.NewTimer(cfg.MaxRuntime)
	defer timer.Stop()

	processed := 0
collect:
	for processed < total {
		select {
		case r := <-results:
			processed++
			if r.ok {
				out.Successes = append(out.Successes, r.record)
			} else {
				out.Failures = append(out.Failures, r.failure)
			}
			if cfg.OnProgress != nil && (processed%progressEvery == 0 || processed == total) {
				cfg.OnProgress(Progress{
					Processed: processed,
					Total:     total,
					Successes: len(out.Successes),
					Failures:  len(out.Failures),
				})
			}
			if time.Since(start) > cfg.MaxRuntime {
				out.Aborted = true
				break collect
			}
		case <-timer.C:
			out.Aborted = true
			break collect
		case <-ctx.Done():
			out.Aborted = true
			break collect
		}
	}

	if out.Aborted {
		slog.Warn("executor aborted at runtime budget",
			"processed", processed,
			"total", total,
			"budget", cfg.MaxRuntime)
	}

	out.Elapsed = time.Since(start)
	return out
}

// runTask executes one fetch-and-build task.
func runTask(ctx context.Context, symbol string, fetch fetcher.Fetcher, timeout time.Duration) taskResult {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	res := fetch.Fetch(ctx, symbol)
	if res.OK() {
		return taskResult{
			symbol: symbol,
			ok:     true,
			record: payload.Build(symbol, res, time.Now()),
		}
	}
	return taskResult{
		symbol: symbol,
		failure: Failure{
			Symbol:   symbol,
			Attempts: res.Attempts,
			Errors:   classifyErrors(res),
		},
	}
}

// classifyErrors merges the fetch result's error history with the explicit
// no_data classification, deduplicated in order.
func classifyErrors(res *fetcher.Result) []string {
	msgs := append([]string{}, res.Errors...)
	if !res.HasData() {
		msgs = append(msgs, string(fetcher.ErrorTypeNoData))
	}
	seen := make(map[string]struct{}, len(msgs))
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	return out
}
