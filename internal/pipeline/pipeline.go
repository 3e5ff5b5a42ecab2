package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"quotefetcher/internal/config"
	"quotefetcher/internal/executor"
	"quotefetcher/internal/fetcher"
	"quotefetcher/internal/payload"
	"quotefetcher/internal/quality"
	"quotefetcher/internal/store"
	"quotefetcher/internal/tickers"
)

// Pipeline orchestrates one run: load tickers, fetch and build, filter
// through the quality gate, optionally persist, then summarize. It holds
// no per-run state; Run may be called repeatedly by the scheduler.
type Pipeline struct {
	cfg       *config.Config
	source    tickers.Source
	fetch     fetcher.Fetcher
	persister store.Persister
	now       func() time.Time
}

// New assembles a pipeline. persister may be nil when persistence is
// disabled entirely.
func New(cfg *config.Config, source tickers.Source, fetch fetcher.Fetcher, persister store.Persister) *Pipeline {
	return &Pipeline{
		cfg:       cfg,
		source:    source,
		fetch:     fetch,
		persister: persister,
		now:       time.Now,
	}
}

// SetClock overrides the pipeline's time source for tests.
func (p *Pipeline) SetClock(now func() time.Time) {
	p.now = now
}

// Run executes one full pipeline pass. It always returns a summary: a
// failure to load tickers yields an empty-but-valid one, never an error
// for the run itself. The returned error is reserved for infrastructure
// failures that prevent the run from starting at all.
func (p *Pipeline) Run(ctx context.Context) (*Summary, error) {
	start := p.now()
	summary := &Summary{
		Status:    StatusCompleted,
		Timestamp: start.UTC().Format(time.RFC3339),
	}

	// Init
	if p.cfg.OutputDir != "" {
		if err := os.MkdirAll(p.cfg.OutputDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	// LoadTickers
	symbols, err := p.source.Symbols()
	if err != nil {
		slog.Error("failed to load tickers", "error", err)
		symbols = nil
		summary.Status = StatusIncomplete
	}
	summary.TickersLoaded = len(symbols)
	if p.cfg.MaxTickers > 0 && len(symbols) > p.cfg.MaxTickers {
		symbols = symbols[:p.cfg.MaxTickers]
	}
	summary.TickersProcessed = len(symbols)

	if len(symbols) == 0 {
		slog.Warn("no tickers to process, producing empty summary")
		summary.ElapsedSeconds = p.now().Sub(start).Seconds()
		summary.QualitySuccessRatio = 1.0
		summary.MeetsQualityThreshold = true
		p.writeSummary(summary)
		return summary, nil
	}

	// FetchAndBuild
	result := executor.Run(ctx, symbols, p.fetch, executor.Config{
		MaxWorkers:  p.cfg.MaxWorkers,
		MaxRuntime:  p.cfg.MaxRuntime,
		TaskTimeout: p.cfg.PerSymbolTimeout,
		OnProgress: func(pr executor.Progress) {
			slog.Info("fetch progress",
				"processed", pr.Processed,
				"total", pr.Total,
				"successes", pr.Successes,
				"failures", pr.Failures)
		},
	})
	summary.SuccessCount = len(result.Successes)
	summary.FailureCount = len(result.Failures)
	summary.Aborted = result.Aborted

	// QualityFilter
	gate := quality.NewGate(nil, p.cfg.StaleAfter)
	var passed []payload.Record
	var issues []quality.Issue
	for _, rec := range result.Successes {
		ok, issue := gate.Evaluate(rec)
		if ok {
			passed = append(passed, rec)
		} else {
			issues = append(issues, issue)
		}
	}
	stats := gate.Stats()
	summary.QualityPassed = stats.Passed
	summary.QualityFailed = stats.Failed
	summary.QualitySuccessRatio = stats.SuccessRatio()
	// Monitoring signal only: a run below threshold still persists.
	summary.MeetsQualityThreshold = stats.SuccessRatio() >= p.cfg.MinSuccessRatio

	// Status derivation
	switch {
	case result.Aborted:
		summary.Status = StatusAborted
	case summary.FailureCount == 0 && summary.QualityFailed == 0 && summary.Status == StatusCompleted:
		summary.Status = StatusCompleted
	default:
		summary.Status = StatusIncomplete
	}

	// Persist
	if p.cfg.SaveToDB && !p.cfg.DryRun && p.persister != nil && len(passed) > 0 {
		persistResult := p.persister.Persist(ctx, passed)
		summary.PersistenceSaved = persistResult.Saved
		summary.PersistencePriceRows = persistResult.PriceRecordsWritten
		summary.PersistenceErrors = capStrings(persistResult.Errors, sampleCap)
		if len(persistResult.Errors) > 0 {
			slog.Warn("persistence reported errors",
				"saved", persistResult.Saved,
				"errors", len(persistResult.Errors))
		}
	} else {
		slog.Info("skipping persistence",
			"save_to_db", p.cfg.SaveToDB,
			"dry_run", p.cfg.DryRun,
			"quality_passed", len(passed))
	}

	// Summarize
	for i, rec := range passed {
		if i >= sampleCap {
			break
		}
		summary.SampleSuccesses = append(summary.SampleSuccesses, rec.Symbol)
	}
	for i, f := range result.Failures {
		if i >= sampleCap {
			break
		}
		summary.SampleFailures = append(summary.SampleFailures, f)
	}
	for i, issue := range issues {
		if i >= sampleCap {
			break
		}
		summary.SampleQualityIssues = append(summary.SampleQualityIssues, issue.Summarized())
	}
	summary.TopFailureReasons = topFailureReasons(result.Failures, sampleCap)
	summary.ElapsedSeconds = p.now().Sub(start).Seconds()

	slog.Info("run finished",
		"status", summary.Status,
		"tickers", summary.TickersProcessed,
		"successes", summary.SuccessCount,
		"failures", summary.FailureCount,
		"quality_passed", summary.QualityPassed,
		"saved", summary.PersistenceSaved,
		"elapsed_s", summary.ElapsedSeconds)

	p.writeSummary(summary)
	return summary, nil
}

// writeSummary drops the run summary as JSON into the output directory.
// Failure to write is logged, never fatal.
func (p *Pipeline) writeSummary(summary *Summary) {
	if p.cfg.OutputDir == "" {
		return
	}
	name := fmt.Sprintf("summary_%s.json", p.now().UTC().Format("20060102T150405Z"))
	path := filepath.Join(p.cfg.OutputDir, name)

	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		slog.Error("failed to marshal summary", "error", err)
		return
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		slog.Error("failed to write summary file", "path", path, "error", err)
	}
}
