package executor

import (
	"context"
	"reflect"
	"testing"
	"time"

	"quotefetcher/internal/fetcher"
	"quotefetcher/internal/testutil"
)

func TestRun_AllSucceed(t *testing.T) {
	symbols := []string{"AAPL", "MSFT", "GOOGL"}
	result := Run(context.Background(), symbols, testutil.NewMockFetcher(100), Config{})

	if result.Aborted {
		t.Error("Aborted = true, want false")
	}
	if len(result.Successes) != 3 {
		t.Errorf("Successes = %d, want 3", len(result.Successes))
	}
	if len(result.Failures) != 0 {
		t.Errorf("Failures = %d, want 0", len(result.Failures))
	}
}

func TestRun_NoSymbols(t *testing.T) {
	result := Run(context.Background(), nil, testutil.NewMockFetcher(100), Config{})
	if result.Aborted || len(result.Successes) != 0 || len(result.Failures) != 0 {
		t.Errorf("unexpected result for empty symbol set: %+v", result)
	}
}

func TestRun_FailureClassification(t *testing.T) {
	// A result with errors, no data and no price: the no_data marker is
	// appended, and duplicate error strings collapse.
	mock := &testutil.MockFetcher{
		FetchFunc: func(ctx context.Context, symbol string) *fetcher.Result {
			return &fetcher.Result{
				Symbol:   symbol,
				Attempts: 3,
				Errors:   []string{"network error: connection refused", "no_data", "network error: connection refused"},
			}
		},
	}

	result := Run(context.Background(), []string{"AAPL"}, mock, Config{})
	if len(result.Failures) != 1 {
		t.Fatalf("Failures = %d, want 1", len(result.Failures))
	}
	f := result.Failures[0]
	if f.Symbol != "AAPL" || f.Attempts != 3 {
		t.Errorf("Failure = %+v, want symbol AAPL attempts 3", f)
	}
	want := []string{"network error: connection refused", "no_data"}
	if !reflect.DeepEqual(f.Errors, want) {
		t.Errorf("Errors = %v, want %v", f.Errors, want)
	}
}

func TestRun_PartialDataWithoutPriceIsFailure(t *testing.T) {
	// Data but no derivable price: still a failure, but no_data is not
	// appended because the fetch did gather something.
	volume := 1000.0
	mock := &testutil.MockFetcher{
		FetchFunc: func(ctx context.Context, symbol string) *fetcher.Result {
			return &fetcher.Result{
				Symbol:   symbol,
				Attempts: 2,
				Closes:   []float64{},
				Meta: &fetcher.Meta{
					RegularMarketVolume: &volume,
					AverageVolume:       &volume,
					MarketCap:           &volume,
				},
				Errors: []string{"timeout error: request timed out"},
			}
		},
	}

	result := Run(context.Background(), []string{"AAPL"}, mock, Config{})
	if len(result.Failures) != 1 {
		t.Fatalf("Failures = %d, want 1", len(result.Failures))
	}
	for _, e := range result.Failures[0].Errors {
		if e == "no_data" {
			t.Error("no_data marker appended despite partial data present")
		}
	}
}

func TestRun_RuntimeBudgetAborts(t *testing.T) {
	// Tasks take 50ms each with 2 workers; a 120ms budget cannot cover all
	// 20 of them.
	slow := &testutil.MockFetcher{
		FetchFunc: func(ctx context.Context, symbol string) *fetcher.Result {
			select {
			case <-ctx.Done():
			case <-time.After(50 * time.Millisecond):
			}
			return testutil.SuccessResult(symbol, 100)
		},
	}

	symbols := make([]string, 20)
	for i := range symbols {
		symbols[i] = "S" + string(rune('A'+i))
	}

	budget := 120 * time.Millisecond
	start := time.Now()
	result := Run(context.Background(), symbols, slow, Config{MaxWorkers: 2, MaxRuntime: budget})
	elapsed := time.Since(start)

	if !result.Aborted {
		t.Fatal("Aborted = false, want true")
	}
	if got := len(result.Successes) + len(result.Failures); got > len(symbols) {
		t.Errorf("successes+failures = %d, exceeds symbol count %d", got, len(symbols))
	}
	// Bounded grace period: the run must stop near the deadline, not drain
	// the queue.
	if elapsed > budget+200*time.Millisecond {
		t.Errorf("Run() took %v, want close to the %v budget", elapsed, budget)
	}
}

func TestRun_ContextCancelAborts(t *testing.T) {
	blocked := &testutil.MockFetcher{
		FetchFunc: func(ctx context.Context, symbol string) *fetcher.Result {
			<-ctx.Done()
			return &fetcher.Result{Symbol: symbol, Attempts: 1, Errors: []string{ctx.Err().Error()}}
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	result := Run(ctx, []string{"AAPL", "MSFT"}, blocked, Config{MaxWorkers: 2})
	if !result.Aborted {
		t.Error("Aborted = false after context cancellation")
	}
}

func TestRun_ProgressReporting(t *testing.T) {
	var reports []Progress
	cfg := Config{
		OnProgress: func(p Progress) { reports = append(reports, p) },
	}

	symbols := make([]string, 60)
	for i := range symbols {
		symbols[i] = "SYM" + string(rune('A'+i%26)) + string(rune('A'+i/26))
	}
	symbols = dedupe(symbols)

	Run(context.Background(), symbols, testutil.NewMockFetcher(100), cfg)

	if len(reports) < 2 {
		t.Fatalf("got %d progress reports, want at least 2 (cadence + final)", len(reports))
	}
	first := reports[0]
	if first.Processed != 50 {
		t.Errorf("first report at %d completions, want 50", first.Processed)
	}
	last := reports[len(reports)-1]
	if last.Processed != len(symbols) || last.Total != len(symbols) {
		t.Errorf("final report = %+v, want processed=total=%d", last, len(symbols))
	}
	if last.Successes+last.Failures != last.Processed {
		t.Errorf("final report counts inconsistent: %+v", last)
	}
}

func dedupe(in []string) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
