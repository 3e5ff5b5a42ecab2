package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"quotefetcher/internal/config"
	"quotefetcher/internal/pipeline"
)

// newQuoteServer serves minimal but valid quote and chart payloads for any
// symbol.
func newQuoteServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasPrefix(r.URL.Path, "/v7/finance/quote"):
			symbol := r.URL.Query().Get("symbols")
			w.Write([]byte(`{
				"quoteResponse": {
					"result": [{
						"symbol": "` + symbol + `",
						"longName": "` + symbol + ` Inc.",
						"currency": "USD",
						"regularMarketPrice": 150.0,
						"regularMarketVolume": 1000000,
						"averageDailyVolume3Month": 900000,
						"fiftyTwoWeekLow": 100.0,
						"fiftyTwoWeekHigh": 200.0
					}],
					"error": null
				}
			}`))
		case strings.HasPrefix(r.URL.Path, "/v8/finance/chart/"):
			w.Write([]byte(`{
				"chart": {
					"result": [{
						"meta": {"regularMarketPrice": 150.0},
						"timestamp": [1700000000, 1700086400],
						"indicators": {"quote": [{"close": [148.5, 150.0]}]}
					}],
					"error": null
				}
			}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func testIntegrationConfig(t *testing.T, baseURL string, symbols []string) *config.Config {
	t.Helper()
	dir := t.TempDir()

	tickerFile := filepath.Join(dir, "tickers.txt")
	if err := os.WriteFile(tickerFile, []byte(strings.Join(symbols, "\n")), 0o644); err != nil {
		t.Fatalf("failed to write ticker file: %v", err)
	}

	return &config.Config{
		MaxWorkers:        4,
		MaxAttempts:       3,
		RequestTimeout:    2 * time.Second,
		PerSymbolTimeout:  10 * time.Second,
		MaxRuntime:        30 * time.Second,
		ScheduleInterval:  time.Minute,
		MinSuccessRatio:   0.97,
		StaleAfter:        300 * time.Second,
		QuoteBaseURL:      baseURL,
		RequestsPerSecond: 0, // unlimited in tests
		UseProxies:        false,
		TickerFile:        tickerFile,
		SaveToDB:          true,
		DatabasePath:      filepath.Join(dir, "quotes.db"),
		OutputDir:         filepath.Join(dir, "output"),
	}
}

func TestIntegration_FullRun(t *testing.T) {
	server := newQuoteServer(t)
	defer server.Close()

	cfg := testIntegrationConfig(t, server.URL, []string{"AAPL", "MSFT", "GOOGL"})

	p, cleanup, err := buildPipeline(cfg)
	if err != nil {
		t.Fatalf("buildPipeline() failed: %v", err)
	}
	defer cleanup()

	summary, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	if summary.Status != pipeline.StatusCompleted {
		t.Errorf("Status = %q, want completed (failures: %+v)", summary.Status, summary.SampleFailures)
	}
	if summary.SuccessCount != 3 {
		t.Errorf("SuccessCount = %d, want 3", summary.SuccessCount)
	}
	if summary.QualityPassed != 3 {
		t.Errorf("QualityPassed = %d, want 3", summary.QualityPassed)
	}
	if summary.PersistenceSaved != 3 {
		t.Errorf("PersistenceSaved = %d, want 3", summary.PersistenceSaved)
	}
	if summary.PersistencePriceRows != 3 {
		t.Errorf("PersistencePriceRows = %d, want 3", summary.PersistencePriceRows)
	}

	// The run drops a summary JSON into the output directory.
	entries, err := os.ReadDir(cfg.OutputDir)
	if err != nil {
		t.Fatalf("failed to read output dir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("output dir holds %d files, want 1 summary", len(entries))
	}
}

func TestIntegration_UpstreamDown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	cfg := testIntegrationConfig(t, server.URL, []string{"AAPL", "MSFT"})

	p, cleanup, err := buildPipeline(cfg)
	if err != nil {
		t.Fatalf("buildPipeline() failed: %v", err)
	}
	defer cleanup()

	summary, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() must not fail on upstream errors: %v", err)
	}

	if summary.Status != pipeline.StatusIncomplete {
		t.Errorf("Status = %q, want incomplete", summary.Status)
	}
	if summary.FailureCount != 2 {
		t.Errorf("FailureCount = %d, want 2", summary.FailureCount)
	}
	if summary.PersistenceSaved != 0 {
		t.Errorf("PersistenceSaved = %d, want 0", summary.PersistenceSaved)
	}
	if len(summary.TopFailureReasons) == 0 {
		t.Error("TopFailureReasons empty, want server errors counted")
	}
}
