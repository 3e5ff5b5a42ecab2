package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"quotefetcher/internal/config"
	"quotefetcher/internal/pipeline"
	"quotefetcher/internal/proxy"
	"quotefetcher/internal/ratelimit"
	"quotefetcher/internal/store"
	"quotefetcher/internal/tickers"
	"quotefetcher/internal/yahoo"
)

func main() {
	once := pflag.Bool("once", false, "run a single pipeline pass and exit")
	pflag.Duration("interval", 15*time.Minute, "time between scheduled runs")
	pflag.Int("workers", 24, "maximum concurrent fetch tasks")
	pflag.Int("max-tickers", 0, "truncate the ticker universe (0 = unlimited)")
	pflag.Duration("max-runtime", 180*time.Second, "wall-clock budget for the fetch phase")
	pflag.Bool("dry-run", false, "run the pipeline without persisting anything")
	pflag.Bool("use-proxies", true, "route requests through the proxy pool")
	pflag.Bool("save-db", true, "persist quality-passed records to the database")
	emitJSON := pflag.Bool("json", false, "print the run summary as JSON to stdout")
	verbose := pflag.Bool("verbose", false, "enable debug logging")
	configPath := pflag.String("config", "", "path to an explicit config file")
	pflag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	v := config.NewViper()
	if *configPath != "" {
		v.SetConfigFile(*configPath)
		if err := v.ReadInConfig(); err != nil {
			slog.Error("failed to read config file", "path", *configPath, "error", err)
			os.Exit(1)
		}
	}
	v.BindPFlag("schedule_interval", pflag.Lookup("interval"))
	v.BindPFlag("max_workers", pflag.Lookup("workers"))
	v.BindPFlag("max_tickers", pflag.Lookup("max-tickers"))
	v.BindPFlag("max_runtime", pflag.Lookup("max-runtime"))
	v.BindPFlag("dry_run", pflag.Lookup("dry-run"))
	v.BindPFlag("use_proxies", pflag.Lookup("use-proxies"))
	v.BindPFlag("save_to_db", pflag.Lookup("save-db"))

	cfg, err := config.FromViper(v)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Create context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		slog.Info("received interrupt signal, shutting down")
		cancel()
	}()

	p, cleanup, err := buildPipeline(cfg)
	if err != nil {
		slog.Error("failed to build pipeline", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	if *once {
		if err := runOnce(ctx, p, *emitJSON); err != nil {
			os.Exit(1)
		}
		return
	}

	runScheduled(ctx, p, cfg.ScheduleInterval, *emitJSON)
}

// buildPipeline wires the collaborators from configuration.
func buildPipeline(cfg *config.Config) (*pipeline.Pipeline, func(), error) {
	pool := proxy.New(nil)
	if cfg.UseProxies {
		loaded, err := proxy.LoadFile(cfg.ProxyFile)
		if err != nil {
			return nil, nil, err
		}
		pool = loaded
	}
	if cfg.ProxyCooldown > 0 {
		pool.SetCooldown(cfg.ProxyCooldown)
	}
	slog.Info("proxy pool ready", "proxies", pool.Size(), "enabled", pool.Enabled())

	limiter := ratelimit.New(cfg.RequestsPerSecond, cfg.MaxWorkers)
	client := yahoo.NewClient(cfg.QuoteBaseURL, pool, limiter, cfg.RequestTimeout, cfg.MaxAttempts)
	source := tickers.NewFileSource(cfg.TickerFile)

	cleanup := func() {}
	var persister store.Persister
	if cfg.SaveToDB && !cfg.DryRun {
		db, err := store.Open(cfg.DatabasePath)
		if err != nil {
			return nil, nil, err
		}
		persister = db
		cleanup = func() { db.Close() }
	}

	return pipeline.New(cfg, source, client, persister), cleanup, nil
}

// runOnce executes a single pipeline pass.
func runOnce(ctx context.Context, p *pipeline.Pipeline, emitJSON bool) error {
	summary, err := p.Run(ctx)
	if err != nil {
		slog.Error("pipeline run failed", "error", err)
		return err
	}
	if emitJSON {
		printSummary(summary)
	}
	return nil
}

// runScheduled runs the pipeline immediately and then on a fixed interval
// until the context is canceled.
func runScheduled(ctx context.Context, p *pipeline.Pipeline, interval time.Duration, emitJSON bool) {
	slog.Info("starting scheduled mode", "interval", interval)

	if err := runOnce(ctx, p, emitJSON); err != nil {
		slog.Warn("initial run failed, staying scheduled")
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("scheduler stopped")
			return
		case <-ticker.C:
			if err := runOnce(ctx, p, emitJSON); err != nil {
				slog.Warn("scheduled run failed, will retry next interval")
			}
		}
	}
}

func printSummary(summary *pipeline.Summary) {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		slog.Error("failed to marshal summary", "error", err)
		return
	}
	fmt.Println(string(data))
}
