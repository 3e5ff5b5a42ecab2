package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite"

	"quotefetcher/internal/payload"
)

const schema = `
CREATE TABLE IF NOT EXISTS quotes (
	symbol              TEXT PRIMARY KEY,
	company_name        TEXT,
	currency            TEXT,
	current_price       REAL,
	day_low             REAL,
	day_high            REAL,
	volume              REAL,
	average_volume      REAL,
	volume_ratio        REAL,
	market_cap          REAL,
	pe_ratio            REAL,
	dividend_yield      REAL,
	fifty_two_week_low  REAL,
	fifty_two_week_high REAL,
	change_percent      REAL,
	change_1d           REAL,
	change_1w           REAL,
	change_1mo          REAL,
	change_1y           REAL,
	last_updated        TEXT
);

CREATE TABLE IF NOT EXISTS price_history (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	symbol      TEXT NOT NULL,
	price       REAL NOT NULL,
	recorded_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_price_history_symbol ON price_history(symbol);
`

const upsertQuote = `
INSERT INTO quotes (
	symbol, company_name, currency, current_price, day_low, day_high,
	volume, average_volume, volume_ratio, market_cap, pe_ratio,
	dividend_yield, fifty_two_week_low, fifty_two_week_high,
	change_percent, change_1d, change_1w, change_1mo, change_1y, last_updated
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(symbol) DO UPDATE SET
	company_name        = excluded.company_name,
	currency            = excluded.currency,
	current_price       = excluded.current_price,
	day_low             = excluded.day_low,
	day_high            = excluded.day_high,
	volume              = excluded.volume,
	average_volume      = excluded.average_volume,
	volume_ratio        = excluded.volume_ratio,
	market_cap          = excluded.market_cap,
	pe_ratio            = excluded.pe_ratio,
	dividend_yield      = excluded.dividend_yield,
	fifty_two_week_low  = excluded.fifty_two_week_low,
	fifty_two_week_high = excluded.fifty_two_week_high,
	change_percent      = excluded.change_percent,
	change_1d           = excluded.change_1d,
	change_1w           = excluded.change_1w,
	change_1mo          = excluded.change_1mo,
	change_1y           = excluded.change_1y,
	last_updated        = excluded.last_updated
`

// SQLiteStore persists quote batches into a local sqlite database.
type SQLiteStore struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and ensures the schema
// exists.
func Open(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		slog.Warn("failed to set WAL mode", "error", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL;"); err != nil {
		slog.Warn("failed to set synchronous mode", "error", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Persist implements Persister. Records are upserted one at a time so a
// single bad row never sinks the batch.
func (s *SQLiteStore) Persist(ctx context.Context, records []payload.Record) Result {
	var result Result
	for _, rec := range records {
		if err := s.upsert(ctx, rec); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", rec.Symbol, err))
			continue
		}
		result.Saved++

		if rec.CurrentPrice != nil {
			if err := s.appendPrice(ctx, rec); err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("%s: price history: %v", rec.Symbol, err))
				continue
			}
			result.PriceRecordsWritten++
		}
	}
	return result
}

func (s *SQLiteStore) upsert(ctx context.Context, rec payload.Record) error {
	_, err := s.db.ExecContext(ctx, upsertQuote,
		rec.Symbol,
		nullString(rec.CompanyName),
		nullString(rec.Currency),
		nullFloat(rec.CurrentPrice),
		nullFloat(rec.DayLow),
		nullFloat(rec.DayHigh),
		nullFloat(rec.Volume),
		nullFloat(rec.AverageVolume),
		nullFloat(rec.VolumeRatio),
		nullFloat(rec.MarketCap),
		nullFloat(rec.PERatio),
		nullFloat(rec.DividendYield),
		nullFloat(rec.WeekLow52),
		nullFloat(rec.WeekHigh52),
		nullFloat(rec.ChangePercent),
		nullFloat(rec.Change1Day),
		nullFloat(rec.Change1Week),
		nullFloat(rec.Change1Month),
		nullFloat(rec.Change1Year),
		rec.LastUpdated,
	)
	return err
}

func (s *SQLiteStore) appendPrice(ctx context.Context, rec payload.Record) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO price_history (symbol, price, recorded_at) VALUES (?, ?, ?)",
		rec.Symbol, *rec.CurrentPrice, rec.LastUpdated,
	)
	return err
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
