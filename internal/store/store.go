package store

import (
	"context"

	"quotefetcher/internal/payload"
)

// Result reports the outcome of one persistence batch.
type Result struct {
	Saved               int      `json:"saved"`
	PriceRecordsWritten int      `json:"price_records_written"`
	Errors              []string `json:"errors,omitempty"`
}

// Persister is the durable-storage collaborator. Each record is upserted
// keyed by symbol; a record carrying a price also appends a price-history
// row. Per-record failures are collected, never batch-aborting.
type Persister interface {
	Persist(ctx context.Context, records []payload.Record) Result
}
