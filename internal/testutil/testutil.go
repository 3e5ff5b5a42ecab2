package testutil

import (
	"context"
	"time"

	"quotefetcher/internal/fetcher"
	"quotefetcher/internal/payload"
	"quotefetcher/internal/store"
)

// MockFetcher is a mock implementation of the fetcher.Fetcher interface
// for testing
type MockFetcher struct {
	FetchFunc func(ctx context.Context, symbol string) *fetcher.Result
}

// Fetch implements the fetcher.Fetcher interface
func (m *MockFetcher) Fetch(ctx context.Context, symbol string) *fetcher.Result {
	if m.FetchFunc != nil {
		return m.FetchFunc(ctx, symbol)
	}
	return &fetcher.Result{Symbol: symbol, Attempts: 1}
}

// NewMockFetcher creates a mock fetcher that succeeds for every symbol with
// the given price and a complete set of metadata fields.
func NewMockFetcher(price float64) *MockFetcher {
	return &MockFetcher{
		FetchFunc: func(ctx context.Context, symbol string) *fetcher.Result {
			return SuccessResult(symbol, price)
		},
	}
}

// NewFailingFetcher creates a mock fetcher that fails every symbol with the
// given error strings.
func NewFailingFetcher(errors ...string) *MockFetcher {
	return &MockFetcher{
		FetchFunc: func(ctx context.Context, symbol string) *fetcher.Result {
			return &fetcher.Result{Symbol: symbol, Attempts: 3, Errors: errors}
		},
	}
}

// SuccessResult builds a fetch result that satisfies the success criterion
// and carries enough metadata to pass the default quality gate.
func SuccessResult(symbol string, price float64) *fetcher.Result {
	volume := 1_000_000.0
	avgVolume := 900_000.0
	low52 := price * 0.7
	high52 := price * 1.3
	name := symbol + " Inc."
	return &fetcher.Result{
		Symbol:   symbol,
		Attempts: 1,
		Closes:   []float64{price * 0.99, price},
		Price:    &price,
		Meta: &fetcher.Meta{
			CompanyName:         &name,
			RegularMarketPrice:  &price,
			RegularMarketVolume: &volume,
			AverageVolume:       &avgVolume,
			FiftyTwoWeekLow:     &low52,
			FiftyTwoWeekHigh:    &high52,
		},
	}
}

// Record builds a normalized record passing the default quality gate, with
// last_updated stamped at now.
func Record(symbol string, now time.Time) payload.Record {
	price := 100.0
	volume := 1_000_000.0
	low52 := 70.0
	high52 := 130.0
	return payload.Record{
		Symbol:       symbol,
		CurrentPrice: &price,
		Volume:       &volume,
		WeekLow52:    &low52,
		WeekHigh52:   &high52,
		LastUpdated:  now.UTC().Format(time.RFC3339),
	}
}

// MockPersister is a mock implementation of the store.Persister interface
type MockPersister struct {
	PersistFunc func(ctx context.Context, records []payload.Record) store.Result
	Persisted   [][]payload.Record
}

// Persist implements the store.Persister interface
func (m *MockPersister) Persist(ctx context.Context, records []payload.Record) store.Result {
	m.Persisted = append(m.Persisted, records)
	if m.PersistFunc != nil {
		return m.PersistFunc(ctx, records)
	}
	priceRows := 0
	for _, r := range records {
		if r.CurrentPrice != nil {
			priceRows++
		}
	}
	return store.Result{Saved: len(records), PriceRecordsWritten: priceRows}
}

// FloatPtr returns a pointer to v.
func FloatPtr(v float64) *float64 {
	return &v
}
