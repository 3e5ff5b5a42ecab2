package fetcher

import "context"

// Fetcher is the core interface the executor depends on. The production
// implementation talks to the quote provider; tests substitute stubs.
type Fetcher interface {
	// Fetch retrieves one symbol's quote data. It does not return an error:
	// failures are captured inside the Result so callers can inspect
	// partial data and the per-attempt error history.
	Fetch(ctx context.Context, symbol string) *Result
}
