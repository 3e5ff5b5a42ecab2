package quality

import (
	"fmt"
	"sync"
	"time"

	"quotefetcher/internal/payload"
)

const (
	// DefaultMaxAge is how old a record's last_updated may be before it is
	// flagged stale.
	DefaultMaxAge = 300 * time.Second

	// maxSummarizedReasons caps how many reasons a summarized issue keeps.
	maxSummarizedReasons = 5
)

// DefaultRequiredFields are the fields a record must carry to be
// persistence-eligible.
var DefaultRequiredFields = []string{
	"current_price",
	"volume",
	"fifty_two_week_low",
	"fifty_two_week_high",
}

// Issue records why one record failed the gate. Reasons are ordered and a
// record can carry several at once.
type Issue struct {
	Symbol  string   `json:"symbol"`
	Reasons []string `json:"reasons"`
}

// Summarized returns the issue with its reason list capped for reporting.
func (i Issue) Summarized() Issue {
	if len(i.Reasons) <= maxSummarizedReasons {
		return i
	}
	return Issue{Symbol: i.Symbol, Reasons: i.Reasons[:maxSummarizedReasons]}
}

// Stats accumulates pass/fail counts across one run.
type Stats struct {
	Total  int `json:"total"`
	Passed int `json:"passed"`
	Failed int `json:"failed"`
}

// SuccessRatio returns passed/total, 1.0 for an empty run.
func (s Stats) SuccessRatio() float64 {
	if s.Total == 0 {
		return 1.0
	}
	return float64(s.Passed) / float64(s.Total)
}

// Gate validates normalized records before persistence. Evaluation is
// deterministic for a fixed evaluation time.
type Gate struct {
	requiredFields []string
	maxAge         time.Duration
	now            func() time.Time

	mu    sync.Mutex
	stats Stats
}

// NewGate creates a gate with the given required-field set; nil means the
// defaults.
func NewGate(requiredFields []string, maxAge time.Duration) *Gate {
	if requiredFields == nil {
		requiredFields = DefaultRequiredFields
	}
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return &Gate{
		requiredFields: requiredFields,
		maxAge:         maxAge,
		now:            time.Now,
	}
}

// SetClock overrides the gate's time source for tests.
func (g *Gate) SetClock(now func() time.Time) {
	g.now = now
}

// Evaluate checks one record against every gate rule. All violations are
// reported together; a record with zero reasons passes.
func (g *Gate) Evaluate(rec payload.Record) (bool, Issue) {
	var reasons []string

	for _, field := range g.requiredFields {
		if !fieldPresent(rec, field) {
			reasons = append(reasons, "missing_required_field:"+field)
		}
	}

	if rec.LastUpdated == "" {
		reasons = append(reasons, "missing_timestamp")
	} else if ts, err := time.Parse(time.RFC3339, rec.LastUpdated); err != nil {
		reasons = append(reasons, "missing_timestamp")
	} else if g.now().Sub(ts) > g.maxAge {
		reasons = append(reasons, "stale_timestamp")
	}

	if rec.Volume == nil || *rec.Volume == 0 {
		reasons = append(reasons, "invalid_volume")
	}

	g.mu.Lock()
	g.stats.Total++
	if len(reasons) == 0 {
		g.stats.Passed++
	} else {
		g.stats.Failed++
	}
	g.mu.Unlock()

	if len(reasons) == 0 {
		return true, Issue{}
	}
	return false, Issue{Symbol: rec.Symbol, Reasons: reasons}
}

// Stats returns a copy of the accumulated counters.
func (g *Gate) Stats() Stats {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.stats
}

// fieldPresent maps a required-field name to presence on the record.
func fieldPresent(rec payload.Record, field string) bool {
	switch field {
	case "current_price":
		return rec.CurrentPrice != nil
	case "volume":
		return rec.Volume != nil
	case "fifty_two_week_low":
		return rec.WeekLow52 != nil
	case "fifty_two_week_high":
		return rec.WeekHigh52 != nil
	case "company_name":
		return rec.CompanyName != ""
	case "average_volume":
		return rec.AverageVolume != nil
	case "market_cap":
		return rec.MarketCap != nil
	default:
		// Unknown required field names fail closed.
		return false
	}
}

// String renders an issue compactly for logs.
func (i Issue) String() string {
	return fmt.Sprintf("%s: %v", i.Symbol, i.Reasons)
}
