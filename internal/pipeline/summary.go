package pipeline

import (
	"sort"

	"quotefetcher/internal/executor"
	"quotefetcher/internal/quality"
)

// Run statuses. A run is never "failed": partial outcomes are reported as
// incomplete and budget exhaustion as aborted.
const (
	StatusCompleted  = "completed"
	StatusIncomplete = "incomplete"
	StatusAborted    = "aborted"
)

// sampleCap limits the sample lists carried by a summary.
const sampleCap = 5

// ReasonCount is one entry of the failure-reason histogram.
type ReasonCount struct {
	Reason string `json:"reason"`
	Count  int    `json:"count"`
}

// Summary is the immutable result of one pipeline run.
type Summary struct {
	Status                string             `json:"status"`
	Timestamp             string             `json:"timestamp"`
	TickersLoaded         int                `json:"tickers_loaded"`
	TickersProcessed      int                `json:"tickers_processed"`
	SuccessCount          int                `json:"success_count"`
	FailureCount          int                `json:"failure_count"`
	QualityPassed         int                `json:"quality_passed"`
	QualityFailed         int                `json:"quality_failed"`
	QualitySuccessRatio   float64            `json:"quality_success_ratio"`
	MeetsQualityThreshold bool               `json:"meets_quality_threshold"`
	PersistenceSaved      int                `json:"persistence_saved"`
	PersistencePriceRows  int                `json:"persistence_price_rows"`
	PersistenceErrors     []string           `json:"persistence_errors,omitempty"`
	SampleSuccesses       []string           `json:"sample_successes,omitempty"`
	SampleFailures        []executor.Failure `json:"sample_failures,omitempty"`
	SampleQualityIssues   []quality.Issue    `json:"sample_quality_issues,omitempty"`
	TopFailureReasons     []ReasonCount      `json:"top_failure_reasons,omitempty"`
	ElapsedSeconds        float64            `json:"elapsed_seconds"`
	Aborted               bool               `json:"aborted"`
}

// topFailureReasons counts each distinct error string across the executor
// failures and returns the top entries, largest first. Ties break
// alphabetically so the output is stable.
func topFailureReasons(failures []executor.Failure, limit int) []ReasonCount {
	counts := make(map[string]int)
	for _, f := range failures {
		for _, reason := range f.Errors {
			counts[reason]++
		}
	}
	out := make([]ReasonCount, 0, len(counts))
	for reason, count := range counts {
		out = append(out, ReasonCount{Reason: reason, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Reason < out[j].Reason
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func capStrings(in []string, limit int) []string {
	if len(in) <= limit {
		return in
	}
	return in[:limit]
}
