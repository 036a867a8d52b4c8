package reconciliation

import (
	domain "github.com/contaflow/backend/internal/domain/reconciliation"
)

// Options are the tunables of the reconciliation engine, wired from
// configuration at startup.
type Options struct {
	// SimilarityThreshold accepts fuzzy name matches at or above this score.
	SimilarityThreshold float64
	// AutoApplyThreshold is the confidence at or above which a match is
	// applied without human review.
	AutoApplyThreshold int
	// MaxCombinationCandidates caps the candidate set fed to the
	// subset-sum search.
	MaxCombinationCandidates int
	// DateFallbackDays widens the due-date window backwards when the
	// exact date yields no candidates (next-business-day settlement).
	DateFallbackDays int
	// BatchWindowMonths is the trailing window of a batch run.
	BatchWindowMonths int
}

// DefaultOptions returns the engine defaults
func DefaultOptions() Options {
	return Options{
		SimilarityThreshold:      domain.DefaultSimilarityThreshold,
		AutoApplyThreshold:       90,
		MaxCombinationCandidates: domain.DefaultMaxCombinationCandidates,
		DateFallbackDays:         1,
		BatchWindowMonths:        3,
	}
}

// normalized fills zero values with defaults so a partially built Options
// never disables a guard
func (o Options) normalized() Options {
	defaults := DefaultOptions()
	if o.SimilarityThreshold <= 0 {
		o.SimilarityThreshold = defaults.SimilarityThreshold
	}
	if o.AutoApplyThreshold <= 0 {
		o.AutoApplyThreshold = defaults.AutoApplyThreshold
	}
	if o.MaxCombinationCandidates <= 0 {
		o.MaxCombinationCandidates = defaults.MaxCombinationCandidates
	}
	if o.DateFallbackDays <= 0 {
		o.DateFallbackDays = defaults.DateFallbackDays
	}
	if o.BatchWindowMonths <= 0 {
		o.BatchWindowMonths = defaults.BatchWindowMonths
	}
	return o
}
