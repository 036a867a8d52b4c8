package reconciliation

import (
	"bytes"
	"sort"

	"github.com/google/uuid"
)

// DefaultMaxCombinationCandidates bounds the candidate set fed to the
// subset-sum search. The search is exponential in the worst case; the
// candidate selector's date filtering keeps sets small, this cap is the
// hard stop.
const DefaultMaxCombinationCandidates = 20

// AmountCandidate is one invoice offered to the combination search,
// reduced to its identity and amount in integer cents.
type AmountCandidate struct {
	InvoiceID uuid.UUID
	Cents     int64
}

// FindExactCombination searches for a subset of candidates whose amounts
// sum exactly to targetCents.
//
// Candidates are sorted by amount descending (ties broken by invoice ID)
// and searched depth-first, skip-or-include, pruning branches that
// overshoot the target. The first exact subset found wins; when several
// disjoint subsets satisfy the target the sort order decides, which keeps
// runs reproducible but makes no optimality claim. No subset means no
// result, never an approximation.
func FindExactCombination(targetCents int64, candidates []AmountCandidate, maxCandidates int) ([]AmountCandidate, bool) {
	if targetCents <= 0 || len(candidates) == 0 {
		return nil, false
	}
	if maxCandidates <= 0 {
		maxCandidates = DefaultMaxCombinationCandidates
	}

	pool := make([]AmountCandidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Cents > 0 && c.Cents <= targetCents {
			pool = append(pool, c)
		}
	}
	sort.Slice(pool, func(i, j int) bool {
		if pool[i].Cents != pool[j].Cents {
			return pool[i].Cents > pool[j].Cents
		}
		return bytes.Compare(pool[i].InvoiceID[:], pool[j].InvoiceID[:]) < 0
	})
	if len(pool) > maxCandidates {
		pool = pool[:maxCandidates]
	}

	// suffix sums let the search abandon branches that can no longer
	// reach the target
	remaining := make([]int64, len(pool)+1)
	for i := len(pool) - 1; i >= 0; i-- {
		remaining[i] = remaining[i+1] + pool[i].Cents
	}

	var picked []AmountCandidate
	var dfs func(idx int, sum int64) bool
	dfs = func(idx int, sum int64) bool {
		if sum == targetCents {
			return true
		}
		if idx == len(pool) || sum > targetCents || sum+remaining[idx] < targetCents {
			return false
		}

		// include first: descending order reaches large exact sums sooner
		picked = append(picked, pool[idx])
		if dfs(idx+1, sum+pool[idx].Cents) {
			return true
		}
		picked = picked[:len(picked)-1]

		return dfs(idx+1, sum)
	}

	if !dfs(0, 0) {
		return nil, false
	}
	result := make([]AmountCandidate, len(picked))
	copy(result, picked)
	return result, true
}

// SumCents totals a candidate subset
func SumCents(candidates []AmountCandidate) int64 {
	var sum int64
	for _, c := range candidates {
		sum += c.Cents
	}
	return sum
}
