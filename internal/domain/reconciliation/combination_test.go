package reconciliation

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candidate(cents int64) AmountCandidate {
	return AmountCandidate{InvoiceID: uuid.New(), Cents: cents}
}

func TestFindExactCombinationSingle(t *testing.T) {
	c := candidate(151800)
	subset, found := FindExactCombination(151800, []AmountCandidate{c, candidate(99900)}, 0)
	require.True(t, found)
	require.Len(t, subset, 1)
	assert.Equal(t, c.InvoiceID, subset[0].InvoiceID)
	assert.Equal(t, int64(151800), SumCents(subset))
}

func TestFindExactCombinationPair(t *testing.T) {
	// one credit of 3036.00 paying two invoices of 1518.00
	a := candidate(151800)
	b := candidate(151800)
	subset, found := FindExactCombination(303600, []AmountCandidate{a, b, candidate(50000)}, 0)
	require.True(t, found)
	require.Len(t, subset, 2)
	assert.Equal(t, int64(303600), SumCents(subset))

	ids := map[uuid.UUID]bool{subset[0].InvoiceID: true, subset[1].InvoiceID: true}
	assert.True(t, ids[a.InvoiceID])
	assert.True(t, ids[b.InvoiceID])
}

func TestFindExactCombinationNoSolution(t *testing.T) {
	subset, found := FindExactCombination(50000, []AmountCandidate{
		candidate(151800), candidate(99900), candidate(30000),
	}, 0)
	assert.False(t, found)
	assert.Nil(t, subset, "no approximation is ever returned")
}

func TestFindExactCombinationSkipsOversizedAndNonPositive(t *testing.T) {
	fit := candidate(20000)
	subset, found := FindExactCombination(20000, []AmountCandidate{
		candidate(999999), // larger than target, pruned up front
		{InvoiceID: uuid.New(), Cents: 0},
		{InvoiceID: uuid.New(), Cents: -500},
		fit,
	}, 0)
	require.True(t, found)
	require.Len(t, subset, 1)
	assert.Equal(t, fit.InvoiceID, subset[0].InvoiceID)
}

func TestFindExactCombinationDeterministic(t *testing.T) {
	candidates := []AmountCandidate{
		candidate(100000), candidate(80000), candidate(60000),
		candidate(40000), candidate(20000),
	}

	first, found := FindExactCombination(180000, candidates, 0)
	require.True(t, found)

	// same candidate set in any input order yields the same subset
	for i := 0; i < 5; i++ {
		shuffled := []AmountCandidate{candidates[4], candidates[2], candidates[0], candidates[3], candidates[1]}
		again, ok := FindExactCombination(180000, shuffled, 0)
		require.True(t, ok)
		require.Equal(t, len(first), len(again))
		for j := range first {
			assert.Equal(t, first[j].InvoiceID, again[j].InvoiceID)
		}
	}

	// descending order includes 100000+80000 before 100000+60000+20000
	assert.Len(t, first, 2)
	assert.Equal(t, int64(100000), first[0].Cents)
	assert.Equal(t, int64(80000), first[1].Cents)
}

func TestFindExactCombinationRespectsCandidateCap(t *testing.T) {
	candidates := make([]AmountCandidate, 0, 10)
	for i := 0; i < 10; i++ {
		candidates = append(candidates, candidate(10000))
	}
	// cap of 3 keeps only three 100.00 candidates, so 400.00 is unreachable
	_, found := FindExactCombination(40000, candidates, 3)
	assert.False(t, found)

	subset, found := FindExactCombination(30000, candidates, 3)
	require.True(t, found)
	assert.Len(t, subset, 3)
}

func TestFindExactCombinationEdgeCases(t *testing.T) {
	_, found := FindExactCombination(0, []AmountCandidate{candidate(100)}, 0)
	assert.False(t, found)

	_, found = FindExactCombination(-100, []AmountCandidate{candidate(100)}, 0)
	assert.False(t, found)

	_, found = FindExactCombination(100, nil, 0)
	assert.False(t, found)
}
