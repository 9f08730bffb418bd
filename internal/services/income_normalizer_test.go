package services

import (
	"context"
	"errors"
	"testing"

	"financas/internal/core"
	"financas/internal/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func adjustedIncome(t *testing.T, n *IncomeNormalizer, a *Aggregator, year, month int) string {
	t.Helper()
	ctx := context.Background()
	p, err := ResolvePeriod(year, month)
	require.NoError(t, err)
	raw, err := a.TotalByKind(ctx, core.Income, p)
	require.NoError(t, err)
	adj, err := n.Adjust(ctx, p, raw)
	require.NoError(t, err)
	return adj.String()
}

func TestIncomeNormalizerMovesLateSalaryIntoNextMonth(t *testing.T) {
	s := memory.New()
	addEntry(t, s, core.NewDate(2025, 2, 25), core.Income, "4000", "salário")

	n := NewIncomeNormalizer(s, "", DefaultSalaryWindowDays)
	a := NewAggregator(s)

	assert.Equal(t, "4000", adjustedIncome(t, n, a, 2025, 3), "March should include the salary paid on Feb 25")
	assert.Equal(t, "0", adjustedIncome(t, n, a, 2025, 2), "February should exclude it")
}

func TestIncomeNormalizerWiderWindowReachesTheTwentieth(t *testing.T) {
	s := memory.New()
	addEntry(t, s, core.NewDate(2025, 2, 20), core.Income, "4000", "SALÁRIO")

	n := NewIncomeNormalizer(s, "SALÁRIO", 12)
	a := NewAggregator(s)

	assert.Equal(t, "4000", adjustedIncome(t, n, a, 2025, 3))
	assert.Equal(t, "0", adjustedIncome(t, n, a, 2025, 2))
}

// A salary after the 15th but outside the next period's window is removed
// from its own month and never credited to the next one.
func TestIncomeNormalizerMidMonthSalaryLeavesEveryMonth(t *testing.T) {
	s := memory.New()
	addEntry(t, s, core.NewDate(2025, 3, 18), core.Income, "4000", "SALÁRIO")

	n := NewIncomeNormalizer(s, "SALÁRIO", DefaultSalaryWindowDays)
	a := NewAggregator(s)

	assert.Equal(t, "0", adjustedIncome(t, n, a, 2025, 2))
	assert.Equal(t, "0", adjustedIncome(t, n, a, 2025, 3))
	assert.Equal(t, "0", adjustedIncome(t, n, a, 2025, 4))

	n = NewIncomeNormalizer(s, "SALÁRIO", 15)
	assert.Equal(t, "4000", adjustedIncome(t, n, a, 2025, 4), "a window reaching the 18th credits April")
}

func TestIncomeNormalizerIgnoresOtherEntries(t *testing.T) {
	s := memory.New()
	addEntry(t, s, core.NewDate(2025, 2, 26), core.Income, "300", "Freelance")
	addEntry(t, s, core.NewDate(2025, 3, 3), core.Income, "4000", "SALÁRIO")
	addEntry(t, s, core.NewDate(2025, 2, 27), core.Expense, "50", "SALÁRIO")

	n := NewIncomeNormalizer(s, "", DefaultSalaryWindowDays)
	p, err := ResolvePeriod(2025, 3)
	require.NoError(t, err)
	adj, err := n.Adjustment(context.Background(), p)
	require.NoError(t, err)
	assert.True(t, adj.IsZero(), "adjustment = %s", adj)
}

func TestIncomeNormalizerSurfacesCollaboratorFailure(t *testing.T) {
	cs := newCountingStore(memory.New())
	cs.failOn["FindEntries"] = errBackendDown

	n := NewIncomeNormalizer(cs, "", DefaultSalaryWindowDays)
	p, _ := ResolvePeriod(2025, 3)
	_, err := n.Adjust(context.Background(), p, dec("100"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrCollaboratorUnavailable))
	assert.True(t, errors.Is(err, errBackendDown))
}
