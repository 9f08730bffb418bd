package services

import (
	"context"
	"errors"
	"testing"

	"financas/internal/core"
	"financas/internal/memory"
	"financas/internal/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTotalByKindEmptyIsZero(t *testing.T) {
	a := NewAggregator(memory.New())
	p, _ := ResolvePeriod(2025, 3)

	total, err := a.TotalByKind(context.Background(), core.Expense, p)
	require.NoError(t, err)
	assert.True(t, total.IsZero())
}

func TestTotalByKindIsExact(t *testing.T) {
	s := memory.New()
	for range 3 {
		addEntry(t, s, core.NewDate(2025, 3, 2), core.Expense, "0.10", "")
	}
	a := NewAggregator(s)
	p, _ := ResolvePeriod(2025, 3)

	total, err := a.TotalByKind(context.Background(), core.Expense, p)
	require.NoError(t, err)
	assert.True(t, total.Equal(dec("0.30")), "total = %s", total)
}

func TestTotalByKindSurfacesFailure(t *testing.T) {
	cs := newCountingStore(memory.New())
	cs.failOn["SumByKind"] = errBackendDown
	a := NewAggregator(cs)
	p, _ := ResolvePeriod(2025, 3)

	total, err := a.TotalByKind(context.Background(), core.Income, p)
	assert.True(t, errors.Is(err, core.ErrCollaboratorUnavailable))
	assert.True(t, total.IsZero())
}

func TestGroupByKeepsBlankLabel(t *testing.T) {
	s := memory.New()
	addEntry(t, s, core.NewDate(2025, 3, 1), core.Expense, "10", "Groceries")
	addEntry(t, s, core.NewDate(2025, 3, 2), core.Expense, "5", "")
	addEntry(t, s, core.NewDate(2025, 3, 3), core.Expense, "2.5", "Groceries")
	addEntry(t, s, core.NewDate(2025, 3, 3), core.Income, "100", "Groceries")

	a := NewAggregator(s)
	p, _ := ResolvePeriod(2025, 3)
	groups, err := a.GroupBy(context.Background(), ports.ByCategory, core.Expense, p)
	require.NoError(t, err)

	got := map[string]string{}
	for _, g := range groups {
		got[g.Label] = g.Total.String()
	}
	assert.Equal(t, map[string]string{"Groceries": "12.5", "": "5"}, got)
}

func TestGroupByEmptyIsNotNil(t *testing.T) {
	a := NewAggregator(memory.New())
	p, _ := ResolvePeriod(2025, 3)
	groups, err := a.GroupBy(context.Background(), ports.ByAccount, core.Income, p)
	require.NoError(t, err)
	assert.NotNil(t, groups)
	assert.Empty(t, groups)
}

func TestBalance(t *testing.T) {
	got := Balance(dec("5000"), dec("1200"), dec("800"))
	assert.True(t, got.Equal(dec("3000")), "balance = %s", got)
}

func TestGroupFixedExpenses(t *testing.T) {
	home := &core.Ref{ID: 1, Name: "Home"}
	catalog := []core.FixedExpense{
		{ID: 1, Amount: dec("800"), Category: home},
		{ID: 2, Amount: dec("50"), Category: home},
		{ID: 3, Amount: dec("30")},
		{ID: 4, Amount: dec("99"), Category: home, RecurrenceEnd: core.NewDate(2025, 1, 31)},
	}
	p, _ := ResolvePeriod(2025, 3)

	groups := GroupFixedExpenses(catalog, p, ports.ByCategory)
	require.Len(t, groups, 2)
	assert.Equal(t, "Home", groups[0].Label)
	assert.True(t, groups[0].Total.Equal(dec("850")))
	assert.Equal(t, "", groups[1].Label)
	assert.True(t, groups[1].Total.Equal(dec("30")))
}
