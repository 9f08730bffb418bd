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

func TestSeriesBuilderFillsEveryMonth(t *testing.T) {
	s := memory.New()
	addEntry(t, s, core.NewDate(2025, 6, 10), core.Income, "3000", "")
	addEntry(t, s, core.NewDate(2025, 6, 11), core.Expense, "450", "")
	addEntry(t, s, core.NewDate(2025, 12, 1), core.Expense, "90", "")
	addEntry(t, s, core.NewDate(2024, 6, 10), core.Income, "1", "")
	addFixed(t, s, core.FixedExpense{Description: "Rent", Amount: dec("800"), DueDay: 5})
	addFixed(t, s, core.FixedExpense{Description: "Gym", Amount: dec("50"), DueDay: 1, RecurrenceEnd: core.NewDate(2025, 4, 15)})

	cs := newCountingStore(s)
	b := NewSeriesBuilder(cs, NewReconciler(cs, cs, nil))
	series, err := b.Build(context.Background(), 2025)
	require.NoError(t, err)
	require.Len(t, series, 12)
	assert.EqualValues(t, 2, cs.calls.Load(), "one catalog read plus one aggregate read")

	for i, pt := range series {
		assert.Equal(t, i+1, pt.Month)
		assert.Equal(t, 2025, pt.Year)
		switch pt.Month {
		case 6:
			assert.Equal(t, "3000", pt.Income.String())
			assert.Equal(t, "450", pt.VariableExpense.String())
		case 12:
			assert.True(t, pt.Income.IsZero())
			assert.Equal(t, "90", pt.VariableExpense.String())
		default:
			assert.True(t, pt.Income.IsZero(), "month %d income %s", pt.Month, pt.Income)
			assert.True(t, pt.VariableExpense.IsZero(), "month %d expense %s", pt.Month, pt.VariableExpense)
		}
		want := "800"
		if pt.Month <= 4 {
			want = "850"
		}
		assert.Equal(t, want, pt.FixedExpense.String(), "month %d", pt.Month)
	}
}

func TestMonthlySeriesDisambiguatesYears(t *testing.T) {
	rows := []core.MonthlyAggregate{
		{Year: 2024, Month: 1, Income: dec("1"), VariableExpense: dec("1")},
		{Year: 2025, Month: 1, Income: dec("2"), VariableExpense: dec("3")},
		{Year: 2025, Month: 11, Income: dec("4"), VariableExpense: dec("5")},
	}
	series := MonthlySeries(2025, rows, nil)
	require.Len(t, series, 12)
	assert.Equal(t, "2", series[0].Income.String())
	assert.Equal(t, "3", series[0].VariableExpense.String())
	assert.Equal(t, "4", series[10].Income.String())
	assert.True(t, series[5].FixedExpense.IsZero())
}

func TestSeriesBuilderSurfacesFailure(t *testing.T) {
	cs := newCountingStore(memory.New())
	cs.failOn["MonthlyTotals"] = errBackendDown
	b := NewSeriesBuilder(cs, NewReconciler(cs, cs, nil))

	_, err := b.Build(context.Background(), 2025)
	assert.True(t, errors.Is(err, core.ErrCollaboratorUnavailable))
}
