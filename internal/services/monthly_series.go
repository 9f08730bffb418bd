package services

import (
	"context"
	"log/slog"
	"sort"

	"financas/internal/core"
	"financas/internal/ports"

	"github.com/shopspring/decimal"
)

// SeriesBuilder produces the twelve-month income versus expense comparison
// for a year.
type SeriesBuilder struct {
	ledger     ports.LedgerReader
	reconciler *Reconciler
}

func NewSeriesBuilder(ledger ports.LedgerReader, reconciler *Reconciler) *SeriesBuilder {
	return &SeriesBuilder{ledger: ledger, reconciler: reconciler}
}

// Build loads the catalog and the all-time aggregate once and returns twelve
// points for year, January first.
func (b *SeriesBuilder) Build(ctx context.Context, year int) ([]core.MonthlyPoint, error) {
	catalog, err := b.reconciler.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	return b.BuildFor(ctx, catalog, year)
}

// BuildFor is Build over an already loaded fixed-expense catalog.
func (b *SeriesBuilder) BuildFor(ctx context.Context, catalog []core.FixedExpense, year int) ([]core.MonthlyPoint, error) {
	rows, err := b.ledger.MonthlyTotals(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to load monthly totals", "year", year, "error", err)
		return nil, core.Unavailable("monthly totals", err)
	}
	return MonthlySeries(year, rows, ActiveTotalsByMonth(catalog, year)), nil
}

// MonthlySeries merges the all-time aggregate rows with precomputed fixed
// totals. Rows from other years are ignored; months without activity get
// zero income and variable expense.
func MonthlySeries(year int, rows []core.MonthlyAggregate, fixed map[int]decimal.Decimal) []core.MonthlyPoint {
	byKey := make(map[string]core.MonthlyAggregate, len(rows))
	for _, r := range rows {
		key := core.MonthKey(r.Year, r.Month)
		if prev, ok := byKey[key]; ok {
			r.Income = r.Income.Add(prev.Income)
			r.VariableExpense = r.VariableExpense.Add(prev.VariableExpense)
		}
		byKey[key] = r
	}

	series := make([]core.MonthlyPoint, 0, 12)
	for m := 1; m <= 12; m++ {
		pt := core.MonthlyPoint{
			Year:            year,
			Month:           m,
			Income:          decimal.Zero,
			VariableExpense: decimal.Zero,
			FixedExpense:    decimal.Zero,
		}
		if r, ok := byKey[core.MonthKey(year, m)]; ok {
			pt.Income = r.Income
			pt.VariableExpense = r.VariableExpense
		}
		if f, ok := fixed[m]; ok {
			pt.FixedExpense = f
		}
		series = append(series, pt)
	}
	sort.Slice(series, func(i, j int) bool { return series[i].Month < series[j].Month })
	return series
}
