package services

import (
	"context"
	"fmt"
	"log/slog"

	"financas/internal/core"
	"financas/internal/ports"

	"github.com/shopspring/decimal"
)

// Aggregator computes period totals and dimensional breakdowns from the
// ledger. It holds no state besides its collaborator.
type Aggregator struct {
	ledger ports.LedgerReader
}

func NewAggregator(ledger ports.LedgerReader) *Aggregator {
	return &Aggregator{ledger: ledger}
}

// TotalByKind sums the entries of kind inside p. No match is a legitimate
// zero; a collaborator fault is returned, never coerced to zero.
func (a *Aggregator) TotalByKind(ctx context.Context, kind core.EntryKind, p core.Period) (decimal.Decimal, error) {
	total, err := a.ledger.SumByKind(ctx, kind, p.Start, p.End)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to sum entries", "kind", kind, "year", p.Year, "month", p.Month, "error", err)
		return decimal.Zero, core.Unavailable(fmt.Sprintf("sum %s", kind), err)
	}
	return total, nil
}

// GroupBy returns per-label totals of kind inside p. The result is never nil.
func (a *Aggregator) GroupBy(ctx context.Context, dim ports.Dimension, kind core.EntryKind, p core.Period) ([]core.GroupTotal, error) {
	groups, err := a.ledger.GroupByKind(ctx, dim, kind, p.Start, p.End)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to group entries", "dimension", dim, "kind", kind, "year", p.Year, "month", p.Month, "error", err)
		return nil, core.Unavailable(fmt.Sprintf("group %s by %s", kind, dim), err)
	}
	if groups == nil {
		groups = []core.GroupTotal{}
	}
	return groups, nil
}

// Balance is adjusted income minus variable and fixed expense.
func Balance(adjustedIncome, variableExpense, fixedExpense decimal.Decimal) decimal.Decimal {
	return adjustedIncome.Sub(variableExpense.Add(fixedExpense))
}

// GroupFixedExpenses breaks down the fixed expenses active in p by the
// referenced entity, keeping first-seen label order.
func GroupFixedExpenses(catalog []core.FixedExpense, p core.Period, dim ports.Dimension) []core.GroupTotal {
	groups := []core.GroupTotal{}
	index := make(map[string]int)
	for _, fe := range catalog {
		if !fe.ActiveIn(p) {
			continue
		}
		var label string
		switch dim {
		case ports.ByCategory:
			label = fe.Category.Label()
		case ports.ByResponsible:
			label = fe.Responsible.Label()
		case ports.ByAccount:
			label = fe.Account.Label()
		}
		if i, ok := index[label]; ok {
			groups[i].Total = groups[i].Total.Add(fe.Amount)
			continue
		}
		index[label] = len(groups)
		groups = append(groups, core.GroupTotal{Label: label, Total: fe.Amount})
	}
	return groups
}
