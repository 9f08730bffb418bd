package services

import (
	"context"
	"log/slog"
	"strings"

	"financas/internal/core"
	"financas/internal/ports"

	"github.com/shopspring/decimal"
)

const (
	DefaultSalaryCategory   = "SALÁRIO"
	DefaultSalaryWindowDays = 5

	// lateMonthDay is the day after which a salary entry is considered
	// paid for the following month.
	lateMonthDay = 15
)

// IncomeNormalizer shifts salary entries recorded near a month boundary
// into the month they belong to.
type IncomeNormalizer struct {
	ledger     ports.LedgerReader
	category   string
	windowDays int
}

func NewIncomeNormalizer(ledger ports.LedgerReader, salaryCategory string, windowDays int) *IncomeNormalizer {
	if strings.TrimSpace(salaryCategory) == "" {
		salaryCategory = DefaultSalaryCategory
	}
	if windowDays < 0 {
		windowDays = DefaultSalaryWindowDays
	}
	return &IncomeNormalizer{
		ledger:     ledger,
		category:   salaryCategory,
		windowDays: windowDays,
	}
}

// Adjust returns raw + late salaries from the previous month - salaries of
// the current month paid early for the next one.
//
// Salary entries are INCOME entries whose category matches the configured
// marker case-insensitively, searched in [start - window, end + window].
// An entry dated before the period start on a day after the 15th is added.
// An entry dated after the period start on a day after the 15th is
// subtracted.
func (n *IncomeNormalizer) Adjust(ctx context.Context, p core.Period, raw decimal.Decimal) (decimal.Decimal, error) {
	adj, err := n.Adjustment(ctx, p)
	if err != nil {
		return decimal.Zero, err
	}
	return raw.Add(adj), nil
}

// Adjustment returns only the signed correction to add to the raw income.
func (n *IncomeNormalizer) Adjustment(ctx context.Context, p core.Period) (decimal.Decimal, error) {
	entries, err := n.ledger.FindEntries(ctx, ports.EntryFilter{
		Kind: core.Income,
		From: p.Start.AddDays(-n.windowDays),
		To:   p.End.AddDays(n.windowDays),
	})
	if err != nil {
		slog.ErrorContext(ctx, "Failed to load salary entries", "year", p.Year, "month", p.Month, "error", err)
		return decimal.Zero, core.Unavailable("find salary entries", err)
	}

	lateFromPrevious := decimal.Zero
	earlyForNext := decimal.Zero
	for _, e := range entries {
		if e.Kind != core.Income || !strings.EqualFold(e.Category.Label(), n.category) {
			continue
		}
		if e.Date.Day() <= lateMonthDay {
			continue
		}
		switch {
		case e.Date.Before(p.Start.Time):
			lateFromPrevious = lateFromPrevious.Add(e.Amount)
		case e.Date.After(p.Start.Time):
			earlyForNext = earlyForNext.Add(e.Amount)
		}
	}

	adj := lateFromPrevious.Sub(earlyForNext)
	slog.DebugContext(ctx, "Income adjustment computed",
		"year", p.Year,
		"month", p.Month,
		"late_from_previous", lateFromPrevious.String(),
		"early_for_next", earlyForNext.String())
	return adj, nil
}
