package ports

import (
	"context"

	"financas/internal/core"

	"github.com/shopspring/decimal"
)

// Dimension selects the referenced entity a breakdown groups by.
type Dimension string

const (
	ByCategory    Dimension = "category"
	ByResponsible Dimension = "responsible"
	ByAccount     Dimension = "account"
)

// EntryFilter narrows a ledger read. Zero values mean "no filter"; results
// are ordered by date descending, then id descending.
type EntryFilter struct {
	Kind  core.EntryKind
	From  core.Date
	To    core.Date
	Limit int
}

// Ports for outbound adapters.
type (
	LedgerReader interface {
		// FindEntries returns entries matching the filter, newest first.
		FindEntries(ctx context.Context, f EntryFilter) ([]core.Entry, error)

		// SumByKind returns the sum of amounts of the given kind within
		// [from, to]. An empty match set yields zero, not an error.
		SumByKind(ctx context.Context, kind core.EntryKind, from, to core.Date) (decimal.Decimal, error)

		// GroupByKind sums entries of the given kind within [from, to] by the
		// name of the referenced entity. Entries without a reference are
		// grouped under a blank label.
		GroupByKind(ctx context.Context, dim Dimension, kind core.EntryKind, from, to core.Date) ([]core.GroupTotal, error)

		// MonthlyTotals aggregates income and variable expense per
		// (year, month) over the entire ledger.
		MonthlyTotals(ctx context.Context) ([]core.MonthlyAggregate, error)
	}

	FixedExpenseReader interface {
		ListFixedExpenses(ctx context.Context) ([]core.FixedExpense, error)

		// GetFixedExpense returns core.ErrNotFound for an unknown id.
		GetFixedExpense(ctx context.Context, id int64) (core.FixedExpense, error)
	}

	PaymentStore interface {
		// ListPayments returns every payment record of the reference
		// month/year in one batch.
		ListPayments(ctx context.Context, month, year int) ([]core.FixedExpensePayment, error)

		// UpsertPayment finds the record for (FixedExpenseID, Month, Year),
		// creating it when missing, and stores Paid and PaymentDate on it.
		UpsertPayment(ctx context.Context, p core.FixedExpensePayment) (core.FixedExpensePayment, error)
	}

	GoalReader interface {
		ListGoals(ctx context.Context) ([]core.Goal, error)
	}

	// PaymentPublisher announces payment status changes to other processes.
	PaymentPublisher interface {
		PublishPaymentUpdated(ctx context.Context, p core.FixedExpensePayment) error
	}

	// Store bundles every collaborator a backend provides.
	Store interface {
		LedgerReader
		FixedExpenseReader
		PaymentStore
		GoalReader
	}
)
