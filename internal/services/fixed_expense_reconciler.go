package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"financas/internal/core"
	"financas/internal/ports"

	"github.com/shopspring/decimal"
)

type paymentKey struct {
	expenseID int64
	month     int
	year      int
}

// Reconciler merges the fixed-expense catalog with the per-month payment
// records and owns the only write path of the engine.
type Reconciler struct {
	fixed     ports.FixedExpenseReader
	payments  ports.PaymentStore
	publisher ports.PaymentPublisher
	now       func() time.Time
	locks     keyedMutex[paymentKey]
}

// NewReconciler creates a reconciler. publisher may be nil.
func NewReconciler(fixed ports.FixedExpenseReader, payments ports.PaymentStore, publisher ports.PaymentPublisher) *Reconciler {
	return &Reconciler{
		fixed:     fixed,
		payments:  payments,
		publisher: publisher,
		now:       time.Now,
	}
}

// Catalog loads every fixed expense in one read.
func (r *Reconciler) Catalog(ctx context.Context) ([]core.FixedExpense, error) {
	catalog, err := r.fixed.ListFixedExpenses(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to list fixed expenses", "error", err)
		return nil, core.Unavailable("list fixed expenses", err)
	}
	return catalog, nil
}

// ActiveTotal sums the fixed expenses active in p.
func (r *Reconciler) ActiveTotal(ctx context.Context, p core.Period) (decimal.Decimal, error) {
	catalog, err := r.Catalog(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return ActiveTotal(catalog, p), nil
}

// ActiveTotal sums the amounts of catalog entries active in p.
func ActiveTotal(catalog []core.FixedExpense, p core.Period) decimal.Decimal {
	total := decimal.Zero
	for _, fe := range catalog {
		if fe.ActiveIn(p) {
			total = total.Add(fe.Amount)
		}
	}
	return total
}

// ActiveTotalsByMonth precomputes ActiveTotal for the twelve months of year
// from a single catalog read.
func ActiveTotalsByMonth(catalog []core.FixedExpense, year int) map[int]decimal.Decimal {
	totals := make(map[int]decimal.Decimal, 12)
	for m := 1; m <= 12; m++ {
		p, _ := ResolvePeriod(year, m)
		totals[m] = ActiveTotal(catalog, p)
	}
	return totals
}

// StatusList reports, for every fixed expense, its due date in the month and
// whether it has been paid.
func (r *Reconciler) StatusList(ctx context.Context, year, month int) ([]core.FixedExpenseStatus, error) {
	catalog, err := r.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	return r.StatusListFor(ctx, catalog, year, month)
}

// StatusListFor is StatusList over an already loaded catalog. Payments are
// fetched once for the month and indexed by fixed-expense id.
func (r *Reconciler) StatusListFor(ctx context.Context, catalog []core.FixedExpense, year, month int) ([]core.FixedExpenseStatus, error) {
	if month < 1 || month > 12 {
		return nil, fmt.Errorf("%w: month %d must be between 1 and 12", core.ErrInvalidPeriod, month)
	}
	payments, err := r.payments.ListPayments(ctx, month, year)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to list payments", "year", year, "month", month, "error", err)
		return nil, core.Unavailable("list payments", err)
	}
	byExpense := IndexPayments(payments)

	statuses := make([]core.FixedExpenseStatus, 0, len(catalog))
	for _, fe := range catalog {
		st := core.FixedExpenseStatus{
			ID:            fe.ID,
			Description:   fe.Description,
			Amount:        fe.Amount,
			PaymentMethod: fe.Method(),
			DueDate:       fe.DueDate(year, month),
		}
		if pay, ok := byExpense[fe.ID]; ok {
			st.Paid = pay.Paid
			st.PaymentDate = pay.PaymentDate
		}
		statuses = append(statuses, st)
	}
	return statuses, nil
}

// IndexPayments keys payment records by fixed-expense id. When several
// records share an id the one with a payment date wins, then the lowest id.
func IndexPayments(payments []core.FixedExpensePayment) map[int64]core.FixedExpensePayment {
	index := make(map[int64]core.FixedExpensePayment, len(payments))
	for _, p := range payments {
		cur, ok := index[p.FixedExpenseID]
		if !ok || preferPayment(p, cur) {
			index[p.FixedExpenseID] = p
		}
	}
	return index
}

func preferPayment(candidate, current core.FixedExpensePayment) bool {
	candDated := !candidate.PaymentDate.IsEmpty()
	curDated := !current.PaymentDate.IsEmpty()
	if candDated != curDated {
		return candDated
	}
	return candidate.ID < current.ID
}

// SetPaid marks the fixed expense paid or unpaid for month/year. The record
// is found or created, so repeated calls leave exactly one record. Calls for
// the same key are serialized.
func (r *Reconciler) SetPaid(ctx context.Context, expenseID int64, month, year int, paid bool) (core.FixedExpensePayment, error) {
	if month < 1 || month > 12 {
		return core.FixedExpensePayment{}, fmt.Errorf("%w: month %d must be between 1 and 12", core.ErrInvalidPeriod, month)
	}

	if _, err := r.fixed.GetFixedExpense(ctx, expenseID); err != nil {
		if !errors.Is(err, core.ErrNotFound) {
			slog.ErrorContext(ctx, "Failed to load fixed expense", "fixed_expense_id", expenseID, "error", err)
		}
		return core.FixedExpensePayment{}, core.Unavailable("get fixed expense", err)
	}

	unlock := r.locks.Lock(paymentKey{expenseID: expenseID, month: month, year: year})
	defer unlock()

	p := core.FixedExpensePayment{
		FixedExpenseID: expenseID,
		Month:          month,
		Year:           year,
		Paid:           paid,
	}
	if paid {
		p.PaymentDate = core.DateOf(r.now())
	}

	saved, err := r.payments.UpsertPayment(ctx, p)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to save payment", "fixed_expense_id", expenseID, "year", year, "month", month, "error", err)
		return core.FixedExpensePayment{}, core.Unavailable("upsert payment", err)
	}

	slog.InfoContext(ctx, "Fixed expense payment updated",
		"fixed_expense_id", expenseID,
		"payment_id", saved.ID,
		"year", year,
		"month", month,
		"paid", paid)

	if r.publisher != nil {
		if err := r.publisher.PublishPaymentUpdated(ctx, saved); err != nil {
			// The record is stored; subscribers catch up on their own TTL.
			slog.ErrorContext(ctx, "Failed to publish payment update", "fixed_expense_id", expenseID, "error", err)
		}
	}

	return saved, nil
}
