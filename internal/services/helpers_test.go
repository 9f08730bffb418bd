package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"financas/internal/core"
	"financas/internal/memory"
	"financas/internal/ports"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var errBackendDown = errors.New("backend down")

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func addEntry(t *testing.T, s *memory.Store, date core.Date, kind core.EntryKind, amount string, category string) core.Entry {
	t.Helper()
	e := core.Entry{Date: date, Kind: kind, Amount: dec(amount)}
	if category != "" {
		e.Category = &core.Ref{Name: category}
	}
	saved, err := s.AddEntry(e)
	require.NoError(t, err)
	return saved
}

func addFixed(t *testing.T, s *memory.Store, fe core.FixedExpense) core.FixedExpense {
	t.Helper()
	saved, err := s.AddFixedExpense(fe)
	require.NoError(t, err)
	return saved
}

// countingStore wraps a store, counts reads and can fail selected calls.
type countingStore struct {
	ports.Store
	calls  atomic.Int64
	failOn map[string]error
}

func newCountingStore(inner ports.Store) *countingStore {
	return &countingStore{Store: inner, failOn: map[string]error{}}
}

func (c *countingStore) hit(name string) error {
	c.calls.Add(1)
	return c.failOn[name]
}

func (c *countingStore) FindEntries(ctx context.Context, f ports.EntryFilter) ([]core.Entry, error) {
	if err := c.hit("FindEntries"); err != nil {
		return nil, err
	}
	return c.Store.FindEntries(ctx, f)
}

func (c *countingStore) SumByKind(ctx context.Context, kind core.EntryKind, from, to core.Date) (decimal.Decimal, error) {
	if err := c.hit("SumByKind"); err != nil {
		return decimal.Zero, err
	}
	return c.Store.SumByKind(ctx, kind, from, to)
}

func (c *countingStore) GroupByKind(ctx context.Context, dim ports.Dimension, kind core.EntryKind, from, to core.Date) ([]core.GroupTotal, error) {
	if err := c.hit("GroupByKind"); err != nil {
		return nil, err
	}
	return c.Store.GroupByKind(ctx, dim, kind, from, to)
}

func (c *countingStore) MonthlyTotals(ctx context.Context) ([]core.MonthlyAggregate, error) {
	if err := c.hit("MonthlyTotals"); err != nil {
		return nil, err
	}
	return c.Store.MonthlyTotals(ctx)
}

func (c *countingStore) ListFixedExpenses(ctx context.Context) ([]core.FixedExpense, error) {
	if err := c.hit("ListFixedExpenses"); err != nil {
		return nil, err
	}
	return c.Store.ListFixedExpenses(ctx)
}

func (c *countingStore) GetFixedExpense(ctx context.Context, id int64) (core.FixedExpense, error) {
	if err := c.hit("GetFixedExpense"); err != nil {
		return core.FixedExpense{}, err
	}
	return c.Store.GetFixedExpense(ctx, id)
}

func (c *countingStore) ListPayments(ctx context.Context, month, year int) ([]core.FixedExpensePayment, error) {
	if err := c.hit("ListPayments"); err != nil {
		return nil, err
	}
	return c.Store.ListPayments(ctx, month, year)
}

func (c *countingStore) UpsertPayment(ctx context.Context, p core.FixedExpensePayment) (core.FixedExpensePayment, error) {
	if err := c.hit("UpsertPayment"); err != nil {
		return core.FixedExpensePayment{}, err
	}
	return c.Store.UpsertPayment(ctx, p)
}

func (c *countingStore) ListGoals(ctx context.Context) ([]core.Goal, error) {
	if err := c.hit("ListGoals"); err != nil {
		return nil, err
	}
	return c.Store.ListGoals(ctx)
}

type recordingPublisher struct {
	published []core.FixedExpensePayment
	err       error
}

func (p *recordingPublisher) PublishPaymentUpdated(_ context.Context, pay core.FixedExpensePayment) error {
	p.published = append(p.published, pay)
	return p.err
}
