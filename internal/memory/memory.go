package memory

import (
	"context"
	"sort"
	"sync"

	"financas/internal/core"
	"financas/internal/ports"

	"github.com/shopspring/decimal"
)

// Store keeps the ledger, fixed expenses, payments and goals in process.
// It implements ports.Store and is safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	entries  []core.Entry
	fixed    []core.FixedExpense
	payments []core.FixedExpensePayment
	goals    []core.Goal
	nextID   int64
}

var _ ports.Store = (*Store)(nil)

func New() *Store {
	return &Store{}
}

func (s *Store) newID() int64 {
	s.nextID++
	return s.nextID
}

func (s *Store) bump(id int64) int64 {
	if id == 0 {
		return s.newID()
	}
	if id > s.nextID {
		s.nextID = id
	}
	return id
}

// AddEntry normalizes goal signs, validates and stores e, assigning an id
// when it has none.
func (s *Store) AddEntry(e core.Entry) (core.Entry, error) {
	e = e.Normalize()
	if err := e.Validate(); err != nil {
		return core.Entry{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e.ID = s.bump(e.ID)
	s.entries = append(s.entries, e)
	return e, nil
}

func (s *Store) AddFixedExpense(fe core.FixedExpense) (core.FixedExpense, error) {
	if err := fe.Validate(); err != nil {
		return core.FixedExpense{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	fe.ID = s.bump(fe.ID)
	s.fixed = append(s.fixed, fe)
	return fe, nil
}

func (s *Store) AddGoal(g core.Goal) core.Goal {
	s.mu.Lock()
	defer s.mu.Unlock()
	g.ID = s.bump(g.ID)
	s.goals = append(s.goals, g)
	return g
}

// AddPayment stores p as a new record without looking for an existing one.
func (s *Store) AddPayment(p core.FixedExpensePayment) core.FixedExpensePayment {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = s.bump(p.ID)
	s.payments = append(s.payments, p)
	return p
}

// Payments returns a copy of every stored payment record.
func (s *Store) Payments() []core.FixedExpensePayment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.FixedExpensePayment(nil), s.payments...)
}

func (s *Store) FindEntries(ctx context.Context, f ports.EntryFilter) ([]core.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	var out []core.Entry
	for _, e := range s.entries {
		if matches(e, f.Kind, f.From, f.To) {
			out = append(out, e)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.After(out[j].Date.Time)
		}
		return out[i].ID > out[j].ID
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *Store) SumByKind(ctx context.Context, kind core.EntryKind, from, to core.Date) (decimal.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return decimal.Zero, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := decimal.Zero
	for _, e := range s.entries {
		if matches(e, kind, from, to) {
			total = total.Add(e.Amount)
		}
	}
	return total, nil
}

func (s *Store) GroupByKind(ctx context.Context, dim ports.Dimension, kind core.EntryKind, from, to core.Date) ([]core.GroupTotal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	groups := []core.GroupTotal{}
	index := make(map[string]int)
	for _, e := range s.entries {
		if !matches(e, kind, from, to) {
			continue
		}
		label := refFor(e, dim).Label()
		if i, ok := index[label]; ok {
			groups[i].Total = groups[i].Total.Add(e.Amount)
			continue
		}
		index[label] = len(groups)
		groups = append(groups, core.GroupTotal{Label: label, Total: e.Amount})
	}
	return groups, nil
}

func (s *Store) MonthlyTotals(ctx context.Context) ([]core.MonthlyAggregate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	byKey := make(map[string]*core.MonthlyAggregate)
	var out []*core.MonthlyAggregate
	for _, e := range s.entries {
		if e.Kind != core.Income && e.Kind != core.Expense {
			continue
		}
		key := core.MonthKey(e.Date.Year(), e.Date.Month())
		agg, ok := byKey[key]
		if !ok {
			agg = &core.MonthlyAggregate{
				Year:            e.Date.Year(),
				Month:           e.Date.Month(),
				Income:          decimal.Zero,
				VariableExpense: decimal.Zero,
			}
			byKey[key] = agg
			out = append(out, agg)
		}
		if e.Kind == core.Income {
			agg.Income = agg.Income.Add(e.Amount)
		} else {
			agg.VariableExpense = agg.VariableExpense.Add(e.Amount)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		return out[i].Month < out[j].Month
	})
	rows := make([]core.MonthlyAggregate, len(out))
	for i, agg := range out {
		rows[i] = *agg
	}
	return rows, nil
}

func (s *Store) ListFixedExpenses(ctx context.Context) ([]core.FixedExpense, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.FixedExpense{}, s.fixed...), nil
}

func (s *Store) GetFixedExpense(ctx context.Context, id int64) (core.FixedExpense, error) {
	if err := ctx.Err(); err != nil {
		return core.FixedExpense{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, fe := range s.fixed {
		if fe.ID == id {
			return fe, nil
		}
	}
	return core.FixedExpense{}, core.ErrNotFound
}

func (s *Store) ListPayments(ctx context.Context, month, year int) ([]core.FixedExpensePayment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []core.FixedExpensePayment{}
	for _, p := range s.payments {
		if p.Month == month && p.Year == year {
			out = append(out, p)
		}
	}
	return out, nil
}

// UpsertPayment updates the record for (FixedExpenseID, Month, Year) or
// creates it. Duplicate records for the key collapse into the one with the
// lowest id, so the key holds exactly one record afterwards. The check and
// the write happen under one lock.
func (s *Store) UpsertPayment(ctx context.Context, p core.FixedExpensePayment) (core.FixedExpensePayment, error) {
	if err := ctx.Err(); err != nil {
		return core.FixedExpensePayment{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	keep := -1
	kept := s.payments[:0]
	for _, cur := range s.payments {
		if cur.FixedExpenseID != p.FixedExpenseID || cur.Month != p.Month || cur.Year != p.Year {
			kept = append(kept, cur)
			continue
		}
		if keep >= 0 {
			if cur.ID < kept[keep].ID {
				kept[keep].ID = cur.ID
			}
			continue
		}
		keep = len(kept)
		kept = append(kept, cur)
	}
	s.payments = kept

	if keep < 0 {
		p.ID = s.newID()
		s.payments = append(s.payments, p)
		return p, nil
	}
	s.payments[keep].Paid = p.Paid
	s.payments[keep].PaymentDate = p.PaymentDate
	return s.payments[keep], nil
}

func (s *Store) ListGoals(ctx context.Context) ([]core.Goal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.Goal{}, s.goals...), nil
}

func matches(e core.Entry, kind core.EntryKind, from, to core.Date) bool {
	if kind != "" && e.Kind != kind {
		return false
	}
	if !from.IsEmpty() && e.Date.Before(from.Time) {
		return false
	}
	if !to.IsEmpty() && e.Date.After(to.Time) {
		return false
	}
	return true
}

func refFor(e core.Entry, dim ports.Dimension) *core.Ref {
	switch dim {
	case ports.ByCategory:
		return e.Category
	case ports.ByResponsible:
		return e.Responsible
	case ports.ByAccount:
		return e.Account
	default:
		return nil
	}
}
