package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"financas/internal/core"
	"financas/internal/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(d core.Date) func() time.Time {
	return func() time.Time { return d.Add(10 * time.Hour) }
}

func TestActiveTotal(t *testing.T) {
	catalog := []core.FixedExpense{
		{ID: 1, Amount: dec("800")},
		{ID: 2, Amount: dec("100"), RecurrenceEnd: core.NewDate(2025, 3, 1)},
		{ID: 3, Amount: dec("60"), RecurrenceEnd: core.NewDate(2025, 2, 28)},
		{ID: 4, Amount: dec("7"), RecurrenceStart: core.NewDate(2025, 4, 1)},
	}
	p, _ := ResolvePeriod(2025, 3)
	assert.True(t, ActiveTotal(catalog, p).Equal(dec("900")))

	totals := ActiveTotalsByMonth(catalog, 2025)
	require.Len(t, totals, 12)
	assert.True(t, totals[2].Equal(dec("960")), "feb = %s", totals[2])
	assert.True(t, totals[4].Equal(dec("807")), "apr = %s", totals[4])
}

func TestReconcilerActiveTotalReadsCatalogOnce(t *testing.T) {
	s := memory.New()
	addFixed(t, s, core.FixedExpense{Description: "Rent", Amount: dec("800"), DueDay: 5})
	cs := newCountingStore(s)
	r := NewReconciler(cs, cs, nil)

	p, _ := ResolvePeriod(2025, 3)
	total, err := r.ActiveTotal(context.Background(), p)
	require.NoError(t, err)
	assert.True(t, total.Equal(dec("800")))
	assert.EqualValues(t, 1, cs.calls.Load())
}

func TestStatusListWithoutPaymentsIsUnpaid(t *testing.T) {
	s := memory.New()
	addFixed(t, s, core.FixedExpense{Description: "Rent", Amount: dec("800"), DueDay: 5})
	addFixed(t, s, core.FixedExpense{Description: "Card", Amount: dec("120"), DueDay: 31, PaymentMethod: core.Credit})
	r := NewReconciler(s, s, nil)

	list, err := r.StatusList(context.Background(), 2024, 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	for _, st := range list {
		assert.False(t, st.Paid)
		assert.True(t, st.PaymentDate.IsEmpty())
	}
	assert.Equal(t, "2024-02-05", list[0].DueDate.String())
	assert.Equal(t, core.Debit, list[0].PaymentMethod)
	assert.Equal(t, "2024-02-29", list[1].DueDate.String())
	assert.Equal(t, core.Credit, list[1].PaymentMethod)
}

func TestStatusListFetchesPaymentsOnce(t *testing.T) {
	s := memory.New()
	for i := range 5 {
		addFixed(t, s, core.FixedExpense{Description: "Bill", Amount: dec("10"), DueDay: i + 1})
	}
	cs := newCountingStore(s)
	r := NewReconciler(cs, cs, nil)

	_, err := r.StatusList(context.Background(), 2025, 3)
	require.NoError(t, err)
	assert.EqualValues(t, 2, cs.calls.Load(), "one catalog read plus one payment read")
}

func TestStatusListDuplicatePaymentsPreferDated(t *testing.T) {
	s := memory.New()
	fe := addFixed(t, s, core.FixedExpense{Description: "Rent", Amount: dec("800"), DueDay: 5})
	s.AddPayment(core.FixedExpensePayment{ID: 100, FixedExpenseID: fe.ID, Month: 3, Year: 2025})
	s.AddPayment(core.FixedExpensePayment{ID: 101, FixedExpenseID: fe.ID, Month: 3, Year: 2025, Paid: true, PaymentDate: core.NewDate(2025, 3, 4)})

	r := NewReconciler(s, s, nil)
	list, err := r.StatusList(context.Background(), 2025, 3)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].Paid)
	assert.Equal(t, "2025-03-04", list[0].PaymentDate.String())
}

func TestSetPaidFalseCollapsesDuplicatePayments(t *testing.T) {
	s := memory.New()
	fe := addFixed(t, s, core.FixedExpense{Description: "Rent", Amount: dec("800"), DueDay: 5})
	s.AddPayment(core.FixedExpensePayment{ID: 100, FixedExpenseID: fe.ID, Month: 3, Year: 2025})
	s.AddPayment(core.FixedExpensePayment{ID: 101, FixedExpenseID: fe.ID, Month: 3, Year: 2025, Paid: true, PaymentDate: core.NewDate(2025, 3, 4)})

	r := NewReconciler(s, s, nil)
	saved, err := r.SetPaid(context.Background(), fe.ID, 3, 2025, false)
	require.NoError(t, err)
	assert.Equal(t, int64(100), saved.ID)

	list, err := r.StatusList(context.Background(), 2025, 3)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.False(t, list[0].Paid)
	assert.True(t, list[0].PaymentDate.IsEmpty())

	payments, err := s.ListPayments(context.Background(), 3, 2025)
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, int64(100), payments[0].ID)
}

func TestIndexPaymentsTieBreak(t *testing.T) {
	dated := core.NewDate(2025, 3, 4)
	tests := []struct {
		name   string
		in     []core.FixedExpensePayment
		wantID int64
	}{
		{"single", []core.FixedExpensePayment{{ID: 3, FixedExpenseID: 1}}, 3},
		{"dated wins over lower id", []core.FixedExpensePayment{{ID: 1, FixedExpenseID: 1}, {ID: 2, FixedExpenseID: 1, PaymentDate: dated}}, 2},
		{"dated wins regardless of order", []core.FixedExpensePayment{{ID: 2, FixedExpenseID: 1, PaymentDate: dated}, {ID: 1, FixedExpenseID: 1}}, 2},
		{"lowest id among undated", []core.FixedExpensePayment{{ID: 9, FixedExpenseID: 1}, {ID: 4, FixedExpenseID: 1}}, 4},
		{"lowest id among dated", []core.FixedExpensePayment{{ID: 9, FixedExpenseID: 1, PaymentDate: dated}, {ID: 4, FixedExpenseID: 1, PaymentDate: dated}}, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IndexPayments(tt.in)
			assert.Equal(t, tt.wantID, got[1].ID)
		})
	}
}

func TestSetPaidTwiceLeavesOneRecord(t *testing.T) {
	s := memory.New()
	addFixed(t, s, core.FixedExpense{ID: 5, Description: "Internet", Amount: dec("99.90"), DueDay: 10})
	pub := &recordingPublisher{}
	r := NewReconciler(s, s, pub)
	r.now = fixedClock(core.NewDate(2025, 3, 12))

	for range 2 {
		_, err := r.SetPaid(context.Background(), 5, 3, 2025, true)
		require.NoError(t, err)
	}

	payments, err := s.ListPayments(context.Background(), 3, 2025)
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.True(t, payments[0].Paid)
	assert.Equal(t, "2025-03-12", payments[0].PaymentDate.String())
	assert.Len(t, pub.published, 2)
}

func TestSetPaidFalseClearsDate(t *testing.T) {
	s := memory.New()
	addFixed(t, s, core.FixedExpense{ID: 5, Description: "Internet", Amount: dec("99.90"), DueDay: 10})
	r := NewReconciler(s, s, nil)

	_, err := r.SetPaid(context.Background(), 5, 3, 2025, true)
	require.NoError(t, err)
	saved, err := r.SetPaid(context.Background(), 5, 3, 2025, false)
	require.NoError(t, err)

	assert.False(t, saved.Paid)
	assert.True(t, saved.PaymentDate.IsEmpty())
	assert.Len(t, s.Payments(), 1)
}

func TestSetPaidConcurrentSameKey(t *testing.T) {
	s := memory.New()
	addFixed(t, s, core.FixedExpense{ID: 5, Description: "Internet", Amount: dec("99.90"), DueDay: 10})
	r := NewReconciler(s, s, nil)

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.SetPaid(context.Background(), 5, 3, 2025, true)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Len(t, s.Payments(), 1)
}

func TestSetPaidUnknownExpense(t *testing.T) {
	s := memory.New()
	r := NewReconciler(s, s, nil)

	_, err := r.SetPaid(context.Background(), 42, 3, 2025, true)
	assert.True(t, errors.Is(err, core.ErrNotFound))
	assert.False(t, errors.Is(err, core.ErrCollaboratorUnavailable))
	assert.Empty(t, s.Payments())
}

func TestSetPaidInvalidMonth(t *testing.T) {
	cs := newCountingStore(memory.New())
	r := NewReconciler(cs, cs, nil)

	_, err := r.SetPaid(context.Background(), 1, 13, 2025, true)
	assert.True(t, errors.Is(err, core.ErrInvalidPeriod))
	assert.Zero(t, cs.calls.Load())
}

func TestSetPaidPublishFailureDoesNotFail(t *testing.T) {
	s := memory.New()
	addFixed(t, s, core.FixedExpense{ID: 5, Description: "Internet", Amount: dec("99.90"), DueDay: 10})
	r := NewReconciler(s, s, &recordingPublisher{err: errBackendDown})

	saved, err := r.SetPaid(context.Background(), 5, 3, 2025, true)
	require.NoError(t, err)
	assert.True(t, saved.Paid)
}

func TestSetPaidStoreFailure(t *testing.T) {
	s := memory.New()
	addFixed(t, s, core.FixedExpense{ID: 5, Description: "Internet", Amount: dec("99.90"), DueDay: 10})
	cs := newCountingStore(s)
	cs.failOn["UpsertPayment"] = errBackendDown
	r := NewReconciler(cs, cs, nil)

	_, err := r.SetPaid(context.Background(), 5, 3, 2025, true)
	assert.True(t, errors.Is(err, core.ErrCollaboratorUnavailable))
	assert.True(t, errors.Is(err, errBackendDown))
}
