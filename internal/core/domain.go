package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income         EntryKind = "INCOME"
	Expense        EntryKind = "EXPENSE"
	GoalTransfer   EntryKind = "GOAL_TRANSFER"
	GoalWithdrawal EntryKind = "GOAL_WITHDRAWAL"
)

const (
	Debit  PaymentMethod = "DEBIT"
	Credit PaymentMethod = "CREDIT"
)

type (
	EntryKind string

	PaymentMethod string

	Date struct {
		time.Time
	}

	// Ref points at a named entity (category, account, responsible party, goal).
	Ref struct {
		ID   int64
		Name string
	}

	Entry struct {
		ID          int64
		Date        Date
		Kind        EntryKind
		Amount      decimal.Decimal
		Description string
		Category    *Ref
		Account     *Ref
		Responsible *Ref
		Goal        *Ref
	}

	FixedExpense struct {
		ID              int64
		Description     string
		Amount          decimal.Decimal
		DueDay          int
		PaymentMethod   PaymentMethod
		Category        *Ref
		Account         *Ref
		Responsible     *Ref
		RecurrenceStart Date // zero means no start bound
		RecurrenceEnd   Date // zero means open-ended
	}

	FixedExpensePayment struct {
		ID             int64
		FixedExpenseID int64
		Month          int
		Year           int
		Paid           bool
		PaymentDate    Date // zero when unpaid
	}

	Goal struct {
		ID           int64
		Description  string
		TargetAmount decimal.Decimal
		Month        int
		Year         int
		Category     *Ref
		Responsible  *Ref
		Active       bool
	}

	// Period is the inclusive calendar-month interval a dashboard targets.
	Period struct {
		Year  int
		Month int
		Start Date
		End   Date
	}
)

var (
	ErrInvalidDay       = errors.New("invalid day")
	ErrInvalidMonth     = errors.New("invalid month")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidKind      = errors.New("invalid entry kind")
	ErrEmptyDescription = errors.New("empty description")
)

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	_, month, day := d.Date()
	if day < 1 || day > 31 {
		return ErrInvalidDay
	}
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in UTC.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate parses a date in YYYY-MM-DD format.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return Date{Time: t}, nil
}

// IsEmpty returns true if the date is zero (optional dates)
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

// AddDays returns the date shifted by n calendar days.
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

// String formats the date as YYYY-MM-DD, or "" when empty.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format("2006-01-02")
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// DaysIn returns the number of days of the given month, leap years included.
func DaysIn(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Contains reports whether d falls inside the period, bounds included.
func (p Period) Contains(d Date) bool {
	return !d.Before(p.Start.Time) && !d.After(p.End.Time)
}

// Key identifies the period as "year-month", unambiguous across years.
func (p Period) Key() string {
	return MonthKey(p.Year, p.Month)
}

// MonthKey formats a year/month pair as "year-month".
func MonthKey(year, month int) string {
	return fmt.Sprintf("%d-%d", year, month)
}

func (k EntryKind) IsValid() bool {
	switch k {
	case Income, Expense, GoalTransfer, GoalWithdrawal:
		return true
	default:
		return false
	}
}

// Normalize enforces the sign convention of goal movements: transfers are
// stored non-negative, withdrawals non-positive.
func (e Entry) Normalize() Entry {
	switch e.Kind {
	case GoalTransfer:
		e.Amount = e.Amount.Abs()
	case GoalWithdrawal:
		e.Amount = e.Amount.Abs().Neg()
	}
	return e
}

func (e Entry) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if !e.Kind.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidKind, e.Kind)
	}
	if !WholeCents(e.Amount) {
		return fmt.Errorf("%w: %s has fractions of a cent", ErrInvalidAmount, e.Amount)
	}
	switch e.Kind {
	case Income, Expense:
		if !e.Amount.IsPositive() {
			return ErrInvalidAmount
		}
	case GoalTransfer:
		if e.Amount.IsNegative() {
			return ErrInvalidAmount
		}
	case GoalWithdrawal:
		if e.Amount.IsPositive() {
			return ErrInvalidAmount
		}
	}
	return nil
}

// ActiveIn reports whether the fixed expense is still running during p:
// not ended before the period starts and, when a start is set, not starting
// after the period ends.
func (fe FixedExpense) ActiveIn(p Period) bool {
	if !fe.RecurrenceEnd.IsEmpty() && fe.RecurrenceEnd.Before(p.Start.Time) {
		return false
	}
	if !fe.RecurrenceStart.IsEmpty() && fe.RecurrenceStart.After(p.End.Time) {
		return false
	}
	return true
}

// DueDate materializes the due day in the given month, clamped to the
// month length (day 31 becomes Feb 28/29).
func (fe FixedExpense) DueDate(year, month int) Date {
	day := fe.DueDay
	if day < 1 {
		day = 1
	}
	if last := DaysIn(year, month); day > last {
		day = last
	}
	return NewDate(year, month, day)
}

// Method returns the payment method tag, DEBIT when unset.
func (fe FixedExpense) Method() PaymentMethod {
	if fe.PaymentMethod == "" {
		return Debit
	}
	return fe.PaymentMethod
}

func (fe FixedExpense) Validate() error {
	if len(strings.TrimSpace(fe.Description)) == 0 {
		return ErrEmptyDescription
	}
	if !fe.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if !WholeCents(fe.Amount) {
		return fmt.Errorf("%w: %s has fractions of a cent", ErrInvalidAmount, fe.Amount)
	}
	if fe.DueDay < 1 || fe.DueDay > 31 {
		return ErrInvalidDay
	}
	switch fe.Method() {
	case Debit, Credit:
	default:
		return fmt.Errorf("invalid payment method %q", fe.PaymentMethod)
	}
	if !fe.RecurrenceStart.IsEmpty() && !fe.RecurrenceEnd.IsEmpty() && fe.RecurrenceEnd.Before(fe.RecurrenceStart.Time) {
		return errors.New("recurrence end must not be before recurrence start")
	}
	return nil
}

// Label returns the referenced name, blank for a nil reference.
func (r *Ref) Label() string {
	if r == nil {
		return ""
	}
	return r.Name
}
