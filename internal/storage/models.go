package storage

import "database/sql"

type EntryRow struct {
	ID              int64
	EntryDate       string
	Kind            string
	AmountCents     int64
	Description     string
	CategoryID      sql.NullInt64
	CategoryName    sql.NullString
	AccountID       sql.NullInt64
	AccountName     sql.NullString
	ResponsibleID   sql.NullInt64
	ResponsibleName sql.NullString
	GoalID          sql.NullInt64
	GoalDescription sql.NullString
}

type FixedExpenseRow struct {
	ID              int64
	Description     string
	AmountCents     int64
	DueDay          int64
	PaymentMethod   string
	CategoryID      sql.NullInt64
	CategoryName    sql.NullString
	AccountID       sql.NullInt64
	AccountName     sql.NullString
	ResponsibleID   sql.NullInt64
	ResponsibleName sql.NullString
	RecurrenceStart sql.NullString
	RecurrenceEnd   sql.NullString
}

type FixedExpensePayment struct {
	ID             int64
	FixedExpenseID int64
	ReferenceMonth int64
	ReferenceYear  int64
	Paid           int64
	PaymentDate    sql.NullString
}

type GoalRow struct {
	ID                int64
	Description       string
	TargetAmountCents int64
	ReferenceMonth    sql.NullInt64
	ReferenceYear     sql.NullInt64
	CategoryID        sql.NullInt64
	CategoryName      sql.NullString
	ResponsibleID     sql.NullInt64
	ResponsibleName   sql.NullString
	Active            int64
}

type GroupSumRow struct {
	Label       string
	TotalAmount int64
}

type MonthlyTotalRow struct {
	Year         int64
	Month        int64
	IncomeCents  int64
	ExpenseCents int64
}
