package storage

import (
	"context"
	"database/sql"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	PrepareContext(context.Context, string) (*sql.Stmt, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

const entryColumns = `
    e.id, e.entry_date, e.kind, e.amount_cents, e.description,
    c.id, c.name, a.id, a.name, r.id, r.name, g.id, g.description
FROM entries e
LEFT JOIN categories c ON c.id = e.category_id
LEFT JOIN accounts a ON a.id = e.account_id
LEFT JOIN responsibles r ON r.id = e.responsible_id
LEFT JOIN goals g ON g.id = e.goal_id
`

const findEntries = `-- name: FindEntries :many
SELECT` + entryColumns + `WHERE (? = '' OR e.kind = ?)
  AND (? = '' OR e.entry_date >= ?)
  AND (? = '' OR e.entry_date <= ?)
ORDER BY e.entry_date DESC, e.id DESC
LIMIT ?
`

type FindEntriesParams struct {
	Kind  string
	From  string
	To    string
	Limit int64 // -1 for no limit
}

func (q *Queries) FindEntries(ctx context.Context, arg FindEntriesParams) ([]EntryRow, error) {
	rows, err := q.db.QueryContext(ctx, findEntries,
		arg.Kind, arg.Kind,
		arg.From, arg.From,
		arg.To, arg.To,
		arg.Limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []EntryRow
	for rows.Next() {
		var i EntryRow
		if err := rows.Scan(
			&i.ID,
			&i.EntryDate,
			&i.Kind,
			&i.AmountCents,
			&i.Description,
			&i.CategoryID,
			&i.CategoryName,
			&i.AccountID,
			&i.AccountName,
			&i.ResponsibleID,
			&i.ResponsibleName,
			&i.GoalID,
			&i.GoalDescription,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const sumByKind = `-- name: SumByKind :one
SELECT CAST(COALESCE(SUM(amount_cents), 0) AS INTEGER)
FROM entries
WHERE kind = ? AND entry_date BETWEEN ? AND ?
`

type SumByKindParams struct {
	Kind string
	From string
	To   string
}

func (q *Queries) SumByKind(ctx context.Context, arg SumByKindParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, sumByKind, arg.Kind, arg.From, arg.To)
	var total int64
	err := row.Scan(&total)
	return total, err
}

// Each grouping keys on the referenced id so entries without a reference
// form one blank-labelled group. Groups come back in first-seen order.
const sumByCategory = `-- name: SumByCategory :many
SELECT COALESCE(c.name, '') AS label, CAST(SUM(e.amount_cents) AS INTEGER) AS total_amount
FROM entries e
LEFT JOIN categories c ON c.id = e.category_id
WHERE e.kind = ? AND e.entry_date BETWEEN ? AND ?
GROUP BY e.category_id
ORDER BY MIN(e.id)
`

const sumByResponsible = `-- name: SumByResponsible :many
SELECT COALESCE(r.name, '') AS label, CAST(SUM(e.amount_cents) AS INTEGER) AS total_amount
FROM entries e
LEFT JOIN responsibles r ON r.id = e.responsible_id
WHERE e.kind = ? AND e.entry_date BETWEEN ? AND ?
GROUP BY e.responsible_id
ORDER BY MIN(e.id)
`

const sumByAccount = `-- name: SumByAccount :many
SELECT COALESCE(a.name, '') AS label, CAST(SUM(e.amount_cents) AS INTEGER) AS total_amount
FROM entries e
LEFT JOIN accounts a ON a.id = e.account_id
WHERE e.kind = ? AND e.entry_date BETWEEN ? AND ?
GROUP BY e.account_id
ORDER BY MIN(e.id)
`

func (q *Queries) SumByCategory(ctx context.Context, arg SumByKindParams) ([]GroupSumRow, error) {
	return q.groupSums(ctx, sumByCategory, arg)
}

func (q *Queries) SumByResponsible(ctx context.Context, arg SumByKindParams) ([]GroupSumRow, error) {
	return q.groupSums(ctx, sumByResponsible, arg)
}

func (q *Queries) SumByAccount(ctx context.Context, arg SumByKindParams) ([]GroupSumRow, error) {
	return q.groupSums(ctx, sumByAccount, arg)
}

func (q *Queries) groupSums(ctx context.Context, query string, arg SumByKindParams) ([]GroupSumRow, error) {
	rows, err := q.db.QueryContext(ctx, query, arg.Kind, arg.From, arg.To)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []GroupSumRow
	for rows.Next() {
		var i GroupSumRow
		if err := rows.Scan(&i.Label, &i.TotalAmount); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const monthlyTotals = `-- name: MonthlyTotals :many
SELECT
    CAST(substr(entry_date, 1, 4) AS INTEGER) AS year,
    CAST(substr(entry_date, 6, 2) AS INTEGER) AS month,
    CAST(COALESCE(SUM(CASE WHEN kind = 'INCOME' THEN amount_cents END), 0) AS INTEGER) AS income_cents,
    CAST(COALESCE(SUM(CASE WHEN kind = 'EXPENSE' THEN amount_cents END), 0) AS INTEGER) AS expense_cents
FROM entries
WHERE kind IN ('INCOME', 'EXPENSE')
GROUP BY year, month
ORDER BY year, month
`

func (q *Queries) MonthlyTotals(ctx context.Context) ([]MonthlyTotalRow, error) {
	rows, err := q.db.QueryContext(ctx, monthlyTotals)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []MonthlyTotalRow
	for rows.Next() {
		var i MonthlyTotalRow
		if err := rows.Scan(&i.Year, &i.Month, &i.IncomeCents, &i.ExpenseCents); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const fixedExpenseColumns = `
    f.id, f.description, f.amount_cents, f.due_day, f.payment_method,
    c.id, c.name, a.id, a.name, r.id, r.name,
    f.recurrence_start, f.recurrence_end
FROM fixed_expenses f
LEFT JOIN categories c ON c.id = f.category_id
LEFT JOIN accounts a ON a.id = f.account_id
LEFT JOIN responsibles r ON r.id = f.responsible_id
`

const listFixedExpenses = `-- name: ListFixedExpenses :many
SELECT` + fixedExpenseColumns + `ORDER BY f.id
`

const getFixedExpense = `-- name: GetFixedExpense :one
SELECT` + fixedExpenseColumns + `WHERE f.id = ?
`

func scanFixedExpense(row interface{ Scan(...interface{}) error }) (FixedExpenseRow, error) {
	var i FixedExpenseRow
	err := row.Scan(
		&i.ID,
		&i.Description,
		&i.AmountCents,
		&i.DueDay,
		&i.PaymentMethod,
		&i.CategoryID,
		&i.CategoryName,
		&i.AccountID,
		&i.AccountName,
		&i.ResponsibleID,
		&i.ResponsibleName,
		&i.RecurrenceStart,
		&i.RecurrenceEnd,
	)
	return i, err
}

func (q *Queries) ListFixedExpenses(ctx context.Context) ([]FixedExpenseRow, error) {
	rows, err := q.db.QueryContext(ctx, listFixedExpenses)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []FixedExpenseRow
	for rows.Next() {
		i, err := scanFixedExpense(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (q *Queries) GetFixedExpense(ctx context.Context, id int64) (FixedExpenseRow, error) {
	return scanFixedExpense(q.db.QueryRowContext(ctx, getFixedExpense, id))
}

const listPayments = `-- name: ListPayments :many
SELECT id, fixed_expense_id, reference_month, reference_year, paid, payment_date
FROM fixed_expense_payments
WHERE reference_month = ? AND reference_year = ?
ORDER BY id
`

func (q *Queries) ListPayments(ctx context.Context, month, year int64) ([]FixedExpensePayment, error) {
	rows, err := q.db.QueryContext(ctx, listPayments, month, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []FixedExpensePayment
	for rows.Next() {
		var i FixedExpensePayment
		if err := rows.Scan(
			&i.ID,
			&i.FixedExpenseID,
			&i.ReferenceMonth,
			&i.ReferenceYear,
			&i.Paid,
			&i.PaymentDate,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const upsertPayment = `-- name: UpsertPayment :one
INSERT INTO fixed_expense_payments (fixed_expense_id, reference_month, reference_year, paid, payment_date)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (fixed_expense_id, reference_month, reference_year) DO UPDATE SET
    paid = excluded.paid,
    payment_date = excluded.payment_date,
    updated_at = CURRENT_TIMESTAMP
RETURNING id, fixed_expense_id, reference_month, reference_year, paid, payment_date
`

type UpsertPaymentParams struct {
	FixedExpenseID int64
	ReferenceMonth int64
	ReferenceYear  int64
	Paid           int64
	PaymentDate    sql.NullString
}

func (q *Queries) UpsertPayment(ctx context.Context, arg UpsertPaymentParams) (FixedExpensePayment, error) {
	row := q.db.QueryRowContext(ctx, upsertPayment,
		arg.FixedExpenseID,
		arg.ReferenceMonth,
		arg.ReferenceYear,
		arg.Paid,
		arg.PaymentDate,
	)
	var i FixedExpensePayment
	err := row.Scan(
		&i.ID,
		&i.FixedExpenseID,
		&i.ReferenceMonth,
		&i.ReferenceYear,
		&i.Paid,
		&i.PaymentDate,
	)
	return i, err
}

const listGoals = `-- name: ListGoals :many
SELECT g.id, g.description, g.target_amount_cents, g.reference_month, g.reference_year,
    c.id, c.name, r.id, r.name, g.active
FROM goals g
LEFT JOIN categories c ON c.id = g.category_id
LEFT JOIN responsibles r ON r.id = g.responsible_id
ORDER BY g.id
`

func (q *Queries) ListGoals(ctx context.Context) ([]GoalRow, error) {
	rows, err := q.db.QueryContext(ctx, listGoals)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []GoalRow
	for rows.Next() {
		var i GoalRow
		if err := rows.Scan(
			&i.ID,
			&i.Description,
			&i.TargetAmountCents,
			&i.ReferenceMonth,
			&i.ReferenceYear,
			&i.CategoryID,
			&i.CategoryName,
			&i.ResponsibleID,
			&i.ResponsibleName,
			&i.Active,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const ensureCategory = `-- name: EnsureCategory :one
INSERT INTO categories (name) VALUES (?)
ON CONFLICT (name) DO UPDATE SET name = excluded.name
RETURNING id
`

const ensureAccount = `-- name: EnsureAccount :one
INSERT INTO accounts (name) VALUES (?)
ON CONFLICT (name) DO UPDATE SET name = excluded.name
RETURNING id
`

const ensureResponsible = `-- name: EnsureResponsible :one
INSERT INTO responsibles (name) VALUES (?)
ON CONFLICT (name) DO UPDATE SET name = excluded.name
RETURNING id
`

func (q *Queries) EnsureCategory(ctx context.Context, name string) (int64, error) {
	return q.ensure(ctx, ensureCategory, name)
}

func (q *Queries) EnsureAccount(ctx context.Context, name string) (int64, error) {
	return q.ensure(ctx, ensureAccount, name)
}

func (q *Queries) EnsureResponsible(ctx context.Context, name string) (int64, error) {
	return q.ensure(ctx, ensureResponsible, name)
}

func (q *Queries) ensure(ctx context.Context, query, name string) (int64, error) {
	var id int64
	err := q.db.QueryRowContext(ctx, query, name).Scan(&id)
	return id, err
}

const createEntry = `-- name: CreateEntry :one
INSERT INTO entries (entry_date, kind, amount_cents, description, category_id, account_id, responsible_id, goal_id)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
RETURNING id
`

type CreateEntryParams struct {
	EntryDate     string
	Kind          string
	AmountCents   int64
	Description   string
	CategoryID    sql.NullInt64
	AccountID     sql.NullInt64
	ResponsibleID sql.NullInt64
	GoalID        sql.NullInt64
}

func (q *Queries) CreateEntry(ctx context.Context, arg CreateEntryParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, createEntry,
		arg.EntryDate,
		arg.Kind,
		arg.AmountCents,
		arg.Description,
		arg.CategoryID,
		arg.AccountID,
		arg.ResponsibleID,
		arg.GoalID,
	)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const createFixedExpense = `-- name: CreateFixedExpense :one
INSERT INTO fixed_expenses (description, amount_cents, due_day, payment_method, category_id, account_id, responsible_id, recurrence_start, recurrence_end)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING id
`

type CreateFixedExpenseParams struct {
	Description     string
	AmountCents     int64
	DueDay          int64
	PaymentMethod   string
	CategoryID      sql.NullInt64
	AccountID       sql.NullInt64
	ResponsibleID   sql.NullInt64
	RecurrenceStart sql.NullString
	RecurrenceEnd   sql.NullString
}

func (q *Queries) CreateFixedExpense(ctx context.Context, arg CreateFixedExpenseParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, createFixedExpense,
		arg.Description,
		arg.AmountCents,
		arg.DueDay,
		arg.PaymentMethod,
		arg.CategoryID,
		arg.AccountID,
		arg.ResponsibleID,
		arg.RecurrenceStart,
		arg.RecurrenceEnd,
	)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const createGoal = `-- name: CreateGoal :one
INSERT INTO goals (description, target_amount_cents, reference_month, reference_year, category_id, responsible_id, active)
VALUES (?, ?, ?, ?, ?, ?, ?)
RETURNING id
`

type CreateGoalParams struct {
	Description       string
	TargetAmountCents int64
	ReferenceMonth    sql.NullInt64
	ReferenceYear     sql.NullInt64
	CategoryID        sql.NullInt64
	ResponsibleID     sql.NullInt64
	Active            int64
}

func (q *Queries) CreateGoal(ctx context.Context, arg CreateGoalParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, createGoal,
		arg.Description,
		arg.TargetAmountCents,
		arg.ReferenceMonth,
		arg.ReferenceYear,
		arg.CategoryID,
		arg.ResponsibleID,
		arg.Active,
	)
	var id int64
	err := row.Scan(&id)
	return id, err
}
