package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"financas/internal/core"
	"financas/internal/ports"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

// SQLiteRepository implements every collaborator port on a SQLite file.
// Amounts are stored as integer cents and dates as YYYY-MM-DD text.
type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

var _ ports.Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database answers.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) FindEntries(ctx context.Context, f ports.EntryFilter) ([]core.Entry, error) {
	limit := int64(-1)
	if f.Limit > 0 {
		limit = int64(f.Limit)
	}
	rows, err := r.queries.FindEntries(ctx, FindEntriesParams{
		Kind:  string(f.Kind),
		From:  f.From.String(),
		To:    f.To.String(),
		Limit: limit,
	})
	if err != nil {
		return nil, fmt.Errorf("find entries: %w", err)
	}

	entries := make([]core.Entry, 0, len(rows))
	for _, row := range rows {
		e, err := entryFromRow(row)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (r *SQLiteRepository) SumByKind(ctx context.Context, kind core.EntryKind, from, to core.Date) (decimal.Decimal, error) {
	cents, err := r.queries.SumByKind(ctx, SumByKindParams{
		Kind: string(kind),
		From: from.String(),
		To:   to.String(),
	})
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum %s entries: %w", kind, err)
	}
	return core.FromCents(cents), nil
}

func (r *SQLiteRepository) GroupByKind(ctx context.Context, dim ports.Dimension, kind core.EntryKind, from, to core.Date) ([]core.GroupTotal, error) {
	arg := SumByKindParams{Kind: string(kind), From: from.String(), To: to.String()}

	var (
		rows []GroupSumRow
		err  error
	)
	switch dim {
	case ports.ByCategory:
		rows, err = r.queries.SumByCategory(ctx, arg)
	case ports.ByResponsible:
		rows, err = r.queries.SumByResponsible(ctx, arg)
	case ports.ByAccount:
		rows, err = r.queries.SumByAccount(ctx, arg)
	default:
		return nil, fmt.Errorf("unsupported dimension %q", dim)
	}
	if err != nil {
		return nil, fmt.Errorf("group %s entries by %s: %w", kind, dim, err)
	}

	groups := make([]core.GroupTotal, len(rows))
	for i, row := range rows {
		groups[i] = core.GroupTotal{Label: row.Label, Total: core.FromCents(row.TotalAmount)}
	}
	return groups, nil
}

func (r *SQLiteRepository) MonthlyTotals(ctx context.Context) ([]core.MonthlyAggregate, error) {
	rows, err := r.queries.MonthlyTotals(ctx)
	if err != nil {
		return nil, fmt.Errorf("monthly totals: %w", err)
	}
	out := make([]core.MonthlyAggregate, len(rows))
	for i, row := range rows {
		out[i] = core.MonthlyAggregate{
			Year:            int(row.Year),
			Month:           int(row.Month),
			Income:          core.FromCents(row.IncomeCents),
			VariableExpense: core.FromCents(row.ExpenseCents),
		}
	}
	return out, nil
}

func (r *SQLiteRepository) ListFixedExpenses(ctx context.Context) ([]core.FixedExpense, error) {
	rows, err := r.queries.ListFixedExpenses(ctx)
	if err != nil {
		return nil, fmt.Errorf("list fixed expenses: %w", err)
	}
	out := make([]core.FixedExpense, 0, len(rows))
	for _, row := range rows {
		fe, err := fixedExpenseFromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, fe)
	}
	return out, nil
}

func (r *SQLiteRepository) GetFixedExpense(ctx context.Context, id int64) (core.FixedExpense, error) {
	row, err := r.queries.GetFixedExpense(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.FixedExpense{}, fmt.Errorf("fixed expense %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.FixedExpense{}, fmt.Errorf("get fixed expense %d: %w", id, err)
	}
	return fixedExpenseFromRow(row)
}

func (r *SQLiteRepository) ListPayments(ctx context.Context, month, year int) ([]core.FixedExpensePayment, error) {
	rows, err := r.queries.ListPayments(ctx, int64(month), int64(year))
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	out := make([]core.FixedExpensePayment, 0, len(rows))
	for _, row := range rows {
		p, err := paymentFromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// UpsertPayment relies on the unique (fixed_expense_id, reference_month,
// reference_year) index, so concurrent writers converge on one row.
func (r *SQLiteRepository) UpsertPayment(ctx context.Context, p core.FixedExpensePayment) (core.FixedExpensePayment, error) {
	var paid int64
	if p.Paid {
		paid = 1
	}
	row, err := r.queries.UpsertPayment(ctx, UpsertPaymentParams{
		FixedExpenseID: p.FixedExpenseID,
		ReferenceMonth: int64(p.Month),
		ReferenceYear:  int64(p.Year),
		Paid:           paid,
		PaymentDate:    nullDate(p.PaymentDate),
	})
	if err != nil {
		return core.FixedExpensePayment{}, fmt.Errorf("upsert payment: %w", err)
	}

	slog.DebugContext(ctx, "Payment saved to SQLite",
		"id", row.ID,
		"fixed_expense_id", row.FixedExpenseID,
		"month", row.ReferenceMonth,
		"year", row.ReferenceYear,
		"paid", row.Paid == 1)

	return paymentFromRow(row)
}

func (r *SQLiteRepository) ListGoals(ctx context.Context) ([]core.Goal, error) {
	rows, err := r.queries.ListGoals(ctx)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	out := make([]core.Goal, len(rows))
	for i, row := range rows {
		out[i] = core.Goal{
			ID:           row.ID,
			Description:  row.Description,
			TargetAmount: core.FromCents(row.TargetAmountCents),
			Month:        int(row.ReferenceMonth.Int64),
			Year:         int(row.ReferenceYear.Int64),
			Category:     ref(row.CategoryID, row.CategoryName),
			Responsible:  ref(row.ResponsibleID, row.ResponsibleName),
			Active:       row.Active == 1,
		}
	}
	return out, nil
}

// AddEntry stores e, creating referenced categories, accounts and
// responsibles by name. Goal references must point at an existing goal id.
func (r *SQLiteRepository) AddEntry(ctx context.Context, e core.Entry) (core.Entry, error) {
	e = e.Normalize()
	if err := e.Validate(); err != nil {
		return core.Entry{}, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Entry{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()
	q := r.queries.WithTx(tx)

	categoryID, accountID, responsibleID, err := ensureRefs(ctx, q, e.Category, e.Account, e.Responsible)
	if err != nil {
		return core.Entry{}, err
	}
	var goalID sql.NullInt64
	if e.Goal != nil {
		goalID = sql.NullInt64{Int64: e.Goal.ID, Valid: true}
	}

	id, err := q.CreateEntry(ctx, CreateEntryParams{
		EntryDate:     e.Date.String(),
		Kind:          string(e.Kind),
		AmountCents:   core.ToCents(e.Amount),
		Description:   e.Description,
		CategoryID:    categoryID,
		AccountID:     accountID,
		ResponsibleID: responsibleID,
		GoalID:        goalID,
	})
	if err != nil {
		return core.Entry{}, fmt.Errorf("create entry: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return core.Entry{}, fmt.Errorf("commit entry: %w", err)
	}

	e.ID = id
	return e, nil
}

// AddFixedExpense stores fe, creating referenced entities by name.
func (r *SQLiteRepository) AddFixedExpense(ctx context.Context, fe core.FixedExpense) (core.FixedExpense, error) {
	if err := fe.Validate(); err != nil {
		return core.FixedExpense{}, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.FixedExpense{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()
	q := r.queries.WithTx(tx)

	categoryID, accountID, responsibleID, err := ensureRefs(ctx, q, fe.Category, fe.Account, fe.Responsible)
	if err != nil {
		return core.FixedExpense{}, err
	}

	id, err := q.CreateFixedExpense(ctx, CreateFixedExpenseParams{
		Description:     fe.Description,
		AmountCents:     core.ToCents(fe.Amount),
		DueDay:          int64(fe.DueDay),
		PaymentMethod:   string(fe.Method()),
		CategoryID:      categoryID,
		AccountID:       accountID,
		ResponsibleID:   responsibleID,
		RecurrenceStart: nullDate(fe.RecurrenceStart),
		RecurrenceEnd:   nullDate(fe.RecurrenceEnd),
	})
	if err != nil {
		return core.FixedExpense{}, fmt.Errorf("create fixed expense: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return core.FixedExpense{}, fmt.Errorf("commit fixed expense: %w", err)
	}

	fe.ID = id
	return fe, nil
}

// AddGoal stores g, creating referenced entities by name.
func (r *SQLiteRepository) AddGoal(ctx context.Context, g core.Goal) (core.Goal, error) {
	if strings.TrimSpace(g.Description) == "" {
		return core.Goal{}, core.ErrEmptyDescription
	}
	if !core.WholeCents(g.TargetAmount) {
		return core.Goal{}, fmt.Errorf("%w: %s has fractions of a cent", core.ErrInvalidAmount, g.TargetAmount)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Goal{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()
	q := r.queries.WithTx(tx)

	categoryID, _, responsibleID, err := ensureRefs(ctx, q, g.Category, nil, g.Responsible)
	if err != nil {
		return core.Goal{}, err
	}
	var active int64
	if g.Active {
		active = 1
	}
	id, err := q.CreateGoal(ctx, CreateGoalParams{
		Description:       g.Description,
		TargetAmountCents: core.ToCents(g.TargetAmount),
		ReferenceMonth:    nullInt(g.Month),
		ReferenceYear:     nullInt(g.Year),
		CategoryID:        categoryID,
		ResponsibleID:     responsibleID,
		Active:            active,
	})
	if err != nil {
		return core.Goal{}, fmt.Errorf("create goal: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return core.Goal{}, fmt.Errorf("commit goal: %w", err)
	}

	g.ID = id
	return g, nil
}

func ensureRefs(ctx context.Context, q *Queries, category, account, responsible *core.Ref) (c, a, r sql.NullInt64, err error) {
	if c, err = ensureRef(ctx, category, q.EnsureCategory); err != nil {
		return c, a, r, fmt.Errorf("ensure category: %w", err)
	}
	if a, err = ensureRef(ctx, account, q.EnsureAccount); err != nil {
		return c, a, r, fmt.Errorf("ensure account: %w", err)
	}
	if r, err = ensureRef(ctx, responsible, q.EnsureResponsible); err != nil {
		return c, a, r, fmt.Errorf("ensure responsible: %w", err)
	}
	return c, a, r, nil
}

func ensureRef(ctx context.Context, ref *core.Ref, ensure func(context.Context, string) (int64, error)) (sql.NullInt64, error) {
	name := strings.TrimSpace(ref.Label())
	if name == "" {
		return sql.NullInt64{}, nil
	}
	id, err := ensure(ctx, name)
	if err != nil {
		return sql.NullInt64{}, err
	}
	return sql.NullInt64{Int64: id, Valid: true}, nil
}

func entryFromRow(row EntryRow) (core.Entry, error) {
	date, err := core.ParseDate(row.EntryDate)
	if err != nil {
		return core.Entry{}, fmt.Errorf("entry %d: %w", row.ID, err)
	}
	return core.Entry{
		ID:          row.ID,
		Date:        date,
		Kind:        core.EntryKind(row.Kind),
		Amount:      core.FromCents(row.AmountCents),
		Description: row.Description,
		Category:    ref(row.CategoryID, row.CategoryName),
		Account:     ref(row.AccountID, row.AccountName),
		Responsible: ref(row.ResponsibleID, row.ResponsibleName),
		Goal:        ref(row.GoalID, row.GoalDescription),
	}, nil
}

func fixedExpenseFromRow(row FixedExpenseRow) (core.FixedExpense, error) {
	start, err := parseNullDate(row.RecurrenceStart)
	if err != nil {
		return core.FixedExpense{}, fmt.Errorf("fixed expense %d recurrence start: %w", row.ID, err)
	}
	end, err := parseNullDate(row.RecurrenceEnd)
	if err != nil {
		return core.FixedExpense{}, fmt.Errorf("fixed expense %d recurrence end: %w", row.ID, err)
	}
	return core.FixedExpense{
		ID:              row.ID,
		Description:     row.Description,
		Amount:          core.FromCents(row.AmountCents),
		DueDay:          int(row.DueDay),
		PaymentMethod:   core.PaymentMethod(row.PaymentMethod),
		Category:        ref(row.CategoryID, row.CategoryName),
		Account:         ref(row.AccountID, row.AccountName),
		Responsible:     ref(row.ResponsibleID, row.ResponsibleName),
		RecurrenceStart: start,
		RecurrenceEnd:   end,
	}, nil
}

func paymentFromRow(row FixedExpensePayment) (core.FixedExpensePayment, error) {
	date, err := parseNullDate(row.PaymentDate)
	if err != nil {
		return core.FixedExpensePayment{}, fmt.Errorf("payment %d: %w", row.ID, err)
	}
	return core.FixedExpensePayment{
		ID:             row.ID,
		FixedExpenseID: row.FixedExpenseID,
		Month:          int(row.ReferenceMonth),
		Year:           int(row.ReferenceYear),
		Paid:           row.Paid == 1,
		PaymentDate:    date,
	}, nil
}

func ref(id sql.NullInt64, name sql.NullString) *core.Ref {
	if !id.Valid {
		return nil
	}
	return &core.Ref{ID: id.Int64, Name: name.String}
}

func nullDate(d core.Date) sql.NullString {
	if d.IsEmpty() {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func nullInt(v int) sql.NullInt64 {
	if v == 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(v), Valid: true}
}

func parseNullDate(s sql.NullString) (core.Date, error) {
	if !s.Valid || s.String == "" {
		return core.Date{}, nil
	}
	return core.ParseDate(s.String)
}
