package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"financas/internal/core"
	"financas/internal/ports"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// DefaultRecentLimit is the page size of recent entries when none is set.
const DefaultRecentLimit = 20

// DashboardConfig tunes the dashboard composition.
type DashboardConfig struct {
	// Floor is the first day for which data is trusted. Zero disables it.
	Floor          core.Date
	SalaryCategory string
	WindowDays     int
	// Timeout bounds one GetDashboard or SetFixedExpensePaid call. Zero
	// leaves the caller's deadline untouched.
	Timeout     time.Duration
	RecentLimit int
}

// DashboardService composes the monthly financial picture. It keeps no
// per-request state; every call builds its result from collaborator reads.
type DashboardService struct {
	store       ports.Store
	periods     PeriodResolver
	normalizer  *IncomeNormalizer
	aggregator  *Aggregator
	reconciler  *Reconciler
	series      *SeriesBuilder
	timeout     time.Duration
	recentLimit int
}

// NewDashboardService wires the engine over store. publisher may be nil.
func NewDashboardService(store ports.Store, publisher ports.PaymentPublisher, cfg DashboardConfig) *DashboardService {
	if cfg.WindowDays == 0 {
		cfg.WindowDays = DefaultSalaryWindowDays
	}
	if cfg.RecentLimit <= 0 {
		cfg.RecentLimit = DefaultRecentLimit
	}
	reconciler := NewReconciler(store, store, publisher)
	return &DashboardService{
		store:       store,
		periods:     PeriodResolver{Floor: cfg.Floor},
		normalizer:  NewIncomeNormalizer(store, cfg.SalaryCategory, cfg.WindowDays),
		aggregator:  NewAggregator(store),
		reconciler:  reconciler,
		series:      NewSeriesBuilder(store, reconciler),
		timeout:     cfg.Timeout,
		recentLimit: cfg.RecentLimit,
	}
}

// Reconciler exposes the fixed-expense reconciler used by the service.
func (s *DashboardService) Reconciler() *Reconciler {
	return s.reconciler
}

// GetDashboard builds the dashboard for year/month. Months before the
// availability floor yield an empty result with DataAvailable=false and no
// collaborator is queried for them.
func (s *DashboardService) GetDashboard(ctx context.Context, year, month int) (*core.DashboardResult, error) {
	start := time.Now()

	p, available, err := s.periods.Resolve(year, month)
	if err != nil {
		slog.WarnContext(ctx, "Rejected dashboard request", "year", year, "month", month, "error", err)
		return nil, err
	}
	if !available {
		slog.InfoContext(ctx, "Dashboard requested before data floor", "year", year, "month", month, "floor", s.periods.Floor.String())
		return s.unavailable(p), nil
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	res := &core.DashboardResult{
		Year:          year,
		Month:         month,
		DataAvailable: true,
	}
	var (
		rawIncome  decimal.Decimal
		adjustment decimal.Decimal
		catalog    []core.FixedExpense
	)

	g, gctx := errgroup.WithContext(ctx)
	loadCatalog := sync.OnceValues(func() ([]core.FixedExpense, error) {
		return s.reconciler.Catalog(gctx)
	})

	g.Go(func() (err error) {
		rawIncome, err = s.aggregator.TotalByKind(gctx, core.Income, p)
		return err
	})
	g.Go(func() (err error) {
		adjustment, err = s.normalizer.Adjustment(gctx, p)
		return err
	})
	g.Go(func() (err error) {
		res.TotalVariableExpense, err = s.aggregator.TotalByKind(gctx, core.Expense, p)
		return err
	})

	groupings := []struct {
		dim  ports.Dimension
		kind core.EntryKind
		dst  *[]core.GroupTotal
	}{
		{ports.ByCategory, core.Income, &res.Groupings.IncomeByCategory},
		{ports.ByResponsible, core.Income, &res.Groupings.IncomeByResponsible},
		{ports.ByAccount, core.Income, &res.Groupings.IncomeByAccount},
		{ports.ByCategory, core.Expense, &res.Groupings.ExpenseByCategory},
		{ports.ByResponsible, core.Expense, &res.Groupings.ExpenseByResponsible},
		{ports.ByAccount, core.Expense, &res.Groupings.ExpenseByAccount},
	}
	for _, gr := range groupings {
		g.Go(func() (err error) {
			*gr.dst, err = s.aggregator.GroupBy(gctx, gr.dim, gr.kind, p)
			return err
		})
	}

	g.Go(func() (err error) {
		catalog, err = loadCatalog()
		return err
	})
	g.Go(func() error {
		c, err := loadCatalog()
		if err != nil {
			return err
		}
		res.FixedExpenseStatusList, err = s.reconciler.StatusListFor(gctx, c, year, month)
		return err
	})
	g.Go(func() error {
		c, err := loadCatalog()
		if err != nil {
			return err
		}
		res.MonthlySeries, err = s.series.BuildFor(gctx, c, year)
		return err
	})
	g.Go(func() (err error) {
		res.RecentEntries, err = s.recentEntries(gctx, p)
		return err
	})

	if err := g.Wait(); err != nil {
		if cerr := context.Cause(ctx); cerr != nil && errors.Is(cerr, context.Canceled) {
			return nil, fmt.Errorf("dashboard %s: %w", p.Key(), cerr)
		}
		return nil, err
	}

	res.TotalIncome = rawIncome.Add(adjustment)
	res.TotalFixedExpense = ActiveTotal(catalog, p)
	res.Balance = Balance(res.TotalIncome, res.TotalVariableExpense, res.TotalFixedExpense)
	res.Groupings.FixedByCategory = GroupFixedExpenses(catalog, p, ports.ByCategory)
	res.Groupings.FixedByResponsible = GroupFixedExpenses(catalog, p, ports.ByResponsible)

	slog.DebugContext(ctx, "Dashboard composed",
		"year", year,
		"month", month,
		"total_income", res.TotalIncome.String(),
		"balance", res.Balance.String(),
		"duration_ms", time.Since(start).Milliseconds())
	return res, nil
}

// SetFixedExpensePaid marks a fixed expense paid or unpaid for month/year.
func (s *DashboardService) SetFixedExpensePaid(ctx context.Context, expenseID int64, month, year int, paid bool) (core.FixedExpensePayment, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.reconciler.SetPaid(ctx, expenseID, month, year, paid)
}

func (s *DashboardService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *DashboardService) unavailable(p core.Period) *core.DashboardResult {
	return &core.DashboardResult{
		Year:                   p.Year,
		Month:                  p.Month,
		DataAvailable:          false,
		Message:                fmt.Sprintf("Data available only from %s", s.periods.Floor.Format("January 2006")),
		TotalIncome:            decimal.Zero,
		TotalVariableExpense:   decimal.Zero,
		TotalFixedExpense:      decimal.Zero,
		Balance:                decimal.Zero,
		Groupings:              core.EmptyGroupings(),
		FixedExpenseStatusList: []core.FixedExpenseStatus{},
		MonthlySeries:          []core.MonthlyPoint{},
		RecentEntries:          []core.RecentEntry{},
	}
}

// recentEntries returns the newest entries of p. Goal names missing from the
// entries are resolved with a single goal read.
func (s *DashboardService) recentEntries(ctx context.Context, p core.Period) ([]core.RecentEntry, error) {
	entries, err := s.store.FindEntries(ctx, ports.EntryFilter{From: p.Start, To: p.End, Limit: s.recentLimit})
	if err != nil {
		slog.ErrorContext(ctx, "Failed to load recent entries", "year", p.Year, "month", p.Month, "error", err)
		return nil, core.Unavailable("find recent entries", err)
	}

	var goalNames map[int64]string
	for _, e := range entries {
		if e.Goal != nil && e.Goal.Name == "" {
			goalNames, err = s.goalNames(ctx)
			if err != nil {
				return nil, err
			}
			break
		}
	}

	out := make([]core.RecentEntry, 0, len(entries))
	for _, e := range entries {
		goal := e.Goal.Label()
		if e.Goal != nil && goal == "" {
			goal = goalNames[e.Goal.ID]
		}
		out = append(out, core.RecentEntry{
			ID:          e.ID,
			Date:        e.Date,
			Kind:        e.Kind,
			Description: e.Description,
			Amount:      e.Amount,
			Category:    e.Category.Label(),
			Account:     e.Account.Label(),
			Responsible: e.Responsible.Label(),
			Goal:        goal,
		})
	}
	return out, nil
}

func (s *DashboardService) goalNames(ctx context.Context) (map[int64]string, error) {
	goals, err := s.store.ListGoals(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to list goals", "error", err)
		return nil, core.Unavailable("list goals", err)
	}
	names := make(map[int64]string, len(goals))
	for _, g := range goals {
		names[g.ID] = g.Description
	}
	return names, nil
}
