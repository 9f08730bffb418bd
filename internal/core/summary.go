package core

import "github.com/shopspring/decimal"

// GroupTotal represents an amount aggregated by a referenced entity name.
// Entries without a reference are grouped under a blank label.
type GroupTotal struct {
	Label string          `json:"label"`
	Total decimal.Decimal `json:"total"`
}

// MonthlyAggregate is one row of the all-time ledger aggregate.
type MonthlyAggregate struct {
	Year            int
	Month           int // 1-12
	Income          decimal.Decimal
	VariableExpense decimal.Decimal
}

// MonthlyPoint is one month of the yearly comparison series.
type MonthlyPoint struct {
	Year            int             `json:"year"`
	Month           int             `json:"month"`
	Income          decimal.Decimal `json:"income"`
	VariableExpense decimal.Decimal `json:"variableExpense"`
	FixedExpense    decimal.Decimal `json:"fixedExpense"`
}

// FixedExpenseStatus is a fixed expense reconciled with its payment record
// for one month.
type FixedExpenseStatus struct {
	ID            int64           `json:"id"`
	Description   string          `json:"description"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod PaymentMethod   `json:"paymentMethod"`
	DueDate       Date            `json:"dueDate"`
	Paid          bool            `json:"paid"`
	PaymentDate   Date            `json:"paymentDate"`
}

// RecentEntry is the read-only projection of a ledger entry shown on the
// dashboard.
type RecentEntry struct {
	ID          int64           `json:"id"`
	Date        Date            `json:"date"`
	Kind        EntryKind       `json:"kind"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Account     string          `json:"account"`
	Responsible string          `json:"responsible"`
	Goal        string          `json:"goal"`
}

// Groupings holds the dimensional breakdowns of one period.
type Groupings struct {
	IncomeByCategory     []GroupTotal `json:"incomeByCategory"`
	IncomeByResponsible  []GroupTotal `json:"incomeByResponsible"`
	IncomeByAccount      []GroupTotal `json:"incomeByAccount"`
	ExpenseByCategory    []GroupTotal `json:"expenseByCategory"`
	ExpenseByResponsible []GroupTotal `json:"expenseByResponsible"`
	ExpenseByAccount     []GroupTotal `json:"expenseByAccount"`
	FixedByCategory      []GroupTotal `json:"fixedByCategory"`
	FixedByResponsible   []GroupTotal `json:"fixedByResponsible"`
}

// DashboardResult is the full financial picture of one month.
type DashboardResult struct {
	Year                   int                  `json:"year"`
	Month                  int                  `json:"month"`
	DataAvailable          bool                 `json:"dataAvailable"`
	Message                string               `json:"message,omitempty"`
	TotalIncome            decimal.Decimal      `json:"totalIncome"`
	TotalVariableExpense   decimal.Decimal      `json:"totalVariableExpense"`
	TotalFixedExpense      decimal.Decimal      `json:"totalFixedExpense"`
	Balance                decimal.Decimal      `json:"balance"`
	Groupings              Groupings            `json:"groupings"`
	FixedExpenseStatusList []FixedExpenseStatus `json:"fixedExpenseStatusList"`
	MonthlySeries          []MonthlyPoint       `json:"monthlySeries"`
	RecentEntries          []RecentEntry        `json:"recentEntries"`
}

// EmptyGroupings returns groupings whose lists are all empty, not nil.
func EmptyGroupings() Groupings {
	return Groupings{
		IncomeByCategory:     []GroupTotal{},
		IncomeByResponsible:  []GroupTotal{},
		IncomeByAccount:      []GroupTotal{},
		ExpenseByCategory:    []GroupTotal{},
		ExpenseByResponsible: []GroupTotal{},
		ExpenseByAccount:     []GroupTotal{},
		FixedByCategory:      []GroupTotal{},
		FixedByResponsible:   []GroupTotal{},
	}
}
