package memory

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"financas/internal/core"
)

// seedFile is the JSON layout accepted by NewFromFile. Amounts are strings
// so they are parsed exactly; dates are YYYY-MM-DD.
type seedFile struct {
	Entries []struct {
		ID          int64  `json:"id"`
		Date        string `json:"date"`
		Kind        string `json:"kind"`
		Amount      string `json:"amount"`
		Description string `json:"description"`
		Category    string `json:"category"`
		Account     string `json:"account"`
		Responsible string `json:"responsible"`
		GoalID      int64  `json:"goal_id"`
	} `json:"entries"`
	FixedExpenses []struct {
		ID              int64  `json:"id"`
		Description     string `json:"description"`
		Amount          string `json:"amount"`
		DueDay          int    `json:"due_day"`
		PaymentMethod   string `json:"payment_method"`
		Category        string `json:"category"`
		Account         string `json:"account"`
		Responsible     string `json:"responsible"`
		RecurrenceStart string `json:"recurrence_start"`
		RecurrenceEnd   string `json:"recurrence_end"`
	} `json:"fixed_expenses"`
	Goals []struct {
		ID           int64  `json:"id"`
		Description  string `json:"description"`
		TargetAmount string `json:"target_amount"`
		Month        int    `json:"month"`
		Year         int    `json:"year"`
		Active       bool   `json:"active"`
	} `json:"goals"`
}

// NewFromFile builds a store seeded from a JSON file. A missing file yields
// an empty store.
func NewFromFile(path string) (*Store, error) {
	s := New()
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read seed %s: %w", path, err)
	}

	var seed seedFile
	if err := json.Unmarshal(b, &seed); err != nil {
		return nil, fmt.Errorf("decode seed %s: %w", path, err)
	}

	refs := newRefTable()

	for i, g := range seed.Goals {
		target := core.FromCents(0)
		if strings.TrimSpace(g.TargetAmount) != "" {
			if target, err = core.ParseAmount(g.TargetAmount); err != nil {
				return nil, fmt.Errorf("seed goal %d: %w", i, err)
			}
		}
		s.AddGoal(core.Goal{
			ID:           g.ID,
			Description:  g.Description,
			TargetAmount: target,
			Month:        g.Month,
			Year:         g.Year,
			Active:       g.Active,
		})
	}

	for i, fe := range seed.FixedExpenses {
		amount, err := core.ParseAmount(fe.Amount)
		if err != nil {
			return nil, fmt.Errorf("seed fixed expense %d: %w", i, err)
		}
		start, err := optionalDate(fe.RecurrenceStart)
		if err != nil {
			return nil, fmt.Errorf("seed fixed expense %d: %w", i, err)
		}
		end, err := optionalDate(fe.RecurrenceEnd)
		if err != nil {
			return nil, fmt.Errorf("seed fixed expense %d: %w", i, err)
		}
		if _, err := s.AddFixedExpense(core.FixedExpense{
			ID:              fe.ID,
			Description:     fe.Description,
			Amount:          amount,
			DueDay:          fe.DueDay,
			PaymentMethod:   core.PaymentMethod(strings.ToUpper(fe.PaymentMethod)),
			Category:        refs.get("category", fe.Category),
			Account:         refs.get("account", fe.Account),
			Responsible:     refs.get("responsible", fe.Responsible),
			RecurrenceStart: start,
			RecurrenceEnd:   end,
		}); err != nil {
			return nil, fmt.Errorf("seed fixed expense %d: %w", i, err)
		}
	}

	for i, e := range seed.Entries {
		date, err := core.ParseDate(e.Date)
		if err != nil {
			return nil, fmt.Errorf("seed entry %d: %w", i, err)
		}
		amount, err := core.ParseAmount(e.Amount)
		if err != nil {
			return nil, fmt.Errorf("seed entry %d: %w", i, err)
		}
		entry := core.Entry{
			ID:          e.ID,
			Date:        date,
			Kind:        core.EntryKind(strings.ToUpper(e.Kind)),
			Amount:      amount,
			Description: e.Description,
			Category:    refs.get("category", e.Category),
			Account:     refs.get("account", e.Account),
			Responsible: refs.get("responsible", e.Responsible),
		}
		if e.GoalID != 0 {
			entry.Goal = &core.Ref{ID: e.GoalID}
		}
		if _, err := s.AddEntry(entry); err != nil {
			return nil, fmt.Errorf("seed entry %d: %w", i, err)
		}
	}

	return s, nil
}

func optionalDate(s string) (core.Date, error) {
	if strings.TrimSpace(s) == "" {
		return core.Date{}, nil
	}
	return core.ParseDate(s)
}

// refTable hands out stable ids for names, one sequence per entity kind.
type refTable struct {
	ids map[string]map[string]int64
}

func newRefTable() *refTable {
	return &refTable{ids: make(map[string]map[string]int64)}
}

func (t *refTable) get(kind, name string) *core.Ref {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	byName, ok := t.ids[kind]
	if !ok {
		byName = make(map[string]int64)
		t.ids[kind] = byName
	}
	id, ok := byName[name]
	if !ok {
		id = int64(len(byName) + 1)
		byName[name] = id
	}
	return &core.Ref{ID: id, Name: name}
}
