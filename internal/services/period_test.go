package services

import (
	"errors"
	"testing"

	"financas/internal/core"
)

func TestResolvePeriodBounds(t *testing.T) {
	lastDay := map[int]int{1: 31, 2: 28, 3: 31, 4: 30, 5: 31, 6: 30, 7: 31, 8: 31, 9: 30, 10: 31, 11: 30, 12: 31}
	for m := 1; m <= 12; m++ {
		p, err := ResolvePeriod(2025, m)
		if err != nil {
			t.Fatalf("month %d: %v", m, err)
		}
		if p.Start.Day() != 1 || p.Start.Month() != m {
			t.Fatalf("month %d: bad start %s", m, p.Start)
		}
		if p.End.Day() != lastDay[m] || p.End.Month() != m {
			t.Fatalf("month %d: bad end %s", m, p.End)
		}
		if p.End.Before(p.Start.Time) {
			t.Fatalf("month %d: end before start", m)
		}
	}
}

func TestResolvePeriodLeapYear(t *testing.T) {
	p, err := ResolvePeriod(2024, 2)
	if err != nil {
		t.Fatal(err)
	}
	if got := p.End.String(); got != "2024-02-29" {
		t.Fatalf("expected 2024-02-29, got %s", got)
	}
}

func TestResolvePeriodInvalidMonth(t *testing.T) {
	for _, m := range []int{0, 13, -1} {
		if _, err := ResolvePeriod(2025, m); !errors.Is(err, core.ErrInvalidPeriod) {
			t.Fatalf("month %d: expected ErrInvalidPeriod, got %v", m, err)
		}
	}
}

func TestPeriodResolverFloor(t *testing.T) {
	r := PeriodResolver{Floor: core.NewDate(2025, 11, 1)}
	tests := []struct {
		year, month int
		want        bool
	}{
		{2025, 10, false},
		{2025, 11, true},
		{2026, 1, true},
		{2024, 12, false},
	}
	for _, tt := range tests {
		_, ok, err := r.Resolve(tt.year, tt.month)
		if err != nil {
			t.Fatal(err)
		}
		if ok != tt.want {
			t.Fatalf("%d-%d: available=%v, want %v", tt.year, tt.month, ok, tt.want)
		}
	}

	if _, ok, _ := (PeriodResolver{}).Resolve(1999, 1); !ok {
		t.Fatalf("empty floor must accept every period")
	}
}
