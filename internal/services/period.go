package services

import (
	"fmt"

	"financas/internal/core"
)

// ResolvePeriod turns a year and month into the inclusive interval from the
// first to the last calendar day of that month.
func ResolvePeriod(year, month int) (core.Period, error) {
	if month < 1 || month > 12 {
		return core.Period{}, fmt.Errorf("%w: month %d must be between 1 and 12", core.ErrInvalidPeriod, month)
	}
	return core.Period{
		Year:  year,
		Month: month,
		Start: core.NewDate(year, month, 1),
		End:   core.NewDate(year, month, core.DaysIn(year, month)),
	}, nil
}

// PeriodResolver applies the data-availability floor: periods starting
// before Floor are answered with an empty dashboard instead of being queried.
type PeriodResolver struct {
	Floor core.Date
}

// Resolve validates the month and reports whether data is available for it.
func (r PeriodResolver) Resolve(year, month int) (core.Period, bool, error) {
	p, err := ResolvePeriod(year, month)
	if err != nil {
		return core.Period{}, false, err
	}
	return p, r.Available(p), nil
}

// Available reports whether p starts on or after the floor.
func (r PeriodResolver) Available(p core.Period) bool {
	if r.Floor.IsEmpty() {
		return true
	}
	return !p.Start.Before(r.Floor.Time)
}
