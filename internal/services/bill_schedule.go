package services

// Strategies deciding which month the bill worker should generate next.

import (
	"fmt"
	"time"

	"cashflow/internal/core"
)

// GenerationSchedule decides whether bills are due for a month.
// lastRun is the month generated most recently, zero when never.
type GenerationSchedule interface {
	Due(now time.Time, lastRun core.Month) (core.Month, bool)
}

// CurrentMonthSchedule generates the current month once its day has been reached.
type CurrentMonthSchedule struct {
	Day int
}

func (s CurrentMonthSchedule) Due(now time.Time, lastRun core.Month) (core.Month, bool) {
	target := core.MonthOf(core.Today(now))
	if lastRun == target {
		return target, false
	}
	return target, reachedDay(now, s.Day)
}

// NextMonthSchedule generates the following month once the lead day of the
// current month has been reached, so bills show up in the forecast early.
type NextMonthSchedule struct {
	LeadDay int
}

func (s NextMonthSchedule) Due(now time.Time, lastRun core.Month) (core.Month, bool) {
	target := core.MonthOf(core.Today(now)).Next()
	if lastRun == target {
		return target, false
	}
	return target, reachedDay(now, s.LeadDay)
}

// reachedDay clamps day to the month length, so 31 means the last day.
func reachedDay(now time.Time, day int) bool {
	today := core.Today(now)
	return !today.Before(core.MonthOf(today).Day(day))
}

var schedules = map[string]func(day int) GenerationSchedule{
	"current_month": func(day int) GenerationSchedule { return CurrentMonthSchedule{Day: day} },
	"next_month":    func(day int) GenerationSchedule { return NextMonthSchedule{LeadDay: day} },
}

// GetSchedule returns the named schedule bound to day.
func GetSchedule(name string, day int) (GenerationSchedule, error) {
	mk, ok := schedules[name]
	if !ok {
		return nil, fmt.Errorf("unknown bill schedule: %s", name)
	}
	return mk(day), nil
}
