package core

import (
	"fmt"
	"time"
)

// Month identifies a calendar month.
type Month struct {
	Year  int
	Month time.Month
}

func NewMonth(year int, month time.Month) Month {
	return Month{Year: year, Month: month}
}

// MonthOf returns the month containing d.
func MonthOf(d Date) Month {
	return Month{Year: d.Year(), Month: d.Time.Month()}
}

// ParseMonth parses "2006-01".
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Month{}, ErrInvalidMonth
	}
	return Month{Year: t.Year(), Month: t.Month()}, nil
}

func (m Month) Validate() error {
	if m.Month < time.January || m.Month > time.December {
		return ErrInvalidMonth
	}
	if m.Year < 1 {
		return ErrInvalidMonth
	}
	return nil
}

// DaysIn returns the number of days in the month.
func (m Month) DaysIn() int {
	return time.Date(m.Year, m.Month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func (m Month) Start() Date {
	return NewDate(m.Year, int(m.Month), 1)
}

func (m Month) End() Date {
	return NewDate(m.Year, int(m.Month), m.DaysIn())
}

// Day returns the given day of the month, clamped to the last valid day.
func (m Month) Day(day int) Date {
	if last := m.DaysIn(); day > last {
		day = last
	}
	if day < 1 {
		day = 1
	}
	return NewDate(m.Year, int(m.Month), day)
}

func (m Month) Contains(d Date) bool {
	return !d.Before(m.Start()) && !d.After(m.End())
}

func (m Month) Next() Month {
	t := time.Date(m.Year, m.Month+1, 1, 0, 0, 0, 0, time.UTC)
	return Month{Year: t.Year(), Month: t.Month()}
}

func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}
