package core

import (
	"testing"
	"time"
)

func TestMonthDaysIn(t *testing.T) {
	cases := []struct {
		m    Month
		days int
	}{
		{NewMonth(2023, time.February), 28},
		{NewMonth(2024, time.February), 29},
		{NewMonth(2024, time.April), 30},
		{NewMonth(2024, time.December), 31},
	}
	for _, tc := range cases {
		if got := tc.m.DaysIn(); got != tc.days {
			t.Fatalf("%s: expected %d, got %d", tc.m, tc.days, got)
		}
	}
}

func TestMonthDayClamps(t *testing.T) {
	if got := NewMonth(2023, time.February).Day(31); !got.Equal(NewDate(2023, 2, 28)) {
		t.Fatalf("got %s", got)
	}
	if got := NewMonth(2024, time.April).Day(15); !got.Equal(NewDate(2024, 4, 15)) {
		t.Fatalf("got %s", got)
	}
}

func TestParseMonthAndNext(t *testing.T) {
	m, err := ParseMonth("2024-12")
	if err != nil {
		t.Fatal(err)
	}
	if m.String() != "2024-12" {
		t.Fatalf("got %s", m)
	}
	if n := m.Next(); n.String() != "2025-01" {
		t.Fatalf("got %s", n)
	}
	if _, err := ParseMonth("2024-13"); err == nil {
		t.Fatal("expected error")
	}
}

func TestMonthContains(t *testing.T) {
	m := NewMonth(2024, time.January)
	if !m.Contains(NewDate(2024, 1, 1)) || !m.Contains(NewDate(2024, 1, 31)) {
		t.Fatal("bounds should be inclusive")
	}
	if m.Contains(NewDate(2024, 2, 1)) {
		t.Fatal("february is outside")
	}
}
