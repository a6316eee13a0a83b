package services

import (
	"context"
	"testing"
	"time"

	"cashflow/internal/core"
	"cashflow/internal/store"
	"cashflow/internal/store/memory"
)

func TestNextMonthSchedule_Due(t *testing.T) {
	s := NextMonthSchedule{LeadDay: 25}
	tests := []struct {
		name    string
		now     time.Time
		lastRun core.Month
		want    bool
		month   string
	}{
		{"before lead day", time.Date(2024, 1, 24, 9, 0, 0, 0, time.UTC), core.Month{}, false, "2024-02"},
		{"on lead day", time.Date(2024, 1, 25, 9, 0, 0, 0, time.UTC), core.Month{}, true, "2024-02"},
		{"already generated", time.Date(2024, 1, 28, 9, 0, 0, 0, time.UTC), core.NewMonth(2024, time.February), false, "2024-02"},
		{"year rollover", time.Date(2024, 12, 30, 9, 0, 0, 0, time.UTC), core.NewMonth(2024, time.December), true, "2025-01"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			month, due := s.Due(tt.now, tt.lastRun)
			if due != tt.want || month.String() != tt.month {
				t.Errorf("Due() = %s %v, want %s %v", month, due, tt.month, tt.want)
			}
		})
	}
}

func TestCurrentMonthSchedule_ClampsDay(t *testing.T) {
	s := CurrentMonthSchedule{Day: 31}
	if _, due := s.Due(time.Date(2023, 2, 27, 0, 0, 0, 0, time.UTC), core.Month{}); due {
		t.Error("Feb 27 should not reach a day-31 schedule")
	}
	month, due := s.Due(time.Date(2023, 2, 28, 0, 0, 0, 0, time.UTC), core.Month{})
	if !due || month.String() != "2023-02" {
		t.Errorf("Feb 28 should be due for 2023-02, got %s %v", month, due)
	}
}

func TestGetSchedule(t *testing.T) {
	if _, err := GetSchedule("next_month", 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := GetSchedule("weekly", 1); err == nil {
		t.Fatal("expected error for unknown schedule")
	}
}

func TestBillProcessor_ProcessDueOncePerMonth(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	for _, u := range []string{"a", "b"} {
		if _, err := s.SaveTemplate(ctx, core.BillTemplate{UserID: u, Description: "Rent", Amount: core.Money{Cents: 100}, DayOfMonth: 31}); err != nil {
			t.Fatal(err)
		}
	}
	p := NewBillProcessor(s, NewBillService(s, s), NextMonthSchedule{LeadDay: 20})
	now := time.Date(2024, 1, 21, 6, 0, 0, 0, time.UTC)

	n, err := p.ProcessDue(ctx, now)
	if err != nil || n != 2 {
		t.Fatalf("first run: n=%d err=%v", n, err)
	}
	n, err = p.ProcessDue(ctx, now.Add(time.Hour))
	if err != nil || n != 0 {
		t.Fatalf("second run: n=%d err=%v", n, err)
	}

	txs, _ := s.ListTransactions(ctx, store.TransactionFilter{UserID: "a"})
	if len(txs) != 1 || !txs[0].Date.Equal(core.NewDate(2024, 2, 29)) {
		t.Fatalf("unexpected bills: %+v", txs)
	}
}

func TestBillProcessor_RestartDoesNotDuplicate(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	if _, err := s.SaveTemplate(ctx, core.BillTemplate{UserID: "a", Description: "Rent", DayOfMonth: 1}); err != nil {
		t.Fatal(err)
	}
	now := time.Date(2024, 1, 21, 6, 0, 0, 0, time.UTC)
	for i := 0; i < 2; i++ {
		p := NewBillProcessor(s, NewBillService(s, s), NextMonthSchedule{LeadDay: 1})
		if _, err := p.ProcessDue(ctx, now); err != nil {
			t.Fatal(err)
		}
	}
	txs, _ := s.ListTransactions(ctx, store.TransactionFilter{UserID: "a"})
	if len(txs) != 1 {
		t.Fatalf("expected 1 bill after restart, got %d", len(txs))
	}
}

func TestBillProcessor_RestartKeepsPaidBill(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	if _, err := s.SaveTemplate(ctx, core.BillTemplate{UserID: "a", Description: "Rent", Amount: core.Money{Cents: 100000}, DayOfMonth: 1}); err != nil {
		t.Fatal(err)
	}
	schedule := CurrentMonthSchedule{Day: 1}
	now := time.Date(2024, 4, 10, 6, 0, 0, 0, time.UTC)

	if _, err := NewBillProcessor(s, NewBillService(s, s), schedule).ProcessDue(ctx, now); err != nil {
		t.Fatal(err)
	}
	txs, _ := s.ListTransactions(ctx, store.TransactionFilter{UserID: "a"})
	if len(txs) != 1 {
		t.Fatalf("expected 1 bill, got %d", len(txs))
	}
	if _, err := NewTransactionService(s).MarkPaid(ctx, "a", txs[0].ID); err != nil {
		t.Fatal(err)
	}

	n, err := NewBillProcessor(s, NewBillService(s, s), schedule).ProcessDue(ctx, now.Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("restart wrote %d bills, want 0", n)
	}
	txs, _ = s.ListTransactions(ctx, store.TransactionFilter{UserID: "a"})
	if len(txs) != 1 || txs[0].Status != core.Cleared {
		t.Fatalf("paid bill changed by restart: %+v", txs)
	}
	if got := CurrentBalance(txs); got.Cents != -100000 {
		t.Errorf("balance after restart = %s, want -1000.00", got)
	}
}

func TestBillProcessor_NotInitialized(t *testing.T) {
	if _, err := (&BillProcessor{}).ProcessDue(context.Background(), time.Now()); err == nil {
		t.Fatal("expected error")
	}
}
