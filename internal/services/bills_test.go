package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"cashflow/internal/core"
	"cashflow/internal/store"
	"cashflow/internal/store/memory"
)

func TestGenerateBillsClampsDayOfMonth(t *testing.T) {
	tpl := []core.BillTemplate{{ID: "t31", Description: "Rent", Amount: core.Money{Cents: 100}, DayOfMonth: 31}}

	cases := []struct {
		month core.Month
		want  core.Date
	}{
		{core.NewMonth(2023, time.February), core.NewDate(2023, 2, 28)},
		{core.NewMonth(2024, time.February), core.NewDate(2024, 2, 29)},
		{core.NewMonth(2024, time.April), core.NewDate(2024, 4, 30)},
		{core.NewMonth(2024, time.May), core.NewDate(2024, 5, 31)},
	}
	for _, tc := range cases {
		t.Run(tc.month.String(), func(t *testing.T) {
			got := GenerateBills(tpl, tc.month, "u")
			if len(got) != 1 {
				t.Fatalf("got %d bills, want 1", len(got))
			}
			if !got[0].Date.Equal(tc.want) {
				t.Errorf("date = %s, want %s", got[0].Date, tc.want)
			}
		})
	}
}

func TestGenerateBillsAprilScenario(t *testing.T) {
	tpls := []core.BillTemplate{
		{ID: "a", Description: "Phone", Amount: core.Money{Cents: 5000}, DayOfMonth: 1, Category: "Utilities"},
		{ID: "b", Description: "Rent", Amount: core.Money{Cents: 7500}, DayOfMonth: 31, Category: "Housing"},
	}
	got := GenerateBills(tpls, core.NewMonth(2024, time.April), "u")
	if len(got) != 2 {
		t.Fatalf("got %d bills, want 2", len(got))
	}

	if !got[0].Date.Equal(core.NewDate(2024, 4, 1)) || !got[1].Date.Equal(core.NewDate(2024, 4, 30)) {
		t.Errorf("dates = %s, %s", got[0].Date, got[1].Date)
	}
	for i, tx := range got {
		if tx.Type != core.Expense || tx.Status != core.Pending || tx.UserID != "u" || tx.Reviewed {
			t.Errorf("bill %d: type=%s status=%s user=%s reviewed=%v", i, tx.Type, tx.Status, tx.UserID, tx.Reviewed)
		}
		if tx.Amount != tpls[i].Amount || tx.Description != tpls[i].Description || tx.Category != tpls[i].Category {
			t.Errorf("bill %d not copied from template: %+v", i, tx)
		}
		if tx.ID == "" {
			t.Errorf("bill %d has no id", i)
		}
	}
	if got[1].SourceKey != "b@2024-04" {
		t.Errorf("source key = %q, want b@2024-04", got[1].SourceKey)
	}
}

func saveTemplate(t *testing.T, s *memory.Store, tpl core.BillTemplate) core.BillTemplate {
	t.Helper()
	saved, err := s.SaveTemplate(context.Background(), tpl)
	if err != nil {
		t.Fatalf("save template: %v", err)
	}
	return saved
}

func listBills(t *testing.T, s *memory.Store, userID string) []core.Transaction {
	t.Helper()
	txs, err := s.ListTransactions(context.Background(), store.TransactionFilter{UserID: userID})
	if err != nil {
		t.Fatalf("list transactions: %v", err)
	}
	return txs
}

func TestBillServiceGenerateTwiceCreatesDuplicates(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	saveTemplate(t, s, core.BillTemplate{UserID: "u", Description: "Rent", Amount: core.Money{Cents: 950}, DayOfMonth: 1})
	svc := NewBillService(s, s)
	april := core.NewMonth(2024, time.April)

	for i := 0; i < 2; i++ {
		res, err := svc.Generate(ctx, "u", april, GenerateOptions{})
		if err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
		if res.Count != 1 || res.Month != april {
			t.Errorf("run %d: count=%d month=%s", i, res.Count, res.Month)
		}
	}

	if n := len(listBills(t, s, "u")); n != 2 {
		t.Errorf("got %d transactions, want 2", n)
	}
}

func TestBillServiceIdempotentRerunDoesNotDuplicate(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	saveTemplate(t, s, core.BillTemplate{UserID: "u", Description: "Rent", Amount: core.Money{Cents: 950}, DayOfMonth: 1})
	saveTemplate(t, s, core.BillTemplate{UserID: "u", Description: "Gym", Amount: core.Money{Cents: 30}, DayOfMonth: 15})
	svc := NewBillService(s, s)
	april := core.NewMonth(2024, time.April)

	wantCount := []int{2, 0, 0}
	for i, want := range wantCount {
		res, err := svc.Generate(ctx, "u", april, GenerateOptions{Idempotent: true})
		if err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
		if res.Count != want || res.Skipped != 2-want || !res.Idempotent {
			t.Errorf("run %d: count=%d skipped=%d idempotent=%v", i, res.Count, res.Skipped, res.Idempotent)
		}
		if len(res.Transactions) != want {
			t.Errorf("run %d: %d transactions reported, want %d", i, len(res.Transactions), want)
		}
	}
	if _, err := svc.Generate(ctx, "u", april.Next(), GenerateOptions{Idempotent: true}); err != nil {
		t.Fatal(err)
	}

	if n := len(listBills(t, s, "u")); n != 4 {
		t.Errorf("got %d transactions, want 4", n)
	}
}

func TestBillServiceIdempotentRerunKeepsPaidAndMovedBills(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	saveTemplate(t, s, core.BillTemplate{UserID: "u", Description: "Rent", Amount: core.Money{Cents: 100000}, DayOfMonth: 1})
	saveTemplate(t, s, core.BillTemplate{UserID: "u", Description: "Gym", Amount: core.Money{Cents: 3000}, DayOfMonth: 15})
	bills := NewBillService(s, s)
	txs := NewTransactionService(s)
	april := core.NewMonth(2024, time.April)

	first, err := bills.Generate(ctx, "u", april, GenerateOptions{Idempotent: true})
	if err != nil {
		t.Fatal(err)
	}
	rent, gym := first.Transactions[0], first.Transactions[1]
	if _, err := txs.MarkPaid(ctx, "u", rent.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := txs.Reschedule(ctx, "u", gym.ID, core.NewDate(2024, 4, 20)); err != nil {
		t.Fatal(err)
	}

	if _, err := bills.Generate(ctx, "u", april, GenerateOptions{Idempotent: true}); err != nil {
		t.Fatal(err)
	}

	got := listBills(t, s, "u")
	if len(got) != 2 {
		t.Fatalf("got %d transactions, want 2", len(got))
	}
	byID := map[string]core.Transaction{got[0].ID: got[0], got[1].ID: got[1]}
	if st := byID[rent.ID].Status; st != core.Cleared {
		t.Errorf("paid rent status = %s after rerun, want cleared", st)
	}
	if d := byID[gym.ID].Date.String(); d != "2024-04-20" {
		t.Errorf("moved gym date = %s after rerun, want 2024-04-20", d)
	}

	f := Project(got, core.NewDate(2024, 4, 10), ProjectionOptions{})
	if f.CurrentBalance.Cents != -100000 {
		t.Errorf("current balance = %s, want -1000.00", f.CurrentBalance)
	}
}

func TestBillServiceNoTemplates(t *testing.T) {
	s := memory.New()
	res, err := NewBillService(s, s).Generate(context.Background(), "u", core.NewMonth(2024, time.April), GenerateOptions{})
	if err != nil || res.Count != 0 {
		t.Errorf("count=%d err=%v, want 0 and no error", res.Count, err)
	}
}

type failingInserts struct {
	store.TransactionStore
}

var errStoreDown = errors.New("store down")

func (failingInserts) InsertTransactions(context.Context, []core.Transaction) error {
	return errStoreDown
}

func (failingInserts) InsertMissingBySourceKey(context.Context, []core.Transaction) ([]core.Transaction, error) {
	return nil, errStoreDown
}

func TestBillServiceSurfacesStoreError(t *testing.T) {
	svc := NewBillService(memory.New(), failingInserts{})
	tpls := []core.BillTemplate{{ID: "a", Description: "Rent", DayOfMonth: 1}}
	for _, opts := range []GenerateOptions{{}, {Idempotent: true}} {
		_, err := svc.GenerateFrom(context.Background(), "u", tpls, core.NewMonth(2024, time.April), opts)
		if !errors.Is(err, errStoreDown) {
			t.Errorf("idempotent=%v: err = %v, want errStoreDown", opts.Idempotent, err)
		}
	}
}

func TestBillServiceRejectsInvalidTemplate(t *testing.T) {
	s := memory.New()
	tpls := []core.BillTemplate{{ID: "a", Description: "Rent", DayOfMonth: 0}}
	_, err := NewBillService(s, s).GenerateFrom(context.Background(), "u", tpls, core.NewMonth(2024, time.April), GenerateOptions{})
	if !errors.Is(err, core.ErrInvalidDay) {
		t.Errorf("err = %v, want ErrInvalidDay", err)
	}
}
