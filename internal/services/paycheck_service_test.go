package services

import (
	"context"
	"errors"
	"testing"

	"cashflow/internal/core"
	"cashflow/internal/store"
	"cashflow/internal/store/memory"
)

func TestEstimateInsertsEstimatedIncome(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	if err := s.UpsertSettings(ctx, core.Settings{UserID: "u", HourlyRate: core.Money{Cents: 2500}, TaxRatePercent: dec("20")}); err != nil {
		t.Fatal(err)
	}

	pc, tx, err := NewPaycheckService(s).Estimate(ctx, "u", dec("40"), dec("0"), core.NewDate(2024, 4, 26))
	if err != nil {
		t.Fatal(err)
	}
	if pc.NetPay.Cents != 80000 {
		t.Errorf("net = %d, want 80000", pc.NetPay.Cents)
	}
	if tx.Type != core.Income || tx.Status != core.Estimated {
		t.Errorf("type=%s status=%s, want income estimated", tx.Type, tx.Status)
	}
	if tx.Description != "Estimated Paycheck" || tx.Category != "Income" {
		t.Errorf("description=%q category=%q", tx.Description, tx.Category)
	}

	txs, err := s.ListTransactions(ctx, store.TransactionFilter{UserID: "u"})
	if err != nil {
		t.Fatal(err)
	}
	if len(txs) != 1 || txs[0].Amount != pc.NetPay {
		t.Errorf("stored %+v, want one row of %s", txs, pc.NetPay)
	}
}

func TestPreviewWithoutSettings(t *testing.T) {
	pc, err := NewPaycheckService(memory.New()).Preview(context.Background(), "u", dec("10"), dec("2"))
	if err != nil {
		t.Fatal(err)
	}
	if pc.NetPay.Cents != 0 {
		t.Errorf("net = %d, want 0", pc.NetPay.Cents)
	}
}

func TestEstimateRejectsNegativeHours(t *testing.T) {
	_, _, err := NewPaycheckService(memory.New()).Estimate(context.Background(), "u", dec("-1"), dec("0"), core.NewDate(2024, 4, 26))
	if !errors.Is(err, core.ErrNegativeHours) {
		t.Errorf("err = %v, want ErrNegativeHours", err)
	}
}
