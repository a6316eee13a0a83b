package google

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cashflow/internal/core"
)

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), "  ", "Budget", Credentials{JSON: "{}"})
	if err == nil {
		t.Fatal("expected error for missing spreadsheet id")
	}
	if err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestCredentialsLoad(t *testing.T) {
	dir := t.TempDir()
	keyFile := filepath.Join(dir, "key.json")
	if err := os.WriteFile(keyFile, []byte(`{"type":"service_account"}`), 0o600); err != nil {
		t.Fatalf("write key file: %v", err)
	}

	tests := []struct {
		name    string
		creds   Credentials
		env     string
		want    string
		wantErr bool
	}{
		{name: "inline json wins", creds: Credentials{JSON: `{"a":1}`, File: keyFile}, want: `{"a":1}`},
		{name: "file", creds: Credentials{File: keyFile}, want: `{"type":"service_account"}`},
		{name: "application default path", env: keyFile, want: `{"type":"service_account"}`},
		{name: "missing file", creds: Credentials{File: filepath.Join(dir, "nope.json")}, wantErr: true},
		{name: "nothing configured", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", tt.env)
			got, err := tt.creds.Load()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Load() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && string(got) != tt.want {
				t.Errorf("Load() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestWriteBudget_ServiceNotInitialized(t *testing.T) {
	c := &Client{spreadsheetID: "test"}
	_, err := c.WriteBudget(context.Background(), "u1", core.BudgetReport{Month: core.NewMonth(2024, 5)})
	if err == nil || !strings.Contains(err.Error(), "not initialized") {
		t.Errorf("expected not initialized error, got: %v", err)
	}
}

func TestQuoteTab(t *testing.T) {
	tests := map[string]string{
		"2024-05 Budget u1": "'2024-05 Budget u1'",
		"O'Brien":           "'O''Brien'",
	}
	for in, want := range tests {
		if got := quoteTab(in); got != want {
			t.Errorf("quoteTab(%q) = %q, want %q", in, got, want)
		}
	}
}
