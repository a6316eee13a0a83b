package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{" error ", slog.LevelError},
		{"loud", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestJSONLoggerStampsComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelInfo, Format: "json", Component: ComponentBills, Output: &buf})

	logger.Info("generated", FieldCount, 3)
	logger.Debug("hidden")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("log output is not one JSON record: %v\n%s", err, buf.String())
	}
	if rec[FieldComponent] != ComponentBills {
		t.Errorf("component = %v, want %v", rec[FieldComponent], ComponentBills)
	}
	if rec[FieldCount] != float64(3) {
		t.Errorf("count = %v, want 3", rec[FieldCount])
	}
}

func TestRequestIDMiddlewareEnrichesLogger(t *testing.T) {
	var buf bytes.Buffer
	base := New(Config{Format: "text", Component: ComponentHTTP, Output: &buf})

	handler := Middleware(base)(RequestIDMiddleware(func(*http.Request) string { return "req-42" })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			FromContext(r.Context()).InfoContext(r.Context(), "handled")
		})))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if !strings.Contains(buf.String(), "request_id=req-42") {
		t.Errorf("expected request id in log output, got %q", buf.String())
	}
}

func TestFromContextFallsBackToDefault(t *testing.T) {
	if FromContext(context.Background()) == nil {
		t.Fatal("FromContext() returned nil")
	}
}

func TestMiddlewareWritesAccessLine(t *testing.T) {
	var buf bytes.Buffer
	base := New(Config{Format: "json", Component: ComponentHTTP, Output: &buf})

	handler := Middleware(base)(RequestIDMiddleware(func(*http.Request) string { return "req-7" })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/budget", nil))

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("expected one JSON access line: %v\n%s", err, buf.String())
	}
	if rec["level"] != "WARN" {
		t.Errorf("level = %v, want WARN for a 404", rec["level"])
	}
	if rec[FieldStatusCode] != float64(http.StatusNotFound) || rec[FieldPath] != "/api/budget" {
		t.Errorf("unexpected access line: %v", rec)
	}
	if rec[FieldRequestID] != "req-7" {
		t.Errorf("request_id = %v, want req-7", rec[FieldRequestID])
	}
}

func TestLogFailureLevels(t *testing.T) {
	var buf bytes.Buffer
	events := NewStructuredLogger(New(Config{Level: slog.LevelInfo, Format: "text", Output: &buf}))

	events.LogFailure(context.Background(), OpCreate, errors.New("bad amount"), http.StatusUnprocessableEntity)
	if buf.Len() != 0 {
		t.Errorf("rejected input should log at debug, got %q", buf.String())
	}

	events.LogFailure(context.Background(), OpCreate, errors.New("db down"), http.StatusInternalServerError)
	out := buf.String()
	if !strings.Contains(out, "error_type="+ErrorTypeInternal) || !strings.Contains(out, "db down") {
		t.Errorf("unexpected failure line: %q", out)
	}
}

func TestErrorTypeForStatus(t *testing.T) {
	tests := map[int]string{
		http.StatusBadRequest:          ErrorTypeValidation,
		http.StatusUnprocessableEntity: ErrorTypeValidation,
		http.StatusUnauthorized:        ErrorTypeAuth,
		http.StatusNotFound:            ErrorTypeNotFound,
		http.StatusConflict:            ErrorTypeConflict,
		http.StatusServiceUnavailable:  ErrorTypeInternal,
	}
	for status, want := range tests {
		if got := ErrorTypeForStatus(status); got != want {
			t.Errorf("ErrorTypeForStatus(%d) = %q, want %q", status, got, want)
		}
	}
}
