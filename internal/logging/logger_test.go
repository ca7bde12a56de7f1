package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"
)

func TestNewParsesLevel(t *testing.T) {
	l := New("savings", "debug", "json")
	if l.GetLevel().String() != "debug" {
		t.Errorf("level = %s, want debug", l.GetLevel())
	}

	fallback := New("savings", "nonsense", "json")
	if fallback.GetLevel().String() != "info" {
		t.Errorf("fallback level = %s, want info", fallback.GetLevel())
	}
}

func TestWithContextCarriesTraceAndWallet(t *testing.T) {
	var buf bytes.Buffer
	l := New("savings", "info", "json")
	l.SetOutput(&buf)

	ctx := WithTraceID(context.Background(), "trace-1")
	ctx = WithWallet(ctx, "Wallet111")
	l.WithContext(ctx).Info("hello")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if entry["trace_id"] != "trace-1" {
		t.Errorf("trace_id = %v, want trace-1", entry["trace_id"])
	}
	if entry["wallet"] != "Wallet111" {
		t.Errorf("wallet = %v, want Wallet111", entry["wallet"])
	}
	if entry["service"] != "savings" {
		t.Errorf("service = %v, want savings", entry["service"])
	}
}

func TestLogRequestLevels(t *testing.T) {
	var buf bytes.Buffer
	l := New("savings", "info", "json")
	l.SetOutput(&buf)

	l.LogRequest(context.Background(), http.MethodGet, "/health", http.StatusServiceUnavailable, 5*time.Millisecond)

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if entry["level"] != "error" {
		t.Errorf("level = %v, want error", entry["level"])
	}
	if entry["status"] != float64(http.StatusServiceUnavailable) {
		t.Errorf("status = %v", entry["status"])
	}
}

func TestTraceIDHelpers(t *testing.T) {
	if GetTraceID(context.Background()) != "" {
		t.Error("empty context should have no trace id")
	}
	id := NewTraceID()
	if len(id) != 36 {
		t.Errorf("NewTraceID() length = %d, want 36", len(id))
	}
	if GetWallet(context.Background()) != "" {
		t.Error("empty context should have no wallet")
	}
}
