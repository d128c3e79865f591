package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestNewWritesStructuredJSON(t *testing.T) {
	var buf bytes.Buffer
	logg := New(Options{ServiceName: "ledger-test", Output: &buf})

	logg.Info(context.Background(), "hello")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON log line: %v (%s)", err, buf.String())
	}
	if entry["service"] != "ledger-test" {
		t.Fatalf("missing service field: %v", entry)
	}
	if entry["message"] != "hello" {
		t.Fatalf("missing message: %v", entry)
	}
}

func TestContextFieldsPropagate(t *testing.T) {
	var buf bytes.Buffer
	logg := New(Options{ServiceName: "ledger-test", Output: &buf})

	ctx := logg.WithVariantID(context.Background(), "v-123")
	ctx = logg.WithWarehouseID(ctx, "w-9")
	logg.Info(ctx, "reserved")

	line := buf.String()
	if !strings.Contains(line, `"variant_id":"v-123"`) {
		t.Fatalf("variant_id missing from %s", line)
	}
	if !strings.Contains(line, `"warehouse_id":"w-9"`) {
		t.Fatalf("warehouse_id missing from %s", line)
	}
}

func TestErrorIncludesStack(t *testing.T) {
	var buf bytes.Buffer
	logg := New(Options{ServiceName: "ledger-test", Output: &buf})

	logg.Error(context.Background(), "boom", nil)

	if !strings.Contains(buf.String(), `"stack"`) {
		t.Fatalf("expected stack field in %s", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"":      zerolog.InfoLevel,
		"debug": zerolog.DebugLevel,
		"WARN":  zerolog.WarnLevel,
		"bogus": zerolog.InfoLevel,
	}
	for input, expected := range tests {
		if got := ParseLevel(input); got != expected {
			t.Fatalf("ParseLevel(%q) = %v, expected %v", input, got, expected)
		}
	}
}
