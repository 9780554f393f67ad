package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"WARN":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
		"loud":  slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, slog.LevelInfo, "json")

	logger.Debug("hidden")
	logger.Info("Payment request settled", "request_id", "req-1")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 log line, got %d: %q", len(lines), buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("expected JSON output: %v", err)
	}
	if entry["msg"] != "Payment request settled" || entry["request_id"] != "req-1" {
		t.Errorf("unexpected entry: %v", entry)
	}
}

func TestNewText(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, slog.LevelDebug, "text")
	logger.Debug("Settlement attempt resolved", "outcome", "ABANDONED")

	out := buf.String()
	if !strings.Contains(out, "Settlement attempt resolved") || !strings.Contains(out, "outcome=ABANDONED") {
		t.Errorf("unexpected text output: %q", out)
	}
	if strings.Contains(out, "\x1b[") {
		t.Errorf("expected no color codes when not writing to a terminal: %q", out)
	}
}
