package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestLoggerEmitsJSONWithComponent(t *testing.T) {
	var buf bytes.Buffer
	lg := NewLogger(Options{Level: "info", Writer: &buf, Component: "orchestrator"})

	lg.Info("attempt failed", "provider", "anthropic")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, buf.String())
	}
	if record["msg"] != "attempt failed" {
		t.Errorf("msg = %v", record["msg"])
	}
	if record["component"] != "orchestrator" {
		t.Errorf("component = %v", record["component"])
	}
	if record["provider"] != "anthropic" {
		t.Errorf("provider = %v", record["provider"])
	}
}

func TestLoggerLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	lg := NewLogger(Options{Level: "warn", Writer: &buf})

	lg.Debug("dropped")
	lg.Info("dropped too")
	if buf.Len() != 0 {
		t.Errorf("below-threshold records were written: %q", buf.String())
	}

	lg.Warn("kept")
	if buf.Len() == 0 {
		t.Error("warn record should be written")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"WARN", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"garbage", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
