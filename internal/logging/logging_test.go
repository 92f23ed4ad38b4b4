package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestInitJSONHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := Init("socwatch-test", Options{Level: "info", Format: "json", Output: &buf})

	logger.Info("triage completed", "incident_id", "inc-1")
	logger.Debug("hidden")

	line := strings.TrimSpace(buf.String())
	if strings.Contains(line, "hidden") {
		t.Error("debug line should be filtered at info level")
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(line), &rec); err != nil {
		t.Fatalf("expected one JSON record, got %q: %v", line, err)
	}
	if rec["service"] != "socwatch-test" || rec["incident_id"] != "inc-1" {
		t.Errorf("unexpected record %v", rec)
	}
}

func TestInitTextHandlerAndSetLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := Init("socwatch-test", Options{Level: "error", Format: "text", Output: &buf})

	logger.Warn("dropped")
	SetLevel(slog.LevelWarn)
	logger.Warn("kept")

	out := buf.String()
	if strings.Contains(out, "dropped") || !strings.Contains(out, "kept") {
		t.Errorf("unexpected output %q", out)
	}
}
