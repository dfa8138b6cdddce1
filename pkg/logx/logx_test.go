package logx

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func newTestLogger(format Format, level Level) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	l := NewLogger(&Config{Level: level, Format: format, TimeFormat: time.RFC3339, Output: nil})
	l.SetOutput(&buf)
	l.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }
	return l, &buf
}

func TestJSONFormatterIncludesFieldsAndError(t *testing.T) {
	l, buf := newTestLogger(FormatJSON, LevelInfo)

	l.WithFields(Fields{"tenant_id": "t1"}).WithError(errors.New("boom")).Warn("login failed")

	var line map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("output is not json: %v (%q)", err, buf.String())
	}
	if line["level"] != "WARN" || line["message"] != "login failed" {
		t.Fatalf("unexpected line: %v", line)
	}
	if line["tenant_id"] != "t1" || line["error"] != "boom" {
		t.Fatalf("fields missing: %v", line)
	}
	if line["timestamp"] != "2024-01-02T03:04:05Z" {
		t.Fatalf("unexpected timestamp: %v", line["timestamp"])
	}
}

func TestLevelFiltering(t *testing.T) {
	l, buf := newTestLogger(FormatConsole, LevelWarn)

	l.WithField("a", 1).Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("info must be filtered at warn level, got %q", buf.String())
	}

	l.WithField("a", 1).Error("shown")
	if !strings.Contains(buf.String(), "shown") || !strings.Contains(buf.String(), "a=1") {
		t.Fatalf("unexpected console output %q", buf.String())
	}
}

func TestEntriesDoNotShareFields(t *testing.T) {
	l, buf := newTestLogger(FormatConsole, LevelInfo)

	base := l.WithField("base", "x")
	base.WithField("one", 1).Info("first")
	base.Info("second")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if strings.Contains(lines[1], "one=1") {
		t.Fatalf("derived entry leaked into base: %q", lines[1])
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":   LevelDebug,
		"WARNING": LevelWarn,
		"off":     LevelOff,
		"bogus":   LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q)=%v, want %v", in, got, want)
		}
	}
	if LevelOff.Enabled(LevelFatal) {
		t.Fatalf("LevelOff must disable everything")
	}
}
