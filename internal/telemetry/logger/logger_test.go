package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func newBuffered(t *testing.T, level, format string) (*slog.Logger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	l, err := New(Config{Level: level, Format: format, Output: &buf})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = SetLevel("info") })
	return l, &buf
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("invalid JSON line %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func TestNew_Threshold(t *testing.T) {
	l, buf := newBuffered(t, "warn", "json")

	l.Debug("d")
	l.Info("i")
	l.Warn("w")
	l.Error("e")

	lines := decodeLines(t, buf)
	if len(lines) != 2 || lines[0]["level"] != "WARN" || lines[1]["level"] != "ERROR" {
		t.Errorf("lines = %v", lines)
	}
}

func TestNew_Formats(t *testing.T) {
	l, buf := newBuffered(t, "info", "text")
	l.Info("ok", "node", "!a1b2c3d4")
	if !strings.Contains(buf.String(), "msg=ok node=!a1b2c3d4") {
		t.Errorf("text output = %q", buf.String())
	}

	l, buf = newBuffered(t, "info", "")
	l.Info("ok")
	if !strings.HasPrefix(buf.String(), "{") {
		t.Errorf("empty format should default to JSON, got %q", buf.String())
	}
}

func TestNew_Rejects(t *testing.T) {
	if _, err := New(Config{Format: "xml"}); err == nil {
		t.Error("unknown format should fail")
	}
	if _, err := New(Config{Level: "loud"}); err == nil {
		t.Error("unknown level should fail")
	}
}

func TestNew_RedactsThroughWith(t *testing.T) {
	l, buf := newBuffered(t, "info", "json")

	l.With("component", "router").Info("turn", "from", "!a1b2c3d4", "content", "secret mail body")

	lines := decodeLines(t, buf)
	if lines[0]["component"] != "router" || lines[0]["from"] != "!a1b2c3d4" {
		t.Errorf("attributes missing: %v", lines[0])
	}
	if lines[0]["content"] != redactedValue {
		t.Errorf("content not redacted: %v", lines[0])
	}
}

func TestSetLevel(t *testing.T) {
	l, buf := newBuffered(t, "info", "json")

	l.Debug("before")
	if err := SetLevel("debug"); err != nil {
		t.Fatal(err)
	}
	if Level() != slog.LevelDebug {
		t.Errorf("Level() = %v", Level())
	}
	l.Debug("after")

	if strings.Contains(buf.String(), "before") || !strings.Contains(buf.String(), "after") {
		t.Errorf("unexpected output: %s", buf.String())
	}

	if err := SetLevel("nope"); err == nil {
		t.Error("SetLevel should reject unknown names")
	}
	if Level() != slog.LevelDebug {
		t.Error("a rejected level must not change the threshold")
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"warning": slog.LevelWarn,
		" error ": slog.LevelError,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseLevel(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
}

func TestSetup(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	var buf bytes.Buffer
	if _, err := Setup(Config{Output: &buf}); err != nil {
		t.Fatal(err)
	}
	slog.Info("via slog")

	if !strings.Contains(buf.String(), "via slog") {
		t.Errorf("default logger not installed: %s", buf.String())
	}
}
