package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestNewWithWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&Config{Level: "debug", Format: "json"}, "test", &buf)
	l.WithComponent("stream").Info("pulled", Fields(FieldPath, "in.txt.zst"))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected one json line, got %q: %v", buf.String(), err)
	}
	if entry["component"] != "stream" {
		t.Errorf("expected component=stream, got %v", entry["component"])
	}
	if entry["path"] != "in.txt.zst" {
		t.Errorf("expected path=in.txt.zst, got %v", entry["path"])
	}
	if entry["message"] != "pulled" {
		t.Errorf("expected message=pulled, got %v", entry["message"])
	}
}

func TestNewWithWriter_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&Config{Level: "warn", Format: "json"}, "test", &buf)
	l.Debug("hidden")
	l.Info("hidden")
	if buf.Len() != 0 {
		t.Errorf("expected nothing below warn, got %q", buf.String())
	}
	l.Warn("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("expected warn line, got %q", buf.String())
	}
}

func TestNewWithWriter_InvalidLevelFallsBackToWarn(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&Config{Level: "loud", Format: "json"}, "test", &buf)
	l.Info("hidden")
	if buf.Len() != 0 {
		t.Errorf("expected warn fallback, got %q", buf.String())
	}
}

func TestWithError(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&Config{Level: "debug", Format: "json"}, "test", &buf)
	l.WithError(errors.New("boom")).Error("upload failed")
	if !strings.Contains(buf.String(), `"error":"boom"`) {
		t.Errorf("expected error field, got %q", buf.String())
	}
}

func TestConsoleFormat(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&Config{Level: "info", Format: "console", NoColor: true}, "test", &buf)
	l.Info("hello")
	if !strings.Contains(buf.String(), "[INF]") || !strings.Contains(buf.String(), "hello") {
		t.Errorf("unexpected console output %q", buf.String())
	}
}

func TestRegistry_GetFallsBackToGlobal(t *testing.T) {
	var buf bytes.Buffer
	SetGlobalLogger(NewWithWriter(&Config{Level: "info", Format: "json"}, "global", &buf))
	defer SetGlobalLogger(nil)

	Get("unregistered").Info("hi")
	if !strings.Contains(buf.String(), `"component":"unregistered"`) {
		t.Errorf("expected component tag from fallback, got %q", buf.String())
	}
}

func TestRegistry_Register(t *testing.T) {
	nop := Nop()
	Register("quiet", nop)
	if Get("quiet") != nop {
		t.Error("expected the registered logger back")
	}
}

func TestConfig_Validate(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	cfg.Format = "xml"
	if err := cfg.Validate(); err == nil {
		t.Error("expected invalid format to fail")
	}
}

func TestFields_OddCount(t *testing.T) {
	m := Fields("a", 1, "b")
	if len(m) != 1 || m["a"] != 1 {
		t.Errorf("unexpected %v", m)
	}
}
