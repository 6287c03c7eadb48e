package obslog

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewJSONFormat(t *testing.T) {
	logger, err := New(Config{Level: "info", Format: "json", Output: "stdout"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	var buf bytes.Buffer
	logger = logger.Output(&buf)
	logger.Info().Msg("test message")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log output is not valid JSON: %v", err)
	}
	if entry["message"] != "test message" {
		t.Errorf("message = %v, want %q", entry["message"], "test message")
	}
	if entry["level"] != "info" {
		t.Errorf("level = %v, want %q", entry["level"], "info")
	}
}

func TestNewConsoleFormat(t *testing.T) {
	logger, err := New(Config{Level: "debug", Format: "console", Output: "stdout"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	var buf bytes.Buffer
	logger = logger.Output(&buf)
	logger.Debug().Msg("debug message")

	if !strings.Contains(buf.String(), "debug message") {
		t.Errorf("console output = %q, want to contain %q", buf.String(), "debug message")
	}
}

func TestNewLevelFiltering(t *testing.T) {
	logger, err := New(Config{Level: "warn", Format: "json"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	var buf bytes.Buffer
	logger = logger.Output(&buf)
	logger.Debug().Msg("should not appear")
	logger.Info().Msg("should not appear")
	logger.Warn().Msg("should appear")

	output := buf.String()
	if strings.Contains(output, "should not appear") {
		t.Error("debug/info logs should be filtered at warn level")
	}
	if !strings.Contains(output, "should appear") {
		t.Error("warn logs should appear at warn level")
	}
}

func TestWithLoadIDGeneratesUUID(t *testing.T) {
	logger, _ := New(Config{})
	ctx, _ := WithLoadID(context.Background(), logger, "")

	id := LoadID(ctx)
	if id == "" {
		t.Fatal("LoadID() = \"\", want generated UUID")
	}
	if len(id) != 36 {
		t.Errorf("len(LoadID()) = %d, want 36", len(id))
	}
}

func TestWithLoadIDUsesProvidedID(t *testing.T) {
	logger, _ := New(Config{})
	ctx, _ := WithLoadID(context.Background(), logger, "custom-load-id")

	if got := LoadID(ctx); got != "custom-load-id" {
		t.Errorf("LoadID() = %q, want %q", got, "custom-load-id")
	}
}

func TestLoadIDAbsentReturnsEmpty(t *testing.T) {
	if got := LoadID(context.Background()); got != "" {
		t.Errorf("LoadID() = %q, want empty for a context with no load_id", got)
	}
}

func TestParseLevelDefaultsToInfo(t *testing.T) {
	cfg := Config{Level: "not-a-level"}
	if cfg.ParseLevel().String() != "info" {
		t.Errorf("ParseLevel() = %v, want info for an unrecognized level", cfg.ParseLevel())
	}
}
