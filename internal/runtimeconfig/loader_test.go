package runtimeconfig

import (
	"errors"
	"os"
	"strings"
	"testing"
)

func TestLoadFromReaderYAML(t *testing.T) {
	t.Parallel()

	yamlContent := `
default_warmup: eager
eager_load_concurrency: 8
circuit_breaker:
  failure_threshold: 3
  open_wait_seconds: 5
logging:
  level: debug
  format: json
`
	cfg, err := LoadFromReaderWithFormat(strings.NewReader(yamlContent), FormatYAML)
	if err != nil {
		t.Fatalf("LoadFromReaderWithFormat() error = %v", err)
	}
	if cfg.DefaultWarmup != "eager" {
		t.Errorf("DefaultWarmup = %q, want %q", cfg.DefaultWarmup, "eager")
	}
	if cfg.EagerLoadConcurrency != 8 {
		t.Errorf("EagerLoadConcurrency = %d, want 8", cfg.EagerLoadConcurrency)
	}
	if cfg.CircuitBreaker.FailureThreshold != 3 {
		t.Errorf("CircuitBreaker.FailureThreshold = %d, want 3", cfg.CircuitBreaker.FailureThreshold)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "debug")
	}
}

func TestLoadFromReaderTOML(t *testing.T) {
	t.Parallel()

	tomlContent := `
default_warmup = "background"
eager_load_concurrency = 2

[circuit_breaker]
failure_threshold = 10
open_wait_seconds = 30
`
	cfg, err := LoadFromReaderWithFormat(strings.NewReader(tomlContent), FormatTOML)
	if err != nil {
		t.Fatalf("LoadFromReaderWithFormat() error = %v", err)
	}
	if cfg.DefaultWarmup != "background" {
		t.Errorf("DefaultWarmup = %q, want %q", cfg.DefaultWarmup, "background")
	}
	if cfg.CircuitBreaker.OpenWaitSeconds != 30 {
		t.Errorf("CircuitBreaker.OpenWaitSeconds = %d, want 30", cfg.CircuitBreaker.OpenWaitSeconds)
	}
}

func TestLoadExpandsEnvVars(t *testing.T) {
	t.Setenv("RUNTIMECONFIG_TEST_WARMUP", "eager")
	yamlContent := `default_warmup: "${RUNTIMECONFIG_TEST_WARMUP}"`

	cfg, err := LoadFromReaderWithFormat(strings.NewReader(yamlContent), FormatYAML)
	if err != nil {
		t.Fatalf("LoadFromReaderWithFormat() error = %v", err)
	}
	if cfg.DefaultWarmup != "eager" {
		t.Errorf("DefaultWarmup = %q, want %q (env-expanded)", cfg.DefaultWarmup, "eager")
	}
}

func TestLoadDetectsFormatFromExtension(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/defaults.yaml"
	if err := os.WriteFile(path, []byte("default_warmup: lazy\n"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.DefaultWarmup != "lazy" {
		t.Errorf("DefaultWarmup = %q, want %q", cfg.DefaultWarmup, "lazy")
	}
}

func TestLoadRejectsUnsupportedExtension(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/defaults.json"
	if err := os.WriteFile(path, []byte("{}"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	_, err := Load(path)
	var unsupported *UnsupportedFormatError
	if !errors.As(err, &unsupported) {
		t.Fatalf("Load() error = %v, want *UnsupportedFormatError", err)
	}
}

func TestGetEagerLoadConcurrencyDefault(t *testing.T) {
	cfg := Config{}
	if got := cfg.GetEagerLoadConcurrency(); got != DefaultEagerLoadConcurrency {
		t.Errorf("GetEagerLoadConcurrency() = %d, want %d", got, DefaultEagerLoadConcurrency)
	}
}
