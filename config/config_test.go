package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Build.Pattern != "**/*.ruchy" {
		t.Errorf("expected default pattern '**/*.ruchy', got %q", cfg.Build.Pattern)
	}
	if cfg.Build.Extension != ".rs" {
		t.Errorf("expected default extension '.rs', got %q", cfg.Build.Extension)
	}
	if cfg.REPL.HistoryCapacity != 1000 {
		t.Errorf("expected default history capacity 1000, got %d", cfg.REPL.HistoryCapacity)
	}
	if cfg.REPL.RecoveryThreshold != 3 {
		t.Errorf("expected default recovery threshold 3, got %d", cfg.REPL.RecoveryThreshold)
	}
	if !cfg.Replay.IncludePropertyTests {
		t.Error("expected property tests to be enabled by default")
	}
	if cfg.Replay.TimeoutMs != 5000 {
		t.Errorf("expected default timeout 5000, got %d", cfg.Replay.TimeoutMs)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected default log level 'info', got %q", cfg.Logging.Level)
	}
	if err := Validate(cfg); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestInfoEnabled(t *testing.T) {
	tests := []struct {
		logging LoggingConfig
		want    bool
	}{
		{LoggingConfig{Level: "info"}, true},
		{LoggingConfig{Level: "debug"}, true},
		{LoggingConfig{Level: "warn"}, false},
		{LoggingConfig{Level: "error"}, false},
		{LoggingConfig{Level: "info", Quiet: true}, false},
	}
	for _, tt := range tests {
		if got := tt.logging.InfoEnabled(); got != tt.want {
			t.Errorf("InfoEnabled(%+v) = %v, want %v", tt.logging, got, tt.want)
		}
	}
}

func TestValidate(t *testing.T) {
	cfg := Defaults()
	cfg.Build.Pattern = "src/[.ruchy"
	cfg.REPL.HistoryCapacity = 0
	cfg.REPL.Mode = "turbo"
	cfg.Logging.Level = "verbose"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error")
	}
	msg := err.Error()
	if !strings.HasPrefix(msg, "configuration errors:") {
		t.Errorf("expected aggregated error, got %q", msg)
	}
	for _, want := range []string{"build.pattern", "repl.history_capacity", "repl.mode", "invalid log level"} {
		if !strings.Contains(msg, want) {
			t.Errorf("expected error to mention %q, got %q", want, msg)
		}
	}
}

func TestWarnings(t *testing.T) {
	cfg := Defaults()
	if w := Warnings(cfg); len(w) != 0 {
		t.Errorf("expected no warnings for defaults, got %v", w)
	}

	cfg.Build.OutputDir = "./"
	cfg.Snapshot.Update = true
	cfg.Replay.IncludePropertyTests = false

	w := Warnings(cfg)
	if len(w) != 3 {
		t.Fatalf("expected 3 warnings, got %d: %v", len(w), w)
	}
	if !strings.Contains(w[0], "output_dir") {
		t.Errorf("expected output_dir warning first, got %q", w[0])
	}
}

func TestLoadNoFileUsesDefaults(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	defer os.Chdir(origDir)
	os.Chdir(dir)

	getenv := func(key string) string {
		if key == "HOME" {
			return filepath.Join(dir, "home")
		}
		return ""
	}

	cfg, path, err := LoadWithPath("", getenv)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != "" {
		t.Errorf("expected empty path, got %q", path)
	}
	if cfg.Build.OutputDir != "target/ruchy" {
		t.Errorf("expected default output dir, got %q", cfg.Build.OutputDir)
	}
}
