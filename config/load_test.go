package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestInterpolateEnv(t *testing.T) {
	getenv := func(key string) string {
		switch key {
		case "OUT_DIR":
			return "build/rust"
		case "ROWS":
			return "50"
		default:
			return ""
		}
	}

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "simple substitution",
			input:    "output_dir: ${OUT_DIR}",
			expected: "output_dir: build/rust",
		},
		{
			name:     "with default (env set)",
			input:    "output_dir: ${OUT_DIR:-target}",
			expected: "output_dir: build/rust",
		},
		{
			name:     "with default (env not set)",
			input:    "mode: ${REPL_MODE:-debug}",
			expected: "mode: debug",
		},
		{
			name:     "multiple substitutions",
			input:    "${OUT_DIR}/${ROWS}",
			expected: "build/rust/50",
		},
		{
			name:     "unset without default",
			input:    "prompt: ${UNSET}",
			expected: "prompt: ",
		},
		{
			name:     "no interpolation",
			input:    "pattern: '**/*.ruchy'",
			expected: "pattern: '**/*.ruchy'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := string(interpolateEnv([]byte(tt.input), getenv))
			if result != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, result)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "ruchy.yaml")

	configContent := `
build:
  source_dir: src
  output_dir: ${OUT_DIR:-gen}
  watch_debounce_ms: 250
repl:
  history_capacity: 50
  history_db: state/history.db
  mode: script
snapshot:
  dir: /var/snapshots
replay:
  include_benchmarks: true
  timeout_ms: 1000
dataframe:
  sql_max_rows: 25
logging:
  level: warn
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatal(err)
	}

	getenv := func(key string) string { return "" }

	cfg, path, err := LoadWithPath(configPath, getenv)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if path != configPath {
		t.Errorf("expected path %q, got %q", configPath, path)
	}
	if cfg.BaseDir != dir {
		t.Errorf("expected base dir %q, got %q", dir, cfg.BaseDir)
	}
	if cfg.Build.SourceDir != filepath.Join(dir, "src") {
		t.Errorf("expected source dir resolved against config dir, got %q", cfg.Build.SourceDir)
	}
	if cfg.Build.OutputDir != filepath.Join(dir, "gen") {
		t.Errorf("expected output dir from default, got %q", cfg.Build.OutputDir)
	}
	if cfg.Build.WatchDebounceMs != 250 {
		t.Errorf("expected debounce 250, got %d", cfg.Build.WatchDebounceMs)
	}
	if cfg.Build.Pattern != "**/*.ruchy" {
		t.Errorf("expected pattern default kept, got %q", cfg.Build.Pattern)
	}
	if cfg.REPL.HistoryCapacity != 50 {
		t.Errorf("expected history capacity 50, got %d", cfg.REPL.HistoryCapacity)
	}
	if cfg.REPL.HistoryDB != filepath.Join(dir, "state", "history.db") {
		t.Errorf("unexpected history db %q", cfg.REPL.HistoryDB)
	}
	if cfg.REPL.Mode != "script" {
		t.Errorf("expected mode script, got %q", cfg.REPL.Mode)
	}
	if cfg.Snapshot.Dir != "/var/snapshots" {
		t.Errorf("expected absolute snapshot dir kept, got %q", cfg.Snapshot.Dir)
	}
	if !cfg.Replay.IncludeBenchmarks || !cfg.Replay.IncludePropertyTests {
		t.Errorf("unexpected replay config %+v", cfg.Replay)
	}
	if cfg.Replay.TimeoutMs != 1000 {
		t.Errorf("expected timeout 1000, got %d", cfg.Replay.TimeoutMs)
	}
	if cfg.DataFrame.SQLMaxRows != 25 {
		t.Errorf("expected sql_max_rows 25, got %d", cfg.DataFrame.SQLMaxRows)
	}
	if cfg.Logging.InfoEnabled() {
		t.Error("expected info disabled at warn level")
	}
}

func TestLoadInvalid(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "ruchy.yaml")
	if err := os.WriteFile(configPath, []byte("repl:\n  mode: turbo\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(configPath, os.Getenv); err == nil {
		t.Error("expected validation error")
	}

	if err := os.WriteFile(configPath, []byte("build: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(configPath, os.Getenv); err == nil {
		t.Error("expected parse error")
	}
}

func TestResolveConfigPath(t *testing.T) {
	dir := t.TempDir()

	origDir, _ := os.Getwd()
	defer os.Chdir(origDir)
	os.Chdir(dir)

	noHome := func(key string) string {
		if key == "HOME" {
			return filepath.Join(dir, "home")
		}
		return ""
	}

	// Test explicit path that doesn't exist
	_, err := resolveConfigPath("/nonexistent/ruchy.yaml", noHome)
	if err == nil {
		t.Error("expected error for nonexistent explicit path")
	}

	// Test RUCHY_CONFIG pointing nowhere
	_, err = resolveConfigPath("", func(key string) string {
		if key == "RUCHY_CONFIG" {
			return "/nonexistent/ruchy.yaml"
		}
		return ""
	})
	if err == nil {
		t.Error("expected error for missing RUCHY_CONFIG file")
	}

	// Test no config found
	if _, err := resolveConfigPath("", noHome); err != errNoConfig {
		t.Errorf("expected errNoConfig, got %v", err)
	}

	// Test XDG location
	xdg := filepath.Join(dir, "home", ".config", "ruchy")
	os.MkdirAll(xdg, 0755)
	os.WriteFile(filepath.Join(xdg, "ruchy.yaml"), []byte(""), 0644)
	path, err := resolveConfigPath("", noHome)
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if path != filepath.Join(xdg, "ruchy.yaml") {
		t.Errorf("expected XDG path, got %q", path)
	}

	// ./ruchy.yaml wins over XDG
	os.WriteFile("ruchy.yaml", []byte(""), 0644)
	path, err = resolveConfigPath("", noHome)
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if path != "ruchy.yaml" {
		t.Errorf("expected 'ruchy.yaml', got %q", path)
	}

	// RUCHY_CONFIG wins over ./ruchy.yaml
	envConfig := filepath.Join(dir, "env.yaml")
	os.WriteFile(envConfig, []byte(""), 0644)
	path, err = resolveConfigPath("", func(key string) string {
		if key == "RUCHY_CONFIG" {
			return envConfig
		}
		return ""
	})
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if path != envConfig {
		t.Errorf("expected %q, got %q", envConfig, path)
	}
}
