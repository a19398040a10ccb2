package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

// FileName is the project configuration file looked for in the working
// directory.
const FileName = "ruchy.yaml"

// errNoConfig means no file was found in the default locations.
var errNoConfig = errors.New("no config file found")

// Load reads configuration from a file with ENV interpolation.
// If configPath is empty, it searches default locations and falls back to
// Defaults() when none exists.
func Load(configPath string, getenv func(string) string) (*Config, error) {
	cfg, _, err := LoadWithPath(configPath, getenv)
	return cfg, err
}

// LoadWithPath reads configuration and returns both the config and the
// resolved path. The path is empty when defaults were used.
func LoadWithPath(configPath string, getenv func(string) string) (*Config, string, error) {
	path, err := resolveConfigPath(configPath, getenv)
	if errors.Is(err, errNoConfig) {
		return Defaults(), "", nil
	}
	if err != nil {
		return nil, "", err
	}

	// Get absolute path and directory for resolving relative paths
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to resolve config path: %w", err)
	}
	baseDir := filepath.Dir(absPath)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read config: %w", err)
	}

	// Interpolate environment variables
	data = interpolateEnv(data, getenv)

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.BaseDir = baseDir
	for _, p := range []*string{
		&cfg.Build.SourceDir,
		&cfg.Build.OutputDir,
		&cfg.REPL.HistoryFile,
		&cfg.REPL.HistoryDB,
		&cfg.Snapshot.Dir,
	} {
		*p = resolve(baseDir, *p)
	}

	if err := Validate(cfg); err != nil {
		return nil, "", err
	}
	return cfg, absPath, nil
}

func resolve(baseDir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

// Validate checks the configuration and reports every problem at once.
func Validate(cfg *Config) error {
	var errs []string

	if cfg.Build.Pattern == "" {
		errs = append(errs, "build.pattern is required")
	} else if !doublestar.ValidatePattern(cfg.Build.Pattern) {
		errs = append(errs, fmt.Sprintf("build.pattern: invalid glob %q", cfg.Build.Pattern))
	}
	if cfg.Build.OutputDir == "" {
		errs = append(errs, "build.output_dir is required")
	}
	if cfg.Build.WatchDebounceMs < 0 {
		errs = append(errs, fmt.Sprintf("build.watch_debounce_ms: must not be negative, got %d", cfg.Build.WatchDebounceMs))
	}

	if cfg.REPL.HistoryCapacity < 1 {
		errs = append(errs, fmt.Sprintf("repl.history_capacity: must be at least 1, got %d", cfg.REPL.HistoryCapacity))
	}
	if cfg.REPL.RecoveryThreshold < 1 {
		errs = append(errs, fmt.Sprintf("repl.recovery_threshold: must be at least 1, got %d", cfg.REPL.RecoveryThreshold))
	}
	validModes := map[string]bool{"interactive": true, "script": true, "debug": true}
	if !validModes[cfg.REPL.Mode] {
		errs = append(errs, fmt.Sprintf("repl.mode: invalid mode %q (must be interactive, script, or debug)", cfg.REPL.Mode))
	}

	if cfg.Snapshot.Dir == "" {
		errs = append(errs, "snapshot.dir is required")
	}
	if cfg.DataFrame.SQLMaxRows < 1 {
		errs = append(errs, fmt.Sprintf("dataframe.sql_max_rows: must be at least 1, got %d", cfg.DataFrame.SQLMaxRows))
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Logging.Level] {
		errs = append(errs, fmt.Sprintf("invalid log level: %s (must be debug, info, warn, or error)", cfg.Logging.Level))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// Warnings returns non-fatal configuration issues that should be reported to the user.
func Warnings(cfg *Config) []string {
	var warnings []string

	if cfg.Build.Extension != "" && cfg.Build.Extension != ".rs" {
		warnings = append(warnings, fmt.Sprintf("build.extension %q: generated files will not be picked up by cargo", cfg.Build.Extension))
	}
	if same(cfg.Build.SourceDir, cfg.Build.OutputDir) {
		warnings = append(warnings, "build.output_dir is the source directory - generated files will be mixed with sources")
	}
	if cfg.Build.WatchDebounceMs == 0 {
		warnings = append(warnings, "build.watch_debounce_ms is 0 - every file event triggers a rebuild")
	}
	if cfg.Snapshot.Update {
		warnings = append(warnings, "snapshot.update is on - mismatching snapshots are rewritten instead of failing")
	}
	if !cfg.Replay.IncludePropertyTests && !cfg.Replay.IncludeBenchmarks {
		warnings = append(warnings, "replay: property tests and benchmarks are both disabled")
	}

	return warnings
}

func same(a, b string) bool {
	return filepath.Clean(a) == filepath.Clean(b)
}

// resolveConfigPath finds the config file to use.
// Search order: explicit path > RUCHY_CONFIG env > ./ruchy.yaml > ~/.config/ruchy/ruchy.yaml
func resolveConfigPath(explicit string, getenv func(string) string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %w", err)
		}
		return explicit, nil
	}

	// Try RUCHY_CONFIG environment variable
	if envPath := getenv("RUCHY_CONFIG"); envPath != "" {
		if _, err := os.Stat(envPath); err != nil {
			return "", fmt.Errorf("RUCHY_CONFIG file not found: %w", err)
		}
		return envPath, nil
	}

	// Try ./ruchy.yaml
	if _, err := os.Stat(FileName); err == nil {
		return FileName, nil
	}

	// Try ~/.config/ruchy/ruchy.yaml
	home := getenv("HOME")
	if home == "" {
		home, _ = os.UserHomeDir()
	}
	if home != "" {
		xdgPath := filepath.Join(home, ".config", "ruchy", FileName)
		if _, err := os.Stat(xdgPath); err == nil {
			return xdgPath, nil
		}
	}

	return "", errNoConfig
}

// envPattern matches ${VAR} or ${VAR:-default}
var envPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// interpolateEnv replaces ${VAR} and ${VAR:-default} patterns with environment values.
func interpolateEnv(data []byte, getenv func(string) string) []byte {
	return envPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		parts := envPattern.FindSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		varName := string(parts[1])
		value := getenv(varName)

		if value == "" && len(parts) >= 3 && len(parts[2]) > 0 {
			value = string(parts[2])
		}

		return []byte(value)
	})
}
