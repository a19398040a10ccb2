package config

import (
	"os"
	"path/filepath"
)

// Config represents the complete Ruchy project configuration
type Config struct {
	BaseDir   string          `yaml:"-"` // Directory containing config file, for resolving relative paths
	Build     BuildConfig     `yaml:"build"`
	REPL      REPLConfig      `yaml:"repl"`
	Snapshot  SnapshotConfig  `yaml:"snapshot"`
	Replay    ReplayConfig    `yaml:"replay"`
	DataFrame DataFrameConfig `yaml:"dataframe"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// BuildConfig holds settings for the incremental transpile build
type BuildConfig struct {
	SourceDir       string `yaml:"source_dir"`        // Directory searched for sources (default: ".")
	Pattern         string `yaml:"pattern"`           // Glob relative to source_dir, ** allowed (default: "**/*.ruchy")
	OutputDir       string `yaml:"output_dir"`        // Where generated Rust is written (default: "target/ruchy")
	Extension       string `yaml:"extension"`         // Extension of generated files (default: ".rs")
	WatchDebounceMs int    `yaml:"watch_debounce_ms"` // Quiet period before a watch rebuild (default: 100)
}

// REPLConfig holds interactive session settings
type REPLConfig struct {
	HistoryCapacity   int    `yaml:"history_capacity"`   // In-memory history entries (default: 1000)
	HistoryFile       string `yaml:"history_file"`       // Line-editor history file
	HistoryDB         string `yaml:"history_db"`         // Optional SQLite database for persistent history
	HistoryDBMax      int    `yaml:"history_db_max"`     // Entries kept in history_db (default: 10000)
	RecoveryThreshold int    `yaml:"recovery_threshold"` // Consecutive errors recovered before suggesting :reset (default: 3)
	Mode              string `yaml:"mode"`               // interactive, script or debug (default: interactive)
	Prompt            string `yaml:"prompt"`             // Prompt string (default: "ruchy> ")
}

// SnapshotConfig holds transpiler snapshot settings
type SnapshotConfig struct {
	Dir          string `yaml:"dir"`           // Directory holding snapshots.toml (default: "snapshots")
	RuchyVersion string `yaml:"ruchy_version"` // Recorded in new snapshots
	RustcVersion string `yaml:"rustc_version"` // Recorded in new snapshots
	Update       bool   `yaml:"update"`        // Rewrite mismatching snapshots instead of failing
}

// ReplayConfig holds replay-to-test conversion settings
type ReplayConfig struct {
	TestModulePrefix     string `yaml:"test_module_prefix"`     // Module wrapping generated tests (default: "replay_generated")
	IncludePropertyTests bool   `yaml:"include_property_tests"` // Generate determinism and memory tests (default: true)
	IncludeBenchmarks    bool   `yaml:"include_benchmarks"`     // Generate a timing test per session (default: false)
	TimeoutMs            uint64 `yaml:"timeout_ms"`             // Per-test time budget (default: 5000)
}

// DataFrameConfig holds DataFrame engine settings
type DataFrameConfig struct {
	SQLMaxRows int `yaml:"sql_max_rows"` // Rows read_sql may load (default: 10000)
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
	Quiet bool   `yaml:"quiet"` // suppress [INFO] lines
}

// InfoEnabled reports whether [INFO] lines should be written.
func (l LoggingConfig) InfoEnabled() bool {
	return !l.Quiet && (l.Level == "debug" || l.Level == "info" || l.Level == "")
}

// Defaults returns a Config with sensible defaults
func Defaults() *Config {
	return &Config{
		BaseDir: ".",
		Build: BuildConfig{
			SourceDir:       ".",
			Pattern:         "**/*.ruchy",
			OutputDir:       "target/ruchy",
			Extension:       ".rs",
			WatchDebounceMs: 100,
		},
		REPL: REPLConfig{
			HistoryCapacity:   1000,
			HistoryFile:       filepath.Join(os.TempDir(), ".ruchy_history"),
			HistoryDBMax:      10000,
			RecoveryThreshold: 3,
			Mode:              "interactive",
			Prompt:            "ruchy> ",
		},
		Snapshot: SnapshotConfig{
			Dir: "snapshots",
		},
		Replay: ReplayConfig{
			TestModulePrefix:     "replay_generated",
			IncludePropertyTests: true,
			TimeoutMs:            5000,
		},
		DataFrame: DataFrameConfig{
			SQLMaxRows: 10000,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}
