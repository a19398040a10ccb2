package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ruchy-lang/ruchy/pkg/ruchy/build"
	"github.com/ruchy-lang/ruchy/pkg/ruchy/evaluator"
	"github.com/ruchy-lang/ruchy/pkg/ruchy/repl"
	"github.com/ruchy-lang/ruchy/pkg/ruchy/replay"
	"github.com/ruchy-lang/ruchy/pkg/ruchy/ruchy"
	"github.com/ruchy-lang/ruchy/pkg/ruchy/snapshot"
)

func (c *cli) replCmd() *cobra.Command {
	var mode string
	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Start the interactive REPL",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.startREPL(cmd.Context(), mode)
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "", "Session mode: interactive, script or debug")
	return cmd
}

func (c *cli) startREPL(ctx context.Context, modeName string) error {
	if modeName == "" {
		modeName = c.cfg.REPL.Mode
	}
	mode, err := repl.ParseMode(modeName)
	if err != nil {
		return usageError(err)
	}

	var store *repl.HistoryStore
	if path := c.cfg.REPL.HistoryDB; path != "" {
		store, err = repl.OpenHistoryStore(path, repl.StoreConfig{MaxEntries: c.cfg.REPL.HistoryDBMax})
		if err != nil {
			return err
		}
		defer store.Close()
	}

	r := repl.New(repl.Options{
		HistoryCapacity:   c.cfg.REPL.HistoryCapacity,
		RecoveryThreshold: c.cfg.REPL.RecoveryThreshold,
		Mode:              mode,
		Prompt:            c.cfg.REPL.Prompt,
		HistoryFile:       c.cfg.REPL.HistoryFile,
		Store:             store,
		Stdout:            c.stdout,
		Stderr:            c.stderr,
		Context:           ctx,
		SQLMaxRows:        c.cfg.DataFrame.SQLMaxRows,
		Version:           Version,
	})
	return repl.Start(r, c.stdout, Version)
}

func (c *cli) runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <file>",
		Short: "Execute a Ruchy script",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			_, err = c.newInterpreter(cmd.Context(), args[0]).Eval(string(src))
			return err
		},
	}
}

func (c *cli) evalCmd() *cobra.Command {
	var code string
	cmd := &cobra.Command{
		Use:   "eval -e <code>",
		Short: "Evaluate a code string and print the result",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			if code == "" {
				return usageError(errors.New("eval requires -e <code>"))
			}
			v, err := c.newInterpreter(cmd.Context(), "").Eval(code)
			if err != nil {
				return err
			}
			if v.Type() != evaluator.UNIT_VAL {
				fmt.Fprintln(c.stdout, evaluator.Display(v))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&code, "eval", "e", "", "Code to evaluate")
	return cmd
}

func (c *cli) transpileCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "transpile <file>",
		Short: "Transpile a Ruchy file to Rust",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			code, err := build.TranspileSource(string(src))
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			if out == "" {
				fmt.Fprint(c.stdout, code)
				return nil
			}
			if err := writeFile(out, code); err != nil {
				return err
			}
			c.infof("transpiled %s -> %s", args[0], out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "Write Rust to this file instead of stdout")
	return cmd
}

func (c *cli) buildCmd() *cobra.Command {
	var (
		src, pattern, out string
		watch, force      bool
	)
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Incrementally transpile every matching source file",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			bc := c.cfg.Build
			if cmd.Flags().Changed("src") {
				bc.SourceDir = src
			}
			if cmd.Flags().Changed("pattern") {
				bc.Pattern = pattern
			}
			if cmd.Flags().Changed("out") {
				bc.OutputDir = out
			}
			opts := build.Options{
				Extension: bc.Extension,
				Force:     force,
				Quiet:     !c.cfg.Logging.InfoEnabled(),
				Stdout:    c.stdout,
				Stderr:    c.stderr,
			}

			if watch {
				debounce := time.Duration(bc.WatchDebounceMs) * time.Millisecond
				c.infof("watching %s for %s", bc.SourceDir, bc.Pattern)
				err := build.Watch(cmd.Context(), bc.SourceDir, bc.Pattern, bc.OutputDir, opts, debounce)
				if errors.Is(err, build.ErrBadPattern) {
					return usageError(err)
				}
				return err
			}

			_, err := build.TranspileAll(cmd.Context(), bc.SourceDir, bc.Pattern, bc.OutputDir, opts)
			if errors.Is(err, build.ErrBadPattern) {
				return usageError(err)
			}
			return err
		},
	}
	cmd.Flags().StringVar(&src, "src", "", "Source directory (default from config)")
	cmd.Flags().StringVar(&pattern, "pattern", "", "Glob of sources, ** allowed (default from config)")
	cmd.Flags().StringVar(&out, "out", "", "Output directory (default from config)")
	cmd.Flags().BoolVar(&watch, "watch", false, "Rebuild on change until interrupted")
	cmd.Flags().BoolVar(&force, "force", false, "Rebuild even up-to-date targets")
	return cmd
}

func (c *cli) snapshotCmd() *cobra.Command {
	var update bool
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Record or check transpiler output snapshots",
		Args:  usageArgs(cobra.NoArgs),
	}
	cmd.PersistentFlags().BoolVar(&update, "update", false, "Rewrite mismatching snapshots")

	open := func(dir string) (*snapshot.Store, error) {
		sc := c.cfg.Snapshot
		cfg := snapshot.Config{
			Update:       sc.Update || update,
			RuchyVersion: sc.RuchyVersion,
			RustcVersion: sc.RustcVersion,
		}
		if cfg.RuchyVersion == "" {
			cfg.RuchyVersion = Version
		}
		return snapshot.Open(dir, cfg)
	}

	record := &cobra.Command{
		Use:   "record <dir> <file>...",
		Short: "Record a snapshot for each file, named after the file",
		Args:  usageArgs(cobra.MinimumNArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := open(args[0])
			if err != nil {
				return err
			}
			for _, path := range args[1:] {
				src, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				t, err := store.Record(snapshotName(path), string(src))
				if err != nil {
					return err
				}
				fmt.Fprintf(c.stdout, "recorded %s (%s)\n", t.Name, t.OutputHash[:12])
			}
			return store.Save()
		},
	}

	check := &cobra.Command{
		Use:   "check <dir> [file...]",
		Short: "Compare current output with recorded snapshots",
		Long:  "Compare current output with recorded snapshots. With no files, every stored snapshot is re-checked against its stored input.",
		Args:  usageArgs(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := open(args[0])
			if err != nil {
				return err
			}
			var mismatches []snapshot.Mismatch
			if len(args) == 1 {
				mismatches, err = store.CheckAll()
				if err != nil {
					return err
				}
			} else {
				for _, path := range args[1:] {
					src, err := os.ReadFile(path)
					if err != nil {
						return err
					}
					m, err := store.Check(snapshotName(path), string(src))
					if err != nil {
						return err
					}
					if m != nil {
						mismatches = append(mismatches, *m)
					}
				}
			}

			failed, updated := 0, 0
			for _, m := range mismatches {
				if m.Updated {
					updated++
					fmt.Fprintf(c.stdout, "updated %s\n", m)
					continue
				}
				failed++
				fmt.Fprintf(c.stderr, "[ERROR] %s\n", m)
			}
			if updated > 0 {
				if err := store.Save(); err != nil {
					return err
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d snapshot(s) differ", failed)
			}
			c.infof("%d snapshot(s) checked", len(store.Tests()))
			return nil
		},
	}

	cmd.AddCommand(record, check)
	return cmd
}

// snapshotName names a snapshot after its source file.
func snapshotName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func (c *cli) replayCmd() *cobra.Command {
	var out string
	var benchmarks bool
	cmd := &cobra.Command{
		Use:   "replay-to-tests <session.json[.zst]|dir>",
		Short: "Convert recorded REPL sessions into Rust regression tests",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			rc := c.cfg.Replay
			conv := replay.NewConverter(replay.ConversionConfig{
				TestModulePrefix:     rc.TestModulePrefix,
				IncludePropertyTests: rc.IncludePropertyTests,
				IncludeBenchmarks:    rc.IncludeBenchmarks || benchmarks,
				TimeoutMs:            rc.TimeoutMs,
			})

			info, err := os.Stat(args[0])
			if err != nil {
				return err
			}
			var tests []replay.GeneratedTest
			if info.IsDir() {
				tests, err = conv.ConvertDirectory(args[0])
			} else {
				tests, err = conv.ConvertFile(args[0])
			}
			if err != nil {
				return err
			}

			if out == "" {
				out = rc.TestModulePrefix + ".rs"
			}
			if err := conv.WriteTests(tests, out); err != nil {
				return err
			}
			c.infof("generated %d tests -> %s", len(tests), out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "Output file (default: <test_module_prefix>.rs)")
	cmd.Flags().BoolVar(&benchmarks, "benchmarks", false, "Also generate a timing test per session")
	return cmd
}

func (c *cli) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(c.stdout, "ruchy version %s (language %s)\n", Version, ruchy.Version)
			return nil
		},
	}
}

func writeFile(path, content string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, []byte(content), 0o644)
}
