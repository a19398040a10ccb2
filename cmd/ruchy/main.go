// Command ruchy runs, transpiles and tests Ruchy programs.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ruchy-lang/ruchy/config"
	perrors "github.com/ruchy-lang/ruchy/pkg/ruchy/errors"
	"github.com/ruchy-lang/ruchy/pkg/ruchy/evaluator"
	"github.com/ruchy-lang/ruchy/pkg/ruchy/ruchy"
)

// Version is set at build time via -ldflags
var Version = ruchy.Version

// Exit codes
const (
	exitOK    = 0
	exitError = 1 // evaluation or transpilation failed
	exitUsage = 2 // bad flags or arguments
	exitIO    = 3 // a file could not be read or written
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr, os.Getenv)
	cancel()
	if err != nil {
		printError(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

// run is the main entry point, designed for testability (Mat Ryer pattern)
func run(ctx context.Context, args []string, stdout, stderr io.Writer, getenv func(string) string) error {
	root := newRootCmd(&cli{stdout: stdout, stderr: stderr, getenv: getenv})
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// cli is the state shared by every command.
type cli struct {
	stdout     io.Writer
	stderr     io.Writer
	getenv     func(string) string
	configPath string
	cfg        *config.Config
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:   "ruchy",
		Short: "Ruchy language interpreter and Rust transpiler",
		Long: `ruchy - run Ruchy programs or transpile them to Rust

With no command, ruchy starts the interactive REPL.

Config Resolution:
  1. --config flag
  2. RUCHY_CONFIG environment variable
  3. ./ruchy.yaml
  4. ~/.config/ruchy/ruchy.yaml`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          usageArgs(cobra.NoArgs),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.loadConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.startREPL(cmd.Context(), "")
		},
	}
	root.SetVersionTemplate("ruchy version {{.Version}}\n")
	root.SetOut(c.stdout)
	root.SetErr(c.stderr)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError(err)
	})
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "Path to config file (default: auto-detect)")

	root.AddCommand(
		c.replCmd(),
		c.runCmd(),
		c.evalCmd(),
		c.transpileCmd(),
		c.buildCmd(),
		c.snapshotCmd(),
		c.replayCmd(),
		c.versionCmd(),
	)
	return root
}

func (c *cli) loadConfig() error {
	cfg, _, err := config.LoadWithPath(c.configPath, c.getenv)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	for _, w := range config.Warnings(cfg) {
		fmt.Fprintf(c.stderr, "[WARN] %s\n", w)
	}
	c.cfg = cfg
	return nil
}

func (c *cli) infof(format string, args ...any) {
	if c.cfg == nil || c.cfg.Logging.InfoEnabled() {
		fmt.Fprintf(c.stdout, "[INFO] "+format+"\n", args...)
	}
}

func (c *cli) newInterpreter(ctx context.Context, filename string) *evaluator.Interpreter {
	opts := []evaluator.Option{
		evaluator.WithLogger(ruchy.WriterLogger(c.stdout)),
		evaluator.WithStderr(c.stderr),
		evaluator.WithContext(ctx),
		evaluator.WithSQLMaxRows(c.cfg.DataFrame.SQLMaxRows),
	}
	if filename != "" {
		opts = append(opts, evaluator.WithFilename(filename))
	}
	return evaluator.NewInterpreter(opts...)
}

// exitErr carries an explicit exit code.
type exitErr struct {
	code int
	err  error
}

func (e *exitErr) Error() string { return e.err.Error() }
func (e *exitErr) Unwrap() error { return e.err }

func usageError(err error) error {
	return &exitErr{code: exitUsage, err: err}
}

func usageArgs(check cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := check(cmd, args); err != nil {
			return usageError(err)
		}
		return nil
	}
}

// exitCode classifies err for the process exit status.
func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var ee *exitErr
	if errors.As(err, &ee) {
		return ee.code
	}
	var re *perrors.RuchyError
	var pe *evaluator.PanicError
	if errors.As(err, &re) || errors.As(err, &pe) {
		return exitError
	}
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) || errors.Is(err, fs.ErrNotExist) {
		return exitIO
	}
	return exitError
}

func printError(w io.Writer, err error) {
	var re *perrors.RuchyError
	if errors.As(err, &re) {
		fmt.Fprintln(w, re.PrettyString())
		return
	}
	fmt.Fprintf(w, "error: %v\n", err)
}
