package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	perrors "github.com/ruchy-lang/ruchy/pkg/ruchy/errors"
	"github.com/ruchy-lang/ruchy/pkg/ruchy/replay"
)

// testRun runs the CLI with an environment that cannot see any real config.
func testRun(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	home := t.TempDir()
	getenv := func(key string) string {
		if key == "HOME" {
			return home
		}
		return ""
	}
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	err := run(context.Background(), args, stdout, stderr, getenv)
	return stdout.String(), stderr.String(), err
}

func writeSource(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestRunVersion(t *testing.T) {
	stdout, _, err := testRun(t, "--version")
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if !strings.Contains(stdout, "ruchy version") {
		t.Errorf("expected version output, got %q", stdout)
	}

	stdout, _, err = testRun(t, "version")
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if !strings.Contains(stdout, "ruchy version "+Version) {
		t.Errorf("expected version output, got %q", stdout)
	}
}

func TestRunHelp(t *testing.T) {
	stdout, _, err := testRun(t, "--help")
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	for _, want := range []string{"ruchy - run Ruchy programs", "--config", "transpile", "replay-to-tests"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("expected %q in help, got %q", want, stdout)
		}
	}
}

func TestRunUsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"invalid flag", []string{"--invalid-flag"}},
		{"unknown command", []string{"bogus"}},
		{"eval without code", []string{"eval"}},
		{"run without file", []string{"run"}},
		{"transpile with two files", []string{"transpile", "a.ruchy", "b.ruchy"}},
		{"bad mode", []string{"repl", "--mode", "turbo"}},
		{"bad pattern", []string{"build", "--pattern", "src/[.ruchy", "--src", "."}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := testRun(t, tt.args...)
			if err == nil {
				t.Fatal("expected error")
			}
			if code := exitCode(err); code != exitUsage {
				t.Errorf("expected exit code %d, got %d (%v)", exitUsage, code, err)
			}
		})
	}
}

func TestRunMissingConfig(t *testing.T) {
	_, _, err := testRun(t, "version", "--config", "/nonexistent/ruchy.yaml")
	if err == nil {
		t.Fatal("expected error for missing config")
	}
	if !strings.Contains(err.Error(), "config file not found") {
		t.Errorf("expected 'config file not found' error, got %q", err.Error())
	}
	if code := exitCode(err); code != exitIO {
		t.Errorf("expected exit code %d, got %d", exitIO, code)
	}
}

func TestRunConfigWarnings(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "ruchy.yaml")
	writeSource(t, cfgPath, "snapshot:\n  update: true\n")

	_, stderr, err := testRun(t, "version", "--config", cfgPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(stderr, "[WARN] snapshot.update is on") {
		t.Errorf("expected warning on stderr, got %q", stderr)
	}
}

func TestEval(t *testing.T) {
	tests := []struct {
		code     string
		expected string
	}{
		{"1 + 2", "3\n"},
		{`"hello"`, "hello\n"},
		{`println("hi")`, "hi\n"},
		{"let x = 5", ""},
		{"[1, 2, 3].map(|x| x * 2)", "[2, 4, 6]\n"},
	}
	for _, tt := range tests {
		stdout, _, err := testRun(t, "eval", "-e", tt.code)
		if err != nil {
			t.Errorf("eval %q: unexpected error: %v", tt.code, err)
			continue
		}
		if stdout != tt.expected {
			t.Errorf("eval %q: expected %q, got %q", tt.code, tt.expected, stdout)
		}
	}
}

func TestEvalError(t *testing.T) {
	_, _, err := testRun(t, "eval", "-e", "undefined_thing + 1")
	if err == nil {
		t.Fatal("expected error")
	}
	if perrors.KindOf(err) != perrors.KindUndefinedVariable {
		t.Errorf("expected undefined variable, got %v", err)
	}
	if code := exitCode(err); code != exitError {
		t.Errorf("expected exit code %d, got %d", exitError, code)
	}

	_, _, err = testRun(t, "eval", "-e", `panic("boom")`)
	if code := exitCode(err); code != exitError {
		t.Errorf("expected exit code %d for panic, got %d (%v)", exitError, code, err)
	}
}

func TestRunFile(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "answer.ruchy")
	writeSource(t, script, "let x = 2\nprintln(x * 21)\n")

	stdout, _, err := testRun(t, "run", script)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stdout != "42\n" {
		t.Errorf("expected %q, got %q", "42\n", stdout)
	}

	_, _, err = testRun(t, "run", filepath.Join(dir, "missing.ruchy"))
	if code := exitCode(err); code != exitIO {
		t.Errorf("expected exit code %d for missing file, got %d (%v)", exitIO, code, err)
	}

	broken := filepath.Join(dir, "broken.ruchy")
	writeSource(t, broken, "let = 1")
	_, _, err = testRun(t, "run", broken)
	if code := exitCode(err); code != exitError {
		t.Errorf("expected exit code %d for parse error, got %d (%v)", exitError, code, err)
	}
}

func TestTranspile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "arith.ruchy")
	writeSource(t, src, "2 + 3 * 4")

	stdout, _, err := testRun(t, "transpile", src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(stdout, "fn main()") || !strings.Contains(stdout, "let result = 2 + 3 * 4;") {
		t.Errorf("unexpected Rust output %q", stdout)
	}

	out := filepath.Join(dir, "gen", "arith.rs")
	stdout, _, err = testRun(t, "transpile", src, "-o", out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(stdout, "[INFO] transpiled") {
		t.Errorf("expected info line, got %q", stdout)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("expected output file: %v", err)
	}
	if !strings.Contains(string(data), "fn main()") {
		t.Errorf("unexpected file content %q", data)
	}

	broken := filepath.Join(dir, "broken.ruchy")
	writeSource(t, broken, "fn (")
	_, _, err = testRun(t, "transpile", broken)
	if err == nil || !strings.Contains(err.Error(), broken) {
		t.Errorf("expected error naming %s, got %v", broken, err)
	}
}

func TestBuild(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	out := filepath.Join(dir, "out")
	writeSource(t, filepath.Join(src, "a.ruchy"), "let a = 1")
	writeSource(t, filepath.Join(src, "nested", "b.ruchy"), "let b = 2")
	writeSource(t, filepath.Join(src, "notes.txt"), "ignored")

	stdout, _, err := testRun(t, "build", "--src", src, "--out", out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, rel := range []string{"a.rs", filepath.Join("nested", "b.rs")} {
		if _, err := os.Stat(filepath.Join(out, rel)); err != nil {
			t.Errorf("expected %s to be written: %v", rel, err)
		}
	}
	if !strings.Contains(stdout, "2 written, 0 up to date") {
		t.Errorf("unexpected build report %q", stdout)
	}

	stdout, _, err = testRun(t, "build", "--src", src, "--out", out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(stdout, "0 written, 2 up to date") {
		t.Errorf("expected incremental rebuild to skip, got %q", stdout)
	}
}

func TestSnapshot(t *testing.T) {
	dir := t.TempDir()
	snaps := filepath.Join(dir, "snapshots")
	src := filepath.Join(dir, "arith.ruchy")
	writeSource(t, src, "2 + 3 * 4")

	stdout, _, err := testRun(t, "snapshot", "record", snaps, src)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if !strings.Contains(stdout, "recorded arith") {
		t.Errorf("unexpected record output %q", stdout)
	}

	if _, _, err := testRun(t, "snapshot", "check", snaps); err != nil {
		t.Errorf("check all: %v", err)
	}
	if _, _, err := testRun(t, "snapshot", "check", snaps, src); err != nil {
		t.Errorf("check file: %v", err)
	}

	writeSource(t, src, "2 * 3 + 4")
	_, stderr, err := testRun(t, "snapshot", "check", snaps, src)
	if err == nil {
		t.Fatal("expected mismatch error")
	}
	if code := exitCode(err); code != exitError {
		t.Errorf("expected exit code %d, got %d", exitError, code)
	}
	if !strings.Contains(stderr, "[ERROR] arith: hash") {
		t.Errorf("expected mismatch report, got %q", stderr)
	}

	stdout, _, err = testRun(t, "snapshot", "check", "--update", snaps, src)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !strings.Contains(stdout, "updated arith") {
		t.Errorf("expected update report, got %q", stdout)
	}
	if _, _, err := testRun(t, "snapshot", "check", snaps, src); err != nil {
		t.Errorf("check after update: %v", err)
	}
}

func TestReplayToTests(t *testing.T) {
	dir := t.TempDir()
	rec := replay.NewRecorder(replay.NewMetadata(Version))
	in := rec.RecordInput("2 + 2", replay.ModeInteractive)
	rec.RecordOutput(in, replay.Success("4"), nil, nil)
	in = rec.RecordInput("nope", replay.ModeInteractive)
	rec.RecordOutput(in, replay.Failure("undefined variable: nope"), nil, nil)

	session := filepath.Join(dir, "basic.json")
	if err := replay.Save(session, rec.Session()); err != nil {
		t.Fatal(err)
	}

	out := filepath.Join(dir, "generated.rs")
	stdout, _, err := testRun(t, "replay-to-tests", session, "-o", out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(stdout, "generated 6 tests") {
		t.Errorf("unexpected report %q", stdout)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	code := string(data)
	for _, want := range []string{"mod replay_generated", "fn test_basic_001", "fn test_basic_session_integration", "fn test_basic_003_error_handling"} {
		if !strings.Contains(code, want) {
			t.Errorf("expected %q in generated tests", want)
		}
	}

	_, _, err = testRun(t, "replay-to-tests", filepath.Join(dir, "missing.json"))
	if code := exitCode(err); code != exitIO {
		t.Errorf("expected exit code %d, got %d (%v)", exitIO, code, err)
	}
}

func TestExitCode(t *testing.T) {
	pathErr := &fs.PathError{Op: "open", Path: "x", Err: fs.ErrNotExist}
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, exitOK},
		{"usage", usageError(errors.New("bad flag")), exitUsage},
		{"language error", perrors.New("PARSE-0001", nil), exitError},
		{"wrapped path error", fmt.Errorf("reading: %w", pathErr), exitIO},
		{"other", errors.New("boom"), exitError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exitCode(tt.err); got != tt.want {
				t.Errorf("exitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}
