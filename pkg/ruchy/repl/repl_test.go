package repl

import (
	"bytes"
	stderrors "errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	perrors "github.com/ruchy-lang/ruchy/pkg/ruchy/errors"
	"github.com/ruchy-lang/ruchy/pkg/ruchy/replay"
)

// evalAll feeds lines to r and fails on the first error.
func evalAll(t *testing.T, r *Repl, lines ...string) string {
	t.Helper()
	var last string
	for _, line := range lines {
		out, err := r.Eval(line)
		require.NoError(t, err, line)
		last = out
	}
	return last
}

func TestEval(t *testing.T) {
	r := New(Options{})
	tests := []struct {
		input    string
		expected string
	}{
		{"2 + 2", "4"},
		{"let x = 5", ""},
		{"x * 2", "10"},
		{`"hi"`, `"hi"`},
		{"   ", ""},
		{"[1, 2, 3].len()", "3"},
	}
	for _, tt := range tests {
		got, err := r.Eval(tt.input)
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.expected, got, tt.input)
	}
}

func TestEvalPrintsThroughStdout(t *testing.T) {
	var out bytes.Buffer
	r := New(Options{Stdout: &out})
	got, err := r.Eval(`println("hello")`)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, "hello\n", out.String())
	assert.Equal(t, "hello\n", r.LastOutput())
}

func TestMultiLineInput(t *testing.T) {
	r := New(Options{})

	_, err := r.Eval("fn add(a, b) {")
	require.ErrorIs(t, err, ErrIncomplete)
	assert.True(t, r.Pending())

	_, err = r.Eval("a + b")
	require.ErrorIs(t, err, ErrIncomplete)

	got, err := r.Eval("}")
	require.NoError(t, err)
	assert.Equal(t, "fn add(a, b)", got)
	assert.False(t, r.Pending())

	assert.Equal(t, "5", evalAll(t, r, "add(2, 3)"))
	assert.Equal(t, 2, r.History().Len())
}

func TestParsePartialContinuation(t *testing.T) {
	r := New(Options{})
	_, err := r.Eval("let y =")
	require.ErrorIs(t, err, ErrIncomplete)
	assert.Equal(t, "", evalAll(t, r, "7"))
	assert.Equal(t, "7", evalAll(t, r, "y"))
}

func TestErrorsPreserveEnvironment(t *testing.T) {
	r := New(Options{})
	evalAll(t, r, "let total = 10")

	_, err := r.Eval("totl + 1")
	require.Error(t, err)
	assert.Equal(t, perrors.KindUndefinedVariable, perrors.KindOf(err))

	_, err = r.Eval("1 / 0")
	require.Error(t, err)

	assert.Equal(t, "10", evalAll(t, r, "total"))

	_, err = r.Eval(`panic("boom")`)
	require.Error(t, err)
	assert.Equal(t, "11", evalAll(t, r, "total + 1"))
}

func TestRecoveryThreshold(t *testing.T) {
	r := New(Options{RecoveryThreshold: 2})

	for i := 0; i < 2; i++ {
		_, err := r.Eval("missing")
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrRecoveryExhausted)
	}
	_, err := r.Eval("missing")
	require.ErrorIs(t, err, ErrRecoveryExhausted)
	assert.Equal(t, perrors.KindUndefinedVariable, perrors.KindOf(err))

	// Once exhausted, unfinished input is reported instead of buffered.
	_, err = r.Eval("let z =")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrIncomplete)
	assert.False(t, r.Pending())

	evalAll(t, r, "1")
	_, err = r.Eval("missing")
	assert.NotErrorIs(t, err, ErrRecoveryExhausted)

	out, err := r.Eval(":reset")
	require.NoError(t, err)
	assert.Equal(t, "Bindings reset", out)
	assert.Equal(t, 0, r.recovery.attempts)
}

func TestStrategyFor(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected Strategy
	}{
		{"syntax", perrors.New("PARSE-0002", map[string]any{"Token": ")"}), ParsePartial},
		{"undefined", perrors.UndefinedVariable("x", nil), SkipStatement},
		{"division", perrors.New("OP-0001", nil), Reset},
		{"foreign", stderrors.New("disk on fire"), Reset},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, StrategyFor(tt.err))
		})
	}
	assert.Equal(t, "parse-partial", ParsePartial.String())
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		input string
		cmd   Command
		ok    bool
	}{
		{":help", Command{Kind: CmdHelp}, true},
		{":q", Command{Kind: CmdQuit}, true},
		{":clear", Command{Kind: CmdClear}, true},
		{":load  lib.ruchy ", Command{Kind: CmdLoad, Arg: "lib.ruchy"}, true},
		{":history", Command{Kind: CmdHistory}, true},
		{":vars", Command{Kind: CmdVars}, true},
		{":funcs", Command{Kind: CmdFuncs}, true},
		{":save out.ruchy", Command{Kind: CmdSave, Arg: "out.ruchy"}, true},
		{":export t.html", Command{Kind: CmdExport, Arg: "t.html"}, true},
		{":mode debug", Command{Kind: CmdMode, Arg: "debug"}, true},
		{":types", Command{Kind: CmdCustom, Name: "types"}, true},
		{":record s.json", Command{Kind: CmdCustom, Name: "record", Arg: "s.json"}, true},
		{"x + 1", Command{}, false},
		{":", Command{}, false},
	}
	for _, tt := range tests {
		cmd, ok := ParseCommand(tt.input)
		assert.Equal(t, tt.ok, ok, tt.input)
		assert.Equal(t, tt.cmd, cmd, tt.input)
	}
}

func TestCommands(t *testing.T) {
	r := New(Options{})
	evalAll(t, r, "let x = 5", "let mut count = 0", "fn add(a, b) { a + b }")

	run := func(line string) string {
		t.Helper()
		out, err := r.Eval(line)
		require.NoError(t, err, line)
		return out
	}

	assert.Contains(t, run(":help"), ":record <path>|off")
	assert.Equal(t, "x = 5\nmut count = 0", run(":vars"))
	assert.Equal(t, "fn add(a, b)", run(":funcs"))
	assert.Equal(t, "x: integer\ncount: integer\nadd: function", run(":types"))
	assert.Equal(t, "1: let x = 5\n2: let mut count = 0\n3: fn add(a, b) { a + b }", run(":history"))

	assert.Equal(t, "Current mode: interactive", run(":mode"))
	assert.Equal(t, "Mode: script", run(":mode script"))
	assert.Equal(t, ModeScript, r.Mode())
	assert.Equal(t, "hi", run(`"hi"`))
	_, err := r.Eval(":mode bogus")
	assert.Error(t, err)

	assert.Equal(t, "History cleared", run(":clear"))
	assert.Equal(t, "No history", run(":history"))

	run(":reset")
	assert.Equal(t, "No variables defined", run(":vars"))
	assert.Equal(t, "No functions defined", run(":funcs"))
	_, err = r.Eval("x")
	assert.Error(t, err)

	_, err = r.Eval(":quit")
	assert.ErrorIs(t, err, ErrQuit)

	_, err = r.Eval(":bogus")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown command: :bogus")
}

func TestDebugModeWritesTrace(t *testing.T) {
	var stderr bytes.Buffer
	r := New(Options{Mode: ModeDebug, Stderr: &stderr})
	assert.Equal(t, "3", evalAll(t, r, "1 + 2"))
	assert.Contains(t, stderr.String(), "[DEBUG] type=integer")
}

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "session.ruchy")

	r := New(Options{})
	evalAll(t, r, "let a = 1", "let b = a + 1")
	_, err := r.Eval("oops")
	require.Error(t, err)

	out, err := r.Eval(":save " + path)
	require.NoError(t, err)
	assert.Equal(t, "Saved 2 entries to "+path, out)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "let a = 1\nlet b = a + 1\n", string(data))

	fresh := New(Options{})
	out, err = fresh.Eval(":load " + path)
	require.NoError(t, err)
	assert.Equal(t, "Loaded "+path, out)
	assert.Equal(t, "2", evalAll(t, fresh, "b"))

	_, err = fresh.Eval(":load " + filepath.Join(dir, "missing.ruchy"))
	assert.ErrorIs(t, err, os.ErrNotExist)
	_, err = fresh.Eval(":save")
	assert.Error(t, err)
}

func TestExport(t *testing.T) {
	dir := t.TempDir()
	r := New(Options{})
	evalAll(t, r, "let a = 1", "a + 41")
	_, err := r.Eval("nope")
	require.Error(t, err)

	export := func(name string) string {
		t.Helper()
		path := filepath.Join(dir, name)
		_, err := r.Eval(":export " + path)
		require.NoError(t, err)
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		return string(data)
	}

	md := export("t.md")
	assert.Contains(t, md, "```ruchy\na + 41\n```")
	assert.Contains(t, md, "```text\n42\n```")
	assert.Contains(t, md, "**Error**")

	html := export("t.html")
	assert.True(t, strings.HasPrefix(html, "<!DOCTYPE html>"))
	assert.Contains(t, html, `<code class="language-ruchy">`)
	assert.Contains(t, html, "<h1")

	src := export("t.ruchy")
	assert.Equal(t, "// Exported from a Ruchy REPL session\n\nlet a = 1\na + 41\n", src)
}

func TestComplete(t *testing.T) {
	r := New(Options{})
	evalAll(t, r, "let counter = 1")

	assert.Contains(t, r.Complete("cou"), "counter")
	assert.Contains(t, r.Complete("x + cou"), "counter")
	assert.Contains(t, r.Complete("le"), "let")
	assert.Equal(t, []string{":help"}, r.Complete(":he"))
	assert.Nil(t, r.Complete(""))
	assert.Nil(t, r.Complete("counter "))
	assert.Empty(t, r.Complete("zzzq"))

	all := r.Complete("c")
	assert.True(t, sort.StringsAreSorted(all))
	assert.Contains(t, all, "continue")
}

func TestMemoryUsage(t *testing.T) {
	r := New(Options{})
	base := r.MemoryUsage()
	evalAll(t, r, `let s = "`+strings.Repeat("a", 1000)+`"`)
	assert.Greater(t, r.MemoryUsage(), base+2000, "history and binding both hold the text")

	evalAll(t, r, "let xs = [s, s, s]")
	assert.Less(t, r.MemoryUsage(), 10000)
}

func TestRecording(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	r := New(Options{})

	out, err := r.Eval(":record " + path)
	require.NoError(t, err)
	assert.Equal(t, "Recording to "+path, out)

	evalAll(t, r, "let x = 42", `println("hi")`, "x + 1")
	_, err = r.Eval("undefined_var")
	require.Error(t, err)

	out, err = r.Eval(":record off")
	require.NoError(t, err)
	assert.Equal(t, "Saved 9 events to "+path, out)
	assert.Nil(t, r.Recording())

	s, err := replay.Load(path)
	require.NoError(t, err)
	pairs := s.Pairs()
	require.Len(t, pairs, 4)
	assert.Equal(t, replay.Unit(), pairs[0].Output.Result)
	assert.Equal(t, "hi\n", string(pairs[1].Output.Stdout))
	assert.Equal(t, replay.Success("43"), pairs[2].Output.Result)
	assert.Equal(t, replay.ResultError, pairs[3].Output.Result.Kind)
	assert.Contains(t, pairs[3].Output.Result.Message, "undefined variable: undefined_var")

	change := s.Timeline[2].Event.StateChange
	require.NotNil(t, change)
	assert.Equal(t, map[string]string{"x": "42"}, change.BindingsDelta)

	report := replay.Validate(s, New(Options{}))
	assert.True(t, report.Passed(), "%v", report.Divergences)

	_, err = r.Eval(":record off")
	assert.Error(t, err)
	_, err = r.Eval(":record notes.txt")
	assert.Error(t, err)
}

func TestNeedsMoreInput(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		{"", false},
		{"1 + 2", false},
		{"fn f() {", true},
		{"[1, 2,", true},
		{"foo(", true},
		{`"{"`, false},
		{`"a\"{"`, false},
		{"x // {", false},
		{"{ }", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, NeedsMoreInput(tt.input), tt.input)
	}
}

func TestHistoryRing(t *testing.T) {
	h := NewHistory(3)
	assert.Equal(t, 3, h.Capacity())
	for _, c := range []string{"cmd1", "cmd2", "cmd3", "cmd4"} {
		h.Add(Entry{Command: c})
	}
	assert.Equal(t, 3, h.Len())
	assert.Equal(t, []string{"cmd2", "cmd3", "cmd4"}, h.Commands())
	first, ok := h.Get(0)
	require.True(t, ok)
	assert.Equal(t, "cmd2", first.Command)
	_, ok = h.Get(3)
	assert.False(t, ok)
	assert.Equal(t, 12, h.Bytes())

	prev := func() string {
		c, _ := h.Previous()
		return c
	}
	assert.Equal(t, "cmd4", prev())
	assert.Equal(t, "cmd3", prev())
	assert.Equal(t, "cmd2", prev())
	_, ok = h.Previous()
	assert.False(t, ok)
	next, ok := h.Next()
	assert.True(t, ok)
	assert.Equal(t, "cmd3", next)

	h.Clear()
	assert.Equal(t, 0, h.Len())
	assert.Equal(t, DefaultHistoryCapacity, NewHistory(0).Capacity())
}

func TestHistorySearch(t *testing.T) {
	h := NewHistory(100)
	for _, c := range []string{"let x = 5", "let y = 10", "print(x)", "let z = 15"} {
		h.Add(Entry{Command: c})
	}
	assert.Len(t, h.Search("let"), 3)
	assert.Len(t, h.Search("print"), 1)
}
