// Package repl implements the interactive Ruchy session: line evaluation
// against a persistent environment, ':' commands, completion, bounded
// history, error recovery and replay recording.
package repl

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"strings"
	"time"

	perrors "github.com/ruchy-lang/ruchy/pkg/ruchy/errors"
	"github.com/ruchy-lang/ruchy/pkg/ruchy/evaluator"
	"github.com/ruchy-lang/ruchy/pkg/ruchy/replay"
	"github.com/ruchy-lang/ruchy/pkg/ruchy/ruchy"
)

// Mode changes how results are shown.
type Mode int

const (
	// ModeInteractive shows results as literals.
	ModeInteractive Mode = iota
	// ModeScript shows results the way println would.
	ModeScript
	// ModeDebug also writes the type and timing of each result to stderr.
	ModeDebug
)

func (m Mode) String() string {
	switch m {
	case ModeScript:
		return "script"
	case ModeDebug:
		return "debug"
	}
	return "interactive"
}

// ParseMode parses a mode name.
func ParseMode(name string) (Mode, error) {
	switch strings.ToLower(name) {
	case "interactive", "normal", "":
		return ModeInteractive, nil
	case "script":
		return ModeScript, nil
	case "debug":
		return ModeDebug, nil
	}
	return 0, fmt.Errorf("unknown mode %q (use interactive, script or debug)", name)
}

// ErrIncomplete is returned when input is unfinished and the session is
// waiting for a continuation line.
var ErrIncomplete = stderrors.New("incomplete input")

// Options configures a Repl. Zero values select the defaults.
type Options struct {
	HistoryCapacity   int
	RecoveryThreshold int
	Mode              Mode
	Prompt            string
	HistoryFile       string        // liner line history, used by Start
	Store             *HistoryStore // optional persistent history
	Stdout            io.Writer     // program output; nil discards it
	Stderr            io.Writer
	Context           context.Context
	SQLMaxRows        int
	Version           string // recorded in replay metadata
}

// Repl is one interactive session.
type Repl struct {
	opts     Options
	interp   *evaluator.Interpreter
	capture  *ruchy.BufferedLogger
	history  *History
	mode     Mode
	recovery recovery
	pending  string

	recorder   *replay.Recorder
	recordPath string

	stdout io.Writer
	stderr io.Writer
}

// New returns a session with an empty environment.
func New(opts Options) *Repl {
	r := &Repl{
		opts:     opts,
		capture:  ruchy.NewBufferedLogger(),
		history:  NewHistory(opts.HistoryCapacity),
		mode:     opts.Mode,
		recovery: newRecovery(opts.RecoveryThreshold),
		stdout:   opts.Stdout,
		stderr:   opts.Stderr,
	}
	if r.stdout == nil {
		r.stdout = io.Discard
	}
	if r.stderr == nil {
		r.stderr = io.Discard
	}
	if r.opts.Version == "" {
		r.opts.Version = ruchy.Version
	}

	interpOpts := []evaluator.Option{
		evaluator.WithLogger(ruchy.TeeLogger(ruchy.WriterLogger(r.stdout), r.capture)),
		evaluator.WithStderr(r.stderr),
	}
	if opts.Context != nil {
		interpOpts = append(interpOpts, evaluator.WithContext(opts.Context))
	}
	if opts.SQLMaxRows > 0 {
		interpOpts = append(interpOpts, evaluator.WithSQLMaxRows(opts.SQLMaxRows))
	}
	r.interp = evaluator.NewInterpreter(interpOpts...)
	return r
}

// Mode returns the current mode.
func (r *Repl) Mode() Mode { return r.mode }

// History returns the session history.
func (r *Repl) History() *History { return r.history }

// Interpreter returns the interpreter holding the session's bindings.
func (r *Repl) Interpreter() *evaluator.Interpreter { return r.interp }

// Pending reports whether an unfinished input is buffered.
func (r *Repl) Pending() bool { return r.pending != "" }

// LastOutput returns what the most recent evaluation printed.
func (r *Repl) LastOutput() string { return r.capture.String() }

// Eval evaluates one line. Lines starting with ':' are commands. The
// result is the value's literal form, or "" for unit. After an error the
// session keeps every binding made so far.
func (r *Repl) Eval(line string) (string, error) {
	trimmed := strings.TrimSpace(line)
	if r.pending == "" {
		if cmd, ok := ParseCommand(trimmed); ok {
			return r.runCommand(cmd)
		}
		if trimmed == "" {
			return "", nil
		}
	}
	mode := replay.ModeInteractive
	if r.mode == ModeScript {
		mode = replay.ModeScript
	}
	return r.evalSource(line, mode)
}

// evalSource evaluates source, records it and applies error recovery.
func (r *Repl) evalSource(source string, mode replay.InputMode) (string, error) {
	if r.pending != "" {
		source = r.pending + "\n" + source
		r.pending = ""
		mode = replay.ModePaste
	}
	if NeedsMoreInput(source) {
		r.pending = source
		return "", ErrIncomplete
	}

	var before map[string]string
	if r.recorder != nil {
		before = r.snapshot()
	}

	r.capture.Reset()
	start := time.Now()
	v, err := r.safeEval(source)
	elapsed := time.Since(start)

	if err != nil {
		strategy, recovered := r.recovery.fail(err)
		if recovered && strategy == ParsePartial && errorAtEnd(err, source) {
			r.pending = source
			return "", ErrIncomplete
		}
		if !recovered {
			err = exhausted(err)
		}
		r.finish(source, mode, "", err, before)
		return "", err
	}

	r.recovery.reset()
	out := r.render(v)
	if r.mode == ModeDebug {
		fmt.Fprintf(r.stderr, "[DEBUG] type=%s elapsed=%s\n", v.Type(), elapsed)
	}
	r.finish(source, mode, out, nil, before)
	return out, nil
}

// safeEval turns a Go panic inside the evaluator into an error so the
// session survives it.
func (r *Repl) safeEval(source string) (v evaluator.Value, err error) {
	defer func() {
		if p := recover(); p != nil {
			v, err = nil, &evaluator.PanicError{Message: fmt.Sprint(p)}
		}
	}()
	return r.interp.Eval(source)
}

func (r *Repl) render(v evaluator.Value) string {
	if v == nil || v.Type() == evaluator.UNIT_VAL {
		return ""
	}
	if r.mode == ModeScript {
		return evaluator.Display(v)
	}
	return v.Inspect()
}

// finish adds the evaluation to history, the persistent store and the
// recording.
func (r *Repl) finish(source string, mode replay.InputMode, out string, err error, before map[string]string) {
	entry := Entry{Command: source, Output: out, Time: time.Now()}
	if err != nil {
		entry.Output = err.Error()
		entry.Failed = true
	}
	r.history.Add(entry)

	if r.opts.Store != nil {
		if serr := r.opts.Store.Append(entry.Command, entry.Output, entry.Failed); serr != nil {
			fmt.Fprintf(r.stderr, "[WARN] history store: %v\n", serr)
		}
	}

	if r.recorder == nil {
		return
	}
	inputID := r.recorder.RecordInput(source, mode)
	outputID := r.recorder.RecordOutput(inputID, replay.ResultOf(out, err), []byte(r.capture.String()), nil)
	if delta := diffBindings(before, r.snapshot()); len(delta) > 0 {
		r.recorder.RecordStateChange(outputID, delta, "")
	}
}

// snapshot renders every user binding.
func (r *Repl) snapshot() map[string]string {
	env := r.interp.Env()
	out := map[string]string{}
	for _, name := range env.Names() {
		if v, ok := env.Get(name); ok {
			out[name] = v.Inspect()
		}
	}
	return out
}

func diffBindings(before, after map[string]string) map[string]string {
	delta := map[string]string{}
	for name, v := range after {
		if old, ok := before[name]; !ok || old != v {
			delta[name] = v
		}
	}
	return delta
}

// errorAtEnd reports whether a parse error points at the end of source,
// meaning more input could complete it.
func errorAtEnd(err error, source string) bool {
	var re *perrors.RuchyError
	if !stderrors.As(err, &re) || !re.IsParseError() {
		return false
	}
	return re.Offset >= len(strings.TrimRight(source, " \t\r\n"))
}

// StartRecording begins recording a replay session written to path when
// recording stops.
func (r *Repl) StartRecording(path string) error {
	if r.recorder != nil {
		return fmt.Errorf("already recording to %s", r.recordPath)
	}
	if !replay.IsSessionFile(path) {
		return fmt.Errorf("recording path %s must end in .json or .json%s", path, replay.CompressedExt)
	}
	r.recorder = replay.NewRecorder(replay.NewMetadata(r.opts.Version, "repl"))
	r.recordPath = path
	return nil
}

// StopRecording writes the recording and stops it.
func (r *Repl) StopRecording() (string, error) {
	if r.recorder == nil {
		return "", stderrors.New("not recording")
	}
	s := r.recorder.Session()
	path := r.recordPath
	r.recorder, r.recordPath = nil, ""
	if err := replay.Save(path, s); err != nil {
		return "", err
	}
	return fmt.Sprintf("Saved %d events to %s", len(s.Timeline), path), nil
}

// Recording returns the session recorded so far, or nil.
func (r *Repl) Recording() *replay.Session {
	if r.recorder == nil {
		return nil
	}
	return r.recorder.Session()
}

// MemoryUsage estimates the bytes held by the session: history text plus
// the size of every binding.
func (r *Repl) MemoryUsage() int {
	total := r.history.Bytes() + len(r.pending)
	env := r.interp.Env()
	seen := map[evaluator.Value]bool{}
	for _, name := range env.Names() {
		v, _ := env.Get(name)
		total += len(name) + sizeOf(v, seen)
	}
	return total
}

// sizeOf estimates the memory held by v. Shared and cyclic values are
// counted once.
func sizeOf(v evaluator.Value, seen map[evaluator.Value]bool) int {
	if v == nil {
		return 0
	}
	switch v.(type) {
	case *evaluator.List, *evaluator.Tuple, *evaluator.Object, *evaluator.HashMap,
		*evaluator.HashSet, *evaluator.DataFrame, *evaluator.EnumVariant:
		if seen[v] {
			return 0
		}
		seen[v] = true
	}

	const header = 16
	switch v := v.(type) {
	case *evaluator.Integer, *evaluator.Float:
		return 8
	case *evaluator.Bool, *evaluator.Unit, *evaluator.Nil:
		return 1
	case *evaluator.Char:
		return 4
	case *evaluator.String:
		return header + len(v.Value)
	case *evaluator.List:
		return header + sizeOfAll(v.Elements, seen)
	case *evaluator.Tuple:
		return header + sizeOfAll(v.Elements, seen)
	case *evaluator.HashSet:
		return header + sizeOfAll(v.Elements, seen)
	case *evaluator.DataFrame:
		n := header
		for _, c := range v.Columns {
			n += len(c.Name) + sizeOfAll(c.Values, seen)
		}
		return n
	}
	// Everything else is estimated from its printed form.
	return header + len(v.Inspect())
}

func sizeOfAll(vs []evaluator.Value, seen map[evaluator.Value]bool) int {
	n := 0
	for _, v := range vs {
		n += sizeOf(v, seen)
	}
	return n
}

// NeedsMoreInput reports whether input has unclosed braces, brackets or
// parentheses outside of strings and comments.
func NeedsMoreInput(input string) bool {
	input = strings.TrimSpace(input)
	if input == "" {
		return false
	}

	depth := 0
	inString := false
	for i := 0; i < len(input); i++ {
		ch := input[i]
		if inString {
			switch ch {
			case '\\':
				i++
			case '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '/':
			if i+1 < len(input) && input[i+1] == '/' {
				for i < len(input) && input[i] != '\n' {
					i++
				}
			}
		case '{', '[', '(':
			depth++
		case '}', ']', ')':
			depth--
		}
	}
	return depth > 0
}
