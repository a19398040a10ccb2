package repl

import (
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ruchy-lang/ruchy/pkg/ruchy/evaluator"
	"github.com/ruchy-lang/ruchy/pkg/ruchy/replay"
)

// CommandKind is the closed set of REPL commands.
type CommandKind int

const (
	CmdHelp CommandKind = iota
	CmdQuit
	CmdClear
	CmdLoad
	CmdHistory
	CmdVars
	CmdFuncs
	CmdSave
	CmdExport
	CmdMode
	CmdCustom
)

// Command is a parsed ':' line. Arg holds the path or mode name; Name is
// set for custom commands.
type Command struct {
	Kind CommandKind
	Name string
	Arg  string
}

// ErrQuit is returned by Eval for :quit.
var ErrQuit = stderrors.New("quit")

var commandKinds = map[string]CommandKind{
	"help":    CmdHelp,
	"h":       CmdHelp,
	"?":       CmdHelp,
	"quit":    CmdQuit,
	"q":       CmdQuit,
	"exit":    CmdQuit,
	"clear":   CmdClear,
	"load":    CmdLoad,
	"history": CmdHistory,
	"vars":    CmdVars,
	"env":     CmdVars,
	"funcs":   CmdFuncs,
	"save":    CmdSave,
	"export":  CmdExport,
	"mode":    CmdMode,
}

// customCommands are handled by name rather than by a dedicated kind.
var customCommands = map[string]func(r *Repl, arg string) (string, error){
	"types":  (*Repl).cmdTypes,
	"reset":  (*Repl).cmdReset,
	"record": (*Repl).cmdRecord,
}

// ParseCommand parses a line starting with ':'. Names with no built-in
// meaning parse as CmdCustom.
func ParseCommand(line string) (Command, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, ":") || len(line) == 1 {
		return Command{}, false
	}
	name, arg, _ := strings.Cut(line[1:], " ")
	arg = strings.TrimSpace(arg)
	if kind, ok := commandKinds[name]; ok {
		return Command{Kind: kind, Arg: arg}, true
	}
	return Command{Kind: CmdCustom, Name: name, Arg: arg}, true
}

// CommandNames lists every command spelling with its leading ':'.
func CommandNames() []string {
	var names []string
	for name := range commandKinds {
		names = append(names, ":"+name)
	}
	for name := range customCommands {
		names = append(names, ":"+name)
	}
	sort.Strings(names)
	return names
}

const helpText = `Ruchy REPL Commands:
  :help, :h            Show this help
  :quit, :exit, :q     Exit the REPL
  :clear               Clear command history
  :reset               Reset variable bindings
  :history             Show command history
  :vars, :env          Show variable bindings
  :funcs               Show defined functions
  :types               Show the type of every binding
  :load <path>         Evaluate a file in this session
  :save <path>         Save history as a source file
  :export <path>       Export a transcript (.html, .md or source)
  :mode [mode]         Show or set the mode (interactive, script, debug)
  :record <path>|off   Record a replay session, or stop and save it

Enter expressions to evaluate them.`

// runCommand dispatches a parsed command.
func (r *Repl) runCommand(cmd Command) (string, error) {
	switch cmd.Kind {
	case CmdHelp:
		return helpText, nil
	case CmdQuit:
		return "", ErrQuit
	case CmdClear:
		r.history.Clear()
		return "History cleared", nil
	case CmdLoad:
		return r.cmdLoad(cmd.Arg)
	case CmdHistory:
		return r.cmdHistory(), nil
	case CmdVars:
		return r.cmdVars(), nil
	case CmdFuncs:
		return r.cmdFuncs(), nil
	case CmdSave:
		return r.cmdSave(cmd.Arg)
	case CmdExport:
		return r.cmdExport(cmd.Arg)
	case CmdMode:
		return r.cmdMode(cmd.Arg)
	}
	if handler, ok := customCommands[cmd.Name]; ok {
		return handler(r, cmd.Arg)
	}
	return "", fmt.Errorf("unknown command: :%s (type :help for commands)", cmd.Name)
}

func (r *Repl) cmdLoad(path string) (string, error) {
	if path == "" {
		return "", stderrors.New("usage: :load <path>")
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("loading %s: %w", path, err)
	}
	out, err := r.evalSource(string(src), replay.ModeFile)
	if err != nil {
		return "", err
	}
	if out == "" {
		return "Loaded " + path, nil
	}
	return out, nil
}

func (r *Repl) cmdHistory() string {
	cmds := r.history.Commands()
	if len(cmds) == 0 {
		return "No history"
	}
	lines := make([]string, len(cmds))
	for i, c := range cmds {
		lines[i] = fmt.Sprintf("%d: %s", i+1, c)
	}
	return strings.Join(lines, "\n")
}

// bindings returns the user bindings in definition order, split into
// plain values and functions.
func (r *Repl) bindings() (vars, funcs []string) {
	env := r.interp.Env()
	for _, name := range env.Names() {
		v, _ := env.Get(name)
		switch v.(type) {
		case *evaluator.Function:
			funcs = append(funcs, name)
		case *evaluator.Builtin:
		default:
			vars = append(vars, name)
		}
	}
	return vars, funcs
}

func (r *Repl) cmdVars() string {
	vars, _ := r.bindings()
	if len(vars) == 0 {
		return "No variables defined"
	}
	env := r.interp.Env()
	lines := make([]string, len(vars))
	for i, name := range vars {
		v, _ := env.Get(name)
		prefix := ""
		if env.IsMutable(name) {
			prefix = "mut "
		}
		lines[i] = fmt.Sprintf("%s%s = %s", prefix, name, truncate(v.Inspect(), 60))
	}
	return strings.Join(lines, "\n")
}

func (r *Repl) cmdFuncs() string {
	_, funcs := r.bindings()
	if len(funcs) == 0 {
		return "No functions defined"
	}
	env := r.interp.Env()
	lines := make([]string, len(funcs))
	for i, name := range funcs {
		v, _ := env.Get(name)
		lines[i] = v.Inspect()
	}
	return strings.Join(lines, "\n")
}

func (r *Repl) cmdTypes(string) (string, error) {
	env := r.interp.Env()
	names := env.Names()
	if len(names) == 0 {
		return "No variables defined", nil
	}
	lines := make([]string, 0, len(names))
	for _, name := range names {
		v, _ := env.Get(name)
		lines = append(lines, fmt.Sprintf("%s: %s", name, v.Type()))
	}
	return strings.Join(lines, "\n"), nil
}

func (r *Repl) cmdReset(string) (string, error) {
	r.interp.Reset()
	r.recovery.reset()
	r.pending = ""
	return "Bindings reset", nil
}

func (r *Repl) cmdSave(path string) (string, error) {
	if path == "" {
		return "", stderrors.New("usage: :save <path>")
	}
	var b strings.Builder
	n := 0
	for _, e := range r.history.Entries() {
		if e.Failed {
			continue
		}
		b.WriteString(e.Command)
		b.WriteString("\n")
		n++
	}
	if err := writeFile(path, []byte(b.String())); err != nil {
		return "", err
	}
	return fmt.Sprintf("Saved %d entries to %s", n, path), nil
}

func (r *Repl) cmdExport(path string) (string, error) {
	if path == "" {
		return "", stderrors.New("usage: :export <path>")
	}
	data, err := Export(r.history.Entries(), ExportFormatFor(path))
	if err != nil {
		return "", err
	}
	if err := writeFile(path, data); err != nil {
		return "", err
	}
	return "Exported session to " + path, nil
}

func (r *Repl) cmdMode(name string) (string, error) {
	if name == "" {
		return "Current mode: " + r.mode.String(), nil
	}
	mode, err := ParseMode(name)
	if err != nil {
		return "", err
	}
	r.mode = mode
	return "Mode: " + mode.String(), nil
}

func (r *Repl) cmdRecord(arg string) (string, error) {
	switch arg {
	case "":
		if r.recorder == nil {
			return "Not recording", nil
		}
		return fmt.Sprintf("Recording to %s (%d events)", r.recordPath, r.recorder.Len()), nil
	case "off":
		return r.StopRecording()
	}
	if err := r.StartRecording(arg); err != nil {
		return "", err
	}
	return "Recording to " + arg, nil
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func truncate(s string, max int) string {
	if strings.Contains(s, "\n") {
		return strings.ReplaceAll(s, "\n", "\n  ")
	}
	if len(s) > max {
		return s[:max-3] + "..."
	}
	return s
}
