package evaluator

import (
	"context"
	stderrors "errors"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/ruchy-lang/ruchy/pkg/ruchy/ast"
	perrors "github.com/ruchy-lang/ruchy/pkg/ruchy/errors"
	"github.com/ruchy-lang/ruchy/pkg/ruchy/parser"
)

// Interpreter evaluates Ruchy source against one persistent global scope.
// Bindings made by one Eval call are visible to the next.
type Interpreter struct {
	env      *Environment
	filename string
}

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithLogger routes println, print and dbg output.
func WithLogger(l Logger) Option {
	return func(in *Interpreter) { in.env.SetLogger(l) }
}

// WithStderr sets the writer for eprintln and dbg!.
func WithStderr(w io.Writer) Option {
	return func(in *Interpreter) { in.env.SetStderr(w) }
}

// WithContext makes sleep and long loops stop when ctx is done.
func WithContext(ctx context.Context) Option {
	return func(in *Interpreter) { in.env.SetContext(ctx) }
}

// WithSQLMaxRows caps the rows read_sql loads.
func WithSQLMaxRows(n int) Option {
	return func(in *Interpreter) { in.env.SetSQLMaxRows(n) }
}

// WithFilename names the source in error messages.
func WithFilename(name string) Option {
	return func(in *Interpreter) { in.filename = name }
}

// NewInterpreter returns an interpreter with an empty global scope.
func NewInterpreter(opts ...Option) *Interpreter {
	in := &Interpreter{env: NewEnvironment()}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// Env returns the global scope.
func (in *Interpreter) Env() *Environment { return in.env }

// Reset drops every binding, keeping the configured output and limits.
func (in *Interpreter) Reset() {
	rt := in.env.rt
	in.env = NewEnvironment()
	in.env.rt.ctx = rt.ctx
	in.env.rt.logger = rt.logger
	in.env.rt.stderr = rt.stderr
	in.env.rt.sqlMaxRows = rt.sqlMaxRows
	in.env.rt.dbs = rt.dbs
}

// Eval parses and evaluates source. Empty source yields unit. When parsing
// reports diagnostics nothing is evaluated and the first one is returned.
func (in *Interpreter) Eval(source string) (Value, error) {
	program, errs := parser.Parse(source)
	if program == nil && len(errs) == 1 && errs[0] == parser.ErrEmpty {
		return UNIT, nil
	}
	if len(errs) > 0 {
		first := *errs[0]
		if in.filename != "" {
			first.File = in.filename
		}
		return nil, &first
	}
	v, err := in.EvalExpr(program)
	if err != nil {
		return nil, in.annotate(err, source)
	}
	return v, nil
}

// EvalExpr evaluates an already parsed expression. A top-level return
// yields its value; break and continue outside a loop are errors.
func (in *Interpreter) EvalExpr(expr *ast.Expr) (Value, error) {
	v, err := Eval(expr, in.env)
	if err == nil {
		return v, nil
	}
	var ret *returnSignal
	if stderrors.As(err, &ret) {
		return ret.value, nil
	}
	return nil, escapedSignal(err)
}

// annotate fills in line and column from the recorded byte offset.
func (in *Interpreter) annotate(err error, source string) error {
	var re *perrors.RuchyError
	if !stderrors.As(err, &re) {
		return err
	}
	if re.Line == 0 && re.Offset > 0 {
		re.Line, re.Column = Position(source, re.Offset)
	}
	if re.File == "" {
		re.File = in.filename
	}
	return err
}

// Position converts a byte offset into a 1-based line and column counted
// in runes.
func Position(source string, offset int) (line, column int) {
	if offset > len(source) {
		offset = len(source)
	}
	prefix := source[:offset]
	line = strings.Count(prefix, "\n") + 1
	lineStart := strings.LastIndexByte(prefix, '\n') + 1
	column = utf8.RuneCountInString(prefix[lineStart:]) + 1
	return line, column
}
