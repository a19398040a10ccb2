package evaluator

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/ruchy-lang/ruchy/pkg/ruchy/ast"
	perrors "github.com/ruchy-lang/ruchy/pkg/ruchy/errors"
)

// Logger receives program output from println, print and dbg
type Logger interface {
	Log(values ...interface{})
	LogLine(values ...interface{})
}

// defaultStdoutLogger is the default logger that writes to stdout
type defaultStdoutLogger struct{}

func (l *defaultStdoutLogger) Log(values ...interface{}) {
	fmt.Fprint(os.Stdout, joinLogValues(values))
}

func (l *defaultStdoutLogger) LogLine(values ...interface{}) {
	fmt.Fprintln(os.Stdout, joinLogValues(values))
}

func joinLogValues(values []interface{}) string {
	s := ""
	for i, v := range values {
		if i > 0 {
			s += " "
		}
		s += fmt.Sprint(v)
	}
	return s
}

// DefaultLogger writes program output to stdout
var DefaultLogger Logger = &defaultStdoutLogger{}

// maxCallDepth bounds recursion so runaway programs fail with an error
// instead of exhausting the Go stack.
const maxCallDepth = 4000

// DefaultSQLMaxRows caps the rows read_sql loads unless configured otherwise.
const DefaultSQLMaxRows = 10000

// runtime is the state shared by every environment of one interpreter.
type runtime struct {
	ctx        context.Context
	logger     Logger
	stderr     io.Writer
	impls      map[string]map[string]Value // type name -> method name -> function
	traits     map[string]*ast.TraitDef
	callDepth  int
	sqlMaxRows int
	dbs        *dbCache
}

func newRuntime() *runtime {
	return &runtime{
		ctx:        context.Background(),
		logger:     DefaultLogger,
		stderr:     os.Stderr,
		impls:      map[string]map[string]Value{},
		traits:     map[string]*ast.TraitDef{},
		sqlMaxRows: DefaultSQLMaxRows,
		dbs:        defaultDBCache,
	}
}

type binding struct {
	value   Value
	mutable bool
}

// Environment is one lexical scope. Lookups walk outward through outer.
type Environment struct {
	store map[string]*binding
	order []string
	outer *Environment
	rt    *runtime
}

// NewEnvironment creates a root environment with the builtins visible.
func NewEnvironment() *Environment {
	return &Environment{
		store: map[string]*binding{},
		rt:    newRuntime(),
	}
}

// NewEnclosedEnvironment creates a child scope of outer.
func NewEnclosedEnvironment(outer *Environment) *Environment {
	env := &Environment{store: map[string]*binding{}, outer: outer}
	if outer != nil {
		env.rt = outer.rt
	} else {
		env.rt = newRuntime()
	}
	return env
}

// Get looks name up in this scope and its ancestors.
func (e *Environment) Get(name string) (Value, bool) {
	for env := e; env != nil; env = env.outer {
		if b, ok := env.store[name]; ok {
			return b.value, true
		}
	}
	return nil, false
}

// Define binds name in this scope, shadowing any outer binding.
func (e *Environment) Define(name string, val Value, mutable bool) {
	if _, exists := e.store[name]; !exists {
		e.order = append(e.order, name)
	}
	e.store[name] = &binding{value: val, mutable: mutable}
}

// Assign updates the nearest existing binding of name.
func (e *Environment) Assign(name string, val Value) error {
	for env := e; env != nil; env = env.outer {
		if b, ok := env.store[name]; ok {
			if !b.mutable {
				return perrors.ImmutableAssignment(name)
			}
			b.value = val
			return nil
		}
	}
	return perrors.UndefinedVariable(name, e.AllIdentifiers())
}

// IsMutable reports whether the nearest binding of name was declared mut.
func (e *Environment) IsMutable(name string) bool {
	for env := e; env != nil; env = env.outer {
		if b, ok := env.store[name]; ok {
			return b.mutable
		}
	}
	return false
}

// Names returns the names bound directly in this scope in definition order.
func (e *Environment) Names() []string {
	return append([]string(nil), e.order...)
}

// AllIdentifiers returns every visible name, sorted, including builtins.
func (e *Environment) AllIdentifiers() []string {
	seen := map[string]bool{}
	var names []string
	for env := e; env != nil; env = env.outer {
		for name := range env.store {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	for name := range builtins {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	for name := range preludeValues {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// SetContext installs the context checked for cancellation during loops and
// calls.
func (e *Environment) SetContext(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	e.rt.ctx = ctx
}

// SetLogger sets the sink for program output. Every environment of the
// interpreter shares it.
func (e *Environment) SetLogger(l Logger) {
	if l == nil {
		l = DefaultLogger
	}
	e.rt.logger = l
}

// Logger returns the sink for program output.
func (e *Environment) Logger() Logger {
	return e.rt.logger
}

// SetStderr sets the writer used by eprintln.
func (e *Environment) SetStderr(w io.Writer) {
	e.rt.stderr = w
}

// SetSQLMaxRows sets the row cap for read_sql.
func (e *Environment) SetSQLMaxRows(n int) {
	if n > 0 {
		e.rt.sqlMaxRows = n
	}
}

// checkCancelled reports Timeout once the host context is done.
func (e *Environment) checkCancelled() error {
	if e.rt.ctx.Err() != nil {
		return perrors.Timeout()
	}
	return nil
}
