// Package ruchy provides a public API for embedding the Ruchy language:
// parsing, transpiling to Rust and interpreting.
package ruchy

import (
	"context"

	"github.com/ruchy-lang/ruchy/pkg/ruchy/ast"
	"github.com/ruchy-lang/ruchy/pkg/ruchy/build"
	perrors "github.com/ruchy-lang/ruchy/pkg/ruchy/errors"
	"github.com/ruchy-lang/ruchy/pkg/ruchy/evaluator"
	"github.com/ruchy-lang/ruchy/pkg/ruchy/parser"
	"github.com/ruchy-lang/ruchy/pkg/ruchy/transpiler"
)

// Version is the language version reported by the CLI and recorded in
// snapshots and replay sessions.
const Version = "1.0.0"

// Value is a runtime value.
type Value = evaluator.Value

// Error is the structured language error.
type Error = perrors.RuchyError

// Parse returns the syntax tree for source and every diagnostic found.
func Parse(source string) (*ast.Expr, []*perrors.RuchyError) {
	return parser.Parse(source)
}

// TranspileToProgram lowers a parsed program to unformatted Rust tokens.
func TranspileToProgram(program *ast.Expr) (*transpiler.TokenStream, error) {
	return transpiler.New().TranspileToProgram(program)
}

// Transpile turns source into formatted Rust.
func Transpile(source string) (string, error) {
	return build.TranspileSource(source)
}

// TranspileAll runs an incremental build of every file matching pattern.
func TranspileAll(ctx context.Context, sourceDir, pattern, outputDir string, opts build.Options) (*build.Result, error) {
	return build.TranspileAll(ctx, sourceDir, pattern, outputDir, opts)
}

// NewInterpreter returns an interpreter with an empty global scope.
func NewInterpreter(opts ...evaluator.Option) *evaluator.Interpreter {
	return evaluator.NewInterpreter(opts...)
}

// Eval evaluates source in a fresh interpreter.
func Eval(source string, opts ...evaluator.Option) (Value, error) {
	return evaluator.NewInterpreter(opts...).Eval(source)
}

// EvalString evaluates source and returns the displayed result.
func EvalString(source string, opts ...evaluator.Option) (string, error) {
	v, err := Eval(source, opts...)
	if err != nil {
		return "", err
	}
	return v.Inspect(), nil
}
