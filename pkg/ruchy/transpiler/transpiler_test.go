package transpiler

import (
	"crypto/sha256"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruchy-lang/ruchy/pkg/ruchy/ast"
	perrors "github.com/ruchy-lang/ruchy/pkg/ruchy/errors"
	"github.com/ruchy-lang/ruchy/pkg/ruchy/parser"
	"github.com/ruchy-lang/ruchy/pkg/ruchy/rustfmt"
)

// rust parses src, transpiles it and formats the result.
func rust(t *testing.T, src string) string {
	t.Helper()
	expr, errs := parser.Parse(src)
	require.Empty(t, errs, "unexpected parse errors for %q", src)
	ts, err := New().TranspileToProgram(expr)
	require.NoError(t, err)
	out, err := rustfmt.Format(ts.String())
	require.NoError(t, err, "formatting %s", ts.String())
	return out
}

func TestTranspileArithmetic(t *testing.T) {
	out := rust(t, "2 + 3 * 4")
	assert.Equal(t, "fn main() {\n    let result = 2 + 3 * 4;\n    println!(\"{:?}\", result);\n}\n", out)
}

func TestTranspileNumericLiteralEdges(t *testing.T) {
	tests := []struct {
		src      string
		expected string
	}{
		{"1.0e10", "let result = 1e+10;"},
		{"0.00001", "let result = 1e-05;"},
		{"1.5e10", "let result = 1.5e+10;"},
		{"3.0", "let result = 3.0;"},
		{"2.5", "let result = 2.5;"},
		{"9223372036854775807", "let result = 9223372036854775807;"},
		{"-9223372036854775808", "let result = -9223372036854775808;"},
		{"-(-5)", "let result = -(-5);"},
		{"-(-2.5)", "let result = -(-2.5);"},
	}
	for _, tt := range tests {
		out := rust(t, tt.src)
		assert.Contains(t, out, tt.expected, "source %q", tt.src)
		assert.NotContains(t, out, "--", "source %q", tt.src)
		assert.NotContains(t, out, "e + ", "source %q", tt.src)
		assert.NotContains(t, out, "e - ", "source %q", tt.src)
	}
}

func TestTranspileRecursion(t *testing.T) {
	out := rust(t, "fn fact(n) { if n<=1 {1} else {n*fact(n-1)} } fact(5)")
	assert.Contains(t, out, "fn fact(n: i64) -> i64 {")
	assert.Contains(t, out, "n * fact(n - 1)")
	assert.Contains(t, out, "let result = fact(5);")
	assert.Less(t, strings.Index(out, "fn fact"), strings.Index(out, "fn main"))
}

func TestTranspileClosureCapture(t *testing.T) {
	out := rust(t, "let make = |x| { |y| x + y }; let add10 = make(10); add10(5)")
	assert.Contains(t, out, "move |y| x + y")
	assert.Contains(t, out, "let add10 = make(10);")
	assert.Contains(t, out, "let result = add10(5);")
}

func TestTranspileListPatternLet(t *testing.T) {
	out := rust(t, "let [a, b, c] = [1, 2, 3]; a + b + c")
	assert.Contains(t, out, "let [a, b, c] = [1, 2, 3];")
	assert.Contains(t, out, "let result = a + b + c;")
}

func TestTranspileMutability(t *testing.T) {
	out := rust(t, "let count = 0; count = count + 1; count")
	assert.Contains(t, out, "let mut count = 0;")
	assert.Contains(t, out, "count = count + 1;")
}

func TestTranspileItemOrder(t *testing.T) {
	out := rust(t, `fn helper() { println("hi") } struct Point { x: int, y: int } let p = Point { x: 1, y: 2 }; println(p.x)`)

	structAt := strings.Index(out, "struct Point")
	helperAt := strings.Index(out, "fn helper")
	mainAt := strings.Index(out, "fn main")
	require.True(t, structAt >= 0 && helperAt >= 0 && mainAt >= 0, out)
	assert.Less(t, structAt, helperAt)
	assert.Less(t, helperAt, mainAt)

	assert.Contains(t, out, "#[derive(Debug, Clone, PartialEq)]\nstruct Point {")
	assert.Contains(t, out, "    x: i64,")
	assert.Contains(t, out, `println!("hi");`)
	assert.Contains(t, out, `println!("{}", p.x);`)
}

func TestTranspileUserMain(t *testing.T) {
	out := rust(t, `fn main() { println("in main") } println("top")`)
	assert.Contains(t, out, "fn __ruchy_main() {")
	assert.Contains(t, out, "__ruchy_main();")

	only := rust(t, `fn main() { println("in main") }`)
	assert.Contains(t, only, "fn main() {")
	assert.NotContains(t, only, "__ruchy_main")
}

func TestTranspileMethodMapping(t *testing.T) {
	out := rust(t, "let xs = [1, 2, 3]; xs.map(|x| x * 2)")
	assert.Contains(t, out, "xs.iter().map(|x| x * 2).collect::<Vec<_>>()")

	out = rust(t, `let s = "Hi"; s.upper()`)
	assert.Contains(t, out, "s.to_uppercase()")
}

func TestTranspileTryCatch(t *testing.T) {
	out := rust(t, `try { throw "boom" } catch (e) { println(e) }`)
	assert.Contains(t, out, `return Err(format!("{}", "boom").into())`)
	assert.Contains(t, out, "Err(e) =>")
	assert.Contains(t, out, "Ok(__value) => __value,")
}

func TestTranspileUnsupported(t *testing.T) {
	expr, errs := parser.Parse("actor Counter { count: i32, receive Inc(n) => n }")
	require.Empty(t, errs)

	_, err := New().TranspileToProgram(expr)
	require.Error(t, err)

	var re *perrors.RuchyError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "TRANS-0001", re.Code)
	assert.Equal(t, perrors.ClassTranspile, re.Class)
}

func TestTranspileNilProgram(t *testing.T) {
	_, err := New().TranspileToProgram(nil)
	var re *perrors.RuchyError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "TRANS-0002", re.Code)
}

func TestTranspileDeterministic(t *testing.T) {
	src := `
struct Point { x: int, y: int }
fn dist(p) { p.x * p.x + p.y * p.y }
let pts = [Point { x: 1, y: 2 }, Point { x: 3, y: 4 }]
pts.map(|p| dist(p))
`
	var sums []string
	for i := 0; i < 3; i++ {
		sums = append(sums, fmt.Sprintf("%x", sha256.Sum256([]byte(rust(t, src)))))
	}
	assert.Equal(t, sums[0], sums[1])
	assert.Equal(t, sums[1], sums[2])
}

func TestTranspileMultiLineContract(t *testing.T) {
	out := rust(t, "fn double(x) { x * 2 } fn triple(x) { x * 3 } double(triple(1))")
	assert.GreaterOrEqual(t, rustfmt.LineCount(out), 6, out)
	assert.Contains(t, out, "}\n")
}

func TestTranspileImports(t *testing.T) {
	tests := []struct {
		name     string
		ts       *TokenStream
		expected string
	}{
		{
			"named items",
			TranspileImport("std.collections", []ast.ImportItem{{Name: "HashMap"}, {Name: "HashSet", Alias: "Set"}}),
			"use std::collections::{HashMap, HashSet as Set};\n",
		},
		{
			"default import",
			TranspileImportDefault("./config", "Config"),
			"use Config;\n",
		},
		{
			"reexport",
			TranspileReexport([]string{"a", "b"}, "./lib"),
			"pub use lib::{a, b};\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := rustfmt.Format(tt.ts.String())
			require.NoError(t, err)
			assert.Equal(t, tt.expected, out)
		})
	}
}

func TestMapType(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"int", "i64"},
		{"float", "f64"},
		{"str", "&str"},
		{"[int]", "Vec<i64>"},
		{"i32", "i32"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, MapType(tt.input), "MapType(%q)", tt.input)
	}
}
