package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruchy-lang/ruchy/pkg/ruchy/ast"
	perrors "github.com/ruchy-lang/ruchy/pkg/ruchy/errors"
)

func parseOK(t *testing.T, src string) *ast.Expr {
	t.Helper()
	expr, errs := Parse(src)
	require.Empty(t, errs, "unexpected parse errors for %q", src)
	require.NotNil(t, expr)
	return expr
}

func codes(errs []*perrors.RuchyError) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Code
	}
	return out
}

func TestArithmeticPrecedence(t *testing.T) {
	expr := parseOK(t, "2 + 3 * 4")

	bin, ok := expr.Kind.(*ast.Binary)
	require.True(t, ok, "expected Binary, got %T", expr.Kind)
	assert.Equal(t, ast.OpAdd, bin.Op)
	assert.Equal(t, int64(2), bin.Left.Kind.(*ast.Literal).Int)

	right, ok := bin.Right.Kind.(*ast.Binary)
	require.True(t, ok)
	assert.Equal(t, ast.OpMul, right.Op)
	assert.Equal(t, "(2 + (3 * 4))", expr.String())
}

func TestOperatorPrecedence(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"1 - 2 - 3", "((1 - 2) - 3)"},
		{"2 ** 3 ** 2", "(2 ** (3 ** 2))"},
		{"-x * y", "((-x) * y)"},
		{"!a && b", "((!a) && b)"},
		{"a || b && c", "(a || (b && c))"},
		{"1 + 2 == 3", "((1 + 2) == 3)"},
		{"a == b && c != d", "((a == b) && (c != d))"},
		{"a ?? b || c", "(a ?? (b || c))"},
		{"a | b ^ c & d", "(a | (b ^ (c & d)))"},
		{"1 << 2 + 3", "(1 << (2 + 3))"},
		{"a = b = c", "a = b = c"},
		{"x += 1 * 2", "x += (1 * 2)"},
		{"x |> f", "f(x)"},
		{"x |> f(1) |> g", "g(f(x, 1))"},
		{"a.b.c(1)[0]", "a.b.c(1)[0]"},
		{"0..n + 1", "0..(n + 1)"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			expr := parseOK(t, tt.input)
			assert.Equal(t, tt.expected, expr.String())
		})
	}
}

func TestEmptyInput(t *testing.T) {
	for _, src := range []string{"", "   \n\t", "// only a comment"} {
		expr, errs := Parse(src)
		assert.Nil(t, expr)
		require.Len(t, errs, 1)
		assert.Equal(t, ErrEmpty, errs[0])
	}
}

func TestLetStatementsFormTopLevelBlock(t *testing.T) {
	expr := parseOK(t, "let x = 42; x + 1")

	block, ok := expr.Kind.(*ast.Block)
	require.True(t, ok, "expected Block, got %T", expr.Kind)
	assert.True(t, block.TopLevel)
	require.Len(t, block.Exprs, 2)

	let, ok := block.Exprs[0].Kind.(*ast.Let)
	require.True(t, ok)
	assert.Equal(t, "x", let.Name)
	assert.Nil(t, let.Body)
	assert.False(t, let.IsMutable)
}

func TestLetForms(t *testing.T) {
	t.Run("let in", func(t *testing.T) {
		let := parseOK(t, "let x = 1 in x * 2").Kind.(*ast.Let)
		require.NotNil(t, let.Body)
		assert.Equal(t, "(x * 2)", let.Body.String())
	})

	t.Run("mutable with type", func(t *testing.T) {
		let := parseOK(t, "let mut total: Vec<i32> = []").Kind.(*ast.Let)
		assert.True(t, let.IsMutable)
		assert.Equal(t, "Vec<i32>", let.TypeAnnotation)
	})

	t.Run("list pattern", func(t *testing.T) {
		let := parseOK(t, "let [a, b, c] = [1, 2, 3]").Kind.(*ast.Let)
		list, ok := let.Pattern.(*ast.ListPattern)
		require.True(t, ok)
		assert.Len(t, list.Elements, 3)
		assert.Empty(t, let.Name)
	})

	t.Run("let else", func(t *testing.T) {
		let := parseOK(t, "let Some(v) = opt else { return 0 }").Kind.(*ast.Let)
		assert.IsType(t, &ast.EnumPattern{}, let.Pattern)
		require.NotNil(t, let.ElseBlock)
	})
}

func TestFunctionDefinitionAndCall(t *testing.T) {
	expr := parseOK(t, "fn fact(n) { if n<=1 {1} else {n*fact(n-1)} } fact(5)")
	block := expr.Kind.(*ast.Block)
	require.Len(t, block.Exprs, 2)

	fn, ok := block.Exprs[0].Kind.(*ast.Function)
	require.True(t, ok)
	assert.Equal(t, "fact", fn.Name)
	require.Len(t, fn.Params, 1)
	assert.Equal(t, "n", fn.Params[0].Name)

	call, ok := block.Exprs[1].Kind.(*ast.Call)
	require.True(t, ok)
	assert.Equal(t, "fact", call.Func.String())
}

func TestTypedFunction(t *testing.T) {
	fn := parseOK(t, "pub fn add<T>(a: i32, mut b: i32 = 2) -> Result<i32, String> { a + b }").Kind.(*ast.Function)
	assert.True(t, fn.IsPub)
	assert.Equal(t, []string{"T"}, fn.TypeParams)
	require.Len(t, fn.Params, 2)
	assert.Equal(t, "i32", fn.Params[0].Type)
	assert.True(t, fn.Params[1].IsMutable)
	require.NotNil(t, fn.Params[1].Default)
	assert.Equal(t, "Result<i32, String>", fn.ReturnType)
}

func TestLambdas(t *testing.T) {
	expr := parseOK(t, "let make = |x| { |y| x + y }; let add10 = make(10); add10(5)")
	block := expr.Kind.(*ast.Block)
	require.Len(t, block.Exprs, 3)

	lambda, ok := block.Exprs[0].Kind.(*ast.Let).Value.Kind.(*ast.Lambda)
	require.True(t, ok)
	assert.Len(t, lambda.Params, 1)
	assert.True(t, ast.ReturnsClosure(lambda.Body))

	noArgs := parseOK(t, "|| 42").Kind.(*ast.Lambda)
	assert.Empty(t, noArgs.Params)
}

func TestControlFlow(t *testing.T) {
	t.Run("if else chain", func(t *testing.T) {
		ifExpr := parseOK(t, "if a { 1 } else if b { 2 } else { 3 }").Kind.(*ast.If)
		nested, ok := ifExpr.ElseBranch.Kind.(*ast.If)
		require.True(t, ok)
		assert.NotNil(t, nested.ElseBranch)
	})

	t.Run("if let desugars to match", func(t *testing.T) {
		m := parseOK(t, "if let Some(x) = opt { x } else { 0 }").Kind.(*ast.Match)
		require.Len(t, m.Arms, 2)
		assert.IsType(t, ast.WildcardPattern{}, m.Arms[1].Pattern)
	})

	t.Run("match arms", func(t *testing.T) {
		m := parseOK(t, `match x { 1 | 2 => "small", Some(y) if y > 0 => y, 3..=9 => "mid", _ => 0 }`).Kind.(*ast.Match)
		require.Len(t, m.Arms, 4)
		assert.IsType(t, &ast.OrPattern{}, m.Arms[0].Pattern)
		assert.NotNil(t, m.Arms[1].Guard)
		assert.IsType(t, &ast.RangePattern{}, m.Arms[2].Pattern)
		assert.IsType(t, ast.WildcardPattern{}, m.Arms[3].Pattern)
	})

	t.Run("labeled loops", func(t *testing.T) {
		loop := parseOK(t, "'outer: for i in 0..3 { for j in 0..3 { if j == 1 { continue 'outer } } }").Kind.(*ast.For)
		assert.Equal(t, "outer", loop.Label)
		assert.Equal(t, "i", loop.Var)

		var cont *ast.Continue
		ast.Walk(loop.Body, func(e *ast.Expr) bool {
			if c, ok := e.Kind.(*ast.Continue); ok {
				cont = c
			}
			return true
		})
		require.NotNil(t, cont)
		assert.Equal(t, "outer", cont.Label)
	})

	t.Run("break with value", func(t *testing.T) {
		loop := parseOK(t, "loop { break 5 }").Kind.(*ast.Loop)
		brk := loop.Body.Kind.(*ast.Block).Exprs[0].Kind.(*ast.Break)
		assert.Equal(t, "5", brk.Value.String())
	})

	t.Run("for with tuple pattern", func(t *testing.T) {
		loop := parseOK(t, "for (k, v) in pairs { k }").Kind.(*ast.For)
		assert.IsType(t, &ast.TuplePattern{}, loop.Pattern)
	})

	t.Run("try catch finally", func(t *testing.T) {
		tc := parseOK(t, "try { risky() } catch (e) { 0 } finally { cleanup() }").Kind.(*ast.TryCatch)
		require.Len(t, tc.Catches, 1)
		assert.Equal(t, "e", tc.Catches[0].Pattern.String())
		assert.NotNil(t, tc.Finally)
	})
}

func TestBracesAndLiterals(t *testing.T) {
	t.Run("empty braces are a unit block", func(t *testing.T) {
		block, ok := parseOK(t, "{}").Kind.(*ast.Block)
		require.True(t, ok)
		assert.Empty(t, block.Exprs)
	})

	t.Run("object literal", func(t *testing.T) {
		obj, ok := parseOK(t, `{ name: "a", count }`).Kind.(*ast.Object)
		require.True(t, ok)
		require.Len(t, obj.Fields, 2)
		assert.Equal(t, "count", obj.Fields[1].Key)
	})

	t.Run("struct literal", func(t *testing.T) {
		lit, ok := parseOK(t, "Point { x: 1, y: 2 }").Kind.(*ast.StructLiteral)
		require.True(t, ok)
		assert.Equal(t, "Point", lit.Name)
		assert.Len(t, lit.Fields, 2)
	})

	t.Run("no struct literal in condition", func(t *testing.T) {
		w := parseOK(t, "while Running { step() }").Kind.(*ast.While)
		assert.IsType(t, &ast.Identifier{}, w.Condition.Kind)
	})

	t.Run("tuples and unit", func(t *testing.T) {
		assert.IsType(t, &ast.Tuple{}, parseOK(t, "(1, 2)").Kind)
		assert.IsType(t, &ast.Tuple{}, parseOK(t, "(1,)").Kind)
		assert.IsType(t, &ast.Literal{}, parseOK(t, "(1)").Kind)
		assert.Equal(t, ast.LitUnit, parseOK(t, "()").Kind.(*ast.Literal).Kind)
	})

	t.Run("tuple index", func(t *testing.T) {
		assert.Equal(t, "t.0.1", parseOK(t, "t.0.1").String())
	})

	t.Run("slices", func(t *testing.T) {
		s, ok := parseOK(t, "xs[1..3]").Kind.(*ast.Slice)
		require.True(t, ok)
		assert.Equal(t, "1", s.Start.String())
		open := parseOK(t, "xs[..2]").Kind.(*ast.Slice)
		assert.Nil(t, open.Start)
	})

	t.Run("optional chaining", func(t *testing.T) {
		assert.IsType(t, &ast.OptionalFieldAccess{}, parseOK(t, "user?.name").Kind)
		assert.IsType(t, &ast.OptionalMethodCall{}, parseOK(t, "user?.greet()").Kind)
	})

	t.Run("type cast", func(t *testing.T) {
		cast := parseOK(t, "x as f64").Kind.(*ast.TypeCast)
		assert.Equal(t, "f64", cast.TargetType)
	})
}

func TestInterpolatedString(t *testing.T) {
	interp, ok := parseOK(t, `f"x = {x + 1:>5}!"`).Kind.(*ast.StringInterpolation)
	require.True(t, ok)
	require.Len(t, interp.Parts, 3)
	assert.Equal(t, "x = ", interp.Parts[0].Text)
	assert.Equal(t, "(x + 1)", interp.Parts[1].Expr.String())
	assert.Equal(t, ">5", interp.Parts[1].Format)
	assert.Equal(t, "!", interp.Parts[2].Text)
}

func TestMacrosAndDataFrames(t *testing.T) {
	m, ok := parseOK(t, `println!("hi {}", name)`).Kind.(*ast.MacroInvocation)
	require.True(t, ok)
	assert.Equal(t, "println", m.Name)
	assert.Len(t, m.Args, 2)

	rows := parseOK(t, `df![k, v; "a", 1; "b", 2]`).Kind.(*ast.DataFrame)
	require.Len(t, rows.Columns, 2)
	assert.Equal(t, "k", rows.Columns[0].Name)
	assert.Len(t, rows.Columns[1].Values, 2)

	cols := parseOK(t, `df!["k" => ["a", "b"], "v" => [1, 2]]`).Kind.(*ast.DataFrame)
	require.Len(t, cols.Columns, 2)
	assert.Len(t, cols.Columns[0].Values, 2)

	op, ok := parseOK(t, `frame.select("k")`).Kind.(*ast.DataFrameOp)
	require.True(t, ok)
	assert.Equal(t, ast.DFSelect, op.Op)

	// join needs both the other frame and the key
	assert.IsType(t, &ast.MethodCall{}, parseOK(t, `names.join(",")`).Kind)
}

func TestDeclarations(t *testing.T) {
	t.Run("struct", func(t *testing.T) {
		def := parseOK(t, "struct Point { x: f64, pub y: f64 = 0.0 }").Kind.(*ast.StructDef)
		require.Len(t, def.Fields, 2)
		assert.True(t, def.Fields[1].IsPub)
		assert.NotNil(t, def.Fields[1].Default)
	})

	t.Run("enum", func(t *testing.T) {
		def := parseOK(t, "enum Color { Red, Green = 5, Rgb(i32, i32, i32) }").Kind.(*ast.EnumDef)
		require.Len(t, def.Variants, 3)
		require.NotNil(t, def.Variants[1].Discriminant)
		assert.Equal(t, int64(5), *def.Variants[1].Discriminant)
		assert.Len(t, def.Variants[2].Fields, 3)
	})

	t.Run("impl", func(t *testing.T) {
		impl := parseOK(t, "impl Display for Point { fn fmt(&self) -> String { self.x } }").Kind.(*ast.ImplBlock)
		assert.Equal(t, "Display", impl.TraitName)
		assert.Equal(t, "Point", impl.TypeName)
		require.Len(t, impl.Methods, 1)
		assert.Equal(t, "self", impl.Methods[0].Kind.(*ast.Function).Params[0].Name)
	})

	t.Run("trait", func(t *testing.T) {
		def := parseOK(t, "trait Shape { fn area(&self) -> f64; fn name(&self) -> String { \"shape\" } }").Kind.(*ast.TraitDef)
		require.Len(t, def.Methods, 2)
		assert.Nil(t, def.Methods[0].Kind.(*ast.Function).Body)
	})

	t.Run("imports", func(t *testing.T) {
		use := parseOK(t, "use std::collections::HashMap").Kind.(*ast.Import)
		assert.Equal(t, "std::collections", use.Module)
		assert.Equal(t, "HashMap", use.Items[0].Name)

		named := parseOK(t, `import { a, b as c } from "utils"`).Kind.(*ast.Import)
		assert.Equal(t, "utils", named.Module)
		require.Len(t, named.Items, 2)
		assert.Equal(t, "c", named.Items[1].Alias)

		all := parseOK(t, `import * as u from "utils"`).Kind.(*ast.Import)
		assert.Equal(t, ast.ImportAll, all.Kind)
		assert.Equal(t, "u", all.Alias)
	})

	t.Run("exports and modules", func(t *testing.T) {
		exp := parseOK(t, "export { a, b }").Kind.(*ast.Export)
		assert.Equal(t, []string{"a", "b"}, exp.Names)

		mod := parseOK(t, "mod math { fn sq(x) { x * x } }").Kind.(*ast.Module)
		assert.Equal(t, "math", mod.Name)
	})

	t.Run("actor", func(t *testing.T) {
		actor := parseOK(t, "actor Counter { count: i32, receive Inc(n) => n }").Kind.(*ast.ActorDef)
		assert.Len(t, actor.State, 1)
		assert.Len(t, actor.Handlers, 1)
	})
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		input string
		code  string
	}{
		{"a < b < c", "PARSE-0014"},
		{"1 = 2", "PARSE-0010"},
		{"let (a, a) = (1, 2)", "PARSE-0013"},
		{"let x = ", "PARSE-0001"},
		{"fn add(a)", "PARSE-0001"},
		{"let 5.. = x", "PARSE-0011"},
		{"99999999999999999999999", "PARSE-0005"},
		{"let x = )", "PARSE-0003"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, errs := Parse(tt.input)
			require.NotEmpty(t, errs)
			assert.Contains(t, codes(errs), tt.code)
		})
	}
}

func TestErrorRecoveryContinuesAfterBadStatements(t *testing.T) {
	expr, errs := Parse("let = 5; let y = 2; let = ; y")
	assert.Len(t, errs, 2)
	for _, e := range errs {
		assert.Equal(t, perrors.KindParse, e.Kind)
		assert.Equal(t, 1, e.Line)
	}

	require.NotNil(t, expr)
	block, ok := expr.Kind.(*ast.Block)
	require.True(t, ok)
	require.Len(t, block.Exprs, 2)
	assert.Equal(t, "let y = 2", block.Exprs[0].String())
	assert.Equal(t, "y", block.Exprs[1].String())
}

func TestErrorRecoveryInsideBlocks(t *testing.T) {
	_, errs := Parse("fn f() { let = 1; 2 }\nfn g() { ) }\nf()")
	assert.GreaterOrEqual(t, len(errs), 2)
}

func TestSpansAreNested(t *testing.T) {
	src := `let xs = [1, 2, 3]
fn total(list) {
    let mut sum = 0
    for x in list { sum += x }
    sum
}
let label = f"total={total(xs)}"
match xs { [first, ..rest] => first + len(rest), _ => 0 }
xs |> map(|x| x * 2)`

	expr := parseOK(t, src)
	var check func(parent *ast.Expr)
	check = func(parent *ast.Expr) {
		assert.LessOrEqual(t, 0, parent.Span.Start)
		assert.LessOrEqual(t, parent.Span.Start, parent.Span.End, parent.String())
		assert.LessOrEqual(t, parent.Span.End, len(src), parent.String())
		for _, child := range ast.Children(parent) {
			assert.GreaterOrEqual(t, child.Span.Start, parent.Span.Start, "%s inside %s", child, parent)
			assert.LessOrEqual(t, child.Span.End, parent.Span.End, "%s inside %s", child, parent)
			check(child)
		}
	}
	check(expr)
}

func TestCommentsAttachToStatements(t *testing.T) {
	expr := parseOK(t, "// the answer\nlet x = 42 // trailing\nx")
	block := expr.Kind.(*ast.Block)
	assert.Equal(t, []string{"// the answer"}, block.Exprs[0].LeadingComments)
	assert.Equal(t, "// trailing", block.Exprs[0].TrailingComment)
}

func TestAttributes(t *testing.T) {
	fn := parseOK(t, "#[test]\nfn check() { assert(true) }")
	require.Len(t, fn.Attributes, 1)
	assert.Equal(t, "test", fn.Attributes[0].Name)
}

func TestStats(t *testing.T) {
	p := New("let abc = 1; abc + abc")
	expr := p.ParseProgram()
	require.NotNil(t, expr)
	require.Empty(t, p.Errors())

	stats := p.Stats()
	assert.Equal(t, 1, stats.InternedStrings)
	assert.Equal(t, 3, stats.InternedBytes)
	assert.Equal(t, ast.Count(expr), stats.Nodes)
}

func TestInterner(t *testing.T) {
	in := NewInterner()
	a := in.Intern("name")
	b := in.Intern(string([]byte("name")))
	assert.Equal(t, a, b)
	in.Intern("other")
	assert.Equal(t, 2, in.Len())
	assert.Equal(t, 9, in.Bytes())
}
