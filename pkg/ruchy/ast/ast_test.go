package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lit(v int64) *Expr       { return New(&Literal{Kind: LitInteger, Int: v}, Span{}) }
func ident(n string) *Expr    { return New(&Identifier{Name: n}, Span{}) }
func block(es ...*Expr) *Expr { return New(&Block{Exprs: es}, Span{}) }
func call(name string, args ...*Expr) *Expr {
	return New(&Call{Func: ident(name), Args: args}, Span{})
}

func TestIsVoidExpression(t *testing.T) {
	assign := New(&Assign{Target: ident("x"), Value: lit(1)}, Span{})
	lambda := New(&Lambda{Params: []Param{{Name: "x"}}, Body: ident("x")}, Span{})

	tests := []struct {
		name string
		expr *Expr
		void bool
	}{
		{"unit", Unit(Span{}), true},
		{"integer", lit(1), false},
		{"assign", assign, true},
		{"compound assign", New(&CompoundAssign{Target: ident("x"), Op: OpAdd, Value: lit(1)}, Span{}), true},
		{"while", New(&While{Condition: ident("c"), Body: block()}, Span{}), true},
		{"for", New(&For{Var: "i", Iter: ident("xs"), Body: block()}, Span{}), true},
		{"bare return", New(&Return{}, Span{}), true},
		{"return value", New(&Return{Value: lit(1)}, Span{}), false},
		{"let without body", New(&Let{Name: "x", Value: lit(1)}, Span{}), true},
		{"let with value body", New(&Let{Name: "x", Value: lit(1), Body: ident("x")}, Span{}), false},
		{"empty block", block(), true},
		{"block ending in assign", block(lit(1), assign), true},
		{"block ending in value", block(assign, lit(1)), false},
		{"if without else", New(&If{Condition: ident("c"), ThenBranch: block(assign)}, Span{}), true},
		{"if with value else", New(&If{Condition: ident("c"), ThenBranch: block(assign), ElseBranch: lit(2)}, Span{}), false},
		{"match all void", New(&Match{Scrutinee: ident("x"), Arms: []MatchArm{
			{Pattern: WildcardPattern{}, Body: call("println", lit(1))},
		}}, Span{}), true},
		{"match with value arm", New(&Match{Scrutinee: ident("x"), Arms: []MatchArm{
			{Pattern: WildcardPattern{}, Body: call("println", lit(1))},
			{Pattern: WildcardPattern{}, Body: lit(2)},
		}}, Span{}), false},
		{"println call", call("println", lit(1)), true},
		{"assert_eq call", call("assert_eq", lit(1), lit(1)), true},
		{"user call", call("compute", lit(1)), false},
		{"println macro", New(&MacroInvocation{Name: "println", Args: []*Expr{lit(1)}}, Span{}), true},
		{"vec macro", New(&MacroInvocation{Name: "vec", Args: []*Expr{lit(1)}}, Span{}), false},
		{"dbg macro", New(&MacroInvocation{Name: "dbg", Args: []*Expr{lit(1)}}, Span{}), false},
		{"lambda", lambda, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.void, IsVoidExpression(tt.expr))
		})
	}
}

func TestReturnsClosure(t *testing.T) {
	lambda := New(&Lambda{Params: []Param{{Name: "y"}}, Body: ident("y")}, Span{})

	assert.True(t, ReturnsClosure(lambda))
	assert.True(t, ReturnsClosure(block(lit(1), lambda)))
	assert.False(t, ReturnsClosure(block(lambda, lit(1))))
	assert.False(t, ReturnsClosure(block()))
	assert.False(t, ReturnsClosure(lit(1)))
	assert.False(t, ReturnsClosure(nil))
}

func TestLooksLikeNumericFunction(t *testing.T) {
	for _, name := range []string{"add", "factorial", "to_radians", "atan2", "quadruple", "fract"} {
		assert.True(t, LooksLikeNumericFunction(name), name)
	}
	for _, name := range []string{"greet", "main", "Add", "addition", ""} {
		assert.False(t, LooksLikeNumericFunction(name), name)
	}
}

func TestPatternBindingsAndValidation(t *testing.T) {
	p := &TuplePattern{Elements: []Pattern{
		&IdentifierPattern{Name: "a"},
		&ListPattern{Elements: []Pattern{&IdentifierPattern{Name: "b"}, &RestPattern{Name: "rest"}}},
		&ObjectPattern{Fields: []FieldPattern{{Key: "k", Pattern: &IdentifierPattern{Name: "k"}}}},
		WildcardPattern{},
	}}
	assert.Equal(t, []string{"a", "b", "rest", "k"}, PatternBindings(p))
	require.NoError(t, ValidatePattern(p))

	dup := &TuplePattern{Elements: []Pattern{&IdentifierPattern{Name: "x"}, &IdentifierPattern{Name: "x"}}}
	assert.Error(t, ValidatePattern(dup))

	twoRests := &ListPattern{Elements: []Pattern{&RestPattern{}, &RestPattern{}}}
	assert.Error(t, ValidatePattern(twoRests))

	uneven := &OrPattern{Alternatives: []Pattern{
		&EnumPattern{Name: "Some", Args: []Pattern{&IdentifierPattern{Name: "x"}}},
		&EnumPattern{Name: "None"},
	}}
	assert.Error(t, ValidatePattern(uneven))

	even := &OrPattern{Alternatives: []Pattern{
		&LiteralPattern{Value: &Literal{Kind: LitInteger, Int: 1}},
		&LiteralPattern{Value: &Literal{Kind: LitInteger, Int: 2}},
	}}
	assert.NoError(t, ValidatePattern(even))
}

func TestPatternString(t *testing.T) {
	p := &StructPattern{Name: "Point", Fields: []FieldPattern{
		{Key: "x", Pattern: &IdentifierPattern{Name: "x"}},
		{Key: "y", Pattern: &LiteralPattern{Value: &Literal{Kind: LitInteger, Int: 0}}},
	}, Rest: true}
	assert.Equal(t, "Point { x, y: 0, .. }", p.String())
	assert.Equal(t, "Color::Red", (&EnumPattern{Name: "Color::Red"}).String())
	assert.Equal(t, "Red", (&EnumPattern{Name: "Color::Red"}).VariantName())
	assert.Equal(t, "1..=5", (&RangePattern{
		Start:     &Literal{Kind: LitInteger, Int: 1},
		End:       &Literal{Kind: LitInteger, Int: 5},
		Inclusive: true,
	}).String())
}

func TestWalkVisitsInSourceOrder(t *testing.T) {
	e := New(&Binary{
		Left:  lit(1),
		Op:    OpAdd,
		Right: New(&Binary{Left: lit(2), Op: OpMul, Right: lit(3)}, Span{}),
	}, Span{})

	var seen []string
	Walk(e, func(n *Expr) bool {
		seen = append(seen, KindName(n))
		return true
	})
	assert.Equal(t, []string{"Binary", "Literal", "Binary", "Literal", "Literal"}, seen)
	assert.Equal(t, 5, Count(e))
	assert.Equal(t, "(1 + (2 * 3))", e.String())
}

func TestWalkCanPrune(t *testing.T) {
	inner := block(lit(1), lit(2))
	e := block(inner, lit(3))
	n := 0
	Walk(e, func(x *Expr) bool {
		n++
		return x != inner
	})
	assert.Equal(t, 3, n)
}

func TestLiteralString(t *testing.T) {
	assert.Equal(t, "1.0", (&Literal{Kind: LitFloat, Float: 1}).String())
	assert.Equal(t, "2.5", (&Literal{Kind: LitFloat, Float: 2.5}).String())
	assert.Equal(t, `"hi\n"`, (&Literal{Kind: LitString, Str: "hi\n"}).String())
	assert.Equal(t, "'a'", (&Literal{Kind: LitChar, Str: "a"}).String())
	assert.Equal(t, "()", (&Literal{Kind: LitUnit}).String())
}
