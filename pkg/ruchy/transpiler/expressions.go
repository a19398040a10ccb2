package transpiler

import (
	"math"
	"strconv"
	"strings"

	"github.com/ruchy-lang/ruchy/pkg/ruchy/ast"
	perrors "github.com/ruchy-lang/ruchy/pkg/ruchy/errors"
)

func transpileLiteral(l *ast.Literal) *TokenStream {
	switch l.Kind {
	case ast.LitInteger:
		return Tokens(strconv.FormatInt(l.Int, 10))
	case ast.LitFloat:
		return Tokens(rustFloat(l.Float))
	case ast.LitString:
		return Tokens(RustString(l.Str))
	case ast.LitByteString:
		return Tokens("b" + rustByteString(l.Str))
	case ast.LitChar:
		return Tokens(rustChar(l.Str))
	case ast.LitBool:
		return Tokens(strconv.FormatBool(l.Bool))
	case ast.LitNull:
		return Tokens("None")
	}
	return Tokens("(", ")")
}

func rustFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "f64::NAN"
	case math.IsInf(f, 1):
		return "f64::INFINITY"
	case math.IsInf(f, -1):
		return "f64::NEG_INFINITY"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}

// RustString renders s as a Rust string literal.
func RustString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		writeEscaped(&b, r, '"')
	}
	b.WriteByte('"')
	return b.String()
}

func rustChar(s string) string {
	r := []rune(s)
	if len(r) == 0 {
		return `'\0'`
	}
	var b strings.Builder
	b.WriteByte('\'')
	writeEscaped(&b, r[0], '\'')
	b.WriteByte('\'')
	return b.String()
}

func rustByteString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '"' || c == '\\':
			b.WriteByte('\\')
			b.WriteByte(c)
		case c >= 0x20 && c < 0x7f:
			b.WriteByte(c)
		default:
			b.WriteString(`\x`)
			b.WriteString(strconv.FormatUint(uint64(c)|0x100, 16)[1:])
		}
	}
	b.WriteByte('"')
	return b.String()
}

func writeEscaped(b *strings.Builder, r rune, quote rune) {
	switch r {
	case '\\':
		b.WriteString(`\\`)
	case '\n':
		b.WriteString(`\n`)
	case '\r':
		b.WriteString(`\r`)
	case '\t':
		b.WriteString(`\t`)
	case 0:
		b.WriteString(`\0`)
	case quote:
		b.WriteByte('\\')
		b.WriteRune(r)
	default:
		if r < 0x20 || r == 0x7f {
			b.WriteString(`\u{` + strconv.FormatInt(int64(r), 16) + `}`)
			return
		}
		b.WriteRune(r)
	}
}

// Rust binding strength of each binary operator; higher binds tighter.
var rustPrecedence = map[ast.BinaryOp]int{
	ast.OpMul: 11, ast.OpDiv: 11, ast.OpMod: 11,
	ast.OpAdd: 10, ast.OpSub: 10,
	ast.OpShl: 9, ast.OpShr: 9,
	ast.OpBitAnd: 8,
	ast.OpBitXor: 7,
	ast.OpBitOr:  6,
	ast.OpEq: 5, ast.OpNe: 5, ast.OpLt: 5, ast.OpLe: 5, ast.OpGt: 5, ast.OpGe: 5,
	ast.OpAnd: 4,
	ast.OpOr:  3,
}

func (t *Transpiler) transpileBinary(b *ast.Binary) (*TokenStream, error) {
	switch b.Op {
	case ast.OpPow:
		return t.transpilePow(b.Left, b.Right)
	case ast.OpNullCoalesce:
		left, err := t.transpilePostfixOperand(b.Left)
		if err != nil {
			return nil, err
		}
		right, err := t.Transpile(b.Right)
		if err != nil {
			return nil, err
		}
		return left.Push(".", "unwrap_or").Group("(", right, ")"), nil
	case ast.OpAdd:
		if isStringExpr(b.Left) || isStringExpr(b.Right) {
			return t.transpileConcat(b)
		}
	}

	prec := rustPrecedence[b.Op]
	left, err := t.transpileOperand(b.Left, prec, false, b.Op.IsComparison())
	if err != nil {
		return nil, err
	}
	right, err := t.transpileOperand(b.Right, prec, true, b.Op.IsComparison())
	if err != nil {
		return nil, err
	}
	return left.Push(b.Op.String()).Append(right), nil
}

// transpileOperand emits a binary operand, parenthesized when Rust would
// otherwise regroup it.
func (t *Transpiler) transpileOperand(e *ast.Expr, parent int, right, comparison bool) (*TokenStream, error) {
	ts, err := t.Transpile(e)
	if err != nil {
		return nil, err
	}
	if operandNeedsParens(e, parent, right, comparison) {
		return Tokens().Group("(", ts, ")"), nil
	}
	return ts, nil
}

func operandNeedsParens(e *ast.Expr, parent int, right, comparison bool) bool {
	switch k := e.Kind.(type) {
	case *ast.Binary:
		prec, ok := rustPrecedence[k.Op]
		if !ok {
			return false
		}
		if prec < parent {
			return true
		}
		if prec == parent && (right || comparison) {
			return true
		}
		return false
	case *ast.Range, *ast.Lambda, *ast.Assign, *ast.CompoundAssign, *ast.If,
		*ast.Match, *ast.Let, *ast.TypeCast, *ast.Block, *ast.TryCatch:
		return true
	case *ast.Literal:
		return k.Kind == ast.LitInteger && k.Int < 0 || k.Kind == ast.LitFloat && k.Float < 0
	}
	return false
}

// transpileConcat lowers string `+` to format!, since Rust has no &str + &str.
func (t *Transpiler) transpileConcat(b *ast.Binary) (*TokenStream, error) {
	var parts []*ast.Expr
	var flatten func(e *ast.Expr)
	flatten = func(e *ast.Expr) {
		if bin, ok := e.Kind.(*ast.Binary); ok && bin.Op == ast.OpAdd {
			flatten(bin.Left)
			flatten(bin.Right)
			return
		}
		parts = append(parts, e)
	}
	flatten(b.Left)
	flatten(b.Right)

	var format strings.Builder
	var args []*TokenStream
	for _, p := range parts {
		if lit, ok := p.Kind.(*ast.Literal); ok && lit.Kind == ast.LitString {
			format.WriteString(escapeFormatText(lit.Str))
			continue
		}
		ts, err := t.Transpile(p)
		if err != nil {
			return nil, err
		}
		format.WriteString("{}")
		args = append(args, ts)
	}
	return formatMacro("format!", format.String(), args), nil
}

func formatMacro(name, format string, args []*TokenStream) *TokenStream {
	inner := Tokens(RustString(format))
	for _, a := range args {
		inner.Push(",").Append(a)
	}
	return Tokens(name).Group("(", inner, ")")
}

// escapeFormatText doubles braces so text survives as a format string.
func escapeFormatText(s string) string {
	return strings.NewReplacer("{", "{{", "}", "}}").Replace(s)
}

func (t *Transpiler) transpilePow(base, exp *ast.Expr) (*TokenStream, error) {
	b, err := t.Transpile(base)
	if err != nil {
		return nil, err
	}
	e, err := t.Transpile(exp)
	if err != nil {
		return nil, err
	}
	if literalType(base) == "f64" || literalType(exp) == "f64" {
		args := Tokens().Group("(", b, ")").Push("as", "f64", ",").Group("(", e, ")").Push("as", "f64")
		return Tokens("f64::powf").Group("(", args, ")"), nil
	}
	args := b.Push(",").Group("(", e, ")").Push("as", "u32")
	return Tokens("i64::pow").Group("(", args, ")"), nil
}

func (t *Transpiler) transpileUnary(u *ast.Unary) (*TokenStream, error) {
	operand, err := t.Transpile(u.Operand)
	if err != nil {
		return nil, err
	}
	switch k := u.Operand.Kind.(type) {
	case *ast.Binary, *ast.Range, *ast.TypeCast, *ast.Lambda, *ast.Assign, *ast.If, *ast.Match:
		operand = Tokens().Group("(", operand, ")")
	case *ast.Literal:
		if u.Op == ast.OpNeg && k.Kind == ast.LitInteger && k.Int == math.MinInt64 {
			// the parser wraps 9223372036854775808 to i64::MIN, already negative
			return operand, nil
		}
		if u.Op == ast.OpNeg && negativeLiteral(k) {
			operand = Tokens().Group("(", operand, ")")
		}
	case *ast.Unary:
		if u.Op == ast.OpNeg && k.Op == ast.OpNeg {
			operand = Tokens().Group("(", operand, ")")
		}
	}
	op := u.Op.String()
	if u.Op == ast.OpBitNot {
		op = "!"
	}
	return Tokens(op).Append(operand), nil
}

func negativeLiteral(l *ast.Literal) bool {
	switch l.Kind {
	case ast.LitInteger:
		return l.Int < 0
	case ast.LitFloat:
		return math.Signbit(l.Float)
	}
	return false
}

func (t *Transpiler) transpileAssign(a *ast.Assign) (*TokenStream, error) {
	target, err := t.transpileTarget(a.Target)
	if err != nil {
		return nil, err
	}
	value, err := t.Transpile(a.Value)
	if err != nil {
		return nil, err
	}
	return target.Push("=").Append(value), nil
}

func (t *Transpiler) transpileCompoundAssign(c *ast.CompoundAssign) (*TokenStream, error) {
	target, err := t.transpileTarget(c.Target)
	if err != nil {
		return nil, err
	}
	switch c.Op {
	case ast.OpPow:
		pow, err := t.transpilePow(c.Target, c.Value)
		if err != nil {
			return nil, err
		}
		return target.Push("=").Append(pow), nil
	case ast.OpNullCoalesce, ast.OpAnd, ast.OpOr, ast.OpEq, ast.OpNe, ast.OpLt, ast.OpLe, ast.OpGt, ast.OpGe:
		return nil, perrors.InvalidConstruct("compound assignment", "operator %s= has no Rust form", c.Op)
	}
	value, err := t.Transpile(c.Value)
	if err != nil {
		return nil, err
	}
	return target.Push(c.Op.String() + "=").Append(value), nil
}

// transpileTarget emits an assignment target. Index targets keep their
// usize conversion.
func (t *Transpiler) transpileTarget(e *ast.Expr) (*TokenStream, error) {
	switch e.Kind.(type) {
	case *ast.Identifier, *ast.FieldAccess, *ast.IndexAccess, *ast.Unary:
		return t.Transpile(e)
	}
	return nil, perrors.InvalidConstruct("assignment", "cannot assign to %s", ast.KindName(e))
}

// transpilePostfixOperand emits e so a postfix operator (method call, field
// access, `?`) can follow it.
func (t *Transpiler) transpilePostfixOperand(e *ast.Expr) (*TokenStream, error) {
	ts, err := t.Transpile(e)
	if err != nil {
		return nil, err
	}
	switch k := e.Kind.(type) {
	case *ast.Identifier, *ast.Call, *ast.MethodCall, *ast.FieldAccess, *ast.IndexAccess,
		*ast.List, *ast.Tuple, *ast.MacroInvocation, *ast.StringInterpolation, *ast.Try,
		*ast.DataFrame, *ast.DataFrameOp, *ast.Object, *ast.StructLiteral, *ast.Slice:
		return ts, nil
	case *ast.Literal:
		if k.Kind == ast.LitString || k.Kind == ast.LitBool || k.Kind == ast.LitChar {
			return ts, nil
		}
	}
	return Tokens().Group("(", ts, ")"), nil
}

func (t *Transpiler) transpileArgs(args []*ast.Expr) (*TokenStream, error) {
	parts := make([]*TokenStream, 0, len(args))
	for _, a := range args {
		ts, err := t.Transpile(a)
		if err != nil {
			return nil, err
		}
		parts = append(parts, ts)
	}
	return Tokens().Join(",", parts), nil
}

func (t *Transpiler) transpileEach(args []*ast.Expr) ([]*TokenStream, error) {
	parts := make([]*TokenStream, 0, len(args))
	for _, a := range args {
		ts, err := t.Transpile(a)
		if err != nil {
			return nil, err
		}
		parts = append(parts, ts)
	}
	return parts, nil
}

func (t *Transpiler) transpileFieldAccess(f *ast.FieldAccess) (*TokenStream, error) {
	obj, err := t.transpilePostfixOperand(f.Object)
	if err != nil {
		return nil, err
	}
	return obj.Push(".", RustIdent(f.Field)), nil
}

func (t *Transpiler) transpileOptionalFieldAccess(f *ast.OptionalFieldAccess) (*TokenStream, error) {
	obj, err := t.transpilePostfixOperand(f.Object)
	if err != nil {
		return nil, err
	}
	body := Tokens("__v", ".", RustIdent(f.Field), ".", "clone", "(", ")")
	closure := Tokens("|", "__v", "|").Append(body)
	return obj.Push(".", "as_ref", "(", ")", ".", "map").Group("(", closure, ")"), nil
}

func (t *Transpiler) transpileIndex(i *ast.IndexAccess) (*TokenStream, error) {
	obj, err := t.transpilePostfixOperand(i.Object)
	if err != nil {
		return nil, err
	}
	switch k := i.Index.Kind.(type) {
	case *ast.Literal:
		if k.Kind == ast.LitString || k.Kind == ast.LitInteger {
			return obj.Group("[", transpileLiteral(k), "]"), nil
		}
	case *ast.Unary:
		lit, isLit := k.Operand.Kind.(*ast.Literal)
		id, isIdent := i.Object.Kind.(*ast.Identifier)
		if k.Op == ast.OpNeg && isLit && lit.Kind == ast.LitInteger && isIdent {
			idx := Tokens(RustIdent(id.Name), ".", "len", "(", ")", "-", strconv.FormatInt(lit.Int, 10))
			return obj.Group("[", idx, "]"), nil
		}
	}
	idx, err := t.Transpile(i.Index)
	if err != nil {
		return nil, err
	}
	return obj.Group("[", Tokens().Group("(", idx, ")").Push("as", "usize"), "]"), nil
}

func (t *Transpiler) transpileSlice(s *ast.Slice) (*TokenStream, error) {
	obj, err := t.transpilePostfixOperand(s.Object)
	if err != nil {
		return nil, err
	}
	rng := &TokenStream{}
	if s.Start != nil {
		start, err := t.Transpile(s.Start)
		if err != nil {
			return nil, err
		}
		rng.Group("(", start, ")").Push("as", "usize")
	}
	if s.Inclusive {
		rng.Push("..=")
	} else {
		rng.Push("..")
	}
	if s.End != nil {
		end, err := t.Transpile(s.End)
		if err != nil {
			return nil, err
		}
		rng.Group("(", end, ")").Push("as", "usize")
	}
	return obj.Group("[", rng, "]").Push(".", "to_vec", "(", ")"), nil
}

func (t *Transpiler) transpileList(l *ast.List) (*TokenStream, error) {
	spread := false
	for _, e := range l.Elements {
		if _, ok := e.Kind.(*ast.Spread); ok {
			spread = true
		}
	}
	if !spread {
		args, err := t.transpileArgs(l.Elements)
		if err != nil {
			return nil, err
		}
		return Tokens("vec!").Group("[", args, "]"), nil
	}

	body := Tokens("let", "mut", "__items", "=", "Vec", "::", "new", "(", ")", ";")
	for _, e := range l.Elements {
		if s, ok := e.Kind.(*ast.Spread); ok {
			inner, err := t.transpilePostfixOperand(s.Expr)
			if err != nil {
				return nil, err
			}
			iter := inner.Push(".", "iter", "(", ")", ".", "cloned", "(", ")")
			body.Push("__items", ".", "extend").Group("(", iter, ")").Push(";")
			continue
		}
		ts, err := t.Transpile(e)
		if err != nil {
			return nil, err
		}
		body.Push("__items", ".", "push").Group("(", ts, ")").Push(";")
	}
	body.Push("__items")
	return Tokens().Group("{", body, "}"), nil
}

func (t *Transpiler) transpileTuple(tu *ast.Tuple) (*TokenStream, error) {
	args, err := t.transpileArgs(tu.Elements)
	if err != nil {
		return nil, err
	}
	if len(tu.Elements) == 1 {
		args.Push(",")
	}
	return Tokens().Group("(", args, ")"), nil
}

// transpileObject lowers an object literal to a HashMap keyed by field name.
func (t *Transpiler) transpileObject(o *ast.Object) (*TokenStream, error) {
	entries := make([]*TokenStream, 0, len(o.Fields))
	for _, f := range o.Fields {
		if f.Spread {
			return nil, perrors.Unsupported("object spread")
		}
		v, err := t.Transpile(f.Value)
		if err != nil {
			return nil, err
		}
		entry := Tokens(RustString(f.Key), ".", "to_string", "(", ")", ",").Append(v)
		entries = append(entries, Tokens().Group("(", entry, ")"))
	}
	arr := Tokens().Group("[", Tokens().Join(",", entries), "]")
	return Tokens("HashMap", "::", "from").Group("(", arr, ")"), nil
}

func (t *Transpiler) transpileStructLiteral(s *ast.StructLiteral) (*TokenStream, error) {
	fields := make([]*TokenStream, 0, len(s.Fields))
	for i, f := range s.Fields {
		v, err := t.Transpile(f.Value)
		if err != nil {
			return nil, err
		}
		if f.Spread {
			if i != len(s.Fields)-1 {
				return nil, perrors.InvalidConstruct("struct literal", "the ..base spread of %s must come last", s.Name)
			}
			fields = append(fields, Tokens("..").Append(v))
			continue
		}
		if id, ok := f.Value.Kind.(*ast.Identifier); ok && id.Name == f.Key {
			fields = append(fields, Tokens(RustIdent(f.Key)))
			continue
		}
		fields = append(fields, Tokens(RustIdent(f.Key), ":").Append(v))
	}
	return Tokens(RustIdent(s.Name)).Group("{", Tokens().Join(",", fields), "}"), nil
}

func (t *Transpiler) transpileRange(r *ast.Range) (*TokenStream, error) {
	out := &TokenStream{}
	if r.Start != nil {
		start, err := t.transpileOperand(r.Start, 2, false, false)
		if err != nil {
			return nil, err
		}
		out.Append(start)
	}
	if r.Inclusive {
		out.Push("..=")
	} else {
		out.Push("..")
	}
	if r.End != nil {
		end, err := t.transpileOperand(r.End, 2, true, false)
		if err != nil {
			return nil, err
		}
		out.Append(end)
	}
	return out, nil
}

func (t *Transpiler) transpileLambda(l *ast.Lambda) (*TokenStream, error) {
	params := make([]*TokenStream, 0, len(l.Params))
	for _, p := range l.Params {
		ts, err := t.transpileParam(p, false, nil, "")
		if err != nil {
			return nil, err
		}
		params = append(params, ts)
	}
	depth := t.tryDepth
	t.tryDepth = 0
	body, err := t.Transpile(l.Body)
	t.tryDepth = depth
	if err != nil {
		return nil, err
	}
	out := &TokenStream{}
	if t.moveLambdas[l] {
		out.Push("move")
	}
	if len(params) == 0 {
		out.Push("||")
	} else {
		out.Group("|", Tokens().Join(",", params), "|")
	}
	return out.Append(body), nil
}

func (t *Transpiler) transpileReturn(r *ast.Return) (*TokenStream, error) {
	if r.Value == nil {
		return Tokens("return"), nil
	}
	v, err := t.Transpile(r.Value)
	if err != nil {
		return nil, err
	}
	if t.tryDepth > 0 {
		return nil, perrors.Unsupported("return inside try")
	}
	return Tokens("return").Append(v), nil
}

func (t *Transpiler) transpileBreak(b *ast.Break) (*TokenStream, error) {
	out := Tokens("break")
	if b.Label != "" {
		out.Push("'" + b.Label)
	}
	if b.Value != nil {
		v, err := t.Transpile(b.Value)
		if err != nil {
			return nil, err
		}
		out.Append(v)
	}
	return out, nil
}

// transpileThrow returns an Err from the enclosing try closure, or panics
// outside of one.
func (t *Transpiler) transpileThrow(th *ast.Throw) (*TokenStream, error) {
	v, err := t.Transpile(th.Expr)
	if err != nil {
		return nil, err
	}
	msg := formatMacro("format!", "{}", []*TokenStream{v})
	if t.tryDepth > 0 {
		errv := Tokens().Append(msg).Push(".", "into", "(", ")")
		return Tokens("return", "Err").Group("(", errv, ")"), nil
	}
	return formatMacro("panic!", "{}", []*TokenStream{v}), nil
}

func (t *Transpiler) transpileCast(c *ast.TypeCast) (*TokenStream, error) {
	v, err := t.transpilePostfixOperand(c.Expr)
	if err != nil {
		return nil, err
	}
	target := MapType(c.TargetType)
	if target == "String" {
		return v.Push(".", "to_string", "(", ")"), nil
	}
	return Tokens().Group("(", v.Push("as", target), ")"), nil
}

func (t *Transpiler) transpileMacro(m *ast.MacroInvocation) (*TokenStream, error) {
	args, err := t.transpileArgs(m.Args)
	if err != nil {
		return nil, err
	}
	name := RustIdent(m.Name) + "!"
	if m.Name == "vec" {
		return Tokens(name).Group("[", args, "]"), nil
	}
	return Tokens(name).Group("(", args, ")"), nil
}

// transpileInterpolation lowers f"..." to format!, keeping format specs.
func (t *Transpiler) transpileInterpolation(s *ast.StringInterpolation) (*TokenStream, error) {
	var format strings.Builder
	var args []*TokenStream
	for _, p := range s.Parts {
		if p.Expr == nil {
			format.WriteString(escapeFormatText(p.Text))
			continue
		}
		ts, err := t.Transpile(p.Expr)
		if err != nil {
			return nil, err
		}
		args = append(args, ts)
		if p.Format != "" {
			format.WriteString("{:" + p.Format + "}")
		} else {
			format.WriteString("{}")
		}
	}
	return formatMacro("format!", format.String(), args), nil
}
