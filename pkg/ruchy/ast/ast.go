// Package ast defines the Ruchy syntax tree.
//
// Everything is an expression: an *Expr wraps one ExprKind variant together
// with its source span, attributes and attached comments. Nodes are created by
// the parser and never mutated afterwards.
package ast

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/ruchy-lang/ruchy/pkg/ruchy/lexer"
)

// Span is a half-open byte range into the source.
type Span = lexer.Span

// Attribute is an item annotation such as #[test] or #[derive(Debug)].
type Attribute struct {
	Name string
	Args []string
}

func (a Attribute) String() string {
	if len(a.Args) == 0 {
		return "#[" + a.Name + "]"
	}
	return "#[" + a.Name + "(" + strings.Join(a.Args, ", ") + ")]"
}

// Expr is a node of the syntax tree.
type Expr struct {
	Kind            ExprKind
	Span            Span
	Attributes      []Attribute
	LeadingComments []string
	TrailingComment string
}

// String renders the node back to (normalized) Ruchy source.
func (e *Expr) String() string {
	if e == nil || e.Kind == nil {
		return ""
	}
	return e.Kind.String()
}

// ExprKind is implemented by every expression variant.
type ExprKind interface {
	exprKind()
	String() string
}

// LitKind distinguishes literal variants.
type LitKind int

const (
	LitInteger LitKind = iota
	LitFloat
	LitString
	LitChar
	LitBool
	LitUnit
	LitNull
	LitByteString
)

// Literal is a constant.
type Literal struct {
	Kind  LitKind
	Int   int64
	Float float64
	Str   string // string, byte string and char contents
	Bool  bool
}

func (l *Literal) String() string {
	switch l.Kind {
	case LitInteger:
		return strconv.FormatInt(l.Int, 10)
	case LitFloat:
		s := strconv.FormatFloat(l.Float, 'g', -1, 64)
		if !strings.ContainsAny(s, ".eEnN") {
			s += ".0"
		}
		return s
	case LitString:
		return strconv.Quote(l.Str)
	case LitByteString:
		return "b" + strconv.Quote(l.Str)
	case LitChar:
		return strconv.QuoteRune([]rune(l.Str)[0])
	case LitBool:
		return strconv.FormatBool(l.Bool)
	case LitNull:
		return "null"
	default:
		return "()"
	}
}

// Identifier is a name reference. Paths such as Color::Red keep their
// separators in Name.
type Identifier struct {
	Name string
}

func (i *Identifier) String() string { return i.Name }

// BinaryOp enumerates infix operators.
type BinaryOp int

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpPow
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpAnd
	OpOr
	OpBitAnd
	OpBitOr
	OpBitXor
	OpShl
	OpShr
	OpNullCoalesce
)

var binaryOpSymbols = [...]string{
	OpAdd: "+", OpSub: "-", OpMul: "*", OpDiv: "/", OpMod: "%", OpPow: "**",
	OpEq: "==", OpNe: "!=", OpLt: "<", OpLe: "<=", OpGt: ">", OpGe: ">=",
	OpAnd: "&&", OpOr: "||", OpBitAnd: "&", OpBitOr: "|", OpBitXor: "^",
	OpShl: "<<", OpShr: ">>", OpNullCoalesce: "??",
}

func (op BinaryOp) String() string {
	if int(op) < len(binaryOpSymbols) {
		return binaryOpSymbols[op]
	}
	return "?"
}

// IsComparison reports whether op is one of the non-associative comparisons.
func (op BinaryOp) IsComparison() bool {
	return op >= OpEq && op <= OpGe
}

// UnaryOp enumerates prefix operators.
type UnaryOp int

const (
	OpNeg UnaryOp = iota
	OpNot
	OpBitNot
	OpRef
	OpDeref
)

func (op UnaryOp) String() string {
	switch op {
	case OpNeg:
		return "-"
	case OpNot:
		return "!"
	case OpBitNot:
		return "~"
	case OpRef:
		return "&"
	default:
		return "*"
	}
}

type Binary struct {
	Left  *Expr
	Op    BinaryOp
	Right *Expr
}

func (b *Binary) String() string {
	return "(" + b.Left.String() + " " + b.Op.String() + " " + b.Right.String() + ")"
}

type Unary struct {
	Op      UnaryOp
	Operand *Expr
}

func (u *Unary) String() string { return "(" + u.Op.String() + u.Operand.String() + ")" }

type Assign struct {
	Target *Expr
	Value  *Expr
}

func (a *Assign) String() string { return a.Target.String() + " = " + a.Value.String() }

type CompoundAssign struct {
	Target *Expr
	Op     BinaryOp
	Value  *Expr
}

func (c *CompoundAssign) String() string {
	return c.Target.String() + " " + c.Op.String() + "= " + c.Value.String()
}

// Let introduces a binding. Pattern is set for destructuring lets, in which
// case Name is empty. Body is nil for statement-style lets, which bind in the
// enclosing scope.
type Let struct {
	Name           string
	Pattern        Pattern
	TypeAnnotation string
	Value          *Expr
	Body           *Expr
	IsMutable      bool
	ElseBlock      *Expr
}

func (l *Let) String() string {
	var out bytes.Buffer
	out.WriteString("let ")
	if l.IsMutable {
		out.WriteString("mut ")
	}
	if l.Pattern != nil {
		out.WriteString(l.Pattern.String())
	} else {
		out.WriteString(l.Name)
	}
	if l.TypeAnnotation != "" {
		out.WriteString(": " + l.TypeAnnotation)
	}
	out.WriteString(" = ")
	out.WriteString(l.Value.String())
	if l.ElseBlock != nil {
		out.WriteString(" else " + l.ElseBlock.String())
	}
	if l.Body != nil {
		out.WriteString(" in " + l.Body.String())
	}
	return out.String()
}

type If struct {
	Condition  *Expr
	ThenBranch *Expr
	ElseBranch *Expr
}

func (i *If) String() string {
	s := "if " + i.Condition.String() + " " + i.ThenBranch.String()
	if i.ElseBranch != nil {
		s += " else " + i.ElseBranch.String()
	}
	return s
}

// MatchArm is one `pattern if guard => body` arm.
type MatchArm struct {
	Pattern Pattern
	Guard   *Expr
	Body    *Expr
	Span    Span
}

func (a MatchArm) String() string {
	s := a.Pattern.String()
	if a.Guard != nil {
		s += " if " + a.Guard.String()
	}
	return s + " => " + a.Body.String()
}

type Match struct {
	Scrutinee *Expr
	Arms      []MatchArm
}

func (m *Match) String() string {
	arms := make([]string, len(m.Arms))
	for i, a := range m.Arms {
		arms[i] = a.String()
	}
	return "match " + m.Scrutinee.String() + " { " + strings.Join(arms, ", ") + " }"
}

type While struct {
	Label     string
	Condition *Expr
	Body      *Expr
}

func (w *While) String() string {
	return labelPrefix(w.Label) + "while " + w.Condition.String() + " " + w.Body.String()
}

// For iterates Iter. Var holds the loop variable for simple loops; Pattern is
// set when the loop destructures each element.
type For struct {
	Label   string
	Var     string
	Pattern Pattern
	Iter    *Expr
	Body    *Expr
}

func (f *For) String() string {
	binder := f.Var
	if f.Pattern != nil {
		binder = f.Pattern.String()
	}
	return labelPrefix(f.Label) + "for " + binder + " in " + f.Iter.String() + " " + f.Body.String()
}

type Loop struct {
	Label string
	Body  *Expr
}

func (l *Loop) String() string { return labelPrefix(l.Label) + "loop " + l.Body.String() }

func labelPrefix(label string) string {
	if label == "" {
		return ""
	}
	return "'" + label + ": "
}

// Block is a sequence of expressions; the last one is the block's value.
// TopLevel marks the root produced for a multi-item source: it does not open
// a scope, so its bindings land in the enclosing environment.
type Block struct {
	Exprs    []*Expr
	TopLevel bool
}

func (b *Block) String() string {
	if len(b.Exprs) == 0 {
		return "{}"
	}
	parts := make([]string, len(b.Exprs))
	for i, e := range b.Exprs {
		parts[i] = e.String()
	}
	return "{ " + strings.Join(parts, "; ") + " }"
}

type Call struct {
	Func *Expr
	Args []*Expr
}

func (c *Call) String() string { return c.Func.String() + "(" + joinExprs(c.Args) + ")" }

type MethodCall struct {
	Receiver *Expr
	Method   string
	Args     []*Expr
}

func (m *MethodCall) String() string {
	return m.Receiver.String() + "." + m.Method + "(" + joinExprs(m.Args) + ")"
}

// OptionalMethodCall is recv?.method(args): nil receivers short-circuit to nil.
type OptionalMethodCall struct {
	Receiver *Expr
	Method   string
	Args     []*Expr
}

func (m *OptionalMethodCall) String() string {
	return m.Receiver.String() + "?." + m.Method + "(" + joinExprs(m.Args) + ")"
}

type FieldAccess struct {
	Object *Expr
	Field  string
}

func (f *FieldAccess) String() string { return f.Object.String() + "." + f.Field }

// OptionalFieldAccess is obj?.field.
type OptionalFieldAccess struct {
	Object *Expr
	Field  string
}

func (f *OptionalFieldAccess) String() string { return f.Object.String() + "?." + f.Field }

type IndexAccess struct {
	Object *Expr
	Index  *Expr
}

func (i *IndexAccess) String() string { return i.Object.String() + "[" + i.Index.String() + "]" }

// Slice is obj[start..end] with optional bounds.
type Slice struct {
	Object    *Expr
	Start     *Expr
	End       *Expr
	Inclusive bool
}

func (s *Slice) String() string {
	op := ".."
	if s.Inclusive {
		op = "..="
	}
	return s.Object.String() + "[" + s.Start.String() + op + s.End.String() + "]"
}

type List struct {
	Elements []*Expr
}

func (l *List) String() string { return "[" + joinExprs(l.Elements) + "]" }

type Tuple struct {
	Elements []*Expr
}

func (t *Tuple) String() string {
	if len(t.Elements) == 1 {
		return "(" + t.Elements[0].String() + ",)"
	}
	return "(" + joinExprs(t.Elements) + ")"
}

// ObjectField is `key: value` or `...spread` inside an object literal.
type ObjectField struct {
	Key    string
	Value  *Expr
	Spread bool
}

func (f ObjectField) String() string {
	if f.Spread {
		return "..." + f.Value.String()
	}
	return f.Key + ": " + f.Value.String()
}

type Object struct {
	Fields []ObjectField
}

func (o *Object) String() string {
	parts := make([]string, len(o.Fields))
	for i, f := range o.Fields {
		parts[i] = f.String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// StructLiteral is `Name { field: value, .. }`.
type StructLiteral struct {
	Name   string
	Fields []ObjectField
}

func (s *StructLiteral) String() string {
	parts := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		parts[i] = f.String()
	}
	return s.Name + " { " + strings.Join(parts, ", ") + " }"
}

type Range struct {
	Start     *Expr
	End       *Expr
	Inclusive bool
}

func (r *Range) String() string {
	op := ".."
	if r.Inclusive {
		op = "..="
	}
	return r.Start.String() + op + r.End.String()
}

// Param is a function or lambda parameter.
type Param struct {
	Name      string
	Pattern   Pattern
	Type      string
	Default   *Expr
	IsMutable bool
}

func (p Param) String() string {
	s := p.Name
	if p.Pattern != nil {
		s = p.Pattern.String()
	}
	if p.IsMutable {
		s = "mut " + s
	}
	if p.Type != "" {
		s += ": " + p.Type
	}
	if p.Default != nil {
		s += " = " + p.Default.String()
	}
	return s
}

func joinParams(params []Param) string {
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = p.String()
	}
	return strings.Join(parts, ", ")
}

type Lambda struct {
	Params []Param
	Body   *Expr
}

func (l *Lambda) String() string { return "|" + joinParams(l.Params) + "| " + l.Body.String() }

// Function is a named function definition.
type Function struct {
	Name       string
	TypeParams []string
	Params     []Param
	ReturnType string
	Body       *Expr
	IsPub      bool
	IsAsync    bool
}

func (f *Function) String() string {
	var out bytes.Buffer
	if f.IsPub {
		out.WriteString("pub ")
	}
	if f.IsAsync {
		out.WriteString("async ")
	}
	out.WriteString("fn " + f.Name)
	if len(f.TypeParams) > 0 {
		out.WriteString("<" + strings.Join(f.TypeParams, ", ") + ">")
	}
	out.WriteString("(" + joinParams(f.Params) + ")")
	if f.ReturnType != "" {
		out.WriteString(" -> " + f.ReturnType)
	}
	out.WriteString(" " + f.Body.String())
	return out.String()
}

type Return struct {
	Value *Expr
}

func (r *Return) String() string {
	if r.Value == nil {
		return "return"
	}
	return "return " + r.Value.String()
}

type Break struct {
	Label string
	Value *Expr
}

func (b *Break) String() string {
	s := "break"
	if b.Label != "" {
		s += " '" + b.Label
	}
	if b.Value != nil {
		s += " " + b.Value.String()
	}
	return s
}

type Continue struct {
	Label string
}

func (c *Continue) String() string {
	if c.Label == "" {
		return "continue"
	}
	return "continue '" + c.Label
}

// Try is the postfix `expr?` propagation operator.
type Try struct {
	Expr *Expr
}

func (t *Try) String() string { return t.Expr.String() + "?" }

// CatchClause is one `catch (binding) { body }` handler.
type CatchClause struct {
	Pattern Pattern
	Body    *Expr
}

type TryCatch struct {
	Try     *Expr
	Catches []CatchClause
	Finally *Expr
}

func (t *TryCatch) String() string {
	s := "try " + t.Try.String()
	for _, c := range t.Catches {
		s += " catch"
		if c.Pattern != nil {
			s += " (" + c.Pattern.String() + ")"
		}
		s += " " + c.Body.String()
	}
	if t.Finally != nil {
		s += " finally " + t.Finally.String()
	}
	return s
}

type Throw struct {
	Expr *Expr
}

func (t *Throw) String() string { return "throw " + t.Expr.String() }

type TypeCast struct {
	Expr       *Expr
	TargetType string
}

func (t *TypeCast) String() string { return t.Expr.String() + " as " + t.TargetType }

// MacroInvocation is name!(args). The evaluator only understands the
// printing family; everything else is passed through to the transpiler.
type MacroInvocation struct {
	Name string
	Args []*Expr
}

func (m *MacroInvocation) String() string { return m.Name + "!(" + joinExprs(m.Args) + ")" }

// DataFrameColumn is one column of a df![...] literal.
type DataFrameColumn struct {
	Name   string
	Values []*Expr
}

// DataFrame is a df![col, ...; row; ...] literal.
type DataFrame struct {
	Columns []DataFrameColumn
}

func (d *DataFrame) String() string {
	if len(d.Columns) == 0 {
		return "df![]"
	}
	names := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		names[i] = c.Name
	}
	rows := []string{strings.Join(names, ", ")}
	for r := range d.Columns[0].Values {
		cells := make([]string, len(d.Columns))
		for i, c := range d.Columns {
			if r < len(c.Values) {
				cells[i] = c.Values[r].String()
			}
		}
		rows = append(rows, strings.Join(cells, ", "))
	}
	return "df![" + strings.Join(rows, "; ") + "]"
}

// DataFrameOpKind enumerates the relational operations.
type DataFrameOpKind int

const (
	DFSelect DataFrameOpKind = iota
	DFFilter
	DFGroupBy
	DFJoin
	DFSlice
	DFSum
)

func (k DataFrameOpKind) String() string {
	switch k {
	case DFSelect:
		return "select"
	case DFFilter:
		return "filter"
	case DFGroupBy:
		return "groupby"
	case DFJoin:
		return "join"
	case DFSlice:
		return "slice"
	default:
		return "sum"
	}
}

// DataFrameOp is a relational method call. The parser produces it for the
// relational method names; when the receiver turns out not to be a DataFrame
// the evaluator falls back to ordinary method dispatch. Filter arguments are
// kept unevaluated so they can be run once per row.
type DataFrameOp struct {
	Source *Expr
	Op     DataFrameOpKind
	Method string // spelling used in the source, e.g. group_by
	Args   []*Expr
}

func (d *DataFrameOp) String() string {
	return d.Source.String() + "." + d.Method + "(" + joinExprs(d.Args) + ")"
}

// Spread is `...expr` inside a list, tuple or call argument list.
type Spread struct {
	Expr *Expr
}

func (s *Spread) String() string { return "..." + s.Expr.String() }

// InterpolationPart is literal text or an embedded expression with an
// optional format spec such as ".2" or "?".
type InterpolationPart struct {
	Text   string
	Expr   *Expr
	Format string
}

type StringInterpolation struct {
	Parts []InterpolationPart
}

func (s *StringInterpolation) String() string {
	var out bytes.Buffer
	out.WriteString(`f"`)
	for _, p := range s.Parts {
		if p.Expr != nil {
			out.WriteString("{" + p.Expr.String())
			if p.Format != "" {
				out.WriteString(":" + p.Format)
			}
			out.WriteString("}")
			continue
		}
		text := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "{", "{{", "}", "}}", "\n", `\n`).Replace(p.Text)
		out.WriteString(text)
	}
	out.WriteString(`"`)
	return out.String()
}

// StructField is a field of a struct or actor declaration.
type StructField struct {
	Name    string
	Type    string
	IsPub   bool
	Default *Expr
}

type StructDef struct {
	Name       string
	TypeParams []string
	Fields     []StructField
	IsPub      bool
}

func (s *StructDef) String() string {
	parts := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		parts[i] = f.Name + ": " + f.Type
	}
	return "struct " + s.Name + " { " + strings.Join(parts, ", ") + " }"
}

// EnumVariantDef is one variant; Fields holds tuple payload types.
type EnumVariantDef struct {
	Name         string
	Fields       []string
	Discriminant *int64
}

type EnumDef struct {
	Name       string
	TypeParams []string
	Variants   []EnumVariantDef
	IsPub      bool
}

func (e *EnumDef) String() string {
	parts := make([]string, len(e.Variants))
	for i, v := range e.Variants {
		parts[i] = v.Name
		if len(v.Fields) > 0 {
			parts[i] += "(" + strings.Join(v.Fields, ", ") + ")"
		}
		if v.Discriminant != nil {
			parts[i] += " = " + strconv.FormatInt(*v.Discriminant, 10)
		}
	}
	return "enum " + e.Name + " { " + strings.Join(parts, ", ") + " }"
}

type TraitDef struct {
	Name    string
	Methods []*Expr
	IsPub   bool
}

func (t *TraitDef) String() string { return "trait " + t.Name + " { " + joinExprsWith(t.Methods, " ") + " }" }

type ImplBlock struct {
	TraitName string
	TypeName  string
	Methods   []*Expr
}

func (i *ImplBlock) String() string {
	head := "impl " + i.TypeName
	if i.TraitName != "" {
		head = "impl " + i.TraitName + " for " + i.TypeName
	}
	return head + " { " + joinExprsWith(i.Methods, " ") + " }"
}

// ImportItem is one imported name with an optional alias.
type ImportItem struct {
	Name  string
	Alias string
}

func (i ImportItem) String() string {
	if i.Alias != "" {
		return i.Name + " as " + i.Alias
	}
	return i.Name
}

// ImportKind distinguishes the import forms.
type ImportKind int

const (
	ImportNamed   ImportKind = iota // import a::b or use a::b::{c, d}
	ImportAll                       // import * as alias from "m"
	ImportDefault                   // import name from "m"
)

type Import struct {
	Kind   ImportKind
	Module string
	Items  []ImportItem
	Alias  string // ImportAll alias or ImportDefault name
}

func (i *Import) String() string {
	switch i.Kind {
	case ImportAll:
		return "import * as " + i.Alias + " from " + strconv.Quote(i.Module)
	case ImportDefault:
		return "import " + i.Alias + " from " + strconv.Quote(i.Module)
	}
	if len(i.Items) == 0 {
		return "import " + i.Module
	}
	parts := make([]string, len(i.Items))
	for k, it := range i.Items {
		parts[k] = it.String()
	}
	return "import " + i.Module + "::{" + strings.Join(parts, ", ") + "}"
}

// Export is `export fn ...`, `export { a, b }` or `export { a } from "m"`.
type Export struct {
	Expr   *Expr
	Names  []string
	Module string
}

func (e *Export) String() string {
	if e.Expr != nil {
		return "export " + e.Expr.String()
	}
	s := "export { " + strings.Join(e.Names, ", ") + " }"
	if e.Module != "" {
		s += " from " + strconv.Quote(e.Module)
	}
	return s
}

type Module struct {
	Name string
	Body *Expr
}

func (m *Module) String() string { return "mod " + m.Name + " " + m.Body.String() }

// ActorDef, Receive, Spawn and Await are parsed for completeness; the
// interpreter reports them as unsupported.
type ActorDef struct {
	Name     string
	State    []StructField
	Handlers []MatchArm
}

func (a *ActorDef) String() string { return "actor " + a.Name + " { ... }" }

type Receive struct {
	Arms []MatchArm
}

func (r *Receive) String() string { return "receive { ... }" }

type Spawn struct {
	Expr *Expr
}

func (s *Spawn) String() string { return "spawn " + s.Expr.String() }

type Await struct {
	Expr *Expr
}

func (a *Await) String() string { return a.Expr.String() + ".await" }

func (*Literal) exprKind()             {}
func (*Identifier) exprKind()          {}
func (*Binary) exprKind()              {}
func (*Unary) exprKind()               {}
func (*Assign) exprKind()              {}
func (*CompoundAssign) exprKind()      {}
func (*Let) exprKind()                 {}
func (*If) exprKind()                  {}
func (*Match) exprKind()               {}
func (*While) exprKind()               {}
func (*For) exprKind()                 {}
func (*Loop) exprKind()                {}
func (*Block) exprKind()               {}
func (*Call) exprKind()                {}
func (*MethodCall) exprKind()          {}
func (*OptionalMethodCall) exprKind()  {}
func (*FieldAccess) exprKind()         {}
func (*OptionalFieldAccess) exprKind() {}
func (*IndexAccess) exprKind()         {}
func (*Slice) exprKind()               {}
func (*List) exprKind()                {}
func (*Tuple) exprKind()               {}
func (*Object) exprKind()              {}
func (*StructLiteral) exprKind()       {}
func (*Range) exprKind()               {}
func (*Lambda) exprKind()              {}
func (*Function) exprKind()            {}
func (*Return) exprKind()              {}
func (*Break) exprKind()               {}
func (*Continue) exprKind()            {}
func (*Try) exprKind()                 {}
func (*TryCatch) exprKind()            {}
func (*Throw) exprKind()               {}
func (*TypeCast) exprKind()            {}
func (*MacroInvocation) exprKind()     {}
func (*DataFrame) exprKind()           {}
func (*DataFrameOp) exprKind()         {}
func (*Spread) exprKind()              {}
func (*StringInterpolation) exprKind() {}
func (*StructDef) exprKind()           {}
func (*EnumDef) exprKind()             {}
func (*TraitDef) exprKind()            {}
func (*ImplBlock) exprKind()           {}
func (*Import) exprKind()              {}
func (*Export) exprKind()              {}
func (*Module) exprKind()              {}
func (*ActorDef) exprKind()            {}
func (*Receive) exprKind()             {}
func (*Spawn) exprKind()               {}
func (*Await) exprKind()               {}

func joinExprs(exprs []*Expr) string {
	return joinExprsWith(exprs, ", ")
}

func joinExprsWith(exprs []*Expr, sep string) string {
	parts := make([]string, len(exprs))
	for i, e := range exprs {
		parts[i] = e.String()
	}
	return strings.Join(parts, sep)
}

// New wraps a kind in an Expr with the given span.
func New(kind ExprKind, span Span) *Expr {
	return &Expr{Kind: kind, Span: span}
}

// Unit returns a unit literal at span.
func Unit(span Span) *Expr {
	return New(&Literal{Kind: LitUnit}, span)
}

// KindName returns the variant name of e, e.g. "Binary".
func KindName(e *Expr) string {
	if e == nil || e.Kind == nil {
		return "<nil>"
	}
	name := fmt.Sprintf("%T", e.Kind)
	return strings.TrimPrefix(name, "*ast.")
}
