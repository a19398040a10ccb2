package transpiler

import (
	"github.com/ruchy-lang/ruchy/pkg/ruchy/ast"
	perrors "github.com/ruchy-lang/ruchy/pkg/ruchy/errors"
)

// DataFrames lower to polars. Relational operations run on a lazy frame
// and collect at the end of each operation.

// frameFunctions are the function forms of the relational operations, as
// in groupby(df, "k").
var frameFunctions = map[string]bool{
	"select": true, "filter": true, "groupby": true, "group_by": true, "join": true, "slice": true,
}

var frameOpKinds = map[string]ast.DataFrameOpKind{
	"select":   ast.DFSelect,
	"filter":   ast.DFFilter,
	"groupby":  ast.DFGroupBy,
	"group_by": ast.DFGroupBy,
	"join":     ast.DFJoin,
	"slice":    ast.DFSlice,
}

// frameMethods keep a frame a frame.
var frameMethods = map[string]bool{"head": true, "tail": true, "with_column": true}

var polarsComparisons = map[ast.BinaryOp]string{
	ast.OpGt: "gt", ast.OpGe: "gt_eq", ast.OpLt: "lt", ast.OpLe: "lt_eq",
	ast.OpEq: "eq", ast.OpNe: "neq", ast.OpAnd: "and", ast.OpOr: "or",
}

// isFrameExpr reports whether e is known to produce a DataFrame.
func (t *Transpiler) isFrameExpr(e *ast.Expr) bool {
	if e == nil {
		return false
	}
	switch k := e.Kind.(type) {
	case *ast.DataFrame:
		return true
	case *ast.Identifier:
		return t.frames[k.Name]
	case *ast.DataFrameOp:
		return k.Op != ast.DFSum && t.isFrameExpr(k.Source)
	case *ast.MethodCall:
		return frameMethods[k.Method] && t.isFrameExpr(k.Receiver)
	case *ast.Call:
		id, ok := k.Func.Kind.(*ast.Identifier)
		if !ok {
			return false
		}
		switch id.Name {
		case "DataFrame", "DataFrame::new", "read_sql":
			return true
		}
		return frameFunctions[id.Name] && len(k.Args) > 0 && t.isFrameExpr(k.Args[0])
	}
	return false
}

// transpileDataFrame lowers a df! literal to the polars df! macro.
func (t *Transpiler) transpileDataFrame(d *ast.DataFrame) (*TokenStream, error) {
	if len(d.Columns) == 0 {
		return Tokens("DataFrame", "::", "empty", "(", ")"), nil
	}
	cols := make([]*TokenStream, 0, len(d.Columns))
	for _, c := range d.Columns {
		values, err := t.transpileEach(c.Values)
		if err != nil {
			return nil, err
		}
		col := Tokens(RustString(c.Name), "=>", "&").Group("[", Tokens().Join(",", values), "]")
		cols = append(cols, col)
	}
	return Tokens("df!").Group("(", Tokens().Join(",", cols), ")").Push(".", "unwrap", "(", ")"), nil
}

// transpileDataFrameOp lowers a relational operation. Receivers that are
// not frames are ordinary method calls.
func (t *Transpiler) transpileDataFrameOp(op *ast.DataFrameOp) (*TokenStream, error) {
	if !t.isFrameExpr(op.Source) {
		return t.TranspileMethodCall(&ast.MethodCall{Receiver: op.Source, Method: op.Method, Args: op.Args})
	}
	src, err := t.transpilePostfixOperand(op.Source)
	if err != nil {
		return nil, err
	}
	lazy := src.Push(".", "clone", "(", ")", ".", "lazy", "(", ")")
	want := func(n int) error {
		if len(op.Args) != n {
			return perrors.InvalidConstruct("DataFrame "+op.Method, "expects %d argument(s), got %d", n, len(op.Args))
		}
		return nil
	}

	switch op.Op {
	case ast.DFSelect:
		cols := make([]*TokenStream, 0, len(op.Args))
		for _, a := range op.Args {
			c, err := t.columnRef(a)
			if err != nil {
				return nil, err
			}
			cols = append(cols, c)
		}
		lazy.Push(".", "select").Group("(", Tokens().Group("[", Tokens().Join(",", cols), "]"), ")")
	case ast.DFFilter:
		if err := want(1); err != nil {
			return nil, err
		}
		pred, err := t.polarsExpr(op.Args[0])
		if err != nil {
			return nil, err
		}
		lazy.Push(".", "filter").Group("(", pred, ")")
	case ast.DFGroupBy:
		if err := want(1); err != nil {
			return nil, err
		}
		key, err := t.columnRef(op.Args[0])
		if err != nil {
			return nil, err
		}
		keyName, err := t.Transpile(op.Args[0])
		if err != nil {
			return nil, err
		}
		lazy.Push(".", "group_by_stable").Group("(", Tokens().Group("[", key, "]"), ")")
		agg := Tokens("all", "(", ")", ".", "exclude").Group("(", Tokens().Group("[", keyName, "]"), ")")
		agg.Push(".", "sum", "(", ")", ".", "name", "(", ")", ".", "suffix", "(", `"_sum"`, ")")
		lazy.Push(".", "agg").Group("(", Tokens().Group("[", agg, "]"), ")")
	case ast.DFJoin:
		if err := want(2); err != nil {
			return nil, err
		}
		other, err := t.transpilePostfixOperand(op.Args[0])
		if err != nil {
			return nil, err
		}
		on, err := t.columnRef(op.Args[1])
		if err != nil {
			return nil, err
		}
		args := other.Push(".", "clone", "(", ")", ".", "lazy", "(", ")", ",")
		args.Group("[", on, "]").Push(",").Group("[", Tokens().Append(on), "]").Push(",")
		args.Push("JoinArgs", "::", "new", "(", "JoinType", "::", "Inner", ")", ".", "with_suffix",
			"(", "Some", "(", `"_right"`, ".", "into", "(", ")", ")", ")")
		lazy.Push(".", "join").Group("(", args, ")")
	case ast.DFSlice:
		if err := want(2); err != nil {
			return nil, err
		}
		start, err := t.Transpile(op.Args[0])
		if err != nil {
			return nil, err
		}
		length, err := t.Transpile(op.Args[1])
		if err != nil {
			return nil, err
		}
		args := Tokens().Group("(", start, ")").Push("as", "i64", ",").Group("(", length, ")").Push("as", "u32")
		lazy.Push(".", "slice").Group("(", args, ")")
	case ast.DFSum:
		lazy.Push(".", "sum", "(", ")")
	}
	return lazy.Push(".", "collect", "(", ")", ".", "unwrap", "(", ")"), nil
}

// columnRef lowers a column name argument to col(...).
func (t *Transpiler) columnRef(e *ast.Expr) (*TokenStream, error) {
	name, err := t.Transpile(e)
	if err != nil {
		return nil, err
	}
	return Tokens("col").Group("(", name, ")"), nil
}

// polarsExpr lowers a row predicate to a polars expression. Bare names are
// columns and literals become lit(...).
func (t *Transpiler) polarsExpr(e *ast.Expr) (*TokenStream, error) {
	switch k := e.Kind.(type) {
	case *ast.Identifier:
		return Tokens("col", "(", RustString(k.Name), ")"), nil
	case *ast.Literal:
		return Tokens("lit").Group("(", transpileLiteral(k), ")"), nil
	case *ast.Unary:
		inner, err := t.polarsExpr(k.Operand)
		if err != nil {
			return nil, err
		}
		switch k.Op {
		case ast.OpNot:
			return Tokens().Group("(", inner, ")").Push(".", "not", "(", ")"), nil
		case ast.OpNeg:
			return Tokens("lit", "(", "0", ")", "-").Group("(", inner, ")"), nil
		}
	case *ast.Binary:
		left, err := t.polarsExpr(k.Left)
		if err != nil {
			return nil, err
		}
		right, err := t.polarsExpr(k.Right)
		if err != nil {
			return nil, err
		}
		if method, ok := polarsComparisons[k.Op]; ok {
			return Tokens().Group("(", left, ")").Push(".", method).Group("(", right, ")"), nil
		}
		switch k.Op {
		case ast.OpAdd, ast.OpSub, ast.OpMul, ast.OpDiv, ast.OpMod:
			return Tokens().Group("(", left.Push(k.Op.String()).Append(right), ")"), nil
		}
	case *ast.Lambda:
		return nil, perrors.Unsupported("DataFrame filter with a closure")
	}
	return nil, perrors.Unsupported("DataFrame filter predicate " + ast.KindName(e))
}
