package transpiler

import (
	"strings"

	"github.com/ruchy-lang/ruchy/pkg/ruchy/ast"
	perrors "github.com/ruchy-lang/ruchy/pkg/ruchy/errors"
)

var printMacros = map[string]string{
	"println":  "println!",
	"print":    "print!",
	"eprintln": "eprintln!",
	"eprint":   "eprint!",
}

var assertMacros = map[string]string{
	"assert":    "assert!",
	"assert_eq": "assert_eq!",
	"assert_ne": "assert_ne!",
	"dbg":       "dbg!",
	"format":    "format!",
	"todo":      "todo!",
}

var floatMath = map[string]bool{
	"sqrt": true, "floor": true, "ceil": true, "round": true, "sin": true,
	"cos": true, "tan": true, "exp": true, "ln": true, "log10": true,
}

// TranspileCall lowers a call. Ruchy built-ins map to their Rust macro or
// std equivalent; everything else is an ordinary call.
func (t *Transpiler) TranspileCall(c *ast.Call) (*TokenStream, error) {
	if id, ok := c.Func.Kind.(*ast.Identifier); ok {
		if ts, handled, err := t.transpileBuiltinCall(id.Name, c.Args); handled {
			return ts, err
		}
	}
	fn, err := t.transpilePostfixOperand(c.Func)
	if err != nil {
		return nil, err
	}
	args, err := t.transpileArgs(c.Args)
	if err != nil {
		return nil, err
	}
	return fn.Group("(", args, ")"), nil
}

func (t *Transpiler) transpileBuiltinCall(name string, argExprs []*ast.Expr) (*TokenStream, bool, error) {
	if macro, ok := printMacros[name]; ok {
		ts, err := t.transpilePrint(macro, argExprs)
		return ts, true, err
	}
	args, err := t.transpileEach(argExprs)
	if err != nil {
		return nil, true, err
	}
	if macro, ok := assertMacros[name]; ok {
		return Tokens(macro).Group("(", Tokens().Join(",", args), ")"), true, nil
	}

	arg := func(i int) *TokenStream { return Tokens().Group("(", args[i], ")") }
	switch {
	case name == "panic":
		if len(args) == 0 {
			return Tokens("panic!", "(", ")"), true, nil
		}
		return formatMacro("panic!", "{}", args[:1]), true, nil
	case name == "len" && len(args) == 1:
		return arg(0).Push(".", "len", "(", ")"), true, nil
	case (name == "str" || name == "to_string") && len(args) == 1:
		return arg(0).Push(".", "to_string", "(", ")"), true, nil
	case name == "int" && len(args) == 1:
		return Tokens().Group("(", arg(0).Push("as", "i64"), ")"), true, nil
	case name == "float" && len(args) == 1:
		return Tokens().Group("(", arg(0).Push("as", "f64"), ")"), true, nil
	case (name == "type" || name == "type_of") && len(args) == 1:
		return Tokens("std::any::type_name_of_val").Group("(", Tokens("&").Append(args[0]), ")"), true, nil
	case name == "range" && (len(args) == 1 || len(args) == 2):
		if len(args) == 1 {
			return Tokens().Group("(", Tokens("0", "..").Append(args[0]), ")"), true, nil
		}
		return Tokens().Group("(", arg(0).Push("..").Append(arg(1)), ")"), true, nil
	case name == "range" && len(args) == 3:
		rng := Tokens().Group("(", arg(0).Push("..").Append(arg(1)), ")")
		step := Tokens().Group("(", args[2], ")").Push("as", "usize")
		return rng.Push(".", "step_by").Group("(", step, ")").Push(".", "collect", "::", "<", "Vec<i64>", ">", "(", ")"), true, nil
	case name == "abs" && len(args) == 1:
		return arg(0).Push(".", "abs", "(", ")"), true, nil
	case (name == "min" || name == "max") && len(args) == 2:
		return Tokens("std::cmp::"+name).Group("(", Tokens().Join(",", args), ")"), true, nil
	case name == "pow" && len(args) == 2:
		ts, err := t.transpilePow(argExprs[0], argExprs[1])
		return ts, true, err
	case floatMath[name] && len(args) == 1:
		return Tokens().Group("(", arg(0).Push("as", "f64"), ")").Push(".", name, "(", ")"), true, nil
	case name == "log" && len(args) == 1:
		return Tokens().Group("(", arg(0).Push("as", "f64"), ")").Push(".", "ln", "(", ")"), true, nil
	case name == "sleep" && len(args) == 1:
		ms := Tokens().Group("(", args[0], ")").Push("as", "u64")
		dur := Tokens("std::time::Duration::from_millis").Group("(", ms, ")")
		return Tokens("std::thread::sleep").Group("(", dur, ")"), true, nil
	case name == "now" && len(args) == 0:
		return Tokens("std::time::SystemTime::now", "(", ")", ".", "duration_since", "(", "std::time::UNIX_EPOCH", ")",
			".", "unwrap", "(", ")", ".", "as_millis", "(", ")", "as", "i64"), true, nil
	case name == "HashMap" || name == "HashMap::new":
		if len(args) == 0 {
			return Tokens("HashMap", "::", "new", "(", ")"), true, nil
		}
		return Tokens("HashMap", "::", "from_iter").Group("(", args[0], ")"), true, nil
	case name == "HashSet" || name == "HashSet::new":
		if len(args) == 0 {
			return Tokens("std::collections::HashSet", "::", "new", "(", ")"), true, nil
		}
		iter := arg(0).Push(".", "into_iter", "(", ")")
		return Tokens("std::collections::HashSet", "::", "<", "_", ">", "::", "from_iter").Group("(", iter, ")"), true, nil
	case name == "DataFrame" || name == "DataFrame::new":
		if len(args) == 0 {
			return Tokens("DataFrame", "::", "empty", "(", ")"), true, nil
		}
	case name == "read_sql":
		return nil, true, perrors.Unsupported("read_sql")
	case name == "Option::Some":
		return Tokens("Some").Group("(", Tokens().Join(",", args), ")"), true, nil
	case name == "Result::Ok" || name == "Result::Err":
		return Tokens(strings.TrimPrefix(name, "Result::")).Group("(", Tokens().Join(",", args), ")"), true, nil
	case frameFunctions[name] && len(argExprs) > 0 && t.isFrameExpr(argExprs[0]):
		op := &ast.DataFrameOp{Source: argExprs[0], Method: name, Args: argExprs[1:]}
		op.Op = frameOpKinds[name]
		ts, err := t.transpileDataFrameOp(op)
		return ts, true, err
	}
	return nil, false, nil
}

// transpilePrint lowers println(a, b) to println!("{} {}", a, b). String
// literal arguments are folded into the format string; a leading literal
// with placeholders already is one.
func (t *Transpiler) transpilePrint(macro string, argExprs []*ast.Expr) (*TokenStream, error) {
	if len(argExprs) > 0 {
		if lit, ok := argExprs[0].Kind.(*ast.Literal); ok && lit.Kind == ast.LitString && strings.ContainsAny(lit.Str, "{}") {
			rest, err := t.transpileEach(argExprs[1:])
			if err != nil {
				return nil, err
			}
			return formatMacro(macro, lit.Str, rest), nil
		}
	}
	var format []string
	var args []*TokenStream
	for _, e := range argExprs {
		if lit, ok := e.Kind.(*ast.Literal); ok && lit.Kind == ast.LitString {
			format = append(format, escapeFormatText(lit.Str))
			continue
		}
		ts, err := t.Transpile(e)
		if err != nil {
			return nil, err
		}
		format = append(format, displayVerb(e))
		args = append(args, ts)
	}
	return formatMacro(macro, strings.Join(format, " "), args), nil
}

// displayVerb picks {:?} for values that have no Display impl in Rust.
func displayVerb(e *ast.Expr) string {
	switch k := e.Kind.(type) {
	case *ast.List, *ast.Tuple, *ast.Object, *ast.Range, *ast.DataFrame:
		return "{:?}"
	case *ast.Literal:
		if k.Kind == ast.LitUnit || k.Kind == ast.LitNull {
			return "{:?}"
		}
	case *ast.MethodCall:
		switch k.Method {
		case "map", "filter", "split", "keys", "values", "find", "first", "last", "get", "pop", "enumerate", "zip", "sort", "reverse", "unique":
			return "{:?}"
		}
	case *ast.Call:
		if id, ok := k.Func.Kind.(*ast.Identifier); ok {
			switch id.Name {
			case "Some", "Ok", "Err", "HashMap", "HashSet", "range":
				return "{:?}"
			}
		}
	}
	return "{}"
}
