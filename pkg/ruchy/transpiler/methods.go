package transpiler

import (
	"github.com/ruchy-lang/ruchy/pkg/ruchy/ast"
	perrors "github.com/ruchy-lang/ruchy/pkg/ruchy/errors"
)

// renamedMethods maps Ruchy method names to the Rust method with the same
// meaning and argument list.
var renamedMethods = map[string]string{
	"upper":      "to_uppercase",
	"to_upper":   "to_uppercase",
	"lower":      "to_lowercase",
	"to_lower":   "to_lowercase",
	"length":     "len",
	"startswith": "starts_with",
	"endswith":   "ends_with",
	"lstrip":     "trim_start",
	"rstrip":     "trim_end",
	"has":        "contains_key",
	"is_empty":   "is_empty",
}

// TranspileMethodCall lowers a method call, rewriting the well-known
// sequence, string and map methods to their idiomatic Rust spelling.
func (t *Transpiler) TranspileMethodCall(m *ast.MethodCall) (*TokenStream, error) {
	recv, err := t.transpilePostfixOperand(m.Receiver)
	if err != nil {
		return nil, err
	}
	args, err := t.transpileEach(m.Args)
	if err != nil {
		return nil, err
	}
	return t.lowerMethod(recv, m.Method, m.Args, args)
}

func (t *Transpiler) lowerMethod(recv *TokenStream, method string, argExprs []*ast.Expr, args []*TokenStream) (*TokenStream, error) {
	joined := Tokens().Join(",", args)
	call := func(name string, a *TokenStream) *TokenStream {
		return recv.Push(".", name).Group("(", a, ")")
	}
	collectVec := func(ts *TokenStream) *TokenStream {
		return ts.Push(".", "collect", "::", "<", "Vec<_>", ">", "(", ")")
	}
	want := func(n int) error {
		if len(args) != n {
			return perrors.InvalidConstruct("method call", "%s expects %d argument(s), got %d", method, n, len(args))
		}
		return nil
	}
	lambdaArg := len(argExprs) == 1 && isLambda(argExprs[0])

	switch method {
	case "map":
		if err := want(1); err != nil {
			return nil, err
		}
		return collectVec(recv.Push(".", "iter", "(", ")", ".", "map").Group("(", joined, ")")), nil
	case "filter":
		if err := want(1); err != nil {
			return nil, err
		}
		wrapped := Tokens("|", "__x", "|").Group("{", Tokens("let", "__f", "=").Append(args[0]).Push(";", "__f", "(", "*", "__x", ")"), "}")
		return collectVec(recv.Push(".", "into_iter", "(", ")", ".", "filter").Group("(", wrapped, ")")), nil
	case "reduce":
		if err := want(1); err != nil {
			return nil, err
		}
		return recv.Push(".", "into_iter", "(", ")", ".", "reduce").Group("(", joined, ")"), nil
	case "fold":
		if err := want(2); err != nil {
			return nil, err
		}
		return recv.Push(".", "into_iter", "(", ")", ".", "fold").Group("(", joined, ")"), nil
	case "any", "all":
		return recv.Push(".", "iter", "(", ")", ".", method).Group("(", joined, ")"), nil
	case "find":
		if lambdaArg {
			return recv.Push(".", "iter", "(", ")", ".", "find").Group("(", joined, ")").Push(".", "cloned", "(", ")"), nil
		}
		return call("find", joined), nil
	case "for_each":
		return recv.Push(".", "iter", "(", ")", ".", "for_each").Group("(", joined, ")"), nil
	case "flat_map":
		return collectVec(recv.Push(".", "into_iter", "(", ")", ".", "flat_map").Group("(", joined, ")")), nil
	case "flatten":
		return collectVec(recv.Push(".", "into_iter", "(", ")", ".", "flatten", "(", ")")), nil
	case "enumerate":
		return collectVec(recv.Push(".", "iter", "(", ")", ".", "cloned", "(", ")", ".", "enumerate", "(", ")")), nil
	case "zip":
		if err := want(1); err != nil {
			return nil, err
		}
		other := Tokens().Group("(", args[0], ")").Push(".", "into_iter", "(", ")")
		return collectVec(recv.Push(".", "iter", "(", ")", ".", "cloned", "(", ")", ".", "zip").Group("(", other, ")")), nil
	case "take", "skip":
		if err := want(1); err != nil {
			return nil, err
		}
		n := Tokens().Group("(", args[0], ")").Push("as", "usize")
		return collectVec(recv.Push(".", "iter", "(", ")", ".", "cloned", "(", ")", ".", method).Group("(", n, ")")), nil
	case "sum":
		return recv.Push(".", "iter", "(", ")", ".", "sum", "::", "<", "i64", ">", "(", ")"), nil
	case "product":
		return recv.Push(".", "iter", "(", ")", ".", "product", "::", "<", "i64", ">", "(", ")"), nil
	case "max", "min":
		if len(args) == 0 {
			return recv.Push(".", "iter", "(", ")", ".", method, "(", ")", ".", "cloned", "(", ")"), nil
		}
		return call(method, joined), nil
	case "first", "last":
		return recv.Push(".", method, "(", ")", ".", "cloned", "(", ")"), nil
	case "get":
		if err := want(1); err != nil {
			return nil, err
		}
		return recv.Push(".", "get").Group("(", borrowed(argExprs[0], args[0]), ")").Push(".", "cloned", "(", ")"), nil
	case "contains", "includes":
		if err := want(1); err != nil {
			return nil, err
		}
		return call("contains", borrowed(argExprs[0], args[0])), nil
	case "contains_key", "has":
		if err := want(1); err != nil {
			return nil, err
		}
		return call("contains_key", borrowed(argExprs[0], args[0])), nil
	case "keys", "values":
		return collectVec(recv.Push(".", method, "(", ")", ".", "cloned", "(", ")")), nil
	case "items":
		pair := Tokens("|", "(", "k", ",", "v", ")", "|", "(", "k", ".", "clone", "(", ")", ",", "v", ".", "clone", "(", ")", ")")
		return collectVec(recv.Push(".", "iter", "(", ")", ".", "map").Group("(", pair, ")")), nil
	case "sort", "reverse", "dedup":
		body := Tokens("let", "mut", "__v", "=").Append(recv).Push(".", "clone", "(", ")", ";")
		body.Push("__v", ".", method, "(", ")", ";", "__v")
		return Tokens().Group("{", body, "}"), nil
	case "unique":
		body := Tokens("let", "mut", "__seen", "=", "std::collections::HashSet", "::", "new", "(", ")", ";")
		keep := Tokens("|", "__x", "|", "__seen", ".", "insert", "(", "__x", ".", "clone", "(", ")", ")")
		iter := recv.Push(".", "into_iter", "(", ")", ".", "filter").Group("(", keep, ")")
		body.Append(collectVec(iter))
		return Tokens().Group("{", body, "}"), nil
	case "join":
		if err := want(1); err != nil {
			return nil, err
		}
		return call("join", Tokens("&").Append(args[0])), nil
	case "split":
		if len(args) == 0 {
			iter := recv.Push(".", "split_whitespace", "(", ")")
			return iter.Push(".", "map", "(", "|", "s", "|", "s", ".", "to_string", "(", ")", ")", ".", "collect", "::", "<", "Vec<String>", ">", "(", ")"), nil
		}
		iter := call("split", joined)
		return iter.Push(".", "map", "(", "|", "s", "|", "s", ".", "to_string", "(", ")", ")", ".", "collect", "::", "<", "Vec<String>", ">", "(", ")"), nil
	case "trim", "strip":
		return recv.Push(".", "trim", "(", ")", ".", "to_string", "(", ")"), nil
	case "chars":
		return recv.Push(".", "chars", "(", ")", ".", "collect", "::", "<", "Vec<char>", ">", "(", ")"), nil
	case "lines":
		return recv.Push(".", "lines", "(", ")", ".", "map", "(", "|", "s", "|", "s", ".", "to_string", "(", ")", ")", ".", "collect", "::", "<", "Vec<String>", ">", "(", ")"), nil
	case "repeat":
		if err := want(1); err != nil {
			return nil, err
		}
		return call("repeat", Tokens().Group("(", args[0], ")").Push("as", "usize")), nil
	case "substring":
		if err := want(2); err != nil {
			return nil, err
		}
		start := Tokens().Group("(", args[0], ")").Push("as", "usize")
		end := Tokens().Group("(", args[1], ")").Push("as", "usize")
		span := Tokens().Group("(", end, ")").Push(".", "saturating_sub").Group("(", start, ")")
		out := recv.Push(".", "chars", "(", ")", ".", "skip").Group("(", start, ")")
		return out.Push(".", "take").Group("(", span, ")").Push(".", "collect", "::", "<", "String", ">", "(", ")"), nil
	case "slice":
		if err := want(2); err != nil {
			return nil, err
		}
		rng := Tokens().Group("(", args[0], ")").Push("as", "usize", "..").Group("(", args[1], ")").Push("as", "usize")
		return recv.Group("[", rng, "]").Push(".", "to_vec", "(", ")"), nil
	case "concat":
		if err := want(1); err != nil {
			return nil, err
		}
		pair := recv.Push(",").Append(args[0])
		return Tokens().Group("[", pair, "]").Push(".", "concat", "(", ")"), nil
	case "to_string", "to_s":
		return recv.Push(".", "to_string", "(", ")"), nil
	case "to_int":
		return recv.Push(".", "parse", "::", "<", "i64", ">", "(", ")", ".", "unwrap", "(", ")"), nil
	case "to_float":
		return recv.Push(".", "parse", "::", "<", "f64", ">", "(", ")", ".", "unwrap", "(", ")"), nil
	case "pow":
		if err := want(1); err != nil {
			return nil, err
		}
		return call("pow", Tokens().Group("(", args[0], ")").Push("as", "u32")), nil
	case "step_by":
		if err := want(1); err != nil {
			return nil, err
		}
		return collectVec(call("step_by", Tokens().Group("(", args[0], ")").Push("as", "usize"))), nil
	}
	if renamed, ok := renamedMethods[method]; ok {
		return call(renamed, joined), nil
	}
	return call(RustIdent(method), joined), nil
}

// borrowed prefixes & for lookups by value; string literals already borrow.
func borrowed(e *ast.Expr, ts *TokenStream) *TokenStream {
	if lit, ok := e.Kind.(*ast.Literal); ok && (lit.Kind == ast.LitString || lit.Kind == ast.LitChar) {
		return ts
	}
	return Tokens("&").Append(ts)
}

func isLambda(e *ast.Expr) bool {
	_, ok := e.Kind.(*ast.Lambda)
	return ok
}

// transpileOptionalMethodCall lowers recv?.m(args) to a map over the option.
func (t *Transpiler) transpileOptionalMethodCall(m *ast.OptionalMethodCall) (*TokenStream, error) {
	recv, err := t.transpilePostfixOperand(m.Receiver)
	if err != nil {
		return nil, err
	}
	args, err := t.transpileEach(m.Args)
	if err != nil {
		return nil, err
	}
	inner, err := t.lowerMethod(Tokens("__v"), m.Method, m.Args, args)
	if err != nil {
		return nil, err
	}
	closure := Tokens("|", "__v", "|").Append(inner)
	return recv.Push(".", "map").Group("(", closure, ")"), nil
}
