package ast

// Syntactic classifiers used by the transpiler to choose return types and
// statement terminators. They never look at bindings or types.

var numericFunctionNames = setOf(
	"add", "subtract", "multiply", "divide", "sum", "product", "min", "max",
	"abs", "sqrt", "pow", "mod", "gcd", "lcm", "factorial", "fibonacci",
	"prime", "even", "odd", "square", "cube", "double", "triple", "quadruple",
	"sin", "cos", "tan", "asin", "acos", "atan", "atan2", "sinh", "cosh",
	"tanh", "asinh", "acosh", "atanh", "exp", "exp2", "ln", "log", "log2",
	"log10", "cbrt", "powf", "powi", "signum", "copysign", "floor", "ceil",
	"round", "trunc", "fract", "clamp", "to_degrees", "to_radians",
)

var voidCallNames = setOf(
	"println", "print", "eprintln", "eprint", "dbg", "debug", "trace", "info",
	"warn", "error", "panic", "assert", "assert_eq", "assert_ne", "todo",
	"unimplemented", "unreachable",
)

var voidMacroNames = setOf("println", "print", "eprintln", "eprint")

func setOf(names ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(names))
	for _, n := range names {
		m[n] = struct{}{}
	}
	return m
}

// LooksLikeNumericFunction reports whether name is one of the well-known
// numeric function names.
func LooksLikeNumericFunction(name string) bool {
	_, ok := numericFunctionNames[name]
	return ok
}

// IsVoidExpression reports whether e syntactically produces no value.
func IsVoidExpression(e *Expr) bool {
	if e == nil {
		return true
	}
	switch k := e.Kind.(type) {
	case *Literal:
		return k.Kind == LitUnit
	case *Assign, *CompoundAssign, *While, *For:
		return true
	case *Return:
		return k.Value == nil
	case *Let:
		return IsVoidExpression(k.Body)
	case *Block:
		if len(k.Exprs) == 0 {
			return true
		}
		return IsVoidExpression(k.Exprs[len(k.Exprs)-1])
	case *If:
		if !IsVoidExpression(k.ThenBranch) {
			return false
		}
		return k.ElseBranch == nil || IsVoidExpression(k.ElseBranch)
	case *Match:
		for _, arm := range k.Arms {
			if !IsVoidExpression(arm.Body) {
				return false
			}
		}
		return true
	case *Call:
		if id, ok := k.Func.Kind.(*Identifier); ok {
			_, void := voidCallNames[id.Name]
			return void
		}
		return false
	case *MacroInvocation:
		_, void := voidMacroNames[k.Name]
		return void
	}
	return false
}

// ReturnsClosure reports whether a function body evaluates to a lambda.
func ReturnsClosure(body *Expr) bool {
	if body == nil {
		return false
	}
	switch k := body.Kind.(type) {
	case *Lambda:
		return true
	case *Block:
		if len(k.Exprs) == 0 {
			return false
		}
		_, ok := k.Exprs[len(k.Exprs)-1].Kind.(*Lambda)
		return ok
	}
	return false
}
