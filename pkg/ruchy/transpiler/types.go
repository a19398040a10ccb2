package transpiler

import (
	"strings"
	"unicode"

	"github.com/ruchy-lang/ruchy/pkg/ruchy/ast"
)

var typeNames = map[string]string{
	"int":     "i64",
	"integer": "i64",
	"float":   "f64",
	"bool":    "bool",
	"char":    "char",
	"string":  "String",
	"String":  "String",
	"Any":     "_",
	"any":     "_",
	"unit":    "()",
	"list":    "Vec<i64>",
	"List":    "Vec<i64>",
}

// MapType rewrites a Ruchy type annotation into Rust. Primitive aliases are
// renamed, a bare `str` becomes `&str` and `[T]` becomes `Vec<T>` unless it
// is already borrowed or a fixed-size array.
func MapType(ty string) string {
	ty = strings.TrimSpace(ty)
	if ty == "" {
		return ""
	}
	var out strings.Builder
	var closers []string
	runes := []rune(ty)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case isIdentStart(r):
			j := i
			for j < len(runes) && isIdentRune(runes[j]) {
				j++
			}
			word := string(runes[i:j])
			borrowed := strings.HasSuffix(strings.TrimRight(out.String(), " "), "&")
			switch {
			case word == "str" && !borrowed:
				out.WriteString("&str")
			case typeNames[word] != "":
				out.WriteString(typeNames[word])
			default:
				out.WriteString(word)
			}
			i = j - 1
		case r == '[':
			borrowed := strings.HasSuffix(strings.TrimRight(out.String(), " "), "&")
			if borrowed || bracketHasLength(runes[i+1:]) {
				out.WriteRune('[')
				closers = append(closers, "]")
			} else {
				out.WriteString("Vec<")
				closers = append(closers, ">")
			}
		case r == ']':
			if n := len(closers); n > 0 {
				out.WriteString(closers[n-1])
				closers = closers[:n-1]
			} else {
				out.WriteRune(r)
			}
		default:
			out.WriteRune(r)
		}
	}
	return out.String()
}

// bracketHasLength reports whether the bracket group starting at rs (just
// after '[') is an array type `[T; N]`.
func bracketHasLength(rs []rune) bool {
	depth := 0
	for _, r := range rs {
		switch r {
		case '[', '(', '<':
			depth++
		case ')', '>':
			depth--
		case ']':
			if depth == 0 {
				return false
			}
			depth--
		case ';':
			if depth == 0 {
				return true
			}
		}
	}
	return false
}

func isIdentStart(r rune) bool { return r == '_' || unicode.IsLetter(r) }
func isIdentRune(r rune) bool  { return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) }

// inferParamType picks a Rust type for an unannotated parameter from the
// way the function body uses it.
func inferParamType(name string, body *ast.Expr, funcName string) string {
	u := scanUsage(name, body)
	switch {
	case u.called:
		return "impl Fn(i64) -> i64"
	case u.condition:
		return "bool"
	case u.indexed, u.iterated, u.measured:
		return "&Vec<i64>"
	case u.numeric || ast.LooksLikeNumericFunction(funcName):
		return "i64"
	case u.stringy:
		return "&str"
	}
	return "i64"
}

type paramUsage struct {
	called, condition, indexed, iterated, measured, numeric, stringy bool
}

func scanUsage(name string, body *ast.Expr) paramUsage {
	var u paramUsage
	isName := func(e *ast.Expr) bool {
		id, ok := e.Kind.(*ast.Identifier)
		return ok && id.Name == name
	}
	ast.Walk(body, func(e *ast.Expr) bool {
		switch k := e.Kind.(type) {
		case *ast.Call:
			if isName(k.Func) {
				u.called = true
			}
			if id, ok := k.Func.Kind.(*ast.Identifier); ok && id.Name == "len" && len(k.Args) == 1 && isName(k.Args[0]) {
				u.measured = true
			}
		case *ast.If:
			if isName(k.Condition) {
				u.condition = true
			}
		case *ast.While:
			if isName(k.Condition) {
				u.condition = true
			}
		case *ast.Unary:
			if k.Op == ast.OpNot && isName(k.Operand) {
				u.condition = true
			}
			if k.Op == ast.OpNeg && isName(k.Operand) {
				u.numeric = true
			}
		case *ast.IndexAccess:
			if isName(k.Object) {
				u.indexed = true
			}
		case *ast.Slice:
			if isName(k.Object) {
				u.indexed = true
			}
		case *ast.For:
			if isName(k.Iter) {
				u.iterated = true
			}
		case *ast.MethodCall:
			if isName(k.Receiver) {
				switch k.Method {
				case "len", "length", "iter", "map", "filter", "reduce", "sum", "first", "last":
					u.measured = true
				case "upper", "lower", "to_uppercase", "to_lowercase", "trim", "chars", "split", "starts_with", "ends_with":
					u.stringy = true
				}
			}
		case *ast.Binary:
			involved := isName(k.Left) || isName(k.Right)
			if !involved {
				break
			}
			switch k.Op {
			case ast.OpAnd, ast.OpOr:
				u.condition = true
			case ast.OpAdd:
				if isStringExpr(k.Left) || isStringExpr(k.Right) {
					u.stringy = true
				} else {
					u.numeric = true
				}
			case ast.OpSub, ast.OpMul, ast.OpDiv, ast.OpMod, ast.OpPow, ast.OpLt, ast.OpLe, ast.OpGt, ast.OpGe:
				u.numeric = true
			}
		case *ast.StringInterpolation:
			for _, p := range k.Parts {
				if p.Expr != nil && isName(p.Expr) {
					u.stringy = true
				}
			}
		}
		return true
	})
	return u
}

func isStringExpr(e *ast.Expr) bool {
	switch k := e.Kind.(type) {
	case *ast.Literal:
		return k.Kind == ast.LitString
	case *ast.StringInterpolation:
		return true
	}
	return false
}

// inferReturnType picks the `-> T` of a function without an annotation.
// An empty result means the function returns unit.
func inferReturnType(fn *ast.Function) string {
	if fn.ReturnType != "" {
		return MapType(fn.ReturnType)
	}
	if fn.Name == "main" || ast.IsVoidExpression(fn.Body) {
		return ""
	}
	if ast.ReturnsClosure(fn.Body) {
		return "impl Fn(i64) -> i64"
	}
	if ast.LooksLikeNumericFunction(fn.Name) {
		return "i64"
	}
	last := tailExpr(fn.Body)
	if last == nil {
		return ""
	}
	if ty := literalType(last); ty != "" {
		return ty
	}
	return "i64"
}

// tailExpr returns the expression that produces a body's value.
func tailExpr(body *ast.Expr) *ast.Expr {
	for body != nil {
		switch k := body.Kind.(type) {
		case *ast.Block:
			if len(k.Exprs) == 0 {
				return nil
			}
			body = k.Exprs[len(k.Exprs)-1]
		case *ast.Let:
			if k.Body == nil {
				return nil
			}
			body = k.Body
		case *ast.If:
			if t := tailExpr(k.ThenBranch); t != nil {
				return t
			}
			return tailExpr(k.ElseBranch)
		default:
			return body
		}
	}
	return nil
}

func literalType(e *ast.Expr) string {
	switch k := e.Kind.(type) {
	case *ast.Literal:
		switch k.Kind {
		case ast.LitFloat:
			return "f64"
		case ast.LitString:
			return "&'static str"
		case ast.LitBool:
			return "bool"
		case ast.LitChar:
			return "char"
		}
	case *ast.StringInterpolation:
		return "String"
	case *ast.Binary:
		if k.Op.IsComparison() || k.Op == ast.OpAnd || k.Op == ast.OpOr {
			return "bool"
		}
		if ty := literalType(k.Left); ty == "f64" {
			return ty
		}
		if ty := literalType(k.Right); ty == "f64" {
			return ty
		}
	case *ast.Unary:
		if k.Op == ast.OpNot {
			return "bool"
		}
	case *ast.List:
		return "Vec<i64>"
	case *ast.MacroInvocation:
		switch k.Name {
		case "format":
			return "String"
		case "vec":
			return "Vec<i64>"
		}
	case *ast.MethodCall:
		switch k.Method {
		case "to_string", "upper", "lower", "to_uppercase", "to_lowercase", "trim", "repeat", "replace":
			return "String"
		case "len", "length", "count":
			return "usize"
		}
	}
	return ""
}
