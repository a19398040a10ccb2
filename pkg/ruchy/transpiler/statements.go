package transpiler

import (
	"strings"

	"github.com/ruchy-lang/ruchy/pkg/ruchy/ast"
	perrors "github.com/ruchy-lang/ruchy/pkg/ruchy/errors"
)

// TranspileLet lowers a binding. `let x = v in body` becomes a block that
// scopes x to body; bindings that are later reassigned or mutated in place
// are emitted as `let mut`.
func (t *Transpiler) TranspileLet(l *ast.Let) (*TokenStream, error) {
	var (
		pattern, value *TokenStream
		array          bool
		err            error
	)
	if l.Pattern != nil {
		if lp, ok := l.Pattern.(*ast.ListPattern); ok {
			if lit, ok := l.Value.Kind.(*ast.List); ok && lp.RestIndex() < 0 && !hasSpread(lit.Elements) {
				elems, err := t.transpileEach(lit.Elements)
				if err != nil {
					return nil, err
				}
				value = Tokens().Group("[", Tokens().Join(",", elems), "]")
				array = true
			}
		}
		if pattern, err = t.transpilePattern(l.Pattern); err != nil {
			return nil, err
		}
	} else {
		pattern = &TokenStream{}
		if l.IsMutable || t.mutables[l.Name] {
			pattern.Push("mut")
		}
		pattern.Push(RustIdent(l.Name))
	}

	if value == nil {
		if value, err = t.Transpile(l.Value); err != nil {
			return nil, err
		}
		if isListPattern(l.Pattern) {
			value = Tokens().Append(value).Push(".", "as_slice", "(", ")")
		}
	}
	if l.Name != "" && t.isFrameExpr(l.Value) {
		t.frames[l.Name] = true
	}

	out := Tokens("let").Append(pattern)
	if l.TypeAnnotation != "" {
		out.Push(":", MapType(l.TypeAnnotation))
	}
	out.Push("=").Append(value)

	switch {
	case l.ElseBlock != nil:
		elseBody, err := t.blockBody(l.ElseBlock, false)
		if err != nil {
			return nil, err
		}
		out.Push("else").Group("{", elseBody, "}")
	case isListPattern(l.Pattern) && !array:
		out.Push("else", "{", "unreachable!", "(", ")", "}")
	}
	out.Push(";")

	if l.Body == nil {
		return out, nil
	}
	body, err := t.blockBody(l.Body, true)
	if err != nil {
		return nil, err
	}
	return Tokens().Group("{", out.Append(body), "}"), nil
}

func hasSpread(exprs []*ast.Expr) bool {
	for _, e := range exprs {
		if _, ok := e.Kind.(*ast.Spread); ok {
			return true
		}
	}
	return false
}

// blockBody lowers the contents of a braced body without the braces. When
// value is set the last expression stays the block's value.
func (t *Transpiler) blockBody(e *ast.Expr, value bool) (*TokenStream, error) {
	if e == nil {
		return &TokenStream{}, nil
	}
	if b, ok := e.Kind.(*ast.Block); ok {
		return t.transpileStatements(b.Exprs, value)
	}
	return t.transpileStatements([]*ast.Expr{e}, value)
}

// TranspileBlock lowers { a; b; c } keeping c as the value.
func (t *Transpiler) TranspileBlock(b *ast.Block) (*TokenStream, error) {
	body, err := t.transpileStatements(b.Exprs, true)
	if err != nil {
		return nil, err
	}
	return Tokens().Group("{", body, "}"), nil
}

// TranspileIf lowers if/else chains. Rust needs braces on every branch, so
// bare branch expressions are wrapped.
func (t *Transpiler) TranspileIf(i *ast.If) (*TokenStream, error) {
	cond, err := t.Transpile(i.Condition)
	if err != nil {
		return nil, err
	}
	then, err := t.blockBody(i.ThenBranch, true)
	if err != nil {
		return nil, err
	}
	out := Tokens("if").Append(cond).Group("{", then, "}")
	if i.ElseBranch == nil {
		return out, nil
	}
	if _, chained := i.ElseBranch.Kind.(*ast.If); chained {
		next, err := t.Transpile(i.ElseBranch)
		if err != nil {
			return nil, err
		}
		return out.Push("else").Append(next), nil
	}
	els, err := t.blockBody(i.ElseBranch, true)
	if err != nil {
		return nil, err
	}
	return out.Push("else").Group("{", els, "}"), nil
}

func loopLabel(label string) *TokenStream {
	if label == "" {
		return &TokenStream{}
	}
	return Tokens("'"+label, ":")
}

// TranspileWhile lowers a while loop. Loop bodies never yield a value.
func (t *Transpiler) TranspileWhile(w *ast.While) (*TokenStream, error) {
	cond, err := t.Transpile(w.Condition)
	if err != nil {
		return nil, err
	}
	body, err := t.blockBody(w.Body, false)
	if err != nil {
		return nil, err
	}
	return loopLabel(w.Label).Push("while").Append(cond).Group("{", body, "}"), nil
}

// TranspileLoop lowers an infinite loop; break values pass through.
func (t *Transpiler) TranspileLoop(l *ast.Loop) (*TokenStream, error) {
	body, err := t.blockBody(l.Body, false)
	if err != nil {
		return nil, err
	}
	return loopLabel(l.Label).Push("loop").Group("{", body, "}"), nil
}

// TranspileFor lowers a for loop. Named collections are cloned so the loop
// does not move them; refutable patterns become a match per item.
func (t *Transpiler) TranspileFor(f *ast.For) (*TokenStream, error) {
	iter, err := t.Transpile(f.Iter)
	if err != nil {
		return nil, err
	}
	if _, named := f.Iter.Kind.(*ast.Identifier); named {
		iter.Push(".", "clone", "(", ")")
	}
	body, err := t.blockBody(f.Body, false)
	if err != nil {
		return nil, err
	}
	out := loopLabel(f.Label).Push("for")

	if f.Pattern == nil || ast.IsIrrefutable(f.Pattern) {
		var binding *TokenStream
		if f.Pattern != nil {
			if binding, err = t.transpilePattern(f.Pattern); err != nil {
				return nil, err
			}
		} else {
			binding = Tokens(RustIdent(f.Var))
		}
		return out.Append(binding).Push("in").Append(iter).Group("{", body, "}"), nil
	}

	pat, err := t.transpilePattern(f.Pattern)
	if err != nil {
		return nil, err
	}
	arms := Tokens().Append(pat).Push("=>").Group("{", body, "}")
	arms.Push("_", "=>", "{", "}")
	inner := Tokens("match", "__item").Group("{", arms, "}")
	return out.Push("__item", "in").Append(iter).Group("{", inner, "}"), nil
}

// transpileMatch lowers a match. String literal arms match on a &str view
// of the scrutinee and list patterns on a slice; a catch-all arm is added
// when the last arm can fail.
func (t *Transpiler) transpileMatch(m *ast.Match) (*TokenStream, error) {
	scrut, err := t.transpilePostfixOperand(m.Scrutinee)
	if err != nil {
		return nil, err
	}
	var strs, lists bool
	for _, arm := range m.Arms {
		strs = strs || patternHas(arm.Pattern, isStringPattern)
		lists = lists || isListPattern(arm.Pattern)
	}
	switch {
	case strs:
		scrut = Tokens("&", "*").Append(scrut)
	case lists:
		scrut.Push(".", "as_slice", "(", ")")
	}

	arms := &TokenStream{}
	for _, arm := range m.Arms {
		pat, err := t.transpilePattern(arm.Pattern)
		if err != nil {
			return nil, err
		}
		arms.Append(pat)
		if arm.Guard != nil {
			guard, err := t.Transpile(arm.Guard)
			if err != nil {
				return nil, err
			}
			arms.Push("if").Append(guard)
		}
		body, err := t.Transpile(arm.Body)
		if err != nil {
			return nil, err
		}
		arms.Push("=>").Append(body).Push(",")
	}
	if n := len(m.Arms); n == 0 || !ast.IsIrrefutable(m.Arms[n-1].Pattern) || m.Arms[n-1].Guard != nil {
		arms.Push("_", "=>", "unreachable!", "(", ")", ",")
	}
	return Tokens("match").Append(scrut).Group("{", arms, "}"), nil
}

// transpileFunction lowers a named function. name overrides the emitted
// name so a user main can be renamed.
func (t *Transpiler) transpileFunction(fn *ast.Function, attrs []ast.Attribute, name string) (*TokenStream, error) {
	depth := t.tryDepth
	t.tryDepth = 0
	defer func() { t.tryDepth = depth }()

	out := &TokenStream{}
	for _, a := range attrs {
		out.Push(a.String())
	}
	if fn.IsPub && !t.inTraitImpl {
		out.Push("pub")
	}
	if fn.IsAsync {
		out.Push("async")
	}
	out.Push("fn", RustIdent(name))
	if len(fn.TypeParams) > 0 {
		out.Push("<", strings.Join(fn.TypeParams, ", "), ">")
	}

	params := make([]*TokenStream, 0, len(fn.Params))
	for _, p := range fn.Params {
		ts, err := t.transpileParam(p, true, fn.Body, fn.Name)
		if err != nil {
			return nil, err
		}
		params = append(params, ts)
	}
	out.Group("(", Tokens().Join(",", params), ")")

	ret := inferReturnType(fn)
	if ret != "" {
		out.Push("->", ret)
	}
	if fn.Body == nil {
		return out.Push(";"), nil
	}
	body, err := t.blockBody(fn.Body, ret != "")
	if err != nil {
		return nil, err
	}
	return out.Group("{", body, "}"), nil
}

// transpileParam lowers one parameter. Typed positions (functions) get an
// inferred type when the source has none; lambdas leave it to rustc.
func (t *Transpiler) transpileParam(p ast.Param, typed bool, body *ast.Expr, funcName string) (*TokenStream, error) {
	if p.Default != nil {
		return nil, perrors.Unsupported("default value for parameter " + p.Name)
	}
	if p.Name == "self" && p.Type == "" {
		if assignsSelf(body) {
			return Tokens("&", "mut", "self"), nil
		}
		return Tokens("&", "self"), nil
	}

	var out *TokenStream
	if p.Pattern != nil {
		pat, err := t.transpilePattern(p.Pattern)
		if err != nil {
			return nil, err
		}
		out = pat
	} else {
		out = &TokenStream{}
		ty := ""
		if p.Type == "" && typed {
			ty = inferParamType(p.Name, body, funcName)
		}
		if (p.IsMutable || t.mutables[p.Name]) && !strings.HasPrefix(ty, "&") {
			out.Push("mut")
		}
		out.Push(RustIdent(p.Name))
	}

	switch {
	case p.Type != "":
		out.Push(":", MapType(p.Type))
	case typed && p.Pattern == nil:
		out.Push(":", inferParamType(p.Name, body, funcName))
	case typed:
		return nil, perrors.InvalidConstruct("parameter", "destructured parameter %s needs a type annotation", p.Pattern.String())
	}
	return out, nil
}

// assignsSelf reports whether a method body writes through self.
func assignsSelf(body *ast.Expr) bool {
	found := false
	ast.Walk(body, func(e *ast.Expr) bool {
		var target *ast.Expr
		switch k := e.Kind.(type) {
		case *ast.Assign:
			target = k.Target
		case *ast.CompoundAssign:
			target = k.Target
		case *ast.MethodCall:
			if mutatingMethods[k.Method] {
				target = k.Receiver
			}
		}
		if target != nil && rootName(target) == "self" {
			found = true
		}
		return !found
	})
	return found
}

// TranspileTryCatch lowers try/catch/finally. The try body runs in a
// closure returning Result so throw can return Err from it; finally runs
// from a guard's Drop, which also covers early exits.
//
//	{
//	    let __finally = __Finally(|| { ... });
//	    match (|| -> Result<_, Box<dyn std::error::Error>> { Ok({ ... }) })() {
//	        Ok(__value) => __value,
//	        Err(e) => { ... }
//	    }
//	}
func (t *Transpiler) TranspileTryCatch(tc *ast.TryCatch) (*TokenStream, error) {
	t.tryDepth++
	body, err := t.blockBody(tc.Try, true)
	t.tryDepth--
	if err != nil {
		return nil, err
	}

	out := &TokenStream{}
	if tc.Finally != nil {
		fin, err := t.blockBody(tc.Finally, false)
		if err != nil {
			return nil, err
		}
		out.Push("struct", "__Finally", "<", "F", ":", "FnMut", "(", ")", ">", "(", "F", ")", ";")
		out.Push("impl", "<", "F", ":", "FnMut", "(", ")", ">", "Drop", "for", "__Finally", "<", "F", ">")
		out.Push("{", "fn", "drop", "(", "&", "mut", "self", ")", "{", "(", "self", ".", "0", ")", "(", ")", ";", "}", "}")
		out.Push("let", "__finally", "=", "__Finally").Group("(", Tokens("||").Group("{", fin, "}"), ")").Push(";")
	}

	closure := Tokens("||", "->", "Result<_, Box<dyn std::error::Error>>")
	closure.Group("{", Tokens("Ok").Group("(", Tokens().Group("{", body, "}"), ")"), "}")
	call := Tokens().Group("(", closure, ")").Push("(", ")")

	arms := Tokens("Ok", "(", "__value", ")", "=>", "__value", ",")
	if len(tc.Catches) == 0 {
		arms.Push("Err", "(", "e", ")", "=>", "panic!", "(", `"{}"`, ",", "e", ")", ",")
	} else {
		c := tc.Catches[0]
		var binding string
		switch p := c.Pattern.(type) {
		case nil, ast.WildcardPattern:
			binding = "_"
		case *ast.IdentifierPattern:
			binding = RustIdent(p.Name)
		default:
			return nil, perrors.Unsupported("catch pattern " + p.String())
		}
		handler, err := t.blockBody(c.Body, true)
		if err != nil {
			return nil, err
		}
		arms.Push("Err", "(", binding, ")", "=>").Group("{", handler, "}")
	}
	out.Push("match").Append(call).Group("{", arms, "}")
	return Tokens().Group("{", out, "}"), nil
}
