package transpiler

import (
	"github.com/ruchy-lang/ruchy/pkg/ruchy/ast"
	perrors "github.com/ruchy-lang/ruchy/pkg/ruchy/errors"
)

// transpilePattern lowers a pattern for let, match, for and parameters.
func (t *Transpiler) transpilePattern(p ast.Pattern) (*TokenStream, error) {
	switch p := p.(type) {
	case nil, ast.WildcardPattern, *ast.WildcardPattern:
		return Tokens("_"), nil
	case *ast.IdentifierPattern:
		if p.IsMutable {
			return Tokens("mut", RustIdent(p.Name)), nil
		}
		return Tokens(RustIdent(p.Name)), nil
	case *ast.LiteralPattern:
		return transpileLiteral(p.Value), nil
	case *ast.TuplePattern:
		elems, err := t.transpilePatterns(p.Elements)
		if err != nil {
			return nil, err
		}
		if len(elems) == 1 {
			return Tokens().Group("(", elems[0].Push(","), ")"), nil
		}
		return Tokens().Group("(", Tokens().Join(",", elems), ")"), nil
	case *ast.RestPattern:
		if p.Name == "" {
			return Tokens(".."), nil
		}
		return Tokens(RustIdent(p.Name), "@", ".."), nil
	case *ast.ListPattern:
		elems, err := t.transpilePatterns(p.Elements)
		if err != nil {
			return nil, err
		}
		return Tokens().Group("[", Tokens().Join(",", elems), "]"), nil
	case *ast.StructPattern:
		fields, err := t.transpileFieldPatterns(p.Fields)
		if err != nil {
			return nil, err
		}
		if p.Rest {
			fields = append(fields, Tokens(".."))
		}
		return Tokens(RustIdent(p.Name)).Group("{", Tokens().Join(",", fields), "}"), nil
	case *ast.ObjectPattern:
		return nil, perrors.Unsupported("object pattern")
	case *ast.RangePattern:
		op := ".."
		if p.Inclusive {
			op = "..="
		}
		return transpileLiteral(p.Start).Push(op).Append(transpileLiteral(p.End)), nil
	case *ast.EnumPattern:
		out := Tokens(RustIdent(p.Name))
		if p.Args == nil {
			return out, nil
		}
		args, err := t.transpilePatterns(p.Args)
		if err != nil {
			return nil, err
		}
		return out.Group("(", Tokens().Join(",", args), ")"), nil
	case *ast.OrPattern:
		alts, err := t.transpilePatterns(p.Alternatives)
		if err != nil {
			return nil, err
		}
		return Tokens().Join("|", alts), nil
	}
	return nil, perrors.Unsupported("pattern " + p.String())
}

func (t *Transpiler) transpilePatterns(ps []ast.Pattern) ([]*TokenStream, error) {
	out := make([]*TokenStream, 0, len(ps))
	for _, p := range ps {
		ts, err := t.transpilePattern(p)
		if err != nil {
			return nil, err
		}
		out = append(out, ts)
	}
	return out, nil
}

func (t *Transpiler) transpileFieldPatterns(fields []ast.FieldPattern) ([]*TokenStream, error) {
	out := make([]*TokenStream, 0, len(fields))
	for _, f := range fields {
		if id, ok := f.Pattern.(*ast.IdentifierPattern); ok && id.Name == f.Key {
			ts, _ := t.transpilePattern(id)
			out = append(out, ts)
			continue
		}
		ts, err := t.transpilePattern(f.Pattern)
		if err != nil {
			return nil, err
		}
		out = append(out, Tokens(RustIdent(f.Key), ":").Append(ts))
	}
	return out, nil
}

// patternHas reports whether any node of p satisfies pred.
func patternHas(p ast.Pattern, pred func(ast.Pattern) bool) bool {
	if p == nil {
		return false
	}
	if pred(p) {
		return true
	}
	var kids []ast.Pattern
	switch p := p.(type) {
	case *ast.TuplePattern:
		kids = p.Elements
	case *ast.ListPattern:
		kids = p.Elements
	case *ast.EnumPattern:
		kids = p.Args
	case *ast.OrPattern:
		kids = p.Alternatives
	case *ast.StructPattern:
		for _, f := range p.Fields {
			kids = append(kids, f.Pattern)
		}
	case *ast.ObjectPattern:
		for _, f := range p.Fields {
			kids = append(kids, f.Pattern)
		}
	}
	for _, k := range kids {
		if patternHas(k, pred) {
			return true
		}
	}
	return false
}

func isStringPattern(p ast.Pattern) bool {
	lp, ok := p.(*ast.LiteralPattern)
	return ok && lp.Value != nil && lp.Value.Kind == ast.LitString
}

func isListPattern(p ast.Pattern) bool {
	_, ok := p.(*ast.ListPattern)
	return ok
}
