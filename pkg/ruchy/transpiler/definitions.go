package transpiler

import (
	"strconv"
	"strings"

	"github.com/ruchy-lang/ruchy/pkg/ruchy/ast"
	perrors "github.com/ruchy-lang/ruchy/pkg/ruchy/errors"
)

const defaultDerive = "#[derive(Debug, Clone, PartialEq)]"

// attributeTokens emits the item attributes, adding the default derive
// unless the source already chose one.
func attributeTokens(attrs []ast.Attribute, derive bool) *TokenStream {
	out := &TokenStream{}
	hasDerive := false
	for _, a := range attrs {
		if a.Name == "derive" {
			hasDerive = true
		}
		out.Push(a.String())
	}
	if derive && !hasDerive {
		return Tokens(defaultDerive).Append(out)
	}
	return out
}

func typeParams(params []string) *TokenStream {
	if len(params) == 0 {
		return &TokenStream{}
	}
	return Tokens("<", strings.Join(params, ", "), ">")
}

// transpileStruct lowers a struct definition. Field defaults turn into an
// explicit Default impl.
func (t *Transpiler) transpileStruct(s *ast.StructDef, attrs []ast.Attribute) (*TokenStream, error) {
	out := attributeTokens(attrs, true)
	if s.IsPub {
		out.Push("pub")
	}
	out.Push("struct", RustIdent(s.Name)).Append(typeParams(s.TypeParams))

	fields := &TokenStream{}
	hasDefaults := false
	for _, f := range s.Fields {
		if f.IsPub {
			fields.Push("pub")
		}
		ty := MapType(f.Type)
		if ty == "" || ty == "_" {
			return nil, perrors.InvalidConstruct("struct", "field %s.%s needs a concrete type", s.Name, f.Name)
		}
		fields.Push(RustIdent(f.Name), ":", ty, ",")
		hasDefaults = hasDefaults || f.Default != nil
	}
	out.Group("{", fields, "}")
	if !hasDefaults {
		return out, nil
	}

	inits := &TokenStream{}
	for _, f := range s.Fields {
		inits.Push(RustIdent(f.Name), ":")
		if f.Default == nil {
			inits.Push("Default::default", "(", ")", ",")
			continue
		}
		v, err := t.Transpile(f.Default)
		if err != nil {
			return nil, err
		}
		if isStringExpr(f.Default) && MapType(f.Type) == "String" {
			v.Push(".", "to_string", "(", ")")
		}
		inits.Append(v).Push(",")
	}
	body := Tokens("Self").Group("{", inits, "}")
	fn := Tokens("fn", "default", "(", ")", "->", "Self").Group("{", body, "}")
	out.Push("impl", "Default", "for", RustIdent(s.Name)).Group("{", fn, "}")
	return out, nil
}

func (t *Transpiler) transpileEnum(e *ast.EnumDef, attrs []ast.Attribute) (*TokenStream, error) {
	out := attributeTokens(attrs, true)
	if e.IsPub {
		out.Push("pub")
	}
	out.Push("enum", RustIdent(e.Name)).Append(typeParams(e.TypeParams))

	variants := &TokenStream{}
	for _, v := range e.Variants {
		variants.Push(RustIdent(v.Name))
		if len(v.Fields) > 0 {
			types := make([]*TokenStream, len(v.Fields))
			for i, f := range v.Fields {
				types[i] = Tokens(MapType(f))
			}
			variants.Group("(", Tokens().Join(",", types), ")")
		}
		if v.Discriminant != nil {
			variants.Push("=", strconv.FormatInt(*v.Discriminant, 10))
		}
		variants.Push(",")
	}
	return out.Group("{", variants, "}"), nil
}

// transpileTrait lowers a trait. Methods without a body become signatures.
func (t *Transpiler) transpileTrait(tr *ast.TraitDef) (*TokenStream, error) {
	out := &TokenStream{}
	if tr.IsPub {
		out.Push("pub")
	}
	methods, err := t.transpileMethods(tr.Methods, true)
	if err != nil {
		return nil, err
	}
	return out.Push("trait", RustIdent(tr.Name)).Group("{", methods, "}"), nil
}

func (t *Transpiler) transpileImpl(im *ast.ImplBlock) (*TokenStream, error) {
	out := Tokens("impl")
	if im.TraitName != "" {
		out.Push(RustIdent(im.TraitName), "for")
	}
	out.Push(RustIdent(im.TypeName))
	methods, err := t.transpileMethods(im.Methods, im.TraitName != "")
	if err != nil {
		return nil, err
	}
	return out.Group("{", methods, "}"), nil
}

func (t *Transpiler) transpileMethods(methods []*ast.Expr, traitItem bool) (*TokenStream, error) {
	saved := t.inTraitImpl
	t.inTraitImpl = traitItem
	defer func() { t.inTraitImpl = saved }()

	out := &TokenStream{}
	for _, m := range methods {
		fn, ok := m.Kind.(*ast.Function)
		if !ok {
			return nil, perrors.InvalidConstruct("impl", "only functions are allowed in impl and trait bodies, found %s", ast.KindName(m))
		}
		ts, err := t.transpileFunction(fn, m.Attributes, fn.Name)
		if err != nil {
			return nil, err
		}
		out.Append(ts)
	}
	return out, nil
}

// TranspileModule lowers `mod name { ... }`.
func (t *Transpiler) TranspileModule(m *ast.Module) (*TokenStream, error) {
	body, err := t.blockBody(m.Body, false)
	if err != nil {
		return nil, err
	}
	return Tokens("mod", RustIdent(m.Name)).Group("{", body, "}"), nil
}
