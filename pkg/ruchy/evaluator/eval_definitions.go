package evaluator

import (
	"strconv"
	"strings"

	"github.com/ruchy-lang/ruchy/pkg/ruchy/ast"
	perrors "github.com/ruchy-lang/ruchy/pkg/ruchy/errors"
)

// evalEnumDef defines the enum type and one `Enum::Variant` binding per
// variant: a value for unit variants, a constructor for tuple variants.
func evalEnumDef(node *ast.EnumDef, env *Environment) (Value, error) {
	env.Define(node.Name, &EnumType{Name: node.Name, Variants: node.Variants}, false)
	for _, variant := range node.Variants {
		path := node.Name + "::" + variant.Name
		if len(variant.Fields) == 0 {
			env.Define(path, &EnumVariant{EnumName: node.Name, VariantName: variant.Name}, false)
			continue
		}
		enumName, variantName, arity := node.Name, variant.Name, len(variant.Fields)
		env.Define(path, &Builtin{
			Name: path,
			Fn: func(_ *Environment, args ...Value) (Value, error) {
				if len(args) != arity {
					return nil, perrors.Arity(strconv.Itoa(arity), len(args))
				}
				return &EnumVariant{EnumName: enumName, VariantName: variantName, Data: append([]Value(nil), args...)}, nil
			},
		}, false)
	}
	return UNIT, nil
}

// evalImplBlock registers the block's functions as methods of the type.
// For `impl Trait for Type` the trait's default methods fill the gaps.
func evalImplBlock(node *ast.ImplBlock, env *Environment) (Value, error) {
	typeName := node.TypeName
	if i := strings.IndexByte(typeName, '<'); i >= 0 {
		typeName = typeName[:i]
	}
	methods := env.rt.impls[typeName]
	if methods == nil {
		methods = map[string]Value{}
		env.rt.impls[typeName] = methods
	}

	define := func(exprs []*ast.Expr, override bool) {
		for _, m := range exprs {
			fn, ok := m.Kind.(*ast.Function)
			if !ok || fn.Body == nil {
				continue
			}
			if _, exists := methods[fn.Name]; exists && !override {
				continue
			}
			methods[fn.Name] = &Function{Name: fn.Name, Params: fn.Params, Body: fn.Body, Env: env}
		}
	}
	define(node.Methods, true)
	if trait, ok := env.rt.traits[node.TraitName]; ok {
		define(trait.Methods, false)
	}
	return UNIT, nil
}

// evalModule evaluates the body in its own scope and exposes each binding
// as `module::name`.
func evalModule(node *ast.Module, env *Environment) (Value, error) {
	scope := NewEnclosedEnvironment(env)
	body := node.Body
	if block, ok := body.Kind.(*ast.Block); ok {
		for _, e := range block.Exprs {
			if _, err := Eval(e, scope); err != nil {
				return nil, err
			}
		}
	} else if _, err := Eval(body, scope); err != nil {
		return nil, err
	}
	for _, name := range scope.Names() {
		v, _ := scope.Get(name)
		env.Define(node.Name+"::"+name, v, false)
	}
	return UNIT, nil
}

// evalImport brings names of modules defined in this session into scope.
// Imports of anything else resolve at transpile time and are no-ops here.
func evalImport(node *ast.Import, env *Environment) (Value, error) {
	switch node.Kind {
	case ast.ImportNamed:
		if len(node.Items) == 0 {
			// `import a::b` names a module; its items stay qualified
			return UNIT, nil
		}
		for _, item := range node.Items {
			if item.Name == "*" {
				importAll(env, node.Module, "")
				continue
			}
			if v, ok := env.Get(node.Module + "::" + item.Name); ok {
				alias := item.Alias
				if alias == "" {
					alias = item.Name
				}
				env.Define(alias, v, false)
			}
		}
	case ast.ImportAll:
		importAll(env, node.Module, node.Alias)
	}
	return UNIT, nil
}

func importAll(env *Environment, module, alias string) {
	prefix := module + "::"
	for _, name := range env.AllIdentifiers() {
		rest, ok := strings.CutPrefix(name, prefix)
		if !ok || strings.Contains(rest, "::") {
			continue
		}
		v, _ := env.Get(name)
		if alias != "" {
			rest = alias + "::" + rest
		}
		env.Define(rest, v, false)
	}
}
