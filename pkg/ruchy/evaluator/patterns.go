package evaluator

import (
	"strconv"
	"strings"

	"github.com/ruchy-lang/ruchy/pkg/ruchy/ast"
	perrors "github.com/ruchy-lang/ruchy/pkg/ruchy/errors"
)

// patternBinding is one name a successful match binds.
type patternBinding struct {
	name    string
	value   Value
	mutable bool
}

// matchPattern tests v against p, appending bindings on success. Nothing is
// bound when the match fails part way through; callers discard binds.
func matchPattern(p ast.Pattern, v Value, binds *[]patternBinding) bool {
	switch p := p.(type) {
	case ast.WildcardPattern:
		return true

	case *ast.IdentifierPattern:
		*binds = append(*binds, patternBinding{name: p.Name, value: v, mutable: p.IsMutable})
		return true

	case *ast.RestPattern:
		if p.Name != "" {
			*binds = append(*binds, patternBinding{name: p.Name, value: v})
		}
		return true

	case *ast.LiteralPattern:
		return valuesEqual(literalValue(p.Value), v)

	case *ast.RangePattern:
		return matchRange(p, v)

	case *ast.TuplePattern:
		var elems []Value
		switch t := v.(type) {
		case *Tuple:
			elems = t.Elements
		case *List:
			elems = t.Elements
		default:
			return false
		}
		return matchSequence(p.Elements, elems, binds, func(rest []Value) Value { return &Tuple{Elements: rest} })

	case *ast.ListPattern:
		var elems []Value
		switch l := v.(type) {
		case *List:
			elems = l.Elements
		case *Tuple:
			elems = l.Elements
		default:
			return false
		}
		return matchSequence(p.Elements, elems, binds, func(rest []Value) Value { return &List{Elements: rest} })

	case *ast.ObjectPattern:
		return matchFields(p.Fields, v, binds)

	case *ast.StructPattern:
		obj, ok := v.(*Object)
		if !ok || obj.TypeName != lastPathSegment(p.Name) {
			return false
		}
		return matchFields(p.Fields, obj, binds)

	case *ast.EnumPattern:
		return matchEnum(p, v, binds)

	case *ast.OrPattern:
		for _, alt := range p.Alternatives {
			var trial []patternBinding
			if matchPattern(alt, v, &trial) {
				*binds = append(*binds, trial...)
				return true
			}
		}
		return false
	}
	return false
}

// matchSequence matches element patterns against values, allowing one rest
// element that absorbs the middle.
func matchSequence(patterns []ast.Pattern, elems []Value, binds *[]patternBinding, wrap func([]Value) Value) bool {
	restAt := -1
	for i, p := range patterns {
		if _, ok := p.(*ast.RestPattern); ok {
			restAt = i
			break
		}
	}
	if restAt < 0 {
		if len(patterns) != len(elems) {
			return false
		}
		for i, p := range patterns {
			if !matchPattern(p, elems[i], binds) {
				return false
			}
		}
		return true
	}

	before, after := restAt, len(patterns)-restAt-1
	if len(elems) < before+after {
		return false
	}
	for i := 0; i < before; i++ {
		if !matchPattern(patterns[i], elems[i], binds) {
			return false
		}
	}
	middle := append([]Value(nil), elems[before:len(elems)-after]...)
	if !matchPattern(patterns[restAt], wrap(middle), binds) {
		return false
	}
	for i := 0; i < after; i++ {
		if !matchPattern(patterns[restAt+1+i], elems[len(elems)-after+i], binds) {
			return false
		}
	}
	return true
}

func matchFields(fields []ast.FieldPattern, v Value, binds *[]patternBinding) bool {
	for _, f := range fields {
		var fv Value
		var ok bool
		switch o := v.(type) {
		case *Object:
			fv, ok = o.Get(f.Key)
		case *HashMap:
			fv, ok = o.Get(&String{Value: f.Key})
		}
		if !ok || !matchPattern(f.Pattern, fv, binds) {
			return false
		}
	}
	return true
}

func matchEnum(p *ast.EnumPattern, v Value, binds *[]patternBinding) bool {
	variant := p.VariantName()
	switch ev := v.(type) {
	case *EnumVariant:
		if ev.VariantName != variant {
			return false
		}
		if i := strings.LastIndex(p.Name, "::"); i >= 0 {
			enumName := lastPathSegment(p.Name[:i])
			if enumName != ev.EnumName && enumName != "Self" {
				return false
			}
		}
		if p.Args == nil {
			return true
		}
		if len(p.Args) == 1 && len(ev.Data) > 1 {
			return matchPattern(p.Args[0], &Tuple{Elements: ev.Data}, binds)
		}
		return matchSequence(p.Args, ev.Data, binds, func(rest []Value) Value { return &Tuple{Elements: rest} })

	case *Object:
		// Unit and tuple structs: `Marker` and `Point(x, y)`.
		if ev.TypeName != variant {
			return false
		}
		elems := make([]Value, 0, len(ev.Keys))
		for i := range ev.Keys {
			fv, ok := ev.Fields[strconv.Itoa(i)]
			if !ok {
				return p.Args == nil
			}
			elems = append(elems, fv)
		}
		return matchSequence(p.Args, elems, binds, func(rest []Value) Value { return &Tuple{Elements: rest} })
	}
	return false
}

func matchRange(p *ast.RangePattern, v Value) bool {
	lo, hi := literalValue(p.Start), literalValue(p.End)
	c1, un1, err1 := compareValues("..", lo, v)
	c2, un2, err2 := compareValues("..", v, hi)
	if err1 != nil || err2 != nil || un1 || un2 {
		return false
	}
	if c1 > 0 {
		return false
	}
	if p.Inclusive {
		return c2 <= 0
	}
	return c2 < 0
}

// bindPattern matches and, on success, defines the bindings in env.
func bindPattern(env *Environment, p ast.Pattern, v Value, mutable bool) bool {
	var binds []patternBinding
	if !matchPattern(p, v, &binds) {
		return false
	}
	for _, b := range binds {
		env.Define(b.name, b.value, mutable || b.mutable)
	}
	return true
}

// bindParam binds one function parameter.
func bindParam(env *Environment, param ast.Param, v Value) error {
	if param.Pattern == nil {
		env.Define(param.Name, v, param.IsMutable)
		return nil
	}
	if !bindPattern(env, param.Pattern, v, param.IsMutable) {
		return perrors.PatternBindingMismatch(v.Inspect())
	}
	return nil
}

func literalValue(lit *ast.Literal) Value {
	switch lit.Kind {
	case ast.LitInteger:
		return &Integer{Value: lit.Int}
	case ast.LitFloat:
		return &Float{Value: lit.Float}
	case ast.LitString, ast.LitByteString:
		return &String{Value: lit.Str}
	case ast.LitChar:
		for _, r := range lit.Str {
			return &Char{Value: r}
		}
		return &Char{}
	case ast.LitBool:
		return nativeBoolToBool(lit.Bool)
	case ast.LitNull:
		return NIL
	}
	return UNIT
}

func lastPathSegment(name string) string {
	if i := strings.LastIndex(name, "::"); i >= 0 {
		return name[i+2:]
	}
	return name
}
