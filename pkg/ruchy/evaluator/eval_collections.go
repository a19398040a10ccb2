package evaluator

import (
	"strconv"

	"github.com/ruchy-lang/ruchy/pkg/ruchy/ast"
	perrors "github.com/ruchy-lang/ruchy/pkg/ruchy/errors"
)

func evalObjectLiteral(fields []ast.ObjectField, env *Environment) (*Object, error) {
	obj := &Object{Fields: map[string]Value{}}
	set := func(k string, v Value) {
		if _, exists := obj.Fields[k]; !exists {
			obj.Keys = append(obj.Keys, k)
		}
		obj.Fields[k] = v
	}
	for _, f := range fields {
		v, err := Eval(f.Value, env)
		if err != nil {
			return nil, err
		}
		if !f.Spread {
			set(f.Key, v)
			continue
		}
		switch src := v.(type) {
		case *Object:
			for _, k := range src.Keys {
				set(k, src.Fields[k])
			}
		case *HashMap:
			for i, k := range src.Keys {
				set(Display(k), src.Values[i])
			}
		default:
			return nil, perrors.Runtime("cannot spread %s into an object", TypeName(v))
		}
	}
	return obj, nil
}

// evalStructLiteral builds a struct instance in declaration order, filling
// omitted fields from `..base` or from field defaults.
func evalStructLiteral(node *ast.StructLiteral, env *Environment) (Value, error) {
	given, err := evalObjectLiteral(node.Fields, env)
	if err != nil {
		return nil, err
	}
	name := lastPathSegment(node.Name)

	v, _ := env.Get(node.Name)
	st, ok := v.(*StructType)
	if !ok {
		given.TypeName = name
		return given, nil
	}

	declared := map[string]bool{}
	obj := &Object{TypeName: st.Name, Fields: map[string]Value{}}
	for _, f := range st.Fields {
		declared[f.Name] = true
		value, ok := given.Fields[f.Name]
		if !ok {
			if f.Default == nil {
				return nil, perrors.Runtime("missing field '%s' in %s", f.Name, st.Name)
			}
			if value, err = Eval(f.Default, st.Env); err != nil {
				return nil, err
			}
		}
		obj.Keys = append(obj.Keys, f.Name)
		obj.Fields[f.Name] = value
	}
	for _, k := range given.Keys {
		if !declared[k] {
			return nil, perrors.FieldNotFound(k)
		}
	}
	return obj, nil
}

// getField reads obj.field. Tuples take numeric fields; `__type` reports
// the struct name of an object.
func getField(obj Value, field string) (Value, error) {
	switch o := obj.(type) {
	case *Object:
		if v, ok := o.Fields[field]; ok {
			return v, nil
		}
		if field == "__type" {
			return &String{Value: TypeName(o)}, nil
		}
	case *Tuple:
		if i, err := strconv.Atoi(field); err == nil {
			if i >= 0 && i < len(o.Elements) {
				return o.Elements[i], nil
			}
			return nil, perrors.IndexOutOfBounds(int64(i), len(o.Elements))
		}
	case *EnumVariant:
		if i, err := strconv.Atoi(field); err == nil && i >= 0 && i < len(o.Data) {
			return o.Data[i], nil
		}
	case *HashMap:
		if v, ok := o.Get(&String{Value: field}); ok {
			return v, nil
		}
	case *DataFrame:
		if col, ok := o.Column(field); ok {
			return &List{Elements: col.Values}, nil
		}
	case *Range:
		switch field {
		case "start":
			return &Integer{Value: o.Start}, nil
		case "end":
			return &Integer{Value: o.End}, nil
		}
	}
	return nil, perrors.FieldNotFound(field)
}

// normalizeIndex maps a possibly negative index onto [0, length).
func normalizeIndex(idx int64, length int) (int, error) {
	i := idx
	if i < 0 {
		i += int64(length)
	}
	if i < 0 || i >= int64(length) {
		return 0, perrors.IndexOutOfBounds(idx, length)
	}
	return int(i), nil
}

func getIndex(obj, idx Value) (Value, error) {
	switch o := obj.(type) {
	case *List:
		if i, ok := idx.(*Integer); ok {
			n, err := normalizeIndex(i.Value, len(o.Elements))
			if err != nil {
				return nil, err
			}
			return o.Elements[n], nil
		}
	case *Tuple:
		if i, ok := idx.(*Integer); ok {
			n, err := normalizeIndex(i.Value, len(o.Elements))
			if err != nil {
				return nil, err
			}
			return o.Elements[n], nil
		}
	case *String:
		if i, ok := idx.(*Integer); ok {
			runes := []rune(o.Value)
			n, err := normalizeIndex(i.Value, len(runes))
			if err != nil {
				return nil, err
			}
			return &String{Value: string(runes[n])}, nil
		}
	case *Range:
		if i, ok := idx.(*Integer); ok {
			length := o.Len()
			if i.Value < 0 || i.Value >= length {
				return nil, perrors.IndexOutOfBounds(i.Value, int(length))
			}
			return &Integer{Value: o.Start + i.Value}, nil
		}
	case *Object:
		if k, ok := idx.(*String); ok {
			if v, ok := o.Fields[k.Value]; ok {
				return v, nil
			}
			return nil, perrors.FieldNotFound(k.Value)
		}
	case *HashMap:
		if v, ok := o.Get(idx); ok {
			return v, nil
		}
		return nil, perrors.FieldNotFound(Display(idx))
	case *DataFrame:
		switch i := idx.(type) {
		case *String:
			if col, ok := o.Column(i.Value); ok {
				return &List{Elements: col.Values}, nil
			}
			return nil, perrors.FieldNotFound(i.Value)
		case *Integer:
			n, err := normalizeIndex(i.Value, o.Rows())
			if err != nil {
				return nil, err
			}
			return dataFrameRow(o, n), nil
		}
	}
	return nil, perrors.TypeMismatch("[]", TypeName(obj), TypeName(idx))
}

// clampBounds resolves optional slice bounds against length. Negative
// bounds count from the end; everything clamps to [0, length].
func clampBounds(start, end Value, inclusive bool, length int) (int, int, error) {
	lo, hi := int64(0), int64(length)
	if start != nil {
		s, ok := start.(*Integer)
		if !ok {
			return 0, 0, perrors.TypeMismatch("[..]", TypeName(start), INTEGER_VAL)
		}
		lo = s.Value
		if lo < 0 {
			lo += int64(length)
		}
	}
	if end != nil {
		e, ok := end.(*Integer)
		if !ok {
			return 0, 0, perrors.TypeMismatch("[..]", TypeName(end), INTEGER_VAL)
		}
		hi = e.Value
		if hi < 0 {
			hi += int64(length)
		}
		if inclusive && hi < int64(length) {
			hi++
		}
	}
	lo = max(0, min(lo, int64(length)))
	hi = max(lo, min(hi, int64(length)))
	return int(lo), int(hi), nil
}

func evalSlice(node *ast.Slice, env *Environment) (Value, error) {
	obj, err := Eval(node.Object, env)
	if err != nil {
		return nil, err
	}
	var start, end Value
	if node.Start != nil {
		if start, err = Eval(node.Start, env); err != nil {
			return nil, err
		}
	}
	if node.End != nil {
		if end, err = Eval(node.End, env); err != nil {
			return nil, err
		}
	}
	return sliceValue(obj, start, end, node.Inclusive)
}

func sliceValue(obj, start, end Value, inclusive bool) (Value, error) {
	switch o := obj.(type) {
	case *List:
		lo, hi, err := clampBounds(start, end, inclusive, len(o.Elements))
		if err != nil {
			return nil, err
		}
		return &List{Elements: append([]Value(nil), o.Elements[lo:hi]...)}, nil
	case *Tuple:
		lo, hi, err := clampBounds(start, end, inclusive, len(o.Elements))
		if err != nil {
			return nil, err
		}
		return &Tuple{Elements: append([]Value(nil), o.Elements[lo:hi]...)}, nil
	case *String:
		runes := []rune(o.Value)
		lo, hi, err := clampBounds(start, end, inclusive, len(runes))
		if err != nil {
			return nil, err
		}
		return &String{Value: string(runes[lo:hi])}, nil
	case *DataFrame:
		lo, hi, err := clampBounds(start, end, inclusive, o.Rows())
		if err != nil {
			return nil, err
		}
		return dataFrameSlice(o, lo, hi-lo), nil
	}
	return nil, perrors.TypeMismatch("[..]", TypeName(obj), RANGE_VAL)
}

// assignTo writes v to the place target names, copying each container on
// the way back up so other references keep their old contents.
func assignTo(target *ast.Expr, v Value, env *Environment) error {
	switch t := target.Kind.(type) {
	case *ast.Identifier:
		return env.Assign(t.Name, v)

	case *ast.FieldAccess:
		container, err := Eval(t.Object, env)
		if err != nil {
			return err
		}
		updated, err := setField(container, t.Field, v)
		if err != nil {
			return err
		}
		return assignTo(t.Object, updated, env)

	case *ast.IndexAccess:
		container, err := Eval(t.Object, env)
		if err != nil {
			return err
		}
		idx, err := Eval(t.Index, env)
		if err != nil {
			return err
		}
		updated, err := setIndex(container, idx, v)
		if err != nil {
			return err
		}
		return assignTo(t.Object, updated, env)
	}
	return perrors.New("PARSE-0010", map[string]any{"Target": target.String()})
}

func setField(container Value, field string, v Value) (Value, error) {
	switch c := container.(type) {
	case *Object:
		if c.TypeName != "" {
			if _, ok := c.Fields[field]; !ok {
				return nil, perrors.FieldNotFound(field)
			}
		}
		return c.With(field, v), nil
	case *Tuple:
		i, err := strconv.Atoi(field)
		if err != nil {
			return nil, perrors.FieldNotFound(field)
		}
		n, err := normalizeIndex(int64(i), len(c.Elements))
		if err != nil {
			return nil, err
		}
		elems := append([]Value(nil), c.Elements...)
		elems[n] = v
		return &Tuple{Elements: elems}, nil
	case *HashMap:
		return c.With(&String{Value: field}, v), nil
	}
	return nil, perrors.FieldNotFound(field)
}

func setIndex(container, idx, v Value) (Value, error) {
	switch c := container.(type) {
	case *List:
		i, ok := idx.(*Integer)
		if !ok {
			return nil, perrors.TypeMismatch("[]=", LIST_VAL, TypeName(idx))
		}
		n, err := normalizeIndex(i.Value, len(c.Elements))
		if err != nil {
			return nil, err
		}
		elems := append([]Value(nil), c.Elements...)
		elems[n] = v
		return &List{Elements: elems}, nil
	case *Object:
		k, ok := idx.(*String)
		if !ok {
			return nil, perrors.TypeMismatch("[]=", OBJECT_VAL, TypeName(idx))
		}
		return setField(c, k.Value, v)
	case *HashMap:
		return c.With(idx, v), nil
	case *Tuple:
		if i, ok := idx.(*Integer); ok {
			return setField(c, strconv.FormatInt(i.Value, 10), v)
		}
	}
	return nil, perrors.TypeMismatch("[]=", TypeName(container), TypeName(idx))
}

func evalCompoundAssign(node *ast.CompoundAssign, env *Environment) (Value, error) {
	current, err := Eval(node.Target, env)
	if err != nil {
		return nil, err
	}
	rhs, err := Eval(node.Value, env)
	if err != nil {
		return nil, err
	}
	updated, err := evalBinaryOp(node.Op, current, rhs)
	if err != nil {
		return nil, err
	}
	return UNIT, assignTo(node.Target, updated, env)
}
