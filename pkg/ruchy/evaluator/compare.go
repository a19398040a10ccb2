package evaluator

import (
	"math"
	"strings"

	perrors "github.com/ruchy-lang/ruchy/pkg/ruchy/errors"
)

// isTruthy is false only for false, nil and None.
func isTruthy(v Value) bool {
	switch v := v.(type) {
	case *Bool:
		return v.Value
	case *Nil:
		return false
	case *EnumVariant:
		return !(v.EnumName == "Option" && v.VariantName == "None")
	}
	return true
}

// isAbsent reports whether v counts as missing for ?? and ?.
func isAbsent(v Value) bool {
	switch v := v.(type) {
	case nil, *Nil:
		return true
	case *EnumVariant:
		return v.EnumName == "Option" && v.VariantName == "None"
	}
	return false
}

// hashKey identifies a value inside HashMap and HashSet. Equal values of
// the same kind share a key; 1 and 1.0 do not.
func hashKey(v Value) string {
	if v == nil {
		return "unit:()"
	}
	return string(v.Type()) + ":" + v.Inspect()
}

// valuesEqual is structural equality. Integers and floats compare by
// numeric value; functions compare by identity.
func valuesEqual(a, b Value) bool {
	switch a := a.(type) {
	case *Integer:
		switch b := b.(type) {
		case *Integer:
			return a.Value == b.Value
		case *Float:
			return float64(a.Value) == b.Value
		}
		return false
	case *Float:
		switch b := b.(type) {
		case *Integer:
			return a.Value == float64(b.Value)
		case *Float:
			return a.Value == b.Value
		}
		return false
	case *String:
		b, ok := b.(*String)
		return ok && a.Value == b.Value
	case *Char:
		b, ok := b.(*Char)
		return ok && a.Value == b.Value
	case *Bool:
		b, ok := b.(*Bool)
		return ok && a.Value == b.Value
	case *Unit:
		_, ok := b.(*Unit)
		return ok
	case *Nil:
		_, ok := b.(*Nil)
		return ok
	case *List:
		b, ok := b.(*List)
		return ok && sliceEqual(a.Elements, b.Elements)
	case *Tuple:
		b, ok := b.(*Tuple)
		return ok && sliceEqual(a.Elements, b.Elements)
	case *Range:
		b, ok := b.(*Range)
		return ok && *a == *b
	case *Object:
		b, ok := b.(*Object)
		if !ok || a.TypeName != b.TypeName || len(a.Fields) != len(b.Fields) {
			return false
		}
		for k, av := range a.Fields {
			bv, ok := b.Fields[k]
			if !ok || !valuesEqual(av, bv) {
				return false
			}
		}
		return true
	case *HashMap:
		b, ok := b.(*HashMap)
		if !ok || a.Len() != b.Len() {
			return false
		}
		for i, k := range a.Keys {
			bv, ok := b.Get(k)
			if !ok || !valuesEqual(a.Values[i], bv) {
				return false
			}
		}
		return true
	case *HashSet:
		b, ok := b.(*HashSet)
		if !ok || len(a.Elements) != len(b.Elements) {
			return false
		}
		for _, e := range a.Elements {
			if !b.Contains(e) {
				return false
			}
		}
		return true
	case *EnumVariant:
		b, ok := b.(*EnumVariant)
		return ok && a.EnumName == b.EnumName && a.VariantName == b.VariantName && sliceEqual(a.Data, b.Data)
	case *DataFrame:
		b, ok := b.(*DataFrame)
		if !ok || len(a.Columns) != len(b.Columns) {
			return false
		}
		for i, c := range a.Columns {
			if c.Name != b.Columns[i].Name || !sliceEqual(c.Values, b.Columns[i].Values) {
				return false
			}
		}
		return true
	}
	return a == b
}

func sliceEqual(a, b []Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !valuesEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}

// compareValues orders two values: numbers numerically, strings and chars
// by code point, bools false before true, lists and tuples
// lexicographically. unordered is set when either side is NaN.
func compareValues(op string, a, b Value) (cmp int, unordered bool, err error) {
	if isNumber(a) && isNumber(b) {
		ai, aInt := a.(*Integer)
		bi, bInt := b.(*Integer)
		if aInt && bInt {
			return compareInts(ai.Value, bi.Value), false, nil
		}
		af, _ := toFloat(a)
		bf, _ := toFloat(b)
		if math.IsNaN(af) || math.IsNaN(bf) {
			return 0, true, nil
		}
		switch {
		case af < bf:
			return -1, false, nil
		case af > bf:
			return 1, false, nil
		}
		return 0, false, nil
	}

	switch a := a.(type) {
	case *String:
		if b, ok := b.(*String); ok {
			return strings.Compare(a.Value, b.Value), false, nil
		}
	case *Char:
		if b, ok := b.(*Char); ok {
			return compareInts(int64(a.Value), int64(b.Value)), false, nil
		}
	case *Bool:
		if b, ok := b.(*Bool); ok {
			return compareInts(boolRank(a.Value), boolRank(b.Value)), false, nil
		}
	case *List:
		if b, ok := b.(*List); ok {
			return compareSlices(op, a.Elements, b.Elements)
		}
	case *Tuple:
		if b, ok := b.(*Tuple); ok {
			return compareSlices(op, a.Elements, b.Elements)
		}
	case *Unit:
		if _, ok := b.(*Unit); ok {
			return 0, false, nil
		}
	}
	return 0, false, perrors.TypeMismatch(op, TypeName(a), TypeName(b))
}

func compareSlices(op string, a, b []Value) (int, bool, error) {
	for i := 0; i < len(a) && i < len(b); i++ {
		c, unordered, err := compareValues(op, a[i], b[i])
		if err != nil || unordered || c != 0 {
			return c, unordered, err
		}
	}
	return compareInts(int64(len(a)), int64(len(b))), false, nil
}

func compareInts(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func boolRank(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
