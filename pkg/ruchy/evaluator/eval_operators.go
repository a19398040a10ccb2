package evaluator

import (
	"math"
	"strings"

	"github.com/ruchy-lang/ruchy/pkg/ruchy/ast"
	perrors "github.com/ruchy-lang/ruchy/pkg/ruchy/errors"
)

// evalBinaryOp applies a non-short-circuit operator to evaluated operands.
func evalBinaryOp(op ast.BinaryOp, left, right Value) (Value, error) {
	switch op {
	case ast.OpEq:
		return nativeBoolToBool(valuesEqual(left, right)), nil
	case ast.OpNe:
		return nativeBoolToBool(!valuesEqual(left, right)), nil
	case ast.OpLt, ast.OpLe, ast.OpGt, ast.OpGe:
		return evalOrdering(op, left, right)
	}

	switch l := left.(type) {
	case *Integer:
		switch r := right.(type) {
		case *Integer:
			return evalIntegerOp(op, l.Value, r.Value)
		case *Float:
			return evalFloatOp(op, float64(l.Value), r.Value)
		}
	case *Float:
		if rf, ok := toFloat(right); ok {
			return evalFloatOp(op, l.Value, rf)
		}
	case *String:
		return evalStringOp(op, l, right)
	case *Char:
		if r, ok := right.(*String); ok && op == ast.OpAdd {
			return &String{Value: string(l.Value) + r.Value}, nil
		}
		if r, ok := right.(*Char); ok && op == ast.OpAdd {
			return &String{Value: string(l.Value) + string(r.Value)}, nil
		}
	case *Bool:
		if r, ok := right.(*Bool); ok {
			switch op {
			case ast.OpBitAnd:
				return nativeBoolToBool(l.Value && r.Value), nil
			case ast.OpBitOr:
				return nativeBoolToBool(l.Value || r.Value), nil
			case ast.OpBitXor:
				return nativeBoolToBool(l.Value != r.Value), nil
			}
		}
	case *List:
		switch r := right.(type) {
		case *List:
			if op == ast.OpAdd {
				out := make([]Value, 0, len(l.Elements)+len(r.Elements))
				out = append(out, l.Elements...)
				return &List{Elements: append(out, r.Elements...)}, nil
			}
		case *Integer:
			if op == ast.OpMul {
				if r.Value < 0 {
					return nil, perrors.Runtime("cannot repeat a list a negative number of times")
				}
				var out []Value
				for i := int64(0); i < r.Value; i++ {
					out = append(out, l.Elements...)
				}
				return &List{Elements: out}, nil
			}
		}
	case *HashSet:
		if r, ok := right.(*HashSet); ok {
			return evalSetOp(op, l, r)
		}
	}
	return nil, perrors.TypeMismatch(op.String(), TypeName(left), TypeName(right))
}

func evalOrdering(op ast.BinaryOp, left, right Value) (Value, error) {
	cmp, unordered, err := compareValues(op.String(), left, right)
	if err != nil {
		return nil, err
	}
	if unordered {
		return FALSE, nil
	}
	switch op {
	case ast.OpLt:
		return nativeBoolToBool(cmp < 0), nil
	case ast.OpLe:
		return nativeBoolToBool(cmp <= 0), nil
	case ast.OpGt:
		return nativeBoolToBool(cmp > 0), nil
	}
	return nativeBoolToBool(cmp >= 0), nil
}

// evalIntegerOp implements two's-complement wrapping arithmetic.
func evalIntegerOp(op ast.BinaryOp, l, r int64) (Value, error) {
	switch op {
	case ast.OpAdd:
		return &Integer{Value: l + r}, nil
	case ast.OpSub:
		return &Integer{Value: l - r}, nil
	case ast.OpMul:
		return &Integer{Value: l * r}, nil
	case ast.OpDiv:
		if r == 0 {
			return nil, perrors.DivisionByZero()
		}
		return &Integer{Value: l / r}, nil
	case ast.OpMod:
		if r == 0 {
			return nil, perrors.DivisionByZero()
		}
		return &Integer{Value: l % r}, nil
	case ast.OpPow:
		if r < 0 {
			return &Float{Value: math.Pow(float64(l), float64(r))}, nil
		}
		return &Integer{Value: intPow(l, r)}, nil
	case ast.OpBitAnd:
		return &Integer{Value: l & r}, nil
	case ast.OpBitOr:
		return &Integer{Value: l | r}, nil
	case ast.OpBitXor:
		return &Integer{Value: l ^ r}, nil
	case ast.OpShl, ast.OpShr:
		if r < 0 {
			return nil, perrors.Runtime("negative shift amount: %d", r)
		}
		if op == ast.OpShl {
			return &Integer{Value: l << uint(r&63)}, nil
		}
		return &Integer{Value: l >> uint(r&63)}, nil
	}
	return nil, perrors.TypeMismatch(op.String(), INTEGER_VAL, INTEGER_VAL)
}

// intPow raises base to a non-negative exponent with wrapping.
func intPow(base, exp int64) int64 {
	result := int64(1)
	for exp > 0 {
		if exp&1 == 1 {
			result *= base
		}
		base *= base
		exp >>= 1
	}
	return result
}

// evalFloatOp follows IEEE 754: division by zero yields an infinity or NaN.
func evalFloatOp(op ast.BinaryOp, l, r float64) (Value, error) {
	switch op {
	case ast.OpAdd:
		return &Float{Value: l + r}, nil
	case ast.OpSub:
		return &Float{Value: l - r}, nil
	case ast.OpMul:
		return &Float{Value: l * r}, nil
	case ast.OpDiv:
		return &Float{Value: l / r}, nil
	case ast.OpMod:
		return &Float{Value: math.Mod(l, r)}, nil
	case ast.OpPow:
		return &Float{Value: math.Pow(l, r)}, nil
	}
	return nil, perrors.TypeMismatch(op.String(), FLOAT_VAL, FLOAT_VAL)
}

func evalStringOp(op ast.BinaryOp, l *String, right Value) (Value, error) {
	switch r := right.(type) {
	case *String:
		if op == ast.OpAdd {
			return &String{Value: l.Value + r.Value}, nil
		}
	case *Char:
		if op == ast.OpAdd {
			return &String{Value: l.Value + string(r.Value)}, nil
		}
	case *Integer:
		if op == ast.OpMul {
			if r.Value < 0 {
				return nil, perrors.Runtime("cannot repeat a string a negative number of times")
			}
			return &String{Value: strings.Repeat(l.Value, int(r.Value))}, nil
		}
	}
	return nil, perrors.TypeMismatch(op.String(), STRING_VAL, TypeName(right))
}

func evalSetOp(op ast.BinaryOp, l, r *HashSet) (Value, error) {
	switch op {
	case ast.OpBitOr:
		out := NewHashSet(l.Elements...)
		for _, e := range r.Elements {
			out.add(e)
		}
		return out, nil
	case ast.OpBitAnd:
		out := NewHashSet()
		for _, e := range l.Elements {
			if r.Contains(e) {
				out.add(e)
			}
		}
		return out, nil
	case ast.OpSub:
		out := NewHashSet()
		for _, e := range l.Elements {
			if !r.Contains(e) {
				out.add(e)
			}
		}
		return out, nil
	}
	return nil, perrors.TypeMismatch(op.String(), HASHSET_VAL, HASHSET_VAL)
}

func evalUnaryOp(op ast.UnaryOp, operand Value) (Value, error) {
	switch op {
	case ast.OpNeg:
		switch v := operand.(type) {
		case *Integer:
			return &Integer{Value: -v.Value}, nil
		case *Float:
			return &Float{Value: -v.Value}, nil
		}
	case ast.OpNot:
		if b, ok := operand.(*Bool); ok {
			return nativeBoolToBool(!b.Value), nil
		}
	case ast.OpBitNot:
		if i, ok := operand.(*Integer); ok {
			return &Integer{Value: ^i.Value}, nil
		}
	case ast.OpRef, ast.OpDeref:
		return operand, nil
	}
	return nil, perrors.UnaryTypeMismatch(op.String(), TypeName(operand))
}

// evalCast converts between the scalar kinds for `expr as Type`.
func evalCast(v Value, target string) (Value, error) {
	switch target {
	case "i8", "i16", "i32", "i64", "i128", "isize", "u8", "u16", "u32", "u64", "u128", "usize", "int":
		switch v := v.(type) {
		case *Integer:
			return v, nil
		case *Float:
			return &Integer{Value: floatToInt(v.Value)}, nil
		case *Bool:
			return &Integer{Value: boolRank(v.Value)}, nil
		case *Char:
			return &Integer{Value: int64(v.Value)}, nil
		}
	case "f32", "f64", "float":
		if f, ok := toFloat(v); ok {
			return &Float{Value: f}, nil
		}
	case "char":
		if i, ok := v.(*Integer); ok {
			return &Char{Value: rune(i.Value)}, nil
		}
		if c, ok := v.(*Char); ok {
			return c, nil
		}
	case "String", "str", "&str":
		return &String{Value: Display(v)}, nil
	case "bool":
		if b, ok := v.(*Bool); ok {
			return b, nil
		}
	default:
		return v, nil
	}
	return nil, perrors.Runtime("cannot cast %s to %s", TypeName(v), target)
}

// floatToInt saturates like a Rust `as` cast; NaN becomes 0.
func floatToInt(f float64) int64 {
	switch {
	case math.IsNaN(f):
		return 0
	case f >= math.MaxInt64:
		return math.MaxInt64
	case f <= math.MinInt64:
		return math.MinInt64
	}
	return int64(f)
}
