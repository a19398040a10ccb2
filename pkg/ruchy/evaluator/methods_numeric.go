package evaluator

import (
	"math"
	"strconv"

	"github.com/ruchy-lang/ruchy/pkg/ruchy/ast"
	perrors "github.com/ruchy-lang/ruchy/pkg/ruchy/errors"
)

// IntegerMethodRegistry defines all methods available on integer values.
var IntegerMethodRegistry MethodRegistry

// FloatMethodRegistry defines all methods available on float values.
var FloatMethodRegistry MethodRegistry

func init() {
	IntegerMethodRegistry = MethodRegistry{
		"abs":       {Fn: intAbs, Arity: "0", Description: "Absolute value"},
		"pow":       {Fn: intPowMethod, Arity: "1", Description: "Raise to an integer power"},
		"signum":    {Fn: intSignum, Arity: "0", Description: "-1, 0 or 1"},
		"is_even":   {Fn: intIsEven, Arity: "0", Description: "Check divisibility by two"},
		"is_odd":    {Fn: intIsOdd, Arity: "0", Description: "Check for an odd number"},
		"min":       {Fn: numberMin, Arity: "1", Description: "Smaller of two numbers"},
		"max":       {Fn: numberMax, Arity: "1", Description: "Larger of two numbers"},
		"clamp":     {Fn: numberClamp, Arity: "2", Description: "Restrict to [lo, hi]"},
		"sqrt":      {Fn: floatUnary(math.Sqrt), Arity: "0", Description: "Square root as a float"},
		"to_float":  {Fn: numberToFloat, Arity: "0", Description: "Convert to float"},
		"to_int":    {Fn: numberToInt, Arity: "0", Description: "The integer itself"},
		"to_string": {Fn: numberToString, Arity: "0", Description: "Decimal representation"},
	}
	RegisterMethodRegistry(INTEGER_VAL, IntegerMethodRegistry)

	FloatMethodRegistry = MethodRegistry{
		"abs":         {Fn: floatUnary(math.Abs), Arity: "0", Description: "Absolute value"},
		"floor":       {Fn: floatUnary(math.Floor), Arity: "0", Description: "Round down"},
		"ceil":        {Fn: floatUnary(math.Ceil), Arity: "0", Description: "Round up"},
		"round":       {Fn: floatUnary(math.Round), Arity: "0", Description: "Round half away from zero"},
		"trunc":       {Fn: floatUnary(math.Trunc), Arity: "0", Description: "Drop the fractional part"},
		"sqrt":        {Fn: floatUnary(math.Sqrt), Arity: "0", Description: "Square root"},
		"exp":         {Fn: floatUnary(math.Exp), Arity: "0", Description: "e raised to the value"},
		"ln":          {Fn: floatUnary(math.Log), Arity: "0", Description: "Natural logarithm"},
		"log10":       {Fn: floatUnary(math.Log10), Arity: "0", Description: "Base-10 logarithm"},
		"log2":        {Fn: floatUnary(math.Log2), Arity: "0", Description: "Base-2 logarithm"},
		"sin":         {Fn: floatUnary(math.Sin), Arity: "0", Description: "Sine"},
		"cos":         {Fn: floatUnary(math.Cos), Arity: "0", Description: "Cosine"},
		"tan":         {Fn: floatUnary(math.Tan), Arity: "0", Description: "Tangent"},
		"pow":         {Fn: floatPow, Arity: "1", Description: "Raise to a power"},
		"powi":        {Fn: floatPow, Arity: "1", Description: "Raise to an integer power"},
		"powf":        {Fn: floatPow, Arity: "1", Description: "Raise to a float power"},
		"is_nan":      {Fn: floatIs(math.IsNaN), Arity: "0", Description: "Check for NaN"},
		"is_infinite": {Fn: floatIs(func(f float64) bool { return math.IsInf(f, 0) }), Arity: "0", Description: "Check for an infinity"},
		"is_finite":   {Fn: floatIs(func(f float64) bool { return !math.IsInf(f, 0) && !math.IsNaN(f) }), Arity: "0", Description: "Check for a finite number"},
		"min":         {Fn: numberMin, Arity: "1", Description: "Smaller of two numbers"},
		"max":         {Fn: numberMax, Arity: "1", Description: "Larger of two numbers"},
		"clamp":       {Fn: numberClamp, Arity: "2", Description: "Restrict to [lo, hi]"},
		"to_int":      {Fn: numberToInt, Arity: "0", Description: "Truncate to an integer, saturating"},
		"to_float":    {Fn: numberToFloat, Arity: "0", Description: "The float itself"},
		"to_string":   {Fn: numberToString, Arity: "0", Description: "Decimal representation"},
	}
	RegisterMethodRegistry(FLOAT_VAL, FloatMethodRegistry)
}

func intAbs(receiver Value, _ []Value, _ *Environment) (Value, error) {
	n := receiver.(*Integer).Value
	if n < 0 {
		n = -n
	}
	return &Integer{Value: n}, nil
}

func intPowMethod(receiver Value, args []Value, _ *Environment) (Value, error) {
	if !isNumber(args[0]) {
		return nil, perrors.TypeMismatch("pow", INTEGER_VAL, TypeName(args[0]))
	}
	return evalBinaryOp(ast.OpPow, receiver, args[0])
}

func intSignum(receiver Value, _ []Value, _ *Environment) (Value, error) {
	return &Integer{Value: int64(compareInts(receiver.(*Integer).Value, 0))}, nil
}

func intIsEven(receiver Value, _ []Value, _ *Environment) (Value, error) {
	return nativeBoolToBool(receiver.(*Integer).Value%2 == 0), nil
}

func intIsOdd(receiver Value, _ []Value, _ *Environment) (Value, error) {
	return nativeBoolToBool(receiver.(*Integer).Value%2 != 0), nil
}

func floatUnary(fn func(float64) float64) MethodFunc {
	return func(receiver Value, _ []Value, _ *Environment) (Value, error) {
		f, _ := toFloat(receiver)
		return &Float{Value: fn(f)}, nil
	}
}

func floatIs(pred func(float64) bool) MethodFunc {
	return func(receiver Value, _ []Value, _ *Environment) (Value, error) {
		return nativeBoolToBool(pred(receiver.(*Float).Value)), nil
	}
}

func floatPow(receiver Value, args []Value, _ *Environment) (Value, error) {
	exp, ok := toFloat(args[0])
	if !ok {
		return nil, perrors.TypeMismatch("pow", FLOAT_VAL, TypeName(args[0]))
	}
	return &Float{Value: math.Pow(receiver.(*Float).Value, exp)}, nil
}

func numberMin(receiver Value, args []Value, _ *Environment) (Value, error) {
	c, _, err := compareValues("min", args[0], receiver)
	if err != nil {
		return nil, err
	}
	if c < 0 {
		return args[0], nil
	}
	return receiver, nil
}

func numberMax(receiver Value, args []Value, _ *Environment) (Value, error) {
	c, _, err := compareValues("max", args[0], receiver)
	if err != nil {
		return nil, err
	}
	if c > 0 {
		return args[0], nil
	}
	return receiver, nil
}

func numberClamp(receiver Value, args []Value, env *Environment) (Value, error) {
	lo, err := numberMax(receiver, args[:1], env)
	if err != nil {
		return nil, err
	}
	return numberMin(lo, args[1:], env)
}

func numberToFloat(receiver Value, _ []Value, _ *Environment) (Value, error) {
	f, _ := toFloat(receiver)
	return &Float{Value: f}, nil
}

func numberToInt(receiver Value, _ []Value, _ *Environment) (Value, error) {
	if f, ok := receiver.(*Float); ok {
		return &Integer{Value: floatToInt(f.Value)}, nil
	}
	return receiver, nil
}

func numberToString(receiver Value, _ []Value, _ *Environment) (Value, error) {
	if i, ok := receiver.(*Integer); ok {
		return &String{Value: strconv.FormatInt(i.Value, 10)}, nil
	}
	return &String{Value: Display(receiver)}, nil
}

// EnumMethodRegistry defines the Option and Result methods. User enums
// get their methods from impl blocks.
var EnumMethodRegistry MethodRegistry

func init() {
	EnumMethodRegistry = MethodRegistry{
		"is_some":        {Fn: variantIs("Some"), Arity: "0", Description: "Check for Some"},
		"is_none":        {Fn: variantIs("None"), Arity: "0", Description: "Check for None"},
		"is_ok":          {Fn: variantIs("Ok"), Arity: "0", Description: "Check for Ok"},
		"is_err":         {Fn: variantIs("Err"), Arity: "0", Description: "Check for Err"},
		"unwrap":         {Fn: enumUnwrap, Arity: "0", Description: "Inner value of Some or Ok; panics otherwise"},
		"expect":         {Fn: enumExpect, Arity: "1", Description: "Inner value of Some or Ok; panics with a message otherwise"},
		"unwrap_or":      {Fn: enumUnwrapOr, Arity: "1", Description: "Inner value or a default"},
		"unwrap_or_else": {Fn: enumUnwrapOrElse, Arity: "1", Description: "Inner value or the result of a function"},
		"map":            {Fn: enumMap, Arity: "1", Description: "Transform the Some or Ok value"},
		"map_err":        {Fn: enumMapErr, Arity: "1", Description: "Transform the Err value"},
		"and_then":       {Fn: enumAndThen, Arity: "1", Description: "Chain a function returning an Option or Result"},
		"ok":             {Fn: enumOk, Arity: "0", Description: "Convert a Result to an Option"},
		"ok_or":          {Fn: enumOkOr, Arity: "1", Description: "Convert an Option to a Result"},
	}
	RegisterMethodRegistry(ENUM_VAL, EnumMethodRegistry)
}

// present reports whether v carries a usable value: Some or Ok.
func present(v Value) bool {
	return isVariant(v, "Some") || isVariant(v, "Ok")
}

func innerValue(v *EnumVariant) Value {
	if len(v.Data) == 0 {
		return UNIT
	}
	return v.Data[0]
}

func variantIs(name string) MethodFunc {
	return func(receiver Value, _ []Value, _ *Environment) (Value, error) {
		return nativeBoolToBool(isVariant(receiver, name)), nil
	}
}

func enumUnwrap(receiver Value, _ []Value, _ *Environment) (Value, error) {
	ev := receiver.(*EnumVariant)
	if present(ev) {
		return innerValue(ev), nil
	}
	if ev.VariantName == "Err" {
		return nil, &PanicError{Message: "called unwrap on an Err value: " + Display(innerValue(ev))}
	}
	return nil, &PanicError{Message: "called unwrap on a " + ev.VariantName + " value"}
}

func enumExpect(receiver Value, args []Value, _ *Environment) (Value, error) {
	ev := receiver.(*EnumVariant)
	if present(ev) {
		return innerValue(ev), nil
	}
	return nil, &PanicError{Message: Display(args[0])}
}

func enumUnwrapOr(receiver Value, args []Value, _ *Environment) (Value, error) {
	ev := receiver.(*EnumVariant)
	if present(ev) {
		return innerValue(ev), nil
	}
	return args[0], nil
}

func enumUnwrapOrElse(receiver Value, args []Value, env *Environment) (Value, error) {
	ev := receiver.(*EnumVariant)
	if present(ev) {
		return innerValue(ev), nil
	}
	if ev.VariantName == "Err" {
		return callValue(args[0], env, innerValue(ev))
	}
	return callValue(args[0], env)
}

func enumMap(receiver Value, args []Value, env *Environment) (Value, error) {
	ev := receiver.(*EnumVariant)
	if !present(ev) {
		return ev, nil
	}
	v, err := callValue(args[0], env, innerValue(ev))
	if err != nil {
		return nil, err
	}
	return &EnumVariant{EnumName: ev.EnumName, VariantName: ev.VariantName, Data: []Value{v}}, nil
}

func enumMapErr(receiver Value, args []Value, env *Environment) (Value, error) {
	ev := receiver.(*EnumVariant)
	if ev.VariantName != "Err" {
		return ev, nil
	}
	v, err := callValue(args[0], env, innerValue(ev))
	if err != nil {
		return nil, err
	}
	return Err(v), nil
}

func enumAndThen(receiver Value, args []Value, env *Environment) (Value, error) {
	ev := receiver.(*EnumVariant)
	if !present(ev) {
		return ev, nil
	}
	return callValue(args[0], env, innerValue(ev))
}

func enumOk(receiver Value, _ []Value, _ *Environment) (Value, error) {
	ev := receiver.(*EnumVariant)
	if isVariant(ev, "Ok") {
		return Some(innerValue(ev)), nil
	}
	return None, nil
}

func enumOkOr(receiver Value, args []Value, _ *Environment) (Value, error) {
	ev := receiver.(*EnumVariant)
	if isVariant(ev, "Some") {
		return Ok(innerValue(ev)), nil
	}
	return Err(args[0]), nil
}
