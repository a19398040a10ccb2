package evaluator

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	perrors "github.com/ruchy-lang/ruchy/pkg/ruchy/errors"
)

// builtins holds the global functions, looked up after user bindings.
// Filled in init() because several builtins call back into the evaluator.
var builtins map[string]*Builtin

// preludeValues are non-function globals such as None.
var preludeValues = map[string]Value{
	"None":         None,
	"Option::None": None,
}

func init() {
	builtins = map[string]*Builtin{}
	register := func(fn BuiltinFunction, names ...string) {
		for _, name := range names {
			builtins[name] = &Builtin{Name: name, Fn: fn}
		}
	}

	register(builtinPrintln, "println")
	register(builtinPrint, "print")
	register(builtinEprintln, "eprintln")
	register(builtinFormat, "format")
	register(builtinDbg, "dbg")
	register(builtinPanic, "panic")
	register(builtinLen, "len")
	register(builtinType, "type", "type_of")
	register(builtinInt, "int")
	register(builtinFloat, "float")
	register(builtinBool, "bool")
	register(builtinStr, "str", "to_string")
	register(builtinRange, "range")
	register(builtinNow, "now")
	register(builtinSleep, "sleep")
	register(builtinAssert, "assert")
	register(builtinAssertEq, "assert_eq")
	register(builtinAssertNe, "assert_ne")

	register(builtinAbs, "abs")
	register(builtinMin, "min")
	register(builtinMax, "max")
	register(builtinPow, "pow")
	register(mathFunc("sqrt", math.Sqrt), "sqrt")
	register(mathFunc("floor", math.Floor), "floor")
	register(mathFunc("ceil", math.Ceil), "ceil")
	register(mathFunc("round", math.Round), "round")
	register(mathFunc("sin", math.Sin), "sin")
	register(mathFunc("cos", math.Cos), "cos")
	register(mathFunc("tan", math.Tan), "tan")
	register(mathFunc("log", math.Log), "log", "ln")
	register(mathFunc("log10", math.Log10), "log10")
	register(mathFunc("exp", math.Exp), "exp")

	register(wrapVariant(Some), "Some", "Option::Some")
	register(wrapVariant(Ok), "Ok", "Result::Ok")
	register(wrapVariant(Err), "Err", "Result::Err")
	register(builtinHashMap, "HashMap", "HashMap::new")
	register(builtinHashSet, "HashSet", "HashSet::new")
	register(builtinCollect, "list", "collect")

	register(builtinDataFrameNew, "DataFrame::new", "DataFrame")
	register(readSQL, "read_sql")
	register(frameFunc("select"), "select")
	register(frameFunc("filter"), "filter")
	register(frameFunc("groupby"), "groupby", "group_by")
	register(frameFunc("join"), "join")
	register(frameFunc("slice"), "slice")
	register(builtinSum, "sum")
}

func exactArgs(args []Value, n int) error {
	if len(args) != n {
		return perrors.Arity(strconv.Itoa(n), len(args))
	}
	return nil
}

func builtinPrintln(env *Environment, args ...Value) (Value, error) {
	text, err := formatArgs(args, env)
	if err != nil {
		return nil, err
	}
	env.rt.logger.LogLine(text)
	return UNIT, nil
}

func builtinPrint(env *Environment, args ...Value) (Value, error) {
	text, err := formatArgs(args, env)
	if err != nil {
		return nil, err
	}
	env.rt.logger.Log(text)
	return UNIT, nil
}

func builtinEprintln(env *Environment, args ...Value) (Value, error) {
	text, err := formatArgs(args, env)
	if err != nil {
		return nil, err
	}
	fmt.Fprintln(env.rt.stderr, text)
	return UNIT, nil
}

func builtinFormat(env *Environment, args ...Value) (Value, error) {
	text, err := formatArgs(args, env)
	if err != nil {
		return nil, err
	}
	return &String{Value: text}, nil
}

func builtinDbg(env *Environment, args ...Value) (Value, error) {
	if err := exactArgs(args, 1); err != nil {
		return nil, err
	}
	fmt.Fprintf(env.rt.stderr, "[dbg] %s\n", args[0].Inspect())
	return args[0], nil
}

func builtinPanic(env *Environment, args ...Value) (Value, error) {
	text, err := formatArgs(args, env)
	if err != nil {
		return nil, err
	}
	if text == "" {
		text = "explicit panic"
	}
	return nil, &PanicError{Message: text}
}

func builtinLen(_ *Environment, args ...Value) (Value, error) {
	if err := exactArgs(args, 1); err != nil {
		return nil, err
	}
	var n int64
	switch v := args[0].(type) {
	case *String:
		n = int64(len([]rune(v.Value)))
	case *List:
		n = int64(len(v.Elements))
	case *Tuple:
		n = int64(len(v.Elements))
	case *Object:
		n = int64(len(v.Keys))
	case *HashMap:
		n = int64(v.Len())
	case *HashSet:
		n = int64(len(v.Elements))
	case *Range:
		n = v.Len()
	case *DataFrame:
		n = int64(v.Rows())
	default:
		return nil, perrors.Runtime("len() is not defined for %s", TypeName(v))
	}
	return &Integer{Value: n}, nil
}

func builtinType(_ *Environment, args ...Value) (Value, error) {
	if err := exactArgs(args, 1); err != nil {
		return nil, err
	}
	return &String{Value: TypeName(args[0])}, nil
}

func builtinInt(env *Environment, args ...Value) (Value, error) {
	if err := exactArgs(args, 1); err != nil {
		return nil, err
	}
	switch v := args[0].(type) {
	case *String:
		return stringToInt(v, nil, env)
	case *Bool:
		if v.Value {
			return &Integer{Value: 1}, nil
		}
		return &Integer{Value: 0}, nil
	}
	return evalCast(args[0], "i64")
}

func builtinFloat(env *Environment, args ...Value) (Value, error) {
	if err := exactArgs(args, 1); err != nil {
		return nil, err
	}
	if s, ok := args[0].(*String); ok {
		return stringToFloat(s, nil, env)
	}
	return evalCast(args[0], "f64")
}

func builtinBool(_ *Environment, args ...Value) (Value, error) {
	if err := exactArgs(args, 1); err != nil {
		return nil, err
	}
	switch v := args[0].(type) {
	case *Integer:
		return nativeBoolToBool(v.Value != 0), nil
	case *String:
		return nativeBoolToBool(v.Value != ""), nil
	}
	return nativeBoolToBool(isTruthy(args[0])), nil
}

func builtinStr(_ *Environment, args ...Value) (Value, error) {
	if err := exactArgs(args, 1); err != nil {
		return nil, err
	}
	return &String{Value: Display(args[0])}, nil
}

// builtinRange is range(end), range(start, end) or range(start, end, step).
// A step other than 1 produces a list.
func builtinRange(_ *Environment, args ...Value) (Value, error) {
	if len(args) < 1 || len(args) > 3 {
		return nil, perrors.Arity("1 to 3", len(args))
	}
	bounds := make([]int64, len(args))
	for i := range args {
		n, err := intArg(args, i, "range")
		if err != nil {
			return nil, err
		}
		bounds[i] = n
	}
	if len(bounds) == 1 {
		return &Range{Start: 0, End: bounds[0]}, nil
	}
	start, end := bounds[0], bounds[1]
	if len(bounds) == 2 || bounds[2] == 1 {
		return &Range{Start: start, End: end}, nil
	}
	step := bounds[2]
	if step == 0 {
		return nil, perrors.Runtime("range step must not be zero")
	}
	out := []Value{}
	for i := start; (step > 0 && i < end) || (step < 0 && i > end); i += step {
		if len(out) >= maxMaterializedRange {
			return nil, perrors.Runtime("range is too large to collect")
		}
		out = append(out, &Integer{Value: i})
	}
	return &List{Elements: out}, nil
}

// builtinNow returns milliseconds since the Unix epoch.
func builtinNow(_ *Environment, args ...Value) (Value, error) {
	if err := exactArgs(args, 0); err != nil {
		return nil, err
	}
	return &Integer{Value: time.Now().UnixMilli()}, nil
}

// builtinSleep blocks for the given milliseconds or until the host context
// is cancelled.
func builtinSleep(env *Environment, args ...Value) (Value, error) {
	if err := exactArgs(args, 1); err != nil {
		return nil, err
	}
	ms, ok := toFloat(args[0])
	if !ok || ms < 0 {
		return nil, perrors.Runtime("sleep() needs a non-negative number of milliseconds, got %s", args[0].Inspect())
	}
	timer := time.NewTimer(time.Duration(ms * float64(time.Millisecond)))
	defer timer.Stop()
	select {
	case <-timer.C:
		return UNIT, nil
	case <-env.rt.ctx.Done():
		return nil, perrors.Timeout()
	}
}

func assertMessage(env *Environment, args []Value, fallback string) (string, error) {
	if len(args) == 0 {
		return fallback, nil
	}
	return formatArgs(args, env)
}

func builtinAssert(env *Environment, args ...Value) (Value, error) {
	if len(args) == 0 {
		return nil, perrors.Arity("at least 1", 0)
	}
	if isTruthy(args[0]) {
		return UNIT, nil
	}
	msg, err := assertMessage(env, args[1:], "assertion failed")
	if err != nil {
		return nil, err
	}
	return nil, &PanicError{Message: msg}
}

func builtinAssertEq(env *Environment, args ...Value) (Value, error) {
	if len(args) < 2 {
		return nil, perrors.Arity("at least 2", len(args))
	}
	if valuesEqual(args[0], args[1]) {
		return UNIT, nil
	}
	msg, err := assertMessage(env, args[2:], fmt.Sprintf("assertion failed: left == right (left: %s, right: %s)", args[0].Inspect(), args[1].Inspect()))
	if err != nil {
		return nil, err
	}
	return nil, &PanicError{Message: msg}
}

func builtinAssertNe(env *Environment, args ...Value) (Value, error) {
	if len(args) < 2 {
		return nil, perrors.Arity("at least 2", len(args))
	}
	if !valuesEqual(args[0], args[1]) {
		return UNIT, nil
	}
	msg, err := assertMessage(env, args[2:], fmt.Sprintf("assertion failed: left != right (both: %s)", args[0].Inspect()))
	if err != nil {
		return nil, err
	}
	return nil, &PanicError{Message: msg}
}

func builtinAbs(_ *Environment, args ...Value) (Value, error) {
	if err := exactArgs(args, 1); err != nil {
		return nil, err
	}
	switch v := args[0].(type) {
	case *Integer:
		return intAbs(v, nil, nil)
	case *Float:
		return &Float{Value: math.Abs(v.Value)}, nil
	}
	return nil, perrors.UnaryTypeMismatch("abs", TypeName(args[0]))
}

// extremeOf implements min and max over either several arguments or a
// single sequence.
func extremeOf(name string, want int, args []Value) (Value, error) {
	items := args
	if len(args) == 1 {
		var err error
		if items, err = iterableValues(args[0]); err != nil {
			return nil, err
		}
	}
	if len(items) == 0 {
		return nil, perrors.Runtime("%s() of an empty sequence", name)
	}
	best, err := extreme(items, want)
	if err != nil {
		return nil, err
	}
	return best.(*EnumVariant).Data[0], nil
}

func builtinMin(_ *Environment, args ...Value) (Value, error) {
	if len(args) == 0 {
		return nil, perrors.Arity("at least 1", 0)
	}
	return extremeOf("min", -1, args)
}

func builtinMax(_ *Environment, args ...Value) (Value, error) {
	if len(args) == 0 {
		return nil, perrors.Arity("at least 1", 0)
	}
	return extremeOf("max", 1, args)
}

func builtinPow(_ *Environment, args ...Value) (Value, error) {
	if err := exactArgs(args, 2); err != nil {
		return nil, err
	}
	if _, ok := args[0].(*Integer); ok {
		return intPowMethod(args[0], args[1:], nil)
	}
	base, ok := toFloat(args[0])
	if !ok {
		return nil, perrors.TypeMismatch("pow", TypeName(args[0]), TypeName(args[1]))
	}
	return floatPow(&Float{Value: base}, args[1:], nil)
}

func mathFunc(name string, fn func(float64) float64) BuiltinFunction {
	return func(_ *Environment, args ...Value) (Value, error) {
		if err := exactArgs(args, 1); err != nil {
			return nil, err
		}
		f, ok := toFloat(args[0])
		if !ok {
			return nil, perrors.UnaryTypeMismatch(name, TypeName(args[0]))
		}
		return &Float{Value: fn(f)}, nil
	}
}

func wrapVariant(wrap func(Value) *EnumVariant) BuiltinFunction {
	return func(_ *Environment, args ...Value) (Value, error) {
		if err := exactArgs(args, 1); err != nil {
			return nil, err
		}
		return wrap(args[0]), nil
	}
}

// builtinHashMap builds a map from (key, value) pairs, or an empty one.
func builtinHashMap(_ *Environment, args ...Value) (Value, error) {
	m := NewHashMap()
	items := args
	if len(args) == 1 {
		if _, isPair := args[0].(*Tuple); !isPair {
			var err error
			if items, err = iterableValues(args[0]); err != nil {
				return nil, err
			}
		}
	}
	for _, item := range items {
		pair, ok := item.(*Tuple)
		if !ok || len(pair.Elements) != 2 {
			return nil, perrors.Runtime("HashMap entries must be (key, value) tuples, got %s", item.Inspect())
		}
		m = m.With(pair.Elements[0], pair.Elements[1])
	}
	return m, nil
}

func builtinHashSet(_ *Environment, args ...Value) (Value, error) {
	if len(args) == 1 {
		if items, err := iterableValues(args[0]); err == nil {
			return NewHashSet(items...), nil
		}
	}
	return NewHashSet(args...), nil
}

func builtinCollect(_ *Environment, args ...Value) (Value, error) {
	if err := exactArgs(args, 1); err != nil {
		return nil, err
	}
	items, err := iterableValues(args[0])
	if err != nil {
		return nil, err
	}
	return &List{Elements: append([]Value(nil), items...)}, nil
}

// builtinDataFrameNew returns an empty frame, the start of a
// `DataFrame::new().column(name, values).build()` chain.
func builtinDataFrameNew(_ *Environment, args ...Value) (Value, error) {
	if err := exactArgs(args, 0); err != nil {
		return nil, err
	}
	return &DataFrame{}, nil
}

// frameFunc exposes a DataFrame method as a function taking the frame
// first, as in groupby(df, "k").
func frameFunc(method string) BuiltinFunction {
	return func(env *Environment, args ...Value) (Value, error) {
		if len(args) == 0 {
			return nil, perrors.Arity("at least 1", 0)
		}
		return callMethod(args[0], method, args[1:], env, nil)
	}
}

// builtinSum adds a DataFrame's numeric cells or a sequence's numbers.
func builtinSum(env *Environment, args ...Value) (Value, error) {
	if err := exactArgs(args, 1); err != nil {
		return nil, err
	}
	if df, ok := args[0].(*DataFrame); ok {
		return Sum(df), nil
	}
	items, err := iterableValues(args[0])
	if err != nil {
		return nil, err
	}
	return sumValues(items), nil
}

// BuiltinNames returns the builtin function names, for completion.
func BuiltinNames() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		if !strings.Contains(name, "::") {
			names = append(names, name)
		}
	}
	return names
}
