package evaluator

import (
	stderrors "errors"
	"math"
	"strings"

	"github.com/ruchy-lang/ruchy/pkg/ruchy/ast"
	perrors "github.com/ruchy-lang/ruchy/pkg/ruchy/errors"
)

// Eval evaluates expr in env. Language errors are *errors.RuchyError;
// break, continue and return travel as unexported signal errors until a loop
// or function frame catches them.
func Eval(expr *ast.Expr, env *Environment) (Value, error) {
	if expr == nil || expr.Kind == nil {
		return UNIT, nil
	}
	v, err := eval(expr, env)
	if err != nil {
		locate(err, expr)
		return nil, err
	}
	return v, nil
}

// locate records the offset of the innermost node that failed. An error
// raised at offset 0 is left alone: every enclosing node starts there too.
func locate(err error, expr *ast.Expr) {
	var re *perrors.RuchyError
	if stderrors.As(err, &re) && re.Offset == 0 && re.Line == 0 {
		re.Offset = expr.Span.Start
	}
}

func eval(expr *ast.Expr, env *Environment) (Value, error) {
	switch node := expr.Kind.(type) {
	// Atoms
	case *ast.Literal:
		return literalValue(node), nil

	case *ast.Identifier:
		return evalIdentifier(node.Name, env)

	case *ast.StringInterpolation:
		return evalInterpolation(node, env)

	// Operators
	case *ast.Binary:
		return evalBinary(node, env)

	case *ast.Unary:
		operand, err := Eval(node.Operand, env)
		if err != nil {
			return nil, err
		}
		return evalUnaryOp(node.Op, operand)

	case *ast.TypeCast:
		v, err := Eval(node.Expr, env)
		if err != nil {
			return nil, err
		}
		return evalCast(v, node.TargetType)

	case *ast.Assign:
		v, err := Eval(node.Value, env)
		if err != nil {
			return nil, err
		}
		return UNIT, assignTo(node.Target, v, env)

	case *ast.CompoundAssign:
		return evalCompoundAssign(node, env)

	// Bindings and scopes
	case *ast.Let:
		return evalLet(node, env)

	case *ast.Block:
		return evalBlock(node, env)

	// Control flow
	case *ast.If:
		return evalIf(node, env)

	case *ast.Match:
		return evalMatch(node, env)

	case *ast.While:
		return evalWhile(node, env)

	case *ast.For:
		return evalFor(node, env)

	case *ast.Loop:
		return evalLoop(node, env)

	case *ast.Return:
		var v Value = UNIT
		if node.Value != nil {
			var err error
			if v, err = Eval(node.Value, env); err != nil {
				return nil, err
			}
		}
		return nil, &returnSignal{value: v}

	case *ast.Break:
		var v Value = UNIT
		if node.Value != nil {
			var err error
			if v, err = Eval(node.Value, env); err != nil {
				return nil, err
			}
		}
		return nil, &breakSignal{label: node.Label, value: v}

	case *ast.Continue:
		return nil, &continueSignal{label: node.Label}

	case *ast.Try:
		return evalTryOperator(node, env)

	case *ast.TryCatch:
		return evalTryCatch(node, env)

	case *ast.Throw:
		v, err := Eval(node.Expr, env)
		if err != nil {
			return nil, err
		}
		return nil, &ThrownError{Value: v}

	// Functions and calls
	case *ast.Lambda:
		return &Lambda{Params: node.Params, Body: node.Body, Env: env}, nil

	case *ast.Function:
		if node.Body == nil {
			return UNIT, nil
		}
		fn := &Function{Name: node.Name, Params: node.Params, Body: node.Body, Env: env}
		env.Define(node.Name, fn, false)
		return fn, nil

	case *ast.Call:
		return evalCall(node, env)

	case *ast.MethodCall:
		return evalMethodCall(node.Receiver, node.Method, node.Args, env)

	case *ast.OptionalMethodCall:
		recv, err := Eval(node.Receiver, env)
		if err != nil {
			return nil, err
		}
		if isAbsent(recv) {
			return NIL, nil
		}
		args, err := evalArgs(node.Args, env)
		if err != nil {
			return nil, err
		}
		return callMethod(recv, node.Method, args, env, nil)

	case *ast.MacroInvocation:
		return evalMacro(node, env)

	// Collections and access
	case *ast.List:
		elems, err := evalElements(node.Elements, env)
		if err != nil {
			return nil, err
		}
		return &List{Elements: elems}, nil

	case *ast.Tuple:
		elems, err := evalElements(node.Elements, env)
		if err != nil {
			return nil, err
		}
		return &Tuple{Elements: elems}, nil

	case *ast.Object:
		return evalObjectLiteral(node.Fields, env)

	case *ast.StructLiteral:
		return evalStructLiteral(node, env)

	case *ast.Range:
		return evalRange(node, env)

	case *ast.FieldAccess:
		obj, err := Eval(node.Object, env)
		if err != nil {
			return nil, err
		}
		return getField(obj, node.Field)

	case *ast.OptionalFieldAccess:
		obj, err := Eval(node.Object, env)
		if err != nil {
			return nil, err
		}
		if isAbsent(obj) {
			return NIL, nil
		}
		v, err := getField(obj, node.Field)
		if err != nil {
			if perrors.KindOf(err) == perrors.KindFieldNotFound {
				return NIL, nil
			}
			return nil, err
		}
		return v, nil

	case *ast.IndexAccess:
		obj, err := Eval(node.Object, env)
		if err != nil {
			return nil, err
		}
		idx, err := Eval(node.Index, env)
		if err != nil {
			return nil, err
		}
		return getIndex(obj, idx)

	case *ast.Slice:
		return evalSlice(node, env)

	case *ast.Spread:
		return nil, perrors.Runtime("spread is only allowed inside lists, tuples and call arguments")

	// DataFrames
	case *ast.DataFrame:
		return evalDataFrameLiteral(node, env)

	case *ast.DataFrameOp:
		return evalDataFrameOp(node, env)

	// Declarations
	case *ast.StructDef:
		st := &StructType{Name: node.Name, Fields: node.Fields, Env: env}
		env.Define(node.Name, st, false)
		return UNIT, nil

	case *ast.EnumDef:
		return evalEnumDef(node, env)

	case *ast.TraitDef:
		env.rt.traits[node.Name] = node
		return UNIT, nil

	case *ast.ImplBlock:
		return evalImplBlock(node, env)

	case *ast.Module:
		return evalModule(node, env)

	case *ast.Import:
		return evalImport(node, env)

	case *ast.Export:
		if node.Expr != nil {
			return Eval(node.Expr, env)
		}
		return UNIT, nil

	case *ast.Await:
		return Eval(node.Expr, env)

	case *ast.ActorDef, *ast.Receive, *ast.Spawn:
		return nil, perrors.Runtime("%s is not supported by the interpreter", strings.ToLower(ast.KindName(expr)))
	}

	return nil, perrors.Runtime("cannot evaluate %s", ast.KindName(expr))
}

// evalIdentifier resolves a name: bindings first, then builtins, then
// `Type::item` paths into impl blocks.
func evalIdentifier(name string, env *Environment) (Value, error) {
	if v, ok := env.Get(name); ok {
		return v, nil
	}
	if b, ok := builtins[name]; ok {
		return b, nil
	}
	if v, ok := preludeValues[name]; ok {
		return v, nil
	}
	if i := strings.LastIndex(name, "::"); i >= 0 {
		typeName, item := lastPathSegment(name[:i]), name[i+2:]
		if fn, ok := env.rt.impls[typeName][item]; ok {
			return fn, nil
		}
		if v, ok := env.Get(typeName + "::" + item); ok {
			return v, nil
		}
		if b, ok := builtins[typeName+"::"+item]; ok {
			return b, nil
		}
		switch typeName {
		case "i64", "i32", "isize":
			switch item {
			case "MAX":
				return &Integer{Value: math.MaxInt64}, nil
			case "MIN":
				return &Integer{Value: math.MinInt64}, nil
			}
		case "f64", "f32":
			switch item {
			case "INFINITY":
				return &Float{Value: math.Inf(1)}, nil
			case "NEG_INFINITY":
				return &Float{Value: math.Inf(-1)}, nil
			case "NAN":
				return &Float{Value: math.NaN()}, nil
			case "MAX":
				return &Float{Value: math.MaxFloat64}, nil
			case "EPSILON":
				return &Float{Value: 2.220446049250313e-16}, nil
			}
		}
	}
	return nil, perrors.UndefinedVariable(name, env.AllIdentifiers())
}

func evalBinary(node *ast.Binary, env *Environment) (Value, error) {
	left, err := Eval(node.Left, env)
	if err != nil {
		return nil, err
	}

	switch node.Op {
	case ast.OpAnd:
		if !isTruthy(left) {
			return FALSE, nil
		}
		right, err := Eval(node.Right, env)
		if err != nil {
			return nil, err
		}
		return nativeBoolToBool(isTruthy(right)), nil
	case ast.OpOr:
		if isTruthy(left) {
			return TRUE, nil
		}
		right, err := Eval(node.Right, env)
		if err != nil {
			return nil, err
		}
		return nativeBoolToBool(isTruthy(right)), nil
	case ast.OpNullCoalesce:
		if !isAbsent(left) {
			return left, nil
		}
		return Eval(node.Right, env)
	}

	right, err := Eval(node.Right, env)
	if err != nil {
		return nil, err
	}
	return evalBinaryOp(node.Op, left, right)
}

// evalBlock runs the expressions in a fresh scope and yields the last value.
// A top-level block binds directly in env.
func evalBlock(node *ast.Block, env *Environment) (Value, error) {
	scope := env
	if !node.TopLevel {
		scope = NewEnclosedEnvironment(env)
	}
	var result Value = UNIT
	for _, e := range node.Exprs {
		v, err := Eval(e, scope)
		if err != nil {
			return nil, err
		}
		result = v
	}
	return result, nil
}

// evalLet binds the value. Without a body the binding lands in env and the
// let yields unit; with a body the binding is scoped to it.
func evalLet(node *ast.Let, env *Environment) (Value, error) {
	val, err := Eval(node.Value, env)
	if err != nil {
		return nil, err
	}

	target := env
	if node.Body != nil {
		target = NewEnclosedEnvironment(env)
	}

	if node.Pattern == nil {
		target.Define(node.Name, val, node.IsMutable)
	} else if !bindPattern(target, node.Pattern, val, node.IsMutable) {
		if node.ElseBlock != nil {
			return Eval(node.ElseBlock, env)
		}
		return nil, perrors.PatternBindingMismatch(val.Inspect())
	}

	if node.Body != nil {
		return Eval(node.Body, target)
	}
	return UNIT, nil
}

// evalElements evaluates list or tuple elements, expanding spreads.
func evalElements(exprs []*ast.Expr, env *Environment) ([]Value, error) {
	out := make([]Value, 0, len(exprs))
	for _, e := range exprs {
		if spread, ok := e.Kind.(*ast.Spread); ok {
			v, err := Eval(spread.Expr, env)
			if err != nil {
				return nil, err
			}
			items, err := iterableValues(v)
			if err != nil {
				return nil, err
			}
			out = append(out, items...)
			continue
		}
		v, err := Eval(e, env)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// evalArgs evaluates call arguments; spreads expand in place.
func evalArgs(exprs []*ast.Expr, env *Environment) ([]Value, error) {
	return evalElements(exprs, env)
}

func evalRange(node *ast.Range, env *Environment) (Value, error) {
	var start, end Value = &Integer{Value: 0}, nil
	if node.Start != nil {
		v, err := Eval(node.Start, env)
		if err != nil {
			return nil, err
		}
		start = v
	}
	if node.End != nil {
		v, err := Eval(node.End, env)
		if err != nil {
			return nil, err
		}
		end = v
	}

	if sc, ok := start.(*Char); ok {
		ec, ok := end.(*Char)
		if !ok {
			return nil, perrors.TypeMismatch("..", CHAR_VAL, TypeName(end))
		}
		last := ec.Value
		if !node.Inclusive {
			last--
		}
		var chars []Value
		for r := sc.Value; r <= last; r++ {
			chars = append(chars, &Char{Value: r})
		}
		return &List{Elements: chars}, nil
	}

	s, ok := start.(*Integer)
	if !ok {
		return nil, perrors.TypeMismatch("..", TypeName(start), TypeName(end))
	}
	if end == nil {
		return &Range{Start: s.Value, End: math.MaxInt64, Inclusive: false}, nil
	}
	e, ok := end.(*Integer)
	if !ok {
		return nil, perrors.TypeMismatch("..", TypeName(start), TypeName(end))
	}
	return &Range{Start: s.Value, End: e.Value, Inclusive: node.Inclusive}, nil
}
