package evaluator

import (
	"strconv"
	"strings"

	"github.com/ruchy-lang/ruchy/pkg/ruchy/ast"
	perrors "github.com/ruchy-lang/ruchy/pkg/ruchy/errors"
)

func evalCall(node *ast.Call, env *Environment) (Value, error) {
	callee, err := Eval(node.Func, env)
	if err != nil {
		return nil, err
	}
	args, err := evalArgs(node.Args, env)
	if err != nil {
		return nil, err
	}
	return applyFunction(callee, args, env)
}

// applyFunction calls any callable value with already evaluated arguments.
func applyFunction(fn Value, args []Value, env *Environment) (Value, error) {
	switch fn := fn.(type) {
	case *Function:
		result, _, err := callUser(fn.Name, fn.Params, fn.Body, fn.Env, nil, args)
		return result, err
	case *Lambda:
		result, _, err := callUser("<lambda>", fn.Params, fn.Body, fn.Env, nil, args)
		return result, err
	case *Builtin:
		return fn.Fn(env, args...)
	case *StructType:
		return constructTupleStruct(fn, args)
	}
	return nil, perrors.NotCallable(fn.Inspect())
}

// callUser runs a user function body in a new frame over closure. When self
// is non-nil it is bound as a mutable `self` and its final value is returned
// so &mut self methods can write it back.
func callUser(name string, params []ast.Param, body *ast.Expr, closure *Environment, self Value, args []Value) (Value, Value, error) {
	rt := closure.rt
	if err := closure.checkCancelled(); err != nil {
		return nil, nil, err
	}
	if rt.callDepth >= maxCallDepth {
		return nil, nil, perrors.Runtime("maximum call depth of %d exceeded in %s", maxCallDepth, name)
	}

	if self != nil && len(params) > 0 && params[0].Name == "self" {
		params = params[1:]
	}
	if err := checkCallArity(params, len(args)); err != nil {
		return nil, nil, err
	}

	frame := NewEnclosedEnvironment(closure)
	if self != nil {
		frame.Define("self", self, true)
	}
	for i, param := range params {
		if i < len(args) {
			if err := bindParam(frame, param, args[i]); err != nil {
				return nil, nil, err
			}
			continue
		}
		def, err := Eval(param.Default, frame)
		if err != nil {
			return nil, nil, err
		}
		if err := bindParam(frame, param, def); err != nil {
			return nil, nil, err
		}
	}

	rt.callDepth++
	result, err := Eval(body, frame)
	rt.callDepth--

	if err != nil {
		ret, ok := err.(*returnSignal)
		if !ok {
			return nil, nil, escapedSignal(err)
		}
		result = ret.value
	}
	var updated Value
	if self != nil {
		updated, _ = frame.Get("self")
	}
	return result, updated, nil
}

// checkCallArity accepts between the required and total parameter count.
func checkCallArity(params []ast.Param, got int) error {
	required := 0
	for _, p := range params {
		if p.Default == nil {
			required++
		}
	}
	if got >= required && got <= len(params) {
		return nil
	}
	expected := strconv.Itoa(len(params))
	if required != len(params) {
		expected = strconv.Itoa(required) + " to " + expected
	}
	return perrors.Arity(expected, got)
}

func constructTupleStruct(st *StructType, args []Value) (Value, error) {
	if len(args) != len(st.Fields) {
		return nil, perrors.Arity(strconv.Itoa(len(st.Fields)), len(args))
	}
	obj := &Object{TypeName: st.Name, Fields: map[string]Value{}}
	for i, v := range args {
		key := strconv.Itoa(i)
		obj.Keys = append(obj.Keys, key)
		obj.Fields[key] = v
	}
	return obj, nil
}

func evalMethodCall(receiver *ast.Expr, method string, argExprs []*ast.Expr, env *Environment) (Value, error) {
	recv, err := Eval(receiver, env)
	if err != nil {
		return nil, err
	}
	args, err := evalArgs(argExprs, env)
	if err != nil {
		return nil, err
	}
	return callMethod(recv, method, args, env, receiver)
}

// callMethod dispatches method on recv: impl blocks first, then callable
// object fields, then the builtin method tables. When place names a
// mutable location, methods that change their receiver write it back.
func callMethod(recv Value, method string, args []Value, env *Environment, place *ast.Expr) (Value, error) {
	if fn, ok := lookupImpl(recv, method, env); ok {
		result, updated, err := callImplMethod(fn, recv, args, env)
		if err != nil {
			return nil, err
		}
		if updated != nil && place != nil && isPlace(place) && !valuesEqual(updated, recv) {
			if err := assignTo(place, updated, env); err != nil {
				return nil, err
			}
		}
		return result, nil
	}

	if obj, ok := recv.(*Object); ok {
		if field, ok := obj.Fields[method]; ok && isCallable(field) {
			return applyFunction(field, args, env)
		}
	}

	entry, err := lookupMethod(recv, method)
	if err != nil {
		return nil, err
	}
	if !checkArity(entry.Arity, len(args)) {
		return nil, perrors.Arity(arityDescription(entry.Arity), len(args))
	}
	if entry.Mutator == nil {
		return entry.Fn(recv, args, env)
	}

	result, updated, err := entry.Mutator(recv, args, env)
	if err != nil {
		return nil, err
	}
	if place != nil && isPlace(place) {
		if err := assignTo(place, updated, env); err != nil {
			return nil, err
		}
		return result, nil
	}
	// A temporary receiver has nowhere to be written back, so the changed
	// container is the useful result.
	if _, isUnit := result.(*Unit); isUnit {
		return updated, nil
	}
	return result, nil
}

func callImplMethod(fn Value, recv Value, args []Value, env *Environment) (Value, Value, error) {
	f, ok := fn.(*Function)
	if !ok {
		v, err := applyFunction(fn, args, env)
		return v, nil, err
	}
	if len(f.Params) == 0 || f.Params[0].Name != "self" {
		v, err := applyFunction(f, args, env)
		return v, nil, err
	}
	return callUser(f.Name, f.Params, f.Body, f.Env, recv, args)
}

// lookupImpl finds a method defined in an impl block for recv's type.
func lookupImpl(recv Value, method string, env *Environment) (Value, bool) {
	var typeName string
	switch v := recv.(type) {
	case *Object:
		typeName = v.TypeName
	case *EnumVariant:
		typeName = v.EnumName
	}
	if typeName == "" {
		return nil, false
	}
	fn, ok := env.rt.impls[typeName][method]
	return fn, ok
}

// isPlace reports whether e names a location assignment can write to.
func isPlace(e *ast.Expr) bool {
	switch k := e.Kind.(type) {
	case *ast.Identifier:
		return !strings.Contains(k.Name, "::")
	case *ast.FieldAccess:
		return isPlace(k.Object)
	case *ast.IndexAccess:
		return isPlace(k.Object)
	}
	return false
}

// callValue invokes a callable argument such as the closure passed to map.
func callValue(fn Value, env *Environment, args ...Value) (Value, error) {
	if !isCallable(fn) {
		return nil, perrors.NotCallable(fn.Inspect())
	}
	return applyFunction(fn, args, env)
}
