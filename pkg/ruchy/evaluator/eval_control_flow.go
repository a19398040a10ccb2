package evaluator

import (
	"github.com/ruchy-lang/ruchy/pkg/ruchy/ast"
	perrors "github.com/ruchy-lang/ruchy/pkg/ruchy/errors"
)

// Control flow evaluation functions: if, match, loops, try

func evalIf(node *ast.If, env *Environment) (Value, error) {
	cond, err := Eval(node.Condition, env)
	if err != nil {
		return nil, err
	}
	if isTruthy(cond) {
		return Eval(node.ThenBranch, env)
	}
	if node.ElseBranch != nil {
		return Eval(node.ElseBranch, env)
	}
	return UNIT, nil
}

// evalMatch evaluates the scrutinee once and runs the first arm whose
// pattern matches and whose guard holds.
func evalMatch(node *ast.Match, env *Environment) (Value, error) {
	scrutinee, err := Eval(node.Scrutinee, env)
	if err != nil {
		return nil, err
	}
	for _, arm := range node.Arms {
		scope := NewEnclosedEnvironment(env)
		if !bindPattern(scope, arm.Pattern, scrutinee, false) {
			continue
		}
		if arm.Guard != nil {
			guard, err := Eval(arm.Guard, scope)
			if err != nil {
				return nil, err
			}
			if !isTruthy(guard) {
				continue
			}
		}
		return Eval(arm.Body, scope)
	}
	return nil, perrors.NonExhaustiveMatch(scrutinee.Inspect())
}

// loopAction is what a loop does with the error its body returned.
type loopAction int

const (
	loopNext loopAction = iota
	loopStop
	loopFail
)

// loopControl resolves break and continue signals aimed at a loop labelled
// label. Signals for an outer label pass through as failures.
func loopControl(err error, label string) (loopAction, Value) {
	switch sig := err.(type) {
	case *breakSignal:
		if sig.label == "" || sig.label == label {
			return loopStop, sig.value
		}
	case *continueSignal:
		if sig.label == "" || sig.label == label {
			return loopNext, nil
		}
	}
	return loopFail, nil
}

func evalWhile(node *ast.While, env *Environment) (Value, error) {
	for {
		if err := env.checkCancelled(); err != nil {
			return nil, err
		}
		cond, err := Eval(node.Condition, env)
		if err != nil {
			return nil, err
		}
		if !isTruthy(cond) {
			return UNIT, nil
		}
		if _, err := Eval(node.Body, env); err != nil {
			action, _ := loopControl(err, node.Label)
			switch action {
			case loopStop:
				return UNIT, nil
			case loopFail:
				return nil, err
			}
		}
	}
}

// evalLoop runs until a break; `break value` becomes the loop's value.
func evalLoop(node *ast.Loop, env *Environment) (Value, error) {
	for {
		if err := env.checkCancelled(); err != nil {
			return nil, err
		}
		if _, err := Eval(node.Body, env); err != nil {
			action, value := loopControl(err, node.Label)
			switch action {
			case loopStop:
				return value, nil
			case loopFail:
				return nil, err
			}
		}
	}
}

func evalFor(node *ast.For, env *Environment) (Value, error) {
	iterable, err := Eval(node.Iter, env)
	if err != nil {
		return nil, err
	}

	var result Value = UNIT
	err = iterate(iterable, func(item Value) (bool, error) {
		if err := env.checkCancelled(); err != nil {
			return false, err
		}
		scope := NewEnclosedEnvironment(env)
		if node.Pattern != nil {
			if !bindPattern(scope, node.Pattern, item, false) {
				return false, perrors.PatternBindingMismatch(item.Inspect())
			}
		} else {
			scope.Define(node.Var, item, false)
		}

		if _, err := Eval(node.Body, scope); err != nil {
			action, value := loopControl(err, node.Label)
			switch action {
			case loopStop:
				if value != nil {
					result = value
				}
				return false, nil
			case loopFail:
				return false, err
			}
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// iterate calls fn for each element of v until fn returns false or an error.
// Ranges are walked lazily.
func iterate(v Value, fn func(Value) (bool, error)) error {
	if r, ok := v.(*Range); ok {
		end := r.End
		for i := r.Start; i < end || (r.Inclusive && i == end); i++ {
			more, err := fn(&Integer{Value: i})
			if err != nil || !more {
				return err
			}
			if r.Inclusive && i == end {
				break
			}
		}
		return nil
	}

	items, err := iterableValues(v)
	if err != nil {
		return err
	}
	for _, item := range items {
		more, err := fn(item)
		if err != nil || !more {
			return err
		}
	}
	return nil
}

// maxMaterializedRange bounds ranges turned into lists.
const maxMaterializedRange = 10_000_000

// iterableValues materializes the elements of an iterable value. Maps and
// objects yield (key, value) tuples; DataFrames yield one object per row.
func iterableValues(v Value) ([]Value, error) {
	switch v := v.(type) {
	case *List:
		return v.Elements, nil
	case *Tuple:
		return v.Elements, nil
	case *HashSet:
		return v.Elements, nil
	case *Range:
		n := v.Len()
		if n > maxMaterializedRange {
			return nil, perrors.Runtime("range %s is too large to collect", v.Inspect())
		}
		out := make([]Value, 0, n)
		for i := int64(0); i < n; i++ {
			out = append(out, &Integer{Value: v.Start + i})
		}
		return out, nil
	case *String:
		out := []Value{}
		for _, r := range v.Value {
			out = append(out, &Char{Value: r})
		}
		return out, nil
	case *HashMap:
		out := make([]Value, len(v.Keys))
		for i, k := range v.Keys {
			out[i] = &Tuple{Elements: []Value{k, v.Values[i]}}
		}
		return out, nil
	case *Object:
		out := make([]Value, len(v.Keys))
		for i, k := range v.Keys {
			out[i] = &Tuple{Elements: []Value{&String{Value: k}, v.Fields[k]}}
		}
		return out, nil
	case *DataFrame:
		out := make([]Value, v.Rows())
		for r := range out {
			out[r] = dataFrameRow(v, r)
		}
		return out, nil
	case *EnumVariant:
		if v.EnumName == "Option" {
			return v.Data, nil
		}
	}
	return nil, perrors.Runtime("%s is not iterable", TypeName(v))
}

// evalTryOperator implements `expr?`: Some and Ok unwrap, None and Err
// return from the enclosing function.
func evalTryOperator(node *ast.Try, env *Environment) (Value, error) {
	v, err := Eval(node.Expr, env)
	if err != nil {
		return nil, err
	}
	switch {
	case isVariant(v, "Some"), isVariant(v, "Ok"):
		ev := v.(*EnumVariant)
		if len(ev.Data) == 0 {
			return UNIT, nil
		}
		return ev.Data[0], nil
	case isVariant(v, "None"), isVariant(v, "Err"):
		return nil, &returnSignal{value: v}
	case isAbsent(v):
		return nil, &returnSignal{value: v}
	}
	return nil, perrors.Runtime("the ? operator needs an Option or Result, got %s", TypeName(v))
}

// evalTryCatch runs the try block, hands catchable errors to the first catch
// clause whose pattern matches, then runs finally. A signal or error raised
// by finally replaces the pending outcome.
func evalTryCatch(node *ast.TryCatch, env *Environment) (Value, error) {
	result, err := Eval(node.Try, env)

	if err != nil && catchable(err) {
		caught := errorValue(err)
		for _, clause := range node.Catches {
			scope := NewEnclosedEnvironment(env)
			if clause.Pattern != nil && !bindPattern(scope, clause.Pattern, caught, false) {
				continue
			}
			result, err = Eval(clause.Body, scope)
			break
		}
	}

	if node.Finally != nil {
		if _, ferr := Eval(node.Finally, env); ferr != nil {
			return nil, ferr
		}
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}
