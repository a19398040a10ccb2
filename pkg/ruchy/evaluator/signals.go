package evaluator

import (
	stderrors "errors"

	perrors "github.com/ruchy-lang/ruchy/pkg/ruchy/errors"
)

// Control-flow signals travel up the Go call stack as errors until the loop
// or function frame that owns them catches them.

type breakSignal struct {
	label string
	value Value
}

func (s *breakSignal) Error() string {
	if s.label != "" {
		return "break '" + s.label + " outside of a matching loop"
	}
	return "break outside of a loop"
}

type continueSignal struct {
	label string
}

func (s *continueSignal) Error() string {
	if s.label != "" {
		return "continue '" + s.label + " outside of a matching loop"
	}
	return "continue outside of a loop"
}

type returnSignal struct {
	value Value
}

func (s *returnSignal) Error() string { return "return outside of a function" }

// PanicError is raised by panic!(..) and panic(..). try/catch does not
// intercept it; it unwinds to the top of the evaluation.
type PanicError struct {
	Message string
}

func (e *PanicError) Error() string { return "panic: " + e.Message }

// ThrownError carries a value raised by throw. It is catchable.
type ThrownError struct {
	Value Value
}

func (e *ThrownError) Error() string { return "uncaught exception: " + Display(e.Value) }

func isSignal(err error) bool {
	switch err.(type) {
	case *breakSignal, *continueSignal, *returnSignal:
		return true
	}
	return false
}

// escapedSignal turns a signal that left its frame into a RuntimeError.
func escapedSignal(err error) error {
	if isSignal(err) {
		return perrors.Runtime("%s", err.Error())
	}
	return err
}

// catchable reports whether try/catch may intercept err.
func catchable(err error) bool {
	if isSignal(err) {
		return false
	}
	var p *PanicError
	if stderrors.As(err, &p) {
		return false
	}
	var re *perrors.RuchyError
	if stderrors.As(err, &re) && re.Kind == perrors.KindTimeout {
		return false
	}
	return true
}

// errorValue is the value a catch clause binds for err.
func errorValue(err error) Value {
	var thrown *ThrownError
	if stderrors.As(err, &thrown) {
		return thrown.Value
	}
	var re *perrors.RuchyError
	if stderrors.As(err, &re) {
		return &String{Value: re.Message}
	}
	return &String{Value: err.Error()}
}
