package replay

import (
	"fmt"
	"strings"
)

// Evaluator is what Validate replays inputs through. *repl.Repl satisfies
// it.
type Evaluator interface {
	Eval(line string) (string, error)
}

// Divergence is an output that differs from the recording.
type Divergence struct {
	Event    EventID
	Input    string
	Expected EvalResult
	Actual   EvalResult
}

func (d Divergence) String() string {
	return fmt.Sprintf("event %d %q: expected %s, got %s", d.Event, d.Input, d.Expected, d.Actual)
}

// Report summarizes a validation run.
type Report struct {
	TotalEvents      int
	SuccessfulEvents int
	Divergences      []Divergence
}

// Passed reports whether every replayed output matched.
func (r *Report) Passed() bool { return len(r.Divergences) == 0 }

// Validate feeds every recorded input to ev in order and compares each
// result with the recorded output. Error outputs match when the new error
// message contains the recorded one.
func Validate(s *Session, ev Evaluator) *Report {
	report := &Report{TotalEvents: len(s.Timeline)}
	for _, p := range s.Pairs() {
		actual := ResultOf(ev.Eval(p.Input.Text))
		if equivalent(p.Output.Result, actual) {
			report.SuccessfulEvents++
			continue
		}
		report.Divergences = append(report.Divergences, Divergence{
			Event:    s.Timeline[p.Index].ID,
			Input:    p.Input.Text,
			Expected: p.Output.Result,
			Actual:   actual,
		})
	}
	return report
}

// ResultOf converts an evaluation outcome into a recorded result. An empty
// value is Unit.
func ResultOf(value string, err error) EvalResult {
	switch {
	case err != nil:
		return Failure(err.Error())
	case value == "":
		return Unit()
	}
	return Success(value)
}

func equivalent(expected, actual EvalResult) bool {
	if expected.Kind != actual.Kind {
		return false
	}
	switch expected.Kind {
	case ResultSuccess:
		return expected.Value == actual.Value
	case ResultError:
		return strings.Contains(actual.Message, expected.Message)
	}
	return true
}
