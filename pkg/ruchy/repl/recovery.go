package repl

import (
	stderrors "errors"
	"fmt"

	perrors "github.com/ruchy-lang/ruchy/pkg/ruchy/errors"
)

// DefaultRecoveryThreshold is how many consecutive errors are recovered from
// before the user is told to :reset.
const DefaultRecoveryThreshold = 3

// Strategy is how the session responds to an evaluation error.
type Strategy int

const (
	// ParsePartial keeps an unfinished input and accepts a continuation line.
	ParsePartial Strategy = iota
	// SkipStatement drops the failed input and keeps every binding.
	SkipStatement
	// Reset drops any buffered input and suggests :reset.
	Reset
)

func (s Strategy) String() string {
	switch s {
	case ParsePartial:
		return "parse-partial"
	case SkipStatement:
		return "skip-statement"
	}
	return "reset"
}

// StrategyFor picks the recovery strategy for err.
func StrategyFor(err error) Strategy {
	var re *perrors.RuchyError
	if !stderrors.As(err, &re) {
		return Reset
	}
	switch {
	case re.IsParseError():
		return ParsePartial
	case re.Kind == perrors.KindUndefinedVariable, re.Kind == perrors.KindFieldNotFound:
		return SkipStatement
	}
	return Reset
}

// ErrRecoveryExhausted is wrapped into errors reported after the threshold
// is reached.
var ErrRecoveryExhausted = stderrors.New("too many consecutive errors; use :reset to start over")

// recovery counts consecutive errors. A successful evaluation clears it.
type recovery struct {
	attempts  int
	threshold int
	last      Strategy
}

func newRecovery(threshold int) recovery {
	if threshold <= 0 {
		threshold = DefaultRecoveryThreshold
	}
	return recovery{threshold: threshold}
}

func (r *recovery) canRecover() bool { return r.attempts < r.threshold }

// fail records an error. It reports the chosen strategy and whether
// recovery was attempted.
func (r *recovery) fail(err error) (Strategy, bool) {
	r.last = StrategyFor(err)
	if !r.canRecover() {
		return r.last, false
	}
	r.attempts++
	return r.last, true
}

func (r *recovery) reset() {
	r.attempts = 0
	r.last = SkipStatement
}

func exhausted(err error) error {
	return fmt.Errorf("%w\n  %w", err, ErrRecoveryExhausted)
}
