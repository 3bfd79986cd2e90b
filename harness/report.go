package harness

import (
	"fmt"
	"strings"

	"github.com/wippyai/wasm-spectest/errors"
	"github.com/wippyai/wasm-spectest/value"
)

// Status is the result of one command.
type Status int

const (
	StatusPass Status = iota
	StatusSkip
	StatusFail
)

func (s Status) String() string {
	switch s {
	case StatusPass:
		return "pass"
	case StatusSkip:
		return "skip"
	case StatusFail:
		return "fail"
	}
	return "unknown"
}

// Outcome records what happened to one command.
type Outcome struct {
	Err    error
	Type   string
	Field  string
	Reason string
	Line   int
	Status Status
}

// Report collects the outcomes of one script run, in command order. A run
// stops at its first failure, which is also kept in Fatal.
type Report struct {
	Fatal    error
	TestSet  string
	Outcomes []Outcome
}

// Count returns the number of outcomes with status s.
func (r *Report) Count(s Status) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == s {
			n++
		}
	}
	return n
}

// Passed returns the number of passing commands.
func (r *Report) Passed() int { return r.Count(StatusPass) }

// Skipped returns the number of skipped commands.
func (r *Report) Skipped() int { return r.Count(StatusSkip) }

// OK reports whether the run completed without a fatal error.
func (r *Report) OK() bool { return r.Fatal == nil }

// MismatchError reports an assert_return whose result differs from the
// expectation.
type MismatchError struct {
	TestSet  string
	Field    string
	Args     []value.Literal
	Observed value.Canonical
	Expected value.Canonical
	Line     int
}

func (e *MismatchError) Error() string {
	args := make([]string, len(e.Args))
	for i, a := range e.Args {
		args[i] = a.String()
	}
	return fmt.Sprintf("[%s] %s in %s:%d: %s(%s) returned %s, expected %s",
		errors.PhaseAssert, errors.KindMismatch, e.TestSet, e.Line,
		e.Field, strings.Join(args, ", "), e.Observed, e.Expected)
}

// Is matches the assertion-mismatch class of errors.Error.
func (e *MismatchError) Is(target error) bool {
	t, ok := target.(*errors.Error)
	return ok && t.Phase == errors.PhaseAssert && t.Kind == errors.KindMismatch
}
