// Package compare decides whether an observed value satisfies an expected
// one.
package compare

import (
	"math"

	"github.com/wippyai/wasm-spectest/value"
)

// Policy controls float comparison.
type Policy struct {
	// Tolerance is the absolute difference under which two non-NaN floats
	// are considered equal. Ignored when Strict is set.
	Tolerance float64

	// Strict requires identical bits, except that any NaN matches any NaN.
	Strict bool
}

// DefaultPolicy accepts float results within 1e-6 of the expectation.
var DefaultPolicy = Policy{Tolerance: 1e-6}

// StrictPolicy accepts float results only when their bits match.
var StrictPolicy = Policy{Strict: true}

// Equal reports whether observed matches expected under p. Values of
// different kinds never match, and neither do invalid values.
func (p Policy) Equal(observed, expected value.Canonical) bool {
	if observed.Kind != expected.Kind || observed.Kind == value.KindInvalid {
		return false
	}
	if observed.Kind.IsInt() {
		return observed.Bits == expected.Bits
	}

	if observed.Bits == expected.Bits {
		return true
	}
	a, b := observed.Float(), expected.Float()
	if math.IsNaN(a) && math.IsNaN(b) {
		return true
	}
	if p.Strict || math.IsNaN(a) || math.IsNaN(b) {
		return false
	}
	return math.Abs(a-b) < p.Tolerance
}

// Equal compares with DefaultPolicy.
func Equal(observed, expected value.Canonical) bool {
	return DefaultPolicy.Equal(observed, expected)
}
