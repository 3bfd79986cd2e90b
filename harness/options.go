package harness

import (
	"fmt"

	"github.com/wippyai/wasm-spectest/compare"
	"github.com/wippyai/wasm-spectest/config"
	"github.com/wippyai/wasm-spectest/engine"
	"github.com/wippyai/wasm-spectest/errors"
)

// MultiReturnPolicy decides what happens to assert_return commands that
// expect more than one value.
type MultiReturnPolicy int

const (
	// MultiReturnSkip records the command as skipped without invoking it.
	MultiReturnSkip MultiReturnPolicy = iota
	// MultiReturnFail aborts the run.
	MultiReturnFail
)

func (p MultiReturnPolicy) String() string {
	if p == MultiReturnFail {
		return config.MultiReturnFail
	}
	return config.MultiReturnSkip
}

// ParseMultiReturnPolicy maps the configuration spelling to a policy.
func ParseMultiReturnPolicy(s string) (MultiReturnPolicy, error) {
	switch s {
	case "", config.MultiReturnSkip:
		return MultiReturnSkip, nil
	case config.MultiReturnFail:
		return MultiReturnFail, nil
	}
	return MultiReturnSkip, errors.Config(fmt.Sprintf("unknown multi-return policy %q", s), nil)
}

// Option configures an Executor.
type Option func(*Executor)

// WithPolicy sets the comparison policy. The default is compare.DefaultPolicy.
func WithPolicy(p compare.Policy) Option {
	return func(x *Executor) { x.policy = p }
}

// WithExceptions sets the table of engine failures to record as skipped.
func WithExceptions(t *config.Exceptions) Option {
	return func(x *Executor) { x.exceptions = t }
}

// WithMultiReturn sets the multi-value expectation policy.
func WithMultiReturn(p MultiReturnPolicy) Option {
	return func(x *Executor) { x.multiReturn = p }
}

// WithIsolation runs every invocation against a snapshot of its module,
// so no command observes state changed by an earlier one.
func WithIsolation(on bool) Option {
	return func(x *Executor) { x.isolate = on }
}

// WithLoadOptions sets the function choosing module load options per test
// set.
func WithLoadOptions(fn func(testSet string) engine.Options) Option {
	return func(x *Executor) { x.loadOptions = fn }
}

// WithConfig applies every setting of cfg. An invalid multi_return value
// makes every Run fail with the configuration error.
func WithConfig(cfg *config.Config) Option {
	return func(x *Executor) {
		x.policy = cfg.Policy()
		x.isolate = cfg.Isolate
		x.loadOptions = cfg.LoadOptions
		p, err := ParseMultiReturnPolicy(cfg.MultiReturn)
		if err != nil {
			x.err = err
			return
		}
		x.multiReturn = p
	}
}
