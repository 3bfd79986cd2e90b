// Package harness runs conformance scripts against an engine gateway.
//
// An Executor walks a script's commands in order, loading modules into a
// fresh registry, invoking exports and judging assert_return results. The
// first fatal condition stops the run; the partial report is returned
// alongside the error.
package harness

import (
	"context"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-spectest/compare"
	"github.com/wippyai/wasm-spectest/config"
	"github.com/wippyai/wasm-spectest/engine"
	"github.com/wippyai/wasm-spectest/errors"
	"github.com/wippyai/wasm-spectest/registry"
	"github.com/wippyai/wasm-spectest/script"
	"github.com/wippyai/wasm-spectest/value"
)

// Skip reasons recorded in reports.
const (
	ReasonNotVerified = "not verified"
	ReasonGet         = "get actions are not supported"
	ReasonMultiReturn = "multiple return values are not supported"
)

// Executor runs scripts against one gateway. It is not safe for concurrent
// use.
type Executor struct {
	gw          engine.Gateway
	exceptions  *config.Exceptions
	loadOptions func(testSet string) engine.Options
	policy      compare.Policy
	multiReturn MultiReturnPolicy
	isolate     bool
	err         error
}

// New creates an executor for gw.
func New(gw engine.Gateway, opts ...Option) *Executor {
	x := &Executor{
		gw:     gw,
		policy: compare.DefaultPolicy,
	}
	for _, opt := range opts {
		opt(x)
	}
	if x.loadOptions == nil {
		x.loadOptions = func(string) engine.Options { return engine.Options{} }
	}
	return x
}

// run is the state of one script execution.
type run struct {
	x       *Executor
	s       *script.Script
	reg     *registry.Registry
	report  *Report
	log     *zap.Logger
	options engine.Options
}

// Run executes every command of s. Module state starts empty and is not
// shared with other runs.
func (x *Executor) Run(ctx context.Context, s *script.Script) (*Report, error) {
	r := &run{
		x:       x,
		s:       s,
		reg:     registry.New(),
		report:  &Report{TestSet: s.TestSet},
		log:     Logger().With(zap.String("test_set", s.TestSet)),
		options: x.loadOptions(s.TestSet),
	}
	if x.err != nil {
		r.report.Fatal = x.err
		return r.report, x.err
	}

	r.log.Debug("script started", zap.Int("commands", len(s.Commands)))
	for _, cmd := range s.Commands {
		if err := r.exec(ctx, cmd); err != nil {
			err = errors.WithLocation(err, s.TestSet, cmd.SourceLine())
			r.record(cmd, StatusFail, "", err)
			r.report.Fatal = err
			r.log.Debug("script aborted", zap.Int("line", cmd.SourceLine()), zap.Error(err))
			return r.report, err
		}
	}

	r.log.Debug("script finished",
		zap.Int("passed", r.report.Passed()),
		zap.Int("skipped", r.report.Skipped()))
	return r.report, nil
}

func (r *run) record(cmd script.Command, status Status, reason string, err error) {
	o := Outcome{
		Type:   cmd.Type(),
		Line:   cmd.SourceLine(),
		Status: status,
		Reason: reason,
		Err:    err,
	}
	if a := script.ActionOf(cmd); a != nil {
		o.Field = a.FieldName()
	}
	r.report.Outcomes = append(r.report.Outcomes, o)
}

func (r *run) exec(ctx context.Context, cmd script.Command) error {
	switch c := cmd.(type) {
	case *script.Module:
		return r.loadModule(ctx, c)
	case *script.AssertReturn:
		return r.assertReturn(ctx, c)
	case *script.ActionCommand:
		return r.action(ctx, c)
	default:
		// register and the negative assertions are recognized but inert.
		r.record(cmd, StatusSkip, ReasonNotVerified, nil)
		return nil
	}
}

func (r *run) loadModule(ctx context.Context, c *script.Module) error {
	data, err := r.s.ReadModule(c.Filename)
	if err != nil {
		return err
	}
	h, err := r.x.gw.LoadModule(ctx, data, r.options)
	if err != nil {
		return errors.WithLocation(err, r.s.TestSet, c.SourceLine())
	}
	if h == engine.InvalidHandle {
		return errors.InvalidHandle(c.Filename)
	}
	r.reg.Register(c.Name, h)
	r.log.Debug("module loaded",
		zap.String("file", c.Filename),
		zap.String("name", c.Name),
		zap.Uint32("handle", uint32(h)))
	r.record(c, StatusPass, "", nil)
	return nil
}

func (r *run) assertReturn(ctx context.Context, c *script.AssertReturn) error {
	inv, ok := c.Action.(*script.Invoke)
	if !ok {
		r.record(c, StatusSkip, ReasonGet, nil)
		return nil
	}
	if len(c.Expected) > 1 {
		if r.x.multiReturn == MultiReturnFail {
			return errors.New(errors.PhaseAssert, errors.KindUnsupported).
				At(r.s.TestSet, c.SourceLine()).
				Field(inv.Field).
				Detail("%d expected values", len(c.Expected)).
				Build()
		}
		r.record(c, StatusSkip, ReasonMultiReturn, nil)
		return nil
	}

	res, results, err := r.invoke(ctx, inv)
	if err != nil {
		return err
	}
	if !res.IsOK() {
		return r.engineFault(c, inv.Field, res)
	}
	if len(c.Expected) == 0 {
		r.record(c, StatusPass, "", nil)
		return nil
	}

	want, err := value.Encode(c.Expected[0])
	if err != nil {
		return err
	}
	var got value.RuntimeValue
	if n := len(results); n > 0 {
		got = results[n-1]
	}
	observed, expected := value.Decode(got), value.Decode(want)
	if !r.x.policy.Equal(observed, expected) {
		return &MismatchError{
			TestSet:  r.s.TestSet,
			Field:    inv.Field,
			Line:     c.SourceLine(),
			Args:     inv.Args,
			Observed: observed,
			Expected: expected,
		}
	}
	r.record(c, StatusPass, "", nil)
	return nil
}

func (r *run) action(ctx context.Context, c *script.ActionCommand) error {
	inv, ok := c.Action.(*script.Invoke)
	if !ok {
		r.record(c, StatusSkip, ReasonGet, nil)
		return nil
	}
	res, _, err := r.invoke(ctx, inv)
	if err != nil {
		return err
	}
	if !res.IsOK() {
		return r.engineFault(c, inv.Field, res)
	}
	r.record(c, StatusPass, "", nil)
	return nil
}

// engineFault either records a known divergence as skipped or returns the
// fatal engine error.
func (r *run) engineFault(c script.Command, field string, res engine.Result) error {
	if reason, ok := r.x.exceptions.Lookup(r.s.TestSet, field, c.SourceLine()); ok {
		r.log.Info("engine failure matched exception",
			zap.String("field", field),
			zap.Int("line", c.SourceLine()),
			zap.String("reason", reason),
			zap.String("fault", res.Error()))
		r.record(c, StatusSkip, reason, res)
		return nil
	}
	return errors.New(errors.PhaseInvoke, errors.KindEngineFault).
		At(r.s.TestSet, c.SourceLine()).
		Field(field).
		Detail("engine reported failure").
		Cause(res).
		Build()
}

// invoke pushes the encoded arguments, calls the export and returns the
// values it left above the pre-call stack depth. The stack is restored to
// that depth before returning.
func (r *run) invoke(ctx context.Context, inv *script.Invoke) (engine.Result, []value.RuntimeValue, error) {
	h, err := r.reg.Resolve(inv.Module)
	if err != nil {
		return engine.Result{}, nil, err
	}

	if r.x.isolate {
		snap, err := r.x.gw.Snapshot(ctx, h)
		if err != nil {
			return engine.Result{}, nil, err
		}
		defer r.x.gw.DestroySnapshot(ctx, snap)
		h = snap
	}

	stack := r.x.gw.Stack(h)
	if stack == nil {
		return engine.Result{}, nil, errors.New(errors.PhaseInvoke, errors.KindInvalidHandle).
			Detail("no value stack for handle %d", h).
			Build()
	}
	base := stack.Len()
	defer stack.SetLen(base)

	for _, lit := range inv.Args {
		v, err := value.Encode(lit)
		if err != nil {
			return engine.Result{}, nil, err
		}
		if err := stack.Push(v); err != nil {
			return engine.Result{}, nil, err
		}
	}

	idx := r.x.gw.ExportIndex(ctx, h, inv.Field)
	if idx == engine.NotFound {
		return engine.Result{}, nil, errors.LookupError(inv.Field)
	}

	res := r.x.gw.Invoke(ctx, h, idx)
	var results []value.RuntimeValue
	for i := base; i < stack.Len(); i++ {
		results = append(results, stack.Slot(i))
	}
	r.log.Debug("invoked",
		zap.String("call", inv.String()),
		zap.Stringer("status", res.Status),
		zap.Int("results", len(results)))
	return res, results, nil
}
