package errors

import (
	stderrors "errors"
	"fmt"
	"strconv"
	"strings"
)

// Phase indicates where in a script run the error occurred
type Phase string

const (
	PhaseParse   Phase = "parse"   // script or literal decoding
	PhaseConfig  Phase = "config"  // harness configuration
	PhaseLoad    Phase = "load"    // module loading
	PhaseResolve Phase = "resolve" // registry lookups
	PhaseLookup  Phase = "lookup"  // export resolution
	PhaseInvoke  Phase = "invoke"  // engine invocation
	PhaseAssert  Phase = "assert"  // result comparison
)

// Kind categorizes the error
type Kind string

const (
	KindParse         Kind = "parse_error"
	KindUnknownModule Kind = "unknown_module"
	KindLookup        Kind = "lookup_error"
	KindEngineFault   Kind = "engine_fault"
	KindMismatch      Kind = "assertion_mismatch"
	KindInvalidHandle Kind = "invalid_handle"
	KindUnsupported   Kind = "unsupported"
	KindStack         Kind = "stack"
	KindIO            Kind = "io"
)

// Error is the structured error type used throughout the harness
type Error struct {
	Cause   error
	Phase   Phase
	Kind    Kind
	TestSet string
	Field   string
	Detail  string
	Line    int
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.TestSet != "" {
		b.WriteString(" in ")
		b.WriteString(e.TestSet)
		if e.Line > 0 {
			b.WriteByte(':')
			b.WriteString(strconv.Itoa(e.Line))
		}
	}

	if e.Field != "" {
		b.WriteString(" field ")
		b.WriteString(strconv.Quote(e.Field))
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// At sets the test set and source line the error belongs to
func (b *Builder) At(testSet string, line int) *Builder {
	b.err.TestSet = testSet
	b.err.Line = line
	return b
}

// Field sets the export field name
func (b *Builder) Field(name string) *Builder {
	b.err.Field = name
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// WithLocation returns a copy of err carrying the test set and line when err
// is an *Error without a location. Other errors are returned unchanged.
func WithLocation(err error, testSet string, line int) error {
	e, ok := err.(*Error)
	if !ok || e.TestSet != "" {
		return err
	}
	cp := *e
	cp.TestSet = testSet
	cp.Line = line
	return &cp
}

// Convenience constructors for the harness error taxonomy

// ParseError creates a malformed script or literal error
func ParseError(what string, cause error) *Error {
	return &Error{
		Phase:  PhaseParse,
		Kind:   KindParse,
		Detail: fmt.Sprintf("parse %s", what),
		Cause:  cause,
	}
}

// ParseErrorf creates a parse error without an underlying cause
func ParseErrorf(format string, args ...any) *Error {
	return &Error{
		Phase:  PhaseParse,
		Kind:   KindParse,
		Detail: fmt.Sprintf(format, args...),
	}
}

// UnknownModule creates an error for an action naming an unregistered module
func UnknownModule(name string) *Error {
	detail := "no default module loaded"
	if name != "" {
		detail = fmt.Sprintf("module %q not registered", name)
	}
	return &Error{
		Phase:  PhaseResolve,
		Kind:   KindUnknownModule,
		Detail: detail,
	}
}

// LookupError creates an error for an export name the engine cannot resolve
func LookupError(field string) *Error {
	return &Error{
		Phase:  PhaseLookup,
		Kind:   KindLookup,
		Field:  field,
		Detail: "export not found",
	}
}

// EngineFault wraps a failed invocation, keeping the engine's cause chain
func EngineFault(field string, cause error) *Error {
	return &Error{
		Phase:  PhaseInvoke,
		Kind:   KindEngineFault,
		Field:  field,
		Detail: "engine reported failure",
		Cause:  cause,
	}
}

// InvalidHandle creates an error for a load that produced no module
func InvalidHandle(filename string) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindInvalidHandle,
		Detail: fmt.Sprintf("engine returned invalid handle for %s", filename),
	}
}

// Load creates a module loading error
func Load(filename string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindIO,
		Detail: fmt.Sprintf("load %s", filename),
		Cause:  cause,
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// Config creates a configuration error
func Config(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseConfig,
		Kind:   KindParse,
		Detail: detail,
		Cause:  cause,
	}
}

// Stack creates a value stack error
func Stack(detail string, args ...any) *Error {
	return &Error{
		Phase:  PhaseInvoke,
		Kind:   KindStack,
		Detail: fmt.Sprintf(detail, args...),
	}
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return stderrors.As(err, target)
}
