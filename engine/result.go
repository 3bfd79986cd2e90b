package engine

import "strings"

// Status is the outcome class of an invocation.
type Status uint8

const (
	StatusOK Status = iota
	StatusErr
	StatusErrNest
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusErr:
		return "err"
	case StatusErrNest:
		return "err_nest"
	}
	return "unknown"
}

// Result mirrors the engine's fault-reporting chain. A StatusErrNest result
// wraps the fault that caused it.
type Result struct {
	Cause   *Result
	Message string
	Status  Status
}

// NewOK returns a successful result.
func NewOK() Result {
	return Result{Status: StatusOK}
}

// NewErr returns a leaf failure.
func NewErr(msg string) Result {
	return Result{Status: StatusErr, Message: msg}
}

// NewNest wraps cause with an additional message.
func NewNest(cause Result, msg string) Result {
	return Result{Status: StatusErrNest, Message: msg, Cause: &cause}
}

// IsOK reports whether the invocation succeeded.
func (r Result) IsOK() bool {
	return r.Status == StatusOK
}

// Chain returns the messages from the outermost fault to the root cause.
func (r Result) Chain() []string {
	var msgs []string
	for cur := &r; cur != nil && cur.Status != StatusOK; cur = cur.Cause {
		msgs = append(msgs, cur.Message)
	}
	return msgs
}

// Error renders the full chain as "outer: inner: root".
func (r Result) Error() string {
	if r.IsOK() {
		return "ok"
	}
	return strings.Join(r.Chain(), ": ")
}

// Unwrap exposes the nested cause to errors.Is and errors.As.
func (r Result) Unwrap() error {
	if r.Cause == nil || r.Cause.IsOK() {
		return nil
	}
	return *r.Cause
}

// Err returns r as an error, or nil when it succeeded.
func (r Result) Err() error {
	if r.IsOK() {
		return nil
	}
	return r
}
