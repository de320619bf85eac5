package toolcall

import (
	"errors"
	"fmt"
	"reflect"
)

// Sentinel errors. Use errors.Is to check.
var (
	// ErrToolNotFound is returned by the registry for an unknown tool name.
	ErrToolNotFound = errors.New("tool not found")
	// ErrInvalidOperation is returned when ExecuteSync is called on an
	// asynchronous tool.
	ErrInvalidOperation = errors.New("invalid operation for this tool")
	// ErrCancelled is returned when cooperative cancellation wins the race
	// against an in-flight callable.
	ErrCancelled = errors.New("operation cancelled")
	// ErrValidation wraps signature-schema validation failures.
	ErrValidation = errors.New("validation failed")
	// ErrShutdown is returned for calls arriving after Registry.Shutdown.
	ErrShutdown = errors.New("registry is shutting down")
	// ErrStreamAborted wraps an error returned by a stream yield callback.
	ErrStreamAborted = errors.New("stream aborted by consumer")
)

// BindError reports a failure to turn raw argument text into a typed
// argument vector: malformed JSON after repair, wrong root shape, a missing
// required parameter, or a length-limit violation. Raw carries the offending
// input so the orchestrator can echo it back to the model.
type BindError struct {
	Raw    string
	Reason string
	Err    error // optional cause (parse error, CoercionError, ErrValidation)
}

func (e *BindError) Error() string {
	return fmt.Sprintf("argument binding failed: %s", e.Reason)
}

// Unwrap supports errors.Is/errors.As on the underlying cause.
func (e *BindError) Unwrap() error { return e.Err }

// CoercionError reports that a supplied value has no viable conversion to a
// parameter's target type. Param is filled by the binder; it is empty when
// the coercion was requested directly.
type CoercionError struct {
	Param  string
	Target reflect.Type
	Value  any
	Err    error
}

func (e *CoercionError) Error() string {
	if e.Param != "" {
		return fmt.Sprintf("cannot coerce value %v into %s for parameter %q", e.Value, e.Target, e.Param)
	}
	return fmt.Sprintf("cannot coerce value %v into %s", e.Value, e.Target)
}

func (e *CoercionError) Unwrap() error { return e.Err }

// InvocationError reports that the callable itself raised. The original
// error is preserved as the cause and the tool name is attached.
type InvocationError struct {
	Tool string
	Err  error
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("tool %q failed: %v", e.Tool, e.Err)
}

func (e *InvocationError) Unwrap() error { return e.Err }

// IsBindError returns true if err is or wraps a BindError.
func IsBindError(err error) bool {
	var be *BindError
	return errors.As(err, &be)
}

// IsCoercionError returns true if err is or wraps a CoercionError.
func IsCoercionError(err error) bool {
	var ce *CoercionError
	return errors.As(err, &ce)
}

// IsInvocationError returns true if err is or wraps an InvocationError.
func IsInvocationError(err error) bool {
	var ie *InvocationError
	return errors.As(err, &ie)
}

// panicError wraps a recovered panic value; used by Tool, Registry, and the
// WithRecovery decorator.
type panicError struct{ p any }

func (e *panicError) Error() string {
	return "panic: " + fmt.Sprint(e.p)
}
