// Package toolerrors provides structured error types for tool invocation failures.
// ToolError preserves error chains and supports errors.Is/As while maintaining
// serialization compatibility for agent-as-tool scenarios.
package toolerrors

import (
	"errors"
	"fmt"
)

// Kind classifies a ToolError for retry and routing decisions. The loop and
// dispatcher branch on Kind rather than on message text.
type Kind string

const (
	// KindValidation marks a tool input that failed JSON-Schema validation.
	KindValidation Kind = "validation"
	// KindToolNotFound marks a plan step naming an unregistered tool.
	KindToolNotFound Kind = "tool_not_found"
	// KindToolExecution marks a failure raised by the tool body itself.
	KindToolExecution Kind = "tool_execution"
	// KindExternal marks a failure surfaced by an externally-resolved tool call.
	KindExternal Kind = "external"
	// KindPlanning marks a failure produced while forming or decoding a plan.
	KindPlanning Kind = "planning"
	// KindStorage marks a failure persisting or loading state.
	KindStorage Kind = "storage"
	// KindConfiguration marks a failure caused by invalid runtime configuration.
	KindConfiguration Kind = "configuration"
	// KindCancellation marks a failure caused by run cancellation.
	KindCancellation Kind = "cancellation"
	// KindBudgetExhausted marks a failure caused by exceeding an iteration,
	// time, or tool-call budget.
	KindBudgetExhausted Kind = "budget_exhausted"
)

// ToolError represents a structured tool failure that preserves message and causal
// context while still implementing the standard error interface. Tool errors may be
// nested via Cause to retain rich diagnostics across retries and agent-as-tool hops.
type ToolError struct {
	// Message is the human-readable summary of the failure.
	Message string
	// Kind classifies the failure. Empty is treated as KindToolExecution by
	// callers that need a default.
	Kind Kind
	// Cause links to the underlying tool error, enabling error chains with errors.Is/As.
	Cause *ToolError
}

// New constructs a ToolError with the provided message. Use when the failure does not
// wrap an underlying error but still requires structured reporting.
func New(message string) *ToolError {
	if message == "" {
		message = "tool error"
	}
	return &ToolError{Message: message}
}

// NewKind constructs a ToolError with an explicit Kind.
func NewKind(kind Kind, message string) *ToolError {
	e := New(message)
	e.Kind = kind
	return e
}

// NewWithCause constructs a ToolError that wraps an underlying error. The cause is
// converted into a ToolError chain so error metadata survives serialization while still
// supporting errors.Is/As through Unwrap.
func NewWithCause(message string, cause error) *ToolError {
	if message == "" && cause != nil {
		message = cause.Error()
	}
	return &ToolError{
		Message: message,
		Cause:   FromError(cause),
	}
}

// FromError converts an arbitrary error into a ToolError chain.
func FromError(err error) *ToolError {
	if err == nil {
		return nil
	}
	var te *ToolError
	if errors.As(err, &te) {
		return te
	}
	return &ToolError{
		Message: err.Error(),
		Cause:   FromError(errors.Unwrap(err)),
	}
}

// Errorf formats according to a format specifier and returns the string as a ToolError.
func Errorf(format string, args ...any) *ToolError {
	return New(fmt.Sprintf(format, args...))
}

// Error implements the error interface.
func (e *ToolError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

// Unwrap returns the underlying tool error to support errors.Is/As.
func (e *ToolError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// EffectiveKind returns e.Kind, falling back to the nearest Cause with a
// non-empty Kind, and finally to KindToolExecution.
func (e *ToolError) EffectiveKind() Kind {
	for cur := e; cur != nil; cur = cur.Cause {
		if cur.Kind != "" {
			return cur.Kind
		}
	}
	return KindToolExecution
}
