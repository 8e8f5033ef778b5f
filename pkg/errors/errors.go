// SPDX-License-Identifier: Apache-2.0

// Package errors provides typed error handling with rich context for the
// behavior-tree agent runtime.
package errors

import (
	"encoding/json"
	"fmt"
)

// ErrorCode classifies runtime errors for monitoring and recovery.
type ErrorCode string

const (
	// CodeInternal indicates an internal system error.
	CodeInternal ErrorCode = "INTERNAL_ERROR"

	// CodeConfig indicates missing or invalid configuration, such as absent
	// completion-service credentials.
	CodeConfig ErrorCode = "CONFIG_ERROR"

	// CodeRateLimit indicates the completion service rejected a call for
	// rate limiting. Recoverable until the retry budget is exhausted.
	CodeRateLimit ErrorCode = "RATE_LIMITED"

	// CodeLLMError indicates any non-rate-limit completion service failure.
	CodeLLMError ErrorCode = "LLM_ERROR"

	// CodeUnknownTool indicates a tool call referenced an unregistered tool.
	CodeUnknownTool ErrorCode = "UNKNOWN_TOOL"

	// CodeInvalidArguments indicates tool-call arguments did not parse as a
	// flat key/value object.
	CodeInvalidArguments ErrorCode = "INVALID_ARGUMENTS"

	// CodeToolFailure indicates a tool implementation returned an error.
	CodeToolFailure ErrorCode = "TOOL_FAILURE"

	// CodeTemplate indicates a missing template or unresolved placeholder.
	CodeTemplate ErrorCode = "TEMPLATE_ERROR"

	// CodeBlackboardAccess indicates a read or write without a declared
	// capability. This is a programming error, not a runtime data error.
	CodeBlackboardAccess ErrorCode = "BLACKBOARD_ACCESS"

	// CodeNotFound indicates a resource was not found.
	CodeNotFound ErrorCode = "NOT_FOUND"

	// CodeTimeout indicates an operation exceeded its iteration or time budget.
	CodeTimeout ErrorCode = "TIMEOUT"
)

// Error is a typed error with context for observability. It implements the
// error interface and can be unwrapped with errors.As().
type Error struct {
	Code        ErrorCode
	Message     string
	Err         error
	Context     map[string]interface{}
	Recoverable bool
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements errors.Unwrap for error chain traversal.
func (e *Error) Unwrap() error {
	return e.Err
}

// MarshalJSON implements json.Marshaler for structured logging.
func (e *Error) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		Message     string                 `json:"message"`
		Code        string                 `json:"code"`
		Recoverable bool                   `json:"recoverable"`
		Context     map[string]interface{} `json:"context,omitempty"`
	}{
		Message:     e.Error(),
		Code:        string(e.Code),
		Recoverable: e.Recoverable,
		Context:     e.Context,
	})
}

// New creates a new Error with the given code, message, and cause.
func New(code ErrorCode, msg string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: msg,
		Err:     cause,
		Context: make(map[string]interface{}),
	}
}

// WithContext adds a key-value pair to the error context.
// Returns the error for method chaining.
func (e *Error) WithContext(key string, value interface{}) *Error {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithRecoverable sets whether the error can be recovered from.
// Returns the error for method chaining.
func (e *Error) WithRecoverable(recoverable bool) *Error {
	e.Recoverable = recoverable
	return e
}

// CodeOf returns the error code of err, or CodeInternal for untyped errors.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	if e, ok := err.(*Error); ok {
		return e.Code
	}
	return CodeInternal
}

// HasCode reports whether err is a typed error with the given code, walking
// the unwrap chain.
func HasCode(err error, code ErrorCode) bool {
	for err != nil {
		if e, ok := err.(*Error); ok && e.Code == code {
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// AsError attempts to convert an error to a typed Error. Unknown errors are
// wrapped with CodeInternal.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	if e, ok := err.(*Error); ok {
		return e
	}
	return New(CodeInternal, "wrapped error", err)
}
