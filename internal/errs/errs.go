// Package errs defines the typed failure kinds reported by the frame pipeline.
//
// Every failure that crosses a package boundary is an *Error carrying a Code.
// Callers match kinds with errors.Is against the exported sentinels:
//
//	if errors.Is(err, errs.ErrUnknownHandle) { ... }
//
// Matching compares codes only, so wrapped errors with extra detail still
// match their sentinel.
package errs

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Code categorizes pipeline errors.
type Code string

const (
	// CodeUnknownHandle indicates a stale, retired or never-issued handle.
	CodeUnknownHandle Code = "UNKNOWN_HANDLE"

	// CodeUnknownStage indicates a stage name that is not registered.
	CodeUnknownStage Code = "UNKNOWN_STAGE"

	// CodeInvalidSubset indicates subset ids that are not members of a batch.
	CodeInvalidSubset Code = "INVALID_SUBSET"

	// CodeMalformedGeometry indicates a negative width or height.
	CodeMalformedGeometry Code = "MALFORMED_GEOMETRY"

	// CodeNotFound indicates a missing attribute, attribute value or object.
	CodeNotFound Code = "NOT_FOUND"

	// CodeStageKindMismatch indicates a frame sent to a batch stage or vice versa.
	CodeStageKindMismatch Code = "STAGE_KIND_MISMATCH"

	// CodeDuplicateStage indicates a stage name registered twice.
	CodeDuplicateStage Code = "DUPLICATE_STAGE"

	// CodeInvalidArgument indicates an argument outside its valid domain.
	CodeInvalidArgument Code = "INVALID_ARGUMENT"

	// CodeIDCollision indicates an object id already present in a frame.
	CodeIDCollision Code = "ID_COLLISION"
)

// Sentinels for errors.Is matching.
var (
	ErrUnknownHandle     = &Error{Code: CodeUnknownHandle}
	ErrUnknownStage      = &Error{Code: CodeUnknownStage}
	ErrInvalidSubset     = &Error{Code: CodeInvalidSubset}
	ErrMalformedGeometry = &Error{Code: CodeMalformedGeometry}
	ErrNotFound          = &Error{Code: CodeNotFound}
	ErrStageKindMismatch = &Error{Code: CodeStageKindMismatch}
	ErrDuplicateStage    = &Error{Code: CodeDuplicateStage}
	ErrInvalidArgument   = &Error{Code: CodeInvalidArgument}
	ErrIDCollision       = &Error{Code: CodeIDCollision}
)

// Error is a pipeline failure with a machine-readable code.
type Error struct {
	// Code identifies the error category.
	Code Code

	// Message is a human-readable description.
	Message string

	// Details carries identifiers for diagnostics (handle, stage, ...).
	Details map[string]string
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Code))
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if len(e.Details) > 0 {
		keys := make([]string, 0, len(e.Details))
		for k := range e.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString(" (")
		for i, k := range keys {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s=%s", k, e.Details[k])
		}
		b.WriteString(")")
	}
	return b.String()
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// New creates an Error with a formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// With returns a copy of e with an extra detail attached.
func (e *Error) With(key, value string) *Error {
	details := make(map[string]string, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	return &Error{Code: e.Code, Message: e.Message, Details: details}
}

// CodeOf extracts the code from err. Returns "" for nil or foreign errors.
// Uses errors.As to handle wrapped errors.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UnknownHandle creates an UNKNOWN_HANDLE error for handle h.
func UnknownHandle(h int64) *Error {
	return New(CodeUnknownHandle, "handle is not in any stage").With("handle", fmt.Sprintf("%d", h))
}

// UnknownStage creates an UNKNOWN_STAGE error for the named stage.
func UnknownStage(name string) *Error {
	return New(CodeUnknownStage, "stage is not registered").With("stage", name)
}
