package domain

import (
	"errors"
	"fmt"
)

// ErrorCode classifies failures surfaced by the publication core.
type ErrorCode string

const (
	// CodeNotFound indicates a requested asset or publication does not exist.
	CodeNotFound ErrorCode = "NOT_FOUND"
	// CodeValidationFailed indicates a publish attempt hit ERROR issues.
	CodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	// CodeLockUnavailable indicates a named lock is held by someone else.
	CodeLockUnavailable ErrorCode = "LOCK_UNAVAILABLE"
	// CodePreconditionFailed indicates storage moved under a locked operation.
	CodePreconditionFailed ErrorCode = "PRECONDITION_FAILED"
	// CodeExternalIDFailed indicates the external id issuer failed.
	CodeExternalIDFailed ErrorCode = "EXTERNAL_ID_FAILED"
	// CodeInvalidArgument indicates malformed caller input.
	CodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
	CodeUnknown         ErrorCode = "UNKNOWN"
)

// Sentinel errors wrapped by Error values.
var (
	ErrNotFound        = errors.New("not found")
	ErrLockUnavailable = errors.New("could not obtain lock")
	ErrPrecondition    = errors.New("precondition failed")
	ErrNoDraft         = errors.New("no draft")
)

// Error is a coded error with an optional cause.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

// NewErrorf builds a coded error wrapping cause.
func NewErrorf(code ErrorCode, cause error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Err: cause}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

// Unwrap exposes the cause.
func (e *Error) Unwrap() error { return e.Err }

// CodeOf returns the code of the first coded error in the chain, CodeUnknown
// otherwise. Bare sentinels map to their natural code.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	var coded *Error
	if errors.As(err, &coded) {
		return coded.Code
	}
	var vf *ValidationFailedError
	if errors.As(err, &vf) {
		return CodeValidationFailed
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrLockUnavailable):
		return CodeLockUnavailable
	case errors.Is(err, ErrPrecondition), errors.Is(err, ErrNoDraft):
		return CodePreconditionFailed
	}
	return CodeUnknown
}
