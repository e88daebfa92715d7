// Package errors defines the coded domain errors shared by the tagging,
// search and administration components.
//
// Components return typed errors and request boundaries translate them into
// short user-facing replies:
//
//	if errors.Is(err, errors.ErrNotAuthorized) {
//	    reply(strings.TagNotAuthorized)
//	}
//
// Error details and causes are for logs only and are never sent to users.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Re-export standard library functions for convenience.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	Join   = errors.Join
)

// Code is a machine-readable error code.
type Code string

const (
	CodeNotAuthorized     Code = "NOT_AUTHORIZED"
	CodeUntaggable        Code = "UNTAGGABLE"
	CodeNoTags            Code = "NO_TAGS"
	CodeResolutionFailed  Code = "RESOLUTION_FAILED"
	CodeInvalidSecret     Code = "INVALID_SECRET"
	CodeNotRegistered     Code = "NOT_REGISTERED"
	CodeAlreadyRegistered Code = "ALREADY_REGISTERED"
	CodeUsernameMissing   Code = "USERNAME_MISSING"
	CodeStoreUnavailable  Code = "STORE_UNAVAILABLE"
	CodeAmbiguousUsername Code = "AMBIGUOUS_USERNAME"
)

// HTTPStatus returns the HTTP status the admin API uses for the code.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeNotRegistered:
		return http.StatusNotFound
	case CodeAlreadyRegistered, CodeAmbiguousUsername:
		return http.StatusConflict
	case CodeInvalidSecret:
		return http.StatusUnauthorized
	case CodeNotAuthorized:
		return http.StatusForbidden
	case CodeUntaggable, CodeNoTags, CodeUsernameMissing:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Error is a domain error with a code, message, and optional details.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches any *Error carrying the same Code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// HTTPStatus returns the HTTP status code for this error.
func (e *Error) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

// WithDetails returns a copy of e carrying details.
func (e *Error) WithDetails(details any) *Error {
	return &Error{Code: e.Code, Message: e.Message, Details: details, cause: e.cause}
}

// WithCause returns a copy of e wrapping err.
func (e *Error) WithCause(err error) *Error {
	return &Error{Code: e.Code, Message: e.Message, Details: e.Details, cause: err}
}

// Sentinel errors for use with errors.Is().
var (
	ErrNotAuthorized     = &Error{Code: CodeNotAuthorized, Message: "not authorized to tag"}
	ErrUntaggable        = &Error{Code: CodeUntaggable, Message: "sticker is not part of a sticker set"}
	ErrNoTags            = &Error{Code: CodeNoTags, Message: "no tags given"}
	ErrResolutionFailed  = &Error{Code: CodeResolutionFailed, Message: "sticker resolution failed"}
	ErrInvalidSecret     = &Error{Code: CodeInvalidSecret, Message: "invalid secret"}
	ErrNotRegistered     = &Error{Code: CodeNotRegistered, Message: "user is not registered"}
	ErrAlreadyRegistered = &Error{Code: CodeAlreadyRegistered, Message: "user is already registered"}
	ErrUsernameMissing   = &Error{Code: CodeUsernameMissing, Message: "username is required"}
	ErrStoreUnavailable  = &Error{Code: CodeStoreUnavailable, Message: "store unavailable"}
	ErrAmbiguousUsername = &Error{Code: CodeAmbiguousUsername, Message: "username matches several users"}
)

// NotAuthorized creates a not authorized error.
func NotAuthorized(msg string) *Error {
	return &Error{Code: CodeNotAuthorized, Message: msg}
}

// Untaggable creates an untaggable error.
func Untaggable(msg string) *Error {
	return &Error{Code: CodeUntaggable, Message: msg}
}

// NoTags creates a no tags error.
func NoTags(msg string) *Error {
	return &Error{Code: CodeNoTags, Message: msg}
}

// ResolutionFailed creates a resolution failure, optionally wrapping the store error.
func ResolutionFailed(msg string, cause error) *Error {
	return &Error{Code: CodeResolutionFailed, Message: msg, cause: cause}
}

// InvalidSecret creates an invalid secret error.
func InvalidSecret() *Error {
	return &Error{Code: CodeInvalidSecret, Message: ErrInvalidSecret.Message}
}

// NotRegistered creates a not registered error.
func NotRegistered(msg string) *Error {
	return &Error{Code: CodeNotRegistered, Message: msg}
}

// NotRegisteredf creates a not registered error with formatted message.
func NotRegisteredf(format string, args ...any) *Error {
	return &Error{Code: CodeNotRegistered, Message: fmt.Sprintf(format, args...)}
}

// AlreadyRegistered creates an already registered error.
func AlreadyRegistered(msg string) *Error {
	return &Error{Code: CodeAlreadyRegistered, Message: msg}
}

// UsernameMissing creates a username missing error.
func UsernameMissing(msg string) *Error {
	return &Error{Code: CodeUsernameMissing, Message: msg}
}

// AmbiguousUsername creates an ambiguous username error.
func AmbiguousUsername(msg string) *Error {
	return &Error{Code: CodeAmbiguousUsername, Message: msg}
}

// StoreUnavailable wraps an unclassified store error.
func StoreUnavailable(err error) *Error {
	return &Error{Code: CodeStoreUnavailable, Message: ErrStoreUnavailable.Message, cause: err}
}

// Wrap wraps an error with a code and message.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, cause: err}
}

// Wrapf wraps an error with a code and formatted message.
func Wrapf(err error, code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), cause: err}
}

// CodeOf returns the code carried by err, or CodeStoreUnavailable when err is
// not a domain error.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeStoreUnavailable
}
