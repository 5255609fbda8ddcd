// Package apperr defines the error taxonomy shared by services and the HTTP
// layer. Services return *Error values; the router's error handler turns them
// into status codes and JSON bodies.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Kind classifies an error for transport mapping.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindForbidden
	KindInvalidTransition
	KindRateLimited
	KindUnauthorized
	KindConflict
)

// HTTPStatus returns the status code used for the kind.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindValidation, KindInvalidTransition:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// FieldErrors maps a field name to its validation messages.
type FieldErrors map[string][]string

// Add appends a message for field.
func (f FieldErrors) Add(field, message string) {
	f[field] = append(f[field], message)
}

// Merge copies every message of other into f.
func (f FieldErrors) Merge(other FieldErrors) {
	for field, msgs := range other {
		f[field] = append(f[field], msgs...)
	}
}

// Empty reports whether no field has a message.
func (f FieldErrors) Empty() bool {
	return len(f) == 0
}

// Fields returns the field names in sorted order.
func (f FieldErrors) Fields() []string {
	names := make([]string, 0, len(f))
	for name := range f {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Error is a classified application error.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Fields  FieldErrors
	// RetryAfter is the number of seconds a rate-limited caller should wait.
	RetryAfter int
	cause      error
}

func (e *Error) Error() string {
	if len(e.Fields) > 0 {
		parts := make([]string, 0, len(e.Fields))
		for _, name := range e.Fields.Fields() {
			parts = append(parts, name+": "+strings.Join(e.Fields[name], "; "))
		}
		return fmt.Sprintf("%s: %s", e.Message, strings.Join(parts, ", "))
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap exposes the wrapped cause.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches any *Error carrying the same code, so sentinels compare equal to
// copies that carry extra detail such as RetryAfter.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code != "" && t.Code == e.Code
}

// Status returns the HTTP status for the error.
func (e *Error) Status() int {
	return e.Kind.HTTPStatus()
}

// New builds an error of the given kind.
func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// NotFound builds a KindNotFound error.
func NotFound(code, message string) *Error {
	return New(KindNotFound, code, message)
}

// Forbidden builds a KindForbidden error.
func Forbidden(code, message string) *Error {
	return New(KindForbidden, code, message)
}

// Unauthorized builds a KindUnauthorized error.
func Unauthorized(code, message string) *Error {
	return New(KindUnauthorized, code, message)
}

// Conflict builds a KindConflict error.
func Conflict(code, message string) *Error {
	return New(KindConflict, code, message)
}

// Validation builds a KindValidation error carrying field messages.
func Validation(fields FieldErrors) *Error {
	return &Error{Kind: KindValidation, Code: "validation_error", Message: "validation failed", Fields: fields}
}

// FieldError is a shortcut for a validation error on a single field.
func FieldError(field, message string) *Error {
	return Validation(FieldErrors{field: {message}})
}

// RateLimited builds a KindRateLimited error asking the caller to wait.
func RateLimited(code string, retryAfter int) *Error {
	return &Error{
		Kind:       KindRateLimited,
		Code:       code,
		Message:    fmt.Sprintf("please wait %d seconds before trying again", retryAfter),
		RetryAfter: retryAfter,
	}
}

// Internal wraps an unexpected failure.
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Code: "internal_error", Message: "internal error", cause: err}
}

// WithRetryAfter returns a copy of e reporting the given wait.
func (e *Error) WithRetryAfter(seconds int) *Error {
	cp := *e
	cp.RetryAfter = seconds
	cp.Message = fmt.Sprintf("%s; retry in %d seconds", e.Message, seconds)
	return &cp
}

// WithMessage returns a copy of e with a more specific message.
func (e *Error) WithMessage(format string, args ...any) *Error {
	cp := *e
	cp.Message = fmt.Sprintf(format, args...)
	return &cp
}

// Wrap returns a copy of e that also wraps cause.
func (e *Error) Wrap(cause error) *Error {
	cp := *e
	cp.cause = cause
	return &cp
}

// From extracts an *Error from err, wrapping anything else as internal.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal(err)
}
