package booking

import (
	"errors"
	"fmt"
)

// Kind classifies engine failures.
type Kind string

const (
	KindConfiguration    Kind = "configuration"
	KindCredential       Kind = "credential"
	KindValidation       Kind = "validation"
	KindConflict         Kind = "conflict"
	KindExternalProvider Kind = "external_provider"
	KindPersistence      Kind = "persistence"
	KindRouting          Kind = "routing"
	KindNotFound         Kind = "not_found"
)

// Error codes that mean the business has to reconnect its calendar.
const (
	CodeCalendarDisabled    = "calendar_disabled"
	CodeNeedsReauth         = "needs_reauth"
	CodeMissingRefreshToken = "missing_refresh_token"
	CodeBusinessNotFound    = "not_found"
	CodeAuthRejected        = "auth_rejected"
)

// Error is the error type returned by the engine.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// AuthRequired reports whether the error asks for the calendar to be
// re-authorized.
func (e *Error) AuthRequired() bool {
	switch e.Code {
	case CodeNeedsReauth, CodeMissingRefreshToken, CodeAuthRejected:
		return true
	}
	return false
}

func newError(kind Kind, code string, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Code: code, Message: fmt.Sprintf(format, args...), Err: err}
}

// ConfigurationError reports missing or placeholder client settings.
func ConfigurationError(code string, err error, format string, args ...any) *Error {
	return newError(KindConfiguration, code, err, format, args...)
}

// CredentialError reports an unusable calendar credential.
func CredentialError(code string, format string, args ...any) *Error {
	return newError(KindCredential, code, nil, format, args...)
}

// ValidationError reports bad or missing input.
func ValidationError(code string, format string, args ...any) *Error {
	return newError(KindValidation, code, nil, format, args...)
}

// ConflictError reports a slot that is full under the overlap policy.
func ConflictError(code string, format string, args ...any) *Error {
	return newError(KindConflict, code, nil, format, args...)
}

// ExternalProviderError wraps a calendar provider failure.
func ExternalProviderError(code string, err error, format string, args ...any) *Error {
	return newError(KindExternalProvider, code, err, format, args...)
}

// PersistenceError wraps a local store failure.
func PersistenceError(code string, err error, format string, args ...any) *Error {
	return newError(KindPersistence, code, err, format, args...)
}

// RoutingError reports an unknown operation name.
func RoutingError(format string, args ...any) *Error {
	return newError(KindRouting, "unknown_operation", nil, format, args...)
}

// NotFoundError reports a missing record.
func NotFoundError(code string, format string, args ...any) *Error {
	return newError(KindNotFound, code, nil, format, args...)
}

// KindOf returns the Kind of err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// CodeOf returns the Code of err, or "" when err is not an *Error.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
