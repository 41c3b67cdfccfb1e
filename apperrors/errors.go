package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for the HTTP and realtime boundaries.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindDuplicateKey
	KindCast
	KindAuthentication
	KindAuthorization
	KindNotFound
	KindInvalidState
	KindUnavailable
)

// Error codes carried in the response envelope.
const (
	CodeValidation     = "VALIDATION_ERROR"
	CodeDuplicateKey   = "DUPLICATE_KEY"
	CodeCast           = "INVALID_ID"
	CodeUnauthorized   = "UNAUTHORIZED"
	CodeForbidden      = "FORBIDDEN"
	CodeNotFound       = "NOT_FOUND"
	CodeInvalidState   = "INVALID_STATE"
	CodeAlreadyApplied = "ALREADY_APPLIED"
	CodeUnavailable    = "SERVICE_UNAVAILABLE"
	CodeInternal       = "INTERNAL_ERROR"
)

// MessageInternal is the only message ever shown for unclassified failures.
const MessageInternal = "Something went wrong"

// Error is a classified application error.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches two *Error values by Kind and Code, so sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil {
		return false
	}
	return e.Kind == t.Kind && e.Code == t.Code
}

// Sentinels for errors.Is checks. Messages on returned errors may differ.
var (
	ErrNotFound       = &Error{Kind: KindNotFound, Code: CodeNotFound}
	ErrForbidden      = &Error{Kind: KindAuthorization, Code: CodeForbidden}
	ErrInvalidState   = &Error{Kind: KindInvalidState, Code: CodeInvalidState}
	ErrAlreadyApplied = &Error{Kind: KindInvalidState, Code: CodeAlreadyApplied}
	ErrUnauthorized   = &Error{Kind: KindAuthentication, Code: CodeUnauthorized}
	ErrValidation     = &Error{Kind: KindValidation, Code: CodeValidation}
	ErrDuplicateKey   = &Error{Kind: KindDuplicateKey, Code: CodeDuplicateKey}
	ErrCast           = &Error{Kind: KindCast, Code: CodeCast}
	ErrUnavailable    = &Error{Kind: KindUnavailable, Code: CodeUnavailable}
)

func Validation(message string) *Error {
	return &Error{Kind: KindValidation, Code: CodeValidation, Message: message}
}

func DuplicateKey(field, value string) *Error {
	return &Error{
		Kind:    KindDuplicateKey,
		Code:    CodeDuplicateKey,
		Message: fmt.Sprintf("%s %q is already registered", field, value),
	}
}

func Cast(field, value string) *Error {
	return &Error{
		Kind:    KindCast,
		Code:    CodeCast,
		Message: fmt.Sprintf("Invalid value %q for field %s", value, field),
	}
}

func Unauthorized(message string) *Error {
	return &Error{Kind: KindAuthentication, Code: CodeUnauthorized, Message: message}
}

func Forbidden(message string) *Error {
	return &Error{Kind: KindAuthorization, Code: CodeForbidden, Message: message}
}

func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Code: CodeNotFound, Message: message}
}

func InvalidState(message string) *Error {
	return &Error{Kind: KindInvalidState, Code: CodeInvalidState, Message: message}
}

func AlreadyApplied(message string) *Error {
	return &Error{Kind: KindInvalidState, Code: CodeAlreadyApplied, Message: message}
}

func Unavailable(message string) *Error {
	return &Error{Kind: KindUnavailable, Code: CodeUnavailable, Message: message}
}

// Internal wraps an unexpected failure. The cause is kept for logs only.
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Code: CodeInternal, Message: MessageInternal, Err: err}
}

// From classifies any error. Unknown errors become Internal.
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

// HTTPStatus maps a kind to its response status.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindValidation, KindDuplicateKey, KindCast, KindInvalidState:
		return http.StatusBadRequest
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindAuthorization:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
