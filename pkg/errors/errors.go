package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation    Code = "VALIDATION_ERROR"
	CodeUnauthorized  Code = "UNAUTHORIZED"
	CodeForbidden     Code = "FORBIDDEN"
	CodeNotFound      Code = "NOT_FOUND"
	CodeConflict      Code = "CONFLICT"
	CodeStateConflict Code = "STATE_CONFLICT"
	CodeRateLimit     Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal      Code = "INTERNAL_ERROR"
	CodeDependency    Code = "DEPENDENCY_ERROR"
)

// Metadata is how the HTTP layer renders a Code. PublicMessage is used when
// the error carries no message of its own (and always for internal errors
// outside development). DetailsAllowed gates the "errors" field list.
type Metadata struct {
	HTTPStatus     int
	PublicMessage  string
	DetailsAllowed bool
}

var metadataByCode = map[Code]Metadata{
	CodeValidation:    {http.StatusBadRequest, "validation failed", true},
	CodeUnauthorized:  {http.StatusUnauthorized, "authentication required", false},
	CodeForbidden:     {http.StatusForbidden, "access denied", false},
	CodeNotFound:      {http.StatusNotFound, "resource not found", false},
	CodeConflict:      {http.StatusConflict, "conflict detected", false},
	CodeStateConflict: {http.StatusUnprocessableEntity, "state transition disallowed", true},
	CodeRateLimit:     {http.StatusTooManyRequests, "rate limit exceeded", false},
	CodeInternal:      {http.StatusInternalServerError, "internal server error", false},
	CodeDependency:    {http.StatusServiceUnavailable, "dependency unavailable", true},
}

func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

// Error is the typed error carried from services to the HTTP layer. Code picks
// the HTTP status; reason is the specific machine-readable code clients see
// (REPORT_NOT_FOUND, USER_EXISTS, ...) and falls back to Code when unset.
type Error struct {
	code    Code
	reason  string
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Wrap(code Code, err error, message string) *Error {
	if err == nil {
		return New(code, message)
	}
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

// Reason returns the wire-level error code.
func (e *Error) Reason() string {
	if e == nil {
		return string(CodeInternal)
	}
	if e.reason != "" {
		return e.reason
	}
	return string(e.code)
}

// WithReason returns a copy carrying the wire-level error code.
func (e *Error) WithReason(reason string) *Error {
	if e == nil {
		return nil
	}
	cp := *e
	cp.reason = reason
	return &cp
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

// WithDetails returns a copy carrying details, e.g. []types.FieldError.
func (e *Error) WithDetails(details any) *Error {
	if e == nil {
		return nil
	}
	cp := *e
	cp.details = details
	return &cp
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Reason(), e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Reason(), e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

func As(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// Is reports whether err carries the given wire-level reason.
func Is(err error, reason string) bool {
	typed := As(err)
	return typed != nil && typed.Reason() == reason
}
