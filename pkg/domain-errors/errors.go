// Package domainerrors provides coded errors for the verification engine.
//
// Services return these so transports can translate failures into stable,
// locale-neutral identifiers without inspecting error strings. Stores return
// sentinel errors (pkg/platform/sentinel); services wrap them with a code at
// the boundary where the failure acquires domain meaning.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies a class of domain failure. Codes are part of the external
// contract: they appear verbatim in API responses and audit context.
type Code string

const (
	// Input errors: rejected immediately, nothing persisted, safe to retry
	// after the caller fixes the request.
	CodeInvalidInput      Code = "invalid_input"
	CodeInvalidCoordinate Code = "invalid_coordinate"
	CodeBadRequest        Code = "bad_request"
	CodeConsentRequired   Code = "consent_required"

	// Transient errors: retryable, never treated as fraud signals.
	CodeLocationUnavailable Code = "location_unavailable"
	CodePermissionDenied    Code = "permission_denied"
	CodeServiceDisabled     Code = "service_disabled"

	// Trust errors: not retryable inside the cooldown window.
	CodeUntrustedLocation Code = "untrusted_location"
	CodeCooldownActive    Code = "cooldown_active"

	// Rights-management errors: callers must retry; partial state is never
	// acceptable for erasure of personal records.
	CodeExportFailed  Code = "export_failed"
	CodeErasureFailed Code = "erasure_failed"

	CodeNotFound Code = "not_found"
	CodeInternal Code = "internal_error"
)

// Error carries a code, a human-oriented message, and an optional cause.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New constructs a coded error with no underlying cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying cause. The cause remains
// reachable through errors.Is/As chains.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

// HasCode reports whether err or anything it wraps carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	for errors.As(err, &de) {
		if de.Code == code {
			return true
		}
		err = de.cause
	}
	return false
}

// CodeOf returns the outermost code carried by err, or CodeInternal when err
// is not a coded error.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// ToHTTPStatus maps a code to the HTTP status the transport should emit.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeInvalidInput, CodeInvalidCoordinate, CodeBadRequest:
		return http.StatusBadRequest
	case CodeConsentRequired, CodePermissionDenied:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeCooldownActive:
		return http.StatusTooManyRequests
	case CodeUntrustedLocation:
		return http.StatusConflict
	case CodeLocationUnavailable, CodeServiceDisabled:
		return http.StatusServiceUnavailable
	case CodeExportFailed, CodeErasureFailed, CodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
