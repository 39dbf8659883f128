// Package domainerrors defines the typed error taxonomy shared by all
// modules. Services return these instead of raw errors so the HTTP layer can
// translate codes to status responses without string matching.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a domain error for transport mapping and diagnostics.
type Code string

const (
	// CodeUnauthorized means no identity or an invalid credential (401).
	CodeUnauthorized Code = "unauthorized"
	// CodeForbidden means the identity is known but lacks the required role
	// or does not own the addressed resource (403).
	CodeForbidden Code = "forbidden"
	// CodeTenantMismatch means an explicit tenant header disagrees with the
	// caller's assigned tenant (403). Distinct from CodeForbidden so tests
	// and audit can tell the two apart; both render as FORBIDDEN.
	CodeTenantMismatch Code = "tenant_mismatch"
	// CodeTenantRequired means an anonymous call omitted the mandatory
	// tenant header (403).
	CodeTenantRequired Code = "tenant_required"
	// CodeNotFound covers both a missing resource and a resource owned by a
	// different tenant. The two are intentionally indistinguishable to the
	// caller.
	CodeNotFound Code = "not_found"
	CodeValidation Code = "validation"
	CodeConflict   Code = "conflict"
	CodeInternal   Code = "internal"
)

// Error carries a code plus a human-readable message. It supports wrapping so
// store errors keep their cause chain.
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

// New constructs a domain error with the given code.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf constructs a domain error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, message string) error {
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf extracts the code from err, defaulting to CodeInternal.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// ToHTTPStatus maps a code to its HTTP status. Tenant mismatches and missing
// tenant headers are 403-class: the caller is authenticated (or addressable)
// but the request is outside its boundary.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden, CodeTenantMismatch, CodeTenantRequired:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeValidation:
		return http.StatusBadRequest
	case CodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// PublicCode maps a code to the stable identifier exposed in JSON error
// envelopes. Internal distinctions (mismatch vs. forbidden) collapse here so
// responses never leak why a cross-tenant request was rejected.
func PublicCode(code Code) string {
	switch code {
	case CodeUnauthorized:
		return "UNAUTHORIZED"
	case CodeForbidden, CodeTenantMismatch, CodeTenantRequired:
		return "FORBIDDEN"
	case CodeNotFound:
		return "NOT_FOUND"
	case CodeValidation:
		return "BAD_REQUEST"
	case CodeConflict:
		return "CONFLICT"
	default:
		return "INTERNAL"
	}
}
