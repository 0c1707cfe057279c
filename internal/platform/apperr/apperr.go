// Copyright (c) 2026 PgGate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package apperr defines the centralized error handling framework for PgGate.

It provides a rich error type that bridges the gap between low-level executor
and session-registry errors and the structured envelopes returned to clients.

Architecture:

  - AppError: A struct containing machine-readable ErrorCode and client-safe messages.
  - Taxonomy: One constructor per error kind the gateway can emit.
  - Mapping: Explicit mapping from AppError to HTTP status codes for the
    HTTP transport binding.

Every error that leaves a handler should be wrapped as an [AppError] to ensure
consistent responses. Errors are never retried automatically; each kind names
the action the caller can take.
*/
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError is the canonical error type for the PgGate core.
//
// It carries an HTTP status code, a machine-readable code, a client-safe
// message, and an optional slice of field-level detail records.
//
// # Security
//
// The Cause field is for server-side logging only and is never sent to clients,
// with one deliberate exception: DATABASE_ERROR surfaces the PostgreSQL message
// essentially verbatim, because the calling agent needs it to repair its SQL.
type AppError struct {
	// Code is a machine-readable error identifier (e.g. "UNKNOWN_SESSION").
	Code string `json:"code"`
	// Message is a human-readable description safe to return to the client.
	Message string `json:"error"`
	// HTTPStatus is the HTTP response status code used by the HTTP binding.
	HTTPStatus int `json:"-"`
	// Cause is the underlying error, used for server-side logging only.
	Cause error `json:"-"`
	// SQLState carries the PostgreSQL error code for DATABASE_ERROR responses.
	SQLState string `json:"sqlstate,omitempty"`
	// Details holds per-field detail records (validation failures, the
	// failing ordinal of a transaction batch).
	Details []FieldError `json:"details,omitempty"`
}

// FieldError represents a single field-level failure detail.
type FieldError struct {
	// Field is the parameter name (or indexed path) that failed.
	Field string `json:"field"`
	// Message is the human-readable description of the failure.
	Message string `json:"message"`
}

// Error implements the error interface. It returns the client-safe message.
func (e *AppError) Error() string { return e.Message }

// Unwrap allows [errors.Is] and [errors.As] to traverse the cause chain.
func (e *AppError) Unwrap() error { return e.Cause }

// # Safety & Session Errors

// SafetyCheckFailed creates the default-deny rejection for a write-class
// action invoked without transactional or autocommit intent.
//
// The message names both escape hatches; blind retries cannot succeed.
func SafetyCheckFailed(action string) *AppError {
	return &AppError{
		Code: "SAFETY_CHECK_FAILED",
		Message: fmt.Sprintf(
			"%s is a write operation and was rejected: supply session_id to run it inside an active transaction, or set autocommit=true to explicitly run it without one",
			action,
		),
		HTTPStatus: http.StatusForbidden,
	}
}

// SessionLimitExceeded creates the rejection for session begin while the
// registry is at capacity.
func SessionLimitExceeded(max int) *AppError {
	return &AppError{
		Code:       "SESSION_LIMIT_EXCEEDED",
		Message:    fmt.Sprintf("Session limit reached (%d concurrent transactions). Commit or roll back an existing session before beginning a new one", max),
		HTTPStatus: http.StatusConflict,
	}
}

// UnknownSession creates the rejection for a session_id that is not in the
// registry — never issued, already closed, or evicted by the TTL reaper.
func UnknownSession(id string) *AppError {
	return &AppError{
		Code:       "UNKNOWN_SESSION",
		Message:    fmt.Sprintf("Session %q does not exist or has expired. Begin a new transaction session", id),
		HTTPStatus: http.StatusNotFound,
	}
}

// MissingSessionID creates the rejection for a session-bound action invoked
// without a session_id parameter.
func MissingSessionID(action string) *AppError {
	return &AppError{
		Code:       "MISSING_SESSION_ID",
		Message:    fmt.Sprintf("%s requires a session_id", action),
		HTTPStatus: http.StatusBadRequest,
	}
}

// # Input Errors

// InvalidIdentifier creates the rejection for an identifier argument that
// failed sanitization.
func InvalidIdentifier(name, reason string) *AppError {
	return &AppError{
		Code:       "INVALID_IDENTIFIER",
		Message:    fmt.Sprintf("Invalid identifier %q: %s", name, reason),
		HTTPStatus: http.StatusBadRequest,
	}
}

// ValidationError creates the INVALID_PARAMETERS rejection emitted by the
// dispatch boundary, with optional per-field details.
func ValidationError(msg string, details ...FieldError) *AppError {
	return &AppError{
		Code:       "INVALID_PARAMETERS",
		Message:    msg,
		HTTPStatus: http.StatusBadRequest,
		Details:    details,
	}
}

// NotImplemented creates the rejection for a target or subaction not covered
// in this version.
func NotImplemented(what string) *AppError {
	return &AppError{
		Code:       "NOT_IMPLEMENTED",
		Message:    what + " is not implemented",
		HTTPStatus: http.StatusNotImplemented,
	}
}

// # Database & Server Errors

// Database wraps an error originating from PostgreSQL. The driver message is
// surfaced essentially verbatim; sqlstate carries the PostgreSQL error code
// when the driver provides one.
func Database(cause error, sqlstate string) *AppError {
	return &AppError{
		Code:       "DATABASE_ERROR",
		Message:    cause.Error(),
		HTTPStatus: http.StatusBadRequest,
		Cause:      cause,
		SQLState:   sqlstate,
	}
}

// Internal creates an opaque error for unexpected conditions (teardown races,
// bugs). The cause is stored for logging but is never sent to the client.
func Internal(cause error) *AppError {
	return &AppError{
		Code:       "INTERNAL_ERROR",
		Message:    "An unexpected error occurred",
		HTTPStatus: http.StatusInternalServerError,
		Cause:      cause,
	}
}

// # Helpers

// IsAppError reports whether err (or any error in its chain) is an [*AppError].
func IsAppError(err error) bool {
	var ae *AppError
	return errors.As(err, &ae)
}

// As extracts the [*AppError] from err's chain. It returns nil if not found.
func As(err error) *AppError {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae
	}
	return nil
}

// IsCode reports whether err carries the given machine-readable code.
func IsCode(err error, code string) bool {
	ae := As(err)
	return ae != nil && ae.Code == code
}
