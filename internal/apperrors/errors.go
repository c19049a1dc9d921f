// Package apperrors defines the error taxonomy for the trust-and-access
// layer and its mapping to HTTP status codes.
//
// Authentication, authorization, validation, and rate-limit failures are
// terminal for a request: they are never retried, always map to a specific
// status code, and are safe to surface directly. Storage failures are logged
// with context and surfaced as a generic 500; the client may retry the whole
// request.
package apperrors

import (
	"errors"
	"net/http"
)

// Sentinel errors for the request-terminal failure kinds. Handlers and
// services wrap these with fmt.Errorf("...: %w", ...) so callers can match
// with errors.Is while keeping per-site context.
var (
	// ErrUnauthenticated indicates no token, an invalid token, or a missing
	// session row. Distinct from ErrForbidden so callers can redirect to
	// login rather than showing a permissions warning.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrForbidden indicates a valid, authenticated user who lacks the
	// privilege for the operation (e.g. non-admin on an admin endpoint).
	ErrForbidden = errors.New("forbidden")

	// ErrBadRequest indicates a malformed payload (missing form fields,
	// unparsable multipart body, bad identifiers).
	ErrBadRequest = errors.New("bad request")

	// ErrSizeExceeded indicates an upload larger than the configured cap.
	ErrSizeExceeded = errors.New("size exceeded")

	// ErrTypeRejected indicates a declared content type outside the
	// allow-list for the resource category.
	ErrTypeRejected = errors.New("content type rejected")

	// ErrRateLimited indicates the caller crossed the fixed-window request
	// threshold. Requests are denied, never queued.
	ErrRateLimited = errors.New("rate limited")

	// ErrStorage indicates a transient provider or network failure while
	// talking to object storage. Surfaced generically to the caller.
	ErrStorage = errors.New("storage failure")
)

// StatusCode maps a taxonomy error to its HTTP status. Unknown errors map
// to 500 so nothing internal leaks by accident.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, ErrSizeExceeded):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, ErrTypeRejected):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrStorage):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the user-facing message for a taxonomy error. These carry
// no sensitive internals and are safe to return verbatim.
func Message(err error) string {
	switch {
	case errors.Is(err, ErrUnauthenticated):
		return "Authentication required"
	case errors.Is(err, ErrForbidden):
		return "Insufficient permissions"
	case errors.Is(err, ErrBadRequest):
		return "Malformed request"
	case errors.Is(err, ErrSizeExceeded):
		return "File too large"
	case errors.Is(err, ErrTypeRejected):
		return "File type not allowed"
	case errors.Is(err, ErrRateLimited):
		return "Rate limit exceeded. Please try again later."
	default:
		return "Internal server error"
	}
}
