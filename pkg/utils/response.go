// Package utils provides common utility functions for HTTP response
// handling, request ID management, session cookie operations, client IP
// extraction, and retrying transient failures.
package utils

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

// requestIDKey is the context key for request ID
const requestIDKey contextKey = "request_id"

// GetRequestID retrieves the request ID from the context.
// Returns an empty string if the context is nil or no request ID is present.
func GetRequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if requestID, ok := ctx.Value(requestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// WithRequestID adds a request ID to the context for request correlation.
// Typically called by the logging middleware for each request.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// ErrorResponse is the standard error body: HTTP status text, a safe
// message, and the request ID for tracing.
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// RespondWithError sends a JSON error response. The request ID is extracted
// from the request context automatically.
//
// Example:
//
//	if user == nil {
//	    utils.RespondWithError(w, r, http.StatusForbidden, "Authentication required")
//	    return
//	}
func RespondWithError(w http.ResponseWriter, r *http.Request, statusCode int, message string) {
	requestID := GetRequestID(r.Context())
	response := ErrorResponse{
		Error:     http.StatusText(statusCode),
		Message:   message,
		RequestID: requestID,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Error().
			Err(err).
			Str("request_id", requestID).
			Msg("Failed to encode error response")
	}
}

// RespondWithJSON sends a JSON response with the given status code and data.
func RespondWithJSON(w http.ResponseWriter, r *http.Request, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().
			Err(err).
			Str("request_id", GetRequestID(r.Context())).
			Msg("Failed to encode JSON response")
	}
}

// RespondWithMessage sends a simple {"message": ...} response.
//
// Example:
//
//	utils.RespondWithMessage(w, r, http.StatusOK, "Logged out successfully")
func RespondWithMessage(w http.ResponseWriter, r *http.Request, statusCode int, message string) {
	response := map[string]string{"message": message}
	if requestID := GetRequestID(r.Context()); requestID != "" {
		response["request_id"] = requestID
	}
	RespondWithJSON(w, r, statusCode, response)
}

// SetSessionCookie sets the session cookie with the deployment's security
// settings: HttpOnly, site-wide path, SameSite=Lax, and Secure in
// production. Expiry should be the session row's expiry so the browser and
// the database age out together.
//
// Example:
//
//	utils.SetSessionCookie(w, "session_token", token, session.ExpiresAt, cfg.Server.IsProduction())
func SetSessionCookie(w http.ResponseWriter, name, value string, expires time.Time, isProduction bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   isProduction,
		SameSite: http.SameSiteLaxMode,
		Expires:  expires,
	})
}

// SetCookieWithMaxAge sets a short-lived cookie with MaxAge in seconds.
// Used for the OAuth state cookie.
func SetCookieWithMaxAge(w http.ResponseWriter, name, value string, maxAge int, isProduction bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   isProduction,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	})
}

// ClearCookie clears a cookie by setting MaxAge to -1, instructing the
// browser to delete it immediately. Used on logout.
func ClearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}
