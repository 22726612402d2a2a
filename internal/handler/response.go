package handler

// RESPONSE HELPERS:
// These functions standardise how handlers send JSON and translate errors.
// Every error response from the API has the same shape:
//
//	{"error": "invalid_credentials", "message": "Invalid email or password."}
//
// so the frontend always knows what fields to expect, regardless of status.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/ratul/farmer-helper/internal/apperror"
	"github.com/ratul/farmer-helper/internal/upstream"
)

// ErrorResponse is the standard error format returned by all API endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`   // Machine-readable error type (e.g. "not_found")
	Message string `json:"message"` // Human-readable description
}

// writeJSON sends a JSON response with the given status code.
// Headers and status must be set before the body — once Encode writes, the
// headers are already on the wire.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are sent; all we can do is log.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a domain error to the appropriate HTTP status code and
// sends it. This is the single place where the service layer's error taxonomy
// meets HTTP — the services themselves never see a status code.
//
// STATUS MAPPING:
//
//	validation / conflict / invalid credentials → 400
//	unauthorized                                → 401
//	not found                                   → 404
//	upstream unreachable                        → 503
//	upstream answered with an error             → the upstream's own status
//	anything else                               → 500 (details logged, not leaked)
//
// Conflict is 400 rather than 409, and invalid credentials is 400 rather than
// 401 — that is the contract the frontend was built against.
func writeError(w http.ResponseWriter, err error) {
	// Upstream error statuses are forwarded unchanged.
	var statusErr *upstream.StatusError
	if errors.As(err, &statusErr) {
		writeJSON(w, statusErr.StatusCode, ErrorResponse{
			Error:   "upstream_error",
			Message: statusErr.Message,
		})
		return
	}

	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		status := http.StatusInternalServerError
		errorType := "internal_error"

		switch {
		case errors.Is(err, apperror.ErrValidation):
			status = http.StatusBadRequest
			errorType = "validation_error"
		case errors.Is(err, apperror.ErrConflict):
			status = http.StatusBadRequest
			errorType = "conflict"
		case errors.Is(err, apperror.ErrInvalidCredentials):
			status = http.StatusBadRequest
			errorType = "invalid_credentials"
		case errors.Is(err, apperror.ErrUnauthorized):
			status = http.StatusUnauthorized
			errorType = "unauthorized"
		case errors.Is(err, apperror.ErrNotFound):
			status = http.StatusNotFound
			errorType = "not_found"
		case errors.Is(err, apperror.ErrUpstream):
			status = http.StatusServiceUnavailable
			errorType = "upstream_unavailable"
		}

		writeJSON(w, status, ErrorResponse{
			Error:   errorType,
			Message: appErr.Message,
		})
		return
	}

	// Unknown error — log it, return a generic 500. The raw message might
	// contain SQL or file paths and never belongs in a response body.
	slog.Error("unhandled error", slog.String("error", err.Error()))
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred",
	})
}
