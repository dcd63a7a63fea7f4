package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/melcloud-bridge/internal/bridge"
	"github.com/nerrad567/melcloud-bridge/internal/command"
	"github.com/nerrad567/melcloud-bridge/internal/device"
	"github.com/nerrad567/melcloud-bridge/internal/session"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes.
const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeNotFound     = "not_found"
	ErrCodeUnauthorized = "unauthorised"
	ErrCodeConflict     = "conflict"
	ErrCodeInternal     = "internal_error"
	ErrCodeValidation   = "validation_error"
	ErrCodeUnavailable  = "unavailable"
	ErrCodeUpstream     = "upstream_error"
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// writeDomainError maps bridge and command errors to HTTP statuses.
// Lookup failures are checked first because a *CommandError wraps them.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, device.ErrDeviceNotFound),
		errors.Is(err, bridge.ErrUnknownAccount),
		errors.Is(err, command.ErrUnknownZone),
		errors.Is(err, command.ErrUnknownButton),
		errors.Is(err, command.ErrPresetNotFound):
		writeNotFound(w, err.Error())
	case errors.Is(err, command.ErrBadPayload),
		errors.Is(err, command.ErrInvalidValue),
		errors.Is(err, command.ErrUnknownField),
		errors.Is(err, command.ErrNoChanges):
		writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
	case errors.Is(err, command.ErrReadOnly):
		writeError(w, http.StatusConflict, ErrCodeConflict, err.Error())
	case errors.Is(err, session.ErrNotConnected):
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, err.Error())
	case errors.Is(err, command.ErrCommandFailed):
		writeError(w, http.StatusBadGateway, ErrCodeUpstream, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, ErrCodeInternal, err.Error())
	}
}
