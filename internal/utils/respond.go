package utils

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/aristath/sentinel-overrides/internal/domain"
	"github.com/rs/zerolog"
)

// ErrorBody is the error envelope returned by every API endpoint
type ErrorBody struct {
	Message string            `json:"message"`
	Code    string            `json:"code"`
	Details map[string]string `json:"details,omitempty"`
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, status int, data interface{}, log zerolog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// WriteData wraps data in the standard {"data":..., "metadata":...} envelope
func WriteData(w http.ResponseWriter, status int, data interface{}, log zerolog.Logger) {
	WriteJSON(w, status, map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}, log)
}

// WriteError maps err onto an HTTP status and writes the error envelope
func WriteError(w http.ResponseWriter, err error, log zerolog.Logger) {
	status := StatusForError(err)
	body := ErrorBody{Message: err.Error(), Code: "INTERNAL"}

	var domainErr *domain.Error
	if errors.As(err, &domainErr) {
		body.Code = string(domainErr.Code)
		body.Details = domainErr.Context
		if domainErr.Message != "" {
			body.Message = domainErr.Message
		}
	}

	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Msg("Request failed")
	}

	WriteJSON(w, status, map[string]interface{}{"error": body}, log)
}

// WriteBadRequest writes an INVALID_INPUT error with the given message
func WriteBadRequest(w http.ResponseWriter, message string, log zerolog.Logger) {
	WriteError(w, domain.NewError(domain.CodeInvalidInput, message), log)
}

// StatusForError maps domain error codes onto HTTP statuses
func StatusForError(err error) int {
	var domainErr *domain.Error
	if !errors.As(err, &domainErr) {
		return http.StatusInternalServerError
	}

	switch domainErr.Code {
	case domain.CodePlanNotFound, domain.CodeHandlerNotFound:
		return http.StatusNotFound
	case domain.CodeNotApproved, domain.CodeInvalidState, domain.CodeApproverAlreadyDecided:
		return http.StatusConflict
	case domain.CodeApproverNotFound:
		return http.StatusForbidden
	case domain.CodeInvalidInput:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
