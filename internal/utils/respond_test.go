package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aristath/sentinel-overrides/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusForError(t *testing.T) {
	tests := []struct {
		err      error
		expected int
	}{
		{domain.PlanNotFound("p"), http.StatusNotFound},
		{domain.HandlerNotFound("h"), http.StatusNotFound},
		{domain.NotApproved("h", domain.StatusDraft), http.StatusConflict},
		{domain.NewError(domain.CodeInvalidState, "x"), http.StatusConflict},
		{domain.NewError(domain.CodeApproverAlreadyDecided, "x"), http.StatusConflict},
		{domain.NewError(domain.CodeApproverNotFound, "x"), http.StatusForbidden},
		{domain.NewError(domain.CodeInvalidInput, "x"), http.StatusBadRequest},
		{domain.NewError(domain.CodeExecutionFailed, "x"), http.StatusInternalServerError},
		{fmt.Errorf("wrapped: %w", domain.PlanNotFound("p")), http.StatusNotFound},
		{errors.New("disk full"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.expected, StatusForError(tt.err))
		})
	}
}

func TestWriteError_DomainEnvelope(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, domain.PlanNotFound("plan-9"), zerolog.Nop())

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var resp struct {
		Error ErrorBody `json:"error"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "PLAN_NOT_FOUND", resp.Error.Code)
	assert.Equal(t, "rebalance plan not found", resp.Error.Message)
	assert.Equal(t, "plan-9", resp.Error.Details["plan_id"])
}

func TestWriteData_Envelope(t *testing.T) {
	w := httptest.NewRecorder()
	WriteData(w, http.StatusCreated, map[string]string{"id": "x"}, zerolog.Nop())

	assert.Equal(t, http.StatusCreated, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Contains(t, resp, "data")
	assert.Contains(t, resp, "metadata")
}
