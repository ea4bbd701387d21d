// Package handlers provides HTTP handlers for override handlers.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/aristath/sentinel-overrides/internal/domain"
	"github.com/aristath/sentinel-overrides/internal/modules/overrides"
	"github.com/aristath/sentinel-overrides/internal/utils"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handler handles override HTTP requests
type Handler struct {
	service *overrides.Service
	log     zerolog.Logger
}

// NewHandler creates a new overrides handler
func NewHandler(service *overrides.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "overrides").Logger(),
	}
}

type approveRequest struct {
	ApproverID string `json:"approver_id"`
	Comment    string `json:"comment"`
}

type rejectRequest struct {
	ApproverID string `json:"approver_id"`
	Reason     string `json:"reason"`
}

type cancelRequest struct {
	UserID string `json:"user_id"`
	Reason string `json:"reason"`
}

// HandleCreate handles POST /api/overrides
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req overrides.CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteBadRequest(w, "Invalid request body: "+err.Error(), h.log)
		return
	}

	handler, err := h.service.CreateOverride(r.Context(), req)
	if err != nil {
		utils.WriteError(w, err, h.log)
		return
	}

	utils.WriteData(w, http.StatusCreated, handler, h.log)
}

// HandleList handles GET /api/overrides
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.HandlerFilter{
		Status:      domain.HandlerStatus(q.Get("status")),
		Type:        domain.OverrideType(q.Get("type")),
		PlanID:      q.Get("plan_id"),
		PortfolioID: q.Get("portfolio_id"),
	}

	list, err := h.service.ListOverrides(r.Context(), filter)
	if err != nil {
		utils.WriteError(w, err, h.log)
		return
	}

	utils.WriteData(w, http.StatusOK, list, h.log)
}

// HandleGet handles GET /api/overrides/{id}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	handler, err := h.service.GetOverride(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		utils.WriteError(w, err, h.log)
		return
	}

	utils.WriteData(w, http.StatusOK, handler, h.log)
}

// HandleGetExecutionPlan handles GET /api/overrides/{id}/execution-plan
func (h *Handler) HandleGetExecutionPlan(w http.ResponseWriter, r *http.Request) {
	plan, err := h.service.GetExecutionPlan(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		utils.WriteError(w, err, h.log)
		return
	}

	utils.WriteData(w, http.StatusOK, plan, h.log)
}

// HandleAnalytics handles GET /api/overrides/analytics
func (h *Handler) HandleAnalytics(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.GetAnalytics(r.Context())
	if err != nil {
		utils.WriteError(w, err, h.log)
		return
	}

	utils.WriteData(w, http.StatusOK, report, h.log)
}

// HandleApprove handles POST /api/overrides/{id}/approve
func (h *Handler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	var req approveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteBadRequest(w, "Invalid request body: "+err.Error(), h.log)
		return
	}
	if req.ApproverID == "" {
		utils.WriteBadRequest(w, "approver_id is required", h.log)
		return
	}

	handler, err := h.service.Approve(r.Context(), chi.URLParam(r, "id"), req.ApproverID, req.Comment)
	if err != nil {
		utils.WriteError(w, err, h.log)
		return
	}

	utils.WriteData(w, http.StatusOK, handler, h.log)
}

// HandleReject handles POST /api/overrides/{id}/reject
func (h *Handler) HandleReject(w http.ResponseWriter, r *http.Request) {
	var req rejectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteBadRequest(w, "Invalid request body: "+err.Error(), h.log)
		return
	}
	if req.ApproverID == "" {
		utils.WriteBadRequest(w, "approver_id is required", h.log)
		return
	}

	handler, err := h.service.Reject(r.Context(), chi.URLParam(r, "id"), req.ApproverID, req.Reason)
	if err != nil {
		utils.WriteError(w, err, h.log)
		return
	}

	utils.WriteData(w, http.StatusOK, handler, h.log)
}

// HandleCancel handles POST /api/overrides/{id}/cancel
func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	var req cancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteBadRequest(w, "Invalid request body: "+err.Error(), h.log)
		return
	}
	if req.UserID == "" {
		utils.WriteBadRequest(w, "user_id is required", h.log)
		return
	}

	handler, err := h.service.CancelOverride(r.Context(), chi.URLParam(r, "id"), req.UserID, req.Reason)
	if err != nil {
		utils.WriteError(w, err, h.log)
		return
	}

	utils.WriteData(w, http.StatusOK, handler, h.log)
}

// HandleExecute handles POST /api/overrides/{id}/execute.
// With ?async=true the execution runs in the background and 202 is returned.
func (h *Handler) HandleExecute(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	async, _ := strconv.ParseBool(r.URL.Query().Get("async"))
	if async {
		if err := h.service.ExecuteOverrideAsync(r.Context(), id); err != nil {
			utils.WriteError(w, err, h.log)
			return
		}
		utils.WriteData(w, http.StatusAccepted, map[string]string{
			"handler_id": id,
			"status":     "accepted",
		}, h.log)
		return
	}

	handler, err := h.service.ExecuteOverride(r.Context(), id)
	if err != nil {
		utils.WriteError(w, err, h.log)
		return
	}

	utils.WriteData(w, http.StatusOK, handler, h.log)
}
