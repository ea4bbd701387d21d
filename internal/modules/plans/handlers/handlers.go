// Package handlers provides HTTP handlers for rebalance plans.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/aristath/sentinel-overrides/internal/domain"
	"github.com/aristath/sentinel-overrides/internal/modules/plans"
	"github.com/aristath/sentinel-overrides/internal/utils"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handler handles plan HTTP requests
type Handler struct {
	registry *plans.Registry
	log      zerolog.Logger
}

// NewHandler creates a new plans handler
func NewHandler(registry *plans.Registry, log zerolog.Logger) *Handler {
	return &Handler{
		registry: registry,
		log:      log.With().Str("handler", "plans").Logger(),
	}
}

// HandleRegister handles POST /api/plans
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var plan domain.RebalancePlan
	if err := json.NewDecoder(r.Body).Decode(&plan); err != nil {
		utils.WriteBadRequest(w, "Invalid request body: "+err.Error(), h.log)
		return
	}

	stored, err := h.registry.Register(r.Context(), &plan)
	if err != nil {
		utils.WriteError(w, err, h.log)
		return
	}

	utils.WriteData(w, http.StatusCreated, stored, h.log)
}

// HandleList handles GET /api/plans
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	all, err := h.registry.List(r.Context())
	if err != nil {
		utils.WriteError(w, err, h.log)
		return
	}

	utils.WriteData(w, http.StatusOK, all, h.log)
}

// HandleGet handles GET /api/plans/{id}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	plan, err := h.registry.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		utils.WriteError(w, err, h.log)
		return
	}

	utils.WriteData(w, http.StatusOK, plan, h.log)
}
