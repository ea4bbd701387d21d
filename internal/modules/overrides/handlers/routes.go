package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all override routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/overrides", func(r chi.Router) {
		r.Post("/", h.HandleCreate)
		r.Get("/", h.HandleList)
		r.Get("/analytics", h.HandleAnalytics)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.HandleGet)
			r.Get("/execution-plan", h.HandleGetExecutionPlan)
			r.Post("/approve", h.HandleApprove)
			r.Post("/reject", h.HandleReject)
			r.Post("/cancel", h.HandleCancel)
			r.Post("/execute", h.HandleExecute)
		})
	})
}
