package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all plan routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/plans", func(r chi.Router) {
		r.Post("/", h.HandleRegister)
		r.Get("/", h.HandleList)
		r.Get("/{id}", h.HandleGet)
	})
}
