package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all history store routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/history", func(r chi.Router) {
		r.Get("/coverage", h.HandleCoverage)
		r.Post("/sync", h.HandleSync)
	})
}
