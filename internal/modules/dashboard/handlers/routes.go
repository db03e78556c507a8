package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all dashboard routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/dashboard", func(r chi.Router) {
		r.Get("/render", h.HandleRender)
		r.Get("/symbols", h.HandleSymbols)

		r.Get("/export", h.HandleExport)
		r.Post("/export/archive", h.HandleArchive)
		r.Get("/export/archives", h.HandleListArchives)
	})
}
