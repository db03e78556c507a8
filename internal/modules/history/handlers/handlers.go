// Package handlers provides HTTP handlers for the local history store.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/marketview/internal/modules/history"
)

// Handler handles history store HTTP requests.
type Handler struct {
	repo *history.Repository
	sync *history.SyncService // nil when sync is not configured
	log  zerolog.Logger
}

// NewHandler creates a new history handler.
func NewHandler(repo *history.Repository, sync *history.SyncService, log zerolog.Logger) *Handler {
	return &Handler{
		repo: repo,
		sync: sync,
		log:  log.With().Str("handler", "history").Logger(),
	}
}

// HandleCoverage handles GET /api/history/coverage
func (h *Handler) HandleCoverage(w http.ResponseWriter, r *http.Request) {
	coverage, err := h.repo.Coverage()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to get coverage")
		http.Error(w, "Failed to get coverage", http.StatusInternalServerError)
		return
	}

	response := map[string]interface{}{
		"data": map[string]interface{}{
			"coverage": coverage,
			"count":    len(coverage),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleSync handles POST /api/history/sync
func (h *Handler) HandleSync(w http.ResponseWriter, r *http.Request) {
	if h.sync == nil {
		http.Error(w, "History sync is not configured", http.StatusServiceUnavailable)
		return
	}

	h.log.Info().Msg("Manual history sync triggered")

	if err := h.sync.SyncAll(r.Context()); err != nil {
		h.log.Error().Err(err).Msg("History sync failed")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "History sync completed",
	})
}

// writeJSON writes a JSON response with the given status code.
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
