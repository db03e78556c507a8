// Package handlers provides the HTTP surface of the analytics
// dashboard: render, symbol list, CSV export and export archiving.
//
// The handler owns the most recent successful render's dataset. That
// hand-off is the only state that outlives a request, it exists purely
// for export, and it is guarded by a mutex so renders stay logically
// single-in-flight.
package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/marketview/internal/domain"
	"github.com/aristath/marketview/internal/modules/dashboard"
	"github.com/aristath/marketview/internal/modules/export"
	"github.com/aristath/marketview/internal/modules/watchlist"
)

// Handler handles dashboard HTTP requests.
type Handler struct {
	svc       *dashboard.Service
	watchlist *watchlist.Service
	archive   *export.ArchiveService // nil when object storage is not configured
	log       zerolog.Logger

	mu          sync.Mutex
	lastDataset *domain.Dataset
}

// NewHandler creates a new dashboard handler.
func NewHandler(
	svc *dashboard.Service,
	watchlist *watchlist.Service,
	archive *export.ArchiveService,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		svc:       svc,
		watchlist: watchlist,
		archive:   archive,
		log:       log.With().Str("handler", "dashboard").Logger(),
	}
}

// renderResponse wraps the pipeline output with a request id.
type renderResponse struct {
	RequestID string `json:"request_id"`
	domain.RenderResult
}

// HandleRender handles GET /api/dashboard/render
func (h *Handler) HandleRender(w http.ResponseWriter, r *http.Request) {
	req := parseRenderRequest(r)
	requestID := uuid.New().String()

	h.log.Info().
		Str("request_id", requestID).
		Strs("symbols", req.Symbols).
		Str("start", req.StartDate).
		Int("window", req.Window).
		Bool("predict", req.IncludePrediction).
		Msg("Render request")

	h.mu.Lock()
	result := h.svc.Assemble(r.Context(), req)
	if !result.Failed() {
		ds := result.Dataset
		h.lastDataset = &ds
	}
	h.mu.Unlock()

	if result.Failed() {
		h.log.Warn().Str("request_id", requestID).Str("error", result.ErrorText).Msg("Render failed")
	}

	h.writeJSON(w, http.StatusOK, renderResponse{
		RequestID:    requestID,
		RenderResult: result,
	})
}

// HandleSymbols handles GET /api/dashboard/symbols
func (h *Handler) HandleSymbols(w http.ResponseWriter, r *http.Request) {
	wl, err := h.watchlist.Load()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to load watchlist")
		http.Error(w, "Failed to load watchlist", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"symbols":        wl.Symbols,
		"default_window": wl.DefaultWindow,
		"window_bounds": map[string]int{
			"min":  watchlist.WindowMin,
			"max":  watchlist.WindowMax,
			"step": watchlist.WindowStep,
		},
	})
}

// HandleExport handles GET /api/dashboard/export
func (h *Handler) HandleExport(w http.ResponseWriter, r *http.Request) {
	ds, ok := h.snapshotDataset()
	if !ok {
		http.Error(w, "Nothing has been rendered yet", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName))

	if err := export.WriteCSV(w, ds); err != nil {
		// Headers are gone at this point; all we can do is log.
		h.log.Error().Err(err).Msg("Failed to stream CSV export")
	}
}

// HandleArchive handles POST /api/dashboard/export/archive
func (h *Handler) HandleArchive(w http.ResponseWriter, r *http.Request) {
	if h.archive == nil {
		http.Error(w, "Export archiving is not configured", http.StatusServiceUnavailable)
		return
	}

	ds, ok := h.snapshotDataset()
	if !ok {
		http.Error(w, "Nothing has been rendered yet", http.StatusNotFound)
		return
	}

	key, err := h.archive.ArchiveDataset(r.Context(), ds)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to archive dataset")
		http.Error(w, "Failed to archive dataset", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"archive": key,
	})
}

// HandleListArchives handles GET /api/dashboard/export/archives
func (h *Handler) HandleListArchives(w http.ResponseWriter, r *http.Request) {
	if h.archive == nil {
		http.Error(w, "Export archiving is not configured", http.StatusServiceUnavailable)
		return
	}

	archives, err := h.archive.ListArchives(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list archives")
		http.Error(w, "Failed to list archives", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"archives": archives,
			"count":    len(archives),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// snapshotDataset copies the last rendered dataset under the lock. The
// copy is shallow; the pipeline never mutates a produced dataset.
func (h *Handler) snapshotDataset() (domain.Dataset, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.lastDataset == nil || h.lastDataset.Empty() {
		return domain.Dataset{}, false
	}
	return *h.lastDataset, true
}

// parseRenderRequest maps query parameters onto a render request. No
// validation happens here: the pipeline degrades malformed input to an
// empty render instead of a transport error.
func parseRenderRequest(r *http.Request) domain.RenderRequest {
	q := r.URL.Query()

	var symbols []string
	for _, part := range strings.Split(q.Get("symbols"), ",") {
		if part = strings.TrimSpace(part); part != "" {
			symbols = append(symbols, part)
		}
	}

	window := watchlist.WindowDefault
	if raw := q.Get("window"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			window = parsed
		}
	}

	predict := false
	if raw := q.Get("predict"); raw != "" {
		if parsed, err := strconv.ParseBool(raw); err == nil {
			predict = parsed
		}
	}

	return domain.RenderRequest{
		Symbols:           symbols,
		StartDate:         q.Get("start"),
		Window:            window,
		IncludePrediction: predict,
	}
}

// writeJSON writes a JSON response with the given status code.
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
