package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/gleaner/internal/interfaces"
)

// CacheHandler exposes the result cache for observability and maintenance
type CacheHandler struct {
	cacheService interfaces.CacheService
	logger       arbor.ILogger
}

// NewCacheHandler creates a new cache handler
func NewCacheHandler(cacheService interfaces.CacheService, logger arbor.ILogger) *CacheHandler {
	return &CacheHandler{
		cacheService: cacheService,
		logger:       logger,
	}
}

// StatsHandler handles GET /api/cache/stats
func (h *CacheHandler) StatsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	WriteJSON(w, http.StatusOK, h.cacheService.Stats(r.Context()))
}

// ClearHandler handles POST /api/cache/clear
func (h *CacheHandler) ClearHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	h.cacheService.Clear(r.Context())
	WriteSuccess(w, "Cache cleared")
}

// SweepHandler handles POST /api/cache/sweep
func (h *CacheHandler) SweepHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	removed := h.cacheService.Sweep(r.Context())
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"removed": removed,
	})
}
