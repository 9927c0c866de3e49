package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/gleaner/internal/interfaces"
	"github.com/ternarybob/gleaner/internal/models"
)

// SearchResponse wraps the records of one search
type SearchResponse struct {
	Query    string                `json:"query"`
	Count    int                   `json:"count"`
	Degraded int                   `json:"degraded"`
	Results  []models.DetailRecord `json:"results"`
}

// SearchHandler handles search-related HTTP requests
type SearchHandler struct {
	searchService interfaces.SearchService
	logger        arbor.ILogger
}

// NewSearchHandler creates a new search handler with dependencies
func NewSearchHandler(searchService interfaces.SearchService, logger arbor.ILogger) *SearchHandler {
	return &SearchHandler{
		searchService: searchService,
		logger:        logger,
	}
}

// SearchHandler handles GET /api/search?q=query&count=n and
// POST /api/search with a JSON SearchRequest body
func (h *SearchHandler) SearchHandler(w http.ResponseWriter, r *http.Request) {
	var request models.SearchRequest

	switch r.Method {
	case http.MethodGet:
		request.Query = r.URL.Query().Get("q")
		if countStr := r.URL.Query().Get("count"); countStr != "" {
			count, err := strconv.Atoi(countStr)
			if err != nil {
				WriteError(w, http.StatusBadRequest, "count must be an integer")
				return
			}
			request.Count = count
		}
	case http.MethodPost:
		if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
			WriteError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	request.Normalize()
	if err := request.Validate(); err != nil {
		h.logger.Debug().Err(err).Str("query", request.Query).Int("count", request.Count).Msg("Rejected search request")
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.logger.Info().
		Str("query", request.Query).
		Int("count", request.Count).
		Msg("Search request received")

	records, err := h.searchService.Search(r.Context(), request.Query, request.Count)
	if err != nil {
		switch {
		case errors.Is(err, interfaces.ErrSessionUnavailable):
			h.logger.Warn().Err(err).Str("query", request.Query).Msg("Search unavailable: no valid session")
			WriteError(w, http.StatusServiceUnavailable, "Session unavailable: log in with 'gleaner login' or provide cookies")
		case r.Context().Err() != nil:
			h.logger.Debug().Err(err).Str("query", request.Query).Msg("Search cancelled by client")
		default:
			h.logger.Error().Err(err).Str("query", request.Query).Msg("Failed to execute search")
			WriteError(w, http.StatusInternalServerError, "Failed to execute search")
		}
		return
	}

	degraded := 0
	for _, record := range records {
		if record.IsDegraded() {
			degraded++
		}
	}

	WriteJSON(w, http.StatusOK, SearchResponse{
		Query:    request.Query,
		Count:    len(records),
		Degraded: degraded,
		Results:  records,
	})
}
