package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/gleaner/internal/interfaces"
	"github.com/ternarybob/gleaner/internal/models"
)

// SessionStatus reports the login state and the stored cookie set
type SessionStatus struct {
	State         models.SessionState `json:"state"`
	Stored        bool                `json:"stored"`
	StoredCookies int                 `json:"stored_cookies"`
	Expired       int                 `json:"expired_cookies"`
}

// AuthHandler handles session-related HTTP requests
type AuthHandler struct {
	sessionManager interfaces.SessionManager
	sessionStorage interfaces.SessionStorage
	logger         arbor.ILogger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(sessionManager interfaces.SessionManager, sessionStorage interfaces.SessionStorage, logger arbor.ILogger) *AuthHandler {
	return &AuthHandler{
		sessionManager: sessionManager,
		sessionStorage: sessionStorage,
		logger:         logger,
	}
}

// GetSessionStatusHandler handles GET /api/session/status
func (h *AuthHandler) GetSessionStatusHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	status := SessionStatus{State: h.sessionManager.State()}

	cookies, found, err := h.sessionStorage.LoadCookies(r.Context())
	if err != nil {
		h.logger.Warn().Err(err).Msg("Failed to read stored session")
		WriteError(w, http.StatusInternalServerError, "Failed to read stored session")
		return
	}
	if found {
		now := time.Now()
		status.Stored = true
		status.StoredCookies = len(cookies)
		for _, cookie := range cookies {
			if cookie.IsExpired(now) {
				status.Expired++
			}
		}
	}

	WriteJSON(w, http.StatusOK, status)
}

// LogoutHandler handles DELETE /api/session
func (h *AuthHandler) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodDelete) {
		return
	}

	if err := h.sessionManager.Logout(r.Context()); err != nil {
		h.logger.Error().Err(err).Msg("Failed to delete session")
		WriteError(w, http.StatusInternalServerError, "Failed to delete session")
		return
	}
	WriteSuccess(w, "Session deleted")
}

// ImportSessionHandler handles POST /api/session with a JSON array of
// cookies exported from a logged-in browser
func (h *AuthHandler) ImportSessionHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var cookies []*models.Cookie
	if err := json.NewDecoder(r.Body).Decode(&cookies); err != nil {
		h.logger.Error().Err(err).Msg("Failed to parse cookie array")
		WriteError(w, http.StatusBadRequest, "Invalid request body: expected a JSON array of cookies")
		return
	}

	valid := cookies[:0]
	for _, cookie := range cookies {
		if cookie != nil && cookie.Name != "" && cookie.Domain != "" {
			valid = append(valid, cookie)
		}
	}
	if len(valid) == 0 {
		WriteError(w, http.StatusBadRequest, "No usable cookies: each cookie needs a name and domain")
		return
	}

	if err := h.sessionStorage.SaveCookies(r.Context(), valid); err != nil {
		h.logger.Error().Err(err).Msg("Failed to store imported session")
		WriteError(w, http.StatusInternalServerError, "Failed to store session")
		return
	}

	h.logger.Info().Int("cookies", len(valid)).Msg("Session imported")
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"cookies": len(valid),
	})
}
