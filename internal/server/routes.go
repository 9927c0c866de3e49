package server

import (
	"net/http"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// API routes - Search
	mux.HandleFunc("/api/search", s.app.SearchHandler.SearchHandler) // GET ?q=&count=, POST JSON body

	// API routes - Session
	mux.HandleFunc("/api/session", s.handleSessionRoute)                           // POST (import cookies), DELETE (logout)
	mux.HandleFunc("/api/session/status", s.app.AuthHandler.GetSessionStatusHandler) // GET - login state and stored cookies

	// API routes - Cache
	mux.HandleFunc("/api/cache/stats", s.app.CacheHandler.StatsHandler)
	mux.HandleFunc("/api/cache/clear", s.app.CacheHandler.ClearHandler)
	mux.HandleFunc("/api/cache/sweep", s.app.CacheHandler.SweepHandler)

	// API routes - Scheduler
	mux.HandleFunc("/api/scheduler/jobs", s.app.SchedulerHandler.ListJobsHandler)
	mux.HandleFunc("/api/scheduler/trigger", s.app.SchedulerHandler.TriggerJobHandler)

	// API routes - System
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)

	// 404 handler for unmatched routes
	mux.HandleFunc("/", s.app.APIHandler.NotFoundHandler)

	return mux
}

// handleSessionRoute routes /api/session requests
func (s *Server) handleSessionRoute(w http.ResponseWriter, r *http.Request) {
	RouteByMethod(w, r, MethodRouter{
		http.MethodPost:   s.app.AuthHandler.ImportSessionHandler,
		http.MethodDelete: s.app.AuthHandler.LogoutHandler,
	})
}
