package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/notice-client/internal/auth"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		// Health check (no auth required)
		r.Get("/health", s.handleHealth)

		// WebSocket (auth via token query parameter, validated in handler)
		r.Get(s.wsPath(), s.handleWebSocket)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.With(s.requirePermission(auth.PermConfigRead)).Get("/config", s.handleGetConfig)
			r.With(s.requirePermission(auth.PermConfigWrite)).Put("/config", s.handleSaveConfig)

			r.With(s.requirePermission(auth.PermConnectionManage)).Post("/connect", s.handleConnect)
			r.With(s.requirePermission(auth.PermConnectionManage)).Post("/disconnect", s.handleDisconnect)
			r.With(s.requirePermission(auth.PermStateRead)).Get("/connection-state", s.handleConnectionState)

			r.With(s.requirePermission(auth.PermMessagesRead)).Get("/messages", s.handleGetMessages)
			r.With(s.requirePermission(auth.PermMessagesWrite)).Put("/messages", s.handleSaveMessages)
		})
	})

	return r
}

// wsPath returns the configured WebSocket path under /api/v1.
func (s *Server) wsPath() string {
	if s.wsCfg.Path == "" {
		return "/ws"
	}
	return s.wsCfg.Path
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":           "ok",
		"version":          s.version,
		"connection_state": s.service.ConnectionState(),
		"ws_clients":       s.hub.ClientCount(),
		"ws_dropped":       s.hub.Dropped(),
	})
}
