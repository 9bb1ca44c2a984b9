package api

import (
	"net/http"
	"time"
)

var startTime = time.Now()

// handleHealth reports liveness along with catalog size
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":        true,
		"message":        "AI Agents Backend is running",
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
		"uptime_seconds": int64(time.Since(startTime).Seconds()),
		"agentsLoaded":   len(s.catalog.All()),
		"departments":    len(s.catalog.Departments()),
		"modelCache":     s.models.CacheStats(),
	})
}

// handleIndex describes the available endpoints
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "AI Agents API",
		"version": Version,
		"endpoints": map[string]map[string]string{
			"agents": {
				"GET /api/agents":                 "Get all agents",
				"GET /api/agents/departments":     "Get agents by department",
				"GET /api/agents/stats":           "Get agent statistics",
				"GET /api/agents/:agentId":        "Get specific agent",
				"GET /api/agents/search/:keyword": "Search agents",
				"POST /api/agents/:agentId/chat":  "Chat with agent",
			},
			"models": {
				"GET /api/models":      "Get available models",
				"GET /api/models/test": "Test OpenRouter connection",
			},
			"system": {
				"GET /health":          "Health check",
				"GET /api":             "API information",
				"GET /api/logs/recent": "Recent log entries",
				"GET /metrics":         "Prometheus metrics",
			},
		},
	})
}

// handleNotFound answers every unrouted request
func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusNotFound, map[string]interface{}{
		"success":            false,
		"error":              "Endpoint not found",
		"availableEndpoints": "/api",
	})
}
