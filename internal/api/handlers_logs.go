package api

import (
	"net/http"
	"strconv"

	"github.com/darkproduction721/AI-Agent-Studio/internal/logging"
)

const maxLogsLimit = 1000

// handleLogsRecent returns recent log entries, newest first
func (s *Server) handleLogsRecent(w http.ResponseWriter, r *http.Request) {
	// Parse query parameters
	limit := 100
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		l, err := strconv.Atoi(limitStr)
		if err != nil || l <= 0 {
			s.respondError(w, http.StatusBadRequest, "Invalid 'limit' parameter")
			return
		}
		limit = min(l, maxLogsLimit)
	}

	level := r.URL.Query().Get("level")
	source := r.URL.Query().Get("source")

	logs := []logging.LogEntry{}
	if s.logManager != nil {
		logs = s.logManager.GetRecent(limit, level, source)
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    logs,
		"count":   len(logs),
	})
}
