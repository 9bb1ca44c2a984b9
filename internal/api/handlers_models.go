package api

import (
	"net/http"
)

// handleModels lists the free models
func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	models, err := s.models.ListFreeModels(r.Context())
	if err != nil {
		message := err.Error()
		if message == "" {
			message = "Failed to fetch models"
		}
		s.respondError(w, http.StatusInternalServerError, message)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    models,
		"total":   len(models),
	})
}

// handleModelsTest runs the connectivity check. The outcome is data,
// so the call itself always succeeds.
func (s *Server) handleModelsTest(w http.ResponseWriter, r *http.Request) {
	connected := s.orchestrator.TestConnection(r.Context())

	message := "OpenRouter connection failed"
	if connected {
		message = "OpenRouter connection successful"
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"connected": connected,
		"message":   message,
	})
}
