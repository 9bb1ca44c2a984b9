package api

import (
	"errors"
	"fmt"
	"math"
	"net/http"

	"go.uber.org/zap"

	"github.com/darkproduction721/AI-Agent-Studio/internal/orchestrator"
	"github.com/darkproduction721/AI-Agent-Studio/internal/persona"
	"github.com/darkproduction721/AI-Agent-Studio/internal/provider"
)

// ChatRequest is the body of POST /api/agents/{id}/chat.
type ChatRequest struct {
	Message string                 `json:"message"`
	History []provider.ChatMessage `json:"history"`
	Model   string                 `json:"model"`
	Options map[string]interface{} `json:"options"`
}

// ChatAgent identifies the persona that answered.
type ChatAgent struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Color      string `json:"color"`
	Department string `json:"department"`
}

// ChatResponse is the data of a successful chat.
type ChatResponse struct {
	Agent     ChatAgent      `json:"agent"`
	Response  string         `json:"response"`
	Reasoning *string        `json:"reasoning"`
	Model     string         `json:"model"`
	Usage     provider.Usage `json:"usage"`
}

func summaries(personas []*persona.Persona) []persona.Summary {
	out := make([]persona.Summary, 0, len(personas))
	for _, p := range personas {
		out = append(out, p.Summary())
	}
	return out
}

// handleAgents lists every agent without system prompts
func (s *Server) handleAgents(w http.ResponseWriter, r *http.Request) {
	agents := summaries(s.catalog.All())
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    agents,
		"total":   len(agents),
	})
}

// handleDepartments groups agent summaries by department
func (s *Server) handleDepartments(w http.ResponseWriter, r *http.Request) {
	departments := s.catalog.Departments()
	data := make(map[string][]persona.Summary, len(departments))
	for _, dept := range departments {
		list := summaries(s.catalog.ByDepartment(dept))
		for i := range list {
			list[i].Department = ""
		}
		data[dept] = list
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"data":        data,
		"departments": departments,
	})
}

func (s *Server) handleAgentStats(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    s.catalog.Stats(),
	})
}

func (s *Server) handleSearchAgents(w http.ResponseWriter, r *http.Request) {
	keyword := r.PathValue("keyword")
	agents := summaries(s.catalog.Search(keyword))
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    agents,
		"total":   len(agents),
		"keyword": keyword,
	})
}

// handleAgent returns one agent including its system prompt
func (s *Server) handleAgent(w http.ResponseWriter, r *http.Request) {
	agent, err := s.catalog.Get(r.PathValue("id"))
	if err != nil {
		s.respondError(w, http.StatusNotFound, "Agent not found")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    agent,
	})
}

// handleChat relays a message to an agent through the orchestrator
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := s.parseJSON(r, &req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		s.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Message == "" {
		s.respondError(w, http.StatusBadRequest, ErrMessageRequired.Error())
		return
	}

	id := r.PathValue("id")
	agent, err := s.catalog.Get(id)
	if err != nil {
		s.respondError(w, http.StatusNotFound, "Agent not found")
		return
	}

	opts, err := parseOptions(req.Options)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.logger.Info("Agent received message",
		zap.String("agent_id", id),
		zap.String("model", req.Model),
		zap.Int("history", len(req.History)),
		zap.Int("message_length", len(req.Message)),
		zap.String("request_id", RequestIDFromContext(r.Context())))

	result := s.orchestrator.Complete(r.Context(), orchestrator.Request{
		SystemPrompt: agent.SystemPrompt,
		History:      req.History,
		Message:      req.Message,
		Model:        req.Model,
		Options:      opts,
	})

	if !result.OK() {
		message := result.Failure.Message
		if message == "" {
			message = "Unknown error"
		}
		s.respondError(w, http.StatusServiceUnavailable, "AI model temporarily unavailable: "+message)
		return
	}

	var reasoning *string
	if result.Success.Reasoning != "" {
		reasoning = &result.Success.Reasoning
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data": ChatResponse{
			Agent: ChatAgent{
				ID:         agent.ID,
				Name:       agent.Name,
				Color:      agent.Color,
				Department: agent.Department,
			},
			Response:  result.Success.Text,
			Reasoning: reasoning,
			Model:     result.Success.ModelUsed,
			Usage:     result.Success.Usage,
		},
	})
}

// parseOptions splits the typed options from the pass-through ones.
func parseOptions(raw map[string]interface{}) (orchestrator.Options, error) {
	var opts orchestrator.Options
	for key, value := range raw {
		switch key {
		case "maxTokens":
			n, ok := value.(float64)
			if !ok || n <= 0 || n != math.Trunc(n) {
				return opts, fmt.Errorf("%w: maxTokens must be a positive integer", ErrInvalidOptions)
			}
			maxTokens := int(n)
			opts.MaxTokens = &maxTokens
		case "temperature":
			t, ok := value.(float64)
			if !ok {
				return opts, fmt.Errorf("%w: temperature must be a number", ErrInvalidOptions)
			}
			opts.Temperature = &t
		default:
			if opts.Extra == nil {
				opts.Extra = make(map[string]interface{})
			}
			opts.Extra[key] = value
		}
	}
	return opts, nil
}
