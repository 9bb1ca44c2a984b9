package api

import (
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/darkproduction721/AI-Agent-Studio/internal/logging"
	"github.com/darkproduction721/AI-Agent-Studio/internal/metrics"
	"github.com/darkproduction721/AI-Agent-Studio/internal/modelcatalog"
	"github.com/darkproduction721/AI-Agent-Studio/internal/orchestrator"
	"github.com/darkproduction721/AI-Agent-Studio/internal/persona"
	"github.com/darkproduction721/AI-Agent-Studio/pkg/config"
)

// Version is reported by the API index.
const Version = "1.0.0"

// Server represents the HTTP API server
type Server struct {
	config       *config.Config
	catalog      *persona.Catalog
	orchestrator *orchestrator.Orchestrator
	models       *modelcatalog.Accessor
	logManager   *logging.Manager
	metrics      *metrics.Metrics
	logger       *zap.Logger

	limiter     *ipRateLimiter
	chatLimiter *ipRateLimiter
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithLogManager exposes m's buffer at /api/logs/recent.
func WithLogManager(m *logging.Manager) Option {
	return func(s *Server) { s.logManager = m }
}

// WithMetrics records HTTP metrics into m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// NewServer creates a new API server. The catalog is shared read-only by
// all handlers.
func NewServer(cfg *config.Config, catalog *persona.Catalog, orch *orchestrator.Orchestrator, models *modelcatalog.Accessor, opts ...Option) *Server {
	s := &Server{
		config:       cfg,
		catalog:      catalog,
		orchestrator: orch,
		models:       models,
		logger:       zap.NewNop(),
		limiter:      newIPRateLimiter(cfg.Server.RateLimit),
		chatLimiter:  newIPRateLimiter(cfg.Server.ChatRateLimit),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetupRoutes configures HTTP routes
func (s *Server) SetupRoutes() http.Handler {
	mux := http.NewServeMux()

	// System
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api", s.handleIndex)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /api/logs/recent", s.handleLogsRecent)

	// Agents
	mux.HandleFunc("GET /api/agents", s.handleAgents)
	mux.HandleFunc("GET /api/agents/departments", s.handleDepartments)
	mux.HandleFunc("GET /api/agents/stats", s.handleAgentStats)
	mux.HandleFunc("GET /api/agents/search/{keyword}", s.handleSearchAgents)
	mux.HandleFunc("GET /api/agents/{id}", s.handleAgent)
	mux.Handle("POST /api/agents/{id}/chat",
		s.rateLimitMiddleware(s.chatLimiter, "chat", "Too many chat requests, please slow down.",
			http.HandlerFunc(s.handleChat)))

	// Models
	mux.HandleFunc("GET /api/models", s.handleModels)
	mux.HandleFunc("GET /api/models/test", s.handleModelsTest)

	mux.HandleFunc("/", s.handleNotFound)

	// Apply middleware, innermost first
	handler := s.bodyLimitMiddleware(mux)
	handler = s.apiRateLimitMiddleware(handler)
	handler = s.corsMiddleware(handler)
	handler = s.loggingMiddleware(handler)
	handler = s.requestIDMiddleware(handler)
	handler = s.recoverMiddleware(handler)

	return handler
}

// Helper functions

// respondJSON writes a JSON response
func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("Failed to encode response", zap.Error(err))
	}
}

// respondError writes an error envelope
func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]interface{}{
		"success": false,
		"error":   message,
	})
}

// parseJSON parses JSON request body
func (s *Server) parseJSON(r *http.Request, v interface{}) error {
	return json.NewDecoder(r.Body).Decode(v)
}
