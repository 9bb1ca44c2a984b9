package main

import (
	"context"
	"fmt"
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/darkproduction721/AI-Agent-Studio/internal/cache"
	"github.com/darkproduction721/AI-Agent-Studio/internal/logging"
	"github.com/darkproduction721/AI-Agent-Studio/internal/metrics"
	"github.com/darkproduction721/AI-Agent-Studio/internal/modelcatalog"
	"github.com/darkproduction721/AI-Agent-Studio/internal/orchestrator"
	"github.com/darkproduction721/AI-Agent-Studio/internal/persona"
	"github.com/darkproduction721/AI-Agent-Studio/internal/provider"
	"github.com/darkproduction721/AI-Agent-Studio/pkg/config"
)

// app holds the components shared by every command.
type app struct {
	config  *config.Config
	logger  *zap.Logger
	logs    *logging.Manager
	metrics *metrics.Metrics
}

func newApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logs := logging.NewManager(cfg.Logging.BufferSize)
	logger, err := logging.New(logging.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		BufferSize: cfg.Logging.BufferSize,
	}, logs)
	if err != nil {
		return nil, err
	}

	return &app{
		config:  cfg,
		logger:  logger,
		logs:    logs,
		metrics: metrics.NewMetrics(),
	}, nil
}

func (a *app) close() {
	_ = a.logger.Sync()
}

// loadCatalog indexes the agents directory and publishes the load report.
func (a *app) loadCatalog() *persona.Catalog {
	opts := []persona.Option{persona.WithLogger(a.logger.Named("catalog"))}
	if len(a.config.Agents.Patterns) > 0 {
		opts = append(opts, persona.WithPatterns(a.config.Agents.Patterns...))
	}
	catalog := persona.Load(a.config.Agents.Path, opts...)

	stats := catalog.Stats()
	report := catalog.Report()
	perDepartment := make(map[string]int, len(stats.DepartmentBreakdown))
	for _, d := range stats.DepartmentBreakdown {
		perDepartment[d.Name] = d.Count
	}
	a.metrics.RecordCatalog(perDepartment, len(report.Skipped), len(report.Degraded), len(report.Duplicates), report.RootMissing)

	a.logger.Info("Agent catalog loaded",
		zap.String("path", catalog.Root()),
		zap.Int("agents", stats.TotalAgents),
		zap.Int("departments", stats.Departments),
		zap.Int("skipped", len(report.Skipped)),
		zap.Int("degraded", len(report.Degraded)),
		zap.Int("duplicates", len(report.Duplicates)))
	return catalog
}

func (a *app) newBackend() *provider.OpenAIProvider {
	if a.config.Backend.APIKey == "" {
		a.logger.Warn("OPENROUTER_API_KEY is not set; completion requests will be rejected by the backend")
	}
	httpClient := &http.Client{
		Timeout:   a.config.Backend.Timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
	backend := provider.NewOpenAIProvider(a.config.Backend.BaseURL, a.config.Backend.APIKey, provider.Options{
		HTTPClient: httpClient,
		Referer:    a.config.Backend.Referer,
		Title:      a.config.Backend.Title,
		Timeout:    a.config.Backend.Timeout,
	})
	a.logger.Info("Completion backend configured",
		zap.String("endpoint", backend.Endpoint()),
		zap.String("default_model", a.config.Backend.DefaultModel))
	return backend
}

func (a *app) newOrchestrator(backend provider.Protocol) *orchestrator.Orchestrator {
	temperature := a.config.Backend.Temperature
	return orchestrator.New(backend, orchestrator.Config{
		DefaultModel: a.config.Backend.DefaultModel,
		MaxTokens:    a.config.Backend.MaxTokens,
		Temperature:  &temperature,
	}, orchestrator.WithLogger(a.logger.Named("orchestrator")), orchestrator.WithMetrics(a.metrics))
}

// openCache opens the configured model list cache. The caller closes it.
func (a *app) openCache(ctx context.Context) (*cache.Cache, *cache.Config, error) {
	cacheCfg := cache.DefaultConfig()
	cacheCfg.Enabled = a.config.Cache.Enabled
	cacheCfg.Backend = a.config.Cache.Backend
	cacheCfg.RedisURL = a.config.Cache.RedisURL
	if a.config.Cache.TTL > 0 {
		cacheCfg.DefaultTTL = a.config.Cache.TTL
	}
	if a.config.Cache.MaxSize > 0 {
		cacheCfg.MaxSize = a.config.Cache.MaxSize
	}

	c, err := cache.Open(ctx, cacheCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s cache: %w", cacheCfg.Backend, err)
	}
	return c.WithRecorder(a.metrics), cacheCfg, nil
}

// newAccessor builds the free model accessor. The returned cache must be
// closed by the caller.
func (a *app) newAccessor(ctx context.Context, backend provider.Protocol) (*modelcatalog.Accessor, *cache.Cache, error) {
	c, cacheCfg, err := a.openCache(ctx)
	if err != nil {
		return nil, nil, err
	}

	accessor := modelcatalog.NewAccessor(backend, a.config.Backend.FreeModels,
		modelcatalog.WithCache(c, cacheCfg.DefaultTTL),
		modelcatalog.WithLogger(a.logger.Named("models")),
		modelcatalog.WithMetrics(a.metrics))
	return accessor, c, nil
}
