// Package modelcatalog lists the backend models that cost nothing to call.
package modelcatalog

import (
	"context"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/darkproduction721/AI-Agent-Studio/internal/cache"
	"github.com/darkproduction721/AI-Agent-Studio/internal/metrics"
	"github.com/darkproduction721/AI-Agent-Studio/internal/provider"
	"github.com/darkproduction721/AI-Agent-Studio/internal/telemetry"
)

// FreeModel is the projection returned to callers.
type FreeModel struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	ContextLength int64  `json:"contextLength"`
	Description   string `json:"description"`
}

// Accessor fetches and filters the backend model list.
type Accessor struct {
	backend   provider.Protocol
	allowList map[string]struct{}
	cache     *cache.Cache
	cacheKey  string
	ttl       time.Duration
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

// Option configures an Accessor.
type Option func(*Accessor)

// WithCache caches the filtered list for ttl. Only successful fetches are
// cached.
func WithCache(c *cache.Cache, ttl time.Duration) Option {
	return func(a *Accessor) {
		a.cache = c
		a.ttl = ttl
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(a *Accessor) { a.logger = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Accessor) { a.metrics = m }
}

// NewAccessor creates an accessor. Models in allowList are kept even when
// the backend reports a price for them, or none at all.
func NewAccessor(backend provider.Protocol, allowList []string, opts ...Option) *Accessor {
	a := &Accessor{
		backend:   backend,
		allowList: make(map[string]struct{}, len(allowList)),
		logger:    zap.NewNop(),
	}
	for _, id := range allowList {
		a.allowList[id] = struct{}{}
	}
	a.cacheKey = cache.GenerateKey("models", allowList...)
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ListFreeModels returns the free models in backend order. On failure it
// returns an empty, non-nil slice together with the error.
func (a *Accessor) ListFreeModels(ctx context.Context) ([]FreeModel, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "modelcatalog.ListFreeModels")
	defer span.End()

	if a.cache != nil {
		var cached []FreeModel
		if a.cache.GetJSON(ctx, a.cacheKey, &cached) {
			a.metrics.RecordModelList("cached")
			return cached, nil
		}
	}

	models, err := a.backend.GetModels(ctx)
	if err != nil {
		a.logger.Warn("Failed to fetch models", zap.Error(err))
		a.metrics.RecordModelList("error")
		span.RecordError(err)
		return []FreeModel{}, err
	}

	free := make([]FreeModel, 0, len(models))
	for _, m := range models {
		if !a.IsFree(m) {
			continue
		}
		free = append(free, FreeModel{
			ID:            m.ID,
			Name:          m.Name,
			ContextLength: m.ContextLength,
			Description:   m.Description,
		})
	}
	a.metrics.RecordModelList("fetched")

	if a.cache != nil {
		if err := a.cache.SetJSON(ctx, a.cacheKey, free, a.ttl); err != nil {
			a.logger.Warn("Failed to cache model list", zap.Error(err))
		}
	}
	return free, nil
}

// Refresh drops the cached list so the next ListFreeModels call fetches
// from the backend.
func (a *Accessor) Refresh(ctx context.Context) error {
	if a.cache == nil {
		return nil
	}
	return a.cache.Delete(ctx, a.cacheKey)
}

// CacheStats reports hit and miss counts of the model list cache. It is the
// zero value when caching is off.
func (a *Accessor) CacheStats() cache.Stats {
	if a.cache == nil {
		return cache.Stats{}
	}
	return a.cache.GetStats()
}

// IsFree reports whether the model's prompt price is zero or the model is
// allow-listed.
func (a *Accessor) IsFree(m provider.Model) bool {
	if _, ok := a.allowList[m.ID]; ok {
		return true
	}
	return isZeroPrice(m.Pricing.Prompt)
}

// isZeroPrice accepts "0" as well as numeric spellings such as "0.0". An
// empty price is not free.
func isZeroPrice(price string) bool {
	price = strings.TrimSpace(price)
	if price == "" {
		return false
	}
	v, err := strconv.ParseFloat(price, 64)
	return err == nil && v == 0
}
