package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"
)

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config defines cache configuration
type Config struct {
	Enabled       bool          `json:"enabled"`
	Backend       string        `json:"backend"`        // memory or redis
	DefaultTTL    time.Duration `json:"default_ttl"`    // Default time-to-live for cache entries
	MaxSize       int           `json:"max_size"`       // Maximum number of in-memory entries
	CleanupPeriod time.Duration `json:"cleanup_period"` // How often to drop expired in-memory entries
	RedisURL      string        `json:"redis_url"`
	KeyPrefix     string        `json:"key_prefix"`
}

// DefaultConfig returns sensible defaults for caching
func DefaultConfig() *Config {
	return &Config{
		Enabled:       true,
		Backend:       BackendMemory,
		DefaultTTL:    10 * time.Minute,
		MaxSize:       1000,
		CleanupPeriod: 5 * time.Minute,
		KeyPrefix:     "agentstudio:",
	}
}

// Backend stores raw values with an expiry.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	Close() error
}

// HitRecorder receives hit/miss notifications. *metrics.Metrics satisfies it.
type HitRecorder interface {
	RecordCache(hit bool)
}

// Stats tracks cache performance
type Stats struct {
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	Errors  int64   `json:"errors"`
	HitRate float64 `json:"hit_rate"`
}

// Cache stores JSON-encoded values in a Backend. A disabled cache misses on
// every lookup and drops every write.
type Cache struct {
	backend  Backend
	config   *Config
	recorder HitRecorder

	mu    sync.Mutex
	stats Stats
}

// New creates a cache over the given backend. A nil backend gets an
// in-memory one built from config.
func New(config *Config, backend Backend) *Cache {
	if config == nil {
		config = DefaultConfig()
	}
	if backend == nil && config.Enabled {
		backend = NewMemoryBackend(config.MaxSize, config.CleanupPeriod)
	}
	return &Cache{backend: backend, config: config}
}

// Open builds the backend named by config.Backend.
func Open(ctx context.Context, config *Config) (*Cache, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if !config.Enabled {
		return New(config, nil), nil
	}

	switch strings.ToLower(config.Backend) {
	case "", BackendMemory:
		return New(config, nil), nil
	case BackendRedis:
		backend, err := NewRedisBackend(ctx, config.RedisURL, config.KeyPrefix)
		if err != nil {
			return nil, err
		}
		return New(config, backend), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", config.Backend)
	}
}

// WithRecorder attaches a hit/miss recorder.
func (c *Cache) WithRecorder(r HitRecorder) *Cache {
	c.recorder = r
	return c
}

// GenerateKey creates a stable cache key from its parts.
func GenerateKey(namespace string, parts ...string) string {
	hasher := sha256.New()
	for _, p := range parts {
		hasher.Write([]byte(p))
		hasher.Write([]byte{0})
	}
	return namespace + ":" + hex.EncodeToString(hasher.Sum(nil))[:16]
}

// GetJSON decodes the cached value for key into v. It reports false on a
// miss, and on a backend or decode failure, which counts as a miss.
func (c *Cache) GetJSON(ctx context.Context, key string, v interface{}) bool {
	if !c.config.Enabled || c.backend == nil {
		return false
	}

	raw, ok, err := c.backend.Get(ctx, key)
	if err == nil && ok {
		err = json.Unmarshal(raw, v)
	}
	if err != nil {
		c.record(false, true)
		return false
	}
	c.record(ok, false)
	return ok
}

// SetJSON stores v under key. A zero ttl uses the configured default.
func (c *Cache) SetJSON(ctx context.Context, key string, v interface{}, ttl time.Duration) error {
	if !c.config.Enabled || c.backend == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = c.config.DefaultTTL
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}
	return c.backend.Set(ctx, key, raw, ttl)
}

// Delete removes an entry from the cache
func (c *Cache) Delete(ctx context.Context, key string) error {
	if !c.config.Enabled || c.backend == nil {
		return nil
	}
	return c.backend.Delete(ctx, key)
}

// Clear removes all entries from the cache
func (c *Cache) Clear(ctx context.Context) error {
	if !c.config.Enabled || c.backend == nil {
		return nil
	}
	return c.backend.Clear(ctx)
}

// Close releases the backend.
func (c *Cache) Close() error {
	if c.backend == nil {
		return nil
	}
	return c.backend.Close()
}

// GetStats returns current cache statistics
func (c *Cache) GetStats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := c.stats
	if total := stats.Hits + stats.Misses; total > 0 {
		stats.HitRate = float64(stats.Hits) / float64(total)
	}
	return stats
}

func (c *Cache) record(hit, failed bool) {
	c.mu.Lock()
	if hit {
		c.stats.Hits++
	} else {
		c.stats.Misses++
	}
	if failed {
		c.stats.Errors++
	}
	c.mu.Unlock()

	if c.recorder != nil {
		c.recorder.RecordCache(hit)
	}
}
