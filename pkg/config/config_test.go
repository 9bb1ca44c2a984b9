package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.Port != 3001 {
		t.Errorf("expected port 3001, got %d", cfg.Server.Port)
	}
	if cfg.Server.MaxBodyBytes != 10<<20 {
		t.Errorf("expected 10MiB body limit, got %d", cfg.Server.MaxBodyBytes)
	}
	if cfg.Server.RateLimit.Requests != 100 || cfg.Server.RateLimit.Window != 15*time.Minute {
		t.Errorf("unexpected global rate limit %+v", cfg.Server.RateLimit)
	}
	if cfg.Server.ChatRateLimit.Requests != 10 || cfg.Server.ChatRateLimit.Window != time.Minute {
		t.Errorf("unexpected chat rate limit %+v", cfg.Server.ChatRateLimit)
	}
	if cfg.Backend.DefaultModel != DefaultModel {
		t.Errorf("expected default model %q, got %q", DefaultModel, cfg.Backend.DefaultModel)
	}
	if len(cfg.Backend.FreeModels) != 9 {
		t.Errorf("expected 9 allow-listed models, got %d", len(cfg.Backend.FreeModels))
	}
	if cfg.Backend.MaxTokens != 2000 || cfg.Backend.Temperature != 0.7 {
		t.Errorf("unexpected completion defaults %d/%v", cfg.Backend.MaxTokens, cfg.Backend.Temperature)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestDefaultConfig_FreeModelsNotShared(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Backend.FreeModels[0] = "changed"
	assert.Equal(t, "qwen/qwen3-14b:free", DefaultFreeModels[0])
}

func TestLoadConfigFromFile(t *testing.T) {
	t.Setenv("TEST_STUDIO_KEY", "sk-or-secret")

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: 8080
  allowed_origins: ["https://studio.example.com"]
agents:
  path: /srv/agents
backend:
  api_key: ${TEST_STUDIO_KEY}
  default_model: deepseek/deepseek-r1:free
  temperature: 0
cache:
  ttl: 30s
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadConfigFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"https://studio.example.com"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "/srv/agents", cfg.Agents.Path)
	assert.Equal(t, "sk-or-secret", cfg.Backend.APIKey)
	assert.Equal(t, "deepseek/deepseek-r1:free", cfg.Backend.DefaultModel)
	assert.Equal(t, 30*time.Second, cfg.Cache.TTL)
	assert.Equal(t, 0.0, cfg.Backend.Temperature, "an explicit zero temperature is kept")

	// Untouched keys keep their defaults.
	assert.Equal(t, "https://openrouter.ai/api/v1", cfg.Backend.BaseURL)
	assert.Equal(t, []string{"*.md"}, cfg.Agents.Patterns)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
}

func TestLoadConfigFromFile_Errors(t *testing.T) {
	_, err := LoadConfigFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unclosed"), 0644))
	_, err = LoadConfigFromFile(path)
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"PORT":                        "4000",
		"OPENROUTER_API_KEY":          "sk-env",
		"AGENTS_PATH":                 "/data/agents",
		"DEFAULT_MODEL":               "qwen/qwen3-8b:free",
		"OPENROUTER_BASE_URL":         "http://localhost:9999/v1",
		"REDIS_URL":                   "redis://localhost:6379/0",
		"OTEL_EXPORTER_OTLP_ENDPOINT": "collector:4317",
		"LOG_LEVEL":                   "debug",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := DefaultConfig()
	require.NoError(t, cfg.ApplyEnv(lookup))

	assert.Equal(t, 4000, cfg.Server.Port)
	assert.Equal(t, "sk-env", cfg.Backend.APIKey)
	assert.Equal(t, "/data/agents", cfg.Agents.Path)
	assert.Equal(t, "qwen/qwen3-8b:free", cfg.Backend.DefaultModel)
	assert.Equal(t, "http://localhost:9999/v1", cfg.Backend.BaseURL)
	assert.Equal(t, "redis", cfg.Cache.Backend)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Cache.RedisURL)
	assert.True(t, cfg.Telemetry.Enabled)
	assert.Equal(t, "collector:4317", cfg.Telemetry.OTLPEndpoint)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestApplyEnv_InvalidPort(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.ApplyEnv(func(k string) (string, bool) {
		if k == "PORT" {
			return "http", true
		}
		return "", false
	})
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"zero port", func(c *Config) { c.Server.Port = 0 }, true},
		{"port too large", func(c *Config) { c.Server.Port = 70000 }, true},
		{"empty default model", func(c *Config) { c.Backend.DefaultModel = " " }, true},
		{"empty base url", func(c *Config) { c.Backend.BaseURL = "" }, true},
		{"unknown cache backend", func(c *Config) { c.Cache.Backend = "memcached" }, true},
		{"redis without url", func(c *Config) { c.Cache.Backend = "redis" }, true},
		{"redis with url", func(c *Config) {
			c.Cache.Backend = "redis"
			c.Cache.RedisURL = "redis://localhost:6379"
		}, false},
		{"rate limit without window", func(c *Config) { c.Server.ChatRateLimit.Window = 0 }, true},
		{"disabled rate limit", func(c *Config) { c.Server.RateLimit = RateLimit{} }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	t.Setenv("PORT", "5000")
	t.Setenv("DEFAULT_MODEL", "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 5000, cfg.Server.Port)
	assert.Equal(t, DefaultModel, cfg.Backend.DefaultModel)
	assert.Equal(t, ":5000", cfg.Addr())

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
