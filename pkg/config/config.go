package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultModel is the model used when a request names none and the target of
// the fallback retry.
const DefaultModel = "qwen/qwen3-14b:free"

// DefaultFreeModels are always treated as free, whatever price the backend
// reports for them.
var DefaultFreeModels = []string{
	"qwen/qwen3-14b:free",
	"qwen/qwen3-8b:free",
	"qwen/qwen3-4b:free",
	"qwen/qwen3-30b-a3b:free",
	"qwen/qwen3-235b-a22b:free",
	"deepseek/deepseek-r1:free",
	"meta-llama/llama-3.3-70b-instruct:free",
	"google/gemini-2.0-flash-exp:free",
	"mistralai/mistral-small-3.2-24b-instruct:free",
}

// Config represents the main configuration for the agent studio.
type Config struct {
	Server    ServerConfig    `yaml:"server" json:"server"`
	Agents    AgentsConfig    `yaml:"agents" json:"agents"`
	Backend   BackendConfig   `yaml:"backend" json:"backend"`
	Cache     CacheConfig     `yaml:"cache" json:"cache"`
	Logging   LoggingConfig   `yaml:"logging" json:"logging"`
	Telemetry TelemetryConfig `yaml:"telemetry" json:"telemetry"`
}

// ServerConfig configures the HTTP server
type ServerConfig struct {
	Port            int           `yaml:"port" json:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" json:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" json:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout"`
	AllowedOrigins  []string      `yaml:"allowed_origins" json:"allowed_origins"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes" json:"max_body_bytes"`
	RateLimit       RateLimit     `yaml:"rate_limit" json:"rate_limit"`
	ChatRateLimit   RateLimit     `yaml:"chat_rate_limit" json:"chat_rate_limit"`
}

// RateLimit allows Requests per Window for each client IP. Zero Requests
// disables the limiter.
type RateLimit struct {
	Requests int           `yaml:"requests" json:"requests"`
	Window   time.Duration `yaml:"window" json:"window"`
}

// AgentsConfig configures the persona catalog
type AgentsConfig struct {
	Path     string   `yaml:"path" json:"path"`
	Patterns []string `yaml:"patterns" json:"patterns"`
}

// BackendConfig configures the completion backend
type BackendConfig struct {
	BaseURL      string        `yaml:"base_url" json:"base_url"`
	APIKey       string        `yaml:"api_key" json:"-"`
	DefaultModel string        `yaml:"default_model" json:"default_model"`
	FreeModels   []string      `yaml:"free_models" json:"free_models"`
	Referer      string        `yaml:"referer" json:"referer"`
	Title        string        `yaml:"title" json:"title"`
	Timeout      time.Duration `yaml:"timeout" json:"timeout"`
	MaxTokens    int           `yaml:"max_tokens" json:"max_tokens"`
	Temperature  float64       `yaml:"temperature" json:"temperature"`
}

// CacheConfig configures model list caching
type CacheConfig struct {
	Enabled  bool          `yaml:"enabled" json:"enabled"`
	Backend  string        `yaml:"backend" json:"backend"` // memory or redis
	TTL      time.Duration `yaml:"ttl" json:"ttl"`
	MaxSize  int           `yaml:"max_size" json:"max_size"`
	RedisURL string        `yaml:"redis_url" json:"-"`
}

// LoggingConfig configures the process logger
type LoggingConfig struct {
	Level      string `yaml:"level" json:"level"`
	Format     string `yaml:"format" json:"format"` // json or console
	BufferSize int    `yaml:"buffer_size" json:"buffer_size"`
}

// TelemetryConfig configures OpenTelemetry tracing
type TelemetryConfig struct {
	Enabled      bool   `yaml:"enabled" json:"enabled"`
	OTLPEndpoint string `yaml:"otlp_endpoint" json:"otlp_endpoint"`
	ServiceName  string `yaml:"service_name" json:"service_name"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            3001,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    120 * time.Second,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			AllowedOrigins:  []string{"http://localhost:3000", "http://localhost:5173"},
			MaxBodyBytes:    10 << 20,
			RateLimit:       RateLimit{Requests: 100, Window: 15 * time.Minute},
			ChatRateLimit:   RateLimit{Requests: 10, Window: time.Minute},
		},
		Agents: AgentsConfig{
			Path:     "./agents",
			Patterns: []string{"*.md"},
		},
		Backend: BackendConfig{
			BaseURL:      "https://openrouter.ai/api/v1",
			DefaultModel: DefaultModel,
			FreeModels:   append([]string(nil), DefaultFreeModels...),
			Referer:      "https://ai-agents-backend.local",
			Title:        "AI Agents Backend",
			Timeout:      60 * time.Second,
			MaxTokens:    2000,
			Temperature:  0.7,
		},
		Cache: CacheConfig{
			Enabled: true,
			Backend: "memory",
			TTL:     10 * time.Minute,
			MaxSize: 100,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			BufferSize: 1000,
		},
		Telemetry: TelemetryConfig{
			Enabled:      false,
			OTLPEndpoint: "localhost:4317",
			ServiceName:  "agentstudio",
		},
	}
}

// LoadConfigFromFile loads configuration from a YAML file at the specified
// path. Keys missing from the file keep their default values.
func LoadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables (e.g. ${OPENROUTER_API_KEY}) before parsing YAML
	expanded := os.ExpandEnv(string(data))

	config := DefaultConfig()
	if err := yaml.Unmarshal([]byte(expanded), config); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	return config, nil
}

// Load reads path when it is non-empty, applies environment overrides and
// validates the result. A missing file is an error only when path was given
// explicitly.
func Load(path string) (*Config, error) {
	config := DefaultConfig()
	if path != "" {
		loaded, err := LoadConfigFromFile(path)
		if err != nil {
			return nil, err
		}
		config = loaded
	}

	if err := config.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// ApplyEnv overrides fields from the environment. lookup is usually
// os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		c.Server.Port = port
	}
	if v, ok := lookup("OPENROUTER_API_KEY"); ok {
		c.Backend.APIKey = v
	}
	if v, ok := lookup("AGENTS_PATH"); ok && v != "" {
		c.Agents.Path = v
	}
	if v, ok := lookup("DEFAULT_MODEL"); ok && v != "" {
		c.Backend.DefaultModel = v
	}
	if v, ok := lookup("OPENROUTER_BASE_URL"); ok && v != "" {
		c.Backend.BaseURL = v
	}
	if v, ok := lookup("REDIS_URL"); ok && v != "" {
		c.Cache.RedisURL = v
		c.Cache.Backend = "redis"
	}
	if v, ok := lookup("OTEL_EXPORTER_OTLP_ENDPOINT"); ok && v != "" {
		c.Telemetry.OTLPEndpoint = v
		c.Telemetry.Enabled = true
	}
	if v, ok := lookup("LOG_LEVEL"); ok && v != "" {
		c.Logging.Level = v
	}
	return nil
}

// Validate checks the configuration for values the server cannot run with.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port))
	}
	if strings.TrimSpace(c.Backend.DefaultModel) == "" {
		errs = append(errs, errors.New("backend.default_model must not be empty"))
	}
	if c.Backend.BaseURL == "" {
		errs = append(errs, errors.New("backend.base_url must not be empty"))
	}
	switch c.Cache.Backend {
	case "", "memory":
	case "redis":
		if c.Cache.Enabled && c.Cache.RedisURL == "" {
			errs = append(errs, errors.New("cache.redis_url is required for the redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown cache.backend %q", c.Cache.Backend))
	}
	for name, rl := range map[string]RateLimit{"rate_limit": c.Server.RateLimit, "chat_rate_limit": c.Server.ChatRateLimit} {
		if rl.Requests > 0 && rl.Window <= 0 {
			errs = append(errs, fmt.Errorf("server.%s.window must be positive", name))
		}
	}

	return errors.Join(errs...)
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}
