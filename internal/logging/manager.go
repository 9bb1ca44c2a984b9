package logging

import (
	"container/ring"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	// DefaultBufferSize is the number of log entries kept in memory
	DefaultBufferSize = 1000

	// LogLevelDebug represents debug-level logs
	LogLevelDebug = "debug"
	// LogLevelInfo represents info-level logs
	LogLevelInfo = "info"
	// LogLevelWarn represents warning-level logs
	LogLevelWarn = "warn"
	// LogLevelError represents error-level logs
	LogLevelError = "error"
)

// Config selects the logger level and output encoding.
type Config struct {
	Level      string
	Format     string // json or console
	BufferSize int
}

// LogEntry represents a single log entry
type LogEntry struct {
	ID        string                 `json:"id"`
	Timestamp time.Time              `json:"timestamp"`
	Level     string                 `json:"level"`
	Source    string                 `json:"source"`
	Message   string                 `json:"message"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// Manager keeps the most recent log entries in a ring buffer so they can be
// served over the API.
type Manager struct {
	mu     sync.RWMutex
	buffer *ring.Ring
	seq    atomic.Uint64
}

// NewManager creates a new logging manager
func NewManager(size int) *Manager {
	if size <= 0 {
		size = DefaultBufferSize
	}
	return &Manager{buffer: ring.New(size)}
}

// New builds the process logger. Entries at or above the configured level go
// to stderr and, when m is non-nil, into m's buffer.
func New(cfg Config, m *Manager) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if cfg.Level != "" {
		parsed, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
		level = parsed
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	switch strings.ToLower(cfg.Format) {
	case "", "json":
		encoder = zapcore.NewJSONEncoder(encCfg)
	case "console":
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encCfg)
	default:
		return nil, fmt.Errorf("invalid log format %q", cfg.Format)
	}

	core := zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), level)
	if m != nil {
		core = zapcore.NewTee(core, m.Core(level))
	}
	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)), nil
}

// Log adds a log entry to the buffer
func (m *Manager) Log(level, source, message string, metadata map[string]interface{}) {
	entry := LogEntry{
		ID:        fmt.Sprintf("log-%d", m.seq.Add(1)),
		Timestamp: time.Now(),
		Level:     level,
		Source:    source,
		Message:   message,
		Metadata:  metadata,
	}

	m.mu.Lock()
	m.buffer.Value = entry
	m.buffer = m.buffer.Next()
	m.mu.Unlock()
}

// GetRecent returns up to limit of the newest entries, newest first.
// Empty filters match everything.
func (m *Manager) GetRecent(limit int, levelFilter, sourceFilter string) []LogEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}

	// The current position is the oldest slot, so Do walks oldest to newest.
	matched := make([]LogEntry, 0)
	m.buffer.Do(func(v interface{}) {
		entry, ok := v.(LogEntry)
		if !ok {
			return
		}
		if levelFilter != "" && entry.Level != levelFilter {
			return
		}
		if sourceFilter != "" && entry.Source != sourceFilter {
			return
		}
		matched = append(matched, entry)
	})

	logs := make([]LogEntry, 0, limit)
	for i := len(matched) - 1; i >= 0 && len(logs) < limit; i-- {
		logs = append(logs, matched[i])
	}
	return logs
}

// Core returns a zapcore.Core that records entries into the buffer.
func (m *Manager) Core(enab zapcore.LevelEnabler) zapcore.Core {
	return &bufferCore{LevelEnabler: enab, manager: m}
}

type bufferCore struct {
	zapcore.LevelEnabler
	manager *Manager
	fields  []zapcore.Field
}

func (c *bufferCore) With(fields []zapcore.Field) zapcore.Core {
	clone := &bufferCore{LevelEnabler: c.LevelEnabler, manager: c.manager}
	clone.fields = append(append(clone.fields, c.fields...), fields...)
	return clone
}

func (c *bufferCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *bufferCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	enc := zapcore.NewMapObjectEncoder()
	for _, f := range c.fields {
		f.AddTo(enc)
	}
	for _, f := range fields {
		f.AddTo(enc)
	}

	var metadata map[string]interface{}
	if len(enc.Fields) > 0 {
		metadata = enc.Fields
	}

	source := ent.LoggerName
	if source == "" {
		source = "system"
	}
	c.manager.Log(ent.Level.String(), source, ent.Message, metadata)
	return nil
}

func (c *bufferCore) Sync() error {
	return nil
}
