// Package orchestrator sends persona conversations to the completion backend
// and retries failed non-default models once against the default model.
package orchestrator

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/darkproduction721/AI-Agent-Studio/internal/metrics"
	"github.com/darkproduction721/AI-Agent-Studio/internal/provider"
	"github.com/darkproduction721/AI-Agent-Studio/internal/telemetry"
)

const (
	DefaultMaxTokens   = 2000
	DefaultTemperature = 0.7

	// InvalidResponseMessage is the failure reported when the backend
	// answers without any completion choice.
	InvalidResponseMessage = "Invalid response format"

	connectionTestMessage   = "Hello! This is a connection test."
	connectionTestMaxTokens = 10
)

// Fields the orchestrator always controls; callers cannot override them.
var reservedFields = []string{"model", "messages", "stream"}

// Config holds orchestrator defaults. DefaultModel is both the model used
// when a request names none and the fallback retry target. A nil
// Temperature takes DefaultTemperature; an explicit 0 is kept.
type Config struct {
	DefaultModel string
	MaxTokens    int
	Temperature  *float64
}

// Options are caller-supplied request options. Extra keys are sent as-is
// and take precedence over MaxTokens and Temperature.
type Options struct {
	MaxTokens   *int
	Temperature *float64
	Extra       map[string]interface{}
}

// Request is one chat turn against a persona.
type Request struct {
	SystemPrompt string
	History      []provider.ChatMessage
	Message      string
	Model        string
	Options      Options
}

// Success is a completed call.
type Success struct {
	Text      string         `json:"text"`
	ModelUsed string         `json:"model"`
	Reasoning string         `json:"reasoning,omitempty"`
	Usage     provider.Usage `json:"usage"`
}

// Failure is a call that did not produce a completion. StatusHint is the
// backend's HTTP status, or 500 when none was reported.
type Failure struct {
	Message    string `json:"message"`
	StatusHint int    `json:"status"`
}

// Result holds exactly one of Success or Failure.
type Result struct {
	Success *Success
	Failure *Failure
}

// OK reports whether the call succeeded.
func (r Result) OK() bool {
	return r.Success != nil
}

// Orchestrator is stateless between calls and safe for concurrent use.
type Orchestrator struct {
	backend provider.Protocol
	config  Config
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// New creates an orchestrator. Zero MaxTokens and nil Temperature take the
// package defaults.
func New(backend provider.Protocol, config Config, opts ...Option) *Orchestrator {
	if config.MaxTokens <= 0 {
		config.MaxTokens = DefaultMaxTokens
	}
	temperature := DefaultTemperature
	if config.Temperature != nil {
		temperature = *config.Temperature
	}
	config.Temperature = &temperature
	o := &Orchestrator{
		backend: backend,
		config:  config,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// DefaultModel returns the configured default model.
func (o *Orchestrator) DefaultModel() string {
	return o.config.DefaultModel
}

// BuildMessages returns the system turn, the history as given and the new
// user turn, in that order.
func BuildMessages(systemPrompt string, history []provider.ChatMessage, message string) []provider.ChatMessage {
	messages := make([]provider.ChatMessage, 0, len(history)+2)
	messages = append(messages, provider.ChatMessage{Role: "system", Content: systemPrompt})
	messages = append(messages, history...)
	messages = append(messages, provider.ChatMessage{Role: "user", Content: message})
	return messages
}

// Complete runs the request. If it fails and the requested model is not the
// default model, it is retried once against the default model and that
// second outcome is final.
func (o *Orchestrator) Complete(ctx context.Context, req Request) Result {
	ctx, span := telemetry.Tracer().Start(ctx, "orchestrator.Complete")
	defer span.End()

	messages := BuildMessages(req.SystemPrompt, req.History, req.Message)

	model := req.Model
	if model == "" {
		model = o.config.DefaultModel
	}
	span.SetAttributes(
		attribute.String("model.requested", req.Model),
		attribute.Int("messages.count", len(messages)),
	)

	result := o.attempt(ctx, model, messages, req.Options)
	if result.OK() || req.Model == o.config.DefaultModel {
		o.finishSpan(span, result)
		return result
	}

	o.logger.Warn("Completion failed, retrying with default model",
		zap.String("model", model),
		zap.String("default_model", o.config.DefaultModel),
		zap.String("error", result.Failure.Message))
	span.AddEvent("fallback", trace.WithAttributes(attribute.String("model.fallback", o.config.DefaultModel)))

	result = o.attempt(ctx, o.config.DefaultModel, messages, req.Options)
	o.metrics.RecordFallback(result.OK())
	o.finishSpan(span, result)
	return result
}

// TestConnection sends a short greeting to the default model. It does not
// fall back.
func (o *Orchestrator) TestConnection(ctx context.Context) bool {
	ctx, span := telemetry.Tracer().Start(ctx, "orchestrator.TestConnection")
	defer span.End()

	maxTokens := connectionTestMaxTokens
	messages := []provider.ChatMessage{{Role: "user", Content: connectionTestMessage}}
	result := o.attempt(ctx, o.config.DefaultModel, messages, Options{MaxTokens: &maxTokens})
	o.finishSpan(span, result)
	return result.OK()
}

func (o *Orchestrator) attempt(ctx context.Context, model string, messages []provider.ChatMessage, opts Options) Result {
	req := &provider.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   o.config.MaxTokens,
		Temperature: *o.config.Temperature,
		Extra:       sanitizeExtra(opts.Extra),
	}
	if opts.MaxTokens != nil {
		req.MaxTokens = *opts.MaxTokens
	}
	if opts.Temperature != nil {
		req.Temperature = *opts.Temperature
	}

	start := time.Now()
	resp, err := o.backend.CreateChatCompletion(ctx, req)
	elapsed := time.Since(start).Seconds()

	if err != nil {
		failure := toFailure(err)
		o.logger.Warn("Completion backend error",
			zap.String("model", model),
			zap.Int("status", failure.StatusHint),
			zap.String("error", failure.Message))
		o.metrics.RecordCompletion(model, false, elapsed, 0, 0, 0)
		return Result{Failure: failure}
	}

	if resp == nil || len(resp.Choices) == 0 {
		o.logger.Warn("Completion backend returned no choices", zap.String("model", model))
		o.metrics.RecordCompletion(model, false, elapsed, 0, 0, 0)
		return Result{Failure: &Failure{Message: InvalidResponseMessage, StatusHint: http.StatusInternalServerError}}
	}

	used := resp.Model
	if used == "" {
		used = model
	}
	o.metrics.RecordCompletion(used, true, elapsed,
		resp.Usage.PromptTokens, resp.Usage.CompletionTokens, resp.Usage.TotalTokens)

	choice := resp.Choices[0]
	return Result{Success: &Success{
		Text:      choice.Message.Content,
		ModelUsed: used,
		Reasoning: choice.Reasoning,
		Usage:     resp.Usage,
	}}
}

func (o *Orchestrator) finishSpan(span trace.Span, result Result) {
	if result.OK() {
		span.SetAttributes(attribute.String("model.used", result.Success.ModelUsed))
		span.SetStatus(codes.Ok, "")
		return
	}
	span.SetAttributes(attribute.Int("status_hint", result.Failure.StatusHint))
	span.SetStatus(codes.Error, result.Failure.Message)
}

func sanitizeExtra(extra map[string]interface{}) map[string]interface{} {
	if len(extra) == 0 {
		return nil
	}
	out := make(map[string]interface{}, len(extra))
	for k, v := range extra {
		out[k] = v
	}
	for _, k := range reservedFields {
		delete(out, k)
	}
	return out
}

func toFailure(err error) *Failure {
	failure := &Failure{Message: err.Error(), StatusHint: http.StatusInternalServerError}

	var apiErr *provider.APIError
	if errors.As(err, &apiErr) {
		failure.Message = apiErr.Message
		if apiErr.StatusCode != 0 {
			failure.StatusHint = apiErr.StatusCode
		}
	}
	return failure
}
