// Package provider talks to the OpenAI-compatible completion backend.
package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/tidwall/gjson"
)

// Protocol defines the interface for communicating with AI providers
// using OpenAI-compatible APIs
type Protocol interface {
	// CreateChatCompletion sends a chat completion request
	CreateChatCompletion(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error)

	// GetModels lists available models
	GetModels(ctx context.Context) ([]Model, error)
}

// ChatMessage represents a message in the chat
type ChatMessage struct {
	Role    string `json:"role"`    // system, user, assistant
	Content string `json:"content"` // message content
}

// ChatCompletionRequest represents a chat completion request
type ChatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`

	// Extra holds additional body fields. They are applied last, so they
	// win over Temperature and MaxTokens.
	Extra map[string]interface{} `json:"-"`
}

// ChatCompletionResponse represents a chat completion response
type ChatCompletionResponse struct {
	ID      string   `json:"id"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
}

// Choice is one completion alternative.
type Choice struct {
	Index        int         `json:"index"`
	Message      ChatMessage `json:"message"`
	Reasoning    string      `json:"reasoning,omitempty"`
	FinishReason string      `json:"finish_reason"`
}

// Usage holds token accounting reported by the backend.
type Usage struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	TotalTokens      int64 `json:"total_tokens"`
}

// Model represents an AI model
type Model struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Description   string  `json:"description"`
	ContextLength int64   `json:"context_length"`
	Pricing       Pricing `json:"pricing"`
}

// Pricing is the per-token price as reported by the backend. Prices are kept
// as the backend's decimal strings; an empty string means no price was given.
type Pricing struct {
	Prompt     string `json:"prompt"`
	Completion string `json:"completion"`
}

// APIError is a failure reported by the backend or the transport.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return e.Message
	}
	return fmt.Sprintf("status %d: %s", e.StatusCode, e.Message)
}

// Options configure an OpenAIProvider.
type Options struct {
	HTTPClient *http.Client
	Referer    string
	Title      string
	Timeout    time.Duration
}

// OpenAIProvider implements the Protocol interface for OpenAI-compatible APIs
type OpenAIProvider struct {
	endpoint string
	client   openai.Client
}

// NewOpenAIProvider creates a new OpenAI-compatible provider
func NewOpenAIProvider(endpoint, apiKey string, opts Options) *OpenAIProvider {
	endpoint = strings.TrimSuffix(endpoint, "/")

	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	clientOpts := []option.RequestOption{
		option.WithBaseURL(endpoint + "/"),
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(httpClient),
		// Retries are decided by the orchestrator, not the transport.
		option.WithMaxRetries(0),
	}
	if opts.Referer != "" {
		clientOpts = append(clientOpts, option.WithHeader("HTTP-Referer", opts.Referer))
	}
	if opts.Title != "" {
		clientOpts = append(clientOpts, option.WithHeader("X-Title", opts.Title))
	}

	return &OpenAIProvider{
		endpoint: endpoint,
		client:   openai.NewClient(clientOpts...),
	}
}

// Endpoint returns the backend base URL.
func (p *OpenAIProvider) Endpoint() string {
	return p.endpoint
}

// CreateChatCompletion sends a chat completion request. Messages are sent
// exactly as given, and Extra keys are sent as literal top-level fields.
func (p *OpenAIProvider) CreateChatCompletion(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error) {
	var completion openai.ChatCompletion
	if err := p.client.Post(ctx, "chat/completions", completionBody(req), &completion); err != nil {
		return nil, toAPIError(err)
	}

	resp := &ChatCompletionResponse{
		ID:    completion.ID,
		Model: completion.Model,
		Usage: Usage{
			PromptTokens:     completion.Usage.PromptTokens,
			CompletionTokens: completion.Usage.CompletionTokens,
			TotalTokens:      completion.Usage.TotalTokens,
		},
	}
	for _, c := range completion.Choices {
		resp.Choices = append(resp.Choices, Choice{
			Index:        int(c.Index),
			Message:      ChatMessage{Role: string(c.Message.Role), Content: c.Message.Content},
			Reasoning:    gjson.Get(c.Message.RawJSON(), "reasoning").String(),
			FinishReason: c.FinishReason,
		})
	}
	return resp, nil
}

// GetModels lists available models
func (p *OpenAIProvider) GetModels(ctx context.Context) ([]Model, error) {
	var body []byte
	if err := p.client.Get(ctx, "models", nil, &body); err != nil {
		return nil, toAPIError(err)
	}
	return decodeModels(body)
}

// decodeModels reads the model list. Pricing fields may be numbers or
// strings depending on the backend.
func decodeModels(body []byte) ([]Model, error) {
	data := gjson.GetBytes(body, "data")
	if !data.IsArray() {
		return nil, &APIError{StatusCode: http.StatusBadGateway, Message: "invalid models response"}
	}

	models := make([]Model, 0, len(data.Array()))
	data.ForEach(func(_, m gjson.Result) bool {
		models = append(models, Model{
			ID:            m.Get("id").String(),
			Name:          m.Get("name").String(),
			Description:   m.Get("description").String(),
			ContextLength: m.Get("context_length").Int(),
			Pricing: Pricing{
				Prompt:     priceString(m.Get("pricing.prompt")),
				Completion: priceString(m.Get("pricing.completion")),
			},
		})
		return true
	})
	return models, nil
}

func priceString(r gjson.Result) string {
	if !r.Exists() || r.Type == gjson.Null {
		return ""
	}
	if r.Type == gjson.String {
		return r.Str
	}
	return r.Raw
}

// completionBody builds the request body. Extra wins over Temperature and
// MaxTokens but never over model, messages or stream.
func completionBody(req *ChatCompletionRequest) map[string]interface{} {
	messages := req.Messages
	if messages == nil {
		messages = []ChatMessage{}
	}

	body := map[string]interface{}{
		"temperature": req.Temperature,
	}
	if req.MaxTokens > 0 {
		body["max_tokens"] = req.MaxTokens
	}
	for key, value := range req.Extra {
		body[key] = value
	}
	body["model"] = req.Model
	body["messages"] = messages
	body["stream"] = false
	return body
}

// toAPIError normalizes SDK and transport errors. Backend errors keep their
// status and message; everything else has no status.
func toAPIError(err error) error {
	var sdkErr *openai.Error
	if !errors.As(err, &sdkErr) {
		return &APIError{Message: err.Error()}
	}

	message := sdkErr.Message
	if message == "" {
		raw := sdkErr.RawJSON()
		for _, path := range []string{"error.message", "message", "error"} {
			if v := gjson.Get(raw, path); v.Type == gjson.String && v.Str != "" {
				message = v.Str
				break
			}
		}
	}
	if message == "" {
		message = http.StatusText(sdkErr.StatusCode)
	}
	return &APIError{StatusCode: sdkErr.StatusCode, Message: message}
}
