package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const completionResponseBody = `{
  "id": "gen-1",
  "object": "chat.completion",
  "created": 1700000000,
  "model": "qwen/qwen3-14b:free",
  "choices": [{
    "index": 0,
    "message": {"role": "assistant", "content": "Hello", "reasoning": "thinking it over"},
    "finish_reason": "stop"
  }],
  "usage": {"prompt_tokens": 12, "completion_tokens": 3, "total_tokens": 15}
}`

func TestCreateChatCompletion(t *testing.T) {
	var body map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "https://studio.local", r.Header.Get("HTTP-Referer"))
		assert.Equal(t, "AI Agent Studio", r.Header.Get("X-Title"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completionResponseBody))
	}))
	defer server.Close()

	p := NewOpenAIProvider(server.URL+"/api/v1", "test-key", Options{
		Referer: "https://studio.local",
		Title:   "AI Agent Studio",
	})

	resp, err := p.CreateChatCompletion(context.Background(), &ChatCompletionRequest{
		Model: "x/y",
		Messages: []ChatMessage{
			{Role: "system", Content: "You are helpful."},
			{Role: "user", Content: "Hi"},
		},
		Temperature: 0.7,
		MaxTokens:   2000,
		Extra:       map[string]interface{}{"top_p": 0.9, "temperature": 0.2},
	})
	require.NoError(t, err)

	assert.Equal(t, "x/y", body["model"])
	assert.Equal(t, float64(2000), body["max_tokens"])
	assert.Equal(t, 0.2, body["temperature"])
	assert.Equal(t, 0.9, body["top_p"])
	assert.Equal(t, false, body["stream"])
	messages, ok := body["messages"].([]interface{})
	require.True(t, ok)
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].(map[string]interface{})["role"])

	assert.Equal(t, "qwen/qwen3-14b:free", resp.Model)
	require.Len(t, resp.Choices, 1)
	assert.Equal(t, "Hello", resp.Choices[0].Message.Content)
	assert.Equal(t, "thinking it over", resp.Choices[0].Reasoning)
	assert.Equal(t, Usage{PromptTokens: 12, CompletionTokens: 3, TotalTokens: 15}, resp.Usage)
}

func TestCreateChatCompletion_NoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"gen-2","object":"chat.completion","model":"m","choices":[]}`))
	}))
	defer server.Close()

	p := NewOpenAIProvider(server.URL, "k", Options{})
	resp, err := p.CreateChatCompletion(context.Background(), &ChatCompletionRequest{Model: "m"})

	require.NoError(t, err)
	assert.Empty(t, resp.Choices)
}

func TestCreateChatCompletion_BackendError(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"Rate limit exceeded","code":"rate_limited"}}`))
	}))
	defer server.Close()

	p := NewOpenAIProvider(server.URL, "k", Options{})
	_, err := p.CreateChatCompletion(context.Background(), &ChatCompletionRequest{Model: "m"})

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr), "got %T", err)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	assert.Equal(t, "Rate limit exceeded", apiErr.Message)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "transport must not retry")
}

func TestCreateChatCompletion_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	p := NewOpenAIProvider(url, "k", Options{})
	_, err := p.CreateChatCompletion(context.Background(), &ChatCompletionRequest{Model: "m"})

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Zero(t, apiErr.StatusCode)
	assert.NotEmpty(t, apiErr.Message)
}

func TestGetModels(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models", r.URL.Path)
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[
		  {"id":"a/free","name":"A Free","description":"free one","context_length":32768,"pricing":{"prompt":"0","completion":"0"}},
		  {"id":"b/num","name":"B","context_length":8192,"pricing":{"prompt":0}},
		  {"id":"c/paid","name":"C","pricing":{"prompt":"0.000002"}},
		  {"id":"d/none","name":"D"}
		]}`))
	}))
	defer server.Close()

	p := NewOpenAIProvider(server.URL, "k", Options{})
	models, err := p.GetModels(context.Background())
	require.NoError(t, err)
	require.Len(t, models, 4)

	assert.Equal(t, Model{
		ID:            "a/free",
		Name:          "A Free",
		Description:   "free one",
		ContextLength: 32768,
		Pricing:       Pricing{Prompt: "0", Completion: "0"},
	}, models[0])
	assert.Equal(t, "0", models[1].Pricing.Prompt)
	assert.Equal(t, "0.000002", models[2].Pricing.Prompt)
	assert.Equal(t, "", models[3].Pricing.Prompt)
}

func TestGetModels_InvalidEnvelope(t *testing.T) {
	_, err := decodeModels([]byte(`{"models":[]}`))

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "invalid models response", apiErr.Message)
}

func TestCreateChatCompletion_SendsMessagesAndExtraAsGiven(t *testing.T) {
	var raw map[string]json.RawMessage
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completionResponseBody))
	}))
	defer server.Close()

	p := NewOpenAIProvider(server.URL, "k", Options{})
	_, err := p.CreateChatCompletion(context.Background(), &ChatCompletionRequest{
		Model: "x/y",
		Messages: []ChatMessage{
			{Role: "system", Content: "s"},
			{Role: "tool", Content: "t"},
			{Role: "narrator", Content: "n"},
			{Role: "user", Content: "u"},
		},
		Temperature: 0,
		Extra: map[string]interface{}{
			"provider.order": []string{"a", "b"},
			"model":          "override/attempt",
			"stream":         true,
		},
	})
	require.NoError(t, err)

	var messages []ChatMessage
	require.NoError(t, json.Unmarshal(raw["messages"], &messages))
	assert.Equal(t, []ChatMessage{
		{Role: "system", Content: "s"},
		{Role: "tool", Content: "t"},
		{Role: "narrator", Content: "n"},
		{Role: "user", Content: "u"},
	}, messages)

	assert.JSONEq(t, `["a","b"]`, string(raw["provider.order"]))
	_, nested := raw["provider"]
	assert.False(t, nested, "dotted keys must not become nested objects")

	assert.JSONEq(t, `"x/y"`, string(raw["model"]))
	assert.JSONEq(t, `false`, string(raw["stream"]))
	assert.JSONEq(t, `0`, string(raw["temperature"]))
	_, hasMaxTokens := raw["max_tokens"]
	assert.False(t, hasMaxTokens)
}
