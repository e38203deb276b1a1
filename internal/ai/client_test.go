package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klayza/Fractal/internal/config"
	"github.com/klayza/Fractal/internal/logger"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := config.AIConfig{
		BaseURL: server.URL,
		APIKey:  "test-key",
		Model:   "test-model",
		ModelParams: config.AIModelParams{
			Temperature:      1.0,
			FrequencyPenalty: 0.7,
			TopP:             1.0,
		},
	}
	return NewClient(server.Client(), cfg, logger.NewTestLogger())
}

func TestCompleteText(t *testing.T) {
	var received CompletionRequest
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"cmpl-1","choices":[{"message":{"content":"hello"}}],"usage":{"total_tokens":12}}`))
	})

	request := client.NewRequest([]Message{UserMessage("hi")}, nil)
	directive, err := client.Complete(context.Background(), request)
	require.NoError(t, err)
	assert.False(t, directive.IsToolCall())
	assert.Equal(t, "hello", directive.Text)

	assert.Equal(t, "test-model", received.Model)
	require.NotNil(t, received.Temperature)
	assert.Equal(t, float32(1.0), *received.Temperature)
	require.NotNil(t, received.FrequencyPenalty)
	assert.Equal(t, float32(0.7), *received.FrequencyPenalty)
	assert.Nil(t, received.MaxTokens, "zero max_tokens is not sent")
}

func TestCompleteToolCall(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"id": "cmpl-2",
			"choices": [{"message": {"content": "", "tool_calls": [
				{"id": "call_1", "type": "function",
				 "function": {"name": "AddNewTask", "arguments": "{\"name\":\"laundry\"}"}}
			]}}]
		}`))
	})

	directive, err := client.Complete(context.Background(), client.NewRequest(nil, nil))
	require.NoError(t, err)
	require.True(t, directive.IsToolCall())
	assert.Equal(t, "AddNewTask", directive.Call.Function.Name)

	args, err := directive.Call.Function.GetArguments()
	require.NoError(t, err)
	assert.Equal(t, "laundry", args["name"])
}

func TestCompleteErrors(t *testing.T) {
	t.Run("RateLimited", func(t *testing.T) {
		client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":{"message":"slow down","code":"rate_limit_exceeded"}}`))
		})

		_, err := client.Complete(context.Background(), client.NewRequest(nil, nil))
		require.Error(t, err)
		assert.True(t, IsRetryableError(err))
		assert.Equal(t, ErrorTypeRateLimit, GetErrorType(err))

		var aiErr *AIError
		require.ErrorAs(t, err, &aiErr)
		assert.Equal(t, "slow down", aiErr.Message)
		assert.Equal(t, "rate_limit_exceeded", aiErr.ErrorCode)
	})

	t.Run("ProviderErrorIn200", func(t *testing.T) {
		client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"id":"cmpl-3","error":{"message":"model overloaded","code":"overloaded"}}`))
		})

		_, err := client.Complete(context.Background(), client.NewRequest(nil, nil))
		require.Error(t, err)
		assert.False(t, IsRetryableError(err))
	})

	t.Run("NoChoices", func(t *testing.T) {
		client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"id":"cmpl-4","choices":[]}`))
		})

		_, err := client.Complete(context.Background(), client.NewRequest(nil, nil))
		assert.Error(t, err)
	})
}
