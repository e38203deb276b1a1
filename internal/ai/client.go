package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/klayza/Fractal/internal/config"
	"github.com/klayza/Fractal/internal/logger"
)

const chatCompletionsPath = "chat/completions"

// Completer is the completion surface the conversation pipeline and
// tools depend on.
type Completer interface {
	Complete(ctx context.Context, request CompletionRequest) (Directive, error)
	NewRequest(messages []Message, tools []Tool) CompletionRequest
	UtilityModel() string
}

type baseHTTPClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  logger.Logger
}

func NewBaseHTTPClient(client *http.Client, baseURL, apiKey string, log logger.Logger) *baseHTTPClient {
	return &baseHTTPClient{
		client:  client,
		baseURL: baseURL,
		apiKey:  apiKey,
		logger:  log,
	}
}

func (c *baseHTTPClient) logRequest(req *http.Request, body []byte) {
	var bodyData any
	if len(body) > 0 {
		if err := json.Unmarshal(body, &bodyData); err == nil {
			if m, ok := bodyData.(map[string]any); ok {
				truncateLargeFields(m)
			}
		}
	}

	logData := map[string]any{
		"url":    req.URL.String(),
		"method": req.Method,
		"body":   bodyData,
	}

	jsonData, err := json.Marshal(logData)
	if err != nil {
		c.logger.WithError(err).WithField("data", logData).Error("Fail marshal json for request")
	}
	c.logger.WithField("request", string(jsonData)).Debug("HTTP request")
}

func truncateLargeFields(data map[string]any) {
	for k, v := range data {
		switch val := v.(type) {
		case string:
			if (k == "content" || k == "text") && len(val) > 1000 {
				data[k] = val[:1000] + "...[truncated]"
			}
		case map[string]any:
			truncateLargeFields(val)
		case []any:
			for _, item := range val {
				if m, ok := item.(map[string]any); ok {
					truncateLargeFields(m)
				}
			}
		}
	}
}

func (c *baseHTTPClient) Do(req *http.Request) (*http.Response, error) {
	if c.baseURL != "" && !strings.HasPrefix(req.URL.String(), "http") {
		req.URL, _ = url.Parse(fmt.Sprintf(
			"%s/%s",
			strings.TrimSuffix(c.baseURL, "/"),
			strings.TrimPrefix(req.URL.String(), "/"),
		))
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("Content-Type", "application/json")

	var body []byte
	if req.Body != nil {
		body, _ = io.ReadAll(req.Body)
		req.Body = io.NopCloser(bytes.NewBuffer(body))
	}

	c.logRequest(req, body)

	return c.client.Do(req)
}

// Client talks to an OpenAI-compatible chat-completions endpoint.
type Client struct {
	http   *baseHTTPClient
	cfg    config.AIConfig
	logger logger.Logger
}

func NewClient(httpClient *http.Client, cfg config.AIConfig, log logger.Logger) *Client {
	return &Client{
		http:   NewBaseHTTPClient(httpClient, cfg.BaseURL, cfg.ResolveAPIKey(), log),
		cfg:    cfg,
		logger: log,
	}
}

// NewRequest builds a request against the configured chat model with
// the configured sampling parameters. tool_choice is left to the
// backend's default ("auto") when tools are present.
func (c *Client) NewRequest(messages []Message, tools []Tool) CompletionRequest {
	params := c.cfg.ModelParams
	req := CompletionRequest{
		Model:            c.cfg.Model,
		Messages:         messages,
		Tools:            tools,
		Temperature:      &params.Temperature,
		TopP:             &params.TopP,
		FrequencyPenalty: &params.FrequencyPenalty,
		PresencePenalty:  &params.PresencePenalty,
	}
	if params.MaxTokens > 0 {
		req.MaxTokens = &params.MaxTokens
	}
	return req
}

func (c *Client) UtilityModel() string {
	return c.cfg.GetUtilityModel()
}

func (c *Client) Complete(ctx context.Context, request CompletionRequest) (Directive, error) {
	payload, err := json.Marshal(request)
	if err != nil {
		return Directive{}, fmt.Errorf("marshal completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, chatCompletionsPath, bytes.NewReader(payload))
	if err != nil {
		return Directive{}, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Directive{}, &AIError{
			OriginalErr: err,
			ModelName:   request.Model,
			Message:     "completion request failed",
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Directive{}, &AIError{
			OriginalErr:    err,
			ModelName:      request.Model,
			HTTPStatusCode: resp.StatusCode,
			Message:        "read completion response",
		}
	}

	if resp.StatusCode != http.StatusOK {
		aiErr := &AIError{
			ModelName:      request.Model,
			HTTPStatusCode: resp.StatusCode,
			Message:        string(body),
		}
		var errBody struct {
			Error *ProviderError `json:"error"`
		}
		if json.Unmarshal(body, &errBody) == nil && errBody.Error != nil {
			aiErr.Message = errBody.Error.Message
			aiErr.ErrorCode = errBody.Error.Code
		}
		return Directive{}, aiErr
	}

	var completion CompletionResponse
	if err := json.Unmarshal(body, &completion); err != nil {
		return Directive{}, &AIError{
			OriginalErr: err,
			ModelName:   request.Model,
			Message:     "decode completion response",
		}
	}

	if completion.Error != nil {
		return Directive{}, &AIError{
			ModelName: request.Model,
			ErrorCode: completion.Error.Code,
			Message:   completion.Error.Message,
		}
	}

	if len(completion.Choices) == 0 {
		return Directive{}, &AIError{
			ModelName: request.Model,
			Message:   "completion response has no choices",
		}
	}

	c.logger.WithFields(logger.Fields{
		"model":  request.Model,
		"id":     completion.ID,
		"tokens": completion.Usage.TotalTokens,
	}).Debug("Completion received")

	message := completion.Choices[0].Message
	if len(message.ToolCalls) > 0 {
		call := message.ToolCalls[0]
		return Directive{Call: &call}, nil
	}
	return Directive{Text: message.Content}, nil
}
