package ai

import (
	"errors"
	"fmt"
	"strings"
)

type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	Name       string     `json:"name,omitzero"`
	ToolCallID string     `json:"tool_call_id,omitzero"`
	ToolCalls  []ToolCall `json:"tool_calls,omitzero"`
}

func SystemMessage(text string) Message {
	return Message{Role: RoleSystem, Content: text}
}

func UserMessage(text string) Message {
	return Message{Role: RoleUser, Content: text}
}

func AssistantMessage(text string) Message {
	return Message{Role: RoleAssistant, Content: text}
}

// AssistantToolCall is the assistant turn that carries the call the
// model asked for, echoed back in the second round of a tool exchange.
func AssistantToolCall(call ToolCall) Message {
	return Message{Role: RoleAssistant, ToolCalls: []ToolCall{call}}
}

// ToolResult is the tool-role message holding a dispatched tool's
// textual result.
func ToolResult(call ToolCall, result string) Message {
	return Message{
		Role:       RoleTool,
		Name:       call.Function.Name,
		ToolCallID: call.ID,
		Content:    result,
	}
}

type CompletionRequest struct {
	Model            string    `json:"model"`
	Messages         []Message `json:"messages"`
	Tools            []Tool    `json:"tools,omitzero"`
	ToolChoice       any       `json:"tool_choice,omitempty"`
	Temperature      *float32  `json:"temperature,omitzero"`
	MaxTokens        *int      `json:"max_tokens,omitzero"`
	TopP             *float32  `json:"top_p,omitzero"`
	FrequencyPenalty *float32  `json:"frequency_penalty,omitzero"`
	PresencePenalty  *float32  `json:"presence_penalty,omitzero"`
}

type MessageResponse struct {
	Content   string     `json:"content"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

type ModelUsage struct {
	CompletionTokens int64 `json:"completion_tokens"`
	PromptTokens     int64 `json:"prompt_tokens"`
	TotalTokens      int64 `json:"total_tokens"`
}

type CompletionResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Message      MessageResponse `json:"message"`
		FinishReason string          `json:"finish_reason"`
	} `json:"choices"`
	Usage ModelUsage     `json:"usage,omitzero"`
	Error *ProviderError `json:"error,omitzero"`
}

type ProviderError struct {
	Message string `json:"message"`
	Code    string `json:"code"`
	Type    string `json:"type"`
}

// Directive is the single outcome of a completion round: either plain
// assistant text or one tool call the model wants executed.
type Directive struct {
	Text string
	Call *ToolCall
}

func (d Directive) IsToolCall() bool {
	return d.Call != nil
}

// AIError represents an enriched error from the completion backend.
type AIError struct {
	OriginalErr    error  `json:"-"`
	ModelName      string `json:"model_name"`
	HTTPStatusCode int    `json:"http_status_code"`
	ErrorCode      string `json:"error_code"`
	Message        string `json:"message"`
}

func (e *AIError) Error() string {
	msg := e.Message
	if msg == "" && e.OriginalErr != nil {
		msg = e.OriginalErr.Error()
	}
	if e.ModelName != "" {
		msg = fmt.Sprintf("[%s] %s", e.ModelName, msg)
	}
	if e.ErrorCode != "" {
		msg = fmt.Sprintf("%s (code: %s)", msg, e.ErrorCode)
	}
	if e.HTTPStatusCode != 0 {
		msg = fmt.Sprintf("%d %s", e.HTTPStatusCode, msg)
	}
	return msg
}

func (e *AIError) Unwrap() error {
	return e.OriginalErr
}

func (e *AIError) ErrorType() ErrorType {
	switch {
	case e.HTTPStatusCode == 429:
		return ErrorTypeRateLimit
	case e.HTTPStatusCode >= 500:
		return ErrorTypeServer
	case e.HTTPStatusCode == 400 && strings.Contains(strings.ToLower(e.Message), "policy"):
		return ErrorTypeContentPolicy
	case e.HTTPStatusCode >= 400 && e.HTTPStatusCode < 500:
		return ErrorTypeClient
	default:
		return ErrorTypeUnknown
	}
}

func (e *AIError) IsRetryable() bool {
	switch e.ErrorType() {
	case ErrorTypeNetwork, ErrorTypeRateLimit, ErrorTypeServer:
		return true
	default:
		return false
	}
}

type ErrorType string

const (
	ErrorTypeNetwork       ErrorType = "network"
	ErrorTypeRateLimit     ErrorType = "rate_limit"
	ErrorTypeServer        ErrorType = "server"
	ErrorTypeClient        ErrorType = "client"
	ErrorTypeContentPolicy ErrorType = "content_policy"
	ErrorTypeUnknown       ErrorType = "unknown"
)

func IsRetryableError(err error) bool {
	var aiErr *AIError
	if errors.As(err, &aiErr) {
		return aiErr.IsRetryable()
	}
	return false
}

func GetErrorType(err error) ErrorType {
	var aiErr *AIError
	if errors.As(err, &aiErr) {
		return aiErr.ErrorType()
	}
	return ErrorTypeUnknown
}
