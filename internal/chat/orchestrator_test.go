package chat

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klayza/Fractal/internal/ai"
	"github.com/klayza/Fractal/internal/logger"
)

type fakeCompleter struct {
	directives []ai.Directive
	err        error
	requests   []ai.CompletionRequest
}

func (f *fakeCompleter) Complete(_ context.Context, request ai.CompletionRequest) (ai.Directive, error) {
	f.requests = append(f.requests, request)
	if f.err != nil {
		return ai.Directive{}, f.err
	}
	d := f.directives[0]
	f.directives = f.directives[1:]
	return d, nil
}

func (f *fakeCompleter) NewRequest(messages []ai.Message, tools []ai.Tool) ai.CompletionRequest {
	return ai.CompletionRequest{Model: "test-model", Messages: messages, Tools: tools}
}

func (f *fakeCompleter) UtilityModel() string { return "test-utility" }

type fakeDispatcher struct {
	schemas []ai.Tool
	result  string
	err     error
	calls   []ai.ToolCall
}

func (f *fakeDispatcher) Schemas() []ai.Tool { return f.schemas }

func (f *fakeDispatcher) Dispatch(_ context.Context, _ int64, call ai.ToolCall) (string, error) {
	f.calls = append(f.calls, call)
	return f.result, f.err
}

func testInput(t *testing.T) AssembleInput {
	t.Helper()
	return AssembleInput{
		SystemPrompt: "rules",
		Card:         mustCard(t, `{"name":"Mira","first_mes":"Hello."}`),
		UserText:     "hi",
	}
}

func TestRunTurnPlainText(t *testing.T) {
	completer := &fakeCompleter{directives: []ai.Directive{{Text: "Mira: nice to meet you"}}}
	schema := ai.NewTool("AddNewTask", "add", ai.Parameters{Type: "object"})
	dispatcher := &fakeDispatcher{schemas: []ai.Tool{schema}}
	o := NewOrchestrator(completer, dispatcher, logger.NewTestLogger())

	reply, err := o.RunTurn(context.Background(), 1, testInput(t))
	require.NoError(t, err)
	assert.Equal(t, "nice to meet you", reply)

	require.Len(t, completer.requests, 1)
	assert.Equal(t, []ai.Tool{schema}, completer.requests[0].Tools, "first round offers the registry")
	assert.Empty(t, dispatcher.calls)
}

func TestRunTurnToolRound(t *testing.T) {
	call := ai.ToolCall{
		ID:   "call_1",
		Type: "function",
		Function: ai.FunctionCall{
			Name:      "AddNewTask",
			Arguments: `{"name":"laundry","description":"wash"}`,
		},
	}
	completer := &fakeCompleter{directives: []ai.Directive{
		{Call: &call},
		{Text: "Done, I noted it down."},
	}}
	dispatcher := &fakeDispatcher{result: "Added task."}
	o := NewOrchestrator(completer, dispatcher, logger.NewTestLogger())

	reply, err := o.RunTurn(context.Background(), 1, testInput(t))
	require.NoError(t, err)
	assert.Equal(t, "Done, I noted it down.", reply)

	require.Len(t, dispatcher.calls, 1)
	assert.Equal(t, "AddNewTask", dispatcher.calls[0].Function.Name)

	require.Len(t, completer.requests, 2)
	second := completer.requests[1]
	assert.Empty(t, second.Tools, "follow-up round offers no tools")

	// The follow-up sees the call it made and the tool's result.
	n := len(second.Messages)
	require.GreaterOrEqual(t, n, 2)
	assert.Equal(t, ai.RoleAssistant, second.Messages[n-2].Role)
	require.Len(t, second.Messages[n-2].ToolCalls, 1)
	assert.Equal(t, ai.RoleTool, second.Messages[n-1].Role)
	assert.Equal(t, "Added task.", second.Messages[n-1].Content)
	assert.Equal(t, "call_1", second.Messages[n-1].ToolCallID)
}

func TestRunTurnDispatchErrorPropagates(t *testing.T) {
	call := ai.ToolCall{Function: ai.FunctionCall{Name: "Nope"}}
	completer := &fakeCompleter{directives: []ai.Directive{{Call: &call}}}
	dispatcher := &fakeDispatcher{err: errors.New("unknown tool")}
	o := NewOrchestrator(completer, dispatcher, logger.NewTestLogger())

	_, err := o.RunTurn(context.Background(), 1, testInput(t))
	require.Error(t, err)
	require.Len(t, completer.requests, 1, "no follow-up round after a failed dispatch")
}

func TestRunTurnSecondToolCallBecomesText(t *testing.T) {
	first := ai.ToolCall{Function: ai.FunctionCall{Name: "AddNewTask", Arguments: "{}"}}
	second := ai.ToolCall{Function: ai.FunctionCall{
		Name:      "AddNewTask",
		Arguments: `{"name":"laundry"}`,
	}}
	completer := &fakeCompleter{directives: []ai.Directive{
		{Call: &first},
		{Call: &second},
	}}
	dispatcher := &fakeDispatcher{result: "ok"}
	o := NewOrchestrator(completer, dispatcher, logger.NewTestLogger())

	reply, err := o.RunTurn(context.Background(), 1, testInput(t))
	require.NoError(t, err)
	assert.Equal(t, `AddNewTask({"name":"laundry"})`, reply)

	require.Len(t, completer.requests, 2, "the stray call ends the turn, no third round")
	require.Len(t, dispatcher.calls, 1, "only the first call is dispatched")
}

func TestRunTurnCompleterError(t *testing.T) {
	completer := &fakeCompleter{err: &ai.AIError{HTTPStatusCode: 429, Message: "slow down"}}
	o := NewOrchestrator(completer, &fakeDispatcher{}, logger.NewTestLogger())

	_, err := o.RunTurn(context.Background(), 1, testInput(t))
	require.Error(t, err)
	assert.True(t, ai.IsRetryableError(err))
}
