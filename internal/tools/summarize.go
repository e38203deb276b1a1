package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/klayza/Fractal/internal/ai"
	"github.com/klayza/Fractal/internal/storage"
)

// SummarizeTasks hands the caller's serialized profile to the utility
// model together with the organizing instructions the character model
// came up with, and returns the summary text.
type SummarizeTasks struct {
	store     storage.Store
	completer ai.Completer
}

func NewSummarizeTasks(store storage.Store, completer ai.Completer) *SummarizeTasks {
	return &SummarizeTasks{
		store:     store,
		completer: completer,
	}
}

func (t *SummarizeTasks) Name() string        { return ToolSummarizeTasks }
func (t *SummarizeTasks) NeedsIdentity() bool { return true }

func (t *SummarizeTasks) Schema() ai.Tool {
	return ai.NewTool(ToolSummarizeTasks,
		"Summarizes a user's tasks if a user cannot remember them, or asks for their todo / tasks / chores list",
		ai.Parameters{
			Type: "object",
			Properties: map[string]ai.Property{
				"method": {Type: "string", Description: "Instructions on how the tasks should be organized"},
			},
		})
}

func (t *SummarizeTasks) Invoke(ctx context.Context, userID int64, args map[string]any) (string, error) {
	p, err := t.store.LoadUserProfile(userID)
	if err != nil {
		return "", err
	}
	data, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("encode profile: %w", err)
	}

	method := stringArg(args, "method")
	request := ai.CompletionRequest{
		Model: t.completer.UtilityModel(),
		Messages: []ai.Message{
			ai.SystemMessage("These are your instructions, be organized and highly detailed: " + method),
			ai.UserMessage(string(data)),
		},
	}

	directive, err := t.completer.Complete(ctx, request)
	if err != nil {
		return "", err
	}
	return directive.Text, nil
}
