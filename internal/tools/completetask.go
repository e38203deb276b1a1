package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/klayza/Fractal/internal/ai"
	"github.com/klayza/Fractal/internal/logger"
	"github.com/klayza/Fractal/internal/profile"
	"github.com/klayza/Fractal/internal/storage"
)

const pickTaskTool = "pick_task"

const taskNotFound = "Task not found."

// CompleteTask marks a task completed by fuzzy name. The user rarely
// repeats a task title word for word, so the match goes through a
// constrained utility completion: the model sees a numbered snapshot
// of the open tasks and may only answer by picking an index. An
// unconfident or out-of-range pick yields a "not found" result, not
// an error, and the turn proceeds normally.
type CompleteTask struct {
	store     storage.Store
	completer ai.Completer
	logger    logger.Logger
}

func NewCompleteTask(store storage.Store, completer ai.Completer, log logger.Logger) *CompleteTask {
	return &CompleteTask{
		store:     store,
		completer: completer,
		logger:    log,
	}
}

func (t *CompleteTask) Name() string        { return ToolCompleteTask }
func (t *CompleteTask) NeedsIdentity() bool { return true }

func (t *CompleteTask) Schema() ai.Tool {
	return ai.NewTool(ToolCompleteTask,
		"Mark a task on the user's todo / task list as completed",
		ai.Parameters{
			Type: "object",
			Properties: map[string]ai.Property{
				"task_name": {Type: "string", Description: "The name of the task to complete, as the user phrased it"},
			},
			Required: []string{"task_name"},
		})
}

func (t *CompleteTask) Invoke(ctx context.Context, userID int64, args map[string]any) (string, error) {
	wanted := stringArg(args, "task_name")
	if wanted == "" {
		return "", fmt.Errorf("%w: task_name is required", ErrMalformedArguments)
	}

	p, err := t.store.LoadUserProfile(userID)
	if err != nil {
		return "", err
	}

	open := p.IncompleteTaskIndexes()
	if len(open) == 0 {
		return "No open tasks.", nil
	}

	pick, ok, err := t.pickIndex(ctx, wanted, p, open)
	if err != nil {
		return "", err
	}
	if !ok || pick < 1 || pick > len(open) {
		t.logger.WithFields(logger.Fields{
			"user_id":   userID,
			"task_name": wanted,
		}).Info("No confident task match")
		return taskNotFound, nil
	}

	// Resolve against the same snapshot the model saw.
	task := &p.Tasks[open[pick-1]]
	if err := task.SetStatus(profile.TaskCompleted); err != nil {
		return "", err
	}
	if err := t.store.SaveUserProfile(userID, p); err != nil {
		return "", err
	}

	return fmt.Sprintf("Marked task %q as completed.", task.Name), nil
}

// pickIndex asks the utility model which open task the user means.
// The only way it can answer is the pick_task function, forced
// through tool_choice.
func (t *CompleteTask) pickIndex(ctx context.Context, wanted string, p *profile.UserProfile, open []int) (int, bool, error) {
	var list strings.Builder
	for i, idx := range open {
		task := p.Tasks[idx]
		fmt.Fprintf(&list, "%d. %s - %s\n", i+1, task.Name, task.Description)
	}

	request := ai.CompletionRequest{
		Model: t.completer.UtilityModel(),
		Messages: []ai.Message{
			ai.SystemMessage("Pick the numbered task the user is referring to. If none of them plausibly match, do not guess."),
			ai.UserMessage(fmt.Sprintf("Task to complete: %s\n\nTasks:\n%s", wanted, list.String())),
		},
		Tools: []ai.Tool{
			ai.NewTool(pickTaskTool,
				"Select the task the user means by its list number",
				ai.Parameters{
					Type: "object",
					Properties: map[string]ai.Property{
						"index": {Type: "integer", Description: "1-based number of the matching task"},
					},
					Required: []string{"index"},
				}),
		},
		ToolChoice: ai.ForceTool(pickTaskTool),
	}

	directive, err := t.completer.Complete(ctx, request)
	if err != nil {
		return 0, false, err
	}
	if !directive.IsToolCall() || directive.Call.Function.Name != pickTaskTool {
		return 0, false, nil
	}
	args, err := directive.Call.Function.GetArguments()
	if err != nil {
		return 0, false, nil
	}
	index, ok := intArg(args, "index")
	return index, ok, nil
}
