package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/klayza/Fractal/internal/ai"
	"github.com/klayza/Fractal/internal/profile"
	"github.com/klayza/Fractal/internal/storage"
)

// AddNewTask appends a task to the caller's profile. Everything
// except name and description is optional and defaulted.
type AddNewTask struct {
	store storage.Store
	now   func() time.Time
}

func NewAddNewTask(store storage.Store) *AddNewTask {
	return &AddNewTask{
		store: store,
		now:   time.Now,
	}
}

func (t *AddNewTask) Name() string        { return ToolAddNewTask }
func (t *AddNewTask) NeedsIdentity() bool { return true }

func (t *AddNewTask) Schema() ai.Tool {
	return ai.NewTool(ToolAddNewTask,
		"Add a task to a user's todo / task list",
		ai.Parameters{
			Type: "object",
			Properties: map[string]ai.Property{
				"name":        {Type: "string", Description: "The name / title of the task"},
				"description": {Type: "string", Description: "The description of the task"},
				"start":       {Type: "string", Description: "The start time of the task"},
				"due":         {Type: "string", Description: "The due time of the task"},
				"status": {
					Type:        "string",
					Description: "The status of the task",
					Enum:        []string{string(profile.TaskUnstarted), string(profile.TaskInProgress), string(profile.TaskCompleted)},
				},
				"priority":   {Type: "integer", Description: "The priority of the task"},
				"importance": {Type: "integer", Description: "The importance of the task"},
				"comments": {
					Type:        "array",
					Items:       &ai.Property{Type: "string"},
					Description: "Comments related to the task",
				},
			},
			Required: []string{"name", "description"},
		})
}

func (t *AddNewTask) Invoke(ctx context.Context, userID int64, args map[string]any) (string, error) {
	name := stringArg(args, "name")
	description := stringArg(args, "description")
	if name == "" || description == "" {
		return "", fmt.Errorf("%w: name and description are required", ErrMalformedArguments)
	}

	task := profile.NewTask(name, description, t.now())

	if s := stringArg(args, "start"); s != "" {
		if err := task.Start.Parse(s); err != nil {
			return "", fmt.Errorf("%w: %v", ErrMalformedArguments, err)
		}
	}
	if s := stringArg(args, "due"); s != "" {
		if err := task.Due.Parse(s); err != nil {
			return "", fmt.Errorf("%w: %v", ErrMalformedArguments, err)
		}
	}
	if s := stringArg(args, "status"); s != "" {
		status, err := profile.ParseTaskStatus(s)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrMalformedArguments, err)
		}
		task.Status = status
	}
	if v, ok := intArg(args, "priority"); ok {
		task.Priority = v
	}
	if v, ok := intArg(args, "importance"); ok {
		task.Importance = v
	}
	if raw, ok := args["comments"].([]any); ok {
		for _, c := range raw {
			if s, ok := c.(string); ok {
				task.Comments = append(task.Comments, s)
			}
		}
	}

	p, err := t.store.LoadUserProfile(userID)
	if err != nil {
		return "", err
	}
	p.AddTask(task)
	if err := t.store.SaveUserProfile(userID, p); err != nil {
		return "", err
	}

	summary, _ := json.Marshal(task)
	return "Added task: " + string(summary), nil
}
