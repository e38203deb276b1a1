package tools

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klayza/Fractal/internal/profile"
)

func TestAddNewTaskDefaults(t *testing.T) {
	store := newFakeStore()
	now := time.Date(2026, 3, 15, 9, 30, 0, 0, time.UTC)
	tool := &AddNewTask{store: store, now: func() time.Time { return now }}

	result, err := tool.Invoke(context.Background(), 7, map[string]any{
		"name":        "laundry",
		"description": "wash everything",
	})
	require.NoError(t, err)
	assert.Contains(t, result, "laundry")

	p := store.profiles[7]
	require.Len(t, p.Tasks, 1)
	task := p.Tasks[0]
	assert.Equal(t, profile.TaskUnstarted, task.Status)
	assert.Equal(t, now, task.Start.Time)
	assert.Equal(t, now.Add(7*24*time.Hour), task.Due.Time)
	assert.Zero(t, task.Priority)
	assert.Empty(t, task.Comments)
}

func TestAddNewTaskAllFields(t *testing.T) {
	store := newFakeStore()
	tool := NewAddNewTask(store)

	_, err := tool.Invoke(context.Background(), 7, map[string]any{
		"name":        "report",
		"description": "quarterly numbers",
		"start":       "03-16-2026 08:00",
		"due":         "03-20-2026 17:00",
		"status":      "in-progress",
		"priority":    float64(2),
		"importance":  float64(5),
		"comments":    []any{"ask finance first", "double check totals"},
	})
	require.NoError(t, err)

	task := store.profiles[7].Tasks[0]
	assert.Equal(t, profile.TaskInProgress, task.Status)
	assert.Equal(t, "03-16-2026 08:00", task.Start.Format("01-02-2006 15:04"))
	assert.Equal(t, "03-20-2026 17:00", task.Due.Format("01-02-2006 15:04"))
	assert.Equal(t, 2, task.Priority)
	assert.Equal(t, 5, task.Importance)
	assert.Equal(t, []string{"ask finance first", "double check totals"}, task.Comments)
}

func TestAddNewTaskValidation(t *testing.T) {
	store := newFakeStore()
	tool := NewAddNewTask(store)

	t.Run("MissingRequired", func(t *testing.T) {
		_, err := tool.Invoke(context.Background(), 7, map[string]any{"name": "laundry"})
		assert.ErrorIs(t, err, ErrMalformedArguments)

		_, err = tool.Invoke(context.Background(), 7, map[string]any{"description": "wash"})
		assert.ErrorIs(t, err, ErrMalformedArguments)
	})

	t.Run("BadStatus", func(t *testing.T) {
		_, err := tool.Invoke(context.Background(), 7, map[string]any{
			"name":        "laundry",
			"description": "wash",
			"status":      "done",
		})
		assert.ErrorIs(t, err, ErrMalformedArguments)
	})

	t.Run("BadDate", func(t *testing.T) {
		_, err := tool.Invoke(context.Background(), 7, map[string]any{
			"name":        "laundry",
			"description": "wash",
			"due":         "someday",
		})
		assert.ErrorIs(t, err, ErrMalformedArguments)
	})

	t.Run("NothingPersistedOnError", func(t *testing.T) {
		p, err := store.LoadUserProfile(7)
		require.NoError(t, err)
		assert.Empty(t, p.Tasks)
	})
}
