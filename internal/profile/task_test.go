package profile

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTaskStatus(t *testing.T) {
	t.Run("KnownValues", func(t *testing.T) {
		for input, want := range map[string]TaskStatus{
			"unstarted":    TaskUnstarted,
			"in-progress":  TaskInProgress,
			"completed":    TaskCompleted,
			" Completed ":  TaskCompleted,
			"IN-PROGRESS":  TaskInProgress,
			"\tunstarted ": TaskUnstarted,
		} {
			got, err := ParseTaskStatus(input)
			require.NoError(t, err, "input %q", input)
			assert.Equal(t, want, got, "input %q", input)
		}
	})

	t.Run("Unknown", func(t *testing.T) {
		_, err := ParseTaskStatus("done")
		assert.Error(t, err)
		_, err = ParseTaskStatus("")
		assert.Error(t, err)
	})
}

func TestTaskStatusTransitions(t *testing.T) {
	t.Run("Forward", func(t *testing.T) {
		assert.True(t, TaskUnstarted.CanTransition(TaskInProgress))
		assert.True(t, TaskUnstarted.CanTransition(TaskCompleted))
		assert.True(t, TaskInProgress.CanTransition(TaskCompleted))
	})

	t.Run("SameStatusIsNoOp", func(t *testing.T) {
		assert.True(t, TaskUnstarted.CanTransition(TaskUnstarted))
		assert.True(t, TaskInProgress.CanTransition(TaskInProgress))
		assert.True(t, TaskCompleted.CanTransition(TaskCompleted))
	})

	t.Run("BackwardRejected", func(t *testing.T) {
		assert.False(t, TaskCompleted.CanTransition(TaskInProgress))
		assert.False(t, TaskCompleted.CanTransition(TaskUnstarted))
		assert.False(t, TaskInProgress.CanTransition(TaskUnstarted))
	})

	t.Run("SetStatus", func(t *testing.T) {
		task := NewTask("laundry", "wash everything", time.Now())
		require.NoError(t, task.SetStatus(TaskCompleted))
		assert.True(t, task.IsComplete())

		err := task.SetStatus(TaskUnstarted)
		require.Error(t, err)
		assert.Equal(t, TaskCompleted, task.Status, "failed transition must not change status")
	})
}

func TestTaskTimeParse(t *testing.T) {
	cases := map[string]string{
		"03-15-2026 09:30":     "2026-03-15T09:30:00Z",
		"2026-03-15T09:30:00Z": "2026-03-15T09:30:00Z",
		"2026-03-15 09:30":     "2026-03-15T09:30:00Z",
		"2026-03-15":           "2026-03-15T00:00:00Z",
	}
	for input, want := range cases {
		var tt TaskTime
		require.NoError(t, tt.Parse(input), "input %q", input)
		assert.Equal(t, want, tt.UTC().Format(time.RFC3339), "input %q", input)
	}

	var tt TaskTime
	assert.Error(t, tt.Parse("next tuesday"))
}

func TestNewTaskDefaults(t *testing.T) {
	now := time.Date(2026, 3, 15, 9, 30, 0, 0, time.UTC)
	task := NewTask("laundry", "wash everything", now)

	assert.Equal(t, TaskUnstarted, task.Status)
	assert.Equal(t, now, task.Start.Time)
	assert.Equal(t, now.Add(7*24*time.Hour), task.Due.Time)
	assert.NotNil(t, task.Comments)
	assert.Empty(t, task.Comments)
}

func TestTaskJSONFormat(t *testing.T) {
	now := time.Date(2026, 3, 15, 9, 30, 0, 0, time.UTC)
	task := NewTask("laundry", "wash everything", now)

	raw, err := json.Marshal(task)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "03-15-2026 09:30", decoded["start"])
	assert.Equal(t, "03-22-2026 09:30", decoded["due"])
	assert.Equal(t, "unstarted", decoded["status"])

	var back Task
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, task.Name, back.Name)
	assert.Equal(t, task.Start.Format("01-02-2006 15:04"), back.Start.Format("01-02-2006 15:04"))
}

func TestIncompleteTaskIndexes(t *testing.T) {
	now := time.Now()
	p := NewUserProfile()
	p.AddTask(NewTask("a", "first", now))
	p.AddTask(NewTask("b", "second", now))
	p.AddTask(NewTask("c", "third", now))
	require.NoError(t, p.Tasks[1].SetStatus(TaskCompleted))

	assert.Equal(t, []int{0, 2}, p.IncompleteTaskIndexes())
}

func TestRuntimeProfile(t *testing.T) {
	r := NewRuntimeProfile(42)
	assert.Equal(t, int64(42), r.ID)
	assert.Equal(t, GuestName, r.UserName)
	assert.True(t, r.IsGuest())
	assert.False(t, r.CanChat())

	r.UserName = "Clay"
	assert.False(t, r.IsGuest())
	assert.False(t, r.CanChat(), "needs a character too")

	r.Character = "Mira"
	assert.True(t, r.CanChat())
}
