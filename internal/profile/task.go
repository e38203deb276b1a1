package profile

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// TaskStatus is a closed set. Transitions only move forward:
// unstarted -> in-progress -> completed, with the direct
// unstarted -> completed jump allowed. Setting the current status
// again is a no-op.
type TaskStatus string

const (
	TaskUnstarted  TaskStatus = "unstarted"
	TaskInProgress TaskStatus = "in-progress"
	TaskCompleted  TaskStatus = "completed"
)

func ParseTaskStatus(s string) (TaskStatus, error) {
	switch TaskStatus(strings.ToLower(strings.TrimSpace(s))) {
	case TaskUnstarted:
		return TaskUnstarted, nil
	case TaskInProgress:
		return TaskInProgress, nil
	case TaskCompleted:
		return TaskCompleted, nil
	}
	return "", fmt.Errorf("unknown task status %q", s)
}

func (s TaskStatus) rank() int {
	switch s {
	case TaskUnstarted:
		return 0
	case TaskInProgress:
		return 1
	case TaskCompleted:
		return 2
	}
	return -1
}

func (s TaskStatus) CanTransition(to TaskStatus) bool {
	from, target := s.rank(), to.rank()
	if from < 0 || target < 0 {
		return false
	}
	return target >= from
}

// taskTimeLayout matches the format already present in stored
// profiles. RFC 3339 is accepted on read since the model emits
// date-time strings.
const taskTimeLayout = "01-02-2006 15:04"

type TaskTime struct {
	time.Time
}

func (t TaskTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Format(taskTimeLayout))
}

func (t *TaskTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	return t.Parse(s)
}

func (t *TaskTime) Parse(s string) error {
	for _, layout := range []string{taskTimeLayout, time.RFC3339, "2006-01-02 15:04", "2006-01-02"} {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("unrecognized task time %q", s)
}

const defaultDueOffset = 7 * 24 * time.Hour

type Task struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Status      TaskStatus `json:"status"`
	Start       TaskTime   `json:"start"`
	Due         TaskTime   `json:"due"`
	Priority    int        `json:"priority"`
	Importance  int        `json:"importance"`
	Comments    []string   `json:"comments"`
}

// NewTask fills the defaults for fields the model left out: status
// unstarted, start now, due a week from now.
func NewTask(name, description string, now time.Time) Task {
	return Task{
		Name:        name,
		Description: description,
		Status:      TaskUnstarted,
		Start:       TaskTime{now},
		Due:         TaskTime{now.Add(defaultDueOffset)},
		Comments:    []string{},
	}
}

func (t *Task) SetStatus(to TaskStatus) error {
	if !t.Status.CanTransition(to) {
		return fmt.Errorf("task %q: invalid status transition %s -> %s", t.Name, t.Status, to)
	}
	t.Status = to
	return nil
}

func (t Task) IsComplete() bool {
	return t.Status == TaskCompleted
}
