package model

import "time"

// Status is a task's lifecycle state, mirroring the server's status choices.
// The wire values are lowercase snake_case.
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
)

// Statuses lists every recognized status, in board order.
var Statuses = []Status{StatusTodo, StatusInProgress, StatusDone}

// Task represents a task fetched from the API.
//
// Assignee and CreatedBy are nullable user IDs (the server nulls them out
// when the referenced user is deleted), so both are pointers; nil means
// "nobody". AssigneeDetail is the expanded user record the server embeds on
// reads; it is absent on task create/update payloads.
type Task struct {
	ID             int64      `json:"id"`
	Title          string     `json:"title"`
	Description    string     `json:"description,omitempty"`
	Status         Status     `json:"status"`
	Deadline       *time.Time `json:"deadline,omitempty"`
	Assignee       *int64     `json:"assignee"`
	AssigneeDetail *User      `json:"assignee_detail,omitempty"`
	CreatedBy      *int64     `json:"created_by"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// IsOverdue reports whether the task's deadline has passed without the task
// being done, relative to now. Overdue is derived state; the server never
// stores it, so every consumer computes it from the same rule.
func (t *Task) IsOverdue(now time.Time) bool {
	return t.Deadline != nil && t.Deadline.Before(now) && t.Status != StatusDone
}
