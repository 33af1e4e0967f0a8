package domain

import "time"

// TaskStatus enumerates the board states of a task.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskDone       TaskStatus = "done"
	TaskBlocked    TaskStatus = "blocked"
)

// Task is a read-only copy of a dashboard task. A zero Deadline means the
// task has none and can never be overdue or due soon.
type Task struct {
	ID          string     `json:"id"`
	ProjectID   string     `json:"projectId"`
	Title       string     `json:"title"`
	Status      TaskStatus `json:"status"`
	Priority    Priority   `json:"priority"`
	AssignedTo  string     `json:"assignedTo"`
	Deadline    time.Time  `json:"deadline"`
	CreatedDate time.Time  `json:"createdDate"`
}

// Open reports whether the task still requires work.
func (t Task) Open() bool {
	return t.Status != TaskDone
}
