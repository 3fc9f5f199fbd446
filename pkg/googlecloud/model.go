package googlecloud

import (
	"time"
)

const (
	KindTaskList = "TaskList"
	KindTask     = "Task"
)

// TaskList represents a group of tasks.
type TaskList struct {
	ID        string    `datastore:"-" json:"id"` // Key Name
	Name      string    `datastore:"name" json:"name"`
	CreatedAt time.Time `datastore:"created_at" json:"created_at"`
}

// Task represents a single unit of work. The excel tags map it onto the
// task export columns.
type Task struct {
	ID          int64     `datastore:"-" json:"id" excel:"id"` // Key ID (Auto-generated int64)
	Description string    `datastore:"description" json:"description" excel:"description"`
	Done        bool      `datastore:"done" json:"done" excel:"done"`
	Priority    int       `datastore:"priority" json:"priority" excel:"priority"`
	CreatedAt   time.Time `datastore:"created_at" json:"created_at" excel:"created_at"`

	// TaskListID is part of the Key (Ancestor) in Datastore.
	TaskListID string `datastore:"-" json:"task_list_id" excel:"task_list"`
}

// TaskFilter narrows a task query. Zero values mean no filter.
type TaskFilter struct {
	TaskListID  string
	MinPriority int
	Done        *bool
}
