package googlecloud

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/datastore"
	"google.golang.org/api/iterator"
)

// CreateTaskList creates a new task list with a string ID.
func (c *Client) CreateTaskList(ctx context.Context, list *TaskList) error {
	if list.ID == "" {
		return fmt.Errorf("task list ID cannot be empty")
	}
	if list.CreatedAt.IsZero() {
		list.CreatedAt = time.Now()
	}

	key := datastore.NameKey(KindTaskList, list.ID, nil)
	_, err := c.ds.Put(ctx, key, list)
	return err
}

// CreateTask creates a new task under a specific task list.
func (c *Client) CreateTask(ctx context.Context, taskListID string, task *Task) error {
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now()
	}

	parentKey := datastore.NameKey(KindTaskList, taskListID, nil)
	// IncompleteKey will auto-generate an int64 ID
	key := datastore.IncompleteKey(KindTask, parentKey)

	newKey, err := c.ds.Put(ctx, key, task)
	if err != nil {
		return err
	}
	task.ID = newKey.ID
	task.TaskListID = taskListID
	return nil
}

// TaskQuery builds the datastore query for f.
func TaskQuery(f TaskFilter) (*datastore.Query, error) {
	if f.MinPriority < 0 {
		return nil, fmt.Errorf("%w: negative priority %d", ErrInvalidFilter, f.MinPriority)
	}
	q := datastore.NewQuery(KindTask)
	if f.TaskListID != "" {
		q = q.Ancestor(datastore.NameKey(KindTaskList, f.TaskListID, nil))
	}
	if f.MinPriority > 0 {
		q = q.Filter("priority >=", f.MinPriority).Order("-priority")
	}
	if f.Done != nil {
		q = q.Filter("done =", *f.Done)
	}
	return q.Order("created_at"), nil
}

// TaskIterator walks query results one entity at a time.
type TaskIterator struct {
	it *datastore.Iterator
}

// IterateTasks runs the filtered query lazily.
func (c *Client) IterateTasks(ctx context.Context, f TaskFilter) (*TaskIterator, error) {
	q, err := TaskQuery(f)
	if err != nil {
		return nil, err
	}
	return &TaskIterator{it: c.ds.Run(ctx, q)}, nil
}

// Next returns the next task or iterator.Done.
func (t *TaskIterator) Next() (Task, error) {
	var task Task
	key, err := t.it.Next(&task)
	if err != nil {
		if err == iterator.Done {
			return Task{}, err
		}
		return Task{}, WrapDatastoreError(err)
	}
	return withKey(task, key), nil
}

func withKey(task Task, key *datastore.Key) Task {
	task.ID = key.ID
	if key.Parent != nil {
		task.TaskListID = key.Parent.Name
	}
	return task
}
