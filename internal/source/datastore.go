package source

import (
	"context"

	"github.com/locvowork/hybridexport/pkg/googlecloud"
	"github.com/locvowork/hybridexport/pkg/hybridexcel"
	"google.golang.org/api/iterator"
)

// TaskIterator is satisfied by *googlecloud.TaskIterator.
type TaskIterator interface {
	Next() (googlecloud.Task, error)
}

// DatastoreSource yields tasks from a lazy Datastore query.
type DatastoreSource struct {
	it   TaskIterator
	done bool
}

var _ hybridexcel.RecordSource = (*DatastoreSource)(nil)

func NewDatastoreSource(ctx context.Context, client *googlecloud.Client, f googlecloud.TaskFilter) (*DatastoreSource, error) {
	it, err := client.IterateTasks(ctx, f)
	if err != nil {
		return nil, err
	}
	return &DatastoreSource{it: it}, nil
}

// NewTaskIteratorSource wraps an existing iterator.
func NewTaskIteratorSource(it TaskIterator) *DatastoreSource {
	return &DatastoreSource{it: it}
}

func (s *DatastoreSource) Next(ctx context.Context) (interface{}, bool, error) {
	if s.done {
		return nil, false, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	task, err := s.it.Next()
	if err == iterator.Done {
		s.done = true
		return nil, false, nil
	}
	if err != nil {
		s.done = true
		return nil, false, err
	}
	return task, true, nil
}

func (s *DatastoreSource) Close() error {
	s.done = true
	return nil
}
