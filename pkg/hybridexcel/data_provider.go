package hybridexcel

import (
	"context"
	"fmt"
	"reflect"
)

// RecordSource is a lazy, forward-only sequence of records.
// Next returns ok=false once the sequence is exhausted.
type RecordSource interface {
	Next(ctx context.Context) (record interface{}, ok bool, err error)
	Close() error
}

// SliceSource iterates an in-memory slice of any element type.
type SliceSource struct {
	data reflect.Value
	pos  int
}

// NewSliceSource creates a RecordSource for slice data
func NewSliceSource(data interface{}) (*SliceSource, error) {
	if data == nil {
		return nil, fmt.Errorf("data cannot be nil")
	}
	v := reflect.ValueOf(data)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		return nil, fmt.Errorf("data must be a slice, got %s", v.Kind())
	}
	return &SliceSource{data: v}, nil
}

func (s *SliceSource) Next(_ context.Context) (interface{}, bool, error) {
	if s.pos >= s.data.Len() {
		return nil, false, nil
	}
	item := s.data.Index(s.pos).Interface()
	s.pos++
	return item, true, nil
}

func (s *SliceSource) Close() error {
	s.pos = s.data.Len()
	return nil
}

// ChannelSource drains a channel until it is closed or the context ends.
type ChannelSource struct {
	ch <-chan interface{}
}

func NewChannelSource(ch <-chan interface{}) *ChannelSource {
	return &ChannelSource{ch: ch}
}

func (s *ChannelSource) Next(ctx context.Context) (interface{}, bool, error) {
	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	case item, ok := <-s.ch:
		return item, ok, nil
	}
}

func (s *ChannelSource) Close() error { return nil }

// FuncSource adapts an iterator function, e.g. a generator or a paged client.
type FuncSource struct {
	next  func(ctx context.Context) (interface{}, bool, error)
	close func() error
	done  bool
}

// NewFuncSource wraps next. closeFn may be nil.
func NewFuncSource(next func(ctx context.Context) (interface{}, bool, error), closeFn func() error) *FuncSource {
	return &FuncSource{next: next, close: closeFn}
}

func (s *FuncSource) Next(ctx context.Context) (interface{}, bool, error) {
	if s.done {
		return nil, false, nil
	}
	item, ok, err := s.next(ctx)
	if err != nil || !ok {
		s.done = true
	}
	return item, ok && err == nil, err
}

func (s *FuncSource) Close() error {
	s.done = true
	if s.close != nil {
		return s.close()
	}
	return nil
}

// GeneratedSource produces n records from gen(i). Used for demos and load tests.
func GeneratedSource(n int, gen func(i int) interface{}) *FuncSource {
	i := 0
	return NewFuncSource(func(context.Context) (interface{}, bool, error) {
		if i >= n {
			return nil, false, nil
		}
		item := gen(i)
		i++
		return item, true, nil
	}, nil)
}
