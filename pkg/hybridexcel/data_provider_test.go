package hybridexcel

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(t *testing.T, src RecordSource) []interface{} {
	t.Helper()
	var out []interface{}
	for {
		item, ok, err := src.Next(context.Background())
		require.NoError(t, err)
		if !ok {
			return out
		}
		out = append(out, item)
	}
}

func TestSliceSource(t *testing.T) {
	src, err := NewSliceSource([]interface{}{ledgerRecord(1), ledgerRecord(2)})
	require.NoError(t, err)
	items := drain(t, src)
	require.Len(t, items, 2)
	assert.Equal(t, ledgerRecord(2), items[1])

	ptr, err := NewSliceSource(&[]int{7})
	require.NoError(t, err)
	assert.Equal(t, []interface{}{7}, drain(t, ptr))

	_, err = NewSliceSource(nil)
	assert.Error(t, err)
	_, err = NewSliceSource(42)
	assert.Error(t, err)
}

func TestSliceSource_CloseStopsIteration(t *testing.T) {
	src, err := NewSliceSource([]int{1, 2, 3})
	require.NoError(t, err)
	require.NoError(t, src.Close())
	assert.Empty(t, drain(t, src))
}

func TestChannelSource(t *testing.T) {
	ch := make(chan interface{}, 3)
	ch <- "a"
	ch <- "b"
	close(ch)
	assert.Equal(t, []interface{}{"a", "b"}, drain(t, NewChannelSource(ch)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, ok, err := NewChannelSource(make(chan interface{})).Next(ctx)
	assert.False(t, ok)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFuncSource_StopsAfterError(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	src := NewFuncSource(func(context.Context) (interface{}, bool, error) {
		calls++
		if calls == 2 {
			return nil, true, boom
		}
		return calls, true, nil
	}, nil)

	item, ok, err := src.Next(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, item)

	_, ok, err = src.Next(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.False(t, ok)

	_, ok, err = src.Next(context.Background())
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 2, calls)
	assert.NoError(t, src.Close())
}

func TestGeneratedSource(t *testing.T) {
	items := drain(t, GeneratedSource(3, func(i int) interface{} { return i * i }))
	assert.Equal(t, []interface{}{0, 1, 4}, items)
}
