package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutGetOrder(t *testing.T) {
	q := New(4)

	assert.False(t, q.Put([]byte("a")))
	assert.False(t, q.Put([]byte("b")))
	assert.Equal(t, 2, q.Len())

	ctx := context.Background()
	first, err := q.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("a"), first)

	second, err := q.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("b"), second)
}

// TestDropOldest verifies the overflow policy: pushing N+1 payloads onto a
// queue of capacity N leaves exactly N payloads, with the first one evicted.
func TestDropOldest(t *testing.T) {
	const capacity = 3
	q := New(capacity)

	payloads := [][]byte{
		[]byte("p1"), []byte("p2"), []byte("p3"), []byte("p4"),
	}
	for i, p := range payloads {
		evicted := q.Put(p)
		assert.Equal(t, i == capacity, evicted, "put #%d", i+1)
	}

	require.Equal(t, capacity, q.Len())
	for _, want := range payloads[1:] {
		got, ok := q.TryGet()
		require.True(t, ok)
		assert.Equal(t, want, got)
	}
}

func TestGetBlocksUntilPut(t *testing.T) {
	q := New(1)

	go func() {
		time.Sleep(10 * time.Millisecond)
		q.Put([]byte("late"))
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	data, err := q.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("late"), data)
}

func TestGetHonorsCancellation(t *testing.T) {
	q := New(1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := q.Get(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTryGetEmpty(t *testing.T) {
	q := New(1)

	_, ok := q.TryGet()
	assert.False(t, ok)
}

func TestMinimumCapacity(t *testing.T) {
	q := New(0)
	assert.Equal(t, 1, q.Cap())
}
