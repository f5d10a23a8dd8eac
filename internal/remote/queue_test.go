package remote

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotQueue_FIFOOrder(t *testing.T) {
	q := newSnapshotQueue()

	require.True(t, q.Enqueue(Snapshot{Path: "a"}))
	require.True(t, q.Enqueue(Snapshot{Path: "b"}))
	require.True(t, q.Enqueue(Snapshot{Path: "c"}))

	for _, want := range []string{"a", "b", "c"} {
		s, ok := q.Dequeue()
		require.True(t, ok)
		assert.Equal(t, want, s.Path)
	}
}

func TestSnapshotQueue_CloseDiscardsPending(t *testing.T) {
	q := newSnapshotQueue()
	q.Enqueue(Snapshot{Path: "a"})
	q.Enqueue(Snapshot{Path: "b"})

	discarded := q.Close()
	assert.Equal(t, 2, discarded)

	_, ok := q.Dequeue()
	assert.False(t, ok)
	assert.False(t, q.Enqueue(Snapshot{Path: "c"}), "enqueue after close")
}

func TestSnapshotQueue_DequeueBlocksUntilEnqueue(t *testing.T) {
	q := newSnapshotQueue()
	got := make(chan Snapshot, 1)

	go func() {
		s, ok := q.Dequeue()
		if ok {
			got <- s
		}
	}()

	q.Enqueue(Snapshot{Path: "a"})
	s := <-got
	assert.Equal(t, "a", s.Path)
}

func TestCleanPath(t *testing.T) {
	assert.Equal(t, "a/b/c", CleanPath("/a/b/c/"))
	assert.Equal(t, "a/b", CleanPath("a//b"))
	assert.Equal(t, "", CleanPath("///"))
}

func TestPathsOverlap(t *testing.T) {
	assert.True(t, pathsOverlap("a/b", "a/b"))
	assert.True(t, pathsOverlap("a/b", "a/b/c"), "child write affects listener")
	assert.True(t, pathsOverlap("a/b/c", "a/b"), "ancestor write affects listener")
	assert.False(t, pathsOverlap("a/b", "a/bc"))
	assert.False(t, pathsOverlap("a/b", "a/c"))
}
