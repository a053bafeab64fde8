package watch

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dexerrors "github.com/docdexhq/docdex/internal/errors"
)

func ev(sourceID, path string, op Op) FileEvent {
	return FileEvent{Path: path, SourceID: sourceID, Op: op}
}

func TestEventQueue_DrainsInInsertionOrder(t *testing.T) {
	q := newEventQueue(10)

	require.NoError(t, q.upsert(ev("s1", "a.md", OpAdd)))
	require.NoError(t, q.upsert(ev("s1", "b.md", OpAdd)))
	require.NoError(t, q.upsert(ev("s1", "c.md", OpDelete)))

	events := q.drain()
	require.Len(t, events, 3)
	assert.Equal(t, "a.md", events[0].Path)
	assert.Equal(t, "b.md", events[1].Path)
	assert.Equal(t, "c.md", events[2].Path)

	assert.Equal(t, 0, q.len())
	assert.Nil(t, q.drain())
}

func TestEventQueue_UpsertReplacesInPlace(t *testing.T) {
	q := newEventQueue(10)

	require.NoError(t, q.upsert(ev("s1", "a.md", OpAdd)))
	require.NoError(t, q.upsert(ev("s1", "b.md", OpAdd)))
	// A later event for a.md keeps its original slot but carries the new
	// operation.
	require.NoError(t, q.upsert(ev("s1", "a.md", OpUpdate)))

	assert.Equal(t, 2, q.len())
	events := q.drain()
	require.Len(t, events, 2)
	assert.Equal(t, "a.md", events[0].Path)
	assert.Equal(t, OpUpdate, events[0].Op)
	assert.Equal(t, "b.md", events[1].Path)
}

func TestEventQueue_SamePathDifferentSourcesAreDistinct(t *testing.T) {
	q := newEventQueue(10)

	require.NoError(t, q.upsert(ev("s1", "a.md", OpAdd)))
	require.NoError(t, q.upsert(ev("s2", "a.md", OpAdd)))

	assert.Equal(t, 2, q.len())
}

func TestEventQueue_CapacityRejectsOnlyNewFiles(t *testing.T) {
	q := newEventQueue(2)

	require.NoError(t, q.upsert(ev("s1", "a.md", OpAdd)))
	require.NoError(t, q.upsert(ev("s1", "b.md", OpAdd)))

	err := q.upsert(ev("s1", "c.md", OpAdd))
	require.Error(t, err)
	assert.True(t, errors.Is(err, dexerrors.ErrQueueFull))

	// Replacing a queued file consumes no slot, so it lands at capacity.
	require.NoError(t, q.upsert(ev("s1", "a.md", OpDelete)))
	assert.Equal(t, 2, q.len())

	events := q.drain()
	assert.Equal(t, OpDelete, events[0].Op)
}

func TestEventQueue_RemoveSource(t *testing.T) {
	q := newEventQueue(10)

	require.NoError(t, q.upsert(ev("s1", "a.md", OpAdd)))
	require.NoError(t, q.upsert(ev("s2", "b.md", OpAdd)))
	require.NoError(t, q.upsert(ev("s1", "c.md", OpAdd)))

	removed := q.removeSource("s1")
	assert.Equal(t, 2, removed)
	assert.Equal(t, 1, q.len())

	// Removed keys are fully forgotten: re-adding lands at the back.
	require.NoError(t, q.upsert(ev("s1", "a.md", OpUpdate)))
	events := q.drain()
	require.Len(t, events, 2)
	assert.Equal(t, "b.md", events[0].Path)
	assert.Equal(t, "a.md", events[1].Path)
}

func TestOp_String(t *testing.T) {
	assert.Equal(t, "ADD", OpAdd.String())
	assert.Equal(t, "UPDATE", OpUpdate.String())
	assert.Equal(t, "DELETE", OpDelete.String())
	assert.Equal(t, "UNKNOWN", Op(99).String())
}
