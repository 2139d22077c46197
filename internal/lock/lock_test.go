package lock

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFreeGrantsReadThenShared(t *testing.T) {
	l := New()
	require.True(t, l.TryAcquireRead("T1"))
	assert.Equal(t, Shared, l.State())
	assert.Equal(t, []string{"T1"}, l.Holders())
}

func TestSharedGrantsSecondReaderWithNoQueuedWrite(t *testing.T) {
	l := New()
	require.True(t, l.TryAcquireRead("T1"))
	require.True(t, l.TryAcquireRead("T2"))
	assert.Equal(t, []string{"T1", "T2"}, l.Holders())
}

func TestSharedBlocksReaderBehindQueuedWrite(t *testing.T) {
	l := New()
	require.True(t, l.TryAcquireRead("T1"))
	require.False(t, l.TryAcquireWrite("T2")) // blocks, enqueued
	granted := l.TryAcquireRead("T3")
	assert.False(t, granted)
	assert.Equal(t, []QueueEntry{{KindWrite, "T2"}, {KindRead, "T3"}}, l.Queue())
}

func TestPromotionWhenSoleHolder(t *testing.T) {
	l := New()
	require.True(t, l.TryAcquireRead("T1"))
	require.True(t, l.TryAcquireWrite("T1"))
	assert.Equal(t, Exclusive, l.State())
	assert.Equal(t, "T1", l.ExclusiveHolder())
}

func TestPromotionBlockedByOtherSharer(t *testing.T) {
	l := New()
	require.True(t, l.TryAcquireRead("T1"))
	require.True(t, l.TryAcquireRead("T2"))
	granted := l.TryAcquireWrite("T1")
	assert.False(t, granted)
	assert.Equal(t, Shared, l.State())
}

func TestExclusiveBlocksOthers(t *testing.T) {
	l := New()
	require.True(t, l.TryAcquireWrite("T1"))
	assert.False(t, l.TryAcquireRead("T2"))
	assert.False(t, l.TryAcquireWrite("T3"))
	assert.Equal(t, []QueueEntry{{KindRead, "T2"}, {KindWrite, "T3"}}, l.Queue())
}

func TestEnqueueIsIdempotent(t *testing.T) {
	l := New()
	require.True(t, l.TryAcquireWrite("T1"))
	l.TryAcquireRead("T2")
	l.TryAcquireRead("T2")
	assert.Equal(t, []QueueEntry{{KindRead, "T2"}}, l.Queue())
}

func TestReleaseClearsHoldAndOwnQueueEntriesOnly(t *testing.T) {
	l := New()
	require.True(t, l.TryAcquireWrite("T1"))
	l.TryAcquireWrite("T2") // blocks, enqueued
	l.Release("T1")
	assert.Equal(t, Free, l.State())
	assert.Equal(t, []QueueEntry{{KindWrite, "T2"}}, l.Queue())
}

func TestReleaseOnlyRemovesOwnQueueEntries(t *testing.T) {
	l := New()
	require.True(t, l.TryAcquireWrite("T1"))
	l.TryAcquireRead("T2")
	l.TryAcquireWrite("T3")
	l.Release("T2")
	assert.Equal(t, []QueueEntry{{KindWrite, "T3"}}, l.Queue())
}

func TestBlocksReflectsCurrentGrantOnly(t *testing.T) {
	l := New()
	require.True(t, l.TryAcquireRead("T1"))
	require.True(t, l.TryAcquireRead("T2"))
	assert.True(t, l.Blocks(KindWrite, "T1"))  // other sharer present
	assert.False(t, l.Blocks(KindRead, "T3")) // shared reads never block reads
}
