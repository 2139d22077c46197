package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHasInitialHistoryEntry(t *testing.T) {
	v := New("x7", 7, false)
	assert.Equal(t, 70, v.ReadCommitted())
}

func TestStageThenCommit(t *testing.T) {
	v := New("x1", 1, true)
	v.StageWrite(101)
	tentative, ok := v.ReadTentative()
	require.True(t, ok)
	assert.Equal(t, 101, tentative)
	assert.Equal(t, 10, v.ReadCommitted()) // not yet committed

	v.CommitWrite(101, 5)
	assert.Equal(t, 101, v.ReadCommitted())
}

func TestDiscardTentativeOnAbort(t *testing.T) {
	v := New("x1", 1, true)
	v.StageWrite(999)
	v.DiscardTentative()
	_, ok := v.ReadTentative()
	assert.False(t, ok)
	assert.Equal(t, 10, v.ReadCommitted())
}

func TestReadSnapshotPicksGreatestCommitTsAtOrBeforeBeginTs(t *testing.T) {
	v := New("x2", 2, true)
	v.CommitWrite(20, 3)
	v.CommitWrite(30, 7)

	val, ok := v.ReadSnapshot(5)
	require.True(t, ok)
	assert.Equal(t, 20, val)

	val, ok = v.ReadSnapshot(10)
	require.True(t, ok)
	assert.Equal(t, 30, val)

	val, ok = v.ReadSnapshot(0)
	require.True(t, ok)
	assert.Equal(t, 10, val) // the initial entry at commit_ts 0
}

func TestReadSnapshotRejectsDiscontinuousUptime(t *testing.T) {
	v := New("x2", 2, true)
	v.CommitWrite(20, 3)
	v.RecordDown(4)
	v.RecordUp(6)

	_, ok := v.ReadSnapshot(8) // down interval [4,6) overlaps [3,8]
	assert.False(t, ok)
}

func TestReadSnapshotAllowsContinuousUptime(t *testing.T) {
	v := New("x2", 2, true)
	v.CommitWrite(20, 3)
	v.RecordDown(10)
	v.RecordUp(12)

	val, ok := v.ReadSnapshot(8) // down interval starts after begin_ts, no overlap
	require.True(t, ok)
	assert.Equal(t, 20, val)
}

func TestAvailabilityNonReplicatedAlwaysAvailable(t *testing.T) {
	v := New("x1", 1, false)
	v.SetAvailable(false)
	assert.True(t, v.Available())
}

func TestAvailabilityReplicatedTracksFlag(t *testing.T) {
	v := New("x2", 2, true)
	assert.True(t, v.Available())
	v.SetAvailable(false)
	assert.False(t, v.Available())
	v.CommitWrite(22, 9)
	assert.True(t, v.Available())
}
