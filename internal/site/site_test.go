package site

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"txsim/internal/store"
)

func newTestSite() *Site {
	s := New(1)
	s.AddVariable(store.New("x1", 1, false))
	s.AddVariable(store.New("x2", 2, true))
	return s
}

func TestReadAbsentVariable(t *testing.T) {
	s := newTestSite()
	status, _ := s.Read("T1", "x99")
	assert.Equal(t, Absent, status)
}

func TestReadGrantsAndTracksContacted(t *testing.T) {
	s := newTestSite()
	status, value := s.Read("T1", "x1")
	assert.Equal(t, Granted, status)
	assert.Equal(t, 10, value)
	assert.True(t, s.Contacted.ContainsOne("T1"))
}

func TestWriteRoundTrip(t *testing.T) {
	s := newTestSite()
	require.Equal(t, Granted, s.CheckWrite("T1", "x1"))
	s.StageWrite("T1", "x1", 101)

	status, value := s.Read("T1", "x1")
	require.Equal(t, Granted, status)
	assert.Equal(t, 101, value) // sees own tentative value

	s.Commit("T1", 5)
	status, value = s.Read("T2", "x1")
	require.Equal(t, Granted, status)
	assert.Equal(t, 101, value)
}

func TestAbortDiscardsTentative(t *testing.T) {
	s := newTestSite()
	require.Equal(t, Granted, s.CheckWrite("T1", "x1"))
	s.StageWrite("T1", "x1", 999)
	s.Abort("T1")

	status, value := s.Read("T2", "x1")
	require.Equal(t, Granted, status)
	assert.Equal(t, 10, value)
}

func TestFailClearsLocksAndMarksReplicatedUnavailable(t *testing.T) {
	s := newTestSite()
	require.Equal(t, Granted, s.CheckWrite("T1", "x2"))
	s.Fail(3)

	assert.False(t, s.Up)
	status, _ := s.Read("T2", "x2")
	assert.Equal(t, Absent, status) // unavailable replicated copy post-fail
}

func TestRecoverMakesNonReplicatedImmediatelyAvailable(t *testing.T) {
	s := newTestSite()
	s.Fail(1)
	s.Recover(2)

	status, value := s.Read("T1", "x1")
	require.Equal(t, Granted, status)
	assert.Equal(t, 10, value)
}

func TestRecoverKeepsReplicatedUnavailableUntilCommit(t *testing.T) {
	s := newTestSite()
	s.Fail(1)
	s.Recover(2)

	status, _ := s.Read("T1", "x2")
	assert.Equal(t, Absent, status)

	require.Equal(t, Granted, s.CheckWrite("T1", "x2"))
	s.StageWrite("T1", "x2", 222)
	s.Commit("T1", 3)

	status, value := s.Read("T2", "x2")
	require.Equal(t, Granted, status)
	assert.Equal(t, 222, value)
}

func TestWaitsForLocalEdgesFromQueueToHolder(t *testing.T) {
	s := newTestSite()
	require.Equal(t, Granted, s.CheckWrite("T1", "x1"))
	assert.Equal(t, Blocked, s.CheckWrite("T2", "x1"))

	edges := s.WaitsForLocal()
	require.Len(t, edges, 1)
	assert.Equal(t, Edge{Waiter: "T2", Holder: "T1"}, edges[0])
}

func TestDumpSortedByVariableID(t *testing.T) {
	s := newTestSite()
	dump := s.Dump()
	require.Len(t, dump, 2)
	assert.Equal(t, "x1", dump[0].VarID)
	assert.Equal(t, "x2", dump[1].VarID)
}
