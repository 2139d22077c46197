package deadlock

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"txsim/internal/site"
	"txsim/internal/txn"
)

func TestFindCycleNoneOnAcyclicGraph(t *testing.T) {
	g := Build([][]site.Edge{{{Waiter: "T1", Holder: "T2"}}})
	assert.Nil(t, g.FindCycle())
}

func TestFindCycleDetectsSimpleCycle(t *testing.T) {
	g := Build([][]site.Edge{
		{{Waiter: "T1", Holder: "T2"}},
		{{Waiter: "T2", Holder: "T1"}},
	})
	cycle := g.FindCycle()
	require.NotNil(t, cycle)
	assert.ElementsMatch(t, []string{"T1", "T2"}, cycle)
}

func TestResolveAbortsYoungestByBeginTs(t *testing.T) {
	g := Build([][]site.Edge{
		{{Waiter: "T1", Holder: "T2"}},
		{{Waiter: "T2", Holder: "T1"}},
	})
	txs := map[string]*txn.Transaction{
		"T1": {ID: "T1", BeginTs: 0},
		"T2": {ID: "T2", BeginTs: 1},
	}

	var aborted []string
	victims := Resolve(g, txs, func(id string) { aborted = append(aborted, id) })

	require.Len(t, victims, 1)
	assert.Equal(t, "T2", victims[0]) // larger begin_ts is younger
	assert.Equal(t, []string{"T2"}, aborted)
	assert.Nil(t, g.FindCycle())
}

func TestResolveTiesBrokenLexicographically(t *testing.T) {
	g := Build([][]site.Edge{
		{{Waiter: "T2", Holder: "T1"}},
		{{Waiter: "T1", Holder: "T2"}},
	})
	txs := map[string]*txn.Transaction{
		"T1": {ID: "T1", BeginTs: 5},
		"T2": {ID: "T2", BeginTs: 5},
	}

	victims := Resolve(g, txs, func(string) {})
	require.Len(t, victims, 1)
	assert.Equal(t, "T1", victims[0]) // equal begin_ts: smaller id chosen
}

func TestResolveHandlesMultipleDisjointCycles(t *testing.T) {
	g := Build([][]site.Edge{
		{{Waiter: "T1", Holder: "T2"}, {Waiter: "T2", Holder: "T1"}},
		{{Waiter: "T3", Holder: "T4"}, {Waiter: "T4", Holder: "T3"}},
	})
	txs := map[string]*txn.Transaction{
		"T1": {ID: "T1", BeginTs: 0},
		"T2": {ID: "T2", BeginTs: 1},
		"T3": {ID: "T3", BeginTs: 0},
		"T4": {ID: "T4", BeginTs: 1},
	}

	victims := Resolve(g, txs, func(string) {})
	assert.ElementsMatch(t, []string{"T2", "T4"}, victims)
}

func TestToDotRendersNodesAndEdges(t *testing.T) {
	g := Build([][]site.Edge{{{Waiter: "T1", Holder: "T2"}}})
	out := g.ToDot()
	assert.Contains(t, out, "T1")
	assert.Contains(t, out, "T2")
}
