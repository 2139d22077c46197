// Package deadlock unions per-site waits-for graphs and detects cycles,
// selecting the youngest transaction in each cycle as victim.
//
// Grounded in the teacher's internal/executor/lock_manager.go
// WaitForGraph (AddEdge/DetectCycle/detectCycleUtil DFS with
// visited/recStack) and original_source/DataManager.py's generate_graph
// plus TransactionManager.py's module-level dfs().
package deadlock

import (
	"sort"

	"github.com/emicklei/dot"

	"txsim/internal/site"
	"txsim/internal/txn"
)

// Graph is the unioned waits-for graph: an adjacency map from waiter tx
// id to the set of tx ids it directly waits on.
type Graph struct {
	adj map[string]map[string]bool
}

// Build unions the waits-for edges reported by every up site into one
// graph.
func Build(perSite [][]site.Edge) *Graph {
	g := &Graph{adj: make(map[string]map[string]bool)}
	for _, edges := range perSite {
		for _, e := range edges {
			g.addEdge(e.Waiter, e.Holder)
		}
	}
	return g
}

func (g *Graph) addEdge(from, to string) {
	if from == to {
		return
	}
	if g.adj[from] == nil {
		g.adj[from] = make(map[string]bool)
	}
	g.adj[from][to] = true
	if _, ok := g.adj[to]; !ok {
		g.adj[to] = make(map[string]bool) // ensure holder is a node even with no out-edges
	}
}

// RemoveNode deletes a transaction and every edge touching it.
func (g *Graph) RemoveNode(id string) {
	delete(g.adj, id)
	for _, out := range g.adj {
		delete(out, id)
	}
}

// Nodes returns every transaction id present in the graph, sorted.
func (g *Graph) Nodes() []string {
	nodes := make([]string, 0, len(g.adj))
	for n := range g.adj {
		nodes = append(nodes, n)
	}
	sort.Strings(nodes)
	return nodes
}

// FindCycle returns the node ids forming one cycle, or nil if the graph
// is acyclic. Iteration order over nodes is sorted so the result is a
// pure function of the graph's edge set.
func (g *Graph) FindCycle() []string {
	const (
		unvisited = 0
		inStack   = 1
		done      = 2
	)
	state := make(map[string]int, len(g.adj))
	var stack []string

	var dfs func(node string) []string
	dfs = func(node string) []string {
		state[node] = inStack
		stack = append(stack, node)

		neighbors := make([]string, 0, len(g.adj[node]))
		for n := range g.adj[node] {
			neighbors = append(neighbors, n)
		}
		sort.Strings(neighbors)

		for _, next := range neighbors {
			switch state[next] {
			case unvisited:
				if cycle := dfs(next); cycle != nil {
					return cycle
				}
			case inStack:
				// found the back-edge; extract the cycle portion of stack
				for i, n := range stack {
					if n == next {
						return append([]string(nil), stack[i:]...)
					}
				}
			}
		}

		stack = stack[:len(stack)-1]
		state[node] = done
		return nil
	}

	for _, node := range g.Nodes() {
		if state[node] == unvisited {
			if cycle := dfs(node); cycle != nil {
				return cycle
			}
		}
	}
	return nil
}

// Resolve repeatedly finds a cycle and removes its youngest transaction
// (largest BeginTs; ties broken by lexicographically smallest tx id)
// until the graph is acyclic, calling abort for each victim. Returns the
// victims in the order they were chosen.
func Resolve(g *Graph, txs map[string]*txn.Transaction, abort func(id string)) []string {
	var victims []string
	for {
		cycle := g.FindCycle()
		if cycle == nil {
			return victims
		}
		victim := youngest(cycle, txs)
		abort(victim)
		g.RemoveNode(victim)
		victims = append(victims, victim)
	}
}

func youngest(cycle []string, txs map[string]*txn.Transaction) string {
	best := cycle[0]
	bestTs := beginTs(best, txs)
	for _, id := range cycle[1:] {
		ts := beginTs(id, txs)
		if ts > bestTs || (ts == bestTs && id < best) {
			best = id
			bestTs = ts
		}
	}
	return best
}

func beginTs(id string, txs map[string]*txn.Transaction) int {
	if tx, ok := txs[id]; ok {
		return tx.BeginTs
	}
	return -1
}

// ToDot renders the graph in Graphviz DOT notation: one node per live
// transaction, one directed edge per waits-for relationship. This is the
// non-spec operator-facing supplement described in SPEC_FULL.md §4.11;
// it never affects scheduling.
func (g *Graph) ToDot() string {
	gr := dot.NewGraph(dot.Directed)
	nodes := make(map[string]dot.Node)
	for _, id := range g.Nodes() {
		nodes[id] = gr.Node(id)
	}
	for _, waiter := range g.Nodes() {
		holders := make([]string, 0, len(g.adj[waiter]))
		for h := range g.adj[waiter] {
			holders = append(holders, h)
		}
		sort.Strings(holders)
		for _, h := range holders {
			gr.Edge(nodes[waiter], nodes[h])
		}
	}
	return gr.String()
}
