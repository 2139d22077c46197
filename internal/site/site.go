// Package site implements the Site (Data Manager): ownership of a set of
// versioned variables, the up/down flag, the per-site contacted set, and
// the read/write/commit/abort/fail/recover/dump/waits-for protocols.
//
// Grounded in original_source/DataManager.py's DataManager class
// (read, check_write, write, commit, abort, fail, recover,
// generate_graph) and the teacher's internal/executor/catalog_manager.go
// style of one file owning a table of named entries.
package site

import (
	"sort"

	mapset "github.com/deckarep/golang-set/v2"

	"txsim/internal/lock"
	"txsim/internal/store"
)

// ReadStatus is the outcome of a read attempt against a site.
type ReadStatus int

const (
	Absent ReadStatus = iota
	Blocked
	Granted
)

// Edge is one waits-for edge: Waiter is blocked by Holder.
type Edge struct {
	Waiter string
	Holder string
}

// VariableDump is one line of a site's dump() output.
type VariableDump struct {
	VarID string
	Value int
}

// Site owns a subset of the variable universe and the lock/availability
// state for each.
type Site struct {
	ID        int
	Variables map[string]*store.Variable
	Up        bool
	Contacted mapset.Set[string]
}

// New creates an up site with no variables yet; variables are added via
// AddVariable by whatever builds the universe (the coordinator).
func New(id int) *Site {
	return &Site{
		ID:        id,
		Variables: make(map[string]*store.Variable),
		Up:        true,
		Contacted: mapset.NewThreadUnsafeSet[string](),
	}
}

// AddVariable registers a variable as resident on this site.
func (s *Site) AddVariable(v *store.Variable) {
	s.Variables[v.ID] = v
}

// Has reports whether the variable is resident on this site.
func (s *Site) Has(varID string) bool {
	_, ok := s.Variables[varID]
	return ok
}

// Read attempts a read-write-transaction read of varID by tx. Returns
// Absent if the variable isn't here, or is a replicated copy that's
// currently unavailable post-recovery (spec.md §4.3: "blocked-as-absent").
func (s *Site) Read(tx string, varID string) (status ReadStatus, value int) {
	v, ok := s.Variables[varID]
	if !ok {
		return Absent, 0
	}
	if !v.Available() {
		return Absent, 0
	}

	if !v.Lock.TryAcquireRead(tx) {
		return Blocked, 0
	}

	s.Contacted.Add(tx)
	if v.Lock.State() == lock.Exclusive && v.Lock.ExclusiveHolder() == tx {
		if t, has := v.ReadTentative(); has {
			return Granted, t
		}
	}
	return Granted, v.ReadCommitted()
}

// ReadSnapshot serves a read-only transaction's read at beginTs. Returns
// ok=false (treated as Absent by the caller) if the variable isn't here
// or continuity/visibility fails.
func (s *Site) ReadSnapshot(beginTs int, varID string) (value int, ok bool) {
	v, present := s.Variables[varID]
	if !present {
		return 0, false
	}
	return v.ReadSnapshot(beginTs)
}

// CheckWrite attempts to acquire the exclusive lock for tx on varID.
// Vacuously grants if the variable is not resident here.
func (s *Site) CheckWrite(tx string, varID string) (status ReadStatus) {
	v, ok := s.Variables[varID]
	if !ok {
		return Granted
	}
	if v.Lock.TryAcquireWrite(tx) {
		return Granted
	}
	return Blocked
}

// StageWrite stages the tentative value for tx on varID; no-op if the
// variable isn't resident here.
func (s *Site) StageWrite(tx string, varID string, v int) {
	variable, ok := s.Variables[varID]
	if !ok {
		return
	}
	variable.StageWrite(v)
	s.Contacted.Add(tx)
}

// Commit appends tentative values held exclusively by tx to history at
// commitTs for every such variable, then releases tx everywhere on this
// site.
func (s *Site) Commit(tx string, commitTs int) {
	for _, v := range s.Variables {
		if v.Lock.State() == lock.Exclusive && v.Lock.ExclusiveHolder() == tx {
			if val, has := v.ReadTentative(); has {
				v.CommitWrite(val, commitTs)
			}
		}
	}
	s.releaseEverywhere(tx)
}

// Abort discards any tentative writes by tx and releases it everywhere
// on this site.
func (s *Site) Abort(tx string) {
	for _, v := range s.Variables {
		if v.Lock.State() == lock.Exclusive && v.Lock.ExclusiveHolder() == tx {
			v.DiscardTentative()
		}
	}
	s.releaseEverywhere(tx)
}

func (s *Site) releaseEverywhere(tx string) {
	for _, v := range s.Variables {
		v.Lock.Release(tx)
	}
}

// Fail marks the site down, clears every variable's lock state and wait
// queue, and marks replicated variables unavailable. The contacted set
// is retained until Recover.
func (s *Site) Fail(ts int) {
	s.Up = false
	for _, v := range s.Variables {
		v.Lock = lock.New()
		if v.Replicated {
			v.SetAvailable(false)
			v.RecordDown(ts)
		}
	}
}

// Recover marks the site up and clears the contacted set. Non-replicated
// variables are immediately available; replicated variables stay
// unavailable until their next commit.
func (s *Site) Recover(ts int) {
	s.Up = true
	s.Contacted = mapset.NewThreadUnsafeSet[string]()
	for _, v := range s.Variables {
		if v.Replicated {
			v.RecordUp(ts)
		}
	}
}

// Dump returns the committed value of every resident variable, sorted by
// variable id for deterministic output.
func (s *Site) Dump() []VariableDump {
	ids := make([]string, 0, len(s.Variables))
	for id := range s.Variables {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]VariableDump, 0, len(ids))
	for _, id := range ids {
		out = append(out, VariableDump{VarID: id, Value: s.Variables[id].ReadCommitted()})
	}
	return out
}

// WaitsForLocal computes this site's contribution to the global
// waits-for graph per spec.md §4.3: for each variable with a non-empty
// queue, edges from each blocked waiter to the current holder(s), plus
// edges between queue entries that block each other.
func (s *Site) WaitsForLocal() []Edge {
	var edges []Edge
	seen := make(map[Edge]bool)
	add := func(from, to string) {
		if from == to {
			return
		}
		e := Edge{Waiter: from, Holder: to}
		if !seen[e] {
			seen[e] = true
			edges = append(edges, e)
		}
	}

	for _, v := range s.Variables {
		q := v.Lock.Queue()
		if len(q) == 0 {
			continue
		}

		for _, entry := range q {
			if !v.Lock.Blocks(entry.Kind, entry.Tx) {
				continue
			}
			switch v.Lock.State() {
			case lock.Shared:
				for _, h := range v.Lock.Holders() {
					add(entry.Tx, h)
				}
			case lock.Exclusive:
				add(entry.Tx, v.Lock.ExclusiveHolder())
			}
		}

		for i := 1; i < len(q); i++ {
			for j := 0; j < i; j++ {
				qi, qj := q[i], q[j]
				if qj.Tx == qi.Tx {
					continue
				}
				if qj.Kind == lock.KindRead && qi.Kind == lock.KindRead {
					continue
				}
				add(qi.Tx, qj.Tx)
			}
		}
	}

	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Waiter != edges[j].Waiter {
			return edges[i].Waiter < edges[j].Waiter
		}
		return edges[i].Holder < edges[j].Holder
	})
	return edges
}
