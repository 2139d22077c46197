// Package store implements the versioned variable: a lock state machine
// wrapped around a monotonically-growing commit history plus a tentative
// uncommitted value.
//
// Grounded in original_source/DataManager.py's Variable/CommitValue
// classes, restated with the teacher's catalog_manager.go style of one
// struct per catalog entry with explicit accessor methods.
package store

import "txsim/internal/lock"

// CommitEntry is one committed (value, commit_ts) pair.
type CommitEntry struct {
	Value    int
	CommitTs int
}

// Variable is a single versioned, lockable integer variable.
type Variable struct {
	ID          string
	Replicated  bool
	history     []CommitEntry // strictly increasing CommitTs, non-empty
	tentative   int
	hasTentative bool
	available   bool // meaningful only when Replicated
	Lock        *lock.Lock

	// downIntervals records [start, end) timestamp ranges during which the
	// owning site was down, used by ReadSnapshot to enforce the
	// site-continuity rule of spec.md §4.3/property 4. Only appended to
	// for replicated variables; see Site.Fail/Recover.
	downIntervals []downInterval
}

type downInterval struct {
	start int
	end   int // -1 while still down
}

// New creates a variable with its spec-mandated initial history entry
// (10*index, 0). id is not parsed; callers pass its numeric suffix as
// index (e.g. "x7" with 7).
func New(id string, index int, replicated bool) *Variable {
	return &Variable{
		ID:         id,
		Replicated: replicated,
		history:    []CommitEntry{{Value: 10 * index, CommitTs: 0}},
		available:  true,
		Lock:       lock.New(),
	}
}

// ReadCommitted returns the most recently committed value.
func (v *Variable) ReadCommitted() int {
	return v.history[len(v.history)-1].Value
}

// ReadTentative returns the staged-but-uncommitted value and whether one
// exists.
func (v *Variable) ReadTentative() (int, bool) {
	return v.tentative, v.hasTentative
}

// StageWrite sets the tentative value. Callers must already hold (or
// have just been granted) the exclusive lock; this method does not
// re-check that invariant, matching the site-level enforcement in
// spec.md §4.2/§4.3.
func (v *Variable) StageWrite(value int) {
	v.tentative = value
	v.hasTentative = true
}

// DiscardTentative clears any staged value without committing it, used
// on abort.
func (v *Variable) DiscardTentative() {
	v.tentative = 0
	v.hasTentative = false
}

// CommitWrite appends (value, commitTs) to history and marks the
// variable available (meaningful for replicated variables recovering
// from a prior failure).
func (v *Variable) CommitWrite(value int, commitTs int) {
	v.history = append(v.history, CommitEntry{Value: value, CommitTs: commitTs})
	v.available = true
	v.hasTentative = false
}

// Available reports whether a replicated variable's copy on this site is
// currently readable. Always true for non-replicated variables.
func (v *Variable) Available() bool {
	if !v.Replicated {
		return true
	}
	return v.available
}

// SetAvailable forces the availability flag (used by Site.Fail/Recover).
func (v *Variable) SetAvailable(available bool) {
	v.available = available
}

// ReadSnapshot returns the value visible to a read-only transaction with
// the given begin timestamp: the history entry with the greatest
// CommitTs <= beginTs, provided the site was continuously up from that
// commit through beginTs for replicated variables. Returns ok=false if
// no such entry exists or continuity is violated.
func (v *Variable) ReadSnapshot(beginTs int) (value int, ok bool) {
	var best *CommitEntry
	for i := range v.history {
		e := &v.history[i]
		if e.CommitTs <= beginTs && (best == nil || e.CommitTs > best.CommitTs) {
			best = e
		}
	}
	if best == nil {
		return 0, false
	}
	if v.Replicated && !v.continuouslyUp(best.CommitTs, beginTs) {
		return 0, false
	}
	return best.Value, true
}

func (v *Variable) continuouslyUp(from, to int) bool {
	for _, d := range v.downIntervals {
		end := d.end
		if end == -1 {
			end = to + 1 // still down: definitely overlaps if it started in range
		}
		if d.start < to && end > from {
			return false
		}
	}
	return true
}

// RecordDown opens a down interval starting at ts (called on site Fail).
func (v *Variable) RecordDown(ts int) {
	if !v.Replicated {
		return
	}
	v.downIntervals = append(v.downIntervals, downInterval{start: ts, end: -1})
}

// RecordUp closes the most recent open down interval at ts (called on
// site Recover).
func (v *Variable) RecordUp(ts int) {
	if !v.Replicated || len(v.downIntervals) == 0 {
		return
	}
	last := &v.downIntervals[len(v.downIntervals)-1]
	if last.end == -1 {
		last.end = ts
	}
}
