// Package lock implements the per-variable lock state machine: a tagged
// variant over {Free, Shared, Exclusive} plus an ordered FIFO wait queue.
//
// Grounded in the teacher's internal/executor/lock_manager.go (LockTable,
// Lock, LockMode) restructured as a sum type per the redesign note in
// spec.md §9 ("the historical class hierarchy should collapse to this
// sum type"), and in original_source/DataManager.py's LockManager /
// LockItem / ReadLockItem / WriteLockItem classes, which this replaces.
package lock

import mapset "github.com/deckarep/golang-set/v2"

// Kind distinguishes a read request from a write request in the wait queue.
type Kind int

const (
	KindRead Kind = iota
	KindWrite
)

func (k Kind) String() string {
	if k == KindWrite {
		return "W"
	}
	return "R"
}

// State is the tagged variant for a variable's current lock.
type State int

const (
	Free State = iota
	Shared
	Exclusive
)

// QueueEntry is one pending lock request, FIFO-ordered by arrival.
type QueueEntry struct {
	Kind Kind
	Tx   string
}

// Lock is the full lock state for one variable: the current grant plus
// the wait queue. The zero value is Free with an empty queue.
type Lock struct {
	state       State
	holders     mapset.Set[string] // non-empty iff state == Shared
	excHolder   string             // valid iff state == Exclusive
	queue       []QueueEntry
}

// New returns a free lock.
func New() *Lock {
	return &Lock{state: Free, holders: mapset.NewThreadUnsafeSet[string]()}
}

// State returns the current lock state.
func (l *Lock) State() State { return l.state }

// Holders returns the current shared holders, sorted for determinism.
// Empty unless State() == Shared.
func (l *Lock) Holders() []string {
	if l.state != Shared {
		return nil
	}
	return sortedSet(l.holders)
}

// ExclusiveHolder returns the current exclusive holder, valid only when
// State() == Exclusive.
func (l *Lock) ExclusiveHolder() string { return l.excHolder }

// Queue returns a copy of the current wait queue in FIFO order.
func (l *Lock) Queue() []QueueEntry {
	out := make([]QueueEntry, len(l.queue))
	copy(out, l.queue)
	return out
}

// HoldsAny reports whether tx currently holds this lock in any form.
func (l *Lock) HoldsAny(tx string) bool {
	switch l.state {
	case Shared:
		return l.holders.ContainsOne(tx)
	case Exclusive:
		return l.excHolder == tx
	default:
		return false
	}
}

// hasQueuedWriteFromOtherThan reports whether some transaction other than
// tx has a queued write request.
func (l *Lock) hasQueuedWriteFromOtherThan(tx string) bool {
	for _, e := range l.queue {
		if e.Kind == KindWrite && e.Tx != tx {
			return true
		}
	}
	return false
}

func (l *Lock) enqueue(kind Kind, tx string) {
	for _, e := range l.queue {
		if e.Kind == kind && e.Tx == tx {
			return
		}
	}
	l.queue = append(l.queue, QueueEntry{Kind: kind, Tx: tx})
}

// TryAcquireRead attempts to grant tx a shared (read) hold. Reports
// whether the request was granted immediately.
func (l *Lock) TryAcquireRead(tx string) (granted bool) {
	switch l.state {
	case Free:
		l.state = Shared
		l.holders = mapset.NewThreadUnsafeSet[string](tx)
		return true

	case Shared:
		if l.holders.ContainsOne(tx) {
			return true
		}
		if l.hasQueuedWriteFromOtherThan(tx) {
			l.enqueue(KindRead, tx)
			return false
		}
		l.holders.Add(tx)
		return true

	case Exclusive:
		if l.excHolder == tx {
			return true
		}
		l.enqueue(KindRead, tx)
		return false

	default:
		return false
	}
}

// TryAcquireWrite attempts to grant tx an exclusive (write) hold,
// promoting from shared when legal. Reports whether granted immediately.
func (l *Lock) TryAcquireWrite(tx string) (granted bool) {
	switch l.state {
	case Free:
		l.state = Exclusive
		l.excHolder = tx
		return true

	case Shared:
		if l.holders.Cardinality() == 1 && l.holders.ContainsOne(tx) && !l.hasQueuedWriteFromOtherThan(tx) {
			l.state = Exclusive
			l.excHolder = tx
			l.holders = mapset.NewThreadUnsafeSet[string]()
			return true
		}
		l.enqueue(KindWrite, tx)
		return false

	case Exclusive:
		if l.excHolder == tx {
			return true
		}
		l.enqueue(KindWrite, tx)
		return false

	default:
		return false
	}
}

// Release drops tx's hold (shared or exclusive) and purges every queue
// entry belonging to tx. It does not dequeue waiters; the Coordinator's
// global re-execution pass re-drives them.
func (l *Lock) Release(tx string) {
	switch l.state {
	case Shared:
		l.holders.Remove(tx)
		if l.holders.Cardinality() == 0 {
			l.state = Free
		}
	case Exclusive:
		if l.excHolder == tx {
			l.state = Free
			l.excHolder = ""
		}
	}

	filtered := l.queue[:0:0]
	for _, e := range l.queue {
		if e.Tx != tx {
			filtered = append(filtered, e)
		}
	}
	l.queue = filtered
}

// Blocks reports whether a queued request of the given kind from tx
// would currently be blocked by the lock's grant (not the queue) — used
// by Site.WaitsForLocal to compute edges against the current holder(s).
func (l *Lock) Blocks(kind Kind, tx string) bool {
	switch l.state {
	case Free:
		return false
	case Shared:
		if kind == KindRead {
			return false
		}
		return !(l.holders.Cardinality() == 1 && l.holders.ContainsOne(tx))
	case Exclusive:
		return l.excHolder != tx
	default:
		return false
	}
}

func sortedSet(s mapset.Set[string]) []string {
	out := s.ToSlice()
	// Insertion sort is fine: holder sets are tiny (bounded by live txns).
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}
