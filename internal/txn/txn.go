// Package txn implements the Transaction Table & Operation Queue: the
// Coordinator's bookkeeping for active transactions and the operations
// that blocked waiting on a lock or an unavailable site.
//
// Grounded in the teacher's internal/executor/transaction_executor.go
// (Transaction, TransactionState, BeginTransaction/CommitTransaction/
// RollbackTransaction shape) and original_source/TransactionManager.py
// (ensure_transaction_exists, add_read, add_write, begin).
package txn

import (
	"fmt"

	"txsim/internal/command"
)

// Transaction is one active begin..end transaction.
type Transaction struct {
	ID          string
	BeginTs     int
	ReadOnly    bool
	Aborted     bool
	AbortReason string
}

// OpKind distinguishes a queued read from a queued write.
type OpKind int

const (
	OpRead OpKind = iota
	OpWrite
)

// Operation is one queued R or W awaiting a grant.
type Operation struct {
	Kind  OpKind
	Tx    string
	Var   string
	Value int // meaningful only for OpWrite
}

// Table owns the transaction table and the FIFO operation queue. It is
// not safe for concurrent use; the Coordinator drives it single-threaded.
type Table struct {
	txns  map[string]*Transaction
	queue []*Operation
}

// New returns an empty table.
func New() *Table {
	return &Table{txns: make(map[string]*Transaction)}
}

// Begin registers a new transaction at the given timestamp. Returns
// command.ErrInvalidCommand if id is already in use.
func (t *Table) Begin(id string, readOnly bool, ts int) error {
	if _, exists := t.txns[id]; exists {
		return fmt.Errorf("%w: transaction %q already exists", command.ErrInvalidCommand, id)
	}
	t.txns[id] = &Transaction{ID: id, BeginTs: ts, ReadOnly: readOnly}
	return nil
}

// Get returns the transaction by id, if it exists.
func (t *Table) Get(id string) (*Transaction, bool) {
	tx, ok := t.txns[id]
	return tx, ok
}

// Exists reports whether id names a live transaction.
func (t *Table) Exists(id string) bool {
	_, ok := t.txns[id]
	return ok
}

// Remove deletes a transaction from the table (called after end).
func (t *Table) Remove(id string) {
	delete(t.txns, id)
}

// Abort marks a live transaction aborted with the given reason. No-op if
// the transaction doesn't exist or is already aborted (first reason
// wins).
func (t *Table) Abort(id string, reason string) {
	tx, ok := t.txns[id]
	if !ok || tx.Aborted {
		return
	}
	tx.Aborted = true
	tx.AbortReason = reason
}

// AddRead enqueues a read operation. Returns command.ErrInvalidCommand if
// tx is unknown.
func (t *Table) AddRead(tx string, varID string) error {
	if !t.Exists(tx) {
		return fmt.Errorf("%w: unknown transaction %q", command.ErrInvalidCommand, tx)
	}
	t.queue = append(t.queue, &Operation{Kind: OpRead, Tx: tx, Var: varID})
	return nil
}

// AddWrite enqueues a write operation. Returns command.ErrInvalidCommand
// if tx is unknown.
func (t *Table) AddWrite(tx string, varID string, value int) error {
	if !t.Exists(tx) {
		return fmt.Errorf("%w: unknown transaction %q", command.ErrInvalidCommand, tx)
	}
	t.queue = append(t.queue, &Operation{Kind: OpWrite, Tx: tx, Var: varID, Value: value})
	return nil
}

// Queue returns the current operation queue in FIFO order. The slice is
// shared; callers must not retain it across a DropOp/DropOrphans call.
func (t *Table) Queue() []*Operation {
	return t.queue
}

// DropOp removes one operation (by pointer identity) from the queue,
// e.g. after it succeeds.
func (t *Table) DropOp(op *Operation) {
	for i, o := range t.queue {
		if o == op {
			t.queue = append(t.queue[:i], t.queue[i+1:]...)
			return
		}
	}
}

// DropOrphans removes every queued operation whose transaction is no
// longer in the table.
func (t *Table) DropOrphans() {
	kept := t.queue[:0:0]
	for _, op := range t.queue {
		if t.Exists(op.Tx) {
			kept = append(kept, op)
		}
	}
	t.queue = kept
}

// HasQueuedOps reports whether tx still has any pending operation (used
// to resolve the "operation incomplete" rule at end()).
func (t *Table) HasQueuedOps(tx string) bool {
	for _, op := range t.queue {
		if op.Tx == tx {
			return true
		}
	}
	return false
}

// DropAllFor removes every queued operation belonging to tx (used when
// aborting tx, e.g. as a deadlock victim).
func (t *Table) DropAllFor(tx string) {
	kept := t.queue[:0:0]
	for _, op := range t.queue {
		if op.Tx != tx {
			kept = append(kept, op)
		}
	}
	t.queue = kept
}
