// Package coordinator implements the Transaction Manager: the driver of
// the global clock, command dispatch, the Available-Copies read/write
// rules, deadlock detection, and site failure/recovery.
//
// Grounded in the teacher's internal/dispatcher/dispatcher.go (command
// dispatch table shape) and internal/executor/transaction_executor.go
// (transaction bookkeeping), and in original_source/TransactionManager.py
// (execute, read, write, end, fail, recover, deadlock_detect).
package coordinator

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"txsim/internal/command"
	"txsim/internal/config"
	"txsim/internal/deadlock"
	"txsim/internal/obslog"
	"txsim/internal/obsmetrics"
	"txsim/internal/site"
	"txsim/internal/store"
	"txsim/internal/txn"
)

// Coordinator drives one simulated universe of sites and variables.
type Coordinator struct {
	cfg     *config.Config
	log     *obslog.Logger
	metrics *obsmetrics.Metrics

	sites []*site.Site // 1-indexed; sites[0] is unused
	txns  *txn.Table
	clock int
}

// New builds a Coordinator with the universe laid out per spec.md §3:
// even-indexed variables replicated at every site, odd-indexed variable
// i resident only at site (i mod SiteCount)+1.
func New(cfg *config.Config, log *obslog.Logger, metrics *obsmetrics.Metrics) *Coordinator {
	c := &Coordinator{
		cfg:     cfg,
		log:     log,
		metrics: metrics,
		sites:   make([]*site.Site, cfg.SiteCount+1),
		txns:    txn.New(),
	}
	for i := 1; i <= cfg.SiteCount; i++ {
		c.sites[i] = site.New(i)
	}

	for i := 1; i <= cfg.VariableCount; i++ {
		id := "x" + strconv.Itoa(i)
		replicated := i%2 == 0
		if replicated {
			for s := 1; s <= cfg.SiteCount; s++ {
				c.sites[s].AddVariable(store.New(id, i, true))
			}
		} else {
			home := (i % cfg.SiteCount) + 1
			c.sites[home].AddVariable(store.New(id, i, false))
		}
	}

	if c.metrics != nil {
		c.metrics.SitesUp.Set(float64(cfg.SiteCount))
	}
	return c
}

// Process runs one atomic tick for a single input line: parse, apply,
// increment clock, detect deadlocks, re-execute the pending queue once.
// Returns any output lines produced (dump/graph text) and a non-nil
// error only for an unhandled invalid command.
func (c *Coordinator) Process(line string) (output []string, done bool, err error) {
	cmd, ok, err := command.Parse(line)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	if command.IsDone(cmd) {
		return nil, true, nil
	}

	var applyOutput []string
	switch cmd.Kind {
	case command.Begin:
		err = c.begin(cmd.Tx, false)
	case command.BeginRO:
		err = c.begin(cmd.Tx, true)
	case command.Read:
		err = c.txns.AddRead(cmd.Tx, cmd.Var)
	case command.Write:
		err = c.txns.AddWrite(cmd.Tx, cmd.Var, cmd.Val)
	case command.End:
		err = c.end(cmd.Tx)
	case command.Dump:
		applyOutput = c.dump()
	case command.Fail:
		err = c.fail(cmd.Site)
	case command.Recover:
		err = c.recover(cmd.Site)
	case command.Graph:
		applyOutput = []string{c.graphDot()}
	}
	if err != nil {
		return nil, false, err
	}

	c.clock++
	if c.metrics != nil {
		c.metrics.Ticks.Inc()
	}

	c.runDeadlockDetection()
	execOutput := c.executePass()

	return append(applyOutput, execOutput...), false, nil
}

func (c *Coordinator) begin(tx string, readOnly bool) error {
	if err := c.txns.Begin(tx, readOnly, c.clock); err != nil {
		return err
	}
	c.log.Debug("begin %s readOnly=%v at ts=%d", tx, readOnly, c.clock)
	return nil
}

func (c *Coordinator) end(tx string) error {
	t, ok := c.txns.Get(tx)
	if !ok {
		return fmt.Errorf("%w: end of unknown transaction %q", command.ErrInvalidCommand, tx)
	}

	if c.txns.HasQueuedOps(tx) {
		// Resolution of the open question in spec.md §9: a tx reaching end
		// while still blocked aborts rather than commits.
		t.Aborted = true
		t.AbortReason = "operation incomplete"
	}

	if t.Aborted {
		c.abortEverywhere(tx)
		if c.metrics != nil {
			c.metrics.Aborts.WithLabelValues(t.AbortReason).Inc()
		}
		c.log.Info("end %s: aborted (%s)", tx, t.AbortReason)
	} else {
		for s := 1; s < len(c.sites); s++ {
			if c.sites[s].Up {
				c.sites[s].Commit(tx, c.clock)
			}
		}
		if c.metrics != nil {
			c.metrics.Commits.Inc()
			c.recomputeSiteGauges()
		}
		c.log.Info("end %s: committed at ts=%d", tx, c.clock)
	}

	c.txns.Remove(tx)
	c.txns.DropAllFor(tx)
	return nil
}

func (c *Coordinator) abortEverywhere(tx string) {
	for s := 1; s < len(c.sites); s++ {
		c.sites[s].Abort(tx)
	}
}

func (c *Coordinator) fail(siteID int) error {
	if siteID < 1 || siteID >= len(c.sites) {
		return fmt.Errorf("%w: site %d out of range", command.ErrInvalidCommand, siteID)
	}
	s := c.sites[siteID]
	if !s.Up {
		return fmt.Errorf("%w: site %d is already down", command.ErrInvalidCommand, siteID)
	}

	contacted := s.Contacted.ToSlice()
	s.Fail(c.clock)

	sort.Strings(contacted)
	for _, tx := range contacted {
		if t, ok := c.txns.Get(tx); ok && !t.Aborted {
			t.Aborted = true
			t.AbortReason = "site failure"
			c.log.Info("tx %s aborted: site %d failure", tx, siteID)
		}
	}

	if c.metrics != nil {
		c.recomputeSiteGauges()
	}
	c.log.Warn("site %d failed at ts=%d", siteID, c.clock)
	return nil
}

func (c *Coordinator) recover(siteID int) error {
	if siteID < 1 || siteID >= len(c.sites) {
		return fmt.Errorf("%w: site %d out of range", command.ErrInvalidCommand, siteID)
	}
	s := c.sites[siteID]
	if s.Up {
		return fmt.Errorf("%w: site %d is already up", command.ErrInvalidCommand, siteID)
	}
	s.Recover(c.clock)
	if c.metrics != nil {
		c.recomputeSiteGauges()
	}
	c.log.Info("site %d recovered at ts=%d", siteID, c.clock)
	return nil
}

func (c *Coordinator) recomputeSiteGauges() {
	up := 0
	unavailable := 0
	for s := 1; s < len(c.sites); s++ {
		if c.sites[s].Up {
			up++
		}
		for _, v := range c.sites[s].Variables {
			if !v.Available() {
				unavailable++
			}
		}
	}
	c.metrics.SitesUp.Set(float64(up))
	c.metrics.VariablesUnavailable.Set(float64(unavailable))
}

func (c *Coordinator) dump() []string {
	var lines []string
	for s := 1; s < len(c.sites); s++ {
		vars := c.sites[s].Dump()
		parts := make([]string, 0, len(vars))
		for _, v := range vars {
			parts = append(parts, fmt.Sprintf("%s: %d", v.VarID, v.Value))
		}
		lines = append(lines, fmt.Sprintf("site %d - %s", s, strings.Join(parts, ", ")))
	}
	return lines
}

func (c *Coordinator) graphDot() string {
	g := c.buildGraph()
	return g.ToDot()
}

func (c *Coordinator) buildGraph() *deadlock.Graph {
	edges := make([][]site.Edge, 0, len(c.sites)-1)
	for s := 1; s < len(c.sites); s++ {
		if c.sites[s].Up {
			edges = append(edges, c.sites[s].WaitsForLocal())
		}
	}
	return deadlock.Build(edges)
}

func (c *Coordinator) runDeadlockDetection() {
	g := c.buildGraph()
	txsByID := c.liveTxns()
	victims := deadlock.Resolve(g, txsByID, func(id string) {
		c.abortEverywhere(id)
		c.txns.DropAllFor(id)
		c.txns.Abort(id, "deadlock")
	})
	if len(victims) > 0 && c.metrics != nil {
		c.metrics.DeadlocksResolved.Add(float64(len(victims)))
		c.metrics.Aborts.WithLabelValues("deadlock").Add(float64(len(victims)))
	}
	for _, v := range victims {
		c.log.Info("deadlock victim aborted: %s", v)
	}
}

func (c *Coordinator) liveTxns() map[string]*txn.Transaction {
	out := make(map[string]*txn.Transaction)
	for s := 1; s < len(c.sites); s++ {
		for _, e := range c.sites[s].WaitsForLocal() {
			for _, id := range []string{e.Waiter, e.Holder} {
				if _, ok := out[id]; !ok {
					if t, found := c.txns.Get(id); found {
						out[id] = t
					}
				}
			}
		}
	}
	return out
}

// executePass scans the operation queue once in FIFO order, attempting
// each still-live operation; satisfied ones are removed.
func (c *Coordinator) executePass() []string {
	c.txns.DropOrphans()

	var output []string
	for _, op := range append([]*txn.Operation(nil), c.txns.Queue()...) {
		tx, ok := c.txns.Get(op.Tx)
		if !ok {
			continue
		}

		var succeeded bool
		var line string
		switch op.Kind {
		case txn.OpRead:
			succeeded, line = c.attemptRead(tx, op)
		case txn.OpWrite:
			succeeded = c.attemptWrite(tx, op)
		}

		if succeeded {
			c.txns.DropOp(op)
			if line != "" {
				output = append(output, line)
			}
		}
	}
	return output
}

func (c *Coordinator) attemptRead(tx *txn.Transaction, op *txn.Operation) (bool, string) {
	if tx.ReadOnly {
		for s := 1; s < len(c.sites); s++ {
			if !c.sites[s].Up {
				continue
			}
			if value, ok := c.sites[s].ReadSnapshot(tx.BeginTs, op.Var); ok {
				if c.metrics != nil {
					c.metrics.OperationsGranted.WithLabelValues("read").Inc()
				}
				return true, fmt.Sprintf("%s: %d", op.Var, value)
			}
		}
		if c.metrics != nil {
			c.metrics.OperationsBlocked.WithLabelValues("read").Inc()
		}
		return false, ""
	}

	for s := 1; s < len(c.sites); s++ {
		if !c.sites[s].Up {
			continue
		}
		status, value := c.sites[s].Read(op.Tx, op.Var)
		if status == site.Granted {
			if c.metrics != nil {
				c.metrics.OperationsGranted.WithLabelValues("read").Inc()
			}
			return true, fmt.Sprintf("%s: %d", op.Var, value)
		}
	}
	if c.metrics != nil {
		c.metrics.OperationsBlocked.WithLabelValues("read").Inc()
	}
	return false, ""
}

func (c *Coordinator) attemptWrite(tx *txn.Transaction, op *txn.Operation) bool {
	// Phase 1: check_write on every up site, even once one blocks — a
	// site that grants keeps the lock held by tx until abort/commit, per
	// spec.md §4.4's intentional partial-acquisition rule.
	anyUp := false
	blocked := false
	for s := 1; s < len(c.sites); s++ {
		if !c.sites[s].Up {
			continue
		}
		anyUp = true
		if c.sites[s].CheckWrite(op.Tx, op.Var) == site.Blocked {
			blocked = true
		}
	}
	if !anyUp || blocked {
		if c.metrics != nil {
			c.metrics.OperationsBlocked.WithLabelValues("write").Inc()
		}
		return false
	}

	// Phase 2: stage the tentative value on every up site holding it.
	for s := 1; s < len(c.sites); s++ {
		if c.sites[s].Up {
			c.sites[s].StageWrite(op.Tx, op.Var, op.Value)
		}
	}
	if c.metrics != nil {
		c.metrics.OperationsGranted.WithLabelValues("write").Inc()
	}
	return true
}
