// Package txsim is the public entry point for embedding the replicated
// transaction manager simulator: construct an Engine from a Config and
// feed it command lines one at a time, or hand it a whole script.
package txsim

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"txsim/internal/config"
	"txsim/internal/coordinator"
	"txsim/internal/obslog"
	"txsim/internal/obsmetrics"
)

// Engine wraps the coordinator with the logger and metrics it was built
// with, matching the teacher's pkg/database.Database façade shape.
type Engine struct {
	coord   *coordinator.Coordinator
	log     *obslog.Logger
	metrics *obsmetrics.Metrics
}

// New validates cfg and builds a ready-to-drive Engine.
func New(cfg *config.Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("txsim: %w", err)
	}

	log, err := obslog.New(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("txsim: %w", err)
	}

	metrics := obsmetrics.New()
	coord := coordinator.New(cfg, log, metrics)

	return &Engine{coord: coord, log: log, metrics: metrics}, nil
}

// Metrics returns the engine's metrics collectors; their Registry() can
// be exposed over HTTP by a host process.
func (e *Engine) Metrics() *obsmetrics.Metrics { return e.metrics }

// ProcessLine runs one input line through the coordinator's atomic tick.
// See coordinator.Coordinator.Process for the exact contract.
func (e *Engine) ProcessLine(line string) (output []string, done bool, err error) {
	return e.coord.Process(line)
}

// Run drives the engine from r, writing command output to w, until EOF,
// a line equal to "QUIT", or a line beginning "===". Invalid-command
// errors are written to w prefixed with "error: " and do not stop the
// run; only EOF/QUIT/=== end it.
func (e *Engine) Run(r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "QUIT" {
			return nil
		}

		output, done, err := e.ProcessLine(line)
		if err != nil {
			fmt.Fprintf(w, "error: %v\n", err)
			continue
		}
		if done {
			return nil
		}
		for _, l := range output {
			fmt.Fprintln(w, l)
		}
	}
	return scanner.Err()
}

// Sync flushes the engine's logger.
func (e *Engine) Sync() error {
	return e.log.Sync()
}
