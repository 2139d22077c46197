package coordinator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"txsim/internal/command"
	"txsim/internal/config"
	"txsim/internal/obslog"
)

func newTestCoordinator(t *testing.T) *Coordinator {
	t.Helper()
	cfg := config.Default()
	return New(cfg, obslog.Nop(), nil)
}

func process(t *testing.T, c *Coordinator, line string) []string {
	t.Helper()
	out, done, err := c.Process(line)
	require.NoError(t, err)
	require.False(t, done)
	return out
}

func TestBeginRejectsDuplicateID(t *testing.T) {
	c := newTestCoordinator(t)
	process(t, c, "begin(T1)")
	_, _, err := c.Process("begin(T1)")
	require.Error(t, err)
	assert.True(t, errors.Is(err, command.ErrInvalidCommand))
}

func TestRoundTripWriteThenDump(t *testing.T) {
	c := newTestCoordinator(t)
	process(t, c, "begin(T1)")
	process(t, c, "W(T1,x2,202)")
	process(t, c, "end(T1)")
	out := process(t, c, "dump()")
	joined := joinAll(out)
	assert.Contains(t, joined, "x2: 202")
}

func TestFailOutOfRangeIsInvalid(t *testing.T) {
	c := newTestCoordinator(t)
	_, _, err := c.Process("fail(11)")
	require.Error(t, err)
	assert.True(t, errors.Is(err, command.ErrInvalidCommand))
}

func TestFailWhenAlreadyDownIsInvalid(t *testing.T) {
	c := newTestCoordinator(t)
	process(t, c, "fail(2)")
	_, _, err := c.Process("fail(2)")
	require.Error(t, err)
}

func TestRecoverWhenUpIsInvalid(t *testing.T) {
	c := newTestCoordinator(t)
	_, _, err := c.Process("recover(2)")
	require.Error(t, err)
}

func TestEndUnknownTransactionIsInvalid(t *testing.T) {
	c := newTestCoordinator(t)
	_, _, err := c.Process("end(T1)")
	require.Error(t, err)
}

func TestQuitMarksDone(t *testing.T) {
	c := newTestCoordinator(t)
	_, done, err := c.Process("===")
	require.NoError(t, err)
	assert.True(t, done)
}

func joinAll(lines []string) string {
	out := ""
	for _, l := range lines {
		out += l + "\n"
	}
	return out
}
