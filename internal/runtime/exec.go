package runtime

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/containerd/errdefs"
)

// Sequence counter for generating unique exec process identifiers.
var execSeq uint64

// Returns a unique exec process identifier.
func nextExecID() string {
	return fmt.Sprintf("exec-%d", atomic.AddUint64(&execSeq, 1))
}

// Output of a command execution inside a container.
type ExecResult struct {
	ExecID   string `json:"execId"`
	ExitCode int    `json:"exitCode"`
	Output   string `json:"output"`
}

// Runs a command inside a running container.
//
// Execution is simulated at the engine level: the command is recorded
// in the container's log under a fresh exec ID and a synthetic output
// line is produced. Fails with [ErrNotRunning] unless the container is
// running.
func (r *Runtime) Exec(id string, command []string) (*ExecResult, error) {
	if len(command) == 0 {
		return nil, fmt.Errorf("%w: empty command", errdefs.ErrInvalidArgument)
	}

	h, err := r.lookup(id)
	if err != nil {
		return nil, err
	}

	rec, err := h.Borrow()
	if err != nil {
		return nil, err
	}
	defer h.Release()

	if rec.Status != StatusRunning {
		return nil, fmt.Errorf("%w: %s is %s: %w", ErrNotRunning, shortID(id), rec.Status, errdefs.ErrFailedPrecondition)
	}

	execID := nextExecID()
	line := strings.Join(command, " ")

	rec.appendLog("engine", fmt.Sprintf("%s: %s", execID, line))
	rec.appendLog("stdout", line)

	return &ExecResult{
		ExecID:   execID,
		ExitCode: 0,
		Output:   line,
	}, nil
}
