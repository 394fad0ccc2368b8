package ports

import (
	"context"
	"errors"
	"time"
)

// ErrWaitTimeout is returned by ExecHandle.Wait when the bounded wait
// expires before the command completes.
var ErrWaitTimeout = errors.New("executor wait timed out")

// ExecOutput holds the captured streams of a completed command.
type ExecOutput struct {
	Stdout string
	Stderr string
}

// ExecHandle tracks one submitted command. Sessions may drop between calls;
// every blocking operation is bounded by a caller-supplied timeout.
type ExecHandle interface {
	// Wait blocks until the command completes or the timeout elapses.
	// A timeout returns ErrWaitTimeout and terminates the command.
	Wait(ctx context.Context, timeout time.Duration) error

	// Output returns the captured streams. Valid after Wait returns.
	Output() ExecOutput

	// ExitCode returns the command's exit status. Valid after Wait returns
	// without error; -1 when the command never completed.
	ExitCode() int
}

// RemoteExecutorPort submits command strings to the running container.
type RemoteExecutorPort interface {
	Submit(ctx context.Context, command string) (ExecHandle, error)
}
