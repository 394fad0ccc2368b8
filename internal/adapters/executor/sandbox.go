// Package executor provides the in-container command executor behind the
// RemoteExecutorPort.
package executor

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"sync"
	"time"

	"github.com/jbctechsolutions/clawsync/internal/application/ports"
)

// SandboxExecutor runs submitted command strings through a shell inside the
// agent container. It implements ports.RemoteExecutorPort.
type SandboxExecutor struct {
	shell   string
	workDir string
}

// NewSandboxExecutor creates an executor. Shell defaults to /bin/sh when
// empty; workDir, when set, becomes the working directory of every command.
func NewSandboxExecutor(shell, workDir string) *SandboxExecutor {
	if shell == "" {
		shell = "/bin/sh"
	}
	return &SandboxExecutor{shell: shell, workDir: workDir}
}

// Submit starts the command and returns a handle tracking it. The command
// keeps running until Wait is called or its timeout fires.
func (e *SandboxExecutor) Submit(ctx context.Context, command string) (ports.ExecHandle, error) {
	if command == "" {
		return nil, fmt.Errorf("command cannot be empty")
	}

	cmd := exec.CommandContext(ctx, e.shell, "-c", command)
	if e.workDir != "" {
		cmd.Dir = e.workDir
	}

	h := &handle{cmd: cmd, done: make(chan struct{})}
	cmd.Stdout = &h.stdout
	cmd.Stderr = &h.stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start command: %w", err)
	}

	go func() {
		h.waitErr = cmd.Wait()
		close(h.done)
	}()

	return h, nil
}

type handle struct {
	cmd     *exec.Cmd
	stdout  bytes.Buffer
	stderr  bytes.Buffer
	done    chan struct{}
	waitErr error

	killOnce sync.Once
}

// Wait blocks until the command completes, the timeout elapses, or the
// context is cancelled. On timeout the command is killed and
// ports.ErrWaitTimeout is returned.
func (h *handle) Wait(ctx context.Context, timeout time.Duration) error {
	var timeoutCh <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		timeoutCh = timer.C
	}

	select {
	case <-h.done:
		return nil
	case <-timeoutCh:
		h.kill()
		return ports.ErrWaitTimeout
	case <-ctx.Done():
		h.kill()
		return ctx.Err()
	}
}

// Output returns the captured streams. The buffers are owned by the running
// command until Wait returns, so callers must not read them before then.
func (h *handle) Output() ports.ExecOutput {
	return ports.ExecOutput{
		Stdout: h.stdout.String(),
		Stderr: h.stderr.String(),
	}
}

// ExitCode returns the command's exit status, or -1 when the command never
// completed or was killed.
func (h *handle) ExitCode() int {
	select {
	case <-h.done:
	default:
		return -1
	}
	if h.waitErr == nil {
		return 0
	}
	if exitErr, ok := h.waitErr.(*exec.ExitError); ok {
		return exitErr.ExitCode()
	}
	return -1
}

func (h *handle) kill() {
	h.killOnce.Do(func() {
		if h.cmd.Process != nil {
			_ = h.cmd.Process.Kill()
		}
	})
}
