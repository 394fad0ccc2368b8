// Package process runs the agent program under a pseudo-terminal and keeps
// it alive across crashes.
package process

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/creack/pty"

	"github.com/jbctechsolutions/clawsync/internal/infrastructure/config"
	"github.com/jbctechsolutions/clawsync/internal/infrastructure/logging"
)

const (
	initialBackoff = 1 * time.Second
	maxBackoff     = 60 * time.Second
)

// Supervisor starts the configured agent command under a PTY and restarts it
// with exponential backoff when it exits. The sync subsystem is independent
// of the agent: a crashing agent never interrupts pushes or restores.
type Supervisor struct {
	config config.AgentConfig
	logger *logging.Logger
	output io.Writer

	mu      sync.Mutex
	cmd     *exec.Cmd
	ptmx    *os.File
	running bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSupervisor creates a supervisor for the given agent configuration.
// Agent output is copied to the given writer; nil discards it.
func NewSupervisor(cfg config.AgentConfig, logger *logging.Logger, output io.Writer) *Supervisor {
	if logger == nil {
		logger = logging.Default()
	}
	if output == nil {
		output = io.Discard
	}
	return &Supervisor{
		config: cfg,
		logger: logger,
		output: output,
	}
}

// Start launches the supervision loop. It returns immediately; the agent
// runs in the background until Stop or context cancellation.
func (s *Supervisor) Start(ctx context.Context) error {
	if !s.config.Enabled {
		s.logger.Debug("agent supervision disabled")
		return nil
	}
	if s.config.Command == "" {
		return fmt.Errorf("agent command cannot be empty")
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("supervisor already running")
	}
	s.running = true
	s.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.supervise(runCtx)

	return nil
}

// Stop terminates the agent and waits for the supervision loop to exit.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.signal(syscall.SIGTERM)
	s.wg.Wait()
}

// Running reports whether the supervision loop is active.
func (s *Supervisor) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Supervisor) supervise(ctx context.Context) {
	defer s.wg.Done()

	backoff := initialBackoff

	for {
		if ctx.Err() != nil {
			return
		}

		started := time.Now()
		err := s.runOnce(ctx)
		uptime := time.Since(started)

		if ctx.Err() != nil {
			return
		}

		if err != nil {
			s.logger.Warn("agent exited",
				"error", err,
				"uptime", uptime.Round(time.Millisecond).String(),
			)
		} else {
			s.logger.Info("agent exited cleanly",
				"uptime", uptime.Round(time.Millisecond).String(),
			)
		}

		// An agent that stayed up a while earns a fresh backoff.
		if uptime > maxBackoff {
			backoff = initialBackoff
		}

		s.logger.Info("restarting agent", "backoff", backoff.String())
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

// runOnce starts the agent under a PTY and blocks until it exits.
func (s *Supervisor) runOnce(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, "sh", "-c", s.config.Command)
	if s.config.WorkDir != "" {
		cmd.Dir = s.config.WorkDir
	}

	ptmx, err := pty.Start(cmd)
	if err != nil {
		return fmt.Errorf("failed to start PTY: %w", err)
	}

	s.mu.Lock()
	s.cmd = cmd
	s.ptmx = ptmx
	s.mu.Unlock()

	// Drain the PTY so the agent never blocks on a full terminal buffer.
	// The copy ends when the process exits and the PTY closes.
	go func() {
		_, _ = io.Copy(s.output, ptmx)
	}()

	err = cmd.Wait()

	s.mu.Lock()
	s.cmd = nil
	s.ptmx = nil
	s.mu.Unlock()

	ptmx.Close()
	return err
}

// SendInput writes input to the agent's terminal.
func (s *Supervisor) SendInput(input string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ptmx == nil {
		return fmt.Errorf("agent not running")
	}
	_, err := s.ptmx.Write([]byte(input))
	return err
}

func (s *Supervisor) signal(sig syscall.Signal) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cmd != nil && s.cmd.Process != nil {
		_ = s.cmd.Process.Signal(sig)
	}
}
