package process

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jbctechsolutions/clawsync/internal/infrastructure/config"
	"github.com/jbctechsolutions/clawsync/internal/infrastructure/logging"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func quietLogger() *logging.Logger {
	return logging.New(logging.Config{Level: logging.LevelError, Format: logging.FormatText})
}

func TestSupervisorStart(t *testing.T) {
	t.Run("disabled config is a no-op", func(t *testing.T) {
		s := NewSupervisor(config.AgentConfig{Enabled: false}, quietLogger(), nil)

		if err := s.Start(context.Background()); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if s.Running() {
			t.Error("disabled supervisor must not report running")
		}
	})

	t.Run("rejects empty command", func(t *testing.T) {
		s := NewSupervisor(config.AgentConfig{Enabled: true}, quietLogger(), nil)

		if err := s.Start(context.Background()); err == nil {
			t.Fatal("expected error for empty command")
		}
	})

	t.Run("rejects double start", func(t *testing.T) {
		s := NewSupervisor(config.AgentConfig{
			Enabled: true,
			Command: "sleep 30",
		}, quietLogger(), nil)

		if err := s.Start(context.Background()); err != nil {
			t.Fatalf("first start failed: %v", err)
		}
		defer s.Stop()

		if err := s.Start(context.Background()); err == nil {
			t.Fatal("expected error on second start")
		}
	})
}

func TestSupervisorRun(t *testing.T) {
	t.Run("agent output reaches the writer", func(t *testing.T) {
		out := &syncBuffer{}
		s := NewSupervisor(config.AgentConfig{
			Enabled: true,
			Command: "echo agent-alive && sleep 30",
		}, quietLogger(), out)

		if err := s.Start(context.Background()); err != nil {
			t.Fatalf("start failed: %v", err)
		}
		defer s.Stop()

		deadline := time.Now().Add(5 * time.Second)
		for time.Now().Before(deadline) {
			if bytes.Contains([]byte(out.String()), []byte("agent-alive")) {
				return
			}
			time.Sleep(20 * time.Millisecond)
		}
		t.Fatal("timeout waiting for agent output")
	})

	t.Run("stop terminates the agent", func(t *testing.T) {
		s := NewSupervisor(config.AgentConfig{
			Enabled: true,
			Command: "sleep 30",
		}, quietLogger(), nil)

		if err := s.Start(context.Background()); err != nil {
			t.Fatalf("start failed: %v", err)
		}

		done := make(chan struct{})
		go func() {
			s.Stop()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("stop did not return")
		}

		if s.Running() {
			t.Error("stopped supervisor must not report running")
		}
	})

	t.Run("restarts a crashing agent", func(t *testing.T) {
		out := &syncBuffer{}
		s := NewSupervisor(config.AgentConfig{
			Enabled: true,
			Command: "echo run && exit 1",
		}, quietLogger(), out)

		if err := s.Start(context.Background()); err != nil {
			t.Fatalf("start failed: %v", err)
		}
		defer s.Stop()

		// First restart happens after the initial one second backoff.
		deadline := time.Now().Add(10 * time.Second)
		for time.Now().Before(deadline) {
			if bytes.Count([]byte(out.String()), []byte("run")) >= 2 {
				return
			}
			time.Sleep(50 * time.Millisecond)
		}
		t.Fatal("agent was not restarted")
	})
}

func TestSupervisorSendInput(t *testing.T) {
	t.Run("fails when agent not running", func(t *testing.T) {
		s := NewSupervisor(config.AgentConfig{Enabled: true, Command: "true"}, quietLogger(), nil)

		if err := s.SendInput("hello\n"); err == nil {
			t.Fatal("expected error when agent not running")
		}
	})
}
