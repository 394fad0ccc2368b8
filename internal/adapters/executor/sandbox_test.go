package executor

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jbctechsolutions/clawsync/internal/application/ports"
)

func TestSandboxExecutor_CapturesOutput(t *testing.T) {
	e := NewSandboxExecutor("", "")
	ctx := context.Background()

	h, err := e.Submit(ctx, "echo out; echo err >&2")
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if err := h.Wait(ctx, 10*time.Second); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}

	out := h.Output()
	if strings.TrimSpace(out.Stdout) != "out" {
		t.Errorf("stdout = %q", out.Stdout)
	}
	if strings.TrimSpace(out.Stderr) != "err" {
		t.Errorf("stderr = %q", out.Stderr)
	}
	if h.ExitCode() != 0 {
		t.Errorf("exit code = %d", h.ExitCode())
	}
}

func TestSandboxExecutor_ExitCode(t *testing.T) {
	e := NewSandboxExecutor("", "")
	ctx := context.Background()

	h, err := e.Submit(ctx, "exit 3")
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if err := h.Wait(ctx, 10*time.Second); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if h.ExitCode() != 3 {
		t.Errorf("exit code = %d, want 3", h.ExitCode())
	}
}

func TestSandboxExecutor_WaitTimeout(t *testing.T) {
	e := NewSandboxExecutor("", "")
	ctx := context.Background()

	h, err := e.Submit(ctx, "sleep 30")
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	start := time.Now()
	err = h.Wait(ctx, 100*time.Millisecond)
	if !errors.Is(err, ports.ErrWaitTimeout) {
		t.Fatalf("expected ErrWaitTimeout, got %v", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Error("Wait did not return promptly after timeout")
	}
	if h.ExitCode() != -1 {
		t.Errorf("exit code after timeout = %d, want -1", h.ExitCode())
	}
}

func TestSandboxExecutor_EmptyCommand(t *testing.T) {
	e := NewSandboxExecutor("", "")
	if _, err := e.Submit(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty command")
	}
}

func TestSandboxExecutor_WorkDir(t *testing.T) {
	dir := t.TempDir()
	e := NewSandboxExecutor("", dir)
	ctx := context.Background()

	h, err := e.Submit(ctx, "pwd")
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if err := h.Wait(ctx, 10*time.Second); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if got := strings.TrimSpace(h.Output().Stdout); got != dir {
		t.Errorf("pwd = %q, want %q", got, dir)
	}
}
