package testutil

import (
	"context"
	"errors"
	"testing"

	"github.com/jbctechsolutions/clawsync/internal/application/ports"
)

func TestFakeStore_PutGet(t *testing.T) {
	store := NewFakeStore()
	ctx := context.Background()

	if err := store.Put(ctx, "a/b", []byte("payload")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	data, found, err := store.Get(ctx, "a/b")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !found {
		t.Fatal("expected key to be found")
	}
	if string(data) != "payload" {
		t.Errorf("got %q", data)
	}

	_, found, err = store.Get(ctx, "missing")
	if err != nil {
		t.Fatalf("Get for missing key should not error: %v", err)
	}
	if found {
		t.Error("missing key reported as found")
	}
}

func TestFakeStore_ListByPrefix(t *testing.T) {
	store := NewFakeStore()
	store.Seed("skills/a", []byte("x"))
	store.Seed("skills/b", []byte("y"))
	store.Seed("workspace/c", []byte("z"))

	infos, err := store.List(context.Background(), "skills/")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("expected 2 objects, got %d", len(infos))
	}
	if infos[0].Key != "skills/a" || infos[1].Key != "skills/b" {
		t.Errorf("unexpected keys: %v", infos)
	}
}

func TestFakeExecutor_PlaysBackScript(t *testing.T) {
	exec := NewFakeExecutor(
		FakeExecResult{Stdout: "first", ExitCode: 0},
		FakeExecResult{Stderr: "boom", ExitCode: 1},
	)
	ctx := context.Background()

	h, err := exec.Submit(ctx, "echo first")
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if err := h.Wait(ctx, 0); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if h.Output().Stdout != "first" || h.ExitCode() != 0 {
		t.Errorf("unexpected first result: %+v", h.Output())
	}

	h, _ = exec.Submit(ctx, "false")
	if err := h.Wait(ctx, 0); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if h.ExitCode() != 1 || h.Output().Stderr != "boom" {
		t.Errorf("unexpected second result: %+v", h.Output())
	}

	if len(exec.Submits) != 2 {
		t.Errorf("expected 2 recorded submits, got %d", len(exec.Submits))
	}
}

func TestFakeExecutor_TimesOut(t *testing.T) {
	exec := NewFakeExecutor(FakeExecResult{TimesOut: true})
	ctx := context.Background()

	h, err := exec.Submit(ctx, "sleep forever")
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if err := h.Wait(ctx, 0); !errors.Is(err, ports.ErrWaitTimeout) {
		t.Fatalf("expected ErrWaitTimeout, got %v", err)
	}
	if h.ExitCode() != -1 {
		t.Errorf("expected exit code -1 after timeout, got %d", h.ExitCode())
	}
}
