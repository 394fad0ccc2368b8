package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jbctechsolutions/clawsync/internal/domain/state"
)

func newWatchedTree(t *testing.T, cfg Config) (state.Tree, *Watcher) {
	t.Helper()

	tree := state.NewTree(t.TempDir())
	if err := tree.EnsureDirs(); err != nil {
		t.Fatalf("failed to create tree: %v", err)
	}

	w, err := NewWatcher(cfg)
	if err != nil {
		t.Fatalf("failed to create watcher: %v", err)
	}
	t.Cleanup(func() { _ = w.Close() })

	if err := w.Watch(tree); err != nil {
		t.Fatalf("failed to watch tree: %v", err)
	}
	return tree, w
}

func awaitDirty(t *testing.T, w *Watcher, timeout time.Duration) bool {
	t.Helper()
	select {
	case <-w.Dirty():
		return true
	case err := <-w.Errors():
		t.Fatalf("unexpected watcher error: %v", err)
		return false
	case <-time.After(timeout):
		return false
	}
}

func TestNewWatcher(t *testing.T) {
	t.Run("creates watcher with default config", func(t *testing.T) {
		w, err := NewWatcher(DefaultConfig())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		defer w.Close()

		if w == nil {
			t.Fatal("expected watcher to be non-nil")
		}
	})

	t.Run("zero values fall back to defaults", func(t *testing.T) {
		w, err := NewWatcher(Config{})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		defer w.Close()

		if w.config.Debounce != 2*time.Second {
			t.Errorf("expected Debounce 2s, got %v", w.config.Debounce)
		}
		if w.config.BufferSize != 100 {
			t.Errorf("expected BufferSize 100, got %d", w.config.BufferSize)
		}
	})
}

func TestWatcherWatch(t *testing.T) {
	t.Run("file write produces a dirty notification", func(t *testing.T) {
		tree, w := newWatchedTree(t, Config{
			Debounce:   50 * time.Millisecond,
			BufferSize: 10,
		})

		path := filepath.Join(tree.ConfigDir(), "clawdbot.json")
		if err := os.WriteFile(path, []byte("{}"), 0644); err != nil {
			t.Fatalf("failed to create file: %v", err)
		}

		if !awaitDirty(t, w, 3*time.Second) {
			t.Fatal("timeout waiting for dirty notification")
		}
	})

	t.Run("burst of writes coalesces into one notification", func(t *testing.T) {
		tree, w := newWatchedTree(t, Config{
			Debounce:   100 * time.Millisecond,
			BufferSize: 10,
		})

		for i := 0; i < 5; i++ {
			path := filepath.Join(tree.WorkspaceDir(), "MEMORY.md")
			if err := os.WriteFile(path, []byte("note"), 0644); err != nil {
				t.Fatalf("failed to write file: %v", err)
			}
			time.Sleep(10 * time.Millisecond)
		}

		if !awaitDirty(t, w, 3*time.Second) {
			t.Fatal("timeout waiting for dirty notification")
		}

		// After draining, the burst must not have queued another.
		select {
		case <-w.Dirty():
			t.Error("expected a single coalesced notification")
		case <-time.After(300 * time.Millisecond):
		}
	})

	t.Run("marker write does not mark the tree dirty", func(t *testing.T) {
		tree, w := newWatchedTree(t, Config{
			Debounce:   50 * time.Millisecond,
			BufferSize: 10,
		})

		if err := tree.WriteMarker("2026-01-27T12:00:00Z\n"); err != nil {
			t.Fatalf("failed to write marker: %v", err)
		}

		if awaitDirty(t, w, 400*time.Millisecond) {
			t.Error("marker write must not produce a notification")
		}
	})

	t.Run("missing directories are skipped without error", func(t *testing.T) {
		tree := state.NewTree(t.TempDir())

		w, err := NewWatcher(DefaultConfig())
		if err != nil {
			t.Fatalf("failed to create watcher: %v", err)
		}
		defer w.Close()

		if err := w.Watch(tree); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})
}

func TestWatcherClose(t *testing.T) {
	t.Run("close is idempotent", func(t *testing.T) {
		w, err := NewWatcher(DefaultConfig())
		if err != nil {
			t.Fatalf("failed to create watcher: %v", err)
		}

		if err := w.Close(); err != nil {
			t.Errorf("first close failed: %v", err)
		}
		if err := w.Close(); err != nil {
			t.Errorf("second close failed: %v", err)
		}
	})
}

func TestIsTrackedChange(t *testing.T) {
	tests := []struct {
		name string
		path string
		want bool
	}{
		{"regular file", "/root/.clawsync/workspace/MEMORY.md", true},
		{"config file", "/root/.clawsync/config/clawdbot.json", true},
		{"sync marker", "/root/.clawsync/.last-sync", false},
		{"node_modules entry", "/root/.clawsync/workspace/app/node_modules/left-pad", false},
		{"git metadata", "/root/.clawsync/workspace/repo/.git/HEAD", false},
		{"python cache", "/root/.clawsync/workspace/__pycache__/m.pyc", false},
		{"venv", "/root/.clawsync/workspace/.venv/bin/python", false},
		{"generic cache", "/root/.clawsync/workspace/.cache/pip", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isTrackedChange(tt.path); got != tt.want {
				t.Errorf("isTrackedChange(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}
