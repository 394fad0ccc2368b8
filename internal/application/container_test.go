package application

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jbctechsolutions/clawsync/internal/infrastructure/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.NewDefaultConfig()
	cfg.State.Dir = t.TempDir()
	cfg.API.Enabled = false
	cfg.History.Enabled = false
	cfg.Watcher.Enabled = false
	return cfg
}

func TestNewContainer(t *testing.T) {
	t.Run("builds full graph from defaults", func(t *testing.T) {
		c, err := NewContainer(context.Background(), testConfig(t), false)
		if err != nil {
			t.Fatalf("failed to create container: %v", err)
		}
		defer c.Close()

		if c.Dispatcher() == nil {
			t.Error("expected dispatcher")
		}
		if c.Restorer() == nil {
			t.Error("expected restorer")
		}
		if c.Scheduler() == nil {
			t.Error("expected scheduler")
		}
		if c.RemoteStore() == nil {
			t.Error("expected remote store")
		}
		if c.History() != nil {
			t.Error("history must be nil when disabled")
		}
	})

	t.Run("nil config falls back to defaults", func(t *testing.T) {
		c, err := NewContainer(context.Background(), nil, false)
		if err != nil {
			t.Fatalf("failed to create container: %v", err)
		}
		defer c.Close()

		if c.Config().State.Dir != config.DefaultStateDir {
			t.Errorf("expected default state dir, got %q", c.Config().State.Dir)
		}
	})

	t.Run("history enabled opens the database", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.History.Enabled = true
		cfg.History.Path = filepath.Join(t.TempDir(), "clawsync.db")

		c, err := NewContainer(context.Background(), cfg, false)
		if err != nil {
			t.Fatalf("failed to create container: %v", err)
		}
		defer c.Close()

		if c.History() == nil {
			t.Fatal("expected history repository")
		}
	})

	t.Run("close is safe to call twice", func(t *testing.T) {
		c, err := NewContainer(context.Background(), testConfig(t), false)
		if err != nil {
			t.Fatalf("failed to create container: %v", err)
		}

		if err := c.Close(); err != nil {
			t.Errorf("first close failed: %v", err)
		}
		if err := c.Close(); err != nil {
			t.Errorf("second close failed: %v", err)
		}
	})
}
