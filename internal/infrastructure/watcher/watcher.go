// Package watcher monitors the local state tree and coalesces file changes
// into dirty notifications the backup scheduler uses to schedule an early
// tick.
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jbctechsolutions/clawsync/internal/domain/state"
	syncdomain "github.com/jbctechsolutions/clawsync/internal/domain/sync"
)

// Config holds configuration for the state watcher.
type Config struct {
	Debounce   time.Duration
	BufferSize int
}

// DefaultConfig returns sensible default configuration.
func DefaultConfig() Config {
	return Config{
		Debounce:   2 * time.Second,
		BufferSize: 100,
	}
}

// Watcher wraps fsnotify over the state tree directories. Change bursts are
// debounced into a single dirty notification; transient paths and the sync
// marker itself never count as changes (a push writing the marker must not
// schedule the next push).
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	config    Config
	dirty     chan struct{}
	errors    chan error

	// Debouncing state
	lastChange time.Time
	pendingMu  sync.Mutex
	hasPending bool

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	closed bool
	mu     sync.Mutex
}

// NewWatcher creates a new state watcher with the given configuration.
func NewWatcher(cfg Config) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 100
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = 2 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Watcher{
		fsWatcher: fsWatcher,
		config:    cfg,
		dirty:     make(chan struct{}, 1),
		errors:    make(chan error, cfg.BufferSize),
		ctx:       ctx,
		cancel:    cancel,
	}, nil
}

// Watch starts watching the state tree directories. Non-existent directories
// are skipped without error; subdirectories are added as they are created.
func (w *Watcher) Watch(tree state.Tree) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	dirs := []string{tree.ConfigDir(), tree.SkillsDir(), tree.WorkspaceDir()}
	for _, dir := range dirs {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			continue
		}
		if err := w.fsWatcher.Add(dir); err != nil {
			return err
		}
	}

	w.wg.Add(1)
	go w.processEvents()

	w.wg.Add(1)
	go w.debounceProcessor()

	return nil
}

// Dirty returns the channel carrying debounced change notifications. At most
// one notification is queued at a time.
func (w *Watcher) Dirty() <-chan struct{} {
	return w.dirty
}

// Errors returns the channel for receiving watcher errors.
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

// Close stops the watcher and releases resources.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	w.cancel()
	err := w.fsWatcher.Close()
	w.wg.Wait()

	close(w.dirty)
	close(w.errors)

	return err
}

// processEvents reads from fsnotify and queues a pending dirty flag.
func (w *Watcher) processEvents() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}

			if !isTrackedChange(event.Name) {
				continue
			}

			// New subdirectories join the watch so nested writes register.
			if event.Op&fsnotify.Create == fsnotify.Create {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = w.fsWatcher.Add(event.Name)
				}
			}

			w.pendingMu.Lock()
			w.hasPending = true
			w.lastChange = time.Now()
			w.pendingMu.Unlock()

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			select {
			case w.errors <- err:
			default:
				// Drop error if channel is full
			}
		}
	}
}

// debounceProcessor emits a dirty notification once changes settle.
func (w *Watcher) debounceProcessor() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.Debounce / 2)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return

		case <-ticker.C:
			w.emitIfStable()
		}
	}
}

func (w *Watcher) emitIfStable() {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()

	if !w.hasPending {
		return
	}
	if time.Since(w.lastChange) < w.config.Debounce {
		return
	}

	w.hasPending = false
	select {
	case w.dirty <- struct{}{}:
	default:
		// A notification is already queued
	}
}

// isTrackedChange reports whether a changed path should mark the tree dirty.
// Transient entries and the sync marker are ignored at any depth.
func isTrackedChange(path string) bool {
	base := filepath.Base(path)
	if base == syncdomain.MarkerKey {
		return false
	}

	for _, segment := range strings.Split(filepath.ToSlash(path), "/") {
		for _, pattern := range state.TransientPatterns {
			if segment == pattern {
				return false
			}
		}
	}
	return true
}
