package sync

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jbctechsolutions/clawsync/internal/domain/state"
	syncdomain "github.com/jbctechsolutions/clawsync/internal/domain/sync"

	"github.com/jbctechsolutions/clawsync/internal/infrastructure/logging"
	"github.com/jbctechsolutions/clawsync/internal/infrastructure/storage"
)

// HistoryStore records completed sync attempts. The SQLite history
// repository satisfies it; a nil store disables recording.
type HistoryStore interface {
	SaveAttempt(ctx context.Context, a storage.Attempt) error
}

// SchedulerConfig holds configuration for the backup scheduler.
type SchedulerConfig struct {
	// Interval is the tick period.
	Interval time.Duration
	// InitialDelay defers the first tick past the restore window. Ordering
	// against the restore coordinator relies on this delay alone, there is
	// no completion signal.
	InitialDelay time.Duration
	// Dirty receives change notifications from the state watcher and
	// schedules an early tick. Optional.
	Dirty <-chan struct{}
}

// Scheduler drives the periodic push. One repeating timer task per container
// instance; it shares the state tree read-only with the agent process.
type Scheduler struct {
	dispatcher *Dispatcher
	tree       state.Tree
	history    HistoryStore
	logger     *logging.Logger
	config     SchedulerConfig

	mu        sync.Mutex
	running   bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	manual    chan struct{}
	lastState *Snapshot
}

// Snapshot is the latest attempt outcome kept for diagnostics.
type Snapshot struct {
	Result     syncdomain.Result `json:"result"`
	Channel    string            `json:"channel,omitempty"`
	At         time.Time         `json:"at"`
	DurationMS int64             `json:"durationMs"`
}

// NewScheduler creates the backup scheduler.
func NewScheduler(dispatcher *Dispatcher, tree state.Tree, history HistoryStore, logger *logging.Logger, cfg SchedulerConfig) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Minute
	}
	if cfg.InitialDelay < 0 {
		cfg.InitialDelay = 0
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Scheduler{
		dispatcher: dispatcher,
		tree:       tree,
		history:    history,
		logger:     logger,
		config:     cfg,
		manual:     make(chan struct{}, 1),
	}
}

// Start launches the scheduler loop. It returns immediately.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler already running")
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true

	s.wg.Add(1)
	go s.loop(ctx)
	return nil
}

// Stop halts the scheduler and waits for an in-flight tick to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel := s.cancel
	s.mu.Unlock()

	cancel()
	s.wg.Wait()
}

// TriggerNow schedules an immediate tick. At most one trigger is queued at a
// time; a trigger arriving during the initial delay is held and fires as soon
// as the delay elapses.
func (s *Scheduler) TriggerNow() {
	select {
	case s.manual <- struct{}{}:
	default:
	}
}

// Latest returns the most recent attempt outcome, or nil before the first
// tick completes.
func (s *Scheduler) Latest() *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastState
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	// Restore runs unsynchronized before us; the delay is the only fence.
	select {
	case <-time.After(s.config.InitialDelay):
	case <-ctx.Done():
		return
	}

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		case <-s.manual:
			s.tick(ctx)
		case <-s.dirty():
			s.tick(ctx)
			ticker.Reset(s.config.Interval)
		}
	}
}

func (s *Scheduler) dirty() <-chan struct{} {
	if s.config.Dirty != nil {
		return s.config.Dirty
	}
	// nil channel: never selected
	return nil
}

// tick runs one dispatch. A panicking channel must not kill the scheduler,
// so every tick recovers and records the panic as a failed attempt.
func (s *Scheduler) tick(ctx context.Context) {
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.ErrorContext(ctx, "sync tick panicked",
				"panic", fmt.Sprint(rec),
				"stack", string(debug.Stack()),
			)
		}
	}()

	// An empty tree never overwrites good remote data.
	if !s.tree.HasConfig() {
		s.logger.DebugContext(ctx, "sync tick skipped", "reason", "local config absent")
		return
	}

	start := time.Now()
	result, channel := s.dispatcher.Dispatch(ctx)
	elapsed := time.Since(start)

	snap := &Snapshot{
		Result:     result,
		Channel:    channel,
		At:         start.UTC(),
		DurationMS: elapsed.Milliseconds(),
	}

	s.mu.Lock()
	s.lastState = snap
	s.mu.Unlock()

	s.record(ctx, result, channel, start, elapsed)
}

func (s *Scheduler) record(ctx context.Context, result syncdomain.Result, channel string, start time.Time, elapsed time.Duration) {
	if s.history == nil {
		return
	}
	if channel == "" {
		channel = "none"
	}

	err := s.history.SaveAttempt(ctx, storage.Attempt{
		ID:        uuid.NewString(),
		Channel:   channel,
		StartedAt: start.UTC(),
		Duration:  elapsed,
		Result:    result,
	})
	if err != nil {
		s.logger.WarnContext(ctx, "failed to record sync attempt", "error", err)
	}
}
