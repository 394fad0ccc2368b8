package sync

import (
	"context"
	"os"
	"sync/atomic"
	"testing"
	"time"

	syncdomain "github.com/jbctechsolutions/clawsync/internal/domain/sync"

	"github.com/jbctechsolutions/clawsync/internal/application/ports"
	"github.com/jbctechsolutions/clawsync/internal/infrastructure/storage"
	"github.com/jbctechsolutions/clawsync/internal/infrastructure/testutil"
)

type countingChannel struct {
	name  string
	calls atomic.Int32
	fn    func() syncdomain.Result
}

func (c *countingChannel) Name() string { return c.name }
func (c *countingChannel) Push(context.Context) syncdomain.Result {
	c.calls.Add(1)
	if c.fn != nil {
		return c.fn()
	}
	return syncdomain.Succeeded(time.Now().UTC())
}

type memoryHistory struct {
	attempts []storage.Attempt
}

func (m *memoryHistory) SaveAttempt(_ context.Context, a storage.Attempt) error {
	m.attempts = append(m.attempts, a)
	return nil
}

func writeConfig(t *testing.T, tree stateTree) {
	t.Helper()
	if err := os.WriteFile(tree.ConfigFile(), []byte(`{}`), 0o644); err != nil {
		t.Fatal(err)
	}
}

// stateTree narrows the helper signature to what the test needs.
type stateTree interface {
	ConfigFile() string
}

func newSchedulerUnderTest(t *testing.T, ch ports.SyncChannelPort, history HistoryStore, cfg SchedulerConfig) (*Scheduler, func()) {
	t.Helper()
	tree := newRestoreTree(t)
	writeConfig(t, tree)

	d := NewDispatcher(testutil.NewFakeStore(),
		&listProvider{channels: []ports.SyncChannelPort{ch}}, quietLogger(), nil)
	s := NewScheduler(d, tree, history, quietLogger(), cfg)

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	return s, s.Stop
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestScheduler_TicksAfterInitialDelay(t *testing.T) {
	ch := &countingChannel{name: "archive"}
	history := &memoryHistory{}
	s, stop := newSchedulerUnderTest(t, ch, history, SchedulerConfig{
		Interval:     20 * time.Millisecond,
		InitialDelay: 50 * time.Millisecond,
	})
	defer stop()

	time.Sleep(25 * time.Millisecond)
	if ch.calls.Load() != 0 {
		t.Error("tick fired before the initial delay elapsed")
	}

	waitFor(t, 2*time.Second, func() bool { return ch.calls.Load() >= 2 })

	snap := s.Latest()
	if snap == nil || !snap.Result.Success {
		t.Errorf("latest snapshot = %+v", snap)
	}
	if snap.Channel != "archive" {
		t.Errorf("snapshot channel = %q", snap.Channel)
	}
}

func TestScheduler_SkipsWithoutLocalConfig(t *testing.T) {
	tree := newRestoreTree(t) // no config file written
	ch := &countingChannel{name: "archive"}
	d := NewDispatcher(testutil.NewFakeStore(),
		&listProvider{channels: []ports.SyncChannelPort{ch}}, quietLogger(), nil)
	s := NewScheduler(d, tree, nil, quietLogger(), SchedulerConfig{
		Interval:     10 * time.Millisecond,
		InitialDelay: 0,
	})
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer s.Stop()

	time.Sleep(100 * time.Millisecond)
	if ch.calls.Load() != 0 {
		t.Error("scheduler must skip ticks while local config is absent")
	}
	if s.Latest() != nil {
		t.Error("skipped ticks must not produce a snapshot")
	}
}

func TestScheduler_TriggerNow(t *testing.T) {
	ch := &countingChannel{name: "archive"}
	s, stop := newSchedulerUnderTest(t, ch, nil, SchedulerConfig{
		Interval:     time.Hour,
		InitialDelay: 0,
	})
	defer stop()

	s.TriggerNow()
	waitFor(t, 2*time.Second, func() bool { return ch.calls.Load() >= 1 })
}

func TestScheduler_DirtyNotificationTriggersEarlyTick(t *testing.T) {
	dirty := make(chan struct{}, 1)
	ch := &countingChannel{name: "archive"}
	s, stop := newSchedulerUnderTest(t, ch, nil, SchedulerConfig{
		Interval:     time.Hour,
		InitialDelay: 0,
		Dirty:        dirty,
	})
	defer stop()

	dirty <- struct{}{}
	waitFor(t, 2*time.Second, func() bool { return ch.calls.Load() >= 1 })
	_ = s
}

func TestScheduler_SurvivesPanickingChannel(t *testing.T) {
	ch := &countingChannel{name: "archive", fn: func() syncdomain.Result {
		panic("channel exploded")
	}}
	s, stop := newSchedulerUnderTest(t, ch, nil, SchedulerConfig{
		Interval:     time.Hour,
		InitialDelay: 0,
	})
	defer stop()

	s.TriggerNow()
	waitFor(t, 2*time.Second, func() bool { return ch.calls.Load() >= 1 })

	// The loop is still alive after the panic.
	s.TriggerNow()
	waitFor(t, 2*time.Second, func() bool { return ch.calls.Load() >= 2 })
}

func TestScheduler_RecordsHistory(t *testing.T) {
	ch := &countingChannel{name: "archive", fn: func() syncdomain.Result {
		return syncdomain.Failed(syncdomain.KindTransport, "archive failed", "executor gone")
	}}
	history := &memoryHistory{}
	s, stop := newSchedulerUnderTest(t, ch, history, SchedulerConfig{
		Interval:     time.Hour,
		InitialDelay: 0,
	})
	defer stop()

	s.TriggerNow()
	waitFor(t, 2*time.Second, func() bool { return ch.calls.Load() >= 1 })
	stop()

	if len(history.attempts) == 0 {
		t.Fatal("no attempt recorded")
	}
	a := history.attempts[0]
	if a.ID == "" || a.Channel != "archive" {
		t.Errorf("attempt = %+v", a)
	}
	if a.Result.Success {
		t.Error("expected recorded failure")
	}
}

func TestScheduler_StartTwiceFails(t *testing.T) {
	ch := &countingChannel{name: "archive"}
	s, stop := newSchedulerUnderTest(t, ch, nil, SchedulerConfig{
		Interval:     time.Hour,
		InitialDelay: time.Hour,
	})
	defer stop()

	if err := s.Start(context.Background()); err == nil {
		t.Error("expected error starting a running scheduler")
	}
}
