// Package testutil provides test fixtures and fakes for the application ports.
package testutil

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jbctechsolutions/clawsync/internal/application/ports"
)

// FakeStore is an in-memory RemoteStorePort. Safe for concurrent use.
type FakeStore struct {
	mu         sync.Mutex
	objects    map[string][]byte
	uploaded   map[string]time.Time
	Configured bool

	// PutErr and GetErr, when set, are returned by every Put/Get call.
	PutErr error
	GetErr error

	// PutCalls records the keys written, in order.
	PutCalls []string
}

// NewFakeStore creates a configured, empty in-memory store.
func NewFakeStore() *FakeStore {
	return &FakeStore{
		objects:    make(map[string][]byte),
		uploaded:   make(map[string]time.Time),
		Configured: true,
	}
}

// Seed places an object in the store without recording a Put call.
func (f *FakeStore) Seed(key string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = data
	f.uploaded[key] = time.Now().UTC()
}

func (f *FakeStore) Put(_ context.Context, key string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PutErr != nil {
		return f.PutErr
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	f.objects[key] = cp
	f.uploaded[key] = time.Now().UTC()
	f.PutCalls = append(f.PutCalls, key)
	return nil
}

func (f *FakeStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.GetErr != nil {
		return nil, false, f.GetErr
	}
	data, ok := f.objects[key]
	if !ok {
		return nil, false, nil
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, true, nil
}

func (f *FakeStore) List(_ context.Context, prefix string) ([]ports.ObjectInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var infos []ports.ObjectInfo
	for key, data := range f.objects {
		if strings.HasPrefix(key, prefix) {
			infos = append(infos, ports.ObjectInfo{
				Key:      key,
				Size:     int64(len(data)),
				Uploaded: f.uploaded[key],
			})
		}
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos, nil
}

func (f *FakeStore) Exists(_ context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[key]
	return ok, nil
}

func (f *FakeStore) IsConfigured() bool {
	return f.Configured
}

// Object returns the stored bytes for a key, or nil when absent.
func (f *FakeStore) Object(key string) []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.objects[key]
}

// FakeExecResult scripts the outcome of one submitted command.
type FakeExecResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
	// TimesOut makes Wait return ports.ErrWaitTimeout.
	TimesOut bool
}

// FakeExecutor is a scripted RemoteExecutorPort. Each Submit consumes the
// next scripted result; running past the script fails the submission.
type FakeExecutor struct {
	mu      sync.Mutex
	script  []FakeExecResult
	next    int
	Submits []string

	// SubmitErr, when set, is returned by every Submit call.
	SubmitErr error
}

// NewFakeExecutor creates an executor that plays back the given results.
func NewFakeExecutor(script ...FakeExecResult) *FakeExecutor {
	return &FakeExecutor{script: script}
}

func (f *FakeExecutor) Submit(_ context.Context, command string) (ports.ExecHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Submits = append(f.Submits, command)
	if f.SubmitErr != nil {
		return nil, f.SubmitErr
	}
	if f.next >= len(f.script) {
		return &fakeHandle{result: FakeExecResult{ExitCode: -1, TimesOut: true}}, nil
	}
	res := f.script[f.next]
	f.next++
	return &fakeHandle{result: res}, nil
}

type fakeHandle struct {
	result FakeExecResult
}

func (h *fakeHandle) Wait(ctx context.Context, _ time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if h.result.TimesOut {
		return ports.ErrWaitTimeout
	}
	return nil
}

func (h *fakeHandle) Output() ports.ExecOutput {
	return ports.ExecOutput{Stdout: h.result.Stdout, Stderr: h.result.Stderr}
}

func (h *fakeHandle) ExitCode() int {
	if h.result.TimesOut {
		return -1
	}
	return h.result.ExitCode
}
