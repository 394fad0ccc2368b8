package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	appsync "github.com/jbctechsolutions/clawsync/internal/application/sync"
	"github.com/jbctechsolutions/clawsync/internal/domain/state"
	syncdomain "github.com/jbctechsolutions/clawsync/internal/domain/sync"
	"github.com/jbctechsolutions/clawsync/internal/infrastructure/config"
	"github.com/jbctechsolutions/clawsync/internal/infrastructure/logging"
	"github.com/jbctechsolutions/clawsync/internal/infrastructure/storage"
)

type fakeScheduler struct {
	snapshot  *appsync.Snapshot
	triggered int
}

func (f *fakeScheduler) Latest() *appsync.Snapshot { return f.snapshot }
func (f *fakeScheduler) TriggerNow()               { f.triggered++ }

type fakeHistory struct {
	attempts []storage.Attempt
	err      error
	gotLimit int
}

func (f *fakeHistory) Recent(_ context.Context, limit int) ([]storage.Attempt, error) {
	f.gotLimit = limit
	return f.attempts, f.err
}

func newTestServer(t *testing.T, scheduler SchedulerControl, history HistoryReader) (*Server, state.Tree) {
	t.Helper()
	tree := state.NewTree(t.TempDir())
	if err := tree.EnsureDirs(); err != nil {
		t.Fatalf("failed to create tree: %v", err)
	}
	logger := logging.New(logging.Config{Level: logging.LevelError, Format: logging.FormatText})
	return NewServer(config.APIConfig{Enabled: true, Addr: ":0"}, scheduler, history, tree, logger), tree
}

func doRequest(t *testing.T, s *Server, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHandleHealth(t *testing.T) {
	s, _ := newTestServer(t, &fakeScheduler{}, nil)

	rec := doRequest(t, s, http.MethodGet, "/healthz")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %q", body["status"])
	}
}

func TestHandleStatus(t *testing.T) {
	t.Run("reports config, marker and last result", func(t *testing.T) {
		at := time.Date(2026, 1, 27, 12, 0, 0, 0, time.UTC)
		sched := &fakeScheduler{snapshot: &appsync.Snapshot{
			Result:  syncdomain.Succeeded(at),
			Channel: "archive",
			At:      at,
		}}
		s, tree := newTestServer(t, sched, nil)

		if err := os.WriteFile(filepath.Join(tree.ConfigDir(), "clawdbot.json"), []byte("{}"), 0644); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}
		if err := tree.WriteMarker("2026-01-27T12:00:00Z\n"); err != nil {
			t.Fatalf("failed to write marker: %v", err)
		}

		rec := doRequest(t, s, http.MethodGet, "/sync/status")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}

		var body statusResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if !body.HasConfig {
			t.Error("expected has_config true")
		}
		if body.LocalSync != "2026-01-27T12:00:00Z\n" {
			t.Errorf("unexpected local sync marker %q", body.LocalSync)
		}
		if body.LastResult == nil || body.LastResult.Channel != "archive" {
			t.Errorf("unexpected last result %+v", body.LastResult)
		}
	})

	t.Run("empty tree yields empty status", func(t *testing.T) {
		s, _ := newTestServer(t, &fakeScheduler{}, nil)

		rec := doRequest(t, s, http.MethodGet, "/sync/status")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}

		var body statusResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if body.HasConfig || body.LocalSync != "" || body.LastResult != nil {
			t.Errorf("expected empty status, got %+v", body)
		}
	})
}

func TestHandleHistory(t *testing.T) {
	t.Run("returns recent attempts", func(t *testing.T) {
		history := &fakeHistory{attempts: []storage.Attempt{
			{ID: "a", Channel: "archive", Result: syncdomain.Succeeded(time.Now())},
		}}
		s, _ := newTestServer(t, &fakeScheduler{}, history)

		rec := doRequest(t, s, http.MethodGet, "/sync/history?limit=5")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if history.gotLimit != 5 {
			t.Errorf("expected limit 5, got %d", history.gotLimit)
		}

		var attempts []storage.Attempt
		if err := json.Unmarshal(rec.Body.Bytes(), &attempts); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if len(attempts) != 1 || attempts[0].ID != "a" {
			t.Errorf("unexpected attempts %+v", attempts)
		}
	})

	t.Run("rejects invalid limit", func(t *testing.T) {
		s, _ := newTestServer(t, &fakeScheduler{}, &fakeHistory{})

		rec := doRequest(t, s, http.MethodGet, "/sync/history?limit=zero")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("404 when history disabled", func(t *testing.T) {
		s, _ := newTestServer(t, &fakeScheduler{}, nil)

		rec := doRequest(t, s, http.MethodGet, "/sync/history")
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})
}

func TestHandleTrigger(t *testing.T) {
	t.Run("schedules an early tick", func(t *testing.T) {
		sched := &fakeScheduler{}
		s, _ := newTestServer(t, sched, nil)

		rec := doRequest(t, s, http.MethodPost, "/sync/now")
		if rec.Code != http.StatusAccepted {
			t.Fatalf("expected 202, got %d", rec.Code)
		}
		if sched.triggered != 1 {
			t.Errorf("expected one trigger, got %d", sched.triggered)
		}
	})

	t.Run("rejects GET", func(t *testing.T) {
		s, _ := newTestServer(t, &fakeScheduler{}, nil)

		rec := doRequest(t, s, http.MethodGet, "/sync/now")
		if rec.Code != http.StatusMethodNotAllowed {
			t.Fatalf("expected 405, got %d", rec.Code)
		}
	})
}

func TestServerLifecycle(t *testing.T) {
	t.Run("disabled server never listens", func(t *testing.T) {
		tree := state.NewTree(t.TempDir())
		logger := logging.New(logging.Config{Level: logging.LevelError, Format: logging.FormatText})
		s := NewServer(config.APIConfig{Enabled: false}, &fakeScheduler{}, nil, tree, logger)

		if err := s.Start(); err != nil {
			t.Fatalf("start failed: %v", err)
		}
		if err := s.Stop(context.Background()); err != nil {
			t.Fatalf("stop failed: %v", err)
		}
	})
}
