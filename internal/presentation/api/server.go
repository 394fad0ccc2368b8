// Package api exposes a small diagnostics HTTP endpoint for the sync
// subsystem: health, sync status, attempt history, and a manual trigger.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	appsync "github.com/jbctechsolutions/clawsync/internal/application/sync"
	"github.com/jbctechsolutions/clawsync/internal/domain/state"
	"github.com/jbctechsolutions/clawsync/internal/infrastructure/config"
	"github.com/jbctechsolutions/clawsync/internal/infrastructure/logging"
	"github.com/jbctechsolutions/clawsync/internal/infrastructure/storage"
)

// SchedulerControl is the slice of the backup scheduler the API needs.
type SchedulerControl interface {
	Latest() *appsync.Snapshot
	TriggerNow()
}

// HistoryReader returns recent sync attempts, newest first.
type HistoryReader interface {
	Recent(ctx context.Context, limit int) ([]storage.Attempt, error)
}

// Server serves the diagnostics endpoint.
type Server struct {
	config    config.APIConfig
	scheduler SchedulerControl
	history   HistoryReader
	tree      state.Tree
	logger    *logging.Logger
	server    *http.Server
}

// NewServer creates a diagnostics server. history may be nil when attempt
// recording is disabled.
func NewServer(cfg config.APIConfig, scheduler SchedulerControl, history HistoryReader, tree state.Tree, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.Default()
	}
	return &Server{
		config:    cfg,
		scheduler: scheduler,
		history:   history,
		tree:      tree,
		logger:    logger,
	}
}

// Start begins listening. It returns immediately; serve errors are logged.
func (s *Server) Start() error {
	if !s.config.Enabled {
		s.logger.Debug("diagnostics endpoint disabled")
		return nil
	}

	s.server = &http.Server{
		Addr:         s.config.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	s.logger.Info("diagnostics endpoint listening", "addr", s.config.Addr)

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("diagnostics endpoint failed", "error", err)
		}
	}()

	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler returns the route table. Exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/sync/status", s.handleStatus)
	mux.HandleFunc("/sync/history", s.handleHistory)
	mux.HandleFunc("/sync/now", s.handleTrigger)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type statusResponse struct {
	HasConfig  bool              `json:"has_config"`
	LocalSync  string            `json:"local_sync,omitempty"`
	LastResult *appsync.Snapshot `json:"last_result,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	resp := statusResponse{
		HasConfig: s.tree.HasConfig(),
	}
	if marker := s.tree.ReadMarker(); marker != "" {
		resp.LocalSync = marker
	}
	if s.scheduler != nil {
		resp.LastResult = s.scheduler.Latest()
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHistory(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.history == nil {
		http.Error(w, "history disabled", http.StatusNotFound)
		return
	}

	limit := 0
	if raw := req.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	attempts, err := s.history.Recent(req.Context(), limit)
	if err != nil {
		s.logger.Error("failed to load sync history", "error", err)
		http.Error(w, "failed to load history", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, attempts)
}

func (s *Server) handleTrigger(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.scheduler == nil {
		http.Error(w, "scheduler not running", http.StatusConflict)
		return
	}

	s.scheduler.TriggerNow()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "scheduled"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
