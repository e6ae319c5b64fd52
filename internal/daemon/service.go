// Package daemon runs budget reconciliation on a schedule and exposes a
// small status API.
package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/finmate-app/finmate/pkg/reconcile"
)

// Config controls the daemon runtime behavior.
type Config struct {
	Addr     string
	Interval time.Duration
}

// Status is served at /v1/status.
type Status struct {
	StartedAt        time.Time `json:"started_at"`
	LastRunAt        time.Time `json:"last_run_at"`
	IntervalSec      int       `json:"interval_sec"`
	RunCount         int64     `json:"run_count"`
	LastAlertsQueued int       `json:"last_alerts_queued"`
	LastError        string    `json:"last_error,omitempty"`
}

// Service triggers the reconciliation job on a fixed interval.
type Service struct {
	cfg        Config
	reconciler *reconcile.Reconciler
	logger     *slog.Logger
	mux        *http.ServeMux

	mu        sync.RWMutex
	startedAt time.Time
	lastRunAt time.Time
	runCount  int64
	lastQueue int
	lastError string
}

// New returns a daemon service with the provided config.
func New(cfg Config, reconciler *reconcile.Reconciler, logger *slog.Logger) *Service {
	if cfg.Interval < time.Minute {
		cfg.Interval = 24 * time.Hour
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8687"
	}
	s := &Service{
		cfg:        cfg,
		reconciler: reconciler,
		logger:     logger,
		mux:        http.NewServeMux(),
		startedAt:  time.Now(),
	}
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.HandleFunc("GET /v1/status", s.handleStatus)
	return s
}

// Handler returns the HTTP handler for the status endpoints.
func (s *Service) Handler() http.Handler {
	return s.mux
}

// Run starts the HTTP status endpoints and the schedule loop until ctx is
// canceled. The first reconciliation runs immediately.
func (s *Service) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	s.logger.Info("daemon started", "addr", s.cfg.Addr, "interval", s.cfg.Interval.String())
	s.runOnce(ctx)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		case <-ticker.C:
			s.runOnce(ctx)
		case err := <-errCh:
			return fmt.Errorf("daemon http server: %w", err)
		}
	}
}

func (s *Service) runOnce(ctx context.Context) {
	result, err := s.reconciler.Run(ctx)

	s.mu.Lock()
	s.lastRunAt = time.Now()
	s.runCount++
	if err != nil {
		s.lastError = err.Error()
	} else {
		s.lastError = ""
		s.lastQueue = result.AlertsQueued
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("scheduled reconciliation", "error", err)
	}
}

func (s *Service) snapshotStatus() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Status{
		StartedAt:        s.startedAt,
		LastRunAt:        s.lastRunAt,
		IntervalSec:      int(s.cfg.Interval.Seconds()),
		RunCount:         s.runCount,
		LastAlertsQueued: s.lastQueue,
		LastError:        s.lastError,
	}
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Service) handleStatus(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.snapshotStatus())
}
