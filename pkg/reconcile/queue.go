// Package reconcile runs the scheduled batch jobs: budget reconciliation
// with threshold alerting, and weekly spending summaries.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/finmate-app/finmate/pkg/alerts"
)

// DispatchFunc handles one queued alert decision.
type DispatchFunc func(ctx context.Context, alert alerts.Alert) error

// DispatchQueue is an in-memory work queue between the reconciliation job and
// the notification dispatcher. Reconciliation enqueues decisions; a worker
// pool consumes them. Each alert's dispatch runs sequentially inside a single
// worker, as notification ordering requires.
type DispatchQueue struct {
	items     chan alerts.Alert
	closeChan chan struct{}
	wg        sync.WaitGroup
	mu        sync.RWMutex
	closed    bool
	workers   int
	logger    *slog.Logger
}

// NewDispatchQueue creates a queue. bufferSize bounds how many decisions can
// be pending before Enqueue blocks; workers is the consumer pool size.
func NewDispatchQueue(bufferSize, workers int, logger *slog.Logger) *DispatchQueue {
	if bufferSize < 1 {
		bufferSize = 64
	}
	if workers < 1 {
		workers = 4
	}
	return &DispatchQueue{
		items:     make(chan alerts.Alert, bufferSize),
		closeChan: make(chan struct{}),
		workers:   workers,
		logger:    logger,
	}
}

// Start launches the worker pool. Handler errors are logged, not fatal;
// a failed dispatch is retried by the next reconciliation run.
func (q *DispatchQueue) Start(ctx context.Context, handler DispatchFunc) error {
	q.mu.RLock()
	if q.closed {
		q.mu.RUnlock()
		return fmt.Errorf("dispatch queue is closed")
	}
	q.mu.RUnlock()

	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, handler)
	}
	return nil
}

func (q *DispatchQueue) worker(ctx context.Context, handler DispatchFunc) {
	defer q.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case alert, ok := <-q.items:
			if !ok {
				return
			}
			if err := handler(ctx, alert); err != nil {
				q.logger.Error("dispatch alert",
					"budget", alert.BudgetID,
					"level", alert.Level,
					"error", err,
				)
			}
		}
	}
}

// Enqueue adds an alert decision to the queue.
func (q *DispatchQueue) Enqueue(ctx context.Context, alert alerts.Alert) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return fmt.Errorf("dispatch queue is closed")
	}

	select {
	case q.items <- alert:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-q.closeChan:
		return fmt.Errorf("dispatch queue is closed")
	}
}

// Stop closes the queue and waits for in-flight dispatches to drain, or for
// ctx to expire.
func (q *DispatchQueue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.closeChan)
	close(q.items)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("dispatch queue shutdown: %w", ctx.Err())
	}
}
