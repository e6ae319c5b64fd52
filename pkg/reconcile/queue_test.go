package reconcile_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finmate-app/finmate/pkg/alerts"
	"github.com/finmate-app/finmate/pkg/reconcile"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDispatchQueue_ProcessesAll(t *testing.T) {
	queue := reconcile.NewDispatchQueue(8, 2, testLogger())

	var mu sync.Mutex
	seen := make(map[string]bool)
	handler := func(_ context.Context, alert alerts.Alert) error {
		mu.Lock()
		seen[alert.BudgetID] = true
		mu.Unlock()
		return nil
	}
	require.NoError(t, queue.Start(context.Background(), handler))

	for _, id := range []string{"b1", "b2", "b3", "b4", "b5"} {
		require.NoError(t, queue.Enqueue(context.Background(), alerts.Alert{BudgetID: id}))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, queue.Stop(ctx))

	assert.Len(t, seen, 5)
}

func TestDispatchQueue_HandlerErrorsAreNotFatal(t *testing.T) {
	queue := reconcile.NewDispatchQueue(8, 1, testLogger())

	var mu sync.Mutex
	var calls int
	handler := func(_ context.Context, _ alerts.Alert) error {
		mu.Lock()
		calls++
		mu.Unlock()
		return errors.New("dispatch failed")
	}
	require.NoError(t, queue.Start(context.Background(), handler))

	require.NoError(t, queue.Enqueue(context.Background(), alerts.Alert{BudgetID: "b1"}))
	require.NoError(t, queue.Enqueue(context.Background(), alerts.Alert{BudgetID: "b2"}))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, queue.Stop(ctx))

	assert.Equal(t, 2, calls)
}

func TestDispatchQueue_EnqueueAfterStop(t *testing.T) {
	queue := reconcile.NewDispatchQueue(8, 1, testLogger())
	require.NoError(t, queue.Start(context.Background(), func(context.Context, alerts.Alert) error { return nil }))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, queue.Stop(ctx))

	err := queue.Enqueue(context.Background(), alerts.Alert{BudgetID: "late"})
	assert.Error(t, err)

	// Stop is idempotent.
	assert.NoError(t, queue.Stop(ctx))
}
