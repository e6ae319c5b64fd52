package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/finmate-app/finmate/internal/config"
	"github.com/finmate-app/finmate/pkg/notify"
	"github.com/finmate-app/finmate/pkg/reconcile"
	"github.com/finmate-app/finmate/pkg/storage"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Run budget reconciliation for the current month",
	Long: `Recompute cached spend for every budget in the current month, evaluate
alert thresholds, and dispatch notifications for newly crossed levels.`,
	RunE: runReconcile,
}

func init() {
	rootCmd.AddCommand(reconcileCmd)
}

func runReconcile(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	store, err := initStorage(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	reconciler, queue, err := buildPipeline(cmd.Context(), cfg, store, logger)
	if err != nil {
		return err
	}

	result, err := reconciler.Run(cmd.Context())
	if err != nil {
		return fmt.Errorf("run reconciliation: %w", err)
	}

	if err := drainQueue(cfg, queue); err != nil {
		return err
	}

	fmt.Printf("Reconciliation complete: %d alerts queued\n", result.AlertsQueued)
	return nil
}

// buildPipeline wires the dispatch queue, dispatcher, and reconciler, and
// starts the queue's worker pool.
func buildPipeline(ctx context.Context, cfg *config.Config, store storage.Storage, logger *slog.Logger) (*reconcile.Reconciler, *reconcile.DispatchQueue, error) {
	queue := reconcile.NewDispatchQueue(cfg.Reconcile.QueueSize, cfg.Reconcile.DispatchWorkers, logger)
	dispatcher := notify.NewDispatcher(store, initMailer(cfg), logger)
	if err := queue.Start(ctx, dispatcher.Dispatch); err != nil {
		return nil, nil, fmt.Errorf("start dispatch queue: %w", err)
	}

	reconciler := reconcile.NewReconciler(store, queue, logger,
		reconcile.WithWorkers(cfg.Reconcile.Workers))
	return reconciler, queue, nil
}

// drainQueue stops the dispatch queue, waiting up to the configured timeout
// for in-flight notifications.
func drainQueue(cfg *config.Config, queue *reconcile.DispatchQueue) error {
	timeout, err := time.ParseDuration(cfg.Reconcile.DrainTimeout)
	if err != nil || timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := queue.Stop(ctx); err != nil {
		return fmt.Errorf("drain dispatch queue: %w", err)
	}
	return nil
}
