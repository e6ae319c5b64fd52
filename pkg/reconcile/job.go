package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/finmate-app/finmate/pkg/alerts"
	"github.com/finmate-app/finmate/pkg/model"
	"github.com/finmate-app/finmate/pkg/notify"
	"github.com/finmate-app/finmate/pkg/storage"
)

// Result is the aggregate outcome of one reconciliation run. Individual
// budget failures surface only in logs.
type Result struct {
	AlertsQueued int `json:"alerts_queued"`
}

// Reconciler walks the current month's budgets, refreshes cached spend from
// the transaction ledger, and queues threshold alerts for dispatch. Budgets
// are independent, so they are processed by a worker pool; the dedup
// check-then-create is left to the storage layer's uniqueness constraint, so
// overlapping runs never double-alert.
type Reconciler struct {
	storage storage.Storage
	prefs   *notify.Resolver
	queue   *DispatchQueue
	logger  *slog.Logger
	workers int
	now     func() time.Time
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithWorkers sets the per-budget worker pool size.
func WithWorkers(n int) Option {
	return func(r *Reconciler) {
		if n > 0 {
			r.workers = n
		}
	}
}

// WithClock overrides the time source, used by tests and backfills.
func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) { r.now = now }
}

// NewReconciler creates a reconciliation job bound to a dispatch queue.
func NewReconciler(store storage.Storage, queue *DispatchQueue, logger *slog.Logger, opts ...Option) *Reconciler {
	r := &Reconciler{
		storage: store,
		prefs:   notify.NewResolver(store),
		queue:   queue,
		logger:  logger,
		workers: 4,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run reconciles all budgets for the current month. A failure on one budget
// is logged and skipped; the batch always runs to completion.
func (r *Reconciler) Run(ctx context.Context) (Result, error) {
	month := model.MonthOf(r.now())

	budgets, err := r.storage.ActiveBudgets(ctx, month)
	if err != nil {
		return Result{}, fmt.Errorf("list active budgets: %w", err)
	}

	r.logger.Info("budget reconciliation started",
		"month", model.MonthKey(month),
		"budgets", len(budgets),
	)

	var queued atomic.Int64
	jobs := make(chan model.Budget)
	var wg sync.WaitGroup
	for i := 0; i < r.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for budget := range jobs {
				wasQueued, err := r.reconcileBudget(ctx, budget, month)
				if err != nil {
					r.logger.Error("reconcile budget",
						"budget", budget.ID,
						"category", budget.CategoryName,
						"error", err,
					)
					continue
				}
				if wasQueued {
					queued.Add(1)
				}
			}
		}()
	}

	for _, budget := range budgets {
		jobs <- budget
	}
	close(jobs)
	wg.Wait()

	r.logger.Info("budget reconciliation completed", "alerts_queued", queued.Load())
	return Result{AlertsQueued: int(queued.Load())}, nil
}

// reconcileBudget refreshes one budget's spend cache and decides whether an
// alert is due. Returns whether a dispatch was queued.
func (r *Reconciler) reconcileBudget(ctx context.Context, budget model.Budget, month time.Time) (bool, error) {
	start, end := model.MonthBounds(month)

	spent, err := r.storage.SumExpenses(ctx, budget.UserID, budget.CategoryID, start, end)
	if err != nil {
		return false, fmt.Errorf("sum expenses: %w", err)
	}

	remaining := budget.Amount.Sub(spent)
	if remaining.Sign() < 0 {
		remaining = decimal.Zero
	}
	if err := r.storage.UpdateBudgetSpend(ctx, budget.ID, spent, remaining); err != nil {
		return false, fmt.Errorf("update spend cache: %w", err)
	}

	// Spend caching above happens regardless; alerting is preference-gated.
	pref, err := r.prefs.Resolve(ctx, budget.UserID, model.PrefBudgetAlert)
	if err != nil {
		return false, err
	}
	if !pref.IsEnabled {
		return false, nil
	}

	level := alerts.Evaluate(spent, budget.Amount, pref.AlertThreshold)
	if level == model.LevelNone {
		return false, nil
	}

	alreadySent, err := r.storage.AlertSent(ctx, budget.ID, level, month)
	if err != nil {
		return false, fmt.Errorf("check alert sent: %w", err)
	}
	if alreadySent {
		return false, nil
	}

	alert := alerts.Alert{
		UserID:       budget.UserID,
		UserEmail:    budget.UserEmail,
		BudgetID:     budget.ID,
		CategoryName: budget.CategoryName,
		Level:        level,
		Month:        month,
		PercentUsed:  alerts.PercentUsed(spent, budget.Amount),
		SpentAmount:  spent,
		BudgetAmount: budget.Amount,
	}
	if err := r.queue.Enqueue(ctx, alert); err != nil {
		return false, fmt.Errorf("enqueue dispatch: %w", err)
	}
	return true, nil
}
