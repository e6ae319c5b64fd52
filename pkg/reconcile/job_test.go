package reconcile_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finmate-app/finmate/pkg/model"
	"github.com/finmate-app/finmate/pkg/notify"
	"github.com/finmate-app/finmate/pkg/reconcile"
	"github.com/finmate-app/finmate/pkg/storage"
)

var testClock = func() time.Time {
	return time.Date(2025, 4, 18, 9, 0, 0, 0, time.UTC)
}

func newTestDB(t *testing.T) *storage.SQLite {
	t.Helper()
	db, err := storage.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

type sentMail struct {
	To      string
	Subject string
	Body    string
}

type fakeMailer struct {
	sent []sentMail
	err  error
}

func (f *fakeMailer) Name() string { return "fake" }

func (f *fakeMailer) Send(_ context.Context, to, subject, body string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMail{To: to, Subject: subject, Body: body})
	return nil
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type fixture struct {
	db     *storage.SQLite
	user   *model.User
	cat    *model.Category
	budget *model.Budget
}

// newFixture sets up one user with a 500.00 Groceries budget for the clock's
// month.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newTestDB(t)
	ctx := context.Background()

	user := &model.User{Email: "alice@example.com", Name: "Alice"}
	require.NoError(t, db.CreateUser(ctx, user))

	cat := &model.Category{Name: "Groceries", Kind: model.KindExpense}
	require.NoError(t, db.UpsertCategory(ctx, cat))

	budget := &model.Budget{
		UserID:          user.ID,
		CategoryID:      cat.ID,
		Amount:          dec("500.00"),
		Month:           model.MonthOf(testClock()),
		RemainingAmount: dec("500.00"),
	}
	require.NoError(t, db.SetBudget(ctx, budget))

	return &fixture{db: db, user: user, cat: cat, budget: budget}
}

func (f *fixture) spend(t *testing.T, amount string, day int) {
	t.Helper()
	month := model.MonthOf(testClock())
	require.NoError(t, f.db.AddTransaction(context.Background(), &model.Transaction{
		UserID:     f.user.ID,
		CategoryID: f.cat.ID,
		Kind:       model.KindExpense,
		Amount:     dec(amount),
		Date:       month.AddDate(0, 0, day-1),
	}))
}

// runOnce wires a fresh queue and dispatcher, runs reconciliation, and drains
// the queue so every decision has been dispatched when it returns.
func runOnce(t *testing.T, db *storage.SQLite, mailer notify.Mailer) reconcile.Result {
	t.Helper()
	ctx := context.Background()

	queue := reconcile.NewDispatchQueue(16, 2, testLogger())
	dispatcher := notify.NewDispatcher(db, mailer, testLogger())
	require.NoError(t, queue.Start(ctx, dispatcher.Dispatch))

	reconciler := reconcile.NewReconciler(db, queue, testLogger(),
		reconcile.WithWorkers(2),
		reconcile.WithClock(testClock),
	)
	result, err := reconciler.Run(ctx)
	require.NoError(t, err)

	drainCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, queue.Stop(drainCtx))

	return result
}

func TestReconciler_WarningFlow(t *testing.T) {
	f := newFixture(t)
	f.spend(t, "300.00", 5)
	f.spend(t, "120.00", 10)

	mailer := &fakeMailer{}
	result := runOnce(t, f.db, mailer)
	assert.Equal(t, 1, result.AlertsQueued)

	// Spend cache refreshed.
	budget, err := f.db.GetBudget(context.Background(), f.budget.ID)
	require.NoError(t, err)
	assert.True(t, budget.SpentAmount.Equal(dec("420.00")))
	assert.True(t, budget.RemainingAmount.Equal(dec("80.00")))

	// Warning alert marked sent after dispatch.
	sent, err := f.db.AlertSent(context.Background(), f.budget.ID, model.LevelWarning, budget.Month)
	require.NoError(t, err)
	assert.True(t, sent)

	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "alice@example.com", mailer.sent[0].To)
	assert.Equal(t, "FinMate: Budget Alert: Groceries", mailer.sent[0].Subject)
}

func TestReconciler_Idempotent(t *testing.T) {
	f := newFixture(t)
	f.spend(t, "450.00", 3)

	mailer := &fakeMailer{}
	first := runOnce(t, f.db, mailer)
	assert.Equal(t, 1, first.AlertsQueued)

	// Re-running with unchanged spend produces nothing new.
	second := runOnce(t, f.db, mailer)
	assert.Equal(t, 0, second.AlertsQueued)
	assert.Len(t, mailer.sent, 1)

	notifs, err := f.db.ListNotifications(context.Background(), f.user.ID, 10)
	require.NoError(t, err)
	assert.Len(t, notifs, 1)
}

func TestReconciler_Escalation(t *testing.T) {
	f := newFixture(t)
	f.spend(t, "420.00", 4)

	mailer := &fakeMailer{}
	first := runOnce(t, f.db, mailer)
	assert.Equal(t, 1, first.AlertsQueued)

	// More spending pushes past 100%; the exceeded level is a fresh alert
	// even though the warning was already sent.
	f.spend(t, "130.00", 12)
	second := runOnce(t, f.db, mailer)
	assert.Equal(t, 1, second.AlertsQueued)

	require.Len(t, mailer.sent, 2)
	assert.Equal(t, "FinMate: Budget Alert: Groceries", mailer.sent[0].Subject)
	assert.Equal(t, "FinMate: Budget Exceeded: Groceries", mailer.sent[1].Subject)

	month := model.MonthOf(testClock())
	exceeded, err := f.db.AlertSent(context.Background(), f.budget.ID, model.LevelExceeded, month)
	require.NoError(t, err)
	assert.True(t, exceeded)
}

func TestReconciler_DisabledPreferenceSkipsAlert(t *testing.T) {
	f := newFixture(t)
	f.spend(t, "490.00", 2)

	require.NoError(t, f.db.SetPreference(context.Background(), &model.NotificationPreference{
		UserID: f.user.ID, Type: model.PrefBudgetAlert,
		IsEnabled: false, DeliveryMethod: model.DeliverBoth, AlertThreshold: 80,
	}))

	mailer := &fakeMailer{}
	result := runOnce(t, f.db, mailer)
	assert.Equal(t, 0, result.AlertsQueued)
	assert.Empty(t, mailer.sent)

	// Spend cache still refreshes for opted-out users.
	budget, err := f.db.GetBudget(context.Background(), f.budget.ID)
	require.NoError(t, err)
	assert.True(t, budget.SpentAmount.Equal(dec("490.00")))
}

func TestReconciler_CustomThreshold(t *testing.T) {
	f := newFixture(t)
	f.spend(t, "260.00", 7)

	// 52% of budget: silent at the default 80, warning at a 50 threshold.
	mailer := &fakeMailer{}
	result := runOnce(t, f.db, mailer)
	assert.Equal(t, 0, result.AlertsQueued)

	require.NoError(t, f.db.SetPreference(context.Background(), &model.NotificationPreference{
		UserID: f.user.ID, Type: model.PrefBudgetAlert,
		IsEnabled: true, DeliveryMethod: model.DeliverBoth, AlertThreshold: 50,
	}))
	result = runOnce(t, f.db, mailer)
	assert.Equal(t, 1, result.AlertsQueued)
}

func TestReconciler_RetriesAfterEmailFailure(t *testing.T) {
	f := newFixture(t)
	f.spend(t, "425.00", 6)

	// Gateway down: the decision is queued but delivery fails, so the alert
	// record stays unsent.
	failing := &fakeMailer{err: errors.New("gateway down")}
	first := runOnce(t, f.db, failing)
	assert.Equal(t, 1, first.AlertsQueued)

	month := model.MonthOf(testClock())
	sent, err := f.db.AlertSent(context.Background(), f.budget.ID, model.LevelWarning, month)
	require.NoError(t, err)
	assert.False(t, sent)

	// Gateway recovers: the next run re-queues and delivers.
	working := &fakeMailer{}
	second := runOnce(t, f.db, working)
	assert.Equal(t, 1, second.AlertsQueued)

	sent, err = f.db.AlertSent(context.Background(), f.budget.ID, model.LevelWarning, month)
	require.NoError(t, err)
	assert.True(t, sent)
	require.Len(t, working.sent, 1)
}

func TestReconciler_NoTransactions(t *testing.T) {
	f := newFixture(t)

	mailer := &fakeMailer{}
	result := runOnce(t, f.db, mailer)
	assert.Equal(t, 0, result.AlertsQueued)

	budget, err := f.db.GetBudget(context.Background(), f.budget.ID)
	require.NoError(t, err)
	assert.True(t, budget.SpentAmount.IsZero())
	assert.True(t, budget.RemainingAmount.Equal(dec("500.00")))
}

func TestReconciler_OtherMonthsIgnored(t *testing.T) {
	f := newFixture(t)

	// Heavy spending last month must not trip this month's budget.
	lastMonth := model.MonthOf(testClock()).AddDate(0, -1, 0)
	require.NoError(t, f.db.AddTransaction(context.Background(), &model.Transaction{
		UserID:     f.user.ID,
		CategoryID: f.cat.ID,
		Kind:       model.KindExpense,
		Amount:     dec("9999.00"),
		Date:       lastMonth.AddDate(0, 0, 10),
	}))

	mailer := &fakeMailer{}
	result := runOnce(t, f.db, mailer)
	assert.Equal(t, 0, result.AlertsQueued)
	assert.Empty(t, mailer.sent)
}
