package reconcile_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finmate-app/finmate/pkg/model"
	"github.com/finmate-app/finmate/pkg/reconcile"
	"github.com/finmate-app/finmate/pkg/storage"
)

func optInWeekly(t *testing.T, db *storage.SQLite, userID string, method model.DeliveryMethod) {
	t.Helper()
	require.NoError(t, db.SetPreference(context.Background(), &model.NotificationPreference{
		UserID: userID, Type: model.PrefWeeklySummary,
		IsEnabled: true, DeliveryMethod: method, AlertThreshold: model.DefaultAlertThreshold,
	}))
}

func addTxn(t *testing.T, db *storage.SQLite, userID, categoryID string, kind model.CategoryKind, amount string, daysAgo int) {
	t.Helper()
	require.NoError(t, db.AddTransaction(context.Background(), &model.Transaction{
		UserID:     userID,
		CategoryID: categoryID,
		Kind:       kind,
		Amount:     dec(amount),
		Date:       testClock().AddDate(0, 0, -daysAgo),
	}))
}

func TestSummarizer_ComposesWeeklySummary(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	user := &model.User{Email: "alice@example.com", Name: "Alice"}
	require.NoError(t, db.CreateUser(ctx, user))

	groceries := &model.Category{Name: "Groceries", Kind: model.KindExpense}
	require.NoError(t, db.UpsertCategory(ctx, groceries))
	dining := &model.Category{Name: "Dining", Kind: model.KindExpense}
	require.NoError(t, db.UpsertCategory(ctx, dining))
	salary := &model.Category{Name: "Salary", Kind: model.KindIncome}
	require.NoError(t, db.UpsertCategory(ctx, salary))

	optInWeekly(t, db, user.ID, model.DeliverBoth)

	addTxn(t, db, user.ID, salary.ID, model.KindIncome, "1000.00", 3)
	addTxn(t, db, user.ID, groceries.ID, model.KindExpense, "250.00", 2)
	addTxn(t, db, user.ID, dining.ID, model.KindExpense, "80.00", 1)
	// Outside the 7-day window.
	addTxn(t, db, user.ID, groceries.ID, model.KindExpense, "500.00", 9)

	mailer := &fakeMailer{}
	summarizer := reconcile.NewSummarizer(db, mailer, testLogger(),
		reconcile.WithSummaryClock(testClock))

	sent, err := summarizer.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "alice@example.com", mailer.sent[0].To)
	assert.Contains(t, mailer.sent[0].Subject, "FinMate: Weekly Summary")

	body := mailer.sent[0].Body
	assert.Contains(t, body, "Total Income: $1000.00")
	assert.Contains(t, body, "Total Expenses: $330.00")
	assert.Contains(t, body, "Net Cash Flow: $670.00")
	assert.Contains(t, body, "1. Groceries: $250.00")
	assert.Contains(t, body, "2. Dining: $80.00")
	assert.Contains(t, body, "Great job! You saved $670.00 this week.")

	notifs, err := db.ListNotifications(ctx, user.ID, 10)
	require.NoError(t, err)
	require.Len(t, notifs, 1)
	assert.Equal(t, model.NotifyWeeklySummary, notifs[0].Type)
	assert.Equal(t, model.StatusSent, notifs[0].Status)
}

func TestSummarizer_OverspendWording(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	user := &model.User{Email: "bob@example.com", Name: "Bob"}
	require.NoError(t, db.CreateUser(ctx, user))
	rent := &model.Category{Name: "Rent", Kind: model.KindExpense}
	require.NoError(t, db.UpsertCategory(ctx, rent))

	optInWeekly(t, db, user.ID, model.DeliverEmail)
	addTxn(t, db, user.ID, rent.ID, model.KindExpense, "1200.00", 2)

	mailer := &fakeMailer{}
	summarizer := reconcile.NewSummarizer(db, mailer, testLogger(),
		reconcile.WithSummaryClock(testClock))

	sent, err := summarizer.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	require.Len(t, mailer.sent, 1)
	assert.Contains(t, mailer.sent[0].Body, "You spent $1200.00 more than you earned this week.")
}

func TestSummarizer_SkipsUsersWithoutActivity(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	user := &model.User{Email: "quiet@example.com", Name: "Quiet"}
	require.NoError(t, db.CreateUser(ctx, user))
	optInWeekly(t, db, user.ID, model.DeliverBoth)

	mailer := &fakeMailer{}
	summarizer := reconcile.NewSummarizer(db, mailer, testLogger(),
		reconcile.WithSummaryClock(testClock))

	sent, err := summarizer.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, sent)
	assert.Empty(t, mailer.sent)

	notifs, err := db.ListNotifications(ctx, user.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, notifs)
}

func TestSummarizer_OnlyOptedInUsers(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	in := &model.User{Email: "in@example.com", Name: "In"}
	require.NoError(t, db.CreateUser(ctx, in))
	out := &model.User{Email: "out@example.com", Name: "Out"}
	require.NoError(t, db.CreateUser(ctx, out))

	cat := &model.Category{Name: "Misc", Kind: model.KindExpense}
	require.NoError(t, db.UpsertCategory(ctx, cat))

	optInWeekly(t, db, in.ID, model.DeliverEmail)
	addTxn(t, db, in.ID, cat.ID, model.KindExpense, "10.00", 1)
	addTxn(t, db, out.ID, cat.ID, model.KindExpense, "10.00", 1)

	mailer := &fakeMailer{}
	summarizer := reconcile.NewSummarizer(db, mailer, testLogger(),
		reconcile.WithSummaryClock(testClock))

	sent, err := summarizer.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "in@example.com", mailer.sent[0].To)
}

func TestSummarizer_InAppOnly(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	user := &model.User{Email: "inapp@example.com", Name: "InApp"}
	require.NoError(t, db.CreateUser(ctx, user))
	cat := &model.Category{Name: "Misc", Kind: model.KindExpense}
	require.NoError(t, db.UpsertCategory(ctx, cat))

	optInWeekly(t, db, user.ID, model.DeliverInApp)
	addTxn(t, db, user.ID, cat.ID, model.KindExpense, "25.00", 2)

	mailer := &fakeMailer{}
	summarizer := reconcile.NewSummarizer(db, mailer, testLogger(),
		reconcile.WithSummaryClock(testClock))

	sent, err := summarizer.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.Empty(t, mailer.sent)

	notifs, err := db.ListNotifications(ctx, user.ID, 10)
	require.NoError(t, err)
	require.Len(t, notifs, 1)
	assert.Equal(t, model.StatusSent, notifs[0].Status)
}
