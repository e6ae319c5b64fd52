package storage

import (
	"context"
	"time"

	"github.com/finmate-app/finmate/pkg/model"
	"github.com/shopspring/decimal"
)

// Storage defines the persistence layer for the ledger, budgets, alerts, and
// notifications.
type Storage interface {
	// CreateUser persists a new user record.
	CreateUser(ctx context.Context, user *model.User) error

	// GetUser retrieves a user by ID.
	GetUser(ctx context.Context, id string) (*model.User, error)

	// UpsertCategory creates a category or refreshes icon/kind by name.
	UpsertCategory(ctx context.Context, category *model.Category) error

	// GetCategoryByName retrieves a category by its unique name.
	GetCategoryByName(ctx context.Context, name string) (*model.Category, error)

	// ListCategories returns all categories ordered by name.
	ListCategories(ctx context.Context) ([]model.Category, error)

	// AddTransaction persists a single ledger entry.
	AddTransaction(ctx context.Context, txn *model.Transaction) error

	// SumExpenses totals expense transactions for (user, category) within
	// [start, end). An empty result is zero, not an error.
	SumExpenses(ctx context.Context, userID, categoryID string, start, end time.Time) (decimal.Decimal, error)

	// TransactionsInRange returns a user's transactions within [start, end),
	// with category names joined in.
	TransactionsInRange(ctx context.Context, userID string, start, end time.Time) ([]model.Transaction, error)

	// SetBudget creates a budget or updates the target amount for an
	// existing (user, category, month).
	SetBudget(ctx context.Context, budget *model.Budget) error

	// GetBudget retrieves a budget by ID.
	GetBudget(ctx context.Context, id string) (*model.Budget, error)

	// ActiveBudgets returns all budgets for the given month with user email
	// and category name joined in.
	ActiveBudgets(ctx context.Context, month time.Time) ([]model.Budget, error)

	// UpdateBudgetSpend persists recomputed spend caches for a budget.
	UpdateBudgetSpend(ctx context.Context, budgetID string, spent, remaining decimal.Decimal) error

	// GetOrCreateAlert atomically fetches or creates the alert record for
	// (budget, level, month). A concurrent create resolves through the
	// uniqueness constraint; the existing row wins. Returns whether this
	// call created the row.
	GetOrCreateAlert(ctx context.Context, userID, budgetID string, level model.AlertLevel, month time.Time) (*model.BudgetAlert, bool, error)

	// AlertSent reports whether a sent alert exists for (budget, level, month).
	AlertSent(ctx context.Context, budgetID string, level model.AlertLevel, month time.Time) (bool, error)

	// MarkAlertSent transitions an alert record to sent. Never regresses.
	MarkAlertSent(ctx context.Context, alertID string, at time.Time) error

	// ListAlerts returns all alert records for a budget.
	ListAlerts(ctx context.Context, budgetID string) ([]model.BudgetAlert, error)

	// SetPreference creates or updates a (user, type) preference.
	SetPreference(ctx context.Context, pref *model.NotificationPreference) error

	// GetPreference retrieves a preference, or (nil, nil) when none exists.
	GetPreference(ctx context.Context, userID string, typ model.PreferenceType) (*model.NotificationPreference, error)

	// ListEnabledPreferences returns all enabled preferences of one type.
	ListEnabledPreferences(ctx context.Context, typ model.PreferenceType) ([]model.NotificationPreference, error)

	// CreateNotification persists a notification (normally pending).
	CreateNotification(ctx context.Context, n *model.Notification) error

	// UpdateNotificationStatus moves a notification to sent or failed.
	UpdateNotificationStatus(ctx context.Context, id string, status model.NotificationStatus, at time.Time) error

	// MarkNotificationRead transitions a notification to read once; a second
	// call is a no-op.
	MarkNotificationRead(ctx context.Context, id string, at time.Time) error

	// ListNotifications returns a user's notifications, newest first.
	ListNotifications(ctx context.Context, userID string, limit int) ([]model.Notification, error)

	// Close releases resources.
	Close() error
}
