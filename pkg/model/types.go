package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// User is the minimal account record the alerting pipeline needs.
// Authentication and profile management live elsewhere.
type User struct {
	ID        string    `json:"id" db:"id"`
	Email     string    `json:"email" db:"email"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// CategoryKind distinguishes expense, income, and transfer categories.
type CategoryKind string

const (
	KindExpense  CategoryKind = "expense"
	KindIncome   CategoryKind = "income"
	KindTransfer CategoryKind = "transfer"
)

// Category groups transactions for budgeting and reporting.
type Category struct {
	ID        string       `json:"id" db:"id"`
	Name      string       `json:"name" db:"name"`
	Kind      CategoryKind `json:"kind" db:"kind"`
	Icon      string       `json:"icon,omitempty" db:"icon"`
	CreatedAt time.Time    `json:"created_at" db:"created_at"`
}

// Transaction is a single ledger entry. The reconciliation core only reads
// these; creation and editing belong to the transaction-management side.
type Transaction struct {
	ID           string          `json:"id" db:"id"`
	UserID       string          `json:"user_id" db:"user_id"`
	CategoryID   string          `json:"category_id" db:"category_id"`
	CategoryName string          `json:"category_name,omitempty" db:"-"`
	Kind         CategoryKind    `json:"kind" db:"kind"`
	Amount       decimal.Decimal `json:"amount" db:"amount"`
	Description  string          `json:"description,omitempty" db:"description"`
	Date         time.Time       `json:"date" db:"date"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
}

// Budget is a per-user, per-category spending target for one month.
// SpentAmount and RemainingAmount are caches refreshed by reconciliation;
// the transaction ledger is authoritative.
type Budget struct {
	ID              string          `json:"id" db:"id"`
	UserID          string          `json:"user_id" db:"user_id"`
	UserEmail       string          `json:"user_email,omitempty" db:"-"`
	CategoryID      string          `json:"category_id" db:"category_id"`
	CategoryName    string          `json:"category_name,omitempty" db:"-"`
	Amount          decimal.Decimal `json:"amount" db:"amount"`
	Month           time.Time       `json:"month" db:"month"`
	SpentAmount     decimal.Decimal `json:"spent_amount" db:"spent_amount"`
	RemainingAmount decimal.Decimal `json:"remaining_amount" db:"remaining_amount"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at" db:"updated_at"`
}

// AlertLevel is the severity bucket a budget's spend has crossed.
type AlertLevel string

const (
	// LevelNone means the spend is below every threshold.
	LevelNone AlertLevel = "none"
	// LevelWarning means the configured threshold percentage was crossed.
	LevelWarning AlertLevel = "warning"
	// LevelCritical is reserved in the schema; the reconciliation path only
	// ever produces warning and exceeded.
	LevelCritical AlertLevel = "critical"
	// LevelExceeded means spend reached or passed 100% of the budget.
	LevelExceeded AlertLevel = "exceeded"
)

// BudgetAlert records that a budget crossed an alert level in a month.
// At most one row exists per (budget, level, month); that uniqueness is the
// pipeline's dedup guarantee.
type BudgetAlert struct {
	ID        string     `json:"id" db:"id"`
	UserID    string     `json:"user_id" db:"user_id"`
	BudgetID  string     `json:"budget_id" db:"budget_id"`
	Level     AlertLevel `json:"level" db:"alert_type"`
	Month     time.Time  `json:"month" db:"month"`
	IsSent    bool       `json:"is_sent" db:"is_sent"`
	SentAt    *time.Time `json:"sent_at,omitempty" db:"sent_at"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
}

// NotificationType identifies what kind of message a notification carries.
type NotificationType string

const (
	NotifyBudgetWarning  NotificationType = "budget_warning"
	NotifyBudgetExceeded NotificationType = "budget_exceeded"
	NotifyWeeklySummary  NotificationType = "weekly_summary"
)

// PreferenceType identifies a user-configurable notification class.
type PreferenceType string

const (
	PrefBudgetAlert   PreferenceType = "budget_alert"
	PrefWeeklySummary PreferenceType = "weekly_summary"
)

// DeliveryMethod selects the channels a notification is surfaced through.
type DeliveryMethod string

const (
	DeliverEmail DeliveryMethod = "email"
	DeliverInApp DeliveryMethod = "in_app"
	DeliverBoth  DeliveryMethod = "both"
)

// IncludesEmail reports whether the method routes through the mail gateway.
func (m DeliveryMethod) IncludesEmail() bool {
	return m == DeliverEmail || m == DeliverBoth
}

// DefaultAlertThreshold is the budget-alert percentage used when a user has
// not configured one.
const DefaultAlertThreshold = 80.0

// NotificationPreference holds per-(user, type) notification settings.
type NotificationPreference struct {
	UserID         string         `json:"user_id" db:"user_id"`
	Type           PreferenceType `json:"type" db:"notification_type"`
	IsEnabled      bool           `json:"is_enabled" db:"is_enabled"`
	DeliveryMethod DeliveryMethod `json:"delivery_method" db:"delivery_method"`
	AlertThreshold float64        `json:"alert_threshold" db:"alert_threshold"`
	UpdatedAt      time.Time      `json:"updated_at" db:"updated_at"`
}

// DefaultPreference returns the built-in settings used when no row exists.
func DefaultPreference(userID string, typ PreferenceType) *NotificationPreference {
	return &NotificationPreference{
		UserID:         userID,
		Type:           typ,
		IsEnabled:      true,
		DeliveryMethod: DeliverBoth,
		AlertThreshold: DefaultAlertThreshold,
	}
}

// NotificationStatus tracks a notification's delivery lifecycle.
type NotificationStatus string

const (
	StatusPending NotificationStatus = "pending"
	StatusSent    NotificationStatus = "sent"
	StatusFailed  NotificationStatus = "failed"
	StatusRead    NotificationStatus = "read"
)

// Notification is a single user-facing message instance.
type Notification struct {
	ID        string             `json:"id" db:"id"`
	UserID    string             `json:"user_id" db:"user_id"`
	Type      NotificationType   `json:"type" db:"notification_type"`
	Title     string             `json:"title" db:"title"`
	Message   string             `json:"message" db:"message"`
	Status    NotificationStatus `json:"status" db:"status"`
	BudgetID  string             `json:"budget_id,omitempty" db:"budget_id"`
	Payload   string             `json:"payload,omitempty" db:"payload"`
	SentAt    *time.Time         `json:"sent_at,omitempty" db:"sent_at"`
	ReadAt    *time.Time         `json:"read_at,omitempty" db:"read_at"`
	CreatedAt time.Time          `json:"created_at" db:"created_at"`
}
