package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/finmate-app/finmate/pkg/model"

	_ "modernc.org/sqlite"
)

// SQLite implements the Storage interface using an SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens or creates an SQLite database at the given path.
func NewSQLite(dbPath string) (*SQLite, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Enable WAL mode for concurrent reads
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

func (s *SQLite) CreateUser(ctx context.Context, user *model.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, name, created_at) VALUES (?, ?, ?, ?)`,
		user.ID, user.Email, user.Name, user.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *SQLite) GetUser(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, name, created_at FROM users WHERE id = ?`, id,
	).Scan(&u.ID, &u.Email, &u.Name, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user %q not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

func (s *SQLite) UpsertCategory(ctx context.Context, category *model.Category) error {
	if category.ID == "" {
		category.ID = uuid.New().String()
	}
	if category.CreatedAt.IsZero() {
		category.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO categories (id, name, kind, icon, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET
		   kind = excluded.kind,
		   icon = excluded.icon`,
		category.ID, category.Name, category.Kind, category.Icon, category.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert category: %w", err)
	}
	return nil
}

func (s *SQLite) GetCategoryByName(ctx context.Context, name string) (*model.Category, error) {
	var c model.Category
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, kind, icon, created_at FROM categories WHERE name = ?`, name,
	).Scan(&c.ID, &c.Name, &c.Kind, &c.Icon, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("category %q not found", name)
	}
	if err != nil {
		return nil, fmt.Errorf("get category: %w", err)
	}
	return &c, nil
}

func (s *SQLite) ListCategories(ctx context.Context) ([]model.Category, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, kind, icon, created_at FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []model.Category
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Kind, &c.Icon, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan category row: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (s *SQLite) AddTransaction(ctx context.Context, txn *model.Transaction) error {
	if txn.ID == "" {
		txn.ID = uuid.New().String()
	}
	if txn.CreatedAt.IsZero() {
		txn.CreatedAt = time.Now().UTC()
	}
	if txn.Date.IsZero() {
		txn.Date = txn.CreatedAt
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO transactions (id, user_id, category_id, kind, amount, description, date, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		txn.ID, txn.UserID, txn.CategoryID, txn.Kind,
		txn.Amount.String(), txn.Description, txn.Date.UTC(), txn.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func (s *SQLite) SumExpenses(ctx context.Context, userID, categoryID string, start, end time.Time) (decimal.Decimal, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT amount FROM transactions
		 WHERE user_id = ? AND category_id = ? AND kind = 'expense'
		   AND date >= ? AND date < ?`,
		userID, categoryID, start.UTC(), end.UTC(),
	)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum expenses: %w", err)
	}
	defer rows.Close()

	// Amounts are stored as exact decimal text; summing in SQL would lose
	// precision, so sum here instead.
	total := decimal.Zero
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return decimal.Zero, fmt.Errorf("scan expense amount: %w", err)
		}
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			return decimal.Zero, fmt.Errorf("parse expense amount %q: %w", raw, err)
		}
		total = total.Add(amount)
	}
	return total, rows.Err()
}

func (s *SQLite) TransactionsInRange(ctx context.Context, userID string, start, end time.Time) ([]model.Transaction, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT t.id, t.user_id, t.category_id, c.name, t.kind, t.amount, t.description, t.date, t.created_at
		 FROM transactions t
		 JOIN categories c ON c.id = t.category_id
		 WHERE t.user_id = ? AND t.date >= ? AND t.date < ?
		 ORDER BY t.date`,
		userID, start.UTC(), end.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var txns []model.Transaction
	for rows.Next() {
		var t model.Transaction
		var raw string
		if err := rows.Scan(&t.ID, &t.UserID, &t.CategoryID, &t.CategoryName,
			&t.Kind, &raw, &t.Description, &t.Date, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan transaction row: %w", err)
		}
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("parse transaction amount %q: %w", raw, err)
		}
		t.Amount = amount
		txns = append(txns, t)
	}
	return txns, rows.Err()
}

func (s *SQLite) SetBudget(ctx context.Context, budget *model.Budget) error {
	if budget.ID == "" {
		budget.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if budget.CreatedAt.IsZero() {
		budget.CreatedAt = now
	}
	budget.UpdatedAt = now
	budget.Month = model.MonthOf(budget.Month)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO budgets (id, user_id, category_id, amount, month, spent_amount, remaining_amount, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_id, category_id, month) DO UPDATE SET
		   amount = excluded.amount,
		   updated_at = excluded.updated_at`,
		budget.ID, budget.UserID, budget.CategoryID, budget.Amount.String(),
		model.MonthKey(budget.Month), budget.SpentAmount.String(),
		budget.RemainingAmount.String(), budget.CreatedAt, budget.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("set budget: %w", err)
	}
	return nil
}

const budgetColumns = `b.id, b.user_id, u.email, b.category_id, c.name,
	b.amount, b.month, b.spent_amount, b.remaining_amount, b.created_at, b.updated_at`

func (s *SQLite) scanBudget(row interface{ Scan(...any) error }) (*model.Budget, error) {
	var b model.Budget
	var amount, month, spent, remaining string
	if err := row.Scan(&b.ID, &b.UserID, &b.UserEmail, &b.CategoryID, &b.CategoryName,
		&amount, &month, &spent, &remaining, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}

	var err error
	if b.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("parse budget amount %q: %w", amount, err)
	}
	if b.SpentAmount, err = decimal.NewFromString(spent); err != nil {
		return nil, fmt.Errorf("parse spent amount %q: %w", spent, err)
	}
	if b.RemainingAmount, err = decimal.NewFromString(remaining); err != nil {
		return nil, fmt.Errorf("parse remaining amount %q: %w", remaining, err)
	}
	if b.Month, err = model.ParseMonthKey(month); err != nil {
		return nil, fmt.Errorf("parse budget month %q: %w", month, err)
	}
	return &b, nil
}

func (s *SQLite) GetBudget(ctx context.Context, id string) (*model.Budget, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+budgetColumns+`
		 FROM budgets b
		 JOIN users u ON u.id = b.user_id
		 JOIN categories c ON c.id = b.category_id
		 WHERE b.id = ?`, id,
	)
	b, err := s.scanBudget(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("budget %q not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get budget: %w", err)
	}
	return b, nil
}

func (s *SQLite) ActiveBudgets(ctx context.Context, month time.Time) ([]model.Budget, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+budgetColumns+`
		 FROM budgets b
		 JOIN users u ON u.id = b.user_id
		 JOIN categories c ON c.id = b.category_id
		 WHERE b.month = ?
		 ORDER BY u.email, c.name`,
		model.MonthKey(month),
	)
	if err != nil {
		return nil, fmt.Errorf("list active budgets: %w", err)
	}
	defer rows.Close()

	var budgets []model.Budget
	for rows.Next() {
		b, err := s.scanBudget(rows)
		if err != nil {
			return nil, fmt.Errorf("scan budget row: %w", err)
		}
		budgets = append(budgets, *b)
	}
	return budgets, rows.Err()
}

func (s *SQLite) UpdateBudgetSpend(ctx context.Context, budgetID string, spent, remaining decimal.Decimal) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE budgets SET spent_amount = ?, remaining_amount = ?, updated_at = ? WHERE id = ?`,
		spent.String(), remaining.String(), time.Now().UTC(), budgetID,
	)
	if err != nil {
		return fmt.Errorf("update budget spend: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("budget %q not found", budgetID)
	}
	return nil
}

func (s *SQLite) GetOrCreateAlert(ctx context.Context, userID, budgetID string, level model.AlertLevel, month time.Time) (*model.BudgetAlert, bool, error) {
	monthKey := model.MonthKey(month)

	// Conflict-as-no-op insert makes check-then-create atomic under
	// concurrent reconciliation runs.
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO budget_alerts (id, user_id, budget_id, alert_type, month, is_sent, created_at)
		 VALUES (?, ?, ?, ?, ?, 0, ?)
		 ON CONFLICT(budget_id, alert_type, month) DO NOTHING`,
		uuid.New().String(), userID, budgetID, level, monthKey, time.Now().UTC(),
	)
	if err != nil {
		return nil, false, fmt.Errorf("create alert record: %w", err)
	}
	inserted, err := result.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("check rows affected: %w", err)
	}

	alert, err := s.getAlert(ctx, budgetID, level, monthKey)
	if err != nil {
		return nil, false, err
	}
	return alert, inserted > 0, nil
}

func (s *SQLite) getAlert(ctx context.Context, budgetID string, level model.AlertLevel, monthKey string) (*model.BudgetAlert, error) {
	var a model.BudgetAlert
	var month string
	var sentAt sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, budget_id, alert_type, month, is_sent, sent_at, created_at
		 FROM budget_alerts
		 WHERE budget_id = ? AND alert_type = ? AND month = ?`,
		budgetID, level, monthKey,
	).Scan(&a.ID, &a.UserID, &a.BudgetID, &a.Level, &month, &a.IsSent, &sentAt, &a.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("get alert record: %w", err)
	}

	if a.Month, err = model.ParseMonthKey(month); err != nil {
		return nil, fmt.Errorf("parse alert month %q: %w", month, err)
	}
	if sentAt.Valid {
		a.SentAt = &sentAt.Time
	}
	return &a, nil
}

func (s *SQLite) AlertSent(ctx context.Context, budgetID string, level model.AlertLevel, month time.Time) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(
			SELECT 1 FROM budget_alerts
			WHERE budget_id = ? AND alert_type = ? AND month = ? AND is_sent = 1
		)`,
		budgetID, level, model.MonthKey(month),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check alert sent: %w", err)
	}
	return exists, nil
}

func (s *SQLite) MarkAlertSent(ctx context.Context, alertID string, at time.Time) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE budget_alerts SET is_sent = 1, sent_at = ? WHERE id = ?`,
		at.UTC(), alertID,
	)
	if err != nil {
		return fmt.Errorf("mark alert sent: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("alert %q not found", alertID)
	}
	return nil
}

func (s *SQLite) ListAlerts(ctx context.Context, budgetID string) ([]model.BudgetAlert, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, budget_id, alert_type, month, is_sent, sent_at, created_at
		 FROM budget_alerts WHERE budget_id = ? ORDER BY created_at`,
		budgetID,
	)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	defer rows.Close()

	var alerts []model.BudgetAlert
	for rows.Next() {
		var a model.BudgetAlert
		var month string
		var sentAt sql.NullTime
		if err := rows.Scan(&a.ID, &a.UserID, &a.BudgetID, &a.Level, &month,
			&a.IsSent, &sentAt, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan alert row: %w", err)
		}
		if a.Month, err = model.ParseMonthKey(month); err != nil {
			return nil, fmt.Errorf("parse alert month %q: %w", month, err)
		}
		if sentAt.Valid {
			a.SentAt = &sentAt.Time
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

func (s *SQLite) SetPreference(ctx context.Context, pref *model.NotificationPreference) error {
	pref.UpdatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO notification_preferences (user_id, notification_type, is_enabled, delivery_method, alert_threshold, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_id, notification_type) DO UPDATE SET
		   is_enabled = excluded.is_enabled,
		   delivery_method = excluded.delivery_method,
		   alert_threshold = excluded.alert_threshold,
		   updated_at = excluded.updated_at`,
		pref.UserID, pref.Type, pref.IsEnabled, pref.DeliveryMethod,
		pref.AlertThreshold, pref.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("set preference: %w", err)
	}
	return nil
}

func (s *SQLite) GetPreference(ctx context.Context, userID string, typ model.PreferenceType) (*model.NotificationPreference, error) {
	var p model.NotificationPreference
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, notification_type, is_enabled, delivery_method, alert_threshold, updated_at
		 FROM notification_preferences
		 WHERE user_id = ? AND notification_type = ?`,
		userID, typ,
	).Scan(&p.UserID, &p.Type, &p.IsEnabled, &p.DeliveryMethod, &p.AlertThreshold, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get preference: %w", err)
	}
	return &p, nil
}

func (s *SQLite) ListEnabledPreferences(ctx context.Context, typ model.PreferenceType) ([]model.NotificationPreference, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, notification_type, is_enabled, delivery_method, alert_threshold, updated_at
		 FROM notification_preferences
		 WHERE notification_type = ? AND is_enabled = 1
		 ORDER BY user_id`,
		typ,
	)
	if err != nil {
		return nil, fmt.Errorf("list preferences: %w", err)
	}
	defer rows.Close()

	var prefs []model.NotificationPreference
	for rows.Next() {
		var p model.NotificationPreference
		if err := rows.Scan(&p.UserID, &p.Type, &p.IsEnabled, &p.DeliveryMethod,
			&p.AlertThreshold, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan preference row: %w", err)
		}
		prefs = append(prefs, p)
	}
	return prefs, rows.Err()
}

func (s *SQLite) CreateNotification(ctx context.Context, n *model.Notification) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.Status == "" {
		n.Status = model.StatusPending
	}
	if n.Payload == "" {
		n.Payload = "{}"
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO notifications (id, user_id, notification_type, title, message, status, budget_id, payload, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.UserID, n.Type, n.Title, n.Message, n.Status, n.BudgetID, n.Payload, n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (s *SQLite) UpdateNotificationStatus(ctx context.Context, id string, status model.NotificationStatus, at time.Time) error {
	var result sql.Result
	var err error
	if status == model.StatusSent {
		result, err = s.db.ExecContext(ctx,
			`UPDATE notifications SET status = ?, sent_at = ? WHERE id = ? AND status != 'read'`,
			status, at.UTC(), id,
		)
	} else {
		result, err = s.db.ExecContext(ctx,
			`UPDATE notifications SET status = ? WHERE id = ? AND status != 'read'`,
			status, id,
		)
	}
	if err != nil {
		return fmt.Errorf("update notification status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("notification %q not found or already read", id)
	}
	return nil
}

func (s *SQLite) MarkNotificationRead(ctx context.Context, id string, at time.Time) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET status = 'read', read_at = ? WHERE id = ? AND read_at IS NULL`,
		at.UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rows > 0 {
		return nil
	}

	// Already-read notifications stay read; only a missing row is an error.
	var exists bool
	err = s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM notifications WHERE id = ?)`, id,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check notification exists: %w", err)
	}
	if !exists {
		return fmt.Errorf("notification %q not found", id)
	}
	return nil
}

func (s *SQLite) ListNotifications(ctx context.Context, userID string, limit int) ([]model.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, notification_type, title, message, status, budget_id, payload, sent_at, read_at, created_at
		 FROM notifications WHERE user_id = ?
		 ORDER BY created_at DESC LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var notifications []model.Notification
	for rows.Next() {
		var n model.Notification
		var sentAt, readAt sql.NullTime
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message,
			&n.Status, &n.BudgetID, &n.Payload, &sentAt, &readAt, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification row: %w", err)
		}
		if sentAt.Valid {
			n.SentAt = &sentAt.Time
		}
		if readAt.Valid {
			n.ReadAt = &readAt.Time
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
