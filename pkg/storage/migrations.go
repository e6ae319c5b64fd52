package storage

import (
	"database/sql"
	"fmt"
)

var migrations = []string{
	// Migration 1: Initial schema
	`CREATE TABLE IF NOT EXISTS users (
		id         TEXT PRIMARY KEY,
		email      TEXT NOT NULL UNIQUE,
		name       TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS categories (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL UNIQUE,
		kind       TEXT NOT NULL CHECK(kind IN ('expense', 'income', 'transfer')),
		icon       TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS transactions (
		id          TEXT PRIMARY KEY,
		user_id     TEXT NOT NULL REFERENCES users(id),
		category_id TEXT NOT NULL REFERENCES categories(id),
		kind        TEXT NOT NULL CHECK(kind IN ('expense', 'income', 'transfer')),
		amount      TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		date        DATETIME NOT NULL,
		created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_txn_user_date ON transactions(user_id, date);
	CREATE INDEX IF NOT EXISTS idx_txn_category ON transactions(category_id);

	CREATE TABLE IF NOT EXISTS budgets (
		id               TEXT PRIMARY KEY,
		user_id          TEXT NOT NULL REFERENCES users(id),
		category_id      TEXT NOT NULL REFERENCES categories(id),
		amount           TEXT NOT NULL,
		month            TEXT NOT NULL,
		spent_amount     TEXT NOT NULL DEFAULT '0',
		remaining_amount TEXT NOT NULL DEFAULT '0',
		created_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(user_id, category_id, month)
	);

	CREATE INDEX IF NOT EXISTS idx_budget_month ON budgets(month);

	CREATE TABLE IF NOT EXISTS budget_alerts (
		id         TEXT PRIMARY KEY,
		user_id    TEXT NOT NULL REFERENCES users(id),
		budget_id  TEXT NOT NULL REFERENCES budgets(id),
		alert_type TEXT NOT NULL CHECK(alert_type IN ('warning', 'critical', 'exceeded')),
		month      TEXT NOT NULL,
		is_sent    INTEGER NOT NULL DEFAULT 0,
		sent_at    DATETIME,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(budget_id, alert_type, month)
	);

	CREATE TABLE IF NOT EXISTS notification_preferences (
		user_id           TEXT NOT NULL REFERENCES users(id),
		notification_type TEXT NOT NULL,
		is_enabled        INTEGER NOT NULL DEFAULT 1,
		delivery_method   TEXT NOT NULL DEFAULT 'both' CHECK(delivery_method IN ('email', 'in_app', 'both')),
		alert_threshold   REAL NOT NULL DEFAULT 80.0,
		updated_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY(user_id, notification_type)
	);

	CREATE TABLE IF NOT EXISTS notifications (
		id                TEXT PRIMARY KEY,
		user_id           TEXT NOT NULL REFERENCES users(id),
		notification_type TEXT NOT NULL,
		title             TEXT NOT NULL,
		message           TEXT NOT NULL,
		status            TEXT NOT NULL DEFAULT 'pending' CHECK(status IN ('pending', 'sent', 'failed', 'read')),
		budget_id         TEXT NOT NULL DEFAULT '',
		payload           TEXT NOT NULL DEFAULT '{}',
		sent_at           DATETIME,
		read_at           DATETIME,
		created_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_notif_user_created ON notifications(user_id, created_at);

	CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`,
}

// runMigrations applies pending schema migrations.
func runMigrations(db *sql.DB) error {
	// Ensure migration tracking table exists
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		return fmt.Errorf("create migration table: %w", err)
	}

	var currentVersion int
	row := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("check migration version: %w", err)
	}

	for i := currentVersion; i < len(migrations); i++ {
		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", i+1, err)
		}

		if _, err := tx.Exec(migrations[i]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("run migration %d: %w", i+1, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", i+1); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %d: %w", i+1, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", i+1, err)
		}
	}

	return nil
}
