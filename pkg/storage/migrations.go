package storage

import (
	"database/sql"
	"fmt"
)

var migrations = []string{
	// Migration 1: alerts keyed by fingerprint
	`CREATE TABLE IF NOT EXISTS alerts (
		id             INTEGER PRIMARY KEY AUTOINCREMENT,
		fingerprint    TEXT NOT NULL UNIQUE,
		condition_type TEXT NOT NULL,
		subject        TEXT NOT NULL,
		subject_key    TEXT NOT NULL,
		severity       TEXT NOT NULL,
		status         TEXT NOT NULL DEFAULT 'open',
		first_seen_at  DATETIME NOT NULL,
		last_seen_at   DATETIME NOT NULL,
		last_sent_at   DATETIME,
		details        TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_alerts_condition_type ON alerts(condition_type);
	CREATE INDEX IF NOT EXISTS idx_alerts_last_seen ON alerts(last_seen_at);`,

	// Migration 2: license snapshots
	`CREATE TABLE IF NOT EXISTS license_snapshots (
		id              INTEGER PRIMARY KEY AUTOINCREMENT,
		batch_id        TEXT NOT NULL,
		captured_at     DATETIME NOT NULL,
		org_id          TEXT NOT NULL,
		license_id      TEXT NOT NULL,
		license_name    TEXT,
		total_units     INTEGER,
		consumed_units  INTEGER,
		subscription_id TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_snapshots_batch ON license_snapshots(batch_id);`,
}

// runMigrations applies pending schema migrations.
func runMigrations(db *sql.DB) error {
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
