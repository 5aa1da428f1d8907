package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version the application
// expects. Failure to migrate to this version is fatal.
const ExpectedSchemaVersion = 2

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial ledger schema",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS transactions (
					dedup_key TEXT PRIMARY KEY,
					timestamp DATETIME,
					date TEXT,
					location TEXT NOT NULL,
					master_sku TEXT NOT NULL,
					master_name TEXT NOT NULL,
					product_family TEXT,
					type TEXT,
					revenue REAL NOT NULL,
					cost REAL NOT NULL DEFAULT 0,
					quantity INTEGER NOT NULL DEFAULT 1,
					profit REAL NOT NULL,
					gross_margin_percent REAL NOT NULL,
					mapping_tier TEXT NOT NULL,
					source_system TEXT NOT NULL,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_transactions_date ON transactions(date)`,
				`CREATE INDEX idx_transactions_location ON transactions(location)`,
				`CREATE INDEX idx_transactions_sku ON transactions(master_sku)`,
				`CREATE INDEX idx_transactions_tier ON transactions(mapping_tier)`,
			}
			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Upload history and payment method",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS upload_history (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					filename TEXT NOT NULL,
					source_system TEXT,
					total_transactions INTEGER NOT NULL DEFAULT 0,
					duplicates_removed INTEGER NOT NULL DEFAULT 0,
					mapping_coverage REAL NOT NULL DEFAULT 0,
					unmapped_revenue REAL NOT NULL DEFAULT 0,
					status TEXT NOT NULL,
					processed_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`ALTER TABLE transactions ADD COLUMN payment_method TEXT`,
			}
			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
}

// Migrate applies any pending schema migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	var currentVersion int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion); err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin migration transaction: %w", err)
		}

		if err := migration.Up(tx); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d (%s) failed: %w", migration.Version, migration.Description, err)
		}

		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to set schema version %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	return nil
}
