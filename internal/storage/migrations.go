package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/Jaikumar96/fincategorizer/internal/model"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 4

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

func execAll(tx *sql.Tx, queries []string) error {
	for _, query := range queries {
		if _, err := tx.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
	}
	return nil
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema",
		Up: func(tx *sql.Tx) error {
			return execAll(tx, []string{
				`CREATE TABLE IF NOT EXISTS categories (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					user_id INTEGER NOT NULL DEFAULT 0,
					name TEXT NOT NULL,
					category_type TEXT NOT NULL CHECK (category_type IN ('default', 'custom')),
					icon TEXT NOT NULL DEFAULT '',
					color TEXT NOT NULL DEFAULT '',
					description TEXT NOT NULL DEFAULT '',
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					UNIQUE (user_id, name)
				)`,
				`CREATE TABLE IF NOT EXISTS transactions (
					id TEXT PRIMARY KEY,
					user_id INTEGER NOT NULL,
					merchant_name TEXT NOT NULL,
					merchant_normalized TEXT NOT NULL,
					amount TEXT NOT NULL,
					currency TEXT NOT NULL,
					transaction_date TEXT NOT NULL,
					category_id INTEGER NOT NULL REFERENCES categories(id),
					confidence_score REAL,
					alternatives TEXT NOT NULL DEFAULT '',
					is_user_corrected INTEGER NOT NULL DEFAULT 0,
					metadata TEXT NOT NULL DEFAULT '',
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_transactions_user_date ON transactions(user_id, transaction_date)`,
				`CREATE INDEX idx_transactions_user_category ON transactions(user_id, category_id)`,
				`CREATE INDEX idx_transactions_merchant ON transactions(merchant_normalized)`,
			})
		},
	},
	{
		Version:     2,
		Description: "Seed default categories",
		Up: func(tx *sql.Tx) error {
			stmt, err := tx.Prepare(`
				INSERT INTO categories (id, user_id, name, category_type, icon, color, description)
				VALUES (?, 0, ?, ?, ?, ?, ?)`)
			if err != nil {
				return fmt.Errorf("failed to prepare statement: %w", err)
			}
			defer func() { _ = stmt.Close() }()

			for _, cat := range model.DefaultCategories() {
				if _, err := stmt.Exec(cat.ID, cat.Name, string(cat.Type), cat.Icon, cat.Color, cat.Description); err != nil {
					return fmt.Errorf("failed to seed category %q: %w", cat.Name, err)
				}
			}
			return nil
		},
	},
	{
		Version:     3,
		Description: "Add correction history",
		Up: func(tx *sql.Tx) error {
			return execAll(tx, []string{
				`CREATE TABLE IF NOT EXISTS corrections (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					transaction_id TEXT NOT NULL REFERENCES transactions(id),
					user_id INTEGER NOT NULL,
					merchant_normalized TEXT NOT NULL,
					original_category_id INTEGER NOT NULL,
					corrected_category_id INTEGER NOT NULL,
					note TEXT NOT NULL DEFAULT '',
					corrected_at DATETIME NOT NULL
				)`,
				`CREATE INDEX idx_corrections_transaction ON corrections(transaction_id)`,
				`CREATE INDEX idx_corrections_user_time ON corrections(user_id, corrected_at)`,
			})
		},
	},
	{
		Version:     4,
		Description: "Add merchant mappings",
		Up: func(tx *sql.Tx) error {
			return execAll(tx, []string{
				`CREATE TABLE IF NOT EXISTS merchant_mappings (
					user_id INTEGER NOT NULL,
					merchant_normalized TEXT NOT NULL,
					category_id INTEGER NOT NULL REFERENCES categories(id) ON DELETE CASCADE,
					confidence REAL NOT NULL,
					source TEXT NOT NULL CHECK (source IN ('classifier', 'user')),
					use_count INTEGER NOT NULL DEFAULT 0,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					PRIMARY KEY (user_id, merchant_normalized)
				)`,
				`CREATE INDEX idx_merchant_mappings_category ON merchant_mappings(category_id)`,
			})
		},
	},
}

// SchemaVersion returns the version recorded in the database.
func (s *SQLiteStorage) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}

// Migrate applies all pending database migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	currentVersion, err := s.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	finalVersion, err := s.SchemaVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}
