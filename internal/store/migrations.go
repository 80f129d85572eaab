package store

import (
	"context"
	"database/sql"
	"fmt"

	"fjacquet/bankfeed/internal/logging"
)

// SchemaVersion is the schema the code expects after migrating.
const SchemaVersion = 2

type migration struct {
	version     int
	description string
	statements  []string
}

var migrations = []migration{
	{
		version:     1,
		description: "Initial schema",
		statements: []string{
			`CREATE TABLE IF NOT EXISTS accounts (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				bank_id TEXT NOT NULL,
				bank_name TEXT NOT NULL DEFAULT '',
				account_last4 TEXT NOT NULL DEFAULT '',
				created_at DATETIME NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS imports (
				id TEXT PRIMARY KEY,
				account_id TEXT NOT NULL,
				bank_id TEXT NOT NULL,
				file_name TEXT NOT NULL,
				imported_at DATETIME NOT NULL,
				parsed_count INTEGER NOT NULL DEFAULT 0,
				inserted_count INTEGER NOT NULL DEFAULT 0,
				duplicate_count INTEGER NOT NULL DEFAULT 0,
				possible_duplicates INTEGER NOT NULL DEFAULT 0,
				error_count INTEGER NOT NULL DEFAULT 0,
				skipped_count INTEGER NOT NULL DEFAULT 0
			)`,
			`CREATE INDEX IF NOT EXISTS idx_imports_account ON imports(account_id)`,
			`CREATE TABLE IF NOT EXISTS transactions (
				id TEXT PRIMARY KEY,
				account_id TEXT NOT NULL,
				import_id TEXT NOT NULL DEFAULT '',
				fingerprint TEXT NOT NULL,
				date TEXT NOT NULL,
				value_date TEXT,
				description TEXT NOT NULL,
				amount TEXT NOT NULL,
				balance TEXT,
				reference_no TEXT NOT NULL DEFAULT '',
				transaction_type TEXT NOT NULL,
				source TEXT NOT NULL,
				bank_name TEXT NOT NULL DEFAULT '',
				original_data TEXT NOT NULL DEFAULT '{}',
				merchant_key TEXT NOT NULL DEFAULT '',
				category TEXT NOT NULL DEFAULT '',
				is_duplicate INTEGER NOT NULL DEFAULT 0,
				is_internal_transfer INTEGER NOT NULL DEFAULT 0,
				linked_account_id TEXT NOT NULL DEFAULT '',
				linked_transaction_id TEXT NOT NULL DEFAULT '',
				transfer_group_id TEXT NOT NULL DEFAULT '',
				created_at DATETIME NOT NULL,
				UNIQUE (account_id, fingerprint)
			)`,
			`CREATE INDEX IF NOT EXISTS idx_transactions_account_date ON transactions(account_id, date)`,
			`CREATE INDEX IF NOT EXISTS idx_transactions_import ON transactions(import_id)`,
			`CREATE INDEX IF NOT EXISTS idx_transactions_merchant ON transactions(account_id, merchant_key)`,
			`CREATE INDEX IF NOT EXISTS idx_transactions_linked ON transactions(linked_transaction_id)`,
			`CREATE TABLE IF NOT EXISTS category_rules (
				merchant_key TEXT NOT NULL,
				created_by TEXT NOT NULL,
				root_category TEXT NOT NULL,
				sub_category TEXT NOT NULL DEFAULT '',
				confidence REAL NOT NULL,
				usage_count INTEGER NOT NULL DEFAULT 0,
				last_used DATETIME NOT NULL,
				created_at DATETIME NOT NULL,
				PRIMARY KEY (merchant_key, created_by)
			)`,
		},
	},
	{
		version:     2,
		description: "Import categorization and transfer counters",
		statements: []string{
			`ALTER TABLE imports ADD COLUMN categorized_count INTEGER NOT NULL DEFAULT 0`,
			`ALTER TABLE imports ADD COLUMN linked_transfers INTEGER NOT NULL DEFAULT 0`,
		},
	},
}

// migrate applies every migration above the database's PRAGMA user_version.
func (s *SQLiteStore) migrate(ctx context.Context) error {
	var current int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&current); err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		err := s.withTx(ctx, func(tx *sql.Tx) error {
			for _, stmt := range m.statements {
				if _, err := tx.ExecContext(ctx, stmt); err != nil {
					return fmt.Errorf("migration %d failed: %w", m.version, err)
				}
			}
			if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", m.version)); err != nil {
				return fmt.Errorf("failed to update schema version: %w", err)
			}
			return nil
		})
		if err != nil {
			return err
		}
		s.logger.Debug("Applied migration",
			logging.Field{Key: "version", Value: m.version},
			logging.Field{Key: "description", Value: m.description})
	}

	var final int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&final); err != nil {
		return fmt.Errorf("failed to verify schema version: %w", err)
	}
	if final != SchemaVersion {
		return fmt.Errorf("database schema version %d, expected %d", final, SchemaVersion)
	}
	return nil
}
