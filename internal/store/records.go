package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"fjacquet/bankfeed/internal/models"
)

func (s *SQLiteStore) GetRules(ctx context.Context, merchantKey string) ([]models.CategoryRule, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT merchant_key, created_by, root_category, sub_category,
		confidence, usage_count, last_used, created_at
		FROM category_rules WHERE merchant_key = ?
		ORDER BY CASE created_by WHEN 'user' THEN 0 ELSE 1 END`, merchantKey)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}
	return scanRules(rows)
}

func (s *SQLiteStore) ListRules(ctx context.Context) ([]models.CategoryRule, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT merchant_key, created_by, root_category, sub_category,
		confidence, usage_count, last_used, created_at
		FROM category_rules ORDER BY merchant_key, CASE created_by WHEN 'user' THEN 0 ELSE 1 END`)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}
	return scanRules(rows)
}

func scanRules(rows *sql.Rows) ([]models.CategoryRule, error) {
	defer func() { _ = rows.Close() }()
	var out []models.CategoryRule
	for rows.Next() {
		var (
			r            models.CategoryRule
			source, root string
		)
		if err := rows.Scan(&r.MerchantKey, &source, &root, &r.SubCategory, &r.Confidence,
			&r.UsageCount, &r.LastUsed, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		r.CreatedBy = models.RuleSource(source)
		r.RootCategory = models.CategoryID(root)
		out = append(out, r)
	}
	return out, rows.Err()
}

// SaveRule upserts on (merchant_key, created_by).
func (s *SQLiteStore) SaveRule(ctx context.Context, r models.CategoryRule) error {
	now := time.Now().UTC()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	if r.LastUsed.IsZero() {
		r.LastUsed = now
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO category_rules
		(merchant_key, created_by, root_category, sub_category, confidence, usage_count, last_used, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (merchant_key, created_by) DO UPDATE SET
			root_category = excluded.root_category,
			sub_category = excluded.sub_category,
			confidence = excluded.confidence,
			usage_count = excluded.usage_count,
			last_used = excluded.last_used`,
		r.MerchantKey, string(r.CreatedBy), string(r.RootCategory), r.SubCategory, r.Confidence,
		r.UsageCount, r.LastUsed, r.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save rule for %s: %w", r.MerchantKey, err)
	}
	return nil
}

func (s *SQLiteStore) SaveAccount(ctx context.Context, a models.Account) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO accounts (id, name, bank_id, bank_name, account_last4, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name, bank_id = excluded.bank_id,
			bank_name = excluded.bank_name, account_last4 = excluded.account_last4`,
		a.ID, a.Name, a.BankID, a.BankName, a.AccountLast4, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save account %s: %w", a.ID, err)
	}
	return nil
}

const accountColumns = `id, name, bank_id, bank_name, account_last4, created_at`

func scanAccount(row rowScanner) (models.Account, error) {
	var a models.Account
	err := row.Scan(&a.ID, &a.Name, &a.BankID, &a.BankName, &a.AccountLast4, &a.CreatedAt)
	return a, err
}

func (s *SQLiteStore) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	a, err := scanAccount(s.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("account %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account %s: %w", id, err)
	}
	return &a, nil
}

func (s *SQLiteStore) ListAccounts(ctx context.Context) ([]models.Account, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []models.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

const importColumns = `id, account_id, bank_id, file_name, imported_at, parsed_count, inserted_count,
	duplicate_count, possible_duplicates, error_count, skipped_count, categorized_count, linked_transfers`

func scanImport(row rowScanner) (models.ImportRecord, error) {
	var r models.ImportRecord
	err := row.Scan(&r.ID, &r.AccountID, &r.BankID, &r.FileName, &r.ImportedAt, &r.ParsedCount,
		&r.InsertedCount, &r.DuplicateCount, &r.PossibleDuplicates, &r.ErrorCount, &r.SkippedCount,
		&r.CategorizedCount, &r.LinkedTransfers)
	return r, err
}

// SaveImport inserts or replaces an import record.
func (s *SQLiteStore) SaveImport(ctx context.Context, r models.ImportRecord) error {
	if r.ImportedAt.IsZero() {
		r.ImportedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `INSERT OR REPLACE INTO imports (`+importColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.AccountID, r.BankID, r.FileName, r.ImportedAt, r.ParsedCount, r.InsertedCount,
		r.DuplicateCount, r.PossibleDuplicates, r.ErrorCount, r.SkippedCount, r.CategorizedCount,
		r.LinkedTransfers)
	if err != nil {
		return fmt.Errorf("failed to save import %s: %w", r.ID, err)
	}
	return nil
}

func (s *SQLiteStore) GetImport(ctx context.Context, id string) (*models.ImportRecord, error) {
	r, err := scanImport(s.db.QueryRowContext(ctx, `SELECT `+importColumns+` FROM imports WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("import %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get import %s: %w", id, err)
	}
	return &r, nil
}

// ListImports returns imports for accountID, or every import when accountID is empty.
func (s *SQLiteStore) ListImports(ctx context.Context, accountID string) ([]models.ImportRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+importColumns+` FROM imports
		WHERE ? = '' OR account_id = ? ORDER BY imported_at`, accountID, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to query imports: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []models.ImportRecord
	for rows.Next() {
		r, err := scanImport(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan import: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// DeleteImport cascades to the import's transactions in one database transaction.
func (s *SQLiteStore) DeleteImport(ctx context.Context, id string) (int, error) {
	var removed int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM imports WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to delete import %s: %w", id, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("import %s: %w", id, ErrNotFound)
		}
		if _, err := tx.ExecContext(ctx, unlinkPartnersSQL, id, id); err != nil {
			return fmt.Errorf("failed to unlink transfer partners: %w", err)
		}
		res, err = tx.ExecContext(ctx, `DELETE FROM transactions WHERE import_id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to delete transactions of import %s: %w", id, err)
		}
		removed, _ = res.RowsAffected()
		return nil
	})
	return int(removed), err
}
