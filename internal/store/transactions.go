package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"fjacquet/bankfeed/internal/dateutils"
	"fjacquet/bankfeed/internal/models"

	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
)

const transactionColumns = `id, account_id, import_id, fingerprint, date, value_date, description,
	amount, balance, reference_no, transaction_type, source, bank_name, original_data,
	merchant_key, category, is_duplicate, is_internal_transfer, linked_account_id,
	linked_transaction_id, transfer_group_id, created_at`

// InsertTransactions writes the batch in one transaction.
func (s *SQLiteStore) InsertTransactions(ctx context.Context, txns []models.StoredTransaction) (int, error) {
	if len(txns) == 0 {
		return 0, nil
	}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO transactions (`+transactionColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for _, t := range txns {
			args, err := transactionArgs(t)
			if err != nil {
				return err
			}
			if _, err := stmt.ExecContext(ctx, args...); err != nil {
				var sqliteErr sqlite3.Error
				if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
					return fmt.Errorf("%w: %s", ErrDuplicate, t.Fingerprint)
				}
				return fmt.Errorf("failed to insert transaction %s: %w", t.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(txns), nil
}

func transactionArgs(t models.StoredTransaction) ([]any, error) {
	original, err := json.Marshal(t.OriginalData)
	if err != nil {
		return nil, fmt.Errorf("failed to encode original data: %w", err)
	}
	var valueDate, balance sql.NullString
	if t.ValueDate != nil {
		valueDate = sql.NullString{String: dateutils.ToISODate(*t.ValueDate), Valid: true}
	}
	if t.Balance != nil {
		balance = sql.NullString{String: t.Balance.String(), Valid: true}
	}
	created := t.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	return []any{
		t.ID, t.AccountID, t.ImportID, t.Fingerprint, dateutils.ToISODate(t.Date), valueDate,
		t.Description, t.Amount.String(), balance, t.ReferenceNo, string(t.TransactionType),
		t.Source, t.BankName, string(original), t.MerchantKey, string(t.Category),
		t.IsDuplicate, t.IsInternalTransfer, t.LinkedAccountID, t.LinkedTransactionID,
		t.TransferGroupID, created,
	}, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (models.StoredTransaction, error) {
	var (
		t                  models.StoredTransaction
		date, amount       string
		valueDate, balance sql.NullString
		original           string
		txType, category   string
	)
	err := row.Scan(&t.ID, &t.AccountID, &t.ImportID, &t.Fingerprint, &date, &valueDate,
		&t.Description, &amount, &balance, &t.ReferenceNo, &txType, &t.Source, &t.BankName,
		&original, &t.MerchantKey, &category, &t.IsDuplicate, &t.IsInternalTransfer,
		&t.LinkedAccountID, &t.LinkedTransactionID, &t.TransferGroupID, &t.CreatedAt)
	if err != nil {
		return t, err
	}

	if t.Date, err = time.Parse(dateutils.DateLayoutISO, date); err != nil {
		return t, fmt.Errorf("transaction %s: bad date %q: %w", t.ID, date, err)
	}
	if valueDate.Valid {
		if vd, err := time.Parse(dateutils.DateLayoutISO, valueDate.String); err == nil {
			t.ValueDate = &vd
		}
	}
	if t.Amount, err = decimal.NewFromString(amount); err != nil {
		return t, fmt.Errorf("transaction %s: bad amount %q: %w", t.ID, amount, err)
	}
	if balance.Valid {
		if b, err := decimal.NewFromString(balance.String); err == nil {
			t.Balance = &b
		}
	}
	if original != "" {
		if err := json.Unmarshal([]byte(original), &t.OriginalData); err != nil {
			return t, fmt.Errorf("transaction %s: bad original data: %w", t.ID, err)
		}
	}
	t.TransactionType = models.TransactionType(txType)
	t.Category = models.CategoryID(category)
	return t, nil
}

func (s *SQLiteStore) queryTransactions(ctx context.Context, where string, args ...any) ([]models.StoredTransaction, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE `+where+` ORDER BY date, rowid`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []models.StoredTransaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) getOne(ctx context.Context, what, where string, args ...any) (*models.StoredTransaction, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE `+where, args...)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", what, err)
	}
	return &t, nil
}

func (s *SQLiteStore) GetTransaction(ctx context.Context, id string) (*models.StoredTransaction, error) {
	return s.getOne(ctx, "transaction "+id, "id = ?", id)
}

func (s *SQLiteStore) FindByFingerprint(ctx context.Context, accountID, fingerprint string) (*models.StoredTransaction, error) {
	return s.getOne(ctx, "fingerprint "+fingerprint, "account_id = ? AND fingerprint = ?", accountID, fingerprint)
}

func (s *SQLiteStore) ListTransactionsByAccount(ctx context.Context, accountID string) ([]models.StoredTransaction, error) {
	return s.queryTransactions(ctx, "account_id = ?", accountID)
}

func (s *SQLiteStore) ListTransactionsByImport(ctx context.Context, importID string) ([]models.StoredTransaction, error) {
	return s.queryTransactions(ctx, "import_id = ?", importID)
}

func (s *SQLiteStore) ListTransactionsByMerchantKey(ctx context.Context, accountID, merchantKey string) ([]models.StoredTransaction, error) {
	return s.queryTransactions(ctx, "account_id = ? AND merchant_key = ?", accountID, merchantKey)
}

func (s *SQLiteStore) ListTransactionsInDateRange(ctx context.Context, accountID string, from, to time.Time) ([]models.StoredTransaction, error) {
	return s.queryTransactions(ctx, "account_id = ? AND date BETWEEN ? AND ?",
		accountID, dateutils.ToISODate(from), dateutils.ToISODate(to))
}

// UpdateTransactions writes the mutable fields of every transaction atomically.
func (s *SQLiteStore) UpdateTransactions(ctx context.Context, txns ...models.StoredTransaction) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, t := range txns {
			res, err := tx.ExecContext(ctx, `UPDATE transactions SET
				merchant_key = ?, category = ?, is_duplicate = ?, is_internal_transfer = ?,
				linked_account_id = ?, linked_transaction_id = ?, transfer_group_id = ?
				WHERE id = ?`,
				t.MerchantKey, string(t.Category), t.IsDuplicate, t.IsInternalTransfer,
				t.LinkedAccountID, t.LinkedTransactionID, t.TransferGroupID, t.ID)
			if err != nil {
				return fmt.Errorf("failed to update transaction %s: %w", t.ID, err)
			}
			if n, _ := res.RowsAffected(); n == 0 {
				return fmt.Errorf("transaction %s: %w", t.ID, ErrNotFound)
			}
		}
		return nil
	})
}

func (s *SQLiteStore) DeleteTransaction(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete transaction %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("transaction %s: %w", id, ErrNotFound)
	}
	return nil
}

// unlinkPartnersSQL clears transfer links that point into an import being deleted.
var unlinkPartnersSQL = strings.TrimSpace(`
UPDATE transactions SET
	is_internal_transfer = 0, linked_account_id = '', linked_transaction_id = '', transfer_group_id = '',
	category = CASE WHEN category = 'transfers' THEN '' ELSE category END
WHERE import_id != ? AND linked_transaction_id IN (SELECT id FROM transactions WHERE import_id = ?)`)
