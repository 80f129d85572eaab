package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"fjacquet/bankfeed/internal/models"
)

// MemoryStore keeps everything in maps. It is safe for concurrent use.
type MemoryStore struct {
	mu sync.RWMutex

	txns         map[string]models.StoredTransaction
	seq          map[string]int // insertion order, for stable listings
	next         int
	fingerprints map[string]map[string]string // account -> fingerprint -> id
	rules        map[string]map[models.RuleSource]models.CategoryRule
	accounts     map[string]models.Account
	imports      map[string]models.ImportRecord
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		txns:         make(map[string]models.StoredTransaction),
		seq:          make(map[string]int),
		fingerprints: make(map[string]map[string]string),
		rules:        make(map[string]map[models.RuleSource]models.CategoryRule),
		accounts:     make(map[string]models.Account),
		imports:      make(map[string]models.ImportRecord),
	}
}

func (m *MemoryStore) InsertTransactions(ctx context.Context, txns []models.StoredTransaction) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	// Validate the whole batch first so a failure leaves nothing behind.
	batch := make(map[string]bool, len(txns))
	for _, tx := range txns {
		key := tx.AccountID + "\x00" + tx.Fingerprint
		if _, exists := m.fingerprints[tx.AccountID][tx.Fingerprint]; exists || batch[key] {
			return 0, fmt.Errorf("%w: %s", ErrDuplicate, tx.Fingerprint)
		}
		if _, exists := m.txns[tx.ID]; exists {
			return 0, fmt.Errorf("transaction %s already exists", tx.ID)
		}
		batch[key] = true
	}

	for _, tx := range txns {
		if tx.CreatedAt.IsZero() {
			tx.CreatedAt = time.Now().UTC()
		}
		m.txns[tx.ID] = tx
		m.seq[tx.ID] = m.next
		m.next++
		if m.fingerprints[tx.AccountID] == nil {
			m.fingerprints[tx.AccountID] = make(map[string]string)
		}
		m.fingerprints[tx.AccountID][tx.Fingerprint] = tx.ID
	}
	return len(txns), nil
}

func (m *MemoryStore) GetTransaction(ctx context.Context, id string) (*models.StoredTransaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tx, ok := m.txns[id]
	if !ok {
		return nil, fmt.Errorf("transaction %s: %w", id, ErrNotFound)
	}
	return &tx, nil
}

func (m *MemoryStore) UpdateTransactions(ctx context.Context, txns ...models.StoredTransaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, tx := range txns {
		if _, ok := m.txns[tx.ID]; !ok {
			return fmt.Errorf("transaction %s: %w", tx.ID, ErrNotFound)
		}
	}
	for _, tx := range txns {
		cur := m.txns[tx.ID]
		cur.MerchantKey = tx.MerchantKey
		cur.Category = tx.Category
		cur.IsDuplicate = tx.IsDuplicate
		cur.IsInternalTransfer = tx.IsInternalTransfer
		cur.LinkedAccountID = tx.LinkedAccountID
		cur.LinkedTransactionID = tx.LinkedTransactionID
		cur.TransferGroupID = tx.TransferGroupID
		m.txns[tx.ID] = cur
	}
	return nil
}

func (m *MemoryStore) DeleteTransaction(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.txns[id]; !ok {
		return fmt.Errorf("transaction %s: %w", id, ErrNotFound)
	}
	m.deleteLocked(id)
	return nil
}

func (m *MemoryStore) deleteLocked(id string) {
	tx := m.txns[id]
	delete(m.fingerprints[tx.AccountID], tx.Fingerprint)
	delete(m.txns, id)
	delete(m.seq, id)
}

func (m *MemoryStore) ListTransactionsByAccount(ctx context.Context, accountID string) ([]models.StoredTransaction, error) {
	return m.filter(func(tx models.StoredTransaction) bool { return tx.AccountID == accountID }), nil
}

func (m *MemoryStore) ListTransactionsByImport(ctx context.Context, importID string) ([]models.StoredTransaction, error) {
	return m.filter(func(tx models.StoredTransaction) bool { return tx.ImportID == importID }), nil
}

func (m *MemoryStore) ListTransactionsByMerchantKey(ctx context.Context, accountID, merchantKey string) ([]models.StoredTransaction, error) {
	return m.filter(func(tx models.StoredTransaction) bool {
		return tx.AccountID == accountID && tx.MerchantKey == merchantKey
	}), nil
}

func (m *MemoryStore) ListTransactionsInDateRange(ctx context.Context, accountID string, from, to time.Time) ([]models.StoredTransaction, error) {
	from, to = dayStart(from), dayStart(to)
	return m.filter(func(tx models.StoredTransaction) bool {
		d := dayStart(tx.Date)
		return tx.AccountID == accountID && !d.Before(from) && !d.After(to)
	}), nil
}

func (m *MemoryStore) FindByFingerprint(ctx context.Context, accountID, fingerprint string) (*models.StoredTransaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.fingerprints[accountID][fingerprint]
	if !ok {
		return nil, fmt.Errorf("fingerprint %s: %w", fingerprint, ErrNotFound)
	}
	tx := m.txns[id]
	return &tx, nil
}

// filter returns matches ordered by date, then insertion order.
func (m *MemoryStore) filter(keep func(models.StoredTransaction) bool) []models.StoredTransaction {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.StoredTransaction
	for _, tx := range m.txns {
		if keep(tx) {
			out = append(out, tx)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return m.seq[out[i].ID] < m.seq[out[j].ID]
	})
	return out
}

func (m *MemoryStore) GetRules(ctx context.Context, merchantKey string) ([]models.CategoryRule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.CategoryRule
	for _, src := range []models.RuleSource{models.RuleSourceUser, models.RuleSourceSystem} {
		if r, ok := m.rules[merchantKey][src]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *MemoryStore) SaveRule(ctx context.Context, rule models.CategoryRule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rules[rule.MerchantKey] == nil {
		m.rules[rule.MerchantKey] = make(map[models.RuleSource]models.CategoryRule)
	}
	m.rules[rule.MerchantKey][rule.CreatedBy] = rule
	return nil
}

func (m *MemoryStore) ListRules(ctx context.Context) ([]models.CategoryRule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.CategoryRule
	for _, bySource := range m.rules {
		for _, r := range bySource {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].MerchantKey != out[j].MerchantKey {
			return out[i].MerchantKey < out[j].MerchantKey
		}
		return out[i].CreatedBy > out[j].CreatedBy // user before system
	})
	return out, nil
}

func (m *MemoryStore) SaveAccount(ctx context.Context, account models.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now().UTC()
	}
	m.accounts[account.ID] = account
	return nil
}

func (m *MemoryStore) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.accounts[id]
	if !ok {
		return nil, fmt.Errorf("account %s: %w", id, ErrNotFound)
	}
	return &a, nil
}

func (m *MemoryStore) ListAccounts(ctx context.Context) ([]models.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Account, 0, len(m.accounts))
	for _, a := range m.accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) SaveImport(ctx context.Context, rec models.ImportRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.imports[rec.ID] = rec
	return nil
}

func (m *MemoryStore) GetImport(ctx context.Context, id string) (*models.ImportRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.imports[id]
	if !ok {
		return nil, fmt.Errorf("import %s: %w", id, ErrNotFound)
	}
	return &rec, nil
}

func (m *MemoryStore) ListImports(ctx context.Context, accountID string) ([]models.ImportRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.ImportRecord
	for _, rec := range m.imports {
		if accountID == "" || rec.AccountID == accountID {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ImportedAt.Before(out[j].ImportedAt) })
	return out, nil
}

func (m *MemoryStore) DeleteImport(ctx context.Context, id string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.imports[id]; !ok {
		return 0, fmt.Errorf("import %s: %w", id, ErrNotFound)
	}

	removed := map[string]bool{}
	for txID, tx := range m.txns {
		if tx.ImportID == id {
			removed[txID] = true
		}
	}
	for txID, tx := range m.txns {
		if !removed[txID] && removed[tx.LinkedTransactionID] {
			tx.ClearTransfer()
			m.txns[txID] = tx
		}
	}
	for txID := range removed {
		m.deleteLocked(txID)
	}
	delete(m.imports, id)
	return len(removed), nil
}

// Close is a no-op.
func (m *MemoryStore) Close() error { return nil }
