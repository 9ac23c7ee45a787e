package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mmynk/splitorder/internal/models"
	"github.com/mmynk/splitorder/internal/storage"
)

// ledgerTx applies ledger postings inside a CommitOrderGroup transaction.
type ledgerTx struct {
	q   querier
	now func() time.Time
}

var _ storage.LedgerTx = (*ledgerTx)(nil)

func (t *ledgerTx) GetWallet(ctx context.Context, userID string) (*models.WalletAccount, error) {
	return getWallet(ctx, t.q, userID)
}

// PostEntry inserts the entry and moves the wallet balance by entry.Amount.
// The unique (settlement_key, user_id, kind) index rejects a second posting.
func (t *ledgerTx) PostEntry(ctx context.Context, entry *models.LedgerEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt == 0 {
		entry.CreatedAt = t.now().Unix()
	}

	_, err := t.q.ExecContext(ctx,
		`INSERT INTO ledger_entries (id, settlement_key, group_id, user_id, kind, amount, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.SettlementKey, entry.GroupID, entry.UserID, string(entry.Kind), entry.Amount, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert ledger entry: %w", err)
	}

	wallet, err := getWallet(ctx, t.q, entry.UserID)
	if err != nil {
		return err
	}

	_, err = t.q.ExecContext(ctx,
		`INSERT INTO wallets (user_id, balance, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET balance = excluded.balance, updated_at = excluded.updated_at`,
		entry.UserID, wallet.Balance.Add(entry.Amount), entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update wallet: %w", err)
	}

	return nil
}

// GetWallet retrieves a user's wallet. Users never settled against have a
// zero balance.
func (s *SQLiteStore) GetWallet(ctx context.Context, userID string) (*models.WalletAccount, error) {
	return getWallet(ctx, s.db, userID)
}

func getWallet(ctx context.Context, q querier, userID string) (*models.WalletAccount, error) {
	wallet := &models.WalletAccount{UserID: userID}
	err := q.QueryRowContext(ctx,
		"SELECT balance, updated_at FROM wallets WHERE user_id = ?",
		userID,
	).Scan(&wallet.Balance, &wallet.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		wallet.Balance = decimal.Zero
		return wallet, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	return wallet, nil
}

// ListLedgerEntries retrieves all postings against a user's wallet, newest first.
func (s *SQLiteStore) ListLedgerEntries(ctx context.Context, userID string) ([]*models.LedgerEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, settlement_key, group_id, user_id, kind, amount, created_at
		 FROM ledger_entries WHERE user_id = ? ORDER BY created_at DESC, settlement_key DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []*models.LedgerEntry
	for rows.Next() {
		entry := &models.LedgerEntry{}
		if err := rows.Scan(&entry.ID, &entry.SettlementKey, &entry.GroupID, &entry.UserID,
			&entry.Kind, &entry.Amount, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ledger entries: %w", err)
	}

	return entries, nil
}
