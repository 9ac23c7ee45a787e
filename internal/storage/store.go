// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/mmynk/splitorder/internal/models"
)

var (
	// ErrNotFound is returned when the requested order group does not exist.
	ErrNotFound = errors.New("not found")

	// ErrVersionConflict is returned by CommitOrderGroup when the stored
	// version no longer matches the expected one.
	ErrVersionConflict = errors.New("version conflict")

	// ErrAlreadyExists is returned when creating a group that already exists.
	ErrAlreadyExists = errors.New("already exists")
)

// LedgerTx exposes wallet mutations inside a commit transaction.
// Every change made through it commits or rolls back with the aggregate.
type LedgerTx interface {
	// GetWallet returns the user's wallet, or a zero-balance wallet if the
	// user has never been settled against.
	GetWallet(ctx context.Context, userID string) (*models.WalletAccount, error)

	// PostEntry appends a ledger entry and applies its amount to the wallet.
	// Posting the same (settlement key, user, kind) twice fails.
	PostEntry(ctx context.Context, entry *models.LedgerEntry) error
}

// Commit describes one compare-and-set write of an order group.
type Commit struct {
	// Group is the new aggregate state. Its Version must be ExpectedVersion+1.
	Group *models.OrderGroup

	// ExpectedVersion is the version the mutation was computed from.
	ExpectedVersion int64

	// History, when set, is appended in the same transaction.
	History *models.OrderHistoryRecord

	// Apply, when set, runs inside the transaction after the aggregate is
	// written. Returning an error rolls back the whole commit.
	Apply func(ctx context.Context, tx LedgerTx) error
}

// OrderStateStore holds one OrderGroup document per group.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL, etc.)
// without changing the coordinator.
type OrderStateStore interface {
	// CreateOrderGroup persists a new pending group.
	// Returns ErrAlreadyExists if the ID is taken.
	CreateOrderGroup(ctx context.Context, group *models.OrderGroup) error

	// GetOrderGroup is a point read of the latest committed aggregate.
	// Returns ErrNotFound if the group does not exist.
	GetOrderGroup(ctx context.Context, groupID string) (*models.OrderGroup, error)

	// CommitOrderGroup atomically replaces the aggregate if its stored version
	// still equals c.ExpectedVersion. Returns ErrVersionConflict otherwise and
	// ErrNotFound if the group is gone.
	CommitOrderGroup(ctx context.Context, c Commit) error

	// ListOrderHistory returns the group's history, newest first.
	ListOrderHistory(ctx context.Context, groupID string) ([]*models.OrderHistoryRecord, error)

	// GetWallet returns the user's wallet (zero balance if never settled).
	GetWallet(ctx context.Context, userID string) (*models.WalletAccount, error)

	// ListLedgerEntries returns the user's postings, newest first.
	ListLedgerEntries(ctx context.Context, userID string) ([]*models.LedgerEntry, error)

	// Close releases any resources held by the store.
	Close() error
}
