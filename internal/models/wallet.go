package models

import "github.com/shopspring/decimal"

// WalletAccount holds one user's balance.
// Only the settlement ledger mutates it.
type WalletAccount struct {
	UserID    string          `json:"user_id"`
	Balance   decimal.Decimal `json:"balance"`
	UpdatedAt int64           `json:"updated_at"`
}

// EntryKind distinguishes money received from money owed.
type EntryKind string

const (
	EntryCredit EntryKind = "credit"
	EntryDebit  EntryKind = "debit"
)

// LedgerEntry is one posting against a wallet made by a settlement.
type LedgerEntry struct {
	// ID is the unique identifier for the entry (UUID format).
	ID string `json:"id"`

	// SettlementKey identifies the settlement ("{group}:{cycle}").
	// A wallet receives at most one entry of each kind per key.
	SettlementKey string `json:"settlement_key"`

	// GroupID is the group whose completion produced the entry.
	GroupID string `json:"group_id"`

	// UserID owns the wallet being posted to.
	UserID string `json:"user_id"`

	// Kind is credit or debit.
	Kind EntryKind `json:"kind"`

	// Amount is the signed balance delta (negative for debits).
	Amount decimal.Decimal `json:"amount"`

	// CreatedAt is the Unix timestamp when the entry was posted.
	CreatedAt int64 `json:"created_at"`
}
