// Package ledger settles a completed order against participant wallets.
package ledger

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitorder/internal/calculator"
	"github.com/mmynk/splitorder/internal/models"
	"github.com/mmynk/splitorder/internal/storage"
)

// SettlementRequest describes one completed order cycle to pay out.
type SettlementRequest struct {
	GroupID        string
	Cycle          int64
	OrdererID      string
	ParticipantIDs []string
	TotalAmount    decimal.Decimal
}

// Key identifies the settlement. A cycle is settled at most once.
func (r SettlementRequest) Key() string {
	return fmt.Sprintf("%s:%d", r.GroupID, r.Cycle)
}

// Ledger posts settlement entries through a storage.LedgerTx.
// It holds no state of its own; every posting lives in the caller's
// transaction and rolls back with it.
type Ledger struct {
	logger *slog.Logger
}

// New creates a Ledger. A nil logger uses slog.Default().
func New(logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{logger: logger}
}

// Settle credits the orderer the full total and debits every other
// participant their equal share. The orderer's own share is not posted, so
// the orderer nets the whole total.
//
// Any failing posting aborts the settlement; the caller must roll back tx.
func (l *Ledger) Settle(ctx context.Context, tx storage.LedgerTx, req SettlementRequest) ([]models.LedgerEntry, error) {
	shares, err := calculator.SplitEqually(req.TotalAmount, req.OrdererID, req.ParticipantIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to split settlement: %w", err)
	}

	key := req.Key()
	entries := make([]models.LedgerEntry, 0, len(shares))

	credit := models.LedgerEntry{
		SettlementKey: key,
		GroupID:       req.GroupID,
		UserID:        req.OrdererID,
		Kind:          models.EntryCredit,
		Amount:        req.TotalAmount,
	}
	if err := tx.PostEntry(ctx, &credit); err != nil {
		return nil, fmt.Errorf("failed to credit orderer %s: %w", req.OrdererID, err)
	}
	entries = append(entries, credit)

	for _, share := range shares {
		if share.UserID == req.OrdererID {
			continue
		}
		debit := models.LedgerEntry{
			SettlementKey: key,
			GroupID:       req.GroupID,
			UserID:        share.UserID,
			Kind:          models.EntryDebit,
			Amount:        share.Amount.Neg(),
		}
		if err := tx.PostEntry(ctx, &debit); err != nil {
			return nil, fmt.Errorf("failed to debit %s: %w", share.UserID, err)
		}
		entries = append(entries, debit)
	}

	l.logger.DebugContext(ctx, "Settlement posted",
		"group_id", req.GroupID,
		"settlement_key", key,
		"total", req.TotalAmount.String(),
		"entries", len(entries),
	)

	return entries, nil
}
