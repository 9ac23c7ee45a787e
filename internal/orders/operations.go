package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitorder/internal/models"
	"github.com/mmynk/splitorder/internal/storage"
)

// CreateOrderGroup bootstraps the pending aggregate for a new chat group.
// The requester must be one of the participants.
func (c *Coordinator) CreateOrderGroup(ctx context.Context, groupID, requesterID string, participantIDs []string) (models.Snapshot, error) {
	if requesterID == "" {
		return models.Snapshot{}, ErrUnauthorized
	}
	if groupID == "" {
		return models.Snapshot{}, fmt.Errorf("%w: group ID is required", ErrInvalidInput)
	}
	if len(participantIDs) == 0 {
		return models.Snapshot{}, fmt.Errorf("%w: at least one participant is required", ErrInvalidInput)
	}

	seen := make(map[string]bool, len(participantIDs))
	for _, id := range participantIDs {
		if id == "" {
			return models.Snapshot{}, fmt.Errorf("%w: participant ID cannot be empty", ErrInvalidInput)
		}
		if seen[id] {
			return models.Snapshot{}, fmt.Errorf("%w: duplicate participant %s", ErrInvalidInput, id)
		}
		seen[id] = true
	}
	if !seen[requesterID] {
		return models.Snapshot{}, fmt.Errorf("%w: creator must be a participant", ErrForbidden)
	}

	group := &models.OrderGroup{
		ID:             groupID,
		ParticipantIDs: participantIDs,
		Status:         models.StatusPending,
		Version:        1,
		LastUpdated:    c.now().UTC(),
	}
	err := c.store.CreateOrderGroup(ctx, group)
	if errors.Is(err, storage.ErrAlreadyExists) {
		return models.Snapshot{}, fmt.Errorf("%w: %s", ErrAlreadyExists, groupID)
	}
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("failed to create group %s: %w", groupID, err)
	}

	c.logger.Info("Order group created",
		"group_id", groupID,
		"participants", len(participantIDs),
		"user_id", requesterID,
	)

	snapshot := group.Snapshot()
	c.publisher.Publish(groupID, snapshot)
	return snapshot, nil
}

// GetOrderState returns the latest committed snapshot.
func (c *Coordinator) GetOrderState(ctx context.Context, groupID, requesterID string) (models.Snapshot, error) {
	group, err := c.load(ctx, groupID, requesterID)
	if err != nil {
		return models.Snapshot{}, err
	}
	return group.Snapshot(), nil
}

// AssignOrderer picks who places the order. Naming the current orderer, or
// nobody, clears the choice.
func (c *Coordinator) AssignOrderer(ctx context.Context, groupID, requesterID, targetUserID string) (models.Snapshot, error) {
	return c.mutate(ctx, "assign_orderer", groupID, requesterID, func(g *models.OrderGroup) (change, error) {
		if g.Status != models.StatusPending {
			return change{}, fmt.Errorf("%w: orderer can only change while pending, group is %s", ErrInvalidState, g.Status)
		}

		if targetUserID == "" || targetUserID == g.OrdererID {
			if g.OrdererID == "" {
				return change{skip: true}, nil
			}
			g.OrdererID = ""
			return change{}, nil
		}

		if !g.HasParticipant(targetUserID) {
			return change{}, fmt.Errorf("%w: %s is not a participant", ErrInvalidInput, targetUserID)
		}
		g.OrdererID = targetUserID
		return change{}, nil
	})
}

// SetOrderStatus moves the group along the state machine:
//
//	pending   -> ordered   (an orderer must be chosen)
//	ordered   -> paid | delivered
//	paid      -> delivered
//	completed -> pending   (reset, records the completed cycle)
//	any other -> pending   (same as CancelOrder)
//
// Completion is never requested directly. A group that becomes delivered
// after everyone already confirmed receipt completes in the same commit;
// otherwise the last MarkReceived completes it.
func (c *Coordinator) SetOrderStatus(ctx context.Context, groupID, requesterID string, status models.OrderStatus) (models.Snapshot, error) {
	if !status.Valid() {
		return models.Snapshot{}, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}

	return c.mutate(ctx, "set_order_status", groupID, requesterID, func(g *models.OrderGroup) (change, error) {
		switch status {
		case models.StatusPending:
			return reset(g)
		case models.StatusCancelled:
			return cancel(g)
		}

		if !canTransition(g.Status, status) {
			return change{}, fmt.Errorf("%w: cannot move from %s to %s", ErrInvalidState, g.Status, status)
		}
		if status == models.StatusOrdered && g.OrdererID == "" {
			return change{}, fmt.Errorf("%w: an orderer must be assigned first", ErrInvalidState)
		}
		g.Status = status
		return completeIfReceived(g), nil
	})
}

// SetUserStatus records one progress flag for one participant. It never
// changes the group status.
func (c *Coordinator) SetUserStatus(ctx context.Context, groupID, requesterID, targetUserID string, sub models.SubStatus) (models.Snapshot, error) {
	if !sub.Valid() {
		return models.Snapshot{}, fmt.Errorf("%w: unknown sub-status %q", ErrInvalidInput, sub)
	}

	return c.mutate(ctx, "set_user_status", groupID, requesterID, func(g *models.OrderGroup) (change, error) {
		if !g.HasParticipant(targetUserID) {
			return change{}, fmt.Errorf("%w: %s is not a participant", ErrInvalidInput, targetUserID)
		}
		if !isActive(g.Status) {
			return change{}, fmt.Errorf("%w: no order in progress, group is %s", ErrInvalidState, g.Status)
		}

		cur := g.PerUserStatus[targetUserID]
		next := cur.With(sub)
		if next == cur {
			return change{skip: true}, nil
		}
		g.PerUserStatus[targetUserID] = next
		return change{}, nil
	})
}

// MarkReceived confirms the requester has their food. The confirmation that
// leaves a delivered group with every participant received completes the
// order and settles it in the same commit. Calls after completion return
// the completed snapshot unchanged.
func (c *Coordinator) MarkReceived(ctx context.Context, groupID, requesterID string) (models.Snapshot, error) {
	return c.mutate(ctx, "mark_received", groupID, requesterID, func(g *models.OrderGroup) (change, error) {
		if g.Status == models.StatusCompleted {
			return change{skip: true}, nil
		}
		if !isActive(g.Status) {
			return change{}, fmt.Errorf("%w: no order in progress, group is %s", ErrInvalidState, g.Status)
		}

		st := g.PerUserStatus[requesterID]
		alreadyReceived := st.Received
		g.PerUserStatus[requesterID] = st.With(models.SubStatusReceived)

		if ch := completeIfReceived(g); ch.settle {
			return ch, nil
		}
		if alreadyReceived {
			return change{skip: true}, nil
		}
		return change{}, nil
	})
}

// completeIfReceived completes and settles a delivered group once every
// participant has received.
func completeIfReceived(g *models.OrderGroup) change {
	if g.Status != models.StatusDelivered || g.Settled || !g.AllReceived() {
		return change{}
	}
	g.Status = models.StatusCompleted
	g.Settled = true
	return change{settle: true}
}

// CancelOrder abandons the order in progress, records it as cancelled, and
// returns the group to pending. On a pending group it only clears a chosen
// orderer, so repeated calls are harmless.
func (c *Coordinator) CancelOrder(ctx context.Context, groupID, requesterID string) (models.Snapshot, error) {
	return c.mutate(ctx, "cancel_order", groupID, requesterID, cancel)
}

// SetOrderDetails records the provider and the total that settlement will
// split. Only the orderer may set them, and only before payment.
func (c *Coordinator) SetOrderDetails(ctx context.Context, groupID, requesterID, providerID string, total decimal.Decimal) (models.Snapshot, error) {
	if total.IsNegative() {
		return models.Snapshot{}, fmt.Errorf("%w: total cannot be negative", ErrInvalidInput)
	}

	return c.mutate(ctx, "set_order_details", groupID, requesterID, func(g *models.OrderGroup) (change, error) {
		if g.OrdererID != requesterID {
			return change{}, fmt.Errorf("%w: only the orderer can set order details", ErrForbidden)
		}
		if g.Status != models.StatusPending && g.Status != models.StatusOrdered {
			return change{}, fmt.Errorf("%w: details are fixed once the group is %s", ErrInvalidState, g.Status)
		}
		if g.ProviderID == providerID && g.TotalAmount.Equal(total) {
			return change{skip: true}, nil
		}
		g.ProviderID = providerID
		g.TotalAmount = total
		return change{}, nil
	})
}

// ListOrderHistory returns the group's finished cycles, newest first.
func (c *Coordinator) ListOrderHistory(ctx context.Context, groupID, requesterID string) ([]*models.OrderHistoryRecord, error) {
	if _, err := c.load(ctx, groupID, requesterID); err != nil {
		return nil, err
	}

	records, err := c.store.ListOrderHistory(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list history for %s: %w", groupID, err)
	}
	return records, nil
}

// GetWallet returns the requester's own balance and postings.
func (c *Coordinator) GetWallet(ctx context.Context, requesterID string) (*models.WalletAccount, []*models.LedgerEntry, error) {
	if requesterID == "" {
		return nil, nil, ErrUnauthorized
	}

	wallet, err := c.store.GetWallet(ctx, requesterID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	entries, err := c.store.ListLedgerEntries(ctx, requesterID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	return wallet, entries, nil
}

// reset implements an explicit transition to pending.
func reset(g *models.OrderGroup) (change, error) {
	switch g.Status {
	case models.StatusCompleted:
		endCycle(g)
		return change{history: models.OutcomeCompleted}, nil
	case models.StatusPending:
		return clearOrderer(g)
	default:
		return cancel(g)
	}
}

func cancel(g *models.OrderGroup) (change, error) {
	switch g.Status {
	case models.StatusPending:
		return clearOrderer(g)
	case models.StatusCompleted:
		return change{}, fmt.Errorf("%w: a completed order is reset, not cancelled", ErrInvalidState)
	}
	endCycle(g)
	return change{history: models.OutcomeCancelled}, nil
}

func clearOrderer(g *models.OrderGroup) (change, error) {
	if g.OrdererID == "" {
		return change{skip: true}, nil
	}
	g.OrdererID = ""
	return change{}, nil
}

// isActive reports whether an order is between placement and completion.
func isActive(s models.OrderStatus) bool {
	switch s {
	case models.StatusOrdered, models.StatusPaid, models.StatusDelivered:
		return true
	}
	return false
}

func canTransition(from, to models.OrderStatus) bool {
	switch from {
	case models.StatusPending:
		return to == models.StatusOrdered
	case models.StatusOrdered:
		return to == models.StatusPaid || to == models.StatusDelivered
	case models.StatusPaid:
		return to == models.StatusDelivered
	}
	return false
}
