// Package orders implements the group order state machine.
//
// Every mutation is a read-modify-write of the whole OrderGroup committed by
// compare-and-set on its version. A lost race re-reads and re-decides, so
// checks like "has everyone received?" always run against the latest state.
package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mmynk/splitorder/internal/ledger"
	"github.com/mmynk/splitorder/internal/metrics"
	"github.com/mmynk/splitorder/internal/models"
	"github.com/mmynk/splitorder/internal/storage"
)

// DefaultMaxCommitAttempts bounds the compare-and-set retry loop.
const DefaultMaxCommitAttempts = 10

// Publisher receives the snapshot of every committed change.
type Publisher interface {
	Publish(groupID string, snapshot models.Snapshot)
}

// Settler pays out a completed order inside the commit transaction.
type Settler interface {
	Settle(ctx context.Context, tx storage.LedgerTx, req ledger.SettlementRequest) ([]models.LedgerEntry, error)
}

type noopPublisher struct{}

func (noopPublisher) Publish(string, models.Snapshot) {}

// Coordinator enforces the order state machine on top of an OrderStateStore.
type Coordinator struct {
	store       storage.OrderStateStore
	settler     Settler
	publisher   Publisher
	logger      *slog.Logger
	maxAttempts int
	now         func() time.Time
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) { c.logger = logger }
}

// WithMaxAttempts sets how many times a commit is tried before ErrConflict.
func WithMaxAttempts(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// New creates a Coordinator. A nil publisher discards updates.
func New(store storage.OrderStateStore, settler Settler, publisher Publisher, opts ...Option) *Coordinator {
	if publisher == nil {
		publisher = noopPublisher{}
	}
	c := &Coordinator{
		store:       store,
		settler:     settler,
		publisher:   publisher,
		logger:      slog.Default(),
		maxAttempts: DefaultMaxCommitAttempts,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// change is what a mutation decided to do with the clone it was handed.
type change struct {
	// skip leaves the stored aggregate untouched.
	skip bool

	// history appends a record of the pre-mutation snapshot.
	history models.HistoryOutcome

	// settle runs the ledger inside the commit.
	settle bool
}

// mutateFunc edits g in place. g is a private clone of the latest aggregate.
type mutateFunc func(g *models.OrderGroup) (change, error)

// load reads the group and checks the requester belongs to it.
func (c *Coordinator) load(ctx context.Context, groupID, requesterID string) (*models.OrderGroup, error) {
	if requesterID == "" {
		return nil, ErrUnauthorized
	}

	group, err := c.store.GetOrderGroup(ctx, groupID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, groupID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load group %s: %w", groupID, err)
	}

	if !group.HasParticipant(requesterID) {
		return nil, fmt.Errorf("%w: %s is not a participant of %s", ErrForbidden, requesterID, groupID)
	}
	return group, nil
}

// mutate runs fn against the latest aggregate and commits the result,
// retrying from a fresh read whenever another writer got there first.
func (c *Coordinator) mutate(ctx context.Context, op, groupID, requesterID string, fn mutateFunc) (models.Snapshot, error) {
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return models.Snapshot{}, err
		}

		cur, err := c.load(ctx, groupID, requesterID)
		if err != nil {
			return models.Snapshot{}, err
		}

		next := cur.Clone()
		ch, err := fn(next)
		if err != nil {
			return models.Snapshot{}, err
		}
		if ch.skip {
			return cur.Snapshot(), nil
		}

		next.Version = cur.Version + 1
		next.LastUpdated = c.now().UTC()

		commit := storage.Commit{Group: next, ExpectedVersion: cur.Version}
		if ch.history != "" {
			commit.History = &models.OrderHistoryRecord{
				GroupID:   cur.ID,
				Cycle:     cur.Cycle,
				Outcome:   ch.history,
				Snapshot:  cur.Snapshot(),
				CreatedAt: next.LastUpdated.Unix(),
			}
		}

		var settleErr error
		if ch.settle {
			req := ledger.SettlementRequest{
				GroupID:        next.ID,
				Cycle:          next.Cycle,
				OrdererID:      next.OrdererID,
				ParticipantIDs: next.ParticipantIDs,
				TotalAmount:    next.TotalAmount,
			}
			commit.Apply = func(ctx context.Context, tx storage.LedgerTx) error {
				_, settleErr = c.settler.Settle(ctx, tx, req)
				return settleErr
			}
		}

		err = c.store.CommitOrderGroup(ctx, commit)
		switch {
		case err == nil:
		case errors.Is(err, storage.ErrVersionConflict):
			metrics.CommitConflicts.Inc()
			if attempt >= c.maxAttempts {
				c.logger.Warn("Giving up after repeated version conflicts",
					"op", op,
					"group_id", groupID,
					"attempts", attempt,
				)
				return models.Snapshot{}, fmt.Errorf("%w: %s on %s after %d attempts", ErrConflict, op, groupID, attempt)
			}
			c.logger.Debug("Version conflict, retrying", "op", op, "group_id", groupID, "attempt", attempt)
			continue
		case settleErr != nil:
			metrics.Settlements.WithLabelValues("failed").Inc()
			c.logger.Error("Settlement failed",
				"group_id", groupID,
				"cycle", next.Cycle,
				"error", settleErr,
			)
			return models.Snapshot{}, fmt.Errorf("%w: %w", ErrSettlementFailure, settleErr)
		case errors.Is(err, storage.ErrNotFound):
			return models.Snapshot{}, fmt.Errorf("%w: %s", ErrNotFound, groupID)
		default:
			return models.Snapshot{}, fmt.Errorf("failed to commit group %s: %w", groupID, err)
		}

		if ch.settle {
			metrics.Settlements.WithLabelValues("ok").Inc()
			c.logger.Info("Order settled",
				"group_id", groupID,
				"orderer_id", next.OrdererID,
				"total", next.TotalAmount.String(),
			)
		}
		if cur.Status != next.Status {
			metrics.OrderTransitions.WithLabelValues(string(cur.Status), string(next.Status)).Inc()
			c.logger.Info("Order status changed",
				"group_id", groupID,
				"from", cur.Status,
				"to", next.Status,
				"user_id", requesterID,
			)
		}

		snapshot := next.Snapshot()
		c.publisher.Publish(groupID, snapshot)
		return snapshot, nil
	}
}

// endCycle resets g to pending and starts the next settlement cycle.
func endCycle(g *models.OrderGroup) {
	g.Reset()
	g.Cycle++
}
