package models

import (
	"maps"
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the group-level state of an order cycle.
type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusOrdered   OrderStatus = "ordered"
	StatusPaid      OrderStatus = "paid"
	StatusDelivered OrderStatus = "delivered"
	StatusCompleted OrderStatus = "completed"
	StatusCancelled OrderStatus = "cancelled"
)

// Valid reports whether s is one of the known statuses.
func (s OrderStatus) Valid() bool {
	switch s {
	case StatusPending, StatusOrdered, StatusPaid, StatusDelivered, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// SubStatus names one of the per-user progress flags.
type SubStatus string

const (
	SubStatusOrdered  SubStatus = "ordered"
	SubStatusPaid     SubStatus = "paid"
	SubStatusReceived SubStatus = "received"
)

// Valid reports whether s is one of the known sub-statuses.
func (s SubStatus) Valid() bool {
	switch s {
	case SubStatusOrdered, SubStatusPaid, SubStatusReceived:
		return true
	}
	return false
}

// UserStatus is one participant's progress through the current order cycle.
type UserStatus struct {
	Ordered  bool `json:"ordered"`
	Paid     bool `json:"paid"`
	Received bool `json:"received"`
}

// With returns a copy of u with the flag named by sub set.
func (u UserStatus) With(sub SubStatus) UserStatus {
	switch sub {
	case SubStatusOrdered:
		u.Ordered = true
	case SubStatusPaid:
		u.Paid = true
	case SubStatusReceived:
		u.Received = true
	}
	return u
}

// OrderGroup is the aggregate root for one shared order.
// It is created when the chat group is established and reset back to pending
// at the end of every cycle; it is never deleted.
type OrderGroup struct {
	// ID is the opaque group identifier (shared with the chat group).
	ID string

	// ParticipantIDs is the fixed membership for the order cycle.
	ParticipantIDs []string

	// Status is the group-level state.
	Status OrderStatus

	// OrdererID is the participant placing the order. Empty when unset.
	OrdererID string

	// ProviderID is an informational tag of the delivery provider.
	ProviderID string

	// TotalAmount is the order total that settlement splits. Never negative.
	TotalAmount decimal.Decimal

	// PerUserStatus maps participant ID to their progress.
	// Empty whenever Status is pending.
	PerUserStatus map[string]UserStatus

	// Settled guards against paying out the same completion twice.
	Settled bool

	// Cycle counts completed or cancelled cycles; it keys settlements.
	Cycle int64

	// Version is the optimistic concurrency token, incremented on every commit.
	Version int64

	// LastUpdated is when the aggregate was last committed.
	LastUpdated time.Time
}

// HasParticipant reports whether userID is a member of the group.
func (g *OrderGroup) HasParticipant(userID string) bool {
	return userID != "" && slices.Contains(g.ParticipantIDs, userID)
}

// AllReceived reports whether every current participant has confirmed receipt.
func (g *OrderGroup) AllReceived() bool {
	if len(g.ParticipantIDs) == 0 {
		return false
	}
	for _, id := range g.ParticipantIDs {
		if !g.PerUserStatus[id].Received {
			return false
		}
	}
	return true
}

// Reset returns the aggregate to pending and clears all cycle state.
func (g *OrderGroup) Reset() {
	g.Status = StatusPending
	g.OrdererID = ""
	g.ProviderID = ""
	g.TotalAmount = decimal.Zero
	g.PerUserStatus = map[string]UserStatus{}
	g.Settled = false
}

// Clone returns a deep copy safe to mutate.
func (g *OrderGroup) Clone() *OrderGroup {
	c := *g
	c.ParticipantIDs = slices.Clone(g.ParticipantIDs)
	c.PerUserStatus = make(map[string]UserStatus, len(g.PerUserStatus))
	maps.Copy(c.PerUserStatus, g.PerUserStatus)
	return &c
}

// StatusCounts summarises per-user progress for display.
type StatusCounts struct {
	Participants int `json:"participants"`
	Ordered      int `json:"ordered"`
	Paid         int `json:"paid"`
	Received     int `json:"received"`
}

// Snapshot is the externally visible state of an OrderGroup.
type Snapshot struct {
	GroupID       string                `json:"group_id"`
	Status        OrderStatus           `json:"status"`
	OrdererID     string                `json:"orderer_id,omitempty"`
	ProviderID    string                `json:"provider_id,omitempty"`
	PerUserStatus map[string]UserStatus `json:"per_user_status"`
	Settled       bool                  `json:"settled"`
	TotalAmount   decimal.Decimal       `json:"total_amount"`
	// Version increases by one per commit. Concurrent commits to one group
	// may be published out of order, so subscribers should drop any
	// snapshot whose version is not newer than the one they hold.
	Version       int64                 `json:"version"`
	LastUpdated   time.Time             `json:"last_updated"`
	Counts        StatusCounts          `json:"counts"`
}

// Snapshot builds the read model for g.
func (g *OrderGroup) Snapshot() Snapshot {
	perUser := make(map[string]UserStatus, len(g.PerUserStatus))
	counts := StatusCounts{Participants: len(g.ParticipantIDs)}
	for id, st := range g.PerUserStatus {
		perUser[id] = st
		if !g.HasParticipant(id) {
			continue
		}
		if st.Ordered {
			counts.Ordered++
		}
		if st.Paid {
			counts.Paid++
		}
		if st.Received {
			counts.Received++
		}
	}
	return Snapshot{
		GroupID:       g.ID,
		Status:        g.Status,
		OrdererID:     g.OrdererID,
		ProviderID:    g.ProviderID,
		PerUserStatus: perUser,
		Settled:       g.Settled,
		TotalAmount:   g.TotalAmount,
		Version:       g.Version,
		LastUpdated:   g.LastUpdated,
		Counts:        counts,
	}
}
