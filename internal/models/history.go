package models

// HistoryOutcome is how an order cycle ended.
type HistoryOutcome string

const (
	OutcomeCompleted HistoryOutcome = "completed"
	OutcomeCancelled HistoryOutcome = "cancelled"
)

// OrderHistoryRecord is an immutable snapshot taken when an order cycle ends.
// Records are only ever appended and are used for display.
type OrderHistoryRecord struct {
	// ID is the unique identifier for the record (UUID format).
	ID string `json:"id"`

	// GroupID is the group the cycle belonged to.
	GroupID string `json:"group_id"`

	// Cycle is the cycle number that ended.
	Cycle int64 `json:"cycle"`

	// Outcome tells whether the cycle completed or was cancelled.
	Outcome HistoryOutcome `json:"outcome"`

	// Snapshot is the aggregate state right before the reset.
	Snapshot Snapshot `json:"snapshot"`

	// CreatedAt is the Unix timestamp when the record was appended.
	CreatedAt int64 `json:"created_at"`
}
