// Package models defines the core domain models for group food orders.
//
// # Models
//
//   - OrderGroup: the aggregate root, one per chat/order group
//   - Snapshot: the read model returned to callers and pushed to subscribers
//   - OrderHistoryRecord: immutable record appended when an order cycle ends
//   - WalletAccount and LedgerEntry: per-user balances and the postings that moved them
//   - Coordinate and MeetingPoint: input and output of the meeting point calculator
//
// # Design Principles
//
// 1. **Typed aggregate**: per-user progress is a map of UserStatus values, never ad hoc field paths
// 2. **Copy on write**: the coordinator mutates a Clone and commits it; the stored value is never edited in place
// 3. **IDs, not pointers**: relationships between records use ID strings
package models
