// Package sqlite provides a SQLite-backed implementation of the storage.OrderStateStore interface.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/mmynk/splitorder/internal/models"
	"github.com/mmynk/splitorder/internal/storage"
)

// Ensure SQLiteStore implements storage.OrderStateStore
var _ storage.OrderStateStore = (*SQLiteStore)(nil)

// SQLiteStore implements storage.OrderStateStore using SQLite.
//
// The pool is limited to one connection, so transactions are serialized by
// database/sql rather than failing with SQLITE_BUSY. Compare-and-set on the
// version column still guards against stale read-modify-write cycles, since
// the read that a mutation is computed from happens outside the commit.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// New creates a new SQLiteStore with the given database path.
// It creates the parent directories and runs migrations automatically.
func New(dbPath string) (*SQLiteStore, error) {
	// Create parent directory if it doesn't exist
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	dsn := "file:" + dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{db: db, now: time.Now}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateOrderGroup persists a new order group with its participants.
func (s *SQLiteStore) CreateOrderGroup(ctx context.Context, group *models.OrderGroup) error {
	if group.Status == "" {
		group.Status = models.StatusPending
	}
	if group.Version == 0 {
		group.Version = 1
	}
	if group.LastUpdated.IsZero() {
		group.LastUpdated = s.now().UTC()
	}
	if group.PerUserStatus == nil {
		group.PerUserStatus = map[string]models.UserStatus{}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, "SELECT 1 FROM order_groups WHERE id = ?", group.ID).Scan(&exists)
	if err == nil {
		return fmt.Errorf("order group %s: %w", group.ID, storage.ErrAlreadyExists)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to check order group existence: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO order_groups (id, status, orderer_id, provider_id, total_amount, settled, cycle, version, last_updated)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		group.ID, string(group.Status), nullable(group.OrdererID), nullable(group.ProviderID),
		group.TotalAmount, group.Settled, group.Cycle, group.Version, group.LastUpdated.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert order group: %w", err)
	}

	for i, userID := range group.ParticipantIDs {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO order_participants (group_id, user_id, position) VALUES (?, ?, ?)",
			group.ID, userID, i,
		)
		if err != nil {
			return fmt.Errorf("failed to insert participant: %w", err)
		}
	}

	if err := writeUserStatus(ctx, tx, group); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetOrderGroup retrieves the latest committed aggregate.
// The reads run in one transaction so the result is never torn
// between two commits.
func (s *SQLiteStore) GetOrderGroup(ctx context.Context, groupID string) (*models.OrderGroup, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	return readOrderGroup(ctx, tx, groupID)
}

// CommitOrderGroup writes c.Group if the stored version still equals
// c.ExpectedVersion, together with the optional history record and ledger
// postings, in a single transaction.
func (s *SQLiteStore) CommitOrderGroup(ctx context.Context, c storage.Commit) error {
	group := c.Group
	if group == nil {
		return fmt.Errorf("commit requires a group")
	}
	if group.Version != c.ExpectedVersion+1 {
		return fmt.Errorf("commit version %d does not follow expected version %d", group.Version, c.ExpectedVersion)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE order_groups
		 SET status = ?, orderer_id = ?, provider_id = ?, total_amount = ?, settled = ?, cycle = ?, version = ?, last_updated = ?
		 WHERE id = ? AND version = ?`,
		string(group.Status), nullable(group.OrdererID), nullable(group.ProviderID), group.TotalAmount,
		group.Settled, group.Cycle, group.Version, group.LastUpdated.UnixNano(),
		group.ID, c.ExpectedVersion,
	)
	if err != nil {
		return fmt.Errorf("failed to update order group: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if rows == 0 {
		var exists int
		err := tx.QueryRowContext(ctx, "SELECT 1 FROM order_groups WHERE id = ?", group.ID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("order group %s: %w", group.ID, storage.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to check order group existence: %w", err)
		}
		return fmt.Errorf("order group %s at version %d: %w", group.ID, c.ExpectedVersion, storage.ErrVersionConflict)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM order_user_status WHERE group_id = ?", group.ID); err != nil {
		return fmt.Errorf("failed to clear user status: %w", err)
	}
	if err := writeUserStatus(ctx, tx, group); err != nil {
		return err
	}

	if c.History != nil {
		if err := insertHistory(ctx, tx, c.History); err != nil {
			return err
		}
	}

	if c.Apply != nil {
		if err := c.Apply(ctx, &ledgerTx{q: tx, now: s.now}); err != nil {
			return fmt.Errorf("failed to apply commit: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func readOrderGroup(ctx context.Context, q querier, groupID string) (*models.OrderGroup, error) {
	group := &models.OrderGroup{ID: groupID}
	var ordererID, providerID sql.NullString
	var lastUpdated int64

	err := q.QueryRowContext(ctx,
		`SELECT status, orderer_id, provider_id, total_amount, settled, cycle, version, last_updated
		 FROM order_groups WHERE id = ?`,
		groupID,
	).Scan(&group.Status, &ordererID, &providerID, &group.TotalAmount, &group.Settled,
		&group.Cycle, &group.Version, &lastUpdated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("order group %s: %w", groupID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order group: %w", err)
	}
	group.OrdererID = ordererID.String
	group.ProviderID = providerID.String
	group.LastUpdated = time.Unix(0, lastUpdated).UTC()

	// Participants
	rows, err := q.QueryContext(ctx,
		"SELECT user_id FROM order_participants WHERE group_id = ? ORDER BY position",
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get participants: %w", err)
	}
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		group.ParticipantIDs = append(group.ParticipantIDs, userID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate participants: %w", err)
	}

	// Per-user status
	statusRows, err := q.QueryContext(ctx,
		"SELECT user_id, ordered, paid, received FROM order_user_status WHERE group_id = ?",
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get user status: %w", err)
	}
	defer statusRows.Close()

	group.PerUserStatus = make(map[string]models.UserStatus)
	for statusRows.Next() {
		var userID string
		var st models.UserStatus
		if err := statusRows.Scan(&userID, &st.Ordered, &st.Paid, &st.Received); err != nil {
			return nil, fmt.Errorf("failed to scan user status: %w", err)
		}
		group.PerUserStatus[userID] = st
	}
	if err := statusRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate user status: %w", err)
	}

	return group, nil
}

func writeUserStatus(ctx context.Context, q querier, group *models.OrderGroup) error {
	for userID, st := range group.PerUserStatus {
		_, err := q.ExecContext(ctx,
			"INSERT INTO order_user_status (group_id, user_id, ordered, paid, received) VALUES (?, ?, ?, ?, ?)",
			group.ID, userID, st.Ordered, st.Paid, st.Received,
		)
		if err != nil {
			return fmt.Errorf("failed to insert user status: %w", err)
		}
	}
	return nil
}

// nullable maps an empty string to SQL NULL.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
