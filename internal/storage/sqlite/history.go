package sqlite

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/mmynk/splitorder/internal/models"
)

func insertHistory(ctx context.Context, q querier, record *models.OrderHistoryRecord) error {
	// Generate ID if not set
	if record.ID == "" {
		record.ID = uuid.New().String()
	}

	snapshot, err := json.Marshal(record.Snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode history snapshot: %w", err)
	}

	_, err = q.ExecContext(ctx,
		`INSERT INTO order_history (id, group_id, cycle, outcome, snapshot, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		record.ID, record.GroupID, record.Cycle, string(record.Outcome), string(snapshot), record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert history record: %w", err)
	}

	return nil
}

// ListOrderHistory retrieves all history records for a group, newest first.
func (s *SQLiteStore) ListOrderHistory(ctx context.Context, groupID string) ([]*models.OrderHistoryRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, group_id, cycle, outcome, snapshot, created_at
		 FROM order_history WHERE group_id = ? ORDER BY cycle DESC, created_at DESC`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	defer rows.Close()

	var records []*models.OrderHistoryRecord
	for rows.Next() {
		record := &models.OrderHistoryRecord{}
		var snapshot string

		if err := rows.Scan(&record.ID, &record.GroupID, &record.Cycle, &record.Outcome,
			&snapshot, &record.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history record: %w", err)
		}
		if err := json.Unmarshal([]byte(snapshot), &record.Snapshot); err != nil {
			return nil, fmt.Errorf("failed to decode history snapshot: %w", err)
		}

		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate history: %w", err)
	}

	return records, nil
}
