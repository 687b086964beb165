package store

import (
	"context"
	"fmt"

	"github.com/vbonduro/stockcount/internal/domain"
)

type AdjustmentStore struct {
	db DBTX
}

func NewAdjustmentStore(db DBTX) *AdjustmentStore {
	return &AdjustmentStore{db: db}
}

func (s *AdjustmentStore) Create(ctx context.Context, adj *domain.InventoryAdjustment) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO inventory_adjustments (session_id, line_id, batch_id, quantity, reason, adjusted_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, adj.SessionID, adj.LineID, adj.BatchID, adj.Quantity, adj.Reason, adj.AdjustedBy, adj.CreatedAt.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to create adjustment: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert id: %w", err)
	}
	return id, nil
}

func (s *AdjustmentStore) ListBySessionID(ctx context.Context, sessionID int64) ([]*domain.InventoryAdjustment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, line_id, batch_id, quantity, reason, adjusted_by, created_at
		FROM inventory_adjustments WHERE session_id = ? ORDER BY id ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list adjustments: %w", err)
	}
	defer closeRows(rows)

	var adjustments []*domain.InventoryAdjustment
	for rows.Next() {
		adj := &domain.InventoryAdjustment{}
		if err := rows.Scan(&adj.ID, &adj.SessionID, &adj.LineID, &adj.BatchID, &adj.Quantity,
			&adj.Reason, &adj.AdjustedBy, &adj.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan adjustment: %w", err)
		}
		adjustments = append(adjustments, adj)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating adjustments: %w", err)
	}

	return adjustments, nil
}
