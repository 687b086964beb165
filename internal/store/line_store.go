package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/vbonduro/stockcount/internal/domain"
)

const lineColumns = `id, session_id, position, batch_id, batch_number, product_name, expected_quantity,
	counted_quantity, status, discrepancy, is_location_mismatch, counted_by, counted_at`

type LineStore struct {
	db DBTX
}

func NewLineStore(db DBTX) *LineStore {
	return &LineStore{db: db}
}

// Create appends a pending line to the end of its session.
func (s *LineStore) Create(ctx context.Context, line *domain.CountLine) (*domain.CountLine, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO count_lines (session_id, position, batch_id, batch_number, product_name,
			expected_quantity, status, is_location_mismatch)
		SELECT ?, COALESCE(MAX(position) + 1, 0), ?, ?, ?, ?, ?, ?
		FROM count_lines WHERE session_id = ?
	`, line.SessionID, line.BatchID, line.BatchNumber, line.ProductName,
		line.ExpectedQuantity, domain.LinePending, line.IsLocationMismatch, line.SessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to create count line: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	return s.GetByID(ctx, id)
}

func (s *LineStore) GetByID(ctx context.Context, id int64) (*domain.CountLine, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+lineColumns+` FROM count_lines WHERE id = ?`, id)
	return scanLine(row)
}

// ListBySessionID returns lines in audit order.
func (s *LineStore) ListBySessionID(ctx context.Context, sessionID int64) ([]*domain.CountLine, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+lineColumns+` FROM count_lines WHERE session_id = ? ORDER BY position ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list count lines: %w", err)
	}
	defer closeRows(rows)

	lines := make([]*domain.CountLine, 0)
	for rows.Next() {
		line, err := scanLine(rows)
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating count lines: %w", err)
	}

	return lines, nil
}

// Update persists the mutable result fields of a line.
func (s *LineStore) Update(ctx context.Context, line *domain.CountLine) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE count_lines
		SET counted_quantity = ?, status = ?, discrepancy = ?, counted_by = ?, counted_at = ?
		WHERE id = ?
	`, line.CountedQuantity, line.Status, line.Discrepancy, line.CountedBy, utcPtr(line.CountedAt), line.ID)
	if err != nil {
		return fmt.Errorf("failed to update count line: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("count line not found")
	}

	return nil
}

func scanLine(row scanner) (*domain.CountLine, error) {
	line := &domain.CountLine{}
	err := row.Scan(&line.ID, &line.SessionID, &line.Position, &line.BatchID, &line.BatchNumber,
		&line.ProductName, &line.ExpectedQuantity, &line.CountedQuantity, &line.Status,
		&line.Discrepancy, &line.IsLocationMismatch, &line.CountedBy, &line.CountedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan count line: %w", err)
	}

	return line, nil
}
