package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/vbonduro/stockcount/internal/domain"
	"github.com/vbonduro/stockcount/internal/packaging"
)

const batchColumns = `id, batch_number, product_name, location, original_quantity, available_quantity,
	allocated_quantity, lot, expiry_date, base_unit, case_name, units_per_case, box_name, units_per_box, created_at`

type BatchStore struct {
	db DBTX
}

func NewBatchStore(db DBTX) *BatchStore {
	return &BatchStore{db: db}
}

func (s *BatchStore) Create(ctx context.Context, b *domain.Batch) (*domain.Batch, error) {
	baseUnit := "piece"
	var caseName, boxName string
	var unitsPerCase, unitsPerBox int
	if b.Packaging != nil {
		baseUnit = b.Packaging.BaseUnit
		if lvl, ok := b.Packaging.Case(); ok {
			caseName, unitsPerCase = lvl.Name, lvl.Units
		}
		if lvl, ok := b.Packaging.Box(); ok {
			boxName, unitsPerBox = lvl.Name, lvl.Units
		}
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO batches (batch_number, product_name, location, original_quantity, available_quantity,
			allocated_quantity, lot, expiry_date, base_unit, case_name, units_per_case, box_name, units_per_box)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, b.BatchNumber, b.ProductName, b.Location, b.OriginalQuantity, b.AvailableQuantity,
		b.AllocatedQuantity, b.Lot, b.ExpiryDate, baseUnit, caseName, unitsPerCase, boxName, unitsPerBox)
	if err != nil {
		return nil, fmt.Errorf("failed to create batch: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	return s.GetByID(ctx, id)
}

func (s *BatchStore) GetByID(ctx context.Context, id int64) (*domain.Batch, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+batchColumns+` FROM batches WHERE id = ?`, id)
	return scanBatch(row)
}

// GetByNumber looks a batch up by its exact, case-sensitive batch number.
func (s *BatchStore) GetByNumber(ctx context.Context, batchNumber string) (*domain.Batch, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+batchColumns+` FROM batches WHERE batch_number = ?`, batchNumber)
	return scanBatch(row)
}

func (s *BatchStore) ListByLocation(ctx context.Context, location string) ([]*domain.Batch, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+batchColumns+` FROM batches WHERE location = ? ORDER BY batch_number ASC
	`, location)
	if err != nil {
		return nil, fmt.Errorf("failed to list batches: %w", err)
	}
	defer closeRows(rows)

	var batches []*domain.Batch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, err
		}
		batches = append(batches, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating batches: %w", err)
	}

	return batches, nil
}

// AdjustAvailable moves a batch's available quantity by delta.
func (s *BatchStore) AdjustAvailable(ctx context.Context, id int64, delta int) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE batches SET available_quantity = available_quantity + ? WHERE id = ?
	`, delta, id)
	if err != nil {
		return fmt.Errorf("failed to adjust batch: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("batch not found")
	}

	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBatch(row scanner) (*domain.Batch, error) {
	b := &domain.Batch{}
	var baseUnit, caseName, boxName string
	var unitsPerCase, unitsPerBox int
	err := row.Scan(&b.ID, &b.BatchNumber, &b.ProductName, &b.Location, &b.OriginalQuantity,
		&b.AvailableQuantity, &b.AllocatedQuantity, &b.Lot, &b.ExpiryDate, &baseUnit,
		&caseName, &unitsPerCase, &boxName, &unitsPerBox, &b.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan batch: %w", err)
	}

	var opts []packaging.Option
	if unitsPerCase > 0 {
		opts = append(opts, packaging.WithCase(caseName, unitsPerCase))
	}
	if unitsPerBox > 0 {
		opts = append(opts, packaging.WithBox(boxName, unitsPerBox))
	}
	b.Packaging, err = packaging.NewStructure(baseUnit, opts...)
	if err != nil {
		return nil, fmt.Errorf("invalid packaging for batch %s: %w", b.BatchNumber, err)
	}

	return b, nil
}
