// Package count holds the stock count reconciliation rules: batch matching,
// the per-line state machine and session-level aggregation.
//
// Functions here mutate the values they are given and never touch storage;
// callers persist the result.
package count

import (
	"time"

	"github.com/vbonduro/stockcount/internal/domain"
)

// RecordCount sets the counted quantity of a line. A re-count overwrites the
// previous result, including a not-found marker.
func RecordCount(line *domain.CountLine, quantity int, by string, at time.Time) error {
	if quantity < 0 {
		return ErrNegativeQuantity
	}
	switch line.Status {
	case domain.LinePending, domain.LineSkipped, domain.LineCounted, domain.LineNotFound:
	default:
		return &InvalidTransitionError{Action: "count", From: line.Status}
	}

	qty := quantity
	diff := quantity - line.ExpectedQuantity
	line.CountedQuantity = &qty
	line.Discrepancy = &diff
	line.Status = domain.LineCounted
	line.CountedBy = by
	line.CountedAt = &at
	return nil
}

// MarkNotFound records that the expected batch is physically absent. The
// discrepancy becomes the full expected quantity as a shortfall.
func MarkNotFound(line *domain.CountLine, confirmed bool, by string, at time.Time) error {
	if line.Status != domain.LinePending && line.Status != domain.LineSkipped {
		return &InvalidTransitionError{Action: "mark not found", From: line.Status}
	}
	if !confirmed {
		return ErrConfirmationRequired
	}

	diff := -line.ExpectedQuantity
	line.CountedQuantity = nil
	line.Discrepancy = &diff
	line.Status = domain.LineNotFound
	line.CountedBy = by
	line.CountedAt = &at
	return nil
}

// Skip defers a pending line. Skipped lines can still be counted or marked
// not found later.
func Skip(line *domain.CountLine) error {
	if line.Status != domain.LinePending {
		return &InvalidTransitionError{Action: "skip", From: line.Status}
	}
	line.Status = domain.LineSkipped
	return nil
}

// Resolved reports whether the line no longer blocks finalize.
func Resolved(line *domain.CountLine) bool {
	return line.Status == domain.LineCounted || line.Status == domain.LineNotFound
}
