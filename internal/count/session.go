package count

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vbonduro/stockcount/internal/domain"
)

// Summary tallies lines by status. It is always rebuilt from the full line
// list.
type Summary struct {
	Total    int `json:"total"`
	Counted  int `json:"counted"`
	Pending  int `json:"pending"`
	NotFound int `json:"not_found"`
	Skipped  int `json:"skipped"`
}

// Unresolved is the number of lines that block finalize. Skipped lines count.
func (s Summary) Unresolved() int {
	return s.Pending + s.Skipped
}

func Summarize(lines []*domain.CountLine) Summary {
	sum := Summary{Total: len(lines)}
	for _, line := range lines {
		switch line.Status {
		case domain.LineCounted:
			sum.Counted++
		case domain.LineNotFound:
			sum.NotFound++
		case domain.LineSkipped:
			sum.Skipped++
		default:
			sum.Pending++
		}
	}
	return sum
}

var hundred = decimal.NewFromInt(100)

// Progress is counted/total as a whole percentage. An empty session is 0%.
func Progress(sum Summary) int {
	if sum.Total == 0 {
		return 0
	}
	pct := decimal.NewFromInt(int64(sum.Counted)).
		Mul(hundred).
		Div(decimal.NewFromInt(int64(sum.Total))).
		Round(0)
	return int(pct.IntPart())
}

// CheckFinalize returns nil when the session may be finalized.
func CheckFinalize(s *domain.Session) error {
	if s.Status.Terminal() {
		return ErrSessionClosed
	}
	if n := Summarize(s.Lines).Unresolved(); n > 0 {
		return &PendingItemsError{Pending: n}
	}
	return nil
}

func Finalize(s *domain.Session, at time.Time) error {
	if err := CheckFinalize(s); err != nil {
		return err
	}
	s.Status = domain.SessionFinalized
	s.FinalizedAt = &at
	return nil
}

// Cancel closes the session regardless of line state.
func Cancel(s *domain.Session, reason, by string, at time.Time) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return ErrReasonRequired
	}
	if s.Status.Terminal() {
		return ErrSessionClosed
	}
	s.Status = domain.SessionCancelled
	s.CancelledAt = &at
	s.CancelledBy = by
	s.CancelReason = reason
	return nil
}

// CheckActive guards line-level actions.
func CheckActive(s *domain.Session) error {
	if s.Status != domain.SessionActive {
		return ErrSessionClosed
	}
	return nil
}

// Adjustments returns the lines whose discrepancy must be written back to
// stock when the session is finalized.
func Adjustments(s *domain.Session) []*domain.CountLine {
	var out []*domain.CountLine
	for _, line := range s.Lines {
		if line.Discrepancy != nil && *line.Discrepancy != 0 {
			out = append(out, line)
		}
	}
	return out
}
