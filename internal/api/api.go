// Package api holds the JSON shapes exchanged between the stockcount server
// and its clients.
package api

import (
	"time"

	"github.com/vbonduro/stockcount/internal/count"
	"github.com/vbonduro/stockcount/internal/domain"
	"github.com/vbonduro/stockcount/internal/packaging"
)

type Level struct {
	Name  string `json:"name"`
	Units int    `json:"units"`
}

type Packaging struct {
	BaseUnit string `json:"base_unit"`
	Case     *Level `json:"case,omitempty"`
	Box      *Level `json:"box,omitempty"`
}

type Batch struct {
	ID                int64      `json:"id"`
	BatchNumber       string     `json:"batch_number"`
	ProductName       string     `json:"product_name"`
	Location          string     `json:"location"`
	OriginalQuantity  int        `json:"original_quantity"`
	AvailableQuantity int        `json:"available_quantity"`
	AllocatedQuantity int        `json:"allocated_quantity"`
	Lot               string     `json:"lot,omitempty"`
	ExpiryDate        *time.Time `json:"expiry_date,omitempty"`
	Packaging         *Packaging `json:"packaging,omitempty"`
}

type Line struct {
	ID                 int64      `json:"id"`
	Position           int        `json:"position"`
	BatchID            int64      `json:"batch_id"`
	BatchNumber        string     `json:"batch_number"`
	ProductName        string     `json:"product_name"`
	ExpectedQuantity   int        `json:"expected_quantity"`
	CountedQuantity    *int       `json:"counted_quantity"`
	Status             string     `json:"status"`
	Discrepancy        *int       `json:"discrepancy"`
	IsLocationMismatch bool       `json:"is_location_mismatch"`
	CountedBy          string     `json:"counted_by,omitempty"`
	CountedAt          *time.Time `json:"counted_at,omitempty"`
}

type Session struct {
	ID            int64          `json:"id"`
	SessionNumber string         `json:"session_number"`
	Location      string         `json:"location"`
	Status        string         `json:"status"`
	InitiatedBy   string         `json:"initiated_by"`
	StartedAt     time.Time      `json:"started_at"`
	FinalizedAt   *time.Time     `json:"finalized_at,omitempty"`
	CancelledAt   *time.Time     `json:"cancelled_at,omitempty"`
	CancelledBy   string         `json:"cancelled_by,omitempty"`
	CancelReason  string         `json:"cancel_reason,omitempty"`
	Lines         []Line         `json:"lines,omitempty"`
	Summary       *count.Summary `json:"summary,omitempty"`
	Progress      int            `json:"progress"`
}

type ScanResult struct {
	Outcome string `json:"outcome"`
	Line    *Line  `json:"line,omitempty"`
	Message string `json:"message,omitempty"`
}

type Adjustment struct {
	ID         int64     `json:"id"`
	LineID     int64     `json:"line_id"`
	BatchID    int64     `json:"batch_id"`
	Quantity   int       `json:"quantity"`
	Reason     string    `json:"reason"`
	AdjustedBy string    `json:"adjusted_by"`
	CreatedAt  time.Time `json:"created_at"`
}

// Error is the body of every non-2xx response. Pending is set only when
// finalize is blocked.
type Error struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Pending *int   `json:"pending,omitempty"`
}

// Error codes let clients map a response back to the server-side error.
const (
	CodeNotFound             = "not_found"
	CodeInvalidTransition    = "invalid_transition"
	CodeSessionClosed        = "session_closed"
	CodePendingItems         = "pending_items"
	CodeReasonRequired       = "reason_required"
	CodeNegativeQuantity     = "negative_quantity"
	CodeConfirmationRequired = "confirmation_required"
	CodeDuplicateLine        = "duplicate_line"
	CodeInvalidRequest       = "invalid_request"
	CodeValidation           = "validation"
	CodeDuplicateBatch       = "duplicate_batch"
	CodeUnauthorized         = "unauthorized"
)

type TokenRequest struct {
	Operator string `json:"operator"`
	Secret   string `json:"secret"`
}

type TokenResponse struct {
	Token string `json:"token"`
}

type CreateSessionRequest struct {
	Location string `json:"location"`
}

type CodeRequest struct {
	Code string `json:"code"`
}

// CountRequest carries either a base-unit quantity or a packaging breakdown.
type CountRequest struct {
	Quantity *int `json:"quantity,omitempty"`
	Cases    *int `json:"cases,omitempty"`
	Boxes    *int `json:"boxes,omitempty"`
	Pieces   *int `json:"pieces,omitempty"`
}

// IsBreakdown reports whether any packaging field is set. Quantity and a
// breakdown are mutually exclusive.
func (r CountRequest) IsBreakdown() bool {
	return r.Cases != nil || r.Boxes != nil || r.Pieces != nil
}

type NotFoundRequest struct {
	Confirmed bool `json:"confirmed"`
}

type CancelRequest struct {
	Reason string `json:"reason"`
}

type CreateBatchRequest struct {
	BatchNumber       string     `json:"batch_number"`
	ProductName       string     `json:"product_name"`
	Location          string     `json:"location"`
	OriginalQuantity  int        `json:"original_quantity"`
	AvailableQuantity int        `json:"available_quantity"`
	AllocatedQuantity int        `json:"allocated_quantity"`
	Lot               string     `json:"lot,omitempty"`
	ExpiryDate        *time.Time `json:"expiry_date,omitempty"`
	Packaging         *Packaging `json:"packaging,omitempty"`
}

func NewPackaging(s *packaging.Structure) *Packaging {
	if s == nil {
		return nil
	}
	p := &Packaging{BaseUnit: s.BaseUnit}
	if lvl, ok := s.Case(); ok {
		p.Case = &Level{Name: lvl.Name, Units: lvl.Units}
	}
	if lvl, ok := s.Box(); ok {
		p.Box = &Level{Name: lvl.Name, Units: lvl.Units}
	}
	return p
}

// Structure rebuilds the packaging structure. A nil Packaging means pieces
// only.
func (p *Packaging) Structure() (*packaging.Structure, error) {
	if p == nil {
		return nil, nil
	}
	var opts []packaging.Option
	if p.Case != nil {
		opts = append(opts, packaging.WithCase(p.Case.Name, p.Case.Units))
	}
	if p.Box != nil {
		opts = append(opts, packaging.WithBox(p.Box.Name, p.Box.Units))
	}
	return packaging.NewStructure(p.BaseUnit, opts...)
}

func NewBatch(b *domain.Batch) Batch {
	return Batch{
		ID:                b.ID,
		BatchNumber:       b.BatchNumber,
		ProductName:       b.ProductName,
		Location:          b.Location,
		OriginalQuantity:  b.OriginalQuantity,
		AvailableQuantity: b.AvailableQuantity,
		AllocatedQuantity: b.AllocatedQuantity,
		Lot:               b.Lot,
		ExpiryDate:        b.ExpiryDate,
		Packaging:         NewPackaging(b.Packaging),
	}
}

func NewLine(l *domain.CountLine) Line {
	return Line{
		ID:                 l.ID,
		Position:           l.Position,
		BatchID:            l.BatchID,
		BatchNumber:        l.BatchNumber,
		ProductName:        l.ProductName,
		ExpectedQuantity:   l.ExpectedQuantity,
		CountedQuantity:    l.CountedQuantity,
		Status:             string(l.Status),
		Discrepancy:        l.Discrepancy,
		IsLocationMismatch: l.IsLocationMismatch,
		CountedBy:          l.CountedBy,
		CountedAt:          l.CountedAt,
	}
}

// CountLine converts the wire line back to the domain shape so clients can
// run the same matching rules as the server.
func (l Line) CountLine(sessionID int64) *domain.CountLine {
	return &domain.CountLine{
		ID:                 l.ID,
		SessionID:          sessionID,
		Position:           l.Position,
		BatchID:            l.BatchID,
		BatchNumber:        l.BatchNumber,
		ProductName:        l.ProductName,
		ExpectedQuantity:   l.ExpectedQuantity,
		CountedQuantity:    l.CountedQuantity,
		Status:             domain.LineStatus(l.Status),
		Discrepancy:        l.Discrepancy,
		IsLocationMismatch: l.IsLocationMismatch,
		CountedBy:          l.CountedBy,
		CountedAt:          l.CountedAt,
	}
}

// NewSession renders a session header. Lines and tallies are included only
// when the session was loaded with its lines.
func NewSession(s *domain.Session, withLines bool) Session {
	out := Session{
		ID:            s.ID,
		SessionNumber: s.SessionNumber,
		Location:      s.Location,
		Status:        string(s.Status),
		InitiatedBy:   s.InitiatedBy,
		StartedAt:     s.StartedAt,
		FinalizedAt:   s.FinalizedAt,
		CancelledAt:   s.CancelledAt,
		CancelledBy:   s.CancelledBy,
		CancelReason:  s.CancelReason,
	}
	if withLines {
		out.Lines = make([]Line, 0, len(s.Lines))
		for _, l := range s.Lines {
			out.Lines = append(out.Lines, NewLine(l))
		}
		sum := count.Summarize(s.Lines)
		out.Summary = &sum
		out.Progress = count.Progress(sum)
	}
	return out
}

// Domain converts the wire session back to the domain shape.
func (s Session) Domain() *domain.Session {
	out := &domain.Session{
		ID:            s.ID,
		SessionNumber: s.SessionNumber,
		Location:      s.Location,
		Status:        domain.SessionStatus(s.Status),
		InitiatedBy:   s.InitiatedBy,
		StartedAt:     s.StartedAt,
		FinalizedAt:   s.FinalizedAt,
		CancelledAt:   s.CancelledAt,
		CancelledBy:   s.CancelledBy,
		CancelReason:  s.CancelReason,
		Lines:         make([]*domain.CountLine, 0, len(s.Lines)),
	}
	for _, l := range s.Lines {
		out.Lines = append(out.Lines, l.CountLine(s.ID))
	}
	return out
}

func NewScanResult(r count.MatchResult) ScanResult {
	out := ScanResult{Outcome: string(r.Outcome), Message: r.Message}
	if r.Line != nil {
		l := NewLine(r.Line)
		out.Line = &l
	}
	return out
}

func NewAdjustment(a *domain.InventoryAdjustment) Adjustment {
	return Adjustment{
		ID:         a.ID,
		LineID:     a.LineID,
		BatchID:    a.BatchID,
		Quantity:   a.Quantity,
		Reason:     a.Reason,
		AdjustedBy: a.AdjustedBy,
		CreatedAt:  a.CreatedAt,
	}
}
