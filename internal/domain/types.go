package domain

import (
	"time"

	"github.com/vbonduro/stockcount/internal/packaging"
)

type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionFinalized SessionStatus = "finalized"
	SessionCancelled SessionStatus = "cancelled"
)

// Terminal reports whether no further transitions are possible.
func (s SessionStatus) Terminal() bool {
	return s == SessionFinalized || s == SessionCancelled
}

func (s SessionStatus) Valid() bool {
	switch s {
	case SessionActive, SessionFinalized, SessionCancelled:
		return true
	}
	return false
}

type LineStatus string

const (
	LinePending  LineStatus = "pending"
	LineCounted  LineStatus = "counted"
	LineNotFound LineStatus = "not_found"
	LineSkipped  LineStatus = "skipped"
)

// Batch is a stock batch held at a storage location.
type Batch struct {
	ID                int64
	BatchNumber       string
	ProductName       string
	Location          string
	OriginalQuantity  int
	AvailableQuantity int
	AllocatedQuantity int
	Lot               string
	ExpiryDate        *time.Time
	Packaging         *packaging.Structure
	CreatedAt         time.Time
}

type Session struct {
	ID            int64
	SessionNumber string
	Location      string
	Status        SessionStatus
	InitiatedBy   string
	StartedAt     time.Time
	FinalizedAt   *time.Time
	CancelledAt   *time.Time
	CancelledBy   string
	CancelReason  string
	Lines         []*CountLine
}

// CountLine is one expected batch within a session.
type CountLine struct {
	ID                 int64
	SessionID          int64
	Position           int
	BatchID            int64
	BatchNumber        string
	ProductName        string
	ExpectedQuantity   int
	CountedQuantity    *int
	Status             LineStatus
	Discrepancy        *int
	IsLocationMismatch bool
	CountedBy          string
	CountedAt          *time.Time
}

type InventoryAdjustment struct {
	ID         int64
	SessionID  int64
	LineID     int64
	BatchID    int64
	Quantity   int
	Reason     string
	AdjustedBy string
	CreatedAt  time.Time
}
