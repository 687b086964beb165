package count

import (
	"errors"
	"fmt"

	"github.com/vbonduro/stockcount/internal/domain"
)

var (
	ErrNegativeQuantity     = errors.New("counted quantity must be zero or greater")
	ErrConfirmationRequired = errors.New("marking a line not found requires confirmation")
	ErrReasonRequired       = errors.New("a cancellation reason is required")
	ErrSessionClosed        = errors.New("session is already closed")
)

// InvalidTransitionError is returned when a line action is not allowed from
// the line's current status.
type InvalidTransitionError struct {
	Action string
	From   domain.LineStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot %s a line that is %s", e.Action, e.From)
}

// PendingItemsError blocks finalize while lines remain unresolved.
type PendingItemsError struct {
	Pending int
}

func (e *PendingItemsError) Error() string {
	if e.Pending == 1 {
		return "cannot finalize: 1 item is still pending"
	}
	return fmt.Sprintf("cannot finalize: %d items are still pending", e.Pending)
}
