package workflow

import (
	"errors"
	"fmt"

	"github.com/vbonduro/stockcount/internal/client"
	"github.com/vbonduro/stockcount/internal/count"
)

// Message turns an action error into text for the operator. It never
// suggests an automatic retry; the operator repeats the action.
func Message(err error) string {
	if err == nil {
		return ""
	}

	var pending *count.PendingItemsError
	var apiErr *client.APIError
	switch {
	case errors.As(err, &pending):
		if pending.Pending == 1 {
			return "Cannot finalize: 1 item is still pending."
		}
		return fmt.Sprintf("Cannot finalize: %d items are still pending.", pending.Pending)
	case errors.Is(err, ErrNotConfirmed):
		return "Cancelled. Nothing was changed."
	case errors.Is(err, ErrBusy):
		return "Still saving this line. Wait for it to finish."
	case errors.Is(err, ErrNoSession):
		return "Open a session first."
	case errors.Is(err, ErrUnknownLine):
		return "That line is not part of this session."
	case errors.Is(err, count.ErrReasonRequired):
		return "Enter a reason to cancel this count."
	case errors.Is(err, count.ErrNegativeQuantity):
		return "Quantity must be zero or greater."
	case errors.Is(err, count.ErrSessionClosed):
		return "This count is already closed."
	case errors.Is(err, client.ErrNotFound):
		return "Not found. Check the session, line or batch code."
	case errors.Is(err, client.ErrUnauthorized):
		return "Your token is missing or expired. Request a new one."
	case errors.As(err, &apiErr):
		return "The server rejected the request: " + apiErr.Error()
	default:
		return "Request failed: " + err.Error() + ". Please try again."
	}
}
