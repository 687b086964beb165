package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/vbonduro/stockcount/internal/api"
	"github.com/vbonduro/stockcount/internal/count"
	"github.com/vbonduro/stockcount/internal/packaging"
	"github.com/vbonduro/stockcount/internal/service"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErrorBody(w http.ResponseWriter, status int, body api.Error) {
	writeJSON(w, status, body)
}

func badRequest(w http.ResponseWriter, msg string) {
	writeErrorBody(w, http.StatusBadRequest, api.Error{Error: msg, Code: api.CodeInvalidRequest})
}

// writeError maps service and state machine errors onto HTTP statuses.
// Anything unrecognised is logged and reported as a 500 without detail.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var transition *count.InvalidTransitionError
	var pending *count.PendingItemsError

	switch {
	case errors.Is(err, service.ErrNotFound):
		writeErrorBody(w, http.StatusNotFound, api.Error{Error: err.Error(), Code: api.CodeNotFound})
	case errors.As(err, &transition):
		writeErrorBody(w, http.StatusConflict, api.Error{Error: err.Error(), Code: api.CodeInvalidTransition})
	case errors.Is(err, count.ErrSessionClosed):
		writeErrorBody(w, http.StatusConflict, api.Error{Error: err.Error(), Code: api.CodeSessionClosed})
	case errors.Is(err, service.ErrDuplicateLine):
		writeErrorBody(w, http.StatusConflict, api.Error{Error: err.Error(), Code: api.CodeDuplicateLine})
	case errors.Is(err, service.ErrDuplicateBatch):
		writeErrorBody(w, http.StatusConflict, api.Error{Error: err.Error(), Code: api.CodeDuplicateBatch})
	case errors.As(err, &pending):
		n := pending.Pending
		writeErrorBody(w, http.StatusUnprocessableEntity, api.Error{Error: err.Error(), Code: api.CodePendingItems, Pending: &n})
	case errors.Is(err, count.ErrReasonRequired):
		writeErrorBody(w, http.StatusUnprocessableEntity, api.Error{Error: err.Error(), Code: api.CodeReasonRequired})
	case errors.Is(err, count.ErrNegativeQuantity):
		writeErrorBody(w, http.StatusUnprocessableEntity, api.Error{Error: err.Error(), Code: api.CodeNegativeQuantity})
	case errors.Is(err, count.ErrConfirmationRequired):
		writeErrorBody(w, http.StatusUnprocessableEntity, api.Error{Error: err.Error(), Code: api.CodeConfirmationRequired})
	case errors.Is(err, service.ErrLocationNeeded),
		errors.Is(err, service.ErrInvalidBatch),
		errors.Is(err, packaging.ErrInvalidMultiplier),
		errors.Is(err, packaging.ErrCountOutOfRange):
		writeErrorBody(w, http.StatusUnprocessableEntity, api.Error{Error: err.Error(), Code: api.CodeValidation})
	default:
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeErrorBody(w, http.StatusInternalServerError, api.Error{Error: "internal error"})
	}
}

// decodeJSON reads a single JSON object from the request body.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func parseID(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

func parseLineID(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("lineId"), 10, 64)
}
