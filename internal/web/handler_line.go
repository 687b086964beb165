package web

import (
	"net/http"

	"github.com/vbonduro/stockcount/internal/api"
	"github.com/vbonduro/stockcount/internal/service"
)

// lineIDs parses the session and line ids, writing a 400 when either is bad.
func lineIDs(w http.ResponseWriter, r *http.Request) (sessionID, lineID int64, ok bool) {
	sessionID, err := parseID(r)
	if err != nil {
		badRequest(w, "invalid session id")
		return 0, 0, false
	}
	lineID, err = parseLineID(r)
	if err != nil {
		badRequest(w, "invalid line id")
		return 0, 0, false
	}
	return sessionID, lineID, true
}

func (s *Server) handleRecordCount(w http.ResponseWriter, r *http.Request) {
	sessionID, lineID, ok := lineIDs(w, r)
	if !ok {
		return
	}
	var req api.CountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	var view *service.SessionView
	var err error
	switch {
	case req.IsBreakdown() && req.Quantity != nil:
		badRequest(w, "send either quantity or a packaging breakdown, not both")
		return
	case req.IsBreakdown():
		view, err = s.service.RecordBreakdown(r.Context(), sessionID, lineID,
			deref(req.Cases), deref(req.Boxes), deref(req.Pieces), operator(r))
	case req.Quantity != nil:
		view, err = s.service.RecordCount(r.Context(), sessionID, lineID, *req.Quantity, operator(r))
	default:
		badRequest(w, "quantity or a packaging breakdown is required")
		return
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionBody(view))
}

func deref(n *int) int {
	if n == nil {
		return 0
	}
	return *n
}

func (s *Server) handleMarkNotFound(w http.ResponseWriter, r *http.Request) {
	sessionID, lineID, ok := lineIDs(w, r)
	if !ok {
		return
	}
	var req api.NotFoundRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	view, err := s.service.MarkNotFound(r.Context(), sessionID, lineID, req.Confirmed, operator(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionBody(view))
}

func (s *Server) handleSkip(w http.ResponseWriter, r *http.Request) {
	sessionID, lineID, ok := lineIDs(w, r)
	if !ok {
		return
	}
	view, err := s.service.Skip(r.Context(), sessionID, lineID, operator(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionBody(view))
}
