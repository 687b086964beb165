package web

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"

	"github.com/vbonduro/stockcount/internal/api"
	"github.com/vbonduro/stockcount/internal/auth"
	"github.com/vbonduro/stockcount/internal/domain"
	"github.com/vbonduro/stockcount/internal/export"
	"github.com/vbonduro/stockcount/internal/service"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	var req api.TokenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	if subtle.ConstantTimeCompare([]byte(req.Secret), []byte(s.tokenSecret)) != 1 {
		writeErrorBody(w, http.StatusUnauthorized, api.Error{Error: "invalid credentials", Code: api.CodeUnauthorized})
		return
	}
	operator := strings.TrimSpace(req.Operator)
	if operator == "" {
		writeErrorBody(w, http.StatusUnprocessableEntity, api.Error{Error: "operator is required", Code: api.CodeValidation})
		return
	}

	token, err := s.issuer.Issue(operator)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger.Info("token issued", "operator", operator)
	writeJSON(w, http.StatusOK, api.TokenResponse{Token: token})
}

func operator(r *http.Request) string {
	op, _ := auth.OperatorFrom(r.Context())
	return op
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	status := domain.SessionStatus(r.URL.Query().Get("status"))
	if status != "" && !status.Valid() {
		badRequest(w, fmt.Sprintf("unknown status %q", status))
		return
	}

	sessions, err := s.service.ListSessions(r.Context(), status)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]api.Session, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, api.NewSession(sess, false))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req api.CreateSessionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	view, err := s.service.CreateSession(r.Context(), req.Location, operator(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionBody(view))
}

func sessionBody(view *service.SessionView) api.Session {
	return api.NewSession(view.Session, true)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		badRequest(w, "invalid session id")
		return
	}
	view, err := s.service.GetSession(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionBody(view))
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		badRequest(w, "invalid session id")
		return
	}
	var req api.CodeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	if req.Code == "" {
		badRequest(w, "code is required")
		return
	}

	result, err := s.service.Scan(r.Context(), id, req.Code)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, api.NewScanResult(result))
}

func (s *Server) handleAddLine(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		badRequest(w, "invalid session id")
		return
	}
	var req api.CodeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	if req.Code == "" {
		badRequest(w, "code is required")
		return
	}

	view, err := s.service.AddScannedLine(r.Context(), id, req.Code, operator(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionBody(view))
}

func (s *Server) handleFinalize(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		badRequest(w, "invalid session id")
		return
	}
	view, err := s.service.Finalize(r.Context(), id, operator(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionBody(view))
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		badRequest(w, "invalid session id")
		return
	}
	var req api.CancelRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	view, err := s.service.Cancel(r.Context(), id, req.Reason, operator(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionBody(view))
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		badRequest(w, "invalid session id")
		return
	}
	view, err := s.service.GetSession(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename(view.Session)))
	if err := export.Write(w, view.Session); err != nil {
		s.logger.Error("export failed", "session_id", id, "error", err)
	}
}

func (s *Server) handleListAdjustments(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		badRequest(w, "invalid session id")
		return
	}
	adjustments, err := s.service.ListAdjustments(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]api.Adjustment, 0, len(adjustments))
	for _, a := range adjustments {
		out = append(out, api.NewAdjustment(a))
	}
	writeJSON(w, http.StatusOK, out)
}
