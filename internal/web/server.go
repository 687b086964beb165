package web

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/vbonduro/stockcount/internal/auth"
	"github.com/vbonduro/stockcount/internal/service"
)

type Server struct {
	service     *service.CountService
	issuer      *auth.Issuer
	tokenSecret string
	mux         *http.ServeMux
	logger      *slog.Logger
}

// NewServer wires the JSON API. tokenSecret is the shared secret an operator
// presents to POST /auth/token.
func NewServer(svc *service.CountService, issuer *auth.Issuer, tokenSecret string, logger *slog.Logger) *Server {
	s := &Server{
		service:     svc,
		issuer:      issuer,
		tokenSecret: tokenSecret,
		mux:         http.NewServeMux(),
		logger:      logger,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.HandleFunc("POST /auth/token", s.handleToken)

	s.handle("GET /sessions", s.handleListSessions)
	s.handle("POST /sessions", s.handleCreateSession)
	s.handle("GET /sessions/{id}", s.handleGetSession)
	s.handle("POST /sessions/{id}/scan", s.handleScan)
	s.handle("POST /sessions/{id}/lines", s.handleAddLine)
	s.handle("POST /sessions/{id}/lines/{lineId}/count", s.handleRecordCount)
	s.handle("POST /sessions/{id}/lines/{lineId}/not-found", s.handleMarkNotFound)
	s.handle("POST /sessions/{id}/lines/{lineId}/skip", s.handleSkip)
	s.handle("POST /sessions/{id}/finalize", s.handleFinalize)
	s.handle("POST /sessions/{id}/cancel", s.handleCancel)
	s.handle("GET /sessions/{id}/export", s.handleExport)
	s.handle("GET /sessions/{id}/adjustments", s.handleListAdjustments)

	s.handle("GET /batches/lookup", s.handleLookupBatch)
	s.handle("POST /batches", s.handleCreateBatch)
}

// handle registers an authenticated route.
func (s *Server) handle(pattern string, h http.HandlerFunc) {
	s.mux.Handle(pattern, s.issuer.Middleware(h))
}

// securityHeaders adds defensive HTTP response headers to every response.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		h.Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

// statusRecorder wraps http.ResponseWriter to capture the written status code.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

const requestIDHeader = "X-Request-ID"

func requestLogger(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := r.Header.Get(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, requestID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Info("request",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestLogger(s.logger, securityHeaders(s.mux)).ServeHTTP(w, r)
}

func (s *Server) ListenAndServe(addr string) error {
	s.logger.Info("starting server", "addr", addr)
	srv := &http.Server{
		Addr:         addr,
		Handler:      s,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return srv.ListenAndServe()
}
