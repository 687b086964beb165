// Package workflow drives one operator through a count session. The server
// stays the source of truth: every action waits for the server and then the
// whole session is fetched again.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/vbonduro/stockcount/internal/api"
	"github.com/vbonduro/stockcount/internal/count"
	"github.com/vbonduro/stockcount/internal/packaging"
)

var (
	ErrNoSession    = errors.New("no session is open")
	ErrUnknownLine  = errors.New("line is not part of this session")
	ErrBusy         = errors.New("a request for this line is still in progress")
	ErrNotConfirmed = errors.New("action was not confirmed")
)

// Backend is the subset of the stockcount API the workflow needs.
// *client.Client satisfies it.
type Backend interface {
	GetSession(ctx context.Context, sessionID int64) (*api.Session, error)
	AddLine(ctx context.Context, sessionID int64, code string) (*api.Session, error)
	RecordCount(ctx context.Context, sessionID, lineID int64, quantity int) (*api.Session, error)
	RecordBreakdown(ctx context.Context, sessionID, lineID int64, cases, boxes, pieces int) (*api.Session, error)
	MarkNotFound(ctx context.Context, sessionID, lineID int64, confirmed bool) (*api.Session, error)
	Skip(ctx context.Context, sessionID, lineID int64) (*api.Session, error)
	Finalize(ctx context.Context, sessionID int64) (*api.Session, error)
	Cancel(ctx context.Context, sessionID int64, reason string) (*api.Session, error)
	LookupBatch(ctx context.Context, code string) (*api.Batch, error)
}

// Confirmer asks the operator a yes/no question and blocks until answered.
type Confirmer interface {
	Confirm(prompt string) bool
}

type Workflow struct {
	backend Backend
	confirm Confirmer
	logger  *slog.Logger

	mu      sync.Mutex
	session *api.Session
	busy    map[int64]bool
}

func New(backend Backend, confirm Confirmer, logger *slog.Logger) *Workflow {
	return &Workflow{
		backend: backend,
		confirm: confirm,
		logger:  logger,
		busy:    make(map[int64]bool),
	}
}

// Open loads a session and makes it current.
func (w *Workflow) Open(ctx context.Context, sessionID int64) (*api.Session, error) {
	s, err := w.backend.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	w.mu.Lock()
	w.session = s
	w.mu.Unlock()
	return s, nil
}

// Session returns the last state the server confirmed, or nil.
func (w *Workflow) Session() *api.Session {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.session
}

func (w *Workflow) Busy(lineID int64) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.busy[lineID]
}

// Scan matches code against the current lines locally. Nothing is sent to
// the server.
func (w *Workflow) Scan(code string) (count.MatchResult, error) {
	s := w.Session()
	if s == nil {
		return count.MatchResult{}, ErrNoSession
	}
	return count.Scan(code, s.Domain().Lines), nil
}

// AddScanned adds a line for a scanned batch that is not yet in the session.
// A batch recorded at another location needs confirmation first.
func (w *Workflow) AddScanned(ctx context.Context, code string) error {
	s := w.Session()
	if s == nil {
		return ErrNoSession
	}
	batch, err := w.backend.LookupBatch(ctx, code)
	if err != nil {
		return err
	}
	if batch.Location != s.Location {
		prompt := fmt.Sprintf("Batch %s is recorded at %s, not %s. Add it to this count?", code, batch.Location, s.Location)
		if !w.confirm.Confirm(prompt) {
			return ErrNotConfirmed
		}
	}
	if _, err := w.backend.AddLine(ctx, s.ID, code); err != nil {
		return err
	}
	return w.refresh(ctx, s.ID)
}

// Count records a base-unit quantity for a line.
func (w *Workflow) Count(ctx context.Context, lineID int64, quantity int) error {
	return w.lineAction(ctx, lineID, "count", true, func(sessionID int64) error {
		_, err := w.backend.RecordCount(ctx, sessionID, lineID, quantity)
		return err
	})
}

// CountBreakdown records a count typed as cases, boxes and pieces. Blank or
// unparseable fields count as zero.
func (w *Workflow) CountBreakdown(ctx context.Context, lineID int64, cases, boxes, pieces string) error {
	c, b, p := packaging.ParseCount(cases), packaging.ParseCount(boxes), packaging.ParseCount(pieces)
	return w.lineAction(ctx, lineID, "count", true, func(sessionID int64) error {
		_, err := w.backend.RecordBreakdown(ctx, sessionID, lineID, c, b, p)
		return err
	})
}

// NotFound marks a line missing after the operator confirms. Declining
// leaves the line as it was.
func (w *Workflow) NotFound(ctx context.Context, lineID int64) error {
	s := w.Session()
	if s == nil {
		return ErrNoSession
	}
	line := findLine(s, lineID)
	if line == nil {
		return ErrUnknownLine
	}
	prompt := fmt.Sprintf("Mark batch %s (%s) as not found? Expected %d.", line.BatchNumber, line.ProductName, line.ExpectedQuantity)
	if line.IsLocationMismatch {
		prompt = "Warning: this batch is recorded at a different location. " + prompt
	}
	if !w.confirm.Confirm(prompt) {
		return ErrNotConfirmed
	}

	return w.lineAction(ctx, lineID, "not_found", false, func(sessionID int64) error {
		_, err := w.backend.MarkNotFound(ctx, sessionID, lineID, true)
		return err
	})
}

func (w *Workflow) Skip(ctx context.Context, lineID int64) error {
	return w.lineAction(ctx, lineID, "skip", false, func(sessionID int64) error {
		_, err := w.backend.Skip(ctx, sessionID, lineID)
		return err
	})
}

func (w *Workflow) Finalize(ctx context.Context) error {
	s := w.Session()
	if s == nil {
		return ErrNoSession
	}
	if _, err := w.backend.Finalize(ctx, s.ID); err != nil {
		return err
	}
	return w.refresh(ctx, s.ID)
}

func (w *Workflow) Cancel(ctx context.Context, reason string) error {
	s := w.Session()
	if s == nil {
		return ErrNoSession
	}
	if _, err := w.backend.Cancel(ctx, s.ID, reason); err != nil {
		return err
	}
	return w.refresh(ctx, s.ID)
}

// lineAction runs one mutation for a line while marking it busy. When
// warnMismatch is set, a location-mismatched line needs confirmation first.
func (w *Workflow) lineAction(ctx context.Context, lineID int64, action string, warnMismatch bool, fn func(sessionID int64) error) error {
	s := w.Session()
	if s == nil {
		return ErrNoSession
	}
	line := findLine(s, lineID)
	if line == nil {
		return ErrUnknownLine
	}
	if warnMismatch && line.IsLocationMismatch {
		prompt := fmt.Sprintf("Batch %s is recorded at a different location. Continue?", line.BatchNumber)
		if !w.confirm.Confirm(prompt) {
			return ErrNotConfirmed
		}
	}

	if !w.acquire(lineID) {
		return ErrBusy
	}
	defer w.release(lineID)

	if err := fn(s.ID); err != nil {
		w.logger.Debug("line action failed", "session_id", s.ID, "line_id", lineID, "action", action, "error", err)
		return err
	}
	return w.refresh(ctx, s.ID)
}

func (w *Workflow) acquire(lineID int64) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.busy[lineID] {
		return false
	}
	w.busy[lineID] = true
	return true
}

func (w *Workflow) release(lineID int64) {
	w.mu.Lock()
	delete(w.busy, lineID)
	w.mu.Unlock()
}

// refresh replaces the current session with the server's copy.
func (w *Workflow) refresh(ctx context.Context, sessionID int64) error {
	s, err := w.backend.GetSession(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to refresh session: %w", err)
	}
	w.mu.Lock()
	w.session = s
	w.mu.Unlock()
	return nil
}

func findLine(s *api.Session, lineID int64) *api.Line {
	for i := range s.Lines {
		if s.Lines[i].ID == lineID {
			return &s.Lines[i]
		}
	}
	return nil
}
