package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vbonduro/stockcount/internal/count"
	"github.com/vbonduro/stockcount/internal/domain"
	"github.com/vbonduro/stockcount/internal/packaging"
	"github.com/vbonduro/stockcount/internal/store"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrDuplicateLine  = errors.New("batch is already part of this session")
	ErrLocationNeeded = errors.New("location is required")
	ErrDuplicateBatch = errors.New("batch number already exists")
	ErrInvalidBatch   = errors.New("invalid batch")
)

type CountService struct {
	store  *store.Store
	now    func() time.Time
	logger *slog.Logger
}

func NewCountService(st *store.Store, logger *slog.Logger) *CountService {
	return &CountService{
		store:  st,
		now:    func() time.Time { return time.Now().UTC() },
		logger: logger,
	}
}

// SessionView is a session together with its freshly computed tallies.
type SessionView struct {
	*domain.Session
	Summary  count.Summary
	Progress int
}

func newSessionView(s *domain.Session) *SessionView {
	sum := count.Summarize(s.Lines)
	return &SessionView{Session: s, Summary: sum, Progress: count.Progress(sum)}
}

// CreateSession opens a count at location with one pending line per batch
// currently stored there.
func (s *CountService) CreateSession(ctx context.Context, location, operator string) (*SessionView, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return nil, ErrLocationNeeded
	}

	startedAt := s.now()
	number := fmt.Sprintf("SC-%s-%s", startedAt.Format("20060102"), strings.ToUpper(uuid.NewString()[:8]))

	var sessionID int64
	err := s.store.InTx(ctx, func(r *store.Repos) error {
		session, err := r.Sessions.Create(ctx, number, location, operator, startedAt)
		if err != nil {
			return err
		}
		sessionID = session.ID

		batches, err := r.Batches.ListByLocation(ctx, location)
		if err != nil {
			return err
		}
		for _, b := range batches {
			if _, err := r.Lines.Create(ctx, lineForBatch(session, b)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.logger.Info("count session created", "session_id", sessionID, "session_number", number,
		"location", location, "operator", operator)
	return s.GetSession(ctx, sessionID)
}

func lineForBatch(session *domain.Session, b *domain.Batch) *domain.CountLine {
	expected := b.AvailableQuantity
	if expected < 0 {
		expected = 0
	}
	return &domain.CountLine{
		SessionID:          session.ID,
		BatchID:            b.ID,
		BatchNumber:        b.BatchNumber,
		ProductName:        b.ProductName,
		ExpectedQuantity:   expected,
		IsLocationMismatch: b.Location != session.Location,
	}
}

func (s *CountService) ListSessions(ctx context.Context, status domain.SessionStatus) ([]*domain.Session, error) {
	return s.store.Sessions.List(ctx, status)
}

// GetSession loads the session with its lines in audit order.
func (s *CountService) GetSession(ctx context.Context, sessionID int64) (*SessionView, error) {
	session, err := loadSession(ctx, s.store.Repos, sessionID)
	if err != nil {
		return nil, err
	}
	return newSessionView(session), nil
}

func loadSession(ctx context.Context, r *store.Repos, sessionID int64) (*domain.Session, error) {
	session, err := r.Sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil {
		return nil, fmt.Errorf("session %d: %w", sessionID, ErrNotFound)
	}

	session.Lines, err = r.Lines.ListBySessionID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list lines: %w", err)
	}
	return session, nil
}

// Scan matches a scanned code against the session's lines without changing
// anything.
func (s *CountService) Scan(ctx context.Context, sessionID int64, code string) (count.MatchResult, error) {
	session, err := loadSession(ctx, s.store.Repos, sessionID)
	if err != nil {
		return count.MatchResult{}, err
	}
	result := count.Scan(code, session.Lines)
	s.logger.Debug("code scanned", "session_id", sessionID, "code", code, "outcome", result.Outcome)
	return result, nil
}

// AddScannedLine adds a line for a batch that was physically found during the
// count but is not part of the session. The line is flagged when the batch is
// recorded at a different location.
func (s *CountService) AddScannedLine(ctx context.Context, sessionID int64, code, operator string) (*SessionView, error) {
	err := s.store.InTx(ctx, func(r *store.Repos) error {
		session, err := loadSession(ctx, r, sessionID)
		if err != nil {
			return err
		}
		if err := count.CheckActive(session); err != nil {
			return err
		}
		if _, ok := count.Match(code, session.Lines); ok {
			return ErrDuplicateLine
		}

		batch, err := r.Batches.GetByNumber(ctx, code)
		if err != nil {
			return err
		}
		if batch == nil {
			return fmt.Errorf("batch %q: %w", code, ErrNotFound)
		}

		line, err := r.Lines.Create(ctx, lineForBatch(session, batch))
		if err != nil {
			return err
		}
		s.logger.Info("count line added", "session_id", sessionID, "line_id", line.ID,
			"batch", code, "location_mismatch", line.IsLocationMismatch, "operator", operator)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetSession(ctx, sessionID)
}

func (s *CountService) RecordCount(ctx context.Context, sessionID, lineID int64, quantity int, operator string) (*SessionView, error) {
	return s.mutateLine(ctx, sessionID, lineID, "count", operator,
		func(_ *store.Repos, line *domain.CountLine, at time.Time) error {
			return count.RecordCount(line, quantity, operator, at)
		})
}

// RecordBreakdown records a count entered as cases, boxes and pieces, using
// the packaging of the line's batch.
func (s *CountService) RecordBreakdown(ctx context.Context, sessionID, lineID int64, cases, boxes, pieces int, operator string) (*SessionView, error) {
	if err := packaging.CheckCounts(cases, boxes, pieces); err != nil {
		return nil, err
	}
	return s.mutateLine(ctx, sessionID, lineID, "count", operator,
		func(r *store.Repos, line *domain.CountLine, at time.Time) error {
			batch, err := r.Batches.GetByID(ctx, line.BatchID)
			if err != nil {
				return err
			}
			var structure *packaging.Structure
			if batch != nil {
				structure = batch.Packaging
			}
			total := packaging.Convert(structure, cases, boxes, pieces)
			return count.RecordCount(line, total, operator, at)
		})
}

func (s *CountService) MarkNotFound(ctx context.Context, sessionID, lineID int64, confirmed bool, operator string) (*SessionView, error) {
	return s.mutateLine(ctx, sessionID, lineID, "not_found", operator,
		func(_ *store.Repos, line *domain.CountLine, at time.Time) error {
			return count.MarkNotFound(line, confirmed, operator, at)
		})
}

func (s *CountService) Skip(ctx context.Context, sessionID, lineID int64, operator string) (*SessionView, error) {
	return s.mutateLine(ctx, sessionID, lineID, "skip", operator,
		func(_ *store.Repos, line *domain.CountLine, _ time.Time) error {
			return count.Skip(line)
		})
}

type lineMutation func(r *store.Repos, line *domain.CountLine, at time.Time) error

// mutateLine applies one line transition inside a transaction and returns the
// session as stored afterwards.
func (s *CountService) mutateLine(ctx context.Context, sessionID, lineID int64, action, operator string, fn lineMutation) (*SessionView, error) {
	var from, to domain.LineStatus
	err := s.store.InTx(ctx, func(r *store.Repos) error {
		session, err := loadSession(ctx, r, sessionID)
		if err != nil {
			return err
		}
		if err := count.CheckActive(session); err != nil {
			return err
		}

		line := findLine(session, lineID)
		if line == nil {
			return fmt.Errorf("line %d: %w", lineID, ErrNotFound)
		}

		from = line.Status
		if err := fn(r, line, s.now()); err != nil {
			return err
		}
		to = line.Status
		return r.Lines.Update(ctx, line)
	})
	if err != nil {
		s.logger.Warn("line transition rejected", "session_id", sessionID, "line_id", lineID,
			"action", action, "operator", operator, "error", err)
		return nil, err
	}

	s.logger.Info("line transition", "session_id", sessionID, "line_id", lineID,
		"action", action, "from", from, "to", to, "operator", operator)
	return s.GetSession(ctx, sessionID)
}

func findLine(session *domain.Session, lineID int64) *domain.CountLine {
	for _, line := range session.Lines {
		if line.ID == lineID {
			return line
		}
	}
	return nil
}

// Finalize closes the session and writes one inventory adjustment per line
// with a non-zero discrepancy. Either all of it happens or none of it does.
func (s *CountService) Finalize(ctx context.Context, sessionID int64, operator string) (*SessionView, error) {
	var adjusted int
	err := s.store.InTx(ctx, func(r *store.Repos) error {
		session, err := loadSession(ctx, r, sessionID)
		if err != nil {
			return err
		}

		at := s.now()
		if err := count.Finalize(session, at); err != nil {
			return err
		}

		for _, line := range count.Adjustments(session) {
			adj := &domain.InventoryAdjustment{
				SessionID:  session.ID,
				LineID:     line.ID,
				BatchID:    line.BatchID,
				Quantity:   *line.Discrepancy,
				Reason:     "stock count " + session.SessionNumber,
				AdjustedBy: operator,
				CreatedAt:  at,
			}
			if _, err := r.Adjustments.Create(ctx, adj); err != nil {
				return err
			}
			if err := r.Batches.AdjustAvailable(ctx, line.BatchID, adj.Quantity); err != nil {
				return err
			}
			adjusted++
		}

		return r.Sessions.UpdateStatus(ctx, session)
	})
	if err != nil {
		s.logger.Warn("finalize rejected", "session_id", sessionID, "operator", operator, "error", err)
		return nil, err
	}

	s.logger.Info("count session finalized", "session_id", sessionID, "adjustments", adjusted, "operator", operator)
	return s.GetSession(ctx, sessionID)
}

func (s *CountService) Cancel(ctx context.Context, sessionID int64, reason, operator string) (*SessionView, error) {
	err := s.store.InTx(ctx, func(r *store.Repos) error {
		session, err := r.Sessions.GetByID(ctx, sessionID)
		if err != nil {
			return err
		}
		if session == nil {
			return fmt.Errorf("session %d: %w", sessionID, ErrNotFound)
		}
		if err := count.Cancel(session, reason, operator, s.now()); err != nil {
			return err
		}
		return r.Sessions.UpdateStatus(ctx, session)
	})
	if err != nil {
		s.logger.Warn("cancel rejected", "session_id", sessionID, "operator", operator, "error", err)
		return nil, err
	}

	s.logger.Info("count session cancelled", "session_id", sessionID, "operator", operator)
	return s.GetSession(ctx, sessionID)
}

func (s *CountService) ListAdjustments(ctx context.Context, sessionID int64) ([]*domain.InventoryAdjustment, error) {
	session, err := s.store.Sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, fmt.Errorf("session %d: %w", sessionID, ErrNotFound)
	}
	return s.store.Adjustments.ListBySessionID(ctx, sessionID)
}

// LookupBatch resolves a scanned code outside of any session.
func (s *CountService) LookupBatch(ctx context.Context, code string) (*domain.Batch, error) {
	batch, err := s.store.Batches.GetByNumber(ctx, code)
	if err != nil {
		return nil, err
	}
	if batch == nil {
		return nil, fmt.Errorf("batch %q: %w", code, ErrNotFound)
	}
	return batch, nil
}

// AddBatch registers master data for a batch held at a location.
func (s *CountService) AddBatch(ctx context.Context, b *domain.Batch) (*domain.Batch, error) {
	b.BatchNumber = strings.TrimSpace(b.BatchNumber)
	b.ProductName = strings.TrimSpace(b.ProductName)
	b.Location = strings.TrimSpace(b.Location)
	if b.BatchNumber == "" || b.ProductName == "" {
		return nil, fmt.Errorf("%w: batch number and product name are required", ErrInvalidBatch)
	}
	if b.OriginalQuantity < 0 || b.AvailableQuantity < 0 || b.AllocatedQuantity < 0 {
		return nil, fmt.Errorf("%w: quantities must be zero or greater", ErrInvalidBatch)
	}
	if b.Location == "" {
		return nil, ErrLocationNeeded
	}

	existing, err := s.store.Batches.GetByNumber(ctx, b.BatchNumber)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("batch %q: %w", b.BatchNumber, ErrDuplicateBatch)
	}

	created, err := s.store.Batches.Create(ctx, b)
	if err != nil {
		return nil, err
	}
	s.logger.Info("batch added", "batch_id", created.ID, "batch", created.BatchNumber, "location", created.Location)
	return created, nil
}
