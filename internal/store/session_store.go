package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/vbonduro/stockcount/internal/domain"
)

const sessionColumns = `id, session_number, location, status, initiated_by, started_at,
	finalized_at, cancelled_at, cancelled_by, cancel_reason`

type SessionStore struct {
	db DBTX
}

func NewSessionStore(db DBTX) *SessionStore {
	return &SessionStore{db: db}
}

func (s *SessionStore) Create(ctx context.Context, sessionNumber, location, initiatedBy string, startedAt time.Time) (*domain.Session, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO count_sessions (session_number, location, status, initiated_by, started_at)
		VALUES (?, ?, ?, ?, ?)
	`, sessionNumber, location, domain.SessionActive, initiatedBy, startedAt.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	return s.GetByID(ctx, id)
}

// GetByID returns the session header without its lines.
func (s *SessionStore) GetByID(ctx context.Context, id int64) (*domain.Session, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM count_sessions WHERE id = ?`, id)
	return scanSession(row)
}

// List returns sessions newest first. An empty status lists every session.
func (s *SessionStore) List(ctx context.Context, status domain.SessionStatus) ([]*domain.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM count_sessions`
	var args []any
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY started_at DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer closeRows(rows)

	var sessions []*domain.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sessions: %w", err)
	}

	return sessions, nil
}

// UpdateStatus persists the lifecycle fields of a session.
func (s *SessionStore) UpdateStatus(ctx context.Context, session *domain.Session) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE count_sessions
		SET status = ?, finalized_at = ?, cancelled_at = ?, cancelled_by = ?, cancel_reason = ?
		WHERE id = ?
	`, session.Status, utcPtr(session.FinalizedAt), utcPtr(session.CancelledAt),
		session.CancelledBy, session.CancelReason, session.ID)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("session not found")
	}

	return nil
}

func scanSession(row scanner) (*domain.Session, error) {
	session := &domain.Session{}
	err := row.Scan(&session.ID, &session.SessionNumber, &session.Location, &session.Status,
		&session.InitiatedBy, &session.StartedAt, &session.FinalizedAt, &session.CancelledAt,
		&session.CancelledBy, &session.CancelReason)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan session: %w", err)
	}

	return session, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
