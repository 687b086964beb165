package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Repos groups the table stores bound to one connection or transaction.
type Repos struct {
	Batches     *BatchStore
	Sessions    *SessionStore
	Lines       *LineStore
	Adjustments *AdjustmentStore
}

func newRepos(db DBTX) *Repos {
	return &Repos{
		Batches:     NewBatchStore(db),
		Sessions:    NewSessionStore(db),
		Lines:       NewLineStore(db),
		Adjustments: NewAdjustmentStore(db),
	}
}

type Store struct {
	*Repos
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{Repos: newRepos(db), db: db}
}

// InTx runs fn with stores bound to a single transaction. The transaction is
// committed when fn returns nil and rolled back otherwise, including when fn
// panics.
func (s *Store) InTx(ctx context.Context, fn func(r *Repos) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	committed := false
	defer func() {
		if committed {
			return
		}
		if rerr := tx.Rollback(); rerr != nil && !errors.Is(rerr, sql.ErrTxDone) {
			slog.Error("failed to roll back transaction", "error", rerr)
		}
	}()

	if err := fn(newRepos(tx)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	committed = true
	return nil
}

func closeRows(rows *sql.Rows) {
	if err := rows.Close(); err != nil {
		slog.Error("failed to close rows", "error", err)
	}
}
