package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Awhitter/spanish1/internal/domain"
	"github.com/Awhitter/spanish1/internal/session"
)

// SessionStore implements session.RecordStore backed by SQLite.
type SessionStore struct {
	db *DB
}

// NewSessionStore creates a new SQLite-backed session store.
func NewSessionStore(db *DB) *SessionStore {
	return &SessionStore{db: db}
}

// SaveSession upserts a session record.
func (s *SessionStore) SaveSession(ctx context.Context, rec session.Record) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO quiz_sessions (
			id, module, state, current_id, attempts,
			hint_revealed, answer_revealed,
			correct, incorrect, skipped, presented,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			module = excluded.module,
			state = excluded.state,
			current_id = excluded.current_id,
			attempts = excluded.attempts,
			hint_revealed = excluded.hint_revealed,
			answer_revealed = excluded.answer_revealed,
			correct = excluded.correct,
			incorrect = excluded.incorrect,
			skipped = excluded.skipped,
			presented = excluded.presented,
			updated_at = excluded.updated_at`,
		rec.ID, rec.Module, string(rec.State), rec.CurrentID, rec.Attempts,
		rec.HintRevealed, rec.AnswerRevealed,
		rec.Stats.Correct, rec.Stats.Incorrect, rec.Stats.Skipped, rec.Presented,
		rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// GetSession retrieves a session record by ID.
func (s *SessionStore) GetSession(ctx context.Context, id string) (*session.Record, error) {
	var rec session.Record
	var state string

	err := s.db.QueryRowContext(ctx, `
		SELECT id, module, state, current_id, attempts,
			hint_revealed, answer_revealed,
			correct, incorrect, skipped, presented,
			created_at, updated_at
		FROM quiz_sessions WHERE id = ?`, id,
	).Scan(
		&rec.ID, &rec.Module, &state, &rec.CurrentID, &rec.Attempts,
		&rec.HintRevealed, &rec.AnswerRevealed,
		&rec.Stats.Correct, &rec.Stats.Incorrect, &rec.Stats.Skipped, &rec.Presented,
		&rec.CreatedAt, &rec.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	rec.State = session.State(state)
	return &rec, nil
}

// DeleteSession removes a session record. Deleting an unknown id is not an error.
func (s *SessionStore) DeleteSession(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM quiz_sessions WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
