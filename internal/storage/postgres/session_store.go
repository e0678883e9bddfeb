package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Awhitter/spanish1/internal/domain"
	"github.com/Awhitter/spanish1/internal/session"
)

// SessionStore implements session.RecordStore on a pgx pool.
type SessionStore struct {
	db *pgxpool.Pool
}

// NewSessionStore creates a PostgreSQL-backed session store.
func NewSessionStore(db *DB) *SessionStore {
	return &SessionStore{db: db.Pool}
}

// SaveSession upserts a session record.
func (s *SessionStore) SaveSession(ctx context.Context, rec session.Record) error {
	query := `
		INSERT INTO quiz_sessions (
			id, module, state, current_id, attempts,
			hint_revealed, answer_revealed,
			correct, incorrect, skipped, presented,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			module = EXCLUDED.module,
			state = EXCLUDED.state,
			current_id = EXCLUDED.current_id,
			attempts = EXCLUDED.attempts,
			hint_revealed = EXCLUDED.hint_revealed,
			answer_revealed = EXCLUDED.answer_revealed,
			correct = EXCLUDED.correct,
			incorrect = EXCLUDED.incorrect,
			skipped = EXCLUDED.skipped,
			presented = EXCLUDED.presented,
			updated_at = EXCLUDED.updated_at
	`

	_, err := s.db.Exec(ctx, query,
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
	query := `
		SELECT id, module, state, current_id, attempts,
			hint_revealed, answer_revealed,
			correct, incorrect, skipped, presented,
			created_at, updated_at
		FROM quiz_sessions
		WHERE id = $1
	`

	var rec session.Record
	var state string
	err := s.db.QueryRow(ctx, query, id).Scan(
		&rec.ID, &rec.Module, &state, &rec.CurrentID, &rec.Attempts,
		&rec.HintRevealed, &rec.AnswerRevealed,
		&rec.Stats.Correct, &rec.Stats.Incorrect, &rec.Stats.Skipped, &rec.Presented,
		&rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}

	rec.State = session.State(state)
	return &rec, nil
}

// DeleteSession removes a session record.
func (s *SessionStore) DeleteSession(ctx context.Context, id string) error {
	if _, err := s.db.Exec(ctx, "DELETE FROM quiz_sessions WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
