package session

import (
	"context"
	"time"

	"github.com/Awhitter/spanish1/internal/domain"
)

// Record is the persisted form of a session. The pool itself is not stored;
// it is refetched from the exercise store on restore.
type Record struct {
	ID             string    `json:"id"`
	Module         string    `json:"module,omitempty"`
	State          State     `json:"state"`
	CurrentID      string    `json:"current_id,omitempty"`
	Attempts       int       `json:"attempts"`
	HintRevealed   bool      `json:"hint_revealed"`
	AnswerRevealed bool      `json:"answer_revealed"`
	Stats          Stats     `json:"stats"`
	Presented      int       `json:"presented"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// RecordStore persists session records. Get returns domain.ErrSessionNotFound
// for an unknown id.
type RecordStore interface {
	SaveSession(ctx context.Context, rec Record) error
	GetSession(ctx context.Context, id string) (*Record, error)
	DeleteSession(ctx context.Context, id string) error
}

// PoolSource supplies the exercises a session draws from
type PoolSource interface {
	ListExercises(ctx context.Context, module string) ([]domain.Exercise, error)
}

// Record returns the persisted form of the session
func (e *Engine) Record() Record {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.recordLocked()
}

func (e *Engine) recordLocked() Record {
	rec := Record{
		ID:             e.id,
		Module:         e.module,
		State:          e.state,
		Attempts:       e.attempts,
		HintRevealed:   e.hintRevealed,
		AnswerRevealed: e.answerRevealed,
		Stats:          e.stats,
		Presented:      e.presented,
		CreatedAt:      e.createdAt,
		UpdatedAt:      e.updatedAt,
	}
	if e.current != nil {
		rec.CurrentID = e.current.ID
	}
	return rec
}

// Restore rebuilds the session from a record and a freshly fetched pool.
// When the recorded exercise is gone the session advances.
func (e *Engine) Restore(rec Record, pool []domain.Exercise) Snapshot {
	snap, _ := e.mutate(func() (bool, error) {
		e.stats = rec.Stats
		e.presented = rec.Presented
		e.createdAt = rec.CreatedAt
		e.pool = pool

		ex, ok := domain.ContainsExercise(pool, rec.CurrentID)
		if !ok {
			e.current = nil
			e.advanceLocked()
			return true, nil
		}

		e.current = &ex
		e.input = ""
		e.attempts = rec.Attempts
		e.hintRevealed = rec.HintRevealed
		e.answerRevealed = rec.AnswerRevealed
		e.feedback = nil
		e.errMsg = ""
		e.state = StateReady
		if rec.AnswerRevealed && (rec.State == StateCorrect || rec.State == StateIncorrect) {
			e.state = rec.State
		}
		return true, nil
	})
	return snap
}
