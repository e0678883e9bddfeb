package session

import (
	"time"

	"github.com/Awhitter/spanish1/internal/domain"
)

// ExerciseView is the learner-visible part of an exercise. Answers are
// withheld until the exercise is resolved.
type ExerciseView struct {
	ID         string            `json:"id"`
	Prompt     string            `json:"prompt"`
	Difficulty domain.Difficulty `json:"difficulty,omitempty"`
	Category   string            `json:"category,omitempty"`
	Module     string            `json:"module,omitempty"`
	HasHint    bool              `json:"has_hint"`
}

// Snapshot is an immutable view of a session for transports
type Snapshot struct {
	ID             string        `json:"id"`
	Module         string        `json:"module,omitempty"`
	State          State         `json:"state"`
	Exercise       *ExerciseView `json:"exercise,omitempty"`
	Input          string        `json:"input,omitempty"`
	Attempts       int           `json:"attempts"`
	MaxAttempts    int           `json:"max_attempts"`
	HintRevealed   bool          `json:"hint_revealed"`
	Hint           string        `json:"hint,omitempty"`
	AnswerRevealed bool          `json:"answer_revealed"`
	Answer         string        `json:"answer,omitempty"`
	Stats          Stats         `json:"stats"`
	Presented      int           `json:"presented"`
	PoolSize       int           `json:"pool_size"`
	Progress       float64       `json:"progress"`
	Complete       bool          `json:"complete"`
	Feedback       *Feedback     `json:"feedback,omitempty"`
	Error          string        `json:"error,omitempty"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// AttemptsLeft returns how many wrong answers remain before the reveal
func (s Snapshot) AttemptsLeft() int {
	return max(0, s.MaxAttempts-s.Attempts)
}

func (e *Engine) snapshotLocked() Snapshot {
	snap := Snapshot{
		ID:             e.id,
		Module:         e.module,
		State:          e.state,
		Input:          e.input,
		Attempts:       e.attempts,
		MaxAttempts:    e.maxAttempts,
		HintRevealed:   e.hintRevealed,
		AnswerRevealed: e.answerRevealed,
		Stats:          e.stats,
		Presented:      e.presented,
		PoolSize:       len(e.pool),
		Progress:       Progress(e.stats, len(e.pool)),
		Complete:       Complete(e.stats, len(e.pool)),
		Error:          e.errMsg,
		UpdatedAt:      e.updatedAt,
	}
	if e.feedback != nil {
		fb := *e.feedback
		snap.Feedback = &fb
	}
	if ex := e.current; ex != nil {
		snap.Exercise = &ExerciseView{
			ID:         ex.ID,
			Prompt:     ex.Prompt,
			Difficulty: ex.Difficulty,
			Category:   ex.Category,
			Module:     ex.Module,
			HasHint:    ex.Hint != "",
		}
		if e.hintRevealed {
			snap.Hint = ex.Hint
		}
		if e.answerRevealed {
			snap.Answer = ex.CanonicalAnswer()
		}
	}
	return snap
}
