// Package session runs quiz sessions: it draws exercises from a pool, grades
// answers, tracks attempts, hints and statistics, and refreshes the pool when
// the exercise store broadcasts a mutation.
package session

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/Awhitter/spanish1/internal/broadcast"
	"github.com/Awhitter/spanish1/internal/domain"
	"github.com/Awhitter/spanish1/internal/grading"
	"github.com/google/uuid"
)

// DefaultMaxAttempts is the number of wrong answers before the answer is revealed
const DefaultMaxAttempts = 3

const (
	refreshTimeout  = 10 * time.Second
	listenerBacklog = 8
)

// State is the engine's position in the quiz lifecycle
type State string

const (
	StateLoading   State = "loading"
	StateReady     State = "ready"
	StateCorrect   State = "correct"
	StateIncorrect State = "incorrect"
	StateExhausted State = "exhausted"
	StateError     State = "error"
)

// Stats counts resolved exercises
type Stats struct {
	Correct   int `json:"correct"`
	Incorrect int `json:"incorrect"`
	Skipped   int `json:"skipped"`
}

// Total returns the number of exercises resolved in any way
func (s Stats) Total() int {
	return s.Correct + s.Incorrect + s.Skipped
}

// EngineConfig configures a new Engine
type EngineConfig struct {
	ID          string
	Module      string // empty means every module
	Source      PoolSource
	Broadcaster broadcast.Broadcaster // optional
	MaxAttempts int
	Matcher     grading.Matcher
	Rand        *rand.Rand // optional, for deterministic draws

	// OnChange runs under the engine lock after every transition. It must
	// not call back into the engine.
	OnChange func(Record)
}

// Engine is one learner's quiz session. All methods are safe for concurrent use.
type Engine struct {
	mu sync.Mutex

	id          string
	module      string
	source      PoolSource
	broadcaster broadcast.Broadcaster
	matcher     grading.Matcher
	maxAttempts int
	rng         *rand.Rand
	onChange    func(Record)

	pool           []domain.Exercise
	current        *domain.Exercise
	input          string
	attempts       int
	hintRevealed   bool
	answerRevealed bool
	stats          Stats
	presented      int
	feedback       *Feedback
	state          State
	errMsg         string
	createdAt      time.Time
	updatedAt      time.Time

	sub       *broadcast.Subscription
	listeners map[chan Snapshot]struct{}
	closed    bool
}

// NewEngine creates an engine in the loading state. Call Start or Load to
// fetch the pool.
func NewEngine(cfg EngineConfig) *Engine {
	if cfg.ID == "" {
		cfg.ID = uuid.New().String()
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	now := time.Now()
	return &Engine{
		id:          cfg.ID,
		module:      cfg.Module,
		source:      cfg.Source,
		broadcaster: cfg.Broadcaster,
		matcher:     cfg.Matcher,
		maxAttempts: cfg.MaxAttempts,
		rng:         cfg.Rand,
		onChange:    cfg.OnChange,
		state:       StateLoading,
		createdAt:   now,
		updatedAt:   now,
		listeners:   make(map[chan Snapshot]struct{}),
	}
}

// ID returns the session identifier
func (e *Engine) ID() string {
	return e.id
}

// Module returns the module filter, empty for all modules
func (e *Engine) Module() string {
	return e.module
}

// Start subscribes to store mutations and loads the pool
func (e *Engine) Start(ctx context.Context) (Snapshot, error) {
	e.subscribe()
	return e.Load(ctx)
}

func (e *Engine) subscribe() {
	if e.broadcaster == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.sub != nil || e.closed {
		return
	}
	e.sub = e.broadcaster.Subscribe(e.handleEvent, domain.ExerciseEventKinds()...)
}

// Load fetches the pool from the source. It may be called again to retry
// after a failure.
func (e *Engine) Load(ctx context.Context) (Snapshot, error) {
	e.mutate(func() (bool, error) {
		if e.current == nil {
			e.state = StateLoading
		}
		return true, nil
	})

	pool, err := e.source.ListExercises(ctx, e.module)
	return e.mutate(func() (bool, error) {
		if err != nil {
			e.current = nil
			e.state = StateError
			e.errMsg = MsgLoadFailed
			e.feedback = feedback(FeedbackError, MsgLoadFailed)
			if !errors.Is(err, domain.ErrTransport) {
				err = domain.NewTransportError("load exercises", err)
			}
			return true, err
		}
		e.applyPoolLocked(pool)
		return true, nil
	})
}

// handleEvent refetches the pool after a store mutation. Fetch failures keep
// the current pool so an active learner is not interrupted.
func (e *Engine) handleEvent(ctx context.Context, event domain.Event) {
	if e.isClosed() || !e.relevant(event) {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, refreshTimeout)
	defer cancel()

	pool, err := e.source.ListExercises(ctx, e.module)
	if err != nil {
		slog.Warn("refresh pool failed",
			"session_id", e.id,
			"kind", event.Kind,
			"error", err,
		)
		return
	}
	if e.isClosed() {
		return
	}
	e.RefreshPool(pool)
}

func (e *Engine) isClosed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

// relevant filters events for records that can neither enter nor leave this
// session's pool.
func (e *Engine) relevant(event domain.Event) bool {
	if e.module == "" || event.Exercise == nil || event.Exercise.Module == e.module {
		return true
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	_, inPool := domain.ContainsExercise(e.pool, event.ExerciseID)
	return inPool
}

// RefreshPool replaces the pool. The current exercise is kept, with its fresh
// content, when it is still present; otherwise the session advances.
func (e *Engine) RefreshPool(pool []domain.Exercise) Snapshot {
	snap, _ := e.mutate(func() (bool, error) {
		e.applyPoolLocked(pool)
		return true, nil
	})
	return snap
}

func (e *Engine) applyPoolLocked(pool []domain.Exercise) {
	e.pool = pool
	if e.current != nil {
		if fresh, ok := domain.ContainsExercise(pool, e.current.ID); ok {
			e.current = &fresh
			return
		}
	}
	e.advanceLocked()
}

// SetInput records the learner's draft answer
func (e *Engine) SetInput(s string) Snapshot {
	snap, _ := e.mutate(func() (bool, error) {
		e.input = s
		return true, nil
	})
	return snap
}

// Submit grades the current input
func (e *Engine) Submit() (Snapshot, error) {
	return e.mutate(e.submitLocked)
}

// Answer sets the input and submits it in one step
func (e *Engine) Answer(s string) (Snapshot, error) {
	return e.mutate(func() (bool, error) {
		if e.current != nil && !e.answerRevealed {
			e.input = s
		}
		return e.submitLocked()
	})
}

func (e *Engine) submitLocked() (bool, error) {
	if e.current == nil {
		return false, domain.ErrNoCurrentExercise
	}
	if e.answerRevealed {
		return false, domain.ErrExerciseResolved
	}
	if grading.Normalize(e.input) == "" {
		e.feedback = feedback(FeedbackValidation, MsgBlankAnswer)
		return true, nil
	}
	if !e.current.Gradable() {
		slog.Warn("current exercise cannot be graded",
			"session_id", e.id,
			"exercise_id", e.current.ID,
			"error", domain.ErrExerciseUnavailable,
		)
		e.feedback = feedback(FeedbackUnavailable, MsgInvalidCurrent)
		return true, nil
	}

	verdict := e.matcher.Grade(e.input, e.current.AcceptableAnswers, e.current.Keywords)
	if verdict.Correct {
		e.stats.Correct++
		e.answerRevealed = true
		e.state = StateCorrect
		e.feedback = feedback(FeedbackCorrect, MsgCorrect)
		return true, nil
	}

	e.attempts++
	if e.attempts >= e.maxAttempts {
		e.stats.Incorrect++
		e.answerRevealed = true
		e.state = StateIncorrect
		e.feedback = revealFeedback(e.current.CanonicalAnswer(), e.current.Keywords)
		return true, nil
	}

	if verdict.Almost {
		e.feedback = feedback(FeedbackAlmost, MsgAlmost)
	} else {
		e.feedback = feedback(FeedbackIncorrect, MsgTryAgain)
	}
	return true, nil
}

// RequestHint reveals the current exercise's hint. Repeated calls are no-ops.
func (e *Engine) RequestHint() (Snapshot, error) {
	return e.mutate(func() (bool, error) {
		if e.current == nil {
			return false, domain.ErrNoCurrentExercise
		}
		if e.hintRevealed {
			return false, nil
		}
		e.hintRevealed = true
		return true, nil
	})
}

// Skip abandons the current exercise and draws another. A skip after the
// answer was revealed is not counted.
func (e *Engine) Skip() (Snapshot, error) {
	return e.mutate(func() (bool, error) {
		if e.current == nil {
			return false, domain.ErrNoCurrentExercise
		}
		if !e.answerRevealed {
			e.stats.Skipped++
		}
		e.advanceLocked()
		return true, nil
	})
}

// Next advances once the current exercise has been resolved
func (e *Engine) Next() (Snapshot, error) {
	return e.mutate(func() (bool, error) {
		if e.current == nil {
			return false, domain.ErrNoCurrentExercise
		}
		if !e.answerRevealed {
			return false, domain.ErrExerciseUnresolved
		}
		e.advanceLocked()
		return true, nil
	})
}

// Reset clears statistics and starts over with a fresh draw
func (e *Engine) Reset() Snapshot {
	snap, _ := e.mutate(func() (bool, error) {
		e.stats = Stats{}
		e.presented = 0
		e.advanceLocked()
		return true, nil
	})
	return snap
}

func (e *Engine) advanceLocked() {
	e.input = ""
	e.attempts = 0
	e.hintRevealed = false
	e.answerRevealed = false
	e.feedback = nil
	e.errMsg = ""

	if len(e.pool) == 0 {
		e.current = nil
		e.state = StateExhausted
		e.feedback = feedback(FeedbackEmpty, MsgNoExercises)
		return
	}

	next := e.pool[e.drawLocked()]
	e.current = &next
	e.presented++
	e.state = StateReady
}

// drawLocked picks a uniformly random index, avoiding an immediate repeat
// when the pool has an alternative.
func (e *Engine) drawLocked() int {
	candidates := make([]int, 0, len(e.pool))
	for i, ex := range e.pool {
		if e.current != nil && ex.ID == e.current.ID {
			continue
		}
		candidates = append(candidates, i)
	}
	if len(candidates) == 0 {
		return e.intN(len(e.pool))
	}
	return candidates[e.intN(len(candidates))]
}

func (e *Engine) intN(n int) int {
	if e.rng != nil {
		return e.rng.IntN(n)
	}
	return rand.IntN(n)
}

// mutate runs fn under the lock and, when it reports a change, publishes
// the new snapshot to listeners and the change hook. A closed engine
// rejects every transition so an ended session is never persisted again.
func (e *Engine) mutate(fn func() (bool, error)) (Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return e.snapshotLocked(), domain.ErrSessionNotFound
	}

	changed, err := fn()
	if changed {
		e.updatedAt = time.Now()
	}
	snap := e.snapshotLocked()
	if changed {
		e.notifyLocked(snap)
	}
	return snap, err
}

func (e *Engine) notifyLocked(snap Snapshot) {
	for ch := range e.listeners {
		select {
		case ch <- snap:
		default:
			slog.Debug("snapshot listener behind, dropping update", "session_id", e.id)
		}
	}
	if e.onChange != nil {
		e.onChange(e.recordLocked())
	}
}

// Listen returns a channel of snapshots emitted after each transition. The
// channel is closed by the returned cancel func or by Close.
func (e *Engine) Listen() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, listenerBacklog)

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		close(ch)
		return ch, func() {}
	}
	e.listeners[ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			e.mu.Lock()
			defer e.mu.Unlock()
			if _, ok := e.listeners[ch]; ok {
				delete(e.listeners, ch)
				close(ch)
			}
		})
	}
}

// Listening reports whether any snapshot listener is attached
func (e *Engine) Listening() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.listeners) > 0
}

// Close unsubscribes from broadcasts and closes every listener
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	sub := e.sub
	e.sub = nil
	for ch := range e.listeners {
		delete(e.listeners, ch)
		close(ch)
	}
	e.mu.Unlock()

	sub.Unsubscribe()
}

// Snapshot returns the current view of the session
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// Stats returns the current statistics
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}

// Current returns a copy of the current exercise
func (e *Engine) Current() (domain.Exercise, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current == nil {
		return domain.Exercise{}, false
	}
	return *e.current, true
}
