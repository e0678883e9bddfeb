// Package exercise is the exercise store: it validates admin input, persists
// exercises through a Repository and broadcasts every accepted mutation.
package exercise

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Awhitter/spanish1/internal/domain"
	"github.com/google/uuid"
)

//go:embed seed.yaml
var seedYAML []byte

// Repository persists exercises. Get, Update and Delete return
// domain.ErrExerciseNotFound for an unknown id.
type Repository interface {
	ListExercises(ctx context.Context, module string) ([]domain.Exercise, error)
	GetExercise(ctx context.Context, id string) (*domain.Exercise, error)
	CreateExercise(ctx context.Context, ex *domain.Exercise) error
	UpdateExercise(ctx context.Context, ex *domain.Exercise) error
	DeleteExercise(ctx context.Context, id string) error
	CountExercises(ctx context.Context) (int, error)
	ListModules(ctx context.Context) ([]domain.ModuleSummary, error)
	Ping(ctx context.Context) error
}

// EventPublisher is the part of a broadcaster the store needs
type EventPublisher interface {
	Publish(ctx context.Context, event domain.Event) error
}

// Config holds store options
type Config struct {
	RequireModule bool
}

// Service is the exercise store
type Service struct {
	repo          Repository
	events        EventPublisher
	requireModule bool
}

// NewService creates an exercise store. events may be nil.
func NewService(repo Repository, events EventPublisher, cfg Config) *Service {
	return &Service{
		repo:          repo,
		events:        events,
		requireModule: cfg.RequireModule,
	}
}

// ImportError describes one rejected row of an import
type ImportError struct {
	Row     int    `json:"row"` // 1-based
	Message string `json:"message"`
}

// ImportResult summarises a bulk import
type ImportResult struct {
	Added  int           `json:"added"`
	Failed int           `json:"failed"`
	Errors []ImportError `json:"errors,omitempty"`
}

// Message renders the learner-facing summary
func (r ImportResult) Message() string {
	return fmt.Sprintf("Importación procesada. %d ejercicios agregados, %d ejercicios inválidos.", r.Added, r.Failed)
}

// List returns the exercises of module, or all exercises when module is empty
func (s *Service) List(ctx context.Context, module string) ([]domain.Exercise, error) {
	exercises, err := s.repo.ListExercises(ctx, module)
	if err != nil {
		return nil, domain.NewTransportError("list exercises", err)
	}
	return exercises, nil
}

// ListExercises makes the store a session pool source
func (s *Service) ListExercises(ctx context.Context, module string) ([]domain.Exercise, error) {
	return s.List(ctx, module)
}

// Get returns one exercise
func (s *Service) Get(ctx context.Context, id string) (*domain.Exercise, error) {
	ex, err := s.repo.GetExercise(ctx, id)
	if err != nil {
		return nil, s.repoError("get exercise", id, err)
	}
	return ex, nil
}

// Create validates and stores a new exercise
func (s *Service) Create(ctx context.Context, fields domain.ExerciseFields) (*domain.Exercise, error) {
	ex, err := s.insert(ctx, fields)
	if err != nil {
		return nil, err
	}

	slog.Info("exercise created", "exercise_id", ex.ID, "module", ex.Module)
	s.publish(ctx, domain.NewExerciseCreatedEvent(*ex))
	return ex, nil
}

func (s *Service) insert(ctx context.Context, fields domain.ExerciseFields) (*domain.Exercise, error) {
	if err := fields.Validate(s.requireModule); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	ex := &domain.Exercise{
		ID:        uuid.New().String(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	ex.Apply(fields)

	if err := s.repo.CreateExercise(ctx, ex); err != nil {
		return nil, domain.NewTransportError("create exercise", err)
	}
	return ex, nil
}

// Update replaces the editable fields of an existing exercise
func (s *Service) Update(ctx context.Context, id string, fields domain.ExerciseFields) (*domain.Exercise, error) {
	if err := fields.Validate(s.requireModule); err != nil {
		return nil, err
	}

	ex, err := s.repo.GetExercise(ctx, id)
	if err != nil {
		return nil, s.repoError("get exercise", id, err)
	}

	ex.Apply(fields)
	ex.UpdatedAt = time.Now().UTC()

	if err := s.repo.UpdateExercise(ctx, ex); err != nil {
		return nil, s.repoError("update exercise", id, err)
	}

	slog.Info("exercise updated", "exercise_id", ex.ID, "module", ex.Module)
	s.publish(ctx, domain.NewExerciseUpdatedEvent(*ex))
	return ex, nil
}

// Delete removes an exercise and returns the removed record
func (s *Service) Delete(ctx context.Context, id string) (*domain.Exercise, error) {
	ex, err := s.repo.GetExercise(ctx, id)
	if err != nil {
		return nil, s.repoError("get exercise", id, err)
	}

	if err := s.repo.DeleteExercise(ctx, id); err != nil {
		return nil, s.repoError("delete exercise", id, err)
	}

	slog.Info("exercise deleted", "exercise_id", id)
	s.publish(ctx, domain.NewExerciseDeletedEvent(*ex))
	return ex, nil
}

// Import stores every valid row and reports the rest. One event is published
// for the whole batch.
func (s *Service) Import(ctx context.Context, rows []domain.ExerciseFields) ImportResult {
	var result ImportResult
	for i, fields := range rows {
		if _, err := s.insert(ctx, fields); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, ImportError{Row: i + 1, Message: err.Error()})
			slog.Warn("import row rejected", "row", i+1, "error", err)
			continue
		}
		result.Added++
	}

	slog.Info("exercises imported", "added", result.Added, "failed", result.Failed)
	if result.Added > 0 {
		s.publish(ctx, domain.NewExercisesImportedEvent(result.Added))
	}
	return result
}

// Modules summarises the non-empty modules
func (s *Service) Modules(ctx context.Context) ([]domain.ModuleSummary, error) {
	modules, err := s.repo.ListModules(ctx)
	if err != nil {
		return nil, domain.NewTransportError("list modules", err)
	}
	return modules, nil
}

// Seed loads the built-in colour exercises into an empty store
func (s *Service) Seed(ctx context.Context) (int, error) {
	n, err := s.repo.CountExercises(ctx)
	if err != nil {
		return 0, domain.NewTransportError("count exercises", err)
	}
	if n > 0 {
		return 0, nil
	}

	rows, err := ParseYAML(seedYAML)
	if err != nil {
		return 0, fmt.Errorf("parse seed: %w", err)
	}

	result := s.Import(ctx, rows)
	if result.Failed > 0 {
		return result.Added, fmt.Errorf("seed exercises: %d rows rejected", result.Failed)
	}
	return result.Added, nil
}

// Ping checks the repository
func (s *Service) Ping(ctx context.Context) error {
	if err := s.repo.Ping(ctx); err != nil {
		return domain.NewTransportError("ping store", err)
	}
	return nil
}

// publish reports a mutation. Failures are logged; the mutation already
// committed.
func (s *Service) publish(ctx context.Context, event domain.Event) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, event); err != nil {
		slog.Warn("failed to publish exercise event",
			"kind", event.Kind,
			"exercise_id", event.ExerciseID,
			"error", err,
		)
	}
}

func (s *Service) repoError(op, id string, err error) error {
	if errors.Is(err, domain.ErrExerciseNotFound) {
		return fmt.Errorf("exercise %s: %w", id, domain.ErrExerciseNotFound)
	}
	return domain.NewTransportError(op, err)
}
