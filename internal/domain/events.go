package domain

import (
	"time"

	"github.com/google/uuid"
)

// -----------------------------------------------------------------------------
// Event kinds
// -----------------------------------------------------------------------------

// EventKind names the store mutation an event reports
type EventKind string

const (
	EventExerciseCreated   EventKind = "exercise.created"
	EventExerciseUpdated   EventKind = "exercise.updated"
	EventExerciseDeleted   EventKind = "exercise.deleted"
	EventExercisesImported EventKind = "exercises.imported"
)

// ExerciseEventKinds lists every kind that invalidates a session pool
func ExerciseEventKinds() []EventKind {
	return []EventKind{
		EventExerciseCreated,
		EventExerciseUpdated,
		EventExerciseDeleted,
		EventExercisesImported,
	}
}

// -----------------------------------------------------------------------------
// Event
// -----------------------------------------------------------------------------

// Event is the broadcast payload emitted after an accepted mutation
type Event struct {
	ID         uuid.UUID `json:"id"`
	Kind       EventKind `json:"kind"`
	ExerciseID string    `json:"exercise_id,omitempty"`
	Exercise   *Exercise `json:"exercise,omitempty"`
	Count      int       `json:"count,omitempty"`  // rows added, for imports
	Origin     string    `json:"origin,omitempty"` // publishing node
	OccurredAt time.Time `json:"occurred_at"`
}

func newEvent(kind EventKind) Event {
	return Event{
		ID:         uuid.New(),
		Kind:       kind,
		OccurredAt: time.Now(),
	}
}

// NewExerciseCreatedEvent creates an event for a newly stored exercise
func NewExerciseCreatedEvent(ex Exercise) Event {
	e := newEvent(EventExerciseCreated)
	e.ExerciseID = ex.ID
	e.Exercise = &ex
	return e
}

// NewExerciseUpdatedEvent creates an event carrying the updated record
func NewExerciseUpdatedEvent(ex Exercise) Event {
	e := newEvent(EventExerciseUpdated)
	e.ExerciseID = ex.ID
	e.Exercise = &ex
	return e
}

// NewExerciseDeletedEvent creates an event for a removed exercise
func NewExerciseDeletedEvent(ex Exercise) Event {
	e := newEvent(EventExerciseDeleted)
	e.ExerciseID = ex.ID
	e.Exercise = &ex
	return e
}

// NewExercisesImportedEvent creates an event for a bulk import
func NewExercisesImportedEvent(count int) Event {
	e := newEvent(EventExercisesImported)
	e.Count = count
	return e
}
