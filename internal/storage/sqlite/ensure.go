package sqlite

import (
	"github.com/Awhitter/spanish1/internal/exercise"
	"github.com/Awhitter/spanish1/internal/session"
)

// Ensure SQLite stores implement the storage interfaces.
var (
	_ exercise.Repository = (*ExerciseStore)(nil)
	_ session.RecordStore = (*SessionStore)(nil)
)
