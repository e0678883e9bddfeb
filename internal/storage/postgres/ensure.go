package postgres

import (
	"github.com/Awhitter/spanish1/internal/exercise"
	"github.com/Awhitter/spanish1/internal/session"
)

var (
	_ exercise.Repository = (*ExerciseStore)(nil)
	_ session.RecordStore = (*SessionStore)(nil)
)
