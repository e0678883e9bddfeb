package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Awhitter/spanish1/internal/domain"
	"github.com/mattn/go-sqlite3"
)

// ExerciseStore implements exercise persistence backed by SQLite.
type ExerciseStore struct {
	db *DB
}

// NewExerciseStore creates a new SQLite-backed exercise store.
func NewExerciseStore(db *DB) *ExerciseStore {
	return &ExerciseStore{db: db}
}

const exerciseColumns = `id, prompt, acceptable_answers, keywords, difficulty, category, hint, module, created_at, updated_at`

// ListExercises returns exercises ordered by creation, optionally filtered by module.
func (s *ExerciseStore) ListExercises(ctx context.Context, module string) ([]domain.Exercise, error) {
	query := "SELECT " + exerciseColumns + " FROM exercises"
	var args []any
	if module != "" {
		query += " WHERE module = ?"
		args = append(args, module)
	}
	query += " ORDER BY created_at, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list exercises: %w", err)
	}
	defer rows.Close()

	exercises := []domain.Exercise{}
	for rows.Next() {
		ex, err := scanExercise(rows)
		if err != nil {
			return nil, err
		}
		exercises = append(exercises, *ex)
	}
	return exercises, rows.Err()
}

// GetExercise retrieves an exercise by ID.
func (s *ExerciseStore) GetExercise(ctx context.Context, id string) (*domain.Exercise, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+exerciseColumns+" FROM exercises WHERE id = ?", id)
	ex, err := scanExercise(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrExerciseNotFound
	}
	return ex, err
}

// CreateExercise inserts a new exercise.
func (s *ExerciseStore) CreateExercise(ctx context.Context, ex *domain.Exercise) error {
	answers, keywords, err := encodeLists(ex)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO exercises (`+exerciseColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ex.ID, ex.Prompt, answers, keywords,
		string(ex.Difficulty), ex.Category, ex.Hint, ex.Module,
		ex.CreatedAt, ex.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert exercise: %w", err)
	}
	return nil
}

// UpdateExercise overwrites the editable columns of an existing exercise.
func (s *ExerciseStore) UpdateExercise(ctx context.Context, ex *domain.Exercise) error {
	answers, keywords, err := encodeLists(ex)
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE exercises SET
			prompt = ?, acceptable_answers = ?, keywords = ?,
			difficulty = ?, category = ?, hint = ?, module = ?,
			updated_at = ?
		WHERE id = ?`,
		ex.Prompt, answers, keywords,
		string(ex.Difficulty), ex.Category, ex.Hint, ex.Module,
		ex.UpdatedAt, ex.ID,
	)
	if err != nil {
		return fmt.Errorf("update exercise: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return domain.ErrExerciseNotFound
	}
	return nil
}

// DeleteExercise removes an exercise.
func (s *ExerciseStore) DeleteExercise(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM exercises WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete exercise: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return domain.ErrExerciseNotFound
	}
	return nil
}

// CountExercises returns the number of stored exercises.
func (s *ExerciseStore) CountExercises(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM exercises").Scan(&n); err != nil {
		return 0, fmt.Errorf("count exercises: %w", err)
	}
	return n, nil
}

// ListModules summarises exercises per non-empty module.
func (s *ExerciseStore) ListModules(ctx context.Context) ([]domain.ModuleSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT module, COUNT(*), MAX(updated_at)
		FROM exercises
		WHERE module <> ''
		GROUP BY module
		ORDER BY module`)
	if err != nil {
		return nil, fmt.Errorf("list modules: %w", err)
	}
	defer rows.Close()

	modules := []domain.ModuleSummary{}
	for rows.Next() {
		var m domain.ModuleSummary
		var last any
		if err := rows.Scan(&m.Name, &m.Count, &last); err != nil {
			return nil, fmt.Errorf("scan module: %w", err)
		}
		m.LastUpdated = parseTimestamp(last)
		modules = append(modules, m)
	}
	return modules, rows.Err()
}

// Ping checks the connection.
func (s *ExerciseStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// scanner is satisfied by *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...any) error
}

func scanExercise(row scanner) (*domain.Exercise, error) {
	var ex domain.Exercise
	var answers string
	var keywords sql.NullString
	var difficulty string

	if err := row.Scan(
		&ex.ID, &ex.Prompt, &answers, &keywords,
		&difficulty, &ex.Category, &ex.Hint, &ex.Module,
		&ex.CreatedAt, &ex.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan exercise: %w", err)
	}

	ex.Difficulty = domain.Difficulty(difficulty)
	if err := json.Unmarshal([]byte(answers), &ex.AcceptableAnswers); err != nil {
		return nil, fmt.Errorf("unmarshal acceptable_answers: %w", err)
	}
	if keywords.Valid && keywords.String != "" {
		if err := json.Unmarshal([]byte(keywords.String), &ex.Keywords); err != nil {
			return nil, fmt.Errorf("unmarshal keywords: %w", err)
		}
	}
	return &ex, nil
}

// encodeLists marshals the list columns. Empty keywords are stored as NULL.
func encodeLists(ex *domain.Exercise) (string, *string, error) {
	answers := ex.AcceptableAnswers
	if answers == nil {
		answers = []string{}
	}
	a, err := json.Marshal(answers)
	if err != nil {
		return "", nil, fmt.Errorf("marshal acceptable_answers: %w", err)
	}
	if len(ex.Keywords) == 0 {
		return string(a), nil, nil
	}
	k, err := json.Marshal(ex.Keywords)
	if err != nil {
		return "", nil, fmt.Errorf("marshal keywords: %w", err)
	}
	ks := string(k)
	return string(a), &ks, nil
}

// parseTimestamp handles aggregate columns, which the driver returns as
// text rather than time.Time.
func parseTimestamp(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case string:
		return parseTimestampText(t)
	case []byte:
		return parseTimestampText(string(t))
	}
	return time.Time{}
}

func parseTimestampText(s string) time.Time {
	for _, layout := range sqlite3.SQLiteTimestampFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
