package domain

import (
	"strings"
	"time"
)

// Exercise is a single prompt with the answers that count as correct
type Exercise struct {
	ID                string     `json:"id"`
	Prompt            string     `json:"prompt"`
	AcceptableAnswers []string   `json:"acceptable_answers"` // first entry is canonical
	Keywords          []string   `json:"keywords,omitempty"`
	Difficulty        Difficulty `json:"difficulty,omitempty"`
	Category          string     `json:"category,omitempty"`
	Hint              string     `json:"hint,omitempty"`
	Module            string     `json:"module,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// Difficulty is a display label. It never affects grading.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// CanonicalAnswer returns the answer revealed after the last failed attempt
func (e *Exercise) CanonicalAnswer() string {
	for _, a := range e.AcceptableAnswers {
		if strings.TrimSpace(a) != "" {
			return a
		}
	}
	return ""
}

// Gradable reports whether the exercise has anything to grade against
func (e *Exercise) Gradable() bool {
	if e.CanonicalAnswer() != "" {
		return true
	}
	for _, k := range e.Keywords {
		if strings.TrimSpace(k) != "" {
			return true
		}
	}
	return false
}

// Apply copies mutable fields onto the exercise
func (e *Exercise) Apply(f ExerciseFields) {
	e.Prompt = strings.TrimSpace(f.Prompt)
	e.AcceptableAnswers = cleanList(f.AcceptableAnswers)
	e.Keywords = cleanList(f.Keywords)
	e.Difficulty = Difficulty(strings.TrimSpace(string(f.Difficulty)))
	e.Category = strings.TrimSpace(f.Category)
	e.Hint = strings.TrimSpace(f.Hint)
	e.Module = strings.TrimSpace(f.Module)
}

// ExerciseFields is the editable part of an exercise, as submitted by an admin
type ExerciseFields struct {
	Prompt            string
	AcceptableAnswers []string
	Keywords          []string
	Difficulty        Difficulty
	Category          string
	Hint              string
	Module            string
}

// Validate checks the fields required for a usable exercise. Module is only
// required when sessions are scoped by module.
func (f ExerciseFields) Validate(requireModule bool) error {
	var problems []string
	if strings.TrimSpace(f.Prompt) == "" {
		problems = append(problems, "prompt is required")
	}
	if len(cleanList(f.AcceptableAnswers)) == 0 {
		problems = append(problems, "at least one acceptable answer is required")
	}
	if requireModule && strings.TrimSpace(f.Module) == "" {
		problems = append(problems, "module is required")
	}
	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// ModuleSummary describes one module partition of the exercise table
type ModuleSummary struct {
	Name        string    `json:"name"`
	Count       int       `json:"count"`
	LastUpdated time.Time `json:"last_updated"`
}

// ContainsExercise reports whether pool holds an exercise with the given id
func ContainsExercise(pool []Exercise, id string) (Exercise, bool) {
	for _, ex := range pool {
		if ex.ID == id {
			return ex, true
		}
	}
	return Exercise{}, false
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
