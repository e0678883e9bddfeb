package exercise

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Awhitter/spanish1/internal/domain"
	"gopkg.in/yaml.v3"
)

// ExerciseFile is the import and request shape of an exercise
type ExerciseFile struct {
	Prompt            string     `yaml:"prompt" json:"prompt"`
	AcceptableAnswers StringList `yaml:"acceptable_answers" json:"acceptable_answers"`
	Keywords          StringList `yaml:"keywords,omitempty" json:"keywords,omitempty"`
	Difficulty        string     `yaml:"difficulty,omitempty" json:"difficulty,omitempty"`
	Category          string     `yaml:"category,omitempty" json:"category,omitempty"`
	Hint              string     `yaml:"hint,omitempty" json:"hint,omitempty"`
	Module            string     `yaml:"module,omitempty" json:"module,omitempty"`
}

// Fields converts the file entry to domain fields
func (f ExerciseFile) Fields() domain.ExerciseFields {
	return domain.ExerciseFields{
		Prompt:            f.Prompt,
		AcceptableAnswers: []string(f.AcceptableAnswers),
		Keywords:          []string(f.Keywords),
		Difficulty:        domain.Difficulty(f.Difficulty),
		Category:          f.Category,
		Hint:              f.Hint,
		Module:            f.Module,
	}
}

// FileFromExercise converts a stored exercise back to its file shape
func FileFromExercise(ex domain.Exercise) ExerciseFile {
	return ExerciseFile{
		Prompt:            ex.Prompt,
		AcceptableAnswers: ex.AcceptableAnswers,
		Keywords:          ex.Keywords,
		Difficulty:        string(ex.Difficulty),
		Category:          ex.Category,
		Hint:              ex.Hint,
		Module:            ex.Module,
	}
}

// PackFile groups exercises under a default module
type PackFile struct {
	Module    string         `yaml:"module"`
	Exercises []ExerciseFile `yaml:"exercises"`
}

// ParseYAML reads either a pack document or a bare list of exercises.
// Entries without a module inherit the pack's.
func ParseYAML(data []byte) ([]domain.ExerciseFields, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parse exercises: %w", err)
	}
	if len(root.Content) == 0 {
		return nil, nil
	}

	doc := root.Content[0]
	var pack PackFile
	switch doc.Kind {
	case yaml.SequenceNode:
		if err := doc.Decode(&pack.Exercises); err != nil {
			return nil, fmt.Errorf("parse exercises: %w", err)
		}
	case yaml.MappingNode:
		if err := doc.Decode(&pack); err != nil {
			return nil, fmt.Errorf("parse exercise pack: %w", err)
		}
	default:
		return nil, fmt.Errorf("parse exercises: expected a list or a pack document")
	}

	return packFields(pack), nil
}

// ParseJSON reads a JSON array of exercises
func ParseJSON(data []byte) ([]domain.ExerciseFields, error) {
	var files []ExerciseFile
	if err := json.Unmarshal(data, &files); err != nil {
		return nil, fmt.Errorf("parse exercises: %w", err)
	}
	return packFields(PackFile{Exercises: files}), nil
}

// Parse detects JSON by its leading bracket and falls back to YAML
func Parse(data []byte) ([]domain.ExerciseFields, error) {
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '[' {
		if fields, err := ParseJSON(trimmed); err == nil {
			return fields, nil
		}
	}
	return ParseYAML(data)
}

// LoadFile reads an exercise file from disk
func LoadFile(path string) ([]domain.ExerciseFields, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read exercise file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return ParseJSON(data)
	case ".yaml", ".yml":
		return ParseYAML(data)
	default:
		return Parse(data)
	}
}

func packFields(pack PackFile) []domain.ExerciseFields {
	fields := make([]domain.ExerciseFields, 0, len(pack.Exercises))
	for _, f := range pack.Exercises {
		if strings.TrimSpace(f.Module) == "" {
			f.Module = pack.Module
		}
		fields = append(fields, f.Fields())
	}
	return fields
}
