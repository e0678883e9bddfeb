package exercise

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Awhitter/spanish1/internal/domain"
)

func TestParseYAML_Pack(t *testing.T) {
	data := []byte(`module: saludos
exercises:
  - prompt: ¿Cómo se dice "hello"?
    acceptable_answers: hola, buenas
    hint: Empieza por h.
  - prompt: ¿Cómo se dice "goodbye"?
    acceptable_answers: [adiós]
    module: despedidas
`)

	fields, err := ParseYAML(data)
	if err != nil {
		t.Fatalf("ParseYAML() error = %v", err)
	}
	if len(fields) != 2 {
		t.Fatalf("len = %d, want 2", len(fields))
	}
	if fields[0].Module != "saludos" {
		t.Errorf("Module = %q, want inherited saludos", fields[0].Module)
	}
	if len(fields[0].AcceptableAnswers) != 2 || fields[0].AcceptableAnswers[1] != "buenas" {
		t.Errorf("AcceptableAnswers = %v", fields[0].AcceptableAnswers)
	}
	if fields[1].Module != "despedidas" {
		t.Errorf("Module = %q, want despedidas", fields[1].Module)
	}
}

func TestParseYAML_List(t *testing.T) {
	fields, err := ParseYAML([]byte("- prompt: uno\n  acceptable_answers: one\n"))
	if err != nil {
		t.Fatalf("ParseYAML() error = %v", err)
	}
	if len(fields) != 1 || fields[0].Prompt != "uno" {
		t.Errorf("fields = %+v", fields)
	}

	if _, err := ParseYAML([]byte("just a string")); err == nil {
		t.Error("scalar document should be rejected")
	}
	if fields, err := ParseYAML(nil); err != nil || fields != nil {
		t.Errorf("empty document = %v, %v", fields, err)
	}
}

func TestParse_DetectsJSON(t *testing.T) {
	fields, err := Parse([]byte(` [{"prompt": "dos", "acceptable_answers": "two", "keywords": ["two"]}]`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(fields) != 1 || fields[0].AcceptableAnswers[0] != "two" || fields[0].Keywords[0] != "two" {
		t.Errorf("fields = %+v", fields)
	}

	if _, err := ParseJSON([]byte(`{"prompt": "x"}`)); err == nil {
		t.Error("ParseJSON should require an array")
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "colores.yaml")
	if err := os.WriteFile(yamlPath, seedYAML, 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	fields, err := LoadFile(yamlPath)
	if err != nil {
		t.Fatalf("LoadFile(yaml) error = %v", err)
	}
	if len(fields) != 5 {
		t.Errorf("len = %d, want 5", len(fields))
	}

	jsonPath := filepath.Join(dir, "extra.json")
	if err := os.WriteFile(jsonPath, []byte(`[{"prompt":"tres","acceptable_answers":["three"]}]`), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if fields, err := LoadFile(jsonPath); err != nil || len(fields) != 1 {
		t.Errorf("LoadFile(json) = %v, %v", fields, err)
	}

	if _, err := LoadFile(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("missing file should error")
	}
}

func TestSeed_Content(t *testing.T) {
	fields, err := ParseYAML(seedYAML)
	if err != nil {
		t.Fatalf("ParseYAML(seed) error = %v", err)
	}
	for _, f := range fields {
		if err := f.Validate(true); err != nil {
			t.Errorf("seed row %q invalid: %v", f.Prompt, err)
		}
		if f.Hint == "" {
			t.Errorf("seed row %q has no hint", f.Prompt)
		}
	}
	if fields[2].AcceptableAnswers[0] != "azul" {
		t.Errorf("third seed answer = %q, want azul", fields[2].AcceptableAnswers[0])
	}
}

func TestFileFromExercise_RoundTrip(t *testing.T) {
	fields, _ := ParseYAML(seedYAML)
	var ex domain.Exercise
	ex.Apply(fields[0])
	f := FileFromExercise(ex)
	if f.Fields().Prompt != fields[0].Prompt || f.Fields().Hint != fields[0].Hint {
		t.Errorf("round trip lost fields: %+v", f)
	}
}
