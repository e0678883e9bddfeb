package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Awhitter/spanish1/internal/domain"
)

func newExercise(id, module, answer string, at time.Time) *domain.Exercise {
	return &domain.Exercise{
		ID:                id,
		Prompt:            "¿Cómo se dice este color?",
		AcceptableAnswers: []string{answer},
		Difficulty:        domain.DifficultyEasy,
		Category:          "colores",
		Module:            module,
		CreatedAt:         at,
		UpdatedAt:         at,
	}
}

func TestExerciseStore_CreateAndGet(t *testing.T) {
	store := NewExerciseStore(openTestDB(t))
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	ex := newExercise("ex-1", "colores", "azul", now)
	ex.AcceptableAnswers = []string{"azul", "celeste"}
	ex.Keywords = []string{"cielo"}
	ex.Hint = "Mira hacia arriba."

	if err := store.CreateExercise(ctx, ex); err != nil {
		t.Fatalf("CreateExercise() error = %v", err)
	}

	got, err := store.GetExercise(ctx, "ex-1")
	if err != nil {
		t.Fatalf("GetExercise() error = %v", err)
	}
	if got.Prompt != ex.Prompt || got.Hint != ex.Hint || got.Difficulty != domain.DifficultyEasy {
		t.Errorf("GetExercise() = %+v", got)
	}
	if len(got.AcceptableAnswers) != 2 || got.AcceptableAnswers[1] != "celeste" {
		t.Errorf("AcceptableAnswers = %v", got.AcceptableAnswers)
	}
	if len(got.Keywords) != 1 || got.Keywords[0] != "cielo" {
		t.Errorf("Keywords = %v", got.Keywords)
	}
	if !got.CreatedAt.Equal(now) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, now)
	}
}

func TestExerciseStore_EmptyKeywordsStoredAsNull(t *testing.T) {
	db := openTestDB(t)
	store := NewExerciseStore(db)
	ctx := context.Background()

	if err := store.CreateExercise(ctx, newExercise("ex-1", "", "rojo", time.Now())); err != nil {
		t.Fatal(err)
	}

	var isNull bool
	if err := db.QueryRow("SELECT keywords IS NULL FROM exercises WHERE id = ?", "ex-1").Scan(&isNull); err != nil {
		t.Fatal(err)
	}
	if !isNull {
		t.Error("keywords should be NULL")
	}

	got, err := store.GetExercise(ctx, "ex-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Keywords != nil {
		t.Errorf("Keywords = %v, want nil", got.Keywords)
	}
}

func TestExerciseStore_NotFound(t *testing.T) {
	store := NewExerciseStore(openTestDB(t))
	ctx := context.Background()

	if _, err := store.GetExercise(ctx, "missing"); !errors.Is(err, domain.ErrExerciseNotFound) {
		t.Errorf("GetExercise() error = %v, want ErrExerciseNotFound", err)
	}
	if err := store.UpdateExercise(ctx, newExercise("missing", "", "x", time.Now())); !errors.Is(err, domain.ErrExerciseNotFound) {
		t.Errorf("UpdateExercise() error = %v, want ErrExerciseNotFound", err)
	}
	if err := store.DeleteExercise(ctx, "missing"); !errors.Is(err, domain.ErrExerciseNotFound) {
		t.Errorf("DeleteExercise() error = %v, want ErrExerciseNotFound", err)
	}
}

func TestExerciseStore_Update(t *testing.T) {
	store := NewExerciseStore(openTestDB(t))
	ctx := context.Background()
	ex := newExercise("ex-1", "colores", "verde", time.Now())

	if err := store.CreateExercise(ctx, ex); err != nil {
		t.Fatal(err)
	}

	ex.AcceptableAnswers = []string{"amarillo"}
	ex.Keywords = []string{"sol"}
	ex.UpdatedAt = ex.UpdatedAt.Add(time.Minute)
	if err := store.UpdateExercise(ctx, ex); err != nil {
		t.Fatalf("UpdateExercise() error = %v", err)
	}

	got, err := store.GetExercise(ctx, "ex-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.AcceptableAnswers[0] != "amarillo" || got.Keywords[0] != "sol" {
		t.Errorf("GetExercise() = %+v", got)
	}
}

func TestExerciseStore_ListAndDelete(t *testing.T) {
	store := NewExerciseStore(openTestDB(t))
	ctx := context.Background()
	base := time.Now().UTC()

	for i, spec := range []struct{ id, module string }{
		{"a", "colores"}, {"b", "numeros"}, {"c", "colores"},
	} {
		if err := store.CreateExercise(ctx, newExercise(spec.id, spec.module, "x", base.Add(time.Duration(i)*time.Second))); err != nil {
			t.Fatal(err)
		}
	}

	all, err := store.ListExercises(ctx, "")
	if err != nil {
		t.Fatalf("ListExercises() error = %v", err)
	}
	if len(all) != 3 || all[0].ID != "a" || all[2].ID != "c" {
		t.Errorf("ListExercises(all) = %v", ids(all))
	}

	colores, err := store.ListExercises(ctx, "colores")
	if err != nil {
		t.Fatal(err)
	}
	if len(colores) != 2 {
		t.Errorf("ListExercises(colores) = %v", ids(colores))
	}

	if err := store.DeleteExercise(ctx, "a"); err != nil {
		t.Fatalf("DeleteExercise() error = %v", err)
	}
	n, err := store.CountExercises(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("CountExercises() = %d, want 2", n)
	}
}

func TestExerciseStore_ListEmpty(t *testing.T) {
	store := NewExerciseStore(openTestDB(t))

	got, err := store.ListExercises(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("ListExercises() = %v, want empty non-nil slice", got)
	}
}

func TestExerciseStore_ListModules(t *testing.T) {
	store := NewExerciseStore(openTestDB(t))
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	for i, spec := range []struct{ id, module string }{
		{"a", "colores"}, {"b", "numeros"}, {"c", "colores"}, {"d", ""},
	} {
		if err := store.CreateExercise(ctx, newExercise(spec.id, spec.module, "x", base.Add(time.Duration(i)*time.Hour))); err != nil {
			t.Fatal(err)
		}
	}

	modules, err := store.ListModules(ctx)
	if err != nil {
		t.Fatalf("ListModules() error = %v", err)
	}
	if len(modules) != 2 {
		t.Fatalf("ListModules() = %+v, want 2 modules", modules)
	}
	if modules[0].Name != "colores" || modules[0].Count != 2 {
		t.Errorf("modules[0] = %+v", modules[0])
	}
	if modules[0].LastUpdated.IsZero() {
		t.Error("LastUpdated should be parsed")
	}
	if modules[1].Name != "numeros" || modules[1].Count != 1 {
		t.Errorf("modules[1] = %+v", modules[1])
	}
}

func TestParseTimestamp(t *testing.T) {
	want := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		in   any
	}{
		{"time value", want},
		{"text", "2026-03-01 10:00:00+00:00"},
		{"bytes", []byte("2026-03-01T10:00:00+00:00")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseTimestamp(tt.in); !got.Equal(want) {
				t.Errorf("parseTimestamp(%v) = %v, want %v", tt.in, got, want)
			}
		})
	}

	if got := parseTimestamp(nil); !got.IsZero() {
		t.Errorf("parseTimestamp(nil) = %v, want zero", got)
	}
}

func ids(exercises []domain.Exercise) []string {
	out := make([]string, len(exercises))
	for i, ex := range exercises {
		out[i] = ex.ID
	}
	return out
}
