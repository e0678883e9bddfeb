//go:build integration

package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/Awhitter/spanish1/internal/domain"
	"github.com/Awhitter/spanish1/internal/session"
)

func setupPostgres(t *testing.T) *DB {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "spanish",
				"POSTGRES_PASSWORD": "spanish",
				"POSTGRES_DB":       "spanish",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("container port: %v", err)
	}

	dsn := fmt.Sprintf("postgres://spanish:spanish@%s:%s/spanish?sslmode=disable", host, port.Port())
	db, err := Open(ctx, dsn, PoolConfig{MaxConns: 4})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return db
}

func TestPostgres_Migrate(t *testing.T) {
	db := setupPostgres(t)
	ctx := context.Background()

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}
	version, err := db.Version(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if version != 2 {
		t.Errorf("Version() = %d, want 2", version)
	}
}

func TestPostgres_ExerciseStore(t *testing.T) {
	db := setupPostgres(t)
	store := NewExerciseStore(db)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	ex := &domain.Exercise{
		ID:                "ex-1",
		Prompt:            "Complete: El cielo es _______.",
		AcceptableAnswers: []string{"azul"},
		Module:            "colores",
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := store.CreateExercise(ctx, ex); err != nil {
		t.Fatalf("CreateExercise() error = %v", err)
	}

	got, err := store.GetExercise(ctx, "ex-1")
	if err != nil {
		t.Fatalf("GetExercise() error = %v", err)
	}
	if got.AcceptableAnswers[0] != "azul" || got.Keywords != nil {
		t.Errorf("GetExercise() = %+v", got)
	}

	ex.Keywords = []string{"cielo"}
	if err := store.UpdateExercise(ctx, ex); err != nil {
		t.Fatalf("UpdateExercise() error = %v", err)
	}
	got, _ = store.GetExercise(ctx, "ex-1")
	if len(got.Keywords) != 1 {
		t.Errorf("Keywords = %v", got.Keywords)
	}

	modules, err := store.ListModules(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(modules) != 1 || modules[0].Count != 1 {
		t.Errorf("ListModules() = %+v", modules)
	}

	if err := store.DeleteExercise(ctx, "ex-1"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.GetExercise(ctx, "ex-1"); !errors.Is(err, domain.ErrExerciseNotFound) {
		t.Errorf("GetExercise() after delete error = %v", err)
	}
}

func TestPostgres_SessionStore(t *testing.T) {
	db := setupPostgres(t)
	store := NewSessionStore(db)
	ctx := context.Background()
	now := time.Now().UTC()

	rec := session.Record{ID: "sess-1", State: session.StateReady, CurrentID: "ex-1", CreatedAt: now, UpdatedAt: now}
	if err := store.SaveSession(ctx, rec); err != nil {
		t.Fatalf("SaveSession() error = %v", err)
	}
	rec.State = session.StateCorrect
	rec.Stats.Correct = 1
	if err := store.SaveSession(ctx, rec); err != nil {
		t.Fatal(err)
	}

	got, err := store.GetSession(ctx, "sess-1")
	if err != nil {
		t.Fatalf("GetSession() error = %v", err)
	}
	if got.State != session.StateCorrect || got.Stats.Correct != 1 {
		t.Errorf("GetSession() = %+v", got)
	}

	if err := store.DeleteSession(ctx, "sess-1"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.GetSession(ctx, "sess-1"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("GetSession() error = %v", err)
	}
}
