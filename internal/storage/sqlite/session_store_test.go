package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Awhitter/spanish1/internal/domain"
	"github.com/Awhitter/spanish1/internal/session"
)

func TestSessionStore_SaveAndGet(t *testing.T) {
	store := NewSessionStore(openTestDB(t))
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	rec := session.Record{
		ID:           "sess-1",
		Module:       "colores",
		State:        session.StateReady,
		CurrentID:    "ex-2",
		Attempts:     1,
		HintRevealed: true,
		Stats:        session.Stats{Correct: 2, Incorrect: 1, Skipped: 1},
		Presented:    5,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := store.SaveSession(ctx, rec); err != nil {
		t.Fatalf("SaveSession() error = %v", err)
	}

	got, err := store.GetSession(ctx, "sess-1")
	if err != nil {
		t.Fatalf("GetSession() error = %v", err)
	}
	if got.State != session.StateReady || got.CurrentID != "ex-2" || got.Attempts != 1 {
		t.Errorf("GetSession() = %+v", got)
	}
	if !got.HintRevealed || got.AnswerRevealed {
		t.Errorf("flags = hint %v answer %v", got.HintRevealed, got.AnswerRevealed)
	}
	if got.Stats != rec.Stats || got.Presented != 5 {
		t.Errorf("Stats = %+v, Presented = %d", got.Stats, got.Presented)
	}
}

func TestSessionStore_Upsert(t *testing.T) {
	store := NewSessionStore(openTestDB(t))
	ctx := context.Background()
	now := time.Now().UTC()

	rec := session.Record{ID: "sess-1", State: session.StateReady, CreatedAt: now, UpdatedAt: now}
	if err := store.SaveSession(ctx, rec); err != nil {
		t.Fatal(err)
	}

	rec.State = session.StateExhausted
	rec.AnswerRevealed = true
	rec.Stats.Incorrect = 1
	if err := store.SaveSession(ctx, rec); err != nil {
		t.Fatalf("second SaveSession() error = %v", err)
	}

	got, err := store.GetSession(ctx, "sess-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.State != session.StateExhausted || !got.AnswerRevealed || got.Stats.Incorrect != 1 {
		t.Errorf("GetSession() = %+v", got)
	}
}

func TestSessionStore_Delete(t *testing.T) {
	store := NewSessionStore(openTestDB(t))
	ctx := context.Background()
	now := time.Now()

	if err := store.SaveSession(ctx, session.Record{ID: "sess-1", State: session.StateReady, CreatedAt: now, UpdatedAt: now}); err != nil {
		t.Fatal(err)
	}
	if err := store.DeleteSession(ctx, "sess-1"); err != nil {
		t.Fatalf("DeleteSession() error = %v", err)
	}
	if _, err := store.GetSession(ctx, "sess-1"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("GetSession() error = %v, want ErrSessionNotFound", err)
	}
	if err := store.DeleteSession(ctx, "sess-1"); err != nil {
		t.Errorf("deleting twice should not fail: %v", err)
	}
}
