package daemon

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/Awhitter/spanish1/internal/config"
)

func TestOpen_SQLite(t *testing.T) {
	ctx := context.Background()
	cfg := config.DefaultLocalConfig()
	cfg.Storage.SQLitePath = filepath.Join(t.TempDir(), "spanish.db")

	rt, err := Open(ctx, cfg)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	exercises, err := rt.Exercises.List(ctx, "")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(exercises) != 5 {
		t.Errorf("seeded %d exercises, want 5", len(exercises))
	}
	if rt.Auth.Configured() {
		t.Error("auth should be unconfigured without secrets")
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/ready", nil)
	w := httptest.NewRecorder()
	rt.Server.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("ready status = %d", w.Code)
	}

	if err := rt.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestOpen_SeedsOnce(t *testing.T) {
	ctx := context.Background()
	cfg := config.DefaultLocalConfig()
	cfg.Storage.SQLitePath = filepath.Join(t.TempDir(), "spanish.db")

	for range 2 {
		rt, err := Open(ctx, cfg)
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		exercises, err := rt.Exercises.List(ctx, "")
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(exercises) != 5 {
			t.Errorf("exercises = %d, want 5 after reopen", len(exercises))
		}
		rt.Close()
	}
}

func TestRunEviction_StopsOnCancel(t *testing.T) {
	cfg := config.DefaultLocalConfig()
	cfg.Storage.SQLitePath = filepath.Join(t.TempDir(), "spanish.db")

	rt, err := Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer rt.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		rt.RunEviction(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("RunEviction did not return after cancel")
	}
}
