package session

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/Awhitter/spanish1/internal/domain"
	"github.com/Awhitter/spanish1/internal/grading"
)

// fakeSource is an in-memory PoolSource whose contents tests can swap
type fakeSource struct {
	mu    sync.Mutex
	pool  []domain.Exercise
	err   error
	calls int
}

func (f *fakeSource) ListExercises(_ context.Context, module string) ([]domain.Exercise, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	var out []domain.Exercise
	for _, ex := range f.pool {
		if module == "" || ex.Module == module {
			out = append(out, ex)
		}
	}
	return out, nil
}

func (f *fakeSource) set(pool ...domain.Exercise) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pool = pool
}

func (f *fakeSource) fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

// gatedSource blocks ListExercises once armed until release is closed
type gatedSource struct {
	*fakeSource
	mu      sync.Mutex
	armed   bool
	entered chan struct{}
	release chan struct{}
}

func newGatedSource(pool ...domain.Exercise) *gatedSource {
	return &gatedSource{
		fakeSource: &fakeSource{pool: pool},
		entered:    make(chan struct{}),
		release:    make(chan struct{}),
	}
}

func (g *gatedSource) arm() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.armed = true
}

func (g *gatedSource) ListExercises(ctx context.Context, module string) ([]domain.Exercise, error) {
	g.mu.Lock()
	armed := g.armed
	g.armed = false
	g.mu.Unlock()

	if armed {
		close(g.entered)
		<-g.release
	}
	return g.fakeSource.ListExercises(ctx, module)
}

// memRecords is an in-memory RecordStore
type memRecords struct {
	mu      sync.Mutex
	records map[string]Record
	saves   int
}

func newMemRecords() *memRecords {
	return &memRecords{records: make(map[string]Record)}
}

func (m *memRecords) SaveSession(_ context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[rec.ID] = rec
	m.saves++
	return nil
}

func (m *memRecords) GetSession(_ context.Context, id string) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return &rec, nil
}

func (m *memRecords) DeleteSession(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[id]; !ok {
		return domain.ErrSessionNotFound
	}
	delete(m.records, id)
	return nil
}

var errDown = errors.New("database is down")

func skyExercise() domain.Exercise {
	return domain.Exercise{
		ID:                "sky",
		Prompt:            "Complete: El cielo es _______.",
		AcceptableAnswers: []string{"azul"},
		Keywords:          []string{"azul"},
		Difficulty:        domain.DifficultyEasy,
		Category:          "colores",
		Hint:              "Es el color del mar también.",
		Module:            "colores",
	}
}

func colourPool() []domain.Exercise {
	return []domain.Exercise{
		{ID: "bananas", Prompt: "Complete: Los plátanos son _______.", AcceptableAnswers: []string{"amarillos"}, Hint: "Es el color del sol.", Module: "colores"},
		{ID: "red", Prompt: "¿Cómo se dice \"red\" en español?", AcceptableAnswers: []string{"rojo"}, Module: "colores"},
		skyExercise(),
		{ID: "grass", Prompt: "¿Cuál es el color de la hierba?", AcceptableAnswers: []string{"verde"}, Module: "colores"},
		{ID: "snow", Prompt: "Complete: La nieve es _______.", AcceptableAnswers: []string{"blanca"}, Module: "colores"},
	}
}

func newTestEngine(t *testing.T, src *fakeSource) *Engine {
	t.Helper()
	e := NewEngine(EngineConfig{
		ID:      "test-session",
		Source:  src,
		Matcher: grading.NewMatcher(),
		Rand:    rand.New(rand.NewPCG(1, 2)),
	})
	t.Cleanup(e.Close)
	return e
}

// loadedEngine returns an engine whose pool has been loaded from pool
func loadedEngine(t *testing.T, pool ...domain.Exercise) (*Engine, *fakeSource) {
	t.Helper()
	src := &fakeSource{pool: pool}
	e := newTestEngine(t, src)
	if _, err := e.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return e, src
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
