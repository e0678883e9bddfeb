package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Awhitter/spanish1/internal/broadcast"
	"github.com/Awhitter/spanish1/internal/domain"
	"github.com/Awhitter/spanish1/internal/grading"
	"github.com/google/uuid"
)

const persistTimeout = 5 * time.Second

// ManagerConfig configures a Manager
type ManagerConfig struct {
	Source      PoolSource
	Broadcaster broadcast.Broadcaster // optional
	Store       RecordStore           // optional; sessions are memory-only without it
	MaxAttempts int
	Matcher     grading.Matcher
}

// Manager owns the live engines and restores persisted ones on demand
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Engine
	cfg      ManagerConfig
}

// NewManager creates a session manager
func NewManager(cfg ManagerConfig) *Manager {
	return &Manager{
		sessions: make(map[string]*Engine),
		cfg:      cfg,
	}
}

func (m *Manager) newEngine(id, module string) *Engine {
	cfg := EngineConfig{
		ID:          id,
		Module:      module,
		Source:      m.cfg.Source,
		Broadcaster: m.cfg.Broadcaster,
		MaxAttempts: m.cfg.MaxAttempts,
		Matcher:     m.cfg.Matcher,
	}
	if m.cfg.Store != nil {
		cfg.OnChange = m.persist
	}
	return NewEngine(cfg)
}

func (m *Manager) persist(rec Record) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	if err := m.cfg.Store.SaveSession(ctx, rec); err != nil {
		slog.Warn("failed to persist session", "session_id", rec.ID, "error", err)
	}
}

// Create starts a new session for module. The engine is registered even when
// the initial load fails so the caller can retry with Load.
func (m *Manager) Create(ctx context.Context, module string) (*Engine, Snapshot, error) {
	e := m.newEngine(uuid.New().String(), module)

	m.mu.Lock()
	m.sessions[e.ID()] = e
	m.mu.Unlock()

	snap, err := e.Start(ctx)
	slog.Info("session started", "session_id", e.ID(), "module", module, "state", snap.State)
	return e, snap, err
}

// Get returns a live engine, restoring it from the record store if needed
func (m *Manager) Get(ctx context.Context, id string) (*Engine, error) {
	m.mu.RLock()
	e, ok := m.sessions[id]
	m.mu.RUnlock()
	if ok {
		return e, nil
	}

	if m.cfg.Store == nil {
		return nil, domain.ErrSessionNotFound
	}
	return m.restore(ctx, id)
}

func (m *Manager) restore(ctx context.Context, id string) (*Engine, error) {
	rec, err := m.cfg.Store.GetSession(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil, err
		}
		return nil, domain.NewTransportError("get session", err)
	}

	pool, err := m.cfg.Source.ListExercises(ctx, rec.Module)
	if err != nil {
		return nil, domain.NewTransportError("restore session", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Another request may have restored it meanwhile
	if e, ok := m.sessions[id]; ok {
		return e, nil
	}

	e := m.newEngine(rec.ID, rec.Module)
	e.Restore(*rec, pool)
	e.subscribe()
	m.sessions[id] = e

	slog.Info("session restored", "session_id", id, "module", rec.Module)
	return e, nil
}

// Apply runs fn against the session with the given id
func (m *Manager) Apply(ctx context.Context, id string, fn func(*Engine) (Snapshot, error)) (Snapshot, error) {
	e, err := m.Get(ctx, id)
	if err != nil {
		return Snapshot{}, err
	}
	return fn(e)
}

// End closes the session and removes its record
func (m *Manager) End(ctx context.Context, id string) error {
	m.mu.Lock()
	e, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if ok {
		e.Close()
	}

	if m.cfg.Store != nil {
		if err := m.cfg.Store.DeleteSession(ctx, id); err != nil {
			if errors.Is(err, domain.ErrSessionNotFound) && ok {
				return nil
			}
			return fmt.Errorf("delete session: %w", err)
		}
		return nil
	}

	if !ok {
		return domain.ErrSessionNotFound
	}
	return nil
}

// Evict closes engines idle for longer than maxIdle. Engines with a live
// listener are kept. Persisted sessions can still be restored afterwards.
func (m *Manager) Evict(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	m.mu.Lock()
	var idle []*Engine
	for id, e := range m.sessions {
		if e.Snapshot().UpdatedAt.Before(cutoff) && !e.Listening() {
			idle = append(idle, e)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, e := range idle {
		e.Close()
	}
	return len(idle)
}

// Len returns the number of live engines
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Close shuts down every live engine, keeping their records
func (m *Manager) Close() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Engine)
	m.mu.Unlock()

	for _, e := range sessions {
		e.Close()
	}
}
