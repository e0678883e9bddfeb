package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/Awhitter/spanish1/internal/auth"
	"github.com/Awhitter/spanish1/internal/broadcast"
	"github.com/Awhitter/spanish1/internal/config"
	"github.com/Awhitter/spanish1/internal/exercise"
	"github.com/Awhitter/spanish1/internal/grading"
	"github.com/Awhitter/spanish1/internal/queue"
	"github.com/Awhitter/spanish1/internal/session"
	"github.com/Awhitter/spanish1/internal/storage/postgres"
	"github.com/Awhitter/spanish1/internal/storage/sqlite"
)

// Runtime owns every long-lived collaborator of the daemon
type Runtime struct {
	Config    *config.LocalConfig
	Server    *Server
	Exercises *exercise.Service
	Sessions  *session.Manager
	Auth      *auth.Service
	Hub       *broadcast.Hub

	bridge   *broadcast.Bridge
	consumer *queue.EventConsumer
	conn     *queue.Connection
	closers  []func() error
}

// Open builds the runtime described by cfg: storage, broadcast bus,
// services and HTTP server.
func Open(ctx context.Context, cfg *config.LocalConfig) (*Runtime, error) {
	rt := &Runtime{Config: cfg}

	repo, records, err := rt.openStorage(ctx)
	if err != nil {
		rt.Close()
		return nil, err
	}

	rt.Hub = broadcast.NewHub(cfg.Broadcast.Buffer)
	rt.closers = append(rt.closers, rt.Hub.Close)

	var bus broadcast.Broadcaster = rt.Hub
	if cfg.Broadcast.Driver == config.DriverAMQP {
		if bus, err = rt.openBridge(ctx); err != nil {
			rt.Close()
			return nil, err
		}
	}

	rt.Exercises = exercise.NewService(repo, bus, exercise.Config{RequireModule: cfg.Quiz.RequireModule})

	if cfg.Quiz.Seed {
		n, err := rt.Exercises.Seed(ctx)
		if err != nil {
			slog.Warn("failed to seed exercises", "error", err)
		} else if n > 0 {
			slog.Info("seeded exercises", "count", n)
		}
	}

	rt.Sessions = session.NewManager(session.ManagerConfig{
		Source:      rt.Exercises,
		Broadcaster: bus,
		Store:       records,
		MaxAttempts: cfg.Quiz.MaxAttempts,
		Matcher:     grading.Matcher{FuzzyDistance: cfg.Quiz.FuzzyDistance},
	})

	rt.Auth = auth.NewService(auth.Config{
		SecretHash:  cfg.Admin.SecretHash,
		TokenSecret: cfg.Admin.TokenSecret,
		TokenTTL:    cfg.TokenTTL(),
	})
	rt.closers = append(rt.closers, rt.Auth.Close)
	if !rt.Auth.Configured() {
		slog.Warn("admin secret not configured, admin routes are disabled; run `spanish hash-secret`")
	}

	rt.Server = NewServer(ServerConfig{
		Config:    cfg,
		Exercises: rt.Exercises,
		Sessions:  rt.Sessions,
		Auth:      rt.Auth,
		Bus:       rt.Hub,
	})

	return rt, nil
}

func (rt *Runtime) openStorage(ctx context.Context) (exercise.Repository, session.RecordStore, error) {
	cfg := rt.Config.Storage

	switch cfg.Driver {
	case config.DriverPostgres:
		db, err := postgres.Open(ctx, cfg.PostgresURL, postgres.PoolConfig{
			MaxConns:        int32(cfg.MaxConns),
			MaxConnLifetime: 30 * time.Minute,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		rt.closers = append(rt.closers, db.Close)
		if err := db.Migrate(ctx); err != nil {
			return nil, nil, fmt.Errorf("migrate postgres: %w", err)
		}
		slog.Info("using postgres storage")
		return postgres.NewExerciseStore(db), postgres.NewSessionStore(db), nil

	default:
		db, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		rt.closers = append(rt.closers, db.Close)
		if err := db.Migrate(ctx); err != nil {
			return nil, nil, fmt.Errorf("migrate sqlite: %w", err)
		}
		slog.Info("using sqlite storage", "path", cfg.SQLitePath)
		return sqlite.NewExerciseStore(db), sqlite.NewSessionStore(db), nil
	}
}

// openBridge connects the hub to the RabbitMQ fanout exchange so mutations
// reach sessions held by other daemon instances.
func (rt *Runtime) openBridge(ctx context.Context) (broadcast.Broadcaster, error) {
	conn, err := queue.NewConnection(rt.Config.Broadcast.AMQPURL, rt.Config.Broadcast.Exchange)
	if err != nil {
		return nil, fmt.Errorf("connect broadcast bus: %w", err)
	}
	rt.conn = conn

	publisher := broadcast.NewResilientPublisher(queue.NewProducer(conn), broadcast.DefaultResilientConfig())
	rt.bridge = broadcast.NewBridge(rt.Hub, publisher, nodeID())

	rt.consumer = queue.NewEventConsumer(conn, rt.bridge.HandleRemote)
	if err := rt.consumer.Start(ctx); err != nil {
		return nil, fmt.Errorf("start event consumer: %w", err)
	}

	slog.Info("broadcast bridged to rabbitmq", "exchange", conn.Exchange(), "node_id", rt.bridge.NodeID())
	return rt.bridge, nil
}

// RunEviction closes idle sessions until ctx is done
func (rt *Runtime) RunEviction(ctx context.Context) {
	idle := rt.Config.SessionIdle()
	if idle <= 0 {
		return
	}

	ticker := time.NewTicker(max(idle/4, time.Minute))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := rt.Sessions.Evict(idle); n > 0 {
				slog.Info("evicted idle sessions", "count", n)
			}
		}
	}
}

// Close releases everything Open acquired, in reverse order
func (rt *Runtime) Close() error {
	if rt.Sessions != nil {
		rt.Sessions.Close()
	}
	if rt.consumer != nil {
		rt.consumer.Stop()
	}
	if rt.bridge != nil {
		rt.bridge.Wait()
	}
	if rt.conn != nil {
		rt.closers = append(rt.closers, rt.conn.Close)
	}

	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil && !errors.Is(err, broadcast.ErrClosed) {
			errs = append(errs, err)
		}
	}
	rt.closers = nil
	return errors.Join(errs...)
}

func nodeID() string {
	host, err := os.Hostname()
	if err != nil {
		host = "spanishd"
	}
	return fmt.Sprintf("%s-%s", host, uuid.NewString()[:8])
}
