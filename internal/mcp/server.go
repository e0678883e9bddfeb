package mcp

import (
	"context"
	"fmt"
	"strings"

	mcp "github.com/felixgeelhaar/mcp-go"
	"github.com/felixgeelhaar/mcp-go/server"
	"github.com/Awhitter/spanish1/internal/exercise"
	"github.com/Awhitter/spanish1/internal/session"
)

// Server exposes the quiz as MCP tools
type Server struct {
	mcpServer *server.Server
	exercises *exercise.Service
	sessions  *session.Manager
}

// Config contains configuration for the MCP server
type Config struct {
	Exercises *exercise.Service
	Sessions  *session.Manager
	Version   string
}

// NewServer creates a new MCP server for the quiz
func NewServer(cfg Config) *Server {
	s := &Server{
		exercises: cfg.Exercises,
		sessions:  cfg.Sessions,
	}

	version := cfg.Version
	if version == "" {
		version = "dev"
	}

	s.mcpServer = server.New(server.Info{
		Name:    "spanish",
		Version: version,
	}, server.WithInstructions(`
Spanish practice quiz. Exercises are grouped into modules; a session draws
exercises from one module (or all of them) at random.

Typical flow:
- spanish_modules: list the available modules
- spanish_start: start a session, returns the first prompt
- spanish_answer: submit the learner's answer (accents and case are ignored)
- spanish_hint: reveal the hint for the current exercise
- spanish_skip: abandon the current exercise
- spanish_next: advance after a correct answer or the reveal
- spanish_status: show progress and statistics
- spanish_stop: end the session

The correct answer is revealed after three wrong attempts. Do not give the
answer away before that.
`))

	s.registerTools()

	return s
}

func (s *Server) registerTools() {
	s.mcpServer.Tool("spanish_modules").
		Description("List exercise modules with their exercise counts.").
		Handler(s.handleModules)

	s.mcpServer.Tool("spanish_exercises").
		Description("List exercise prompts, optionally for one module. Answers are not included.").
		Handler(s.handleExercises)

	s.mcpServer.Tool("spanish_start").
		Description("Start a practice session for a module (empty for every module).").
		Handler(s.handleStart)

	s.mcpServer.Tool("spanish_answer").
		Description("Submit an answer for the current exercise.").
		Handler(s.handleAnswer)

	s.mcpServer.Tool("spanish_hint").
		Description("Reveal the hint of the current exercise.").
		Handler(s.handleHint)

	s.mcpServer.Tool("spanish_skip").
		Description("Skip the current exercise and draw another.").
		Handler(s.handleSkip)

	s.mcpServer.Tool("spanish_next").
		Description("Move on once the current exercise is resolved.").
		Handler(s.handleNext)

	s.mcpServer.Tool("spanish_reset").
		Description("Clear the session statistics and start over.").
		Handler(s.handleReset)

	s.mcpServer.Tool("spanish_status").
		Description("Get the current state of a session.").
		Handler(s.handleStatus)

	s.mcpServer.Tool("spanish_stop").
		Description("End a practice session.").
		Handler(s.handleStop)
}

type ModulesInput struct{}

type ModuleInfo struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type ModulesOutput struct {
	Modules []ModuleInfo `json:"modules"`
}

type ExercisesInput struct {
	Module string `json:"module,omitempty" jsonschema:"description=Module name; empty lists every exercise"`
}

type ExerciseInfo struct {
	ID         string `json:"id"`
	Prompt     string `json:"prompt"`
	Module     string `json:"module,omitempty"`
	Difficulty string `json:"difficulty,omitempty"`
}

type ExercisesOutput struct {
	Exercises []ExerciseInfo `json:"exercises"`
	Count     int            `json:"count"`
}

type StartInput struct {
	Module string `json:"module,omitempty" jsonschema:"description=Module to practice; empty draws from every module"`
}

type SessionInput struct {
	SessionID string `json:"session_id" jsonschema:"description=Session ID from spanish_start"`
}

type AnswerInput struct {
	SessionID string `json:"session_id" jsonschema:"description=Session ID from spanish_start"`
	Answer    string `json:"answer" jsonschema:"description=The learner's answer"`
}

// SessionOutput is the tool view of a session snapshot
type SessionOutput struct {
	SessionID    string  `json:"session_id"`
	Module       string  `json:"module,omitempty"`
	State        string  `json:"state"`
	Prompt       string  `json:"prompt,omitempty"`
	Hint         string  `json:"hint,omitempty"`
	HasHint      bool    `json:"has_hint"`
	Answer       string  `json:"answer,omitempty"`
	AttemptsLeft int     `json:"attempts_left"`
	Correct      int     `json:"correct"`
	Incorrect    int     `json:"incorrect"`
	Skipped      int     `json:"skipped"`
	Progress     float64 `json:"progress"`
	Complete     bool    `json:"complete"`
	Message      string  `json:"message,omitempty"`
}

type StopOutput struct {
	Message string `json:"message"`
}

func toOutput(snap session.Snapshot) SessionOutput {
	out := SessionOutput{
		SessionID:    snap.ID,
		Module:       snap.Module,
		State:        string(snap.State),
		Hint:         snap.Hint,
		Answer:       snap.Answer,
		AttemptsLeft: snap.AttemptsLeft(),
		Correct:      snap.Stats.Correct,
		Incorrect:    snap.Stats.Incorrect,
		Skipped:      snap.Stats.Skipped,
		Progress:     snap.Progress,
		Complete:     snap.Complete,
	}
	if snap.Exercise != nil {
		out.Prompt = snap.Exercise.Prompt
		out.HasHint = snap.Exercise.HasHint
	}
	switch {
	case snap.Feedback != nil:
		out.Message = snap.Feedback.Message
	case snap.Error != "":
		out.Message = snap.Error
	}
	return out
}

// Tool handlers

func (s *Server) handleModules(ctx context.Context, _ ModulesInput) (ModulesOutput, error) {
	modules, err := s.exercises.Modules(ctx)
	if err != nil {
		return ModulesOutput{}, fmt.Errorf("list modules: %w", err)
	}

	out := ModulesOutput{Modules: make([]ModuleInfo, 0, len(modules))}
	for _, m := range modules {
		out.Modules = append(out.Modules, ModuleInfo{Name: m.Name, Count: m.Count})
	}
	return out, nil
}

func (s *Server) handleExercises(ctx context.Context, input ExercisesInput) (ExercisesOutput, error) {
	exercises, err := s.exercises.List(ctx, strings.TrimSpace(input.Module))
	if err != nil {
		return ExercisesOutput{}, fmt.Errorf("list exercises: %w", err)
	}

	out := ExercisesOutput{Exercises: make([]ExerciseInfo, 0, len(exercises)), Count: len(exercises)}
	for _, ex := range exercises {
		out.Exercises = append(out.Exercises, ExerciseInfo{
			ID:         ex.ID,
			Prompt:     ex.Prompt,
			Module:     ex.Module,
			Difficulty: string(ex.Difficulty),
		})
	}
	return out, nil
}

func (s *Server) handleStart(ctx context.Context, input StartInput) (SessionOutput, error) {
	_, snap, err := s.sessions.Create(ctx, strings.TrimSpace(input.Module))
	if err != nil && snap.ID == "" {
		return SessionOutput{}, fmt.Errorf("start session: %w", err)
	}
	// a failed load still yields a session the client can stop
	return toOutput(snap), nil
}

func (s *Server) handleAnswer(ctx context.Context, input AnswerInput) (SessionOutput, error) {
	return s.apply(ctx, input.SessionID, func(e *session.Engine) (session.Snapshot, error) {
		return e.Answer(input.Answer)
	})
}

func (s *Server) handleHint(ctx context.Context, input SessionInput) (SessionOutput, error) {
	return s.apply(ctx, input.SessionID, (*session.Engine).RequestHint)
}

func (s *Server) handleSkip(ctx context.Context, input SessionInput) (SessionOutput, error) {
	return s.apply(ctx, input.SessionID, (*session.Engine).Skip)
}

func (s *Server) handleNext(ctx context.Context, input SessionInput) (SessionOutput, error) {
	return s.apply(ctx, input.SessionID, (*session.Engine).Next)
}

func (s *Server) handleReset(ctx context.Context, input SessionInput) (SessionOutput, error) {
	return s.apply(ctx, input.SessionID, func(e *session.Engine) (session.Snapshot, error) {
		return e.Reset(), nil
	})
}

func (s *Server) handleStatus(ctx context.Context, input SessionInput) (SessionOutput, error) {
	return s.apply(ctx, input.SessionID, func(e *session.Engine) (session.Snapshot, error) {
		return e.Snapshot(), nil
	})
}

func (s *Server) handleStop(ctx context.Context, input SessionInput) (StopOutput, error) {
	if err := s.sessions.End(ctx, input.SessionID); err != nil {
		return StopOutput{}, fmt.Errorf("end session: %w", err)
	}
	return StopOutput{Message: "Sesión terminada."}, nil
}

func (s *Server) apply(ctx context.Context, id string, fn func(*session.Engine) (session.Snapshot, error)) (SessionOutput, error) {
	if strings.TrimSpace(id) == "" {
		return SessionOutput{}, fmt.Errorf("session_id is required")
	}
	snap, err := s.sessions.Apply(ctx, id, fn)
	if err != nil {
		return SessionOutput{}, err
	}
	return toOutput(snap), nil
}

// ServeStdio starts the MCP server on stdio
func (s *Server) ServeStdio(ctx context.Context) error {
	return mcp.ServeStdio(ctx, s.mcpServer)
}

// ServeHTTP starts the MCP server on HTTP
func (s *Server) ServeHTTP(ctx context.Context, addr string) error {
	return mcp.ServeHTTP(ctx, s.mcpServer, addr)
}

// GetMCPServer returns the underlying MCP server (for testing)
func (s *Server) GetMCPServer() *server.Server {
	return s.mcpServer
}
