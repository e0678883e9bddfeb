package daemon

import (
	"io"
	"net/http"
	"strings"

	"github.com/Awhitter/spanish1/internal/api"
	"github.com/Awhitter/spanish1/internal/domain"
	"github.com/Awhitter/spanish1/internal/exercise"
)

func (s *Server) handleListExercises(w http.ResponseWriter, r *http.Request) {
	exercises, err := s.exercises.List(r.Context(), strings.TrimSpace(r.URL.Query().Get("module")))
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{
		"exercises": exercises,
		"count":     len(exercises),
	})
}

func (s *Server) handleGetExercise(w http.ResponseWriter, r *http.Request) {
	ex, err := s.exercises.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, ex)
}

func (s *Server) handleCreateExercise(w http.ResponseWriter, r *http.Request) {
	var req exercise.ExerciseFile
	if err := api.DecodeJSON(w, r, &req); err != nil {
		api.WriteErr(w, r, err)
		return
	}

	ex, err := s.exercises.Create(r.Context(), req.Fields())
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	audit(r, "create exercise", "exercise_id", ex.ID)
	api.WriteJSON(w, http.StatusCreated, ex)
}

func (s *Server) handleUpdateExercise(w http.ResponseWriter, r *http.Request) {
	var req exercise.ExerciseFile
	if err := api.DecodeJSON(w, r, &req); err != nil {
		api.WriteErr(w, r, err)
		return
	}

	ex, err := s.exercises.Update(r.Context(), r.PathValue("id"), req.Fields())
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	audit(r, "update exercise", "exercise_id", ex.ID)
	api.WriteJSON(w, http.StatusOK, ex)
}

func (s *Server) handleDeleteExercise(w http.ResponseWriter, r *http.Request) {
	ex, err := s.exercises.Delete(r.Context(), r.PathValue("id"))
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	audit(r, "delete exercise", "exercise_id", ex.ID)
	w.WriteHeader(http.StatusNoContent)
}

type importResponse struct {
	exercise.ImportResult
	Message string `json:"message"`
}

// handleImportExercises accepts a JSON array or a YAML document
func (s *Server) handleImportExercises(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, api.MaxBodyBytes))
	if err != nil {
		api.BadRequest(w, r, "failed to read import body")
		return
	}

	var rows []domain.ExerciseFields
	switch ct := r.Header.Get("Content-Type"); {
	case strings.Contains(ct, "json"):
		rows, err = exercise.ParseJSON(body)
	case strings.Contains(ct, "yaml"):
		rows, err = exercise.ParseYAML(body)
	default:
		rows, err = exercise.Parse(body)
	}
	if err != nil {
		api.BadRequest(w, r, err.Error())
		return
	}

	result := s.exercises.Import(r.Context(), rows)
	audit(r, "import exercises", "added", result.Added, "failed", result.Failed)
	api.WriteJSON(w, http.StatusOK, importResponse{ImportResult: result, Message: result.Message()})
}

func (s *Server) handleListModules(w http.ResponseWriter, r *http.Request) {
	modules, err := s.exercises.Modules(r.Context())
	if err != nil {
		api.WriteErr(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"modules": modules})
}
