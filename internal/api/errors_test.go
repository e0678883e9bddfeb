package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Awhitter/spanish1/internal/domain"
)

func TestFromError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"validation", &domain.ValidationError{Problems: []string{"prompt is required"}}, http.StatusBadRequest, CodeValidation},
		{"exercise not found", fmt.Errorf("exercise ex-1: %w", domain.ErrExerciseNotFound), http.StatusNotFound, CodeNotFound},
		{"session not found", domain.ErrSessionNotFound, http.StatusNotFound, CodeNotFound},
		{"resolved", domain.ErrExerciseResolved, http.StatusConflict, CodeConflict},
		{"unresolved", domain.ErrExerciseUnresolved, http.StatusConflict, CodeConflict},
		{"no current", domain.ErrNoCurrentExercise, http.StatusConflict, CodeConflict},
		{"rate limited", domain.ErrTooManyAttempts, http.StatusTooManyRequests, CodeRateLimited},
		{"unauthorized", domain.ErrUnauthorized, http.StatusUnauthorized, CodeUnauthorized},
		{"auth not configured", domain.ErrAuthNotConfigured, http.StatusNotImplemented, CodeNotImplemented},
		{"transport", domain.NewTransportError("list exercises", errors.New("refused")), http.StatusServiceUnavailable, CodeUnavailable},
		{"bad request", NewAPIError(CodeBadRequest, "bad"), http.StatusBadRequest, CodeBadRequest},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, apiErr := FromError(tt.err)
			if status != tt.wantStatus {
				t.Errorf("status = %d, want %d", status, tt.wantStatus)
			}
			if apiErr.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", apiErr.Code, tt.wantCode)
			}
		})
	}
}

func TestWriteErr_ValidationDetails(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/v1/exercises", nil)

	WriteErr(w, r, &domain.ValidationError{Problems: []string{"prompt is required", "at least one acceptable answer is required"}})

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	var resp struct {
		Error struct {
			Code    string   `json:"code"`
			Details []string `json:"details"`
		} `json:"error"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Error.Code != CodeValidation || len(resp.Error.Details) != 2 {
		t.Errorf("response = %+v", resp)
	}
}

func TestDecodeJSON(t *testing.T) {
	var body struct {
		Answer string `json:"answer"`
	}

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"answer":"azul"}`))
	if err := DecodeJSON(w, r, &body); err != nil {
		t.Fatalf("DecodeJSON() error = %v", err)
	}
	if body.Answer != "azul" {
		t.Errorf("Answer = %q", body.Answer)
	}

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	if err := DecodeJSON(w, r, &body); err != nil {
		t.Errorf("empty body error = %v", err)
	}

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{"))
	err := DecodeJSON(w, r, &body)
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Code != CodeBadRequest {
		t.Errorf("malformed body error = %v", err)
	}
}
