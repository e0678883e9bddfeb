package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Awhitter/spanish1/internal/config"
)

const tokenFile = "token"

// apiClient talks to the local daemon
type apiClient struct {
	baseURL string
	http    *http.Client
	token   string
}

// apiError is the decoded error body of a failed request
type apiError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *apiError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("daemon returned %d", e.Status)
	}
	return e.Message
}

func newClient() *apiClient {
	baseURL := defaultDaemonAddr
	if cfg, err := config.LoadLocalConfig(); err == nil {
		config.ApplyEnv(cfg)
		baseURL = cfg.BaseURL()
	}
	if env := os.Getenv("SPANISH_DAEMON_URL"); env != "" {
		baseURL = strings.TrimRight(env, "/")
	}

	return &apiClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
		token:   readToken(),
	}
}

// do sends body as JSON (or raw when it is a []byte) and decodes the
// response into out when out is non-nil.
func (c *apiClient) do(method, path string, body, out any) error {
	var reader io.Reader
	contentType := "application/json"
	switch b := body.(type) {
	case nil:
	case rawBody:
		reader = bytes.NewReader(b.data)
		contentType = b.contentType
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if reader != nil {
		req.Header.Set("Content-Type", contentType)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var envelope struct {
			Error apiError `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&envelope)
		envelope.Error.Status = resp.StatusCode
		return &envelope.Error
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

// rawBody sends data unchanged with the given content type
type rawBody struct {
	data        []byte
	contentType string
}

func (c *apiClient) isRunning() bool {
	resp, err := c.http.Get(c.baseURL + "/v1/health")
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func (c *apiClient) requireDaemon() error {
	if !c.isRunning() {
		return fmt.Errorf("daemon not running (run 'spanish start' first)")
	}
	return nil
}

// adminHint turns an auth failure into an actionable message
func adminHint(err error) error {
	var apiErr *apiError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
		return fmt.Errorf("%w (run 'spanish login' first)", err)
	}
	return err
}

func tokenPath() (string, error) {
	dir, err := config.SpanishDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, tokenFile), nil
}

func readToken() string {
	path, err := tokenPath()
	if err != nil {
		return ""
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func saveToken(token string) error {
	dir, err := config.EnsureSpanishDir()
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, tokenFile), []byte(token+"\n"), 0600)
}
