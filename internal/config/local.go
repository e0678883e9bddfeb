// Package config loads daemon and CLI settings from ~/.spanish.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"gopkg.in/yaml.v3"
)

// Storage and broadcast drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
	DriverAMQP     = "amqp"
)

// LocalConfig holds configuration for local daemon mode
type LocalConfig struct {
	Daemon    DaemonConfig    `yaml:"daemon"`
	Storage   StorageConfig   `yaml:"storage"`
	Broadcast BroadcastConfig `yaml:"broadcast"`
	Quiz      QuizConfig      `yaml:"quiz"`
	Admin     AdminConfig     `yaml:"admin"`
}

// DaemonConfig holds daemon server settings
type DaemonConfig struct {
	Port               int      `yaml:"port"`
	Bind               string   `yaml:"bind"`
	LogLevel           string   `yaml:"log_level"`
	Debug              bool     `yaml:"debug"`
	CORSOrigins        []string `yaml:"cors_origins,omitempty"`
	RequestsPerMinute  int      `yaml:"requests_per_minute"`
	SessionIdleMinutes int      `yaml:"session_idle_minutes"`
}

// StorageConfig selects and configures the exercise store
type StorageConfig struct {
	Driver      string `yaml:"driver"`
	SQLitePath  string `yaml:"sqlite_path,omitempty"` // defaults to ~/.spanish/spanish.db
	PostgresURL string `yaml:"postgres_url,omitempty"`
	MaxConns    int    `yaml:"max_conns"`
}

// BroadcastConfig selects the update bus
type BroadcastConfig struct {
	Driver   string `yaml:"driver"`
	AMQPURL  string `yaml:"amqp_url,omitempty"`
	Exchange string `yaml:"exchange"`
	Buffer   int    `yaml:"buffer"`
}

// QuizConfig holds grading and session settings
type QuizConfig struct {
	MaxAttempts   int  `yaml:"max_attempts"`
	FuzzyDistance int  `yaml:"fuzzy_distance"`
	RequireModule bool `yaml:"require_module"`
	Seed          bool `yaml:"seed"`
}

// AdminConfig holds admin authentication settings. Secrets live in
// secrets.yaml.
type AdminConfig struct {
	SecretHash      string `yaml:"-"`
	TokenSecret     string `yaml:"-"`
	TokenTTLMinutes int    `yaml:"token_ttl_minutes"`
}

// SecretsConfig is the layout of secrets.yaml
type SecretsConfig struct {
	Admin struct {
		SecretHash  string `yaml:"secret_hash,omitempty"`
		TokenSecret string `yaml:"token_secret,omitempty"`
	} `yaml:"admin"`
}

// Addr returns the listen address
func (c *LocalConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Daemon.Bind, c.Daemon.Port)
}

// BaseURL returns the daemon URL clients should use
func (c *LocalConfig) BaseURL() string {
	return fmt.Sprintf("http://%s", c.Addr())
}

// TokenTTL returns the admin token lifetime
func (c *LocalConfig) TokenTTL() time.Duration {
	return time.Duration(c.Admin.TokenTTLMinutes) * time.Minute
}

// SessionIdle returns how long an untouched quiz session is kept in memory
func (c *LocalConfig) SessionIdle() time.Duration {
	return time.Duration(c.Daemon.SessionIdleMinutes) * time.Minute
}

// Validate checks driver names and required URLs
func (c *LocalConfig) Validate() error {
	var errs []error

	if c.Daemon.Port <= 0 || c.Daemon.Port > 65535 {
		errs = append(errs, fmt.Errorf("daemon.port %d out of range", c.Daemon.Port))
	}
	if !slices.Contains([]string{"debug", "info", "warn", "error"}, c.Daemon.LogLevel) {
		errs = append(errs, fmt.Errorf("daemon.log_level %q is not one of debug, info, warn, error", c.Daemon.LogLevel))
	}

	switch c.Storage.Driver {
	case DriverSQLite:
	case DriverPostgres:
		if c.Storage.PostgresURL == "" {
			errs = append(errs, errors.New("storage.postgres_url is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage driver %q", c.Storage.Driver))
	}

	switch c.Broadcast.Driver {
	case DriverMemory:
	case DriverAMQP:
		if c.Broadcast.AMQPURL == "" {
			errs = append(errs, errors.New("broadcast.amqp_url is required for the amqp driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown broadcast driver %q", c.Broadcast.Driver))
	}

	if c.Quiz.MaxAttempts <= 0 {
		errs = append(errs, errors.New("quiz.max_attempts must be positive"))
	}

	return errors.Join(errs...)
}

// SpanishDir returns the path to ~/.spanish
func SpanishDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".spanish"), nil
}

// EnsureSpanishDir creates ~/.spanish and subdirectories if they don't exist
func EnsureSpanishDir() (string, error) {
	dir, err := SpanishDir()
	if err != nil {
		return "", err
	}

	for _, subdir := range []string{"", "logs", "exercises"} {
		path := filepath.Join(dir, subdir)
		if err := os.MkdirAll(path, 0755); err != nil {
			return "", fmt.Errorf("create dir %s: %w", path, err)
		}
	}

	return dir, nil
}

// DefaultLocalConfig returns sensible defaults for local mode
func DefaultLocalConfig() *LocalConfig {
	return &LocalConfig{
		Daemon: DaemonConfig{
			Port:               7432,
			Bind:               "127.0.0.1",
			LogLevel:           "info",
			RequestsPerMinute:  120,
			SessionIdleMinutes: 120,
		},
		Storage: StorageConfig{
			Driver:   DriverSQLite,
			MaxConns: 10,
		},
		Broadcast: BroadcastConfig{
			Driver:   DriverMemory,
			Exchange: "spanish.exercises",
			Buffer:   16,
		},
		Quiz: QuizConfig{
			MaxAttempts:   3,
			FuzzyDistance: 2,
			Seed:          true,
		},
		Admin: AdminConfig{
			TokenTTLMinutes: 720,
		},
	}
}

// LoadLocalConfig loads configuration from ~/.spanish/config.yaml
func LoadLocalConfig() (*LocalConfig, error) {
	dir, err := SpanishDir()
	if err != nil {
		return nil, err
	}
	return LoadFrom(dir)
}

// LoadFrom loads config.yaml and secrets.yaml from dir. Missing files yield
// defaults.
func LoadFrom(dir string) (*LocalConfig, error) {
	cfg := DefaultLocalConfig()

	data, err := os.ReadFile(filepath.Join(dir, "config.yaml"))
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := loadSecrets(dir, cfg); err != nil {
		return nil, fmt.Errorf("load secrets: %w", err)
	}

	if cfg.Storage.SQLitePath == "" {
		cfg.Storage.SQLitePath = filepath.Join(dir, "spanish.db")
	}

	return cfg, nil
}

// loadSecrets loads admin credentials from secrets.yaml
func loadSecrets(dir string, cfg *LocalConfig) error {
	data, err := os.ReadFile(filepath.Join(dir, "secrets.yaml"))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read secrets: %w", err)
	}

	var secrets SecretsConfig
	if err := yaml.Unmarshal(data, &secrets); err != nil {
		return fmt.Errorf("parse secrets: %w", err)
	}

	cfg.Admin.SecretHash = secrets.Admin.SecretHash
	cfg.Admin.TokenSecret = secrets.Admin.TokenSecret
	return nil
}

// SaveLocalConfig saves configuration to ~/.spanish/config.yaml
func SaveLocalConfig(cfg *LocalConfig) error {
	dir, err := EnsureSpanishDir()
	if err != nil {
		return err
	}
	return SaveTo(dir, cfg)
}

// SaveTo writes config.yaml into dir
func SaveTo(dir string, cfg *LocalConfig) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	return nil
}

// SaveSecrets writes admin credentials to dir/secrets.yaml, owner-only.
func SaveSecrets(dir, secretHash, tokenSecret string) error {
	var secrets SecretsConfig
	secrets.Admin.SecretHash = secretHash
	secrets.Admin.TokenSecret = tokenSecret

	data, err := yaml.Marshal(secrets)
	if err != nil {
		return fmt.Errorf("marshal secrets: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "secrets.yaml"), data, 0600); err != nil {
		return fmt.Errorf("write secrets: %w", err)
	}

	return nil
}
