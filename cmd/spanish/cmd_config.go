package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/Awhitter/spanish1/internal/auth"
	"github.com/Awhitter/spanish1/internal/config"
)

// cmdConfig shows the effective configuration
func cmdConfig() error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}
	cfg, err := config.LoadLocalConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	config.ApplyEnv(cfg)

	fmt.Println("Spanish Configuration")

	fmt.Println("Daemon:")
	fmt.Printf("  bind: %s\n", cfg.Addr())
	fmt.Printf("  log_level: %s\n", cfg.Daemon.LogLevel)
	fmt.Printf("  requests_per_minute: %d\n", cfg.Daemon.RequestsPerMinute)
	fmt.Printf("  session_idle: %s\n", cfg.SessionIdle())

	fmt.Println("\nStorage:")
	fmt.Printf("  driver: %s\n", cfg.Storage.Driver)
	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		fmt.Printf("  postgres_url: %s\n", redactURL(cfg.Storage.PostgresURL))
		fmt.Printf("  max_conns: %d\n", cfg.Storage.MaxConns)
	default:
		fmt.Printf("  sqlite_path: %s\n", cfg.Storage.SQLitePath)
	}

	fmt.Println("\nBroadcast:")
	fmt.Printf("  driver: %s\n", cfg.Broadcast.Driver)
	if cfg.Broadcast.Driver == config.DriverAMQP {
		fmt.Printf("  amqp_url: %s\n", redactURL(cfg.Broadcast.AMQPURL))
		fmt.Printf("  exchange: %s\n", cfg.Broadcast.Exchange)
	}

	fmt.Println("\nQuiz:")
	fmt.Printf("  max_attempts: %d\n", cfg.Quiz.MaxAttempts)
	fmt.Printf("  fuzzy_distance: %d\n", cfg.Quiz.FuzzyDistance)
	fmt.Printf("  require_module: %t\n", cfg.Quiz.RequireModule)

	adminStatus := "✗ (run 'spanish hash-secret')"
	if cfg.Admin.SecretHash != "" && cfg.Admin.TokenSecret != "" {
		adminStatus = "✓"
	}
	fmt.Println("\nAdmin:")
	fmt.Printf("  secret: %s\n", adminStatus)
	fmt.Printf("  token_ttl: %s\n", cfg.TokenTTL())

	if err := cfg.Validate(); err != nil {
		fmt.Printf("\n⚠ Invalid configuration:\n%v\n", err)
	}

	spanishDir, _ := config.SpanishDir()
	fmt.Printf("\nConfig path: %s\n", filepath.Join(spanishDir, "config.yaml"))

	return nil
}

// cmdHashSecret stores a bcrypt hash of the admin secret and a fresh token
// signing key in secrets.yaml. A default config.yaml is written when missing.
func cmdHashSecret() error {
	spanishDir, err := config.EnsureSpanishDir()
	if err != nil {
		return fmt.Errorf("create directories: %w", err)
	}

	configPath := filepath.Join(spanishDir, "config.yaml")
	if _, err := os.Stat(configPath); errors.Is(err, fs.ErrNotExist) {
		if err := config.SaveTo(spanishDir, config.DefaultLocalConfig()); err != nil {
			return fmt.Errorf("save config: %w", err)
		}
		fmt.Println("Created default configuration ✓")
	}

	secret, err := readSecret(os.Stdin, "New admin secret: ")
	if err != nil {
		return err
	}

	hash, err := auth.HashSecret(secret)
	if err != nil {
		return err
	}
	tokenSecret, err := auth.GenerateTokenSecret()
	if err != nil {
		return err
	}

	if err := config.SaveSecrets(spanishDir, hash, tokenSecret); err != nil {
		return fmt.Errorf("save secrets: %w", err)
	}

	fmt.Println("✓ Admin secret saved")
	fmt.Println("Restart the daemon for changes to take effect. Existing tokens are invalidated.")
	return nil
}
