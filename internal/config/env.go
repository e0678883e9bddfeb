package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads .env files into the process environment without
// overriding variables that are already set. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// ApplyEnv overrides cfg from environment variables. DATABASE_URL switches
// storage to postgres and RABBITMQ_URL switches broadcast to amqp.
func ApplyEnv(cfg *LocalConfig) {
	cfg.Daemon.Port = getEnvInt("PORT", cfg.Daemon.Port)
	cfg.Daemon.Bind = getEnv("BIND", cfg.Daemon.Bind)
	cfg.Daemon.Debug = getEnvBool("DEBUG", cfg.Daemon.Debug)
	cfg.Daemon.LogLevel = strings.ToLower(getEnv("LOG_LEVEL", cfg.Daemon.LogLevel))
	if cfg.Daemon.Debug {
		cfg.Daemon.LogLevel = "debug"
	}

	if url := os.Getenv("DATABASE_URL"); url != "" {
		cfg.Storage.Driver = DriverPostgres
		cfg.Storage.PostgresURL = url
	}
	cfg.Storage.SQLitePath = getEnv("SQLITE_PATH", cfg.Storage.SQLitePath)

	if url := os.Getenv("RABBITMQ_URL"); url != "" {
		cfg.Broadcast.Driver = DriverAMQP
		cfg.Broadcast.AMQPURL = url
	}

	cfg.Admin.SecretHash = getEnv("ADMIN_SECRET_HASH", cfg.Admin.SecretHash)
	cfg.Admin.TokenSecret = getEnv("TOKEN_SECRET", cfg.Admin.TokenSecret)
	cfg.Quiz.RequireModule = getEnvBool("REQUIRE_MODULE", cfg.Quiz.RequireModule)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
