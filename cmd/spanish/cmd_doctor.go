package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"

	"github.com/Awhitter/spanish1/internal/config"
)

// cmdDoctor checks the local setup
func cmdDoctor() error {
	fmt.Println("Checking system requirements...")

	allGood := true

	fmt.Print("Directory: ")
	spanishDir, err := config.SpanishDir()
	if err != nil {
		fmt.Printf("✗ %v\n", err)
		allGood = false
	} else if _, err := os.Stat(spanishDir); errors.Is(err, fs.ErrNotExist) {
		fmt.Println("✗ not created (run 'spanish hash-secret' or 'spanish start')")
		allGood = false
	} else {
		fmt.Printf("✓ %s\n", spanishDir)
	}

	fmt.Print("Config:    ")
	if err := config.LoadDotEnv(); err != nil {
		fmt.Printf("✗ %v\n", err)
		allGood = false
	}
	cfg, err := config.LoadLocalConfig()
	if err != nil {
		fmt.Printf("✗ %v\n", err)
		return nil
	}
	config.ApplyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		fmt.Printf("✗ %v\n", err)
		allGood = false
	} else {
		fmt.Println("✓ valid")
	}

	fmt.Print("Admin:     ")
	if cfg.Admin.SecretHash == "" || cfg.Admin.TokenSecret == "" {
		fmt.Println("✗ no secret (run 'spanish hash-secret')")
		allGood = false
	} else {
		fmt.Println("✓ configured")
	}

	// Postgres and RabbitMQ usually run as containers in development
	if cfg.Storage.Driver == config.DriverPostgres || cfg.Broadcast.Driver == config.DriverAMQP {
		fmt.Print("Docker:    ")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		containers, err := devStack(ctx)
		cancel()
		if err != nil {
			fmt.Printf("⚠ %v (fine if the services run elsewhere)\n", err)
		} else {
			fmt.Println("✓ available")
			for _, c := range containers {
				fmt.Printf("  %s\n", c)
			}
		}
		if cfg.Storage.Driver == config.DriverPostgres {
			fmt.Printf("Postgres:  %s\n", redactURL(cfg.Storage.PostgresURL))
		}
		if cfg.Broadcast.Driver == config.DriverAMQP {
			fmt.Printf("RabbitMQ:  %s\n", redactURL(cfg.Broadcast.AMQPURL))
		}
	}

	fmt.Print("\nDaemon:    ")
	if newClient().isRunning() {
		fmt.Println("✓ running")
	} else {
		fmt.Println("✗ not running (run 'spanish start')")
	}

	fmt.Println()
	if allGood {
		fmt.Println("All checks passed! ✓")
	} else {
		fmt.Println("Some checks failed. Please fix the issues above.")
	}

	return nil
}

// devStack pings the Docker engine and describes running postgres and
// rabbitmq containers.
func devStack(ctx context.Context) ([]string, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("create docker client: %w", err)
	}
	defer cli.Close()

	if _, err := cli.Ping(ctx); err != nil {
		return nil, fmt.Errorf("docker not reachable: %w", err)
	}

	list, err := cli.ContainerList(ctx, container.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("list containers: %w", err)
	}

	var out []string
	for _, c := range list {
		if !strings.Contains(c.Image, "postgres") && !strings.Contains(c.Image, "rabbitmq") {
			continue
		}
		name := c.ID[:min(12, len(c.ID))]
		if len(c.Names) > 0 {
			name = strings.TrimPrefix(c.Names[0], "/")
		}
		out = append(out, fmt.Sprintf("%s (%s): %s", name, c.Image, c.State))
	}
	return out, nil
}

// redactURL hides the password of a connection URL
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	return u.Redacted()
}
