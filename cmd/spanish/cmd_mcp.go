package main

import (
	"context"
	"flag"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/Awhitter/spanish1/internal/config"
	"github.com/Awhitter/spanish1/internal/daemon"
	mcpserver "github.com/Awhitter/spanish1/internal/mcp"
)

// cmdMCP serves the quiz as MCP tools over stdio, or HTTP with --http.
// It opens the configured storage directly so it works without the daemon.
func cmdMCP(args []string) error {
	fs := flag.NewFlagSet("mcp", flag.ContinueOnError)
	httpAddr := fs.String("http", "", "serve over HTTP on this address instead of stdio")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if _, err := config.EnsureSpanishDir(); err != nil {
		return fmt.Errorf("ensure spanish dir: %w", err)
	}
	if err := config.LoadDotEnv(); err != nil {
		return err
	}
	cfg, err := config.LoadLocalConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	config.ApplyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := daemon.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open runtime: %w", err)
	}
	defer rt.Close()

	srv := mcpserver.NewServer(mcpserver.Config{
		Exercises: rt.Exercises,
		Sessions:  rt.Sessions,
		Version:   Version,
	})

	if *httpAddr != "" {
		return srv.ServeHTTP(ctx, *httpAddr)
	}
	return srv.ServeStdio(ctx)
}
