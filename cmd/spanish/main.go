package main

import (
	"fmt"
	"os"
	"strings"
)

// Version is set at build time via ldflags
var Version = "dev"

const (
	defaultDaemonAddr = "http://127.0.0.1:7432"
	pidFile           = "spanishd.pid"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "start":
		err = cmdStart()
	case "stop":
		err = cmdStop()
	case "status":
		err = cmdStatus()
	case "logs":
		err = cmdLogs()
	case "doctor":
		err = cmdDoctor()
	case "config":
		err = cmdConfig()
	case "hash-secret":
		err = cmdHashSecret()
	case "login":
		err = cmdLogin()
	case "exercise":
		err = cmdExercise(os.Args[2:])
	case "modules":
		err = cmdModules()
	case "practice":
		err = cmdPractice(os.Args[2:])
	case "mcp":
		err = cmdMCP(os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
	case "version", "-v", "--version":
		fmt.Printf("spanish %s\n", Version)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Spanish - Spanish vocabulary practice

Usage:
  spanish <command> [arguments]

Setup Commands:
  doctor          Check the daemon, storage and dev stack
  config          Show current configuration
  hash-secret     Set the admin secret

Daemon Commands:
  start           Start the daemon
  stop            Stop the daemon
  status          Show daemon status
  logs            View daemon logs

Exercise Commands:
  login                     Get an admin token
  modules                   List modules
  exercise list [module]    List exercises
  exercise add              Add an exercise (admin)
  exercise delete <id>      Delete an exercise (admin)
  exercise import <file>    Import a YAML or JSON file (admin)

Practice:
  practice [module]         Practice in the terminal

Integration Commands:
  mcp [--http addr]         Start the MCP tool server

Other:
  help            Show this help message
  version         Show version information

Examples:
  spanish start                       # Start daemon
  spanish hash-secret                 # Configure the admin secret
  spanish exercise import colores.yaml
  spanish practice colores`)
}

// renderProgressBar draws value in [0, 1] as a bar of width cells
func renderProgressBar(value float64, width int) string {
	filled := min(max(int(value*float64(width)), 0), width)
	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", width-filled) + "]"
}
