package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/Awhitter/spanish1/internal/config"
)

// cmdStart starts the daemon in the background
func cmdStart() error {
	c := newClient()
	if c.isRunning() {
		fmt.Println("✓ Daemon is already running")
		return nil
	}

	spanishDir, err := config.EnsureSpanishDir()
	if err != nil {
		return fmt.Errorf("setup spanish directory: %w", err)
	}

	daemonPath, err := findDaemonBinary()
	if err != nil {
		return fmt.Errorf("find daemon binary: %w", err)
	}

	cmd := exec.Command(daemonPath)
	cmd.Dir = spanishDir
	cmd.Stdout = nil
	cmd.Stderr = nil
	configureDaemonProcess(cmd)

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}

	fmt.Print("Starting daemon...")
	for range 30 {
		time.Sleep(100 * time.Millisecond)
		if c.isRunning() {
			fmt.Println(" ✓")
			fmt.Printf("Daemon running at %s\n", c.baseURL)
			return nil
		}
		fmt.Print(".")
	}

	fmt.Println(" ✗")
	return fmt.Errorf("daemon failed to start (check logs with 'spanish logs')")
}

// cmdStop sends SIGTERM to the daemon recorded in the PID file
func cmdStop() error {
	c := newClient()
	if !c.isRunning() {
		fmt.Println("Daemon is not running")
		return nil
	}

	spanishDir, err := config.SpanishDir()
	if err != nil {
		return err
	}

	data, err := os.ReadFile(filepath.Join(spanishDir, pidFile))
	if err != nil {
		return fmt.Errorf("read PID file: %w", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return fmt.Errorf("parse PID: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("find process: %w", err)
	}

	fmt.Print("Stopping daemon...")
	if err := process.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("send signal: %w", err)
	}

	for range 50 {
		time.Sleep(100 * time.Millisecond)
		if !c.isRunning() {
			fmt.Println(" ✓")
			return nil
		}
		fmt.Print(".")
	}

	fmt.Println(" ✗")
	return fmt.Errorf("daemon did not stop gracefully")
}

type daemonStatus struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	UptimeSeconds int    `json:"uptime_seconds"`
	Storage       string `json:"storage"`
	Broadcast     string `json:"broadcast"`
	Sessions      int    `json:"sessions"`
	Admin         bool   `json:"admin"`
	Subscribers   int    `json:"subscribers"`
	DroppedEvents uint64 `json:"dropped_events"`
}

// cmdStatus shows daemon status
func cmdStatus() error {
	c := newClient()
	if !c.isRunning() {
		fmt.Println("Status: stopped")
		return nil
	}

	var status daemonStatus
	if err := c.do("GET", "/v1/status", nil, &status); err != nil {
		return fmt.Errorf("get status: %w", err)
	}

	admin := "disabled (run 'spanish hash-secret')"
	if status.Admin {
		admin = "enabled"
	}

	fmt.Printf("Status:    %s\n", status.Status)
	fmt.Printf("Version:   %s\n", status.Version)
	fmt.Printf("Uptime:    %s\n", time.Duration(status.UptimeSeconds)*time.Second)
	fmt.Printf("Storage:   %s\n", status.Storage)
	fmt.Printf("Broadcast: %s (%d subscribers, %d dropped)\n", status.Broadcast, status.Subscribers, status.DroppedEvents)
	fmt.Printf("Sessions:  %d\n", status.Sessions)
	fmt.Printf("Admin:     %s\n", admin)
	fmt.Printf("Address:   %s\n", c.baseURL)

	return nil
}

// cmdLogs prints the tail of the daemon log
func cmdLogs() error {
	spanishDir, err := config.SpanishDir()
	if err != nil {
		return err
	}

	file, err := os.Open(filepath.Join(spanishDir, "logs", "spanishd.log"))
	if errors.Is(err, fs.ErrNotExist) {
		fmt.Println("No log file found. Start the daemon first.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	return tailLines(file, os.Stdout, 4096)
}

// tailLines copies roughly the last window bytes of f to w, starting at a
// line boundary.
func tailLines(f *os.File, w io.Writer, window int64) error {
	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat log file: %w", err)
	}

	offset := max(info.Size()-window, 0)
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return fmt.Errorf("seek log file: %w", err)
	}

	reader := bufio.NewReader(f)
	if offset > 0 {
		// partial first line
		_, _ = reader.ReadString('\n')
	}

	scanner := bufio.NewScanner(reader)
	for scanner.Scan() {
		fmt.Fprintln(w, scanner.Text())
	}
	return scanner.Err()
}

// findDaemonBinary locates the spanishd binary
func findDaemonBinary() (string, error) {
	if path, err := exec.LookPath("spanishd"); err == nil {
		return path, nil
	}

	if self, err := os.Executable(); err == nil {
		path := filepath.Join(filepath.Dir(self), "spanishd")
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	for _, path := range []string{
		"/usr/local/bin/spanishd",
		"./spanishd",
		"./cmd/spanishd/spanishd",
	} {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("spanishd binary not found (build with 'go build ./cmd/spanishd')")
}
