package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/promptping-ai/pull-request-ping/internal/config"
	"github.com/promptping-ai/pull-request-ping/internal/store"
)

// PIDFilePath returns the path to the daemon PID file. An empty pidDir falls
// back to the XDG data directory.
func PIDFilePath(pidDir string) string {
	if pidDir == "" {
		pidDir = defaultDataDir()
	}
	return filepath.Join(pidDir, "prpingd.pid")
}

// LogFilePath returns the path to the daemon log file.
func LogFilePath() string {
	return filepath.Join(defaultDataDir(), "logs", "prpingd.log")
}

func defaultDataDir() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil || home == "" {
			slog.Error("cannot determine home directory; set $HOME or $XDG_DATA_HOME", "error", err)
			os.Exit(1)
		}
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, "prping")
}

// StartDaemon forks the current process as a daemon.
// If foreground is true, runs the server inline without forking.
func StartDaemon(port int, pidDir, logDir string, foreground bool) error {
	pidDir = config.ExpandPath(pidDir)

	// Use file lock to prevent concurrent starts.
	lockPath := PIDFilePath(pidDir) + ".lock"
	return store.WithLock(lockPath, store.DefaultLockTimeout, func() error {
		// Check if already running.
		if running, pid, _, _ := DaemonStatus(pidDir); running {
			return fmt.Errorf("daemon already running (PID %d)", pid)
		}

		if foreground {
			return runForeground(port, pidDir)
		}

		return forkDaemon(port, logDir)
	})
}

func forkDaemon(port int, logDir string) error {
	logDir = config.ExpandPath(logDir)
	if logDir == "" {
		logDir = filepath.Join(defaultDataDir(), "logs")
	}
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return fmt.Errorf("creating log directory: %w", err)
	}

	logFile := filepath.Join(logDir, "prpingd.log")

	// Fork: re-exec with --foreground, propagating the port.
	forkArgs := []string{"server", "start", "--foreground", "--port", strconv.Itoa(port)}

	cmd := exec.Command(os.Args[0], forkArgs...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	// Redirect output to log file.
	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	cmd.Stdout = f
	cmd.Stderr = f
	cmd.Stdin = nil

	if err := cmd.Start(); err != nil {
		f.Close()
		return fmt.Errorf("starting daemon: %w", err)
	}

	pid := cmd.Process.Pid

	// Release without waiting — do NOT call cmd.Wait() in the parent.
	// The child process writes its own PID file in runForeground.
	cmd.Process.Release()
	f.Close()

	fmt.Printf("daemon started (PID: %d)\n", pid)
	fmt.Printf("log file: %s\n", logFile)
	return nil
}

func runForeground(port int, pidDir string) error {
	// Load config.
	cfg, err := config.Load()
	if err != nil {
		slog.Warn("failed to load config, using defaults", "error", err)
		defaultCfg := config.DefaultConfig()
		cfg = &defaultCfg
	}
	if pidDir == "" {
		pidDir = config.ExpandPath(cfg.Server.PIDDir)
	}

	// Write PID file for foreground mode too (for status checks).
	if err := writePIDFile(pidDir, os.Getpid()); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidDir)

	// Signal handling for graceful shutdown.
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGTERM, syscall.SIGINT,
	)
	defer stop()

	// Run the HTTP server and ingestion loop.
	return RunServer(ctx, port, cfg)
}

// StopDaemon sends SIGTERM to the running daemon and waits for exit.
func StopDaemon(pidDir string) error {
	pidDir = config.ExpandPath(pidDir)

	running, pid, _, err := DaemonStatus(pidDir)
	if err != nil {
		return err
	}
	if !running {
		return fmt.Errorf("daemon is not running")
	}

	// Send SIGTERM.
	proc, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("finding process: %w", err)
	}

	if err := proc.Signal(syscall.SIGTERM); err != nil {
		// Check if process is already gone.
		if errors.Is(err, syscall.ESRCH) || errors.Is(err, os.ErrProcessDone) {
			removePIDFile(pidDir)
			return nil
		}
		return fmt.Errorf("sending SIGTERM: %w", err)
	}

	// Wait for exit with timeout.
	deadline := time.After(10 * time.Second)
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-deadline:
			// Force kill.
			_ = proc.Signal(syscall.SIGKILL)
			removePIDFile(pidDir)
			return fmt.Errorf("daemon did not stop gracefully, sent SIGKILL")
		case <-ticker.C:
			if err := proc.Signal(syscall.Signal(0)); err != nil {
				// Process is gone.
				removePIDFile(pidDir)
				return nil
			}
		}
	}
}

// DaemonStatus checks whether the daemon is running.
// Returns: running bool, pid int, uptime duration, error.
func DaemonStatus(pidDir string) (bool, int, time.Duration, error) {
	pidDir = config.ExpandPath(pidDir)

	pidFile := PIDFilePath(pidDir)
	data, err := os.ReadFile(pidFile)
	if err != nil {
		if os.IsNotExist(err) {
			return false, 0, 0, nil
		}
		return false, 0, 0, fmt.Errorf("reading PID file: %w", err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return false, 0, 0, fmt.Errorf("invalid PID file: %w", err)
	}

	// Check if process is alive.
	proc, err := os.FindProcess(pid)
	if err != nil {
		removePIDFile(pidDir)
		return false, 0, 0, nil
	}

	if err := proc.Signal(syscall.Signal(0)); err != nil {
		// Process is not running — stale PID file.
		removePIDFile(pidDir)
		return false, 0, 0, nil
	}

	// Calculate uptime from PID file modification time.
	info, err := os.Stat(pidFile)
	if err != nil {
		return true, pid, 0, nil
	}
	uptime := time.Since(info.ModTime())

	return true, pid, uptime, nil
}

func writePIDFile(pidDir string, pid int) error {
	pidFile := PIDFilePath(pidDir)
	if err := os.MkdirAll(filepath.Dir(pidFile), 0755); err != nil {
		return fmt.Errorf("creating PID directory: %w", err)
	}

	// Atomic write: temp file + rename.
	tmp := pidFile + ".tmp"
	if err := os.WriteFile(tmp, []byte(strconv.Itoa(pid)), 0644); err != nil {
		return err
	}
	return os.Rename(tmp, pidFile)
}

func removePIDFile(pidDir string) {
	_ = os.Remove(PIDFilePath(pidDir))
}

// InstallSystemdService writes a systemd user unit file and enables the service.
func InstallSystemdService() error {
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("getting home dir: %w", err)
	}

	unitDir := filepath.Join(home, ".config", "systemd", "user")
	if err := os.MkdirAll(unitDir, 0755); err != nil {
		return fmt.Errorf("creating systemd directory: %w", err)
	}

	execPath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("finding executable path: %w", err)
	}

	unit := fmt.Sprintf(`[Unit]
Description=Pull Request Ping Daemon
After=network.target

[Service]
Type=simple
ExecStart=%s server start --foreground
Restart=on-failure
RestartSec=5s
TimeoutStopSec=30
Environment=HOME=%s

[Install]
WantedBy=default.target
`, execPath, home)

	unitPath := filepath.Join(unitDir, "prping.service")
	if err := os.WriteFile(unitPath, []byte(unit), 0644); err != nil {
		return fmt.Errorf("writing unit file: %w", err)
	}

	// Reload systemd and enable.
	reloadCmd := exec.Command("systemctl", "--user", "daemon-reload")
	if out, err := reloadCmd.CombinedOutput(); err != nil {
		return fmt.Errorf("daemon-reload: %s: %w", string(out), err)
	}

	enableCmd := exec.Command("systemctl", "--user", "enable", "prping")
	if out, err := enableCmd.CombinedOutput(); err != nil {
		return fmt.Errorf("enabling service: %s: %w", string(out), err)
	}

	fmt.Printf("installed prping.service at %s\n", unitPath)
	fmt.Println("service enabled — start with: systemctl --user start prping")
	return nil
}
