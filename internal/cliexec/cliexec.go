// Package cliexec runs provider CLI binaries (gh, glab, az, git) as
// subprocesses with bounded output capture.
package cliexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// maxStreamBytes caps the amount of data read from each of stdout and stderr.
// Exceeding the cap is a hard failure, not a silent truncation — a partial
// JSON document is worse than no document.
const maxStreamBytes = 4 * 1024 * 1024

// DefaultTimeout bounds a single CLI invocation when the caller's context
// carries no deadline of its own.
const DefaultTimeout = 120 * time.Second

// wellKnownDirs are checked before falling back to a PATH lookup, so the
// daemon finds CLIs even when launched outside a login shell.
var wellKnownDirs = []string{
	"/usr/local/bin",
	"/opt/homebrew/bin",
	"/usr/bin",
}

// CommandError reports a CLI invocation that exited non-zero or whose output
// could not be captured. Stderr carries the CLI's own diagnostic text.
type CommandError struct {
	Command string
	Stderr  string
	Err     error
}

func (e *CommandError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("%s: %s", e.Command, strings.TrimSpace(e.Stderr))
	}
	return fmt.Sprintf("%s: %v", e.Command, e.Err)
}

func (e *CommandError) Unwrap() error { return e.Err }

// ErrOutputTruncated indicates a stream exceeded maxStreamBytes.
var ErrOutputTruncated = errors.New("subprocess output exceeded size limit")

// Runner executes a named CLI binary. The zero value is not usable; construct
// with NewRunner, which resolves the binary path once.
type Runner struct {
	name    string
	path    string
	timeout time.Duration
}

// NewRunner locates binary and returns a Runner for it. The returned Runner
// is valid even when the binary is missing — Available reports the outcome,
// and Run fails with a CommandError.
func NewRunner(binary string, timeout time.Duration) *Runner {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Runner{
		name:    binary,
		path:    findBinary(binary),
		timeout: timeout,
	}
}

// Available reports whether the binary was found at construction time.
func (r *Runner) Available() bool {
	return r.path != ""
}

// Run executes the binary with args in dir (empty dir = current directory)
// and returns captured stdout. A non-zero exit, an output-cap overflow, or a
// missing binary all yield a *CommandError.
func (r *Runner) Run(ctx context.Context, dir string, args ...string) ([]byte, error) {
	display := r.name + " " + strings.Join(args, " ")

	if r.path == "" {
		return nil, &CommandError{Command: display, Err: fmt.Errorf("%s not found on search path", r.name)}
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, r.path, args...)
	cmd.Dir = dir

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return nil, &CommandError{Command: display, Err: err}
	}
	var stderr bytes.Buffer
	cmd.Stderr = &limitWriter{w: &stderr, remaining: maxStreamBytes}

	if err := cmd.Start(); err != nil {
		return nil, &CommandError{Command: display, Err: err}
	}

	// Read one byte past the cap so overflow is detectable.
	stdout, readErr := io.ReadAll(io.LimitReader(stdoutPipe, maxStreamBytes+1))
	waitErr := cmd.Wait()

	if readErr != nil {
		return nil, &CommandError{Command: display, Err: readErr}
	}
	if len(stdout) > maxStreamBytes {
		return nil, &CommandError{Command: display, Err: ErrOutputTruncated}
	}
	if waitErr != nil {
		slog.Debug("subprocess failed", "command", display, "error", waitErr)
		return nil, &CommandError{Command: display, Stderr: stderr.String(), Err: waitErr}
	}

	return stdout, nil
}

// limitWriter discards writes beyond its remaining budget. Used for stderr,
// where losing the tail of a huge diagnostic dump is acceptable.
type limitWriter struct {
	w         io.Writer
	remaining int
}

func (lw *limitWriter) Write(p []byte) (int, error) {
	n := len(p)
	if lw.remaining <= 0 {
		return n, nil
	}
	if len(p) > lw.remaining {
		p = p[:lw.remaining]
	}
	written, err := lw.w.Write(p)
	lw.remaining -= written
	if err != nil {
		return written, err
	}
	return n, nil
}

// findBinary checks well-known install directories before deferring to PATH.
func findBinary(name string) string {
	for _, dir := range wellKnownDirs {
		candidate := filepath.Join(dir, name)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
	}
	if p, err := exec.LookPath(name); err == nil {
		return p
	}
	return ""
}
