// Package ffmpeg is the media backend boundary: it serializes planned filter
// graphs into ffmpeg arguments, shells out to ffmpeg/ffprobe with bounded
// timeouts, and parses probe output. Everything above this package is
// backend-agnostic.
package ffmpeg

import (
	"context"
	"fmt"
	"os/exec"
)

// maxStderrBytes is how much diagnostic tail is kept from a failed run.
const maxStderrBytes = 8 * 1024

// CommandRunner abstracts subprocess execution so tests can run without the
// ffmpeg binaries installed.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecCommandRunner runs commands with os/exec, returning combined output.
type ExecCommandRunner struct{}

func (ExecCommandRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// ExecError is a backend process failure. Stderr carries the diagnostic tail
// so callers can tell a corrupt input from an environment problem.
type ExecError struct {
	ExitCode int
	Stderr   string
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("ffmpeg exited %d: %s", e.ExitCode, e.Stderr)
}

// execErr wraps a runner failure into an ExecError, extracting the exit code
// when the process ran at all.
func execErr(err error, output []byte) *ExecError {
	code := -1
	if exitErr, ok := err.(*exec.ExitError); ok {
		code = exitErr.ExitCode()
	}
	return &ExecError{ExitCode: code, Stderr: tail(output, maxStderrBytes)}
}

// tail keeps the last limit bytes of b.
func tail(b []byte, limit int) string {
	if len(b) <= limit {
		return string(b)
	}
	return "..." + string(b[len(b)-limit:])
}
