// Package ffmpegengine runs a system ffmpeg binary against a private scratch
// directory.
package ffmpegengine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"os/exec"
	"path/filepath"
	"syscall"

	"filewell/internal/encoder"
	"filewell/internal/logging"
)

// Signals that mean the process died from memory corruption rather than a
// rejected job.
var corruptionSignals = map[syscall.Signal]bool{
	syscall.SIGSEGV: true,
	syscall.SIGBUS:  true,
	syscall.SIGABRT: true,
	syscall.SIGILL:  true,
}

// Engine shells out to ffmpeg. Each instance owns one scratch directory.
type Engine struct {
	encoder.Scratch
	binary string
	logger *slog.Logger
}

// New resolves binary on PATH and creates a scratch directory under workDir.
func New(binary, workDir string, logger *slog.Logger) (*Engine, error) {
	if binary == "" {
		binary = "ffmpeg"
	}
	resolved, err := exec.LookPath(binary)
	if err != nil {
		return nil, fmt.Errorf("locate %s: %w", binary, err)
	}
	scratch, err := encoder.NewScratch(workDir, "ffmpeg-")
	if err != nil {
		return nil, err
	}
	return &Engine{
		Scratch: scratch,
		binary:  resolved,
		logger:  logging.NewComponentLogger(logger, "ffmpegengine"),
	}, nil
}

// Loader returns an encoder.Loader that builds a fresh process engine.
func Loader(binary, workDir string, logger *slog.Logger) encoder.Loader {
	return func(context.Context) (encoder.Engine, error) {
		return New(binary, workDir, logger)
	}
}

// Path returns the host path ffmpeg should use for name.
func (e *Engine) Path(name string) string {
	return filepath.Join(e.Dir, name)
}

// Exec runs ffmpeg non-interactively with args.
func (e *Engine) Exec(ctx context.Context, args []string) error {
	full := append([]string{"-hide_banner", "-nostdin", "-y"}, args...)
	cmd := exec.CommandContext(ctx, e.binary, full...) //nolint:gosec
	cmd.Dir = e.Dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	e.logger.Debug("running ffmpeg", logging.Args(logging.Any("args", full))...)
	err := cmd.Run()
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Signaled() && corruptionSignals[status.Signal()] {
			return encoder.Corrupted(fmt.Errorf("ffmpeg killed by %s: %s", status.Signal(), stderr.String()))
		}
		return &encoder.ExecError{ExitCode: exitErr.ExitCode(), Stderr: stderr.String()}
	}
	return fmt.Errorf("run ffmpeg: %w", err)
}

// ReportedType guesses the content type of an artifact from its extension.
func (e *Engine) ReportedType(name string) string {
	return mime.TypeByExtension(filepath.Ext(name))
}

// Close removes the scratch directory.
func (e *Engine) Close(context.Context) error {
	return e.Destroy()
}
