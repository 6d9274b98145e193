// Package encoder owns the single shared audio/video encoding engine: its
// lazy creation, health state, and reset after corruption.
package encoder

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Engine is one live encoding engine instance. Names are relative to the
// engine's private working store; Path maps a name to the form the engine
// expects on its own command line.
type Engine interface {
	Path(name string) string
	WriteFile(ctx context.Context, name string, data []byte) error
	Exec(ctx context.Context, args []string) error
	ReadFile(ctx context.Context, name string) ([]byte, error)
	Remove(ctx context.Context, name string) error
	Close(ctx context.Context) error
}

// TypeReporter is implemented by engines that can report the content type of
// a produced artifact.
type TypeReporter interface {
	ReportedType(name string) string
}

// ErrCorrupted marks an engine failure that leaves the instance untrustworthy.
var ErrCorrupted = errors.New("engine state corrupted")

// IsCorruption reports whether err carries the corruption signature.
func IsCorruption(err error) bool {
	return errors.Is(err, ErrCorrupted)
}

// ExecError is an ordinary engine failure with its diagnostic output.
type ExecError struct {
	ExitCode int
	Stderr   string
}

func (e *ExecError) Error() string {
	tail := lastLines(e.Stderr, 3)
	if tail == "" {
		return fmt.Sprintf("engine exited with status %d", e.ExitCode)
	}
	return fmt.Sprintf("engine exited with status %d: %s", e.ExitCode, tail)
}

// Corrupted wraps cause so that IsCorruption reports true.
func Corrupted(cause error) error {
	if cause == nil {
		return ErrCorrupted
	}
	return fmt.Errorf("%w: %w", ErrCorrupted, cause)
}

func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}
	return strings.TrimSpace(strings.Join(lines, " | "))
}
