package encoder

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Scratch is a private host directory used as an engine's working store.
type Scratch struct {
	Dir string
}

// NewScratch creates a fresh directory under parent.
func NewScratch(parent, prefix string) (Scratch, error) {
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return Scratch{}, fmt.Errorf("create engine work dir: %w", err)
	}
	dir, err := os.MkdirTemp(parent, prefix)
	if err != nil {
		return Scratch{}, fmt.Errorf("create engine scratch: %w", err)
	}
	return Scratch{Dir: dir}, nil
}

// Resolve maps a working name to its host path. Names must be plain file
// names; anything that could escape the directory is rejected.
func (s Scratch) Resolve(name string) (string, error) {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("invalid working name %q", name)
	}
	return filepath.Join(s.Dir, name), nil
}

func (s Scratch) WriteFile(_ context.Context, name string, data []byte) error {
	path, err := s.Resolve(name)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func (s Scratch) ReadFile(_ context.Context, name string) ([]byte, error) {
	path, err := s.Resolve(name)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(path)
}

// Remove deletes name. Removing a missing name is not an error.
func (s Scratch) Remove(_ context.Context, name string) error {
	path, err := s.Resolve(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Destroy removes the directory and everything in it.
func (s Scratch) Destroy() error {
	if s.Dir == "" {
		return nil
	}
	return os.RemoveAll(s.Dir)
}
