package dispatch_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"filewell/internal/encoder"
)

// memEngine is an in-memory engine whose Exec reverses the input bytes and
// prefixes the target extension, so outputs are deterministic per input.
type memEngine struct {
	mu       sync.Mutex
	files    map[string][]byte
	names    []string
	active   atomic.Int32
	overlap  atomic.Bool
	execs    atomic.Int32
	closed   atomic.Bool
	delay    time.Duration
	execErr  func(call int32) error
	removeFn func(name string) error
}

func newMemEngine() *memEngine {
	return &memEngine{files: map[string][]byte{}}
}

func (e *memEngine) Path(name string) string { return "mem:" + name }

func (e *memEngine) WriteFile(_ context.Context, name string, data []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.files[name] = bytes.Clone(data)
	e.names = append(e.names, name)
	return nil
}

func (e *memEngine) Exec(_ context.Context, args []string) error {
	call := e.execs.Add(1)
	if e.active.Add(1) > 1 {
		e.overlap.Store(true)
	}
	defer e.active.Add(-1)
	if e.delay > 0 {
		time.Sleep(e.delay)
	}
	if e.execErr != nil {
		if err := e.execErr(call); err != nil {
			return err
		}
	}
	if len(args) < 3 || args[0] != "-i" {
		return &encoder.ExecError{ExitCode: 1, Stderr: "bad args"}
	}
	in := strings.TrimPrefix(args[1], "mem:")
	out := strings.TrimPrefix(args[len(args)-1], "mem:")

	e.mu.Lock()
	defer e.mu.Unlock()
	src, ok := e.files[in]
	if !ok {
		return &encoder.ExecError{ExitCode: 1, Stderr: in + ": No such file or directory"}
	}
	dst := make([]byte, 0, len(src)+8)
	dst = append(dst, out[strings.LastIndex(out, ".")+1:]...)
	for i := len(src) - 1; i >= 0; i-- {
		dst = append(dst, src[i])
	}
	e.files[out] = dst
	return nil
}

func (e *memEngine) ReadFile(_ context.Context, name string) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	data, ok := e.files[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, os.ErrNotExist)
	}
	return bytes.Clone(data), nil
}

func (e *memEngine) Remove(_ context.Context, name string) error {
	if e.removeFn != nil {
		if err := e.removeFn(name); err != nil {
			return err
		}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.files, name)
	return nil
}

func (e *memEngine) Close(context.Context) error {
	e.closed.Store(true)
	return nil
}

func (e *memEngine) stored() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.files)
}

func (e *memEngine) written() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.names...)
}

// engineQueue hands out prepared engines in order, one per load.
type engineQueue struct {
	mu      sync.Mutex
	engines []*memEngine
	loads   int
	fail    error
}

func (q *engineQueue) load(context.Context) (encoder.Engine, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.loads++
	if q.fail != nil {
		return nil, q.fail
	}
	if len(q.engines) == 0 {
		return nil, errors.New("no engine prepared")
	}
	e := q.engines[0]
	if len(q.engines) > 1 {
		q.engines = q.engines[1:]
	}
	return e, nil
}

func (q *engineQueue) loadCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.loads
}
