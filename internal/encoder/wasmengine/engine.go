// Package wasmengine runs a WASI build of ffmpeg under wazero.
//
// The module is compiled once per engine and instantiated fresh for every
// Exec call, with the engine's scratch directory mounted at /work.
package wasmengine

import (
	"bytes"
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"github.com/tetratelabs/wazero/sys"

	"filewell/internal/encoder"
	"filewell/internal/encoder/payload"
	"filewell/internal/logging"
)

// GuestRoot is where the scratch directory appears inside the guest.
const GuestRoot = "/work"

// corruptionSignatures are trap messages after which the runtime's memory
// can no longer be trusted.
var corruptionSignatures = []string{
	"out of bounds memory access",
	"invalid table access",
}

// Options tune the runtime.
type Options struct {
	// MemoryLimitPages caps guest memory in 64KiB pages; 0 keeps the
	// wazero default.
	MemoryLimitPages uint32
	Logger           *slog.Logger
}

// Engine is one compiled ffmpeg module plus its scratch store.
type Engine struct {
	encoder.Scratch
	runtime  wazero.Runtime
	compiled wazero.CompiledModule
	logger   *slog.Logger
}

// New compiles wasmBytes and prepares a scratch directory under workDir.
func New(ctx context.Context, wasmBytes []byte, workDir string, opts Options) (*Engine, error) {
	runtimeCfg := wazero.NewRuntimeConfig().WithCloseOnContextDone(true)
	if opts.MemoryLimitPages > 0 {
		runtimeCfg = runtimeCfg.WithMemoryLimitPages(opts.MemoryLimitPages)
	}
	rt := wazero.NewRuntimeWithConfig(ctx, runtimeCfg)

	if _, err := wasi_snapshot_preview1.Instantiate(ctx, rt); err != nil {
		_ = rt.Close(ctx)
		return nil, fmt.Errorf("instantiate wasi: %w", err)
	}
	compiled, err := rt.CompileModule(ctx, wasmBytes)
	if err != nil {
		_ = rt.Close(ctx)
		return nil, fmt.Errorf("compile engine module: %w", err)
	}
	scratch, err := encoder.NewScratch(workDir, "wasm-")
	if err != nil {
		_ = rt.Close(ctx)
		return nil, err
	}
	return &Engine{
		Scratch:  scratch,
		runtime:  rt,
		compiled: compiled,
		logger:   logging.NewComponentLogger(opts.Logger, "wasmengine"),
	}, nil
}

// Loader returns an encoder.Loader that fetches the payload through cache
// and compiles a new engine from it.
func Loader(cache *payload.Cache, workDir string, opts Options) encoder.Loader {
	return func(ctx context.Context) (encoder.Engine, error) {
		wasmBytes, err := cache.Fetch(ctx)
		if err != nil {
			return nil, err
		}
		return New(ctx, wasmBytes, workDir, opts)
	}
}

// Path returns the guest-visible path for name.
func (e *Engine) Path(name string) string {
	return path.Join(GuestRoot, name)
}

// Exec runs ffmpeg with args in a fresh module instance.
func (e *Engine) Exec(ctx context.Context, args []string) error {
	var stdout, stderr bytes.Buffer
	modCfg := wazero.NewModuleConfig().
		WithName("").
		WithArgs(append([]string{"ffmpeg"}, args...)...).
		WithStdout(&stdout).
		WithStderr(&stderr).
		WithFSConfig(wazero.NewFSConfig().WithDirMount(e.Dir, GuestRoot)).
		WithSysWalltime().
		WithSysNanotime().
		WithRandSource(rand.Reader)

	mod, err := e.runtime.InstantiateModule(ctx, e.compiled, modCfg)
	if mod != nil {
		_ = mod.Close(ctx)
	}
	return classify(err, stderr.String())
}

func classify(err error, stderr string) error {
	if err == nil {
		return nil
	}
	var exitErr *sys.ExitError
	if errors.As(err, &exitErr) {
		if exitErr.ExitCode() == 0 {
			return nil
		}
		return &encoder.ExecError{ExitCode: int(exitErr.ExitCode()), Stderr: stderr}
	}
	msg := err.Error()
	for _, sig := range corruptionSignatures {
		if strings.Contains(msg, sig) {
			return encoder.Corrupted(err)
		}
	}
	return &encoder.ExecError{ExitCode: -1, Stderr: strings.TrimSpace(stderr + "\n" + msg)}
}

// Close tears down the runtime and the scratch directory.
func (e *Engine) Close(ctx context.Context) error {
	rtErr := e.runtime.Close(ctx)
	dirErr := e.Destroy()
	return errors.Join(rtErr, dirErr)
}
