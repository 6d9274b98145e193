package wasmengine

import (
	"context"
	"errors"
	"testing"

	"filewell/internal/encoder"
)

// Hand-assembled WASI commands. Each imports proc_exit, exports memory and a
// _start whose body is supplied by the caller.
func wasiCommand(body []byte) []byte {
	module := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}
	// types: (i32)->() and ()->()
	module = append(module, 0x01, 0x08, 0x02, 0x60, 0x01, 0x7f, 0x00, 0x60, 0x00, 0x00)
	// import wasi_snapshot_preview1.proc_exit as func type 0
	imp := []byte{0x01, 0x16}
	imp = append(imp, "wasi_snapshot_preview1"...)
	imp = append(imp, 0x09)
	imp = append(imp, "proc_exit"...)
	imp = append(imp, 0x00, 0x00)
	module = append(module, 0x02, byte(len(imp)))
	module = append(module, imp...)
	// one function of type 1
	module = append(module, 0x03, 0x02, 0x01, 0x01)
	// one page of memory
	module = append(module, 0x05, 0x03, 0x01, 0x00, 0x01)
	// exports
	exp := []byte{0x02, 0x06}
	exp = append(exp, "_start"...)
	exp = append(exp, 0x00, 0x01, 0x06)
	exp = append(exp, "memory"...)
	exp = append(exp, 0x02, 0x00)
	module = append(module, 0x07, byte(len(exp)))
	module = append(module, exp...)
	// code
	fn := append([]byte{0x00}, body...)
	code := append([]byte{0x01, byte(len(fn))}, fn...)
	module = append(module, 0x0a, byte(len(code)))
	return append(module, code...)
}

func exitWith(code byte) []byte {
	// i32.const code; call 0; end
	return wasiCommand([]byte{0x41, code, 0x10, 0x00, 0x0b})
}

func outOfBounds() []byte {
	// i32.const -1; i32.load; drop; end
	return wasiCommand([]byte{0x41, 0x7f, 0x28, 0x02, 0x00, 0x1a, 0x0b})
}

func newEngine(t *testing.T, wasm []byte) *Engine {
	t.Helper()
	ctx := context.Background()
	e, err := New(ctx, wasm, t.TempDir(), Options{MemoryLimitPages: 16})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = e.Close(ctx) })
	return e
}

func TestExecSuccess(t *testing.T) {
	e := newEngine(t, exitWith(0))
	if err := e.Exec(context.Background(), []string{"-version"}); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
}

func TestExecNonZeroExitIsEncodeFailure(t *testing.T) {
	e := newEngine(t, exitWith(3))
	err := e.Exec(context.Background(), []string{"-i", e.Path("in"), e.Path("out")})
	var execErr *encoder.ExecError
	if !errors.As(err, &execErr) {
		t.Fatalf("expected ExecError, got %v", err)
	}
	if execErr.ExitCode != 3 {
		t.Fatalf("expected exit code 3, got %d", execErr.ExitCode)
	}
	if encoder.IsCorruption(err) {
		t.Fatal("exit status must not be treated as corruption")
	}
}

func TestExecTrapIsCorruption(t *testing.T) {
	e := newEngine(t, outOfBounds())
	err := e.Exec(context.Background(), nil)
	if !encoder.IsCorruption(err) {
		t.Fatalf("expected corruption, got %v", err)
	}
}

func TestWorkingStoreAndPaths(t *testing.T) {
	e := newEngine(t, exitWith(0))
	ctx := context.Background()
	if got := e.Path("abc.mp4"); got != "/work/abc.mp4" {
		t.Fatalf("unexpected guest path %q", got)
	}
	if err := e.WriteFile(ctx, "abc.mp4", []byte("data")); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	data, err := e.ReadFile(ctx, "abc.mp4")
	if err != nil || string(data) != "data" {
		t.Fatalf("ReadFile = %q, %v", data, err)
	}
	if err := e.Remove(ctx, "abc.mp4"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
}

func TestNewRejectsInvalidModule(t *testing.T) {
	if _, err := New(context.Background(), []byte("not wasm"), t.TempDir(), Options{}); err == nil {
		t.Fatal("expected compile error")
	}
}

var _ encoder.Engine = (*Engine)(nil)
