package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"filewell/internal/config"
)

// CopyFFmpegScript behaves like an ffmpeg that copies its -i input to the
// final positional argument.
const CopyFFmpegScript = `#!/bin/sh
in=""
out=""
while [ $# -gt 0 ]; do
  case "$1" in
    -i) in="$2"; shift 2 ;;
    -*) shift ;;
    *) out="$1"; shift ;;
  esac
done
[ -n "$in" ] && [ -n "$out" ] || { echo "missing input or output" >&2; exit 1; }
cp "$in" "$out"
`

// FailingFFmpegScript reports an encoder error and exits non-zero.
const FailingFFmpegScript = `#!/bin/sh
echo "Unknown encoder 'libfake'" >&2
exit 1
`

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.CacheDir = filepath.Join(base, "cache")
	cfgVal.Paths.OutputDir = filepath.Join(base, "out")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Engine.PayloadPath = filepath.Join(base, "cache", "engine", "ffmpeg.wasm")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithEngineKind selects the engine implementation.
func WithEngineKind(kind string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Engine.Kind = kind
	}
}

// WithPayloadURL points the wasm engine at a download location.
func WithPayloadURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Engine.PayloadURL = url
	}
}

// WithFFmpegScript installs script as the ffmpeg binary and points the
// config at it.
func WithFFmpegScript(script string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Engine.FFmpegBinary = WriteStubBinary(b.t, filepath.Join(b.baseDir, "bin"), "ffmpeg", script)
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, ffmpeg is stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"ffmpeg"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		for _, name := range names {
			WriteStubBinary(b.t, binDir, name, "#!/bin/sh\nexit 0\n")
		}
		b.t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))
	}
}

// WriteStubBinary writes an executable script named name into dir and
// returns its path.
func WriteStubBinary(t testing.TB, dir, name, script string) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir bin dir: %v", err)
	}
	target := filepath.Join(dir, name)
	if err := os.WriteFile(target, []byte(script), 0o755); err != nil {
		t.Fatalf("write stub %s: %v", name, err)
	}
	return target
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.CacheDir)
}
