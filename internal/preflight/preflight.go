package preflight

import (
	"context"

	"filewell/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
// The engine check depends on the configured engine kind.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Cache directory", cfg.Paths.CacheDir),
		CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir),
	}

	switch cfg.Engine.Kind {
	case config.EngineWASM:
		results = append(results, CheckPayload(ctx, cfg.Engine.PayloadPath, cfg.Engine.PayloadURL))
	default:
		results = append(results, CheckFFmpeg(cfg.Engine.FFmpegBinary))
	}
	return results
}

// Failed returns the subset of results that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}
