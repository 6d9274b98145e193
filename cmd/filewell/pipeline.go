package main

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"filewell/internal/config"
	"filewell/internal/conversion"
	"filewell/internal/deps"
	"filewell/internal/dispatch"
	"filewell/internal/encoder"
	"filewell/internal/encoder/ffmpegengine"
	"filewell/internal/encoder/payload"
	"filewell/internal/encoder/wasmengine"
	"filewell/internal/formats"
	"filewell/internal/logging"
	"filewell/internal/metrics"
)

// pipeline is the per-invocation object graph: one registry, one shared
// engine resource, one dispatcher and one store.
type pipeline struct {
	registry   *formats.Registry
	gatherer   *prometheus.Registry
	metrics    *metrics.Metrics
	resource   *encoder.Resource
	dispatcher *dispatch.Dispatcher
	store      *conversion.Store
	logger     *slog.Logger
}

func newPipeline(ctx context.Context, cfg *config.Config, logger *slog.Logger) *pipeline {
	if logger == nil {
		logger = logging.NewNop()
	}
	gatherer := prometheus.NewRegistry()
	m := metrics.New(gatherer)

	registry := formats.Default().WithImagePresets(formats.ImagePresets{
		JPEGQuality: cfg.Image.JPEGQuality,
		WebPQuality: cfg.Image.WebPQuality,
		AVIFQuality: cfg.Image.AVIFQuality,
		AVIFSpeed:   cfg.Image.AVIFSpeed,
	})

	resource := encoder.NewResource(engineLoader(cfg, logger),
		encoder.WithLogger(logger),
		encoder.WithMetrics(m),
	)
	dispatcher := dispatch.New(resource,
		dispatch.WithRegistry(registry),
		dispatch.WithLogger(logger),
		dispatch.WithMetrics(m),
	)
	store := conversion.NewStore(dispatcher,
		conversion.WithRegistry(registry),
		conversion.WithLogger(logger),
		conversion.WithMetrics(m),
		conversion.WithBaseContext(ctx),
	)

	return &pipeline{
		registry:   registry,
		gatherer:   gatherer,
		metrics:    m,
		resource:   resource,
		dispatcher: dispatcher,
		store:      store,
		logger:     logger,
	}
}

func engineLoader(cfg *config.Config, logger *slog.Logger) encoder.Loader {
	switch cfg.Engine.Kind {
	case config.EngineWASM:
		cache := payload.NewCache(cfg.Engine.PayloadPath, cfg.Engine.PayloadURL, cfg.Engine.PayloadSHA256, cfg.DownloadTimeout(), logger)
		return wasmengine.Loader(cache, cfg.EngineWorkDir(), wasmengine.Options{
			MemoryLimitPages: cfg.Engine.MemoryLimitPages,
			Logger:           logger,
		})
	default:
		return ffmpegengine.Loader(deps.ResolveFFmpeg(cfg.Engine.FFmpegBinary), cfg.EngineWorkDir(), logger)
	}
}

// close waits for in-flight conversions and tears down the engine.
func (p *pipeline) close(ctx context.Context) error {
	if err := p.store.Drain(ctx); err != nil {
		return err
	}
	return p.resource.Close(ctx)
}
