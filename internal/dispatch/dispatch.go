package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"

	"filewell/internal/classify"
	"filewell/internal/encoder"
	"filewell/internal/formats"
	"filewell/internal/logging"
	"filewell/internal/metrics"
	"filewell/internal/services"
)

// maxCorruptionRetries bounds automatic retries after the engine is poisoned.
const maxCorruptionRetries = 1

// Source is one raw input file.
type Source struct {
	Name        string
	ContentType string
	Data        []byte
}

// Size returns the length of the source bytes.
func (s Source) Size() int64 { return int64(len(s.Data)) }

// Result is a finished conversion.
type Result struct {
	Data        []byte
	ContentType string
	Category    formats.Category
	Attempts    int
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithRegistry replaces the built-in format registry.
func WithRegistry(reg *formats.Registry) Option {
	return func(d *Dispatcher) {
		if reg != nil {
			d.registry = reg
		}
	}
}

// WithLogger sets the dispatcher logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithMetrics records conversion outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

// Dispatcher converts sources to target formats.
type Dispatcher struct {
	registry   *formats.Registry
	classifier *classify.Classifier
	resource   *encoder.Resource
	engineSlot *semaphore.Weighted
	metrics    *metrics.Metrics
	logger     *slog.Logger
	newName    func() string
}

// New builds a dispatcher that uses resource for audio and video.
func New(resource *encoder.Resource, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		registry:   formats.Default(),
		resource:   resource,
		engineSlot: semaphore.NewWeighted(1),
		logger:     logging.NewNop(),
		newName:    newWorkingName,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.classifier = classify.New(d.registry)
	d.logger = logging.NewComponentLogger(d.logger, "dispatch")
	return d
}

// Registry returns the registry the dispatcher validates against.
func (d *Dispatcher) Registry() *formats.Registry { return d.registry }

// Classify exposes the dispatcher's classifier.
func (d *Dispatcher) Classify(src Source) classify.Result {
	return d.classifier.Classify(src.ContentType, src.Name)
}

// Convert turns src into target. Every failure carries one of the
// services error markers.
func (d *Dispatcher) Convert(ctx context.Context, src Source, target string) (Result, error) {
	target = strings.ToLower(strings.TrimSpace(target))
	if target == "" {
		return Result{}, services.Wrap(services.ErrNoTargetSelected, "dispatch", "validate", "no target format selected", nil)
	}

	cls := d.Classify(src)
	if cls.Category == formats.CategoryUnknown || !d.registry.Supports(cls.Category, target) {
		msg := fmt.Sprintf("cannot convert %s (%s) to %s", displayName(src), displayType(src), target)
		return Result{}, services.Wrap(services.ErrUnsupportedConversion, "dispatch", "validate", msg, nil)
	}

	logger := logging.WithContext(ctx, d.logger).With(
		logging.String(logging.FieldCategory, string(cls.Category)),
		logging.String(logging.FieldTarget, target),
	)
	started := time.Now()

	var (
		res Result
		err error
	)
	switch cls.Category {
	case formats.CategoryImage:
		res, err = d.convertImage(src, target)
	default:
		res, err = d.convertMedia(ctx, logger, src, target)
	}
	res.Category = cls.Category

	outcome := metrics.OutcomeSuccess
	if err != nil {
		outcome = metrics.OutcomeFailure
	}
	d.metrics.ObserveConversion(string(cls.Category), target, outcome, time.Since(started))

	if err != nil {
		logger.Info("conversion failed", logging.Args(
			logging.String(logging.FieldEventType, "conversion_failed"),
			logging.String("error_kind", services.Kind(err)),
			logging.Error(err),
		)...)
		return Result{}, err
	}
	logger.Info("conversion finished", logging.Args(
		logging.String(logging.FieldEventType, "conversion_finished"),
		logging.Int64("input_bytes", src.Size()),
		logging.Int("output_bytes", len(res.Data)),
		logging.Duration("elapsed", time.Since(started)),
	)...)
	return res, nil
}

// resolveContentType prefers the registry, then whatever the producer
// reported, then the generic binary type.
func (d *Dispatcher) resolveContentType(target string, reported func() string) string {
	if ct := d.registry.MIMEFor(target); ct != formats.FallbackMIME {
		return ct
	}
	if reported != nil {
		if ct := reported(); ct != "" {
			return ct
		}
	}
	return formats.FallbackMIME
}

func displayName(src Source) string {
	if src.Name == "" {
		return "input"
	}
	return src.Name
}

func displayType(src Source) string {
	if src.ContentType == "" {
		return "unknown type"
	}
	return src.ContentType
}

// RetryableKind reports whether an item that failed with kind, as returned
// by services.Kind, may simply be tried again.
func RetryableKind(kind string) bool {
	switch kind {
	case "EngineInitFailed", "EngineCorrupted", "EncodeFailed":
		return true
	}
	return false
}
