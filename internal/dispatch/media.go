package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"filewell/internal/encoder"
	"filewell/internal/logging"
	"filewell/internal/services"
	"filewell/internal/textutil"
)

func newWorkingName() string {
	return uuid.NewString()
}

// convertMedia runs an engine conversion, retrying exactly once when the
// engine reports corruption. The last attempt's error is returned.
func (d *Dispatcher) convertMedia(ctx context.Context, logger *slog.Logger, src Source, target string) (Result, error) {
	attempts := 0
	for {
		attempts++
		res, err := d.runEngine(ctx, logger, src, target)
		if err == nil {
			res.Attempts = attempts
			return res, nil
		}
		if !errors.Is(err, services.ErrEngineCorrupted) || attempts > maxCorruptionRetries {
			return Result{}, err
		}
		logging.WarnWithContext(logger, "engine corrupted; retrying on a fresh instance", "engine_retry",
			logging.String(logging.FieldErrorHint, "engine reported internal corruption"),
			logging.String(logging.FieldImpact, "conversion is retried once"),
			logging.Int("attempt", attempts),
			logging.Error(err),
		)
	}
}

// runEngine holds the engine slot for the whole write, execute, read and
// cleanup sequence.
func (d *Dispatcher) runEngine(ctx context.Context, logger *slog.Logger, src Source, target string) (Result, error) {
	if d.resource == nil {
		return Result{}, services.Wrap(services.ErrEngineInitFailed, "dispatch", "acquire engine", "no encoder engine configured", nil)
	}
	if err := d.engineSlot.Acquire(ctx, 1); err != nil {
		return Result{}, err
	}
	defer d.engineSlot.Release(1)

	engine, err := d.resource.Acquire(ctx)
	if err != nil {
		return Result{}, err
	}

	invocation := d.newName()
	ctx = services.WithInvocation(ctx, invocation)
	logger = logger.With(logging.String(logging.FieldInvocation, invocation))
	input := invocation + "-in" + textutil.SafeExtension(src.Name, 8)
	output := invocation + "-out." + d.registry.Extension(target)

	defer d.cleanup(context.WithoutCancel(ctx), logger, engine, input, output)

	if err := engine.WriteFile(ctx, input, src.Data); err != nil {
		return Result{}, d.engineFailure(src, "write input", err)
	}

	args := []string{"-i", engine.Path(input)}
	args = append(args, d.registry.PresetFor(target).Args...)
	args = append(args, engine.Path(output))
	logger.Debug("invoking engine", logging.Args(logging.Any("args", args))...)

	if err := engine.Exec(ctx, args); err != nil {
		return Result{}, d.engineFailure(src, "execute", err)
	}

	data, err := engine.ReadFile(ctx, output)
	if err != nil {
		return Result{}, d.engineFailure(src, "read output", err)
	}
	if len(data) == 0 {
		return Result{}, services.Wrap(services.ErrEncodeFailed, "dispatch", "read output",
			fmt.Sprintf("failed to convert %s: engine produced no output", displayName(src)), nil)
	}

	var reported func() string
	if tr, ok := engine.(encoder.TypeReporter); ok {
		reported = func() string { return tr.ReportedType(output) }
	}
	return Result{Data: data, ContentType: d.resolveContentType(target, reported)}, nil
}

// engineFailure classifies err and poisons the engine on corruption.
func (d *Dispatcher) engineFailure(src Source, op string, err error) error {
	msg := fmt.Sprintf("failed to convert %s", displayName(src))
	if encoder.IsCorruption(err) {
		d.resource.MarkPoisoned()
		return services.Wrap(services.ErrEngineCorrupted, "dispatch", op, msg, err)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return services.Wrap(services.ErrEncodeFailed, "dispatch", op, msg, err)
}

func (d *Dispatcher) cleanup(ctx context.Context, logger *slog.Logger, engine encoder.Engine, names ...string) {
	for _, name := range names {
		if err := engine.Remove(ctx, name); err != nil {
			logging.WarnWithContext(logger, "engine artifact cleanup failed", "engine_cleanup_failed",
				logging.String("name", name),
				logging.String(logging.FieldErrorHint, "stale working files stay in the engine store until it is reset"),
				logging.Error(err),
			)
		}
	}
}
