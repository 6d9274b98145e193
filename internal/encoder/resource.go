package encoder

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"filewell/internal/logging"
	"filewell/internal/metrics"
	"filewell/internal/services"
)

// State is the lifecycle state of the shared engine.
type State int

const (
	StateAbsent State = iota
	StateLoading
	StateReady
	StatePoisoned
)

func (s State) String() string {
	switch s {
	case StateAbsent:
		return "absent"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StatePoisoned:
		return "poisoned"
	default:
		return "unknown"
	}
}

// Loader creates a fresh engine instance.
type Loader func(ctx context.Context) (Engine, error)

// StateHook observes every state transition.
type StateHook func(from, to State)

// Option configures a Resource.
type Option func(*Resource)

// WithLogger sets the resource logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resource) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithMetrics records loads and resets.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Resource) { r.metrics = m }
}

// WithStateHook registers a transition observer. The hook runs with the
// resource lock held and must not call back into the resource.
func WithStateHook(hook StateHook) Option {
	return func(r *Resource) { r.hook = hook }
}

const loadKey = "engine"

// Resource manages the single engine instance. Acquire is safe for
// concurrent use; all callers arriving during a load share that load.
// Resource does not serialize use of the engine itself.
type Resource struct {
	load    Loader
	logger  *slog.Logger
	metrics *metrics.Metrics
	hook    StateHook
	group   singleflight.Group

	mu     sync.Mutex
	state  State
	engine Engine
}

// NewResource returns a resource in the absent state.
func NewResource(load Loader, opts ...Option) *Resource {
	r := &Resource{load: load, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logging.NewComponentLogger(r.logger, "encoder")
	return r
}

// State returns the current lifecycle state.
func (r *Resource) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Acquire returns the ready engine, loading it first when absent or
// poisoned. A failed load leaves the resource absent and returns an error
// marked services.ErrEngineInitFailed; the next Acquire tries again.
func (r *Resource) Acquire(ctx context.Context) (Engine, error) {
	for {
		r.mu.Lock()
		if r.state == StateReady {
			engine := r.engine
			r.mu.Unlock()
			return engine, nil
		}
		r.mu.Unlock()

		// The load outlives any single caller so that waiters sharing it are
		// not failed by one caller's cancellation.
		loadCtx := context.WithoutCancel(ctx)
		ch := r.group.DoChan(loadKey, func() (any, error) {
			return r.run(loadCtx)
		})
		select {
		case res := <-ch:
			if res.Err != nil {
				return nil, res.Err
			}
			if engine, ok := res.Val.(Engine); ok && engine != nil {
				return engine, nil
			}
			// Joined a Close barrier rather than a load; look again.
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (r *Resource) run(ctx context.Context) (Engine, error) {
	r.mu.Lock()
	if r.state == StateReady {
		engine := r.engine
		r.mu.Unlock()
		return engine, nil
	}
	stale := r.engine
	r.engine = nil
	r.setState(StateLoading)
	r.mu.Unlock()

	if stale != nil {
		if err := stale.Close(ctx); err != nil {
			logging.WarnWithContext(r.logger, "discarding poisoned engine failed", "engine_close_failed",
				logging.String(logging.FieldErrorHint, "the previous engine instance may leak resources until exit"),
				logging.Error(err),
			)
		}
	}

	started := time.Now()
	engine, err := r.load(ctx)
	if err == nil && engine == nil {
		err = errors.New("loader returned no engine")
	}

	r.mu.Lock()
	if err != nil {
		r.setState(StateAbsent)
		r.mu.Unlock()
		r.metrics.IncEngineLoad("failure")
		logging.ErrorWithContext(r.logger, "engine initialization failed", "engine_init_failed",
			logging.String(logging.FieldErrorHint, "check the engine payload source and cache directory"),
			logging.Error(err),
		)
		return nil, services.Wrap(services.ErrEngineInitFailed, "encoder", "load engine", "engine initialization failed", err)
	}
	r.engine = engine
	r.setState(StateReady)
	r.mu.Unlock()
	r.metrics.IncEngineLoad("success")
	r.logger.Info("engine ready", logging.Args(
		logging.String(logging.FieldEventType, "engine_ready"),
		logging.Duration("load_time", time.Since(started)),
	)...)
	return engine, nil
}

// MarkPoisoned flags the current engine as untrustworthy. The next Acquire
// discards it and loads a fresh instance. It is a no-op unless the engine is
// ready.
func (r *Resource) MarkPoisoned() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateReady {
		return
	}
	r.setState(StatePoisoned)
	r.metrics.IncEngineReset()
	logging.WarnWithContext(r.logger, "engine poisoned", "engine_poisoned",
		logging.String(logging.FieldErrorHint, "engine reported internal corruption"),
		logging.String(logging.FieldImpact, "next conversion reloads the engine"),
	)
}

// Close releases the current engine and returns the resource to absent. It
// waits for an in-flight load to settle first.
func (r *Resource) Close(ctx context.Context) error {
	ch := r.group.DoChan(loadKey, func() (any, error) { return nil, nil })
	select {
	case <-ch:
	case <-ctx.Done():
		return ctx.Err()
	}

	r.mu.Lock()
	engine := r.engine
	r.engine = nil
	if r.state != StateAbsent {
		r.setState(StateAbsent)
	}
	r.mu.Unlock()
	if engine == nil {
		return nil
	}
	return engine.Close(ctx)
}

func (r *Resource) setState(next State) {
	prev := r.state
	r.state = next
	r.logger.Debug("engine state changed", logging.Args(
		logging.String(logging.FieldEngineState, next.String()),
		logging.String("previous_state", prev.String()),
	)...)
	if r.hook != nil {
		r.hook(prev, next)
	}
}
