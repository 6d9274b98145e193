package conversion

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"filewell/internal/classify"
	"filewell/internal/dispatch"
	"filewell/internal/formats"
	"filewell/internal/logging"
	"filewell/internal/metrics"
	"filewell/internal/services"
)

// Option configures a Store.
type Option func(*Store)

// WithObserver registers a transition observer.
func WithObserver(o Observer) Option {
	return func(s *Store) { s.observer = o }
}

// WithLogger sets the store logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics tracks item counts per status.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// WithRegistry sets the registry used for target lists. It should match the
// converter's registry.
func WithRegistry(reg *formats.Registry) Option {
	return func(s *Store) {
		if reg != nil {
			s.registry = reg
		}
	}
}

// WithBaseContext sets the parent context of background conversions.
func WithBaseContext(ctx context.Context) Option {
	return func(s *Store) {
		if ctx != nil {
			s.baseCtx = ctx
		}
	}
}

// Store holds every queued item. It is safe for concurrent use.
type Store struct {
	conv       Converter
	registry   *formats.Registry
	classifier *classify.Classifier
	observer   Observer
	metrics    *metrics.Metrics
	logger     *slog.Logger
	baseCtx    context.Context
	inflight   sync.WaitGroup

	mu       sync.Mutex
	items    map[int64]*item
	order    []int64
	nextID   int64
	attempts uint64
}

// NewStore returns an empty store that runs conversions through conv.
func NewStore(conv Converter, opts ...Option) *Store {
	s := &Store{
		conv:     conv,
		registry: formats.Default(),
		logger:   logging.NewNop(),
		baseCtx:  context.Background(),
		items:    make(map[int64]*item),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.classifier = classify.New(s.registry)
	s.logger = logging.NewComponentLogger(s.logger, "conversion")
	return s
}

// Admit adds src as a new idle item with no selection.
func (s *Store) Admit(src dispatch.Source) Snapshot {
	cls := s.classifier.Classify(src.ContentType, src.Name)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	it := &item{
		id:         s.nextID,
		source:     src,
		category:   cls.Category,
		current:    cls.Current,
		admittedAt: time.Now(),
		state:      idleState{},
	}
	s.items[it.id] = it
	s.order = append(s.order, it.id)
	s.emit(it.id, "", StatusIdle)

	s.logger.Debug("item admitted", logging.Args(
		logging.Int64(logging.FieldItemID, it.id),
		logging.String("name", src.Name),
		logging.String(logging.FieldCategory, string(cls.Category)),
	)...)
	return it.snapshot()
}

// Select records key as the item's target. An empty key clears the
// selection. Keys are checked against the registry only when converting.
func (s *Store) Select(id int64, key string) error {
	key = strings.ToLower(strings.TrimSpace(key))

	s.mu.Lock()
	defer s.mu.Unlock()
	it, err := s.lookup(id)
	if err != nil {
		return err
	}
	if _, ok := it.state.(idleState); !ok {
		return invalidTransition(id, it.state.status(), "select")
	}
	it.state = idleState{selected: key}
	s.emit(id, StatusIdle, StatusIdle)
	return nil
}

// Start begins converting the item to its selected format. It reports
// false without error when the item has no selection or is not idle.
func (s *Store) Start(id int64) (bool, error) {
	s.mu.Lock()
	it, err := s.lookup(id)
	if err != nil {
		s.mu.Unlock()
		return false, err
	}
	idle, ok := it.state.(idleState)
	if !ok || idle.selected == "" {
		s.mu.Unlock()
		return false, nil
	}
	s.attempts++
	conv := convertingState{
		target:  idle.selected,
		attempt: s.attempts,
		settled: make(chan struct{}),
	}
	it.state = conv
	s.emit(id, StatusIdle, StatusConverting)
	src := it.source
	s.inflight.Add(1)
	s.mu.Unlock()

	ctx := services.WithItemID(s.baseCtx, id)
	logging.WithContext(ctx, s.logger).Info("conversion started", logging.Args(
		logging.String(logging.FieldTarget, conv.target),
		logging.String(logging.FieldEventType, "conversion_started"),
	)...)

	go func() {
		defer s.inflight.Done()
		res, err := s.conv.Convert(ctx, src, conv.target)
		s.settle(ctx, id, conv, res, err)
	}()
	return true, nil
}

// settle applies a finished conversion if the item still exists and is
// still waiting on this attempt; otherwise the result is dropped.
func (s *Store) settle(ctx context.Context, id int64, conv convertingState, res dispatch.Result, convErr error) {
	logger := logging.WithContext(ctx, s.logger)

	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[id]
	if !ok {
		logger.Info("discarding result for removed item", logging.Args(
			logging.String(logging.FieldEventType, "result_discarded"),
		)...)
		return
	}
	current, ok := it.state.(convertingState)
	if !ok || current.attempt != conv.attempt {
		logger.Info("discarding stale result", logging.Args(
			logging.String(logging.FieldEventType, "result_discarded"),
		)...)
		return
	}

	if convErr != nil {
		it.state = errorState{target: conv.target, message: failureMessage(convErr), kind: services.Kind(convErr)}
		s.emit(id, StatusConverting, StatusError)
	} else {
		it.state = doneState{target: conv.target, result: newResultHandle(res.Data, res.ContentType)}
		s.emit(id, StatusConverting, StatusDone)
	}
	close(conv.settled)
}

// Reselect returns a finished item to idle, revoking its result or
// clearing its error. The selection is cleared.
func (s *Store) Reselect(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, err := s.lookup(id)
	if err != nil {
		return err
	}
	from := it.state.status()
	switch st := it.state.(type) {
	case doneState:
		st.result.Release()
	case errorState:
	default:
		return invalidTransition(id, from, "reselect")
	}
	it.state = idleState{}
	s.emit(id, from, StatusIdle)
	return nil
}

// Remove deletes the item and revokes any result it owns. An in-flight
// conversion keeps running; its result is discarded.
func (s *Store) Remove(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, err := s.lookup(id)
	if err != nil {
		return err
	}
	switch st := it.state.(type) {
	case doneState:
		st.result.Release()
	case convertingState:
		close(st.settled)
	}
	delete(s.items, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.emit(id, it.state.status(), "")
	return nil
}

// Get returns a snapshot of one item.
func (s *Store) Get(id int64) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, err := s.lookup(id)
	if err != nil {
		return Snapshot{}, err
	}
	return it.snapshot(), nil
}

// List returns snapshots of every item in admission order.
func (s *Store) List() []Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Snapshot, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.items[id].snapshot())
	}
	return out
}

// AvailableFormats lists the targets the item may be converted to.
func (s *Store) AvailableFormats(id int64) ([]formats.Descriptor, error) {
	s.mu.Lock()
	it, err := s.lookup(id)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	category, current := it.category, it.current
	s.mu.Unlock()
	return s.registry.FormatsFor(category, current), nil
}

// Result returns the result handle of a done item.
func (s *Store) Result(id int64) (*ResultHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	done, ok := it.state.(doneState)
	if !ok {
		return nil, invalidTransition(id, it.state.status(), "read result")
	}
	return done.result, nil
}

// Wait blocks until the item leaves converting and returns its snapshot.
// Items that are not converting return immediately.
func (s *Store) Wait(ctx context.Context, id int64) (Snapshot, error) {
	s.mu.Lock()
	it, err := s.lookup(id)
	if err != nil {
		s.mu.Unlock()
		return Snapshot{}, err
	}
	conv, ok := it.state.(convertingState)
	if !ok {
		snap := it.snapshot()
		s.mu.Unlock()
		return snap, nil
	}
	s.mu.Unlock()

	select {
	case <-conv.settled:
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
	return s.Get(id)
}

// Drain waits for every background conversion to return, including ones
// whose items were removed.
func (s *Store) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Store) lookup(id int64) (*item, error) {
	it, ok := s.items[id]
	if !ok {
		return nil, fmt.Errorf("item %d: %w", id, services.ErrNotFound)
	}
	return it, nil
}

func (s *Store) emit(id int64, from, to Status) {
	if from != to {
		s.metrics.MoveItem(string(from), string(to))
	}
	if s.observer != nil {
		s.observer(Event{ItemID: id, From: from, To: to})
	}
}

func invalidTransition(id int64, from Status, op string) error {
	return fmt.Errorf("item %d: cannot %s while %s: %w", id, op, from, services.ErrInvalidTransition)
}

// failureMessage is the diagnostic recorded on an errored item. It is never
// empty.
func failureMessage(err error) string {
	if msg := strings.TrimSpace(err.Error()); msg != "" {
		return msg
	}
	if kind := services.Kind(err); kind != "Unknown" {
		return kind
	}
	return "conversion failed"
}
