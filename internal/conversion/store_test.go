package conversion_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"filewell/internal/conversion"
	"filewell/internal/dispatch"
	"filewell/internal/metrics"
	"filewell/internal/services"
)

// gateConverter blocks each conversion until released and records calls.
type gateConverter struct {
	calls   atomic.Int32
	release chan struct{}
	result  dispatch.Result
	err     error
}

func newGate() *gateConverter {
	return &gateConverter{
		release: make(chan struct{}),
		result:  dispatch.Result{Data: []byte("out"), ContentType: "image/jpeg"},
	}
}

func (g *gateConverter) Convert(ctx context.Context, src dispatch.Source, target string) (dispatch.Result, error) {
	g.calls.Add(1)
	<-g.release
	return g.result, g.err
}

func waitSettled(t *testing.T, s *conversion.Store, id int64) conversion.Snapshot {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	snap, err := s.Wait(ctx, id)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	return snap
}

func checkInvariants(t *testing.T, snap conversion.Snapshot) {
	t.Helper()
	switch snap.Status {
	case conversion.StatusIdle, conversion.StatusConverting, conversion.StatusDone, conversion.StatusError:
	default:
		t.Fatalf("invalid status %q", snap.Status)
	}
	hasResult := snap.ResultType != "" || snap.ResultSize > 0
	if hasResult != (snap.Status == conversion.StatusDone) {
		t.Fatalf("result set=%v with status %s", hasResult, snap.Status)
	}
	if (snap.LastError != "") != (snap.Status == conversion.StatusError) {
		t.Fatalf("error set=%v with status %s", snap.LastError != "", snap.Status)
	}
	if snap.SelectedFormat != "" && snap.Status != conversion.StatusIdle {
		t.Fatalf("selection present in %s", snap.Status)
	}
}

var pngSource = dispatch.Source{Name: "a.png", ContentType: "image/png", Data: []byte("png")}

func TestAdmitStartsIdle(t *testing.T) {
	s := conversion.NewStore(newGate())
	first := s.Admit(pngSource)
	second := s.Admit(pngSource)
	if first.Status != conversion.StatusIdle || first.SelectedFormat != "" {
		t.Fatalf("unexpected initial state %+v", first)
	}
	if second.ID <= first.ID {
		t.Fatalf("ids must increase: %d then %d", first.ID, second.ID)
	}
	if first.Category != "image" || first.CurrentFormat != "png" {
		t.Fatalf("unexpected classification %+v", first)
	}
	checkInvariants(t, first)
}

func TestStartIsNoopWithoutSelection(t *testing.T) {
	g := newGate()
	s := conversion.NewStore(g)
	snap := s.Admit(pngSource)

	started, err := s.Start(snap.ID)
	if err != nil || started {
		t.Fatalf("expected no-op start, got started=%v err=%v", started, err)
	}
	got, _ := s.Get(snap.ID)
	if got.Status != conversion.StatusIdle || g.calls.Load() != 0 {
		t.Fatalf("start without selection changed state: %+v calls=%d", got, g.calls.Load())
	}
}

func TestStartIsNoopWhenNotIdle(t *testing.T) {
	g := newGate()
	s := conversion.NewStore(g)
	snap := s.Admit(pngSource)
	if err := s.Select(snap.ID, "jpeg"); err != nil {
		t.Fatalf("Select: %v", err)
	}
	if ok, err := s.Start(snap.ID); !ok || err != nil {
		t.Fatalf("Start: %v %v", ok, err)
	}
	if ok, err := s.Start(snap.ID); ok || err != nil {
		t.Fatalf("second Start while converting should be a no-op: %v %v", ok, err)
	}
	close(g.release)
	done := waitSettled(t, s, snap.ID)
	if done.Status != conversion.StatusDone {
		t.Fatalf("expected done, got %+v", done)
	}
	if ok, _ := s.Start(snap.ID); ok {
		t.Fatal("Start on a done item should be a no-op")
	}
	if g.calls.Load() != 1 {
		t.Fatalf("expected one conversion, got %d", g.calls.Load())
	}
}

func TestConcurrentStartRecordsOneAttempt(t *testing.T) {
	g := newGate()
	var events []conversion.Event
	var mu sync.Mutex
	s := conversion.NewStore(g, conversion.WithObserver(func(e conversion.Event) {
		mu.Lock()
		events = append(events, e)
		mu.Unlock()
	}))
	snap := s.Admit(pngSource)
	_ = s.Select(snap.ID, "jpeg")

	var started atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := s.Start(snap.ID); ok {
				started.Add(1)
			}
		}()
	}
	wg.Wait()
	close(g.release)
	waitSettled(t, s, snap.ID)
	if err := s.Drain(context.Background()); err != nil {
		t.Fatalf("Drain: %v", err)
	}

	if started.Load() != 1 || g.calls.Load() != 1 {
		t.Fatalf("expected one attempt, started=%d calls=%d", started.Load(), g.calls.Load())
	}
	mu.Lock()
	defer mu.Unlock()
	settles := 0
	for _, e := range events {
		if e.From == conversion.StatusConverting {
			settles++
		}
	}
	if settles != 1 {
		t.Fatalf("expected exactly one settle event, got %d in %v", settles, events)
	}
}

func TestFailureMovesToErrorAndReselectClears(t *testing.T) {
	g := newGate()
	g.err = services.Wrap(services.ErrEncodeFailed, "dispatch", "execute", "failed to convert a.wav", errors.New("Unknown encoder"))
	close(g.release)
	s := conversion.NewStore(g)
	snap := s.Admit(dispatch.Source{Name: "a.wav", ContentType: "audio/wav"})
	_ = s.Select(snap.ID, "ogg")
	_, _ = s.Start(snap.ID)

	failed := waitSettled(t, s, snap.ID)
	checkInvariants(t, failed)
	if failed.Status != conversion.StatusError || failed.ErrorKind != "EncodeFailed" {
		t.Fatalf("unexpected failure snapshot %+v", failed)
	}
	if _, err := s.Result(snap.ID); !errors.Is(err, services.ErrInvalidTransition) {
		t.Fatalf("expected no result for failed item, got %v", err)
	}

	if err := s.Reselect(snap.ID); err != nil {
		t.Fatalf("Reselect: %v", err)
	}
	idle, _ := s.Get(snap.ID)
	checkInvariants(t, idle)
	if idle.Status != conversion.StatusIdle || idle.LastError != "" || idle.SelectedFormat != "" {
		t.Fatalf("expected clean idle state, got %+v", idle)
	}
}

func TestBlankFailureStillRecordsDiagnostic(t *testing.T) {
	g := newGate()
	g.err = errors.New("")
	close(g.release)
	s := conversion.NewStore(g)
	snap := s.Admit(dispatch.Source{Name: "a.wav", ContentType: "audio/wav"})
	_ = s.Select(snap.ID, "ogg")
	_, _ = s.Start(snap.ID)

	failed := waitSettled(t, s, snap.ID)
	checkInvariants(t, failed)
	if failed.Status != conversion.StatusError || failed.LastError != "conversion failed" {
		t.Fatalf("expected fallback diagnostic, got %+v", failed)
	}
	if failed.ErrorKind != "Unknown" {
		t.Fatalf("expected Unknown kind, got %q", failed.ErrorKind)
	}
}

func TestReselectRevokesResult(t *testing.T) {
	g := newGate()
	close(g.release)
	s := conversion.NewStore(g)
	snap := s.Admit(pngSource)
	_ = s.Select(snap.ID, "jpeg")
	_, _ = s.Start(snap.ID)
	done := waitSettled(t, s, snap.ID)
	checkInvariants(t, done)

	handle, err := s.Result(snap.ID)
	if err != nil {
		t.Fatalf("Result: %v", err)
	}
	if data, err := handle.Bytes(); err != nil || string(data) != "out" {
		t.Fatalf("Bytes = %q, %v", data, err)
	}
	if err := s.Reselect(snap.ID); err != nil {
		t.Fatalf("Reselect: %v", err)
	}
	if _, err := handle.Bytes(); !errors.Is(err, services.ErrRevoked) {
		t.Fatalf("expected revoked handle, got %v", err)
	}
}

func TestReselectRejectedWhileIdleOrConverting(t *testing.T) {
	g := newGate()
	s := conversion.NewStore(g)
	snap := s.Admit(pngSource)
	if err := s.Reselect(snap.ID); !errors.Is(err, services.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition for idle, got %v", err)
	}
	_ = s.Select(snap.ID, "webp")
	_, _ = s.Start(snap.ID)
	if err := s.Reselect(snap.ID); !errors.Is(err, services.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition while converting, got %v", err)
	}
	if err := s.Select(snap.ID, "png"); !errors.Is(err, services.ErrInvalidTransition) {
		t.Fatalf("expected select to be rejected while converting, got %v", err)
	}
	close(g.release)
	waitSettled(t, s, snap.ID)
}

func TestRemoveWhileConvertingDiscardsResult(t *testing.T) {
	g := newGate()
	var events []conversion.Event
	var mu sync.Mutex
	s := conversion.NewStore(g, conversion.WithObserver(func(e conversion.Event) {
		mu.Lock()
		events = append(events, e)
		mu.Unlock()
	}))
	snap := s.Admit(pngSource)
	_ = s.Select(snap.ID, "jpeg")
	_, _ = s.Start(snap.ID)

	if err := s.Remove(snap.ID); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := s.Wait(context.Background(), snap.ID); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after removal, got %v", err)
	}
	close(g.release)
	if err := s.Drain(context.Background()); err != nil {
		t.Fatalf("Drain: %v", err)
	}

	if _, err := s.Get(snap.ID); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("removed item reappeared: %v", err)
	}
	if len(s.List()) != 0 {
		t.Fatalf("expected empty store, got %v", s.List())
	}
	mu.Lock()
	defer mu.Unlock()
	last := events[len(events)-1]
	if last.To != "" || last.From != conversion.StatusConverting {
		t.Fatalf("expected removal to be the final event, got %+v", last)
	}
}

func TestRemoveReleasesDoneResult(t *testing.T) {
	g := newGate()
	close(g.release)
	s := conversion.NewStore(g)
	snap := s.Admit(pngSource)
	_ = s.Select(snap.ID, "jpeg")
	_, _ = s.Start(snap.ID)
	waitSettled(t, s, snap.ID)
	handle, _ := s.Result(snap.ID)
	if err := s.Remove(snap.ID); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if !handle.Released() {
		t.Fatal("expected result released on removal")
	}
	if err := s.Remove(snap.ID); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second removal, got %v", err)
	}
}

func TestAvailableFormatsAndListOrder(t *testing.T) {
	s := conversion.NewStore(newGate())
	text := s.Admit(dispatch.Source{Name: "notes.txt", ContentType: "text/plain"})
	img := s.Admit(pngSource)

	targets, err := s.AvailableFormats(text.ID)
	if err != nil || len(targets) != 0 {
		t.Fatalf("expected no targets for text, got %v err=%v", targets, err)
	}
	targets, _ = s.AvailableFormats(img.ID)
	for _, d := range targets {
		if d.Key == "png" {
			t.Fatal("current format offered as a target")
		}
	}
	list := s.List()
	if len(list) != 2 || list[0].ID != text.ID || list[1].ID != img.ID {
		t.Fatalf("unexpected list order %+v", list)
	}
	if _, err := s.AvailableFormats(999); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestItemsGaugeFollowsTransitions(t *testing.T) {
	g := newGate()
	registry := prometheus.NewRegistry()
	m := metrics.New(registry)
	s := conversion.NewStore(g, conversion.WithMetrics(m))

	a := s.Admit(pngSource)
	s.Admit(pngSource)
	_ = s.Select(a.ID, "gif")
	_, _ = s.Start(a.ID)
	if got := testutil.ToFloat64(m.Items.WithLabelValues("converting")); got != 1 {
		t.Fatalf("expected 1 converting, got %v", got)
	}
	close(g.release)
	waitSettled(t, s, a.ID)
	if got := testutil.ToFloat64(m.Items.WithLabelValues("done")); got != 1 {
		t.Fatalf("expected 1 done, got %v", got)
	}
	if got := testutil.ToFloat64(m.Items.WithLabelValues("idle")); got != 1 {
		t.Fatalf("expected 1 idle, got %v", got)
	}
}

func TestWaitHonoursContext(t *testing.T) {
	g := newGate()
	s := conversion.NewStore(g)
	snap := s.Admit(pngSource)
	_ = s.Select(snap.ID, "jpeg")
	_, _ = s.Start(snap.ID)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := s.Wait(ctx, snap.ID); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline, got %v", err)
	}
	close(g.release)
	waitSettled(t, s, snap.ID)
}
