package selector

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-view/common"
	"github.com/Carmen-Shannon/oxy-view/engine/asset"
	"github.com/Carmen-Shannon/oxy-view/engine/camera"
	"github.com/Carmen-Shannon/oxy-view/engine/node"
	"github.com/Carmen-Shannon/oxy-view/engine/orchestrator"
	"github.com/Carmen-Shannon/oxy-view/engine/session"
	"github.com/Carmen-Shannon/oxy-view/engine/viewer"
	"github.com/go-gl/mathgl/mgl32"
)

// stubElement answers load or error for sources it is told about and stays
// silent otherwise.
type stubElement struct {
	mu     sync.Mutex
	fail   bool
	silent bool
	source string
	subs   []func(viewer.Event)
	resets int
}

func (e *stubElement) SetSource(src string) {
	e.mu.Lock()
	e.source = src
	subs := append(([]func(viewer.Event))(nil), e.subs...)
	fail, silent := e.fail, e.silent
	e.mu.Unlock()
	if silent {
		return
	}
	ev := viewer.Event{Type: viewer.EventLoad, Source: src}
	if fail {
		ev = viewer.Event{Type: viewer.EventError, Source: src, Err: errors.New("element broke")}
	}
	for _, fn := range subs {
		fn(ev)
	}
}

func (e *stubElement) Source() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.source
}

func (e *stubElement) Subscribe(fn func(viewer.Event)) func() {
	e.mu.Lock()
	e.subs = append(e.subs, fn)
	idx := len(e.subs) - 1
	e.mu.Unlock()
	return func() {
		e.mu.Lock()
		e.subs[idx] = func(viewer.Event) {}
		e.mu.Unlock()
	}
}

func (e *stubElement) ResetTurntable() {
	e.mu.Lock()
	e.resets++
	e.mu.Unlock()
}

type mapLoader struct {
	mu    sync.Mutex
	fail  map[string]bool
	calls int
	gate  chan struct{}
}

func (l *mapLoader) Load(ctx context.Context, ref asset.Ref) (*node.Node, error) {
	l.mu.Lock()
	l.calls++
	gate := l.gate
	l.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if l.fail[ref.Name()] {
		return nil, errors.New("missing " + ref.Name())
	}
	return node.NewMesh(ref.Name(), &node.Geometry{Positions: []mgl32.Vec3{{0, 0, 0}, {1, 1, 1}}}), nil
}

type outcomeRecorder struct {
	mu       sync.Mutex
	outcomes []string
}

func (r *outcomeRecorder) ObserveProbe(bool) {}
func (r *outcomeRecorder) ObserveRetry()     {}
func (r *outcomeRecorder) ObserveLoad(backend, outcome string, _ time.Duration) {
	r.mu.Lock()
	r.outcomes = append(r.outcomes, backend+":"+outcome)
	r.mu.Unlock()
}

func manual(l orchestrator.Loader) *orchestrator.Orchestrator {
	return orchestrator.New(session.New("main"), l, camera.NewCamera())
}

func TestDeclarativeSuccessActivatesAndResetsTurntable(t *testing.T) {
	el := &stubElement{}
	v := viewer.New(el, viewer.WithTimeout(time.Second))
	l := &mapLoader{}
	m := manual(l)
	var changes []string
	s := New([]string{"headset0.glb", "self-portrait2.glb"}, m,
		WithDeclarative("headset0.glb", v),
		WithChangeListener(func(a string) { changes = append(changes, a) }),
	)

	if err := s.Show(context.Background(), "headset0.glb"); err != nil {
		t.Fatalf("Show failed: %v", err)
	}
	if s.Active() != "headset0.glb" || s.Visible() != v {
		t.Fatalf("expected declarative viewer active, got %q %v", s.Active(), s.Visible())
	}
	if el.resets != 1 {
		t.Fatalf("expected turntable reset once, got %d", el.resets)
	}
	if l.calls != 0 {
		t.Fatal("manual loader must not run when the element succeeds")
	}
	if m.Session().Status() != "Showing: headset0.glb" {
		t.Fatalf("unexpected status %q", m.Session().Status())
	}
	if len(changes) != 1 || changes[0] != "headset0.glb" {
		t.Fatalf("unexpected UI changes %v", changes)
	}
}

func TestDeclarativeFailureFallsThroughToManual(t *testing.T) {
	el := &stubElement{fail: true}
	l := &mapLoader{}
	m := manual(l)
	rec := &outcomeRecorder{}
	s := New([]string{"headset0.glb"}, m,
		WithDeclarative("headset0.glb", viewer.New(el)),
		WithObserver(rec),
	)

	if err := s.Show(context.Background(), "headset0.glb"); err != nil {
		t.Fatalf("Show failed: %v", err)
	}
	if s.Visible() != nil {
		t.Fatal("expected the manual scene visible")
	}
	if m.Session().Model() == nil {
		t.Fatal("expected the manual scene to hold the model")
	}
	if s.Active() != "headset0.glb" {
		t.Fatalf("expected active headset0.glb, got %q", s.Active())
	}
	if len(rec.outcomes) != 1 || rec.outcomes[0] != "declarative:error" {
		t.Fatalf("unexpected outcomes %v", rec.outcomes)
	}
}

func TestDeclarativeTimeoutWithoutManual(t *testing.T) {
	el := &stubElement{silent: true}
	var status string
	s := New([]string{"headset0.glb"}, nil,
		WithDeclarative("headset0.glb", viewer.New(el, viewer.WithTimeout(25*time.Millisecond))),
		WithStatusSink(func(msg string) { status = msg }),
	)

	start := time.Now()
	err := s.Show(context.Background(), "headset0.glb")
	if !errors.Is(err, orchestrator.ErrLoadTimeout) {
		t.Fatalf("expected ErrLoadTimeout, got %v", err)
	}
	if time.Since(start) < 25*time.Millisecond {
		t.Fatal("returned before the ceiling")
	}
	if status != "Timed out loading headset0.glb" {
		t.Fatalf("unexpected status %q", status)
	}
}

func TestManualFailureClearsIndicator(t *testing.T) {
	l := &mapLoader{fail: map[string]bool{"broken.gltf": true}}
	m := manual(l)
	s := New([]string{"ok.gltf", "broken.gltf"}, m)

	if err := s.Show(context.Background(), "ok.gltf"); err != nil {
		t.Fatalf("Show failed: %v", err)
	}
	if err := s.Show(context.Background(), "broken.gltf"); err == nil {
		t.Fatal("expected failure")
	}
	if s.Active() != "" {
		t.Fatalf("expected indicator cleared, got %q", s.Active())
	}
	if !strings.HasPrefix(m.Session().Status(), "Failed to load broken.gltf") {
		t.Fatalf("unexpected status %q", m.Session().Status())
	}
}

func TestIndicatorMovesOnlyAfterSuccess(t *testing.T) {
	l := &mapLoader{}
	m := manual(l)
	s := New([]string{"a.gltf", "b.gltf"}, m)
	if err := s.Show(context.Background(), "a.gltf"); err != nil {
		t.Fatal(err)
	}

	l.mu.Lock()
	l.gate = make(chan struct{})
	gate := l.gate
	l.mu.Unlock()

	done := make(chan error, 1)
	go func() { done <- s.Show(context.Background(), "b.gltf") }()
	time.Sleep(20 * time.Millisecond)
	if s.Active() != "a.gltf" {
		t.Fatalf("indicator moved before the load finished: %q", s.Active())
	}
	close(gate)
	if err := <-done; err != nil {
		t.Fatal(err)
	}
	if s.Active() != "b.gltf" {
		t.Fatalf("expected b.gltf active, got %q", s.Active())
	}
}

func TestInitialPrecedence(t *testing.T) {
	if got := New(nil, nil).Initial(); got != DefaultAsset {
		t.Fatalf("expected %s, got %s", DefaultAsset, got)
	}
	if got := New(nil, nil, WithActivePreview("p.glb")).Initial(); got != "p.glb" {
		t.Fatalf("expected active preview, got %s", got)
	}
	if got := New(nil, nil, WithActivePreview("p.glb"), WithActive("b.glb")).Initial(); got != "b.glb" {
		t.Fatalf("expected active button, got %s", got)
	}
}

func TestKeySelection(t *testing.T) {
	l := &mapLoader{}
	s := New([]string{"a.glb", "b.glb"}, nil,
		WithPreviews(NewPreview("a.glb", l), NewPreview("b.glb", l)),
	)

	if name, ok := s.Key(common.Key1 + 1); !ok || name != "b.glb" {
		t.Fatalf("digit 2: got %q %v", name, ok)
	}
	if _, ok := s.Key(common.Key9); ok {
		t.Fatal("digit 9 has no asset")
	}
	if _, ok := s.Key(common.KeyEnter); ok {
		t.Fatal("Enter without focus must select nothing")
	}
	s.Key(common.KeyTab)
	s.Key(common.KeyTab)
	if s.Focused() != 1 {
		t.Fatalf("expected focus 1, got %d", s.Focused())
	}
	if name, ok := s.Key(common.KeySpace); !ok || name != "b.glb" {
		t.Fatalf("space: got %q %v", name, ok)
	}
	if name, ok := s.Click(0); !ok || name != "a.glb" || s.Focused() != 0 {
		t.Fatalf("click: got %q %v focus %d", name, ok, s.Focused())
	}
}

func TestLoadPreviewsInParallel(t *testing.T) {
	l := &mapLoader{fail: map[string]bool{"broken.glb": true, "broken.gltf": true}}
	previews := []*Preview{
		NewPreview("a.glb", l),
		NewPreview("broken.glb", l),
		NewPreview("c.gltf", l),
	}
	pool := worker.NewDynamicWorkerPool(2, 16, time.Second)

	results := LoadPreviews(context.Background(), pool, RefsUnder("assets", false), previews...)
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if !results[0].OK() || !results[2].OK() {
		t.Fatalf("expected healthy previews loaded: %v %v", results[0].Err, results[2].Err)
	}
	if results[1].OK() || results[1].Retries != 1 {
		t.Fatalf("expected broken preview failed after its fallback, got %s/%d", results[1].State, results[1].Retries)
	}
	if previews[1].Session().Placeholder() == nil {
		t.Fatal("failed preview must keep its placeholder")
	}
	if len(previews[0].Session().Helpers()) != 0 {
		t.Fatal("previews draw no helpers")
	}
}
