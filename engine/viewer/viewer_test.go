package viewer

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-view/engine/asset"
	"github.com/Carmen-Shannon/oxy-view/engine/camera"
	"github.com/Carmen-Shannon/oxy-view/engine/loader"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

// fakeElement answers each SetSource with whatever respond returns. A nil
// response means the element never answers.
type fakeElement struct {
	mu      sync.Mutex
	source  string
	subs    map[int]func(Event)
	next    int
	resets  int
	respond func(src string) *Event
}

func newFakeElement(respond func(src string) *Event) *fakeElement {
	return &fakeElement{subs: make(map[int]func(Event)), respond: respond}
}

func (f *fakeElement) SetSource(src string) {
	f.mu.Lock()
	f.source = src
	f.mu.Unlock()
	if ev := f.respond(src); ev != nil {
		go f.emit(*ev)
	}
}

func (f *fakeElement) Source() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.source
}

func (f *fakeElement) Subscribe(fn func(Event)) func() {
	f.mu.Lock()
	id := f.next
	f.next++
	f.subs[id] = fn
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		delete(f.subs, id)
		f.mu.Unlock()
	}
}

func (f *fakeElement) ResetTurntable() {
	f.mu.Lock()
	f.resets++
	f.mu.Unlock()
}

func (f *fakeElement) subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

func (f *fakeElement) emit(ev Event) {
	f.mu.Lock()
	var fns []func(Event)
	for _, fn := range f.subs {
		fns = append(fns, fn)
	}
	f.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

func TestLoadSucceedsOnLoadEvent(t *testing.T) {
	el := newFakeElement(func(src string) *Event { return &Event{Type: EventLoad, Source: src} })
	v := New(el, WithTimeout(time.Second))

	ref := asset.NewRef("my model.glb", asset.WithBase("assets"))
	if err := v.Load(context.Background(), ref); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if el.Source() != "assets/my model.glb" {
		t.Fatalf("expected raw source, got %q", el.Source())
	}
	if el.subscribers() != 0 {
		t.Fatalf("expected subscription removed, %d remain", el.subscribers())
	}
}

func TestLoadReportsErrorEvent(t *testing.T) {
	cause := errors.New("bad file")
	el := newFakeElement(func(src string) *Event { return &Event{Type: EventError, Source: src, Err: cause} })

	err := New(el).Load(context.Background(), asset.NewRef("a.glb"))
	if !errors.Is(err, ErrElement) || !errors.Is(err, cause) {
		t.Fatalf("expected ErrElement wrapping cause, got %v", err)
	}
}

func TestLoadTimesOutWhenElementIsSilent(t *testing.T) {
	el := newFakeElement(func(string) *Event { return nil })
	v := New(el, WithTimeout(30*time.Millisecond))

	start := time.Now()
	err := v.Load(context.Background(), asset.NewRef("a.glb"))
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Fatalf("returned before the ceiling: %s", elapsed)
	}
	if el.subscribers() != 0 {
		t.Fatalf("expected subscription removed after timeout")
	}
}

func TestLoadIgnoresEventsForOtherSources(t *testing.T) {
	el := newFakeElement(func(string) *Event { return &Event{Type: EventLoad, Source: "other.glb"} })
	err := New(el, WithTimeout(30*time.Millisecond)).Load(context.Background(), asset.NewRef("a.glb"))
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestLoadHonorsContext(t *testing.T) {
	el := newFakeElement(func(string) *Event { return nil })
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	err := New(el).Load(ctx, asset.NewRef("a.glb"))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestParseSource(t *testing.T) {
	ref := parseSource("http://example.com/models/my model.glb?v=1")
	if ref.Name() != "my model.glb" || ref.Base() != "http://example.com/models/" || ref.CacheQuery() != "v=1" {
		t.Fatalf("unexpected ref %q %q %q", ref.Name(), ref.Base(), ref.CacheQuery())
	}
	if ref.HasFallback() {
		t.Fatal("declarative sources must not carry fallbacks")
	}
	if got := ref.ManualURL(); got != "http://example.com/models/my%20model.glb?v=1" {
		t.Fatalf("unexpected manual URL %q", got)
	}
}

func TestSceneElementLoadsAndFrames(t *testing.T) {
	dir := t.TempDir()
	doc := gltf.NewDocument()
	pos := modeler.WritePosition(doc, [][3]float32{{0, 0, 0}, {4, 0, 0}, {0, 4, 0}})
	doc.Meshes = []*gltf.Mesh{{Primitives: []*gltf.Primitive{{Attributes: map[string]int{gltf.POSITION: pos}}}}}
	doc.Nodes = []*gltf.Node{{Mesh: gltf.Index(0)}}
	doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, 0)
	if err := gltf.SaveBinary(doc, filepath.Join(dir, "tri.glb")); err != nil {
		t.Fatal(err)
	}

	cam := camera.NewCamera()
	el := NewSceneElement("declarative", loader.NewLoader(loader.BackendTypeGLTF), cam, 1.5)
	defer el.Close()

	v := New(el, WithTimeout(5*time.Second))
	if err := v.Load(context.Background(), asset.NewRef("tri.glb", asset.WithBase(dir))); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if el.Session().Model() == nil {
		t.Fatal("expected the model attached to the element's session")
	}
	if cam.Position().Len() == 0 {
		t.Fatal("expected the camera to be framed")
	}

	err := v.Load(context.Background(), asset.NewRef("missing.glb", asset.WithBase(dir)))
	if !errors.Is(err, ErrElement) || !errors.Is(err, loader.ErrFetch) {
		t.Fatalf("expected ErrElement wrapping loader.ErrFetch, got %v", err)
	}
}
