package viewer

import (
	"context"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Carmen-Shannon/oxy-view/engine/asset"
	"github.com/Carmen-Shannon/oxy-view/engine/camera"
	"github.com/Carmen-Shannon/oxy-view/engine/fitter"
	"github.com/Carmen-Shannon/oxy-view/engine/loader"
	"github.com/Carmen-Shannon/oxy-view/engine/session"
)

// SceneElement is an Element backed by a loader. It owns a private session and
// camera that the engine renders as its own surface, frames every model it
// loads and reports the outcome as an event.
type SceneElement struct {
	mu *sync.Mutex

	loader  loader.Loader
	session *session.Session
	camera  camera.Camera
	margin  float32

	source  string
	cancel  context.CancelFunc
	subs    map[int]func(Event)
	nextSub int
}

var _ Element = &SceneElement{}

// NewSceneElement creates an element that loads through l and frames with cam.
//
// Parameters:
//   - name: the element's surface name
//   - l: the loader used for every source
//   - cam: the element's camera
//   - margin: fit margin passed to fitter.Fit
//
// Returns:
//   - *SceneElement: the element
func NewSceneElement(name string, l loader.Loader, cam camera.Camera, margin float32) *SceneElement {
	return &SceneElement{
		mu:      &sync.Mutex{},
		loader:  l,
		session: session.New(name),
		camera:  cam,
		margin:  margin,
		subs:    make(map[int]func(Event)),
	}
}

func (e *SceneElement) Session() *session.Session { return e.session }

func (e *SceneElement) Camera() camera.Camera { return e.camera }

func (e *SceneElement) Source() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.source
}

// SetSource cancels any load in flight and starts loading src.
func (e *SceneElement) SetSource(src string) {
	ctx, cancel := context.WithCancel(context.Background())
	e.mu.Lock()
	if e.cancel != nil {
		e.cancel()
	}
	e.source = src
	e.cancel = cancel
	e.mu.Unlock()

	tok := e.session.Begin()
	go e.load(ctx, tok, src)
}

func (e *SceneElement) load(ctx context.Context, tok session.Token, src string) {
	obj, err := e.loader.Load(ctx, parseSource(src))
	if err != nil {
		if e.session.IsCurrent(tok) {
			e.emit(Event{Type: EventError, Source: src, Err: err})
		}
		return
	}
	if !e.session.ReplaceIfCurrent(tok, obj) {
		return
	}
	fitter.AutoScale(obj, fitter.DefaultUnit)
	fitter.Fit(obj, e.camera, e.margin)
	e.emit(Event{Type: EventLoad, Source: src})
}

func (e *SceneElement) Subscribe(fn func(Event)) func() {
	e.mu.Lock()
	id := e.nextSub
	e.nextSub++
	e.subs[id] = fn
	e.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Lock()
			delete(e.subs, id)
			e.mu.Unlock()
		})
	}
}

func (e *SceneElement) emit(ev Event) {
	e.mu.Lock()
	fns := make([]func(Event), 0, len(e.subs))
	for _, fn := range e.subs {
		fns = append(fns, fn)
	}
	e.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

func (e *SceneElement) ResetTurntable() {
	e.camera.Controller().ResetTurntable()
}

// Close cancels any load in flight and disposes everything the element shows.
func (e *SceneElement) Close() {
	e.mu.Lock()
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	e.mu.Unlock()
	e.session.Teardown()
}

// parseSource splits a raw viewer source back into a reference the loader
// understands. Declarative sources carry no fallbacks.
func parseSource(src string) asset.Ref {
	raw, query, _ := strings.Cut(src, "?")
	var base, name string
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		base, name = path.Split(raw)
	} else {
		base, name = filepath.Split(raw)
	}
	return asset.NewRef(name,
		asset.WithBase(base),
		asset.WithCacheQuery(query),
		asset.WithFallbacks(),
	)
}
