package engine

import (
	"sort"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-view/engine/camera"
	"github.com/Carmen-Shannon/oxy-view/engine/profiler"
	"github.com/Carmen-Shannon/oxy-view/engine/renderer"
	"github.com/Carmen-Shannon/oxy-view/engine/session"
	"github.com/Carmen-Shannon/oxy-view/engine/window"
	"github.com/rs/zerolog"
)

// zlog is the package logger. It discards output until SetLogger is called.
var zlog = zerolog.Nop()

// SetLogger installs a structured logger for loop events.
func SetLogger(l zerolog.Logger) { zlog = l }

// Surface is one viewer drawn by the engine: the main scene or a preview tile.
type Surface struct {
	// Session holds the objects drawn on the surface.
	Session *session.Session

	// Camera views the session. Its turntable advances every tick.
	Camera camera.Camera

	// Layout places the surface in the window. Nil covers the whole window.
	Layout func(width, height int) renderer.Rect
}

// viewport returns where s draws in a width x height window.
func (s Surface) viewport(width, height int) renderer.Rect {
	if s.Layout == nil {
		return renderer.Rect{}
	}
	return s.Layout(width, height)
}

// engine implements the Engine interface.
// Coordinates engine, render, and window threads.
type engine struct {
	mu *sync.Mutex

	tickRateChannel chan time.Duration // Channel for dynamic tick rate updates

	running bool
	wg      sync.WaitGroup

	quitChannel chan struct{}
	quitOnce    sync.Once // Ensures quitChannel is only closed once

	window   window.Window
	renderer renderer.Renderer
	pool     worker.DynamicWorkerPool

	profiler         *profiler.Profiler
	profilingEnabled bool

	engineTickRate time.Duration
	tickCallback   func(deltaTime float32)
	renderCallback func(deltaTime float32)
	resizeHandlers []func(width, height int)

	surfaces map[int]Surface

	renderFrameLimit time.Duration // minimum frame duration; 0 = uncapped
}

// Engine is the main entry point for the viewer.
// It orchestrates the tick loop, render loop, and window management.
type Engine interface {
	// Window returns the underlying window.
	//
	// Returns:
	//   - window.Window: the window instance
	Window() window.Window

	// Renderer returns the renderer drawing the surfaces.
	//
	// Returns:
	//   - renderer.Renderer: the renderer, or nil when none was configured
	Renderer() renderer.Renderer

	// EnableProfiler enables frame statistics logging.
	EnableProfiler()

	// DisableProfiler disables frame statistics logging.
	DisableProfiler()

	// SetTickRate sets the engine tick rate in ticks per second.
	//
	// Parameters:
	//   - fps: target ticks per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// SetTickCallback registers a function called each engine tick after the
	// surfaces have been animated.
	//
	// Parameters:
	//   - callback: function receiving the delta time in seconds
	SetTickCallback(callback func(deltaTime float32))

	// SetRenderCallback registers a function called after each render frame.
	//
	// Parameters:
	//   - callback: function receiving the delta time in seconds
	SetRenderCallback(callback func(deltaTime float32))

	// SetRenderFrameLimit sets an optional render frame rate cap in frames per second.
	// Pass 0 to uncap the render loop (default).
	//
	// Parameters:
	//   - fps: maximum render frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// AddSurface registers a surface at the given z-index key.
	// Surfaces are drawn in ascending key order, so tiles drawn later overlay earlier ones.
	//
	// Parameters:
	//   - key: the z-index determining draw order (lower draws first)
	//   - s: the Surface to register
	AddSurface(key int, s Surface)

	// RemoveSurface removes the surface at the given z-index key.
	//
	// Parameters:
	//   - key: the z-index of the surface to remove
	RemoveSurface(key int)

	// Surfaces returns a copy of all registered surfaces keyed by z-index.
	//
	// Returns:
	//   - map[int]Surface: a copy of the surfaces map
	Surfaces() map[int]Surface

	// Tick animates every surface by dt seconds: turntables advance, cameras
	// update and placeholders spin. The tick loop calls it at the tick rate.
	//
	// Parameters:
	//   - dt: elapsed time in seconds
	Tick(dt float32)

	// Views returns the renderer views for a window of the given size, in draw order.
	//
	// Parameters:
	//   - width: window framebuffer width
	//   - height: window framebuffer height
	//
	// Returns:
	//   - []renderer.View: one view per surface
	Views(width, height int) []renderer.View

	// Run starts the tick and render loops and the window message loop.
	// Blocks until the window closes.
	Run()

	// Quit signals all engine goroutines to stop.
	// Safe to call multiple times; subsequent calls are no-ops.
	Quit()
}

// NewEngine creates a new Engine instance with the provided options.
//
// Parameters:
//   - options: functional options for engine configuration
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(options ...EngineBuilderOption) Engine {
	e := &engine{
		mu:               &sync.Mutex{},
		tickRateChannel:  make(chan time.Duration, 1),
		quitChannel:      make(chan struct{}),
		surfaces:         make(map[int]Surface),
		profiler:         profiler.NewProfiler(time.Second),
		profilingEnabled: false,
		engineTickRate:   time.Second / 60,
	}

	for _, opt := range options {
		opt(e)
	}

	if e.window != nil {
		e.window.SetResizeCallback(e.handleResize)
	}

	return e
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Renderer() renderer.Renderer {
	return e.renderer
}

// handleResize re-aims tile cameras at their new viewport aspect and forwards
// the size to the registered resize handlers.
func (e *engine) handleResize(width, height int) {
	for _, s := range e.Surfaces() {
		if s.Layout == nil || s.Camera == nil {
			continue
		}
		if a := s.viewport(width, height).Aspect(); a > 0 {
			s.Camera.SetAspect(a)
		}
	}
	for _, fn := range e.resizeHandlers {
		fn(width, height)
	}
}

func (e *engine) Run() {
	e.running = true
	e.handle()
	e.window.ProcessMessages()
	e.signalQuit()
	e.wg.Wait()

	if e.renderer != nil {
		e.renderer.Close()
	}
	if err := e.window.Close(); err != nil {
		zlog.Warn().Err(err).Msg("window close failed")
	}
}

// Quit signals all engine goroutines to stop and shuts down the engine.
func (e *engine) Quit() {
	e.signalQuit()
}

// signalQuit closes the quit channel to signal all goroutines to exit.
// Uses sync.Once to ensure the channel is only closed once.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		e.running = false
		close(e.quitChannel)
		if e.window != nil {
			e.window.RequestClose()
		}
	})
}

// handle launches the engine, render, and quit goroutines.
// Each goroutine is tracked by the engine's WaitGroup.
func (e *engine) handle() {
	e.wg.Add(3)
	go e.handleEngine()
	go e.handleRender()
	go e.handleQuit()
}

// handleEngine runs the fixed-rate engine tick loop in its own goroutine.
// Listens for dynamic rate changes via tickRateChannel and exits when the quit channel is closed.
func (e *engine) handleEngine() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.engineTickRate)
	defer ticker.Stop()

	lastTick := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		case <-ticker.C:
			now := time.Now()
			dt := float32(now.Sub(lastTick).Seconds())
			lastTick = now

			e.Tick(dt)
			if e.tickCallback != nil {
				e.tickCallback(dt)
			}
		case newRate := <-e.tickRateChannel:
			ticker.Reset(newRate)
			e.engineTickRate = newRate
		}
	}
}

func (e *engine) Tick(dt float32) {
	surfaces := e.Surfaces()
	if e.pool == nil {
		for _, s := range surfaces {
			animate(s, dt)
		}
		return
	}

	var wg sync.WaitGroup
	for key, s := range surfaces {
		wg.Add(1)
		surface := s
		e.pool.SubmitTask(worker.Task{
			ID: key,
			Do: func() (any, error) {
				defer wg.Done()
				animate(surface, dt)
				return nil, nil
			},
		})
	}
	wg.Wait()
}

// animate advances one surface's turntable and placeholder spin.
func animate(s Surface, dt float32) {
	if s.Camera != nil {
		if c := s.Camera.Controller(); c != nil {
			c.Advance(dt)
		}
		s.Camera.Update()
	}
	if s.Session != nil {
		s.Session.Step()
	}
}

func (e *engine) Views(width, height int) []renderer.View {
	surfaces := e.Surfaces()
	keys := make([]int, 0, len(surfaces))
	for k := range surfaces {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	views := make([]renderer.View, 0, len(keys))
	for _, k := range keys {
		s := surfaces[k]
		if s.Session == nil || s.Camera == nil {
			continue
		}
		views = append(views, renderer.View{
			Objects:  s.Session.Objects(),
			Camera:   s.Camera,
			Viewport: s.viewport(width, height),
		})
	}
	return views
}

// handleRender runs the uncapped (or frame-limited) render loop in its own goroutine.
// Draws every surface in ascending z-index order within one frame.
// Recovers from panics to avoid crashing the process and signals quit on recovery.
func (e *engine) handleRender() {
	defer e.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			zlog.Error().Interface("panic", r).Msg("render goroutine recovered from panic")
			e.signalQuit()
		}
	}()

	lastRender := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		default:
			now := time.Now()
			dt := float32(now.Sub(lastRender).Seconds())
			lastRender = now

			draws := 0
			if e.renderer != nil {
				width, height := e.window.Width(), e.window.Height()
				if width > 0 && height > 0 {
					if err := e.renderer.Render(e.Views(width, height)...); err != nil {
						zlog.Debug().Err(err).Msg("frame skipped")
					}
					draws = e.renderer.Stats().Draws
				}
			}

			if e.renderCallback != nil {
				e.renderCallback(dt)
			}

			if e.profilingEnabled && e.profiler != nil {
				e.profiler.Tick(draws)
			}

			if e.renderFrameLimit > 0 {
				elapsed := time.Since(lastRender)
				if remaining := e.renderFrameLimit - elapsed; remaining > 0 {
					time.Sleep(remaining)
				}
			}
		}
	}
}

// handleQuit blocks until the quit channel is closed, then decrements the WaitGroup.
func (e *engine) handleQuit() {
	defer e.wg.Done()
	<-e.quitChannel
}

// EnableProfiler enables frame statistics logging.
func (e *engine) EnableProfiler() {
	e.profilingEnabled = true
}

// DisableProfiler disables frame statistics logging.
func (e *engine) DisableProfiler() {
	e.profilingEnabled = false
}

// SetTickRate sets the engine tick rate in ticks per second.
// If the engine is running, the change takes effect immediately.
func (e *engine) SetTickRate(fps float64) {
	if fps <= 0 {
		fps = 60
	}
	newRate := time.Duration(float64(time.Second) / fps)

	if e.running {
		// Replace any pending update so the latest rate wins.
		select {
		case e.tickRateChannel <- newRate:
		default:
			select {
			case <-e.tickRateChannel:
			default:
			}
			e.tickRateChannel <- newRate
		}
	} else {
		e.engineTickRate = newRate
	}
}

func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.tickCallback = callback
}

func (e *engine) SetRenderCallback(callback func(deltaTime float32)) {
	e.renderCallback = callback
}

func (e *engine) SetRenderFrameLimit(fps float64) {
	if fps <= 0 {
		e.renderFrameLimit = 0
		return
	}
	e.renderFrameLimit = time.Duration(float64(time.Second) / fps)
}

func (e *engine) AddSurface(key int, s Surface) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.surfaces[key] = s
}

func (e *engine) RemoveSurface(key int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.surfaces, key)
}

func (e *engine) Surfaces() map[int]Surface {
	e.mu.Lock()
	defer e.mu.Unlock()
	cp := make(map[int]Surface, len(e.surfaces))
	for k, v := range e.surfaces {
		cp[k] = v
	}
	return cp
}
