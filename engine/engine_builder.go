package engine

import (
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-view/engine/profiler"
	"github.com/Carmen-Shannon/oxy-view/engine/renderer"
	"github.com/Carmen-Shannon/oxy-view/engine/window"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithProfiling enables or disables performance profiling output.
//
// Parameters:
//   - enabled: if true, enables performance profiling
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled = enabled
	}
}

// WithTickRate sets the engine tick rate in frames per second.
// Turntables and placeholder spins advance at this rate.
// Values <= 0 will be treated as the default (60Hz).
//
// Parameters:
//   - fps: target ticks per second (default 60)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithTickRate(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps <= 0 {
			fps = 60.0
		}
		e.engineTickRate = time.Duration(float64(time.Second) / fps)
	}
}

// WithProfilerInterval sets how often frame statistics are logged when profiling is enabled.
func WithProfilerInterval(interval time.Duration) EngineBuilderOption {
	return func(e *engine) {
		e.profiler = profiler.NewProfiler(interval)
	}
}

// WithWindow sets a custom configured window for the engine to use rather than allowing the engine
// to create and manage one internally.
//
// Parameters:
//   - w: a pre-configured Window instance
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithWindow(w window.Window) EngineBuilderOption {
	return func(e *engine) {
		e.window = w
	}
}

// WithRenderer sets the renderer that draws the registered surfaces each frame.
//
// Parameters:
//   - r: a renderer bound to the engine's window
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderer(r renderer.Renderer) EngineBuilderOption {
	return func(e *engine) {
		e.renderer = r
	}
}

// WithWorkerPool sets the pool that animates surfaces in parallel on each tick.
// Without a pool surfaces are animated on the tick goroutine.
func WithWorkerPool(pool worker.DynamicWorkerPool) EngineBuilderOption {
	return func(e *engine) {
		e.pool = pool
	}
}

// WithSurface registers a surface at the given z-index key during engine construction.
// Surfaces are drawn in ascending key order during the render loop.
//
// Parameters:
//   - key: the z-index determining draw order (lower draws first)
//   - s: the Surface to register
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithSurface(key int, s Surface) EngineBuilderOption {
	return func(e *engine) {
		e.surfaces[key] = s
	}
}

// WithResizeHandler adds a function called with the new framebuffer size after
// tile cameras have been re-aimed.
func WithResizeHandler(fn func(width, height int)) EngineBuilderOption {
	return func(e *engine) {
		e.resizeHandlers = append(e.resizeHandlers, fn)
	}
}

// WithRenderFrameLimit sets an optional render frame rate cap in frames per second.
// Pass 0 to uncap the render loop (default).
//
// Parameters:
//   - fps: maximum render frames per second (0 = uncapped)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderFrameLimit(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps <= 0 {
			e.renderFrameLimit = 0
			return
		}
		e.renderFrameLimit = time.Duration(float64(time.Second) / fps)
	}
}
