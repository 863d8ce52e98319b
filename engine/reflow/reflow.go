// Package reflow keeps a rendering surface's drawing buffer, camera aspect and
// framing in step with its container size.
package reflow

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-view/engine/fitter"
	"github.com/Carmen-Shannon/oxy-view/engine/node"
	"github.com/rs/zerolog"
)

// zlog is the package logger. It discards output until SetLogger is called.
var zlog = zerolog.Nop()

// SetLogger installs a structured logger for reflow diagnostics.
func SetLogger(l zerolog.Logger) { zlog = l }

// Surface reports the current container size in pixels. window.Window satisfies it.
type Surface interface {
	Width() int
	Height() int
}

// Resizer reallocates the drawing buffer. The renderer satisfies it.
type Resizer interface {
	Resize(width, height int)
}

// Camera is the part of a camera that reflow adjusts.
type Camera interface {
	fitter.Camera
	SetAspect(aspect float32)
}

// ModelSource returns the currently attached model, or nil. session.Session satisfies it.
type ModelSource interface {
	Model() *node.Node
}

// Controller reflows one surface.
type Controller struct {
	mu *sync.Mutex

	surface Surface
	resizer Resizer
	camera  Camera
	models  ModelSource
	margin  float32

	width  int
	height int
}

// New creates a reflow controller.
//
// Parameters:
//   - surface: the container whose size drives the reflow
//   - cam: the camera whose aspect follows the container
//   - models: source of the model to re-fit; may be nil
//   - options: functional options
//
// Returns:
//   - *Controller: the controller
func New(surface Surface, cam Camera, models ModelSource, options ...ControllerOption) *Controller {
	c := &Controller{
		mu:      &sync.Mutex{},
		surface: surface,
		camera:  cam,
		models:  models,
		margin:  fitter.DefaultMargin,
	}
	for _, option := range options {
		option(c)
	}
	return c
}

// Start reflows once immediately so the first frame uses the real size.
func (c *Controller) Start() {
	c.Reflow()
}

// Handle is the resize callback. It reflows to the reported size.
func (c *Controller) Handle(width, height int) {
	c.reflowTo(width, height)
}

// Reflow reads the surface size and applies it. A zero dimension means the
// surface is hidden or collapsed and nothing is changed.
func (c *Controller) Reflow() {
	if c.surface == nil {
		return
	}
	c.reflowTo(c.surface.Width(), c.surface.Height())
}

// Size returns the last applied size.
func (c *Controller) Size() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.width, c.height
}

func (c *Controller) reflowTo(width, height int) {
	if width <= 0 || height <= 0 {
		zlog.Debug().Int("width", width).Int("height", height).Msg("skipping reflow of empty surface")
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.resizer != nil && (width != c.width || height != c.height) {
		c.resizer.Resize(width, height)
	}
	c.width, c.height = width, height
	c.camera.SetAspect(float32(width) / float32(height))

	if c.models == nil {
		return
	}
	if obj := c.models.Model(); obj != nil {
		fitter.Fit(obj, c.camera, c.margin)
	}
}
