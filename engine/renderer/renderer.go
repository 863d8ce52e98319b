// Package renderer draws viewer scene graphs with WebGPU. Geometry and textures
// are uploaded on demand and release their GPU allocations through the release
// hooks of the node package, so disposing an object frees its GPU memory.
package renderer

import (
	"errors"
	"sync"

	"github.com/Carmen-Shannon/oxy-view/engine/camera"
	"github.com/Carmen-Shannon/oxy-view/engine/loader"
	"github.com/Carmen-Shannon/oxy-view/engine/node"
	"github.com/Carmen-Shannon/oxy-view/engine/window"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/rs/zerolog"
)

// zlog is the package logger. It discards output until SetLogger is called.
var zlog = zerolog.Nop()

// SetLogger installs a structured logger for upload and frame errors.
func SetLogger(l zerolog.Logger) { zlog = l }

// Rect is a pixel rectangle of the surface with its origin at the top left.
type Rect struct {
	X, Y, W, H int
}

// IsZero reports whether r selects nothing, which View treats as the whole surface.
func (r Rect) IsZero() bool { return r.W <= 0 || r.H <= 0 }

// clip returns r restricted to a width x height surface. A zero rectangle
// becomes the full surface.
func (r Rect) clip(width, height int) Rect {
	if r.IsZero() {
		return Rect{W: width, H: height}
	}
	x0, y0 := max(r.X, 0), max(r.Y, 0)
	x1, y1 := min(r.X+r.W, width), min(r.Y+r.H, height)
	if x1 <= x0 || y1 <= y0 {
		return Rect{W: width, H: height}
	}
	return Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

// Aspect returns W/H, or 0 for an empty rectangle.
func (r Rect) Aspect() float32 {
	if r.IsZero() {
		return 0
	}
	return float32(r.W) / float32(r.H)
}

// View is one camera looking at one set of objects, drawn into a viewport.
type View struct {
	Objects  []*node.Node
	Camera   camera.Camera
	Viewport Rect
}

// FrameStats summarizes one Render call.
type FrameStats struct {
	Draws   int
	Uploads int
}

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu *sync.Mutex

	backendType RendererBackendType
	backend     RendererBackend
	closed      bool
	last        FrameStats

	// Pre-creation config collected from builder options
	forceFallbackAdapter bool
	pendingPresentMode   *PresentMode
	pendingMSAA          *MSAASampleCount
	pendingClearColor    *mgl32.Vec4
}

// Renderer draws scene graphs to a window surface.
//
// Upload satisfies loader.Uploader so assets can be moved onto the GPU as soon
// as they are decoded. Anything still on the CPU at draw time, such as
// placeholders and helpers, is uploaded lazily by Render.
type Renderer interface {
	// Upload moves every geometry and texture under n onto the GPU and attaches
	// their release hooks. Already uploaded resources are skipped.
	//
	// Parameters:
	//   - n: root of the object to upload
	//
	// Returns:
	//   - error: the first upload failure
	Upload(n *node.Node) error

	// Resize reconfigures the surface for a new framebuffer size. Zero sizes are ignored.
	//
	// Parameters:
	//   - width: framebuffer width in pixels
	//   - height: framebuffer height in pixels
	Resize(width, height int)

	// SetPresentMode sets the present mode applied on the next Resize.
	//
	// Parameters:
	//   - mode: the PresentMode to use (VSync or Uncapped)
	SetPresentMode(mode PresentMode)

	// Render draws every view into one frame and presents it.
	//
	// Parameters:
	//   - views: the views to draw, in order; later views draw over earlier ones
	//
	// Returns:
	//   - error: an error if the frame could not be acquired
	Render(views ...View) error

	// Stats returns the statistics of the last Render.
	//
	// Returns:
	//   - FrameStats: draw and upload counts
	Stats() FrameStats

	// Close releases every GPU object. Render fails afterwards.
	Close()
}

var (
	_ Renderer        = &renderer{}
	_ loader.Uploader = &renderer{}
)

// ErrClosed is returned by Render and Upload after Close.
var ErrClosed = errors.New("renderer closed")

// NewRenderer creates a new Renderer drawing into the window's surface.
//
// Parameters:
//   - backendType: the type of rendering backend to use (e.g., WGPU)
//   - window: the window providing the surface descriptor and initial size
//   - options: variadic list of RendererBuilderOption functions to configure the Renderer
//
// Returns:
//   - Renderer: a new instance of Renderer configured with the specified backend and options
func NewRenderer(backendType RendererBackendType, window window.Window, options ...RendererBuilderOption) Renderer {
	r := &renderer{
		mu:          &sync.Mutex{},
		backendType: backendType,
	}

	// Options first so forceFallbackAdapter is known before the adapter request.
	for _, opt := range options {
		opt(r)
	}

	msaa := MSAA4x
	if r.pendingMSAA != nil {
		msaa = *r.pendingMSAA
	}

	switch backendType {
	case BackendTypeWGPU:
		fallthrough
	default:
		r.backend = newWGPURendererBackend(window.SurfaceDescriptor(), r.forceFallbackAdapter, msaa)
	}

	if r.pendingPresentMode != nil {
		r.backend.SetPresentMode(*r.pendingPresentMode)
	}
	if r.pendingClearColor != nil {
		r.backend.SetClearColor(*r.pendingClearColor)
	}

	r.backend.ConfigureSurface(window.Width(), window.Height())
	return r
}

func (r *renderer) Resize(width, height int) {
	r.backend.ConfigureSurface(width, height)
}

func (r *renderer) SetPresentMode(mode PresentMode) {
	r.backend.SetPresentMode(mode)
}

func (r *renderer) Upload(n *node.Node) error {
	r.mu.Lock()
	closed := r.closed
	r.mu.Unlock()
	if closed {
		return ErrClosed
	}

	_, err := r.upload(n)
	return err
}

// upload sends every pending resource under n and reports how many it sent.
func (r *renderer) upload(n *node.Node) (int, error) {
	geometries, textures := node.Resources(n)
	sent := 0
	for _, g := range geometries {
		if g.Uploaded() || g.Released() {
			continue
		}
		if err := r.backend.UploadGeometry(n.Name(), g); err != nil {
			return sent, err
		}
		sent++
	}
	for _, t := range textures {
		if t.Uploaded() || t.Released() {
			continue
		}
		if err := r.backend.UploadTexture(t); err != nil {
			return sent, err
		}
		sent++
	}
	return sent, nil
}

func (r *renderer) Render(views ...View) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}

	var stats FrameStats
	type prepared struct {
		items []drawItem
		light lighting
		view  View
	}
	frames := make([]prepared, 0, len(views))
	for _, v := range views {
		if v.Camera == nil {
			continue
		}
		for _, obj := range v.Objects {
			if obj == nil {
				continue
			}
			sent, err := r.upload(obj)
			stats.Uploads += sent
			if err != nil {
				zlog.Warn().Err(err).Str("object", obj.Name()).Msg("upload failed")
			}
		}
		items, light := collectDraws(v.Objects)
		frames = append(frames, prepared{items: items, light: light, view: v})
	}

	if err := r.backend.BeginFrame(); err != nil {
		return err
	}
	for _, f := range frames {
		r.backend.SetViewport(f.view.Viewport)
		viewProj := f.view.Camera.ViewProjectionMatrix()
		for _, item := range f.items {
			if err := r.backend.Draw(item, uniformsFor(item, viewProj, f.light)); err != nil {
				zlog.Debug().Err(err).Msg("draw skipped")
				continue
			}
			stats.Draws++
		}
	}
	r.backend.EndFrame()
	r.backend.Present()

	r.last = stats
	return nil
}

func (r *renderer) Stats() FrameStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

func (r *renderer) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	r.backend.Release()
}
