package node

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-view/common"
	"github.com/go-gl/mathgl/mgl32"
)

// handle tracks the GPU-side lifetime of a CPU resource. A renderer attaches a
// release hook when it uploads the resource; Release runs it at most once.
type handle struct {
	mu       sync.Mutex
	release  func()
	released bool
}

// Attach installs the GPU release hook. Attaching to an already released
// resource runs the hook immediately so late uploads cannot leak.
//
// Parameters:
//   - release: function that frees the GPU-side allocation
func (h *handle) Attach(release func()) {
	h.mu.Lock()
	if h.released {
		h.mu.Unlock()
		if release != nil {
			release()
		}
		return
	}
	prev := h.release
	h.release = release
	h.mu.Unlock()
	if prev != nil {
		prev()
	}
}

// Uploaded reports whether a GPU release hook is installed and not yet run.
func (h *handle) Uploaded() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.release != nil && !h.released
}

// Release frees the GPU allocation. It reports true only on the first call.
func (h *handle) Release() bool {
	h.mu.Lock()
	if h.released {
		h.mu.Unlock()
		return false
	}
	h.released = true
	fn := h.release
	h.release = nil
	h.mu.Unlock()
	if fn != nil {
		fn()
	}
	return true
}

// Released reports whether Release has been called.
func (h *handle) Released() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.released
}

// Topology is the primitive assembly mode of a Geometry.
type Topology int

const (
	TopologyTriangles Topology = iota
	TopologyLines
)

// Geometry holds CPU-side vertex data and the GPU buffer handle created from it.
type Geometry struct {
	handle

	Topology  Topology
	Positions []mgl32.Vec3
	Normals   []mgl32.Vec3
	UVs       []mgl32.Vec2
	Colors    []mgl32.Vec3
	Indices   []uint32

	boundsOnce sync.Once
	bounds     common.Bounds
}

// Bounds returns the local-space bounds of the positions. Cached after first use.
func (g *Geometry) Bounds() common.Bounds {
	g.boundsOnce.Do(func() {
		g.bounds = common.EmptyBounds()
		for _, p := range g.Positions {
			g.bounds = g.bounds.ExtendPoint(p)
		}
	})
	return g.bounds
}

// IndexCount returns the number of indices drawn, generating a linear count for unindexed geometry.
func (g *Geometry) IndexCount() int {
	if len(g.Indices) > 0 {
		return len(g.Indices)
	}
	return len(g.Positions)
}

// Texture is a decoded RGBA8 image and the GPU texture created from it.
type Texture struct {
	handle

	Name   string
	Width  int
	Height int
	Pixels []byte
}

// Material is a flat PBR-lite surface description.
type Material struct {
	handle

	Name      string
	BaseColor mgl32.Vec4
	BaseMap   *Texture
	Unlit     bool
}

// Textures returns every texture the material references.
func (m *Material) Textures() []*Texture {
	if m == nil || m.BaseMap == nil {
		return nil
	}
	return []*Texture{m.BaseMap}
}
