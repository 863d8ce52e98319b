package node

import (
	"math"

	"github.com/Carmen-Shannon/oxy-view/common"
	"github.com/go-gl/mathgl/mgl32"
)

// PlaceholderSpin is the per-frame rotation increment of the loading stand-in.
const PlaceholderSpin = 0.01

// NewPlaceholder builds the stand-in shown while an asset loads or after it
// fails: a unit torus with its own spin increment.
//
// Returns:
//   - *Node: a fresh placeholder mesh owning its geometry and material
func NewPlaceholder() *Node {
	n := NewMesh("placeholder", Torus(0.6, 0.2, 48, 16), &Material{
		Name:      "placeholder",
		BaseColor: mgl32.Vec4{0.55, 0.6, 0.7, 1},
	})
	n.SetSpin(PlaceholderSpin)
	return n
}

// Torus generates an indexed torus in the XY plane.
//
// Parameters:
//   - radius: distance from the center to the tube center
//   - tube: tube radius
//   - radial: segments around the ring
//   - tubular: segments around the tube
//
// Returns:
//   - *Geometry: triangle geometry with normals and UVs
func Torus(radius, tube float32, radial, tubular int) *Geometry {
	g := &Geometry{Topology: TopologyTriangles}
	for j := 0; j <= tubular; j++ {
		v := float64(j) / float64(tubular) * 2 * math.Pi
		for i := 0; i <= radial; i++ {
			u := float64(i) / float64(radial) * 2 * math.Pi
			cx := float32(math.Cos(u)) * radius
			cy := float32(math.Sin(u)) * radius
			p := mgl32.Vec3{
				(radius + tube*float32(math.Cos(v))) * float32(math.Cos(u)),
				(radius + tube*float32(math.Cos(v))) * float32(math.Sin(u)),
				tube * float32(math.Sin(v)),
			}
			g.Positions = append(g.Positions, p)
			g.Normals = append(g.Normals, p.Sub(mgl32.Vec3{cx, cy, 0}).Normalize())
			g.UVs = append(g.UVs, mgl32.Vec2{float32(i) / float32(radial), float32(j) / float32(tubular)})
		}
	}
	stride := uint32(radial + 1)
	for j := uint32(1); j <= uint32(tubular); j++ {
		for i := uint32(1); i <= uint32(radial); i++ {
			a := stride*j + i - 1
			b := stride*(j-1) + i - 1
			c := stride*(j-1) + i
			d := stride*j + i
			g.Indices = append(g.Indices, a, b, d, b, c, d)
		}
	}
	return g
}

// NewBoxHelper builds a line outline of b.
//
// Parameters:
//   - b: the box to outline; must not be empty
//   - color: line color
//
// Returns:
//   - *Node: a helper node owning its geometry and material
func NewBoxHelper(b common.Bounds, color mgl32.Vec3) *Node {
	g := &Geometry{Topology: TopologyLines}
	for i := 0; i < 8; i++ {
		p := b.Min
		if i&1 != 0 {
			p[0] = b.Max.X()
		}
		if i&2 != 0 {
			p[1] = b.Max.Y()
		}
		if i&4 != 0 {
			p[2] = b.Max.Z()
		}
		g.Positions = append(g.Positions, p)
		g.Colors = append(g.Colors, color)
	}
	// Twelve edges: each corner connects to the corners differing in one bit.
	for i := uint32(0); i < 8; i++ {
		for bit := uint32(1); bit < 8; bit <<= 1 {
			if i&bit == 0 {
				g.Indices = append(g.Indices, i, i|bit)
			}
		}
	}
	return NewHelper("bounds", g, &Material{Name: "bounds", BaseColor: color.Vec4(1), Unlit: true})
}

// NewAxesHelper builds red/green/blue lines along +X/+Y/+Z from the origin.
//
// Parameters:
//   - size: length of each axis line
//
// Returns:
//   - *Node: a helper node owning its geometry and material
func NewAxesHelper(size float32) *Node {
	axes := []mgl32.Vec3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	g := &Geometry{Topology: TopologyLines}
	for i, a := range axes {
		g.Positions = append(g.Positions, mgl32.Vec3{}, a.Mul(size))
		g.Colors = append(g.Colors, a, a)
		g.Indices = append(g.Indices, uint32(2*i), uint32(2*i+1))
	}
	return NewHelper("axes", g, &Material{Name: "axes", BaseColor: mgl32.Vec4{1, 1, 1, 1}, Unlit: true})
}
