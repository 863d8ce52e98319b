package node

import "fmt"

// Released counts the resources freed by one Dispose call.
type Released struct {
	Geometries int
	Textures   int
	Materials  int
}

// Add accumulates o into r.
func (r *Released) Add(o Released) {
	r.Geometries += o.Geometries
	r.Textures += o.Textures
	r.Materials += o.Materials
}

// Total returns the number of resources released.
func (r Released) Total() int {
	return r.Geometries + r.Textures + r.Materials
}

// Dispose recursively releases every GPU resource owned by n and its descendants:
// geometry buffers first, then every texture of each material, then the materials.
// Resources shared between nodes are released once. Disposing nil is a no-op.
//
// Parameters:
//   - n: root of the object graph
//
// Returns:
//   - Released: the number of resources freed by this call
func Dispose(n *Node) Released {
	var out Released
	if n == nil {
		return out
	}
	switch n.kind {
	case KindMesh:
		out.Add(releaseSurface(n.mesh.Geometry, n.mesh.Materials...))
	case KindHelper:
		out.Add(releaseSurface(n.helper.Geometry, n.helper.Material))
	case KindLight:
	case KindGroup:
	default:
		panic(fmt.Sprintf("node: dispose of unknown %s", n.kind))
	}
	for _, c := range n.children {
		out.Add(Dispose(c))
	}
	return out
}

func releaseSurface(g *Geometry, materials ...*Material) Released {
	var out Released
	if g != nil && g.Release() {
		out.Geometries++
	}
	for _, m := range materials {
		if m == nil {
			continue
		}
		for _, t := range m.Textures() {
			if t.Release() {
				out.Textures++
			}
		}
		if m.Release() {
			out.Materials++
		}
	}
	return out
}

// Resources returns every geometry and texture reachable from n. Used to verify
// that a disposed object left nothing live behind.
//
// Parameters:
//   - n: root of the object graph
//
// Returns:
//   - []*Geometry: all geometries
//   - []*Texture: all textures
func Resources(n *Node) ([]*Geometry, []*Texture) {
	var geoms []*Geometry
	var texs []*Texture
	var visit func(*Node)
	visit = func(c *Node) {
		if c == nil {
			return
		}
		switch c.kind {
		case KindMesh:
			if c.mesh.Geometry != nil {
				geoms = append(geoms, c.mesh.Geometry)
			}
			for _, m := range c.mesh.Materials {
				texs = append(texs, m.Textures()...)
			}
		case KindHelper:
			if c.helper.Geometry != nil {
				geoms = append(geoms, c.helper.Geometry)
			}
			texs = append(texs, c.helper.Material.Textures()...)
		case KindLight, KindGroup:
		}
		for _, cc := range c.children {
			visit(cc)
		}
	}
	visit(n)
	return geoms, texs
}
