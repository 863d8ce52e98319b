package renderer

import (
	"github.com/Carmen-Shannon/oxy-view/common"
	"github.com/Carmen-Shannon/oxy-view/engine/node"
	"github.com/go-gl/mathgl/mgl32"
)

// vertexStride is the byte size of one interleaved vertex:
// position (3) + normal (3) + uv (2) + color (3) float32s.
const vertexStride = 11 * 4

// drawItem is one geometry/material pair to encode, with its world matrix.
type drawItem struct {
	geometry *node.Geometry
	material *node.Material
	world    mgl32.Mat4
}

// drawUniforms mirrors the Draw struct in sceneShader. Matrices are column-major.
type drawUniforms struct {
	MVP        mgl32.Mat4
	Model      mgl32.Mat4
	Color      mgl32.Vec4
	LightDir   mgl32.Vec4 // xyz direction the light travels, w ambient level
	LightColor mgl32.Vec4
	Flags      mgl32.Vec4 // x > 0.5 disables lighting
}

// lighting is the per-frame light state shared by every draw.
type lighting struct {
	direction mgl32.Vec3
	color     mgl32.Vec3
	ambient   float32
}

// collectDraws flattens objects into draw items. Light nodes feed the frame's
// lighting and are not drawn. Geometry without positions is skipped.
//
// Parameters:
//   - objects: the roots to draw, typically Session.Objects()
//
// Returns:
//   - []drawItem: meshes then helpers in traversal order
//   - lighting: the combined lighting of every light root
func collectDraws(objects []*node.Node) ([]drawItem, lighting) {
	var items []drawItem
	light := lighting{direction: mgl32.Vec3{0, -1, 0}, color: mgl32.Vec3{1, 1, 1}}
	for _, root := range objects {
		if root == nil {
			continue
		}
		if isLightRig(root) {
			key := node.KeyLight(root)
			light.direction = key.Direction
			light.color = key.Color.Mul(key.Intensity)
			light.ambient += node.AmbientLevel(root)
			continue
		}
		node.Walk(root, mgl32.Ident4(), func(n *node.Node, world mgl32.Mat4) bool {
			switch n.Kind() {
			case node.KindMesh:
				m := n.Mesh()
				if m.Geometry == nil || len(m.Geometry.Positions) == 0 {
					return true
				}
				var mat *node.Material
				if len(m.Materials) > 0 {
					mat = m.Materials[0]
				}
				items = append(items, drawItem{geometry: m.Geometry, material: mat, world: world})
			case node.KindHelper:
				h := n.Helper()
				if h.Geometry != nil && len(h.Geometry.Positions) > 0 {
					items = append(items, drawItem{geometry: h.Geometry, material: h.Material, world: world})
				}
				return false
			case node.KindLight, node.KindGroup:
			}
			return true
		})
	}
	return items, light
}

// isLightRig reports whether root holds only lights.
func isLightRig(root *node.Node) bool {
	found := false
	only := true
	node.Walk(root, mgl32.Ident4(), func(n *node.Node, _ mgl32.Mat4) bool {
		switch n.Kind() {
		case node.KindLight:
			found = true
		case node.KindMesh, node.KindHelper:
			only = false
		case node.KindGroup:
		}
		return only
	})
	return found && only
}

// packVertices interleaves g into the vertex layout of sceneShader. Missing
// normals are zero, missing UVs are zero and missing colors are white.
//
// Parameters:
//   - g: the geometry to pack
//
// Returns:
//   - []byte: len(g.Positions) * vertexStride bytes
func packVertices(g *node.Geometry) []byte {
	out := make([]float32, 0, len(g.Positions)*vertexStride/4)
	for i, p := range g.Positions {
		var n mgl32.Vec3
		if i < len(g.Normals) {
			n = g.Normals[i]
		}
		var uv mgl32.Vec2
		if i < len(g.UVs) {
			uv = g.UVs[i]
		}
		c := mgl32.Vec3{1, 1, 1}
		if i < len(g.Colors) {
			c = g.Colors[i]
		}
		out = append(out, p[0], p[1], p[2], n[0], n[1], n[2], uv[0], uv[1], c[0], c[1], c[2])
	}
	return common.SliceToBytes(out)
}

// packIndices returns g's indices, generating a linear list for unindexed
// geometry. Index buffers are padded to a multiple of four bytes, which
// uint32 indices already satisfy.
func packIndices(g *node.Geometry) []byte {
	if len(g.Indices) > 0 {
		return common.SliceToBytes(g.Indices)
	}
	linear := make([]uint32, len(g.Positions))
	for i := range linear {
		linear[i] = uint32(i)
	}
	return common.SliceToBytes(linear)
}

// uniformsFor builds the uniform block for one draw.
//
// Parameters:
//   - item: the draw
//   - viewProj: the camera's view-projection matrix
//   - light: the frame lighting
//
// Returns:
//   - drawUniforms: the values to upload
func uniformsFor(item drawItem, viewProj mgl32.Mat4, light lighting) drawUniforms {
	u := drawUniforms{
		MVP:        viewProj.Mul4(item.world),
		Model:      item.world,
		Color:      mgl32.Vec4{1, 1, 1, 1},
		LightDir:   light.direction.Normalize().Vec4(light.ambient),
		LightColor: light.color.Vec4(1),
	}
	if item.material != nil {
		u.Color = item.material.BaseColor
		if item.material.Unlit {
			u.Flags[0] = 1
		}
	}
	if item.geometry.Topology == node.TopologyLines {
		u.Flags[0] = 1
	}
	return u
}
