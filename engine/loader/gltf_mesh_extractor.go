package loader

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-view/engine/node"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

// gltfMeshExtractor reads primitive attributes out of a decoded document.
type gltfMeshExtractor struct {
	doc *gltf.Document
}

func newGLTFMeshExtractor(doc *gltf.Document) *gltfMeshExtractor {
	return &gltfMeshExtractor{doc: doc}
}

// extractPrimitive converts one triangle primitive into a Geometry. Non-triangle
// primitives (points, lines, strips) are skipped and return nil, nil.
func (e *gltfMeshExtractor) extractPrimitive(prim *gltf.Primitive) (*node.Geometry, error) {
	if prim.Mode != gltf.PrimitiveTriangles {
		return nil, nil
	}
	posIdx, ok := prim.Attributes[gltf.POSITION]
	if !ok {
		return nil, nil
	}
	acr, err := e.accessor(posIdx)
	if err != nil {
		return nil, err
	}
	positions, err := modeler.ReadPosition(e.doc, acr, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to read positions: %w", err)
	}

	geom := &node.Geometry{Topology: node.TopologyTriangles}
	geom.Positions = make([]mgl32.Vec3, len(positions))
	for i, p := range positions {
		geom.Positions[i] = mgl32.Vec3(p)
	}

	if prim.Indices != nil {
		acr, err := e.accessor(*prim.Indices)
		if err != nil {
			return nil, err
		}
		// ReadIndices widens uint8/uint16/uint32 to []uint32.
		geom.Indices, err = modeler.ReadIndices(e.doc, acr, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to read indices: %w", err)
		}
	} else {
		geom.Indices = make([]uint32, len(positions))
		for i := range geom.Indices {
			geom.Indices[i] = uint32(i)
		}
	}
	for _, idx := range geom.Indices {
		if int(idx) >= len(positions) {
			return nil, fmt.Errorf("index %d exceeds vertex count %d", idx, len(positions))
		}
	}
	geom.Indices = geom.Indices[:len(geom.Indices)-len(geom.Indices)%3]

	if idx, ok := prim.Attributes[gltf.NORMAL]; ok {
		if acr, err := e.accessor(idx); err == nil {
			if normals, err := modeler.ReadNormal(e.doc, acr, nil); err == nil && len(normals) == len(positions) {
				geom.Normals = make([]mgl32.Vec3, len(normals))
				for i, n := range normals {
					geom.Normals[i] = mgl32.Vec3(n)
				}
			}
		}
	}
	if geom.Normals == nil {
		geom.Normals = generateNormals(geom.Positions, geom.Indices)
	}

	if idx, ok := prim.Attributes[gltf.TEXCOORD_0]; ok {
		if acr, err := e.accessor(idx); err == nil {
			if uvs, err := modeler.ReadTextureCoord(e.doc, acr, nil); err == nil && len(uvs) == len(positions) {
				geom.UVs = make([]mgl32.Vec2, len(uvs))
				for i, uv := range uvs {
					geom.UVs[i] = mgl32.Vec2(uv)
				}
			}
		}
	}
	return geom, nil
}

func (e *gltfMeshExtractor) accessor(idx int) (*gltf.Accessor, error) {
	if idx < 0 || idx >= len(e.doc.Accessors) {
		return nil, fmt.Errorf("accessor index %d out of range", idx)
	}
	return e.doc.Accessors[idx], nil
}

// generateNormals computes smooth vertex normals when the file provides none.
// Face normals are accumulated area-weighted onto every vertex of the triangle,
// then normalized.
func generateNormals(positions []mgl32.Vec3, indices []uint32) []mgl32.Vec3 {
	accum := make([]mgl32.Vec3, len(positions))
	for i := 0; i+2 < len(indices); i += 3 {
		i0, i1, i2 := indices[i], indices[i+1], indices[i+2]
		p0, p1, p2 := positions[i0], positions[i1], positions[i2]
		face := p1.Sub(p0).Cross(p2.Sub(p0))
		accum[i0] = accum[i0].Add(face)
		accum[i1] = accum[i1].Add(face)
		accum[i2] = accum[i2].Add(face)
	}
	for i, n := range accum {
		if l := n.Len(); l > 1e-12 {
			accum[i] = n.Mul(1 / l)
		} else {
			accum[i] = mgl32.Vec3{0, 1, 0}
		}
	}
	return accum
}
