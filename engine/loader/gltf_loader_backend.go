package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/Carmen-Shannon/oxy-view/engine/node"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
)

var (
	errNoScene    = errors.New("document has no scene")
	errNoGeometry = errors.New("document has no triangle geometry")
)

// gltfLoaderBackendImpl decodes glTF and GLB documents with qmuntal/gltf and
// converts the default scene into a node graph.
type gltfLoaderBackendImpl struct {
	maxTextureSize int
}

var _ loaderBackend = &gltfLoaderBackendImpl{}

// newGLTFLoaderBackend creates a new glTF loader backend.
//
// Parameters:
//   - maxTextureSize: longest texture side kept after decode
//
// Returns:
//   - loaderBackend: the loader backend for glTF/GLB files
func newGLTFLoaderBackend(maxTextureSize int) loaderBackend {
	return &gltfLoaderBackendImpl{maxTextureSize: maxTextureSize}
}

func (b *gltfLoaderBackendImpl) Decode(ctx context.Context, name string, r io.Reader, fsys fs.FS) (*node.Node, error) {
	doc := new(gltf.Document)
	var dec *gltf.Decoder
	if fsys != nil {
		dec = gltf.NewDecoderFS(r, fsys)
	} else {
		dec = gltf.NewDecoder(r)
	}
	if err := dec.Decode(doc); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	imp := &gltfImporter{
		doc:       doc,
		meshes:    newGLTFMeshExtractor(doc),
		materials: newGLTFMaterialExtractor(doc, fsys, b.maxTextureSize),
	}
	root, err := imp.importScene(ctx, name)
	if err != nil {
		return nil, err
	}
	return root, nil
}

// gltfImporter walks the node hierarchy of one decoded document.
type gltfImporter struct {
	doc       *gltf.Document
	meshes    *gltfMeshExtractor
	materials *gltfMaterialExtractor

	triangles int
}

func (imp *gltfImporter) importScene(ctx context.Context, name string) (*node.Node, error) {
	roots, err := imp.sceneRoots()
	if err != nil {
		return nil, err
	}
	children := make([]*node.Node, 0, len(roots))
	for _, idx := range roots {
		if err := ctx.Err(); err != nil {
			node.Dispose(node.NewGroup(name, children...))
			return nil, err
		}
		child, err := imp.importNode(idx, 0)
		if err != nil {
			node.Dispose(node.NewGroup(name, children...))
			return nil, err
		}
		children = append(children, child)
	}
	root := node.NewGroup(name, children...)
	if imp.triangles == 0 {
		node.Dispose(root)
		return nil, errNoGeometry
	}
	return root, nil
}

// sceneRoots returns the root node indices of the default scene. Documents
// without scenes fall back to every node that is nobody's child.
func (imp *gltfImporter) sceneRoots() ([]int, error) {
	doc := imp.doc
	if len(doc.Scenes) > 0 {
		idx := 0
		if doc.Scene != nil && *doc.Scene < len(doc.Scenes) {
			idx = *doc.Scene
		}
		return doc.Scenes[idx].Nodes, nil
	}
	if len(doc.Nodes) == 0 {
		return nil, errNoScene
	}
	isChild := make([]bool, len(doc.Nodes))
	for _, n := range doc.Nodes {
		for _, c := range n.Children {
			if c >= 0 && c < len(isChild) {
				isChild[c] = true
			}
		}
	}
	var roots []int
	for i := range doc.Nodes {
		if !isChild[i] {
			roots = append(roots, i)
		}
	}
	return roots, nil
}

// maxNodeDepth guards against cyclic hierarchies in malformed files.
const maxNodeDepth = 256

func (imp *gltfImporter) importNode(idx, depth int) (*node.Node, error) {
	if idx < 0 || idx >= len(imp.doc.Nodes) {
		return nil, fmt.Errorf("node index %d out of range", idx)
	}
	if depth > maxNodeDepth {
		return nil, fmt.Errorf("node hierarchy deeper than %d", maxNodeDepth)
	}
	src := imp.doc.Nodes[idx]

	var children []*node.Node
	if src.Mesh != nil {
		prims, err := imp.importMesh(*src.Mesh)
		if err != nil {
			return nil, err
		}
		children = append(children, prims...)
	}
	for _, c := range src.Children {
		child, err := imp.importNode(c, depth+1)
		if err != nil {
			node.Dispose(node.NewGroup("", children...))
			return nil, err
		}
		children = append(children, child)
	}

	n := node.NewGroup(src.Name, children...)
	n.SetTransform(gltfNodeTransform(src))
	return n, nil
}

func (imp *gltfImporter) importMesh(meshIdx int) ([]*node.Node, error) {
	if meshIdx < 0 || meshIdx >= len(imp.doc.Meshes) {
		return nil, fmt.Errorf("mesh index %d out of range", meshIdx)
	}
	mesh := imp.doc.Meshes[meshIdx]
	var out []*node.Node
	for i, prim := range mesh.Primitives {
		geom, err := imp.meshes.extractPrimitive(prim)
		if err != nil {
			node.Dispose(node.NewGroup("", out...))
			return nil, fmt.Errorf("mesh %d primitive %d: %w", meshIdx, i, err)
		}
		if geom == nil {
			continue
		}
		imp.triangles += geom.IndexCount() / 3
		mat := imp.materials.material(prim.Material)
		out = append(out, node.NewMesh(fmt.Sprintf("%s#%d", mesh.Name, i), geom, mat))
	}
	return out, nil
}

// gltfNodeTransform converts a node's TRS or matrix into a node.Transform.
// Unset TRS fields decode as zero values and are replaced by their identities.
func gltfNodeTransform(n *gltf.Node) node.Transform {
	t := node.IdentityTransform()
	if m := n.Matrix; m != ([16]float64{}) && m != gltfIdentityMatrix {
		var mat mgl32.Mat4
		for i := range m {
			mat[i] = float32(m[i])
		}
		t.Translation = mat.Col(3).Vec3()
		sx := mat.Col(0).Vec3().Len()
		sy := mat.Col(1).Vec3().Len()
		sz := mat.Col(2).Vec3().Len()
		t.Scale = mgl32.Vec3{sx, sy, sz}
		if sx != 0 && sy != 0 && sz != 0 {
			rot := mgl32.Mat4FromCols(
				mat.Col(0).Mul(1/sx),
				mat.Col(1).Mul(1/sy),
				mat.Col(2).Mul(1/sz),
				mgl32.Vec4{0, 0, 0, 1},
			)
			t.Rotation = mgl32.Mat4ToQuat(rot).Normalize()
		}
		return t
	}
	t.Translation = mgl32.Vec3{float32(n.Translation[0]), float32(n.Translation[1]), float32(n.Translation[2])}
	if r := n.Rotation; r != ([4]float64{}) {
		t.Rotation = mgl32.Quat{W: float32(r[3]), V: mgl32.Vec3{float32(r[0]), float32(r[1]), float32(r[2])}}.Normalize()
	}
	if s := n.Scale; s != ([3]float64{}) {
		t.Scale = mgl32.Vec3{float32(s[0]), float32(s[1]), float32(s[2])}
	}
	return t
}

var gltfIdentityMatrix = [16]float64{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1}
