package node

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-view/common"
	"github.com/go-gl/mathgl/mgl32"
)

// Kind identifies which payload a Node carries. The set is closed; every
// switch over Kind must handle all four values.
type Kind int

const (
	// KindMesh is a renderable node with geometry and one or more materials.
	KindMesh Kind = iota

	// KindGroup is a pure transform node whose only content is its children.
	KindGroup

	// KindLight is a light source. It owns no GPU resources.
	KindLight

	// KindHelper is an auxiliary visual aid (bounding box outline, axis indicator)
	// drawn alongside a model. It owns its own line geometry and material.
	KindHelper
)

func (k Kind) String() string {
	switch k {
	case KindMesh:
		return "mesh"
	case KindGroup:
		return "group"
	case KindLight:
		return "light"
	case KindHelper:
		return "helper"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Mesh is the payload of a KindMesh node.
type Mesh struct {
	Geometry  *Geometry
	Materials []*Material
}

// Helper is the payload of a KindHelper node.
type Helper struct {
	Geometry *Geometry
	Material *Material
}

// Node is one element of a scene graph. Exactly one payload accessor returns
// non-nil, selected by Kind; Group nodes carry only children.
//
// Children are fixed at construction. The transform and spin are guarded so the
// render loop can read them while a load re-centers the same object.
type Node struct {
	mu *sync.RWMutex

	kind     Kind
	name     string
	children []*Node

	mesh   *Mesh
	light  *Light
	helper *Helper

	transform Transform
	spin      float32
}

func newNode(kind Kind, name string) *Node {
	return &Node{
		mu:        &sync.RWMutex{},
		kind:      kind,
		name:      name,
		transform: IdentityTransform(),
	}
}

// NewGroup creates a transform node holding the given children.
//
// Parameters:
//   - name: debug name of the node
//   - children: child nodes, nil entries are skipped
//
// Returns:
//   - *Node: the group node
func NewGroup(name string, children ...*Node) *Node {
	n := newNode(KindGroup, name)
	for _, c := range children {
		if c != nil {
			n.children = append(n.children, c)
		}
	}
	return n
}

// NewMesh creates a renderable node.
//
// Parameters:
//   - name: debug name of the node
//   - geometry: vertex and index data
//   - materials: materials referenced by the geometry
//
// Returns:
//   - *Node: the mesh node
func NewMesh(name string, geometry *Geometry, materials ...*Material) *Node {
	n := newNode(KindMesh, name)
	n.mesh = &Mesh{Geometry: geometry, Materials: materials}
	return n
}

// NewLightNode creates a light node.
func NewLightNode(name string, light Light) *Node {
	n := newNode(KindLight, name)
	n.light = &light
	return n
}

// NewHelper creates an auxiliary visual aid node.
//
// Parameters:
//   - name: debug name of the node
//   - geometry: line geometry of the helper
//   - material: flat material of the helper
//
// Returns:
//   - *Node: the helper node
func NewHelper(name string, geometry *Geometry, material *Material) *Node {
	n := newNode(KindHelper, name)
	n.helper = &Helper{Geometry: geometry, Material: material}
	return n
}

func (n *Node) Kind() Kind { return n.kind }

func (n *Node) Name() string { return n.name }

// Children returns the node's children. The slice must not be modified.
func (n *Node) Children() []*Node { return n.children }

// Mesh returns the mesh payload, or nil when the node is not KindMesh.
func (n *Node) Mesh() *Mesh { return n.mesh }

// Light returns the light payload, or nil when the node is not KindLight.
func (n *Node) Light() *Light { return n.light }

// Helper returns the helper payload, or nil when the node is not KindHelper.
func (n *Node) Helper() *Helper { return n.helper }

// Transform returns a copy of the node's local transform.
func (n *Node) Transform() Transform {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.transform
}

// SetTransform replaces the node's local transform.
func (n *Node) SetTransform(t Transform) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.transform = t
}

// UpdateTransform applies fn to the node's local transform under the node lock.
//
// Parameters:
//   - fn: mutator applied to the transform in place
func (n *Node) UpdateTransform(fn func(t *Transform)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	fn(&n.transform)
}

// Spin returns the per-frame rotation increment around +Y, in radians.
func (n *Node) Spin() float32 {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.spin
}

// SetSpin sets the per-frame rotation increment around +Y, in radians.
func (n *Node) SetSpin(spin float32) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.spin = spin
}

// Step advances the node's rotation by its spin increment. Nodes without spin are untouched.
func (n *Node) Step() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.spin == 0 {
		return
	}
	n.transform.Rotation = mgl32.QuatRotate(n.spin, mgl32.Vec3{0, 1, 0}).Mul(n.transform.Rotation).Normalize()
}

// Walk visits n and its descendants depth-first, passing each node's world matrix.
// Returning false from fn skips that node's children.
//
// Parameters:
//   - n: root of the traversal
//   - parent: world matrix of n's parent
//   - fn: visitor
func Walk(n *Node, parent mgl32.Mat4, fn func(n *Node, world mgl32.Mat4) bool) {
	if n == nil {
		return
	}
	world := parent.Mul4(n.Transform().Matrix())
	if !fn(n, world) {
		return
	}
	for _, c := range n.children {
		Walk(c, world, fn)
	}
}

// WorldBounds returns the axis-aligned bounds of every mesh under n, including
// n's own transform. Helpers and lights do not contribute.
//
// Parameters:
//   - n: root of the object
//
// Returns:
//   - common.Bounds: the enclosing box, empty when no mesh has positions
func WorldBounds(n *Node) common.Bounds {
	out := common.EmptyBounds()
	Walk(n, mgl32.Ident4(), func(c *Node, world mgl32.Mat4) bool {
		if c.kind == KindMesh && c.mesh.Geometry != nil {
			out = out.Union(c.mesh.Geometry.Bounds().Transform(world))
		}
		return c.kind != KindHelper
	})
	return out
}
