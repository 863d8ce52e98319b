package node

import "github.com/go-gl/mathgl/mgl32"

// LightType identifies the kind of light source.
type LightType int

const (
	// LightTypeAmbient lights every fragment uniformly.
	LightTypeAmbient LightType = iota

	// LightTypeDirectional represents a light with no position, only direction.
	LightTypeDirectional

	// LightTypePoint emits in all directions from the node's position.
	LightTypePoint
)

// Light is the payload of a KindLight node.
type Light struct {
	Type      LightType
	Color     mgl32.Vec3
	Intensity float32
	Direction mgl32.Vec3
}

// DefaultRig returns the fixed lighting every viewer surface starts with:
// a soft ambient fill and one key light from the upper front right.
func DefaultRig() *Node {
	return NewGroup("lights",
		NewLightNode("ambient", Light{
			Type:      LightTypeAmbient,
			Color:     mgl32.Vec3{1, 1, 1},
			Intensity: 0.6,
		}),
		NewLightNode("key", Light{
			Type:      LightTypeDirectional,
			Color:     mgl32.Vec3{1, 1, 1},
			Intensity: 0.9,
			Direction: mgl32.Vec3{-1, -1.5, -1}.Normalize(),
		}),
	)
}

// KeyLight returns the first directional light under n, or a default when none exists.
func KeyLight(n *Node) Light {
	key := Light{Type: LightTypeDirectional, Color: mgl32.Vec3{1, 1, 1}, Intensity: 1, Direction: mgl32.Vec3{0, -1, 0}}
	found := false
	Walk(n, mgl32.Ident4(), func(c *Node, _ mgl32.Mat4) bool {
		if !found && c.kind == KindLight && c.light.Type == LightTypeDirectional {
			key = *c.light
			found = true
		}
		return !found
	})
	return key
}

// AmbientLevel sums the intensity of every ambient light under n.
func AmbientLevel(n *Node) float32 {
	var level float32
	Walk(n, mgl32.Ident4(), func(c *Node, _ mgl32.Mat4) bool {
		if c.kind == KindLight && c.light.Type == LightTypeAmbient {
			level += c.light.Intensity
		}
		return true
	})
	return level
}
