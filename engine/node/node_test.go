package node

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-view/common"
	"github.com/go-gl/mathgl/mgl32"
)

func cube(size float32) *Geometry {
	h := size / 2
	return &Geometry{Positions: []mgl32.Vec3{{-h, -h, -h}, {h, h, h}}}
}

func texturedMesh(name string, tex *Texture) *Node {
	return NewMesh(name, cube(1), &Material{Name: name, BaseMap: tex})
}

func TestDisposeReleasesEveryResourceOnce(t *testing.T) {
	shared := &Texture{Name: "shared"}
	var hooks int
	shared.Attach(func() { hooks++ })

	root := NewGroup("root",
		texturedMesh("a", shared),
		NewGroup("inner", texturedMesh("b", shared)),
		NewLightNode("sun", Light{Type: LightTypeDirectional}),
		NewAxesHelper(1),
	)

	got := Dispose(root)
	want := Released{Geometries: 3, Textures: 1, Materials: 3}
	if got != want {
		t.Fatalf("Dispose() = %+v, want %+v", got, want)
	}
	if hooks != 1 {
		t.Fatalf("shared texture hook ran %d times, want 1", hooks)
	}

	geoms, texs := Resources(root)
	for _, g := range geoms {
		if !g.Released() {
			t.Errorf("geometry left live after dispose")
		}
	}
	for _, tx := range texs {
		if !tx.Released() {
			t.Errorf("texture %q left live after dispose", tx.Name)
		}
	}

	if again := Dispose(root); again.Total() != 0 {
		t.Fatalf("second Dispose() released %+v, want nothing", again)
	}
}

func TestDisposeUnknownKindPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for an unknown node kind")
		}
	}()
	Dispose(newNode(Kind(42), "bogus"))
}

func TestAttachAfterReleaseRunsHookImmediately(t *testing.T) {
	g := cube(1)
	g.Release()
	ran := false
	g.Attach(func() { ran = true })
	if !ran {
		t.Fatalf("late upload hook was not run")
	}
	if g.Uploaded() {
		t.Fatalf("released geometry reports as uploaded")
	}
}

func TestWorldBoundsAppliesTransformsAndSkipsHelpers(t *testing.T) {
	child := NewMesh("box", cube(2))
	child.UpdateTransform(func(tr *Transform) {
		tr.Translation = mgl32.Vec3{10, 0, 0}
	})
	root := NewGroup("root", child, NewAxesHelper(100))
	root.UpdateTransform(func(tr *Transform) {
		tr.Scale = mgl32.Vec3{2, 2, 2}
	})

	b := WorldBounds(root)
	if !b.Min.ApproxEqual(mgl32.Vec3{18, -2, -2}) || !b.Max.ApproxEqual(mgl32.Vec3{22, 2, 2}) {
		t.Fatalf("unexpected bounds %v..%v", b.Min, b.Max)
	}
}

func TestWorldBoundsEmptyGroup(t *testing.T) {
	if b := WorldBounds(NewGroup("empty")); !b.IsEmpty() {
		t.Fatalf("expected empty bounds, got %v..%v", b.Min, b.Max)
	}
}

func TestPlaceholderSpins(t *testing.T) {
	p := NewPlaceholder()
	if p.Spin() != PlaceholderSpin {
		t.Fatalf("placeholder spin = %v", p.Spin())
	}
	before := p.Transform().Rotation
	p.Step()
	if p.Transform().Rotation == before {
		t.Fatalf("Step did not rotate the placeholder")
	}
}

func TestBoxHelperHasTwelveEdges(t *testing.T) {
	b := common.EmptyBounds().ExtendPoint(mgl32.Vec3{-1, -1, -1}).ExtendPoint(mgl32.Vec3{1, 1, 1})
	h := NewBoxHelper(b, mgl32.Vec3{1, 1, 0})
	if h.Kind() != KindHelper {
		t.Fatalf("kind = %s", h.Kind())
	}
	if n := len(h.Helper().Geometry.Indices); n != 24 {
		t.Fatalf("expected 24 line indices, got %d", n)
	}
}

func TestKeyLightFromDefaultRig(t *testing.T) {
	rig := DefaultRig()
	if key := KeyLight(rig); key.Intensity != 0.9 {
		t.Fatalf("key light intensity = %v", key.Intensity)
	}
	if lvl := AmbientLevel(rig); lvl != 0.6 {
		t.Fatalf("ambient level = %v", lvl)
	}
}
