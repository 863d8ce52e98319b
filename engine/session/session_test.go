package session

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-view/engine/node"
	"github.com/go-gl/mathgl/mgl32"
)

func model(name string) *node.Node {
	return node.NewMesh(name,
		&node.Geometry{Positions: []mgl32.Vec3{{0, 0, 0}, {1, 1, 1}}},
		&node.Material{Name: name, BaseMap: &node.Texture{Name: name + "-tex"}},
	)
}

func TestReplaceDisposesPreviousModelAndHelpers(t *testing.T) {
	s := New("main")
	a := model("a")
	s.Replace(a)
	axes := node.NewAxesHelper(1)
	s.SetHelpers(axes)

	b := model("b")
	s.Replace(b)

	if s.Model() != b {
		t.Fatalf("expected b attached")
	}
	if len(s.Helpers()) != 0 {
		t.Fatalf("helpers outlived their model")
	}
	if !axes.Helper().Geometry.Released() {
		t.Fatalf("helper geometry not released")
	}
	geoms, texs := node.Resources(a)
	for _, g := range geoms {
		if !g.Released() {
			t.Fatalf("geometry of replaced model still live")
		}
	}
	for _, tx := range texs {
		if !tx.Released() {
			t.Fatalf("texture %q of replaced model still live", tx.Name)
		}
	}
	for _, obj := range s.Objects() {
		if obj == a {
			t.Fatalf("replaced model still referenced by the scene")
		}
	}
}

func TestReplaceSameObjectKeepsIt(t *testing.T) {
	s := New("main")
	a := model("a")
	s.Replace(a)
	s.Replace(a)
	if a.Mesh().Geometry.Released() {
		t.Fatalf("re-attaching the same model disposed it")
	}
}

func TestShowPlaceholderNeverStacks(t *testing.T) {
	s := New("main")
	first := s.ShowPlaceholder()
	second := s.ShowPlaceholder()

	if first == second {
		t.Fatalf("expected a fresh placeholder")
	}
	if !first.Mesh().Geometry.Released() {
		t.Fatalf("previous placeholder not disposed")
	}
	count := 0
	for _, obj := range s.Objects() {
		if obj.Name() == "placeholder" {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected exactly one placeholder attached, got %d", count)
	}

	s.RemovePlaceholder()
	if s.Placeholder() != nil || !second.Mesh().Geometry.Released() {
		t.Fatalf("RemovePlaceholder did not detach and dispose")
	}
}

func TestStaleTokenCannotAttach(t *testing.T) {
	s := New("preview")
	old := s.Begin()
	fresh := s.Begin()

	late := model("late")
	if s.ReplaceIfCurrent(old, late) {
		t.Fatalf("stale completion attached a model")
	}
	if s.Model() != nil {
		t.Fatalf("session mutated by stale completion")
	}
	if !late.Mesh().Geometry.Released() {
		t.Fatalf("stale result not disposed")
	}
	if s.SetStatusIfCurrent(old, "stale") {
		t.Fatalf("stale status accepted")
	}

	current := model("current")
	if !s.ReplaceIfCurrent(fresh, current) || s.Model() != current {
		t.Fatalf("current completion rejected")
	}
}

func TestHelpersDroppedWithoutModel(t *testing.T) {
	s := New("main")
	axes := node.NewAxesHelper(1)
	s.SetHelpers(axes)
	if len(s.Helpers()) != 0 {
		t.Fatalf("helpers attached without a model")
	}
	if !axes.Helper().Geometry.Released() {
		t.Fatalf("orphan helper not disposed")
	}
}

func TestStaleHelpersAreDisposed(t *testing.T) {
	s := New("main")
	old := s.Begin()
	s.ReplaceIfCurrent(old, model("a"))

	tok := s.Begin()
	s.ReplaceIfCurrent(tok, model("b"))
	current := node.NewAxesHelper(1)
	if !s.SetHelpersIfCurrent(tok, current) {
		t.Fatal("expected helpers attached for the current token")
	}

	stale := node.NewAxesHelper(1)
	if s.SetHelpersIfCurrent(old, stale) {
		t.Fatal("stale token attached helpers")
	}
	if !stale.Helper().Geometry.Released() {
		t.Fatal("stale helper not disposed")
	}
	if h := s.Helpers(); len(h) != 1 || h[0] != current {
		t.Fatalf("current helpers replaced: %v", h)
	}
	if current.Helper().Geometry.Released() {
		t.Fatal("current helper released")
	}
}

func TestStatusListenerAndDisposeListener(t *testing.T) {
	var statuses []string
	var released node.Released
	s := New("main",
		WithStatusListener(func(st string) { statuses = append(statuses, st) }),
		WithDisposeListener(func(r node.Released) { released.Add(r) }),
	)
	s.SetStatus("Loading a.glb")
	s.Replace(model("a"))
	s.Replace(nil)

	if len(statuses) != 1 || s.Status() != "Loading a.glb" {
		t.Fatalf("statuses = %v", statuses)
	}
	if released != (node.Released{Geometries: 1, Textures: 1, Materials: 1}) {
		t.Fatalf("released = %+v", released)
	}
}

func TestTeardownInvalidatesAndDisposes(t *testing.T) {
	s := New("main")
	tok := s.Begin()
	m := model("m")
	s.Replace(m)
	p := s.ShowPlaceholder()

	s.Teardown()
	if s.IsCurrent(tok) {
		t.Fatalf("teardown left the request current")
	}
	if s.Model() != nil || s.Placeholder() != nil {
		t.Fatalf("teardown left objects attached")
	}
	if !m.Mesh().Geometry.Released() || !p.Mesh().Geometry.Released() {
		t.Fatalf("teardown leaked resources")
	}
}
