// Package fitter frames arbitrary objects for a perspective camera.
package fitter

import (
	"math"

	"github.com/Carmen-Shannon/oxy-view/common"
	"github.com/Carmen-Shannon/oxy-view/engine/node"
	"github.com/go-gl/mathgl/mgl32"
)

const (
	// MinMargin and MaxMargin bound the distance multiplier applied on top of
	// the exact fit so the object never touches the viewport edges.
	MinMargin = 1.3
	MaxMargin = 1.7

	// DefaultMargin is used when a surface does not configure one.
	DefaultMargin = 1.5

	// DefaultUnit is the longest dimension AutoScale normalizes to.
	DefaultUnit = 1.0
)

// Camera is the part of a perspective camera the fitter drives.
type Camera interface {
	Fov() float32
	Position() mgl32.Vec3
	Frame(target mgl32.Vec3, distance, near, far float32)
}

// FrameResult describes the camera placement derived from an object's bounds.
// Applied is false when the bounds were empty or non-finite and nothing changed.
type FrameResult struct {
	CameraPosition mgl32.Vec3
	Target         mgl32.Vec3
	Distance       float32
	Near           float32
	Far            float32
	Applied        bool
}

// Fit re-centers obj at the origin and places cam so obj fills the view with margin.
// Prior framing rotation and translation on obj are discarded first so repeated
// calls on unchanged input produce identical results. Scale is kept, so an
// AutoScale applied earlier survives.
//
// Parameters:
//   - obj: the object to frame
//   - cam: the camera to place
//   - margin: distance multiplier, clamped to [MinMargin, MaxMargin]; zero selects DefaultMargin
//
// Returns:
//   - FrameResult: the derived placement; Applied is false for degenerate geometry
func Fit(obj *node.Node, cam Camera, margin float32) FrameResult {
	if obj == nil || cam == nil {
		return FrameResult{}
	}
	b, ok := recenter(obj)
	if !ok {
		return FrameResult{}
	}

	margin = common.Clamp(common.Coalesce(margin, DefaultMargin), MinMargin, MaxMargin)
	maxDim := b.MaxDim()
	fov := float64(cam.Fov())
	distance := float32(float64(maxDim/2)/math.Tan(fov/2)) * margin
	near := distance / 100
	far := distance * 100

	cam.Frame(mgl32.Vec3{}, distance, near, far)

	return FrameResult{
		CameraPosition: cam.Position(),
		Distance:       distance,
		Near:           near,
		Far:            far,
		Applied:        true,
	}
}

// AutoScale uniformly scales obj so its longest dimension equals unit, then
// re-centers it, since scaling about the origin shifts the bounds center.
//
// Parameters:
//   - obj: the object to normalize
//   - unit: target longest dimension; zero selects DefaultUnit
//
// Returns:
//   - bool: false when the geometry is degenerate and obj was left unchanged
func AutoScale(obj *node.Node, unit float32) bool {
	if obj == nil {
		return false
	}
	unit = common.Coalesce(unit, DefaultUnit)

	prev := obj.Transform()
	obj.UpdateTransform(func(t *node.Transform) {
		t.Scale = mgl32.Vec3{1, 1, 1}
	})
	if _, ok := recenter(obj); !ok {
		obj.SetTransform(prev)
		return false
	}
	raw := node.WorldBounds(obj).MaxDim()
	s := unit / raw
	obj.UpdateTransform(func(t *node.Transform) {
		t.Scale = mgl32.Vec3{s, s, s}
	})
	recenter(obj)
	return true
}

// Degenerate reports whether b cannot be framed.
func Degenerate(b common.Bounds) bool {
	if b.IsEmpty() {
		return true
	}
	d := b.MaxDim()
	return !common.IsFinite(d) || d <= 0
}

// recenter zeroes obj's framing translation and rotation, then translates it
// so its bounds center sits at the origin. On degenerate bounds obj is restored.
func recenter(obj *node.Node) (common.Bounds, bool) {
	prev := obj.Transform()
	obj.UpdateTransform(func(t *node.Transform) {
		t.Translation = mgl32.Vec3{}
		t.Rotation = mgl32.QuatIdent()
	})
	b := node.WorldBounds(obj)
	if Degenerate(b) {
		obj.SetTransform(prev)
		return b, false
	}
	center := b.Center()
	obj.UpdateTransform(func(t *node.Transform) {
		t.Translation = center.Mul(-1)
	})
	return b, true
}
