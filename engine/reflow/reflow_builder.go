package reflow

import (
	"github.com/Carmen-Shannon/oxy-view/common"
	"github.com/Carmen-Shannon/oxy-view/engine/fitter"
)

// ControllerOption is a functional option for configuring a Controller.
type ControllerOption func(*Controller)

// WithResizer sets the drawing buffer to resize alongside the camera.
//
// Parameters:
//   - r: the resizer, typically the renderer
//
// Returns:
//   - ControllerOption: a function that sets the resizer
func WithResizer(r Resizer) ControllerOption {
	return func(c *Controller) {
		c.resizer = r
	}
}

// WithMargin sets the margin used when re-fitting.
func WithMargin(margin float32) ControllerOption {
	return func(c *Controller) {
		if margin > 0 {
			c.margin = common.Clamp(margin, fitter.MinMargin, fitter.MaxMargin)
		}
	}
}
