package camera

// ControllerOption is a functional option for configuring a turntable Controller.
type ControllerOption func(*controllerImpl)

// WithRadius sets the initial orbit radius (distance from target).
//
// Parameters:
//   - radius: distance from the orbit target
//
// Returns:
//   - ControllerOption: functional option to set the radius
func WithRadius(radius float32) ControllerOption {
	return func(cc *controllerImpl) {
		cc.radius = radius
	}
}

// WithAzimuth sets the initial horizontal angle around the Y axis.
// ResetTurntable returns to this angle.
//
// Parameters:
//   - azimuth: horizontal angle in radians (0 = +Z axis)
//
// Returns:
//   - ControllerOption: functional option to set the azimuth
func WithAzimuth(azimuth float32) ControllerOption {
	return func(cc *controllerImpl) {
		cc.azimuth = azimuth
	}
}

// WithElevation sets the vertical angle from the horizontal plane.
//
// Parameters:
//   - elevation: vertical angle in radians (0 = horizontal)
//
// Returns:
//   - ControllerOption: functional option to set the elevation
func WithElevation(elevation float32) ControllerOption {
	return func(cc *controllerImpl) {
		cc.elevation = elevation
	}
}

// WithTurntableSpeed sets the automatic spin rate.
//
// Parameters:
//   - speed: radians per second
//
// Returns:
//   - ControllerOption: functional option to set the spin rate
func WithTurntableSpeed(speed float32) ControllerOption {
	return func(cc *controllerImpl) {
		cc.turntableRate = speed
	}
}
