package camera

import (
	"math"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
)

// Controller owns the eye position of a turntable camera. The eye orbits the
// target at a fixed radius; the turntable spin advances the azimuth once per tick.
type Controller interface {
	// Position returns the eye position computed from the spherical coordinates.
	//
	// Returns:
	//   - mgl32.Vec3: world-space eye position
	Position() mgl32.Vec3

	// Target returns the orbit pivot.
	//
	// Returns:
	//   - mgl32.Vec3: world-space pivot
	Target() mgl32.Vec3

	// SetTarget moves the orbit pivot and recomputes the eye position.
	//
	// Parameters:
	//   - target: world-space pivot
	SetTarget(target mgl32.Vec3)

	// Radius returns the eye distance from the pivot.
	//
	// Returns:
	//   - float32: orbit radius
	Radius() float32

	// SetRadius sets the eye distance from the pivot.
	//
	// Parameters:
	//   - radius: orbit radius
	SetRadius(radius float32)

	// Azimuth returns the turntable angle around +Y in radians (0 = +Z axis).
	//
	// Returns:
	//   - float32: azimuth in radians
	Azimuth() float32

	// SetTurntableSpeed sets the turntable spin in radians per second. Zero disables spin.
	//
	// Parameters:
	//   - speed: radians per second
	SetTurntableSpeed(speed float32)

	// Advance steps the turntable by dt seconds.
	//
	// Parameters:
	//   - dt: elapsed seconds
	Advance(dt float32)

	// ResetTurntable returns the azimuth to its initial angle.
	ResetTurntable()
}

type controllerImpl struct {
	mu *sync.Mutex

	position mgl32.Vec3
	target   mgl32.Vec3

	radius        float32
	azimuth       float32
	elevation     float32
	startAzimuth  float32
	turntableRate float32
}

var _ Controller = &controllerImpl{}

// NewController creates a turntable controller looking down -Z at the origin.
//
// Parameters:
//   - options: functional options to configure the controller
//
// Returns:
//   - Controller: the newly created controller
func NewController(options ...ControllerOption) Controller {
	cc := &controllerImpl{
		mu:     &sync.Mutex{},
		radius: 5.0,
	}
	for _, option := range options {
		option(cc)
	}
	cc.startAzimuth = cc.azimuth
	cc.updatePosition()
	return cc
}

func (cc *controllerImpl) Position() mgl32.Vec3 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.position
}

func (cc *controllerImpl) Target() mgl32.Vec3 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.target
}

func (cc *controllerImpl) SetTarget(target mgl32.Vec3) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.target = target
	cc.updatePosition()
}

func (cc *controllerImpl) Radius() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.radius
}

func (cc *controllerImpl) SetRadius(radius float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.radius = radius
	cc.updatePosition()
}

func (cc *controllerImpl) Azimuth() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.azimuth
}

func (cc *controllerImpl) SetTurntableSpeed(speed float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.turntableRate = speed
}

func (cc *controllerImpl) Advance(dt float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	if cc.turntableRate == 0 {
		return
	}
	cc.azimuth = float32(math.Mod(float64(cc.azimuth+cc.turntableRate*dt), 2*math.Pi))
	cc.updatePosition()
}

func (cc *controllerImpl) ResetTurntable() {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.azimuth = cc.startAzimuth
	cc.updatePosition()
}

// updatePosition recomputes the eye position from spherical coordinates.
// Caller must hold the mutex.
func (cc *controllerImpl) updatePosition() {
	cosElev := float32(math.Cos(float64(cc.elevation)))
	sinElev := float32(math.Sin(float64(cc.elevation)))
	cosAzim := float32(math.Cos(float64(cc.azimuth)))
	sinAzim := float32(math.Sin(float64(cc.azimuth)))

	cc.position = mgl32.Vec3{
		cc.target.X() + cc.radius*cosElev*sinAzim,
		cc.target.Y() + cc.radius*sinElev,
		cc.target.Z() + cc.radius*cosElev*cosAzim,
	}
}
