package viewer

import "time"

// ViewerOption is a functional option for configuring a Viewer.
type ViewerOption func(*Viewer)

// WithTimeout sets how long Load waits for the element. Non-positive values keep DefaultTimeout.
//
// Parameters:
//   - timeout: the ceiling
//
// Returns:
//   - ViewerOption: a function that sets the ceiling
func WithTimeout(timeout time.Duration) ViewerOption {
	return func(v *Viewer) {
		if timeout > 0 {
			v.timeout = timeout
		}
	}
}
