package session

import "github.com/Carmen-Shannon/oxy-view/engine/node"

// SessionOption is a functional option for configuring a Session.
type SessionOption func(*Session)

// WithStatusListener registers a callback invoked after every status change.
//
// Parameters:
//   - fn: receives the new status line
//
// Returns:
//   - SessionOption: a function that installs the listener
func WithStatusListener(fn func(status string)) SessionOption {
	return func(s *Session) {
		s.onStatus = fn
	}
}

// WithDisposeListener registers a callback invoked whenever the session frees resources.
//
// Parameters:
//   - fn: receives the counts of released resources
//
// Returns:
//   - SessionOption: a function that installs the listener
func WithDisposeListener(fn func(released node.Released)) SessionOption {
	return func(s *Session) {
		s.onDispose = fn
	}
}

// WithLights replaces the default lighting rig.
//
// Parameters:
//   - lights: root of the lighting nodes
//
// Returns:
//   - SessionOption: a function that sets the rig
func WithLights(lights *node.Node) SessionOption {
	return func(s *Session) {
		s.lights = lights
	}
}
