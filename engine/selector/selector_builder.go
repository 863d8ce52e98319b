package selector

import (
	"github.com/Carmen-Shannon/oxy-view/engine/orchestrator"
	"github.com/Carmen-Shannon/oxy-view/engine/viewer"
)

// SelectorOption is a functional option for configuring a Selector.
type SelectorOption func(*Selector)

// WithDeclarative registers a viewer element for one asset.
//
// Parameters:
//   - name: the asset the element shows
//   - v: the viewer wrapping the element
//
// Returns:
//   - SelectorOption: a function that registers the viewer
func WithDeclarative(name string, v *viewer.Viewer) SelectorOption {
	return func(s *Selector) {
		if v != nil {
			s.declarative[name] = v
		}
	}
}

// WithRefFunc sets how asset names become references.
func WithRefFunc(fn RefFunc) SelectorOption {
	return func(s *Selector) {
		if fn != nil {
			s.refFor = fn
		}
	}
}

// WithStatusSink replaces where status lines are written. By default they go
// to the manual session.
func WithStatusSink(fn func(status string)) SelectorOption {
	return func(s *Selector) {
		s.setStatus = fn
	}
}

// WithObserver sets the metrics observer for declarative loads.
func WithObserver(obs orchestrator.Observer) SelectorOption {
	return func(s *Selector) {
		s.observer = obs
	}
}

// WithChangeListener is called with the new active asset, or "" when cleared.
func WithChangeListener(fn func(active string)) SelectorOption {
	return func(s *Selector) {
		s.onChange = fn
	}
}

// WithActive marks an asset's button active before the first Show.
func WithActive(name string) SelectorOption {
	return func(s *Selector) {
		s.activeButton = name
	}
}

// WithActivePreview marks an asset's preview tile active before the first Show.
func WithActivePreview(name string) SelectorOption {
	return func(s *Selector) {
		s.activePreview = name
	}
}

// WithPreviews attaches preview tiles for click and keyboard selection.
func WithPreviews(previews ...*Preview) SelectorOption {
	return func(s *Selector) {
		s.previews = append(s.previews, previews...)
	}
}
