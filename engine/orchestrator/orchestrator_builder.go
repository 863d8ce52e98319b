package orchestrator

import (
	"github.com/Carmen-Shannon/oxy-view/common"
	"github.com/Carmen-Shannon/oxy-view/engine/fitter"
	"github.com/Carmen-Shannon/oxy-view/engine/probe"
)

// OrchestratorOption is a functional option for configuring an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithProber enables the metadata probe before each load.
//
// Parameters:
//   - p: the prober; nil disables probing
//
// Returns:
//   - OrchestratorOption: a function that sets the prober
func WithProber(p probe.Prober) OrchestratorOption {
	return func(o *Orchestrator) {
		o.prober = p
	}
}

// WithReflower sets the reflow run after each successful attach.
func WithReflower(r Reflower) OrchestratorOption {
	return func(o *Orchestrator) {
		o.reflow = r
	}
}

// WithObserver sets the metrics observer.
func WithObserver(obs Observer) OrchestratorOption {
	return func(o *Orchestrator) {
		o.observer = obs
	}
}

// WithMargin sets the fit margin, clamped to [fitter.MinMargin, fitter.MaxMargin].
//
// Parameters:
//   - margin: the distance multiplier
//
// Returns:
//   - OrchestratorOption: a function that sets the margin
func WithMargin(margin float32) OrchestratorOption {
	return func(o *Orchestrator) {
		if margin > 0 {
			o.margin = common.Clamp(margin, fitter.MinMargin, fitter.MaxMargin)
		}
	}
}

// WithHelpers toggles the bounds and axes helpers.
func WithHelpers(enabled bool) OrchestratorOption {
	return func(o *Orchestrator) {
		o.helpers = enabled
	}
}
