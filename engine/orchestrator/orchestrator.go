// Package orchestrator drives one manual rendering surface through a load:
// probe, placeholder, fetch, one fallback retry, attach, framing and helpers.
package orchestrator

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-view/engine/asset"
	"github.com/Carmen-Shannon/oxy-view/engine/fitter"
	"github.com/Carmen-Shannon/oxy-view/engine/node"
	"github.com/Carmen-Shannon/oxy-view/engine/probe"
	"github.com/Carmen-Shannon/oxy-view/engine/session"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/rs/zerolog"
)

// zlog is the package logger. It discards output until SetLogger is called.
var zlog = zerolog.Nop()

// SetLogger installs a structured logger for lifecycle diagnostics.
func SetLogger(l zerolog.Logger) { zlog = l }

// BackendManual labels loads performed by the orchestrator's loader.
const BackendManual = "manual"

// AxesScale sizes the axis helper relative to the model's longest dimension.
const AxesScale = 0.75

var boundsColor = mgl32.Vec3{0.2, 0.9, 0.4}

// Loader produces a fresh, caller-owned object for ref.
type Loader interface {
	Load(ctx context.Context, ref asset.Ref) (*node.Node, error)
}

// Reflower re-applies viewport size and framing after a model is attached.
type Reflower interface {
	Reflow()
}

// Observer receives lifecycle measurements. internal/metrics implements it.
type Observer interface {
	ObserveProbe(reachable bool)
	ObserveLoad(backend, outcome string, elapsed time.Duration)
	ObserveRetry()
}

// Result is the outcome of one Load call.
type Result struct {
	State   State
	Ref     asset.Ref
	Object  *node.Node
	Frame   fitter.FrameResult
	Retries int
	Err     error

	// Stale is true when a newer request superseded this one. A stale result
	// changed nothing in the session.
	Stale bool
}

// OK reports whether the model was attached and is still current.
func (r Result) OK() bool { return r.State == StateLoaded && !r.Stale }

// Orchestrator runs loads against one session.
type Orchestrator struct {
	mu *sync.Mutex

	session  *session.Session
	loader   Loader
	camera   fitter.Camera
	prober   probe.Prober
	reflow   Reflower
	observer Observer
	margin   float32
	helpers  bool

	state State
}

// New creates an orchestrator for s.
//
// Parameters:
//   - s: the session the orchestrator mutates
//   - l: the manual loader
//   - cam: the camera framed after every successful load
//   - options: functional options
//
// Returns:
//   - *Orchestrator: the orchestrator
func New(s *session.Session, l Loader, cam fitter.Camera, options ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		mu:      &sync.Mutex{},
		session: s,
		loader:  l,
		camera:  cam,
		margin:  fitter.DefaultMargin,
		helpers: true,
	}
	for _, option := range options {
		option(o)
	}
	return o
}

// Session returns the session this orchestrator loads into.
func (o *Orchestrator) Session() *session.Session { return o.session }

// State returns the state of the most recent request.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) setState(tok session.Token, s State) {
	if !o.session.IsCurrent(tok) {
		return
	}
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
	zlog.Debug().Str("session", o.session.Name()).Stringer("state", s).Msg("load state")
}

// Load replaces whatever the session shows with ref. It never panics and never
// returns a bare error: failures are reported in Result.Err and through the
// session status, with the placeholder left on screen.
//
// Parameters:
//   - ctx: bounds probing and loading
//   - ref: the primary asset; its first fallback is tried once on failure
//
// Returns:
//   - Result: the terminal state of this request
func (o *Orchestrator) Load(ctx context.Context, ref asset.Ref) Result {
	tok := o.session.Begin()
	o.session.Replace(nil)
	o.session.ShowPlaceholder()
	o.session.SetStatusIfCurrent(tok, StatusLoading(ref.Name()))

	if o.prober != nil {
		o.setState(tok, StateProbing)
		reachable := o.prober.Probe(ctx, ref.ManualURL())
		if o.observer != nil {
			o.observer.ObserveProbe(reachable)
		}
		if !reachable {
			return o.fail(tok, ref, ref, &LoadError{Kind: ErrProbeUnreachable, Ref: ref}, 0)
		}
	}

	cur := ref
	for retries := 0; ; retries++ {
		o.setState(tok, StateLoading)
		start := time.Now()
		obj, err := o.loader.Load(ctx, cur)
		if err == nil {
			o.observeLoad("success", start)
			return o.settle(tok, cur, obj, retries)
		}

		kind := Classify(err)
		if kind == ErrLoadTimeout {
			o.observeLoad("timeout", start)
		} else {
			o.observeLoad("error", start)
		}
		zlog.Warn().Err(err).Str("session", o.session.Name()).Str("asset", cur.Name()).Msg("load failed")

		if !o.session.IsCurrent(tok) {
			return Result{State: StateFailed, Ref: cur, Retries: retries, Err: err, Stale: true}
		}
		if next, ok := cur.Fallback(); ok && retries == 0 && ctx.Err() == nil {
			o.setState(tok, StateRetrying)
			if o.observer != nil {
				o.observer.ObserveRetry()
			}
			zlog.Info().Str("asset", cur.Name()).Str("fallback", next.Name()).Msg("retrying with fallback")
			cur = next
			continue
		}
		return o.fail(tok, ref, cur, &LoadError{Kind: kind, Ref: cur, Err: err}, retries)
	}
}

func (o *Orchestrator) observeLoad(outcome string, start time.Time) {
	if o.observer != nil {
		o.observer.ObserveLoad(BackendManual, outcome, time.Since(start))
	}
}

// fail leaves the placeholder on screen and reports err in the status line.
func (o *Orchestrator) fail(tok session.Token, primary, cur asset.Ref, err *LoadError, retries int) Result {
	res := Result{State: StateFailed, Ref: cur, Retries: retries, Err: err}
	var status string
	switch {
	case errors.Is(err, ErrProbeUnreachable):
		status = StatusUnreachable(primary.Name())
	case errors.Is(err, ErrLoadTimeout):
		status = StatusTimedOut(primary.Name())
	default:
		status = StatusFailed(primary.Name(), err.Err)
	}
	if !o.session.SetStatusIfCurrent(tok, status) {
		res.Stale = true
		return res
	}
	o.setState(tok, StateFailed)
	return res
}

// settle attaches obj, then removes the placeholder, then frames the model.
// The placeholder and the model may share one frame. Every step after the
// attach re-checks tok, so a request superseded mid-settle leaves the newer
// request's helpers and framing alone and reports itself stale.
func (o *Orchestrator) settle(tok session.Token, ref asset.Ref, obj *node.Node, retries int) Result {
	stale := Result{State: StateLoaded, Ref: ref, Retries: retries, Err: ErrSuperseded, Stale: true}
	if !o.session.ReplaceIfCurrent(tok, obj) {
		return stale
	}
	o.session.RemovePlaceholderIfCurrent(tok)

	fitter.AutoScale(obj, fitter.DefaultUnit)
	if !o.session.IsCurrent(tok) {
		return stale
	}
	frame := fitter.Fit(obj, o.camera, o.margin)
	if !o.session.IsCurrent(tok) {
		o.reframeCurrent()
		return stale
	}

	res := Result{State: StateLoaded, Ref: ref, Object: obj, Retries: retries, Frame: frame}
	if !frame.Applied {
		res.Err = &LoadError{Kind: ErrDegenerateGeometry, Ref: ref}
		zlog.Warn().Str("asset", ref.Name()).Msg("degenerate bounds, keeping default framing")
	} else if o.helpers && !o.attachHelpers(tok, obj) {
		return stale
	}
	if o.reflow != nil {
		if !o.session.IsCurrent(tok) {
			return stale
		}
		o.reflow.Reflow()
	}

	if !o.session.SetStatusIfCurrent(tok, StatusShowing(ref.Name())) {
		return stale
	}
	o.setState(tok, StateLoaded)
	return res
}

// reframeCurrent fits the camera back onto whatever model the session now
// shows, undoing a Fit made by a request that lost the race.
func (o *Orchestrator) reframeCurrent() {
	if m := o.session.Model(); m != nil {
		fitter.Fit(m, o.camera, o.margin)
	}
}

// attachHelpers outlines the model's bounds and draws its axes. Failures here
// are logged and never affect the load. It reports false only when tok went
// stale before the helpers could be attached.
func (o *Orchestrator) attachHelpers(tok session.Token, obj *node.Node) (current bool) {
	current = true
	defer func() {
		if r := recover(); r != nil {
			zlog.Error().Interface("panic", r).Str("model", obj.Name()).Msg("helper construction failed")
		}
	}()
	b := node.WorldBounds(obj)
	return o.session.SetHelpersIfCurrent(tok,
		node.NewBoxHelper(b, boundsColor),
		node.NewAxesHelper(AxesScale*b.MaxDim()),
	)
}
