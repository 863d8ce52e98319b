// Package selector routes asset selections to a declarative viewer element when
// one is registered for the asset, and to the manual scene otherwise.
package selector

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-view/common"
	"github.com/Carmen-Shannon/oxy-view/engine/asset"
	"github.com/Carmen-Shannon/oxy-view/engine/orchestrator"
	"github.com/Carmen-Shannon/oxy-view/engine/viewer"
	"github.com/rs/zerolog"
)

// zlog is the package logger. It discards output until SetLogger is called.
var zlog = zerolog.Nop()

// SetLogger installs a structured logger for selection events.
func SetLogger(l zerolog.Logger) { zlog = l }

// DefaultAsset is shown when nothing is marked active.
const DefaultAsset = "self-portrait2.glb"

// BackendDeclarative labels loads performed by a viewer element.
const BackendDeclarative = "declarative"

// ErrNoBackend is returned for an asset with neither a viewer element nor a manual scene.
var ErrNoBackend = errors.New("no backend available")

// RefFunc builds the reference for an asset name.
type RefFunc func(name string) asset.Ref

// RefsUnder returns a RefFunc resolving names under base. When cacheBust is set
// every reference carries a fresh cache-defeating query.
//
// Parameters:
//   - base: local directory or http(s) URL
//   - cacheBust: append asset.CacheBust(time.Now()) to each reference
//
// Returns:
//   - RefFunc: the reference builder
func RefsUnder(base string, cacheBust bool) RefFunc {
	return func(name string) asset.Ref {
		opts := []asset.RefOption{asset.WithBase(base)}
		if cacheBust {
			opts = append(opts, asset.WithCacheQuery(asset.CacheBust(time.Now())))
		}
		return asset.NewRef(name, opts...)
	}
}

// Selector maps each asset name to exactly one backend at a time and tracks
// which asset the UI marks active.
type Selector struct {
	mu *sync.Mutex

	assets      []string
	refFor      RefFunc
	declarative map[string]*viewer.Viewer
	manual      *orchestrator.Orchestrator
	previews    []*Preview
	setStatus   func(string)
	observer    orchestrator.Observer
	onChange    func(active string)

	activeButton  string
	activePreview string
	visible       *viewer.Viewer
	focus         int
	seq           uint64
}

// New creates a selector over assets, falling back to manual for any asset
// without a declarative element.
//
// Parameters:
//   - assets: ordered asset names; digit keys index into this list
//   - manual: the manual scene's orchestrator
//   - options: functional options
//
// Returns:
//   - *Selector: the selector
func New(assets []string, manual *orchestrator.Orchestrator, options ...SelectorOption) *Selector {
	s := &Selector{
		mu:          &sync.Mutex{},
		assets:      append([]string(nil), assets...),
		refFor:      func(name string) asset.Ref { return asset.NewRef(name) },
		declarative: make(map[string]*viewer.Viewer),
		manual:      manual,
		focus:       -1,
	}
	if manual != nil {
		s.setStatus = manual.Session().SetStatus
	}
	for _, option := range options {
		option(s)
	}
	return s
}

func (s *Selector) Assets() []string { return append([]string(nil), s.assets...) }

func (s *Selector) Previews() []*Preview { return s.previews }

// Active returns the asset the UI marks active, or "" after a failed manual load.
func (s *Selector) Active() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeButton
}

// Visible returns the declarative viewer on screen, or nil when the manual
// scene is showing.
func (s *Selector) Visible() *viewer.Viewer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.visible
}

// Initial returns the asset to show first: the active button, else the active
// preview, else DefaultAsset.
func (s *Selector) Initial() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return common.Coalesce(s.activeButton, s.activePreview, DefaultAsset)
}

// Show displays name. The declarative element is tried first when one is
// registered; on its failure the manual scene loads the same asset. The active
// indicator moves only after a confirmed success.
//
// Parameters:
//   - ctx: bounds both backends
//   - name: the asset to show
//
// Returns:
//   - error: nil when the asset is on screen
func (s *Selector) Show(ctx context.Context, name string) error {
	s.mu.Lock()
	s.seq++
	seq := s.seq
	v := s.declarative[name]
	s.mu.Unlock()

	ref := s.refFor(name)
	var declErr error
	if v != nil {
		start := time.Now()
		declErr = v.Load(ctx, ref)
		s.observeDeclarative(declErr, start)
		if declErr == nil {
			if s.commit(seq, name, v) {
				v.ResetTurntable()
				s.status(orchestrator.StatusShowing(name))
			}
			return nil
		}
		zlog.Warn().Err(declErr).Str("asset", name).Msg("declarative viewer failed")
	}

	if s.manual == nil {
		if declErr == nil {
			declErr = ErrNoBackend
		}
		err := &orchestrator.LoadError{Kind: orchestrator.Classify(declErr), Ref: ref, Err: declErr}
		if s.clear(seq) {
			if errors.Is(err, orchestrator.ErrLoadTimeout) {
				s.status(orchestrator.StatusTimedOut(name))
			} else {
				s.status(orchestrator.StatusFailed(name, declErr))
			}
		}
		return err
	}
	res := s.manual.Load(ctx, ref)
	if res.OK() {
		s.commit(seq, name, nil)
		return nil
	}
	if !res.Stale {
		s.clear(seq)
	}
	return res.Err
}

// Key maps a key press onto an asset: digits 1..9 pick the n-th asset, Enter
// or Space pick the focused preview and Tab moves preview focus.
//
// Parameters:
//   - key: the key code as reported by the window
//
// Returns:
//   - string: the asset to show
//   - bool: false when the key selects nothing
func (s *Selector) Key(key int) (string, bool) {
	if i := common.DigitIndex(key); i >= 0 {
		if i < len(s.assets) {
			return s.assets[i], true
		}
		return "", false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case key == common.KeyTab && len(s.previews) > 0:
		s.focus = (s.focus + 1) % len(s.previews)
	case common.IsActivationKey(key) && s.focus >= 0 && s.focus < len(s.previews):
		return s.previews[s.focus].Name(), true
	}
	return "", false
}

// Focused returns the index of the focused preview, or -1.
func (s *Selector) Focused() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.focus
}

// Click returns the asset of the i-th preview tile.
func (s *Selector) Click(i int) (string, bool) {
	if i < 0 || i >= len(s.previews) {
		return "", false
	}
	s.mu.Lock()
	s.focus = i
	s.mu.Unlock()
	return s.previews[i].Name(), true
}

func (s *Selector) commit(seq uint64, name string, v *viewer.Viewer) bool {
	s.mu.Lock()
	if seq != s.seq {
		s.mu.Unlock()
		return false
	}
	s.activeButton = name
	s.activePreview = name
	s.visible = v
	fn := s.onChange
	s.mu.Unlock()
	if fn != nil {
		fn(name)
	}
	return true
}

func (s *Selector) clear(seq uint64) bool {
	s.mu.Lock()
	if seq != s.seq {
		s.mu.Unlock()
		return false
	}
	s.activeButton = ""
	s.activePreview = ""
	s.visible = nil
	fn := s.onChange
	s.mu.Unlock()
	if fn != nil {
		fn("")
	}
	return true
}

func (s *Selector) status(msg string) {
	if s.setStatus != nil {
		s.setStatus(msg)
	}
}

func (s *Selector) observeDeclarative(err error, start time.Time) {
	if s.observer == nil {
		return
	}
	outcome := "success"
	switch {
	case errors.Is(err, viewer.ErrTimeout):
		outcome = "timeout"
	case err != nil:
		outcome = "error"
	}
	s.observer.ObserveLoad(BackendDeclarative, outcome, time.Since(start))
}
