// Package viewer drives declarative viewer elements: components that are handed
// a source string and later report load or error events.
package viewer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Carmen-Shannon/oxy-view/engine/asset"
	"github.com/rs/zerolog"
)

// zlog is the package logger. It discards output until SetLogger is called.
var zlog = zerolog.Nop()

// SetLogger installs a structured logger for viewer diagnostics.
func SetLogger(l zerolog.Logger) { zlog = l }

// DefaultTimeout is the ceiling a Load waits for the element to answer.
const DefaultTimeout = 12 * time.Second

var (
	// ErrTimeout is returned when the element does not answer within the ceiling.
	ErrTimeout = errors.New("viewer did not report a result in time")

	// ErrElement is returned when the element reports an error event.
	ErrElement = errors.New("viewer reported an error")
)

// Viewer loads assets into one Element and waits for its verdict.
type Viewer struct {
	element Element
	timeout time.Duration
}

// New creates a Viewer around el.
//
// Parameters:
//   - el: the element to drive
//   - options: functional options
//
// Returns:
//   - *Viewer: the viewer
func New(el Element, options ...ViewerOption) *Viewer {
	v := &Viewer{element: el, timeout: DefaultTimeout}
	for _, option := range options {
		option(v)
	}
	return v
}

// Element returns the element this viewer drives.
func (v *Viewer) Element() Element { return v.element }

// Timeout returns the ceiling applied to each Load.
func (v *Viewer) Timeout() time.Duration { return v.timeout }

// Load sets the element's source to ref's raw viewer form and blocks until the
// element answers, the ceiling passes or ctx ends. The first event wins; the
// subscription is removed before Load returns.
//
// Parameters:
//   - ctx: aborts the wait
//   - ref: the asset to show
//
// Returns:
//   - error: nil on EventLoad; wraps ErrElement, ErrTimeout or ctx.Err() otherwise
func (v *Viewer) Load(ctx context.Context, ref asset.Ref) error {
	src := ref.ViewerSource()
	done := make(chan Event, 1)
	unsubscribe := v.element.Subscribe(func(e Event) {
		if e.Source != "" && e.Source != src {
			return
		}
		select {
		case done <- e:
		default:
		}
	})
	defer unsubscribe()

	timer := time.NewTimer(v.timeout)
	defer timer.Stop()

	v.element.SetSource(src)

	select {
	case e := <-done:
		if e.Type == EventLoad {
			zlog.Debug().Str("asset", ref.Name()).Msg("viewer loaded")
			return nil
		}
		if e.Err != nil {
			return fmt.Errorf("%w: %s: %w", ErrElement, ref.Name(), e.Err)
		}
		return fmt.Errorf("%w: %s", ErrElement, ref.Name())
	case <-timer.C:
		zlog.Warn().Str("asset", ref.Name()).Dur("timeout", v.timeout).Msg("viewer timed out")
		return fmt.Errorf("%w: %s after %s", ErrTimeout, ref.Name(), v.timeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ResetTurntable restarts the element's auto-rotation.
func (v *Viewer) ResetTurntable() {
	v.element.ResetTurntable()
}
