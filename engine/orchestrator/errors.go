package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-view/engine/asset"
	"github.com/Carmen-Shannon/oxy-view/engine/viewer"
)

var (
	// ErrProbeUnreachable means the metadata probe reported the asset missing,
	// so no load was attempted.
	ErrProbeUnreachable = errors.New("asset unreachable")

	// ErrLoadParse means the asset was fetched or parsed unsuccessfully.
	ErrLoadParse = errors.New("asset failed to load")

	// ErrLoadTimeout means the load did not finish within its ceiling.
	ErrLoadTimeout = errors.New("asset load timed out")

	// ErrDegenerateGeometry means the asset loaded but its bounds were empty or
	// non-finite. It is not fatal: the object stays attached with default framing.
	ErrDegenerateGeometry = errors.New("asset has degenerate geometry")

	// ErrSuperseded means a newer request on the same session took over while
	// this one was settling.
	ErrSuperseded = errors.New("superseded by a newer request")
)

// LoadError is the error carried by a Result. Kind is one of the sentinels
// above; Err is the underlying cause, if any.
type LoadError struct {
	Kind error
	Ref  asset.Ref
	Err  error
}

func (e *LoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%v: %s: %v", e.Kind, e.Ref.Name(), e.Err)
	}
	return fmt.Sprintf("%v: %s", e.Kind, e.Ref.Name())
}

func (e *LoadError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Classify maps a backend error onto the taxonomy. Deadline and viewer
// timeouts become ErrLoadTimeout; everything else is ErrLoadParse.
func Classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, viewer.ErrTimeout):
		return ErrLoadTimeout
	default:
		return ErrLoadParse
	}
}

// Status strings shown to the user. They name the asset and are not parsed.

func StatusLoading(name string) string { return "Loading " + name }

func StatusShowing(name string) string { return "Showing: " + name }

func StatusUnreachable(name string) string { return "Asset unreachable: " + name }

func StatusTimedOut(name string) string { return "Timed out loading " + name }

func StatusFailed(name string, reason error) string {
	return fmt.Sprintf("Failed to load %s: %v", name, reason)
}
