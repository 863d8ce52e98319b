package viewer

// EventType identifies what an Element reports after a source change.
type EventType int

const (
	// EventLoad fires once the element has the new source on screen.
	EventLoad EventType = iota
	// EventError fires when the element could not display the source.
	EventError
)

func (t EventType) String() string {
	switch t {
	case EventLoad:
		return "load"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is delivered to subscribers of an Element.
type Event struct {
	Type   EventType
	Source string
	Err    error
}

// Element is a self-contained viewer component. It owns whatever it renders
// and only reports outcomes through events.
type Element interface {
	// SetSource points the element at a new asset. The element answers
	// asynchronously with exactly one EventLoad or EventError for that source,
	// unless a later SetSource supersedes it.
	SetSource(src string)

	// Source returns the last source set.
	Source() string

	// Subscribe registers fn for every future event.
	//
	// Parameters:
	//   - fn: called from the element's goroutine
	//
	// Returns:
	//   - func(): removes the subscription; safe to call more than once
	Subscribe(fn func(Event)) (unsubscribe func())

	// ResetTurntable restarts the element's auto-rotation from its initial angle.
	ResetTurntable()
}
