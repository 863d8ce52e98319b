package orchestrator

// State is a step of the load lifecycle.
type State int

const (
	StateIdle State = iota
	StateProbing
	StateLoading
	StateRetrying
	StateLoaded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateProbing:
		return "probing"
	case StateLoading:
		return "loading"
	case StateRetrying:
		return "retrying"
	case StateLoaded:
		return "loaded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether s ends a load attempt.
func (s State) Terminal() bool {
	return s == StateLoaded || s == StateFailed
}
