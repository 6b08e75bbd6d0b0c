package engine

// State is the process-wide lifecycle state, owned by the Engine and read by
// the search.status handler.
type State int

const (
	StateIdle State = iota
	StateSearching
	StateShuttingDown
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSearching:
		return "searching"
	case StateShuttingDown:
		return "shutting_down"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}
