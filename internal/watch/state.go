package watch

import "fmt"

// State is the state of a Watcher's poll loop.
type State int32

const (
	// Starting is the initial state before the first query.
	Starting State = iota
	// Polling queries the scheduler at the normal interval.
	Polling
	// Backoff waits out a transient scheduler failure.
	Backoff
	// Terminal is final: the workflow ended or monitoring gave up.
	Terminal
)

func (s State) String() string {
	switch s {
	case Starting:
		return "starting"
	case Polling:
		return "polling"
	case Backoff:
		return "backoff"
	case Terminal:
		return "terminal"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// allowed lists the legal transitions of the poll loop.
var allowed = map[State][]State{
	Starting: {Polling},
	Polling:  {Polling, Backoff, Terminal},
	Backoff:  {Polling, Terminal},
}

func isAllowedTransition(from, to State) bool {
	for _, s := range allowed[from] {
		if s == to {
			return true
		}
	}
	return false
}
