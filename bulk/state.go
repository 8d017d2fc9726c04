package bulk

import "fmt"

type State int32

const (
	StateNotStarted State = iota
	StateInitializing
	StateImporting
	StateDraining
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "NotStarted"
	case StateInitializing:
		return "Initializing"
	case StateImporting:
		return "Importing"
	case StateDraining:
		return "Draining"
	case StateCompleted:
		return "Completed"
	case StateFailed:
		return "Failed"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// validTransitions lists the allowed successor states.
var validTransitions = map[State][]State{
	StateNotStarted:   {StateInitializing},
	StateInitializing: {StateImporting, StateFailed},
	StateImporting:    {StateDraining, StateFailed},
	StateDraining:     {StateCompleted, StateFailed},
}

func (s State) canTransition(to State) bool {
	for _, next := range validTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}
