package monitor

// State is the controller's lifecycle state.
type State string

const (
	// StateStopped is the initial and final state.
	StateStopped State = "stopped"
	// StateStarting covers collaborator initialization.
	StateStarting State = "starting"
	// StateRunning means cycles are being scheduled.
	StateRunning State = "running"
	// StatePaused means scheduling is suspended; state is retained.
	StatePaused State = "paused"
	// StateStopping covers the wait for the in-flight cycle.
	StateStopping State = "stopping"
	// StateError is terminal, reached on unrecoverable failure.
	StateError State = "error"
)

// validTransitions encodes the lifecycle graph. Error is reachable from
// Starting and Running only; nothing leaves it.
var validTransitions = map[State][]State{
	StateStopped:  {StateStarting},
	StateStarting: {StateRunning, StateError},
	StateRunning:  {StatePaused, StateStopping, StateError},
	StatePaused:   {StateRunning, StateStopping},
	StateStopping: {StateStopped},
	StateError:    {},
}

// canTransition reports whether moving from one state to another is legal.
func canTransition(from, to State) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
