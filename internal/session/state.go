package session

// State describes the lifecycle phase of the managed session.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateOpen         State = "open"
	StateClosing      State = "closing"
	StateFailed       State = "failed"
)

var transitions = map[State][]State{
	StateDisconnected: {StateConnecting},
	StateConnecting:   {StateOpen, StateFailed},
	StateOpen:         {StateClosing},
	StateClosing:      {StateDisconnected},
	StateFailed:       {StateDisconnected},
}

// CanTransition reports whether s -> to is a legal lifecycle step.
func (s State) CanTransition(to State) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

func (s State) String() string {
	return string(s)
}
