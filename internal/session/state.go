package session

// State is a step of the frame loop.
type State int32

// Loop states. A frame moves AwaitingFrame -> Detecting -> Grouping ->
// Idle, passing through Recording when a capture trigger is pending.
const (
	AwaitingFrame State = iota
	Detecting
	Grouping
	Idle
	Recording
	Stopped
)

var stateNames = [...]string{
	AwaitingFrame: "awaiting_frame",
	Detecting:     "detecting",
	Grouping:      "grouping",
	Idle:          "idle",
	Recording:     "recording",
	Stopped:       "stopped",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}
