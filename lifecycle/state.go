package lifecycle

// State is the controller's position in its lifecycle.
type State int32

const (
	StateCreated State = iota
	StateStarting
	StateReady
	StateRestarting
	StateStopping
	StateStopped
	// StateFailed follows a failed bind. The initial one is terminal; after a
	// failed restart the next restart request tries again.
	StateFailed
)

var stateNames = [...]string{
	StateCreated:    "created",
	StateStarting:   "starting",
	StateReady:      "ready",
	StateRestarting: "restarting",
	StateStopping:   "stopping",
	StateStopped:    "stopped",
	StateFailed:     "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}
