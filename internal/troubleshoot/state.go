package troubleshoot

// State is a stage of one rca run.
type State string

const (
	StateIdle        State = "idle"
	StateDiscovering State = "discovering"
	StateCollecting  State = "collecting"
	StateCorrelating State = "correlating"
	StateAnalyzing   State = "analyzing"
	StateReporting   State = "reporting"
	StateInteractive State = "interactive"
	StateDone        State = "done"
	StateFailed      State = "failed"
)

var transitions = map[State][]State{
	StateIdle:        {StateDiscovering, StateCollecting},
	StateDiscovering: {StateCollecting, StateDone},
	StateCollecting:  {StateCorrelating, StateDone},
	StateCorrelating: {StateAnalyzing},
	StateAnalyzing:   {StateReporting},
	StateReporting:   {StateInteractive, StateDone},
	StateInteractive: {StateDone},
}

// canTransition reports whether from may move to to. Failed is reachable from
// every non-terminal state.
func canTransition(from, to State) bool {
	if from == StateDone || from == StateFailed {
		return false
	}
	if to == StateFailed {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
