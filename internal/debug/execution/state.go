// Package execution defines the per-session execution states of the
// debugged interpreter and their wire representation.
package execution

// State is the execution state of one debug session. Exactly one state is
// current at any time; Dead is terminal.
type State int32

const (
	// Dead means the session has been stopped and refuses further events.
	Dead State = -1
	// Run means the interpreter executes freely.
	Run State = 0
	// Breakpoint means execution is suspended at a breakpoint hit.
	Breakpoint State = 1
	// Pause means a client requested suspension at the next line event.
	Pause State = 2
	// StepIn suspends at the next line regardless of call depth.
	StepIn State = 3
	// StepOver suspends at the next line at or above the starting frame.
	StepOver State = 4
	// StepOut suspends once execution returns to a shallower frame.
	StepOut State = 5
	// Exception means an uncaught script error captured a stop.
	Exception State = 6
)

var stateNames = map[State]string{
	Dead:       "Dead",
	Run:        "Run",
	Breakpoint: "Breakpoint",
	Pause:      "Pause",
	StepIn:     "StepIn",
	StepOver:   "StepOver",
	StepOut:    "StepOut",
	Exception:  "Exception",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "Invalid"
}

// Valid reports whether s is a defined state.
func (s State) Valid() bool {
	_, ok := stateNames[s]
	return ok
}

// StopReason is the HasStopped reason string for a state.
func (s State) StopReason() string {
	switch s {
	case Breakpoint:
		return "Breakpoint"
	case Pause:
		return "Pause"
	case StepIn:
		return "Step in"
	case StepOver:
		return "Step over"
	case StepOut:
		return "Step out"
	case Exception:
		return "exception"
	default:
		return s.String()
	}
}

// Byte is the single-octet wire form used by state-switch messages.
func (s State) Byte() byte {
	return byte(int8(s))
}

// FromByte converts a wire state byte back to a State.
func FromByte(b byte) State {
	return State(int8(b))
}
