package protocol

// Type identifies a wire message.
type Type byte

// Message types share their numeric values with the VSCode-side client, in
// declaration order. Client-to-server unless noted.
const (
	Diagnostics Type = iota
	RequestFile
	File
	StartDebugging
	StopDebugging
	Pause
	Continue
	RequestCallStack
	CallStack // server to client
	ClearBreakpoints
	SetBreakpoint
	HasStopped   // server to client
	HasContinued // server to client
	StepOver
	StepIn
	StepOut
	RequestSetVariable
	SetVariable // server to client
	RequestVariables
	Variables // server to client
	RequestEvaluate
	Evaluate // server to client
	Disconnect

	totalTypes
)

var typeNames = map[Type]string{
	Diagnostics:        "Diagnostics",
	RequestFile:        "RequestFile",
	File:               "File",
	StartDebugging:     "StartDebugging",
	StopDebugging:      "StopDebugging",
	Pause:              "Pause",
	Continue:           "Continue",
	RequestCallStack:   "RequestCallStack",
	CallStack:          "CallStack",
	ClearBreakpoints:   "ClearBreakpoints",
	SetBreakpoint:      "SetBreakpoint",
	HasStopped:         "HasStopped",
	HasContinued:       "HasContinued",
	StepOver:           "StepOver",
	StepIn:             "StepIn",
	StepOut:            "StepOut",
	RequestSetVariable: "RequestSetVariable",
	SetVariable:        "SetVariable",
	RequestVariables:   "RequestVariables",
	Variables:          "Variables",
	RequestEvaluate:    "RequestEvaluate",
	Evaluate:           "Evaluate",
	Disconnect:         "Disconnect",
}

// Known reports whether t is a message type this codec understands.
func (t Type) Known() bool {
	return t < totalTypes
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return "Unknown"
}

// Message is one decoded wire message. Immutable once produced by the decoder.
type Message struct {
	Type    Type
	Payload []byte
}

// StackFrame is one call-stack entry as it appears on the wire.
type StackFrame struct {
	Function string
	File     string
	Line     int32
}

// Variable is one name/value/type triple as it appears on the wire.
type Variable struct {
	Name  string
	Value string
	Type  string
}
