package protocol

import "fmt"

// Typed payload models and their encode/decode pairs. Field order matches
// the client: strings are length-prefixed with a trailing NUL, integers are
// signed 32-bit little-endian.

// SetBreakpointArgs models SetBreakpoint.
type SetBreakpointArgs struct {
	File string
	Line int32
	ID   int32
}

// RequestSetVariableArgs models RequestSetVariable.
type RequestSetVariableArgs struct {
	Name  string
	Value string
	Index int32
}

// RequestEvaluateArgs models RequestEvaluate.
type RequestEvaluateArgs struct {
	Path    string
	FrameID int32
}

// HasStoppedArgs models HasStopped. Reason is carried twice on the wire,
// followed by the detail text.
type HasStoppedArgs struct {
	Reason string
	Text   string
}

// EncodeRequestFile builds a RequestFile message.
func EncodeRequestFile(file string) Message {
	w := NewWriter()
	w.PutString(file)
	return Message{Type: RequestFile, Payload: w.Bytes()}
}

// DecodeRequestFile extracts the attached filename.
func DecodeRequestFile(m Message) (string, error) {
	file, err := NewReader(m.Payload).String()
	if err != nil {
		return "", fmt.Errorf("decode RequestFile: %w", err)
	}
	return file, nil
}

// EncodeStateSwitch builds one of the state-switch messages
// (Pause/Continue/StepIn/StepOver/StepOut) carrying the requested state byte.
func EncodeStateSwitch(t Type, state byte) Message {
	w := NewWriter()
	w.PutByte(state)
	return Message{Type: t, Payload: w.Bytes()}
}

// DecodeStateSwitch extracts the requested state byte.
func DecodeStateSwitch(m Message) (byte, error) {
	state, err := NewReader(m.Payload).Byte()
	if err != nil {
		return 0, fmt.Errorf("decode %s: %w", m.Type, err)
	}
	return state, nil
}

// EncodeSetBreakpoint builds a SetBreakpoint message.
func EncodeSetBreakpoint(args SetBreakpointArgs) Message {
	w := NewWriter()
	w.PutString(args.File)
	w.PutInt(args.Line)
	w.PutInt(args.ID)
	return Message{Type: SetBreakpoint, Payload: w.Bytes()}
}

// DecodeSetBreakpoint extracts breakpoint placement arguments.
func DecodeSetBreakpoint(m Message) (SetBreakpointArgs, error) {
	r := NewReader(m.Payload)
	var args SetBreakpointArgs
	var err error
	if args.File, err = r.String(); err != nil {
		return args, fmt.Errorf("decode SetBreakpoint file: %w", err)
	}
	if args.Line, err = r.Int(); err != nil {
		return args, fmt.Errorf("decode SetBreakpoint line: %w", err)
	}
	if args.ID, err = r.Int(); err != nil {
		return args, fmt.Errorf("decode SetBreakpoint id: %w", err)
	}
	return args, nil
}

// EncodeClearBreakpoints builds a ClearBreakpoints message.
func EncodeClearBreakpoints(file string) Message {
	w := NewWriter()
	w.PutString(file)
	return Message{Type: ClearBreakpoints, Payload: w.Bytes()}
}

// DecodeClearBreakpoints extracts the target filename.
func DecodeClearBreakpoints(m Message) (string, error) {
	file, err := NewReader(m.Payload).String()
	if err != nil {
		return "", fmt.Errorf("decode ClearBreakpoints: %w", err)
	}
	return file, nil
}

// EncodeRequestVariables builds a RequestVariables message.
func EncodeRequestVariables(scope string) Message {
	w := NewWriter()
	w.PutString(scope)
	return Message{Type: RequestVariables, Payload: w.Bytes()}
}

// DecodeRequestVariables extracts the scope selector.
func DecodeRequestVariables(m Message) (string, error) {
	scope, err := NewReader(m.Payload).String()
	if err != nil {
		return "", fmt.Errorf("decode RequestVariables: %w", err)
	}
	return scope, nil
}

// EncodeRequestEvaluate builds a RequestEvaluate message.
func EncodeRequestEvaluate(args RequestEvaluateArgs) Message {
	w := NewWriter()
	w.PutString(args.Path)
	w.PutInt(args.FrameID)
	return Message{Type: RequestEvaluate, Payload: w.Bytes()}
}

// DecodeRequestEvaluate extracts evaluate arguments.
func DecodeRequestEvaluate(m Message) (RequestEvaluateArgs, error) {
	r := NewReader(m.Payload)
	var args RequestEvaluateArgs
	var err error
	if args.Path, err = r.String(); err != nil {
		return args, fmt.Errorf("decode RequestEvaluate path: %w", err)
	}
	if args.FrameID, err = r.Int(); err != nil {
		return args, fmt.Errorf("decode RequestEvaluate frame: %w", err)
	}
	return args, nil
}

// EncodeRequestSetVariable builds a RequestSetVariable message.
func EncodeRequestSetVariable(args RequestSetVariableArgs) Message {
	w := NewWriter()
	w.PutString(args.Name)
	w.PutString(args.Value)
	w.PutInt(args.Index)
	return Message{Type: RequestSetVariable, Payload: w.Bytes()}
}

// DecodeRequestSetVariable extracts set-variable arguments.
func DecodeRequestSetVariable(m Message) (RequestSetVariableArgs, error) {
	r := NewReader(m.Payload)
	var args RequestSetVariableArgs
	var err error
	if args.Name, err = r.String(); err != nil {
		return args, fmt.Errorf("decode RequestSetVariable name: %w", err)
	}
	if args.Value, err = r.String(); err != nil {
		return args, fmt.Errorf("decode RequestSetVariable value: %w", err)
	}
	if args.Index, err = r.Int(); err != nil {
		return args, fmt.Errorf("decode RequestSetVariable index: %w", err)
	}
	return args, nil
}

// EncodeEmpty builds a message with no payload (RequestCallStack,
// StopDebugging, Disconnect, StartDebugging, HasContinued).
func EncodeEmpty(t Type) Message {
	return Message{Type: t}
}

// EncodeHasStopped builds a HasStopped notification.
func EncodeHasStopped(args HasStoppedArgs) Message {
	w := NewWriter()
	w.PutString(args.Reason)
	w.PutString(args.Reason)
	w.PutString(args.Text)
	return Message{Type: HasStopped, Payload: w.Bytes()}
}

// DecodeHasStopped extracts stop notification arguments.
func DecodeHasStopped(m Message) (HasStoppedArgs, error) {
	r := NewReader(m.Payload)
	var args HasStoppedArgs
	var err error
	if args.Reason, err = r.String(); err != nil {
		return args, fmt.Errorf("decode HasStopped reason: %w", err)
	}
	// The reason is duplicated on the wire.
	if _, err = r.String(); err != nil {
		return args, fmt.Errorf("decode HasStopped reason copy: %w", err)
	}
	if args.Text, err = r.String(); err != nil {
		return args, fmt.Errorf("decode HasStopped text: %w", err)
	}
	return args, nil
}

// EncodeCallStack builds a CallStack response.
func EncodeCallStack(frames []StackFrame) Message {
	w := NewWriter()
	w.PutInt(int32(len(frames)))
	for _, frame := range frames {
		w.PutString(frame.Function)
		w.PutString(frame.File)
		w.PutInt(frame.Line)
	}
	return Message{Type: CallStack, Payload: w.Bytes()}
}

// DecodeCallStack extracts a CallStack response.
func DecodeCallStack(m Message) ([]StackFrame, error) {
	r := NewReader(m.Payload)
	count, err := r.Int()
	if err != nil {
		return nil, fmt.Errorf("decode CallStack count: %w", err)
	}
	frames := make([]StackFrame, 0, count)
	for i := int32(0); i < count; i++ {
		var frame StackFrame
		if frame.Function, err = r.String(); err != nil {
			return nil, fmt.Errorf("decode CallStack frame %d function: %w", i, err)
		}
		if frame.File, err = r.String(); err != nil {
			return nil, fmt.Errorf("decode CallStack frame %d file: %w", i, err)
		}
		if frame.Line, err = r.Int(); err != nil {
			return nil, fmt.Errorf("decode CallStack frame %d line: %w", i, err)
		}
		frames = append(frames, frame)
	}
	return frames, nil
}

// EncodeVariables builds a Variables response. Each entry carries a reserved
// trailing flags word.
func EncodeVariables(scope string, vars []Variable) Message {
	w := NewWriter()
	w.PutString(scope)
	w.PutInt(int32(len(vars)))
	for _, v := range vars {
		w.PutString(v.Name)
		w.PutString(v.Value)
		w.PutString(v.Type)
		w.PutInt(0)
	}
	return Message{Type: Variables, Payload: w.Bytes()}
}

// DecodeVariables extracts a Variables response.
func DecodeVariables(m Message) (string, []Variable, error) {
	r := NewReader(m.Payload)
	scope, err := r.String()
	if err != nil {
		return "", nil, fmt.Errorf("decode Variables scope: %w", err)
	}
	count, err := r.Int()
	if err != nil {
		return "", nil, fmt.Errorf("decode Variables count: %w", err)
	}
	vars := make([]Variable, 0, count)
	for i := int32(0); i < count; i++ {
		v, err := decodeVariableEntry(r)
		if err != nil {
			return "", nil, fmt.Errorf("decode Variables entry %d: %w", i, err)
		}
		vars = append(vars, v)
	}
	return scope, vars, nil
}

// EncodeEvaluate builds an Evaluate response.
func EncodeEvaluate(v Variable) Message {
	w := NewWriter()
	w.PutString(v.Name)
	w.PutString(v.Value)
	w.PutString(v.Type)
	w.PutInt(0)
	return Message{Type: Evaluate, Payload: w.Bytes()}
}

// DecodeEvaluate extracts an Evaluate response.
func DecodeEvaluate(m Message) (Variable, error) {
	v, err := decodeVariableEntry(NewReader(m.Payload))
	if err != nil {
		return Variable{}, fmt.Errorf("decode Evaluate: %w", err)
	}
	return v, nil
}

// EncodeSetVariable builds a SetVariable response.
func EncodeSetVariable(success bool) Message {
	w := NewWriter()
	var v int32
	if success {
		v = 1
	}
	w.PutInt(v)
	return Message{Type: SetVariable, Payload: w.Bytes()}
}

// DecodeSetVariable extracts a SetVariable response.
func DecodeSetVariable(m Message) (bool, error) {
	v, err := NewReader(m.Payload).Int()
	if err != nil {
		return false, fmt.Errorf("decode SetVariable: %w", err)
	}
	return v != 0, nil
}

func decodeVariableEntry(r *Reader) (Variable, error) {
	var v Variable
	var err error
	if v.Name, err = r.String(); err != nil {
		return v, fmt.Errorf("name: %w", err)
	}
	if v.Value, err = r.String(); err != nil {
		return v, fmt.Errorf("value: %w", err)
	}
	if v.Type, err = r.String(); err != nil {
		return v, fmt.Errorf("type: %w", err)
	}
	if _, err = r.Int(); err != nil {
		return v, fmt.Errorf("flags: %w", err)
	}
	return v, nil
}
