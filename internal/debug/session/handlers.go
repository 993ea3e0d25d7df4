package session

import (
	"errors"

	"github.com/sourcepawn-tools/remote-debug/internal/debug/breakpoint"
	"github.com/sourcepawn-tools/remote-debug/internal/debug/execution"
	"github.com/sourcepawn-tools/remote-debug/internal/debug/inspect"
	"github.com/sourcepawn-tools/remote-debug/internal/debug/protocol"
)

// ErrDisconnect is returned by Handle when the client asked to close the
// connection.
var ErrDisconnect = errors.New("client requested disconnect")

// Handle processes one inbound client message. It runs on the network
// goroutine and never blocks on the interpreter.
func (s *Session) Handle(m protocol.Message) error {
	switch m.Type {
	case protocol.RequestFile, protocol.StartDebugging:
		file, err := protocol.DecodeRequestFile(m)
		if err != nil {
			return err
		}
		s.AttachFile(file)
		return nil

	case protocol.Pause, protocol.Continue,
		protocol.StepIn, protocol.StepOver, protocol.StepOut:
		b, err := protocol.DecodeStateSwitch(m)
		if err != nil {
			return err
		}
		s.switchState(execution.FromByte(b))
		return nil

	case protocol.SetBreakpoint:
		args, err := protocol.DecodeSetBreakpoint(m)
		if err != nil {
			return err
		}
		file := breakpoint.NormalizeFile(args.File)
		s.mu.Lock()
		s.files[file] = struct{}{}
		s.mu.Unlock()
		s.breaks.Set(file, int(args.Line), int(args.ID))
		s.log.Debug("breakpoint set", "file", file, "line", args.Line)
		return nil

	case protocol.ClearBreakpoints:
		file, err := protocol.DecodeClearBreakpoints(m)
		if err != nil {
			return err
		}
		s.breaks.Clear(breakpoint.NormalizeFile(file))
		return nil

	case protocol.RequestCallStack:
		s.handleCallStack()
		return nil

	case protocol.RequestVariables:
		scope, err := protocol.DecodeRequestVariables(m)
		if err != nil {
			return err
		}
		s.handleVariables(scope)
		return nil

	case protocol.RequestEvaluate:
		args, err := protocol.DecodeRequestEvaluate(m)
		if err != nil {
			return err
		}
		s.handleEvaluate(args.Path)
		return nil

	case protocol.RequestSetVariable:
		args, err := protocol.DecodeRequestSetVariable(m)
		if err != nil {
			return err
		}
		s.handleSetVariable(args)
		return nil

	case protocol.StopDebugging:
		s.StopDebugging()
		return nil

	case protocol.Disconnect:
		return ErrDisconnect

	default:
		s.log.Warn("unhandled message", "type", m.Type)
		return nil
	}
}

// switchState installs the client's requested state and wakes any parked
// interpreter thread. A HasContinued acknowledgment goes out only when a
// stopped thread is actually released.
func (s *Session) switchState(next execution.State) {
	if !next.Valid() || next == execution.Dead {
		s.log.Warn("ignoring invalid state switch", "state", next)
		return
	}
	s.mu.Lock()
	if s.state == execution.Dead {
		s.mu.Unlock()
		return
	}
	wasParked := s.suspended
	s.state = next
	s.mu.Unlock()

	s.walk.Resume(next)
	if wasParked {
		s.send(protocol.EncodeEmpty(protocol.HasContinued))
	}
	s.log.Debug("state switch", "state", next)
}

// StopDebugging makes the session refuse further events and releases the
// interpreter for good.
func (s *Session) StopDebugging() {
	s.Shutdown()
	s.log.Info("debugging stopped by client")
}

func (s *Session) handleCallStack() {
	s.mu.Lock()
	var frames []protocol.StackFrame
	switch {
	case s.state == execution.Exception && s.haveError:
		// The captured stack is valid for one answer; afterwards the
		// session behaves like an ordinary breakpoint stop.
		frames = s.errFrames
		s.errFrames = nil
		s.haveError = false
		s.state = execution.Breakpoint
	case s.state != execution.Run && s.host.Provider != nil:
		frames = inspect.BuildFrames(s.host.Provider.Frames(), s.resolveFileLocked)
	}
	s.mu.Unlock()
	s.send(protocol.EncodeCallStack(frames))
}

func (s *Session) handleVariables(scope string) {
	ctx, ok := s.inspectContext()
	var vars []protocol.Variable
	if ok {
		vars = s.inspector.Variables(ctx, scope)
	}
	s.send(protocol.EncodeVariables(scope, vars))
}

func (s *Session) handleEvaluate(path string) {
	var v protocol.Variable
	if ctx, ok := s.inspectContext(); ok {
		v, _ = s.inspector.Evaluate(ctx, path)
	}
	v.Name = path
	if v.Type == "" {
		v.Type = "N/A"
	}
	s.send(protocol.EncodeEvaluate(v))
}

func (s *Session) handleSetVariable(args protocol.RequestSetVariableArgs) {
	success := false
	if ctx, ok := s.inspectContext(); ok {
		success = s.inspector.SetVariable(ctx, args.Name, args.Value, int(args.Index))
	}
	s.send(protocol.EncodeSetVariable(success))
}

// inspectContext snapshots the stopped thread's position. Inspection is
// refused while the interpreter runs freely; symbol lookups need a stable
// frame.
func (s *Session) inspectContext() (inspect.Context, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == execution.Run || s.host.Provider == nil {
		return inspect.Context{}, false
	}
	return inspect.Context{
		Provider: s.host.Provider,
		Memory:   s.host.Memory,
		CIP:      s.cip,
		Frame:    s.frm,
	}, true
}
