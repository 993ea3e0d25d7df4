package session

import (
	"github.com/sourcepawn-tools/remote-debug/internal/debug/execution"
	"github.com/sourcepawn-tools/remote-debug/internal/debug/inspect"
	"github.com/sourcepawn-tools/remote-debug/internal/debug/protocol"
)

// OnBreak is the interpreter's line hook. It runs on the interpreter
// thread and may block inside suspendLocked until the client sends a
// resume command. The returned state tells the host what the session
// wants next; Dead asks it to abandon this session.
func (s *Session) OnBreak(host HostContext, info BreakInfo) execution.State {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == execution.Dead {
		return execution.Dead
	}
	s.host = host
	s.cip = info.CIP
	s.frm = info.Frame
	s.walk.Arm()

	line, ok := host.Provider.LookupLine(info.CIP)
	if !ok {
		return s.state
	}
	// Several instructions share one line; stop at most once per line.
	if line == s.lastLine {
		return s.state
	}
	s.lastLine = line
	file := s.currentFileLocked()

	// Stepping out of a function lands on a deeper frame pointer than the
	// one recorded at the step command; once past it, behave like step-in
	// so the very next line stops.
	if s.state == execution.StepOut && info.Frame > s.lastFrame {
		s.state = execution.StepIn
	}

	switch {
	case s.state == execution.Pause || s.state == execution.StepIn:
		s.suspendLocked(s.state.StopReason(), "N/A")
	case file != "" && s.breaks.Hit(file, line):
		s.state = execution.Breakpoint
		s.suspendLocked(s.state.StopReason(), "N/A")
	}
	if s.state == execution.Dead {
		return execution.Dead
	}

	if s.state == execution.StepOver {
		if info.Frame < s.lastFrame {
			// Still inside a call made from the stepped-over line.
			return s.state
		}
		s.suspendLocked(s.state.StopReason(), "N/A")
		if s.state == execution.Dead {
			return execution.Dead
		}
	}

	s.lastFrame = info.Frame
	return s.state
}

// OnError is the interpreter's uncaught-error hook. The frame iterator is
// only valid for the duration of the call, so the stack is captured here
// and served to the next call-stack request.
func (s *Session) OnError(host HostContext, report inspect.ErrorReport, frames inspect.FrameIterator) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == execution.Dead {
		return
	}
	s.host = host
	s.walk.Arm()
	s.state = execution.Exception
	s.errFrames = inspect.BuildFrames(frames, s.resolveFileLocked)
	s.haveError = true
	s.suspendLocked(execution.Exception.StopReason(), report.Message())
}

// suspendLocked announces the stop, parks the calling interpreter thread
// on the rendezvous and installs the client's decision as the new state.
// s.mu is released while parked so the network goroutine can serve
// inspection requests against the stopped thread. When a decision already
// arrived in this hook invocation the stop is silent and the park is
// immediate, which keeps a step command issued at one stop from producing
// a second HasStopped at the depth recheck.
func (s *Session) suspendLocked(reason, text string) {
	if !s.walk.Decided() {
		s.log.Debug("execution stopped", "reason", reason, "line", s.lastLine)
		s.send(protocol.EncodeHasStopped(protocol.HasStoppedArgs{Reason: reason, Text: text}))
	}
	s.suspended = true

	s.mu.Unlock()
	next := s.walk.Suspend()
	s.mu.Lock()

	s.suspended = false
	s.state = next
	s.log.Debug("execution resumed", "state", next)
}
