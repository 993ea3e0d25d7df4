package session

import (
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sourcepawn-tools/remote-debug/internal/debug/execution"
	"github.com/sourcepawn-tools/remote-debug/internal/debug/inspect"
	"github.com/sourcepawn-tools/remote-debug/internal/debug/protocol"
	"github.com/sourcepawn-tools/remote-debug/internal/hostsim"
)

type captureConn struct {
	mu   sync.Mutex
	msgs []protocol.Message
}

func (c *captureConn) Send(m protocol.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, m)
	return nil
}

func (c *captureConn) count(t protocol.Type) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, m := range c.msgs {
		if m.Type == t {
			n++
		}
	}
	return n
}

func (c *captureConn) last(t protocol.Type) (protocol.Message, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.msgs) - 1; i >= 0; i-- {
		if c.msgs[i].Type == t {
			return c.msgs[i], true
		}
	}
	return protocol.Message{}, false
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testImage(line int) *hostsim.Image {
	im := hostsim.NewImage("test.sp")
	im.SetFrames(func() inspect.FrameIterator {
		return &hostsim.FrameIter{Stack: []hostsim.Frame{
			{Function: "main", File: "test.sp", Line: line},
		}}
	})
	return im
}

func newTestSession(t *testing.T) (*Session, *captureConn) {
	t.Helper()
	conn := &captureConn{}
	return New(conn, testLogger()), conn
}

func hostFor(im *hostsim.Image) HostContext {
	return HostContext{ID: 1, File: im.File, Provider: im, Memory: hostsim.NewMemory()}
}

func breakAt(line int, frame uint32) BreakInfo {
	return BreakInfo{CIP: hostsim.LineAddr(line), Frame: frame}
}

func TestOnBreakRunsFreelyWithoutBreakpoints(t *testing.T) {
	s, conn := newTestSession(t)
	s.AttachFile("test.sp")
	im := testImage(10)

	st := s.OnBreak(hostFor(im), breakAt(10, 0x1000))

	require.Equal(t, execution.Run, st)
	require.Zero(t, conn.count(protocol.HasStopped))
}

func TestOnBreakStopsAtBreakpoint(t *testing.T) {
	s, conn := newTestSession(t)
	im := testImage(10)

	require.NoError(t, s.Handle(protocol.EncodeSetBreakpoint(protocol.SetBreakpointArgs{
		File: "test.sp", Line: 10, ID: 1,
	})))

	done := make(chan execution.State, 1)
	go func() {
		done <- s.OnBreak(hostFor(im), breakAt(10, 0x1000))
	}()

	require.Eventually(t, func() bool {
		return conn.count(protocol.HasStopped) == 1
	}, time.Second, time.Millisecond)
	require.Equal(t, execution.Breakpoint, s.State())

	m, ok := conn.last(protocol.HasStopped)
	require.True(t, ok)
	args, err := protocol.DecodeHasStopped(m)
	require.NoError(t, err)
	require.Equal(t, "Breakpoint", args.Reason)

	require.NoError(t, s.Handle(protocol.Message{
		Type:    protocol.Continue,
		Payload: []byte{execution.Run.Byte()},
	}))
	require.Equal(t, execution.Run, <-done)
	require.Equal(t, 1, conn.count(protocol.HasContinued))
}

func TestOnBreakDedupesSameLine(t *testing.T) {
	s, conn := newTestSession(t)
	im := testImage(10)
	require.NoError(t, s.Handle(protocol.EncodeSetBreakpoint(protocol.SetBreakpointArgs{
		File: "test.sp", Line: 10, ID: 1,
	})))

	release := func() {
		require.Eventually(t, func() bool {
			return s.State() == execution.Breakpoint
		}, time.Second, time.Millisecond)
		require.NoError(t, s.Handle(protocol.Message{
			Type:    protocol.Continue,
			Payload: []byte{execution.Run.Byte()},
		}))
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.OnBreak(hostFor(im), breakAt(10, 0x1000))
		// Two instructions on the same line: second hook call is silent.
		s.OnBreak(hostFor(im), breakAt(10, 0x1000))
	}()
	release()
	<-done

	require.Equal(t, 1, conn.count(protocol.HasStopped))
}

func TestOnBreakStepOverSkipsDeeperFrames(t *testing.T) {
	s, conn := newTestSession(t)
	s.AttachFile("test.sp")
	im := testImage(10)
	host := hostFor(im)

	// Pause at line 10 to establish the frame baseline, then step over.
	require.NoError(t, s.Handle(protocol.Message{
		Type:    protocol.Pause,
		Payload: []byte{execution.Pause.Byte()},
	}))
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.OnBreak(host, breakAt(10, 0x1000))
	}()
	require.Eventually(t, func() bool {
		return conn.count(protocol.HasStopped) == 1
	}, time.Second, time.Millisecond)
	require.NoError(t, s.Handle(protocol.Message{
		Type:    protocol.StepOver,
		Payload: []byte{execution.StepOver.Byte()},
	}))
	<-done

	// A call made from line 10 runs at a lower frame pointer; no stop.
	st := s.OnBreak(host, breakAt(11, 0x0800))
	require.Equal(t, execution.StepOver, st)
	require.Equal(t, 1, conn.count(protocol.HasStopped))

	// Back at the original depth the next line stops.
	go func() {
		s.OnBreak(host, breakAt(12, 0x1000))
	}()
	require.Eventually(t, func() bool {
		return conn.count(protocol.HasStopped) == 2
	}, time.Second, time.Millisecond)
	require.NoError(t, s.Handle(protocol.Message{
		Type:    protocol.Continue,
		Payload: []byte{execution.Run.Byte()},
	}))
}

func TestOnBreakStepOutStopsAtShallowerFrame(t *testing.T) {
	s, conn := newTestSession(t)
	s.AttachFile("test.sp")
	im := testImage(10)
	host := hostFor(im)

	// Pause at line 10 to establish the frame baseline, then step out.
	require.NoError(t, s.Handle(protocol.Message{
		Type:    protocol.Pause,
		Payload: []byte{execution.Pause.Byte()},
	}))
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.OnBreak(host, breakAt(10, 0x1000))
	}()
	require.Eventually(t, func() bool {
		return conn.count(protocol.HasStopped) == 1
	}, time.Second, time.Millisecond)
	require.NoError(t, s.Handle(protocol.Message{
		Type:    protocol.StepOut,
		Payload: []byte{execution.StepOut.Byte()},
	}))
	<-done

	// Lines at the same depth run through silently.
	st := s.OnBreak(host, breakAt(11, 0x1000))
	require.Equal(t, execution.StepOut, st)
	require.Equal(t, 1, conn.count(protocol.HasStopped))

	// Returning to the caller raises the frame pointer; the first line
	// there stops like a step-in.
	go func() {
		s.OnBreak(host, breakAt(12, 0x1040))
	}()
	require.Eventually(t, func() bool {
		return conn.count(protocol.HasStopped) == 2
	}, time.Second, time.Millisecond)

	m, _ := conn.last(protocol.HasStopped)
	args, err := protocol.DecodeHasStopped(m)
	require.NoError(t, err)
	require.Equal(t, "Step in", args.Reason)

	require.NoError(t, s.Handle(protocol.Message{
		Type:    protocol.Continue,
		Payload: []byte{execution.Run.Byte()},
	}))
}

func TestOnBreakPauseStopsNextLine(t *testing.T) {
	s, conn := newTestSession(t)
	s.AttachFile("test.sp")
	im := testImage(10)

	require.NoError(t, s.Handle(protocol.Message{
		Type:    protocol.Pause,
		Payload: []byte{execution.Pause.Byte()},
	}))

	done := make(chan execution.State, 1)
	go func() {
		done <- s.OnBreak(hostFor(im), breakAt(10, 0x1000))
	}()
	require.Eventually(t, func() bool {
		return conn.count(protocol.HasStopped) == 1
	}, time.Second, time.Millisecond)

	m, _ := conn.last(protocol.HasStopped)
	args, err := protocol.DecodeHasStopped(m)
	require.NoError(t, err)
	require.Equal(t, "Pause", args.Reason)

	require.NoError(t, s.Handle(protocol.Message{
		Type:    protocol.Continue,
		Payload: []byte{execution.Run.Byte()},
	}))
	require.Equal(t, execution.Run, <-done)
}

func TestStopDebuggingReleasesParkedThread(t *testing.T) {
	s, conn := newTestSession(t)
	im := testImage(10)
	require.NoError(t, s.Handle(protocol.EncodeSetBreakpoint(protocol.SetBreakpointArgs{
		File: "test.sp", Line: 10, ID: 1,
	})))

	done := make(chan execution.State, 1)
	go func() {
		done <- s.OnBreak(hostFor(im), breakAt(10, 0x1000))
	}()
	require.Eventually(t, func() bool {
		return conn.count(protocol.HasStopped) == 1
	}, time.Second, time.Millisecond)

	require.NoError(t, s.Handle(protocol.EncodeEmpty(protocol.StopDebugging)))
	require.Equal(t, execution.Dead, <-done)

	// Dead sessions refuse further events.
	require.Equal(t, execution.Dead, s.OnBreak(hostFor(im), breakAt(11, 0x1000)))
}

func TestOnErrorServesCapturedStackOnce(t *testing.T) {
	s, conn := newTestSession(t)
	s.AttachFile("test.sp")
	im := testImage(22)

	frames := &hostsim.FrameIter{Stack: []hostsim.Frame{
		{Function: "fail", File: "test.sp", Line: 22},
		{Function: "main", File: "test.sp", Line: 5},
	}}

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.OnError(hostFor(im), hostsim.Report{Text: "Array index out of bounds"}, frames)
	}()
	require.Eventually(t, func() bool {
		return conn.count(protocol.HasStopped) == 1
	}, time.Second, time.Millisecond)

	m, _ := conn.last(protocol.HasStopped)
	args, err := protocol.DecodeHasStopped(m)
	require.NoError(t, err)
	require.Equal(t, "exception", args.Reason)
	require.Equal(t, "Array index out of bounds", args.Text)

	require.NoError(t, s.Handle(protocol.EncodeEmpty(protocol.RequestCallStack)))
	cs, ok := conn.last(protocol.CallStack)
	require.True(t, ok)
	got, err := protocol.DecodeCallStack(cs)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "fail", got[0].Function)
	require.EqualValues(t, 22, got[0].Line)

	// The snapshot is consumed; the session drops back to Breakpoint and
	// later requests walk the live stack again.
	require.Equal(t, execution.Breakpoint, s.State())

	require.NoError(t, s.Handle(protocol.Message{
		Type:    protocol.Continue,
		Payload: []byte{execution.Run.Byte()},
	}))
	<-done
}

func TestDisconnectMessage(t *testing.T) {
	s, _ := newTestSession(t)
	err := s.Handle(protocol.EncodeEmpty(protocol.Disconnect))
	require.ErrorIs(t, err, ErrDisconnect)
}

func TestRegistryTwoPassDispatch(t *testing.T) {
	log := testLogger()
	reg := NewRegistry(log)

	attached, _ := newTestSession(t)
	attached.AttachFile("test.sp")
	other, otherConn := newTestSession(t)
	other.AttachFile("unrelated.sp")
	reg.Add(attached)
	reg.Add(other)

	im := testImage(10)
	host := hostFor(im)

	// Unbound sessions match by attached file on the second pass.
	st := reg.OnBreak(host, breakAt(10, 0x1000))
	require.Equal(t, execution.Run, st)
	require.EqualValues(t, 1, attached.ContextID())
	require.Zero(t, other.ContextID())
	require.Zero(t, otherConn.count(protocol.HasStopped))

	reg.Remove(attached)
	require.Equal(t, 1, reg.Len())
	require.Equal(t, execution.Dead, attached.State())
}

func TestRegistryDeliversToEverySessionAttachedToFile(t *testing.T) {
	reg := NewRegistry(testLogger())

	first, firstConn := newTestSession(t)
	second, secondConn := newTestSession(t)
	for _, s := range []*Session{first, second} {
		require.NoError(t, s.Handle(protocol.EncodeSetBreakpoint(protocol.SetBreakpointArgs{
			File: "test.sp", Line: 10, ID: 1,
		})))
		reg.Add(s)
	}

	im := testImage(10)
	host := hostFor(im)

	// Delivery is sequential on the interpreter thread, so the event parks
	// on each matching session in turn and each announces its own stop.
	done := make(chan execution.State, 1)
	go func() {
		done <- reg.OnBreak(host, breakAt(10, 0x1000))
	}()

	release := func(s *Session, conn *captureConn) {
		require.Eventually(t, func() bool {
			return conn.count(protocol.HasStopped) == 1
		}, time.Second, time.Millisecond)
		require.NoError(t, s.Handle(protocol.Message{
			Type:    protocol.Continue,
			Payload: []byte{execution.Run.Byte()},
		}))
	}
	release(first, firstConn)
	release(second, secondConn)

	require.Equal(t, execution.Run, <-done)
	require.Equal(t, 1, firstConn.count(protocol.HasStopped))
	require.Equal(t, 1, secondConn.count(protocol.HasStopped))
	require.EqualValues(t, 1, first.ContextID())
	require.EqualValues(t, 1, second.ContextID())
}

func TestRegistryDispatchSurfacesDecodeErrors(t *testing.T) {
	reg := NewRegistry(testLogger())
	s, _ := newTestSession(t)
	reg.Add(s)

	// A truncated SetBreakpoint payload fails decode without panicking.
	err := reg.Dispatch(s, protocol.Message{Type: protocol.SetBreakpoint, Payload: []byte{1}})
	require.Error(t, err)
	require.Equal(t, 1, reg.Len())
}

type panicConn struct{}

func (panicConn) Send(protocol.Message) error { panic("connection gone") }

func TestRegistryDispatchPanicRemovesOnlyFaultingSession(t *testing.T) {
	reg := NewRegistry(testLogger())
	healthy, _ := newTestSession(t)
	faulty := New(panicConn{}, testLogger())
	reg.Add(healthy)
	reg.Add(faulty)

	// RequestCallStack always answers, so the panicking sender fires.
	err := reg.Dispatch(faulty, protocol.EncodeEmpty(protocol.RequestCallStack))
	require.ErrorIs(t, err, ErrDisconnect)
	require.Equal(t, 1, reg.Len())
	require.Equal(t, execution.Dead, faulty.State())
	require.NotEqual(t, execution.Dead, healthy.State())
}
