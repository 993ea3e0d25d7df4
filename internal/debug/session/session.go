// Package session ties one connected debug client to the interpreter's
// break and error hooks: it tracks which script files the client is
// attached to, owns the client's breakpoints and execution state, and
// parks interpreter threads on a rendezvous until the client lets them go.
package session

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/sourcepawn-tools/remote-debug/internal/debug/breakpoint"
	"github.com/sourcepawn-tools/remote-debug/internal/debug/execution"
	"github.com/sourcepawn-tools/remote-debug/internal/debug/inspect"
	"github.com/sourcepawn-tools/remote-debug/internal/debug/protocol"
	"github.com/sourcepawn-tools/remote-debug/internal/debug/rendezvous"
)

// Sender delivers an encoded message to the client. Implementations must
// be safe for concurrent use; both the network goroutine and parked
// interpreter threads send.
type Sender interface {
	Send(protocol.Message) error
}

// HostContext identifies one interpreter execution context together with
// the capabilities needed to inspect it.
type HostContext struct {
	ID       uint64
	File     string
	Provider inspect.Provider
	Memory   inspect.Memory
}

// BreakInfo carries the interpreter's position at a line hook.
type BreakInfo struct {
	CIP   uint32
	Frame uint32
}

// Session is the per-client debug state.
type Session struct {
	id        string
	conn      Sender
	log       *slog.Logger
	walk      *rendezvous.Controller
	breaks    *breakpoint.Registry
	inspector *inspect.Service

	mu        sync.Mutex
	state     execution.State
	files     map[string]struct{}
	host      HostContext
	cip       uint32
	frm       uint32
	lastLine  int
	lastFrame uint32
	suspended bool
	errFrames []protocol.StackFrame
	haveError bool
}

// New creates a session in the Run state.
func New(conn Sender, log *slog.Logger) *Session {
	id := uuid.NewString()
	return &Session{
		id:        id,
		conn:      conn,
		log:       log.With("session", id),
		walk:      rendezvous.New(),
		breaks:    breakpoint.NewRegistry(),
		inspector: inspect.NewService(),
		state:     execution.Run,
		files:     map[string]struct{}{},
		lastLine:  -1,
	}
}

// ID returns the session's identifier.
func (s *Session) ID() string { return s.id }

// State returns the current execution state.
func (s *Session) State() execution.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ContextID reports the interpreter context this session last observed,
// or zero before the first delivered event.
func (s *Session) ContextID() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.host.ID
}

// AttachFile subscribes the session to events for a script file.
func (s *Session) AttachFile(path string) {
	file := breakpoint.NormalizeFile(path)
	s.mu.Lock()
	s.files[file] = struct{}{}
	s.mu.Unlock()
	s.log.Debug("file attached", "file", file)
}

// Attached reports whether path matches one of the session's files.
func (s *Session) Attached(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.matchFileLocked(path) != ""
}

// matchFileLocked finds the attached name that contains the normalized
// form of path. Attachments may carry a longer path than the runtime
// reports, so containment rather than equality decides.
func (s *Session) matchFileLocked(path string) string {
	name := breakpoint.NormalizeFile(path)
	if name == "" {
		return ""
	}
	for file := range s.files {
		if strings.Contains(file, name) {
			return file
		}
	}
	return ""
}

// resolveFileLocked maps a runtime frame path onto the client's attached
// display name, falling back to the normalized basename when the client
// never attached the file.
func (s *Session) resolveFileLocked(path string) string {
	if file := s.matchFileLocked(path); file != "" {
		return file
	}
	return breakpoint.NormalizeFile(path)
}

// currentFileLocked resolves the attached name for the innermost scripted
// frame of the running context.
func (s *Session) currentFileLocked() string {
	if s.host.Provider == nil {
		return ""
	}
	for it := s.host.Provider.Frames(); !it.Done(); it.Next() {
		if it.IsScripted() {
			return s.matchFileLocked(it.FilePath())
		}
	}
	return ""
}

// Shutdown marks the session dead and releases any parked interpreter
// thread. It is idempotent.
func (s *Session) Shutdown() {
	s.mu.Lock()
	s.state = execution.Dead
	s.mu.Unlock()
	s.walk.Cancel()
	s.log.Debug("session shut down")
}

func (s *Session) send(m protocol.Message) {
	if err := s.conn.Send(m); err != nil {
		s.log.Warn("send failed", "type", m.Type, "error", err)
	}
}
