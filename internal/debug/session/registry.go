package session

import (
	"log/slog"
	"sync"

	"github.com/sourcepawn-tools/remote-debug/internal/debug/execution"
	"github.com/sourcepawn-tools/remote-debug/internal/debug/inspect"
	"github.com/sourcepawn-tools/remote-debug/internal/debug/protocol"
)

// Registry holds all live sessions and fans interpreter events out to the
// ones that want them.
type Registry struct {
	log *slog.Logger

	mu       sync.Mutex
	sessions []*Session
}

// NewRegistry creates an empty registry.
func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{log: log}
}

// Add registers a session.
func (r *Registry) Add(s *Session) {
	r.mu.Lock()
	r.sessions = append(r.sessions, s)
	n := len(r.sessions)
	r.mu.Unlock()
	r.log.Info("session added", "session", s.ID(), "sessions", n)
}

// Remove shuts the session down and drops it from the registry. Shutdown
// happens first so any interpreter thread parked on the session is
// released before the session becomes unreachable.
func (r *Registry) Remove(s *Session) {
	s.Shutdown()
	r.mu.Lock()
	for i, cur := range r.sessions {
		if cur == s {
			r.sessions = append(r.sessions[:i], r.sessions[i+1:]...)
			break
		}
	}
	n := len(r.sessions)
	r.mu.Unlock()
	r.log.Info("session removed", "session", s.ID(), "sessions", n)
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func (r *Registry) snapshot() []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Session, len(r.sessions))
	copy(out, r.sessions)
	return out
}

// OnBreak delivers a line event. Sessions already bound to this exact
// execution context are served first; sessions that merely attached the
// context's file get a second pass, which is how a fresh client picks up
// a context it has never seen. Each matching session decides its own
// state. The aggregate is Dead only when every matched session is dead;
// otherwise the last non-Run decision wins, so a host driving a single
// context knows whether anyone still cares.
func (r *Registry) OnBreak(host HostContext, info BreakInfo) execution.State {
	matched, dead := 0, 0
	result := execution.Run
	deliver := func(s *Session) {
		matched++
		switch st := s.OnBreak(host, info); st {
		case execution.Dead:
			dead++
		case execution.Run:
		default:
			result = st
		}
	}

	seen := map[*Session]struct{}{}
	for _, s := range r.snapshot() {
		if s.ContextID() == host.ID && host.ID != 0 {
			seen[s] = struct{}{}
			deliver(s)
		}
	}
	for _, s := range r.snapshot() {
		if _, done := seen[s]; done {
			continue
		}
		if s.Attached(host.File) {
			deliver(s)
		}
	}

	if matched > 0 && dead == matched {
		return execution.Dead
	}
	return result
}

// OnError delivers an uncaught-error event with the same two-pass routing
// as OnBreak.
func (r *Registry) OnError(host HostContext, report inspect.ErrorReport, frames inspect.FrameIterator) {
	seen := map[*Session]struct{}{}
	for _, s := range r.snapshot() {
		if s.ContextID() == host.ID && host.ID != 0 {
			seen[s] = struct{}{}
			s.OnError(host, report, frames)
		}
	}
	for _, s := range r.snapshot() {
		if _, done := seen[s]; done {
			continue
		}
		if s.Attached(host.File) {
			s.OnError(host, report, frames)
		}
	}
}

// Dispatch routes one inbound client message to its session. A panic in a
// handler must not take the process down with interpreter threads parked,
// so it is caught here and converted into session teardown.
func (r *Registry) Dispatch(s *Session, m protocol.Message) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("handler panic", "session", s.ID(), "type", m.Type, "panic", rec)
			r.Remove(s)
			err = ErrDisconnect
		}
	}()
	return s.Handle(m)
}
