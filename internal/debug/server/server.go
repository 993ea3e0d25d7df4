// Package server accepts debug-client connections and pumps their wire
// traffic: one TCP listener, one read goroutine per client, outbound
// writes serialized per connection.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"

	"github.com/sourcepawn-tools/remote-debug/internal/debug/protocol"
	"github.com/sourcepawn-tools/remote-debug/internal/debug/session"
)

// DefaultPort is the listen port clients expect when none is configured.
const DefaultPort = 3000

// Server owns the listener and the per-connection read loops.
type Server struct {
	log      *slog.Logger
	registry *session.Registry
	traffic  TrafficLogger

	mu    sync.Mutex
	ln    net.Listener
	conns map[*conn]struct{}
}

// New creates a server dispatching into registry.
func New(registry *session.Registry, log *slog.Logger) *Server {
	return &Server{
		log:      log,
		registry: registry,
		conns:    map[*conn]struct{}{},
	}
}

// SetTrafficLogger enables structured message traffic logging. Must be
// called before ListenAndServe.
func (s *Server) SetTrafficLogger(l TrafficLogger) {
	s.traffic = l
}

// ListenAndServe listens on addr and serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections from ln until ctx is cancelled or the
// listener fails.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()
	s.log.Info("listening for debug clients", "addr", ln.Addr().String())

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			s.shutdown()
		case <-done:
		}
	}()

	var wg sync.WaitGroup
	for {
		netConn, err := ln.Accept()
		if err != nil {
			wg.Wait()
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.serveConn(netConn)
		}()
	}
}

// Addr reports the bound listen address, for tests using port zero.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

func (s *Server) shutdown() {
	s.mu.Lock()
	ln := s.ln
	conns := make([]*conn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	if ln != nil {
		_ = ln.Close()
	}
	for _, c := range conns {
		_ = c.Close()
	}
}

func (s *Server) track(c *conn) {
	s.mu.Lock()
	s.conns[c] = struct{}{}
	s.mu.Unlock()
}

func (s *Server) untrack(c *conn) {
	s.mu.Lock()
	delete(s.conns, c)
	s.mu.Unlock()
}

// serveConn runs the read loop for one client. Teardown order matters:
// the session is removed (releasing any parked interpreter thread) before
// the socket closes.
func (s *Server) serveConn(netConn net.Conn) {
	c := newConn(netConn, s.traffic)
	s.track(c)
	sess := session.New(c, s.log)
	s.registry.Add(sess)
	s.log.Info("client connected", "remote", netConn.RemoteAddr().String(), "session", sess.ID())

	defer func() {
		s.registry.Remove(sess)
		_ = c.Close()
		s.untrack(c)
		s.log.Info("client disconnected", "session", sess.ID())
	}()

	dec := protocol.NewDecoder()
	buf := make([]byte, 4096)
	for {
		n, err := netConn.Read(buf)
		if n > 0 {
			for _, m := range dec.Feed(buf[:n]) {
				if s.traffic != nil {
					s.traffic.LogTraffic(DirectionInbound, m)
				}
				if derr := s.registry.Dispatch(sess, m); derr != nil {
					if errors.Is(derr, session.ErrDisconnect) {
						return
					}
					s.log.Warn("message handling failed",
						"session", sess.ID(), "type", m.Type, "error", derr)
				}
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				s.log.Warn("read failed", "session", sess.ID(), "error", err)
			}
			return
		}
	}
}
