package server

import (
	"fmt"
	"net"
	"sync"

	"github.com/sourcepawn-tools/remote-debug/internal/debug/protocol"
)

// conn serializes outbound frames onto one client socket. Both the network
// goroutine and parked interpreter threads send through it.
type conn struct {
	mu      sync.Mutex
	netConn net.Conn
	traffic TrafficLogger
}

func newConn(netConn net.Conn, traffic TrafficLogger) *conn {
	return &conn{netConn: netConn, traffic: traffic}
}

// Send frames and writes one message.
func (c *conn) Send(m protocol.Message) error {
	frame := protocol.EncodeFrame(m)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.netConn == nil {
		return fmt.Errorf("connection closed")
	}
	if _, err := c.netConn.Write(frame); err != nil {
		return fmt.Errorf("write %s frame: %w", m.Type, err)
	}
	if c.traffic != nil {
		c.traffic.LogTraffic(DirectionOutbound, m)
	}
	return nil
}

// Close shuts the socket down and makes further sends fail fast.
func (c *conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.netConn == nil {
		return nil
	}
	err := c.netConn.Close()
	c.netConn = nil
	return err
}
