package server

import (
	"encoding/hex"
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/sourcepawn-tools/remote-debug/internal/debug/protocol"
)

// TrafficDirection indicates whether a message was received or sent.
type TrafficDirection string

const (
	// DirectionInbound represents messages read from the client.
	DirectionInbound TrafficDirection = "inbound"
	// DirectionOutbound represents messages sent to the client.
	DirectionOutbound TrafficDirection = "outbound"
)

// TrafficLogEntry is a structured protocol traffic log record.
type TrafficLogEntry struct {
	Timestamp time.Time        `json:"timestamp"`
	Direction TrafficDirection `json:"direction"`
	Type      string           `json:"type"`
	Payload   string           `json:"payload,omitempty"`
}

// TrafficLogger records protocol message traffic.
type TrafficLogger interface {
	LogTraffic(direction TrafficDirection, m protocol.Message)
}

// JSONLTrafficLogger writes timestamped traffic records as JSON Lines,
// payloads hex-encoded.
type JSONLTrafficLogger struct {
	mu  sync.Mutex
	enc *json.Encoder
	now func() time.Time
}

// NewJSONLTrafficLogger creates a structured JSON-lines traffic logger.
func NewJSONLTrafficLogger(w io.Writer) *JSONLTrafficLogger {
	return &JSONLTrafficLogger{
		enc: json.NewEncoder(w),
		now: time.Now,
	}
}

// LogTraffic records one traffic entry.
func (l *JSONLTrafficLogger) LogTraffic(direction TrafficDirection, m protocol.Message) {
	if l == nil || l.enc == nil {
		return
	}

	entry := TrafficLogEntry{
		Timestamp: l.now().UTC(),
		Direction: direction,
		Type:      m.Type.String(),
		Payload:   hex.EncodeToString(m.Payload),
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	_ = l.enc.Encode(entry)
}
