// Package trafficsum condenses a server traffic log (JSON lines, one
// message per record) into a compact summary for support requests.
package trafficsum

import (
	"bufio"
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sourcepawn-tools/remote-debug/internal/debug/protocol"
)

// entry mirrors the server's traffic log record schema.
type entry struct {
	Timestamp time.Time `json:"timestamp"`
	Direction string    `json:"direction"`
	Type      string    `json:"type"`
	Payload   string    `json:"payload"`
}

// Summary is the condensed view of one traffic log.
type Summary struct {
	Messages    int            `json:"messages"`
	Inbound     int            `json:"inbound"`
	Outbound    int            `json:"outbound"`
	ByType      map[string]int `json:"byType"`
	Stops       int            `json:"stops"`
	StopReasons []string       `json:"stopReasons,omitempty"`
	FirstAt     time.Time      `json:"firstAt"`
	LastAt      time.Time      `json:"lastAt"`
}

// Summarize parses a JSON-lines traffic log. Unparseable lines fail the
// whole summary; an empty log is an error because it usually means the
// wrong file was captured.
func Summarize(data []byte) (Summary, error) {
	summary := Summary{ByType: map[string]int{}}

	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		lineNo++
		if len(line) == 0 {
			continue
		}
		var e entry
		if err := json.Unmarshal(line, &e); err != nil {
			return Summary{}, fmt.Errorf("line %d: %w", lineNo, err)
		}
		summary.record(e)
	}
	if err := sc.Err(); err != nil {
		return Summary{}, err
	}
	if summary.Messages == 0 {
		return Summary{}, errors.New("traffic log contains no messages")
	}
	return summary, nil
}

func (s *Summary) record(e entry) {
	s.Messages++
	switch e.Direction {
	case "inbound":
		s.Inbound++
	case "outbound":
		s.Outbound++
	}
	s.ByType[e.Type]++

	if s.FirstAt.IsZero() || e.Timestamp.Before(s.FirstAt) {
		s.FirstAt = e.Timestamp
	}
	if e.Timestamp.After(s.LastAt) {
		s.LastAt = e.Timestamp
	}

	if e.Type == protocol.HasStopped.String() {
		s.Stops++
		if reason, ok := stopReason(e.Payload); ok {
			s.StopReasons = appendUnique(s.StopReasons, reason)
		}
	}
}

// stopReason decodes the hex payload of a HasStopped record.
func stopReason(payload string) (string, bool) {
	raw, err := hex.DecodeString(payload)
	if err != nil {
		return "", false
	}
	args, err := protocol.DecodeHasStopped(protocol.Message{
		Type:    protocol.HasStopped,
		Payload: raw,
	})
	if err != nil {
		return "", false
	}
	return args.Reason, true
}

func appendUnique(list []string, v string) []string {
	for _, cur := range list {
		if cur == v {
			return list
		}
	}
	return append(list, v)
}
