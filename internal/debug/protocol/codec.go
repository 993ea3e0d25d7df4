package protocol

import "encoding/binary"

// frameHeaderSize is the length word plus the type byte.
const frameHeaderSize = 5

// EncodeFrame serializes one message into wire framing. The length word
// covers the type byte and the payload, not itself.
func EncodeFrame(m Message) []byte {
	frame := make([]byte, frameHeaderSize+len(m.Payload))
	binary.LittleEndian.PutUint32(frame, uint32(1+len(m.Payload)))
	frame[4] = byte(m.Type)
	copy(frame[frameHeaderSize:], m.Payload)
	return frame
}

// Decoder accumulates stream bytes and extracts complete messages. A short
// buffer is never an error: decoding simply waits for more input, so a
// message split across any number of partial deliveries decodes identically
// to one delivered whole.
type Decoder struct {
	buf []byte
}

// NewDecoder creates an empty stream decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Feed appends stream bytes and returns every message that is now complete,
// in order.
func (d *Decoder) Feed(data []byte) []Message {
	d.buf = append(d.buf, data...)

	var msgs []Message
	for {
		if len(d.buf) < frameHeaderSize {
			break
		}
		length := binary.LittleEndian.Uint32(d.buf[:4])
		if length == 0 {
			// No type byte follows; skip the length word to resync.
			d.buf = d.buf[4:]
			continue
		}
		total := 4 + int(length)
		if len(d.buf) < total {
			break
		}
		payload := make([]byte, int(length)-1)
		copy(payload, d.buf[frameHeaderSize:total])
		msgs = append(msgs, Message{Type: Type(d.buf[4]), Payload: payload})
		d.buf = d.buf[total:]
	}
	return msgs
}

// Buffered reports how many undecoded bytes are pending.
func (d *Decoder) Buffered() int {
	return len(d.buf)
}
