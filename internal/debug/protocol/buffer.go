package protocol

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"unicode/utf16"
)

var (
	// ErrShortPayload indicates a payload ended inside a field.
	ErrShortPayload = errors.New("payload truncated")
	// ErrBadStringLength indicates a string length prefix that cannot fit the payload.
	ErrBadStringLength = errors.New("invalid string length prefix")
)

// Writer builds a message payload field by field.
type Writer struct {
	buf bytes.Buffer
}

// NewWriter creates an empty payload writer.
func NewWriter() *Writer {
	return &Writer{}
}

// PutInt appends a little-endian signed 32-bit integer.
func (w *Writer) PutInt(v int32) {
	var scratch [4]byte
	binary.LittleEndian.PutUint32(scratch[:], uint32(v))
	w.buf.Write(scratch[:])
}

// PutByte appends a single octet.
func (w *Writer) PutByte(v byte) {
	w.buf.WriteByte(v)
}

// PutString appends a length-prefixed 8-bit string with a trailing NUL.
// The prefix counts the NUL terminator.
func (w *Writer) PutString(s string) {
	w.PutInt(int32(len(s) + 1))
	w.buf.WriteString(s)
	w.buf.WriteByte(0)
}

// Bytes returns the accumulated payload.
func (w *Writer) Bytes() []byte {
	return w.buf.Bytes()
}

// Reader consumes a message payload field by field.
type Reader struct {
	data []byte
	off  int
}

// NewReader creates a payload reader over data.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Remaining reports how many unread bytes are left.
func (r *Reader) Remaining() int {
	return len(r.data) - r.off
}

// Int reads a little-endian signed 32-bit integer.
func (r *Reader) Int() (int32, error) {
	if r.Remaining() < 4 {
		return 0, ErrShortPayload
	}
	v := int32(binary.LittleEndian.Uint32(r.data[r.off:]))
	r.off += 4
	return v, nil
}

// Byte reads a single octet.
func (r *Reader) Byte() (byte, error) {
	if r.Remaining() < 1 {
		return 0, ErrShortPayload
	}
	v := r.data[r.off]
	r.off++
	return v, nil
}

// String reads a length-prefixed string. A positive prefix counts single-byte
// code units, a negative prefix counts two-byte code units; either form
// carries one trailing NUL code unit which is stripped.
func (r *Reader) String() (string, error) {
	prefix, err := r.Int()
	if err != nil {
		return "", err
	}
	switch {
	case prefix == 0:
		return "", nil
	case prefix > 0:
		n := int(prefix)
		if r.Remaining() < n {
			return "", fmt.Errorf("%w: want %d bytes, have %d", ErrBadStringLength, n, r.Remaining())
		}
		raw := r.data[r.off : r.off+n]
		r.off += n
		return string(trimNUL(raw)), nil
	default:
		units := int(-prefix)
		n := units * 2
		if r.Remaining() < n {
			return "", fmt.Errorf("%w: want %d bytes, have %d", ErrBadStringLength, n, r.Remaining())
		}
		raw := r.data[r.off : r.off+n]
		r.off += n
		codes := make([]uint16, units)
		for i := range codes {
			codes[i] = binary.LittleEndian.Uint16(raw[i*2:])
		}
		for len(codes) > 0 && codes[len(codes)-1] == 0 {
			codes = codes[:len(codes)-1]
		}
		return string(utf16.Decode(codes)), nil
	}
}

func trimNUL(raw []byte) []byte {
	for len(raw) > 0 && raw[len(raw)-1] == 0 {
		raw = raw[:len(raw)-1]
	}
	return raw
}
