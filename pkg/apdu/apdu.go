// Package apdu implements the relay framing used between the phone and the
// hardware device: Lc length encoding, status words and the fixed commands.
package apdu

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// StatusOK is the canonical success status word.
const StatusOK uint16 = 0x9000

// Status words returned by the simulated device and recognised in logs.
const (
	StatusFileNotFound     uint16 = 0x6A82
	StatusConditionsNotMet uint16 = 0x6985
	StatusInsNotSupported  uint16 = 0x6D00
	StatusWrongLength      uint16 = 0x6700
)

// MaxPayload is the largest payload the three byte Lc form can carry.
const MaxPayload = 0xFFFF

var (
	errShortResponse = errors.New("apdu: response shorter than status word")
	errShortFrame    = errors.New("apdu: frame shorter than header")
)

// Header is the CLA INS P1 P2 prefix of a command.
type Header [4]byte

var (
	// HandshakeHeader carries inner tunnel handshake bytes.
	HandshakeHeader = Header{0x80, 0x00, 0x00, 0x00}
	// WrappedHeader carries inner tunnel application records.
	WrappedHeader = Header{0x84, 0x00, 0x00, 0x00}
)

// EncodeLength returns the Lc field for n: one byte up to 255,
// otherwise 0x00 followed by a big-endian uint16.
func EncodeLength(n int) ([]byte, error) {
	switch {
	case n < 0 || n > MaxPayload:
		return nil, fmt.Errorf("apdu: payload length %d out of range", n)
	case n <= 0xFF:
		return []byte{byte(n)}, nil
	default:
		return []byte{0x00, byte(n >> 8), byte(n)}, nil
	}
}

// DecodeLength parses an Lc field at the start of b and returns the length
// and the number of bytes the field occupied. A lone 0x00 is a zero length.
func DecodeLength(b []byte) (n int, size int, err error) {
	if len(b) == 0 {
		return 0, 0, errors.New("apdu: missing length")
	}
	if b[0] != 0x00 {
		return int(b[0]), 1, nil
	}
	if len(b) < 3 {
		return 0, 1, nil
	}
	n = int(binary.BigEndian.Uint16(b[1:3]))
	if n <= 0xFF {
		return 0, 0, fmt.Errorf("apdu: extended length %d must exceed 255", n)
	}
	return n, 3, nil
}

// Frame builds header || Lc || payload.
func Frame(h Header, payload []byte) ([]byte, error) {
	lc, err := EncodeLength(len(payload))
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(h)+len(lc)+len(payload))
	out = append(out, h[:]...)
	out = append(out, lc...)
	return append(out, payload...), nil
}

// ParseFrame splits a framed command back into header and payload.
// Commands without a data field (4 bytes) yield an empty payload.
func ParseFrame(frame []byte) (Header, []byte, error) {
	var h Header
	if len(frame) < len(h) {
		return h, nil, errShortFrame
	}
	copy(h[:], frame)
	rest := frame[len(h):]
	if len(rest) == 0 {
		return h, nil, nil
	}

	n, size, err := DecodeLength(rest)
	if err != nil {
		return h, nil, err
	}
	if len(rest)-size != n {
		return h, nil, fmt.Errorf("apdu: declared length %d, have %d", n, len(rest)-size)
	}
	return h, rest[size:], nil
}

// SplitStatus separates the body from the trailing status word.
func SplitStatus(resp []byte) ([]byte, uint16, error) {
	if len(resp) < 2 {
		return nil, 0, errShortResponse
	}
	n := len(resp) - 2
	return resp[:n], binary.BigEndian.Uint16(resp[n:]), nil
}

// WithStatus appends sw to body.
func WithStatus(body []byte, sw uint16) []byte {
	out := make([]byte, len(body), len(body)+2)
	copy(out, body)
	return binary.BigEndian.AppendUint16(out, sw)
}
