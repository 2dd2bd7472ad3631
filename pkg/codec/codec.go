// Package codec holds the big-endian field readers and hex helpers shared by
// the fetcher, the decoders and the pairing parser.
package codec

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"
)

func need(b []byte, off, n int) error {
	if off < 0 || off+n > len(b) {
		return fmt.Errorf("codec: need %d bytes at offset %d, have %d", n, off, len(b))
	}
	return nil
}

// Uint16 reads a big-endian uint16 at off.
func Uint16(b []byte, off int) (uint16, error) {
	if err := need(b, off, 2); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b[off:]), nil
}

// Uint32 reads a big-endian uint32 at off.
func Uint32(b []byte, off int) (uint32, error) {
	if err := need(b, off, 4); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b[off:]), nil
}

// Int64 reads a big-endian two's complement int64 at off.
func Int64(b []byte, off int) (int64, error) {
	if err := need(b, off, 8); err != nil {
		return 0, err
	}
	return int64(binary.BigEndian.Uint64(b[off:])), nil
}

// Slice returns b[off:off+n] with a bounds check.
func Slice(b []byte, off, n int) ([]byte, error) {
	if err := need(b, off, n); err != nil {
		return nil, err
	}
	return b[off : off+n], nil
}

// HexToBytes decodes s, tolerating a 0x prefix and surrounding whitespace.
func HexToBytes(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(s)%2 != 0 {
		return nil, fmt.Errorf("codec: odd length hex string")
	}
	return hex.DecodeString(s)
}

// BytesToHex encodes b as lowercase hex without prefix.
func BytesToHex(b []byte) string {
	return hex.EncodeToString(b)
}
