package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBigEndianReaders(t *testing.T) {
	b := []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xfe}

	v16, err := Uint16(b, 1)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x0203), v16)

	v32, err := Uint32(b, 0)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x01020304), v32)

	v64, err := Int64(b, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(-2), v64)
}

func TestReadersOutOfBounds(t *testing.T) {
	b := []byte{0x01, 0x02, 0x03}

	_, err := Uint16(b, 2)
	assert.Error(t, err)
	_, err = Uint32(b, 0)
	assert.Error(t, err)
	_, err = Int64(b, 0)
	assert.Error(t, err)
	_, err = Slice(b, -1, 1)
	assert.Error(t, err)

	s, err := Slice(b, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x02, 0x03}, s)
}

func TestHexRoundTrip(t *testing.T) {
	raw := []byte{0x00, 0xab, 0xcd, 0xef}
	assert.Equal(t, "00abcdef", BytesToHex(raw))

	for _, in := range []string{"00abcdef", "0x00ABCDEF", " 00abcdef\n"} {
		out, err := HexToBytes(in)
		require.NoError(t, err, in)
		assert.Equal(t, raw, out)
	}

	_, err := HexToBytes("abc")
	assert.Error(t, err)
	_, err = HexToBytes("zz")
	assert.Error(t, err)
}
