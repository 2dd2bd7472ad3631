package exchange

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"remote-screen/pkg/errno"
)

// scriptedStream records writes and replays canned chunks.
type scriptedStream struct {
	written [][]byte
	chunks  [][]byte
	err     error
}

func (s *scriptedStream) Write(ctx context.Context, p []byte) error {
	s.written = append(s.written, append([]byte(nil), p...))
	return nil
}

func (s *scriptedStream) ReadChunk(ctx context.Context) ([]byte, error) {
	if len(s.chunks) == 0 {
		if s.err != nil {
			return nil, s.err
		}
		return nil, errors.New("no more chunks")
	}
	c := s.chunks[0]
	s.chunks = s.chunks[1:]
	return c, nil
}

func chunks(parts ...string) [][]byte {
	out := make([][]byte, len(parts))
	for i, p := range parts {
		out[i] = []byte(p)
	}
	return out
}

func TestSendAPDU(t *testing.T) {
	// 响应分三段到达，其中一段为空
	s := &scriptedStream{chunks: chunks(`{"response":"SendAPDU",`, ``, `"arguments":["kAA="]}`+"\n")}
	ex := New(s, nil)

	resp, err := ex.SendAPDU(context.Background(), []byte{0x00, 0xA4, 0x04, 0x00})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x90, 0x00}, resp)

	require.Len(t, s.written, 1)
	req := s.written[0]
	assert.Equal(t, byte('\n'), req[len(req)-1])
	var cmd Command
	require.NoError(t, json.Unmarshal(req[:len(req)-1], &cmd))
	assert.Equal(t, Command{Command: "SendAPDU", Arguments: []string{"AKQEAA=="}}, cmd)
}

func TestPingSendsEmptyArguments(t *testing.T) {
	s := &scriptedStream{chunks: chunks(`{"response":"Ping","arguments":[]}` + "\n")}
	require.NoError(t, New(s, nil).Ping(context.Background()))
	assert.Equal(t, `{"command":"Ping","arguments":[]}`+"\n", string(s.written[0]))
}

func TestErrorTranslation(t *testing.T) {
	cases := []struct {
		name  string
		reply string
		want  string
	}{
		{"panel error", `{"response":"Error","arguments":["Device not connected"]}`, "Device not connected"},
		{"error without message", `{"response":"Error","arguments":[]}`, errno.ErrProtocol},
		{"error with two arguments", `{"response":"Error","arguments":["a","b"]}`, errno.ErrProtocol},
		{"wrong name", `{"response":"Ping","arguments":["kAA="]}`, errno.ErrProtocol},
		{"too many arguments", `{"response":"SendAPDU","arguments":["kAA=","kAA="]}`, errno.ErrProtocol},
		{"not base64", `{"response":"SendAPDU","arguments":["***"]}`, errno.ErrProtocol},
		{"not json", `SendAPDU 9000`, errno.ErrProtocol},
		{"non-string argument", `{"response":"SendAPDU","arguments":[9000]}`, errno.ErrProtocol},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := &scriptedStream{chunks: chunks(tc.reply + "\n")}
			_, err := New(s, nil).SendAPDU(context.Background(), []byte{0x00})

			var perr *errno.RemoteProtocolError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, tc.want, perr.Message)
		})
	}
}

func TestStreamErrorPropagates(t *testing.T) {
	s := &scriptedStream{chunks: chunks(`{"response":`), err: errno.ErrCancelled}
	_, err := New(s, nil).SendAPDU(context.Background(), []byte{0x00})
	assert.ErrorIs(t, err, errno.ErrCancelled)
}
