package exchange

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"

	"go.uber.org/zap"

	"remote-screen/pkg/errno"
)

const (
	CommandSendAPDU = "SendAPDU"
	CommandPing     = "Ping"
	ResponseError   = "Error"

	terminator      = '\n'
	maxResponseSize = 1 << 20
)

// Command is a request to the control panel.
type Command struct {
	Command   string   `json:"command"`
	Arguments []string `json:"arguments"`
}

// Response is the panel's answer.
type Response struct {
	Response  string   `json:"response"`
	Arguments []string `json:"arguments"`
}

// Stream is the established outer tunnel (*transport.Conn).
type Stream interface {
	Write(ctx context.Context, p []byte) error
	ReadChunk(ctx context.Context) ([]byte, error)
}

// Exchange speaks the newline-terminated JSON protocol. One command is in
// flight at a time.
type Exchange struct {
	stream Stream
	log    *zap.Logger
}

func New(stream Stream, log *zap.Logger) *Exchange {
	if log == nil {
		log = zap.NewNop()
	}
	return &Exchange{stream: stream, log: log}
}

func protocolError() error {
	return errno.NewRemoteProtocolError(errno.ErrProtocol)
}

// Do sends cmd and waits for the complete response. A panel "Error" reply
// with one argument becomes a RemoteProtocolError carrying that message.
func (e *Exchange) Do(ctx context.Context, cmd Command) (Response, error) {
	if cmd.Arguments == nil {
		cmd.Arguments = []string{}
	}
	req, err := json.Marshal(cmd)
	if err != nil {
		return Response{}, err
	}
	if err := e.stream.Write(ctx, append(req, terminator)); err != nil {
		return Response{}, err
	}

	// 响应可能分多次到达，每次检查结尾
	var buf []byte
	for len(buf) == 0 || buf[len(buf)-1] != terminator {
		chunk, err := e.stream.ReadChunk(ctx)
		if err != nil {
			return Response{}, err
		}
		buf = append(buf, chunk...)
		if len(buf) > maxResponseSize {
			return Response{}, errno.NewRemoteProtocolError("response too large")
		}
	}

	var resp Response
	if err := json.Unmarshal(bytes.TrimSpace(buf), &resp); err != nil {
		e.log.Debug("malformed response", zap.Error(err), zap.Int("bytes", len(buf)))
		return Response{}, protocolError()
	}
	if resp.Response == ResponseError {
		if len(resp.Arguments) == 1 {
			return Response{}, errno.NewRemoteProtocolError(resp.Arguments[0])
		}
		return Response{}, protocolError()
	}
	return resp, nil
}

// SendAPDU relays one APDU to the device behind the panel.
func (e *Exchange) SendAPDU(ctx context.Context, apdu []byte) ([]byte, error) {
	resp, err := e.Do(ctx, Command{
		Command:   CommandSendAPDU,
		Arguments: []string{base64.StdEncoding.EncodeToString(apdu)},
	})
	if err != nil {
		return nil, err
	}
	if resp.Response != CommandSendAPDU || len(resp.Arguments) != 1 {
		return nil, protocolError()
	}
	out, err := base64.StdEncoding.DecodeString(resp.Arguments[0])
	if err != nil {
		return nil, protocolError()
	}
	return out, nil
}

// Ping checks that the panel is responsive.
func (e *Exchange) Ping(ctx context.Context) error {
	resp, err := e.Do(ctx, Command{Command: CommandPing})
	if err != nil {
		return err
	}
	if resp.Response != CommandPing {
		return protocolError()
	}
	return nil
}
