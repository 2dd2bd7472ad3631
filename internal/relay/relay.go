package relay

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"remote-screen/pkg/apdu"
	"remote-screen/pkg/errno"
	"remote-screen/pkg/monitor"
	"remote-screen/pkg/tunnel"
)

// maxHandshakeRounds bounds the handshake against a device that never finishes.
const maxHandshakeRounds = 32

// Sender delivers one APDU to the device and returns its raw response,
// status word included. *exchange.Exchange satisfies it.
type Sender interface {
	SendAPDU(ctx context.Context, apdu []byte) ([]byte, error)
}

// Tunnel is an established inner tunnel: every APDU is encrypted for the
// secure element and relayed as a wrapped command.
type Tunnel struct {
	sender  Sender
	engine  tunnel.Engine
	log     *zap.Logger
	metrics *monitor.Metrics
}

// Open selects the SSL applet, resets it and runs the inner handshake over
// the relay. A pin mismatch comes back as errno.ErrInvalidPeerCertificate;
// other failures as errno.ErrRelayFailure.
func Open(ctx context.Context, sender Sender, engine tunnel.Engine, log *zap.Logger, metrics *monitor.Metrics) (*Tunnel, error) {
	if log == nil {
		log = zap.NewNop()
	}
	t := &Tunnel{sender: sender, engine: engine, log: log, metrics: metrics}

	// 1. 选择 SSL applet
	if _, err := t.plain(ctx, apdu.SelectSSL, "select"); err != nil {
		return nil, err
	}
	// 2. 重置设备端隧道
	if _, err := t.plain(ctx, apdu.ResetSSL, "reset"); err != nil {
		return nil, err
	}

	// 3. 握手；本轮无数据可发时也要发送，设备可能还有回应
	start := time.Now()
	for round := 0; !engine.HandshakeDone(); round++ {
		if round == maxHandshakeRounds {
			return nil, fmt.Errorf("%w: inner handshake did not complete", errno.ErrRelayFailure)
		}
		out, err := engine.ReadOutput()
		if err != nil {
			return nil, handshakeErr(err)
		}
		frame, err := apdu.Frame(apdu.HandshakeHeader, out)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errno.ErrRelayFailure, err)
		}
		body, err := t.plain(ctx, frame, "handshake")
		if err != nil {
			return nil, err
		}
		if err := engine.OfferInput(body); err != nil {
			return nil, handshakeErr(err)
		}
	}
	t.metrics.RecordHandshake("inner", time.Since(start))
	log.Debug("inner tunnel established", zap.Duration("took", time.Since(start)))
	return t, nil
}

func handshakeErr(err error) error {
	if errors.Is(err, errno.ErrInvalidPeerCertificate) {
		return errno.ErrInvalidPeerCertificate
	}
	return fmt.Errorf("%w: inner tunnel: %v", errno.ErrRelayFailure, err)
}

// plain sends an unwrapped command and requires status 9000.
func (t *Tunnel) plain(ctx context.Context, cmd []byte, kind string) ([]byte, error) {
	resp, err := t.sender.SendAPDU(ctx, cmd)
	if err != nil {
		return nil, err
	}
	t.metrics.RecordAPDU(kind)
	body, sw, err := apdu.SplitStatus(resp)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", errno.ErrRelayFailure, kind, err)
	}
	if sw != apdu.StatusOK {
		return nil, fmt.Errorf("%w: %s returned %04X", errno.ErrRelayFailure, kind, sw)
	}
	return body, nil
}

// Transmit sends cmd through the inner tunnel and returns the response body
// without its status word. A non-9000 device status is an
// *errno.DeviceStatusError; a body that is not expectedLen bytes long is a
// protocol error.
func (t *Tunnel) Transmit(ctx context.Context, cmd []byte, expectedLen int) ([]byte, error) {
	// 1. 加密
	if err := t.engine.OfferOutput(cmd); err != nil {
		return nil, fmt.Errorf("%w: wrap: %v", errno.ErrRelayFailure, err)
	}
	wrapped, err := t.engine.ReadOutput()
	if err != nil {
		return nil, fmt.Errorf("%w: wrap: %v", errno.ErrRelayFailure, err)
	}
	frame, err := apdu.Frame(apdu.WrappedHeader, wrapped)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errno.ErrRelayFailure, err)
	}

	// 2. 转发
	body, err := t.plain(ctx, frame, "wrapped")
	if err != nil {
		return nil, err
	}

	// 3. 解密
	if err := t.engine.OfferInput(body); err != nil {
		return nil, fmt.Errorf("%w: unwrap: %v", errno.ErrRelayFailure, err)
	}
	plain, err := t.engine.ReadInput()
	if err != nil {
		return nil, fmt.Errorf("%w: unwrap: %v", errno.ErrRelayFailure, err)
	}
	if len(plain) == 0 {
		return nil, errno.NewRemoteProtocolError("Error in APDU response")
	}

	// 4. 设备状态字
	data, sw, err := apdu.SplitStatus(plain)
	if err != nil {
		return nil, errno.NewRemoteProtocolError("invalid APDU response")
	}
	if sw != apdu.StatusOK {
		return nil, &errno.DeviceStatusError{SW: sw}
	}
	if len(data) != expectedLen {
		t.log.Debug("unexpected response length", zap.Int("want", expectedLen), zap.Int("got", len(data)))
		return nil, errno.NewRemoteProtocolError("invalid APDU response")
	}
	return data, nil
}
