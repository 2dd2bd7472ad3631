package mockpanel

import (
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"math/big"
	"net"
	"sync"

	"go.uber.org/zap"

	"remote-screen/internal/exchange"
	"remote-screen/pkg/pairing"
	"remote-screen/pkg/srp"
	"remote-screen/pkg/srptls"
)

const (
	readBufferSize = 4096
	srpKeySize     = 16
	saltSize       = 16
)

// Panel is the simulated control panel: it terminates the SRP tunnel and
// forwards SendAPDU commands to the device.
type Panel struct {
	device   *Device
	session  pairing.SessionConfig
	salt     []byte
	verifier *big.Int
	log      *zap.Logger

	mu        sync.Mutex
	connected bool
	listener  net.Listener
	conns     map[net.Conn]struct{}
	wg        sync.WaitGroup
}

// New creates a panel with a random SRP key for device.
func New(guid string, device *Device, log *zap.Logger) (*Panel, error) {
	if log == nil {
		log = zap.NewNop()
	}
	key := make([]byte, srpKeySize)
	salt := make([]byte, saltSize)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}

	session := pairing.SessionConfig{
		GUID:      guid,
		SRPKey:    hex.EncodeToString(key),
		PublicKey: device.PinnedKey(),
	}
	if err := session.Validate(); err != nil {
		return nil, err
	}

	return &Panel{
		device:    device,
		session:   session,
		salt:      salt,
		verifier:  srp.RFC5054Group1024.Verifier(salt, []byte(srptls.DefaultIdentity), key),
		log:       log,
		connected: true,
		conns:     make(map[net.Conn]struct{}),
	}, nil
}

// Session is what the phone learns from the pairing QR code.
func (p *Panel) Session() pairing.SessionConfig {
	return p.session
}

// SetDeviceConnected simulates unplugging the device from the panel.
func (p *Panel) SetDeviceConnected(connected bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.connected = connected
}

// Serve accepts connections on ln until Close is called.
func (p *Panel) Serve(ln net.Listener) error {
	p.mu.Lock()
	p.listener = ln
	p.mu.Unlock()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		p.mu.Lock()
		p.conns[conn] = struct{}{}
		p.mu.Unlock()

		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			p.handle(conn)
		}()
	}
}

// Close stops accepting, drops open connections and waits for their handlers.
func (p *Panel) Close() error {
	p.mu.Lock()
	var err error
	if p.listener != nil {
		err = p.listener.Close()
	}
	for conn := range p.conns {
		_ = conn.Close()
	}
	p.mu.Unlock()

	p.wg.Wait()
	return err
}

func (p *Panel) handle(conn net.Conn) {
	log := p.log.With(zap.String("remote", conn.RemoteAddr().String()))
	defer func() {
		_ = conn.Close()
		p.mu.Lock()
		delete(p.conns, conn)
		p.mu.Unlock()
	}()

	engine, err := srptls.Server(srptls.Config{
		Group:    srp.RFC5054Group1024,
		Salt:     p.salt,
		Verifier: p.verifier,
	})
	if err != nil {
		log.Error("create tunnel engine", zap.Error(err))
		return
	}

	buf := make([]byte, readBufferSize)
	var pending []byte
	for {
		n, err := conn.Read(buf)
		if err != nil {
			log.Debug("connection closed", zap.Error(err))
			return
		}

		// 1. 解密
		ierr := engine.OfferInput(buf[:n])
		var closed bool
		if engine.HandshakeDone() {
			in, rerr := engine.ReadInput()
			pending = append(pending, in...)
			closed = errors.Is(rerr, io.EOF)

			// 2. 逐行处理命令
			for {
				i := bytes.IndexByte(pending, '\n')
				if i < 0 {
					break
				}
				line := pending[:i]
				pending = pending[i+1:]
				if err := engine.OfferOutput(append(p.process(log, line), '\n')); err != nil {
					log.Debug("encrypt response", zap.Error(err))
					return
				}
			}
		}

		// 3. 回写
		if out, _ := engine.ReadOutput(); len(out) > 0 {
			if _, err := conn.Write(out); err != nil {
				return
			}
		}
		if ierr != nil {
			log.Info("tunnel failed", zap.Error(ierr))
			return
		}
		if closed {
			return
		}
	}
}

func reply(name string, args ...string) []byte {
	if args == nil {
		args = []string{}
	}
	b, _ := json.Marshal(exchange.Response{Response: name, Arguments: args})
	return b
}

func (p *Panel) process(log *zap.Logger, line []byte) []byte {
	var cmd exchange.Command
	if err := json.Unmarshal(line, &cmd); err != nil {
		return reply(exchange.ResponseError, "Invalid command")
	}

	switch cmd.Command {
	case exchange.CommandPing:
		return reply(exchange.CommandPing)
	case exchange.CommandSendAPDU:
		if len(cmd.Arguments) != 1 {
			return reply(exchange.ResponseError, "Invalid arguments")
		}
		req, err := base64.StdEncoding.DecodeString(cmd.Arguments[0])
		if err != nil {
			return reply(exchange.ResponseError, "Invalid arguments")
		}
		p.mu.Lock()
		connected := p.connected
		p.mu.Unlock()
		if !connected {
			return reply(exchange.ResponseError, "Device not connected")
		}
		resp := p.device.Transmit(req)
		log.Debug("apdu", zap.Int("request", len(req)), zap.Int("response", len(resp)))
		return reply(exchange.CommandSendAPDU, base64.StdEncoding.EncodeToString(resp))
	}
	return reply(exchange.ResponseError, "Unknown command")
}
