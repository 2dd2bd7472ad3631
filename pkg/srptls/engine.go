package srptls

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"hash"
	"io"

	"remote-screen/pkg/srp"
)

type handshakeState int

const (
	// client
	stateWaitServerHello handshakeState = iota
	stateWaitServerKeyExchange
	stateWaitServerHelloDone
	// server
	stateWaitClientHello
	stateWaitClientKeyExchange
	// both
	stateWaitChangeCipherSpec
	stateWaitFinished
	stateEstablished
)

// Engine is one side of an SRP TLS session.
type Engine struct {
	cfg      Config
	isClient bool
	rand     io.Reader
	state    handshakeState

	out   []byte // wire bytes for the peer
	rawIn []byte // partial records
	hsIn  []byte // partial handshake messages
	appIn []byte // decrypted application data

	transcript   hash.Hash
	clientRandom []byte
	serverRandom []byte
	masterSecret []byte

	readState    *cbcState
	writeState   *cbcState
	pendingRead  *cbcState
	pendingWrite *cbcState

	clientPublic []byte
	premaster    []byte
	srpServer    *srp.Server

	done       bool
	peerClosed bool
	err        error
}

func newEngine(cfg Config, isClient bool) *Engine {
	rnd := cfg.Rand
	if rnd == nil {
		rnd = rand.Reader
	}
	return &Engine{
		cfg:        cfg,
		isClient:   isClient,
		rand:       rnd,
		transcript: sha256.New(),
	}
}

// Client creates the client side and queues its ClientHello.
func Client(cfg Config) (*Engine, error) {
	if len(cfg.Password) == 0 {
		return nil, errors.New("srptls: client requires a password")
	}
	e := newEngine(cfg, true)
	e.state = stateWaitServerHello

	e.clientRandom = make([]byte, randomLen)
	if _, err := io.ReadFull(e.rand, e.clientRandom); err != nil {
		return nil, err
	}
	hello := &clientHelloMsg{
		vers:                         VersionTLS12,
		random:                       e.clientRandom,
		cipherSuites:                 []uint16{TLS_SRP_SHA_WITH_AES_256_CBC_SHA},
		compressionMethods:           []uint8{0},
		srpIdentity:                  cfg.identity(),
		secureRenegotiationSupported: true,
	}
	msg, err := hello.marshal()
	if err != nil {
		return nil, err
	}
	if err := e.writeHandshake(msg); err != nil {
		return nil, err
	}
	return e, nil
}

// Server creates the server side; it waits for a ClientHello.
func Server(cfg Config) (*Engine, error) {
	if err := cfg.Group.Validate(); err != nil {
		return nil, err
	}
	if cfg.Verifier == nil || len(cfg.Salt) == 0 {
		return nil, errors.New("srptls: server requires salt and verifier")
	}
	e := newEngine(cfg, false)
	e.state = stateWaitClientHello
	return e, nil
}

// HandshakeDone reports whether both Finished messages have been verified.
func (e *Engine) HandshakeDone() bool {
	return e.done
}

// OfferOutput encrypts application data for the peer.
func (e *Engine) OfferOutput(p []byte) error {
	if e.err != nil {
		return e.err
	}
	if !e.done {
		return ErrHandshakeIncomplete
	}
	return e.writeRecord(recordTypeApplicationData, p)
}

// ReadOutput drains the wire bytes queued for the peer. Once the buffer is
// empty a fatal error is reported.
func (e *Engine) ReadOutput() ([]byte, error) {
	out := e.out
	e.out = nil
	if len(out) == 0 && e.err != nil {
		return nil, e.err
	}
	return out, nil
}

// OfferInput consumes wire bytes from the peer, which may hold any number of
// partial or complete records.
func (e *Engine) OfferInput(p []byte) error {
	if e.err != nil {
		return e.err
	}
	e.rawIn = append(e.rawIn, p...)
	for len(e.rawIn) >= recordHeaderLen {
		typ := recordType(e.rawIn[0])
		vers := binary.BigEndian.Uint16(e.rawIn[1:3])
		n := int(binary.BigEndian.Uint16(e.rawIn[3:5]))
		if vers>>8 != 0x03 {
			return e.fail(alertProtocolVersion, fmt.Errorf("record version %#04x", vers))
		}
		if n > maxCiphertext {
			return e.fail(alertRecordOverflow, fmt.Errorf("record of %d bytes", n))
		}
		if len(e.rawIn) < recordHeaderLen+n {
			break
		}
		fragment := append([]byte(nil), e.rawIn[recordHeaderLen:recordHeaderLen+n]...)
		e.rawIn = e.rawIn[recordHeaderLen+n:]
		if err := e.handleRecord(typ, fragment); err != nil {
			return err
		}
	}
	return nil
}

// ReadInput drains decrypted application data. After the peer's
// close_notify it returns io.EOF once nothing is left.
func (e *Engine) ReadInput() ([]byte, error) {
	in := e.appIn
	e.appIn = nil
	if len(in) == 0 {
		if e.err != nil {
			return nil, e.err
		}
		if e.peerClosed {
			return nil, io.EOF
		}
	}
	return in, nil
}

// CloseNotify queues a close_notify alert.
func (e *Engine) CloseNotify() error {
	if e.err != nil {
		return e.err
	}
	return e.writeRecord(recordTypeAlert, []byte{alertLevelWarning, alertCloseNotify})
}

func (e *Engine) writeRecord(typ recordType, data []byte) error {
	for first := true; first || len(data) > 0; first = false {
		n := min(len(data), maxPlaintext)
		fragment := data[:n]
		data = data[n:]

		if e.writeState != nil {
			sealed, err := e.writeState.seal(typ, fragment, e.rand)
			if err != nil {
				return err
			}
			fragment = sealed
		}
		var hdr [recordHeaderLen]byte
		hdr[0] = byte(typ)
		binary.BigEndian.PutUint16(hdr[1:3], VersionTLS12)
		binary.BigEndian.PutUint16(hdr[3:5], uint16(len(fragment)))
		e.out = append(e.out, hdr[:]...)
		e.out = append(e.out, fragment...)
	}
	return nil
}

func (e *Engine) writeHandshake(msg []byte) error {
	e.transcript.Write(msg)
	return e.writeRecord(recordTypeHandshake, msg)
}

func (e *Engine) writeChangeCipherSpec() error {
	if err := e.writeRecord(recordTypeChangeCipherSpec, []byte{1}); err != nil {
		return err
	}
	e.writeState, e.pendingWrite = e.pendingWrite, nil
	return nil
}

// fail records a fatal error and queues the matching alert. Later calls
// keep returning the first error.
func (e *Engine) fail(a uint8, cause error) error {
	if e.err != nil {
		return e.err
	}
	_ = e.writeRecord(recordTypeAlert, []byte{alertLevelError, a})
	e.err = &AlertError{Alert: a, Err: cause}
	return e.err
}

func (e *Engine) handleRecord(typ recordType, fragment []byte) error {
	if e.readState != nil {
		plain, err := e.readState.open(typ, fragment)
		if err != nil {
			return e.fail(alertBadRecordMAC, err)
		}
		fragment = plain
	}
	if len(fragment) > maxPlaintext {
		return e.fail(alertRecordOverflow, errors.New("plaintext too large"))
	}

	switch typ {
	case recordTypeChangeCipherSpec:
		if len(fragment) != 1 || fragment[0] != 1 {
			return e.fail(alertDecodeError, errors.New("malformed ChangeCipherSpec"))
		}
		if e.state != stateWaitChangeCipherSpec || len(e.hsIn) != 0 || e.pendingRead == nil {
			return e.fail(alertUnexpectedMessage, errors.New("unexpected ChangeCipherSpec"))
		}
		e.readState, e.pendingRead = e.pendingRead, nil
		e.state = stateWaitFinished
		return nil

	case recordTypeAlert:
		if len(fragment) != 2 {
			return e.fail(alertDecodeError, errors.New("malformed alert"))
		}
		if fragment[1] == alertCloseNotify {
			e.peerClosed = true
			return nil
		}
		if fragment[0] == alertLevelWarning {
			return nil
		}
		e.err = &AlertError{Alert: fragment[1], Remote: true}
		return e.err

	case recordTypeHandshake:
		e.hsIn = append(e.hsIn, fragment...)
		for len(e.hsIn) >= 4 {
			n := int(e.hsIn[1])<<16 | int(e.hsIn[2])<<8 | int(e.hsIn[3])
			if n > maxHandshakeSize {
				return e.fail(alertDecodeError, fmt.Errorf("handshake message of %d bytes", n))
			}
			if len(e.hsIn) < 4+n {
				break
			}
			msg := e.hsIn[: 4+n : 4+n]
			e.hsIn = e.hsIn[4+n:]
			if err := e.handleHandshake(msg); err != nil {
				return err
			}
		}
		return nil

	case recordTypeApplicationData:
		if !e.done {
			return e.fail(alertUnexpectedMessage, errors.New("application data before Finished"))
		}
		e.appIn = append(e.appIn, fragment...)
		return nil

	default:
		return e.fail(alertUnexpectedMessage, fmt.Errorf("record type %d", typ))
	}
}

func (e *Engine) handleHandshake(msg []byte) error {
	if e.done {
		if msg[0] == typeHelloRequest && len(msg) == 4 {
			return nil
		}
		return e.fail(alertUnexpectedMessage, errors.New("renegotiation is not supported"))
	}
	if e.isClient {
		return e.clientHandshake(msg)
	}
	return e.serverHandshake(msg)
}

// establishKeys derives the session keys and arms the pending cipher states.
func (e *Engine) establishKeys(premaster []byte) error {
	e.masterSecret = masterFromPremaster(premaster, e.clientRandom, e.serverRandom)
	kb := keysFromMaster(e.masterSecret, e.clientRandom, e.serverRandom)

	clientState, err := newCBCState(kb.clientKey, kb.clientMAC)
	if err != nil {
		return e.fail(alertInternalError, err)
	}
	serverState, err := newCBCState(kb.serverKey, kb.serverMAC)
	if err != nil {
		return e.fail(alertInternalError, err)
	}
	if e.isClient {
		e.pendingWrite, e.pendingRead = clientState, serverState
	} else {
		e.pendingWrite, e.pendingRead = serverState, clientState
	}
	return nil
}

func unexpected(msg []byte, want string) error {
	return fmt.Errorf("got handshake message type %d, want %s", msg[0], want)
}
