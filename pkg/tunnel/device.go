package tunnel

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"remote-screen/pkg/errno"
)

const readBufferSize = 4096

// Device is the inner tunnel: TLS 1.2 to the secure element, carried over
// whatever relay the driver provides.
type Device struct {
	conn *pipeConn
	tls  *tls.Conn
	log  *zap.Logger
}

// NewDeviceClient starts the client side. The peer certificate is accepted
// only when its public key matches pinnedKey (lowercase hex, see PinnedKey).
func NewDeviceClient(pinnedKey string, log *zap.Logger) *Device {
	if log == nil {
		log = zap.NewNop()
	}
	cfg := &tls.Config{
		MinVersion:             tls.VersionTLS12,
		MaxVersion:             tls.VersionTLS12,
		SessionTicketsDisabled: true,
		// 证书链不做校验，只比对公钥
		InsecureSkipVerify: true,
		VerifyPeerCertificate: func(rawCerts [][]byte, _ [][]*x509.Certificate) error {
			if len(rawCerts) == 0 {
				return fmt.Errorf("%w: no certificate presented", errno.ErrInvalidPeerCertificate)
			}
			cert, err := x509.ParseCertificate(rawCerts[0])
			if err != nil {
				return fmt.Errorf("%w: %v", errno.ErrInvalidPeerCertificate, err)
			}
			return VerifyPinnedKey(cert, pinnedKey)
		},
	}
	conn := newPipeConn()
	return start(conn, tls.Client(conn, cfg), log)
}

// NewDeviceServer starts the device side with the given certificate.
func NewDeviceServer(cert tls.Certificate) *Device {
	cfg := &tls.Config{
		MinVersion:             tls.VersionTLS12,
		MaxVersion:             tls.VersionTLS12,
		SessionTicketsDisabled: true,
		Certificates:           []tls.Certificate{cert},
	}
	conn := newPipeConn()
	return start(conn, tls.Server(conn, cfg), zap.NewNop())
}

func start(conn *pipeConn, t *tls.Conn, log *zap.Logger) *Device {
	d := &Device{conn: conn, tls: t, log: log}
	go func() {
		err := t.Handshake()
		if err == nil {
			st := t.ConnectionState()
			log.Debug("device tunnel established",
				zap.String("cipher_suite", tls.CipherSuiteName(st.CipherSuite)))
		} else {
			log.Debug("device tunnel handshake failed", zap.Error(err))
		}
		conn.finish(err)
	}()
	return d
}

// HandshakeDone reports a successfully completed handshake.
func (d *Device) HandshakeDone() bool {
	finished, err := d.conn.state()
	return finished && err == nil
}

// ReadOutput returns the bytes the TLS stack wants sent, waiting for the
// handshake goroutine to run out of input first. An empty result is valid
// during the handshake.
func (d *Device) ReadOutput() ([]byte, error) {
	out := d.conn.drain()
	if len(out) == 0 {
		if finished, err := d.conn.state(); finished && err != nil {
			return nil, err
		}
	}
	return out, nil
}

// OfferInput hands peer bytes to the TLS stack and returns once they are
// consumed. Handshake failures (a pin mismatch among them) surface here.
func (d *Device) OfferInput(p []byte) error {
	d.conn.push(p)
	if finished, err := d.conn.state(); finished && err != nil {
		return err
	}
	return nil
}

// OfferOutput encrypts p for the peer.
func (d *Device) OfferOutput(p []byte) error {
	finished, err := d.conn.state()
	if err != nil {
		return err
	}
	if !finished {
		return errors.New("tunnel: handshake not complete")
	}
	_, err = d.tls.Write(p)
	return err
}

// ReadInput returns all plaintext decodable from the input offered so far.
func (d *Device) ReadInput() ([]byte, error) {
	if !d.HandshakeDone() {
		return nil, errors.New("tunnel: handshake not complete")
	}
	var plain []byte
	buf := make([]byte, readBufferSize)
	for {
		n, err := d.tls.Read(buf)
		plain = append(plain, buf[:n]...)
		if err == nil {
			continue
		}
		if errors.Is(err, errWouldBlock) || len(plain) > 0 {
			return plain, nil
		}
		return nil, err
	}
}

// Close releases the handshake goroutine if it is still waiting. Nothing is
// sent to the peer.
func (d *Device) Close() error {
	return d.conn.Close()
}
