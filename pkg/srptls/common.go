// Package srptls is a TLS 1.2 engine for the single cipher suite
// TLS_SRP_SHA_WITH_AES_256_CBC_SHA (RFC 5054). It owns no socket: wire bytes
// go in through OfferInput and come out through ReadOutput, so the caller
// drives the exchange over whatever transport it has.
//
// An Engine is not safe for concurrent use.
package srptls

import (
	"errors"
	"fmt"
	"io"
	"math/big"

	"remote-screen/pkg/srp"
)

const (
	VersionTLS12 uint16 = 0x0303

	// TLS_SRP_SHA_WITH_AES_256_CBC_SHA is the only suite offered or accepted.
	TLS_SRP_SHA_WITH_AES_256_CBC_SHA uint16 = 0xC020

	// DefaultIdentity is the SRP user name the control panel expects.
	DefaultIdentity = "user"
)

const (
	recordHeaderLen  = 5
	maxPlaintext     = 16384
	maxCiphertext    = maxPlaintext + 2048
	maxHandshakeSize = 65536
	randomLen        = 32
)

type recordType uint8

const (
	recordTypeChangeCipherSpec recordType = 20
	recordTypeAlert            recordType = 21
	recordTypeHandshake        recordType = 22
	recordTypeApplicationData  recordType = 23
)

const (
	typeHelloRequest      uint8 = 0
	typeClientHello       uint8 = 1
	typeServerHello       uint8 = 2
	typeServerKeyExchange uint8 = 12
	typeServerHelloDone   uint8 = 14
	typeClientKeyExchange uint8 = 16
	typeFinished          uint8 = 20
)

const (
	extensionSRP               uint16 = 12
	extensionRenegotiationInfo uint16 = 0xff01
)

// TLS_EMPTY_RENEGOTIATION_INFO_SCSV, RFC 5746 3.3
const scsvRenegotiation uint16 = 0x00ff

const (
	alertLevelWarning uint8 = 1
	alertLevelError   uint8 = 2
)

const (
	alertCloseNotify          uint8 = 0
	alertUnexpectedMessage    uint8 = 10
	alertBadRecordMAC         uint8 = 20
	alertRecordOverflow       uint8 = 22
	alertHandshakeFailure     uint8 = 40
	alertIllegalParameter     uint8 = 47
	alertDecodeError          uint8 = 50
	alertDecryptError         uint8 = 51
	alertProtocolVersion      uint8 = 70
	alertInsufficientSecurity uint8 = 71
	alertInternalError        uint8 = 80
	alertUnsupportedExtension uint8 = 110
	alertUnknownPSKIdentity   uint8 = 115
)

var alertText = map[uint8]string{
	alertCloseNotify:          "close notify",
	alertUnexpectedMessage:    "unexpected message",
	alertBadRecordMAC:         "bad record MAC",
	alertRecordOverflow:       "record overflow",
	alertHandshakeFailure:     "handshake failure",
	alertIllegalParameter:     "illegal parameter",
	alertDecodeError:          "error decoding message",
	alertDecryptError:         "error decrypting message",
	alertProtocolVersion:      "protocol version not supported",
	alertInsufficientSecurity: "insufficient security level",
	alertInternalError:        "internal error",
	alertUnsupportedExtension: "unsupported extension",
	alertUnknownPSKIdentity:   "unknown PSK identity",
}

var (
	ErrHandshakeIncomplete    = errors.New("srptls: handshake not complete")
	ErrUnsupportedCipherSuite = errors.New("srptls: peer did not negotiate TLS_SRP_SHA_WITH_AES_256_CBC_SHA")
)

// AlertError is a fatal alert, either received from the peer or sent because
// of a local failure (Err holds the cause then).
type AlertError struct {
	Alert  uint8
	Remote bool
	Err    error
}

func (e *AlertError) Error() string {
	text, ok := alertText[e.Alert]
	if !ok {
		text = fmt.Sprintf("alert(%d)", e.Alert)
	}
	if e.Remote {
		return "srptls: remote error: " + text
	}
	if e.Err != nil {
		return fmt.Sprintf("srptls: %s: %v", text, e.Err)
	}
	return "srptls: local error: " + text
}

func (e *AlertError) Unwrap() error {
	return e.Err
}

// Config configures either side. Clients set Password; servers set Group,
// Salt and Verifier (srp.Group.Verifier).
type Config struct {
	Identity string
	Password []byte

	Group    *srp.Group
	Salt     []byte
	Verifier *big.Int

	// Rand defaults to crypto/rand.
	Rand io.Reader
}

func (c *Config) identity() string {
	if c.Identity == "" {
		return DefaultIdentity
	}
	return c.Identity
}
