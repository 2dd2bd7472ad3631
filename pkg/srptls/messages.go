package srptls

import (
	"golang.org/x/crypto/cryptobyte"
)

func readUint8LengthPrefixed(s *cryptobyte.String, out *[]byte) bool {
	return s.ReadUint8LengthPrefixed((*cryptobyte.String)(out))
}

func readUint16LengthPrefixed(s *cryptobyte.String, out *[]byte) bool {
	return s.ReadUint16LengthPrefixed((*cryptobyte.String)(out))
}

// handshakeBody strips the 4-byte handshake header.
func handshakeBody(data []byte, typ uint8) (cryptobyte.String, bool) {
	s := cryptobyte.String(data)
	var msgType uint8
	var body cryptobyte.String
	if !s.ReadUint8(&msgType) || msgType != typ || !s.ReadUint24LengthPrefixed(&body) || !s.Empty() {
		return nil, false
	}
	return body, true
}

func marshalHandshake(typ uint8, body func(b *cryptobyte.Builder)) ([]byte, error) {
	var b cryptobyte.Builder
	b.AddUint8(typ)
	b.AddUint24LengthPrefixed(body)
	return b.Bytes()
}

type clientHelloMsg struct {
	vers                         uint16
	random                       []byte
	sessionID                    []byte
	cipherSuites                 []uint16
	compressionMethods           []uint8
	srpIdentity                  string
	secureRenegotiationSupported bool
}

func (m *clientHelloMsg) marshal() ([]byte, error) {
	return marshalHandshake(typeClientHello, func(b *cryptobyte.Builder) {
		b.AddUint16(m.vers)
		b.AddBytes(m.random)
		b.AddUint8LengthPrefixed(func(b *cryptobyte.Builder) {
			b.AddBytes(m.sessionID)
		})
		b.AddUint16LengthPrefixed(func(b *cryptobyte.Builder) {
			for _, suite := range m.cipherSuites {
				b.AddUint16(suite)
			}
		})
		b.AddUint8LengthPrefixed(func(b *cryptobyte.Builder) {
			b.AddBytes(m.compressionMethods)
		})
		b.AddUint16LengthPrefixed(func(b *cryptobyte.Builder) {
			if m.srpIdentity != "" {
				b.AddUint16(extensionSRP)
				b.AddUint16LengthPrefixed(func(b *cryptobyte.Builder) {
					b.AddUint8LengthPrefixed(func(b *cryptobyte.Builder) {
						b.AddBytes([]byte(m.srpIdentity))
					})
				})
			}
			if m.secureRenegotiationSupported {
				b.AddUint16(extensionRenegotiationInfo)
				b.AddUint16LengthPrefixed(func(b *cryptobyte.Builder) {
					b.AddUint8(0)
				})
			}
		})
	})
}

func (m *clientHelloMsg) unmarshal(data []byte) bool {
	s, ok := handshakeBody(data, typeClientHello)
	if !ok {
		return false
	}
	var suites cryptobyte.String
	if !s.ReadUint16(&m.vers) || !s.ReadBytes(&m.random, randomLen) ||
		!readUint8LengthPrefixed(&s, &m.sessionID) || !s.ReadUint16LengthPrefixed(&suites) {
		return false
	}
	for !suites.Empty() {
		var suite uint16
		if !suites.ReadUint16(&suite) {
			return false
		}
		m.cipherSuites = append(m.cipherSuites, suite)
	}
	if !readUint8LengthPrefixed(&s, &m.compressionMethods) {
		return false
	}
	if s.Empty() {
		return true
	}

	var exts cryptobyte.String
	if !s.ReadUint16LengthPrefixed(&exts) || !s.Empty() {
		return false
	}
	for !exts.Empty() {
		var ext uint16
		var extData cryptobyte.String
		if !exts.ReadUint16(&ext) || !exts.ReadUint16LengthPrefixed(&extData) {
			return false
		}
		switch ext {
		case extensionSRP:
			var identity []byte
			if !readUint8LengthPrefixed(&extData, &identity) || len(identity) == 0 {
				return false
			}
			m.srpIdentity = string(identity)
		case extensionRenegotiationInfo:
			var info []byte
			if !readUint8LengthPrefixed(&extData, &info) || len(info) != 0 {
				return false
			}
			m.secureRenegotiationSupported = true
		default:
			// 忽略未知扩展
			continue
		}
		if !extData.Empty() {
			return false
		}
	}
	return true
}

type serverHelloMsg struct {
	vers                         uint16
	random                       []byte
	sessionID                    []byte
	cipherSuite                  uint16
	compressionMethod            uint8
	secureRenegotiationSupported bool
	unknownExtension             uint16
	hasUnknownExtension          bool
}

func (m *serverHelloMsg) marshal() ([]byte, error) {
	return marshalHandshake(typeServerHello, func(b *cryptobyte.Builder) {
		b.AddUint16(m.vers)
		b.AddBytes(m.random)
		b.AddUint8LengthPrefixed(func(b *cryptobyte.Builder) {
			b.AddBytes(m.sessionID)
		})
		b.AddUint16(m.cipherSuite)
		b.AddUint8(m.compressionMethod)
		if m.secureRenegotiationSupported || m.hasUnknownExtension {
			b.AddUint16LengthPrefixed(func(b *cryptobyte.Builder) {
				if m.secureRenegotiationSupported {
					b.AddUint16(extensionRenegotiationInfo)
					b.AddUint16LengthPrefixed(func(b *cryptobyte.Builder) {
						b.AddUint8(0)
					})
				}
				if m.hasUnknownExtension {
					b.AddUint16(m.unknownExtension)
					b.AddUint16(0)
				}
			})
		}
	})
}

func (m *serverHelloMsg) unmarshal(data []byte) bool {
	s, ok := handshakeBody(data, typeServerHello)
	if !ok {
		return false
	}
	if !s.ReadUint16(&m.vers) || !s.ReadBytes(&m.random, randomLen) ||
		!readUint8LengthPrefixed(&s, &m.sessionID) ||
		!s.ReadUint16(&m.cipherSuite) || !s.ReadUint8(&m.compressionMethod) {
		return false
	}
	if s.Empty() {
		return true
	}

	var exts cryptobyte.String
	if !s.ReadUint16LengthPrefixed(&exts) || !s.Empty() {
		return false
	}
	for !exts.Empty() {
		var ext uint16
		var extData cryptobyte.String
		if !exts.ReadUint16(&ext) || !exts.ReadUint16LengthPrefixed(&extData) {
			return false
		}
		switch ext {
		case extensionRenegotiationInfo:
			var info []byte
			if !readUint8LengthPrefixed(&extData, &info) || len(info) != 0 || !extData.Empty() {
				return false
			}
			m.secureRenegotiationSupported = true
		default:
			// 服务端不得返回客户端未请求的扩展
			m.unknownExtension = ext
			m.hasUnknownExtension = true
		}
	}
	return true
}

// serverKeyExchangeMsg carries the SRP parameters; the SRP_SHA suites are
// anonymous, so there is no signature.
type serverKeyExchangeMsg struct {
	n, g, salt, b []byte
}

func (m *serverKeyExchangeMsg) marshal() ([]byte, error) {
	return marshalHandshake(typeServerKeyExchange, func(b *cryptobyte.Builder) {
		b.AddUint16LengthPrefixed(func(b *cryptobyte.Builder) { b.AddBytes(m.n) })
		b.AddUint16LengthPrefixed(func(b *cryptobyte.Builder) { b.AddBytes(m.g) })
		b.AddUint8LengthPrefixed(func(b *cryptobyte.Builder) { b.AddBytes(m.salt) })
		b.AddUint16LengthPrefixed(func(b *cryptobyte.Builder) { b.AddBytes(m.b) })
	})
}

func (m *serverKeyExchangeMsg) unmarshal(data []byte) bool {
	s, ok := handshakeBody(data, typeServerKeyExchange)
	if !ok {
		return false
	}
	return readUint16LengthPrefixed(&s, &m.n) && len(m.n) > 0 &&
		readUint16LengthPrefixed(&s, &m.g) && len(m.g) > 0 &&
		readUint8LengthPrefixed(&s, &m.salt) &&
		readUint16LengthPrefixed(&s, &m.b) && len(m.b) > 0 &&
		s.Empty()
}

type clientKeyExchangeMsg struct {
	a []byte
}

func (m *clientKeyExchangeMsg) marshal() ([]byte, error) {
	return marshalHandshake(typeClientKeyExchange, func(b *cryptobyte.Builder) {
		b.AddUint16LengthPrefixed(func(b *cryptobyte.Builder) { b.AddBytes(m.a) })
	})
}

func (m *clientKeyExchangeMsg) unmarshal(data []byte) bool {
	s, ok := handshakeBody(data, typeClientKeyExchange)
	if !ok {
		return false
	}
	return readUint16LengthPrefixed(&s, &m.a) && len(m.a) > 0 && s.Empty()
}

func marshalServerHelloDone() ([]byte, error) {
	return marshalHandshake(typeServerHelloDone, func(*cryptobyte.Builder) {})
}

type finishedMsg struct {
	verifyData []byte
}

func (m *finishedMsg) marshal() ([]byte, error) {
	return marshalHandshake(typeFinished, func(b *cryptobyte.Builder) {
		b.AddBytes(m.verifyData)
	})
}

func (m *finishedMsg) unmarshal(data []byte) bool {
	s, ok := handshakeBody(data, typeFinished)
	if !ok {
		return false
	}
	return s.ReadBytes(&m.verifyData, finishedLen) && s.Empty()
}
