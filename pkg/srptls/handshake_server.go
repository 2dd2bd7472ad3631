package srptls

import (
	"crypto/hmac"
	"errors"
	"io"
	"math/big"
	"slices"

	"remote-screen/pkg/srp"
)

func (e *Engine) serverHandshake(msg []byte) error {
	switch e.state {
	case stateWaitClientHello:
		if msg[0] != typeClientHello {
			return e.fail(alertUnexpectedMessage, unexpected(msg, "ClientHello"))
		}
		var hello clientHelloMsg
		if !hello.unmarshal(msg) {
			return e.fail(alertDecodeError, errors.New("malformed ClientHello"))
		}
		if hello.vers < VersionTLS12 {
			return e.fail(alertProtocolVersion, errors.New("client does not support TLS 1.2"))
		}
		if !slices.Contains(hello.cipherSuites, TLS_SRP_SHA_WITH_AES_256_CBC_SHA) {
			return e.fail(alertHandshakeFailure, ErrUnsupportedCipherSuite)
		}
		if !slices.Contains(hello.compressionMethods, 0) {
			return e.fail(alertIllegalParameter, errors.New("client does not offer null compression"))
		}
		if hello.srpIdentity == "" {
			return e.fail(alertHandshakeFailure, errors.New("missing SRP extension"))
		}
		if hello.srpIdentity != e.cfg.identity() {
			return e.fail(alertUnknownPSKIdentity, errors.New("unknown SRP identity"))
		}
		e.clientRandom = hello.random
		e.transcript.Write(msg)
		// SCSV 与空 renegotiation_info 扩展等价
		secureRenegotiation := hello.secureRenegotiationSupported ||
			slices.Contains(hello.cipherSuites, scsvRenegotiation)
		return e.sendServerFlight(secureRenegotiation)

	case stateWaitClientKeyExchange:
		if msg[0] != typeClientKeyExchange {
			return e.fail(alertUnexpectedMessage, unexpected(msg, "ClientKeyExchange"))
		}
		var cke clientKeyExchangeMsg
		if !cke.unmarshal(msg) {
			return e.fail(alertDecodeError, errors.New("malformed ClientKeyExchange"))
		}
		premaster, err := e.srpServer.PremasterSecret(new(big.Int).SetBytes(cke.a))
		if err != nil {
			return e.fail(alertIllegalParameter, err)
		}
		e.transcript.Write(msg)
		if err := e.establishKeys(premaster); err != nil {
			return err
		}
		clear(premaster)
		e.state = stateWaitChangeCipherSpec
		return nil

	case stateWaitFinished:
		if msg[0] != typeFinished {
			return e.fail(alertUnexpectedMessage, unexpected(msg, "Finished"))
		}
		var fin finishedMsg
		if !fin.unmarshal(msg) {
			return e.fail(alertDecodeError, errors.New("malformed Finished"))
		}
		want := finishedSum(e.masterSecret, labelClientFinished, e.transcript)
		if !hmac.Equal(want, fin.verifyData) {
			return e.fail(alertDecryptError, errors.New("client Finished does not verify"))
		}
		e.transcript.Write(msg)

		if err := e.writeChangeCipherSpec(); err != nil {
			return e.fail(alertInternalError, err)
		}
		out, err := (&finishedMsg{verifyData: finishedSum(e.masterSecret, labelServerFinished, e.transcript)}).marshal()
		if err != nil {
			return e.fail(alertInternalError, err)
		}
		if err := e.writeHandshake(out); err != nil {
			return e.fail(alertInternalError, err)
		}
		e.state = stateEstablished
		e.done = true
		return nil

	default:
		return e.fail(alertUnexpectedMessage, unexpected(msg, "nothing"))
	}
}

// sendServerFlight writes ServerHello, ServerKeyExchange and ServerHelloDone.
func (e *Engine) sendServerFlight(renegotiationInfo bool) error {
	srv, err := srp.NewServer(e.cfg.Group, e.cfg.Verifier, e.rand)
	if err != nil {
		return e.fail(alertInternalError, err)
	}
	e.srpServer = srv

	e.serverRandom = make([]byte, randomLen)
	if _, err := io.ReadFull(e.rand, e.serverRandom); err != nil {
		return e.fail(alertInternalError, err)
	}

	hello, err := (&serverHelloMsg{
		vers:                         VersionTLS12,
		random:                       e.serverRandom,
		cipherSuite:                  TLS_SRP_SHA_WITH_AES_256_CBC_SHA,
		secureRenegotiationSupported: renegotiationInfo,
	}).marshal()
	if err != nil {
		return e.fail(alertInternalError, err)
	}
	skx, err := (&serverKeyExchangeMsg{
		n:    e.cfg.Group.N.Bytes(),
		g:    e.cfg.Group.G.Bytes(),
		salt: e.cfg.Salt,
		b:    srv.Public().Bytes(),
	}).marshal()
	if err != nil {
		return e.fail(alertInternalError, err)
	}
	done, err := marshalServerHelloDone()
	if err != nil {
		return e.fail(alertInternalError, err)
	}

	for _, m := range [][]byte{hello, skx, done} {
		if err := e.writeHandshake(m); err != nil {
			return e.fail(alertInternalError, err)
		}
	}
	e.state = stateWaitClientKeyExchange
	return nil
}
