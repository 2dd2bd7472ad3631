package srptls

import (
	"crypto/hmac"
	"errors"
	"fmt"
	"math/big"

	"remote-screen/pkg/srp"
)

func (e *Engine) clientHandshake(msg []byte) error {
	switch e.state {
	case stateWaitServerHello:
		if msg[0] != typeServerHello {
			return e.fail(alertUnexpectedMessage, unexpected(msg, "ServerHello"))
		}
		var hello serverHelloMsg
		if !hello.unmarshal(msg) {
			return e.fail(alertDecodeError, errors.New("malformed ServerHello"))
		}
		if hello.vers != VersionTLS12 {
			return e.fail(alertProtocolVersion, fmt.Errorf("server selected version %#04x", hello.vers))
		}
		if hello.cipherSuite != TLS_SRP_SHA_WITH_AES_256_CBC_SHA {
			return e.fail(alertIllegalParameter, fmt.Errorf("%w (got %#04x)", ErrUnsupportedCipherSuite, hello.cipherSuite))
		}
		if hello.compressionMethod != 0 {
			return e.fail(alertIllegalParameter, errors.New("server selected compression"))
		}
		if hello.hasUnknownExtension {
			return e.fail(alertUnsupportedExtension, fmt.Errorf("unsolicited extension %d", hello.unknownExtension))
		}
		e.serverRandom = hello.random
		e.transcript.Write(msg)
		e.state = stateWaitServerKeyExchange
		return nil

	case stateWaitServerKeyExchange:
		if msg[0] != typeServerKeyExchange {
			return e.fail(alertUnexpectedMessage, unexpected(msg, "ServerKeyExchange"))
		}
		var skx serverKeyExchangeMsg
		if !skx.unmarshal(msg) {
			return e.fail(alertDecodeError, errors.New("malformed ServerKeyExchange"))
		}
		group := &srp.Group{N: new(big.Int).SetBytes(skx.n), G: new(big.Int).SetBytes(skx.g)}
		client, err := srp.NewClient(group, e.rand)
		if err != nil {
			return e.fail(alertInsufficientSecurity, err)
		}
		premaster, err := client.PremasterSecret(skx.salt, []byte(e.cfg.identity()), e.cfg.Password, new(big.Int).SetBytes(skx.b))
		if err != nil {
			return e.fail(alertIllegalParameter, err)
		}
		e.clientPublic = client.Public().Bytes()
		e.premaster = premaster
		e.transcript.Write(msg)
		e.state = stateWaitServerHelloDone
		return nil

	case stateWaitServerHelloDone:
		if msg[0] != typeServerHelloDone {
			return e.fail(alertUnexpectedMessage, unexpected(msg, "ServerHelloDone"))
		}
		if len(msg) != 4 {
			return e.fail(alertDecodeError, errors.New("malformed ServerHelloDone"))
		}
		e.transcript.Write(msg)

		// 1. ClientKeyExchange
		cke, err := (&clientKeyExchangeMsg{a: e.clientPublic}).marshal()
		if err != nil {
			return e.fail(alertInternalError, err)
		}
		if err := e.writeHandshake(cke); err != nil {
			return e.fail(alertInternalError, err)
		}

		// 2. 派生密钥
		if err := e.establishKeys(e.premaster); err != nil {
			return err
		}
		clear(e.premaster)
		e.premaster = nil

		// 3. ChangeCipherSpec + Finished
		if err := e.writeChangeCipherSpec(); err != nil {
			return e.fail(alertInternalError, err)
		}
		fin, err := (&finishedMsg{verifyData: finishedSum(e.masterSecret, labelClientFinished, e.transcript)}).marshal()
		if err != nil {
			return e.fail(alertInternalError, err)
		}
		if err := e.writeHandshake(fin); err != nil {
			return e.fail(alertInternalError, err)
		}
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
		want := finishedSum(e.masterSecret, labelServerFinished, e.transcript)
		if !hmac.Equal(want, fin.verifyData) {
			return e.fail(alertDecryptError, errors.New("server Finished does not verify"))
		}
		e.transcript.Write(msg)
		e.state = stateEstablished
		e.done = true
		return nil

	default:
		return e.fail(alertUnexpectedMessage, unexpected(msg, "nothing"))
	}
}
