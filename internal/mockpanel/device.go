// Package mockpanel simulates a control panel and the hardware device behind
// it: the server side of both tunnels plus the chain applets.
package mockpanel

import (
	"crypto/tls"
	"encoding/binary"
	"sync"
	"time"

	"go.uber.org/zap"

	"remote-screen/pkg/apdu"
	"remote-screen/pkg/tunnel"
	"remote-screen/pkg/wallet/types"
)

// Transaction is a pending transaction held by one chain applet.
type Transaction struct {
	Chain     types.Chain
	Raw       []byte
	TooBig    bool
	Remaining time.Duration

	// BTC: one amount per input, in satoshi
	Amounts []int64

	// ETH
	TxType uint16
	From   []byte
}

// Metadata encodes the applet's info response.
func (tx Transaction) Metadata() []byte {
	var tooBig byte
	if tx.TooBig {
		tooBig = 1
	}
	length := uint16(len(tx.Raw))
	remaining := uint32(tx.Remaining / time.Millisecond)

	var b []byte
	switch tx.Chain {
	case types.ChainBTC:
		b = append(b, tooBig)
		b = binary.BigEndian.AppendUint16(b, length)
		b = binary.BigEndian.AppendUint32(b, uint32(len(tx.Amounts)))
		b = binary.BigEndian.AppendUint32(b, remaining)
	case types.ChainETH:
		from := make([]byte, 20)
		copy(from, tx.From)
		b = binary.BigEndian.AppendUint16(b, tx.TxType)
		b = append(b, tooBig)
		b = binary.BigEndian.AppendUint16(b, length)
		b = append(b, from...)
		b = binary.BigEndian.AppendUint32(b, remaining)
	case types.ChainXRP:
		b = append(b, tooBig)
		b = binary.BigEndian.AppendUint16(b, length)
		b = binary.BigEndian.AppendUint32(b, remaining)
	}
	return b
}

var applets = map[string]types.Chain{
	apdu.AIDBTC: types.ChainBTC,
	apdu.AIDETH: types.ChainETH,
	apdu.AIDXRP: types.ChainXRP,
}

// Device is the simulated hardware wallet. Transmit is its only entry point
// and behaves like the card reader: one APDU in, one response out.
type Device struct {
	cert   tls.Certificate
	pinned string
	log    *zap.Logger

	mu          sync.Mutex
	pending     map[types.Chain]Transaction
	sslSelected bool
	session     *tunnel.Device
	selected    types.Chain
}

// NewDevice creates a device with a fresh self-signed certificate.
func NewDevice(log *zap.Logger) (*Device, error) {
	if log == nil {
		log = zap.NewNop()
	}
	cert, err := tunnel.SelfSignedCertificate("Remote Screen Device")
	if err != nil {
		return nil, err
	}
	pinned, err := tunnel.PinnedKey(cert.Leaf)
	if err != nil {
		return nil, err
	}
	return &Device{
		cert:    cert,
		pinned:  pinned,
		log:     log,
		pending: make(map[types.Chain]Transaction),
	}, nil
}

// PinnedKey is the value a paired phone must pin.
func (d *Device) PinnedKey() string {
	return d.pinned
}

// SetPending installs tx in its chain applet, replacing any previous one.
func (d *Device) SetPending(tx Transaction) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending[tx.Chain] = tx
}

// ClearPending removes the pending transaction of chain.
func (d *Device) ClearPending(chain types.Chain) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.pending, chain)
}

// Transmit handles one outer APDU and returns the response with its status word.
func (d *Device) Transmit(cmd []byte) []byte {
	d.mu.Lock()
	defer d.mu.Unlock()

	if aid, ok := apdu.IsSelect(cmd); ok {
		if aid != apdu.AIDSSL {
			return status(apdu.StatusFileNotFound)
		}
		d.sslSelected = true
		return status(apdu.StatusOK)
	}
	if !d.sslSelected {
		return status(apdu.StatusConditionsNotMet)
	}
	if string(cmd) == string(apdu.ResetSSL) {
		d.reset()
		return status(apdu.StatusOK)
	}

	header, payload, err := apdu.ParseFrame(cmd)
	if err != nil {
		return status(apdu.StatusWrongLength)
	}
	switch header {
	case apdu.HandshakeHeader:
		return d.handshake(payload)
	case apdu.WrappedHeader:
		return d.wrapped(payload)
	}
	return status(apdu.StatusInsNotSupported)
}

func status(sw uint16) []byte {
	return apdu.WithStatus(nil, sw)
}

func (d *Device) reset() {
	if d.session != nil {
		_ = d.session.Close()
	}
	d.session = tunnel.NewDeviceServer(d.cert)
	d.selected = ""
}

func (d *Device) handshake(payload []byte) []byte {
	if d.session == nil || d.session.HandshakeDone() {
		return status(apdu.StatusConditionsNotMet)
	}
	ierr := d.session.OfferInput(payload)
	out, _ := d.session.ReadOutput()
	if ierr != nil {
		d.log.Debug("device handshake failed", zap.Error(ierr))
		// 有 alert 时照常回给对端
		if len(out) == 0 {
			return status(apdu.StatusConditionsNotMet)
		}
	}
	return apdu.WithStatus(out, apdu.StatusOK)
}

func (d *Device) wrapped(payload []byte) []byte {
	if d.session == nil || !d.session.HandshakeDone() {
		return status(apdu.StatusConditionsNotMet)
	}
	if err := d.session.OfferInput(payload); err != nil {
		return status(apdu.StatusConditionsNotMet)
	}
	plain, err := d.session.ReadInput()
	if err != nil {
		return status(apdu.StatusConditionsNotMet)
	}
	if err := d.session.OfferOutput(d.handleInner(plain)); err != nil {
		return status(apdu.StatusConditionsNotMet)
	}
	out, _ := d.session.ReadOutput()
	return apdu.WithStatus(out, apdu.StatusOK)
}

// handleInner serves the chain applets inside the tunnel.
func (d *Device) handleInner(cmd []byte) []byte {
	if aid, ok := apdu.IsSelect(cmd); ok {
		chain, found := applets[aid]
		if !found {
			return status(apdu.StatusFileNotFound)
		}
		d.selected = chain
		return status(apdu.StatusOK)
	}
	if d.selected == "" {
		return status(apdu.StatusConditionsNotMet)
	}

	cmds := apdu.XRPCommands
	switch d.selected {
	case types.ChainBTC:
		cmds = apdu.BTCCommands
	case types.ChainETH:
		cmds = apdu.ETHCommands
	}
	kind, index, ok := cmds.Parse(cmd)
	if !ok {
		return status(apdu.StatusInsNotSupported)
	}
	tx, ok := d.pending[d.selected]
	if !ok {
		return status(apdu.StatusConditionsNotMet)
	}

	switch kind {
	case "info":
		return apdu.WithStatus(tx.Metadata(), apdu.StatusOK)
	case "chunk":
		start := int(index) * apdu.ChunkSize
		if start >= len(tx.Raw) {
			return status(apdu.StatusWrongLength)
		}
		// 总是返回整块，末尾补零
		chunk := make([]byte, apdu.ChunkSize)
		copy(chunk, tx.Raw[start:])
		return apdu.WithStatus(chunk, apdu.StatusOK)
	case "amounts":
		if d.selected != types.ChainBTC {
			return status(apdu.StatusInsNotSupported)
		}
		var b []byte
		for _, a := range tx.Amounts {
			b = binary.BigEndian.AppendUint64(b, uint64(a))
		}
		return apdu.WithStatus(b, apdu.StatusOK)
	}
	return status(apdu.StatusInsNotSupported)
}

