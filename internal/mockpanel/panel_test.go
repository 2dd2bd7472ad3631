package mockpanel

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"remote-screen/internal/discovery"
	"remote-screen/internal/exchange"
	"remote-screen/internal/fetcher"
	"remote-screen/internal/transport"
	"remote-screen/pkg/apdu"
	"remote-screen/pkg/errno"
	"remote-screen/pkg/wallet/types"
)

func startPanel(t *testing.T) (*Panel, *exchange.Exchange) {
	t.Helper()
	log := zaptest.NewLogger(t)
	device, err := NewDevice(log)
	require.NoError(t, err)
	panel, err := New("panel-guid", device, log)
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = panel.Serve(ln) }()
	t.Cleanup(func() { _ = panel.Close() })

	addr := ln.Addr().(*net.TCPAddr)
	ctx := context.Background()
	conn, err := transport.Dial(ctx, discovery.ServerInfo{Host: addr.IP.String(), Port: addr.Port}, time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	password, err := panel.Session().SRPPassword()
	require.NoError(t, err)
	require.NoError(t, conn.EstablishOuterTunnel(ctx, password))
	return panel, exchange.New(conn, log)
}

func TestPanelCommands(t *testing.T) {
	panel, ex := startPanel(t)
	ctx := context.Background()

	require.NoError(t, ex.Ping(ctx))

	// 选择 SSL applet
	resp, err := ex.SendAPDU(ctx, apdu.SelectSSL)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x90, 0x00}, resp)

	// 未选择的 applet
	resp, err = ex.SendAPDU(ctx, apdu.Select("NOPE"))
	require.NoError(t, err)
	assert.Equal(t, []byte{0x6A, 0x82}, resp)

	_, err = ex.Do(ctx, exchange.Command{Command: "Reboot"})
	var perr *errno.RemoteProtocolError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "Unknown command", perr.Message)

	_, err = ex.Do(ctx, exchange.Command{Command: exchange.CommandSendAPDU, Arguments: []string{"a", "b"}})
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "Invalid arguments", perr.Message)

	panel.SetDeviceConnected(false)
	_, err = ex.SendAPDU(ctx, apdu.SelectSSL)
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "Device not connected", perr.Message)
}

func TestSessionMatchesDevice(t *testing.T) {
	device, err := NewDevice(nil)
	require.NoError(t, err)
	panel, err := New("guid", device, nil)
	require.NoError(t, err)

	s := panel.Session()
	assert.NoError(t, s.Validate())
	assert.Equal(t, device.PinnedKey(), s.PublicKey)
	assert.Len(t, s.SRPKey, srpKeySize*2)
}

func TestDeviceRequiresSSLSelect(t *testing.T) {
	device, err := NewDevice(nil)
	require.NoError(t, err)

	assert.Equal(t, []byte{0x69, 0x85}, device.Transmit(apdu.ResetSSL))
	assert.Equal(t, []byte{0x90, 0x00}, device.Transmit(apdu.SelectSSL))
	assert.Equal(t, []byte{0x90, 0x00}, device.Transmit(apdu.ResetSSL))
	// 握手完成前不接受包装命令
	assert.Equal(t, []byte{0x69, 0x85}, device.Transmit([]byte{0x84, 0x00, 0x00, 0x00, 0x01, 0x00}))
	assert.Equal(t, []byte{0x6D, 0x00}, device.Transmit([]byte{0x80, 0x30, 0x00, 0x00}))
}

func TestMetadataLayouts(t *testing.T) {
	eth, err := SampleETH(1)
	require.NoError(t, err)
	md, err := fetcher.ParseETHMetadata(eth.Metadata())
	require.NoError(t, err)
	assert.Equal(t, uint16(len(eth.Raw)), md.Length)
	assert.Equal(t, eth.From, md.From)
	assert.Equal(t, sampleRemaining, md.RemainingTime)

	btc, err := SampleBTC(&chaincfg.TestNet3Params)
	require.NoError(t, err)
	md, err = fetcher.ParseBTCMetadata(btc.Metadata())
	require.NoError(t, err)
	assert.Equal(t, uint32(2), md.NumberOfInputs)

	xrp := SampleXRP()
	xrp.TooBig = true
	md, err = fetcher.ParseXRPMetadata(xrp.Metadata())
	require.NoError(t, err)
	assert.True(t, md.TooBig)
	assert.Equal(t, types.ChainXRP, md.Chain)
}
