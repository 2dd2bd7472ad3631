package fetcher

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"remote-screen/internal/mockpanel"
	"remote-screen/internal/relay"
	"remote-screen/pkg/apdu"
	"remote-screen/pkg/errno"
	"remote-screen/pkg/tunnel"
	"remote-screen/pkg/wallet/types"
)

type call struct {
	cmd         []byte
	expectedLen int
}

// recorder answers chunk reads the way the device does: always a full
// chunk, zero padded past the end of raw. It rejects replies whose length
// differs from expectedLen like the relay.
type recorder struct {
	raw   []byte
	calls []call
}

func (r *recorder) Transmit(ctx context.Context, cmd []byte, expectedLen int) ([]byte, error) {
	r.calls = append(r.calls, call{cmd: cmd, expectedLen: expectedLen})
	i := int(cmd[5])<<8 | int(cmd[6])
	chunk := make([]byte, apdu.ChunkSize)
	copy(chunk, r.raw[i*apdu.ChunkSize:])
	if len(chunk) != expectedLen {
		return nil, &errno.RemoteProtocolError{Message: "invalid APDU response"}
	}
	return chunk, nil
}

func TestReadTransactionChunks(t *testing.T) {
	tests := []struct {
		name   string
		length int
		chunks int
	}{
		{"exact multiple", 256, 2},
		{"short tail", 300, 3},
		{"single partial", 5, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := make([]byte, tt.length)
			for i := range raw {
				raw[i] = byte(i*7 + 1)
			}
			r := &recorder{raw: raw}

			got, err := New(r).ReadTransaction(context.Background(), types.ChainETH, len(raw))
			require.NoError(t, err)
			assert.Equal(t, raw, got)

			require.Len(t, r.calls, tt.chunks)
			for _, c := range r.calls {
				assert.Equal(t, apdu.ChunkSize, c.expectedLen)
			}
			last := byte(tt.chunks - 1)
			assert.Equal(t, []byte{0x80, 0xE0, 0x01, 0x00, 0x02, 0x00, last}, r.calls[tt.chunks-1].cmd)
		})
	}
}

func TestReadTransactionEmpty(t *testing.T) {
	r := &recorder{}
	got, err := New(r).ReadTransaction(context.Background(), types.ChainXRP, 0)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Empty(t, r.calls)
}

func TestParseMetadata(t *testing.T) {
	btc, err := ParseBTCMetadata([]byte{0x01, 0x01, 0x2C, 0x00, 0x00, 0x00, 0x03, 0x00, 0x00, 0x75, 0x30})
	require.NoError(t, err)
	assert.Equal(t, types.Metadata{
		Chain:          types.ChainBTC,
		TooBig:         true,
		Length:         300,
		NumberOfInputs: 3,
		RemainingTime:  30 * time.Second,
	}, btc)

	eth := []byte{0x66, 0x66, 0x00, 0x00, 0x40}
	eth = append(eth, bytes.Repeat([]byte{0x11}, 20)...)
	eth = append(eth, 0x00, 0x00, 0x03, 0xE8)
	md, err := ParseETHMetadata(eth)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x6666), md.TxType)
	assert.Equal(t, uint16(64), md.Length)
	assert.Equal(t, bytes.Repeat([]byte{0x11}, 20), md.From)
	assert.Equal(t, time.Second, md.RemainingTime)

	xrp, err := ParseXRPMetadata([]byte{0x00, 0x00, 0x10, 0x00, 0x00, 0x00, 0x00})
	require.NoError(t, err)
	assert.Equal(t, uint16(16), xrp.Length)
	assert.Zero(t, xrp.RemainingTime)

	_, err = ParseXRPMetadata([]byte{0x00})
	assert.Error(t, err)
}

func openDevice(t *testing.T, d *mockpanel.Device) *Fetcher {
	t.Helper()
	engine := tunnel.NewDeviceClient(d.PinnedKey(), zaptest.NewLogger(t))
	t.Cleanup(func() { _ = engine.Close() })
	sender := relaySender(func(ctx context.Context, a []byte) ([]byte, error) { return d.Transmit(a), nil })
	tun, err := relay.Open(context.Background(), sender, engine, zaptest.NewLogger(t), nil)
	require.NoError(t, err)
	return New(tun)
}

type relaySender func(ctx context.Context, a []byte) ([]byte, error)

func (f relaySender) SendAPDU(ctx context.Context, a []byte) ([]byte, error) { return f(ctx, a) }

func TestFetchFromDevice(t *testing.T) {
	d, err := mockpanel.NewDevice(nil)
	require.NoError(t, err)
	tx, err := mockpanel.SampleBTC(&chaincfg.MainNetParams)
	require.NoError(t, err)
	d.SetPending(tx)
	f := openDevice(t, d)
	ctx := context.Background()

	require.NoError(t, f.SelectApplication(ctx, types.ChainBTC))
	md, err := f.Metadata(ctx, types.ChainBTC)
	require.NoError(t, err)
	assert.Equal(t, uint16(len(tx.Raw)), md.Length)
	assert.Equal(t, uint32(2), md.NumberOfInputs)

	// 设备按整块返回，最后一块需要截断
	require.NotZero(t, len(tx.Raw)%apdu.ChunkSize)
	raw, err := f.ReadTransaction(ctx, types.ChainBTC, int(md.Length))
	require.NoError(t, err)
	assert.Equal(t, tx.Raw, raw)

	amounts, err := f.ReadInputAmounts(ctx, int(md.NumberOfInputs))
	require.NoError(t, err)
	assert.Equal(t, []int64{150000, 60000}, amounts)

	// 没有待确认交易的应用
	require.NoError(t, f.SelectApplication(ctx, types.ChainETH))
	_, err = f.Metadata(ctx, types.ChainETH)
	var statusErr *errno.DeviceStatusError
	assert.ErrorAs(t, err, &statusErr)
}

func TestFetchShortTransactionFromDevice(t *testing.T) {
	d, err := mockpanel.NewDevice(nil)
	require.NoError(t, err)
	tx := mockpanel.SampleXRP()
	d.SetPending(tx)
	f := openDevice(t, d)
	ctx := context.Background()

	require.NoError(t, f.SelectApplication(ctx, types.ChainXRP))
	md, err := f.Metadata(ctx, types.ChainXRP)
	require.NoError(t, err)
	raw, err := f.ReadTransaction(ctx, types.ChainXRP, int(md.Length))
	require.NoError(t, err)
	assert.Equal(t, tx.Raw, raw)
}

func TestUnsupportedChain(t *testing.T) {
	f := New(&recorder{})
	assert.Error(t, f.SelectApplication(context.Background(), types.Chain("DOGE")))
	_, err := f.Metadata(context.Background(), types.Chain("DOGE"))
	assert.Error(t, err)
}
