package decoder

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"remote-screen/pkg/errno"
	"remote-screen/pkg/wallet/types"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func p2pkhScript(t *testing.T, net *chaincfg.Params) ([]byte, btcutil.Address) {
	t.Helper()
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	addr, err := btcutil.NewAddressPubKeyHash(btcutil.Hash160(priv.PubKey().SerializeCompressed()), net)
	require.NoError(t, err)
	script, err := txscript.PayToAddrScript(addr)
	require.NoError(t, err)
	return script, addr
}

func serializeTx(t *testing.T, tx *wire.MsgTx) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, tx.Serialize(&buf))
	return buf.Bytes()
}

// buildBTCTx 两个输入, 一个 P2PKH 输出 (100000 sat) 和一个 OP_RETURN
func buildBTCTx(t *testing.T, net *chaincfg.Params) ([]byte, btcutil.Address) {
	t.Helper()
	tx := wire.NewMsgTx(2)
	tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&chainhash.Hash{0x01}, 0), nil, nil))
	tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&chainhash.Hash{0x02}, 3), nil, nil))

	script, addr := p2pkhScript(t, net)
	tx.AddTxOut(wire.NewTxOut(100000, script))

	nullData, err := txscript.NullDataScript([]byte("hello"))
	require.NoError(t, err)
	tx.AddTxOut(wire.NewTxOut(0, nullData))

	return serializeTx(t, tx), addr
}

func btcMetadata(raw []byte, inputs uint32) types.Metadata {
	return types.Metadata{
		Chain:          types.ChainBTC,
		Length:         uint16(len(raw)),
		NumberOfInputs: inputs,
		RemainingTime:  10 * time.Second,
	}
}

func TestDecodeBTC(t *testing.T) {
	raw, addr := buildBTCTx(t, &chaincfg.MainNetParams)

	dt, err := DecodeBTC(btcMetadata(raw, 2), raw, []int64{60000, 50000}, nil)
	require.NoError(t, err)

	require.Len(t, dt.Summary, 3)
	outputs := dt.Summary[0].Children
	require.Len(t, outputs, 2)
	assert.Equal(t, addr.EncodeAddress(), outputs[0].Name)
	assert.Equal(t, btcutil.Amount(100000).String(), outputs[0].Value)
	assert.Equal(t, "OP_RETURN 68656c6c6f", outputs[1].Name)

	fee, _ := lookupField(dt.Summary, "Fee")
	assert.Equal(t, btcutil.Amount(10000).String(), fee)
	assert.Empty(t, dt.Warnings)
	assert.Equal(t, 10, dt.Countdown)

	inputs := dt.Details[0].Children
	require.Len(t, inputs, 2)
	assert.Equal(t, wire.NewOutPoint(&chainhash.Hash{0x02}, 3).String(), inputs[1].Name)
	assert.Equal(t, btcutil.Amount(50000).String(), inputs[1].Value)
}

func TestDecodeBTCNegativeFee(t *testing.T) {
	raw, _ := buildBTCTx(t, &chaincfg.MainNetParams)

	dt, err := DecodeBTC(btcMetadata(raw, 2), raw, []int64{1, 1}, nil)
	require.NoError(t, err)

	fee, _ := lookupField(dt.Summary, "Fee")
	assert.Equal(t, btcutil.Amount(2-100000).String(), fee)
	assert.Contains(t, dt.Warnings, WarnNegativeFee)
}

func TestDecodeBTCInputCountMismatch(t *testing.T) {
	raw, _ := buildBTCTx(t, &chaincfg.MainNetParams)

	for _, amounts := range [][]int64{nil, {1}, {1, 2, 3}} {
		_, err := DecodeBTC(btcMetadata(raw, uint32(len(amounts))), raw, amounts, nil)
		var decodeErr *errno.DecodeError
		assert.True(t, errors.As(err, &decodeErr), "amounts=%v", amounts)
	}
}

func TestDecodeBTCTestnetAddresses(t *testing.T) {
	raw, addr := buildBTCTx(t, &chaincfg.TestNet3Params)

	dt, err := Decode(btcMetadata(raw, 2), raw, []int64{60000, 50000}, Params{BTCNet: &chaincfg.TestNet3Params})
	require.NoError(t, err)
	assert.Equal(t, addr.EncodeAddress(), dt.Summary[0].Children[0].Name)
}

func TestDecodeBTCGarbage(t *testing.T) {
	raw := []byte{0x01, 0x00, 0x00}
	_, err := DecodeBTC(btcMetadata(raw, 0), raw, nil, nil)
	assert.Error(t, err)

	// 末尾多余字节
	good, _ := buildBTCTx(t, &chaincfg.MainNetParams)
	padded := append(good, 0x00)
	_, err = DecodeBTC(btcMetadata(padded, 2), padded, []int64{1, 1}, nil)
	assert.Error(t, err)
}

func TestNetworkParams(t *testing.T) {
	p, ok := NetworkParams("testnet3")
	assert.True(t, ok)
	assert.Equal(t, chaincfg.TestNet3Params.Name, p.Name)

	_, ok = NetworkParams("litecoin")
	assert.False(t, ok)
}
