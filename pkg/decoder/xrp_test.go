package decoder

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"testing"
	"time"

	"remote-screen/pkg/errno"
	"remote-screen/pkg/wallet/types"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var genesisAccount, _ = hex.DecodeString("B5F762798A53D543A014CAF8B297CFF8F2F937E8")

func nativeAmount(drops uint64) []byte {
	return binary.BigEndian.AppendUint64(nil, 1<<62|drops)
}

func vl(b []byte) []byte {
	return append([]byte{byte(len(b))}, b...)
}

func xrpMetadata(raw []byte) types.Metadata {
	return types.Metadata{Chain: types.ChainXRP, Length: uint16(len(raw)), RemainingTime: 5 * time.Second}
}

// xrpPayment 手工拼接一个带 memo 的 Payment
func xrpPayment(t *testing.T, pub []byte) []byte {
	t.Helper()
	var b []byte
	b = append(b, 0x12, 0x00, 0x00)                   // TransactionType = Payment
	b = append(b, 0x22, 0x80, 0x00, 0x00, 0x00)       // Flags
	b = append(b, 0x24, 0x00, 0x00, 0x00, 0x01)       // Sequence
	b = append(b, 0x2E, 0x00, 0x00, 0x00, 0x07)       // DestinationTag
	b = append(b, 0x61)                               // Amount
	b = append(b, nativeAmount(1_500_000)...)         //
	b = append(b, 0x68)                               // Fee
	b = append(b, nativeAmount(12)...)                //
	b = append(b, 0x73)                               // SigningPubKey
	b = append(b, vl(pub)...)                         //
	b = append(b, 0x81)                               // Account
	b = append(b, vl(genesisAccount)...)              //
	b = append(b, 0x83)                               // Destination
	b = append(b, vl(make([]byte, 20))...)            //
	b = append(b, 0xF9, 0xEA)                         // Memos / Memo
	b = append(b, 0x7C)                               // MemoType
	b = append(b, vl([]byte("note"))...)              //
	b = append(b, 0x7D)                               // MemoData
	b = append(b, vl([]byte("hello"))...)             //
	b = append(b, 0x7E)                               // MemoFormat
	b = append(b, vl([]byte("text/plain"))...)        //
	b = append(b, 0xE1, 0xF1)                         // end Memo, end Memos
	return b
}

func TestXRPAddress(t *testing.T) {
	assert.Equal(t, "rHb9CJAWyB4rj91VRWn96DkukG4bwdtyTh", XRPAddress(genesisAccount))
	assert.Equal(t, "rrrrrrrrrrrrrrrrrrrrrhoLvTp", XRPAddress(make([]byte, 20)))
}

func TestDecodeXRPPayment(t *testing.T) {
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	pub := priv.PubKey().SerializeCompressed()
	raw := xrpPayment(t, pub)

	dt, err := DecodeXRP(xrpMetadata(raw), raw)
	require.NoError(t, err)

	assert.Equal(t, []types.Field{
		{Name: "TransactionType", Value: "Payment"},
		{Name: "Destination", Value: "rrrrrrrrrrrrrrrrrrrrrhoLvTp"},
		{Name: "Amount", Value: "1.5 XRP"},
		{Name: "Fee", Value: "12 drops"},
	}, dt.Summary)
	assert.Equal(t, 5, dt.Countdown)
	require.True(t, dt.HasDetails())

	account, _ := lookupField(dt.Details, "Account")
	assert.Equal(t, "rHb9CJAWyB4rj91VRWn96DkukG4bwdtyTh", account)
	tag, _ := lookupField(dt.Details, "DestinationTag")
	assert.Equal(t, "7", tag)
	signer, _ := lookupField(dt.Details, "SigningAccount")
	assert.Equal(t, XRPAddress(btcutil.Hash160(pub)), signer)

	// memo 按 text/plain 解码
	var memo []types.Field
	for _, f := range dt.Details {
		if f.Name == "Memos" {
			require.Len(t, f.Children, 1)
			memo = f.Children[0].Children
		}
	}
	require.Len(t, memo, 3)
	assert.Equal(t, types.Field{Name: "MemoType", Value: "note"}, memo[0])
	assert.Equal(t, types.Field{Name: "MemoData", Value: "hello"}, memo[1])
	assert.Equal(t, types.Field{Name: "MemoFormat", Value: "text/plain"}, memo[2])

	assert.Contains(t, dt.DetailText(), "\tMemo:\n\t\tMemoData: hello\n")
}

func TestDecodeXRPSigningPrefix(t *testing.T) {
	priv, _ := btcec.NewPrivateKey()
	raw := append([]byte("STX\x00"), xrpPayment(t, priv.PubKey().SerializeCompressed())...)

	dt, err := DecodeXRP(xrpMetadata(raw), raw)
	require.NoError(t, err)
	assert.Equal(t, "Payment", dt.Summary[0].Value)
}

func TestDecodeXRPNonPaymentShowsTree(t *testing.T) {
	// OfferCreate: TakerPays = 1 USD (IOU), TakerGets = 2 XRP
	iou := binary.BigEndian.AppendUint64(nil, 1<<63|1<<62|uint64(-15+97)<<54|1_000_000_000_000_000)
	usd := make([]byte, 20)
	copy(usd[12:], "USD")
	iou = append(iou, usd...)
	iou = append(iou, make([]byte, 20)...)

	var raw []byte
	raw = append(raw, 0x12, 0x00, 0x07)
	raw = append(raw, 0x64)
	raw = append(raw, iou...)
	raw = append(raw, 0x65)
	raw = append(raw, nativeAmount(2_000_000)...)
	raw = append(raw, 0x68)
	raw = append(raw, nativeAmount(10)...)
	raw = append(raw, 0x81)
	raw = append(raw, vl(genesisAccount)...)

	dt, err := DecodeXRP(xrpMetadata(raw), raw)
	require.NoError(t, err)
	assert.False(t, dt.HasDetails())

	get := func(name string) string {
		v, _ := lookupField(dt.Summary, name)
		return v
	}
	assert.Equal(t, "OfferCreate", get("TransactionType"))
	assert.Equal(t, "1 USD/rrrrrrrrrrrrrrrrrrrrrhoLvTp", get("TakerPays"))
	assert.Equal(t, "2 XRP", get("TakerGets"))
	assert.Equal(t, "10 drops", get("Fee"))
}

func TestDecodeXRPMalformed(t *testing.T) {
	priv, _ := btcec.NewPrivateKey()
	full := xrpPayment(t, priv.PubKey().SerializeCompressed())

	cases := map[string][]byte{
		"truncated":     full[:len(full)-3],
		"no type":       {0x68, 0x40, 0, 0, 0, 0, 0, 0, 0x0C},
		"stray end":     {0x12, 0x00, 0x00, 0xE1},
		"bad account":   {0x12, 0x00, 0x00, 0x81, 0x02, 0x01, 0x02},
		"unknown type":  {0x12, 0x00, 0x00, 0xD1, 0x00},
		"payment no to": {0x12, 0x00, 0x00, 0x68, 0x40, 0, 0, 0, 0, 0, 0, 0x0C},
	}
	for name, raw := range cases {
		_, err := DecodeXRP(xrpMetadata(raw), raw)
		var decodeErr *errno.DecodeError
		assert.True(t, errors.As(err, &decodeErr), name)
	}
}

func TestXRPFieldHeaders(t *testing.T) {
	// 1 字节, 类型 >= 16 (UInt8 TickSize: type 16, field 16), 类型 < 16 字段 >= 16
	for _, tc := range []struct {
		in   []byte
		want xrpFieldID
	}{
		{[]byte{0x12}, xrpFieldID{stUInt16, 2}},
		{[]byte{0x01, 0x10}, xrpFieldID{stUInt8, 1}},
		{[]byte{0x00, 0x10, 0x10}, xrpFieldID{stUInt8, 16}},
		{[]byte{0x50, 0x11}, xrpFieldID{stHash256, 17}},
	} {
		r := &xrpReader{b: tc.in}
		got, err := r.fieldID()
		require.NoError(t, err)
		assert.Equal(t, tc.want, got)
		assert.True(t, r.eof())
	}
}

func TestXRPVariableLength(t *testing.T) {
	for _, n := range []int{0, 192, 193, 1000, 12480, 12481, 20000} {
		var prefix []byte
		switch {
		case n <= 192:
			prefix = []byte{byte(n)}
		case n <= 12480:
			m := n - 193
			prefix = []byte{byte(193 + m>>8), byte(m)}
		default:
			m := n - 12481
			prefix = []byte{byte(241 + m>>16), byte(m >> 8), byte(m)}
		}
		r := &xrpReader{b: append(prefix, make([]byte, n)...)}
		got, err := r.vl()
		require.NoError(t, err, "n=%d", n)
		assert.Len(t, got, n)
	}
}
