package mockpanel

import (
	"bytes"
	"encoding/binary"
	"math/big"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rlp"

	"remote-screen/pkg/wallet/types"
)

// 固定私钥，样例交易每次生成相同的地址
var sampleKey, _ = btcec.PrivKeyFromBytes(bytes.Repeat([]byte{0x11}, 32))

const sampleRemaining = 30 * time.Second

// SampleETH is an unsigned EIP-155 transfer of 1.5 ETH on chainID.
func SampleETH(chainID int64) (Transaction, error) {
	to := common.HexToAddress("0x3535353535353535353535353535353535353535")
	value, _ := new(big.Int).SetString("1500000000000000000", 10)
	tx := ethtypes.NewTransaction(9, to, value, 21000, big.NewInt(20_000_000_000), nil)

	// r, s 为空: 设备签名前的形式
	raw, err := rlp.EncodeToBytes([]interface{}{
		tx.Nonce(), tx.GasPrice(), tx.Gas(), tx.To(), tx.Value(), tx.Data(),
		big.NewInt(chainID), uint(0), uint(0),
	})
	if err != nil {
		return Transaction{}, err
	}
	return Transaction{
		Chain:     types.ChainETH,
		Raw:       raw,
		From:      common.HexToAddress("0x9d8A62f656a8d1615C1294fd71e9CFb3E4855A4F").Bytes(),
		Remaining: sampleRemaining,
	}, nil
}

// SampleBTC spends two inputs (150000 + 60000 sat) into a payment and change
// output, leaving a 10000 sat fee.
func SampleBTC(net *chaincfg.Params) (Transaction, error) {
	addr, err := btcutil.NewAddressPubKeyHash(btcutil.Hash160(sampleKey.PubKey().SerializeCompressed()), net)
	if err != nil {
		return Transaction{}, err
	}
	script, err := txscript.PayToAddrScript(addr)
	if err != nil {
		return Transaction{}, err
	}

	tx := wire.NewMsgTx(2)
	tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&chainhash.Hash{0x01}, 0), nil, nil))
	tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&chainhash.Hash{0x02}, 1), nil, nil))
	tx.AddTxOut(wire.NewTxOut(120000, script))
	tx.AddTxOut(wire.NewTxOut(80000, script))

	var buf bytes.Buffer
	if err := tx.Serialize(&buf); err != nil {
		return Transaction{}, err
	}
	return Transaction{
		Chain:     types.ChainBTC,
		Raw:       buf.Bytes(),
		Amounts:   []int64{150000, 60000},
		Remaining: sampleRemaining,
	}, nil
}

func xrpNative(drops uint64) []byte {
	return binary.BigEndian.AppendUint64(nil, 1<<62|drops)
}

func xrpVL(b []byte) []byte {
	return append([]byte{byte(len(b))}, b...)
}

// SampleXRP is a 1.5 XRP payment with a text memo.
func SampleXRP() Transaction {
	account := btcutil.Hash160(sampleKey.PubKey().SerializeCompressed())

	var b []byte
	b = append(b, 0x12, 0x00, 0x00)             // TransactionType = Payment
	b = append(b, 0x22, 0x80, 0x00, 0x00, 0x00) // Flags
	b = append(b, 0x24, 0x00, 0x00, 0x00, 0x01) // Sequence
	b = append(b, 0x61)                         // Amount
	b = append(b, xrpNative(1_500_000)...)
	b = append(b, 0x68) // Fee
	b = append(b, xrpNative(12)...)
	b = append(b, 0x73) // SigningPubKey
	b = append(b, xrpVL(sampleKey.PubKey().SerializeCompressed())...)
	b = append(b, 0x81) // Account
	b = append(b, xrpVL(account)...)
	b = append(b, 0x83) // Destination
	b = append(b, xrpVL(make([]byte, 20))...)
	b = append(b, 0xF9, 0xEA) // Memos / Memo
	b = append(b, 0x7D)       // MemoData
	b = append(b, xrpVL([]byte("remote screen"))...)
	b = append(b, 0x7E) // MemoFormat
	b = append(b, xrpVL([]byte("text/plain"))...)
	b = append(b, 0xE1, 0xF1)

	return Transaction{Chain: types.ChainXRP, Raw: b, Remaining: sampleRemaining}
}
