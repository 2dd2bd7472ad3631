package decoder

import (
	"bytes"
	"fmt"
	"math/big"
	"strings"

	"remote-screen/pkg/codec"
	"remote-screen/pkg/errno"
	"remote-screen/pkg/wallet/types"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
)

// WarnNegativeFee is attached when the supplied input amounts are smaller than the outputs.
const WarnNegativeFee = "inputs do not cover outputs: the fee is negative"

// DecodeBTC decodes a serialized transaction (segwit or legacy) together with
// the value of every input, which the device supplies separately.
func DecodeBTC(md types.Metadata, raw []byte, amounts []int64, net *chaincfg.Params) (*types.DecodedTransaction, error) {
	chain := string(types.ChainBTC)
	if err := precheck(types.ChainBTC, md, raw); err != nil {
		return nil, err
	}
	if net == nil {
		net = &chaincfg.MainNetParams
	}

	// 1. 反序列化
	var tx wire.MsgTx
	r := bytes.NewReader(raw)
	if err := tx.Deserialize(r); err != nil {
		return nil, errno.NewDecodeError(chain, "invalid transaction: %v", err)
	}
	if r.Len() != 0 {
		return nil, errno.NewDecodeError(chain, "%d trailing bytes after transaction", r.Len())
	}

	// 2. 输入数量必须和设备给出的金额数量一致
	if len(tx.TxIn) != len(amounts) {
		return nil, errno.NewDecodeError(chain, "Number of inputs is incorrect: transaction has %d, device sent %d amounts", len(tx.TxIn), len(amounts))
	}

	totalIn := new(big.Int)
	inputs := make([]types.Field, 0, len(tx.TxIn))
	for i, in := range tx.TxIn {
		totalIn.Add(totalIn, big.NewInt(amounts[i]))
		inputs = append(inputs, types.Field{
			Name:  in.PreviousOutPoint.String(),
			Value: btcutil.Amount(amounts[i]).String(),
		})
	}

	totalOut := new(big.Int)
	outputs := make([]types.Field, 0, len(tx.TxOut))
	for _, out := range tx.TxOut {
		totalOut.Add(totalOut, big.NewInt(out.Value))
		outputs = append(outputs, types.Field{
			Name:  scriptDestination(out.PkScript, net),
			Value: btcutil.Amount(out.Value).String(),
		})
	}

	// 3. 手续费 = 输入 - 输出, 允许为负
	fee := new(big.Int).Sub(totalIn, totalOut)
	if !totalIn.IsInt64() || !totalOut.IsInt64() || !fee.IsInt64() {
		return nil, errno.NewDecodeError(chain, "amounts overflow")
	}

	var warnings []string
	if fee.Sign() < 0 {
		warnings = append(warnings, WarnNegativeFee)
	}

	feeField := types.Field{Name: "Fee", Value: btcutil.Amount(fee.Int64()).String()}
	totalOutField := types.Field{Name: "Total output", Value: btcutil.Amount(totalOut.Int64()).String()}

	summary := []types.Field{
		{Name: "Outputs", Children: outputs},
		totalOutField,
		feeField,
	}
	details := []types.Field{
		{Name: "Inputs", Children: inputs},
		{Name: "Outputs", Children: outputs},
		{Name: "Total input", Value: btcutil.Amount(totalIn.Int64()).String()},
		totalOutField,
		feeField,
		{Name: "Version", Value: fmt.Sprintf("%d", tx.Version)},
		{Name: "Lock time", Value: fmt.Sprintf("%d", tx.LockTime)},
		{Name: "Txid", Value: tx.TxHash().String()},
	}

	return &types.DecodedTransaction{
		Chain:     types.ChainBTC,
		Summary:   summary,
		Details:   details,
		Countdown: md.Countdown(),
		Warnings:  warnings,
	}, nil
}

// scriptDestination renders an output script as its address(es) when standard.
func scriptDestination(pkScript []byte, net *chaincfg.Params) string {
	class, addrs, _, err := txscript.ExtractPkScriptAddrs(pkScript, net)
	if err == nil && len(addrs) > 0 {
		encoded := make([]string, 0, len(addrs))
		for _, a := range addrs {
			encoded = append(encoded, a.EncodeAddress())
		}
		return strings.Join(encoded, ", ")
	}
	if class == txscript.NullDataTy {
		pushes, err := txscript.PushedData(pkScript)
		if err == nil {
			return "OP_RETURN " + codec.BytesToHex(bytes.Join(pushes, nil))
		}
		return "OP_RETURN"
	}
	return "script:" + codec.BytesToHex(pkScript)
}
