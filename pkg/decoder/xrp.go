package decoder

import (
	"bytes"
	"encoding/hex"

	"remote-screen/pkg/errno"
	"remote-screen/pkg/wallet/types"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
)

// xrpSigningPrefix is the "STX\0" hash prefix some signers keep in front of the blob.
var xrpSigningPrefix = []byte{0x53, 0x54, 0x58, 0x00}

// Payment 的摘要视图只保留这几个字段, 顺序固定
var xrpPaymentSummary = []string{"TransactionType", "Destination", "Amount", "Fee"}

// DecodeXRP decodes a canonical XRPL binary transaction. A Payment gets a
// four field summary with the full tree as details; any other type shows the tree.
func DecodeXRP(md types.Metadata, raw []byte) (*types.DecodedTransaction, error) {
	chain := string(types.ChainXRP)
	if err := precheck(types.ChainXRP, md, raw); err != nil {
		return nil, err
	}

	body := bytes.TrimPrefix(raw, xrpSigningPrefix)
	p := &xrpParser{r: xrpReader{b: body}}
	fields, err := p.fields(0, false)
	if err != nil {
		return nil, errno.NewDecodeError(chain, "invalid transaction: %v", err)
	}

	txType, ok := lookupField(fields, "TransactionType")
	if !ok {
		return nil, errno.NewDecodeError(chain, "missing TransactionType")
	}

	if signer, ok := signingAccount(fields); ok {
		fields = append(fields, types.Field{Name: "SigningAccount", Value: signer})
	}

	dt := &types.DecodedTransaction{
		Chain:     types.ChainXRP,
		Countdown: md.Countdown(),
	}
	if txType != "Payment" {
		dt.Summary = fields
		return dt, nil
	}

	for _, name := range xrpPaymentSummary {
		v, ok := lookupField(fields, name)
		if !ok {
			return nil, errno.NewDecodeError(chain, "Payment without %s", name)
		}
		dt.Summary = append(dt.Summary, types.Field{Name: name, Value: v})
	}
	dt.Details = fields
	return dt, nil
}

func lookupField(fields []types.Field, name string) (string, bool) {
	for _, f := range fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

// signingAccount derives the account of SigningPubKey (RIPEMD160(SHA256(pk))).
// secp256k1 keys must parse; ed25519 keys carry the 0xED prefix.
func signingAccount(fields []types.Field) (string, bool) {
	v, ok := lookupField(fields, "SigningPubKey")
	if !ok {
		return "", false
	}
	pk, err := hex.DecodeString(v)
	if err != nil || len(pk) != 33 {
		return "", false
	}
	if pk[0] != 0xED {
		if _, err := btcec.ParsePubKey(pk); err != nil {
			return "", false
		}
	}
	return XRPAddress(btcutil.Hash160(pk)), true
}
