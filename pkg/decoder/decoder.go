// Package decoder turns raw pending-transaction bytes fetched from the device
// into field sets the user can compare with the host's screen.
package decoder

import (
	"remote-screen/pkg/errno"
	"remote-screen/pkg/wallet/types"

	"github.com/btcsuite/btcd/chaincfg"
)

// Params selects network dependent rendering.
type Params struct {
	// BTCNet is used to render output addresses; nil means mainnet.
	BTCNet *chaincfg.Params
}

// NetworkParams maps a config network name to btcd parameters.
func NetworkParams(name string) (*chaincfg.Params, bool) {
	switch name {
	case "", "mainnet":
		return &chaincfg.MainNetParams, true
	case "testnet3":
		return &chaincfg.TestNet3Params, true
	case "regtest":
		return &chaincfg.RegressionNetParams, true
	}
	return nil, false
}

// Decode dispatches on md.Chain. amounts is only used for BTC.
func Decode(md types.Metadata, raw []byte, amounts []int64, p Params) (*types.DecodedTransaction, error) {
	switch md.Chain {
	case types.ChainBTC:
		return DecodeBTC(md, raw, amounts, p.BTCNet)
	case types.ChainETH:
		return DecodeETH(md, raw)
	case types.ChainXRP:
		return DecodeXRP(md, raw)
	}
	return nil, errno.NewDecodeError(string(md.Chain), "unsupported chain")
}

// precheck runs before any byte of raw is parsed.
func precheck(chain types.Chain, md types.Metadata, raw []byte) error {
	if md.TooBig {
		return errno.NewDecodeError(string(chain), "Transaction is too big to be displayed")
	}
	if int(md.Length) != len(raw) {
		return errno.NewDecodeError(string(chain), "declared length %d does not match %d fetched bytes", md.Length, len(raw))
	}
	return nil
}
