package decoder

import (
	"math/big"

	"remote-screen/pkg/codec"
	"remote-screen/pkg/errno"
	"remote-screen/pkg/wallet/types"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/shopspring/decimal"
)

// EthMessageSigningType is reported by the ETH applet for personal_sign requests.
const EthMessageSigningType uint16 = 0x6666

const ethFieldCount = 9

// 已知网络的 chain id
var ethChainNames = map[uint64]string{
	1:    "Ethereum mainnet",
	2:    "Morden(disused), Expanse mainnet",
	3:    "Ropsten",
	4:    "Rinkeby",
	30:   "Rootstock mainnet",
	31:   "Rootstock testnet",
	42:   "Kovan",
	61:   "Ethereum Classic mainnet",
	62:   "Ethereum Classic testnet",
	1337: "Geth private chains (default)",
}

// EthChainName returns the network label for id, or id itself when unknown.
func EthChainName(id *big.Int) string {
	if id.IsUint64() {
		if name, ok := ethChainNames[id.Uint64()]; ok {
			return name
		}
	}
	return id.String()
}

// DecodeETH decodes an unsigned EIP-155 legacy transaction:
// [nonce, gasPrice, gasLimit, to, value, data, chainId, r, s] with r and s empty.
func DecodeETH(md types.Metadata, raw []byte) (*types.DecodedTransaction, error) {
	chain := string(types.ChainETH)
	if err := precheck(types.ChainETH, md, raw); err != nil {
		return nil, err
	}
	if md.TxType == EthMessageSigningType {
		return nil, errno.NewDecodeError(chain, "A message is being signed, it cannot be displayed")
	}

	items, err := splitEthList(raw)
	if err != nil {
		return nil, err
	}

	// 1. r, s 必须为空 (尚未签名)
	if len(items[7]) != 0 || len(items[8]) != 0 {
		return nil, errno.NewDecodeError(chain, "transaction already carries a signature")
	}

	// 2. 地址
	to := "contract creation"
	switch len(items[3]) {
	case 0:
	case common.AddressLength:
		to = hexutil.Encode(common.BytesToAddress(items[3]).Bytes())
	default:
		return nil, errno.NewDecodeError(chain, "invalid recipient length %d", len(items[3]))
	}

	data := "None"
	if len(items[5]) > 0 {
		data = "0x" + codec.BytesToHex(items[5])
	}

	nonce := new(big.Int).SetBytes(items[0])
	gasPrice := new(big.Int).SetBytes(items[1])
	gasLimit := new(big.Int).SetBytes(items[2])
	value := new(big.Int).SetBytes(items[4])
	chainID := new(big.Int).SetBytes(items[6])

	summary := []types.Field{{Name: "Chain", Value: EthChainName(chainID)}}
	if len(md.From) == common.AddressLength {
		summary = append(summary, types.Field{Name: "From", Value: hexutil.Encode(common.BytesToAddress(md.From).Bytes())})
	}
	// 3. 单位换算: wei -> ETH, wei -> GWEI
	summary = append(summary,
		types.Field{Name: "To", Value: to},
		types.Field{Name: "Value", Value: decimal.NewFromBigInt(value, -18).String() + " ETH"},
		types.Field{Name: "Gas price", Value: decimal.NewFromBigInt(gasPrice, -9).String() + " GWEI"},
		types.Field{Name: "Gas limit", Value: gasLimit.String()},
		types.Field{Name: "Nonce", Value: nonce.String()},
		types.Field{Name: "Data", Value: data},
	)

	return &types.DecodedTransaction{
		Chain:     types.ChainETH,
		Summary:   summary,
		Countdown: md.Countdown(),
	}, nil
}

// splitEthList requires exactly one outer list holding nine string items.
func splitEthList(raw []byte) ([][]byte, error) {
	chain := string(types.ChainETH)

	kind, content, rest, err := rlp.Split(raw)
	if err != nil {
		return nil, errno.NewDecodeError(chain, "invalid RLP: %v", err)
	}
	if kind != rlp.List || len(rest) != 0 {
		return nil, errno.NewDecodeError(chain, "transaction must be exactly one RLP list")
	}

	n, err := rlp.CountValues(content)
	if err != nil {
		return nil, errno.NewDecodeError(chain, "invalid RLP: %v", err)
	}
	if n != ethFieldCount {
		return nil, errno.NewDecodeError(chain, "expected %d fields, got %d", ethFieldCount, n)
	}

	items := make([][]byte, 0, ethFieldCount)
	for len(content) > 0 {
		k, val, r, err := rlp.Split(content)
		if err != nil {
			return nil, errno.NewDecodeError(chain, "invalid RLP: %v", err)
		}
		if k == rlp.List {
			return nil, errno.NewDecodeError(chain, "field %d must not be a list", len(items))
		}
		items = append(items, val)
		content = r
	}
	return items, nil
}
