package fetcher

import (
	"context"
	"fmt"
	"time"

	"remote-screen/pkg/apdu"
	"remote-screen/pkg/codec"
	"remote-screen/pkg/wallet/types"
)

// Metadata response sizes per chain.
const (
	btcMetadataLen = 11
	ethMetadataLen = 29
	xrpMetadataLen = 7
)

// Transmitter is the inner tunnel (*relay.Tunnel).
type Transmitter interface {
	Transmit(ctx context.Context, cmd []byte, expectedLen int) ([]byte, error)
}

// Fetcher talks to the chain applets on the device.
type Fetcher struct {
	tunnel Transmitter
}

func New(t Transmitter) *Fetcher {
	return &Fetcher{tunnel: t}
}

func aidFor(chain types.Chain) (string, error) {
	switch chain {
	case types.ChainBTC:
		return apdu.AIDBTC, nil
	case types.ChainETH:
		return apdu.AIDETH, nil
	case types.ChainXRP:
		return apdu.AIDXRP, nil
	}
	return "", fmt.Errorf("unsupported chain %q", chain)
}

func commandsFor(chain types.Chain) (apdu.TxCommands, error) {
	switch chain {
	case types.ChainBTC:
		return apdu.BTCCommands, nil
	case types.ChainETH:
		return apdu.ETHCommands, nil
	case types.ChainXRP:
		return apdu.XRPCommands, nil
	}
	return apdu.TxCommands{}, fmt.Errorf("unsupported chain %q", chain)
}

// SelectApplication switches the device to the chain applet. A
// DeviceStatusError means the applet is not there.
func (f *Fetcher) SelectApplication(ctx context.Context, chain types.Chain) error {
	aid, err := aidFor(chain)
	if err != nil {
		return err
	}
	_, err = f.tunnel.Transmit(ctx, apdu.Select(aid), 0)
	return err
}

// Metadata asks the selected applet for its pending transaction. A
// DeviceStatusError means there is none.
func (f *Fetcher) Metadata(ctx context.Context, chain types.Chain) (types.Metadata, error) {
	cmds, err := commandsFor(chain)
	if err != nil {
		return types.Metadata{}, err
	}
	switch chain {
	case types.ChainBTC:
		b, err := f.tunnel.Transmit(ctx, cmds.Info(), btcMetadataLen)
		if err != nil {
			return types.Metadata{}, err
		}
		return ParseBTCMetadata(b)
	case types.ChainETH:
		b, err := f.tunnel.Transmit(ctx, cmds.Info(), ethMetadataLen)
		if err != nil {
			return types.Metadata{}, err
		}
		return ParseETHMetadata(b)
	default:
		b, err := f.tunnel.Transmit(ctx, cmds.Info(), xrpMetadataLen)
		if err != nil {
			return types.Metadata{}, err
		}
		return ParseXRPMetadata(b)
	}
}

// ReadTransaction reads length bytes in ChunkSize pieces. The device always
// answers a full chunk; the tail of the last one is dropped.
func (f *Fetcher) ReadTransaction(ctx context.Context, chain types.Chain, length int) ([]byte, error) {
	cmds, err := commandsFor(chain)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, length)
	for i := 0; len(out) < length; i++ {
		chunk, err := f.tunnel.Transmit(ctx, cmds.ReadChunk(uint16(i)), apdu.ChunkSize)
		if err != nil {
			return nil, fmt.Errorf("read chunk %d: %w", i, err)
		}
		out = append(out, chunk[:min(apdu.ChunkSize, length-len(out))]...)
	}
	return out, nil
}

// ReadInputAmounts returns the value of each BTC input in satoshi.
func (f *Fetcher) ReadInputAmounts(ctx context.Context, count int) ([]int64, error) {
	b, err := f.tunnel.Transmit(ctx, apdu.BTCCommands.InputAmounts(), count*8)
	if err != nil {
		return nil, err
	}
	amounts := make([]int64, count)
	for i := range amounts {
		if amounts[i], err = codec.Int64(b, i*8); err != nil {
			return nil, err
		}
	}
	return amounts, nil
}

// ParseBTCMetadata decodes [tooBig u8][length u16][inputs u32][remainingMs u32].
func ParseBTCMetadata(b []byte) (types.Metadata, error) {
	if len(b) != btcMetadataLen {
		return types.Metadata{}, fmt.Errorf("btc metadata: %d bytes", len(b))
	}
	length, _ := codec.Uint16(b, 1)
	inputs, _ := codec.Uint32(b, 3)
	remaining, _ := codec.Uint32(b, 7)
	return types.Metadata{
		Chain:          types.ChainBTC,
		TooBig:         b[0] != 0,
		Length:         length,
		NumberOfInputs: inputs,
		RemainingTime:  time.Duration(remaining) * time.Millisecond,
	}, nil
}

// ParseETHMetadata decodes [type u16][tooBig u8][length u16][from 20][remainingMs u32].
func ParseETHMetadata(b []byte) (types.Metadata, error) {
	if len(b) != ethMetadataLen {
		return types.Metadata{}, fmt.Errorf("eth metadata: %d bytes", len(b))
	}
	txType, _ := codec.Uint16(b, 0)
	length, _ := codec.Uint16(b, 3)
	from, _ := codec.Slice(b, 5, 20)
	remaining, _ := codec.Uint32(b, 25)
	return types.Metadata{
		Chain:         types.ChainETH,
		TxType:        txType,
		TooBig:        b[2] != 0,
		Length:        length,
		From:          append([]byte(nil), from...),
		RemainingTime: time.Duration(remaining) * time.Millisecond,
	}, nil
}

// ParseXRPMetadata decodes [tooBig u8][length u16][remainingMs u32].
func ParseXRPMetadata(b []byte) (types.Metadata, error) {
	if len(b) != xrpMetadataLen {
		return types.Metadata{}, fmt.Errorf("xrp metadata: %d bytes", len(b))
	}
	length, _ := codec.Uint16(b, 1)
	remaining, _ := codec.Uint32(b, 3)
	return types.Metadata{
		Chain:         types.ChainXRP,
		TooBig:        b[0] != 0,
		Length:        length,
		RemainingTime: time.Duration(remaining) * time.Millisecond,
	}, nil
}
