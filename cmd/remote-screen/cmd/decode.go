package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"remote-screen/pkg/codec"
	"remote-screen/pkg/config"
	"remote-screen/pkg/decoder"
	"remote-screen/pkg/wallet/types"
)

// decodeCmd 离线解码一段交易字节，用于排查设备返回的数据
var decodeCmd = &cobra.Command{
	Use:   "decode",
	Short: "离线解码交易字节",
	Long: `按设备的格式离线解码交易:
  BTC 需要 --amounts 给出每个输入的金额 (satoshi)
  ETH 可用 --from 指定发送地址`,
	Example: `  remote-screen decode --chain eth --hex e9098504a817c800825208...
  remote-screen decode --chain btc --hex 0200000002... --amounts 150000,60000`,
	RunE: func(cmd *cobra.Command, args []string) error {
		chainName, _ := cmd.Flags().GetString("chain")
		rawHex, _ := cmd.Flags().GetString("hex")
		amountList, _ := cmd.Flags().GetString("amounts")
		fromHex, _ := cmd.Flags().GetString("from")
		details, _ := cmd.Flags().GetBool("details")

		chain, ok := types.ParseChain(chainName)
		if !ok {
			return fmt.Errorf("unknown chain %q", chainName)
		}
		raw, err := codec.HexToBytes(rawHex)
		if err != nil {
			return fmt.Errorf("--hex: %w", err)
		}
		if len(raw) > 0xFFFF {
			return fmt.Errorf("--hex: %d bytes is more than a device can hold", len(raw))
		}

		// 1. 构造元数据
		md := types.Metadata{Chain: chain, Length: uint16(len(raw))}
		var amounts []int64
		switch chain {
		case types.ChainBTC:
			if amounts, err = parseAmounts(amountList); err != nil {
				return err
			}
			md.NumberOfInputs = uint32(len(amounts))
		case types.ChainETH:
			if fromHex != "" {
				if md.From, err = codec.HexToBytes(fromHex); err != nil {
					return fmt.Errorf("--from: %w", err)
				}
			}
		}

		// 2. 解码
		network, _ := decoder.NetworkParams(config.Global.Session.BtcNetwork)
		tx, err := decoder.Decode(md, raw, amounts, decoder.Params{BTCNet: network})
		if err != nil {
			return err
		}
		if details {
			fmt.Print(tx.DetailText())
		} else {
			fmt.Print(tx.Text())
		}
		for _, w := range tx.Warnings {
			fmt.Printf("\nWARNING: %s\n", w)
		}
		return nil
	},
}

func parseAmounts(s string) ([]int64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("--amounts: %w", err)
		}
		out[i] = v
	}
	return out, nil
}

func init() {
	decodeCmd.Flags().String("chain", "", "BTC, ETH 或 XRP")
	decodeCmd.Flags().String("hex", "", "交易字节 (hex)")
	decodeCmd.Flags().String("amounts", "", "BTC 输入金额, 逗号分隔")
	decodeCmd.Flags().String("from", "", "ETH 发送地址 (hex)")
	decodeCmd.Flags().Bool("details", false, "显示完整字段")
	_ = decodeCmd.MarkFlagRequired("chain")
	_ = decodeCmd.MarkFlagRequired("hex")

	rootCmd.AddCommand(decodeCmd)
}
