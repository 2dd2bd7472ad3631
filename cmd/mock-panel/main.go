// mock-panel runs a simulated control panel with a simulated device behind
// it, advertised over mDNS, so the client can be exercised without hardware.
package main

import (
	"context"
	"crypto/rand"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/grandcat/zeroconf"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"remote-screen/internal/mockpanel"
	"remote-screen/pkg/config"
	"remote-screen/pkg/decoder"
	"remote-screen/pkg/logger"
	"remote-screen/pkg/wallet/types"
)

var rootCmd = &cobra.Command{
	Use:   "mock-panel",
	Short: "模拟控制面板和硬件设备",
	Long: `启动一个模拟的控制面板: 通过 mDNS 广播，终结 SRP 隧道，并把 APDU 转发给模拟设备。
启动后打印配对二维码内容，可直接用于 remote-screen pair --qr。`,
	SilenceUsage: true,
	RunE:         run,
}

func main() {
	rootCmd.Flags().String("config", "", "配置文件路径")
	rootCmd.Flags().Int("port", 0, "监听端口 (0 为随机)")
	rootCmd.Flags().String("guid", "", "面板 guid (默认随机)")
	rootCmd.Flags().StringSlice("pending", []string{"eth"}, "待确认交易的链: btc, eth, xrp")
	rootCmd.Flags().Int64("eth-chain-id", 1, "样例 ETH 交易的 chainId")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newGUID() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	b[6] = (b[6] & 0x0f) | 0x40
	b[8] = (b[8] & 0x3f) | 0x80
	return fmt.Sprintf("%x-%x-%x-%x-%x", b[0:4], b[4:6], b[6:8], b[8:10], b[10:]), nil
}

func run(cmd *cobra.Command, args []string) error {
	cfgPath, _ := cmd.Flags().GetString("config")
	port, _ := cmd.Flags().GetInt("port")
	guid, _ := cmd.Flags().GetString("guid")
	pending, _ := cmd.Flags().GetStringSlice("pending")
	ethChainID, _ := cmd.Flags().GetInt64("eth-chain-id")

	// 0. 配置与日志
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	logger.Init(cfg.App.Env)
	defer logger.Sync()

	if guid == "" {
		if guid, err = newGUID(); err != nil {
			return err
		}
	}

	// 1. 模拟设备和待确认交易
	device, err := mockpanel.NewDevice(logger.Log)
	if err != nil {
		return err
	}
	network, _ := decoder.NetworkParams(cfg.Session.BtcNetwork)
	for _, name := range pending {
		chain, ok := types.ParseChain(name)
		if !ok {
			return fmt.Errorf("unknown chain %q", name)
		}
		var tx mockpanel.Transaction
		switch chain {
		case types.ChainBTC:
			tx, err = mockpanel.SampleBTC(network)
		case types.ChainETH:
			tx, err = mockpanel.SampleETH(ethChainID)
		case types.ChainXRP:
			tx = mockpanel.SampleXRP()
		}
		if err != nil {
			return err
		}
		device.SetPending(tx)
	}

	// 2. 面板
	panel, err := mockpanel.New(guid, device, logger.Log)
	if err != nil {
		return err
	}
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return err
	}
	actual := ln.Addr().(*net.TCPAddr).Port

	// 3. mDNS 广播, 实例名即 guid
	service := strings.TrimSuffix(cfg.Discovery.Service, ".")
	server, err := zeroconf.Register(guid, service, cfg.Discovery.Domain, actual, []string{"txtvers=1"}, nil)
	if err != nil {
		_ = ln.Close()
		return fmt.Errorf("mdns register: %w", err)
	}
	defer server.Shutdown()

	qr, err := panel.Session().QR()
	if err != nil {
		return err
	}
	fp, _ := panel.Session().Fingerprint()
	fmt.Printf("Pairing QR: %s\n", qr)
	fmt.Printf("Fingerprint: %s\n", fp)
	logger.Info("mock panel listening",
		zap.String("guid", guid),
		zap.Int("port", actual),
		zap.Strings("pending", pending))

	// 4. 运行直到 Ctrl-C
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	errCh := make(chan error, 1)
	go func() { errCh <- panel.Serve(ln) }()

	select {
	case <-ctx.Done():
		logger.Info("Shutting down mock panel...")
		return panel.Close()
	case err := <-errCh:
		return err
	}
}
