package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"remote-screen/internal/discovery"
	"remote-screen/internal/service"
	"remote-screen/internal/transport"
	"remote-screen/pkg/config"
	"remote-screen/pkg/decoder"
	"remote-screen/pkg/errno"
	"remote-screen/pkg/keystore"
	"remote-screen/pkg/lock"
	"remote-screen/pkg/logger"
	"remote-screen/pkg/monitor"
	"remote-screen/pkg/pairing"
	"remote-screen/pkg/wallet/types"
)

var cfgFile string

// rootCmd 代表基础命令，没有子命令时直接调用
var rootCmd = &cobra.Command{
	Use:   "remote-screen",
	Short: "硬件钱包交易确认助手",
	Long: `在手机或电脑上独立显示硬件钱包正在签名的交易。
通过 mDNS 找到已配对的控制面板，建立 SRP 隧道和设备隧道后读取并解码待确认交易。`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Init(cfgFile); err != nil {
			return err
		}
		logger.Init(config.Global.App.Env)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Sync()
	},
}

// Execute 将所有子命令添加到根命令并设置标志
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		printError(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "配置文件路径 (默认 ./config.yaml)")
}

// printError 显示面向用户的错误信息; 取消不显示
func printError(err error) {
	if errno.IsSilent(err) {
		return
	}
	code, msg := errno.Decode(err)
	if code == errno.InternalServerError.Code {
		msg = err.Error()
	}
	fmt.Fprintf(os.Stderr, "Error [%d]: %s\n", code, msg)
	logger.Debug("command failed", zap.Error(err))
}

// signalContext 在 Ctrl-C 时取消
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func readPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	b, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("read passphrase: %w", err)
	}
	return string(b), nil
}

// passphrase 优先使用配置 (环境变量)，否则交互输入
func passphrase() (string, error) {
	if p := config.Global.Pairing.Passphrase; p != "" {
		return p, nil
	}
	return readPassword("Passphrase: ")
}

// loadSession 解密本地保存的配对信息
func loadSession() (pairing.SessionConfig, error) {
	path := config.Global.Pairing.KeystorePath
	k, err := keystore.LoadFromFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return pairing.SessionConfig{}, errno.ErrNotPaired
		}
		return pairing.SessionConfig{}, err
	}
	pass, err := passphrase()
	if err != nil {
		return pairing.SessionConfig{}, err
	}
	return keystore.Open(k, pass)
}

func probeOrder() ([]types.Chain, error) {
	chains := make([]types.Chain, 0, len(config.Global.Session.Chains))
	for _, name := range config.Global.Session.Chains {
		c, ok := types.ParseChain(name)
		if !ok {
			return nil, fmt.Errorf("config: unknown chain %q", name)
		}
		chains = append(chains, c)
	}
	return chains, nil
}

// newConfirmService 按配置组装 ConfirmService
func newConfirmService(session pairing.SessionConfig, metrics *monitor.Metrics) (*service.ConfirmService, error) {
	finder, err := discovery.NewZeroconfClient(config.Global.Discovery, logger.Log, metrics)
	if err != nil {
		return nil, err
	}
	chains, err := probeOrder()
	if err != nil {
		return nil, err
	}
	network, _ := decoder.NetworkParams(config.Global.Session.BtcNetwork)

	return service.NewConfirmService(service.Config{
		Session:          session,
		Finder:           finder,
		Dialer:           &transport.Dialer{Log: logger.Log, Metrics: metrics},
		Chains:           chains,
		DiscoveryTimeout: config.Global.Discovery.ScanTimeout,
		ConnectTimeout:   config.Global.Session.ConnectTimeout,
		ConfirmTimeout:   config.Global.Session.ConfirmTimeout,
		Network:          network,
		Log:              logger.Log,
		Metrics:          metrics,
		Lock:             newLock(),
	})
}

func newRedisClient() *redis.Client {
	cc := config.Global.Cache
	if cc.RedisAddr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cc.RedisAddr,
		Password: cc.RedisPassword,
		DB:       cc.RedisDB,
	})
}

// newLock 未配置 Redis 时返回 nil，只做进程内互斥
func newLock() lock.DistributedLock {
	client := newRedisClient()
	if client == nil {
		return nil
	}
	return lock.NewRedisLock(client, config.Global.Cache.KeyPrefix)
}
