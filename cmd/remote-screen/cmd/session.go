package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"remote-screen/internal/discovery"
	"remote-screen/pkg/cache"
	"remote-screen/pkg/config"
	"remote-screen/pkg/logger"
)

var findCmd = &cobra.Command{
	Use:   "find",
	Short: "在局域网中查找已配对的控制面板",
	RunE: func(cmd *cobra.Command, args []string) error {
		session, err := loadSession()
		if err != nil {
			return err
		}
		svc, err := newConfirmService(session, nil)
		if err != nil {
			return err
		}

		ctx, cancel := signalContext()
		defer cancel()
		info, err := svc.FindServer(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("%s at %s\n", info.Instance, info.Address())
		return nil
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "持续监测控制面板是否在线",
	Long:  `后台轮询 mDNS，控制面板上线或下线时打印状态，Ctrl-C 退出。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		session, err := loadSession()
		if err != nil {
			return err
		}
		client, err := discovery.NewZeroconfClient(config.Global.Discovery, logger.Log, nil)
		if err != nil {
			return err
		}

		w := discovery.NewWatcher(client, session.GUID, config.Global.Discovery, newCache(), func(s discovery.State) {
			if s.Found {
				fmt.Printf("[%s] panel available at %s\n", time.Now().Format(time.TimeOnly), s.Server.Address())
				return
			}
			fmt.Printf("[%s] panel not found\n", time.Now().Format(time.TimeOnly))
		})

		ctx, cancel := signalContext()
		defer cancel()
		if err := w.Start(ctx); err != nil {
			return err
		}
		<-ctx.Done()
		w.Stop()
		logger.Info("watch stopped", zap.String("guid", session.GUID))
		return nil
	},
}

// newCache 配置了 Redis 时使用两级缓存，多个进程共享上次发现的面板地址
func newCache() cache.Cache {
	local := cache.NewMemoryCache(config.Global.Discovery.CacheTTL, time.Minute)
	client := newRedisClient()
	if client == nil {
		return local
	}
	return cache.NewMultiLevelCache(local, cache.NewRedisCache(client, config.Global.Cache.KeyPrefix))
}

var confirmCmd = &cobra.Command{
	Use:   "confirm",
	Short: "读取并显示设备上待确认的交易",
	RunE: func(cmd *cobra.Command, args []string) error {
		details, _ := cmd.Flags().GetBool("details")
		session, err := loadSession()
		if err != nil {
			return err
		}
		svc, err := newConfirmService(session, nil)
		if err != nil {
			return err
		}

		ctx, cancel := signalContext()
		defer cancel()
		out, err := svc.Confirm(ctx)
		if err != nil {
			return err
		}

		tx := out.Transaction
		fmt.Printf("%s transaction, %d seconds left to confirm on the device\n\n", tx.Chain, tx.Countdown)
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

func init() {
	confirmCmd.Flags().Bool("details", false, "显示完整字段")
	rootCmd.AddCommand(findCmd, watchCmd, confirmCmd)
}
