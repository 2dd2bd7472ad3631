package cmd

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"remote-screen/internal/gateway"
	"remote-screen/pkg/config"
	"remote-screen/pkg/logger"
	"remote-screen/pkg/monitor"

	_ "remote-screen/docs/swagger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "启动本地 HTTP 接口供界面调用",
	RunE: func(cmd *cobra.Command, args []string) error {
		session, err := loadSession()
		if err != nil {
			return err
		}

		// 1. 监控指标
		metrics := monitor.NewMetrics(prometheus.DefaultRegisterer)

		// 2. 业务服务
		svc, err := newConfirmService(session, metrics)
		if err != nil {
			return err
		}

		// 3. HTTP Router
		r := gateway.NewRouter(gateway.NewHandler(svc, session), metrics, nil)
		app := gateway.NewApp(config.Global.App.HttpAddr, r, logger.Log)

		ctx, cancel := signalContext()
		defer cancel()
		logger.Info("bridge ready", zap.String("guid", session.GUID), zap.String("addr", config.Global.App.HttpAddr))
		return app.Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
