package gateway

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"remote-screen/pkg/monitor"
)

// NewRouter 初始化并返回一个 Gin Engine
// gatherer 为 nil 时 /metrics 使用默认 Registry
func NewRouter(h *Handler, metrics *monitor.Metrics, gatherer prometheus.Gatherer) *gin.Engine {
	// 1. 创建 Engine (使用默认中间件: Logger, Recovery)
	r := gin.Default()

	// 2. 监控埋点
	r.Use(metrics.PrometheusMiddleware())

	// 3. 基础路由
	metricsHandler := promhttp.Handler()
	if gatherer != nil {
		metricsHandler = promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
	}
	r.GET("/health", h.HealthCheck)
	r.GET("/metrics", gin.WrapH(metricsHandler))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// 4. API 路由组
	api := r.Group("/api/v1")
	{
		api.GET("/server", h.FindServer)
		api.POST("/confirm", h.Confirm)
	}

	return r
}
