package monitor

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics 定义会话相关的监控指标
// 所有 Record* 方法对 nil 接收者安全，组件可以不带监控运行
type Metrics struct {
	DiscoveryScans      *prometheus.CounterVec
	ConfirmAttempts     *prometheus.CounterVec
	HandshakeDuration   *prometheus.HistogramVec
	RelayedAPDUs        *prometheus.CounterVec
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetrics 在 reg 上注册全部指标; reg 为 nil 时使用默认 Registerer
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		DiscoveryScans: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "remote_screen_discovery_scans_total",
			Help: "Control panel discovery scans by result.",
		}, []string{"result"}),
		ConfirmAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "remote_screen_confirm_attempts_total",
			Help: "Transaction confirmation attempts by chain and result.",
		}, []string{"chain", "result"}),
		HandshakeDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "remote_screen_handshake_duration_seconds",
			Help:    "Tunnel handshake latency by layer.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.0, 5.0},
		}, []string{"layer"}),
		RelayedAPDUs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "remote_screen_relayed_apdus_total",
			Help: "APDUs relayed to the device by kind.",
		}, []string{"kind"}),
		HTTPRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency distributions.",
			Buckets: []float64{0.1, 0.3, 0.5, 1.0, 2.0, 5.0},
		}, []string{"method", "path"}),
	}
}

func (m *Metrics) RecordDiscovery(result string) {
	if m == nil {
		return
	}
	m.DiscoveryScans.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordConfirm(chain, result string) {
	if m == nil {
		return
	}
	m.ConfirmAttempts.WithLabelValues(chain, result).Inc()
}

func (m *Metrics) RecordHandshake(layer string, d time.Duration) {
	if m == nil {
		return
	}
	m.HandshakeDuration.WithLabelValues(layer).Observe(d.Seconds())
}

func (m *Metrics) RecordAPDU(kind string) {
	if m == nil {
		return
	}
	m.RelayedAPDUs.WithLabelValues(kind).Inc()
}

// PrometheusMiddleware returns a gin middleware for monitoring
func (m *Metrics) PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath() // 使用路由模板而不是具体路径

		c.Next()

		if m == nil || path == "" { // 忽略 404 等未匹配路由
			return
		}
		status := strconv.Itoa(c.Writer.Status())
		m.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		m.HTTPRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}
