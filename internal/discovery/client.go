package discovery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"remote-screen/pkg/config"
	"remote-screen/pkg/errno"
	"remote-screen/pkg/monitor"
)

// ServerInfo is a resolved control panel endpoint.
type ServerInfo struct {
	Instance string `json:"instance"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
}

// Address returns host:port.
func (s ServerInfo) Address() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// Browser streams service advertisements into entries and closes it once
// ctx is done. *zeroconf.Resolver satisfies it.
type Browser interface {
	Browse(ctx context.Context, service, domain string, entries chan<- *zeroconf.ServiceEntry) error
}

// Client looks up a paired control panel by its instance name.
type Client struct {
	browser Browser
	service string
	domain  string
	log     *zap.Logger
	metrics *monitor.Metrics
}

func NewClient(b Browser, cfg config.DiscoveryConfig, log *zap.Logger, metrics *monitor.Metrics) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		browser: b,
		service: cfg.Service,
		domain:  cfg.Domain,
		log:     log.Named("discovery"),
		metrics: metrics,
	}
}

// NewZeroconfClient browses the local network over mDNS.
func NewZeroconfClient(cfg config.DiscoveryConfig, log *zap.Logger, metrics *monitor.Metrics) (*Client, error) {
	resolver, err := zeroconf.NewResolver()
	if err != nil {
		return nil, fmt.Errorf("create mdns resolver: %w", err)
	}
	return NewClient(resolver, cfg, log, metrics), nil
}

// FindServer scans until guid is advertised, timeout passes or ctx is
// cancelled. It never runs past timeout, however the browser behaves.
func (c *Client) FindServer(ctx context.Context, guid string, timeout time.Duration) (ServerInfo, error) {
	scanCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry, 8)
	if err := c.browser.Browse(scanCtx, c.service, c.domain, entries); err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return ServerInfo{}, c.result("cancelled", errno.ErrCancelled)
		}
		c.log.Warn("browse failed", zap.Error(err))
		return ServerInfo{}, c.result("error", fmt.Errorf("%w: %v", errno.ErrDiscoveryTimeout, err))
	}
	defer func() {
		// 浏览器在关闭 entries 前可能还会写入，排空
		go func() {
			for range entries {
			}
		}()
	}()

	for {
		select {
		case <-scanCtx.Done():
			return ServerInfo{}, c.expired(ctx)
		case e, ok := <-entries:
			if !ok {
				// 浏览提前结束，视为未找到
				if ctx.Err() == nil && scanCtx.Err() == nil {
					return ServerInfo{}, c.result("timeout", errno.ErrDiscoveryTimeout)
				}
				return ServerInfo{}, c.expired(ctx)
			}
			info, matched := match(e, guid)
			if !matched {
				continue
			}
			c.log.Debug("control panel found",
				zap.String("instance", info.Instance),
				zap.String("address", info.Address()))
			c.metrics.RecordDiscovery("found")
			return info, nil
		}
	}
}

func (c *Client) expired(parent context.Context) error {
	if errors.Is(parent.Err(), context.Canceled) {
		return c.result("cancelled", errno.ErrCancelled)
	}
	return c.result("timeout", errno.ErrDiscoveryTimeout)
}

func (c *Client) result(label string, err error) error {
	c.metrics.RecordDiscovery(label)
	return err
}

func match(e *zeroconf.ServiceEntry, guid string) (ServerInfo, bool) {
	if e == nil || e.Instance != guid {
		return ServerInfo{}, false
	}
	var host string
	switch {
	case len(e.AddrIPv4) > 0:
		host = e.AddrIPv4[0].String()
	case len(e.AddrIPv6) > 0:
		host = e.AddrIPv6[0].String()
	case e.HostName != "":
		host = e.HostName
	default:
		return ServerInfo{}, false
	}
	return ServerInfo{Instance: e.Instance, Host: host, Port: e.Port}, true
}
