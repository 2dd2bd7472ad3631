package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/btcsuite/btcd/chaincfg"
	"go.uber.org/zap"

	"remote-screen/internal/discovery"
	"remote-screen/internal/exchange"
	"remote-screen/internal/fetcher"
	"remote-screen/internal/relay"
	"remote-screen/internal/transport"
	"remote-screen/pkg/decoder"
	"remote-screen/pkg/errno"
	"remote-screen/pkg/lock"
	"remote-screen/pkg/monitor"
	"remote-screen/pkg/pairing"
	"remote-screen/pkg/tunnel"
	"remote-screen/pkg/wallet/types"
)

// Finder locates the control panel advertising guid (*discovery.Client).
type Finder interface {
	FindServer(ctx context.Context, guid string, timeout time.Duration) (discovery.ServerInfo, error)
}

// Config wires a ConfirmService. Session is the pairing; nothing else in
// the process holds it.
type Config struct {
	Session          pairing.SessionConfig
	Finder           Finder
	Dialer           *transport.Dialer
	Chains           []types.Chain
	DiscoveryTimeout time.Duration
	ConnectTimeout   time.Duration
	ConfirmTimeout   time.Duration
	Network          *chaincfg.Params
	Log              *zap.Logger
	Metrics          *monitor.Metrics
	// Lock 可选，多个进程共用一个面板时互斥
	Lock lock.DistributedLock
}

// ConfirmService runs confirmation attempts: find the panel, open both
// tunnels, probe the chain applets and decode the pending transaction.
type ConfirmService struct {
	cfg  Config
	log  *zap.Logger
	busy atomic.Bool
}

func NewConfirmService(cfg Config) (*ConfirmService, error) {
	if err := cfg.Session.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", errno.ErrNotPaired, err)
	}
	if cfg.Finder == nil {
		return nil, errors.New("confirm service: finder is required")
	}
	if cfg.Dialer == nil {
		cfg.Dialer = &transport.Dialer{Log: cfg.Log, Metrics: cfg.Metrics}
	}
	if len(cfg.Chains) == 0 {
		cfg.Chains = types.DefaultProbeOrder
	}
	if cfg.Log == nil {
		cfg.Log = zap.NewNop()
	}
	return &ConfirmService{
		cfg: cfg,
		log: cfg.Log.With(zap.String("guid", cfg.Session.GUID)),
	}, nil
}

// FindServer looks the paired panel up on the local network.
func (s *ConfirmService) FindServer(ctx context.Context) (discovery.ServerInfo, error) {
	return s.cfg.Finder.FindServer(ctx, s.cfg.Session.GUID, s.cfg.DiscoveryTimeout)
}

// Session is one authenticated connection with both tunnels up.
type Session struct {
	Server discovery.ServerInfo

	conn     *transport.Conn
	exchange *exchange.Exchange
	engine   *tunnel.Device
	fetcher  *fetcher.Fetcher
}

// Ping checks the panel is still answering.
func (s *Session) Ping(ctx context.Context) error {
	return s.exchange.Ping(ctx)
}

// Close drops the connection. The session cannot be reused.
func (s *Session) Close() error {
	if s.engine != nil {
		_ = s.engine.Close()
	}
	return s.conn.Close()
}

// ConnectAndAuthenticate dials server, runs the SRP handshake with the
// pairing key and opens the inner tunnel pinned to the device key.
func (s *ConfirmService) ConnectAndAuthenticate(ctx context.Context, server discovery.ServerInfo) (*Session, error) {
	password, err := s.cfg.Session.SRPPassword()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errno.ErrNotPaired, err)
	}

	// 1. TCP
	conn, err := s.cfg.Dialer.Dial(ctx, server, s.cfg.ConnectTimeout)
	if err != nil {
		return nil, err
	}
	sess := &Session{Server: server, conn: conn}

	// 2. 外层 SRP 隧道
	if err := conn.EstablishOuterTunnel(ctx, password); err != nil {
		_ = sess.Close()
		return nil, err
	}
	sess.exchange = exchange.New(conn, s.log)

	// 3. 内层设备隧道
	sess.engine = tunnel.NewDeviceClient(s.cfg.Session.PublicKey, s.log)
	tun, err := relay.Open(ctx, sess.exchange, sess.engine, s.log, s.cfg.Metrics)
	if err != nil {
		_ = sess.Close()
		return nil, err
	}
	sess.fetcher = fetcher.New(tun)
	return sess, nil
}

// ProbeStatus is the outcome of asking one chain applet.
type ProbeStatus string

const (
	ProbeFound  ProbeStatus = "found"
	ProbeAbsent ProbeStatus = "absent"
	ProbeFailed ProbeStatus = "failed"
)

// ProbeResult is recorded for every chain asked, in probe order.
type ProbeResult struct {
	Chain  types.Chain `json:"chain"`
	Status ProbeStatus `json:"status"`
	Err    error       `json:"-"`
}

// Outcome is a decoded pending transaction and how it was found.
type Outcome struct {
	Metadata    types.Metadata            `json:"metadata"`
	Transaction *types.DecodedTransaction `json:"transaction"`
	Probes      []ProbeResult             `json:"probes"`
}

func isAbsent(err error) bool {
	var statusErr *errno.DeviceStatusError
	return errors.As(err, &statusErr)
}

// FetchAndDecodeNextPendingTransaction asks the chain applets in order and
// decodes the first pending transaction. A device status on select or
// metadata means the chain has nothing pending; any other failure stops the
// probe. When every chain is absent the error is errno.ErrNoActiveTransaction.
func (s *ConfirmService) FetchAndDecodeNextPendingTransaction(ctx context.Context, sess *Session) (*Outcome, error) {
	out := &Outcome{}
	for _, chain := range s.cfg.Chains {
		md, err := s.probe(ctx, sess.fetcher, chain)
		switch {
		case err == nil:
			out.Probes = append(out.Probes, ProbeResult{Chain: chain, Status: ProbeFound})
		case isAbsent(err):
			out.Probes = append(out.Probes, ProbeResult{Chain: chain, Status: ProbeAbsent, Err: err})
			continue
		default:
			out.Probes = append(out.Probes, ProbeResult{Chain: chain, Status: ProbeFailed, Err: err})
			return out, err
		}

		s.log.Debug("pending transaction",
			zap.String("chain", string(chain)),
			zap.Uint16("length", md.Length),
			zap.Bool("too_big", md.TooBig))
		out.Metadata = md
		tx, err := s.fetchAndDecode(ctx, sess.fetcher, md)
		if err != nil {
			return out, err
		}
		out.Transaction = tx
		return out, nil
	}
	return out, errno.ErrNoActiveTransaction
}

func (s *ConfirmService) probe(ctx context.Context, f *fetcher.Fetcher, chain types.Chain) (types.Metadata, error) {
	if err := f.SelectApplication(ctx, chain); err != nil {
		return types.Metadata{}, err
	}
	return f.Metadata(ctx, chain)
}

func (s *ConfirmService) fetchAndDecode(ctx context.Context, f *fetcher.Fetcher, md types.Metadata) (*types.DecodedTransaction, error) {
	params := decoder.Params{BTCNet: s.cfg.Network}
	// 交易过大时不读取，直接交给解码器报错
	if md.TooBig {
		return decoder.Decode(md, nil, nil, params)
	}

	raw, err := f.ReadTransaction(ctx, md.Chain, int(md.Length))
	if err != nil {
		return nil, err
	}
	var amounts []int64
	if md.Chain == types.ChainBTC {
		if amounts, err = f.ReadInputAmounts(ctx, int(md.NumberOfInputs)); err != nil {
			return nil, err
		}
	}
	return decoder.Decode(md, raw, amounts, params)
}

// Confirm runs one whole attempt bounded by ConfirmTimeout. Only one attempt
// may be in flight; a second caller gets errno.ErrBusy.
func (s *ConfirmService) Confirm(ctx context.Context) (*Outcome, error) {
	if !s.busy.CompareAndSwap(false, true) {
		return nil, errno.ErrBusy
	}
	defer s.busy.Store(false)

	if s.cfg.Lock != nil {
		key := "confirm:" + s.cfg.Session.GUID
		ok, err := s.cfg.Lock.Acquire(ctx, key, s.cfg.ConfirmTimeout+s.cfg.ConnectTimeout)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errno.ErrConnectFailed, err)
		}
		if !ok {
			return nil, errno.ErrBusy
		}
		defer func() { _ = s.cfg.Lock.Release(context.WithoutCancel(ctx), key) }()
	}

	start := time.Now()
	attemptCtx, cancel := context.WithTimeout(ctx, s.cfg.ConfirmTimeout)
	defer cancel()

	out, err := s.confirm(attemptCtx)
	if err != nil && errors.Is(err, errno.ErrCancelled) && ctx.Err() == nil {
		// 超时不是用户取消，需要显示
		err = fmt.Errorf("%w: confirmation timed out", errno.ErrConnectFailed)
	}

	chain := "none"
	if out != nil && out.Metadata.Chain != "" {
		chain = string(out.Metadata.Chain)
	}
	result := "ok"
	switch {
	case err == nil:
	case errno.IsSilent(err):
		result = "cancelled"
	case errors.Is(err, errno.ErrNoActiveTransaction):
		result = "empty"
	default:
		result = "error"
	}
	s.cfg.Metrics.RecordConfirm(chain, result)

	if err != nil && !errno.IsSilent(err) {
		s.log.Warn("confirmation failed", zap.Error(err), zap.Duration("took", time.Since(start)))
	} else if err == nil {
		s.log.Info("transaction decoded", zap.String("chain", chain), zap.Duration("took", time.Since(start)))
	}
	return out, err
}

func (s *ConfirmService) confirm(ctx context.Context) (*Outcome, error) {
	server, err := s.FindServer(ctx)
	if err != nil {
		return nil, err
	}
	sess, err := s.ConnectAndAuthenticate(ctx, server)
	if err != nil {
		return nil, err
	}
	defer sess.Close()
	return s.FetchAndDecodeNextPendingTransaction(ctx, sess)
}
