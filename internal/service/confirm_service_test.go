package service

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"remote-screen/internal/discovery"
	"remote-screen/internal/mockpanel"
	"remote-screen/pkg/errno"
	"remote-screen/pkg/monitor"
	"remote-screen/pkg/pairing"
	"remote-screen/pkg/wallet/types"
)

const testGUID = "5f1b3c2a-0000-4000-8000-0123456789ab"

// staticFinder always finds the same server.
type staticFinder struct {
	info discovery.ServerInfo
	err  error
}

func (f staticFinder) FindServer(ctx context.Context, guid string, timeout time.Duration) (discovery.ServerInfo, error) {
	if f.err != nil {
		return discovery.ServerInfo{}, f.err
	}
	return f.info, nil
}

type fixture struct {
	device  *mockpanel.Device
	panel   *mockpanel.Panel
	server  discovery.ServerInfo
	metrics *monitor.Metrics
}

func startPanel(t *testing.T) *fixture {
	t.Helper()
	log := zaptest.NewLogger(t)
	device, err := mockpanel.NewDevice(log)
	require.NoError(t, err)
	panel, err := mockpanel.New(testGUID, device, log)
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = panel.Serve(ln) }()
	t.Cleanup(func() { _ = panel.Close() })

	addr := ln.Addr().(*net.TCPAddr)
	return &fixture{
		device:  device,
		panel:   panel,
		server:  discovery.ServerInfo{Instance: testGUID, Host: addr.IP.String(), Port: addr.Port},
		metrics: monitor.NewMetrics(prometheus.NewRegistry()),
	}
}

func (f *fixture) service(t *testing.T, session pairing.SessionConfig) *ConfirmService {
	t.Helper()
	svc, err := NewConfirmService(Config{
		Session:          session,
		Finder:           staticFinder{info: f.server},
		DiscoveryTimeout: time.Second,
		ConnectTimeout:   time.Second,
		ConfirmTimeout:   10 * time.Second,
		Network:          &chaincfg.MainNetParams,
		Log:              zaptest.NewLogger(t),
		Metrics:          f.metrics,
	})
	require.NoError(t, err)
	return svc
}

func TestConfirmETH(t *testing.T) {
	f := startPanel(t)
	tx, err := mockpanel.SampleETH(4)
	require.NoError(t, err)
	f.device.SetPending(tx)

	out, err := f.service(t, f.panel.Session()).Confirm(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []ProbeResult{
		{Chain: types.ChainBTC, Status: ProbeAbsent},
		{Chain: types.ChainETH, Status: ProbeFound},
	}, stripErrs(out.Probes))
	assert.Equal(t, types.ChainETH, out.Transaction.Chain)
	assert.Contains(t, out.Transaction.Text(), "Value: 1.5 ETH")
	assert.Contains(t, out.Transaction.Text(), "Chain: Rinkeby")
	assert.Equal(t, 30, out.Transaction.Countdown)
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.ConfirmAttempts.WithLabelValues("ETH", "ok")))
}

func stripErrs(in []ProbeResult) []ProbeResult {
	out := make([]ProbeResult, len(in))
	for i, p := range in {
		out[i] = ProbeResult{Chain: p.Chain, Status: p.Status}
	}
	return out
}

func TestConfirmBTCUsesInputAmounts(t *testing.T) {
	f := startPanel(t)
	tx, err := mockpanel.SampleBTC(&chaincfg.MainNetParams)
	require.NoError(t, err)
	f.device.SetPending(tx)

	out, err := f.service(t, f.panel.Session()).Confirm(context.Background())
	require.NoError(t, err)
	require.Len(t, out.Probes, 1)
	assert.Equal(t, types.ChainBTC, out.Metadata.Chain)
	assert.Contains(t, out.Transaction.Text(), "0.0001 BTC")
	assert.Empty(t, out.Transaction.Warnings)
}

func TestConfirmXRPWhenOthersAbsent(t *testing.T) {
	f := startPanel(t)
	f.device.SetPending(mockpanel.SampleXRP())

	out, err := f.service(t, f.panel.Session()).Confirm(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []ProbeStatus{ProbeAbsent, ProbeAbsent, ProbeFound},
		[]ProbeStatus{out.Probes[0].Status, out.Probes[1].Status, out.Probes[2].Status})
	assert.Contains(t, out.Transaction.Text(), "Amount: 1.5 XRP")
}

func TestConfirmNoActiveTransaction(t *testing.T) {
	f := startPanel(t)
	out, err := f.service(t, f.panel.Session()).Confirm(context.Background())
	assert.ErrorIs(t, err, errno.ErrNoActiveTransaction)
	require.NotNil(t, out)
	assert.Len(t, out.Probes, 3)
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.ConfirmAttempts.WithLabelValues("none", "empty")))
}

func TestConfirmTooBig(t *testing.T) {
	f := startPanel(t)
	tx := mockpanel.SampleXRP()
	tx.TooBig = true
	f.device.SetPending(tx)

	_, err := f.service(t, f.panel.Session()).Confirm(context.Background())
	var decodeErr *errno.DecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.Equal(t, "Transaction is too big to be displayed", decodeErr.Message)
}

func TestConfirmWrongSRPKey(t *testing.T) {
	f := startPanel(t)
	session := f.panel.Session()
	session.SRPKey = "00112233445566778899aabbccddeeff"

	_, err := f.service(t, session).Confirm(context.Background())
	assert.ErrorIs(t, err, errno.ErrAuthFailed)
}

func TestConfirmWrongDevice(t *testing.T) {
	f := startPanel(t)
	other, err := mockpanel.NewDevice(nil)
	require.NoError(t, err)
	session := f.panel.Session()
	session.PublicKey = other.PinnedKey()

	_, err = f.service(t, session).Confirm(context.Background())
	assert.ErrorIs(t, err, errno.ErrInvalidPeerCertificate)
	code, _ := errno.Decode(err)
	assert.Equal(t, errno.ErrInvalidPeerCertificate.Code, code)
}

func TestConfirmDeviceDisconnected(t *testing.T) {
	f := startPanel(t)
	f.panel.SetDeviceConnected(false)

	_, err := f.service(t, f.panel.Session()).Confirm(context.Background())
	var perr *errno.RemoteProtocolError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "Device not connected", perr.Message)
}

func TestConfirmDiscoveryTimeout(t *testing.T) {
	svc, err := NewConfirmService(Config{
		Session:        pairing.SessionConfig{GUID: testGUID, SRPKey: "00", PublicKey: "00"},
		Finder:         staticFinder{err: errno.ErrDiscoveryTimeout},
		ConfirmTimeout: time.Second,
	})
	require.NoError(t, err)
	_, err = svc.Confirm(context.Background())
	assert.ErrorIs(t, err, errno.ErrDiscoveryTimeout)
}

// blockingFinder waits for ctx, so an attempt stays in flight.
type blockingFinder struct {
	entered chan struct{}
}

func (f blockingFinder) FindServer(ctx context.Context, guid string, timeout time.Duration) (discovery.ServerInfo, error) {
	close(f.entered)
	<-ctx.Done()
	return discovery.ServerInfo{}, errno.ErrCancelled
}

func TestConfirmBusyAndCancel(t *testing.T) {
	finder := blockingFinder{entered: make(chan struct{})}
	svc, err := NewConfirmService(Config{
		Session:        pairing.SessionConfig{GUID: testGUID, SRPKey: "00", PublicKey: "00"},
		Finder:         finder,
		ConfirmTimeout: time.Minute,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	var first error
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, first = svc.Confirm(ctx)
	}()

	<-finder.entered
	_, err = svc.Confirm(context.Background())
	assert.ErrorIs(t, err, errno.ErrBusy)

	cancel()
	wg.Wait()
	assert.ErrorIs(t, first, errno.ErrCancelled)
	assert.True(t, errno.IsSilent(first))
}

func TestConfirmTimeoutIsNotSilent(t *testing.T) {
	svc, err := NewConfirmService(Config{
		Session:        pairing.SessionConfig{GUID: testGUID, SRPKey: "00", PublicKey: "00"},
		Finder:         blockingFinder{entered: make(chan struct{})},
		ConfirmTimeout: 20 * time.Millisecond,
	})
	require.NoError(t, err)

	_, err = svc.Confirm(context.Background())
	assert.ErrorIs(t, err, errno.ErrConnectFailed)
	assert.False(t, errno.IsSilent(err))
}

// heldLock 模拟被其他进程持有的锁
type heldLock struct {
	held     bool
	released bool
}

func (l *heldLock) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return !l.held, nil
}

func (l *heldLock) Release(ctx context.Context, key string) error {
	l.released = true
	return nil
}

func TestConfirmSharedLock(t *testing.T) {
	l := &heldLock{held: true}
	svc, err := NewConfirmService(Config{
		Session:        pairing.SessionConfig{GUID: testGUID, SRPKey: "00", PublicKey: "00"},
		Finder:         staticFinder{err: errno.ErrDiscoveryTimeout},
		ConfirmTimeout: time.Second,
		Lock:           l,
	})
	require.NoError(t, err)

	_, err = svc.Confirm(context.Background())
	assert.ErrorIs(t, err, errno.ErrBusy)
	assert.False(t, l.released)

	l.held = false
	_, err = svc.Confirm(context.Background())
	assert.ErrorIs(t, err, errno.ErrDiscoveryTimeout)
	assert.True(t, l.released)
}

func TestNewConfirmServiceRequiresPairing(t *testing.T) {
	_, err := NewConfirmService(Config{Finder: staticFinder{}})
	assert.ErrorIs(t, err, errno.ErrNotPaired)
}

func TestSessionPing(t *testing.T) {
	f := startPanel(t)
	svc := f.service(t, f.panel.Session())

	sess, err := svc.ConnectAndAuthenticate(context.Background(), f.server)
	require.NoError(t, err)
	defer sess.Close()
	assert.NoError(t, sess.Ping(context.Background()))
}
