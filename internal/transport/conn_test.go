package transport

import (
	"context"
	"crypto/rand"
	"net"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"remote-screen/internal/discovery"
	"remote-screen/pkg/errno"
	"remote-screen/pkg/monitor"
	"remote-screen/pkg/srp"
	"remote-screen/pkg/srptls"
)

var password = []byte{0xde, 0xad, 0xbe, 0xef, 0x01, 0x02}

// echoPanel accepts one connection, completes the SRP handshake and echoes
// application data back.
func echoPanel(t *testing.T, pw []byte) discovery.ServerInfo {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	salt := make([]byte, 16)
	_, _ = rand.Read(salt)
	g := srp.RFC5054Group1024
	verifier := g.Verifier(salt, []byte(srptls.DefaultIdentity), pw)

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		engine, err := srptls.Server(srptls.Config{Group: g, Salt: salt, Verifier: verifier})
		if err != nil {
			return
		}
		buf := make([]byte, 4096)
		for {
			n, err := conn.Read(buf)
			if err != nil {
				return
			}
			ierr := engine.OfferInput(buf[:n])
			if engine.HandshakeDone() {
				if in, _ := engine.ReadInput(); len(in) > 0 {
					_ = engine.OfferOutput(in)
				}
			}
			if out, _ := engine.ReadOutput(); len(out) > 0 {
				if _, err := conn.Write(out); err != nil {
					return
				}
			}
			if ierr != nil {
				return
			}
		}
	}()

	addr := ln.Addr().(*net.TCPAddr)
	return discovery.ServerInfo{Instance: "panel", Host: addr.IP.String(), Port: addr.Port}
}

func TestOuterTunnelRoundTrip(t *testing.T) {
	server := echoPanel(t, password)
	metrics := monitor.NewMetrics(prometheus.NewRegistry())
	d := &Dialer{Log: zaptest.NewLogger(t), Metrics: metrics}

	ctx := context.Background()
	conn, err := d.Dial(ctx, server, time.Second)
	require.NoError(t, err)
	defer conn.Close()

	// 握手前不能收发
	assert.ErrorIs(t, conn.Write(ctx, []byte("x")), ErrHandshakeIncomplete)

	require.NoError(t, conn.EstablishOuterTunnel(ctx, password))
	assert.True(t, conn.HandshakeDone())
	assert.Equal(t, 1, testutil.CollectAndCount(metrics.HandshakeDuration))

	msg := []byte(`{"command":"Ping","arguments":[]}` + "\n")
	require.NoError(t, conn.Write(ctx, msg))

	var got []byte
	for len(got) < len(msg) {
		chunk, err := conn.ReadChunk(ctx)
		require.NoError(t, err)
		got = append(got, chunk...)
	}
	assert.Equal(t, msg, got)

	require.NoError(t, conn.Close())
	assert.ErrorIs(t, conn.Write(ctx, msg), ErrClosed)
	_, err = conn.ReadChunk(ctx)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestOuterTunnelWrongKey(t *testing.T) {
	server := echoPanel(t, password)
	ctx := context.Background()
	conn, err := Dial(ctx, server, time.Second)
	require.NoError(t, err)
	defer conn.Close()

	err = conn.EstablishOuterTunnel(ctx, []byte{0x00})
	assert.ErrorIs(t, err, errno.ErrAuthFailed)
	assert.False(t, conn.HandshakeDone())
}

func TestDialFailure(t *testing.T) {
	// 先占用再释放一个端口，保证无人监听
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	_, err = Dial(context.Background(), discovery.ServerInfo{Host: "127.0.0.1", Port: port}, time.Second)
	assert.ErrorIs(t, err, errno.ErrConnectFailed)
}

func TestHandshakeCancelled(t *testing.T) {
	// 服务端接受连接但从不应答
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })
	accepted := make(chan net.Conn, 1)
	go func() {
		if conn, err := ln.Accept(); err == nil {
			accepted <- conn
		}
	}()
	t.Cleanup(func() {
		select {
		case conn := <-accepted:
			_ = conn.Close()
		default:
		}
	})

	port := ln.Addr().(*net.TCPAddr).Port
	conn, err := Dial(context.Background(), discovery.ServerInfo{Host: "127.0.0.1", Port: port}, time.Second)
	require.NoError(t, err)
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	start := time.Now()
	err = conn.EstablishOuterTunnel(ctx, password)
	assert.ErrorIs(t, err, errno.ErrCancelled)
	assert.Less(t, time.Since(start), 2*time.Second)
}
