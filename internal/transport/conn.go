package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"go.uber.org/zap"

	"remote-screen/internal/discovery"
	"remote-screen/pkg/errno"
	"remote-screen/pkg/monitor"
	"remote-screen/pkg/srptls"
)

const readBufferSize = 4096

var (
	ErrHandshakeIncomplete = errors.New("outer tunnel handshake not complete")
	ErrClosed              = errors.New("connection closed")
)

// NetDialer opens the raw stream. *net.Dialer satisfies it.
type NetDialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Dialer connects to control panels.
type Dialer struct {
	Net     NetDialer
	Log     *zap.Logger
	Metrics *monitor.Metrics
}

// Dial connects with the default dialer.
func Dial(ctx context.Context, server discovery.ServerInfo, timeout time.Duration) (*Conn, error) {
	return (&Dialer{}).Dial(ctx, server, timeout)
}

// Dial opens a TCP stream to the panel. Any failure, timeout included, is
// errno.ErrConnectFailed unless ctx was cancelled.
func (d *Dialer) Dial(ctx context.Context, server discovery.ServerInfo, timeout time.Duration) (*Conn, error) {
	nd := d.Net
	if nd == nil {
		nd = &net.Dialer{}
	}
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}

	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	raw, err := nd.DialContext(dialCtx, "tcp", server.Address())
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil, errno.ErrCancelled
		}
		return nil, fmt.Errorf("%w: %v", errno.ErrConnectFailed, err)
	}
	log.Debug("connected to control panel", zap.String("address", server.Address()))
	return &Conn{
		conn:    raw,
		buf:     make([]byte, readBufferSize),
		log:     log.With(zap.String("panel", server.Instance)),
		metrics: d.Metrics,
	}, nil
}

// Conn is one connection to the control panel and the outer tunnel on it.
// It is owned by a single session and is not reusable after Close.
type Conn struct {
	conn    net.Conn
	engine  *srptls.Engine
	buf     []byte
	closed  bool
	log     *zap.Logger
	metrics *monitor.Metrics
}

// NewConn wraps an already open stream.
func NewConn(raw net.Conn, log *zap.Logger, metrics *monitor.Metrics) *Conn {
	if log == nil {
		log = zap.NewNop()
	}
	return &Conn{conn: raw, buf: make([]byte, readBufferSize), log: log, metrics: metrics}
}

// watch makes socket I/O return as soon as ctx is done.
func (c *Conn) watch(ctx context.Context) (stop func() bool) {
	return context.AfterFunc(ctx, func() {
		_ = c.conn.SetDeadline(time.Now())
	})
}

func (c *Conn) check() error {
	if c.closed {
		return ErrClosed
	}
	return nil
}

// EstablishOuterTunnel runs the SRP handshake with password, the decoded
// pairing srpKey. Failures are errno.ErrAuthFailed; ctx firing is
// errno.ErrCancelled.
func (c *Conn) EstablishOuterTunnel(ctx context.Context, password []byte) error {
	if err := c.check(); err != nil {
		return err
	}
	if c.engine != nil {
		return errors.New("outer tunnel already established")
	}
	stop := c.watch(ctx)
	defer stop()

	start := time.Now()
	engine, err := srptls.Client(srptls.Config{Identity: srptls.DefaultIdentity, Password: password})
	if err != nil {
		return fmt.Errorf("%w: %v", errno.ErrAuthFailed, err)
	}

	for !engine.HandshakeDone() {
		// 1. 发送引擎待发数据
		out, err := engine.ReadOutput()
		if err != nil {
			return c.authErr(ctx, err)
		}
		if len(out) > 0 {
			if _, err := c.conn.Write(out); err != nil {
				return c.authErr(ctx, err)
			}
		}

		// 2. 读取并回灌
		n, err := c.conn.Read(c.buf)
		if n > 0 {
			if oerr := engine.OfferInput(c.buf[:n]); oerr != nil {
				// 尽量把 alert 发给对端
				if alert, _ := engine.ReadOutput(); len(alert) > 0 {
					_, _ = c.conn.Write(alert)
				}
				return c.authErr(ctx, oerr)
			}
		}
		if err != nil {
			return c.authErr(ctx, err)
		}
	}

	c.engine = engine
	c.metrics.RecordHandshake("outer", time.Since(start))
	c.log.Debug("outer tunnel established", zap.Duration("took", time.Since(start)))
	return nil
}

func (c *Conn) authErr(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return errno.ErrCancelled
	}
	c.log.Warn("outer tunnel handshake failed", zap.Error(err))
	return fmt.Errorf("%w: %v", errno.ErrAuthFailed, err)
}

func (c *Conn) ioErr(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return errno.ErrCancelled
	}
	return fmt.Errorf("%w: %v", errno.ErrConnectFailed, err)
}

// Write encrypts p and sends it.
func (c *Conn) Write(ctx context.Context, p []byte) error {
	if err := c.check(); err != nil {
		return err
	}
	if c.engine == nil {
		return ErrHandshakeIncomplete
	}
	stop := c.watch(ctx)
	defer stop()

	if err := c.engine.OfferOutput(p); err != nil {
		return err
	}
	out, err := c.engine.ReadOutput()
	if err != nil {
		return err
	}
	if _, err := c.conn.Write(out); err != nil {
		return c.ioErr(ctx, err)
	}
	return nil
}

// ReadChunk performs one socket read and returns whatever plaintext it
// completed, possibly nothing.
func (c *Conn) ReadChunk(ctx context.Context) ([]byte, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	if c.engine == nil {
		return nil, ErrHandshakeIncomplete
	}
	stop := c.watch(ctx)
	defer stop()

	n, err := c.conn.Read(c.buf)
	if n > 0 {
		if oerr := c.engine.OfferInput(c.buf[:n]); oerr != nil {
			return nil, oerr
		}
	}
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: closed by peer", errno.ErrConnectFailed)
		}
		return nil, c.ioErr(ctx, err)
	}

	plain, err := c.engine.ReadInput()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: closed by peer", errno.ErrConnectFailed)
	}
	return plain, err
}

// HandshakeDone reports whether the outer tunnel is up.
func (c *Conn) HandshakeDone() bool {
	return c.engine != nil && c.engine.HandshakeDone()
}

// Close drops the socket; no close_notify is sent.
func (c *Conn) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	return c.conn.Close()
}
