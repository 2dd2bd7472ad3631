package tunnel

import (
	"io"
	"net"
	"sync"
	"time"
)

// errWouldBlock is returned by pipeConn.Read once the handshake is over and
// no input is buffered. crypto/tls keeps the connection usable after a
// temporary net.Error, so the next Read picks up where it stopped.
var errWouldBlock net.Error = wouldBlock{}

type wouldBlock struct{}

func (wouldBlock) Error() string   { return "tunnel: no input buffered" }
func (wouldBlock) Timeout() bool   { return true }
func (wouldBlock) Temporary() bool { return true }

type pipeAddr struct{}

func (pipeAddr) Network() string { return "pipe" }
func (pipeAddr) String() string  { return "device" }

// pipeConn is the in-memory net.Conn under a tls.Conn. While the handshake
// goroutine runs, Read parks until input arrives; afterwards it never blocks.
type pipeConn struct {
	mu   sync.Mutex
	cond *sync.Cond

	in  []byte
	out []byte

	readWaiting bool
	nonblocking bool
	finished    bool
	hsErr       error
	closed      bool
}

func newPipeConn() *pipeConn {
	c := &pipeConn{}
	c.cond = sync.NewCond(&c.mu)
	return c
}

func (c *pipeConn) Read(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for len(c.in) == 0 {
		if c.closed {
			return 0, io.EOF
		}
		if c.nonblocking {
			return 0, errWouldBlock
		}
		c.readWaiting = true
		c.cond.Broadcast()
		c.cond.Wait()
		c.readWaiting = false
	}
	n := copy(p, c.in)
	c.in = c.in[n:]
	return n, nil
}

func (c *pipeConn) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return 0, io.ErrClosedPipe
	}
	c.out = append(c.out, p...)
	return len(p), nil
}

func (c *pipeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	c.cond.Broadcast()
	return nil
}

// finish is called by the handshake goroutine when tls.Conn.Handshake returns.
func (c *pipeConn) finish(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.finished = true
	c.hsErr = err
	c.nonblocking = true
	c.cond.Broadcast()
}

// settleLocked waits until the handshake goroutine is parked on empty input
// or has returned. A closed pipe always ends the handshake.
func (c *pipeConn) settleLocked() {
	for !c.finished && (c.closed || !c.readWaiting || len(c.in) > 0) {
		c.cond.Wait()
	}
}

func (c *pipeConn) push(p []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.in = append(c.in, p...)
	c.cond.Broadcast()
	c.settleLocked()
}

func (c *pipeConn) drain() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.settleLocked()
	out := c.out
	c.out = nil
	return out
}

func (c *pipeConn) state() (finished bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.finished, c.hsErr
}

func (c *pipeConn) LocalAddr() net.Addr                { return pipeAddr{} }
func (c *pipeConn) RemoteAddr() net.Addr               { return pipeAddr{} }
func (c *pipeConn) SetDeadline(t time.Time) error      { return nil }
func (c *pipeConn) SetReadDeadline(t time.Time) error  { return nil }
func (c *pipeConn) SetWriteDeadline(t time.Time) error { return nil }
