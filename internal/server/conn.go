package server

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/luciancaetano/portmux"
	"github.com/luciancaetano/portmux/internal/protocol"
)

// conn is one live client connection. The read loop goroutine owns the
// socket's read side; writes come from any goroutine (emit, broadcast,
// keepalive) and serialize on writeMu under a deadline so a slow consumer
// cannot stall a broadcaster.
type conn struct {
	id         int64
	nc         net.Conn
	remoteAddr string

	ctx    context.Context
	cancel context.CancelFunc

	mu    sync.RWMutex
	proto portmux.Protocol
	state portmux.State

	dataMu sync.RWMutex
	data   map[string]any

	writeMu      sync.Mutex
	writeTimeout time.Duration

	asm *protocol.Assembler
}

func newConn(id int64, nc net.Conn, writeTimeout time.Duration, maxMessage int) *conn {
	ctx, cancel := context.WithCancel(context.Background())
	return &conn{
		id:           id,
		nc:           nc,
		remoteAddr:   nc.RemoteAddr().String(),
		ctx:          ctx,
		cancel:       cancel,
		state:        portmux.StateConnecting,
		data:         make(map[string]any),
		writeTimeout: writeTimeout,
		asm:          protocol.NewAssembler(maxMessage),
	}
}

func (c *conn) Protocol() portmux.Protocol {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.proto
}

func (c *conn) setProtocol(p portmux.Protocol) {
	c.mu.Lock()
	c.proto = p
	c.mu.Unlock()
}

func (c *conn) State() portmux.State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *conn) setState(s portmux.State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// isOpen reports whether the connection is a WebSocket session that may
// still receive emits.
func (c *conn) isOpen() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.proto == portmux.ProtocolWebSocket && c.state == portmux.StateOpen
}

// write sends raw bytes under the write deadline. A failed or timed-out
// write closes the socket; the read loop observes the error and runs
// teardown.
func (c *conn) write(b []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.ctx.Err() != nil {
		return portmux.ErrConnectionClosed
	}
	if c.writeTimeout > 0 {
		c.nc.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	if _, err := c.nc.Write(b); err != nil {
		c.nc.Close()
		return err
	}
	return nil
}

// sendFrame encodes and writes one unmasked server frame.
func (c *conn) sendFrame(op protocol.Opcode, payload []byte, fin bool) error {
	return c.write(protocol.Encode(op, payload, fin))
}

// sendEnvelope writes an {event, data} envelope as a Text frame.
func (c *conn) sendEnvelope(event string, data map[string]any) error {
	payload, err := protocol.EncodeEnvelope(event, data)
	if err != nil {
		return err
	}
	return c.sendFrame(protocol.OpText, payload, true)
}

// sendClose writes a Close frame and moves the connection to the closing
// state. Repeated calls after the first are no-ops.
func (c *conn) sendClose(code int, reason string) {
	c.mu.Lock()
	if c.state == portmux.StateClosing || c.state == portmux.StateClosed {
		c.mu.Unlock()
		return
	}
	c.state = portmux.StateClosing
	c.mu.Unlock()

	c.sendFrame(protocol.OpClose, protocol.EncodeClose(code, reason), true)
}

// shutdown releases the socket. Safe to call more than once.
func (c *conn) shutdown() {
	c.cancel()
	c.setState(portmux.StateClosed)
	c.nc.Close()
}

func (c *conn) getData(key string) (any, bool) {
	c.dataMu.RLock()
	defer c.dataMu.RUnlock()
	v, ok := c.data[key]
	return v, ok
}

func (c *conn) setData(key string, value any) {
	c.dataMu.Lock()
	defer c.dataMu.Unlock()
	if value == nil {
		delete(c.data, key)
		return
	}
	c.data[key] = value
}
