package server

import (
	"bytes"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/luciancaetano/portmux"
	"github.com/luciancaetano/portmux/internal/handshake"
	"github.com/luciancaetano/portmux/internal/httpwire"
	"github.com/luciancaetano/portmux/internal/protocol"
)

const readChunkSize = 4096

// handleConn runs a connection's entire life on one goroutine: buffer
// bytes until the stream classifies, then serve the HTTP request cycle or
// the WebSocket frame cycle. Teardown always runs here, so disconnect
// handlers and membership purge happen exactly once.
func (s *Server) handleConn(c *conn) {
	defer s.teardown(c)

	buf := make([]byte, 0, readChunkSize)
	chunk := make([]byte, readChunkSize)

	kind := handshake.KindIncomplete
	for kind == handshake.KindIncomplete {
		if len(buf) > httpwire.MaxHeaderBytes {
			s.writeResponse(c, portmux.ErrorResponse(http.StatusRequestHeaderFieldsTooLarge, "request headers too large"))
			return
		}
		n, err := s.readChunk(c, chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
			kind = handshake.Classify(buf)
		}
		if err != nil {
			return
		}
	}

	switch kind {
	case handshake.KindWebSocket:
		s.serveWebSocket(c, buf)
	default:
		s.serveHTTP(c, buf)
	}
}

func (s *Server) teardown(c *conn) {
	// Disconnect handlers run only for sessions that completed the
	// handshake, and before membership is purged.
	if c.Protocol() == portmux.ProtocolWebSocket && c.State() != portmux.StateConnecting {
		s.router.DispatchDisconnect(s, c.id)
	}
	s.registry.Remove(c.id)
	if s.admission != nil {
		s.admission.Forget(c.id)
	}
	c.shutdown()
	s.clients.Delete(c.id)
	s.count.Add(-1)
	s.log.Debug("connection closed",
		zap.Int64("client_id", c.id),
		zap.String("remote_addr", c.remoteAddr))
}

func (s *Server) readChunk(c *conn, chunk []byte) (int, error) {
	if s.cfg.ReadIdleTimeout > 0 {
		c.nc.SetReadDeadline(time.Now().Add(s.cfg.ReadIdleTimeout))
	}
	return c.nc.Read(chunk)
}

// --- WebSocket path ---

func (s *Server) serveWebSocket(c *conn, buf []byte) {
	req, consumed, err := httpwire.ParseRequest(buf)
	if err != nil || req == nil {
		s.writeResponse(c, portmux.ErrorResponse(http.StatusBadRequest, "malformed upgrade request"))
		return
	}
	buf = buf[consumed:]

	accept, rej := handshake.Negotiate(req, s.cfg)
	if rej != nil {
		s.log.Warn("handshake rejected",
			zap.Int64("client_id", c.id),
			zap.String("remote_addr", c.remoteAddr),
			zap.Int("status", rej.Status),
			zap.String("reason", rej.Message))
		s.writeResponse(c, portmux.ErrorResponse(rej.Status, rej.Message))
		return
	}

	c.setProtocol(portmux.ProtocolWebSocket)
	if err := c.write(accept); err != nil {
		return
	}
	c.setState(portmux.StateOpen)
	c.setData(portmux.SessionDataKey, uuid.New().String())
	s.registry.Add(c.id)
	s.log.Info("websocket open",
		zap.Int64("client_id", c.id),
		zap.String("remote_addr", c.remoteAddr))

	s.router.DispatchConnect(s, c.id)
	go s.pingLoop(c)

	chunk := make([]byte, readChunkSize)
	for {
		for {
			f, consumed, err := protocol.Decode(buf, s.cfg.MaxMessageBytes, true)
			if err != nil {
				s.closeOnViolation(c, err)
				return
			}
			if f == nil {
				break
			}
			buf = buf[consumed:]
			if done := s.handleFrame(c, f); done {
				return
			}
		}

		n, err := s.readChunk(c, chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
		}
		if err != nil {
			return
		}
	}
}

// handleFrame processes one decoded frame; a true result ends the read
// loop.
func (s *Server) handleFrame(c *conn, f *protocol.Frame) bool {
	switch f.Opcode {
	case protocol.OpPing:
		// Pong must echo the ping payload.
		c.sendFrame(protocol.OpPong, f.Payload, true)
		return false
	case protocol.OpPong:
		// Keepalive answer; the read deadline was already refreshed.
		return false
	case protocol.OpClose:
		code, _, perr := protocol.ParseClose(f.Payload)
		switch {
		case perr != nil:
			s.closeOnViolation(c, perr)
		case code != 0:
			c.sendClose(code, "")
		default:
			c.sendClose(portmux.CloseNormal, "")
		}
		return true
	}

	msg, err := c.asm.Push(f)
	if err != nil {
		s.closeOnViolation(c, err)
		return true
	}
	if msg == nil {
		return false
	}
	if msg.Opcode == protocol.OpText {
		s.handleMessage(c, msg.Payload)
	}
	// Binary messages carry no event envelope and are dropped.
	return false
}

// handleMessage decodes an envelope and dispatches it synchronously, so
// one client's events are handled strictly in arrival order.
func (s *Server) handleMessage(c *conn, payload []byte) {
	env, err := protocol.ParseEnvelope(payload)
	if err != nil {
		c.sendEnvelope(portmux.EventError, map[string]any{"message": "malformed event envelope"})
		return
	}
	if s.admission != nil && !s.admission.Allow(c.id) {
		c.sendEnvelope(portmux.EventError, map[string]any{"message": "rate limit exceeded"})
		return
	}
	s.router.DispatchEvent(portmux.NewEventContext(c.id, env.Event, env.Data, s))
}

func (s *Server) closeOnViolation(c *conn, err error) {
	code := portmux.CloseProtocolError
	reason := "protocol error"
	var perr *protocol.Error
	if errors.As(err, &perr) {
		code = perr.CloseCode
		reason = perr.Reason
	}
	s.log.Warn("protocol violation",
		zap.Int64("client_id", c.id),
		zap.String("remote_addr", c.remoteAddr),
		zap.Error(err))
	c.sendClose(code, reason)
}

func (s *Server) pingLoop(c *conn) {
	if s.cfg.PingInterval <= 0 {
		return
	}
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := c.sendFrame(protocol.OpPing, nil, true); err != nil {
				return
			}
		case <-c.ctx.Done():
			return
		}
	}
}

// --- HTTP path ---

func (s *Server) serveHTTP(c *conn, buf []byte) {
	c.setProtocol(portmux.ProtocolHTTP)
	c.setState(portmux.StateOpen)

	chunk := make([]byte, readChunkSize)
	for {
		req, consumed, err := httpwire.ParseRequest(buf)
		if err != nil {
			s.writeResponse(c, httpErrorResponse(err))
			return
		}
		if req == nil {
			n, rerr := s.readChunk(c, chunk)
			if n > 0 {
				buf = append(buf, chunk[:n]...)
			}
			if rerr != nil {
				return
			}
			continue
		}
		buf = buf[consumed:]

		resp := s.handleRequest(c, req)
		if err := s.writeResponse(c, resp); err != nil {
			return
		}
		if wantsClose(req) {
			return
		}
	}
}

func (s *Server) handleRequest(c *conn, req *portmux.Request) *portmux.Response {
	if s.admission != nil && !s.admission.Allow(c.id) {
		return portmux.ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded")
	}
	return s.router.DispatchHTTP(portmux.NewHTTPContext(c.id, req, s))
}

func httpErrorResponse(err error) *portmux.Response {
	switch {
	case errors.Is(err, httpwire.ErrChunkedUnsupported):
		return portmux.ErrorResponse(http.StatusNotImplemented, "chunked transfer encoding not supported")
	case errors.Is(err, httpwire.ErrHeadersTooLarge):
		return portmux.ErrorResponse(http.StatusRequestHeaderFieldsTooLarge, "request headers too large")
	default:
		return portmux.ErrorResponse(http.StatusBadRequest, "malformed request")
	}
}

func wantsClose(req *portmux.Request) bool {
	if req.Headers.HasToken("Connection", "close") {
		return true
	}
	return req.Proto == "HTTP/1.0" && !req.Headers.HasToken("Connection", "keep-alive")
}

func (s *Server) writeResponse(c *conn, resp *portmux.Response) error {
	var b bytes.Buffer
	if err := httpwire.WriteResponse(&b, resp); err != nil {
		return err
	}
	return c.write(b.Bytes())
}
