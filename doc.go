// Package portmux provides a dual-protocol connection engine that serves
// HTTP/1.1 and WebSocket traffic over one listening socket.
//
// The engine performs its own protocol detection, WebSocket framing and
// HTTP request parsing at the byte level, then routes decoded events and
// requests through ordered middleware chains to registered handlers. A
// namespace/room membership index supports targeted broadcast.
//
// # Architecture
//
// Each accepted connection runs its own read loop goroutine. The first
// bytes received classify the stream: a request carrying Upgrade:
// websocket, a Connection header containing the upgrade token and a
// Sec-WebSocket-Key is negotiated into a WebSocket session; anything else
// follows the plain HTTP request/response cycle on the same socket.
//
//	accept -> classify -> WebSocket: frame decode -> middleware -> event handler
//	                   -> HTTP:     request parse -> middleware -> route handler
//
// Handlers call back into the engine's runtime API to emit to single
// clients, broadcast to namespaces and rooms, and manage per-client data.
//
// # Quick Start
//
//	import (
//	    "github.com/luciancaetano/portmux"
//	    "github.com/luciancaetano/portmux/engine"
//	)
//
//	cfg := portmux.DefaultConfig()
//	srv := engine.New(cfg)
//
//	srv.RegisterRoute("GET", "/users/{id}", func(c *portmux.HTTPContext) error {
//	    c.Response = portmux.JSONResponse(200, map[string]string{
//	        "id": c.Request.PathParams["id"],
//	    })
//	    return nil
//	}, nil, nil)
//
//	srv.RegisterEvent("chat.message", func(c *portmux.EventContext) error {
//	    c.Runtime.BroadcastRoom("/chat", "general", "chat.message", c.Data)
//	    return nil
//	}, nil, nil)
//
//	srv.Start(ctx)
//
// # Wire Format
//
// WebSocket Text frames carry a JSON envelope:
//
//	{"event": "chat.message", "data": {"message": "hi"}}
//
// The server emits the same envelope shape. Events with no registered
// handler are dropped silently; handler failures produce an
// {"event":"error"} envelope to the offending client only.
//
// # Ordering And Concurrency
//
// Events and requests from a single connection are processed strictly in
// arrival order on that connection's goroutine. No ordering is guaranteed
// across connections. The router, middleware chains and membership index
// are safe for concurrent use; broadcast iterates a snapshot of the member
// set, so clients disconnecting mid-broadcast degrade to no-op emits.
//
// # Limits And Safety
//
//   - MaxMessageBytes caps frames and fragmented messages (close 1009)
//   - Client frames must be masked (close 1002)
//   - Control frame payloads above 125 bytes are rejected (close 1002)
//   - Writes carry a deadline so slow consumers cannot stall broadcasts
//   - Read idle timeout plus keepalive Pings detect dead peers
//   - Optional admission check throttles per-client message/request rates
//   - Handler panics are recovered at the dispatch boundary and never
//     terminate the connection loop
package portmux
