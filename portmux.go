package portmux

import "context"

// Server is a dual-protocol connection engine that serves plain HTTP/1.1 and
// RFC 6455 WebSocket traffic over a single listening socket.
//
// Every accepted connection starts in an unclassified state. The first bytes
// received decide whether the connection follows the HTTP request/response
// cycle or is upgraded to a WebSocket session. Both paths share the same
// router, middleware pipeline and runtime API.
//
// Example usage:
//
//	import "github.com/luciancaetano/portmux/engine"
//
//	cfg := portmux.DefaultConfig()
//	srv := engine.New(cfg)
//
//	srv.RegisterEvent("chat.message", func(c *portmux.EventContext) error {
//	    return c.Runtime.BroadcastRoom("/chat", "general", "chat.message", c.Data)
//	}, nil, nil)
//
//	srv.Start(ctx)
type Server interface {
	// Start binds the listening socket and begins accepting connections.
	// The server keeps running until Stop is called or the context is
	// cancelled.
	//
	// Returns an error if the server is already running or if the address
	// cannot be bound.
	Start(ctx context.Context) error

	// Stop gracefully stops the server. New accepts cease immediately and
	// every live connection is closed; WebSocket clients receive a Close
	// frame with code 1001 (going away).
	Stop(ctx context.Context) error

	// RegisterRoute binds an HTTP handler to a method and path pattern.
	//
	// Patterns are literal segments mixed with {name} placeholders, each
	// placeholder matching exactly one non-slash segment:
	//
	//	srv.RegisterRoute("GET", "/users/{id}/posts/{postId}", handler, nil, nil)
	//
	// The first registered route that structurally matches a request wins.
	// mws are route-local middlewares appended after the global chain, and
	// exclude lists names of global middlewares to skip for this route.
	RegisterRoute(method, pattern string, handler HTTPHandler, mws []HTTPMiddleware, exclude []string) error

	// RegisterEvent binds a WebSocket event handler to an exact event name.
	//
	// Incoming Text frames carry a {"event": ..., "data": ...} envelope;
	// the envelope's event string is matched verbatim against registered
	// names. Events without a matching handler are dropped silently unless
	// a catch-all handler is registered under EventCatchAll.
	RegisterEvent(name string, handler EventHandler, mws []EventMiddleware, exclude []string) error

	// RegisterConnect adds a handler invoked after a WebSocket handshake
	// completes and the client enters the open state. Handlers run in
	// registration order; a panic in one handler does not stop the rest.
	RegisterConnect(handler LifecycleHandler)

	// RegisterDisconnect adds a handler invoked when a WebSocket client
	// disconnects, before its namespace and room membership is purged.
	RegisterDisconnect(handler LifecycleHandler)

	// UseHTTP appends a named global middleware to the HTTP pipeline.
	// Routes may opt out individually by listing the name in their
	// exclusion set.
	UseHTTP(name string, mw HTTPMiddleware)

	// UseWS appends a named global middleware to the WebSocket event
	// pipeline.
	UseWS(name string, mw EventMiddleware)

	Runtime
}

// Runtime is the API the engine exposes to handler code at dispatch time.
// Handlers receive it through their context and may call back into it to
// emit, broadcast or manage namespace/room membership.
//
// All methods are safe for concurrent use from any goroutine. Methods that
// target a client by id are no-ops when the client is unknown or no longer
// open; a handler can never crash the engine by holding a stale id.
type Runtime interface {
	// Emit sends an {event, data} envelope to a single WebSocket client.
	// Returns nil without side effects if the client is not connected.
	Emit(clientID int64, event string, data map[string]any) error

	// Broadcast sends an envelope to every open WebSocket client.
	// A failed write to one client never aborts delivery to the others.
	Broadcast(event string, data map[string]any)

	// BroadcastNamespace sends an envelope to every client currently in
	// the given namespace.
	BroadcastNamespace(namespace, event string, data map[string]any)

	// BroadcastRoom sends an envelope to every client in one room of one
	// namespace.
	BroadcastRoom(namespace, room, event string, data map[string]any)

	// JoinRoom adds a client to a room. An empty namespace means the
	// client's current namespace. Joining a room twice is a no-op.
	JoinRoom(clientID int64, room, namespace string) error

	// LeaveRoom removes a client from a room. Leaving a room the client
	// is not in is a no-op.
	LeaveRoom(clientID int64, room, namespace string) error

	// MoveToNamespace moves a client to a new namespace. The client is
	// first removed from every room of its old namespace.
	MoveToNamespace(clientID int64, namespace string) error

	// ClientData reads a value from a client's private key-value store.
	ClientData(clientID int64, key string) (any, bool)

	// SetClientData writes a value into a client's private key-value
	// store. A nil value deletes the key.
	SetClientData(clientID int64, key string, value any)

	// IsConnected reports whether a client id maps to a live connection.
	IsConnected(clientID int64) bool

	// ClientCount returns the number of live connections.
	ClientCount() int
}

// HTTPHandler is the terminal function of an HTTP dispatch chain. It reads
// the parsed request from the context and must set c.Response before
// returning. Returning an error yields a 500 response with a structured
// JSON body; error details are never leaked to the client.
type HTTPHandler func(c *HTTPContext) error

// EventHandler is the terminal function of a WebSocket event dispatch
// chain. Returning an error sends an {"event":"error"} envelope back to the
// originating client; the connection stays open.
type EventHandler func(c *EventContext) error

// LifecycleHandler observes WebSocket connect and disconnect transitions.
type LifecycleHandler func(rt Runtime, clientID int64)

// HTTPMiddleware intercepts HTTP dispatch. Calling next runs the remainder
// of the chain; returning without calling next short-circuits it, in which
// case the middleware is responsible for setting c.Response.
type HTTPMiddleware func(c *HTTPContext, next func(c *HTTPContext) error) error

// EventMiddleware intercepts WebSocket event dispatch with the same
// composition semantics as HTTPMiddleware.
type EventMiddleware func(c *EventContext, next func(c *EventContext) error) error

// Admission is the pluggable per-message/per-request admission check. The
// engine consults it once for every decoded WebSocket event and every
// parsed HTTP request. A rejected HTTP request receives a 429 response; a
// rejected event produces an error envelope. Neither closes the connection.
type Admission interface {
	// Allow reports whether the client may have one more message or
	// request processed.
	Allow(clientID int64) bool

	// Forget releases any per-client accounting state. Called once during
	// disconnect teardown.
	Forget(clientID int64)
}
