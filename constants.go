package portmux

import "errors"

// Protocol identifies how a connection was classified.
type Protocol int

const (
	ProtocolUnknown Protocol = iota
	ProtocolHTTP
	ProtocolWebSocket
)

// State tracks a connection through its lifecycle.
type State int

const (
	StateConnecting State = iota
	StateOpen
	StateClosing
	StateClosed
)

// DefaultNamespace is the namespace every WebSocket client joins on connect.
const DefaultNamespace = "/"

// Reserved event names.
const (
	// EventError is emitted back to a client when its handler or
	// middleware fails.
	EventError = "error"

	// EventCatchAll registers a handler that receives every event with no
	// exact-match route. It is an explicit registration, not a pattern.
	EventCatchAll = "*"
)

// RFC 6455 close codes used by the engine.
const (
	CloseNormal          = 1000
	CloseGoingAway       = 1001
	CloseProtocolError   = 1002
	CloseUnsupportedData = 1003
	ClosePolicyViolation = 1008
	CloseMessageTooBig   = 1009
	CloseInternalError   = 1011
)

// SessionDataKey is the client-data key under which the engine stores the
// opaque session token assigned at connect time.
const SessionDataKey = "session"

// Sentinel errors returned by the engine.
var (
	ErrServerAlreadyRunning = errors.New("server already running")
	ErrServerNotRunning     = errors.New("server not running")
	ErrClientNotFound       = errors.New("client not found")
	ErrConnectionClosed     = errors.New("client connection is closed")
	ErrInvalidPattern       = errors.New("invalid route pattern")
	ErrDuplicateEvent       = errors.New("event already registered")
)
