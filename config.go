package portmux

import (
	"net"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// Config is the full configuration surface consumed by the engine.
//
// Zero values are filled in by DefaultConfig; the engine itself never
// mutates a Config after Start.
type Config struct {
	// Host and Port form the single listening address shared by HTTP and
	// WebSocket traffic.
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`

	// AllowedOrigins restricts WebSocket handshakes and CORS responses.
	// A list containing "*" (or an empty list) allows any origin.
	AllowedOrigins []string `mapstructure:"allowed_origins"`

	// AllowedMethods and AllowedHeaders feed CORS policy evaluation.
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`

	// AllowCredentials and MaxAge feed CORS policy evaluation.
	AllowCredentials bool `mapstructure:"allow_credentials"`
	MaxAge           int  `mapstructure:"max_age"`

	// AuthKey, when non-empty, must be presented during the WebSocket
	// handshake either as the auth_key query parameter or the X-Auth-Key
	// header. Handshakes without it are rejected with 401.
	AuthKey string `mapstructure:"auth_key"`

	// MaxMessageBytes caps both a single frame payload and the aggregate
	// size of a fragmented message. Violations close the connection with
	// close code 1009.
	MaxMessageBytes int `mapstructure:"max_message_bytes"`

	// WriteTimeout bounds every socket write so a slow consumer cannot
	// stall a broadcast. Connections that miss the deadline are closed.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`

	// ReadIdleTimeout closes connections with no inbound traffic. The
	// deadline is refreshed on every read, including Pong frames.
	ReadIdleTimeout time.Duration `mapstructure:"read_idle_timeout"`

	// PingInterval is the keepalive Ping cadence for WebSocket clients.
	PingInterval time.Duration `mapstructure:"ping_interval"`

	// Logger receives structured engine logs. Defaults to a nop logger.
	Logger *zap.Logger `mapstructure:"-"`

	// Admission is consulted once per decoded event or parsed request.
	// Nil disables admission control.
	Admission Admission `mapstructure:"-"`
}

// DefaultConfig returns a Config with production-safe defaults on
// localhost:8080. Callers normally adjust Host, Port and AllowedOrigins.
func DefaultConfig() *Config {
	return &Config{
		Host:            "localhost",
		Port:            8080,
		AllowedOrigins:  []string{"*"},
		AllowedMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:  []string{"Content-Type", "Authorization", "X-Auth-Key"},
		MaxMessageBytes: 1 << 20, // 1 MiB
		WriteTimeout:    10 * time.Second,
		ReadIdleTimeout: 60 * time.Second,
		PingInterval:    54 * time.Second,
		Logger:          zap.NewNop(),
	}
}

// Addr returns the host:port listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
