// Package admission provides the default per-client admission check: a
// token bucket rate limiter consulted once for every decoded WebSocket
// event and parsed HTTP request.
package admission

import (
	"sync"

	"golang.org/x/time/rate"
)

// Config defines the token bucket applied to each client independently.
type Config struct {
	// MessagesPerSecond defines how many messages/requests a client may
	// have processed per second.
	MessagesPerSecond rate.Limit
	// Burst defines the token bucket capacity.
	Burst int
	// Enabled determines if admission control is active.
	Enabled bool
}

// DefaultConfig returns the default admission configuration:
// 100 messages per second with burst of 200.
func DefaultConfig() *Config {
	return &Config{
		MessagesPerSecond: 100,
		Burst:             200,
		Enabled:           true,
	}
}

// Disabled returns a configuration with admission control switched off.
func Disabled() *Config {
	return &Config{Enabled: false}
}

// Limiter implements portmux.Admission with one token bucket per client.
// Buckets are created lazily on a client's first message and released by
// Forget during disconnect teardown.
type Limiter struct {
	cfg Config

	mu      sync.Mutex
	buckets map[int64]*rate.Limiter
}

// New returns a limiter for cfg. A nil cfg uses DefaultConfig.
func New(cfg *Config) *Limiter {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Limiter{
		cfg:     *cfg,
		buckets: make(map[int64]*rate.Limiter),
	}
}

// Allow reports whether the client may have one more message processed.
func (l *Limiter) Allow(clientID int64) bool {
	if !l.cfg.Enabled {
		return true
	}
	l.mu.Lock()
	bucket, ok := l.buckets[clientID]
	if !ok {
		bucket = rate.NewLimiter(l.cfg.MessagesPerSecond, l.cfg.Burst)
		l.buckets[clientID] = bucket
	}
	l.mu.Unlock()
	return bucket.Allow()
}

// Forget drops the client's bucket.
func (l *Limiter) Forget(clientID int64) {
	l.mu.Lock()
	delete(l.buckets, clientID)
	l.mu.Unlock()
}
