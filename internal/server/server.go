// Package server implements the connection engine: the accept loop, the
// per-connection read loops for both protocol paths, and the runtime API
// handlers use to emit, broadcast and manage membership.
package server

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/luciancaetano/portmux"
	"github.com/luciancaetano/portmux/internal/registry"
	"github.com/luciancaetano/portmux/internal/router"
)

// Server implements portmux.Server.
type Server struct {
	cfg *portmux.Config
	log *zap.Logger

	router    *router.Router
	registry  *registry.Registry
	admission portmux.Admission

	clients sync.Map // int64 -> *conn
	nextID  atomic.Int64
	count   atomic.Int64

	mu      sync.Mutex
	running bool
	ln      net.Listener
	eg      *errgroup.Group
	cancel  context.CancelFunc
}

// New creates an engine for cfg. Nil configs and zero-valued fields fall
// back to DefaultConfig values; the caller's struct is never mutated.
func New(cfg *portmux.Config) *Server {
	cfg = normalize(cfg)
	return &Server{
		cfg:       cfg,
		log:       cfg.Logger,
		router:    router.New(cfg.Logger),
		registry:  registry.New(),
		admission: cfg.Admission,
	}
}

// normalize copies cfg and fills zero fields with defaults, so a
// hand-built partial Config cannot disable the engine's limits by
// accident. Admission stays nil when unset; nil disables it by contract.
func normalize(cfg *portmux.Config) *portmux.Config {
	def := portmux.DefaultConfig()
	if cfg == nil {
		return def
	}
	c := *cfg
	if c.Host == "" {
		c.Host = def.Host
	}
	if c.Port == 0 {
		c.Port = def.Port
	}
	if c.MaxMessageBytes == 0 {
		c.MaxMessageBytes = def.MaxMessageBytes
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = def.WriteTimeout
	}
	if c.ReadIdleTimeout == 0 {
		c.ReadIdleTimeout = def.ReadIdleTimeout
	}
	if c.PingInterval == 0 {
		c.PingInterval = def.PingInterval
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	return &c
}

// Start binds the listening socket and launches the accept loop. It
// returns once the socket is bound; the engine runs until Stop or context
// cancellation.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return portmux.ErrServerAlreadyRunning
	}

	ln, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.running = true
	s.ln = ln

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	eg, runCtx := errgroup.WithContext(runCtx)
	s.eg = eg
	s.mu.Unlock()

	eg.Go(func() error {
		return s.acceptLoop(runCtx, ln)
	})
	// The context watcher stays outside the group: it calls Stop, which
	// waits for the group, so group membership would stall every
	// context-triggered shutdown until the Stop timeout.
	go func() {
		select {
		case <-ctx.Done():
			stopCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
			defer stop()
			s.Stop(stopCtx)
		case <-runCtx.Done():
		}
	}()

	s.log.Info("listening", zap.String("addr", ln.Addr().String()))
	return nil
}

// Stop gracefully stops the engine: the listener closes first, then every
// live connection. WebSocket clients receive a going-away Close frame.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	ln := s.ln
	eg := s.eg
	cancel := s.cancel
	s.mu.Unlock()

	cancel()
	ln.Close()

	s.clients.Range(func(_, value any) bool {
		c := value.(*conn)
		if c.isOpen() {
			c.sendClose(portmux.CloseGoingAway, "server shutting down")
		}
		c.shutdown()
		return true
	})

	done := make(chan struct{})
	go func() {
		eg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Server) acceptLoop(ctx context.Context, ln net.Listener) error {
	for {
		nc, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}

		id := s.nextID.Add(1)
		c := newConn(id, nc, s.cfg.WriteTimeout, s.cfg.MaxMessageBytes)
		s.clients.Store(id, c)
		s.count.Add(1)

		go s.handleConn(c)
	}
}

// Route and middleware registration delegates to the router.

func (s *Server) RegisterRoute(method, pattern string, handler portmux.HTTPHandler, mws []portmux.HTTPMiddleware, exclude []string) error {
	return s.router.RegisterRoute(method, pattern, handler, mws, exclude)
}

func (s *Server) RegisterEvent(name string, handler portmux.EventHandler, mws []portmux.EventMiddleware, exclude []string) error {
	return s.router.RegisterEvent(name, handler, mws, exclude)
}

func (s *Server) RegisterConnect(handler portmux.LifecycleHandler) {
	s.router.RegisterConnect(handler)
}

func (s *Server) RegisterDisconnect(handler portmux.LifecycleHandler) {
	s.router.RegisterDisconnect(handler)
}

func (s *Server) UseHTTP(name string, mw portmux.HTTPMiddleware) {
	s.router.UseHTTP(name, mw)
}

func (s *Server) UseWS(name string, mw portmux.EventMiddleware) {
	s.router.UseWS(name, mw)
}
