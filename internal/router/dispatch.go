package router

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/luciancaetano/portmux"
)

// DispatchHTTP routes one parsed request through its middleware chain and
// handler, always producing a response.
//
// No matching route yields a 404 with a structured JSON body; the global
// middleware chain still runs, so cross-cutting middlewares (CORS
// preflight answers, access logs) see every request, including OPTIONS
// for paths that only register other methods. A handler or middleware
// error, a panic, or a chain that completes without setting a response
// yields a 500; failure details are logged, never sent to the client.
func (r *Router) DispatchHTTP(c *portmux.HTTPContext) *portmux.Response {
	r.mu.RLock()
	route, params := r.matchLocked(c.Request.Method, c.Request.Path)
	globals := r.globalHTTP
	r.mu.RUnlock()

	var (
		routeMws []portmux.HTTPMiddleware
		exclude  map[string]struct{}
		terminal func(c *portmux.HTTPContext) error
	)
	if route == nil {
		terminal = func(c *portmux.HTTPContext) error {
			c.Response = portmux.ErrorResponse(http.StatusNotFound, "not found")
			return nil
		}
	} else {
		c.Request.PathParams = params
		routeMws = route.mws
		exclude = route.exclude
		terminal = func(c *portmux.HTTPContext) error {
			return route.handler(c)
		}
	}

	chain := compose(globals, exclude, routeMws, terminal)

	err := r.runHTTP(chain, c)
	if err != nil {
		r.log.Error("http handler failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.Path),
			zap.Int64("client_id", c.ClientID),
			zap.Error(err))
		return portmux.ErrorResponse(http.StatusInternalServerError, "internal server error")
	}
	if c.Response == nil {
		// Handler completed without building a response.
		return portmux.NewResponse(http.StatusNoContent)
	}
	return c.Response
}

func (r *Router) runHTTP(chain func(*portmux.HTTPContext) error, c *portmux.HTTPContext) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = recoveredError(rec)
		}
	}()
	return chain(c)
}

// DispatchEvent routes one decoded event. Events with no exact-match
// handler fall back to the catch-all registration when present, otherwise
// they are dropped silently: no handler, no error, no response.
//
// Handler and middleware failures (including panics) are logged and
// converted into an {"event":"error"} envelope emitted to the originating
// client only; they never terminate the connection loop.
func (r *Router) DispatchEvent(c *portmux.EventContext) {
	r.mu.RLock()
	route, ok := r.events[c.Name]
	if !ok {
		route, ok = r.events[portmux.EventCatchAll]
	}
	globals := r.globalWS
	r.mu.RUnlock()

	if !ok {
		return
	}

	chain := compose(globals, route.exclude, route.mws, func(c *portmux.EventContext) error {
		return route.handler(c)
	})

	if err := r.runEvent(chain, c); err != nil {
		r.log.Error("event handler failed",
			zap.String("event", c.Name),
			zap.Int64("client_id", c.ClientID),
			zap.Error(err))
		if c.Runtime != nil {
			_ = c.Runtime.Emit(c.ClientID, portmux.EventError, map[string]any{
				"message": "internal error handling " + c.Name,
			})
		}
	}
}

func (r *Router) runEvent(chain func(*portmux.EventContext) error, c *portmux.EventContext) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = recoveredError(rec)
		}
	}()
	return chain(c)
}

// DispatchConnect invokes every connect handler in registration order. A
// panic in one handler is logged and does not stop the rest.
func (r *Router) DispatchConnect(rt portmux.Runtime, clientID int64) {
	r.mu.RLock()
	handlers := r.connect
	r.mu.RUnlock()
	r.runLifecycle("connect", handlers, rt, clientID)
}

// DispatchDisconnect invokes every disconnect handler in registration
// order, before the client's membership is purged.
func (r *Router) DispatchDisconnect(rt portmux.Runtime, clientID int64) {
	r.mu.RLock()
	handlers := r.disconnect
	r.mu.RUnlock()
	r.runLifecycle("disconnect", handlers, rt, clientID)
}

func (r *Router) runLifecycle(kind string, handlers []portmux.LifecycleHandler, rt portmux.Runtime, clientID int64) {
	for _, h := range handlers {
		func() {
			defer func() {
				if rec := recover(); rec != nil {
					r.log.Error(kind+" handler panicked",
						zap.Int64("client_id", clientID),
						zap.Any("panic", rec))
				}
			}()
			h(rt, clientID)
		}()
	}
}

func recoveredError(rec any) error {
	if err, ok := rec.(error); ok {
		return err
	}
	return &panicError{value: rec}
}

type panicError struct {
	value any
}

func (e *panicError) Error() string {
	return fmt.Sprintf("panic in handler: %v", e.value)
}
