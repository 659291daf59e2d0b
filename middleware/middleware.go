// Package middleware ships the built-in middlewares: request IDs, access
// logging and CORS. All of them are ordinary named global middlewares;
// routes opt out via their exclusion set.
package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/luciancaetano/portmux"
	"github.com/luciancaetano/portmux/cors"
)

// RequestIDKey is the context key under which the request id is stored.
const RequestIDKey = "request_id"

// RequestID assigns a uuid to every HTTP request, stores it in the
// context and echoes it in the X-Request-Id response header.
func RequestID() portmux.HTTPMiddleware {
	return func(c *portmux.HTTPContext, next func(*portmux.HTTPContext) error) error {
		id := c.Request.Headers.Get("X-Request-Id")
		if id == "" {
			id = uuid.New().String()
		}
		c.Set(RequestIDKey, id)
		err := next(c)
		if c.Response != nil {
			if c.Response.Headers == nil {
				c.Response.Headers = portmux.Headers{}
			}
			c.Response.Headers.Set("X-Request-Id", id)
		}
		return err
	}
}

// AccessLog logs one line per HTTP request with method, path, status and
// latency. Severity follows the status code.
func AccessLog(log *zap.Logger) portmux.HTTPMiddleware {
	return func(c *portmux.HTTPContext, next func(*portmux.HTTPContext) error) error {
		start := time.Now()
		err := next(c)

		status := 0
		if c.Response != nil {
			status = c.Response.StatusCode
		}
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.Path),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.Int64("client_id", c.ClientID),
		}
		switch {
		case err != nil || status >= 500:
			log.Error("request", fields...)
		case status >= 400:
			log.Warn("request", fields...)
		default:
			log.Info("request", fields...)
		}
		return err
	}
}

// EventLog logs one line per dispatched WebSocket event.
func EventLog(log *zap.Logger) portmux.EventMiddleware {
	return func(c *portmux.EventContext, next func(*portmux.EventContext) error) error {
		start := time.Now()
		err := next(c)
		fields := []zap.Field{
			zap.String("event", c.Name),
			zap.Duration("latency", time.Since(start)),
			zap.Int64("client_id", c.ClientID),
		}
		if err != nil {
			log.Error("event", fields...)
		} else {
			log.Info("event", fields...)
		}
		return err
	}
}

// CORS applies cfg's CORS policy. OPTIONS preflight requests are answered
// directly with 204, short-circuiting the rest of the chain; disallowed
// origins receive 403.
func CORS(cfg *portmux.Config) portmux.HTTPMiddleware {
	return func(c *portmux.HTTPContext, next func(*portmux.HTTPContext) error) error {
		origin := c.Request.Headers.Get("Origin")
		preflight := c.Request.Method == http.MethodOptions

		verdict := cors.Evaluate(cfg, origin, preflight)
		if !verdict.Allowed {
			c.Response = portmux.ErrorResponse(http.StatusForbidden, "origin not allowed")
			return nil
		}

		if preflight {
			c.Response = portmux.NewResponse(http.StatusNoContent)
			for name, value := range verdict.Headers {
				c.Response.Headers.Set(name, value)
			}
			return nil
		}

		err := next(c)
		if c.Response != nil {
			if c.Response.Headers == nil {
				c.Response.Headers = portmux.Headers{}
			}
			for name, value := range verdict.Headers {
				c.Response.Headers.Set(name, value)
			}
		}
		return err
	}
}
