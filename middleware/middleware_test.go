package middleware_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/luciancaetano/portmux"
	"github.com/luciancaetano/portmux/middleware"
)

func httpContext(method, path string, headers map[string]string) *portmux.HTTPContext {
	h := portmux.Headers{}
	for name, value := range headers {
		h.Set(name, value)
	}
	return portmux.NewHTTPContext(1, &portmux.Request{
		Method:  method,
		Path:    path,
		Proto:   "HTTP/1.1",
		Headers: h,
		Query:   map[string]string{},
	}, nil)
}

func passthrough(c *portmux.HTTPContext) error {
	c.Response = portmux.NewResponse(200)
	return nil
}

func TestRequestIDGenerates(t *testing.T) {
	t.Parallel()

	mw := middleware.RequestID()
	c := httpContext("GET", "/x", nil)

	require.NoError(t, mw(c, passthrough))

	id, ok := c.Get(middleware.RequestIDKey)
	require.True(t, ok)
	assert.NotEmpty(t, id)
	assert.Equal(t, id, c.Response.Headers.Get("X-Request-Id"))
}

func TestRequestIDEchoesClientValue(t *testing.T) {
	t.Parallel()

	mw := middleware.RequestID()
	c := httpContext("GET", "/x", map[string]string{"X-Request-Id": "trace-123"})

	require.NoError(t, mw(c, passthrough))

	id, _ := c.Get(middleware.RequestIDKey)
	assert.Equal(t, "trace-123", id)
	assert.Equal(t, "trace-123", c.Response.Headers.Get("X-Request-Id"))
}

func TestCORSPreflightShortCircuits(t *testing.T) {
	t.Parallel()

	cfg := portmux.DefaultConfig()
	cfg.AllowedOrigins = []string{"https://app.example.com"}
	cfg.AllowedMethods = []string{"GET", "POST"}

	handlerRan := false
	mw := middleware.CORS(cfg)
	c := httpContext("OPTIONS", "/api", map[string]string{"Origin": "https://app.example.com"})

	require.NoError(t, mw(c, func(c *portmux.HTTPContext) error {
		handlerRan = true
		return nil
	}))

	assert.False(t, handlerRan, "preflight must not reach the handler")
	require.NotNil(t, c.Response)
	assert.Equal(t, 204, c.Response.StatusCode)
	assert.Equal(t, "https://app.example.com", c.Response.Headers.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "GET, POST", c.Response.Headers.Get("Access-Control-Allow-Methods"))
}

func TestCORSDisallowedOrigin(t *testing.T) {
	t.Parallel()

	cfg := portmux.DefaultConfig()
	cfg.AllowedOrigins = []string{"https://app.example.com"}

	handlerRan := false
	mw := middleware.CORS(cfg)
	c := httpContext("GET", "/api", map[string]string{"Origin": "https://evil.example.com"})

	require.NoError(t, mw(c, func(c *portmux.HTTPContext) error {
		handlerRan = true
		return nil
	}))

	assert.False(t, handlerRan)
	require.NotNil(t, c.Response)
	assert.Equal(t, 403, c.Response.StatusCode)
}

func TestCORSSimpleRequestAppendsHeaders(t *testing.T) {
	t.Parallel()

	cfg := portmux.DefaultConfig()
	mw := middleware.CORS(cfg)
	c := httpContext("GET", "/api", map[string]string{"Origin": "https://app.example.com"})

	require.NoError(t, mw(c, passthrough))

	require.NotNil(t, c.Response)
	assert.Equal(t, 200, c.Response.StatusCode)
	assert.Equal(t, "*", c.Response.Headers.Get("Access-Control-Allow-Origin"))
}

func TestAccessLogPassesThrough(t *testing.T) {
	t.Parallel()

	mw := middleware.AccessLog(zap.NewNop())
	c := httpContext("GET", "/x", nil)

	require.NoError(t, mw(c, passthrough))
	assert.Equal(t, 200, c.Response.StatusCode)
}

func TestEventLogPassesThrough(t *testing.T) {
	t.Parallel()

	mw := middleware.EventLog(zap.NewNop())
	c := portmux.NewEventContext(1, "chat.message", map[string]any{"message": "hi"}, nil)

	called := false
	require.NoError(t, mw(c, func(c *portmux.EventContext) error {
		called = true
		return nil
	}))
	assert.True(t, called)
}
