// Package router holds the HTTP route table and the WebSocket event table
// and dispatches decoded requests/events through their middleware chains.
package router

import (
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/luciancaetano/portmux"
)

// segment is one compiled piece of a path pattern. A param segment
// matches any single non-slash path segment and captures it.
type segment struct {
	literal string
	param   string
}

type httpRoute struct {
	method   string
	pattern  string
	segments []segment
	handler  portmux.HTTPHandler
	mws      []portmux.HTTPMiddleware
	exclude  map[string]struct{}
}

type eventRoute struct {
	name    string
	handler portmux.EventHandler
	mws     []portmux.EventMiddleware
	exclude map[string]struct{}
}

// Router is safe for concurrent registration and dispatch, though routes
// are normally registered before the server starts accepting.
type Router struct {
	mu sync.RWMutex

	// HTTP routes bucketed by method, in registration order. The first
	// structurally matching route wins.
	httpRoutes map[string][]*httpRoute
	events     map[string]*eventRoute

	globalHTTP []named[*portmux.HTTPContext]
	globalWS   []named[*portmux.EventContext]

	connect    []portmux.LifecycleHandler
	disconnect []portmux.LifecycleHandler

	log *zap.Logger
}

// New returns an empty router logging dispatch failures to log.
func New(log *zap.Logger) *Router {
	if log == nil {
		log = zap.NewNop()
	}
	return &Router{
		httpRoutes: make(map[string][]*httpRoute),
		events:     make(map[string]*eventRoute),
		log:        log,
	}
}

// RegisterRoute appends an HTTP route. Patterns mix literal segments with
// {name} placeholders; placeholder names within one pattern must be
// unique.
func (r *Router) RegisterRoute(method, pattern string, handler portmux.HTTPHandler, mws []portmux.HTTPMiddleware, exclude []string) error {
	segments, err := compilePattern(pattern)
	if err != nil {
		return err
	}
	if handler == nil {
		return fmt.Errorf("%w: nil handler for %s %s", portmux.ErrInvalidPattern, method, pattern)
	}
	method = strings.ToUpper(method)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.httpRoutes[method] = append(r.httpRoutes[method], &httpRoute{
		method:   method,
		pattern:  pattern,
		segments: segments,
		handler:  handler,
		mws:      mws,
		exclude:  toSet(exclude),
	})
	return nil
}

// RegisterEvent binds a handler to an exact event name. Registering the
// same name twice is an error; the catch-all name "*" is an ordinary
// registration.
func (r *Router) RegisterEvent(name string, handler portmux.EventHandler, mws []portmux.EventMiddleware, exclude []string) error {
	if name == "" || handler == nil {
		return fmt.Errorf("%w: empty event name or nil handler", portmux.ErrInvalidPattern)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.events[name]; ok {
		return fmt.Errorf("%w: %s", portmux.ErrDuplicateEvent, name)
	}
	r.events[name] = &eventRoute{
		name:    name,
		handler: handler,
		mws:     mws,
		exclude: toSet(exclude),
	}
	return nil
}

// RegisterConnect appends a connect handler; handlers run in registration
// order.
func (r *Router) RegisterConnect(h portmux.LifecycleHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connect = append(r.connect, h)
}

// RegisterDisconnect appends a disconnect handler.
func (r *Router) RegisterDisconnect(h portmux.LifecycleHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.disconnect = append(r.disconnect, h)
}

// UseHTTP appends a named global HTTP middleware.
func (r *Router) UseHTTP(name string, mw portmux.HTTPMiddleware) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.globalHTTP = append(r.globalHTTP, named[*portmux.HTTPContext]{name: name, fn: mw})
}

// UseWS appends a named global WebSocket middleware.
func (r *Router) UseWS(name string, mw portmux.EventMiddleware) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.globalWS = append(r.globalWS, named[*portmux.EventContext]{name: name, fn: mw})
}

// Match finds the first registered route for method whose pattern
// structurally matches path, returning the extracted path parameters.
func (r *Router) Match(method, path string) (pattern string, params map[string]string, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	route, params := r.matchLocked(strings.ToUpper(method), path)
	if route == nil {
		return "", nil, false
	}
	return route.pattern, params, true
}

func (r *Router) matchLocked(method, path string) (*httpRoute, map[string]string) {
	parts := splitPath(path)
	for _, route := range r.httpRoutes[method] {
		if len(route.segments) != len(parts) {
			continue
		}
		params := make(map[string]string)
		matched := true
		for i, seg := range route.segments {
			if seg.param != "" {
				params[seg.param] = parts[i]
			} else if seg.literal != parts[i] {
				matched = false
				break
			}
		}
		if matched {
			return route, params
		}
	}
	return nil, nil
}

func compilePattern(pattern string) ([]segment, error) {
	if pattern == "" || pattern[0] != '/' {
		return nil, fmt.Errorf("%w: %q must start with /", portmux.ErrInvalidPattern, pattern)
	}
	parts := splitPath(pattern)
	segments := make([]segment, len(parts))
	seen := make(map[string]struct{})
	for i, part := range parts {
		if strings.HasPrefix(part, "{") && strings.HasSuffix(part, "}") {
			name := part[1 : len(part)-1]
			if name == "" {
				return nil, fmt.Errorf("%w: empty placeholder in %q", portmux.ErrInvalidPattern, pattern)
			}
			if _, dup := seen[name]; dup {
				return nil, fmt.Errorf("%w: duplicate placeholder %q in %q", portmux.ErrInvalidPattern, name, pattern)
			}
			seen[name] = struct{}{}
			segments[i] = segment{param: name}
			continue
		}
		if strings.ContainsAny(part, "{}") {
			return nil, fmt.Errorf("%w: partial placeholder in %q", portmux.ErrInvalidPattern, pattern)
		}
		segments[i] = segment{literal: part}
	}
	return segments, nil
}

// splitPath splits on / ignoring the leading slash; "/" yields a single
// empty segment so the root pattern matches only the root path.
func splitPath(path string) []string {
	path = strings.TrimPrefix(path, "/")
	return strings.Split(path, "/")
}
