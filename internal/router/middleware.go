package router

// named pairs a middleware with the name routes use to exclude it from
// the global chain.
type named[C any] struct {
	name string
	fn   func(c C, next func(c C) error) error
}

// compose builds the effective chain for a route: the global middlewares
// minus the route's exclusions, then the route's own middlewares, with the
// handler innermost. The same algorithm serves the HTTP and WebSocket
// pipelines; only the context type differs. M admits the public named
// middleware types (portmux.HTTPMiddleware, portmux.EventMiddleware)
// without conversion at the call sites.
func compose[C any, M ~func(c C, next func(c C) error) error](globals []named[C], exclude map[string]struct{}, routeMws []M, terminal func(c C) error) func(c C) error {
	chain := terminal
	for i := len(routeMws) - 1; i >= 0; i-- {
		chain = wrap(routeMws[i], chain)
	}
	for i := len(globals) - 1; i >= 0; i-- {
		if _, skip := exclude[globals[i].name]; skip {
			continue
		}
		chain = wrap(globals[i].fn, chain)
	}
	return chain
}

func wrap[C any](mw func(c C, next func(c C) error) error, next func(c C) error) func(c C) error {
	return func(c C) error {
		return mw(c, next)
	}
}

func toSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, name := range names {
		set[name] = struct{}{}
	}
	return set
}
