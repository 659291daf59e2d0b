// Package cors evaluates CORS policy as a pure function over the engine
// config. It owns no state and performs no I/O; the middleware package
// applies its verdicts to responses.
package cors

import (
	"strconv"
	"strings"

	"github.com/luciancaetano/portmux"
)

// Verdict is the outcome of evaluating one request origin.
type Verdict struct {
	// Allowed reports whether the origin may access the resource.
	Allowed bool
	// Headers are the Access-Control-* headers to attach to the response.
	// Empty when the origin is not allowed.
	Headers map[string]string
}

// Evaluate applies cfg's CORS policy to a request origin. An empty origin
// (same-origin or non-browser request) is allowed with no CORS headers.
// preflight adds the Access-Control-Allow-Methods/Headers/Max-Age set used
// for OPTIONS requests.
func Evaluate(cfg *portmux.Config, origin string, preflight bool) Verdict {
	if origin == "" {
		return Verdict{Allowed: true}
	}

	allowedOrigin := ""
	for _, entry := range cfg.AllowedOrigins {
		if entry == "*" {
			allowedOrigin = "*"
			break
		}
		if strings.EqualFold(entry, origin) {
			allowedOrigin = origin
			break
		}
	}
	if allowedOrigin == "" && len(cfg.AllowedOrigins) == 0 {
		allowedOrigin = "*"
	}
	if allowedOrigin == "" {
		return Verdict{}
	}
	if cfg.AllowCredentials && allowedOrigin == "*" {
		// The wildcard is invalid with credentials; echo the origin.
		allowedOrigin = origin
	}

	headers := map[string]string{
		"Access-Control-Allow-Origin": allowedOrigin,
	}
	if cfg.AllowCredentials {
		headers["Access-Control-Allow-Credentials"] = "true"
	}
	if preflight {
		if len(cfg.AllowedMethods) > 0 {
			headers["Access-Control-Allow-Methods"] = strings.Join(cfg.AllowedMethods, ", ")
		}
		if len(cfg.AllowedHeaders) > 0 {
			headers["Access-Control-Allow-Headers"] = strings.Join(cfg.AllowedHeaders, ", ")
		}
		if cfg.MaxAge > 0 {
			headers["Access-Control-Max-Age"] = strconv.Itoa(cfg.MaxAge)
		}
	}
	return Verdict{Allowed: true, Headers: headers}
}
