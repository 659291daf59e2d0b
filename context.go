package portmux

import (
	"encoding/json"
	"net/textproto"
	"net/url"
	"strings"
)

// Headers is a case-insensitive header map. Keys are stored in canonical
// MIME form; on duplicate header lines the last value wins.
type Headers map[string]string

// Get returns the value for a header name, matching case-insensitively.
func (h Headers) Get(name string) string {
	return h[textproto.CanonicalMIMEHeaderKey(name)]
}

// Set stores a header value under the canonical form of name.
func (h Headers) Set(name, value string) {
	h[textproto.CanonicalMIMEHeaderKey(name)] = value
}

// Has reports whether a header is present.
func (h Headers) Has(name string) bool {
	_, ok := h[textproto.CanonicalMIMEHeaderKey(name)]
	return ok
}

// HasToken reports whether the header's value contains token as one of its
// comma-separated elements, compared case-insensitively. Used for headers
// such as Connection: keep-alive, Upgrade.
func (h Headers) HasToken(name, token string) bool {
	for _, part := range strings.Split(h.Get(name), ",") {
		if strings.EqualFold(strings.TrimSpace(part), token) {
			return true
		}
	}
	return false
}

// Request is a parsed HTTP/1.1 request. It is immutable after parse except
// for PathParams, which the router fills in when a route matches.
type Request struct {
	Method     string
	Path       string
	Proto      string
	Headers    Headers
	Query      map[string]string
	PathParams map[string]string
	Body       []byte
}

// DecodeJSON unmarshals the request body into v. Intended for requests
// whose Content-Type is application/json.
func (r *Request) DecodeJSON(v any) error {
	return json.Unmarshal(r.Body, v)
}

// Form decodes an application/x-www-form-urlencoded body into a flat map.
// Duplicate keys keep the last occurrence.
func (r *Request) Form() (map[string]string, error) {
	values, err := url.ParseQuery(string(r.Body))
	if err != nil {
		return nil, err
	}
	form := make(map[string]string, len(values))
	for key, vals := range values {
		if len(vals) > 0 {
			form[key] = vals[len(vals)-1]
		}
	}
	return form, nil
}

// IsJSON reports whether the request declares a JSON body.
func (r *Request) IsJSON() bool {
	return strings.HasPrefix(strings.ToLower(r.Headers.Get("Content-Type")), "application/json")
}

// Response is the model handlers build for the HTTP path. It is consumed
// exactly once by the response writer and never mutated by the engine.
type Response struct {
	StatusCode int
	Headers    Headers
	Body       []byte
}

// NewResponse returns an empty response with the given status code.
func NewResponse(status int) *Response {
	return &Response{StatusCode: status, Headers: Headers{}}
}

// JSONResponse builds an application/json response from v.
func JSONResponse(status int, v any) *Response {
	body, err := json.Marshal(v)
	if err != nil {
		return ErrorResponse(500, "internal server error")
	}
	resp := NewResponse(status)
	resp.Headers.Set("Content-Type", "application/json")
	resp.Body = body
	return resp
}

// ErrorResponse builds the structured JSON error body used for every
// engine-generated HTTP error.
func ErrorResponse(status int, message string) *Response {
	resp := NewResponse(status)
	resp.Headers.Set("Content-Type", "application/json")
	resp.Body, _ = json.Marshal(map[string]string{"error": message})
	return resp
}

// HTTPContext carries one HTTP request through the middleware chain to its
// handler. The handler (or a short-circuiting middleware) must set Response.
type HTTPContext struct {
	ClientID int64
	Request  *Request
	Response *Response
	Runtime  Runtime

	values map[string]any
}

// NewHTTPContext builds a dispatch context for a parsed request.
func NewHTTPContext(clientID int64, req *Request, rt Runtime) *HTTPContext {
	return &HTTPContext{ClientID: clientID, Request: req, Runtime: rt}
}

// Set stores a request-scoped value, visible to later middlewares and the
// handler.
func (c *HTTPContext) Set(key string, value any) {
	if c.values == nil {
		c.values = make(map[string]any)
	}
	c.values[key] = value
}

// Get reads a request-scoped value.
func (c *HTTPContext) Get(key string) (any, bool) {
	v, ok := c.values[key]
	return v, ok
}

// EventContext carries one WebSocket event through the middleware chain to
// its handler.
type EventContext struct {
	ClientID int64
	Name     string
	Data     map[string]any
	Runtime  Runtime

	values map[string]any
}

// NewEventContext builds a dispatch context for a decoded event envelope.
func NewEventContext(clientID int64, name string, data map[string]any, rt Runtime) *EventContext {
	return &EventContext{ClientID: clientID, Name: name, Data: data, Runtime: rt}
}

// Set stores an event-scoped value.
func (c *EventContext) Set(key string, value any) {
	if c.values == nil {
		c.values = make(map[string]any)
	}
	c.values[key] = value
}

// Get reads an event-scoped value.
func (c *EventContext) Get(key string) (any, bool) {
	v, ok := c.values[key]
	return v, ok
}
