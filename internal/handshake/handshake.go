// Package handshake classifies incoming byte streams as HTTP or WebSocket
// upgrade traffic and completes the RFC 6455 opening handshake.
package handshake

import (
	"bytes"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"github.com/luciancaetano/portmux"
	"github.com/luciancaetano/portmux/internal/httpwire"
)

// websocketGUID is the fixed GUID appended to the client key when
// computing Sec-WebSocket-Accept (RFC 6455 §4.2.2).
const websocketGUID = "258EAFA5-E914-47DA-95CA-C5AB0DC85B11"

const requiredVersion = "13"

// Kind is the classification of an incoming stream.
type Kind int

const (
	// KindIncomplete means the header block has not fully arrived yet.
	KindIncomplete Kind = iota
	// KindHTTP means the request follows the plain HTTP cycle.
	KindHTTP
	// KindWebSocket means the request asks for a WebSocket upgrade.
	KindWebSocket
)

// Classify inspects a parsed request (or the raw buffer when parsing has
// not completed) without consuming it. A request is a WebSocket upgrade
// iff it carries Upgrade: websocket, a Connection header containing the
// upgrade token, and a Sec-WebSocket-Key.
func Classify(buf []byte) Kind {
	if !bytes.Contains(buf, []byte("\r\n\r\n")) {
		return KindIncomplete
	}
	req, _, err := httpwire.ParseRequest(buf)
	if err != nil || req == nil {
		// Malformed streams take the HTTP path, which produces the
		// error response and closes.
		return KindHTTP
	}
	if IsUpgrade(req) {
		return KindWebSocket
	}
	return KindHTTP
}

// IsUpgrade reports whether a parsed request is a WebSocket upgrade
// request.
func IsUpgrade(req *portmux.Request) bool {
	return strings.EqualFold(req.Headers.Get("Upgrade"), "websocket") &&
		req.Headers.HasToken("Connection", "upgrade") &&
		req.Headers.Get("Sec-WebSocket-Key") != ""
}

// Rejection describes a refused handshake. The HTTP status is written to
// the socket and the connection is closed without reaching the open state.
type Rejection struct {
	Status  int
	Message string
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("handshake rejected (%d): %s", r.Status, r.Message)
}

// Negotiate validates an upgrade request against the config and returns
// the raw 101 Switching Protocols response bytes on success.
//
// Checks, in order: Sec-WebSocket-Version must be 13 (else 426); the
// Origin header must be in the allow-list when one is configured (else
// 403); the configured auth key, if any, must match the auth_key query
// parameter or the X-Auth-Key header (else 401).
func Negotiate(req *portmux.Request, cfg *portmux.Config) ([]byte, *Rejection) {
	if v := req.Headers.Get("Sec-WebSocket-Version"); v != requiredVersion {
		return nil, &Rejection{Status: http.StatusUpgradeRequired, Message: "unsupported websocket version"}
	}
	if !OriginAllowed(cfg.AllowedOrigins, req.Headers.Get("Origin")) {
		return nil, &Rejection{Status: http.StatusForbidden, Message: "origin not allowed"}
	}
	if cfg.AuthKey != "" {
		key := req.Query["auth_key"]
		if key == "" {
			key = req.Headers.Get("X-Auth-Key")
		}
		if key != cfg.AuthKey {
			return nil, &Rejection{Status: http.StatusUnauthorized, Message: "missing or invalid auth key"}
		}
	}

	accept := AcceptKey(req.Headers.Get("Sec-WebSocket-Key"))
	var b strings.Builder
	b.WriteString("HTTP/1.1 101 Switching Protocols\r\n")
	b.WriteString("Upgrade: websocket\r\n")
	b.WriteString("Connection: Upgrade\r\n")
	b.WriteString("Sec-WebSocket-Accept: " + accept + "\r\n\r\n")
	return []byte(b.String()), nil
}

// AcceptKey computes base64(SHA-1(clientKey + GUID)).
func AcceptKey(clientKey string) string {
	h := sha1.New()
	h.Write([]byte(clientKey + websocketGUID))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// OriginAllowed applies the allow-list: an empty list or a "*" entry
// allows every origin, including requests with no Origin header at all.
func OriginAllowed(allowed []string, origin string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, entry := range allowed {
		if entry == "*" {
			return true
		}
		if strings.EqualFold(entry, origin) {
			return true
		}
	}
	// Non-browser clients send no Origin header; only an explicit
	// allow-list rejects them.
	return origin == ""
}
