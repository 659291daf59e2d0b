package e2e_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/luciancaetano/portmux"
	"github.com/luciancaetano/portmux/engine"
)

// envelope mirrors the Text frame wire format.
type envelope struct {
	Event string         `json:"event"`
	Data  map[string]any `json:"data"`
}

func timeoutDeadline() time.Time {
	return time.Now().Add(5 * time.Second)
}

// Helper function to create a WebSocket dialer
func newDialer() *websocket.Dialer {
	return &websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
	}
}

// startServer boots an engine on a fixed test port and registers cleanup.
// Each test uses its own port so tests can run in parallel.
func startServer(t *testing.T, port int, configure func(srv portmux.Server)) (portmux.Server, string) {
	t.Helper()

	cfg := portmux.DefaultConfig()
	cfg.Host = "127.0.0.1"
	cfg.Port = port

	srv := engine.New(cfg)
	if configure != nil {
		configure(srv)
	}
	if err := srv.Start(context.Background()); err != nil {
		t.Fatalf("failed to start server: %v", err)
	}
	t.Cleanup(func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Stop(stopCtx)
	})
	return srv, fmt.Sprintf("127.0.0.1:%d", port)
}

func dialWS(t *testing.T, addr string) *websocket.Conn {
	t.Helper()

	conn, _, err := newDialer().Dial("ws://"+addr+"/ws", nil)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sendEvent(t *testing.T, conn *websocket.Conn, event string, data map[string]any) {
	t.Helper()

	payload, err := json.Marshal(envelope{Event: event, Data: data})
	if err != nil {
		t.Fatalf("failed to marshal envelope: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		t.Fatalf("failed to send: %v", err)
	}
}

func readEvent(t *testing.T, conn *websocket.Conn) envelope {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("failed to read: %v", err)
	}
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		t.Fatalf("failed to decode envelope %q: %v", payload, err)
	}
	return env
}
