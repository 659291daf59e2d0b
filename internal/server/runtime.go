package server

import "go.uber.org/zap"

// Runtime API exposed to handlers. Every method tolerates stale client
// ids: targeting a client that already disconnected is a no-op, never a
// crash.

func (s *Server) lookup(clientID int64) (*conn, bool) {
	value, ok := s.clients.Load(clientID)
	if !ok {
		return nil, false
	}
	return value.(*conn), true
}

// Emit sends an envelope to one client. Unknown or non-open clients are
// skipped silently.
func (s *Server) Emit(clientID int64, event string, data map[string]any) error {
	c, ok := s.lookup(clientID)
	if !ok || !c.isOpen() {
		return nil
	}
	if err := c.sendEnvelope(event, data); err != nil {
		s.log.Debug("emit failed",
			zap.Int64("client_id", clientID),
			zap.String("event", event),
			zap.Error(err))
	}
	return nil
}

// Broadcast sends an envelope to every open WebSocket client.
func (s *Server) Broadcast(event string, data map[string]any) {
	s.clients.Range(func(_, value any) bool {
		c := value.(*conn)
		if c.isOpen() {
			// Per-client failures are isolated; the loop continues.
			c.sendEnvelope(event, data)
		}
		return true
	})
}

// BroadcastNamespace sends an envelope to every client in a namespace.
func (s *Server) BroadcastNamespace(namespace, event string, data map[string]any) {
	s.emitTo(s.registry.ClientsIn(namespace, ""), event, data)
}

// BroadcastRoom sends an envelope to every client in one room.
func (s *Server) BroadcastRoom(namespace, room, event string, data map[string]any) {
	s.emitTo(s.registry.ClientsIn(namespace, room), event, data)
}

// emitTo iterates an already-snapshotted id list; members disconnecting
// mid-broadcast degrade to no-op emits.
func (s *Server) emitTo(ids []int64, event string, data map[string]any) {
	for _, id := range ids {
		s.Emit(id, event, data)
	}
}

// JoinRoom adds a client to a room; empty namespace means the client's
// current one.
func (s *Server) JoinRoom(clientID int64, room, namespace string) error {
	return s.registry.JoinRoom(clientID, room, namespace)
}

// LeaveRoom removes a client from a room.
func (s *Server) LeaveRoom(clientID int64, room, namespace string) error {
	return s.registry.LeaveRoom(clientID, room, namespace)
}

// MoveToNamespace moves a client to a new namespace, clearing its old
// room memberships first.
func (s *Server) MoveToNamespace(clientID int64, namespace string) error {
	return s.registry.JoinNamespace(clientID, namespace)
}

// ClientData reads from a client's private key-value store.
func (s *Server) ClientData(clientID int64, key string) (any, bool) {
	c, ok := s.lookup(clientID)
	if !ok {
		return nil, false
	}
	return c.getData(key)
}

// SetClientData writes into a client's private key-value store; a nil
// value deletes the key. Unknown clients are ignored.
func (s *Server) SetClientData(clientID int64, key string, value any) {
	if c, ok := s.lookup(clientID); ok {
		c.setData(key, value)
	}
}

// IsConnected reports whether the id maps to a live connection.
func (s *Server) IsConnected(clientID int64) bool {
	_, ok := s.lookup(clientID)
	return ok
}

// ClientCount returns the number of live connections.
func (s *Server) ClientCount() int {
	return int(s.count.Load())
}
