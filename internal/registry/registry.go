// Package registry maintains the concurrent namespace -> room -> client
// membership index used for targeted broadcast.
//
// The top-level lock guards the namespace table and the per-client
// reverse index; each namespace carries its own lock for its room sets.
// Mutations take both in r.mu -> nsp.mu order, so room-member reads in
// unrelated namespaces do not serialize. Reads hand out snapshots;
// broadcast never iterates a live set.
package registry

import (
	"sync"

	"github.com/luciancaetano/portmux"
)

type namespace struct {
	mu    sync.RWMutex
	rooms map[string]map[int64]struct{}
}

type clientEntry struct {
	namespace string
	rooms     map[string]struct{}
}

// Registry is safe for concurrent use by every connection goroutine.
type Registry struct {
	mu         sync.RWMutex
	namespaces map[string]*namespace
	clients    map[int64]*clientEntry
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{
		namespaces: make(map[string]*namespace),
		clients:    make(map[int64]*clientEntry),
	}
}

// Add registers a client into the default namespace. Adding a known
// client is a no-op.
func (r *Registry) Add(clientID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.clients[clientID]; ok {
		return
	}
	r.clients[clientID] = &clientEntry{
		namespace: portmux.DefaultNamespace,
		rooms:     make(map[string]struct{}),
	}
	r.ensureNamespaceLocked(portmux.DefaultNamespace)
}

// Remove purges a client from its namespace and every room. Called
// exactly once during disconnect teardown, after disconnect handlers ran.
func (r *Registry) Remove(clientID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.clients[clientID]
	if !ok {
		return
	}
	r.leaveAllRoomsLocked(clientID, entry)
	delete(r.clients, clientID)
}

// JoinNamespace moves a client to a new namespace. The client first
// leaves every room of its old namespace; a client is a member of exactly
// one namespace at any time.
func (r *Registry) JoinNamespace(clientID int64, ns string) error {
	if ns == "" {
		ns = portmux.DefaultNamespace
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.clients[clientID]
	if !ok {
		return portmux.ErrClientNotFound
	}
	if entry.namespace == ns {
		return nil
	}
	r.leaveAllRoomsLocked(clientID, entry)
	entry.namespace = ns
	r.ensureNamespaceLocked(ns)
	return nil
}

// Namespace returns the client's current namespace.
func (r *Registry) Namespace(clientID int64) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.clients[clientID]
	if !ok {
		return "", false
	}
	return entry.namespace, true
}

// JoinRoom adds a client to a room inside a namespace. An empty ns means
// the client's current namespace; joining a room in any other namespace
// is rejected since rooms are scoped to the current namespace. Joining a
// room twice is a no-op.
func (r *Registry) JoinRoom(clientID int64, room, ns string) error {
	// r.mu stays held across the room-set mutation. Releasing it first
	// would let a concurrent Remove purge the client in the gap and the
	// late insert below would resurrect the dead id as a permanent
	// member. Lock order r.mu -> nsp.mu matches leaveAllRoomsLocked.
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.clients[clientID]
	if !ok {
		return portmux.ErrClientNotFound
	}
	if ns == "" {
		ns = entry.namespace
	}
	if ns != entry.namespace {
		return portmux.ErrClientNotFound
	}
	nsp := r.ensureNamespaceLocked(ns)
	entry.rooms[room] = struct{}{}

	nsp.mu.Lock()
	defer nsp.mu.Unlock()
	members, ok := nsp.rooms[room]
	if !ok {
		members = make(map[int64]struct{})
		nsp.rooms[room] = members
	}
	members[clientID] = struct{}{}
	return nil
}

// LeaveRoom removes a client from a room. Leaving a room the client is
// not in is a no-op.
func (r *Registry) LeaveRoom(clientID int64, room, ns string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.clients[clientID]
	if !ok {
		return portmux.ErrClientNotFound
	}
	if ns == "" {
		ns = entry.namespace
	}
	if ns != entry.namespace {
		return nil
	}
	delete(entry.rooms, room)
	nsp := r.namespaces[ns]
	if nsp == nil {
		return nil
	}

	nsp.mu.Lock()
	defer nsp.mu.Unlock()
	removeMember(nsp, room, clientID)
	return nil
}

// Rooms returns a snapshot of the rooms the client currently belongs to.
func (r *Registry) Rooms(clientID int64) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.clients[clientID]
	if !ok {
		return nil
	}
	rooms := make([]string, 0, len(entry.rooms))
	for room := range entry.rooms {
		rooms = append(rooms, room)
	}
	return rooms
}

// ClientsIn returns a snapshot of the client ids in a namespace, or in
// one room of it when room is non-empty. The returned slice is a copy and
// safe to iterate while memberships change.
func (r *Registry) ClientsIn(ns, room string) []int64 {
	if ns == "" {
		ns = portmux.DefaultNamespace
	}
	r.mu.RLock()
	nsp := r.namespaces[ns]
	var ids []int64
	if room == "" {
		for id, entry := range r.clients {
			if entry.namespace == ns {
				ids = append(ids, id)
			}
		}
	}
	r.mu.RUnlock()
	if nsp == nil || room == "" {
		return ids
	}

	nsp.mu.RLock()
	defer nsp.mu.RUnlock()
	members := nsp.rooms[room]
	ids = make([]int64, 0, len(members))
	for id := range members {
		ids = append(ids, id)
	}
	return ids
}

// ensureNamespaceLocked requires r.mu held for writing.
func (r *Registry) ensureNamespaceLocked(ns string) *namespace {
	nsp, ok := r.namespaces[ns]
	if !ok {
		nsp = &namespace{rooms: make(map[string]map[int64]struct{})}
		r.namespaces[ns] = nsp
	}
	return nsp
}

// leaveAllRoomsLocked requires r.mu held for writing.
func (r *Registry) leaveAllRoomsLocked(clientID int64, entry *clientEntry) {
	nsp := r.namespaces[entry.namespace]
	if nsp != nil {
		nsp.mu.Lock()
		for room := range entry.rooms {
			removeMember(nsp, room, clientID)
		}
		nsp.mu.Unlock()
	}
	entry.rooms = make(map[string]struct{})
}

// removeMember requires the namespace lock held for writing.
func removeMember(nsp *namespace, room string, clientID int64) {
	members, ok := nsp.rooms[room]
	if !ok {
		return
	}
	delete(members, clientID)
	if len(members) == 0 {
		delete(nsp.rooms, room)
	}
}
