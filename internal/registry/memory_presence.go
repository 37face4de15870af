package registry

import "sync"

type userKey struct {
	tenantID string
	userID   int64
}

// MemoryPresence is the in-memory Presence implementation. Socket callbacks
// run on OS threads, so read-modify-write sequences are mutex-guarded.
// Construct one per server; it is injected, never a package global.
type MemoryPresence struct {
	mu       sync.RWMutex
	byUser   map[userKey]string
	bySocket map[string]userKey
}

// NewMemoryPresence creates an empty presence registry.
func NewMemoryPresence() *MemoryPresence {
	return &MemoryPresence{
		byUser:   make(map[userKey]string),
		bySocket: make(map[string]userKey),
	}
}

func (p *MemoryPresence) OnConnect(tenantID string, userID int64, socketID string) {
	key := userKey{tenantID: tenantID, userID: userID}

	p.mu.Lock()
	defer p.mu.Unlock()

	// Reconnect: the newer socket supersedes the previous one.
	if old, ok := p.byUser[key]; ok && old != socketID {
		delete(p.bySocket, old)
	}
	// The socket may have been identified as another user before.
	if prev, ok := p.bySocket[socketID]; ok && prev != key {
		delete(p.byUser, prev)
	}

	p.byUser[key] = socketID
	p.bySocket[socketID] = key
}

func (p *MemoryPresence) OnDisconnect(socketID string) (string, int64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	key, ok := p.bySocket[socketID]
	if !ok {
		return "", 0, false
	}
	delete(p.bySocket, socketID)

	// Only drop the user mapping if it still points at this socket; a
	// reconnect may already have replaced it.
	if current, ok := p.byUser[key]; ok && current == socketID {
		delete(p.byUser, key)
	}
	return key.tenantID, key.userID, true
}

func (p *MemoryPresence) Lookup(tenantID string, userID int64) (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	socketID, ok := p.byUser[userKey{tenantID: tenantID, userID: userID}]
	return socketID, ok
}
