package registry

// Presence tracks which live socket belongs to which user, scoped per
// tenant. It is process-memory only: entries are created on connect,
// removed on disconnect, and lost on restart together with the sockets
// themselves.
type Presence interface {
	// OnConnect records userID -> socketID within a tenant. A newer socket
	// for the same user supersedes the previous one.
	OnConnect(tenantID string, userID int64, socketID string)

	// OnDisconnect removes whatever association the socket holds and
	// reports it. Unknown sockets are a no-op.
	OnDisconnect(socketID string) (tenantID string, userID int64, ok bool)

	// Lookup returns the live socket for a user, if any.
	Lookup(tenantID string, userID int64) (socketID string, ok bool)
}
