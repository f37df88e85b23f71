// Package chat tracks which connections belong to admin operators so the
// dispatcher can fan notifications out to all of them.
package chat

import "github.com/samber/lo"

// Registry is the set of connections currently identified as admins. It is
// owned by the hub goroutine; all reads and writes happen there, so no lock
// is needed (hub serialization is the concurrency model for all chat state).
type Registry struct {
	admins map[string]struct{}
}

// NewRegistry returns an empty admin registry.
func NewRegistry() *Registry {
	return &Registry{admins: make(map[string]struct{})}
}

// MarkAdmin records the connection as an admin. Marking twice is a no-op.
func (r *Registry) MarkAdmin(connID string) {
	r.admins[connID] = struct{}{}
}

// Unmark removes the connection from the admin set. Absent ids are ignored.
func (r *Registry) Unmark(connID string) {
	delete(r.admins, connID)
}

// IsAdmin reports whether the connection has been marked as an admin.
func (r *Registry) IsAdmin(connID string) bool {
	_, ok := r.admins[connID]
	return ok
}

// Admins returns a snapshot of the current admin connection ids. Disconnects
// are processed synchronously on the hub loop before any later broadcast, so
// the snapshot never contains a connection whose disconnect was handled.
func (r *Registry) Admins() []string {
	return lo.Keys(r.admins)
}

// Len returns the number of admin connections.
func (r *Registry) Len() int {
	return len(r.admins)
}
