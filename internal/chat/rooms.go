// Package chat maps conversation ids to broadcast groups so that emitting to
// a room reaches exactly the connections currently joined to it.
package chat

import "github.com/samber/lo"

// Rooms tracks which connections are joined to which conversation rooms. A
// connection may join any number of rooms: the owning participant joins its
// own, and admins join ad hoc as they open conversations in the dashboard.
// Owned by the hub goroutine.
type Rooms struct {
	members map[string]map[string]struct{} // room id -> conn id set
	joined  map[string]map[string]struct{} // conn id -> room id set
}

// NewRooms returns an empty room table.
func NewRooms() *Rooms {
	return &Rooms{
		members: make(map[string]map[string]struct{}),
		joined:  make(map[string]map[string]struct{}),
	}
}

// Join subscribes the connection to the room. Joining twice is a no-op.
func (r *Rooms) Join(connID, roomID string) {
	if r.members[roomID] == nil {
		r.members[roomID] = make(map[string]struct{})
	}
	r.members[roomID][connID] = struct{}{}

	if r.joined[connID] == nil {
		r.joined[connID] = make(map[string]struct{})
	}
	r.joined[connID][roomID] = struct{}{}
}

// Leave removes the connection from the room. Absent memberships are ignored.
func (r *Rooms) Leave(connID, roomID string) {
	if set := r.members[roomID]; set != nil {
		delete(set, connID)
		if len(set) == 0 {
			delete(r.members, roomID)
		}
	}
	if set := r.joined[connID]; set != nil {
		delete(set, roomID)
		if len(set) == 0 {
			delete(r.joined, connID)
		}
	}
}

// LeaveAll removes the connection from every room it joined. Called on
// disconnect.
func (r *Rooms) LeaveAll(connID string) {
	for roomID := range r.joined[connID] {
		if set := r.members[roomID]; set != nil {
			delete(set, connID)
			if len(set) == 0 {
				delete(r.members, roomID)
			}
		}
	}
	delete(r.joined, connID)
}

// Members returns a snapshot of the connection ids joined to the room.
func (r *Rooms) Members(roomID string) []string {
	return lo.Keys(r.members[roomID])
}

// InRoom reports whether the connection is joined to the room.
func (r *Rooms) InRoom(connID, roomID string) bool {
	_, ok := r.members[roomID][connID]
	return ok
}
