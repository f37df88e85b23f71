// Package chat keeps the conversation table: the single source of truth for
// which conversations exist and what has been said in them.
package chat

import "time"

// Kind distinguishes the participant side of a conversation.
type Kind string

// Participant kinds.
const (
	KindUser  Kind = "user"
	KindGuest Kind = "guest"
)

// Conversation is one chat thread between a participant and the admin pool.
// At most one connection owns a conversation at a time; admins subscribe to
// rooms but never own. The message log is append-only and ordered.
type Conversation struct {
	ID        string
	Kind      Kind
	OwnerConn string
	CreatedAt time.Time
	Messages  []Message
}

// Store maps conversation ids to conversation state. Like the registry, it is
// owned by the hub goroutine and never accessed concurrently.
type Store struct {
	conversations map[string]*Conversation
}

// NewStore returns an empty conversation store.
func NewStore() *Store {
	return &Store{conversations: make(map[string]*Conversation)}
}

// GetOrCreate returns the conversation for id, creating it when absent. On
// reuse (a reconnecting participant supplying a previously issued id) the
// owning connection is updated to the caller and the message log is kept.
// The second result reports whether the conversation was newly created.
func (s *Store) GetOrCreate(id string, kind Kind, connID string, now time.Time) (*Conversation, bool) {
	if conv, ok := s.conversations[id]; ok {
		conv.OwnerConn = connID
		return conv, false
	}
	conv := &Conversation{
		ID:        id,
		Kind:      kind,
		OwnerConn: connID,
		CreatedAt: now,
	}
	s.conversations[id] = conv
	return conv, true
}

// Append adds a message to the conversation's log. Appending to an unknown id
// is a silent no-op: client and server lifecycles race, and a message for a
// just-expired conversation is dropped rather than surfaced as an error.
func (s *Store) Append(id string, msg Message) {
	conv, ok := s.conversations[id]
	if !ok {
		return
	}
	conv.Messages = append(conv.Messages, msg)
}

// Get returns the conversation for id, or nil when absent.
func (s *Store) Get(id string) *Conversation {
	return s.conversations[id]
}

// Remove deletes the conversation and its message log permanently. Absent ids
// are ignored.
func (s *Store) Remove(id string) {
	delete(s.conversations, id)
}

// OwnedBy returns the ids of every conversation currently owned by connID.
func (s *Store) OwnedBy(connID string) []string {
	var ids []string
	for id, conv := range s.conversations {
		if conv.OwnerConn == connID {
			ids = append(ids, id)
		}
	}
	return ids
}

// All returns every stored conversation. Used by the dispatcher to replay
// state to a freshly connected admin.
func (s *Store) All() []*Conversation {
	out := make([]*Conversation, 0, len(s.conversations))
	for _, conv := range s.conversations {
		out = append(out, conv)
	}
	return out
}

// Len returns the number of stored conversations.
func (s *Store) Len() int {
	return len(s.conversations)
}
