package chat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStore_GetOrCreate_NewConversation(t *testing.T) {
	req := require.New(t)
	s := NewStore()
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	conv, created := s.GetOrCreate("guest_42", KindGuest, "conn-1", now)

	req.True(created)
	req.Equal("guest_42", conv.ID)
	req.Equal(KindGuest, conv.Kind)
	req.Equal("conn-1", conv.OwnerConn)
	req.Equal(now, conv.CreatedAt)
	req.Empty(conv.Messages)
	req.Equal(1, s.Len())
}

func TestStore_GetOrCreate_ReuseKeepsLogAndTransfersOwnership(t *testing.T) {
	req := require.New(t)
	s := NewStore()
	created := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	s.GetOrCreate("guest_42", KindGuest, "conn-1", created)
	s.Append("guest_42", Message{ChatID: "guest_42", Message: "Hello", Sender: "Guest"})

	conv, isNew := s.GetOrCreate("guest_42", KindGuest, "conn-2", created.Add(time.Minute))

	req.False(isNew)
	req.Equal("conn-2", conv.OwnerConn)
	req.Equal(created, conv.CreatedAt)
	req.Len(conv.Messages, 1)
	req.Equal(1, s.Len())
}

func TestStore_AppendUnknownConversationIsNoOp(t *testing.T) {
	s := NewStore()
	s.Append("guest_gone", Message{ChatID: "guest_gone", Message: "Hello"})
	require.Zero(t, s.Len())
}

func TestStore_AppendPreservesOrder(t *testing.T) {
	req := require.New(t)
	s := NewStore()
	s.GetOrCreate("guest_42", KindGuest, "conn-1", time.Now())

	for _, body := range []string{"a", "b", "c"} {
		s.Append("guest_42", Message{ChatID: "guest_42", Message: body})
	}

	conv := s.Get("guest_42")
	req.Equal("a", conv.Messages[0].Message)
	req.Equal("b", conv.Messages[1].Message)
	req.Equal("c", conv.Messages[2].Message)
}

func TestStore_RemoveDeletesPermanently(t *testing.T) {
	req := require.New(t)
	s := NewStore()
	s.GetOrCreate("guest_42", KindGuest, "conn-1", time.Now())

	s.Remove("guest_42")

	req.Nil(s.Get("guest_42"))
	req.Zero(s.Len())
	// Removing again is harmless.
	s.Remove("guest_42")
}

func TestStore_OwnedBy(t *testing.T) {
	req := require.New(t)
	s := NewStore()
	now := time.Now()
	s.GetOrCreate("guest_1", KindGuest, "conn-1", now)
	s.GetOrCreate("guest_2", KindGuest, "conn-2", now)
	s.GetOrCreate("guest_3", KindGuest, "conn-1", now)

	owned := s.OwnedBy("conn-1")
	req.ElementsMatch([]string{"guest_1", "guest_3"}, owned)
	req.Empty(s.OwnedBy("conn-9"))
}
