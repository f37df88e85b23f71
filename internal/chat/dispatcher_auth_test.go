package chat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"storechat/internal/auth"
)

const testSecret = "test-secret-for-dispatcher-auth"

func newAuthDispatcher(t *testing.T) *Dispatcher {
	t.Helper()
	return NewDispatcher(auth.NewJWTVerifier(testSecret), true, zap.NewNop())
}

func validToken(t *testing.T, userID string, roles ...string) string {
	t.Helper()
	token, err := auth.GenerateToken(testSecret, userID, roles, time.Hour)
	require.NoError(t, err)
	return token
}

func TestAdminLogin_RequireAuth_AcceptsValidToken(t *testing.T) {
	req := require.New(t)
	d := newAuthDispatcher(t)
	admin := &fakeConn{id: "admin-conn"}
	d.AddConn(admin)

	d.HandleEvent(admin, inbound(t, EventAdminLogin, AdminLoginPayload{
		Token: validToken(t, "operator-1", "admin"),
	}))

	req.True(d.registry.IsAdmin("admin-conn"))
}

func TestAdminLogin_RequireAuth_RejectsBadToken(t *testing.T) {
	req := require.New(t)
	d := newAuthDispatcher(t)
	admin := &fakeConn{id: "admin-conn"}
	d.AddConn(admin)

	d.HandleEvent(admin, inbound(t, EventAdminLogin, AdminLoginPayload{Token: "garbage"}))

	req.False(d.registry.IsAdmin("admin-conn"))
	// A rejected login replays nothing.
	req.Empty(admin.events)
}

func TestUserConnected_RequireAuth_DowngradesToGuest(t *testing.T) {
	req := require.New(t)
	d := newAuthDispatcher(t)
	user := &fakeConn{id: "user-conn"}
	d.AddConn(user)

	d.HandleEvent(user, inbound(t, EventUserConnected, UserConnectedPayload{Token: "garbage"}))

	// The visitor still gets a conversation, just an anonymous one.
	chatIDs := user.eventsNamed(EventChatID)
	req.Len(chatIDs, 1)
	var payload ChatIDPayload
	decodeData(t, chatIDs[0], &payload)
	req.Contains(payload.ChatID, "guest_")

	conv := d.store.Get(payload.ChatID)
	req.NotNil(conv)
	req.Equal(KindGuest, conv.Kind)
}

func TestUserConnected_RequireAuth_KeepsUserKindForValidToken(t *testing.T) {
	req := require.New(t)
	d := newAuthDispatcher(t)
	user := &fakeConn{id: "user-conn"}
	d.AddConn(user)

	d.HandleEvent(user, inbound(t, EventUserConnected, UserConnectedPayload{
		Token: validToken(t, "customer-7"),
	}))

	chatIDs := user.eventsNamed(EventChatID)
	req.Len(chatIDs, 1)
	var payload ChatIDPayload
	decodeData(t, chatIDs[0], &payload)
	req.Contains(payload.ChatID, "user_")

	conv := d.store.Get(payload.ChatID)
	req.NotNil(conv)
	req.Equal(KindUser, conv.Kind)
}
