// Package chat interprets inbound protocol events: the Dispatcher classifies
// connections as admins or participants, mutates the registry, store, and
// rooms, and fans outbound events out to the right recipients.
package chat

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"storechat/internal/auth"
)

// Conn is the dispatcher's view of a transport connection. The transport
// layer owns the socket; the dispatcher holds only the identifier and a way
// to queue outbound events.
type Conn interface {
	ID() string
	Send(ev Event) bool
}

// Dispatcher owns all mutable chat state. Every method must be called from
// the hub goroutine; events are processed to completion one at a time, which
// is what serializes access to the registry, store, and room maps.
type Dispatcher struct {
	registry *Registry
	store    *Store
	rooms    *Rooms
	conns    map[string]Conn

	verifier    auth.Verifier
	requireAuth bool
	log         *zap.Logger
	now         func() time.Time

	lastChatID int64
}

// NewDispatcher builds a dispatcher with empty state. The verifier is the
// external auth collaborator; with requireAuth unset it is consulted but a
// failure on user_connected only downgrades the participant (see handlers).
func NewDispatcher(verifier auth.Verifier, requireAuth bool, log *zap.Logger) *Dispatcher {
	return &Dispatcher{
		registry:    NewRegistry(),
		store:       NewStore(),
		rooms:       NewRooms(),
		conns:       make(map[string]Conn),
		verifier:    verifier,
		requireAuth: requireAuth,
		log:         log,
		now:         time.Now,
	}
}

// AddConn registers a transport connection with the dispatcher. The
// connection starts unidentified; the first protocol event classifies it.
func (d *Dispatcher) AddConn(c Conn) {
	d.conns[c.ID()] = c
}

// Disconnect removes every trace of the connection from live state and
// returns the ids of the conversations it owned, so the caller can schedule
// their grace-period expiry. Admin removal is synchronous: once Disconnect
// returns, no later broadcast can reach the connection.
func (d *Dispatcher) Disconnect(c Conn) []string {
	connID := c.ID()
	d.registry.Unmark(connID)
	d.rooms.LeaveAll(connID)
	delete(d.conns, connID)
	return d.store.OwnedBy(connID)
}

// Expire implements the sweeper's re-check-before-delete contract: the
// conversation is removed only if it still exists and is still owned by the
// connection that disconnected. A reconnection that reclaimed the id changed
// the owner, so the stale timer finds the check failing and does nothing.
func (d *Dispatcher) Expire(chatID, connID string) {
	conv := d.store.Get(chatID)
	if conv == nil || conv.OwnerConn != connID {
		return
	}
	d.store.Remove(chatID)
	d.log.Info("conversation expired", zap.String("chatId", chatID))
	d.notifyAdmins(AdminNotification{
		Type:      NotifyChatExpired,
		ChatID:    chatID,
		Timestamp: isoTimestamp(d.now()),
	})
}

// HandleEvent routes one inbound event to its handler. Failures are isolated
// per event: malformed payloads are logged and dropped (or acked with an
// error, for send_message), and a panicking handler never takes down the loop.
func (d *Dispatcher) HandleEvent(c Conn, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("recovered from panic in event handler",
				zap.String("event", ev.Name), zap.String("conn", c.ID()), zap.Any("panic", r))
		}
	}()

	switch ev.Name {
	case EventAdminLogin:
		d.handleAdminLogin(c, ev)
	case EventUserConnected:
		d.handleUserConnected(c, ev)
	case EventGuestConnected:
		d.handleGuestConnected(c, ev)
	case EventSendMessage:
		d.handleSendMessage(c, ev)
	case EventJoinChat:
		d.handleJoinChat(c, ev)
	default:
		d.log.Debug("dropping unknown event", zap.String("event", ev.Name), zap.String("conn", c.ID()))
	}
}

// handleAdminLogin marks the caller as an admin and replays current state to
// it: one synthetic connected notification per conversation, followed by each
// stored message, so a freshly opened dashboard sees everything in flight.
func (d *Dispatcher) handleAdminLogin(c Conn, ev Event) {
	var payload AdminLoginPayload
	if err := json.Unmarshal(ev.Data, &payload); err != nil {
		d.log.Warn("malformed admin_login payload", zap.String("conn", c.ID()), zap.Error(err))
		return
	}

	// Participants cannot escalate: a connection that already owns a
	// conversation stays a participant.
	if len(d.store.OwnedBy(c.ID())) > 0 {
		d.log.Warn("ignoring admin_login from participant connection", zap.String("conn", c.ID()))
		return
	}

	if d.requireAuth {
		if _, err := d.verifier.Verify(payload.Token); err != nil {
			d.log.Warn("rejected admin_login", zap.String("conn", c.ID()), zap.Error(err))
			return
		}
	}

	d.registry.MarkAdmin(c.ID())
	d.log.Info("admin connected", zap.String("conn", c.ID()))

	conversations := d.store.All()
	sort.Slice(conversations, func(i, j int) bool {
		if conversations[i].CreatedAt.Equal(conversations[j].CreatedAt) {
			return conversations[i].ID < conversations[j].ID
		}
		return conversations[i].CreatedAt.Before(conversations[j].CreatedAt)
	})

	for _, conv := range conversations {
		connectedType := NotifyUserConnected
		if conv.Kind == KindGuest {
			connectedType = NotifyGuestConnected
		}
		d.send(c, AdminNotification{
			Type:      connectedType,
			ChatID:    conv.ID,
			Timestamp: isoTimestamp(conv.CreatedAt),
		}, EventAdminNotification)

		for _, msg := range conv.Messages {
			d.send(c, AdminNotification{
				Type:      NotifyNewMessage,
				ChatID:    conv.ID,
				Sender:    msg.Sender,
				Message:   msg.Message,
				Timestamp: msg.Timestamp,
			}, EventAdminNotification)
		}
	}
}

// handleUserConnected opens a fresh conversation for an authenticated
// visitor. When auth enforcement is on and the token fails verification the
// visitor is not locked out of support chat; the conversation is simply
// created as a guest one.
func (d *Dispatcher) handleUserConnected(c Conn, ev Event) {
	var payload UserConnectedPayload
	if err := json.Unmarshal(ev.Data, &payload); err != nil {
		d.log.Warn("malformed user_connected payload", zap.String("conn", c.ID()), zap.Error(err))
		return
	}

	kind := KindUser
	if d.requireAuth {
		if _, err := d.verifier.Verify(payload.Token); err != nil {
			d.log.Warn("downgrading unverified user to guest", zap.String("conn", c.ID()), zap.Error(err))
			kind = KindGuest
		}
	}

	chatID := d.newChatID(kind)
	conv, _ := d.store.GetOrCreate(chatID, kind, c.ID(), d.now())
	d.rooms.Join(c.ID(), chatID)
	d.log.Info("participant connected", zap.String("chatId", chatID), zap.String("kind", string(kind)))

	d.send(c, ChatIDPayload{ChatID: chatID}, EventChatID)
	d.send(c, ChatHistoryPayload{Messages: historyOf(conv)}, EventChatHistory)

	connectedType := NotifyUserConnected
	if kind == KindGuest {
		connectedType = NotifyGuestConnected
	}
	d.notifyAdmins(AdminNotification{
		Type:      connectedType,
		ChatID:    chatID,
		Timestamp: isoTimestamp(d.now()),
	})
}

// handleGuestConnected opens a conversation for an anonymous visitor, or
// resumes the existing one when the supplied session id matches. Resuming
// must not re-notify admins; they already know about the conversation.
func (d *Dispatcher) handleGuestConnected(c Conn, ev Event) {
	var payload GuestConnectedPayload
	if err := json.Unmarshal(ev.Data, &payload); err != nil {
		d.log.Warn("malformed guest_connected payload", zap.String("conn", c.ID()), zap.Error(err))
		return
	}

	chatID := payload.SessionID
	if chatID == "" {
		chatID = d.newChatID(KindGuest)
	}

	conv, created := d.store.GetOrCreate(chatID, KindGuest, c.ID(), d.now())
	d.rooms.Join(c.ID(), chatID)
	d.log.Info("guest connected", zap.String("chatId", chatID), zap.Bool("new", created))

	d.send(c, ChatIDPayload{ChatID: chatID}, EventChatID)
	d.send(c, ChatHistoryPayload{Messages: historyOf(conv)}, EventChatHistory)

	if created {
		d.notifyAdmins(AdminNotification{
			Type:      NotifyGuestConnected,
			ChatID:    chatID,
			Timestamp: isoTimestamp(d.now()),
		})
	}
}

// handleSendMessage validates, appends, and fans out one chat line. Appending
// to an unknown conversation is tolerated silently (the room broadcast still
// goes out to whoever is joined), but missing fields produce an error ack and
// mutate nothing.
func (d *Dispatcher) handleSendMessage(c Conn, ev Event) {
	var msg Message
	if err := json.Unmarshal(ev.Data, &msg); err != nil {
		d.log.Warn("malformed send_message payload", zap.String("conn", c.ID()), zap.Error(err))
		d.ack(c, ev, AckPayload{Error: "malformed payload"})
		return
	}

	if msg.ChatID == "" {
		d.ack(c, ev, AckPayload{Error: ErrMissingChatID.Error()})
		return
	}
	if strings.TrimSpace(msg.Message) == "" {
		d.ack(c, ev, AckPayload{Error: ErrEmptyMessage.Error()})
		return
	}
	if msg.Timestamp == "" {
		msg.Timestamp = isoTimestamp(d.now())
	}

	d.store.Append(msg.ChatID, msg)
	d.emitToRoom(msg.ChatID, c.ID(), msg, EventReceiveMessage)

	if msg.Sender != "Admin" {
		d.notifyAdmins(AdminNotification{
			Type:      NotifyNewMessage,
			ChatID:    msg.ChatID,
			Sender:    msg.Sender,
			Message:   msg.Message,
			Timestamp: msg.Timestamp,
		})
	}

	d.ack(c, ev, AckPayload{Success: true})
}

// handleJoinChat subscribes the caller (typically an admin opening a thread)
// to a conversation's room and replays the stored log. Joining an unknown
// conversation id still joins the room but replays nothing; the id may be
// racing its own expiry.
func (d *Dispatcher) handleJoinChat(c Conn, ev Event) {
	var payload JoinChatPayload
	if err := json.Unmarshal(ev.Data, &payload); err != nil {
		d.log.Warn("malformed join_chat payload", zap.String("conn", c.ID()), zap.Error(err))
		return
	}
	if payload.ChatID == "" {
		d.log.Warn("join_chat without chat id", zap.String("conn", c.ID()))
		return
	}

	d.rooms.Join(c.ID(), payload.ChatID)

	if conv := d.store.Get(payload.ChatID); conv != nil {
		d.send(c, ChatHistoryPayload{Messages: historyOf(conv)}, EventChatHistory)
	}
}

// newChatID derives a conversation id from the participant kind and the
// current time in milliseconds, with a monotonic guard so two connects within
// the same millisecond cannot collide.
func (d *Dispatcher) newChatID(kind Kind) string {
	millis := d.now().UnixMilli()
	if millis <= d.lastChatID {
		millis = d.lastChatID + 1
	}
	d.lastChatID = millis
	return fmt.Sprintf("%s_%d", kind, millis)
}

// send marshals the payload into an envelope and queues it on the connection.
func (d *Dispatcher) send(c Conn, payload any, eventName string) {
	ev, err := NewEvent(eventName, payload)
	if err != nil {
		d.log.Error("failed to encode outbound event", zap.String("event", eventName), zap.Error(err))
		return
	}
	if !c.Send(ev) {
		d.log.Warn("dropping outbound event for slow connection",
			zap.String("event", eventName), zap.String("conn", c.ID()))
	}
}

// ack answers a request event when the client asked for an acknowledgement.
func (d *Dispatcher) ack(c Conn, req Event, payload AckPayload) {
	if req.Ack == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		d.log.Error("failed to encode ack", zap.Error(err))
		return
	}
	if !c.Send(Event{Name: EventAck, Ack: req.Ack, Data: data}) {
		d.log.Warn("dropping ack for slow connection", zap.String("conn", c.ID()))
	}
}

// emitToRoom delivers the payload to every room member except the sender, so
// a sender never receives an echo of its own message.
func (d *Dispatcher) emitToRoom(roomID, senderConnID string, payload any, eventName string) {
	members := d.rooms.Members(roomID)
	if len(members) == 0 {
		return
	}
	ev, err := NewEvent(eventName, payload)
	if err != nil {
		d.log.Error("failed to encode room event", zap.String("event", eventName), zap.Error(err))
		return
	}
	for _, connID := range members {
		if connID == senderConnID {
			continue
		}
		if c, ok := d.conns[connID]; ok {
			if !c.Send(ev) {
				d.log.Warn("dropping room event for slow connection",
					zap.String("event", eventName), zap.String("conn", connID))
			}
		}
	}
}

// notifyAdmins pushes a notification to every connected admin.
func (d *Dispatcher) notifyAdmins(n AdminNotification) {
	admins := d.registry.Admins()
	if len(admins) == 0 {
		return
	}
	ev, err := NewEvent(EventAdminNotification, n)
	if err != nil {
		d.log.Error("failed to encode admin notification", zap.Error(err))
		return
	}
	for _, connID := range admins {
		if c, ok := d.conns[connID]; ok {
			if !c.Send(ev) {
				d.log.Warn("dropping admin notification for slow connection", zap.String("conn", connID))
			}
		}
	}
}

// historyOf returns the conversation's message log, never nil, so the history
// payload always serializes as a JSON array.
func historyOf(conv *Conversation) []Message {
	if conv == nil || len(conv.Messages) == 0 {
		return []Message{}
	}
	return conv.Messages
}
