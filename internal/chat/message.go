// Package chat defines the JSON wire protocol shared by the relay and its
// clients: the event envelope, per-event payloads, and the Message type.
package chat

import (
	"encoding/json"
	"time"
)

// Inbound event names accepted by the dispatcher.
const (
	EventAdminLogin     = "admin_login"
	EventUserConnected  = "user_connected"
	EventGuestConnected = "guest_connected"
	EventSendMessage    = "send_message"
	EventJoinChat       = "join_chat"
)

// Outbound event names emitted by the dispatcher.
const (
	EventChatID            = "chat_id"
	EventChatHistory       = "chat_history"
	EventReceiveMessage    = "receive_message"
	EventAdminNotification = "admin_notification"
	EventAck               = "ack"
)

// Admin notification types.
const (
	NotifyUserConnected  = "user_connected"
	NotifyGuestConnected = "guest_connected"
	NotifyNewMessage     = "new_message"
	NotifyChatExpired    = "chat_expired"
)

// Event is the envelope for every frame exchanged over the socket. Data is
// decoded per event name; Ack carries the client's correlation id for
// request/response events and is echoed back on the acknowledgement.
type Event struct {
	Name string          `json:"event"`
	Ack  *int64          `json:"ack,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

// NewEvent builds an envelope with the payload marshaled into Data.
func NewEvent(name string, payload any) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{Name: name, Data: data}, nil
}

// Message represents one chat line. Messages are append-only within a
// conversation and keep their insertion order. Timestamp is ISO-8601,
// supplied by the client and defaulted by the server when absent.
type Message struct {
	ChatID    string `json:"chatId"`
	Message   string `json:"message"`
	Sender    string `json:"sender"`
	Timestamp string `json:"timestamp"`
}

// AdminLoginPayload identifies a connection as an admin operator.
type AdminLoginPayload struct {
	Token string `json:"token"`
}

// UserConnectedPayload opens a conversation for an authenticated visitor.
type UserConnectedPayload struct {
	Token string `json:"token"`
}

// GuestConnectedPayload opens (or resumes) a conversation for an anonymous
// visitor. A previously issued session id resumes the matching conversation.
type GuestConnectedPayload struct {
	SessionID string `json:"sessionId,omitempty"`
}

// JoinChatPayload subscribes the caller to a conversation's room.
type JoinChatPayload struct {
	ChatID string `json:"chatId"`
}

// ChatIDPayload tells a participant which conversation it was assigned.
type ChatIDPayload struct {
	ChatID string `json:"chatId"`
}

// ChatHistoryPayload replays a conversation's stored message log.
type ChatHistoryPayload struct {
	Messages []Message `json:"messages"`
}

// AdminNotification is pushed to every admin connection when a participant
// connects, sends a message, or has its conversation expire.
type AdminNotification struct {
	Type      string `json:"type"`
	ChatID    string `json:"chatId"`
	Timestamp string `json:"timestamp"`
	Sender    string `json:"sender,omitempty"`
	Message   string `json:"message,omitempty"`
}

// AckPayload acknowledges a request event. Exactly one of Success or Error
// is set.
type AckPayload struct {
	Success bool   `json:"success,omitempty"`
	Error   string `json:"error,omitempty"`
}

// isoTimestamp formats t the way the protocol expects timestamps.
func isoTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
