// Package chat exposes HTTP handlers, including WebSocket upgrades, health
// checks, and the built-in test page.
package chat

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handler serves the relay's HTTP surface: the WebSocket upgrade endpoint,
// the health check, and a small test page speaking the event protocol.
type Handler struct {
	hub      *Hub
	log      *zap.Logger
	upgrader websocket.Upgrader
}

// NewHandler builds the HTTP handler set around a hub. The upgrader's origin
// check is derived from the hub's configuration.
func NewHandler(hub *Hub, log *zap.Logger) *Handler {
	h := &Handler{hub: hub, log: log}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// checkOrigin allows same-host requests, requests without an Origin header,
// and any origin on the configured allow list.
func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if h.hub.cfg.AllowsAllOrigins() {
		return true
	}
	for _, allowed := range h.hub.cfg.Origins() {
		if strings.EqualFold(origin, allowed) {
			return true
		}
	}
	h.log.Warn("rejected websocket upgrade from disallowed origin", zap.String("origin", origin))
	return false
}

// WebSocket handles WebSocket upgrade requests. It upgrades the HTTP
// connection, creates a Client, and registers it with the hub, which launches
// the pump goroutines.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := NewClient(conn, h.hub, r.RemoteAddr)
	h.hub.Register(client)
}

// Health provides a simple health check endpoint that reports server status.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "storechat relay is running!")
}

// TestPage serves an HTML page for exercising the chat protocol by hand:
// connect as a guest or admin, send messages, and watch the event stream.
func (h *Handler) TestPage(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	html := `<!DOCTYPE html>
<html>
<head>
    <title>storechat test console</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        #events {
            border: 1px solid #ccc;
            height: 300px;
            padding: 10px;
            overflow-y: scroll;
            margin: 10px 0;
            background-color: #f9f9f9;
            font-family: monospace;
            font-size: 12px;
        }
        input[type="text"] { width: 260px; padding: 5px; margin-right: 6px; }
        button { padding: 5px 12px; cursor: pointer; }
    </style>
</head>
<body>
    <h1>storechat test console</h1>
    <div>
        <button onclick="connectGuest()">Connect as guest</button>
        <button onclick="connectAdmin()">Connect as admin</button>
    </div>
    <div style="margin-top:10px">
        <input type="text" id="chatId" placeholder="chat id">
        <input type="text" id="body" placeholder="message">
        <button onclick="sendMessage()">Send</button>
        <button onclick="joinChat()">Join chat</button>
    </div>
    <div id="events"></div>

    <script>
        let ws = null;
        let ackCounter = 0;
        const eventsDiv = document.getElementById('events');

        function logEvent(text) {
            const line = document.createElement('div');
            line.textContent = text;
            eventsDiv.appendChild(line);
            eventsDiv.scrollTop = eventsDiv.scrollHeight;
        }

        function emit(event, data, withAck) {
            const frame = { event: event, data: data };
            if (withAck) { frame.ack = ++ackCounter; }
            ws.send(JSON.stringify(frame));
            logEvent('>> ' + JSON.stringify(frame));
        }

        function connect(onOpen) {
            if (ws) { ws.close(); }
            ws = new WebSocket('ws://' + location.host + '/ws');
            ws.onopen = function() { logEvent('connected'); onOpen(); };
            ws.onmessage = function(e) {
                logEvent('<< ' + e.data);
                const frame = JSON.parse(e.data);
                if (frame.event === 'chat_id') {
                    document.getElementById('chatId').value = frame.data.chatId;
                }
            };
            ws.onclose = function() { logEvent('disconnected'); ws = null; };
        }

        function connectGuest() {
            const sessionId = document.getElementById('chatId').value;
            connect(function() {
                emit('guest_connected', sessionId ? { sessionId: sessionId } : {});
            });
        }

        function connectAdmin() {
            connect(function() { emit('admin_login', { token: 'dev' }); });
        }

        function sendMessage() {
            emit('send_message', {
                chatId: document.getElementById('chatId').value,
                message: document.getElementById('body').value,
                sender: 'Guest',
                timestamp: new Date().toISOString()
            }, true);
            document.getElementById('body').value = '';
        }

        function joinChat() {
            emit('join_chat', { chatId: document.getElementById('chatId').value });
        }
    </script>
</body>
</html>`
	if _, err := fmt.Fprint(w, html); err != nil {
		h.log.Warn("error writing HTML response", zap.Error(err))
	}
}
