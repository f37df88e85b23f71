// Package chat coordinates client registration, event dispatch, and
// connection cleanup for the relay via the Hub type.
package chat

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"storechat/internal/auth"
)

// inboundEvent pairs a decoded protocol event with the connection it arrived
// on, so the hub loop can hand both to the dispatcher.
type inboundEvent struct {
	client *Client
	event  Event
}

// expiration asks the hub loop to re-check and possibly remove a conversation
// whose owning connection disconnected a grace period ago.
type expiration struct {
	chatID string
	connID string
}

// Hub runs the single event loop that owns all chat state. Registration,
// unregistration, inbound protocol events, and expiry checks are all
// delivered over channels and processed one at a time, which serializes
// every mutation of the dispatcher's maps without further locking.
type Hub struct {
	cfg        *Config
	dispatcher *Dispatcher
	log        *zap.Logger

	register    chan *Client
	unregister  chan *Client
	inbound     chan inboundEvent
	expirations chan expiration

	clients map[*Client]bool
	mutex   sync.RWMutex
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewHub creates a hub around the given configuration and verifier. Each hub
// instance carries its own state; nothing is process-global, so tests and
// embedded deployments can run several independently.
func NewHub(cfg *Config, verifier auth.Verifier, log *zap.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		cfg:         cfg,
		dispatcher:  NewDispatcher(verifier, cfg.RequireAuth, log),
		log:         log,
		register:    make(chan *Client, 64),
		unregister:  make(chan *Client, 64),
		inbound:     make(chan inboundEvent, 256),
		expirations: make(chan expiration, 64),
		clients:     make(map[*Client]bool),
		ctx:         ctx,
		cancel:      cancel,
		done:        make(chan struct{}),
	}
}

// Run starts the hub's main event loop. It should be called in its own
// goroutine; it returns only when the hub shuts down.
func (h *Hub) Run() {
	defer close(h.done)

	h.log.Info("hub started")

	for {
		select {
		case <-h.ctx.Done():
			h.shutdownClients()
			return

		case client := <-h.register:
			h.handleRegister(client)

		case client := <-h.unregister:
			h.handleUnregister(client)

		case in := <-h.inbound:
			h.dispatcher.HandleEvent(in.client, in.event)

		case exp := <-h.expirations:
			h.dispatcher.Expire(exp.chatID, exp.connID)
		}
	}
}

func (h *Hub) handleRegister(client *Client) {
	if client == nil {
		h.log.Warn("received nil client registration; skipping")
		return
	}

	h.mutex.Lock()
	h.clients[client] = true
	clientCount := len(h.clients)
	h.mutex.Unlock()

	h.dispatcher.AddConn(client)
	h.log.Info("client registered",
		zap.String("conn", client.ID()), zap.String("addr", client.addr), zap.Int("total", clientCount))

	h.wg.Add(2)
	go func() {
		defer h.wg.Done()
		client.writePump()
	}()
	go func() {
		defer h.wg.Done()
		client.readPump()
	}()
}

// handleUnregister tears a connection down and schedules the grace-period
// expiry of any conversation it owned. Teardown happens synchronously on the
// loop, so no broadcast processed afterwards can still reach the connection.
func (h *Hub) handleUnregister(client *Client) {
	h.mutex.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mutex.Unlock()
		return
	}
	delete(h.clients, client)
	clientCount := len(h.clients)
	h.mutex.Unlock()

	owned := h.dispatcher.Disconnect(client)
	client.close()

	h.log.Info("client unregistered",
		zap.String("conn", client.ID()), zap.Int("total", clientCount), zap.Int("ownedChats", len(owned)))

	for _, chatID := range owned {
		h.scheduleExpiry(chatID, client.ID())
	}
}

// Register queues a new client for registration with the hub.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.ctx.Done():
	}
}

// shutdownClients closes every active client connection so their pumps exit.
func (h *Hub) shutdownClients() {
	h.log.Info("shutting down all client connections")

	h.mutex.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.clients = make(map[*Client]bool)
	h.mutex.Unlock()

	for _, client := range clients {
		client.close()
		client.closeSocket()
	}

	h.log.Info("closed client connections", zap.Int("count", len(clients)))
}

// Shutdown initiates graceful shutdown of the hub and waits for all client
// goroutines to complete, or until the timeout is reached.
func (h *Hub) Shutdown(timeout time.Duration) error {
	h.log.Info("initiating hub shutdown")

	h.cancel()
	<-h.done

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		h.log.Info("hub shutdown completed")
		return nil
	case <-time.After(timeout):
		h.log.Warn("hub shutdown timeout reached, some goroutines may still be running")
		return context.DeadlineExceeded
	}
}
