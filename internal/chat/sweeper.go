package chat

import "time"

// scheduleExpiry starts the grace-period timer for a conversation whose
// owning connection just disconnected. When the timer fires, an expiration is
// posted back into the hub loop, where the dispatcher re-checks that the
// conversation still exists and is still owned by the disconnected
// connection before deleting it. A reconnection that reclaimed the id in the
// meantime changes the owner, turning the stale timer into a no-op; no
// explicit cancellation is needed.
func (h *Hub) scheduleExpiry(chatID, connID string) {
	time.AfterFunc(h.cfg.GracePeriod, func() {
		select {
		case h.expirations <- expiration{chatID: chatID, connID: connID}:
		case <-h.ctx.Done():
		}
	})
}
