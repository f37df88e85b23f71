package chat

import (
	"errors"
	"strings"
)

var (
	// ErrMissingChatID rejects a send_message without a conversation id.
	ErrMissingChatID = errors.New("missing chat id")
	// ErrEmptyMessage rejects a send_message with an empty body.
	ErrEmptyMessage = errors.New("empty message")
)

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}
