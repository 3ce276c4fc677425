package driven

import "context"

// Notifier delivers outbound messages to the originating conversation.
// Sends are best-effort: a failed acknowledgement never affects catalog
// correctness, so implementations log and move on.
type Notifier interface {
	// SendMessage posts text to a chat, optionally replying to a message.
	// replyTo of 0 means no reply threading.
	SendMessage(ctx context.Context, chatID int64, text string, replyTo int) error

	// SendDocument re-sends a catalogued file by its upstream reference.
	SendDocument(ctx context.Context, chatID int64, fileRef string, replyTo int) error
}
