// Package telegram implements the outbound Notifier port against the
// Telegram Bot API. All sends pass through a token bucket so bursts of
// acknowledgements stay under the platform's per-bot send limits.
package telegram

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"

	"github.com/shelfbot/shelfbot/internal/core/ports/driven"
)

// DefaultSendRate is messages per second; Telegram allows ~30 for a bot
// across all chats, so the default sits well below that.
const DefaultSendRate = 5

// sender is the slice of the Bot API client the notifier needs.
// tgbotapi.BotAPI satisfies it.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Ensure Notifier implements the port.
var _ driven.Notifier = (*Notifier)(nil)

// Notifier sends messages and documents through one bot account.
type Notifier struct {
	api     sender
	limiter *rate.Limiter
}

// NewNotifier wraps a Bot API client. ratePerSecond <= 0 selects
// DefaultSendRate.
func NewNotifier(api *tgbotapi.BotAPI, ratePerSecond float64) *Notifier {
	return newNotifier(api, ratePerSecond)
}

func newNotifier(api sender, ratePerSecond float64) *Notifier {
	if ratePerSecond <= 0 {
		ratePerSecond = DefaultSendRate
	}
	return &Notifier{
		api:     api,
		limiter: rate.NewLimiter(rate.Limit(ratePerSecond), 1),
	}
}

// Send pushes any prepared payload through the token bucket. It is the
// single outbound path; everything the bot emits goes through here.
func (n *Notifier) Send(ctx context.Context, c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if err := n.limiter.Wait(ctx); err != nil {
		return tgbotapi.Message{}, err
	}
	return n.api.Send(c)
}

// SendMessage posts text to a chat. replyTo of 0 means no threading.
func (n *Notifier) SendMessage(ctx context.Context, chatID int64, text string, replyTo int) error {
	msg := tgbotapi.NewMessage(chatID, text)
	if replyTo != 0 {
		msg.ReplyToMessageID = replyTo
	}
	if _, err := n.Send(ctx, msg); err != nil {
		return fmt.Errorf("sending message to chat %d: %w", chatID, err)
	}
	return nil
}

// SendDocument re-sends a stored file by its platform file reference.
// No upload happens; Telegram serves the bytes it already has.
func (n *Notifier) SendDocument(ctx context.Context, chatID int64, fileRef string, replyTo int) error {
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileID(fileRef))
	if replyTo != 0 {
		doc.ReplyToMessageID = replyTo
	}
	if _, err := n.Send(ctx, doc); err != nil {
		return fmt.Errorf("sending document to chat %d: %w", chatID, err)
	}
	return nil
}
