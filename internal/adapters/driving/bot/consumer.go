// Package bot drives the catalog from Telegram updates: documents
// posted to the source channel are ingested, group text triggers
// searches, inline buttons page through results and deliver files, and
// commands cover admin duties. The consumer long-polls so a concurrent
// poller on the same token surfaces as a conflict instead of being
// silently absorbed.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/shelfbot/shelfbot/internal/core/domain"
	"github.com/shelfbot/shelfbot/internal/core/ports/driven"
	"github.com/shelfbot/shelfbot/internal/core/ports/driving"
	"github.com/shelfbot/shelfbot/internal/logger"
)

// api is the inbound slice of tgbotapi.BotAPI the consumer uses;
// narrowed for tests. Outbound traffic goes through Outbound instead.
type api interface {
	GetUpdates(cfg tgbotapi.UpdateConfig) ([]tgbotapi.Update, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Outbound is the rate-limited send path; every message the consumer
// emits passes through it. telegram.Notifier satisfies it.
type Outbound interface {
	driven.Notifier

	// Send pushes a prepared payload through the throttle.
	Send(ctx context.Context, c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// maxInlineResults caps one inline answer, per the platform limit.
const maxInlineResults = 50

// Options configures the consumer's dispatch decisions.
type Options struct {
	// OwnerID may run admin commands and bypasses the lock.
	OwnerID int64

	// SourceChannelID is the only chat whose documents are ingested.
	SourceChannelID int64

	// LogChannelID receives operator notifications. Zero disables them.
	LogChannelID int64

	// AllowSearchWhenLocked lets non-owners search a locked catalog.
	AllowSearchWhenLocked bool

	// PollTimeout is the long-poll timeout in seconds. Zero means 30.
	PollTimeout int
}

// Consumer polls Telegram and dispatches updates to the core services.
type Consumer struct {
	api      api
	out      Outbound
	ingest   driving.IngestService
	search   driving.SearchService
	catalog  driving.CatalogService
	sessions *sessionStore
	opts     Options

	running atomic.Bool
}

// NewConsumer builds a consumer over a live Bot API client and the
// throttled outbound path.
func NewConsumer(
	botAPI *tgbotapi.BotAPI,
	out Outbound,
	ingest driving.IngestService,
	search driving.SearchService,
	catalog driving.CatalogService,
	opts Options,
) *Consumer {
	return newConsumer(botAPI, out, ingest, search, catalog, opts)
}

func newConsumer(
	botAPI api,
	out Outbound,
	ingest driving.IngestService,
	search driving.SearchService,
	catalog driving.CatalogService,
	opts Options,
) *Consumer {
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = 30
	}
	return &Consumer{
		api:      botAPI,
		out:      out,
		ingest:   ingest,
		search:   search,
		catalog:  catalog,
		sessions: newSessionStore(),
		opts:     opts,
	}
}

// Running reports whether the poll loop is active; the health surface
// uses it.
func (c *Consumer) Running() bool {
	return c.running.Load()
}

// Run polls for updates until ctx ends. A 409 from the platform means
// another consumer holds the role; it is reported as
// domain.ErrConsumerConflict so the supervisor can fail fast.
func (c *Consumer) Run(ctx context.Context) error {
	c.running.Store(true)
	defer c.running.Store(false)

	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = c.opts.PollTimeout

	logger.Info("consumer started (source channel %d)", c.opts.SourceChannelID)

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		updates, err := c.api.GetUpdates(cfg)
		if err != nil {
			if isConflict(err) {
				return fmt.Errorf("poll rejected: %w", domain.ErrConsumerConflict)
			}
			return fmt.Errorf("polling updates: %w", err)
		}

		for _, upd := range updates {
			if upd.UpdateID >= cfg.Offset {
				cfg.Offset = upd.UpdateID + 1
			}
			c.handleUpdate(ctx, upd)
		}
	}
}

// isConflict detects the platform's "another getUpdates is running"
// rejection.
func isConflict(err error) bool {
	var apiErr *tgbotapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == 409
}

// handleUpdate routes one update. Handler errors are logged, never
// fatal; the poll loop must survive any single bad update.
func (c *Consumer) handleUpdate(ctx context.Context, upd tgbotapi.Update) {
	switch {
	case upd.ChannelPost != nil:
		c.handleChannelPost(ctx, upd.ChannelPost)
	case upd.CallbackQuery != nil:
		c.handleCallback(ctx, upd.CallbackQuery)
	case upd.InlineQuery != nil:
		c.handleInline(ctx, upd.InlineQuery)
	case upd.Message != nil && upd.Message.IsCommand():
		c.handleCommand(ctx, upd.Message)
	case upd.Message != nil && upd.Message.Text != "":
		c.handleSearch(ctx, upd.Message)
	}
}

// handleChannelPost ingests documents posted to the source channel.
// Posts anywhere else, and non-document posts, are ignored. Every
// outcome is acknowledged back into the channel, threaded on the post,
// so uploaders see whether their file made it into the catalog.
func (c *Consumer) handleChannelPost(ctx context.Context, msg *tgbotapi.Message) {
	if msg.Chat == nil || msg.Chat.ID != c.opts.SourceChannelID || msg.Document == nil {
		return
	}

	doc := msg.Document
	outcome, err := c.ingest.Ingest(ctx, domain.FileAnnouncement{
		FileRef:            doc.FileID,
		ContentFingerprint: doc.FileUniqueID,
		DisplayName:        doc.FileName,
		SizeBytes:          int64(doc.FileSize),
		SourceMessageRef:   msg.MessageID,
		SourceLocation:     msg.Chat.ID,
	})
	if err != nil {
		logger.Error("ingesting %q: %v", doc.FileName, err)
		return
	}

	logger.Info("ingest %q: %s", doc.FileName, outcome.Status)
	c.reply(ctx, msg, ingestAckText(outcome, doc.FileName))
	c.notifyOperator(ctx, ingestLogText(outcome, doc.FileName))
}

// handleSearch runs a catalog search for plain text messages.
func (c *Consumer) handleSearch(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	userID := msg.From.ID

	if err := c.catalog.TouchUser(ctx, userID, msg.From.FirstName, msg.From.UserName); err != nil {
		logger.Warn("recording user %d: %v", userID, err)
	}

	if banned, err := c.catalog.Banned(ctx, userID); err != nil {
		logger.Warn("ban check for %d: %v", userID, err)
	} else if banned {
		return
	}

	if userID != c.opts.OwnerID && !c.opts.AllowSearchWhenLocked {
		if locked, err := c.catalog.Locked(ctx); err != nil {
			logger.Warn("lock check: %v", err)
		} else if locked {
			c.reply(ctx, msg, lockedText())
			return
		}
	}

	session, err := c.search.Search(ctx, msg.Text)
	if err != nil {
		if errors.Is(err, domain.ErrEmptyQuery) {
			return
		}
		logger.Error("search %q: %v", msg.Text, err)
		return
	}

	if len(session.Results) == 0 {
		// The miss supersedes whatever the chat was paging through.
		c.sessions.drop(msg.Chat.ID)
		c.reply(ctx, msg, noResultsText(session.Query))
		c.notifyOperator(ctx, searchMissLogText(session.Query, msg.From.FirstName))
		return
	}

	c.sessions.put(msg.Chat.ID, session)
	page := c.search.Paginate(session, 0)

	reply := tgbotapi.NewMessage(msg.Chat.ID, resultsText(page))
	reply.ReplyToMessageID = msg.MessageID
	reply.ReplyMarkup = resultsKeyboard(page, c.opts.OwnerID)
	if _, err := c.out.Send(ctx, reply); err != nil {
		logger.Error("sending results: %v", err)
	}
}

// handleInline answers inline queries with matching catalog entries,
// so any chat can pull files via @bot <name>. Empty queries are
// ignored; results are capped at the platform's answer limit.
func (c *Consumer) handleInline(ctx context.Context, iq *tgbotapi.InlineQuery) {
	if iq.From == nil || strings.TrimSpace(iq.Query) == "" {
		return
	}
	userID := iq.From.ID

	if err := c.catalog.TouchUser(ctx, userID, iq.From.FirstName, iq.From.UserName); err != nil {
		logger.Warn("recording user %d: %v", userID, err)
	}
	if banned, err := c.catalog.Banned(ctx, userID); err != nil {
		logger.Warn("ban check for %d: %v", userID, err)
	} else if banned {
		return
	}
	if userID != c.opts.OwnerID && !c.opts.AllowSearchWhenLocked {
		if locked, err := c.catalog.Locked(ctx); err != nil {
			logger.Warn("lock check: %v", err)
		} else if locked {
			return
		}
	}

	session, err := c.search.Search(ctx, iq.Query)
	if err != nil {
		if !errors.Is(err, domain.ErrEmptyQuery) {
			logger.Error("inline search %q: %v", iq.Query, err)
		}
		return
	}

	results := make([]interface{}, 0, maxInlineResults)
	for _, item := range session.Results {
		if len(results) == maxInlineResults {
			break
		}
		results = append(results, inlineResult(item))
	}

	if _, err := c.api.Request(tgbotapi.InlineConfig{
		InlineQueryID: iq.ID,
		Results:       results,
		CacheTime:     5,
		IsPersonal:    true,
	}); err != nil {
		logger.Warn("answering inline query: %v", err)
	}
}

// handleCallback serves the inline buttons: file delivery, page
// navigation, ratings and the info card.
func (c *Consumer) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	if _, err := c.api.Request(tgbotapi.NewCallback(cq.ID, "")); err != nil {
		logger.Warn("answering callback: %v", err)
	}
	if cq.Message == nil || cq.From == nil {
		return
	}
	chatID := cq.Message.Chat.ID

	data := cq.Data
	switch {
	case strings.HasPrefix(data, callbackGetPrefix):
		fileID, err := strconv.ParseInt(strings.TrimPrefix(data, callbackGetPrefix), 10, 64)
		if err != nil {
			logger.Warn("bad callback data %q", data)
			return
		}
		c.deliverFile(ctx, cq, fileID)

	case strings.HasPrefix(data, callbackPagePrefix):
		pageIndex, err := strconv.Atoi(strings.TrimPrefix(data, callbackPagePrefix))
		if err != nil {
			logger.Warn("bad callback data %q", data)
			return
		}
		c.showPage(ctx, cq, pageIndex)

	case strings.HasPrefix(data, callbackRatePrefix):
		fileID, rating, ok := parseRating(data)
		if !ok {
			logger.Warn("bad callback data %q", data)
			return
		}
		c.recordRating(ctx, cq, fileID, rating)

	case data == callbackInfo:
		c.editText(ctx, chatID, cq.Message.MessageID, infoText(c.opts.OwnerID))
	}
}

// parseRating splits "rate_<fileID>_<rating>" callback data.
func parseRating(data string) (fileID int64, rating int, ok bool) {
	parts := strings.SplitN(strings.TrimPrefix(data, callbackRatePrefix), "_", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	fileID, errID := strconv.ParseInt(parts[0], 10, 64)
	rating, errRating := strconv.Atoi(parts[1])
	if errID != nil || errRating != nil {
		return 0, 0, false
	}
	return fileID, rating, true
}

// deliverFile re-sends the catalogued document. The download is only
// counted once the send succeeded; a delivery that never reached the
// user never moves the counter. A rating prompt follows the file.
func (c *Consumer) deliverFile(ctx context.Context, cq *tgbotapi.CallbackQuery, fileID int64) {
	chatID := cq.Message.Chat.ID

	record, err := c.catalog.File(ctx, fileID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.editText(ctx, chatID, cq.Message.MessageID, fileNotFoundText())
			return
		}
		logger.Error("resolving file %d: %v", fileID, err)
		return
	}

	if err := c.out.SendDocument(ctx, chatID, record.FileRef, cq.Message.MessageID); err != nil {
		logger.Error("delivering file %d: %v", fileID, err)
		return
	}

	if err := c.catalog.RecordDownload(ctx, fileID, cq.From.ID); err != nil {
		logger.Warn("counting download of file %d: %v", fileID, err)
	}

	prompt := tgbotapi.NewMessage(chatID, ratingPromptText(record.DisplayName))
	prompt.ReplyMarkup = ratingKeyboard(fileID)
	if _, err := c.out.Send(ctx, prompt); err != nil {
		logger.Warn("sending rating prompt: %v", err)
	}
}

// recordRating stores the tapped rating and swaps the prompt for the
// updated aggregate.
func (c *Consumer) recordRating(ctx context.Context, cq *tgbotapi.CallbackQuery, fileID int64, rating int) {
	avg, count, err := c.catalog.Feedback(ctx, domain.Feedback{
		UserID: cq.From.ID,
		FileID: fileID,
		Rating: rating,
	})
	if err != nil {
		logger.Warn("recording rating for file %d: %v", fileID, err)
		return
	}
	c.editText(ctx, cq.Message.Chat.ID, cq.Message.MessageID, ratingThanksText(avg, count))
}

// showPage re-renders the result message at the requested page.
func (c *Consumer) showPage(ctx context.Context, cq *tgbotapi.CallbackQuery, pageIndex int) {
	chatID := cq.Message.Chat.ID

	session, ok := c.sessions.get(chatID)
	if !ok {
		c.editText(ctx, chatID, cq.Message.MessageID, sessionExpiredText())
		return
	}

	page := c.search.Paginate(session, pageIndex)
	edit := tgbotapi.NewEditMessageTextAndMarkup(
		chatID, cq.Message.MessageID,
		resultsText(page), resultsKeyboard(page, c.opts.OwnerID),
	)
	if _, err := c.out.Send(ctx, edit); err != nil {
		logger.Error("updating result page: %v", err)
	}
}

// handleCommand dispatches slash commands. Admin commands are gated on
// the owner before touching the catalog.
func (c *Consumer) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	isOwner := msg.From.ID == c.opts.OwnerID

	switch msg.Command() {
	case "start":
		c.reply(ctx, msg, startText())
	case "help":
		c.reply(ctx, msg, helpText())

	case "stats":
		stats, err := c.catalog.Stats(ctx)
		if err != nil {
			logger.Error("stats: %v", err)
			return
		}
		c.reply(ctx, msg, statsText(stats))

	case "users":
		stats, err := c.catalog.Stats(ctx)
		if err != nil {
			logger.Error("users: %v", err)
			return
		}
		c.reply(ctx, msg, usersText(stats.Users))

	case "lock", "unlock":
		if !isOwner {
			c.reply(ctx, msg, ownerOnlyText())
			return
		}
		locked := msg.Command() == "lock"
		if err := c.catalog.SetLocked(ctx, locked); err != nil {
			logger.Error("setting lock: %v", err)
			return
		}
		c.reply(ctx, msg, lockChangedText(locked))
		c.notifyOperator(ctx, lockChangedText(locked))

	case "ban", "unban":
		if !isOwner {
			c.reply(ctx, msg, ownerOnlyText())
			return
		}
		target, err := strconv.ParseInt(strings.TrimSpace(msg.CommandArguments()), 10, 64)
		if err != nil {
			c.reply(ctx, msg, "Usage: /"+msg.Command()+" <user_id>")
			return
		}
		banned := msg.Command() == "ban"
		if err := c.catalog.SetBanned(ctx, target, banned); err != nil {
			logger.Error("setting ban for %d: %v", target, err)
			return
		}
		c.reply(ctx, msg, banChangedText(target, banned))

	case "broadcast":
		if !isOwner {
			c.reply(ctx, msg, ownerOnlyText())
			return
		}
		c.broadcast(ctx, msg)

	case "delete_db":
		if !isOwner {
			c.reply(ctx, msg, ownerOnlyText())
			return
		}
		token, err := c.catalog.RequestReset(ctx)
		if err != nil {
			logger.Error("arming reset: %v", err)
			return
		}
		c.reply(ctx, msg, resetRequestedText(token))

	case "confirm_delete":
		if !isOwner {
			c.reply(ctx, msg, ownerOnlyText())
			return
		}
		err := c.catalog.ConfirmReset(ctx, strings.TrimSpace(msg.CommandArguments()))
		c.reply(ctx, msg, resetErrorText(err))
		if err == nil {
			// Retained result lists point at rows that no longer exist.
			c.sessions.clear()
			c.notifyOperator(ctx, "Catalog reset by owner.")
		}
	}
}

// broadcast fans the owner's message out to every known user. Sends
// are best-effort per user; blocked chats just lower the delivered
// count.
func (c *Consumer) broadcast(ctx context.Context, msg *tgbotapi.Message) {
	text := strings.TrimSpace(msg.CommandArguments())
	if text == "" {
		c.reply(ctx, msg, broadcastUsageText())
		return
	}

	ids, err := c.catalog.UserIDs(ctx)
	if err != nil {
		logger.Error("broadcast: %v", err)
		return
	}

	delivered := 0
	for _, id := range ids {
		if err := c.out.SendMessage(ctx, id, text, 0); err != nil {
			logger.Warn("broadcast to user %d: %v", id, err)
			continue
		}
		delivered++
	}

	logger.Info("broadcast delivered to %d/%d users", delivered, len(ids))
	c.reply(ctx, msg, broadcastDoneText(delivered, len(ids)))
}

// reply sends text threaded onto the triggering message.
func (c *Consumer) reply(ctx context.Context, msg *tgbotapi.Message, text string) {
	if err := c.out.SendMessage(ctx, msg.Chat.ID, text, msg.MessageID); err != nil {
		logger.Error("sending reply: %v", err)
	}
}

func (c *Consumer) editText(ctx context.Context, chatID int64, messageID int, text string) {
	if _, err := c.out.Send(ctx, tgbotapi.NewEditMessageText(chatID, messageID, text)); err != nil {
		logger.Error("editing message: %v", err)
	}
}

// notifyOperator posts to the log channel when one is configured.
// Failures are cosmetic and only logged.
func (c *Consumer) notifyOperator(ctx context.Context, text string) {
	if c.opts.LogChannelID == 0 {
		return
	}
	if err := c.out.SendMessage(ctx, c.opts.LogChannelID, text, 0); err != nil {
		logger.Warn("notifying log channel: %v", err)
	}
}
