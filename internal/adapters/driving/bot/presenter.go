package bot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/shelfbot/shelfbot/internal/core/domain"
)

// presenter.go holds every piece of user-facing phrasing and keyboard
// layout. Handlers decide, the presenter speaks; nothing in here makes
// decisions about catalog state.

// Callback data prefixes understood by the consumer.
const (
	callbackGetPrefix  = "get_"
	callbackPagePrefix = "page_"
	callbackRatePrefix = "rate_"
	callbackInfo       = "info"
)

func startText() string {
	return "Welcome to the library.\n" +
		"Send any part of a book name to search the catalog."
}

func helpText() string {
	return strings.Join([]string{
		"Send any part of a book name to search.",
		"Tap a result to receive the file.",
		"",
		"Commands:",
		"/start - welcome message",
		"/help - this message",
		"/stats - catalog statistics",
	}, "\n")
}

func infoText(ownerID int64) string {
	return fmt.Sprintf(
		"Library bot.\nOwner: tg://user?id=%d\nSend any part of a book name to search.",
		ownerID,
	)
}

func lockedText() string {
	return "The bot is currently locked. Try again later."
}

func noResultsText(query string) string {
	return fmt.Sprintf("No books found matching %q.", query)
}

func fileNotFoundText() string {
	return "File not found. It may have been removed from the catalog."
}

func sessionExpiredText() string {
	return "This search has expired. Send the book name again."
}

func statsText(stats domain.CatalogStats) string {
	return fmt.Sprintf(
		"Catalog: %d files, %d users, %d downloads served.",
		stats.Files, stats.Users, stats.Downloads,
	)
}

func usersText(count int64) string {
	return fmt.Sprintf("%d users have interacted with the bot.", count)
}

func lockChangedText(locked bool) string {
	if locked {
		return "Bot locked. Only the owner can search now."
	}
	return "Bot unlocked."
}

func banChangedText(userID int64, banned bool) string {
	if banned {
		return fmt.Sprintf("User %d banned.", userID)
	}
	return fmt.Sprintf("User %d unbanned.", userID)
}

func ownerOnlyText() string {
	return "This command is restricted to the bot owner."
}

func resetRequestedText(token string) string {
	return fmt.Sprintf(
		"This will permanently delete the entire catalog.\n"+
			"To confirm, send within 2 minutes:\n/confirm_delete %s",
		token,
	)
}

func resetDoneText() string {
	return "Catalog deleted. The database has been reinitialized empty."
}

func resetErrorText(err error) string {
	switch {
	case err == nil:
		return resetDoneText()
	case errors.Is(err, domain.ErrNoPendingReset):
		return "No deletion pending. Use /delete_db first."
	case errors.Is(err, domain.ErrResetTokenMismatch):
		return "Confirmation token does not match. Use /delete_db to start over."
	default:
		return "Deletion failed. Check the logs."
	}
}

// ingestAckText is the acknowledgement posted back into the source
// channel, threaded on the uploading message.
func ingestAckText(outcome domain.IngestOutcome, displayName string) string {
	switch outcome.Status {
	case domain.IngestAccepted:
		return fmt.Sprintf("Saved %q (%s) to the catalog.",
			outcome.File.DisplayName, domain.FormatSize(outcome.File.SizeBytes))
	case domain.IngestRejectedTooLarge:
		return fmt.Sprintf("%q was not indexed: it exceeds the %s limit.",
			displayName, domain.FormatSize(outcome.MaxSizeBytes))
	case domain.IngestRejectedDuplicate:
		return fmt.Sprintf("%q is already in the catalog.", displayName)
	default:
		return fmt.Sprintf("Could not process %q.", displayName)
	}
}

func ingestLogText(outcome domain.IngestOutcome, displayName string) string {
	switch outcome.Status {
	case domain.IngestAccepted:
		return fmt.Sprintf("Indexed %q (%s).",
			outcome.File.DisplayName, domain.FormatSize(outcome.File.SizeBytes))
	case domain.IngestRejectedTooLarge:
		return fmt.Sprintf("Skipped %q: larger than the %s limit.",
			displayName, domain.FormatSize(outcome.MaxSizeBytes))
	case domain.IngestRejectedDuplicate:
		return fmt.Sprintf("Skipped %q: already in the catalog.", displayName)
	default:
		return fmt.Sprintf("Unknown ingest outcome for %q.", displayName)
	}
}

func searchMissLogText(query, userName string) string {
	return fmt.Sprintf("Search %q by %s: no results.", query, userName)
}

func ratingPromptText(displayName string) string {
	return fmt.Sprintf("How would you rate %q?", displayName)
}

// ratingKeyboard renders one row of 1..5 buttons for the given file.
func ratingKeyboard(fileID int64) tgbotapi.InlineKeyboardMarkup {
	row := make([]tgbotapi.InlineKeyboardButton, 0, 5)
	for rating := 1; rating <= 5; rating++ {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(
			strconv.Itoa(rating),
			fmt.Sprintf("%s%d_%d", callbackRatePrefix, fileID, rating),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(row)
}

func ratingThanksText(avg float64, count int) string {
	if count == 1 {
		return fmt.Sprintf("Thanks for rating. Average so far: %.1f from 1 rating.", avg)
	}
	return fmt.Sprintf("Thanks for rating. Average so far: %.1f from %d ratings.", avg, count)
}

func broadcastUsageText() string {
	return "Usage: /broadcast <message>"
}

func broadcastDoneText(delivered, total int) string {
	return fmt.Sprintf("Broadcast delivered to %d of %d users.", delivered, total)
}

// inlineResult renders one catalog entry as an inline answer; picking
// it sends the stored document into the querying chat.
func inlineResult(item domain.FileRecord) tgbotapi.InlineQueryResultCachedDocument {
	result := tgbotapi.NewInlineQueryResultCachedDocument(
		strconv.FormatInt(item.ID, 10), item.FileRef, item.DisplayName)
	result.Description = "Size: " + domain.FormatSize(item.SizeBytes)
	return result
}

// resultsText heads the inline result list.
func resultsText(page domain.Page) string {
	return fmt.Sprintf("Found %d results (page %d/%d):",
		page.TotalItems, page.PageIndex+1, page.TotalPages)
}

// resultsKeyboard renders one page: a button per file, a navigation row
// when there is somewhere to go, and the info row.
func resultsKeyboard(page domain.Page, ownerID int64) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton

	for _, item := range page.Items {
		label := fmt.Sprintf("%s (%s)", item.DisplayName, domain.FormatSize(item.SizeBytes))
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label,
				fmt.Sprintf("%s%d", callbackGetPrefix, item.ID)),
		))
	}

	var nav []tgbotapi.InlineKeyboardButton
	if page.HasPrev {
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("Prev",
			fmt.Sprintf("%s%d", callbackPagePrefix, page.PageIndex-1)))
	}
	if page.HasNext {
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("Next",
			fmt.Sprintf("%s%d", callbackPagePrefix, page.PageIndex+1)))
	}
	if len(nav) > 0 {
		rows = append(rows, nav)
	}

	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonURL("Owner", fmt.Sprintf("tg://user?id=%d", ownerID)),
		tgbotapi.NewInlineKeyboardButtonData("Info", callbackInfo),
	))

	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
