package driven

import (
	"context"

	"github.com/shelfbot/shelfbot/internal/core/domain"
)

// FileStore persists file records. It is the only writer of file state;
// uniqueness of (file_ref) and (content_fingerprint) is enforced here
// and surfaced as an InsertOutcome, never as an error.
type FileStore interface {
	// InsertFile atomically commits a new record, computing the
	// normalized name from the announcement's display name. A record
	// that collides on file_ref or content_fingerprint yields
	// Inserted=false with no mutation.
	InsertFile(ctx context.Context, ann domain.FileAnnouncement) (domain.InsertOutcome, error)

	// Search returns records whose normalized name contains the
	// normalized query as a substring, most recently added first.
	Search(ctx context.Context, query string) ([]domain.FileRecord, error)

	// GetFile returns the record with the given ID or domain.ErrNotFound.
	GetFile(ctx context.Context, id int64) (*domain.FileRecord, error)

	// RecordDownload increments the file's download counter and appends
	// an audit event; both happen or neither does.
	RecordDownload(ctx context.Context, fileID, userID int64) error

	// RecordFeedback inserts a rating and recomputes the file's average
	// and count from the full feedback set. Returns the new values.
	RecordFeedback(ctx context.Context, fb domain.Feedback) (avg float64, count int, err error)

	// CountFiles returns the number of catalogued files.
	CountFiles(ctx context.Context) (int64, error)

	// CountDownloads returns the number of recorded download events.
	CountDownloads(ctx context.Context) (int64, error)
}

// UserStore persists user records.
type UserStore interface {
	// UpsertUser inserts or updates by primary key. DisplayName and
	// Handle are last-write-wins; FirstSeen is set once; LastInteraction
	// always refreshes.
	UpsertUser(ctx context.Context, userID int64, displayName, handle string) error

	// GetUser returns the record or domain.ErrNotFound.
	GetUser(ctx context.Context, userID int64) (*domain.UserRecord, error)

	// CountUsers returns the number of known users.
	CountUsers(ctx context.Context) (int64, error)

	// ListUserIDs returns every known user ID in ascending order.
	ListUserIDs(ctx context.Context) ([]int64, error)
}

// SettingsStore persists the catalog's key/value settings, including
// the global lock flag and per-user ban markers.
type SettingsStore interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error

	IsLocked(ctx context.Context) (bool, error)
	SetLocked(ctx context.Context, locked bool) error

	IsBanned(ctx context.Context, userID int64) (bool, error)
	SetBanned(ctx context.Context, userID int64, banned bool) error
}

// CatalogResetter destroys all catalog content and reinitialises an
// empty schema. Only the two-step administrative reset may call it.
type CatalogResetter interface {
	Reset(ctx context.Context) error
}
