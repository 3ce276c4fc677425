package driving

import (
	"context"

	"github.com/shelfbot/shelfbot/internal/core/domain"
)

// IngestService validates and commits incoming file announcements.
type IngestService interface {
	Ingest(ctx context.Context, ann domain.FileAnnouncement) (domain.IngestOutcome, error)
}

// SearchService executes catalog searches and paginates their results.
type SearchService interface {
	// Search rejects blank queries with domain.ErrEmptyQuery and
	// otherwise returns a session holding the fixed result list.
	Search(ctx context.Context, query string) (*domain.SearchSession, error)

	// Paginate slices the session's fixed results into the page at
	// pageIndex, clamping out-of-range indexes, and records the page
	// on the session.
	Paginate(session *domain.SearchSession, pageIndex int) domain.Page
}

// CatalogService covers the bookkeeping around the catalog: users,
// downloads, feedback, the lock and ban flags, stats and the two-step
// destructive reset.
type CatalogService interface {
	TouchUser(ctx context.Context, userID int64, displayName, handle string) error

	// File resolves a record by ID without side effects.
	File(ctx context.Context, fileID int64) (*domain.FileRecord, error)

	// RecordDownload counts one successful retrieval. Callers invoke it
	// only after the file actually reached the user.
	RecordDownload(ctx context.Context, fileID, userID int64) error

	Feedback(ctx context.Context, fb domain.Feedback) (avg float64, count int, err error)

	// UserIDs lists every known user, for owner broadcasts.
	UserIDs(ctx context.Context) ([]int64, error)

	Locked(ctx context.Context) (bool, error)
	SetLocked(ctx context.Context, locked bool) error
	Banned(ctx context.Context, userID int64) (bool, error)
	SetBanned(ctx context.Context, userID int64, banned bool) error

	Stats(ctx context.Context) (domain.CatalogStats, error)

	// RequestReset arms a destructive reset and returns the token the
	// confirmation must echo. A second request replaces the first.
	RequestReset(ctx context.Context) (token string, err error)

	// ConfirmReset performs the reset iff token matches an unexpired
	// pending request.
	ConfirmReset(ctx context.Context, token string) error
}
