package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shelfbot/shelfbot/internal/core/domain"
	"github.com/shelfbot/shelfbot/internal/core/ports/driven"
	"github.com/shelfbot/shelfbot/internal/core/ports/driving"
	"github.com/shelfbot/shelfbot/internal/logger"
)

// Ensure CatalogService implements the interface.
var _ driving.CatalogService = (*CatalogService)(nil)

// resetWindow is how long a reset request stays confirmable.
const resetWindow = 2 * time.Minute

// CatalogService covers the bookkeeping around the catalog: user
// upserts, downloads, feedback, the lock and ban flags, stats, and the
// two-step destructive reset.
type CatalogService struct {
	files    driven.FileStore
	users    driven.UserStore
	settings driven.SettingsStore
	resetter driven.CatalogResetter

	mu           sync.Mutex
	resetToken   string
	resetExpires time.Time

	// now is swappable for tests.
	now func() time.Time
}

// NewCatalogService creates a catalog service over the given stores.
func NewCatalogService(
	files driven.FileStore,
	users driven.UserStore,
	settings driven.SettingsStore,
	resetter driven.CatalogResetter,
) *CatalogService {
	return &CatalogService{
		files:    files,
		users:    users,
		settings: settings,
		resetter: resetter,
		now:      time.Now,
	}
}

// TouchUser upserts the user on the first field of an inbound
// interaction, refreshing last_interaction.
func (s *CatalogService) TouchUser(ctx context.Context, userID int64, displayName, handle string) error {
	if err := s.users.UpsertUser(ctx, userID, displayName, handle); err != nil {
		return fmt.Errorf("touch user %d: %w", userID, err)
	}
	return nil
}

// File resolves a record by ID. It has no side effects; the caller
// records the download separately once delivery succeeded.
func (s *CatalogService) File(ctx context.Context, fileID int64) (*domain.FileRecord, error) {
	record, err := s.files.GetFile(ctx, fileID)
	if err != nil {
		return nil, fmt.Errorf("resolve file %d: %w", fileID, err)
	}
	return record, nil
}

// RecordDownload counts one successful retrieval and appends the audit
// event. A delivery that failed in transit must not reach this point,
// so the counter only ever reflects files that arrived.
func (s *CatalogService) RecordDownload(ctx context.Context, fileID, userID int64) error {
	if err := s.files.RecordDownload(ctx, fileID, userID); err != nil {
		return fmt.Errorf("record download of file %d: %w", fileID, err)
	}
	return nil
}

// UserIDs lists every known user for owner broadcasts.
func (s *CatalogService) UserIDs(ctx context.Context) ([]int64, error) {
	ids, err := s.users.ListUserIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	return ids, nil
}

// Feedback records a rating and returns the recomputed aggregate.
func (s *CatalogService) Feedback(ctx context.Context, fb domain.Feedback) (float64, int, error) {
	if !domain.ValidRating(fb.Rating) {
		return 0, 0, fmt.Errorf("rating %d: %w", fb.Rating, domain.ErrInvalidInput)
	}
	avg, count, err := s.files.RecordFeedback(ctx, fb)
	if err != nil {
		return 0, 0, fmt.Errorf("feedback on file %d: %w", fb.FileID, err)
	}
	return avg, count, nil
}

// Locked reports the global lock flag.
func (s *CatalogService) Locked(ctx context.Context) (bool, error) {
	return s.settings.IsLocked(ctx)
}

// SetLocked writes the global lock flag.
func (s *CatalogService) SetLocked(ctx context.Context, locked bool) error {
	if err := s.settings.SetLocked(ctx, locked); err != nil {
		return err
	}
	logger.Info("catalog lock set to %t", locked)
	return nil
}

// Banned reports a user's ban flag.
func (s *CatalogService) Banned(ctx context.Context, userID int64) (bool, error) {
	return s.settings.IsBanned(ctx, userID)
}

// SetBanned writes a user's ban flag.
func (s *CatalogService) SetBanned(ctx context.Context, userID int64, banned bool) error {
	if err := s.settings.SetBanned(ctx, userID, banned); err != nil {
		return err
	}
	logger.Info("user %d ban flag set to %t", userID, banned)
	return nil
}

// Stats returns a point-in-time summary of catalog contents.
func (s *CatalogService) Stats(ctx context.Context) (domain.CatalogStats, error) {
	files, err := s.files.CountFiles(ctx)
	if err != nil {
		return domain.CatalogStats{}, err
	}
	users, err := s.users.CountUsers(ctx)
	if err != nil {
		return domain.CatalogStats{}, err
	}
	downloads, err := s.files.CountDownloads(ctx)
	if err != nil {
		return domain.CatalogStats{}, err
	}
	return domain.CatalogStats{Files: files, Users: users, Downloads: downloads}, nil
}

// RequestReset arms the destructive reset and returns the token the
// confirmation must echo within the reset window. A second request
// replaces the first, so a single accidental invocation can never
// destroy data on its own.
func (s *CatalogService) RequestReset(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.resetToken = uuid.New().String()
	s.resetExpires = s.now().Add(resetWindow)

	logger.Warn("catalog reset requested, confirmation required within %s", resetWindow)
	return s.resetToken, nil
}

// ConfirmReset performs the reset iff token matches an unexpired
// pending request. The pending request is consumed either way once a
// matching token is seen.
func (s *CatalogService) ConfirmReset(ctx context.Context, token string) error {
	s.mu.Lock()
	pending := s.resetToken
	expires := s.resetExpires
	s.mu.Unlock()

	if pending == "" || s.now().After(expires) {
		return domain.ErrNoPendingReset
	}
	if token != pending {
		return domain.ErrResetTokenMismatch
	}

	if err := s.resetter.Reset(ctx); err != nil {
		return fmt.Errorf("resetting catalog: %w", err)
	}

	s.mu.Lock()
	s.resetToken = ""
	s.resetExpires = time.Time{}
	s.mu.Unlock()

	logger.Warn("catalog reset complete")
	return nil
}
