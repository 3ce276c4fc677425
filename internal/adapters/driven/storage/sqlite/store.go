package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/shelfbot/shelfbot/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/shelfbot/shelfbot/internal/core/domain"
	"github.com/shelfbot/shelfbot/internal/core/ports/driven"
)

// Store is a unified SQLite-based catalog that provides access to the
// file, user and settings store interfaces through wrapper types. It is
// the sole writer of catalog state.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite catalog at the specified data directory.
// If dataDir is empty, defaults to ~/.shelfbot/data/catalog.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".shelfbot", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "catalog.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// FileStore returns a FileStore interface backed by this store.
func (s *Store) FileStore() driven.FileStore {
	return &fileStore{store: s}
}

// UserStore returns a UserStore interface backed by this store.
func (s *Store) UserStore() driven.UserStore {
	return &userStore{store: s}
}

// SettingsStore returns a SettingsStore interface backed by this store.
func (s *Store) SettingsStore() driven.SettingsStore {
	return &settingsStore{store: s}
}

var _ driven.CatalogResetter = (*Store)(nil)

// Reset drops all catalog content and reinitialises the empty schema.
// Destructive; reached only through the two-step administrative reset.
func (s *Store) Reset(ctx context.Context) error {
	tables := []string{"downloads", "feedback", "files", "users", "settings", "schema_migrations"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
			return fmt.Errorf("dropping table %s: %w", table, err)
		}
	}

	if err := s.migrate(migrations.FS); err != nil {
		return fmt.Errorf("reinitialising schema: %w", err)
	}
	return nil
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(
			"INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// isUniqueViolation reports whether err is a SQLite unique or primary
// key constraint failure.
func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	code := se.Code()
	return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}

// ==================== File Store ====================

// fileStore implements driven.FileStore.
type fileStore struct {
	store *Store
}

var _ driven.FileStore = (*fileStore)(nil)

const fileColumns = `id, file_ref, content_fingerprint, normalized_name, display_name,
	size_bytes, source_message_ref, source_location, download_count, created_at,
	author, category, language, year, page_count, avg_rating, rating_count, preview_ref`

// InsertFile atomically commits a new file record. A collision on
// file_ref or content_fingerprint is reported as a duplicate outcome,
// not an error; any other storage failure propagates.
func (s *fileStore) InsertFile(
	ctx context.Context, ann domain.FileAnnouncement,
) (domain.InsertOutcome, error) {
	record := domain.FileRecord{
		FileRef:            ann.FileRef,
		ContentFingerprint: ann.ContentFingerprint,
		NormalizedName:     domain.NormalizeName(domain.StripExtension(ann.DisplayName)),
		DisplayName:        ann.DisplayName,
		SizeBytes:          ann.SizeBytes,
		SourceMessageRef:   ann.SourceMessageRef,
		SourceLocation:     ann.SourceLocation,
		CreatedAt:          time.Now().UTC(),
		Author:             ann.Author,
		Category:           ann.Category,
		Language:           ann.Language,
		Year:               ann.Year,
		PageCount:          ann.PageCount,
		PreviewRef:         ann.PreviewRef,
	}

	res, err := s.store.db.ExecContext(ctx, `
		INSERT INTO files (file_ref, content_fingerprint, normalized_name, display_name,
			size_bytes, source_message_ref, source_location, created_at,
			author, category, language, year, page_count, preview_ref)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, record.FileRef, record.ContentFingerprint, record.NormalizedName, record.DisplayName,
		record.SizeBytes, record.SourceMessageRef, record.SourceLocation, record.CreatedAt,
		record.Author, record.Category, record.Language, record.Year, record.PageCount,
		record.PreviewRef)

	if err != nil {
		if isUniqueViolation(err) {
			return domain.InsertOutcome{Inserted: false}, nil
		}
		return domain.InsertOutcome{}, fmt.Errorf("inserting file: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return domain.InsertOutcome{}, fmt.Errorf("reading inserted file id: %w", err)
	}
	record.ID = id

	return domain.InsertOutcome{Inserted: true, File: &record}, nil
}

// Search returns files whose normalized name contains the normalized
// query as a substring, most recently added first. The normalized query
// contains only letters, digits and spaces, so no LIKE metacharacters
// survive normalisation.
func (s *fileStore) Search(ctx context.Context, query string) ([]domain.FileRecord, error) {
	pattern := "%" + domain.NormalizeName(query) + "%"

	rows, err := s.store.db.QueryContext(ctx, `
		SELECT `+fileColumns+`
		FROM files
		WHERE normalized_name LIKE ?
		ORDER BY created_at DESC, id DESC
	`, pattern)
	if err != nil {
		return nil, fmt.Errorf("querying files: %w", err)
	}
	defer rows.Close()

	var records []domain.FileRecord //nolint:prealloc // size unknown from query
	for rows.Next() {
		record, err := scanFileRows(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating files: %w", err)
	}

	return records, nil
}

// GetFile retrieves a file record by ID.
func (s *fileStore) GetFile(ctx context.Context, id int64) (*domain.FileRecord, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT `+fileColumns+`
		FROM files WHERE id = ?
	`, id)

	return scanFileRow(row)
}

// RecordDownload increments the download counter and appends an audit
// event in one transaction.
func (s *fileStore) RecordDownload(ctx context.Context, fileID, userID int64) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx,
		"UPDATE files SET download_count = download_count + 1 WHERE id = ?", fileID)
	if err != nil {
		return fmt.Errorf("incrementing download count: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking download update: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO downloads (user_id, file_id, created_at) VALUES (?, ?, ?)
	`, userID, fileID, time.Now().UTC()); err != nil {
		return fmt.Errorf("recording download event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// RecordFeedback inserts a rating and recomputes the file's running
// average and count from the full feedback set, in one transaction.
// Recomputing from scratch keeps the stored aggregate drift-free.
func (s *fileStore) RecordFeedback(
	ctx context.Context, fb domain.Feedback,
) (float64, int, error) {
	if !domain.ValidRating(fb.Rating) {
		return 0, 0, fmt.Errorf("rating %d: %w", fb.Rating, domain.ErrInvalidInput)
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var exists int
	if err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM files WHERE id = ?", fb.FileID).Scan(&exists); err != nil {
		return 0, 0, fmt.Errorf("checking file: %w", err)
	}
	if exists == 0 {
		return 0, 0, domain.ErrNotFound
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO feedback (user_id, file_id, rating, comment, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, fb.UserID, fb.FileID, fb.Rating, fb.Comment, time.Now().UTC()); err != nil {
		return 0, 0, fmt.Errorf("inserting feedback: %w", err)
	}

	var avg float64
	var count int
	if err := tx.QueryRowContext(ctx, `
		SELECT COALESCE(AVG(rating), 0), COUNT(*) FROM feedback WHERE file_id = ?
	`, fb.FileID).Scan(&avg, &count); err != nil {
		return 0, 0, fmt.Errorf("recomputing rating aggregate: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE files SET avg_rating = ?, rating_count = ? WHERE id = ?
	`, avg, count, fb.FileID); err != nil {
		return 0, 0, fmt.Errorf("storing rating aggregate: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("committing transaction: %w", err)
	}
	return avg, count, nil
}

// CountFiles returns the number of catalogued files.
func (s *fileStore) CountFiles(ctx context.Context) (int64, error) {
	var count int64
	if err := s.store.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM files").Scan(&count); err != nil {
		return 0, fmt.Errorf("counting files: %w", err)
	}
	return count, nil
}

// CountDownloads returns the number of recorded download events.
func (s *fileStore) CountDownloads(ctx context.Context) (int64, error) {
	var count int64
	if err := s.store.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM downloads").Scan(&count); err != nil {
		return 0, fmt.Errorf("counting downloads: %w", err)
	}
	return count, nil
}

// ==================== User Store ====================

// userStore implements driven.UserStore.
type userStore struct {
	store *Store
}

var _ driven.UserStore = (*userStore)(nil)

// UpsertUser inserts or updates a user. DisplayName and Handle are
// last-write-wins; first_seen is set once and never touched again.
func (s *userStore) UpsertUser(ctx context.Context, userID int64, displayName, handle string) error {
	now := time.Now().UTC()
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO users (user_id, display_name, handle, first_seen, last_interaction)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			display_name = excluded.display_name,
			handle = excluded.handle,
			last_interaction = excluded.last_interaction
	`, userID, displayName, handle, now, now)

	if err != nil {
		return fmt.Errorf("upserting user: %w", err)
	}
	return nil
}

// GetUser retrieves a user by ID.
func (s *userStore) GetUser(ctx context.Context, userID int64) (*domain.UserRecord, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT user_id, display_name, handle, first_seen, last_interaction
		FROM users WHERE user_id = ?
	`, userID)

	var user domain.UserRecord
	if err := row.Scan(&user.UserID, &user.DisplayName, &user.Handle,
		&user.FirstSeen, &user.LastInteraction); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning user: %w", err)
	}

	return &user, nil
}

// ListUserIDs returns every known user ID in ascending order.
func (s *userStore) ListUserIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.store.db.QueryContext(ctx,
		"SELECT user_id FROM users ORDER BY user_id")
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning user id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating users: %w", err)
	}
	return ids, nil
}

// CountUsers returns the number of known users.
func (s *userStore) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	if err := s.store.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		return 0, fmt.Errorf("counting users: %w", err)
	}
	return count, nil
}

// ==================== Settings Store ====================

// settingsStore implements driven.SettingsStore.
type settingsStore struct {
	store *Store
}

var _ driven.SettingsStore = (*settingsStore)(nil)

// Get retrieves a settings value by key.
func (s *settingsStore) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.store.db.QueryRowContext(ctx,
		"SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading setting %s: %w", key, err)
	}
	return value, true, nil
}

// Set stores a settings value, replacing any previous one.
func (s *settingsStore) Set(ctx context.Context, key, value string) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("writing setting %s: %w", key, err)
	}
	return nil
}

// IsLocked reports the global lock flag.
func (s *settingsStore) IsLocked(ctx context.Context) (bool, error) {
	value, ok, err := s.Get(ctx, domain.SettingLocked)
	if err != nil {
		return false, err
	}
	return ok && value == "true", nil
}

// SetLocked writes the global lock flag.
func (s *settingsStore) SetLocked(ctx context.Context, locked bool) error {
	return s.Set(ctx, domain.SettingLocked, boolValue(locked))
}

// IsBanned reports a user's ban flag.
func (s *settingsStore) IsBanned(ctx context.Context, userID int64) (bool, error) {
	value, ok, err := s.Get(ctx, domain.BanKey(userID))
	if err != nil {
		return false, err
	}
	return ok && value == "true", nil
}

// SetBanned writes a user's ban flag.
func (s *settingsStore) SetBanned(ctx context.Context, userID int64, banned bool) error {
	return s.Set(ctx, domain.BanKey(userID), boolValue(banned))
}

func boolValue(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// ==================== Helper Functions ====================

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanFile(scanner rowScanner) (*domain.FileRecord, error) {
	var record domain.FileRecord
	if err := scanner.Scan(&record.ID, &record.FileRef, &record.ContentFingerprint,
		&record.NormalizedName, &record.DisplayName, &record.SizeBytes,
		&record.SourceMessageRef, &record.SourceLocation, &record.DownloadCount,
		&record.CreatedAt, &record.Author, &record.Category, &record.Language,
		&record.Year, &record.PageCount, &record.AvgRating, &record.RatingCount,
		&record.PreviewRef); err != nil {
		return nil, err
	}
	return &record, nil
}

// scanFileRow scans a single file row.
func scanFileRow(row *sql.Row) (*domain.FileRecord, error) {
	record, err := scanFile(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning file: %w", err)
	}
	return record, nil
}

// scanFileRows scans a file from *sql.Rows.
func scanFileRows(rows *sql.Rows) (*domain.FileRecord, error) {
	record, err := scanFile(rows)
	if err != nil {
		return nil, fmt.Errorf("scanning file: %w", err)
	}
	return record, nil
}
