package services

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/shelfbot/shelfbot/internal/core/domain"
)

// --- Mock implementations ---

// mockFileStore implements driven.FileStore in memory.
type mockFileStore struct {
	records     []domain.FileRecord
	nextID      int64
	insertCalls int
	insertErr   error
	searchErr   error
	downloads   []domain.Download
	feedback    []domain.Feedback
}

func newMockFileStore() *mockFileStore {
	return &mockFileStore{nextID: 1}
}

func (m *mockFileStore) InsertFile(
	_ context.Context, ann domain.FileAnnouncement,
) (domain.InsertOutcome, error) {
	m.insertCalls++
	if m.insertErr != nil {
		return domain.InsertOutcome{}, m.insertErr
	}

	for _, r := range m.records {
		if r.FileRef == ann.FileRef || r.ContentFingerprint == ann.ContentFingerprint {
			return domain.InsertOutcome{Inserted: false}, nil
		}
	}

	record := domain.FileRecord{
		ID:                 m.nextID,
		FileRef:            ann.FileRef,
		ContentFingerprint: ann.ContentFingerprint,
		NormalizedName:     domain.NormalizeName(domain.StripExtension(ann.DisplayName)),
		DisplayName:        ann.DisplayName,
		SizeBytes:          ann.SizeBytes,
		SourceMessageRef:   ann.SourceMessageRef,
		SourceLocation:     ann.SourceLocation,
		CreatedAt:          time.Now().UTC(),
	}
	m.nextID++
	// Prepend: most recently added first, as the real store orders.
	m.records = append([]domain.FileRecord{record}, m.records...)

	return domain.InsertOutcome{Inserted: true, File: &record}, nil
}

func (m *mockFileStore) Search(_ context.Context, query string) ([]domain.FileRecord, error) {
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	normalized := domain.NormalizeName(query)
	var out []domain.FileRecord
	for _, r := range m.records {
		if strings.Contains(r.NormalizedName, normalized) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockFileStore) GetFile(_ context.Context, id int64) (*domain.FileRecord, error) {
	for i := range m.records {
		if m.records[i].ID == id {
			return &m.records[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockFileStore) RecordDownload(_ context.Context, fileID, userID int64) error {
	for i := range m.records {
		if m.records[i].ID == fileID {
			m.records[i].DownloadCount++
			m.downloads = append(m.downloads, domain.Download{UserID: userID, FileID: fileID})
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *mockFileStore) RecordFeedback(
	_ context.Context, fb domain.Feedback,
) (float64, int, error) {
	for i := range m.records {
		if m.records[i].ID != fb.FileID {
			continue
		}
		m.feedback = append(m.feedback, fb)
		var sum, count int
		for _, f := range m.feedback {
			if f.FileID == fb.FileID {
				sum += f.Rating
				count++
			}
		}
		avg := float64(sum) / float64(count)
		m.records[i].AvgRating = avg
		m.records[i].RatingCount = count
		return avg, count, nil
	}
	return 0, 0, domain.ErrNotFound
}

func (m *mockFileStore) CountFiles(_ context.Context) (int64, error) {
	return int64(len(m.records)), nil
}

func (m *mockFileStore) CountDownloads(_ context.Context) (int64, error) {
	return int64(len(m.downloads)), nil
}

// mockUserStore implements driven.UserStore in memory.
type mockUserStore struct {
	users map[int64]domain.UserRecord
}

func newMockUserStore() *mockUserStore {
	return &mockUserStore{users: make(map[int64]domain.UserRecord)}
}

func (m *mockUserStore) UpsertUser(_ context.Context, userID int64, displayName, handle string) error {
	now := time.Now().UTC()
	u, ok := m.users[userID]
	if !ok {
		u = domain.UserRecord{UserID: userID, FirstSeen: now}
	}
	u.DisplayName = displayName
	u.Handle = handle
	u.LastInteraction = now
	m.users[userID] = u
	return nil
}

func (m *mockUserStore) GetUser(_ context.Context, userID int64) (*domain.UserRecord, error) {
	u, ok := m.users[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &u, nil
}

func (m *mockUserStore) CountUsers(_ context.Context) (int64, error) {
	return int64(len(m.users)), nil
}

func (m *mockUserStore) ListUserIDs(_ context.Context) ([]int64, error) {
	ids := make([]int64, 0, len(m.users))
	for id := range m.users {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// mockSettingsStore implements driven.SettingsStore in memory.
type mockSettingsStore struct {
	values map[string]string
}

func newMockSettingsStore() *mockSettingsStore {
	return &mockSettingsStore{values: make(map[string]string)}
}

func (m *mockSettingsStore) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *mockSettingsStore) Set(_ context.Context, key, value string) error {
	m.values[key] = value
	return nil
}

func (m *mockSettingsStore) IsLocked(ctx context.Context) (bool, error) {
	v, ok, _ := m.Get(ctx, domain.SettingLocked)
	return ok && v == "true", nil
}

func (m *mockSettingsStore) SetLocked(ctx context.Context, locked bool) error {
	return m.Set(ctx, domain.SettingLocked, boolString(locked))
}

func (m *mockSettingsStore) IsBanned(ctx context.Context, userID int64) (bool, error) {
	v, ok, _ := m.Get(ctx, domain.BanKey(userID))
	return ok && v == "true", nil
}

func (m *mockSettingsStore) SetBanned(ctx context.Context, userID int64, banned bool) error {
	return m.Set(ctx, domain.BanKey(userID), boolString(banned))
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// mockResetter implements driven.CatalogResetter.
type mockResetter struct {
	calls    int
	resetErr error
}

func (m *mockResetter) Reset(_ context.Context) error {
	if m.resetErr != nil {
		return m.resetErr
	}
	m.calls++
	return nil
}
