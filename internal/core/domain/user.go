package domain

import "time"

// UserRecord is one distinct end user who has interacted with the bot.
// DisplayName and Handle are overwritten on every interaction; FirstSeen
// is set once.
type UserRecord struct {
	UserID          int64
	DisplayName     string
	Handle          string
	FirstSeen       time.Time
	LastInteraction time.Time
}

// Feedback is one user rating of one file.
type Feedback struct {
	ID        int64
	UserID    int64
	FileID    int64
	Rating    int // 1..5
	Comment   string
	CreatedAt time.Time
}

// ValidRating reports whether r is an acceptable feedback rating.
func ValidRating(r int) bool {
	return r >= 1 && r <= 5
}

// Download is one audit-trail entry backing a file's download counter.
type Download struct {
	ID        int64
	UserID    int64
	FileID    int64
	CreatedAt time.Time
}

// CatalogStats is a point-in-time summary of catalog contents.
type CatalogStats struct {
	Files     int64
	Users     int64
	Downloads int64
}
