package domain

import "time"

// FileRecord is one catalogued document.
type FileRecord struct {
	// ID is assigned by the store on insert and never changes.
	ID int64

	// FileRef is the opaque upstream file identifier. Globally unique.
	FileRef string

	// ContentFingerprint is the upstream's stable identifier for the
	// underlying binary content. Globally unique; distinguishes a
	// re-upload of identical bytes from a genuinely new file.
	ContentFingerprint string

	// NormalizedName is the canonical search key, derived from the
	// display name (minus extension) at insert time. Not unique.
	NormalizedName string

	// DisplayName is the original, human-readable filename.
	DisplayName string

	// SizeBytes is the file size. Non-negative, capped at ingestion.
	SizeBytes int64

	// SourceMessageRef locates the originating announcement.
	SourceMessageRef int

	// SourceLocation identifies the channel or group the file came from.
	SourceLocation int64

	// DownloadCount counts successful retrievals.
	DownloadCount int64

	// CreatedAt is set on insert and never changes.
	CreatedAt time.Time

	// Optional descriptive metadata. Zero values mean "not supplied".
	Author      string
	Category    string
	Language    string
	Year        int
	PageCount   int
	AvgRating   float64
	RatingCount int
	PreviewRef  string
}

// FileAnnouncement is the input to the ingestion pipeline: everything
// known about an incoming file before it is catalogued.
type FileAnnouncement struct {
	FileRef            string
	ContentFingerprint string
	DisplayName        string
	SizeBytes          int64
	SourceMessageRef   int
	SourceLocation     int64

	// Optional metadata carried through to the record.
	Author     string
	Category   string
	Language   string
	Year       int
	PageCount  int
	PreviewRef string
}

// InsertOutcome is the result of a catalog insert attempt. A duplicate
// is a normal variant, not an error.
type InsertOutcome struct {
	// Inserted is true when a new record was committed.
	Inserted bool

	// File is the stored record when Inserted is true.
	File *FileRecord
}

// IngestStatus classifies the terminal state of an ingestion attempt.
type IngestStatus int

const (
	// IngestAccepted means the file was catalogued.
	IngestAccepted IngestStatus = iota

	// IngestRejectedTooLarge means the announcement exceeded the size
	// limit and never reached the store.
	IngestRejectedTooLarge

	// IngestRejectedDuplicate means the catalog already holds this file.
	IngestRejectedDuplicate
)

// String returns a short reason code for the status.
func (s IngestStatus) String() string {
	switch s {
	case IngestAccepted:
		return "accepted"
	case IngestRejectedTooLarge:
		return "rejected_too_large"
	case IngestRejectedDuplicate:
		return "rejected_duplicate"
	default:
		return "unknown"
	}
}

// IngestOutcome is the terminal result of the ingestion pipeline for
// one announcement.
type IngestOutcome struct {
	Status IngestStatus

	// File is set when Status is IngestAccepted.
	File *FileRecord

	// MaxSizeBytes is set when Status is IngestRejectedTooLarge so the
	// boundary can phrase the rejection.
	MaxSizeBytes int64
}
