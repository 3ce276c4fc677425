package services

import (
	"context"
	"fmt"

	"github.com/shelfbot/shelfbot/internal/core/domain"
	"github.com/shelfbot/shelfbot/internal/core/ports/driven"
	"github.com/shelfbot/shelfbot/internal/core/ports/driving"
	"github.com/shelfbot/shelfbot/internal/logger"
)

// Ensure IngestService implements the interface.
var _ driving.IngestService = (*IngestService)(nil)

// IngestService validates incoming file announcements and commits them
// to the catalog. Each announcement ends in exactly one terminal state:
// accepted, rejected as too large, or rejected as a duplicate.
type IngestService struct {
	files        driven.FileStore
	maxSizeBytes int64
}

// NewIngestService creates an ingestion pipeline with the given size
// limit. Announcements above maxSizeBytes are rejected before the store
// is touched.
func NewIngestService(files driven.FileStore, maxSizeBytes int64) *IngestService {
	return &IngestService{
		files:        files,
		maxSizeBytes: maxSizeBytes,
	}
}

// Ingest runs one announcement through the pipeline.
//
// The size check comes first: an oversized announcement never reaches
// the store. Duplicate detection is delegated entirely to the store's
// uniqueness invariant; the pipeline attempts the insert and reads the
// outcome rather than pre-checking.
func (s *IngestService) Ingest(
	ctx context.Context, ann domain.FileAnnouncement,
) (domain.IngestOutcome, error) {
	if ann.SizeBytes > s.maxSizeBytes {
		logger.Info("ingest: rejected %q, %s over the %s limit",
			ann.DisplayName, domain.FormatSize(ann.SizeBytes), domain.FormatSize(s.maxSizeBytes))
		return domain.IngestOutcome{
			Status:       domain.IngestRejectedTooLarge,
			MaxSizeBytes: s.maxSizeBytes,
		}, nil
	}

	outcome, err := s.files.InsertFile(ctx, ann)
	if err != nil {
		return domain.IngestOutcome{}, fmt.Errorf("ingest %q: %w", ann.DisplayName, err)
	}

	if !outcome.Inserted {
		logger.Info("ingest: duplicate %q", ann.DisplayName)
		return domain.IngestOutcome{Status: domain.IngestRejectedDuplicate}, nil
	}

	logger.Info("ingest: accepted %q (%s)", ann.DisplayName, domain.FormatSize(ann.SizeBytes))
	return domain.IngestOutcome{
		Status: domain.IngestAccepted,
		File:   outcome.File,
	}, nil
}
