package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shelfbot/shelfbot/internal/core/domain"
	"github.com/shelfbot/shelfbot/internal/core/ports/driven"
	"github.com/shelfbot/shelfbot/internal/core/ports/driving"
	"github.com/shelfbot/shelfbot/internal/logger"
)

// Ensure SearchService implements the interface.
var _ driving.SearchService = (*SearchService)(nil)

// DefaultPageSize is the fixed page size used when none is configured.
const DefaultPageSize = 10

// SearchService executes normalized substring searches against the
// catalog and paginates their results.
type SearchService struct {
	files    driven.FileStore
	pageSize int
}

// NewSearchService creates a search service with the given fixed page
// size. pageSize <= 0 falls back to DefaultPageSize.
func NewSearchService(files driven.FileStore, pageSize int) *SearchService {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &SearchService{
		files:    files,
		pageSize: pageSize,
	}
}

// PageSize returns the fixed page size.
func (s *SearchService) PageSize() int {
	return s.pageSize
}

// Search runs the query and returns a session holding the full result
// list, fixed at query time. Blank and whitespace-only queries are
// rejected with domain.ErrEmptyQuery before the store is consulted.
func (s *SearchService) Search(ctx context.Context, query string) (*domain.SearchSession, error) {
	if strings.TrimSpace(query) == "" {
		return nil, domain.ErrEmptyQuery
	}

	results, err := s.files.Search(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}

	logger.Debug("search %q: %d results", query, len(results))

	return &domain.SearchSession{
		Query:     query,
		Results:   results,
		PageIndex: 0,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// Paginate slices the session's fixed result list into the page at
// pageIndex and records it as the session's current page. Out-of-range
// indexes clamp to the nearest valid page. The store is never
// re-queried, so page contents are stable regardless of concurrent
// ingestion.
func (s *SearchService) Paginate(session *domain.SearchSession, pageIndex int) domain.Page {
	page := domain.Paginate(session.Results, pageIndex, s.pageSize)
	session.PageIndex = page.PageIndex
	return page
}
