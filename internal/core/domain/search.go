package domain

import "time"

// SearchSession holds the result list of one query, fixed at query
// time, plus the page the requester is currently looking at. It lives
// in the host's per-conversation state and is never persisted; a new
// query replaces it wholesale.
//
// Pagination only ever slices Results. The store is not re-queried
// between page turns, so concurrent ingestion cannot reorder or
// duplicate entries across pages of one session.
type SearchSession struct {
	Query     string
	Results   []FileRecord
	PageIndex int
	CreatedAt time.Time
}

// Page is one fixed-size slice of a session's results.
type Page struct {
	Items      []FileRecord
	PageIndex  int
	TotalPages int
	TotalItems int
	HasPrev    bool
	HasNext    bool
}

// Paginate slices results into the fixed-size page at pageIndex.
//
// TotalPages is ceil(len(results)/pageSize); zero results mean zero
// pages and an empty Page. An out-of-range pageIndex is clamped to the
// nearest valid page rather than rejected, so a stale "next" press
// after results shrank still lands somewhere sensible.
func Paginate(results []FileRecord, pageIndex, pageSize int) Page {
	if pageSize <= 0 {
		pageSize = 1
	}

	total := len(results)
	totalPages := (total + pageSize - 1) / pageSize
	if totalPages == 0 {
		return Page{Items: []FileRecord{}, TotalItems: 0}
	}

	// Clamp policy: out-of-range indexes land on the nearest page.
	if pageIndex < 0 {
		pageIndex = 0
	}
	if pageIndex >= totalPages {
		pageIndex = totalPages - 1
	}

	start := pageIndex * pageSize
	end := start + pageSize
	if end > total {
		end = total
	}

	return Page{
		Items:      results[start:end],
		PageIndex:  pageIndex,
		TotalPages: totalPages,
		TotalItems: total,
		HasPrev:    pageIndex > 0,
		HasNext:    pageIndex < totalPages-1,
	}
}
