package service

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"coin_tracker/internal/domain"
)

// PageView is the derived, displayable state of a MarketTable.
type PageView struct {
	Rows      []domain.CoinRecord `json:"rows"`
	Query     domain.QueryState   `json:"query"`
	Total     int                 `json:"total"`      // records in the result set
	Filtered  int                 `json:"filtered"`   // records matching the search
	PageCount int                 `json:"page_count"` // pages over the filtered set
	From      int                 `json:"from"`       // 1-based, 0 when the page is empty
	To        int                 `json:"to"`
}

// RangeLabel renders the "1-10 of 250" pagination label.
func (v PageView) RangeLabel() string {
	return fmt.Sprintf("%d-%d of %d", v.From, v.To, v.Filtered)
}

// FilterByName keeps records whose name contains search, case-insensitively,
// in their original relative order. An empty search keeps everything.
func FilterByName(records []domain.CoinRecord, search string) []domain.CoinRecord {
	if search == "" {
		return records
	}
	needle := strings.ToLower(search)
	out := make([]domain.CoinRecord, 0, len(records))
	for _, r := range records {
		if strings.Contains(strings.ToLower(r.Name), needle) {
			out = append(out, r)
		}
	}
	return out
}

// Paginate returns the page-th slice of size items. It never panics:
// out-of-range pages yield an empty slice and size <= 0 returns everything.
func Paginate(filtered []domain.CoinRecord, page, size int) []domain.CoinRecord {
	if size <= 0 {
		return filtered
	}
	if page < 0 {
		page = 0
	}
	// Compare against the last page index first so page*size cannot overflow.
	if len(filtered) == 0 || page > (len(filtered)-1)/size {
		return []domain.CoinRecord{}
	}
	start := page * size
	end := start + size
	if end > len(filtered) {
		end = len(filtered)
	}
	return filtered[start:end]
}

// PageCount returns the number of pages needed for n items.
func PageCount(n, size int) int {
	if size <= 0 || n == 0 {
		return 1
	}
	return (n + size - 1) / size
}

// Derive computes the displayed page from a result set and query.
// It is a pure function of its inputs.
func Derive(records []domain.CoinRecord, q domain.QueryState) PageView {
	filtered := FilterByName(records, q.Search)
	rows := Paginate(filtered, q.Page, q.PageSize)

	view := PageView{
		Rows:      domain.CloneRecords(rows),
		Query:     q,
		Total:     len(records),
		Filtered:  len(filtered),
		PageCount: PageCount(len(filtered), q.PageSize),
	}
	// rows is non-empty only for an in-range page, so offset stays below Filtered.
	if len(rows) > 0 {
		offset := 0
		if q.PageSize > 0 && q.Page > 0 {
			offset = q.Page * q.PageSize
		}
		view.From = offset + 1
		view.To = offset + len(rows)
	}
	return view
}

// MarketTable owns one view's result set and query state.
type MarketTable struct {
	mu        sync.RWMutex
	records   []domain.CoinRecord
	query     domain.QueryState
	updatedAt time.Time
}

// NewMarketTable creates an empty table. An invalid pageSize falls back to the default.
func NewMarketTable(pageSize int) *MarketTable {
	q := domain.NewQueryState()
	if domain.IsValidPageSize(pageSize) {
		q.PageSize = pageSize
	}
	return &MarketTable{
		records: []domain.CoinRecord{},
		query:   q,
	}
}

// Replace swaps the whole result set. Query state is left alone.
func (t *MarketTable) Replace(records []domain.CoinRecord, at time.Time) {
	cp := domain.CloneRecords(records)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.records = cp
	t.updatedAt = at
}

// Records returns a copy of the current result set.
func (t *MarketTable) Records() []domain.CoinRecord {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return domain.CloneRecords(t.records)
}

// UpdatedAt returns when the result set was last replaced.
func (t *MarketTable) UpdatedAt() time.Time {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.updatedAt
}

// Query returns the current query state.
func (t *MarketTable) Query() domain.QueryState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.query
}

// SetSearch replaces the search string and returns to the first page,
// so narrowing the filter never leaves the view past the last page.
func (t *MarketTable) SetSearch(text string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.query.Search == text {
		return
	}
	t.query.Search = text
	t.query.Page = 0
}

// SetPage sets the page index without checking it against the filtered
// length. Negative indices are stored as 0.
func (t *MarketTable) SetPage(index int) {
	if index < 0 {
		index = 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.query.Page = index
}

// SetPageSize changes the rows per page and resets to the first page.
func (t *MarketTable) SetPageSize(size int) error {
	if !domain.IsValidPageSize(size) {
		return fmt.Errorf("%w: %d", domain.ErrInvalidPageSize, size)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.query.PageSize = size
	t.query.Page = 0
	return nil
}

// FirstPage jumps to page 0.
func (t *MarketTable) FirstPage() {
	t.SetPage(0)
}

// PrevPage moves one page back, stopping at 0.
func (t *MarketTable) PrevPage() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.query.Page > 0 {
		t.query.Page--
	}
}

// NextPage moves one page forward, stopping at the last filtered page.
func (t *MarketTable) NextPage() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.query.Page < t.lastPageLocked() {
		t.query.Page++
	}
}

// LastPage jumps to the last filtered page.
func (t *MarketTable) LastPage() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.query.Page = t.lastPageLocked()
}

func (t *MarketTable) lastPageLocked() int {
	n := len(FilterByName(t.records, t.query.Search))
	return PageCount(n, t.query.PageSize) - 1
}

// View derives the current page.
func (t *MarketTable) View() PageView {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return Derive(t.records, t.query)
}
