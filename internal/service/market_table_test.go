package service

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"testing"
	"time"

	"coin_tracker/internal/domain"
)

func namedRecords(names ...string) []domain.CoinRecord {
	out := make([]domain.CoinRecord, len(names))
	for i, n := range names {
		out[i] = domain.CoinRecord{ID: strings.ToLower(strings.ReplaceAll(n, " ", "-")), Name: n}
	}
	return out
}

func numberedRecords(n int) []domain.CoinRecord {
	out := make([]domain.CoinRecord, n)
	for i := range out {
		out[i] = domain.CoinRecord{ID: fmt.Sprintf("coin-%d", i), Name: fmt.Sprintf("Coin %d", i)}
	}
	return out
}

func names(records []domain.CoinRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Name
	}
	return out
}

func TestDerive_SearchFiltersByNameInOrder(t *testing.T) {
	records := namedRecords("Bitcoin", "Ethereum", "Bitcoin Cash")

	view := Derive(records, domain.QueryState{Search: "bit", PageSize: 10})

	got := names(view.Rows)
	if strings.Join(got, ",") != "Bitcoin,Bitcoin Cash" {
		t.Errorf("Expected [Bitcoin Bitcoin Cash], got %v", got)
	}
	if view.Filtered != 2 || view.Total != 3 {
		t.Errorf("Filtered/Total = %d/%d", view.Filtered, view.Total)
	}
}

func TestDerive_SearchIsCaseInsensitiveSubstring(t *testing.T) {
	records := namedRecords("Bitcoin", "Wrapped Bitcoin", "Ethereum", "Tether")

	cases := map[string][]string{
		"BIT":    {"Bitcoin", "Wrapped Bitcoin"},
		"coin":   {"Bitcoin", "Wrapped Bitcoin"},
		"ether":  {"Ethereum", "Tether"},
		"":       {"Bitcoin", "Wrapped Bitcoin", "Ethereum", "Tether"},
		"dogeXX": {},
		"w b":    {}, // no tokenization: "w b" is not a substring
	}
	for search, want := range cases {
		got := names(Derive(records, domain.QueryState{Search: search, PageSize: 50}).Rows)
		if strings.Join(got, ",") != strings.Join(want, ",") {
			t.Errorf("search %q: got %v, want %v", search, got, want)
		}
	}
}

func TestDerive_SecondPageOfTwelve(t *testing.T) {
	records := numberedRecords(12)

	view := Derive(records, domain.QueryState{Page: 1, PageSize: 10})

	if len(view.Rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(view.Rows))
	}
	if view.Rows[0].ID != "coin-10" || view.Rows[1].ID != "coin-11" {
		t.Errorf("Expected records[10..12), got %v", names(view.Rows))
	}
	if view.RangeLabel() != "11-12 of 12" {
		t.Errorf("RangeLabel = %q", view.RangeLabel())
	}
	if view.PageCount != 2 {
		t.Errorf("PageCount = %d", view.PageCount)
	}
}

func TestDerive_ShortResultFitsOnePage(t *testing.T) {
	records := numberedRecords(5)

	view := Derive(records, domain.QueryState{Page: 0, PageSize: 10})

	if len(view.Rows) != 5 {
		t.Errorf("Expected all 5 rows, got %d", len(view.Rows))
	}
	if view.RangeLabel() != "1-5 of 5" {
		t.Errorf("RangeLabel = %q", view.RangeLabel())
	}
}

func TestDerive_NonPositivePageSizeShowsEverything(t *testing.T) {
	records := numberedRecords(30)
	view := Derive(records, domain.QueryState{Page: 3, PageSize: 0})
	if len(view.Rows) != 30 {
		t.Errorf("Expected 30 rows, got %d", len(view.Rows))
	}
}

func TestDerive_EmptyResultSet(t *testing.T) {
	view := Derive(nil, domain.NewQueryState())
	if len(view.Rows) != 0 || view.Total != 0 || view.From != 0 || view.PageCount != 1 {
		t.Errorf("Unexpected empty view: %+v", view)
	}
}

// Displayed length is min(size, max(0, filtered - page*size)) for every page.
func TestDerive_SliceLengthProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 200; trial++ {
		n := rng.Intn(130)
		records := numberedRecords(n)
		for _, size := range domain.PageSizeOptions {
			for page := 0; page <= n/size+2; page++ {
				view := Derive(records, domain.QueryState{Page: page, PageSize: size})

				want := n - page*size
				if want < 0 {
					want = 0
				}
				if want > size {
					want = size
				}
				if len(view.Rows) != want {
					t.Fatalf("n=%d size=%d page=%d: got %d rows, want %d", n, size, page, len(view.Rows), want)
				}
				if page*size >= n && len(view.Rows) != 0 {
					t.Fatalf("n=%d size=%d page=%d: expected terminal empty page", n, size, page)
				}
			}
		}
	}
}

// Page indices whose page*size would overflow int still yield the terminal empty page.
func TestDerive_HugePageIndex(t *testing.T) {
	records := numberedRecords(12)

	var view PageView
	func() {
		defer func() {
			if r := recover(); r != nil {
				t.Fatalf("Derive panicked: %v", r)
			}
		}()
		view = Derive(records, domain.QueryState{Page: math.MaxInt/10 + 1, PageSize: 10})
	}()

	if len(view.Rows) != 0 || view.From != 0 || view.To != 0 {
		t.Errorf("Expected empty terminal page, got rows=%d range=%s", len(view.Rows), view.RangeLabel())
	}
	if view.Filtered != 12 || view.PageCount != 2 {
		t.Errorf("Unexpected counts: filtered=%d pages=%d", view.Filtered, view.PageCount)
	}
}

func TestDerive_BoundaryPageIndices(t *testing.T) {
	for _, n := range []int{0, 1, 12, 129} {
		records := numberedRecords(n)
		for _, size := range domain.PageSizeOptions {
			for _, page := range []int{math.MaxInt, math.MaxInt / size, math.MaxInt/size + 1} {
				if got := Paginate(records, page, size); len(got) != 0 {
					t.Errorf("Paginate n=%d size=%d page=%d: got %d rows", n, size, page, len(got))
				}
				view := Derive(records, domain.QueryState{Page: page, PageSize: size})
				if len(view.Rows) != 0 || view.From != 0 || view.To != 0 {
					t.Errorf("Derive n=%d size=%d page=%d: rows=%d from=%d to=%d",
						n, size, page, len(view.Rows), view.From, view.To)
				}
			}
		}
	}
}

func TestMarketTable_HugeSetPage(t *testing.T) {
	table := NewMarketTable(10)
	table.Replace(numberedRecords(25), time.Now())
	table.SetPage(math.MaxInt)

	view := table.View()
	if len(view.Rows) != 0 || view.RangeLabel() != "0-0 of 25" {
		t.Errorf("Expected empty page, got rows=%d range=%s", len(view.Rows), view.RangeLabel())
	}

	table.PrevPage()
	if got := table.Query().Page; got != math.MaxInt-1 {
		t.Errorf("Expected PrevPage to step back one, got %d", got)
	}
	table.LastPage()
	if got := table.View(); len(got.Rows) != 5 || got.RangeLabel() != "21-25 of 25" {
		t.Errorf("Last page: rows=%d range=%s", len(got.Rows), got.RangeLabel())
	}
}

// Every displayed record matches the search and no match is lost.
func TestDerive_FilterProperty(t *testing.T) {
	pool := []string{"Bitcoin", "Ethereum", "Bitcoin Cash", "Tether", "BNB", "Solana", "USD Coin", "Dogecoin", "Cardano", "TRON"}
	searches := []string{"", "b", "coin", "ETH", "an", "z", "o", "usd c"}

	rng := rand.New(rand.NewSource(11))
	for trial := 0; trial < 100; trial++ {
		var records []domain.CoinRecord
		for i := rng.Intn(60); i > 0; i-- {
			records = append(records, domain.CoinRecord{Name: pool[rng.Intn(len(pool))]})
		}
		for _, search := range searches {
			view := Derive(records, domain.QueryState{Search: search, PageSize: 0})
			expected := 0
			for _, r := range records {
				if strings.Contains(strings.ToLower(r.Name), strings.ToLower(search)) {
					expected++
				}
			}
			if len(view.Rows) != expected {
				t.Fatalf("search %q: %d rows, expected %d", search, len(view.Rows), expected)
			}
			for _, r := range view.Rows {
				if !strings.Contains(strings.ToLower(r.Name), strings.ToLower(search)) {
					t.Fatalf("search %q displayed non-matching %q", search, r.Name)
				}
			}
		}
	}
}

func TestMarketTable_SetPageSizeResetsPage(t *testing.T) {
	table := NewMarketTable(10)
	table.Replace(numberedRecords(120), time.Now())

	for _, size := range domain.PageSizeOptions {
		table.SetPage(3)
		if err := table.SetPageSize(size); err != nil {
			t.Fatalf("SetPageSize(%d): %v", size, err)
		}
		q := table.Query()
		if q.Page != 0 || q.PageSize != size {
			t.Errorf("After SetPageSize(%d): %+v", size, q)
		}
	}
}

func TestMarketTable_SetPageSizeRejectsUnknownSizes(t *testing.T) {
	table := NewMarketTable(25)
	table.SetPage(2)

	err := table.SetPageSize(30)
	if !errors.Is(err, domain.ErrInvalidPageSize) {
		t.Fatalf("Expected ErrInvalidPageSize, got %v", err)
	}
	q := table.Query()
	if q.PageSize != 25 || q.Page != 2 {
		t.Errorf("Rejected size must not change state: %+v", q)
	}
}

// Narrowing the search resets the page so the view cannot be stranded
// past the end of the filtered set.
func TestMarketTable_SetSearchResetsPage(t *testing.T) {
	table := NewMarketTable(10)
	records := numberedRecords(40)
	records = append(records, namedRecords("Bitcoin", "Bitcoin Cash")...)
	table.Replace(records, time.Now())

	table.SetPage(3)
	table.SetSearch("bitcoin")

	view := table.View()
	if view.Query.Page != 0 {
		t.Errorf("Expected page reset to 0, got %d", view.Query.Page)
	}
	if len(view.Rows) != 2 {
		t.Errorf("Expected 2 rows, got %d", len(view.Rows))
	}

	// Re-setting the same text is not a change
	table.SetPage(1)
	table.SetSearch("bitcoin")
	if table.Query().Page != 1 {
		t.Error("Identical search should not reset the page")
	}
}

func TestMarketTable_SetPageIsUnbounded(t *testing.T) {
	table := NewMarketTable(10)
	table.Replace(numberedRecords(12), time.Now())

	table.SetPage(99)
	view := table.View()
	if view.Query.Page != 99 {
		t.Errorf("SetPage should store the index as-is, got %d", view.Query.Page)
	}
	if len(view.Rows) != 0 {
		t.Errorf("Out-of-range page should be empty, got %d rows", len(view.Rows))
	}

	table.SetPage(-4)
	if table.Query().Page != 0 {
		t.Errorf("Negative page should clamp to 0, got %d", table.Query().Page)
	}
}

func TestMarketTable_Navigation(t *testing.T) {
	table := NewMarketTable(10)
	table.Replace(numberedRecords(25), time.Now())

	table.PrevPage()
	if table.Query().Page != 0 {
		t.Error("PrevPage must stop at 0")
	}

	table.NextPage()
	table.NextPage()
	table.NextPage()
	if table.Query().Page != 2 {
		t.Errorf("NextPage must stop at last page, got %d", table.Query().Page)
	}

	table.FirstPage()
	if table.Query().Page != 0 {
		t.Error("FirstPage should go to 0")
	}

	table.LastPage()
	if table.Query().Page != 2 {
		t.Errorf("LastPage = %d, want 2", table.Query().Page)
	}

	// Last page is computed on the filtered set
	table.SetSearch("Coin 1")
	table.LastPage()
	if p := table.Query().Page; p != 1 {
		t.Errorf("LastPage over 11 filtered rows = %d, want 1", p)
	}
}

func TestMarketTable_ReplaceIsWholesale(t *testing.T) {
	table := NewMarketTable(10)
	if len(table.Records()) != 0 {
		t.Fatal("New table should be empty")
	}

	first := numberedRecords(3)
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	table.Replace(first, at)
	first[0].Name = "mutated"

	got := table.Records()
	if got[0].Name != "Coin 0" {
		t.Error("Replace must copy its input")
	}
	if !table.UpdatedAt().Equal(at) {
		t.Errorf("UpdatedAt = %v", table.UpdatedAt())
	}

	table.SetSearch("coin")
	table.Replace(numberedRecords(1), at.Add(time.Minute))
	if len(table.Records()) != 1 {
		t.Error("Second Replace should discard the previous set")
	}
	if table.Query().Search != "coin" {
		t.Error("Replace must not touch the query")
	}
}

func TestNewMarketTable_InvalidSizeFallsBack(t *testing.T) {
	if got := NewMarketTable(7).Query().PageSize; got != domain.DefaultPageSize {
		t.Errorf("PageSize = %d, want default", got)
	}
}
