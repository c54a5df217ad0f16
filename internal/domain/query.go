package domain

// DefaultPageSize is the number of rows shown before the user picks another size.
const DefaultPageSize = 10

// PageSizeOptions is the fixed set of rows-per-page choices.
var PageSizeOptions = []int{10, 25, 50}

// QueryState is the transient search text, page index and page size
// controlling which slice of the result set is displayed.
type QueryState struct {
	Search   string `json:"search"`
	Page     int    `json:"page"`      // zero-based
	PageSize int    `json:"page_size"` // one of PageSizeOptions
}

// NewQueryState returns the initial query state: no search, first page,
// default page size.
func NewQueryState() QueryState {
	return QueryState{PageSize: DefaultPageSize}
}

// IsValidPageSize reports whether size is one of PageSizeOptions.
func IsValidPageSize(size int) bool {
	for _, opt := range PageSizeOptions {
		if opt == size {
			return true
		}
	}
	return false
}

// NextPageSize returns the option following size, wrapping around.
// Unknown sizes map to the first option.
func NextPageSize(size int) int {
	for i, opt := range PageSizeOptions {
		if opt == size {
			return PageSizeOptions[(i+1)%len(PageSizeOptions)]
		}
	}
	return PageSizeOptions[0]
}
