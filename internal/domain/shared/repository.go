package shared

// Filter holds common pagination and sorting options for repository queries
type Filter struct {
	Page     int
	PageSize int
	SortBy   string
	SortDesc bool
}

// DefaultFilter returns a filter with sane pagination defaults
func DefaultFilter() Filter {
	return Filter{
		Page:     1,
		PageSize: 50,
	}
}

// Paginated wraps a page of results with totals
type Paginated[T any] struct {
	Items    []T   `json:"items"`
	Total    int64 `json:"total"`
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
}

// NewPaginated creates a paginated result set
func NewPaginated[T any](items []T, total int64, page, pageSize int) Paginated[T] {
	return Paginated[T]{
		Items:    items,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}
}
