package pagination

const (
	// DefaultLimit is the standard page size when a limit is not provided.
	DefaultLimit = 10
	// PublicMaxLimit caps page sizes on the public listings.
	PublicMaxLimit = 50
	// AdminMaxLimit caps page sizes on the administrator listing.
	AdminMaxLimit = 100
)

// Params holds 1-indexed page inputs from controllers or services.
type Params struct {
	Page  int
	Limit int
}

// Page describes where a result set sits within the full match count.
type Page struct {
	CurrentPage int   `json:"currentPage"`
	TotalPages  int   `json:"totalPages"`
	TotalCount  int64 `json:"totalCount"`
	PageSize    int   `json:"pageSize"`
	HasNextPage bool  `json:"hasNextPage"`
	HasPrevPage bool  `json:"hasPrevPage"`
}

// Normalize applies the default page and limit, capping the limit at max.
func (p Params) Normalize(max int) Params {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	if max > 0 && p.Limit > max {
		p.Limit = max
	}
	return p
}

// Offset is the number of rows skipped before this page.
func (p Params) Offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit
}

// NewPage builds the pagination block for a normalized request and total.
func NewPage(p Params, total int64) Page {
	totalPages := 0
	if p.Limit > 0 {
		totalPages = int((total + int64(p.Limit) - 1) / int64(p.Limit))
	}
	return Page{
		CurrentPage: p.Page,
		TotalPages:  totalPages,
		TotalCount:  total,
		PageSize:    p.Limit,
		HasNextPage: p.Page < totalPages,
		HasPrevPage: p.Page > 1,
	}
}
