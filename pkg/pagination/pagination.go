package pagination

import (
	"fmt"
	"math"
)

const (
	// DefaultPage is used when the caller omits the page number.
	DefaultPage = 1
	// DefaultPageSize is the standard page size when one is not provided.
	DefaultPageSize = 12
	// MaxPageSize caps how many rows a single page can request.
	MaxPageSize = 100
)

// Params holds offset pagination inputs from controllers or services.
type Params struct {
	Page     int
	PageSize int
}

// Normalize fills defaults and caps the page size. Zero values mean "not provided".
func Normalize(page, pageSize *int) (Params, error) {
	p := Params{Page: DefaultPage, PageSize: DefaultPageSize}
	if page != nil {
		if *page < 1 {
			return Params{}, fmt.Errorf("page must be at least 1")
		}
		p.Page = *page
	}
	if pageSize != nil {
		if *pageSize <= 0 {
			return Params{}, fmt.Errorf("pageSize must be greater than 0")
		}
		p.PageSize = *pageSize
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
	return p, nil
}

// Offset returns the number of rows skipped before this page. It saturates
// at math.MaxInt so a huge page number still lands past the last row.
func (p Params) Offset() int {
	if p.Page <= 1 || p.PageSize <= 0 {
		return 0
	}
	if p.Page-1 > math.MaxInt/p.PageSize {
		return math.MaxInt
	}
	return (p.Page - 1) * p.PageSize
}

// TotalPages returns ceil(total/pageSize).
func (p Params) TotalPages(total int64) int {
	if p.PageSize <= 0 || total <= 0 {
		return 0
	}
	size := int64(p.PageSize)
	return int((total + size - 1) / size)
}
