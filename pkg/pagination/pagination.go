package pagination

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/angelmondragon/forkfinderz-realtime/pkg/enums"
)

const (
	// DefaultSize is the standard page size when a size is not provided.
	DefaultSize = 10
	// MaxSize caps how many rows any page request can ask for.
	MaxSize = 100
	// DefaultSortBy orders notification history newest first together with DESC.
	DefaultSortBy = "createdAt"
)

// Request holds page-number pagination inputs for the backend's list endpoints.
type Request struct {
	Page          int
	Size          int
	SortBy        string
	SortDirection enums.SortDirection
}

// Page mirrors the backend's paged response body.
type Page[T any] struct {
	Content       []T   `json:"content"`
	TotalPages    int   `json:"totalPages"`
	TotalElements int64 `json:"totalElements"`
	Number        int   `json:"number"`
	Size          int   `json:"size"`
	Last          bool  `json:"last"`
}

// NormalizeSize enforces the configured default and maximum sizes.
func NormalizeSize(size int) int {
	if size <= 0 {
		return DefaultSize
	}
	if size > MaxSize {
		return MaxSize
	}
	return size
}

// Normalize fills defaults and clamps bounds.
func (r Request) Normalize() Request {
	if r.Page < 0 {
		r.Page = 0
	}
	r.Size = NormalizeSize(r.Size)
	if strings.TrimSpace(r.SortBy) == "" {
		r.SortBy = DefaultSortBy
	}
	if r.SortDirection == "" {
		r.SortDirection = enums.SortDirectionDesc
	}
	return r
}

// Query encodes the request as page/size/sortBy/sortDirection parameters.
func (r Request) Query() url.Values {
	n := r.Normalize()
	q := url.Values{}
	q.Set("page", strconv.Itoa(n.Page))
	q.Set("size", strconv.Itoa(n.Size))
	q.Set("sortBy", n.SortBy)
	q.Set("sortDirection", string(n.SortDirection))
	return q
}

// HasNext reports whether another page follows this one.
func (p Page[T]) HasNext() bool {
	if p.Last {
		return false
	}
	return p.Number+1 < p.TotalPages
}
