// Package pagination provides offset/limit page math shared by the
// query pipeline and the HTTP layer.
package pagination

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Page describes the requested window over a result list.
type Page struct {
	Limit  int
	Offset int
}

// Normalize clamps the page to sane bounds: a zero limit becomes
// DefaultLimit, anything above MaxLimit is capped. Negative values are
// the caller's validation problem and are left alone.
func (p Page) Normalize() Page {
	if p.Limit == 0 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	return p
}

// Slice applies the page window to a list of n items and returns the
// [start, end) bounds plus whether items remain past the window.
func (p Page) Slice(n int) (start, end int, hasMore bool) {
	start = p.Offset
	if start > n {
		start = n
	}
	end = start + p.Limit
	if end > n {
		end = n
	}
	return start, end, end < n
}

// Apply slices items to the page window.
func Apply[T any](items []T, p Page) ([]T, bool) {
	start, end, hasMore := p.Slice(len(items))
	return items[start:end], hasMore
}
