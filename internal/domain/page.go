package domain

// PageResult is a server-paginated collection envelope.
// Number is zero-based.
type PageResult[T any] struct {
	Content       []T   `json:"content"`
	Number        int   `json:"number"`
	Size          int   `json:"size"`
	TotalElements int64 `json:"totalElements"`
	TotalPages    int   `json:"totalPages"`
	First         bool  `json:"first"`
	Last          bool  `json:"last"`
	Empty         bool  `json:"empty"`
}

// Consistent reports whether the page metadata satisfies the envelope invariants:
// len(Content) <= Size, First == (Number == 0), Last == (Number == TotalPages-1).
// An empty result (TotalPages == 0) is both first and last.
func (p *PageResult[T]) Consistent() bool {
	if p.Size > 0 && len(p.Content) > p.Size {
		return false
	}
	if p.First != (p.Number == 0) {
		return false
	}
	if p.TotalPages == 0 {
		return p.Last
	}
	return p.Last == (p.Number == p.TotalPages-1)
}
