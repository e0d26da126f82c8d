package table

// DefaultItemsPerPage is used when a page size below one is requested.
const DefaultItemsPerPage = 10

// Page is one slice of an ordered result set.
type Page[T any] struct {
	Records      []T
	CurrentPage  int
	TotalPages   int
	TotalItems   int
	ItemsPerPage int
}

// HasNext reports whether a later page exists.
func (p Page[T]) HasNext() bool { return p.CurrentPage < p.TotalPages }

// HasPrev reports whether an earlier page exists.
func (p Page[T]) HasPrev() bool { return p.CurrentPage > 1 }

// FirstIndex is the 1-based position of the first record on the page, 0 when empty.
func (p Page[T]) FirstIndex() int {
	if len(p.Records) == 0 {
		return 0
	}
	return (p.CurrentPage-1)*p.ItemsPerPage + 1
}

// LastIndex is the 1-based position of the last record on the page, 0 when empty.
func (p Page[T]) LastIndex() int {
	if len(p.Records) == 0 {
		return 0
	}
	return p.FirstIndex() + len(p.Records) - 1
}

// TotalPages is ceil(totalItems/perPage) and never below one.
func TotalPages(totalItems, perPage int) int {
	if perPage < 1 {
		perPage = DefaultItemsPerPage
	}
	pages := (totalItems + perPage - 1) / perPage
	if pages < 1 {
		return 1
	}
	return pages
}

// ClampPage moves page into [1, totalPages].
func ClampPage(page, totalPages int) int {
	if totalPages < 1 {
		totalPages = 1
	}
	if page < 1 {
		return 1
	}
	if page > totalPages {
		return totalPages
	}
	return page
}

// Paginate slices records for the requested page. Out-of-range pages are
// clamped rather than rejected.
func Paginate[T any](records []T, page, perPage int) Page[T] {
	if perPage < 1 {
		perPage = DefaultItemsPerPage
	}
	total := len(records)
	pages := TotalPages(total, perPage)
	page = ClampPage(page, pages)

	start := (page - 1) * perPage
	end := min(start+perPage, total)

	return Page[T]{
		Records:      records[start:end:end],
		CurrentPage:  page,
		TotalPages:   pages,
		TotalItems:   total,
		ItemsPerPage: perPage,
	}
}
