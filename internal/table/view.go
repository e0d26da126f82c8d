package table

// View is the state of one comparison table: active filters, sort and page.
// Methods return a new View; changing filters or sort resets to page 1.
type View[T any] struct {
	fields       Fields[T]
	predicates   []Predicate[T]
	sort         SortState
	page         int
	itemsPerPage int
}

// NewView starts a table at page 1 with the given default sort.
func NewView[T any](fields Fields[T], defaultSort SortState, itemsPerPage int) View[T] {
	if itemsPerPage < 1 {
		itemsPerPage = DefaultItemsPerPage
	}
	return View[T]{
		fields:       fields,
		sort:         defaultSort,
		page:         1,
		itemsPerPage: itemsPerPage,
	}
}

// Sort returns the active sort state.
func (v View[T]) Sort() SortState { return v.sort }

// RequestedPage is the page the view will ask for before clamping.
func (v View[T]) RequestedPage() int { return v.page }

// WithFilters replaces the active predicates.
func (v View[T]) WithFilters(predicates ...Predicate[T]) View[T] {
	v.predicates = append([]Predicate[T](nil), predicates...)
	v.page = 1
	return v
}

// WithSort replaces the sort state.
func (v View[T]) WithSort(state SortState) View[T] {
	v.sort = state
	v.page = 1
	return v
}

// ToggleSort applies a header activation on key.
func (v View[T]) ToggleSort(key string) View[T] {
	return v.WithSort(v.sort.Toggle(key))
}

// GoTo requests a page; the value is clamped when rendered.
func (v View[T]) GoTo(page int) View[T] {
	v.page = page
	return v
}

// Render runs filter, sort and paginate over records in that order.
func (v View[T]) Render(records []T) Page[T] {
	filtered := Filter(records, v.predicates...)
	sorted := Sort(filtered, v.fields, v.sort)
	return Paginate(sorted, v.page, v.itemsPerPage)
}
