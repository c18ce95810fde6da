package liststate

// Query is the derivation input held by a controller.
type Query struct {
	Search  string
	Filters []ActiveFilter
	Sort    SortState
	Page    PageState
}

// Result is one derived page.
type Result[T any] struct {
	Rows      []T
	Total     int
	Page      PageState
	PageCount int
}

// Derive filters, sorts and slices rows. It is a pure function of its inputs.
func (s *Schema[T]) Derive(rows []T, q Query) Result[T] {
	filtered := s.Filter(rows, q.Search, q.Filters)
	sorted := s.Sort(filtered, q.Sort)
	page, state := Paginate(sorted, q.Page)
	return Result[T]{
		Rows:      page,
		Total:     len(sorted),
		Page:      state,
		PageCount: PageCount(len(sorted), state.RowsPerPage),
	}
}

// PageCount returns the number of pages for total rows, at least one.
func PageCount(total, rowsPerPage int) int {
	if rowsPerPage <= 0 {
		rowsPerPage = DefaultRowsPerPage
	}
	if total <= 0 {
		return 1
	}
	return (total + rowsPerPage - 1) / rowsPerPage
}

// ClampPage keeps p.Page inside [0, last page] for total rows.
func ClampPage(p PageState, total int) PageState {
	if !ValidRowsPerPage(p.RowsPerPage) {
		p.RowsPerPage = DefaultRowsPerPage
	}
	last := PageCount(total, p.RowsPerPage) - 1
	if p.Page > last {
		p.Page = last
	}
	if p.Page < 0 {
		p.Page = 0
	}
	return p
}

// Paginate returns the rows of the clamped page and the clamped state.
func Paginate[T any](rows []T, p PageState) ([]T, PageState) {
	p = ClampPage(p, len(rows))
	start := p.Page * p.RowsPerPage
	if start >= len(rows) {
		return []T{}, p
	}
	end := min(start+p.RowsPerPage, len(rows))
	return rows[start:end], p
}
