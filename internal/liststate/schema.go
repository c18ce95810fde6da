package liststate

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/cases"
)

// Field binds a column or filter key to accessors on the row type.
type Field[T any] struct {
	// ID matches a ColumnConfig.ID and is the sort key.
	ID string
	// FilterKey optionally names the filter key when it differs from ID.
	FilterKey string
	// Searchable includes the field in text search.
	Searchable bool
	// Text renders the field as a single string.
	Text func(T) string
	// Values returns the field as a value set (tags, platforms). When nil the
	// single Text value is used.
	Values func(T) []string
	// Compare overrides the default case-folded string ordering.
	Compare func(a, b T) int
}

func (f Field[T]) sortable() bool {
	return f.Compare != nil || f.Text != nil
}

func (f Field[T]) valueSet(row T) []string {
	if f.Values != nil {
		return f.Values(row)
	}
	if f.Text != nil {
		return []string{f.Text(row)}
	}
	return nil
}

// Schema describes one list identity: its declared columns, pinned columns,
// default sort and the field accessors used for derivation.
type Schema[T any] struct {
	List        string
	Columns     []ColumnConfig
	Pinned      []string
	DefaultSort SortState

	fields     map[string]Field[T]
	filterKeys map[string]string
	searchable []string
}

// NewSchema validates the definition and indexes the fields.
func NewSchema[T any](list string, columns []ColumnConfig, pinned []string, defaultSort SortState, fields ...Field[T]) (*Schema[T], error) {
	if strings.TrimSpace(list) == "" {
		return nil, fmt.Errorf("liststate: schema requires a list identity")
	}
	seen := make(map[string]struct{}, len(columns))
	for _, col := range columns {
		if col.ID == "" {
			return nil, fmt.Errorf("liststate: %s: column without id", list)
		}
		if _, dup := seen[col.ID]; dup {
			return nil, fmt.Errorf("liststate: %s: duplicate column %q", list, col.ID)
		}
		seen[col.ID] = struct{}{}
	}
	for _, id := range pinned {
		if _, ok := seen[id]; !ok {
			return nil, fmt.Errorf("liststate: %s: pinned column %q not declared", list, id)
		}
	}

	s := &Schema[T]{
		List:        list,
		Columns:     cloneColumns(columns),
		Pinned:      append([]string(nil), pinned...),
		DefaultSort: defaultSort,
		fields:      make(map[string]Field[T], len(fields)),
		filterKeys:  make(map[string]string, len(fields)),
	}
	for _, f := range fields {
		if f.ID == "" {
			return nil, fmt.Errorf("liststate: %s: field without id", list)
		}
		if _, dup := s.fields[f.ID]; dup {
			return nil, fmt.Errorf("liststate: %s: duplicate field %q", list, f.ID)
		}
		s.fields[f.ID] = f
		s.filterKeys[f.ID] = f.ID
		if f.FilterKey != "" {
			s.filterKeys[f.FilterKey] = f.ID
		}
		if f.Searchable {
			s.searchable = append(s.searchable, f.ID)
		}
	}

	if s.DefaultSort.Order == "" {
		s.DefaultSort.Order = Asc
	}
	if s.DefaultSort.OrderBy != "" && !s.Sortable(s.DefaultSort.OrderBy) {
		return nil, fmt.Errorf("liststate: %s: default sort %q is not sortable", list, s.DefaultSort.OrderBy)
	}
	return s, nil
}

// MustSchema is NewSchema for package level definitions.
func MustSchema[T any](list string, columns []ColumnConfig, pinned []string, defaultSort SortState, fields ...Field[T]) *Schema[T] {
	s, err := NewSchema(list, columns, pinned, defaultSort, fields...)
	if err != nil {
		panic(err)
	}
	return s
}

// Field returns the accessor for id.
func (s *Schema[T]) Field(id string) (Field[T], bool) {
	f, ok := s.fields[id]
	return f, ok
}

// Sortable reports whether id can be used as a sort key.
func (s *Schema[T]) Sortable(id string) bool {
	f, ok := s.fields[id]
	return ok && f.sortable()
}

// IsPinned reports whether the column id is structurally pinned.
func (s *Schema[T]) IsPinned(id string) bool {
	return slices.Contains(s.Pinned, id)
}

// Cell renders one cell of row for column id. Unknown and display-only
// columns render empty.
func (s *Schema[T]) Cell(row T, id string) string {
	f, ok := s.fields[id]
	if !ok {
		return ""
	}
	if f.Text != nil {
		return f.Text(row)
	}
	if f.Values != nil {
		return strings.Join(f.Values(row), ", ")
	}
	return ""
}

func (s *Schema[T]) filterField(key string) (Field[T], bool) {
	id, ok := s.filterKeys[key]
	if !ok {
		return Field[T]{}, false
	}
	return s.fields[id], true
}

// Filter returns the rows matching the search term and every active filter.
// The input slice is not modified.
func (s *Schema[T]) Filter(rows []T, search string, filters []ActiveFilter) []T {
	term := fold(strings.TrimSpace(search))
	out := make([]T, 0, len(rows))
	for _, row := range rows {
		if term != "" && !s.matchSearch(row, term) {
			continue
		}
		if !s.matchFilters(row, filters) {
			continue
		}
		out = append(out, row)
	}
	return out
}

func (s *Schema[T]) matchSearch(row T, term string) bool {
	for _, id := range s.searchable {
		for _, v := range s.fields[id].valueSet(row) {
			if strings.Contains(fold(v), term) {
				return true
			}
		}
	}
	return false
}

func (s *Schema[T]) matchFilters(row T, filters []ActiveFilter) bool {
	for _, f := range filters {
		if len(f.Values) == 0 {
			continue
		}
		field, ok := s.filterField(f.Key)
		if !ok {
			continue
		}
		have := make(map[string]struct{})
		for _, v := range field.valueSet(row) {
			have[fold(v)] = struct{}{}
		}
		switch f.Operator {
		case IncludeAll:
			for _, want := range f.Values {
				if _, ok := have[fold(want)]; !ok {
					return false
				}
			}
		default:
			hit := false
			for _, want := range f.Values {
				if _, ok := have[fold(want)]; ok {
					hit = true
					break
				}
			}
			if !hit {
				return false
			}
		}
	}
	return true
}

// Sort returns a stably sorted copy of rows.
func (s *Schema[T]) Sort(rows []T, st SortState) []T {
	out := append([]T(nil), rows...)
	f, ok := s.fields[st.OrderBy]
	if !ok || !f.sortable() {
		return out
	}
	compare := f.Compare
	if compare == nil {
		compare = func(a, b T) int {
			return cmp.Compare(fold(f.Text(a)), fold(f.Text(b)))
		}
	}
	slices.SortStableFunc(out, func(a, b T) int {
		if st.Order == Desc {
			return compare(b, a)
		}
		return compare(a, b)
	})
	return out
}

func fold(s string) string {
	return cases.Fold().String(s)
}
