// Package liststate holds the per-view list controller used by every console
// list page: search, filters, sort, pagination and column preferences.
package liststate

import (
	"errors"
	"slices"
)

// Order is a sort direction.
type Order string

const (
	// Asc sorts ascending.
	Asc Order = "asc"
	// Desc sorts descending.
	Desc Order = "desc"
)

// Operator selects how a multi-value filter is matched.
type Operator string

const (
	// AnyOf matches rows whose values intersect the filter values.
	AnyOf Operator = "any_of"
	// IncludeAll matches rows whose values contain every filter value.
	IncludeAll Operator = "include_all"
)

// DefaultRowsPerPage is used when no page size preference exists.
const DefaultRowsPerPage = 10

// RowsPerPageOptions lists the accepted page sizes.
var RowsPerPageOptions = []int{5, 10, 20, 25, 50, 100}

var (
	// ErrUnknownFilter is returned when mutating a filter key that is not active.
	ErrUnknownFilter = errors.New("liststate: unknown filter")
	// ErrDuplicateFilter is returned when adding a filter whose key is already active.
	ErrDuplicateFilter = errors.New("liststate: filter already active")
	// ErrInvalidOperator is returned for operators other than any_of and include_all.
	ErrInvalidOperator = errors.New("liststate: invalid filter operator")
	// ErrInvalidRowsPerPage is returned for page sizes outside RowsPerPageOptions.
	ErrInvalidRowsPerPage = errors.New("liststate: invalid rows per page")
	// ErrUnknownColumn is returned when sorting or toggling an unknown column.
	ErrUnknownColumn = errors.New("liststate: unknown column")
	// ErrStaleLoad is returned by Reload when a newer load superseded it.
	ErrStaleLoad = errors.New("liststate: load superseded")
	// ErrClosed is returned when operating on a closed controller.
	ErrClosed = errors.New("liststate: controller closed")
)

// ColumnConfig describes one table column. Slice order is display order.
type ColumnConfig struct {
	ID       string `json:"id" yaml:"id"`
	LabelKey string `json:"labelKey" yaml:"labelKey"`
	Visible  bool   `json:"visible" yaml:"visible"`
	Width    string `json:"width,omitempty" yaml:"width,omitempty"`
}

// ActiveFilter is one entry of the active filter set. A single value filter
// is a one element Values slice.
type ActiveFilter struct {
	Key      string   `json:"key"`
	Values   []string `json:"value"`
	Operator Operator `json:"operator,omitempty"`
}

// SortState is the single active sort column.
type SortState struct {
	OrderBy string `json:"orderBy" yaml:"orderBy"`
	Order   Order  `json:"order" yaml:"order"`
}

// PageState is the 0-based pagination cursor.
type PageState struct {
	Page        int `json:"page"`
	RowsPerPage int `json:"rowsPerPage"`
}

// ValidRowsPerPage reports whether n is an accepted page size.
func ValidRowsPerPage(n int) bool {
	return slices.Contains(RowsPerPageOptions, n)
}

// ValidOperator reports whether op is a known operator. The empty operator is
// accepted and treated as AnyOf.
func ValidOperator(op Operator) bool {
	return op == "" || op == AnyOf || op == IncludeAll
}

func cloneColumns(cols []ColumnConfig) []ColumnConfig {
	if cols == nil {
		return nil
	}
	return append([]ColumnConfig(nil), cols...)
}

func cloneFilters(filters []ActiveFilter) []ActiveFilter {
	out := make([]ActiveFilter, len(filters))
	for i, f := range filters {
		out[i] = ActiveFilter{Key: f.Key, Values: append([]string(nil), f.Values...), Operator: f.Operator}
	}
	return out
}
