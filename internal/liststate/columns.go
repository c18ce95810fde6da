package liststate

import "slices"

// MergeColumns reconciles a persisted column list with the declared defaults.
//
// The result is the union of both lists. Saved entries keep their order and
// win on visibility and width; labels always come from the defaults. Defaults
// missing from saved are inserted at their declared index. Saved ids unknown
// to the defaults are kept and appended at the end.
func MergeColumns(defaults, saved []ColumnConfig) []ColumnConfig {
	if len(saved) == 0 {
		return cloneColumns(defaults)
	}
	index := make(map[string]int, len(defaults))
	for i, col := range defaults {
		index[col.ID] = i
	}

	out := make([]ColumnConfig, 0, len(defaults)+len(saved))
	used := make(map[string]struct{}, len(saved))
	var unknown []ColumnConfig
	for _, col := range saved {
		if col.ID == "" {
			continue
		}
		if _, dup := used[col.ID]; dup {
			continue
		}
		used[col.ID] = struct{}{}
		i, ok := index[col.ID]
		if !ok {
			unknown = append(unknown, col)
			continue
		}
		merged := defaults[i]
		merged.Visible = col.Visible
		if col.Width != "" {
			merged.Width = col.Width
		}
		out = append(out, merged)
	}
	for i, col := range defaults {
		if _, ok := used[col.ID]; ok {
			continue
		}
		out = slices.Insert(out, min(i, len(out)), col)
	}
	return append(out, unknown...)
}

// ApplyPinned strips pinned columns from cols and re-inserts the declared
// pinned columns at their fixed positions. Pinned columns that trail the
// declared list stay anchored to the end.
func ApplyPinned(defaults []ColumnConfig, pinned []string, cols []ColumnConfig) []ColumnConfig {
	if len(pinned) == 0 {
		return cloneColumns(cols)
	}
	isPinned := func(id string) bool { return slices.Contains(pinned, id) }

	out := make([]ColumnConfig, 0, len(cols)+len(pinned))
	for _, col := range cols {
		if !isPinned(col.ID) {
			out = append(out, col)
		}
	}

	trailStart := len(defaults)
	for trailStart > 0 && isPinned(defaults[trailStart-1].ID) {
		trailStart--
	}
	var tail []ColumnConfig
	for i, col := range defaults {
		if !isPinned(col.ID) {
			continue
		}
		if i >= trailStart {
			tail = append(tail, col)
			continue
		}
		out = slices.Insert(out, min(i, len(out)), col)
	}
	return append(out, tail...)
}

// StripPinned returns cols without the pinned ones.
func StripPinned(pinned []string, cols []ColumnConfig) []ColumnConfig {
	out := make([]ColumnConfig, 0, len(cols))
	for _, col := range cols {
		if !slices.Contains(pinned, col.ID) {
			out = append(out, col)
		}
	}
	return out
}

// MoveColumn removes the column at from and inserts it at to. Out of range
// indexes return an unchanged copy.
func MoveColumn(cols []ColumnConfig, from, to int) []ColumnConfig {
	out := cloneColumns(cols)
	if from < 0 || from >= len(out) || to < 0 || to >= len(out) || from == to {
		return out
	}
	col := out[from]
	out = slices.Delete(out, from, from+1)
	return slices.Insert(out, to, col)
}

// ToggleColumn flips the visibility of the column id.
func ToggleColumn(cols []ColumnConfig, id string) ([]ColumnConfig, error) {
	out := cloneColumns(cols)
	for i := range out {
		if out[i].ID == id {
			out[i].Visible = !out[i].Visible
			return out, nil
		}
	}
	return out, ErrUnknownColumn
}

// VisibleColumns filters cols to the visible ones, preserving order.
func VisibleColumns(cols []ColumnConfig) []ColumnConfig {
	out := make([]ColumnConfig, 0, len(cols))
	for _, col := range cols {
		if col.Visible {
			out = append(out, col)
		}
	}
	return out
}

// DeclaredColumns keeps only the entries of cols whose id appears in
// declared, in their given order, first occurrence wins.
func DeclaredColumns(declared, cols []ColumnConfig) []ColumnConfig {
	known := make(map[string]bool, len(declared))
	for _, c := range declared {
		known[c.ID] = true
	}
	out := make([]ColumnConfig, 0, len(cols))
	for _, c := range cols {
		if !known[c.ID] {
			continue
		}
		known[c.ID] = false
		out = append(out, c)
	}
	return out
}
