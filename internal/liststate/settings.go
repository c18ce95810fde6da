package liststate

import "context"

// ColumnSettings edits the non-pinned columns of a controller. Every change
// writes a full replacement array back through the controller.
type ColumnSettings[T any] struct {
	c *Controller[T]
}

// ColumnSettings returns the column editor of the controller.
func (c *Controller[T]) ColumnSettings() ColumnSettings[T] {
	return ColumnSettings[T]{c: c}
}

// Columns lists the editable columns in display order.
func (s ColumnSettings[T]) Columns() []ColumnConfig {
	return StripPinned(s.c.schema.Pinned, s.c.Columns())
}

// Move drags the column at from to position to.
func (s ColumnSettings[T]) Move(ctx context.Context, from, to int) []ColumnConfig {
	next := MoveColumn(s.Columns(), from, to)
	return StripPinned(s.c.schema.Pinned, s.c.SetColumns(ctx, next))
}

// Toggle flips the visibility of one editable column.
func (s ColumnSettings[T]) Toggle(ctx context.Context, id string) ([]ColumnConfig, error) {
	next, err := ToggleColumn(s.Columns(), id)
	if err != nil {
		return s.Columns(), err
	}
	return StripPinned(s.c.schema.Pinned, s.c.SetColumns(ctx, next)), nil
}

// Replace writes an edited column list as returned by the settings UI. Ids
// the schema does not declare are dropped before the merge.
func (s ColumnSettings[T]) Replace(ctx context.Context, cols []ColumnConfig) []ColumnConfig {
	return StripPinned(s.c.schema.Pinned, s.c.SetColumns(ctx, DeclaredColumns(s.c.schema.Columns, cols)))
}

// Reset restores the declared defaults.
func (s ColumnSettings[T]) Reset(ctx context.Context) []ColumnConfig {
	return StripPinned(s.c.schema.Pinned, s.c.ResetColumns(ctx))
}
