package liststate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"sync"
	"time"
)

// Fetcher loads the backing collection of a list.
type Fetcher[T any] func(ctx context.Context) ([]T, error)

// LoadOutcome classifies the result of a Reload.
type LoadOutcome string

const (
	LoadApplied LoadOutcome = "applied"
	LoadStale   LoadOutcome = "stale"
	LoadFailed  LoadOutcome = "error"
	LoadClosed  LoadOutcome = "closed"
)

// Options configures a Controller.
type Options struct {
	// Profile namespaces persisted preferences.
	Profile string
	Storage Storage
	Logger  *slog.Logger
	// Debounce is the search debounce window; DefaultDebounce when zero.
	Debounce time.Duration
	// OnSearchApplied runs after a debounced search term takes effect.
	OnSearchApplied func()
	// OnLoad observes every Reload outcome.
	OnLoad func(list string, outcome LoadOutcome)
}

// Controller owns the list state of one mounted view. It is safe for
// concurrent use; no lock is held while fetching or persisting.
type Controller[T any] struct {
	mu sync.Mutex

	schema  *Schema[T]
	fetch   Fetcher[T]
	storage Storage
	profile string
	logger  *slog.Logger

	onSearchApplied func()
	onLoad          func(string, LoadOutcome)
	debouncer       *Debouncer

	rawSearch string
	search    string
	filters   []ActiveFilter
	sort      SortState
	page      PageState
	columns   []ColumnConfig

	rows       []T
	loadErr    error
	loaded     bool
	generation uint64
	closed     bool
}

// View is a snapshot of the derived list state.
type View[T any] struct {
	List            string
	Rows            []T
	Total           int
	Page            PageState
	PageCount       int
	Sort            SortState
	Search          string
	EffectiveSearch string
	Filters         []ActiveFilter
	Columns         []ColumnConfig
	Visible         []ColumnConfig
	Loaded          bool
	Err             error
}

// NewController builds a controller and hydrates its preferences.
func NewController[T any](ctx context.Context, schema *Schema[T], fetch Fetcher[T], opts Options) *Controller[T] {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	c := &Controller[T]{
		schema:          schema,
		fetch:           fetch,
		storage:         opts.Storage,
		profile:         opts.Profile,
		logger:          opts.Logger,
		onSearchApplied: opts.OnSearchApplied,
		onLoad:          opts.OnLoad,
		debouncer:       NewDebouncer(opts.Debounce),
		page:            PageState{RowsPerPage: DefaultRowsPerPage},
	}
	c.Hydrate(ctx)
	return c
}

// Schema returns the list schema.
func (c *Controller[T]) Schema() *Schema[T] { return c.schema }

// Profile returns the preference namespace of the controller.
func (c *Controller[T]) Profile() string { return c.profile }

// Hydrate reloads columns, sort and page size from storage, falling back to
// defaults for missing or corrupt entries. Search, filters and rows are kept.
func (c *Controller[T]) Hydrate(ctx context.Context) {
	list := c.schema.List
	columns := c.schema.Columns
	if raw, ok := c.read(ctx, ColumnsKey(list)); ok {
		var saved []ColumnConfig
		if err := json.Unmarshal([]byte(raw), &saved); err != nil {
			c.logger.Warn("discard corrupt column preference", slog.String("list", list), slog.Any("error", err))
		} else {
			columns = MergeColumns(c.schema.Columns, saved)
		}
	}
	columns = ApplyPinned(c.schema.Columns, c.schema.Pinned, columns)

	sort := c.schema.DefaultSort
	if by, ok := c.read(ctx, SortByKey(list)); ok && c.schema.Sortable(by) {
		sort.OrderBy = by
		sort.Order = Asc
		if order, ok := c.read(ctx, SortOrderKey(list)); ok && Order(order) == Desc {
			sort.Order = Desc
		}
	}

	rowsPerPage := DefaultRowsPerPage
	if raw, ok := c.read(ctx, PageSizeKey); ok {
		if n, err := strconv.Atoi(raw); err == nil && ValidRowsPerPage(n) {
			rowsPerPage = n
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.columns = columns
	c.sort = sort
	if c.page.RowsPerPage != rowsPerPage {
		c.page = PageState{RowsPerPage: rowsPerPage}
	}
}

// SetSearchTerm records the raw search input. The effective term follows
// after the debounce window and resets the page.
func (c *Controller[T]) SetSearchTerm(text string) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.rawSearch = text
	c.mu.Unlock()
	c.debouncer.Debounce(c.applySearch)
}

// FlushSearch applies the pending search term immediately.
func (c *Controller[T]) FlushSearch() {
	c.debouncer.Immediate(c.applySearch)
}

// SearchPending reports whether a debounced search has not yet applied.
func (c *Controller[T]) SearchPending() bool {
	return c.debouncer.Pending()
}

func (c *Controller[T]) applySearch() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.search = c.rawSearch
	c.page.Page = 0
	cb := c.onSearchApplied
	c.mu.Unlock()
	if cb != nil {
		cb()
	}
}

// AddFilter activates a filter. The key must name a schema field.
func (c *Controller[T]) AddFilter(f ActiveFilter) error {
	if _, ok := c.schema.filterField(f.Key); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownFilter, f.Key)
	}
	if !ValidOperator(f.Operator) {
		return fmt.Errorf("%w: %s", ErrInvalidOperator, f.Operator)
	}
	if f.Operator == "" {
		f.Operator = AnyOf
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.filterIndex(f.Key) >= 0 {
		return fmt.Errorf("%w: %s", ErrDuplicateFilter, f.Key)
	}
	f.Values = append([]string(nil), f.Values...)
	c.filters = append(c.filters, f)
	c.page.Page = 0
	return nil
}

// RemoveFilter deactivates the filter key.
func (c *Controller[T]) RemoveFilter(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.filterIndex(key)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownFilter, key)
	}
	c.filters = slices.Delete(c.filters, i, i+1)
	c.page.Page = 0
	return nil
}

// ChangeFilter replaces the values of an active filter.
func (c *Controller[T]) ChangeFilter(key string, values []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.filterIndex(key)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownFilter, key)
	}
	c.filters[i].Values = append([]string(nil), values...)
	c.page.Page = 0
	return nil
}

// ChangeOperator switches an active filter between any_of and include_all.
func (c *Controller[T]) ChangeOperator(key string, op Operator) error {
	if !ValidOperator(op) {
		return fmt.Errorf("%w: %s", ErrInvalidOperator, op)
	}
	if op == "" {
		op = AnyOf
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.filterIndex(key)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownFilter, key)
	}
	c.filters[i].Operator = op
	c.page.Page = 0
	return nil
}

// ClearFilters removes every active filter.
func (c *Controller[T]) ClearFilters() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.filters = nil
	c.page.Page = 0
}

func (c *Controller[T]) filterIndex(key string) int {
	return slices.IndexFunc(c.filters, func(f ActiveFilter) bool { return f.Key == key })
}

// Sort selects columnID. Sorting the active column flips the direction; a new
// column starts ascending. The result is persisted.
func (c *Controller[T]) Sort(ctx context.Context, columnID string) (SortState, error) {
	if !c.schema.Sortable(columnID) {
		return SortState{}, fmt.Errorf("%w: %s", ErrUnknownColumn, columnID)
	}
	c.mu.Lock()
	if c.sort.OrderBy == columnID {
		if c.sort.Order == Asc {
			c.sort.Order = Desc
		} else {
			c.sort.Order = Asc
		}
	} else {
		c.sort = SortState{OrderBy: columnID, Order: Asc}
	}
	st := c.sort
	c.mu.Unlock()

	c.write(ctx, SortByKey(c.schema.List), st.OrderBy)
	c.write(ctx, SortOrderKey(c.schema.List), string(st.Order))
	return st, nil
}

// SetPage moves the cursor; the view clamps it to the data.
func (c *Controller[T]) SetPage(page int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.page.Page = max(page, 0)
}

// SetRowsPerPage changes and persists the page size, resetting the page.
func (c *Controller[T]) SetRowsPerPage(ctx context.Context, n int) error {
	if !ValidRowsPerPage(n) {
		return fmt.Errorf("%w: %d", ErrInvalidRowsPerPage, n)
	}
	c.mu.Lock()
	c.page = PageState{Page: 0, RowsPerPage: n}
	c.mu.Unlock()
	c.write(ctx, PageSizeKey, strconv.Itoa(n))
	return nil
}

// Columns returns the full column configuration including pinned columns.
func (c *Controller[T]) Columns() []ColumnConfig {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cloneColumns(c.columns)
}

// SetColumns replaces the column configuration. Pinned columns are restored
// at their fixed positions whatever cols contains; the full array is persisted.
func (c *Controller[T]) SetColumns(ctx context.Context, cols []ColumnConfig) []ColumnConfig {
	merged := MergeColumns(c.schema.Columns, StripPinned(c.schema.Pinned, cols))
	final := ApplyPinned(c.schema.Columns, c.schema.Pinned, merged)
	c.storeColumns(ctx, final)
	return cloneColumns(final)
}

// ResetColumns restores and persists the declared default columns.
func (c *Controller[T]) ResetColumns(ctx context.Context) []ColumnConfig {
	final := ApplyPinned(c.schema.Columns, c.schema.Pinned, c.schema.Columns)
	c.storeColumns(ctx, final)
	return cloneColumns(final)
}

func (c *Controller[T]) storeColumns(ctx context.Context, cols []ColumnConfig) {
	c.mu.Lock()
	c.columns = cols
	c.mu.Unlock()

	raw, err := json.Marshal(cols)
	if err != nil {
		c.logger.Warn("encode column preference", slog.String("list", c.schema.List), slog.Any("error", err))
		return
	}
	c.write(ctx, ColumnsKey(c.schema.List), string(raw))
}

// Reload fetches the collection. A response is applied only when no newer
// Reload started and the controller is still open; otherwise ErrStaleLoad or
// ErrClosed is returned and the response dropped. A failed fetch leaves an
// empty row set and the error indicator.
func (c *Controller[T]) Reload(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		c.observe(LoadClosed)
		return ErrClosed
	}
	c.generation++
	gen := c.generation
	c.mu.Unlock()

	rows, err := c.fetch(ctx)

	c.mu.Lock()
	switch {
	case c.closed:
		c.mu.Unlock()
		c.observe(LoadClosed)
		return ErrClosed
	case gen != c.generation:
		c.mu.Unlock()
		c.observe(LoadStale)
		return ErrStaleLoad
	}
	c.loaded = true
	if err != nil {
		c.rows = nil
		c.loadErr = err
		c.mu.Unlock()
		c.observe(LoadFailed)
		return err
	}
	c.rows = rows
	c.loadErr = nil
	c.mu.Unlock()
	c.observe(LoadApplied)
	return nil
}

// Rows returns every filtered and sorted row, ignoring pagination.
func (c *Controller[T]) Rows() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.schema.Sort(c.schema.Filter(c.rows, c.search, c.filters), c.sort)
}

// View derives the current page.
func (c *Controller[T]) View() View[T] {
	c.mu.Lock()
	defer c.mu.Unlock()

	res := c.schema.Derive(c.rows, Query{Search: c.search, Filters: c.filters, Sort: c.sort, Page: c.page})
	c.page = res.Page
	return View[T]{
		List:            c.schema.List,
		Rows:            res.Rows,
		Total:           res.Total,
		Page:            res.Page,
		PageCount:       res.PageCount,
		Sort:            c.sort,
		Search:          c.rawSearch,
		EffectiveSearch: c.search,
		Filters:         cloneFilters(c.filters),
		Columns:         cloneColumns(c.columns),
		Visible:         VisibleColumns(c.columns),
		Loaded:          c.loaded,
		Err:             c.loadErr,
	}
}

// Close discards the view: pending searches are cancelled and in-flight
// loads are dropped on arrival.
func (c *Controller[T]) Close() {
	c.debouncer.Cancel()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

// Closed reports whether Close was called.
func (c *Controller[T]) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Controller[T]) observe(outcome LoadOutcome) {
	if c.onLoad != nil {
		c.onLoad(c.schema.List, outcome)
	}
}

func (c *Controller[T]) read(ctx context.Context, key string) (string, bool) {
	if c.storage == nil {
		return "", false
	}
	value, ok, err := c.storage.Get(ctx, c.profile, key)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			c.logger.Warn("read list preference", slog.String("key", key), slog.Any("error", err))
		}
		return "", false
	}
	return value, ok
}

func (c *Controller[T]) write(ctx context.Context, key, value string) {
	if c.storage == nil {
		return
	}
	if err := c.storage.Set(ctx, c.profile, key, value); err != nil {
		c.logger.Warn("persist list preference", slog.String("key", key), slog.Any("error", err))
	}
}
