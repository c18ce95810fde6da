package console

import (
	"slices"

	"github.com/maxidea1024/gatrix-sub012/internal/backend"
	"github.com/maxidea1024/gatrix-sub012/internal/liststate"
	"github.com/maxidea1024/gatrix-sub012/internal/resources"
)

type columnView struct {
	ID       string
	Label    string
	Width    string
	Visible  bool
	Pinned   bool
	Sortable bool
	Sorted   bool
	Order    liststate.Order
}

type cellView struct {
	ID   string
	Text string
}

type rowView struct {
	ID      string
	Label   string
	Enabled bool
	Cells   []cellView
}

type filterView struct {
	Key      string
	Label    string
	Options  []string
	Multi    bool
	Active   bool
	Values   []string
	Operator liststate.Operator
}

type listPage struct {
	List        string
	Title       string
	Base        string
	ViewID      string
	Search      string
	Pending     bool
	Columns     []columnView
	Settings    []columnView
	Rows        []rowView
	Filters     []filterView
	Sort        liststate.SortState
	Page        int
	PageCount   int
	Total       int
	From        int
	To          int
	RowsPerPage int
	PageSizes   []int
	Loaded      bool
	Error       string
}

// stateDTO is the JSON body of the state endpoints.
type stateDTO struct {
	View            string                   `json:"view"`
	Search          string                   `json:"search"`
	EffectiveSearch string                   `json:"effectiveSearch"`
	SearchPending   bool                     `json:"searchPending"`
	Filters         []liststate.ActiveFilter `json:"filters"`
	Sort            liststate.SortState      `json:"sort"`
	Page            liststate.PageState      `json:"page"`
	PageCount       int                      `json:"pageCount"`
	Total           int                      `json:"total"`
	Columns         []liststate.ColumnConfig `json:"columns"`
	Loaded          bool                     `json:"loaded"`
	Error           string                   `json:"error,omitempty"`
}

func (h *Handler[T]) columnView(col liststate.ColumnConfig, sort liststate.SortState) columnView {
	schema := h.res.Schema()
	return columnView{
		ID:       col.ID,
		Label:    h.deps.Catalog.Label(col.LabelKey),
		Width:    col.Width,
		Visible:  col.Visible,
		Pinned:   schema.IsPinned(col.ID),
		Sortable: schema.Sortable(col.ID),
		Sorted:   sort.OrderBy == col.ID,
		Order:    sort.Order,
	}
}

func (h *Handler[T]) page(id string, ctrl *liststate.Controller[T]) listPage {
	v := ctrl.View()
	schema := h.res.Schema()

	p := listPage{
		List:        h.res.List(),
		Title:       h.def.Title,
		Base:        h.def.Path,
		ViewID:      id,
		Search:      v.Search,
		Pending:     ctrl.SearchPending(),
		Sort:        v.Sort,
		Page:        v.Page.Page,
		PageCount:   v.PageCount,
		Total:       v.Total,
		RowsPerPage: v.Page.RowsPerPage,
		PageSizes:   liststate.RowsPerPageOptions,
		Loaded:      v.Loaded,
	}
	if v.Err != nil {
		p.Error = backend.Message(v.Err)
	}
	if v.Total > 0 {
		p.From = v.Page.Page*v.Page.RowsPerPage + 1
		p.To = p.From + len(v.Rows) - 1
	}

	for _, col := range v.Visible {
		p.Columns = append(p.Columns, h.columnView(col, v.Sort))
	}
	for _, col := range liststate.StripPinned(schema.Pinned, v.Columns) {
		p.Settings = append(p.Settings, h.columnView(col, v.Sort))
	}

	for _, row := range v.Rows {
		rv := rowView{ID: h.res.Key(row), Label: h.res.Describe(row), Enabled: h.res.Enabled(row)}
		for _, col := range v.Visible {
			rv.Cells = append(rv.Cells, cellView{ID: col.ID, Text: schema.Cell(row, col.ID)})
		}
		p.Rows = append(p.Rows, rv)
	}

	for _, def := range h.def.Filters {
		fv := filterView{Key: def.Key, Label: h.deps.Catalog.Label(def.LabelKey), Options: def.Options, Multi: def.Multi, Operator: liststate.AnyOf}
		if i := slices.IndexFunc(v.Filters, func(f liststate.ActiveFilter) bool { return f.Key == def.Key }); i >= 0 {
			fv.Active = true
			fv.Values = v.Filters[i].Values
			fv.Operator = v.Filters[i].Operator
		}
		p.Filters = append(p.Filters, fv)
	}
	return p
}

func (h *Handler[T]) state(id string, ctrl *liststate.Controller[T]) stateDTO {
	v := ctrl.View()
	dto := stateDTO{
		View:            id,
		Search:          v.Search,
		EffectiveSearch: v.EffectiveSearch,
		SearchPending:   ctrl.SearchPending(),
		Filters:         v.Filters,
		Sort:            v.Sort,
		Page:            v.Page,
		PageCount:       v.PageCount,
		Total:           v.Total,
		Columns:         v.Columns,
		Loaded:          v.Loaded,
	}
	if v.Err != nil {
		dto.Error = backend.Message(v.Err)
	}
	return dto
}

// exportColumns are the visible data columns; selection and action columns
// carry no data.
func (h *Handler[T]) exportColumns(cols []liststate.ColumnConfig) []liststate.ColumnConfig {
	return liststate.VisibleColumns(liststate.StripPinned(h.res.Schema().Pinned, cols))
}

func filterDef(defs []resources.FilterDef, key string) (resources.FilterDef, bool) {
	i := slices.IndexFunc(defs, func(d resources.FilterDef) bool { return d.Key == key })
	if i < 0 {
		return resources.FilterDef{}, false
	}
	return defs[i], true
}
