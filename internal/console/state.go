package console

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/maxidea1024/gatrix-sub012/internal/backend"
	"github.com/maxidea1024/gatrix-sub012/internal/liststate"
	"github.com/maxidea1024/gatrix-sub012/internal/platform/httpx"
)

func (h *Handler[T]) search(w http.ResponseWriter, r *http.Request) {
	id, ctrl, err := h.controller(r)
	if err != nil {
		h.respond(w, r, id, nil, err)
		return
	}
	ctrl.SetSearchTerm(r.PostFormValue("q"))
	// Plain form posts have no follow-up request to pick up a debounced term.
	if !wantsJSON(r) || r.PostFormValue("flush") != "" {
		ctrl.FlushSearch()
	}
	h.respond(w, r, id, ctrl, nil)
}

func (h *Handler[T]) filters(w http.ResponseWriter, r *http.Request) {
	id, ctrl, err := h.controller(r)
	if err != nil {
		h.respond(w, r, id, nil, err)
		return
	}
	key := r.PostFormValue("key")
	values := formValues(r, "value")
	if def, ok := filterDef(h.def.Filters, key); ok && !def.Multi && len(values) > 1 {
		values = values[:1]
	}
	op := liststate.Operator(r.PostFormValue("operator"))

	switch action := r.PostFormValue("action"); action {
	case "add":
		err = ctrl.AddFilter(liststate.ActiveFilter{Key: key, Values: values, Operator: op})
	case "remove":
		err = ctrl.RemoveFilter(key)
	case "change":
		err = ctrl.ChangeFilter(key, values)
	case "operator":
		err = ctrl.ChangeOperator(key, op)
	case "clear":
		ctrl.ClearFilters()
	case "set":
		// Filter bar without script: add on first use, replace afterwards.
		err = ctrl.ChangeFilter(key, values)
		if errors.Is(err, liststate.ErrUnknownFilter) {
			err = ctrl.AddFilter(liststate.ActiveFilter{Key: key, Values: values, Operator: op})
		} else if err == nil && op != "" {
			err = ctrl.ChangeOperator(key, op)
		}
	default:
		err = fmt.Errorf("%w: unknown filter action %q", httpx.ErrValidation, action)
	}
	h.respond(w, r, id, ctrl, stateError(err))
}

func (h *Handler[T]) sort(w http.ResponseWriter, r *http.Request) {
	id, ctrl, err := h.controller(r)
	if err != nil {
		h.respond(w, r, id, nil, err)
		return
	}
	_, err = ctrl.Sort(r.Context(), r.PostFormValue("column"))
	h.respond(w, r, id, ctrl, stateError(err))
}

func (h *Handler[T]) paginate(w http.ResponseWriter, r *http.Request) {
	id, ctrl, err := h.controller(r)
	if err != nil {
		h.respond(w, r, id, nil, err)
		return
	}
	if raw := r.PostFormValue("rowsPerPage"); raw != "" {
		n, convErr := strconv.Atoi(raw)
		if convErr != nil {
			h.respond(w, r, id, ctrl, fmt.Errorf("%w: rows per page %q", httpx.ErrValidation, raw))
			return
		}
		if err := ctrl.SetRowsPerPage(r.Context(), n); err != nil {
			h.respond(w, r, id, ctrl, stateError(err))
			return
		}
	}
	if raw := r.PostFormValue("page"); raw != "" {
		page, convErr := strconv.Atoi(raw)
		if convErr != nil {
			h.respond(w, r, id, ctrl, fmt.Errorf("%w: page %q", httpx.ErrValidation, raw))
			return
		}
		ctrl.SetPage(page)
	}
	h.respond(w, r, id, ctrl, nil)
}

// columns applies one column settings edit: toggle, move or a full replace.
func (h *Handler[T]) columns(w http.ResponseWriter, r *http.Request) {
	id, ctrl, err := h.controller(r)
	if err != nil {
		h.respond(w, r, id, nil, err)
		return
	}
	settings := ctrl.ColumnSettings()
	ctx := r.Context()

	switch op := r.PostFormValue("op"); op {
	case "toggle":
		_, err = settings.Toggle(ctx, r.PostFormValue("column"))
	case "move":
		from, fromErr := strconv.Atoi(r.PostFormValue("from"))
		to, toErr := strconv.Atoi(r.PostFormValue("to"))
		if fromErr != nil || toErr != nil {
			err = fmt.Errorf("%w: move needs numeric from and to", httpx.ErrValidation)
			break
		}
		settings.Move(ctx, from, to)
	case "replace":
		var cols []liststate.ColumnConfig
		if decodeErr := json.Unmarshal([]byte(r.PostFormValue("columns")), &cols); decodeErr != nil {
			err = fmt.Errorf("%w: columns: %w", httpx.ErrValidation, decodeErr)
			break
		}
		settings.Replace(ctx, cols)
	default:
		err = fmt.Errorf("%w: unknown column op %q", httpx.ErrValidation, op)
	}
	h.respond(w, r, id, ctrl, stateError(err))
}

func (h *Handler[T]) resetColumns(w http.ResponseWriter, r *http.Request) {
	id, ctrl, err := h.controller(r)
	if err != nil {
		h.respond(w, r, id, nil, err)
		return
	}
	ctrl.ResetColumns(r.Context())
	h.respond(w, r, id, ctrl, nil)
}

func (h *Handler[T]) refresh(w http.ResponseWriter, r *http.Request) {
	id, ctrl, err := h.controller(r)
	if err != nil {
		h.respond(w, r, id, nil, err)
		return
	}
	h.reload(r.Context(), ctrl)
	h.respond(w, r, id, ctrl, nil)
}

// stateError tags controller rejections as validation failures.
func stateError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, liststate.ErrClosed):
		return fmt.Errorf("%w: %w", httpx.ErrGone, err)
	case errors.Is(err, liststate.ErrUnknownFilter),
		errors.Is(err, liststate.ErrDuplicateFilter),
		errors.Is(err, liststate.ErrInvalidOperator),
		errors.Is(err, liststate.ErrInvalidRowsPerPage),
		errors.Is(err, liststate.ErrUnknownColumn):
		return fmt.Errorf("%w: %w", httpx.ErrValidation, err)
	}
	return err
}

// userMessage renders an error for a flash notification.
func userMessage(err error) string {
	var apiErr *backend.APIError
	switch {
	case errors.As(err, &apiErr):
		return backend.Message(err)
	case errors.Is(err, httpx.ErrGone):
		return "This list view expired. The page was reloaded."
	case errors.Is(err, httpx.ErrValidation):
		return "The change could not be applied."
	}
	return backend.GenericMessage
}

// formValues returns the non-blank values of a repeated field.
func formValues(r *http.Request, key string) []string {
	var out []string
	for _, v := range r.PostForm[key] {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
