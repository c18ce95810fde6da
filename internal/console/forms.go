package console

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/maxidea1024/gatrix-sub012/internal/backend"
	"github.com/maxidea1024/gatrix-sub012/internal/entityform"
	"github.com/maxidea1024/gatrix-sub012/internal/shared"
)

type formErrors map[string]string

type formPage struct {
	List           string
	Title          string
	Base           string
	Action         string
	Mode           string
	ID             string
	Value          any
	Errors         formErrors
	General        string
	IdempotencyKey string
	ViewID         string
}

func (h *Handler[T]) formTemplate() string {
	return "pages/" + h.res.List() + "_form.html"
}

func (h *Handler[T]) renderForm(w http.ResponseWriter, r *http.Request, status int, draft *entityform.Draft[T], id string, errs formErrors, general string) {
	page := formPage{
		List:    h.res.List(),
		Title:   h.def.Title,
		Base:    h.def.Path,
		Action:  h.def.Path,
		Mode:    draft.Mode().String(),
		ID:      id,
		Value:   draft.Value(),
		Errors:  errs,
		General: general,
		ViewID:  r.FormValue("view"),
	}
	if page.Errors == nil {
		page.Errors = formErrors{}
	}
	if draft.Mode() == entityform.ModeEdit {
		page.Action = h.def.Path + "/" + url.PathEscape(id)
	} else {
		page.IdempotencyKey = r.PostFormValue("idempotency_key")
		if page.IdempotencyKey == "" {
			page.IdempotencyKey = uuid.NewString()
		}
	}
	h.render(w, r, status, h.formTemplate(), h.def.Title, page)
}

func (h *Handler[T]) newForm(w http.ResponseWriter, r *http.Request) {
	draft := entityform.NewCreate(h.res.Blank(), h.deps.Validator)
	h.renderForm(w, r, http.StatusOK, draft, "", nil, "")
}

func (h *Handler[T]) editForm(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	entity, err := h.res.Get(r.Context(), id)
	if err != nil {
		h.logger.Warn("load entity failed", slog.String("id", id), slog.Any("error", err))
		h.redirectWithFlash(w, r, h.listURL(r.URL.Query().Get("view")), shared.FlashError, backend.Message(err))
		return
	}
	draft := entityform.NewEdit(entity, h.deps.Validator)
	h.renderForm(w, r, http.StatusOK, draft, id, nil, "")
}

func (h *Handler[T]) create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	ctx := r.Context()
	blank := h.res.Blank()
	draft := entityform.NewCreate(blank, h.deps.Validator)
	draft.Set(h.res.Decode(r.PostForm, blank))

	key := r.PostFormValue("idempotency_key")
	if errs := draft.Validate(); len(errs) > 0 {
		h.renderForm(w, r, http.StatusUnprocessableEntity, draft, "", formErrors(errs), "")
		return
	}
	if h.deps.Idempotency != nil && key != "" {
		if err := h.deps.Idempotency.Reserve(ctx, key, h.res.List()); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				h.redirectWithFlash(w, r, h.listURL(r.PostFormValue("view")), shared.FlashInfo, "This form was already submitted.")
				return
			}
			h.logger.Warn("reserve idempotency key", slog.Any("error", err))
		}
	}

	saved, err := draft.Save(ctx, h.saver(""))
	if err != nil {
		if h.deps.Idempotency != nil && key != "" {
			if relErr := h.deps.Idempotency.Release(ctx, key); relErr != nil {
				h.logger.Warn("release idempotency key", slog.Any("error", relErr))
			}
		}
		h.formFailed(w, r, draft, "", "create", err)
		return
	}

	h.audit(ctx, r, "create", h.res.Key(saved), map[string]any{"label": h.res.Describe(saved)})
	h.redirectWithFlash(w, r, h.listURL(r.PostFormValue("view")), shared.FlashSuccess, h.res.Describe(saved)+" created.")
}

func (h *Handler[T]) update(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	original, err := h.res.Get(ctx, id)
	if err != nil {
		h.logger.Warn("load entity failed", slog.String("id", id), slog.Any("error", err))
		h.redirectWithFlash(w, r, h.listURL(r.PostFormValue("view")), shared.FlashError, backend.Message(err))
		return
	}
	draft := entityform.NewEdit(original, h.deps.Validator)
	draft.Set(h.res.Decode(r.PostForm, original))
	diff := draft.Diff()

	saved, err := draft.Save(ctx, h.saver(id))
	if err != nil {
		h.formFailed(w, r, draft, id, "update", err)
		return
	}

	h.audit(ctx, r, "update", id, map[string]any{"label": h.res.Describe(saved), "diff": diff})
	h.redirectWithFlash(w, r, h.listURL(r.PostFormValue("view")), shared.FlashSuccess, h.res.Describe(saved)+" saved.")
}

func (h *Handler[T]) saver(id string) entityform.Saver[T] {
	return func(ctx context.Context, mode entityform.Mode, value T) (T, error) {
		if mode == entityform.ModeCreate {
			return h.res.Create(ctx, value)
		}
		return h.res.Update(ctx, id, value)
	}
}

// formFailed re-renders the form with the entered values kept.
func (h *Handler[T]) formFailed(w http.ResponseWriter, r *http.Request, draft *entityform.Draft[T], id, op string, err error) {
	var fieldErrs entityform.Errors
	switch {
	case errors.As(err, &fieldErrs):
		h.renderForm(w, r, http.StatusUnprocessableEntity, draft, id, formErrors(fieldErrs), "")
	case errors.Is(err, entityform.ErrNoChanges):
		if draft.Mode() == entityform.ModeEdit {
			h.redirectWithFlash(w, r, h.listURL(r.PostFormValue("view")), shared.FlashInfo, "No changes to save.")
			return
		}
		h.renderForm(w, r, http.StatusUnprocessableEntity, draft, id, nil, "Fill in the form before saving.")
	default:
		h.deps.Metrics.ObserveBackendError(h.res.List(), op)
		h.logger.Warn("save failed", slog.String("op", op), slog.String("id", id), slog.Any("error", err))
		h.renderForm(w, r, http.StatusBadGateway, draft, id, nil, backend.Message(err))
	}
}

func (h *Handler[T]) audit(ctx context.Context, r *http.Request, action, entityID string, meta map[string]any) {
	if h.deps.Audit == nil {
		return
	}
	err := h.deps.Audit.Record(ctx, shared.AuditLog{
		Actor:    shared.ProfileFromContext(r.Context()),
		Action:   action,
		Entity:   h.res.List(),
		EntityID: entityID,
		Meta:     meta,
		At:       time.Now().UTC(),
	})
	if err != nil {
		h.logger.Warn("audit record failed", slog.String("action", action), slog.Any("error", err))
	}
}
