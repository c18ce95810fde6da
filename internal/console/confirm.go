package console

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/maxidea1024/gatrix-sub012/internal/backend"
	"github.com/maxidea1024/gatrix-sub012/internal/confirm"
	"github.com/maxidea1024/gatrix-sub012/internal/shared"
)

const (
	actionDelete = "delete"
	actionToggle = "toggle"
)

type confirmView struct {
	Title  string
	Base   string
	Action string
	Kind   string
	Label  string
	Token  string
	ViewID string
	// Enabled is the current switch state for toggles.
	Enabled bool
}

// confirmPage arms a confirmation for kind on the entity and renders it.
func (h *Handler[T]) confirmPage(kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		viewID := r.URL.Query().Get("view")
		entity, err := h.res.Get(r.Context(), id)
		if err != nil {
			h.logger.Warn("load entity failed", slog.String("id", id), slog.Any("error", err))
			h.redirectWithFlash(w, r, h.listURL(viewID), shared.FlashError, backend.Message(err))
			return
		}
		label := h.res.Describe(entity)
		token := h.deps.Confirm.Arm(sessionKey(r), confirm.Action{Kind: kind, Resource: h.res.List(), ID: id, Label: label})
		h.render(w, r, http.StatusOK, "pages/confirm.html", h.def.Title, confirmView{
			Title:   h.def.Title,
			Base:    h.def.Path,
			Action:  fmt.Sprintf("%s/%s/%s", h.def.Path, url.PathEscape(id), kind),
			Kind:    kind,
			Label:   label,
			Token:   token,
			ViewID:  viewID,
			Enabled: h.res.Enabled(entity),
		})
	}
}

// confirmSubmit runs or cancels an armed confirmation. The action runs at
// most once per token.
func (h *Handler[T]) confirmSubmit(kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id := chi.URLParam(r, "id")
		token := r.PostFormValue("token")
		back := h.listURL(r.PostFormValue("view"))
		session := sessionKey(r)

		if r.PostFormValue("cancel") != "" {
			if err := h.deps.Confirm.Cancel(session, token); err != nil && !errors.Is(err, confirm.ErrNotArmed) {
				h.logger.Warn("cancel confirmation", slog.Any("error", err))
			}
			http.Redirect(w, r, back, http.StatusSeeOther)
			return
		}

		var label string
		err := h.deps.Confirm.Confirm(ctx, session, token, func(ctx context.Context, action confirm.Action) error {
			if action.Kind != kind || action.Resource != h.res.List() || action.ID != id {
				return confirm.ErrNotArmed
			}
			label = action.Label
			return h.perform(ctx, kind, id)
		})
		switch {
		case err == nil:
			h.audit(ctx, r, kind, id, map[string]any{"label": label})
			h.redirectWithFlash(w, r, back, shared.FlashSuccess, doneMessage(kind, label))
		case errors.Is(err, confirm.ErrInFlight):
			h.redirectWithFlash(w, r, back, shared.FlashInfo, "This action is already running.")
		case errors.Is(err, confirm.ErrNotArmed), errors.Is(err, confirm.ErrExpired):
			h.redirectWithFlash(w, r, back, shared.FlashError, "This confirmation expired. Please try again.")
		default:
			h.deps.Metrics.ObserveBackendError(h.res.List(), kind)
			h.logger.Warn("confirmed action failed", slog.String("action", kind), slog.String("id", id), slog.Any("error", err))
			h.redirectWithFlash(w, r, back, shared.FlashError, backend.Message(err))
		}
	}
}

func (h *Handler[T]) perform(ctx context.Context, kind, id string) error {
	switch kind {
	case actionDelete:
		return h.res.Delete(ctx, id)
	case actionToggle:
		_, err := h.res.Toggle(ctx, id)
		return err
	}
	return fmt.Errorf("console: unknown action %q", kind)
}

func doneMessage(kind, label string) string {
	if kind == actionDelete {
		return label + " deleted."
	}
	return label + " updated."
}
