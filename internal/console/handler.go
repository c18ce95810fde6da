package console

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/maxidea1024/gatrix-sub012/internal/confirm"
	"github.com/maxidea1024/gatrix-sub012/internal/entityform"
	"github.com/maxidea1024/gatrix-sub012/internal/liststate"
	"github.com/maxidea1024/gatrix-sub012/internal/platform/httpx"
	"github.com/maxidea1024/gatrix-sub012/internal/resources"
	"github.com/maxidea1024/gatrix-sub012/internal/shared"
	"github.com/maxidea1024/gatrix-sub012/internal/view"
)

// Handler serves one resource list with its forms and confirmations.
type Handler[T any] struct {
	deps   Deps
	res    Resource[T]
	def    resources.ListDef
	views  *liststate.Views[T]
	logger *slog.Logger
}

// NewHandler binds res to its catalog entry and a view registry.
func NewHandler[T any](deps Deps, res Resource[T]) (*Handler[T], error) {
	if deps.Catalog == nil {
		return nil, errors.New("console: catalog required")
	}
	def, err := deps.Catalog.List(res.List())
	if err != nil {
		return nil, err
	}
	if deps.Validator == nil {
		deps.Validator = entityform.NewValidator()
	}
	if deps.Confirm == nil {
		deps.Confirm = confirm.NewRegistry(confirm.DefaultTTL)
	}
	logger := deps.logger().With(slog.String("list", res.List()))
	metrics := deps.Metrics
	opts := liststate.Options{
		Logger:   logger,
		Debounce: deps.Debounce,
		OnLoad: func(list string, outcome liststate.LoadOutcome) {
			metrics.ObserveListLoad(list, string(outcome))
		},
	}
	if deps.Store != nil {
		opts.Storage = deps.Store
	}
	return &Handler[T]{
		deps:   deps,
		res:    res,
		def:    def,
		views:  liststate.NewViews(res.Schema(), res.Fetch, opts, deps.ViewTTL),
		logger: logger,
	}, nil
}

func (h *Handler[T]) List() string  { return h.res.List() }
func (h *Handler[T]) Title() string { return h.def.Title }
func (h *Handler[T]) Path() string  { return h.def.Path }

// Rehydrate forwards a preference change to the mounted views.
func (h *Handler[T]) Rehydrate(ctx context.Context, profile, key string) int {
	return h.views.Rehydrate(ctx, profile, key)
}

// Sweep unmounts idle views.
func (h *Handler[T]) Sweep() int {
	n := h.views.Sweep()
	h.deps.Metrics.SetMountedViews(h.res.List(), h.views.Len())
	return n
}

// Close unmounts every view.
func (h *Handler[T]) Close() {
	h.views.Close()
	h.deps.Metrics.SetMountedViews(h.res.List(), 0)
}

// MountRoutes attaches the resource routes.
func (h *Handler[T]) MountRoutes(r chi.Router) {
	r.Get("/", h.index)
	r.Get("/rows", h.rows)
	r.Get("/state", h.showState)
	r.Post("/state/search", h.search)
	r.Post("/state/filters", h.filters)
	r.Post("/state/sort", h.sort)
	r.Post("/state/page", h.paginate)
	r.Post("/state/columns", h.columns)
	r.Post("/state/columns/reset", h.resetColumns)
	r.Post("/state/refresh", h.refresh)
	r.Get("/export.csv", h.export)

	r.Get("/new", h.newForm)
	r.Post("/", h.create)
	r.Get("/{id}/edit", h.editForm)
	r.Post("/{id}", h.update)
	r.Get("/{id}/delete", h.confirmPage(actionDelete))
	r.Post("/{id}/delete", h.confirmSubmit(actionDelete))
	r.Get("/{id}/toggle", h.confirmPage(actionToggle))
	r.Post("/{id}/toggle", h.confirmSubmit(actionToggle))
}

func (h *Handler[T]) index(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	profile := shared.ProfileFromContext(ctx)
	id := r.URL.Query().Get("view")
	ctrl, ok := h.views.Get(id, profile)
	if !ok {
		id, ctrl = h.views.Mount(ctx, profile)
		h.deps.Metrics.SetMountedViews(h.res.List(), h.views.Len())
	}
	h.reload(ctx, ctrl)
	h.render(w, r, http.StatusOK, "pages/list.html", h.def.Title, h.page(id, ctrl))
}

func (h *Handler[T]) rows(w http.ResponseWriter, r *http.Request) {
	id, ctrl, err := h.controller(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if !ctrl.View().Loaded {
		h.reload(r.Context(), ctrl)
	}
	h.render(w, r, http.StatusOK, "partials/list_table.html", h.def.Title, h.page(id, ctrl))
}

func (h *Handler[T]) showState(w http.ResponseWriter, r *http.Request) {
	id, ctrl, err := h.controller(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, h.state(id, ctrl))
}

// controller resolves the view named by the view parameter for the caller's
// profile.
func (h *Handler[T]) controller(r *http.Request) (string, *liststate.Controller[T], error) {
	id := r.URL.Query().Get("view")
	if id == "" {
		id = r.PostFormValue("view")
	}
	ctrl, ok := h.views.Get(id, shared.ProfileFromContext(r.Context()))
	if !ok {
		return id, nil, fmt.Errorf("%w: %s view %q", httpx.ErrGone, h.res.List(), id)
	}
	return id, ctrl, nil
}

func (h *Handler[T]) reload(ctx context.Context, ctrl *liststate.Controller[T]) {
	err := ctrl.Reload(ctx)
	switch {
	case err == nil, errors.Is(err, liststate.ErrStaleLoad), errors.Is(err, liststate.ErrClosed):
	default:
		h.logger.Warn("list load failed", slog.Any("error", err))
	}
}

// respond answers a state mutation: JSON for script requests, a redirect
// back to the list otherwise.
func (h *Handler[T]) respond(w http.ResponseWriter, r *http.Request, id string, ctrl *liststate.Controller[T], err error) {
	if err != nil {
		if wantsJSON(r) {
			httpx.RespondError(w, err)
			return
		}
		h.redirectWithFlash(w, r, h.listURL(id), shared.FlashError, userMessage(err))
		return
	}
	if wantsJSON(r) {
		httpx.JSON(w, http.StatusOK, h.state(id, ctrl))
		return
	}
	http.Redirect(w, r, h.listURL(id), http.StatusSeeOther)
}

func (h *Handler[T]) listURL(viewID string) string {
	if viewID == "" {
		return h.def.Path
	}
	return h.def.Path + "?view=" + url.QueryEscape(viewID)
}

func (h *Handler[T]) render(w http.ResponseWriter, r *http.Request, status int, tmpl, title string, data any) {
	sess := shared.SessionFromContext(r.Context())
	var csrfToken string
	var flash *shared.FlashMessage
	if sess != nil {
		csrfToken, _ = h.deps.CSRF.EnsureToken(r.Context(), sess)
		flash = sess.PopFlash()
	}

	viewData := view.TemplateData{
		Title:       title,
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		Data:        data,
	}
	if err := h.deps.Templates.Render(w, status, tmpl, viewData); err != nil {
		h.logger.Error("template render failed", slog.Any("error", err), slog.String("template", tmpl))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (h *Handler[T]) redirectWithFlash(w http.ResponseWriter, r *http.Request, target, kind, message string) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: kind, Message: message})
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

// sessionKey binds confirmation tokens; the browser profile stands in when
// no session is loaded.
func sessionKey(r *http.Request) string {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		return sess.ID
	}
	return shared.ProfileFromContext(r.Context())
}
