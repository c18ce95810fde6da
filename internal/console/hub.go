package console

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/maxidea1024/gatrix-sub012/internal/liststate"
	"github.com/maxidea1024/gatrix-sub012/internal/prefs"
	"github.com/maxidea1024/gatrix-sub012/internal/resources"
	"github.com/maxidea1024/gatrix-sub012/internal/view"
)

// DefaultSweepInterval is how often idle views are unmounted.
const DefaultSweepInterval = time.Minute

// Module is a mounted resource handler regardless of its entity type.
type Module interface {
	List() string
	Title() string
	Path() string
	MountRoutes(r chi.Router)
	Rehydrate(ctx context.Context, profile, key string) int
	Sweep() int
	Close()
}

// Hub owns the resource modules: routing, the preference change feed and
// idle view sweeping.
type Hub struct {
	deps    Deps
	modules []Module
	sweep   time.Duration

	mu        sync.Mutex
	cancel    context.CancelFunc
	done      chan struct{}
	watchDone <-chan struct{}
}

// NewHub collects modules; sweep defaults to DefaultSweepInterval.
func NewHub(deps Deps, sweep time.Duration, modules ...Module) *Hub {
	if sweep <= 0 {
		sweep = DefaultSweepInterval
	}
	return &Hub{deps: deps, modules: modules, sweep: sweep}
}

// Modules returns the registered modules in order.
func (h *Hub) Modules() []Module {
	return append([]Module(nil), h.modules...)
}

// Nav lists the modules for the layout sidebar.
func (h *Hub) Nav() []view.NavItem {
	out := make([]view.NavItem, 0, len(h.modules))
	for _, m := range h.modules {
		out = append(out, view.NavItem{Title: m.Title(), Path: m.Path()})
	}
	return out
}

// MountRoutes mounts every module under its path plus the home page.
func (h *Hub) MountRoutes(r chi.Router) {
	r.Get("/", h.home)
	for _, m := range h.modules {
		r.Route(m.Path(), m.MountRoutes)
	}
}

func (h *Hub) home(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Templates.Render(w, http.StatusOK, "pages/home.html", view.TemplateData{
		Title:       "Console",
		CurrentPath: r.URL.Path,
		Data:        h.Nav(),
	}); err != nil {
		h.deps.logger().Error("template render failed", slog.Any("error", err), slog.String("template", "pages/home.html"))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// Dispatch forwards one preference change to the modules it concerns and
// returns the number of rehydrated views.
func (h *Hub) Dispatch(ctx context.Context, change prefs.Change) int {
	list, scoped := liststate.ListOfKey(change.Key)
	total := 0
	for _, m := range h.modules {
		if scoped && m.List() != list {
			continue
		}
		n := m.Rehydrate(ctx, change.Profile, change.Key)
		if n > 0 {
			h.deps.Metrics.ObservePrefChange(m.List())
		}
		total += n
	}
	return total
}

// Start subscribes to preference changes and starts the sweeper. It returns
// once the subscription is live.
func (h *Hub) Start(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cancel != nil {
		return errors.New("console: hub already started")
	}
	runCtx, cancel := context.WithCancel(ctx)
	h.watchDone = nil
	if h.deps.Store != nil {
		watchDone, err := h.deps.Store.Watch(runCtx, func(change prefs.Change) {
			h.Dispatch(runCtx, change)
		})
		if err != nil {
			cancel()
			return err
		}
		h.watchDone = watchDone
	}
	h.cancel = cancel
	h.done = make(chan struct{})
	go h.sweepLoop(runCtx, h.done)
	return nil
}

// Stop ends the subscription and the sweeper, waits for both, and unmounts
// every view. No change is dispatched after Stop returns.
func (h *Hub) Stop() {
	h.mu.Lock()
	cancel, done, watchDone := h.cancel, h.done, h.watchDone
	h.cancel, h.done, h.watchDone = nil, nil, nil
	h.mu.Unlock()
	if cancel != nil {
		cancel()
		<-done
		if watchDone != nil {
			<-watchDone
		}
	}
	for _, m := range h.modules {
		m.Close()
	}
}

func (h *Hub) sweepLoop(ctx context.Context, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(h.sweep)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, m := range h.modules {
				if n := m.Sweep(); n > 0 {
					h.deps.logger().Debug("unmounted idle views", slog.String("list", m.List()), slog.Int("views", n))
				}
			}
		}
	}
}

// CatalogNav builds the sidebar from catalog entries, in the given order,
// before any module exists.
func CatalogNav(cat *resources.Catalog, lists ...string) ([]view.NavItem, error) {
	out := make([]view.NavItem, 0, len(lists))
	for _, name := range lists {
		def, err := cat.List(name)
		if err != nil {
			return nil, err
		}
		out = append(out, view.NavItem{Title: def.Title, Path: def.Path})
	}
	return out, nil
}
