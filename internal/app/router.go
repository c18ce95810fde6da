package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/maxidea1024/gatrix-sub012/internal/console"
	"github.com/maxidea1024/gatrix-sub012/internal/observability"
	"github.com/maxidea1024/gatrix-sub012/internal/platform/httpx"
	"github.com/maxidea1024/gatrix-sub012/internal/shared"
	"github.com/maxidea1024/gatrix-sub012/internal/timesync"
	"github.com/maxidea1024/gatrix-sub012/jobs"
	"github.com/maxidea1024/gatrix-sub012/web"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	Profiles       *shared.ProfileManager
	Hub            *console.Hub
	JobHandler     *jobs.Handler
	Clock          *timesync.Service
	Metrics        *observability.Metrics
}

// NewRouter constructs the chi.Router with console defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	// Static assets skip sessions, CSRF and rate limiting.
	staticFS, err := web.Static()
	if err != nil {
		params.Logger.Error("create static sub filesystem", slog.Any("error", err))
	} else {
		fileServer := http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))
		r.Handle("/static/*", staticCacheHandler(fileServer))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		for _, mw := range MiddlewareStack(MiddlewareConfig{
			Logger:         params.Logger,
			Config:         params.Config,
			SessionManager: params.SessionManager,
			CSRFManager:    params.CSRFManager,
			Profiles:       params.Profiles,
			Metrics:        params.Metrics,
		}) {
			r.Use(mw)
		}
		r.Use(chimw.Logger)

		if params.Clock != nil {
			r.Get("/time", timeHandler(params.Clock))
		}
		if params.JobHandler != nil {
			r.Route("/jobs", params.JobHandler.MountRoutes)
		}
		params.Hub.MountRoutes(r)
	})

	return r
}

// timeHandler reports the backend-corrected clock used for schedule status.
func timeHandler(clock *timesync.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]any{
			"now":      clock.Now().UTC(),
			"offsetMs": clock.Offset().Milliseconds(),
			"lastSync": clock.LastSync().UTC(),
		})
	}
}

// staticCacheHandler wraps a file server with Cache-Control headers.
// Static assets (JS, CSS) are cached for 1 hour in browser.
func staticCacheHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}
