package app

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxidea1024/gatrix-sub012/internal/console"
	"github.com/maxidea1024/gatrix-sub012/internal/observability"
	"github.com/maxidea1024/gatrix-sub012/internal/shared"
	"github.com/maxidea1024/gatrix-sub012/internal/timesync"
	"github.com/maxidea1024/gatrix-sub012/internal/view"
	_ "github.com/maxidea1024/gatrix-sub012/testing"
)

type fixedSource struct{ at time.Time }

func (s fixedSource) ServerTime(context.Context) (time.Time, error) { return s.at, nil }

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	templates, err := view.NewEngine(view.Config{})
	require.NoError(t, err)

	clock := timesync.NewService(fixedSource{at: time.Now().Add(2 * time.Second)}, time.Hour, logger)
	require.NoError(t, clock.Sync(context.Background()))

	metrics := observability.NewMetrics()
	hub := console.NewHub(console.Deps{Logger: logger, Templates: templates, Metrics: metrics}, 0)

	cfg := &Config{AppEnv: "test", RateLimit: 1000, AppRequestTimeout: 5 * time.Second}
	return NewRouter(RouterParams{
		Logger:         logger,
		Config:         cfg,
		SessionManager: shared.NewSessionManager(client, "gatrix_session", time.Hour, false),
		CSRFManager:    shared.NewCSRFManager("secret"),
		Profiles:       shared.NewProfileManager(time.Hour, false),
		Hub:            hub,
		Clock:          clock,
		Metrics:        metrics,
	})
}

func TestRouterHealthAndStatic(t *testing.T) {
	router := newTestRouter(t)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
	assert.Empty(t, rr.Result().Cookies(), "health checks skip the session")

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/static/css/console.css", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "public, max-age=3600", rr.Header().Get("Cache-Control"))
}

func TestRouterHomeSetsCookies(t *testing.T) {
	router := newTestRouter(t)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))

	names := map[string]bool{}
	for _, c := range rr.Result().Cookies() {
		names[c.Name] = true
	}
	assert.True(t, names["gatrix_session"])
}

func TestRouterRejectsPostWithoutToken(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("a=b"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestRouterTimeReportsOffset(t *testing.T) {
	router := newTestRouter(t)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/time", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Now      time.Time `json:"now"`
		OffsetMs int64     `json:"offsetMs"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.InDelta(t, 2000, body.OffsetMs, 500)
	assert.WithinDuration(t, time.Now().Add(2*time.Second), body.Now, time.Second)
}
