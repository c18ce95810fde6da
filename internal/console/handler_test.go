package console

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxidea1024/gatrix-sub012/internal/backend"
	"github.com/maxidea1024/gatrix-sub012/internal/liststate"
	"github.com/maxidea1024/gatrix-sub012/internal/observability"
	"github.com/maxidea1024/gatrix-sub012/internal/prefs"
	"github.com/maxidea1024/gatrix-sub012/internal/resources"
	"github.com/maxidea1024/gatrix-sub012/internal/resources/flags"
	"github.com/maxidea1024/gatrix-sub012/internal/shared"
	"github.com/maxidea1024/gatrix-sub012/internal/view"
)

const testProfile = "0b7c6d2e-3d4a-4f55-9a61-7e0f1b2c3d4e"

// fakeBackend serves the flags collection in the backend envelope.
type fakeBackend struct {
	mu      sync.Mutex
	flags   map[string]flags.Flag
	order   []string
	calls   map[string]int
	failing string
}

func newFakeBackend(t *testing.T, seed ...flags.Flag) (*fakeBackend, *httptest.Server) {
	t.Helper()
	fb := &fakeBackend{flags: map[string]flags.Flag{}, calls: map[string]int{}}
	for _, f := range seed {
		fb.flags[f.ID] = f
		fb.order = append(fb.order, f.ID)
	}
	r := chi.NewRouter()
	r.Route(flags.APIPath, func(r chi.Router) {
		r.Get("/", fb.list)
		r.Post("/", fb.create)
		r.Get("/{id}", fb.get)
		r.Put("/{id}", fb.update)
		r.Delete("/{id}", fb.remove)
		r.Patch("/{id}/toggle", fb.toggle)
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return fb, srv
}

func (fb *fakeBackend) count(op string) int {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return fb.calls[op]
}

func (fb *fakeBackend) flag(id string) (flags.Flag, bool) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	f, ok := fb.flags[id]
	return f, ok
}

func writeEnvelope(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "data": data})
}

func writeFailure(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"error":   map[string]string{"code": code, "message": message},
	})
}

// hit counts op and reports whether it should fail.
func (fb *fakeBackend) hit(w http.ResponseWriter, op string) bool {
	fb.mu.Lock()
	fb.calls[op]++
	failing := fb.failing == op
	fb.mu.Unlock()
	if failing {
		writeFailure(w, http.StatusConflict, "DUPLICATE_KEY", "A flag with this key already exists.")
	}
	return failing
}

func (fb *fakeBackend) list(w http.ResponseWriter, _ *http.Request) {
	if fb.hit(w, "list") {
		return
	}
	fb.mu.Lock()
	items := make([]flags.Flag, 0, len(fb.order))
	for _, id := range fb.order {
		items = append(items, fb.flags[id])
	}
	fb.mu.Unlock()
	writeEnvelope(w, http.StatusOK, map[string]any{"items": items, "total": len(items)})
}

func (fb *fakeBackend) get(w http.ResponseWriter, r *http.Request) {
	if fb.hit(w, "get") {
		return
	}
	f, ok := fb.flag(chi.URLParam(r, "id"))
	if !ok {
		writeFailure(w, http.StatusNotFound, "NOT_FOUND", "Flag not found.")
		return
	}
	writeEnvelope(w, http.StatusOK, f)
}

func (fb *fakeBackend) create(w http.ResponseWriter, r *http.Request) {
	if fb.hit(w, "create") {
		return
	}
	var f flags.Flag
	if err := json.NewDecoder(r.Body).Decode(&f); err != nil {
		writeFailure(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}
	fb.mu.Lock()
	f.ID = "new-" + f.Key
	fb.flags[f.ID] = f
	fb.order = append(fb.order, f.ID)
	fb.mu.Unlock()
	writeEnvelope(w, http.StatusCreated, f)
}

func (fb *fakeBackend) update(w http.ResponseWriter, r *http.Request) {
	if fb.hit(w, "update") {
		return
	}
	var f flags.Flag
	if err := json.NewDecoder(r.Body).Decode(&f); err != nil {
		writeFailure(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}
	fb.mu.Lock()
	f.ID = chi.URLParam(r, "id")
	fb.flags[f.ID] = f
	fb.mu.Unlock()
	writeEnvelope(w, http.StatusOK, f)
}

func (fb *fakeBackend) remove(w http.ResponseWriter, r *http.Request) {
	if fb.hit(w, "delete") {
		return
	}
	id := chi.URLParam(r, "id")
	fb.mu.Lock()
	delete(fb.flags, id)
	for i, v := range fb.order {
		if v == id {
			fb.order = append(fb.order[:i], fb.order[i+1:]...)
			break
		}
	}
	fb.mu.Unlock()
	writeEnvelope(w, http.StatusOK, nil)
}

func (fb *fakeBackend) toggle(w http.ResponseWriter, r *http.Request) {
	if fb.hit(w, "toggle") {
		return
	}
	id := chi.URLParam(r, "id")
	fb.mu.Lock()
	f := fb.flags[id]
	f.Enabled = !f.Enabled
	fb.flags[id] = f
	fb.mu.Unlock()
	writeEnvelope(w, http.StatusOK, f)
}

type stubIdempotency struct {
	mu       sync.Mutex
	keys     map[string]bool
	released []string
}

func (s *stubIdempotency) Reserve(_ context.Context, key, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.keys == nil {
		s.keys = map[string]bool{}
	}
	if s.keys[key] {
		return shared.ErrIdempotencyConflict
	}
	s.keys[key] = true
	return nil
}

func (s *stubIdempotency) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.keys, key)
	s.released = append(s.released, key)
	return nil
}

type stubAudit struct {
	mu   sync.Mutex
	logs []shared.AuditLog
}

func (s *stubAudit) Record(_ context.Context, log shared.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, log)
	return nil
}

func (s *stubAudit) actions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, l := range s.logs {
		out = append(out, l.Action+":"+l.EntityID)
	}
	return out
}

type fixture struct {
	backend *fakeBackend
	handler *Handler[flags.Flag]
	router  http.Handler
	store   prefs.Store
	idem    *stubIdempotency
	audit   *stubAudit
	deps    Deps
}

func seedFlags() []flags.Flag {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return []flags.Flag{
		{ID: "f1", Key: "new_shop", Name: "New shop", Type: flags.TypeRelease, Environment: "production", Enabled: true, Tags: []string{"shop"}, UpdatedAt: at},
		{ID: "f2", Key: "beta_chat", Name: "Beta chat", Type: flags.TypeOperational, Environment: "qa", Tags: []string{"chat", "social"}, UpdatedAt: at.Add(time.Hour)},
		{ID: "f3", Key: "xp_boost", Name: "XP boost", Type: flags.TypeExperiment, Environment: "qa", Enabled: true, Tags: []string{"event"},
			Variants: []flags.Variant{{Name: "a", Weight: 50}, {Name: "b", Weight: 50}}, UpdatedAt: at.Add(2 * time.Hour)},
	}
}

func testDeps(t *testing.T, store prefs.Store) Deps {
	t.Helper()
	cat, err := resources.DefaultCatalog()
	require.NoError(t, err)
	engine, err := view.NewEngine(view.Config{})
	require.NoError(t, err)
	return Deps{
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		Templates: engine,
		CSRF:      shared.NewCSRFManager("test-secret"),
		Catalog:   cat,
		Store:     store,
		Metrics:   observability.NewMetrics(),
		Debounce:  time.Hour,
		ViewTTL:   time.Hour,
	}
}

func withProfile(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(shared.ContextWithProfile(r.Context(), testProfile)))
	})
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	store := prefs.NewRedisStore(client, 0)

	fb, srv := newFakeBackend(t, seedFlags()...)
	f := &fixture{backend: fb, store: store, idem: &stubIdempotency{}, audit: &stubAudit{}}
	f.deps = testDeps(t, store)
	f.deps.Idempotency = f.idem
	f.deps.Audit = f.audit

	res, err := flags.New(backend.NewClient(srv.URL, "", 2*time.Second), f.deps.Catalog)
	require.NoError(t, err)
	f.handler, err = NewHandler[flags.Flag](f.deps, res)
	require.NoError(t, err)
	t.Cleanup(f.handler.Close)

	r := chi.NewRouter()
	r.Use(withProfile)
	r.Route(f.handler.Path(), f.handler.MountRoutes)
	f.router = r
	return f
}

func (f *fixture) do(t *testing.T, method, target string, form url.Values, jsonAccept bool) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if jsonAccept {
		req.Header.Set("Accept", "application/json")
	}
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	return rr
}

var viewPattern = regexp.MustCompile(`data-view="([^"]+)"`)

// mount opens the list page and returns the view id it rendered.
func (f *fixture) mount(t *testing.T) string {
	t.Helper()
	rr := f.do(t, http.MethodGet, "/features", nil, false)
	require.Equal(t, http.StatusOK, rr.Code)
	m := viewPattern.FindStringSubmatch(rr.Body.String())
	require.Len(t, m, 2, "list page should carry its view id")
	return m[1]
}

func (f *fixture) state(t *testing.T, rr *httptest.ResponseRecorder) stateDTO {
	t.Helper()
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var dto stateDTO
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &dto))
	return dto
}

func TestIndexMountsViewAndRendersRows(t *testing.T) {
	f := newFixture(t)

	rr := f.do(t, http.MethodGet, "/features", nil, false)
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "Feature flags")
	assert.Contains(t, body, "new_shop")
	assert.Contains(t, body, "beta_chat")
	assert.Contains(t, body, "xp_boost")
	assert.Regexp(t, viewPattern, body)
	assert.Equal(t, 1, f.backend.count("list"))

	id := viewPattern.FindStringSubmatch(body)[1]
	dto := f.state(t, f.do(t, http.MethodGet, "/features/state?view="+id, nil, true))
	assert.True(t, dto.Loaded)
	assert.Equal(t, 3, dto.Total)
	assert.Equal(t, liststate.SortState{OrderBy: "updatedAt", Order: liststate.Desc}, dto.Sort)
	assert.Equal(t, liststate.DefaultRowsPerPage, dto.Page.RowsPerPage)
}

func TestRowsPartialRendersTable(t *testing.T) {
	f := newFixture(t)
	id := f.mount(t)

	rr := f.do(t, http.MethodGet, "/features/rows?view="+id, nil, false)
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "data-table")
	assert.Contains(t, body, "XP boost")
	assert.NotContains(t, body, "<html")
}

func TestUnknownViewIsGone(t *testing.T) {
	f := newFixture(t)

	rr := f.do(t, http.MethodGet, "/features/state?view=missing", nil, true)
	assert.Equal(t, http.StatusGone, rr.Code)

	rr = f.do(t, http.MethodPost, "/features/state/sort", url.Values{"view": {"missing"}, "column": {"key"}}, true)
	assert.Equal(t, http.StatusGone, rr.Code)

	rr = f.do(t, http.MethodPost, "/features/state/sort", url.Values{"view": {"missing"}, "column": {"key"}}, false)
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/features?view=missing", rr.Header().Get("Location"))
}

func TestSearchAppliesAfterFlush(t *testing.T) {
	f := newFixture(t)
	id := f.mount(t)

	dto := f.state(t, f.do(t, http.MethodPost, "/features/state/search", url.Values{"view": {id}, "q": {"beta"}}, true))
	assert.True(t, dto.SearchPending)
	assert.Empty(t, dto.EffectiveSearch)
	assert.Equal(t, 3, dto.Total)

	dto = f.state(t, f.do(t, http.MethodPost, "/features/state/search", url.Values{"view": {id}, "q": {"beta"}, "flush": {"1"}}, true))
	assert.False(t, dto.SearchPending)
	assert.Equal(t, "beta", dto.EffectiveSearch)
	assert.Equal(t, 1, dto.Total)

	// A plain form post applies immediately.
	rr := f.do(t, http.MethodPost, "/features/state/search", url.Values{"view": {id}, "q": {"shop"}}, false)
	require.Equal(t, http.StatusSeeOther, rr.Code)
	dto = f.state(t, f.do(t, http.MethodGet, "/features/state?view="+id, nil, true))
	assert.Equal(t, "shop", dto.EffectiveSearch)
	assert.Equal(t, 1, dto.Total)
}

func TestFilters(t *testing.T) {
	f := newFixture(t)
	id := f.mount(t)
	post := func(form url.Values) *httptest.ResponseRecorder {
		form.Set("view", id)
		return f.do(t, http.MethodPost, "/features/state/filters", form, true)
	}

	dto := f.state(t, post(url.Values{"action": {"add"}, "key": {"environment"}, "value": {"qa"}}))
	assert.Equal(t, 2, dto.Total)

	rr := post(url.Values{"action": {"add"}, "key": {"environment"}, "value": {"production"}})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	dto = f.state(t, post(url.Values{"action": {"set"}, "key": {"tag"}, "value": {"chat", "event"}, "operator": {"any_of"}}))
	assert.Equal(t, 2, dto.Total)
	dto = f.state(t, post(url.Values{"action": {"operator"}, "key": {"tag"}, "operator": {"include_all"}}))
	assert.Equal(t, 0, dto.Total)

	rr = post(url.Values{"action": {"operator"}, "key": {"tag"}, "operator": {"none_of"}})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	// Single value filters keep the first value only.
	dto = f.state(t, post(url.Values{"action": {"change"}, "key": {"environment"}, "value": {"production", "qa"}}))
	for _, af := range dto.Filters {
		if af.Key == "environment" {
			assert.Equal(t, []string{"production"}, af.Values)
		}
	}

	dto = f.state(t, post(url.Values{"action": {"clear"}}))
	assert.Empty(t, dto.Filters)
	assert.Equal(t, 3, dto.Total)

	rr = post(url.Values{"action": {"explode"}})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestSortPersistsPreference(t *testing.T) {
	f := newFixture(t)
	id := f.mount(t)
	ctx := context.Background()

	dto := f.state(t, f.do(t, http.MethodPost, "/features/state/sort", url.Values{"view": {id}, "column": {"key"}}, true))
	assert.Equal(t, liststate.SortState{OrderBy: "key", Order: liststate.Asc}, dto.Sort)

	dto = f.state(t, f.do(t, http.MethodPost, "/features/state/sort", url.Values{"view": {id}, "column": {"key"}}, true))
	assert.Equal(t, liststate.Desc, dto.Sort.Order)

	by, ok, err := f.store.Get(ctx, testProfile, liststate.SortByKey("features"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "key", by)
	order, _, err := f.store.Get(ctx, testProfile, liststate.SortOrderKey("features"))
	require.NoError(t, err)
	assert.Equal(t, "desc", order)

	rr := f.do(t, http.MethodPost, "/features/state/sort", url.Values{"view": {id}, "column": {"nope"}}, true)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	// A new view starts from the stored sort.
	other := f.mount(t)
	dto = f.state(t, f.do(t, http.MethodGet, "/features/state?view="+other, nil, true))
	assert.Equal(t, liststate.SortState{OrderBy: "key", Order: liststate.Desc}, dto.Sort)
}

func TestPageSizeIsSharedAcrossViews(t *testing.T) {
	f := newFixture(t)
	id := f.mount(t)

	dto := f.state(t, f.do(t, http.MethodPost, "/features/state/page", url.Values{"view": {id}, "rowsPerPage": {"5"}}, true))
	assert.Equal(t, 5, dto.Page.RowsPerPage)

	rr := f.do(t, http.MethodPost, "/features/state/page", url.Values{"view": {id}, "rowsPerPage": {"7"}}, true)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	rr = f.do(t, http.MethodPost, "/features/state/page", url.Values{"view": {id}, "page": {"x"}}, true)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	v, ok, err := f.store.Get(context.Background(), testProfile, liststate.PageSizeKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "5", v)

	other := f.mount(t)
	dto = f.state(t, f.do(t, http.MethodGet, "/features/state?view="+other, nil, true))
	assert.Equal(t, 5, dto.Page.RowsPerPage)
}

func TestColumnsToggleMoveAndReset(t *testing.T) {
	f := newFixture(t)
	id := f.mount(t)
	post := func(path string, form url.Values) stateDTO {
		form.Set("view", id)
		return f.state(t, f.do(t, http.MethodPost, path, form, true))
	}
	visible := func(cols []liststate.ColumnConfig, id string) bool {
		for _, c := range cols {
			if c.ID == id {
				return c.Visible
			}
		}
		t.Fatalf("column %s missing", id)
		return false
	}

	dto := post("/features/state/columns", url.Values{"op": {"toggle"}, "column": {"name"}})
	assert.False(t, visible(dto.Columns, "name"))
	assert.Equal(t, "select", dto.Columns[0].ID)
	assert.Equal(t, "actions", dto.Columns[len(dto.Columns)-1].ID)

	raw, ok, err := f.store.Get(context.Background(), testProfile, liststate.ColumnsKey("features"))
	require.NoError(t, err)
	require.True(t, ok)
	var stored []liststate.ColumnConfig
	require.NoError(t, json.Unmarshal([]byte(raw), &stored))
	assert.False(t, visible(stored, "name"))

	dto = post("/features/state/columns", url.Values{"op": {"move"}, "from": {"0"}, "to": {"2"}})
	assert.Equal(t, "select", dto.Columns[0].ID)
	assert.Equal(t, "name", dto.Columns[1].ID)

	rr := f.do(t, http.MethodPost, "/features/state/columns", url.Values{"view": {id}, "op": {"move"}, "from": {"a"}}, true)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	dto = post("/features/state/columns/reset", url.Values{})
	def, err := f.deps.Catalog.List("features")
	require.NoError(t, err)
	assert.Equal(t, def.Columns, dto.Columns)
}

func TestColumnsReplaceIgnoresUnknownIDs(t *testing.T) {
	f := newFixture(t)
	id := f.mount(t)

	cols := `[{"id":"name","labelKey":"flags.name","visible":false},{"id":"evil","labelKey":"x","visible":true}]`
	dto := f.state(t, f.do(t, http.MethodPost, "/features/state/columns", url.Values{"view": {id}, "op": {"replace"}, "columns": {cols}}, true))

	def, err := f.deps.Catalog.List("features")
	require.NoError(t, err)
	require.Len(t, dto.Columns, len(def.Columns))
	for _, c := range dto.Columns {
		assert.NotEqual(t, "evil", c.ID)
	}

	raw, ok, err := f.store.Get(context.Background(), testProfile, liststate.ColumnsKey("features"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotContains(t, raw, "evil")
}

func TestExportCSV(t *testing.T) {
	f := newFixture(t)
	id := f.mount(t)
	f.state(t, f.do(t, http.MethodPost, "/features/state/sort", url.Values{"view": {id}, "column": {"key"}}, true))

	rr := f.do(t, http.MethodGet, "/features/export.csv?view="+id, nil, false)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "text/csv")
	assert.Regexp(t, `attachment; filename="features-\d{8}-\d{4}\.csv"`, rr.Header().Get("Content-Disposition"))

	var data []string
	for _, line := range strings.Split(rr.Body.String(), "\r\n") {
		if line != "" && !strings.HasPrefix(line, "#") {
			data = append(data, line)
		}
	}
	records, err := csv.NewReader(strings.NewReader(strings.Join(data, "\n"))).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, []string{"Key", "Name", "Type", "Environment", "Enabled", "Tags"}, records[0])
	assert.Equal(t, "beta_chat", records[1][0])
	assert.Equal(t, "chat, social", records[1][5])
	assert.Equal(t, "xp_boost", records[3][0])
	assert.Contains(t, rr.Body.String(), "# List: Feature flags")
}

func TestCreateValidationKeepsInput(t *testing.T) {
	f := newFixture(t)

	rr := f.do(t, http.MethodPost, "/features", url.Values{
		"key":             {"spring_event"},
		"type":            {"release"},
		"environment":     {"qa"},
		"idempotency_key": {"k1"},
	}, false)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, rr.Body.String(), "is required")
	assert.Contains(t, rr.Body.String(), "spring_event")
	assert.Contains(t, rr.Body.String(), `value="k1"`)
	assert.Equal(t, 0, f.backend.count("create"))
}

func TestCreateIsIdempotent(t *testing.T) {
	f := newFixture(t)
	form := url.Values{
		"key":             {"spring_event"},
		"name":            {"Spring event"},
		"type":            {"release"},
		"environment":     {"qa"},
		"tags":            {"event"},
		"idempotency_key": {"k1"},
		"view":            {"v1"},
	}

	rr := f.do(t, http.MethodPost, "/features", form, false)
	require.Equal(t, http.StatusSeeOther, rr.Code, rr.Body.String())
	assert.Equal(t, "/features?view=v1", rr.Header().Get("Location"))
	assert.Equal(t, 1, f.backend.count("create"))
	_, ok := f.backend.flag("new-spring_event")
	assert.True(t, ok)
	assert.Equal(t, []string{"create:new-spring_event"}, f.audit.actions())

	rr = f.do(t, http.MethodPost, "/features", form, false)
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, 1, f.backend.count("create"))
}

func TestCreateFailureReleasesKey(t *testing.T) {
	f := newFixture(t)
	f.backend.failing = "create"

	rr := f.do(t, http.MethodPost, "/features", url.Values{
		"key":             {"new_shop"},
		"name":            {"Shop again"},
		"type":            {"release"},
		"environment":     {"qa"},
		"idempotency_key": {"k2"},
	}, false)
	assert.Equal(t, http.StatusBadGateway, rr.Code)
	assert.Contains(t, rr.Body.String(), "A flag with this key already exists.")
	assert.Equal(t, []string{"k2"}, f.idem.released)
	assert.Empty(t, f.audit.actions())
}

func TestEditFormAndUpdate(t *testing.T) {
	f := newFixture(t)

	rr := f.do(t, http.MethodGet, "/features/f1/edit", nil, false)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `action="/features/f1"`)

	unchanged := url.Values{
		"key":         {"new_shop"},
		"name":        {"New shop"},
		"type":        {"release"},
		"environment": {"production"},
		"enabled":     {"on"},
		"tags":        {"shop"},
	}
	rr = f.do(t, http.MethodPost, "/features/f1", unchanged, false)
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, 0, f.backend.count("update"))

	changed := url.Values{}
	for k, v := range unchanged {
		changed[k] = v
	}
	changed.Set("name", "Shop v2")
	rr = f.do(t, http.MethodPost, "/features/f1", changed, false)
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, 1, f.backend.count("update"))
	got, _ := f.backend.flag("f1")
	assert.Equal(t, "Shop v2", got.Name)
	assert.Equal(t, []string{"update:f1"}, f.audit.actions())

	rr = f.do(t, http.MethodGet, "/features/missing/edit", nil, false)
	assert.Equal(t, http.StatusSeeOther, rr.Code)
}

var tokenPattern = regexp.MustCompile(`name="token" value="([^"]+)"`)

func (f *fixture) arm(t *testing.T, target string) string {
	t.Helper()
	rr := f.do(t, http.MethodGet, target, nil, false)
	require.Equal(t, http.StatusOK, rr.Code)
	m := tokenPattern.FindStringSubmatch(rr.Body.String())
	require.Len(t, m, 2, "confirmation page should carry a token")
	return m[1]
}

func TestDeleteRunsOncePerConfirmation(t *testing.T) {
	f := newFixture(t)

	token := f.arm(t, "/features/f2/delete?view=v1")
	rr := f.do(t, http.MethodPost, "/features/f2/delete", url.Values{"token": {token}, "view": {"v1"}}, false)
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/features?view=v1", rr.Header().Get("Location"))
	_, ok := f.backend.flag("f2")
	assert.False(t, ok)

	rr = f.do(t, http.MethodPost, "/features/f2/delete", url.Values{"token": {token}}, false)
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, 1, f.backend.count("delete"))
	assert.Equal(t, []string{"delete:f2"}, f.audit.actions())
}

func TestConfirmationIsBoundToEntity(t *testing.T) {
	f := newFixture(t)

	token := f.arm(t, "/features/f1/delete")
	rr := f.do(t, http.MethodPost, "/features/f2/delete", url.Values{"token": {token}}, false)
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, 0, f.backend.count("delete"))
}

func TestToggleCancel(t *testing.T) {
	f := newFixture(t)

	token := f.arm(t, "/features/f2/toggle")
	rr := f.do(t, http.MethodPost, "/features/f2/toggle", url.Values{"token": {token}, "cancel": {"1"}}, false)
	assert.Equal(t, http.StatusSeeOther, rr.Code)

	rr = f.do(t, http.MethodPost, "/features/f2/toggle", url.Values{"token": {token}}, false)
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, 0, f.backend.count("toggle"))

	token = f.arm(t, "/features/f2/toggle")
	f.do(t, http.MethodPost, "/features/f2/toggle", url.Values{"token": {token}}, false)
	got, _ := f.backend.flag("f2")
	assert.True(t, got.Enabled)
	assert.Equal(t, []string{"toggle:f2"}, f.audit.actions())
}

func TestBackendListFailureRendersError(t *testing.T) {
	f := newFixture(t)
	f.backend.failing = "list"

	rr := f.do(t, http.MethodGet, "/features", nil, false)
	require.Equal(t, http.StatusOK, rr.Code)
	id := viewPattern.FindStringSubmatch(rr.Body.String())[1]

	dto := f.state(t, f.do(t, http.MethodGet, "/features/state?view="+id, nil, true))
	assert.True(t, dto.Loaded)
	assert.Equal(t, 0, dto.Total)
	assert.Equal(t, "A flag with this key already exists.", dto.Error)
}
