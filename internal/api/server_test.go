package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/readyrobots/leadengine/internal/config"
	"github.com/readyrobots/leadengine/internal/dispatcher"
	eventsmem "github.com/readyrobots/leadengine/internal/events/memory"
	"github.com/readyrobots/leadengine/internal/hash/sha256"
	"github.com/readyrobots/leadengine/internal/health"
	"github.com/readyrobots/leadengine/internal/id/uuid"
	"github.com/readyrobots/leadengine/internal/ingest"
	"github.com/readyrobots/leadengine/internal/lexicon"
	queuemem "github.com/readyrobots/leadengine/internal/queue/memory"
	"github.com/readyrobots/leadengine/internal/registry"
	"github.com/readyrobots/leadengine/internal/runner"
	"github.com/readyrobots/leadengine/internal/scoring"
	"github.com/readyrobots/leadengine/internal/scrape"
	"github.com/readyrobots/leadengine/internal/search"
	"github.com/readyrobots/leadengine/internal/snapshot"
	"github.com/readyrobots/leadengine/internal/store/memory"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type stubFetcher struct{}

func (stubFetcher) Fetch(context.Context, scrape.FetchRequest) (scrape.FetchResponse, error) {
	return scrape.FetchResponse{StatusCode: 200, Body: []byte("<html></html>")}, nil
}

type fixture struct {
	server     *Server
	store      *memory.Store
	normalizer *ingest.Normalizer
	registry   *registry.Service
}

func newFixture(t *testing.T, cfg config.Config) *fixture {
	t.Helper()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	clock := fixedClock{t: now}
	st := memory.New()
	log := zap.NewNop()

	monitor, err := health.NewMonitor(context.Background(), health.DefaultPolicy(), st, clock, log)
	require.NoError(t, err)

	lex := lexicon.New()
	normalizer := ingest.NewNormalizer(st, st, lex, clock, uuid.New(), sha256.New(), log)
	scorer := scoring.NewService(st, st, st, eventsmem.New(), clock, 2, log)
	run := runner.New(
		stubFetcher{}, nil,
		scrape.NewHostLimiter(time.Millisecond, 10),
		monitor, snapshot.NoOp{}, normalizer, scorer, st, clock, log,
	)
	reg := registry.New(st, clock, uuid.New(), log)
	q := queuemem.New(16)
	disp := dispatcher.New(dispatcher.Config{Workers: 1, ScheduleInterval: time.Hour}, q, run, reg, clock, log)
	searcher := search.NewService(st, st, st, search.Limits{}, log)

	srv := NewServer(Deps{
		Registry:   reg,
		Dispatcher: disp,
		Monitor:    monitor,
		Search:     searcher,
		Scoring:    scorer,
		Normalizer: normalizer,
		Companies:  st,
		Signals:    st,
		Scores:     st,
	}, cfg, log)

	return &fixture{server: srv, store: st, normalizer: normalizer, registry: reg}
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&payload))
	return payload
}

func TestHealthz(t *testing.T) {
	f := newFixture(t, config.Config{})
	rec := f.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode(t, rec)["status"])
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestAPIKeyMiddleware(t *testing.T) {
	cfg := config.Config{}
	cfg.Auth.Enabled = true
	cfg.Auth.APIKey = "secret"
	f := newFixture(t, cfg)

	rec := f.do(t, http.MethodGet, "/v1/admin/stats", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/v1/admin/stats", nil)
	req.Header.Set("X-API-Key", "secret")
	rr := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)

	rec = f.do(t, http.MethodGet, "/v1/admin/stats?api_key=secret", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Unversioned endpoints stay open.
	rec = f.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestImportAndListTargets(t *testing.T) {
	f := newFixture(t, config.Config{})

	rec := f.do(t, http.MethodPost, "/v1/admin/targets/import", map[string]any{
		"targets": []map[string]any{
			{"url": "https://jobs.example.com/careers"},
			{"url": "https://example.com/news/rss"},
			{"url": "not a url"},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	payload := decode(t, rec)
	assert.EqualValues(t, 2, payload["added"])
	assert.EqualValues(t, 1, payload["skipped"])
	assert.Len(t, payload["skipped_details"], 1)
	assert.Len(t, payload["targets"], 2)

	rec = f.do(t, http.MethodGet, "/v1/admin/targets?kind=job_board", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decode(t, rec)["count"])

	rec = f.do(t, http.MethodPost, "/v1/admin/targets/import", map[string]any{"targets": []map[string]any{}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestImportTargetsURLShorthand(t *testing.T) {
	f := newFixture(t, config.Config{})

	rec := f.do(t, http.MethodPost, "/v1/admin/targets/import", map[string]any{
		"urls":       []string{"https://jobs.example.com/careers"},
		"industry":   "logistics",
		"cadence":    "hourly",
		"scrape_now": true,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	payload := decode(t, rec)
	assert.EqualValues(t, 1, payload["added"])
	assert.EqualValues(t, 1, payload["queued"])

	created := payload["targets"].([]any)[0].(map[string]any)
	assert.Equal(t, "hourly", created["cadence"])
	assert.Equal(t, []any{"logistics"}, created["industries"])
}

func TestSetTargetActive(t *testing.T) {
	f := newFixture(t, config.Config{})
	report, err := f.registry.ImportURLs(context.Background(), []registry.TargetInput{
		{URL: "https://jobs.example.com"},
	})
	require.NoError(t, err)

	path := fmt.Sprintf("/v1/admin/targets/%s/active", report.Created[0].ID)
	rec := f.do(t, http.MethodPost, path, map[string]any{"active": false})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/v1/admin/targets?active=true", nil)
	assert.EqualValues(t, 0, decode(t, rec)["count"])

	rec = f.do(t, http.MethodPost, "/v1/admin/targets/missing/active", map[string]any{"active": true})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTriggerScrape(t *testing.T) {
	f := newFixture(t, config.Config{})
	_, err := f.registry.ImportURLs(context.Background(), []registry.TargetInput{
		{URL: "https://jobs.example.com"},
	})
	require.NoError(t, err)

	rec := f.do(t, http.MethodPost, "/v1/scrape/trigger", map[string]any{"kind": "job_board"})
	require.Equal(t, http.StatusAccepted, rec.Code)
	payload := decode(t, rec)
	assert.Equal(t, "queued", payload["status"])
	assert.EqualValues(t, 1, payload["queued"])

	rec = f.do(t, http.MethodPost, "/v1/scrape/trigger", map[string]any{"kind": "directory"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "skipped", decode(t, rec)["status"])

	rec = f.do(t, http.MethodPost, "/v1/scrape/trigger", map[string]any{"kind": "bogus"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestScraperHealthAndReset(t *testing.T) {
	f := newFixture(t, config.Config{})

	rec := f.do(t, http.MethodGet, "/v1/scrape/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	payload := decode(t, rec)
	summary, ok := payload["summary"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "no runs yet", summary["last_run_status"])

	rec = f.do(t, http.MethodPost, "/v1/scrape/health/reset", map[string]any{"url": "https://unknown.example.com"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodPost, "/v1/scrape/health/reset", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["reset_all"])
}

func TestImportCompaniesAndLeads(t *testing.T) {
	f := newFixture(t, config.Config{})

	rec := f.do(t, http.MethodPost, "/v1/admin/companies/import", map[string]any{
		"companies": []map[string]any{
			{"name": "Midwest Cold Storage", "industry": "logistics"},
			{"name": "Midwest Cold Storage"},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	payload := decode(t, rec)
	assert.EqualValues(t, 1, payload["added"])
	assert.EqualValues(t, 1, payload["skipped"])

	created := payload["companies"].([]any)[0].(map[string]any)
	companyID := created["id"].(string)

	rec = f.do(t, http.MethodPost, "/v1/scores/recompute", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decode(t, rec)["recomputed"])

	rec = f.do(t, http.MethodGet, "/v1/leads?exclude_junk=false", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decode(t, rec)["count"])

	// A company with no qualifying signals is junk and hidden by default.
	rec = f.do(t, http.MethodGet, "/v1/leads", nil)
	assert.EqualValues(t, 0, decode(t, rec)["count"])

	rec = f.do(t, http.MethodGet, "/v1/leads/"+companyID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	lead := decode(t, rec)
	assert.NotNil(t, lead["company"])
	assert.NotNil(t, lead["score"])

	rec = f.do(t, http.MethodGet, "/v1/leads/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodGet, "/v1/leads/summary", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	summary := decode(t, rec)
	assert.EqualValues(t, 0, summary["total"])
	assert.EqualValues(t, 1, summary["junk_filtered"])
}

func TestRecomputeCompanyNotFound(t *testing.T) {
	f := newFixture(t, config.Config{})
	rec := f.do(t, http.MethodPost, "/v1/scores/recompute/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSearchEndpoint(t *testing.T) {
	f := newFixture(t, config.Config{})
	res, err := f.normalizer.ImportCompanies(context.Background(), []ingest.CompanyInput{
		{Name: "Acme Logistics", Industry: "logistics"},
	})
	require.NoError(t, err)
	require.Len(t, res.Created, 1)

	rec := f.do(t, http.MethodGet, "/v1/search?q=acme", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	payload := decode(t, rec)
	assert.EqualValues(t, 1, payload["total"])
	assert.Equal(t, "acme", payload["query"])

	rec = f.do(t, http.MethodGet, "/v1/search?category=acquisitions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Acquisitions & Mergers", decode(t, rec)["category_label"])

	rec = f.do(t, http.MethodGet, "/v1/search?category=nope", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodGet, "/v1/search", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodGet, "/v1/search/categories", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decode(t, rec)["categories"])
}

func TestStats(t *testing.T) {
	f := newFixture(t, config.Config{})
	_, err := f.registry.ImportURLs(context.Background(), []registry.TargetInput{
		{URL: "https://jobs.example.com"},
	})
	require.NoError(t, err)

	rec := f.do(t, http.MethodGet, "/v1/admin/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	payload := decode(t, rec)
	assert.EqualValues(t, 1, payload["targets"])
	assert.EqualValues(t, 1, payload["active_targets"])
	assert.EqualValues(t, 0, payload["companies"])
}
