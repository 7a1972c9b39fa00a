package runner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	eventsmem "github.com/readyrobots/leadengine/internal/events/memory"
	"github.com/readyrobots/leadengine/internal/hash/sha256"
	"github.com/readyrobots/leadengine/internal/health"
	"github.com/readyrobots/leadengine/internal/id/uuid"
	"github.com/readyrobots/leadengine/internal/ingest"
	"github.com/readyrobots/leadengine/internal/leads"
	"github.com/readyrobots/leadengine/internal/lexicon"
	"github.com/readyrobots/leadengine/internal/queue"
	"github.com/readyrobots/leadengine/internal/scoring"
	"github.com/readyrobots/leadengine/internal/scrape"
	snapmem "github.com/readyrobots/leadengine/internal/snapshot/memory"
	"github.com/readyrobots/leadengine/internal/store/memory"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type fakeFetcher struct {
	resp  scrape.FetchResponse
	err   error
	calls int
}

func (f *fakeFetcher) Fetch(_ context.Context, _ scrape.FetchRequest) (scrape.FetchResponse, error) {
	f.calls++
	if f.err != nil {
		return scrape.FetchResponse{}, f.err
	}
	return f.resp, nil
}

var runnerNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type fixture struct {
	runner  *Runner
	store   *memory.Store
	monitor *health.Monitor
	snaps   *snapmem.Store
	fetcher *fakeFetcher
}

func newFixture(t *testing.T, fetcher *fakeFetcher) *fixture {
	t.Helper()
	ctx := context.Background()
	st := memory.New()
	clock := fixedClock{t: runnerNow}
	log := zap.NewNop()

	monitor, err := health.NewMonitor(ctx, health.Policy{
		OpenThreshold: 3,
		CooldownBase:  10 * time.Minute,
		RestartCap:    6,
	}, st, clock, log)
	require.NoError(t, err)

	normalizer := ingest.NewNormalizer(st, st, lexicon.New(), clock, uuid.New(), sha256.New(), log)
	scorer := scoring.NewService(st, st, st, eventsmem.New(), clock, 2, log)
	snaps := snapmem.New()

	r := New(
		fetcher, nil,
		scrape.NewHostLimiter(time.Millisecond, 10),
		monitor, snaps, normalizer, scorer, st, clock, log,
	)
	return &fixture{runner: r, store: st, monitor: monitor, snaps: snaps, fetcher: fetcher}
}

func jobTarget(t *testing.T, fx *fixture) leads.ScrapeTarget {
	t.Helper()
	target := leads.ScrapeTarget{
		ID:          "t1",
		URL:         "https://jobs.example.com/warehouse",
		Kind:        leads.KindJobBoard,
		Industries:  []string{"logistics"},
		SignalHints: []leads.SignalType{leads.SignalLaborPain},
		Cadence:     leads.CadenceDaily,
		Active:      true,
		CreatedAt:   runnerNow,
	}
	require.NoError(t, fx.store.CreateTarget(context.Background(), target))
	return target
}

const jobBoardHTML = `<div class="job_seen_beacon">
  <h2 class="jobTitle">Warehouse Associate</h2>
  <span class="companyName">Midwest Cold Storage</span>
  <div>Forklift operator and material handler roles. Immediate hire.</div>
</div>`

func TestRunHappyPath(t *testing.T) {
	fx := newFixture(t, &fakeFetcher{resp: scrape.FetchResponse{
		URL: "https://jobs.example.com/warehouse", StatusCode: 200, Body: []byte(jobBoardHTML),
	}})
	target := jobTarget(t, fx)
	ctx := context.Background()

	res, err := fx.runner.Run(ctx, queue.RunItem{Target: target})
	require.NoError(t, err)
	assert.Equal(t, OutcomeOK, res.Outcome)
	assert.Equal(t, 1, res.Fragments)
	assert.Equal(t, 1, res.NewSignals)
	assert.Equal(t, 1, res.Companies)
	assert.NotEmpty(t, res.SnapshotURI)
	assert.Equal(t, 1, fx.snaps.Len())

	// Company exists, its signal landed, and a score row was written.
	company, err := fx.store.GetCompanyByNameKey(ctx, "midwest cold storage")
	require.NoError(t, err)
	_, err = fx.store.GetScore(ctx, company.ID)
	require.NoError(t, err)

	// Health ledger saw the success and the run was stamped.
	rec, ok := fx.monitor.Record(target.URL)
	require.True(t, ok)
	assert.Equal(t, 1, rec.Successes)
	assert.False(t, rec.CircuitOpen)

	stored, err := fx.store.GetTargetByURL(ctx, target.URL)
	require.NoError(t, err)
	require.NotNil(t, stored.LastRunAt)
	assert.Equal(t, runnerNow, *stored.LastRunAt)
}

func TestRunRepeatIsFullyDeduped(t *testing.T) {
	fx := newFixture(t, &fakeFetcher{resp: scrape.FetchResponse{
		StatusCode: 200, Body: []byte(jobBoardHTML),
	}})
	target := jobTarget(t, fx)
	ctx := context.Background()

	_, err := fx.runner.Run(ctx, queue.RunItem{Target: target})
	require.NoError(t, err)
	res, err := fx.runner.Run(ctx, queue.RunItem{Target: target})
	require.NoError(t, err)

	assert.Equal(t, OutcomeOK, res.Outcome)
	assert.Zero(t, res.NewSignals)
	assert.Equal(t, 1, res.Deduped)

	sigs, err := fx.store.ListSignals(ctx)
	require.NoError(t, err)
	assert.Len(t, sigs, 1)
}

func TestRunFetchFailureFeedsBreaker(t *testing.T) {
	fx := newFixture(t, &fakeFetcher{err: errors.New("connection refused")})
	target := jobTarget(t, fx)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := fx.runner.Run(ctx, queue.RunItem{Target: target})
		require.NoError(t, err)
		assert.Equal(t, OutcomeFetchError, res.Outcome)
	}

	rec, ok := fx.monitor.Record(target.URL)
	require.True(t, ok)
	assert.True(t, rec.CircuitOpen)
	assert.Equal(t, 3, rec.ConsecutiveFailures)

	// An open circuit short-circuits before the fetcher.
	calls := fx.fetcher.calls
	res, err := fx.runner.Run(ctx, queue.RunItem{Target: target})
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, res.Outcome)
	assert.Equal(t, calls, fx.fetcher.calls)
}

func TestRunBadStatusIsFailure(t *testing.T) {
	fx := newFixture(t, &fakeFetcher{resp: scrape.FetchResponse{StatusCode: 503}})
	target := jobTarget(t, fx)

	res, err := fx.runner.Run(context.Background(), queue.RunItem{Target: target})
	require.NoError(t, err)
	assert.Equal(t, OutcomeBadStatus, res.Outcome)

	rec, ok := fx.monitor.Record(target.URL)
	require.True(t, ok)
	assert.Equal(t, 1, rec.ConsecutiveFailures)
}

func TestRunParseErrorDoesNotFeedBreaker(t *testing.T) {
	fx := newFixture(t, &fakeFetcher{resp: scrape.FetchResponse{
		StatusCode: 200, Body: []byte("<html>not a feed"),
	}})
	target := leads.ScrapeTarget{
		ID: "t2", URL: "https://news.example.com/rss", Kind: leads.KindNewsFeed,
		Cadence: leads.CadenceDaily, Active: true, CreatedAt: runnerNow,
	}
	require.NoError(t, fx.store.CreateTarget(context.Background(), target))

	res, err := fx.runner.Run(context.Background(), queue.RunItem{Target: target})
	require.NoError(t, err)
	assert.Equal(t, OutcomeParseError, res.Outcome)

	// The fetch itself succeeded; the ledger must show that.
	rec, ok := fx.monitor.Record(target.URL)
	require.True(t, ok)
	assert.Zero(t, rec.ConsecutiveFailures)
	assert.Equal(t, 1, rec.Successes)
	assert.False(t, rec.CircuitOpen)
}

func TestRunCancellationIsFailureNotSuccess(t *testing.T) {
	fx := newFixture(t, &fakeFetcher{err: context.Canceled})
	target := jobTarget(t, fx)

	res, err := fx.runner.Run(context.Background(), queue.RunItem{Target: target})
	require.NoError(t, err)
	assert.Equal(t, OutcomeFetchError, res.Outcome)

	rec, ok := fx.monitor.Record(target.URL)
	require.True(t, ok)
	assert.Equal(t, 1, rec.Failures)
	assert.Zero(t, rec.Successes)
}
