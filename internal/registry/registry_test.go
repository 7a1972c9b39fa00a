package registry

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/readyrobots/leadengine/internal/id/uuid"
	"github.com/readyrobots/leadengine/internal/leads"
	"github.com/readyrobots/leadengine/internal/store"
	"github.com/readyrobots/leadengine/internal/store/memory"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

var registryNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	st := memory.New()
	return New(st, fixedClock{t: registryNow}, uuid.New(), zap.NewNop()), st
}

func TestImportURLsDetectsKindAndIndustry(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	report, err := svc.ImportURLs(ctx, []TargetInput{
		{URL: "https://careers.grandpacifichotels.com/jobs"},
		{URL: "https://www.supplychaindive.com/news/rss.xml"},
		{URL: "https://www.yellowpages.example.com/ohio/restaurants"},
	})
	require.NoError(t, err)
	require.Len(t, report.Created, 3)
	assert.Empty(t, report.Skipped)

	assert.Equal(t, leads.KindJobBoard, report.Created[0].Kind)
	assert.Contains(t, report.Created[0].Industries, "hospitality")
	assert.Equal(t, []leads.SignalType{leads.SignalLaborPain}, report.Created[0].SignalHints)

	assert.Equal(t, leads.KindNewsFeed, report.Created[1].Kind)
	assert.Contains(t, report.Created[1].Industries, "logistics")

	assert.Equal(t, leads.KindDirectory, report.Created[2].Kind)
	assert.Contains(t, report.Created[2].Industries, "food_service")

	for _, tgt := range report.Created {
		assert.True(t, tgt.Active)
		assert.Equal(t, leads.CadenceDaily, tgt.Cadence)
		assert.NotEmpty(t, tgt.ID)
		assert.NotEmpty(t, tgt.Label)
	}
}

func TestImportURLsSkipsBadAndDuplicateRows(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	report, err := svc.ImportURLs(ctx, []TargetInput{
		{URL: "https://jobs.example.com"},
		{URL: "https://jobs.example.com"},
		{URL: "not a url"},
		{URL: ""},
		{URL: "ftp://feeds.example.com/rss"},
		{URL: "https://jobs2.example.com", Cadence: "fortnightly"},
	})
	require.NoError(t, err)
	assert.Len(t, report.Created, 1)
	require.Len(t, report.Skipped, 5)
	assert.Equal(t, "already registered", report.Skipped[0].Reason)
	assert.Equal(t, "not an absolute http(s) url", report.Skipped[1].Reason)
	assert.Equal(t, "empty url", report.Skipped[2].Reason)
	assert.Equal(t, "not an absolute http(s) url", report.Skipped[3].Reason)
	assert.Equal(t, `unknown cadence "fortnightly"`, report.Skipped[4].Reason)
}

func TestImportURLsHonorsExplicitFields(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	report, err := svc.ImportURLs(ctx, []TargetInput{{
		URL:         "https://example.com/page",
		Label:       "Regional news",
		Kind:        leads.KindNewsFeed,
		Industries:  []string{"healthcare"},
		SignalHints: []leads.SignalType{leads.SignalExpansion},
		Cadence:     leads.CadenceHourly,
	}})
	require.NoError(t, err)
	require.Len(t, report.Created, 1)

	tgt := report.Created[0]
	assert.Equal(t, "Regional news", tgt.Label)
	assert.Equal(t, leads.KindNewsFeed, tgt.Kind)
	assert.Equal(t, []string{"healthcare"}, tgt.Industries)
	assert.Equal(t, []leads.SignalType{leads.SignalExpansion}, tgt.SignalHints)
	assert.Equal(t, leads.CadenceHourly, tgt.Cadence)
}

func TestDueRespectsCadenceAndActiveFlag(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	report, err := svc.ImportURLs(ctx, []TargetInput{
		{URL: "https://jobs.example.com", Cadence: leads.CadenceHourly},
		{URL: "https://jobs2.example.com", Cadence: leads.CadenceDaily},
		{URL: "https://jobs3.example.com", Cadence: leads.CadenceDaily},
	})
	require.NoError(t, err)
	require.Len(t, report.Created, 3)

	// Never run: everything active is due.
	due, err := svc.Due(ctx)
	require.NoError(t, err)
	assert.Len(t, due, 3)

	// Ran 2h ago: hourly is due again, daily is not.
	ranAt := registryNow.Add(-2 * time.Hour)
	for _, tgt := range report.Created[:2] {
		require.NoError(t, st.MarkTargetRun(ctx, tgt.ID, ranAt))
	}
	require.NoError(t, svc.SetActive(ctx, report.Created[2].ID, false))

	due, err = svc.Due(ctx)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "https://jobs.example.com", due[0].URL)
}

func TestSetActiveUnknownTarget(t *testing.T) {
	svc, _ := newTestService(t)
	err := svc.SetActive(context.Background(), "ghost", false)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDetectKindPrefersJobBoards(t *testing.T) {
	u, _ := url.Parse("https://hotelchain.example.com/careers/news")
	assert.Equal(t, leads.KindJobBoard, DetectKind(u))
}
