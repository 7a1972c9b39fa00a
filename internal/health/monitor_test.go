package health

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/readyrobots/leadengine/internal/leads"
	"github.com/readyrobots/leadengine/internal/store/memory"
)

type stepClock struct{ t time.Time }

func (c *stepClock) Now() time.Time { return c.t }

func (c *stepClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestMonitor(t *testing.T, pol Policy) (*Monitor, *stepClock, *memory.Store) {
	t.Helper()
	clock := &stepClock{t: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}
	st := memory.New()
	m, err := NewMonitor(context.Background(), pol, st, clock, zap.NewNop())
	require.NoError(t, err)
	return m, clock, st
}

func TestFailuresBelowThresholdStayClosed(t *testing.T) {
	m, _, _ := newTestMonitor(t, Policy{OpenThreshold: 3, CooldownBase: time.Minute, RestartCap: 6})
	ctx := context.Background()
	url := "https://jobs.example.com"

	require.NoError(t, m.RecordFailure(ctx, url, "timeout"))
	require.NoError(t, m.RecordFailure(ctx, url, "timeout"))
	assert.True(t, m.IsEligible(url))

	rec, ok := m.Record(url)
	require.True(t, ok)
	assert.Equal(t, 2, rec.ConsecutiveFailures)
	assert.False(t, rec.CircuitOpen)
}

func TestThresholdOpensCircuit(t *testing.T) {
	m, _, _ := newTestMonitor(t, Policy{OpenThreshold: 3, CooldownBase: time.Minute, RestartCap: 6})
	ctx := context.Background()
	url := "https://jobs.example.com"

	for i := 0; i < 3; i++ {
		require.NoError(t, m.RecordFailure(ctx, url, "boom"))
	}
	assert.False(t, m.IsEligible(url))

	rec, _ := m.Record(url)
	assert.True(t, rec.CircuitOpen)
	require.NotNil(t, rec.OpenedAt)
	assert.Equal(t, "boom", rec.LastError)
}

func TestHalfOpenGrantsSingleProbe(t *testing.T) {
	m, clock, _ := newTestMonitor(t, Policy{OpenThreshold: 2, CooldownBase: time.Minute, RestartCap: 6})
	ctx := context.Background()
	url := "https://jobs.example.com"

	require.NoError(t, m.RecordFailure(ctx, url, "boom"))
	require.NoError(t, m.RecordFailure(ctx, url, "boom"))
	assert.False(t, m.IsEligible(url))

	clock.advance(time.Minute)
	assert.True(t, m.IsEligible(url), "first caller after cooldown gets the probe")
	assert.False(t, m.IsEligible(url), "second caller must wait for the probe outcome")
}

func TestProbeSuccessClosesAndDoublesNextCooldown(t *testing.T) {
	m, clock, _ := newTestMonitor(t, Policy{OpenThreshold: 2, CooldownBase: time.Minute, RestartCap: 6})
	ctx := context.Background()
	url := "https://jobs.example.com"

	require.NoError(t, m.RecordFailure(ctx, url, "boom"))
	require.NoError(t, m.RecordFailure(ctx, url, "boom"))
	clock.advance(time.Minute)
	require.True(t, m.IsEligible(url))
	require.NoError(t, m.RecordSuccess(ctx, url))

	rec, _ := m.Record(url)
	assert.False(t, rec.CircuitOpen)
	assert.Equal(t, 1, rec.RestartCount)
	assert.True(t, m.IsEligible(url))

	// Trip again; the cooldown is now doubled.
	require.NoError(t, m.RecordFailure(ctx, url, "boom"))
	require.NoError(t, m.RecordFailure(ctx, url, "boom"))
	clock.advance(time.Minute)
	assert.False(t, m.IsEligible(url), "base cooldown is not enough after one restart")
	clock.advance(time.Minute)
	assert.True(t, m.IsEligible(url))
}

func TestProbeFailureReopens(t *testing.T) {
	m, clock, _ := newTestMonitor(t, Policy{OpenThreshold: 2, CooldownBase: time.Minute, RestartCap: 6})
	ctx := context.Background()
	url := "https://jobs.example.com"

	require.NoError(t, m.RecordFailure(ctx, url, "boom"))
	require.NoError(t, m.RecordFailure(ctx, url, "boom"))
	clock.advance(time.Minute)
	require.True(t, m.IsEligible(url))
	require.NoError(t, m.RecordFailure(ctx, url, "still down"))

	rec, _ := m.Record(url)
	assert.True(t, rec.CircuitOpen)
	assert.False(t, m.IsEligible(url))
}

func TestAbandonedProbeReclaimed(t *testing.T) {
	m, clock, _ := newTestMonitor(t, Policy{OpenThreshold: 1, CooldownBase: time.Minute, RestartCap: 6})
	ctx := context.Background()
	url := "https://jobs.example.com"

	require.NoError(t, m.RecordFailure(ctx, url, "boom"))
	clock.advance(time.Minute)
	require.True(t, m.IsEligible(url))

	// The probe holder never reports back for a full cooldown window.
	clock.advance(time.Minute)
	assert.True(t, m.IsEligible(url))
}

func TestResetAndResetAll(t *testing.T) {
	m, _, _ := newTestMonitor(t, Policy{OpenThreshold: 1, CooldownBase: time.Hour, RestartCap: 6})
	ctx := context.Background()

	require.NoError(t, m.RecordFailure(ctx, "https://a.example.com", "boom"))
	require.NoError(t, m.RecordFailure(ctx, "https://b.example.com", "boom"))

	known, err := m.Reset(ctx, "https://a.example.com")
	require.NoError(t, err)
	assert.True(t, known)
	assert.True(t, m.IsEligible("https://a.example.com"))
	assert.False(t, m.IsEligible("https://b.example.com"))

	known, err = m.Reset(ctx, "https://never-seen.example.com")
	require.NoError(t, err)
	assert.False(t, known)

	require.NoError(t, m.ResetAll(ctx))
	assert.True(t, m.IsEligible("https://b.example.com"))
}

func TestLedgerSurvivesRestart(t *testing.T) {
	pol := Policy{OpenThreshold: 2, CooldownBase: time.Hour, RestartCap: 6}
	m, clock, st := newTestMonitor(t, pol)
	ctx := context.Background()
	url := "https://jobs.example.com"

	require.NoError(t, m.RecordFailure(ctx, url, "boom"))
	require.NoError(t, m.RecordFailure(ctx, url, "boom"))

	restored, err := NewMonitor(ctx, pol, st, clock, zap.NewNop())
	require.NoError(t, err)
	rec, ok := restored.Record(url)
	require.True(t, ok)
	assert.True(t, rec.CircuitOpen)
	assert.False(t, restored.IsEligible(url))
}

func TestStatusReport(t *testing.T) {
	m, _, _ := newTestMonitor(t, Policy{OpenThreshold: 1, CooldownBase: time.Hour, RestartCap: 6})
	ctx := context.Background()

	require.NoError(t, m.RecordSuccess(ctx, "https://ok.example.com"))
	require.NoError(t, m.RecordFailure(ctx, "https://down.example.com", "boom"))
	m.NoteRun(leads.KindJobBoard, "ok")

	rep := m.Status()
	assert.Equal(t, 2, rep.Summary.TotalURLsTracked)
	assert.Equal(t, 1, rep.Summary.HealthyURLs)
	assert.Equal(t, 1, rep.Summary.OpenCircuits)
	assert.Equal(t, []string{"https://down.example.com"}, rep.OpenURLs)
	assert.Equal(t, "job_board", rep.Summary.LastRunScraper)
	assert.Equal(t, "ok", rep.Summary.LastRunStatus)
}
