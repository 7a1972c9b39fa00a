// Package health tracks per-URL scrape reliability and gates scheduling
// through a circuit breaker.
//
// Each URL moves through three states: CLOSED (eligible), OPEN (cooling
// down after repeated failures) and HALF_OPEN (exactly one probe allowed
// once the cooldown elapses). Outcomes are written through to the health
// store before they are surfaced to the caller, so the ledger never
// silently drops an attempt.
package health

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/readyrobots/leadengine/internal/leads"
	"github.com/readyrobots/leadengine/internal/metrics"
	"github.com/readyrobots/leadengine/internal/store"
)

// Policy holds the breaker constants.
type Policy struct {
	// OpenThreshold is the consecutive-failure count that trips a circuit.
	OpenThreshold int
	// CooldownBase is the OPEN backoff before the first half-open probe;
	// it doubles with each restart up to 2^RestartCap.
	CooldownBase time.Duration
	// RestartCap bounds the backoff exponent.
	RestartCap int
}

// DefaultPolicy mirrors the configured defaults: five strikes, ten-minute
// base cooldown, backoff capped at 2^6.
func DefaultPolicy() Policy {
	return Policy{OpenThreshold: 5, CooldownBase: 10 * time.Minute, RestartCap: 6}
}

// RunInfo summarizes the most recent scrape run for the health report.
type RunInfo struct {
	Scraper    string     `json:"scraper"`
	Status     string     `json:"status"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Monitor owns the per-URL breaker state. URLs are fully independent:
// the outer mutex only guards map membership, all counter mutation
// happens under the per-entry lock.
type Monitor struct {
	pol   Policy
	store store.HealthStore
	clock leads.Clock
	log   *zap.Logger

	mu      sync.Mutex
	entries map[string]*entry

	runMu   sync.Mutex
	lastRun RunInfo
}

type entry struct {
	mu             sync.Mutex
	rec            leads.HealthRecord
	probeInFlight  bool
	probeGrantedAt time.Time
}

// NewMonitor builds a Monitor and restores any previously persisted
// ledger rows from the store.
func NewMonitor(ctx context.Context, pol Policy, hs store.HealthStore, clock leads.Clock, log *zap.Logger) (*Monitor, error) {
	m := &Monitor{
		pol:     pol,
		store:   hs,
		clock:   clock,
		log:     log,
		entries: make(map[string]*entry),
	}
	recs, err := hs.ListHealth(ctx)
	if err != nil {
		return nil, fmt.Errorf("restore health ledger: %w", err)
	}
	for _, rec := range recs {
		m.entries[rec.URL] = &entry{rec: rec}
	}
	if len(recs) > 0 {
		log.Info("restored health ledger", zap.Int("urls", len(recs)))
	}
	return m, nil
}

func (m *Monitor) entryFor(url string) *entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[url]
	if !ok {
		e = &entry{rec: leads.HealthRecord{URL: url}}
		m.entries[url] = e
	}
	return e
}

// RecordSuccess resets the failure streak and closes the circuit. The
// ledger write happens before the call returns.
func (m *Monitor) RecordSuccess(ctx context.Context, url string) error {
	e := m.entryFor(url)
	e.mu.Lock()
	defer e.mu.Unlock()

	now := m.clock.Now()
	wasOpen := e.rec.CircuitOpen || e.probeInFlight
	e.rec.Attempts++
	e.rec.Successes++
	e.rec.ConsecutiveFailures = 0
	e.rec.ConsecutiveSuccesses++
	e.rec.LastSuccess = &now
	e.rec.LastError = ""
	if wasOpen {
		e.rec.CircuitOpen = false
		e.rec.OpenedAt = nil
		e.rec.RestartCount++
		metrics.CircuitTransition("closed")
		m.log.Info("circuit closed", zap.String("url", url), zap.Int("restarts", e.rec.RestartCount))
	}
	e.probeInFlight = false

	if err := m.store.UpsertHealth(ctx, e.rec); err != nil {
		return fmt.Errorf("persist health for %s: %w", url, err)
	}
	return nil
}

// RecordFailure bumps the failure streak and trips the circuit at the
// threshold. A failed half-open probe re-opens with a fresh cooldown.
func (m *Monitor) RecordFailure(ctx context.Context, url, errText string) error {
	e := m.entryFor(url)
	e.mu.Lock()
	defer e.mu.Unlock()

	now := m.clock.Now()
	e.rec.Attempts++
	e.rec.Failures++
	e.rec.ConsecutiveFailures++
	e.rec.ConsecutiveSuccesses = 0
	e.rec.LastError = truncate(errText, 300)
	e.probeInFlight = false

	if e.rec.ConsecutiveFailures >= m.pol.OpenThreshold {
		opened := now
		if !e.rec.CircuitOpen {
			metrics.CircuitTransition("opened")
			m.log.Warn("circuit opened",
				zap.String("url", url),
				zap.Int("consecutive_failures", e.rec.ConsecutiveFailures))
		}
		e.rec.CircuitOpen = true
		e.rec.OpenedAt = &opened
	}

	if err := m.store.UpsertHealth(ctx, e.rec); err != nil {
		return fmt.Errorf("persist health for %s: %w", url, err)
	}
	return nil
}

// IsEligible reports whether the URL may be scraped now. For an OPEN
// circuit whose cooldown has elapsed it grants a single half-open probe;
// concurrent callers in the same window are refused until the probe's
// outcome is recorded. A probe abandoned for a full cooldown window is
// reclaimed.
func (m *Monitor) IsEligible(url string) bool {
	e := m.entryFor(url)
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.rec.CircuitOpen {
		return true
	}
	now := m.clock.Now()
	cooldown := m.cooldown(e.rec.RestartCount)
	if e.rec.OpenedAt == nil || now.Sub(*e.rec.OpenedAt) < cooldown {
		return false
	}
	if e.probeInFlight {
		if now.Sub(e.probeGrantedAt) < cooldown {
			return false
		}
		// Probe never reported back; reclaim it.
		m.log.Warn("reclaiming abandoned half-open probe", zap.String("url", url))
	}
	e.probeInFlight = true
	e.probeGrantedAt = now
	metrics.CircuitTransition("half_open")
	return true
}

func (m *Monitor) cooldown(restarts int) time.Duration {
	n := restarts
	if n > m.pol.RestartCap {
		n = m.pol.RestartCap
	}
	return m.pol.CooldownBase * (1 << uint(n))
}

// Reset forces one URL's circuit CLOSED and zeroes its streaks.
// Returns false if the URL has never been tracked.
func (m *Monitor) Reset(ctx context.Context, url string) (bool, error) {
	m.mu.Lock()
	e, ok := m.entries[url]
	m.mu.Unlock()
	if !ok {
		return false, nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	m.resetLocked(e)
	if err := m.store.UpsertHealth(ctx, e.rec); err != nil {
		return true, fmt.Errorf("persist health for %s: %w", url, err)
	}
	m.log.Info("circuit manually reset", zap.String("url", url))
	return true, nil
}

// ResetAll forces every tracked circuit CLOSED.
func (m *Monitor) ResetAll(ctx context.Context) error {
	m.mu.Lock()
	entries := make([]*entry, 0, len(m.entries))
	for _, e := range m.entries {
		entries = append(entries, e)
	}
	m.mu.Unlock()

	for _, e := range entries {
		e.mu.Lock()
		m.resetLocked(e)
		rec := e.rec
		e.mu.Unlock()
		if err := m.store.UpsertHealth(ctx, rec); err != nil {
			return fmt.Errorf("persist health for %s: %w", rec.URL, err)
		}
	}
	m.log.Info("all circuits reset", zap.Int("urls", len(entries)))
	return nil
}

func (m *Monitor) resetLocked(e *entry) {
	e.rec.CircuitOpen = false
	e.rec.OpenedAt = nil
	e.rec.ConsecutiveFailures = 0
	e.rec.ConsecutiveSuccesses = 0
	e.probeInFlight = false
}

// Record returns a copy of the ledger row for one URL.
func (m *Monitor) Record(url string) (leads.HealthRecord, bool) {
	m.mu.Lock()
	e, ok := m.entries[url]
	m.mu.Unlock()
	if !ok {
		return leads.HealthRecord{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rec, true
}

// NoteRun records the most recent run for the health summary.
func (m *Monitor) NoteRun(scraper leads.ScraperKind, status string) {
	now := m.clock.Now()
	m.runMu.Lock()
	defer m.runMu.Unlock()
	m.lastRun = RunInfo{Scraper: string(scraper), Status: status, FinishedAt: &now}
}

// Report is the payload served by the scraper-health endpoint.
type Report struct {
	Summary   Summary                       `json:"summary"`
	URLHealth map[string]leads.HealthRecord `json:"url_health"`
	OpenURLs  []string                      `json:"circuit_open_urls"`
}

// Summary is the quick dashboard widget header.
type Summary struct {
	TotalURLsTracked int        `json:"total_urls_tracked"`
	HealthyURLs      int        `json:"healthy_urls"`
	OpenCircuits     int        `json:"open_circuits"`
	LastRunScraper   string     `json:"last_run_scraper,omitempty"`
	LastRunStatus    string     `json:"last_run_status"`
	LastRunFinished  *time.Time `json:"last_run_finished_at,omitempty"`
}

// Status builds a point-in-time health report across all tracked URLs.
func (m *Monitor) Status() Report {
	m.mu.Lock()
	entries := make(map[string]*entry, len(m.entries))
	for url, e := range m.entries {
		entries[url] = e
	}
	m.mu.Unlock()

	rep := Report{URLHealth: make(map[string]leads.HealthRecord, len(entries))}
	for url, e := range entries {
		e.mu.Lock()
		rec := e.rec
		e.mu.Unlock()
		rep.URLHealth[url] = rec
		if rec.CircuitOpen {
			rep.OpenURLs = append(rep.OpenURLs, url)
		}
	}

	m.runMu.Lock()
	last := m.lastRun
	m.runMu.Unlock()

	rep.Summary = Summary{
		TotalURLsTracked: len(rep.URLHealth),
		HealthyURLs:      len(rep.URLHealth) - len(rep.OpenURLs),
		OpenCircuits:     len(rep.OpenURLs),
		LastRunScraper:   last.Scraper,
		LastRunStatus:    last.Status,
		LastRunFinished:  last.FinishedAt,
	}
	if rep.Summary.LastRunStatus == "" {
		rep.Summary.LastRunStatus = "no runs yet"
	}
	return rep
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
