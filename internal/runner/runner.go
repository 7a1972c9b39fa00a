// Package runner executes one scrape run end to end: eligibility,
// politeness, fetch, archive, extract, ingest, rescore.
package runner

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/readyrobots/leadengine/internal/health"
	"github.com/readyrobots/leadengine/internal/ingest"
	"github.com/readyrobots/leadengine/internal/leads"
	"github.com/readyrobots/leadengine/internal/metrics"
	"github.com/readyrobots/leadengine/internal/queue"
	"github.com/readyrobots/leadengine/internal/scoring"
	"github.com/readyrobots/leadengine/internal/scrape"
	"github.com/readyrobots/leadengine/internal/scrape/extract"
	"github.com/readyrobots/leadengine/internal/snapshot"
	"github.com/readyrobots/leadengine/internal/store"
)

// Run outcomes, recorded in metrics and the health monitor's last-run
// summary.
const (
	OutcomeOK          = "ok"
	OutcomeSkipped     = "skipped_circuit_open"
	OutcomeFetchError  = "fetch_error"
	OutcomeBadStatus   = "bad_status"
	OutcomeParseError  = "parse_error"
	OutcomeIngestError = "ingest_error"
)

// Result summarizes one run.
type Result struct {
	Outcome     string
	Fragments   int
	NewSignals  int
	Deduped     int
	Companies   int
	SnapshotURI string
}

// Runner processes run items. The optional headless fetcher is a
// fallback for job boards that render their cards with JavaScript.
type Runner struct {
	fetcher    scrape.Fetcher
	headless   scrape.Fetcher
	limiter    *scrape.HostLimiter
	monitor    *health.Monitor
	snapshots  snapshot.Store
	normalizer *ingest.Normalizer
	scorer     *scoring.Service
	targets    store.TargetStore
	clock      leads.Clock
	log        *zap.Logger
}

func New(
	fetcher scrape.Fetcher,
	headless scrape.Fetcher,
	limiter *scrape.HostLimiter,
	monitor *health.Monitor,
	snapshots snapshot.Store,
	normalizer *ingest.Normalizer,
	scorer *scoring.Service,
	targets store.TargetStore,
	clock leads.Clock,
	log *zap.Logger,
) *Runner {
	return &Runner{
		fetcher:    fetcher,
		headless:   headless,
		limiter:    limiter,
		monitor:    monitor,
		snapshots:  snapshots,
		normalizer: normalizer,
		scorer:     scorer,
		targets:    targets,
		clock:      clock,
		log:        log.Named("runner"),
	}
}

// Run executes one item. The returned error covers infrastructure
// failures only; a failed fetch is a normal outcome, already recorded
// against the URL's breaker.
func (r *Runner) Run(ctx context.Context, item queue.RunItem) (Result, error) {
	target := item.Target
	log := r.log.With(
		zap.String("target_id", target.ID),
		zap.String("url", target.URL),
		zap.String("kind", string(target.Kind)),
	)

	if !r.monitor.IsEligible(target.URL) {
		log.Info("run skipped, circuit open")
		r.finish(target.Kind, OutcomeSkipped)
		return Result{Outcome: OutcomeSkipped}, nil
	}

	if err := r.limiter.Wait(ctx, target.URL); err != nil {
		// Never reached the network; release the probe as a failure so an
		// open circuit does not wedge.
		return r.failFetch(ctx, target, log, OutcomeFetchError, fmt.Sprintf("rate limit: %v", err))
	}

	page, err := r.fetcher.Fetch(ctx, scrape.FetchRequest{URL: target.URL})
	if err != nil {
		return r.failFetch(ctx, target, log, OutcomeFetchError, err.Error())
	}
	if page.StatusCode >= 400 {
		return r.failFetch(ctx, target, log, OutcomeBadStatus, fmt.Sprintf("status %d", page.StatusCode))
	}

	if err := r.monitor.RecordSuccess(ctx, target.URL); err != nil {
		return Result{}, fmt.Errorf("recording success: %w", err)
	}
	metrics.ObserveFetch(metrics.SanitizeSite(target.URL), len(page.Body))

	now := r.clock.Now()
	uri, err := r.snapshots.Save(ctx, target, page, now)
	if err != nil {
		// The archive is best effort; the run proceeds on live data.
		log.Warn("snapshot save failed", zap.Error(err))
	}

	frags, outcome := r.extract(ctx, target, page, log)
	if outcome != "" {
		r.markRun(ctx, target, log)
		r.finish(target.Kind, outcome)
		return Result{Outcome: outcome, SnapshotURI: uri}, nil
	}

	batch, err := r.normalizer.IngestBatch(ctx, target, frags)
	if err != nil {
		r.finish(target.Kind, OutcomeIngestError)
		return Result{Outcome: OutcomeIngestError, SnapshotURI: uri},
			fmt.Errorf("ingesting batch: %w", err)
	}
	if len(batch.CompanyIDs) > 0 {
		if _, err := r.scorer.RecomputeBatch(ctx, batch.CompanyIDs); err != nil {
			r.finish(target.Kind, OutcomeIngestError)
			return Result{Outcome: OutcomeIngestError, SnapshotURI: uri},
				fmt.Errorf("rescoring companies: %w", err)
		}
	}

	r.markRun(ctx, target, log)
	r.finish(target.Kind, OutcomeOK)
	res := Result{
		Outcome:     OutcomeOK,
		Fragments:   len(frags),
		NewSignals:  len(batch.NewSignalIDs),
		Deduped:     batch.Deduped,
		Companies:   len(batch.CompanyIDs),
		SnapshotURI: uri,
	}
	log.Info("run complete",
		zap.Int("fragments", res.Fragments),
		zap.Int("new_signals", res.NewSignals),
		zap.Int("companies", res.Companies),
	)
	return res, nil
}

// extract parses the page; on a job board with zero cards it retries
// once through the headless fetcher. Parse errors are extraction
// outcomes, never breaker failures.
func (r *Runner) extract(ctx context.Context, target leads.ScrapeTarget, page scrape.FetchResponse, log *zap.Logger) ([]ingest.Fragment, string) {
	ex, err := extract.For(target.Kind)
	if err != nil {
		log.Error("no extractor for target", zap.Error(err))
		return nil, OutcomeParseError
	}
	frags, err := ex.Extract(target, page)
	if err != nil {
		log.Warn("extraction failed", zap.Error(err))
		return nil, OutcomeParseError
	}
	if len(frags) == 0 && target.Kind == leads.KindJobBoard && r.headless != nil && !page.UsedHeadless {
		rendered, err := r.headless.Fetch(ctx, scrape.FetchRequest{URL: target.URL, Headless: true})
		if err != nil {
			log.Warn("headless fallback failed", zap.Error(err))
			return nil, ""
		}
		if frags, err = ex.Extract(target, rendered); err != nil {
			log.Warn("headless extraction failed", zap.Error(err))
			return nil, OutcomeParseError
		}
	}
	return frags, ""
}

func (r *Runner) failFetch(ctx context.Context, target leads.ScrapeTarget, log *zap.Logger, outcome, errText string) (Result, error) {
	log.Warn("fetch failed", zap.String("error", errText))
	if err := r.monitor.RecordFailure(ctx, target.URL, errText); err != nil {
		return Result{}, fmt.Errorf("recording failure: %w", err)
	}
	r.markRun(ctx, target, log)
	r.finish(target.Kind, outcome)
	return Result{Outcome: outcome}, nil
}

// markRun stamps the attempt so cadence counts from the try, not the
// last success.
func (r *Runner) markRun(ctx context.Context, target leads.ScrapeTarget, log *zap.Logger) {
	if err := r.targets.MarkTargetRun(ctx, target.ID, r.clock.Now()); err != nil {
		log.Warn("marking target run failed", zap.Error(err))
	}
}

func (r *Runner) finish(kind leads.ScraperKind, outcome string) {
	metrics.ObserveScrapeRun(string(kind), outcome)
	r.monitor.NoteRun(kind, outcome)
}
