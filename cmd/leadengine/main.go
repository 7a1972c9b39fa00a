// Package main wires together the lead engine service binary.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/readyrobots/leadengine/internal/api"
	"github.com/readyrobots/leadengine/internal/clock/system"
	"github.com/readyrobots/leadengine/internal/config"
	"github.com/readyrobots/leadengine/internal/dispatcher"
	"github.com/readyrobots/leadengine/internal/events"
	eventsmem "github.com/readyrobots/leadengine/internal/events/memory"
	eventspubsub "github.com/readyrobots/leadengine/internal/events/pubsub"
	"github.com/readyrobots/leadengine/internal/hash/sha256"
	"github.com/readyrobots/leadengine/internal/health"
	"github.com/readyrobots/leadengine/internal/id/uuid"
	"github.com/readyrobots/leadengine/internal/ingest"
	"github.com/readyrobots/leadengine/internal/lexicon"
	"github.com/readyrobots/leadengine/internal/logging"
	"github.com/readyrobots/leadengine/internal/metrics"
	queuemem "github.com/readyrobots/leadengine/internal/queue/memory"
	"github.com/readyrobots/leadengine/internal/registry"
	"github.com/readyrobots/leadengine/internal/runner"
	"github.com/readyrobots/leadengine/internal/scoring"
	"github.com/readyrobots/leadengine/internal/scrape"
	collyfetcher "github.com/readyrobots/leadengine/internal/scrape/colly"
	headlessfetcher "github.com/readyrobots/leadengine/internal/scrape/headless"
	"github.com/readyrobots/leadengine/internal/search"
	"github.com/readyrobots/leadengine/internal/snapshot"
	snapshotgcs "github.com/readyrobots/leadengine/internal/snapshot/gcs"
	snapshotlocal "github.com/readyrobots/leadengine/internal/snapshot/local"
	snapshotmem "github.com/readyrobots/leadengine/internal/snapshot/memory"
	"github.com/readyrobots/leadengine/internal/store"
	"github.com/readyrobots/leadengine/internal/store/memory"
	"github.com/readyrobots/leadengine/internal/store/postgres"
)

// stores groups the persistence interfaces so memory and postgres
// backends swap in one place.
type stores struct {
	targets   store.TargetStore
	companies store.CompanyStore
	signals   store.SignalStore
	scores    store.ScoreStore
	health    store.HealthStore
	close     func()
}

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)
	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := buildStores(ctx, cfg)
	if err != nil {
		logger.Fatal("store init failed", zap.Error(err))
	}
	defer st.close()

	publisher, err := buildPublisher(ctx, cfg)
	if err != nil {
		logger.Fatal("publisher init failed", zap.Error(err))
	}
	defer func() {
		if closeErr := publisher.Close(); closeErr != nil {
			logger.Warn("publisher close failed", zap.Error(closeErr))
		}
	}()

	snapshots, err := buildSnapshots(ctx, cfg)
	if err != nil {
		logger.Fatal("snapshot store init failed", zap.Error(err))
	}

	clock := system.New()
	idGen := uuid.New()
	hasher := sha256.New()
	lex := lexicon.New()

	monitor, err := health.NewMonitor(ctx, health.Policy{
		OpenThreshold: cfg.Breaker.OpenThreshold,
		CooldownBase:  cfg.CooldownBase(),
		RestartCap:    cfg.Breaker.RestartCap,
	}, st.health, clock, logger)
	if err != nil {
		logger.Fatal("health monitor init failed", zap.Error(err))
	}

	normalizer := ingest.NewNormalizer(st.companies, st.signals, lex, clock, idGen, hasher, logger)
	scorer := scoring.NewService(st.companies, st.signals, st.scores, publisher, clock,
		cfg.Scoring.RecomputeParallelism, logger)
	reg := registry.New(st.targets, clock, idGen, logger)
	searcher := search.NewService(st.companies, st.signals, st.scores, search.Limits{
		DefaultLimit: cfg.Search.DefaultLimit,
		MaxLimit:     cfg.Search.MaxLimit,
		MaxExcerpts:  cfg.Search.MaxExcerpts,
	}, logger)

	probeFetcher := collyfetcher.New(collyfetcher.Config{
		UserAgent: cfg.Scrape.UserAgent,
		Timeout:   cfg.FetchTimeout(),
	})
	var headless scrape.Fetcher
	if cfg.Scrape.HeadlessEnabled {
		hf, err := headlessfetcher.New(headlessfetcher.Config{
			MaxParallel:       cfg.Scrape.Concurrency,
			UserAgent:         cfg.Scrape.UserAgent,
			NavigationTimeout: time.Duration(cfg.Scrape.NavTimeoutSec) * time.Second,
		})
		if err != nil {
			logger.Warn("headless fetcher init failed", zap.Error(err))
		} else {
			headless = hf
		}
	}

	limiter := scrape.NewHostLimiter(hostInterval(cfg.Scrape.RatePerHost), cfg.Scrape.BurstPerHost)
	run := runner.New(probeFetcher, headless, limiter, monitor, snapshots,
		normalizer, scorer, st.targets, clock, logger)

	q := queuemem.New(cfg.Scrape.QueueDepth)
	disp := dispatcher.New(dispatcher.Config{
		Workers: cfg.Scrape.Concurrency,
	}, q, run, reg, clock, logger)
	disp.Start(ctx)

	apiServer := api.NewServer(api.Deps{
		Registry:   reg,
		Dispatcher: disp,
		Monitor:    monitor,
		Search:     searcher,
		Scoring:    scorer,
		Normalizer: normalizer,
		Companies:  st.companies,
		Signals:    st.signals,
		Scores:     st.scores,
	}, cfg, logger)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	q.Close()
	disp.Wait()
	logger.Info("shutdown complete")
}

func buildStores(ctx context.Context, cfg config.Config) (stores, error) {
	if cfg.DB.DSN == "" {
		st := memory.New()
		return stores{
			targets:   st,
			companies: st,
			signals:   st,
			scores:    st,
			health:    st,
			close:     func() {},
		}, nil
	}
	pg, err := postgres.New(ctx, postgres.Config{
		DSN:      cfg.DB.DSN,
		MaxConns: cfg.DB.MaxConns,
		MinConns: cfg.DB.MinConns,
	})
	if err != nil {
		return stores{}, fmt.Errorf("connecting to postgres: %w", err)
	}
	return stores{
		targets:   pg,
		companies: pg,
		signals:   pg,
		scores:    pg,
		health:    pg,
		close:     pg.Close,
	}, nil
}

func buildPublisher(ctx context.Context, cfg config.Config) (events.Publisher, error) {
	switch cfg.Events.Provider {
	case "pubsub":
		return eventspubsub.New(ctx, cfg.Events.ProjectID, cfg.Events.Topic)
	default:
		return eventsmem.New(), nil
	}
}

func buildSnapshots(ctx context.Context, cfg config.Config) (snapshot.Store, error) {
	switch cfg.Snapshot.Provider {
	case "local":
		return snapshotlocal.New(cfg.Snapshot.LocalDir)
	case "gcs":
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("creating storage client: %w", err)
		}
		return snapshotgcs.New(client, cfg.Snapshot.GCSBucket, cfg.Snapshot.Prefix)
	case "none":
		return snapshot.NoOp{}, nil
	default:
		return snapshotmem.New(), nil
	}
}

func hostInterval(ratePerSecond float64) time.Duration {
	if ratePerSecond <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / ratePerSecond)
}
