package scoring

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/readyrobots/leadengine/internal/events"
	"github.com/readyrobots/leadengine/internal/leads"
	"github.com/readyrobots/leadengine/internal/metrics"
	"github.com/readyrobots/leadengine/internal/store"
)

// Service wires the pure engine to persistence and the event stream.
type Service struct {
	companies store.CompanyStore
	signals   store.SignalStore
	scores    store.ScoreStore
	publisher events.Publisher
	clock     leads.Clock
	log       *zap.Logger

	// Concurrency cap for RecomputeAll.
	parallelism int
}

func NewService(
	companies store.CompanyStore,
	signals store.SignalStore,
	scores store.ScoreStore,
	publisher events.Publisher,
	clock leads.Clock,
	parallelism int,
	log *zap.Logger,
) *Service {
	if parallelism < 1 {
		parallelism = 1
	}
	return &Service{
		companies:   companies,
		signals:     signals,
		scores:      scores,
		publisher:   publisher,
		clock:       clock,
		parallelism: parallelism,
		log:         log.Named("scoring"),
	}
}

// RecomputeCompany rebuilds one company's score from its full signal
// history and overwrites the stored row. A missing company aborts with
// no partial write.
func (s *Service) RecomputeCompany(ctx context.Context, companyID string) (leads.Score, error) {
	company, err := s.companies.GetCompany(ctx, companyID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.log.Warn("recompute skipped, company missing", zap.String("company_id", companyID))
		}
		return leads.Score{}, fmt.Errorf("loading company %s: %w", companyID, err)
	}
	signals, err := s.signals.ListSignalsByCompany(ctx, companyID)
	if err != nil {
		return leads.Score{}, fmt.Errorf("loading signals for %s: %w", companyID, err)
	}

	score := Compute(company, signals, s.clock.Now())
	if err := s.scores.UpsertScore(ctx, score); err != nil {
		return leads.Score{}, fmt.Errorf("storing score for %s: %w", companyID, err)
	}
	metrics.ObserveScore(string(score.Tier))

	update := events.LeadUpdate{
		CompanyID:   company.ID,
		CompanyName: company.Name,
		Overall:     score.Overall,
		Tier:        score.Tier,
		Junk:        score.Junk,
		ComputedAt:  score.ComputedAt,
	}
	if err := s.publisher.PublishLeadUpdate(ctx, update); err != nil {
		// The score row is already durable; a lost notification is not
		// worth failing the recompute.
		s.log.Warn("lead update publish failed",
			zap.String("company_id", company.ID), zap.Error(err))
	}
	return score, nil
}

// RecomputeBatch recomputes the given companies concurrently. Unknown
// IDs are skipped, any other store error stops the batch.
func (s *Service) RecomputeBatch(ctx context.Context, companyIDs []string) (int, error) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallelism)
	for _, id := range companyIDs {
		g.Go(func() error {
			_, err := s.RecomputeCompany(ctx, id)
			if errors.Is(err, store.ErrNotFound) {
				return nil
			}
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	return len(companyIDs), nil
}

// RecomputeAll rebuilds every company's score. Returns the number of
// companies processed.
func (s *Service) RecomputeAll(ctx context.Context) (int, error) {
	companies, err := s.companies.ListCompanies(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing companies: %w", err)
	}
	ids := make([]string, 0, len(companies))
	for _, c := range companies {
		ids = append(ids, c.ID)
	}
	n, err := s.RecomputeBatch(ctx, ids)
	if err != nil {
		return 0, err
	}
	s.log.Info("full recompute complete", zap.Int("companies", n))
	return n, nil
}
