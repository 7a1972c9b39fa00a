// Package search answers lead queries: free text over company names and
// signal evidence, or curated category bundles.
package search

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/readyrobots/leadengine/internal/leads"
	"github.com/readyrobots/leadengine/internal/lexicon"
	"github.com/readyrobots/leadengine/internal/store"
)

// ErrInvalidParams is returned for malformed search requests.
var ErrInvalidParams = errors.New("invalid search parameters")

// Limits bounds result sizes; zero values fall back to defaults.
type Limits struct {
	DefaultLimit int
	MaxLimit     int
	MaxExcerpts  int
}

func (l Limits) withDefaults() Limits {
	if l.DefaultLimit <= 0 {
		l.DefaultLimit = 30
	}
	if l.MaxLimit <= 0 {
		l.MaxLimit = 100
	}
	if l.MaxExcerpts <= 0 {
		l.MaxExcerpts = 4
	}
	return l
}

// Params is one search request. Query and Category may be combined;
// at least one must be set.
type Params struct {
	Query       string
	Category    string
	Tier        leads.Tier
	IncludeJunk bool
	Limit       int
}

// Excerpt is one piece of matching evidence shown with a result.
type Excerpt struct {
	SignalType   leads.SignalType `json:"signal_type"`
	Text         string           `json:"text"`
	SourceURL    string           `json:"source_url,omitempty"`
	DiscoveredAt time.Time        `json:"discovered_at"`
}

// Result is one ranked company with its score and matching evidence.
type Result struct {
	Company  leads.Company `json:"company"`
	Score    *leads.Score  `json:"score,omitempty"`
	Excerpts []Excerpt     `json:"excerpts,omitempty"`
}

// Service executes searches against the stores. Matching is linear scan
// over in-store rows; corpus size is thousands of companies, not
// millions.
type Service struct {
	companies store.CompanyStore
	signals   store.SignalStore
	scores    store.ScoreStore
	limits    Limits
	log       *zap.Logger
}

func NewService(
	companies store.CompanyStore,
	signals store.SignalStore,
	scores store.ScoreStore,
	limits Limits,
	log *zap.Logger,
) *Service {
	return &Service{
		companies: companies,
		signals:   signals,
		scores:    scores,
		limits:    limits.withDefaults(),
		log:       log.Named("search"),
	}
}

// Search runs a query. Results rank exact name matches first, then by
// overall score, then by the recency of the best matching signal.
func (s *Service) Search(ctx context.Context, p Params) ([]Result, error) {
	query := strings.ToLower(strings.TrimSpace(p.Query))
	var category *lexicon.Category
	if p.Category != "" {
		c, ok := lexicon.CategoryByKey(p.Category)
		if !ok {
			return nil, fmt.Errorf("%w: unknown category %q", ErrInvalidParams, p.Category)
		}
		category = &c
	}
	if query == "" && category == nil {
		return nil, fmt.Errorf("%w: query or category required", ErrInvalidParams)
	}

	limit := p.Limit
	if limit <= 0 {
		limit = s.limits.DefaultLimit
	}
	if limit > s.limits.MaxLimit {
		limit = s.limits.MaxLimit
	}

	companies, err := s.companies.ListCompanies(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing companies: %w", err)
	}

	var (
		results []Result
		rank    = map[string]rankKey{}
	)
	for _, c := range companies {
		sigs, err := s.signals.ListSignalsByCompany(ctx, c.ID)
		if err != nil {
			return nil, fmt.Errorf("listing signals for %s: %w", c.ID, err)
		}

		nameHit := query != "" && strings.Contains(strings.ToLower(c.Name), query)
		excerpts, latest := s.matchSignals(sigs, query, category)
		if !nameHit && len(excerpts) == 0 {
			continue
		}

		score := s.scoreFor(ctx, c.ID)
		if score != nil {
			if score.Junk && !p.IncludeJunk {
				continue
			}
			if p.Tier != "" && score.Tier != p.Tier {
				continue
			}
		} else if p.Tier != "" {
			continue
		}

		results = append(results, Result{Company: c, Score: score, Excerpts: excerpts})
		rank[c.ID] = rankKey{
			exactName: query != "" && lexicon.NormalizeName(c.Name) == lexicon.NormalizeName(query),
			overall:   overallOf(score),
			latest:    latest,
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		a, b := rank[results[i].Company.ID], rank[results[j].Company.ID]
		if a.exactName != b.exactName {
			return a.exactName
		}
		if a.overall != b.overall {
			return a.overall > b.overall
		}
		return a.latest.After(b.latest)
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

type rankKey struct {
	exactName bool
	overall   float64
	latest    time.Time
}

// matchSignals collects matching evidence for one company, newest first,
// capped at the excerpt limit. It also reports the newest match time.
func (s *Service) matchSignals(sigs []leads.Signal, query string, category *lexicon.Category) ([]Excerpt, time.Time) {
	matched := make([]leads.Signal, 0, len(sigs))
	for _, sig := range sigs {
		if signalMatches(sig, query, category) {
			matched = append(matched, sig)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].DiscoveredAt.After(matched[j].DiscoveredAt)
	})

	var latest time.Time
	if len(matched) > 0 {
		latest = matched[0].DiscoveredAt
	}
	if len(matched) > s.limits.MaxExcerpts {
		matched = matched[:s.limits.MaxExcerpts]
	}
	excerpts := make([]Excerpt, 0, len(matched))
	for _, sig := range matched {
		excerpts = append(excerpts, Excerpt{
			SignalType:   sig.Type,
			Text:         sig.RawText,
			SourceURL:    sig.SourceURL,
			DiscoveredAt: sig.DiscoveredAt,
		})
	}
	return excerpts, latest
}

func signalMatches(sig leads.Signal, query string, category *lexicon.Category) bool {
	text := strings.ToLower(sig.RawText)
	if query != "" && strings.Contains(text, query) {
		return true
	}
	if category == nil {
		return false
	}
	for _, t := range category.Types {
		if sig.Type == t {
			return true
		}
	}
	for _, kw := range category.Keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func (s *Service) scoreFor(ctx context.Context, companyID string) *leads.Score {
	score, err := s.scores.GetScore(ctx, companyID)
	if err != nil {
		return nil
	}
	return &score
}

func overallOf(score *leads.Score) float64 {
	if score == nil {
		return 0
	}
	return score.Overall
}

// Categories lists the curated category bundles.
func (s *Service) Categories() []lexicon.Category {
	return lexicon.Categories()
}
