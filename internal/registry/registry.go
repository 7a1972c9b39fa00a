// Package registry manages the scrape source catalog: which URLs we
// watch, what kind of scraper handles them, and when each is due.
package registry

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/readyrobots/leadengine/internal/leads"
	"github.com/readyrobots/leadengine/internal/store"
)

// TargetInput is one row of a target import. Only URL is required;
// everything else falls back to detection heuristics.
type TargetInput struct {
	URL         string             `json:"url"`
	Label       string             `json:"label,omitempty"`
	Kind        leads.ScraperKind  `json:"kind,omitempty"`
	Industries  []string           `json:"industries,omitempty"`
	SignalHints []leads.SignalType `json:"signal_hints,omitempty"`
	Cadence     leads.Cadence      `json:"cadence,omitempty"`
	Notes       string             `json:"notes,omitempty"`
}

// ImportSkip explains one rejected row.
type ImportSkip struct {
	URL    string `json:"url"`
	Reason string `json:"reason"`
}

// ImportReport itemizes an import; bad rows never abort the batch.
type ImportReport struct {
	Created []leads.ScrapeTarget `json:"created"`
	Skipped []ImportSkip         `json:"skipped"`
}

// Service owns target lifecycle. Targets are deactivated, never deleted,
// so their run history stays attributable.
type Service struct {
	targets store.TargetStore
	clock   leads.Clock
	ids     leads.IDGenerator
	log     *zap.Logger
}

func New(targets store.TargetStore, clock leads.Clock, ids leads.IDGenerator, log *zap.Logger) *Service {
	return &Service{targets: targets, clock: clock, ids: ids, log: log.Named("registry")}
}

// ImportURLs registers a batch of scrape targets. Invalid URLs and
// already registered URLs are skipped with a reason.
func (s *Service) ImportURLs(ctx context.Context, rows []TargetInput) (ImportReport, error) {
	var report ImportReport
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		raw := strings.TrimSpace(row.URL)
		target, reason := s.buildTarget(raw, row)
		if reason != "" {
			report.Skipped = append(report.Skipped, ImportSkip{URL: raw, Reason: reason})
			continue
		}

		err := s.targets.CreateTarget(ctx, target)
		switch {
		case errors.Is(err, store.ErrDuplicate):
			report.Skipped = append(report.Skipped, ImportSkip{URL: raw, Reason: "already registered"})
			continue
		case err != nil:
			return report, fmt.Errorf("inserting target %s: %w", raw, err)
		}
		report.Created = append(report.Created, target)
	}

	s.log.Info("target import complete",
		zap.Int("rows", len(rows)),
		zap.Int("created", len(report.Created)),
		zap.Int("skipped", len(report.Skipped)),
	)
	return report, nil
}

func (s *Service) buildTarget(raw string, row TargetInput) (leads.ScrapeTarget, string) {
	if raw == "" {
		return leads.ScrapeTarget{}, "empty url"
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return leads.ScrapeTarget{}, "not an absolute http(s) url"
	}

	kind := row.Kind
	if kind == "" {
		kind = DetectKind(u)
	}
	if !validKind(kind) {
		return leads.ScrapeTarget{}, fmt.Sprintf("unknown kind %q", kind)
	}

	cadence := row.Cadence
	if cadence == "" {
		cadence = leads.CadenceDaily
	}
	if !validCadence(cadence) {
		return leads.ScrapeTarget{}, fmt.Sprintf("unknown cadence %q", cadence)
	}

	industries := row.Industries
	if len(industries) == 0 {
		industries = detectIndustries(u)
	}
	hints := row.SignalHints
	if len(hints) == 0 {
		hints = defaultHints(kind)
	}
	label := row.Label
	if label == "" {
		label = u.Host
	}

	id, err := s.ids.NewID()
	if err != nil {
		return leads.ScrapeTarget{}, "id generation failed"
	}
	return leads.ScrapeTarget{
		ID:          id,
		URL:         raw,
		Label:       label,
		Kind:        kind,
		Industries:  industries,
		SignalHints: hints,
		Cadence:     cadence,
		Active:      true,
		Notes:       row.Notes,
		CreatedAt:   s.clock.Now(),
	}, ""
}

// List returns registered targets under the given filter.
func (s *Service) List(ctx context.Context, f store.TargetFilter) ([]leads.ScrapeTarget, error) {
	return s.targets.ListTargets(ctx, f)
}

// Due returns the active targets whose cadence interval has elapsed.
func (s *Service) Due(ctx context.Context) ([]leads.ScrapeTarget, error) {
	all, err := s.targets.ListTargets(ctx, store.TargetFilter{ActiveOnly: true})
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	due := all[:0]
	for _, t := range all {
		if t.Due(now) {
			due = append(due, t)
		}
	}
	return due, nil
}

// SetActive flips a target's active flag.
func (s *Service) SetActive(ctx context.Context, id string, active bool) error {
	if err := s.targets.SetTargetActive(ctx, id, active); err != nil {
		return err
	}
	s.log.Info("target active flag changed", zap.String("target_id", id), zap.Bool("active", active))
	return nil
}

var jobBoardMarkers = []string{
	"indeed.", "linkedin.com/jobs", "greenhouse.io", "lever.co",
	"myworkdayjobs", "jobs.", "/jobs", "/careers", "careers.",
}

var newsFeedMarkers = []string{
	"/rss", "/feed", ".xml", "/atom", "prnewswire", "businesswire",
	"news.", "/news", "press.",
}

// DetectKind guesses the scraper kind from URL shape. Job boards first:
// a hotel chain's careers page is a job board, not a directory.
func DetectKind(u *url.URL) leads.ScraperKind {
	s := strings.ToLower(u.Host + u.Path)
	for _, m := range jobBoardMarkers {
		if strings.Contains(s, m) {
			return leads.KindJobBoard
		}
	}
	for _, m := range newsFeedMarkers {
		if strings.Contains(s, m) {
			return leads.KindNewsFeed
		}
	}
	return leads.KindDirectory
}

var industryMarkers = map[string][]string{
	"hospitality":  {"hotel", "hospitality", "resort", "lodging"},
	"logistics":    {"warehouse", "logistics", "supplychain", "supply-chain", "fulfillment", "3pl"},
	"healthcare":   {"hospital", "health", "senior", "clinic", "medical"},
	"food_service": {"restaurant", "food", "dining", "catering"},
}

func detectIndustries(u *url.URL) []string {
	s := strings.ToLower(u.Host + u.Path)
	var out []string
	for _, industry := range []string{"hospitality", "logistics", "healthcare", "food_service"} {
		for _, m := range industryMarkers[industry] {
			if strings.Contains(s, m) {
				out = append(out, industry)
				break
			}
		}
	}
	return out
}

func defaultHints(kind leads.ScraperKind) []leads.SignalType {
	switch kind {
	case leads.KindJobBoard:
		return []leads.SignalType{leads.SignalLaborPain}
	case leads.KindNewsFeed:
		return []leads.SignalType{leads.SignalNews}
	default:
		return []leads.SignalType{leads.SignalJobPosting}
	}
}

func validKind(k leads.ScraperKind) bool {
	switch k {
	case leads.KindJobBoard, leads.KindNewsFeed, leads.KindDirectory:
		return true
	}
	return false
}

func validCadence(c leads.Cadence) bool {
	switch c {
	case leads.CadenceHourly, leads.CadenceDaily, leads.CadenceWeekly:
		return true
	}
	return false
}
