// Package store defines the persistence interfaces for the lead pipeline.
// Implementations live in subpackages: memory (tests, local runs) and
// postgres (production).
package store

import (
	"context"
	"errors"
	"time"

	"github.com/readyrobots/leadengine/internal/leads"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert collides with a uniqueness
// constraint (target URL, company name key, signal dedup key).
var ErrDuplicate = errors.New("duplicate")

// TargetFilter narrows target listings.
type TargetFilter struct {
	Kind       leads.ScraperKind
	Industry   string
	ActiveOnly bool
}

// TargetStore persists the scrape source registry.
type TargetStore interface {
	// CreateTarget inserts a target; ErrDuplicate if the URL is registered.
	CreateTarget(ctx context.Context, t leads.ScrapeTarget) error
	GetTargetByURL(ctx context.Context, url string) (leads.ScrapeTarget, error)
	ListTargets(ctx context.Context, f TargetFilter) ([]leads.ScrapeTarget, error)
	// SetTargetActive deactivates or reactivates a target; targets are
	// never deleted.
	SetTargetActive(ctx context.Context, id string, active bool) error
	MarkTargetRun(ctx context.Context, id string, at time.Time) error
}

// CompanyStore persists companies keyed by normalized name.
type CompanyStore interface {
	// CreateCompany inserts a company; ErrDuplicate on an existing NameKey.
	CreateCompany(ctx context.Context, c leads.Company) error
	GetCompany(ctx context.Context, id string) (leads.Company, error)
	GetCompanyByNameKey(ctx context.Context, nameKey string) (leads.Company, error)
	ListCompanies(ctx context.Context) ([]leads.Company, error)
}

// SignalStore persists append-only signals with atomic dedup.
type SignalStore interface {
	// InsertSignal appends a signal; ErrDuplicate if the DedupKey exists.
	// The check-and-insert is atomic per key.
	InsertSignal(ctx context.Context, s leads.Signal) error
	ListSignalsByCompany(ctx context.Context, companyID string) ([]leads.Signal, error)
	ListSignals(ctx context.Context) ([]leads.Signal, error)
}

// ScoreStore holds the single current score row per company.
type ScoreStore interface {
	UpsertScore(ctx context.Context, sc leads.Score) error
	GetScore(ctx context.Context, companyID string) (leads.Score, error)
	ListScores(ctx context.Context) ([]leads.Score, error)
}

// HealthStore durably records the breaker ledger. The monitor writes
// through before surfacing an outcome to its caller.
type HealthStore interface {
	UpsertHealth(ctx context.Context, rec leads.HealthRecord) error
	ListHealth(ctx context.Context) ([]leads.HealthRecord, error)
}
