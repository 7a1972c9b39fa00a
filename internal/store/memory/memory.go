// Package memory provides in-memory store implementations for
// development and testing.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/readyrobots/leadengine/internal/leads"
	"github.com/readyrobots/leadengine/internal/store"
)

// Store implements every store interface over mutex-guarded maps.
type Store struct {
	mu          sync.RWMutex
	targets     map[string]leads.ScrapeTarget // id → target
	targetByURL map[string]string             // url → id
	companies   map[string]leads.Company      // id → company
	companyByNK map[string]string             // name key → id
	signals     map[string][]leads.Signal     // company id → signals
	signalKeys  map[string]struct{}           // dedup key set
	scores      map[string]leads.Score        // company id → current score
	health      map[string]leads.HealthRecord // url → ledger row
}

// New constructs an empty Store.
func New() *Store {
	return &Store{
		targets:     make(map[string]leads.ScrapeTarget),
		targetByURL: make(map[string]string),
		companies:   make(map[string]leads.Company),
		companyByNK: make(map[string]string),
		signals:     make(map[string][]leads.Signal),
		signalKeys:  make(map[string]struct{}),
		scores:      make(map[string]leads.Score),
		health:      make(map[string]leads.HealthRecord),
	}
}

// CreateTarget inserts a target, enforcing URL uniqueness.
func (s *Store) CreateTarget(_ context.Context, t leads.ScrapeTarget) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.targetByURL[t.URL]; exists {
		return store.ErrDuplicate
	}
	s.targets[t.ID] = t
	s.targetByURL[t.URL] = t.ID
	return nil
}

// GetTargetByURL fetches a target by its unique URL.
func (s *Store) GetTargetByURL(_ context.Context, url string) (leads.ScrapeTarget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.targetByURL[url]
	if !ok {
		return leads.ScrapeTarget{}, store.ErrNotFound
	}
	return s.targets[id], nil
}

// ListTargets returns targets matching the filter, ordered by creation time.
func (s *Store) ListTargets(_ context.Context, f store.TargetFilter) ([]leads.ScrapeTarget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]leads.ScrapeTarget, 0, len(s.targets))
	for _, t := range s.targets {
		if f.ActiveOnly && !t.Active {
			continue
		}
		if f.Kind != "" && t.Kind != f.Kind {
			continue
		}
		if f.Industry != "" && !hasIndustry(t.Industries, f.Industry) {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// SetTargetActive toggles a target's active flag.
func (s *Store) SetTargetActive(_ context.Context, id string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.targets[id]
	if !ok {
		return store.ErrNotFound
	}
	t.Active = active
	s.targets[id] = t
	return nil
}

// MarkTargetRun stamps the last run time on a target.
func (s *Store) MarkTargetRun(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.targets[id]
	if !ok {
		return store.ErrNotFound
	}
	ts := at
	t.LastRunAt = &ts
	s.targets[id] = t
	return nil
}

// CreateCompany inserts a company, enforcing name-key uniqueness.
func (s *Store) CreateCompany(_ context.Context, c leads.Company) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.companyByNK[c.NameKey]; exists {
		return store.ErrDuplicate
	}
	s.companies[c.ID] = c
	s.companyByNK[c.NameKey] = c.ID
	return nil
}

// GetCompany fetches a company by id.
func (s *Store) GetCompany(_ context.Context, id string) (leads.Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.companies[id]
	if !ok {
		return leads.Company{}, store.ErrNotFound
	}
	return c, nil
}

// GetCompanyByNameKey fetches a company by normalized name.
func (s *Store) GetCompanyByNameKey(_ context.Context, nameKey string) (leads.Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.companyByNK[nameKey]
	if !ok {
		return leads.Company{}, store.ErrNotFound
	}
	return s.companies[id], nil
}

// ListCompanies returns all companies ordered by creation time.
func (s *Store) ListCompanies(_ context.Context) ([]leads.Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]leads.Company, 0, len(s.companies))
	for _, c := range s.companies {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// InsertSignal appends a signal; the dedup check-and-insert is atomic
// under the store mutex, so a concurrent duplicate loses cleanly.
func (s *Store) InsertSignal(_ context.Context, sig leads.Signal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.signalKeys[sig.DedupKey]; exists {
		return store.ErrDuplicate
	}
	if _, ok := s.companies[sig.CompanyID]; !ok {
		return store.ErrNotFound
	}
	s.signalKeys[sig.DedupKey] = struct{}{}
	s.signals[sig.CompanyID] = append(s.signals[sig.CompanyID], sig)
	return nil
}

// ListSignalsByCompany returns a company's signals in insertion order.
func (s *Store) ListSignalsByCompany(_ context.Context, companyID string) ([]leads.Signal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sigs := s.signals[companyID]
	out := make([]leads.Signal, len(sigs))
	copy(out, sigs)
	return out, nil
}

// ListSignals returns every signal across all companies.
func (s *Store) ListSignals(_ context.Context) ([]leads.Signal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []leads.Signal
	for _, sigs := range s.signals {
		out = append(out, sigs...)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DiscoveredAt.Before(out[j].DiscoveredAt) })
	return out, nil
}

// UpsertScore overwrites the current score row for a company.
func (s *Store) UpsertScore(_ context.Context, sc leads.Score) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.companies[sc.CompanyID]; !ok {
		return store.ErrNotFound
	}
	s.scores[sc.CompanyID] = sc
	return nil
}

// GetScore fetches the current score for a company.
func (s *Store) GetScore(_ context.Context, companyID string) (leads.Score, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sc, ok := s.scores[companyID]
	if !ok {
		return leads.Score{}, store.ErrNotFound
	}
	return sc, nil
}

// ListScores returns all current score rows.
func (s *Store) ListScores(_ context.Context) ([]leads.Score, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]leads.Score, 0, len(s.scores))
	for _, sc := range s.scores {
		out = append(out, sc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CompanyID < out[j].CompanyID })
	return out, nil
}

// UpsertHealth overwrites the ledger row for a URL.
func (s *Store) UpsertHealth(_ context.Context, rec leads.HealthRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.health[rec.URL] = rec
	return nil
}

// ListHealth returns all ledger rows ordered by URL.
func (s *Store) ListHealth(_ context.Context) ([]leads.HealthRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]leads.HealthRecord, 0, len(s.health))
	for _, rec := range s.health {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].URL < out[j].URL })
	return out, nil
}

func hasIndustry(industries []string, want string) bool {
	for _, ind := range industries {
		if strings.EqualFold(ind, want) {
			return true
		}
	}
	return false
}
