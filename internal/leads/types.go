// Package leads defines core types shared across subsystems.
package leads

import "time"

// SignalType classifies a piece of buying-intent evidence.
type SignalType string

// Signal types emitted by the extraction pipeline.
const (
	SignalLaborPain            SignalType = "labor_pain"
	SignalLaborShortage        SignalType = "labor_shortage"
	SignalStrategicHire        SignalType = "strategic_hire"
	SignalAutomationIntent     SignalType = "automation_intent"
	SignalFundingRound         SignalType = "funding_round"
	SignalCapex                SignalType = "capex"
	SignalMAActivity           SignalType = "ma_activity"
	SignalExpansion            SignalType = "expansion"
	SignalJobPosting           SignalType = "job_posting"
	SignalNews                 SignalType = "news"
	SignalServiceConsistency   SignalType = "service_consistency"
	SignalEquipmentIntegration SignalType = "equipment_integration"
)

// Tier is the coarse priority bucket derived from the overall score.
type Tier string

// Priority tiers in descending order of urgency.
const (
	TierHot  Tier = "HOT"
	TierWarm Tier = "WARM"
	TierCold Tier = "COLD"
)

// ScrapeTarget is a registered scrape source.
type ScrapeTarget struct {
	ID          string       `json:"id"`
	URL         string       `json:"url"`
	Label       string       `json:"label"`
	Kind        ScraperKind  `json:"scraper_kind"`
	Industries  []string     `json:"industries"`
	SignalHints []SignalType `json:"signal_type_hints"`
	Cadence     Cadence      `json:"cadence"`
	Active      bool         `json:"active"`
	Notes       string       `json:"notes,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	LastRunAt   *time.Time   `json:"last_run_at,omitempty"`
}

// ScraperKind selects the extraction behavior applied to a target.
type ScraperKind string

// Registered scraper kinds. Adding a kind requires an extractor in
// internal/scrape; ExtractorFor enforces exhaustiveness.
const (
	KindJobBoard  ScraperKind = "job_board"
	KindNewsFeed  ScraperKind = "news_feed"
	KindDirectory ScraperKind = "directory"
)

// Cadence is how often a target is due for scraping.
type Cadence string

// Supported polling cadences.
const (
	CadenceHourly Cadence = "hourly"
	CadenceDaily  Cadence = "daily"
	CadenceWeekly Cadence = "weekly"
)

// Interval converts a cadence into its polling interval. Unknown values
// default to daily.
func (c Cadence) Interval() time.Duration {
	switch c {
	case CadenceHourly:
		return time.Hour
	case CadenceWeekly:
		return 7 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// Due reports whether a target on this cadence should run again.
func (t ScrapeTarget) Due(now time.Time) bool {
	if !t.Active {
		return false
	}
	if t.LastRunAt == nil {
		return true
	}
	return now.Sub(*t.LastRunAt) >= t.Cadence.Interval()
}

// HealthRecord is the per-URL failure/success ledger maintained by the
// health monitor. One record exists per distinct URL.
type HealthRecord struct {
	URL                  string     `json:"url"`
	Attempts             int        `json:"attempts"`
	Successes            int        `json:"successes"`
	Failures             int        `json:"failures"`
	ConsecutiveFailures  int        `json:"consecutive_failures"`
	ConsecutiveSuccesses int        `json:"consecutive_successes"`
	CircuitOpen          bool       `json:"circuit_open"`
	OpenedAt             *time.Time `json:"opened_at,omitempty"`
	LastSuccess          *time.Time `json:"last_success,omitempty"`
	LastError            string     `json:"last_error,omitempty"`
	RestartCount         int        `json:"restart_count"`
}

// Company is a prospective robotics buyer discovered by import or scraping.
type Company struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	NameKey          string    `json:"-"`
	Industry         string    `json:"industry,omitempty"`
	Website          string    `json:"website,omitempty"`
	LocationCity     string    `json:"location_city,omitempty"`
	LocationState    string    `json:"location_state,omitempty"`
	EmployeeEstimate int       `json:"employee_estimate,omitempty"`
	Source           string    `json:"source,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// Signal is a discrete piece of evidence attached to a company. Immutable
// once created; repeated observations of the same dedup key are no-ops.
type Signal struct {
	ID           string     `json:"id"`
	CompanyID    string     `json:"company_id"`
	Type         SignalType `json:"signal_type"`
	Strength     float64    `json:"strength"`
	RawText      string     `json:"raw_text"`
	SourceURL    string     `json:"source_url"`
	DedupKey     string     `json:"-"`
	DiscoveredAt time.Time  `json:"discovered_at"`
}

// Score is the derived priority projection for a company. Exactly one
// current row per company, overwritten on each recompute.
type Score struct {
	CompanyID  string    `json:"company_id"`
	Automation float64   `json:"automation_score"`
	LaborPain  float64   `json:"labor_pain_score"`
	Expansion  float64   `json:"expansion_score"`
	MarketFit  float64   `json:"market_fit_score"`
	Overall    float64   `json:"overall_score"`
	Tier       Tier      `json:"priority_tier"`
	Reasons    []string  `json:"priority_reasons"`
	Junk       bool      `json:"is_junk"`
	JunkReason string    `json:"junk_reason,omitempty"`
	ComputedAt time.Time `json:"computed_at"`
}
