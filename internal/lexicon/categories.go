package lexicon

import (
	"strings"

	"github.com/readyrobots/leadengine/internal/leads"
)

// Category is a curated search bundle: a label for the UI plus the
// signal types and keyword filters it expands to.
type Category struct {
	Key      string             `json:"key"`
	Label    string             `json:"label"`
	Types    []leads.SignalType `json:"signal_types"`
	Keywords []string           `json:"keywords"`
}

var categories = []Category{
	{
		Key:   "acquisitions",
		Label: "Acquisitions & Mergers",
		Types: []leads.SignalType{leads.SignalMAActivity},
		Keywords: []string{
			"acquisition", "merger", "buyout", "acquires", "takes over",
		},
	},
	{
		Key:   "automation_investment",
		Label: "Automation & Capex Investment",
		Types: []leads.SignalType{leads.SignalFundingRound, leads.SignalCapex},
		Keywords: []string{
			"funding", "capex", "capital investment", "raises", "series",
			"modernization",
		},
	},
	{
		Key:   "labor_downsizing",
		Label: "Labor Pain & Downsizing",
		Types: []leads.SignalType{leads.SignalLaborPain, leads.SignalLaborShortage},
		Keywords: []string{
			"layoff", "turnover", "staffing shortage", "labor shortage",
			"retention", "sign-on bonus",
		},
	},
	{
		Key:   "leadership_hires",
		Label: "Operations Leadership Hires",
		Types: []leads.SignalType{leads.SignalStrategicHire},
		Keywords: []string{
			"vp operations", "director of operations", "chief operating",
			"head of logistics", "supply chain",
		},
	},
	{
		Key:   "efficiency_mandates",
		Label: "Efficiency & Transformation Mandates",
		Types: []leads.SignalType{leads.SignalAutomationIntent},
		Keywords: []string{
			"process improvement", "operational excellence", "lean",
			"six sigma", "digital transformation",
		},
	},
	{
		Key:   "facility_expansion",
		Label: "Facility Expansion",
		Types: []leads.SignalType{leads.SignalExpansion},
		Keywords: []string{
			"new facility", "new warehouse", "expansion",
			"distribution center", "grand opening",
		},
	},
	{
		Key:   "intra_logistics",
		Label: "Intralogistics & Equipment",
		Types: []leads.SignalType{leads.SignalEquipmentIntegration},
		Keywords: []string{
			"conveyor", "sortation", "wms", "goods-to-person", "agv",
		},
	},
	{
		Key:   "hospitality_service",
		Label: "Hospitality Service Consistency",
		Types: []leads.SignalType{leads.SignalServiceConsistency},
		Keywords: []string{
			"guest experience", "brand standards", "housekeeping",
			"franchise operations",
		},
	},
	{
		Key:   "frontline_hiring",
		Label: "Frontline Volume Hiring",
		Types: []leads.SignalType{leads.SignalJobPosting, leads.SignalLaborPain},
		Keywords: []string{
			"hiring now", "multiple openings", "immediate hire",
			"warehouse associate", "housekeeper", "line cook",
		},
	},
	{
		Key:   "industry_news",
		Label: "Industry News Mentions",
		Types: []leads.SignalType{leads.SignalNews},
		Keywords: []string{
			"announces", "launches", "partners with", "rollout",
		},
	},
}

// Categories returns the curated search categories in display order.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

// CategoryByKey looks up a category; ok is false for unknown keys.
func CategoryByKey(key string) (Category, bool) {
	key = strings.ToLower(strings.TrimSpace(key))
	for _, c := range categories {
		if c.Key == key {
			return c, true
		}
	}
	return Category{}, false
}
