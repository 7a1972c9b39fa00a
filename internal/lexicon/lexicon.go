// Package lexicon holds the keyword intelligence used to classify raw
// text fragments into typed signals and to drive category search.
//
// Matching is plain Aho-Corasick over lowercased text. The keyword seeds
// come from the product's target verticals (hospitality, logistics,
// healthcare, food service): operational roles posted in volume mean
// labor pain, urgency language means shortage, money events mean budget.
package lexicon

import (
	"regexp"
	"strings"

	"github.com/cloudflare/ahocorasick"

	"github.com/readyrobots/leadengine/internal/leads"
)

// Operational roles hired in volume. A company mass-hiring these is
// drowning in manual labor.
var laborPainKeywords = []string{
	// logistics / warehouse
	"warehouse associate", "fulfillment associate", "order picker", "packer",
	"forklift operator", "material handler", "receiving associate",
	"inventory associate", "shipping associate", "dock worker",
	"freight handler", "distribution center associate",
	// hospitality
	"housekeeper", "room attendant", "valet", "concierge",
	"front desk", "laundry attendant", "banquet server", "porter",
	"housekeeping supervisor",
	// food service
	"line cook", "prep cook", "dishwasher", "food runner", "busser",
	"kitchen staff", "crew member", "fry cook", "barista", "cashier",
	// healthcare
	"patient transport", "environmental services", "sterile processing",
	"pharmacy technician", "dietary aide", "hospital aide", "evs tech",
	"linen service",
}

// Retention and wage-pain language. Two or more of these promote a
// labor_pain fragment to labor_shortage.
var urgencyKeywords = []string{
	"immediate hire", "hiring now", "urgent", "high turnover",
	"retention bonus", "sign-on bonus", "starting immediately",
	"multiple openings", "various shifts", "staffing shortage",
	"hard to fill", "labor shortage", "staffing crisis",
	"headcount reduction", "layoff", "layoffs", "workforce reduction",
}

var fundingKeywords = []string{
	"series a", "series b", "series c", "seed round", "funding round",
	"raised $", "raises $", "venture capital", "capital raise",
	"investment round", "strategic investment", "growth equity",
}

var capexKeywords = []string{
	"capex", "capital expenditure", "capital investment",
	"technology spend", "equipment investment", "modernization program",
	"capital project", "infrastructure investment",
}

var maKeywords = []string{
	"acquisition", "acquires", "acquired", "merger", "m&a", "buyout",
	"takes over", "strategic purchase", "divestiture", "spin-off",
	"carve-out",
}

var expansionKeywords = []string{
	"new facility", "new warehouse", "new distribution center",
	"expansion", "expands", "expanding", "new location", "groundbreaking",
	"grand opening", "renovation", "square-foot facility",
	"fulfillment center opening",
}

var automationIntentKeywords = []string{
	"process improvement", "operational excellence",
	"continuous improvement", "lean manufacturing", "six sigma", "kaizen",
	"automation roadmap", "digital transformation", "productivity program",
}

var equipmentKeywords = []string{
	"warehouse management system", "wms rollout", "erp rollout",
	"conveyor", "sortation", "goods-to-person", "rfid", "pick-to-light",
	"autonomous mobile robot", "agv",
}

var serviceKeywords = []string{
	"brand standards", "service quality", "guest experience",
	"service consistency", "franchise operations",
}

// Buyer personas: operations decision-makers who approve robot
// purchases, never the engineers who build them.
var buyerPersonaPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(VP|SVP|Director|Head|Chief).{0,30}(operations|facilities|logistics|supply chain)`),
	regexp.MustCompile(`(?i)(VP|SVP|Director|Head).{0,30}(food.{0,10}beverage|F&B|restaurant|culinary)`),
	regexp.MustCompile(`(?i)(VP|SVP|Director|Head).{0,30}(housekeeping|rooms|property)`),
	regexp.MustCompile(`(?i)(VP|SVP|Director|Head).{0,30}(distribution|fulfillment|warehouse)`),
	regexp.MustCompile(`(?i)Chief (Operating|Operations|Supply Chain|Facilities) Officer`),
	regexp.MustCompile(`(?i)(General Manager|GM).{0,20}(hotel|resort|property|distribution)`),
}

// Efficiency and transformation execs whose mandate is to automate.
var automationIntentPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(VP|SVP|Director|Manager|Head|Lead).{0,40}(process improvement|operational excellence|continuous improvement)`),
	regexp.MustCompile(`(?i)(VP|SVP|Director|Manager|Head).{0,40}(lean|six sigma|kaizen|productivity improvement)`),
	regexp.MustCompile(`(?i)(VP|Director|Manager).{0,40}(operations technology|technology operations)`),
	regexp.MustCompile(`(?i)(Chief Digital|VP Digital|Director Digital).{0,30}(officer|transformation|operations)`),
}

type typedEntry struct {
	keyword string
	typ     leads.SignalType
}

// Lexicon classifies fragment text against per-type keyword sets.
type Lexicon struct {
	entries []typedEntry
	matcher *ahocorasick.Matcher
	urgency *ahocorasick.Matcher
}

// New builds the matcher set. Construction is cheap enough to do once at
// startup and share.
func New() *Lexicon {
	sets := []struct {
		typ      leads.SignalType
		keywords []string
	}{
		{leads.SignalLaborPain, laborPainKeywords},
		{leads.SignalFundingRound, fundingKeywords},
		{leads.SignalCapex, capexKeywords},
		{leads.SignalMAActivity, maKeywords},
		{leads.SignalExpansion, expansionKeywords},
		{leads.SignalAutomationIntent, automationIntentKeywords},
		{leads.SignalEquipmentIntegration, equipmentKeywords},
		{leads.SignalServiceConsistency, serviceKeywords},
	}
	var entries []typedEntry
	var dict []string
	for _, set := range sets {
		for _, kw := range set.keywords {
			entries = append(entries, typedEntry{keyword: kw, typ: set.typ})
			dict = append(dict, kw)
		}
	}
	return &Lexicon{
		entries: entries,
		matcher: ahocorasick.NewStringMatcher(dict),
		urgency: ahocorasick.NewStringMatcher(urgencyKeywords),
	}
}

// Classification is the result of matching one fragment.
type Classification struct {
	// Persona is set when a decision-maker title matched; it overrides
	// keyword classification.
	Persona leads.SignalType
	// HitsByType counts distinct keyword hits per signal type.
	HitsByType map[leads.SignalType]int
	// UrgencyHits counts distinct urgency terms.
	UrgencyHits int
}

// TotalHits sums keyword hits across all types.
func (c Classification) TotalHits() int {
	n := 0
	for _, hits := range c.HitsByType {
		n += hits
	}
	return n
}

// Classify matches a fragment (title + body) against the lexicon. The
// title alone decides persona matches.
func (l *Lexicon) Classify(title, body string) Classification {
	c := Classification{HitsByType: make(map[leads.SignalType]int)}

	for _, p := range buyerPersonaPatterns {
		if p.MatchString(title) {
			c.Persona = leads.SignalStrategicHire
			break
		}
	}
	if c.Persona == "" {
		for _, p := range automationIntentPatterns {
			if p.MatchString(title) {
				c.Persona = leads.SignalAutomationIntent
				break
			}
		}
	}

	text := strings.ToLower(title + " " + body)
	for _, idx := range l.matcher.Match([]byte(text)) {
		c.HitsByType[l.entries[idx].typ]++
	}
	c.UrgencyHits = len(l.urgency.Match([]byte(text)))
	return c
}

// DominantType picks the signal type with the most keyword hits. Ties
// break toward the caller's hint, then a fixed priority order so the
// result is deterministic.
func (c Classification) DominantType(hint leads.SignalType) (leads.SignalType, int) {
	order := []leads.SignalType{
		leads.SignalFundingRound, leads.SignalMAActivity, leads.SignalCapex,
		leads.SignalLaborPain, leads.SignalExpansion,
		leads.SignalAutomationIntent, leads.SignalEquipmentIntegration,
		leads.SignalServiceConsistency,
	}
	best, bestHits := leads.SignalType(""), 0
	if hits := c.HitsByType[hint]; hint != "" && hits > 0 {
		best, bestHits = hint, hits
	}
	for _, t := range order {
		if c.HitsByType[t] > bestHits {
			best, bestHits = t, c.HitsByType[t]
		}
	}
	return best, bestHits
}
