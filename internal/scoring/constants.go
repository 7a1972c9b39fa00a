package scoring

import "github.com/readyrobots/leadengine/internal/leads"

// Bucket names the four sub-score dimensions.
type Bucket string

const (
	BucketAutomation Bucket = "automation"
	BucketLaborPain  Bucket = "labor_pain"
	BucketExpansion  Bucket = "expansion"
	BucketMarketFit  Bucket = "market_fit"
)

// Bucket weights for the overall blend. Must sum to 1.
var bucketWeights = map[Bucket]float64{
	BucketAutomation: 0.30,
	BucketLaborPain:  0.25,
	BucketExpansion:  0.20,
	BucketMarketFit:  0.25,
}

// typeWeights maps each signal type to its bucket and its weight within
// that bucket. Types absent here contribute nothing.
var typeWeights = map[leads.SignalType]struct {
	Bucket Bucket
	Weight float64
}{
	leads.SignalStrategicHire:        {BucketAutomation, 0.88},
	leads.SignalAutomationIntent:     {BucketAutomation, 0.78},
	leads.SignalEquipmentIntegration: {BucketAutomation, 0.68},

	leads.SignalLaborShortage: {BucketLaborPain, 0.85},
	leads.SignalLaborPain:     {BucketLaborPain, 0.80},

	leads.SignalFundingRound: {BucketExpansion, 0.85},
	leads.SignalCapex:        {BucketExpansion, 0.82},
	leads.SignalExpansion:    {BucketExpansion, 0.80},
	leads.SignalMAActivity:   {BucketExpansion, 0.78},

	leads.SignalServiceConsistency: {BucketMarketFit, 0.72},
	leads.SignalNews:               {BucketMarketFit, 0.40},
	leads.SignalJobPosting:         {BucketMarketFit, 0.35},
}

const (
	// Recency half-life in days and the decay floor reached after about
	// a year. Old evidence fades but never vanishes entirely.
	halfLifeDays = 90.0
	decayFloor   = 0.05

	// Tier cutoffs on the overall score.
	tierHotMin  = 75.0
	tierWarmMin = 45.0

	// Companies whose strongest signal sits below this are junk.
	junkStrengthFloor = 0.25

	maxReasons = 3
)

// Signal types that on their own never qualify a company as a real lead.
var weakOnlyTypes = map[leads.SignalType]bool{
	leads.SignalNews:       true,
	leads.SignalJobPosting: true,
}

// TierFor maps an overall score to its priority tier.
func TierFor(overall float64) leads.Tier {
	switch {
	case overall >= tierHotMin:
		return leads.TierHot
	case overall >= tierWarmMin:
		return leads.TierWarm
	default:
		return leads.TierCold
	}
}
