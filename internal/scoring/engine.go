// Package scoring derives each company's priority projection from its
// full signal history. Compute is a pure function of (company, signals,
// now); there is no incremental path, a recompute always starts from
// zero.
package scoring

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/readyrobots/leadengine/internal/leads"
	"github.com/readyrobots/leadengine/internal/lexicon"
)

// contribution is one signal's decayed, weighted impact, kept for
// reason ranking.
type contribution struct {
	sig    leads.Signal
	bucket Bucket
	value  float64
}

// Compute scores a company from its complete signal set. Signals of
// unknown type are ignored. The four sub-scores are capped sums of
// weighted, recency-decayed strengths; the overall score blends the
// sub-scores through a weighted noisy-OR so that two strong buckets can
// reach HOT even when the other two are empty.
func Compute(company leads.Company, signals []leads.Signal, now time.Time) leads.Score {
	sums := map[Bucket]float64{}
	var contribs []contribution
	maxStrength := 0.0
	onlyWeak := true

	for _, sig := range signals {
		tw, ok := typeWeights[sig.Type]
		if !ok {
			continue
		}
		if sig.Strength > maxStrength {
			maxStrength = sig.Strength
		}
		if !weakOnlyTypes[sig.Type] {
			onlyWeak = false
		}
		v := sig.Strength * tw.Weight * decay(now.Sub(sig.DiscoveredAt))
		sums[tw.Bucket] += v
		contribs = append(contribs, contribution{sig: sig, bucket: tw.Bucket, value: v})
	}

	sub := map[Bucket]float64{}
	for b := range bucketWeights {
		sub[b] = clamp(100*sums[b], 0, 100)
	}

	// Weighted noisy-OR: each bucket independently "fails to excite" with
	// probability (1 - s/100)^(4w); the overall is the complement of all
	// buckets failing. Monotone in every sub-score and reaches HOT on two
	// strong buckets alone.
	fail := 1.0
	for b, w := range bucketWeights {
		fail *= math.Pow(1-sub[b]/100, 4*w)
	}
	overall := round1(100 * (1 - fail))

	score := leads.Score{
		CompanyID:  company.ID,
		Automation: round1(sub[BucketAutomation]),
		LaborPain:  round1(sub[BucketLaborPain]),
		Expansion:  round1(sub[BucketExpansion]),
		MarketFit:  round1(sub[BucketMarketFit]),
		Overall:    overall,
		Tier:       TierFor(overall),
		Reasons:    reasons(contribs),
		ComputedAt: now,
	}
	score.Junk, score.JunkReason = junkCheck(company, len(contribs), maxStrength, onlyWeak)
	return score
}

// decay halves a signal's contribution every halfLifeDays, floored so
// ancient evidence still registers.
func decay(age time.Duration) float64 {
	days := age.Hours() / 24
	if days < 0 {
		days = 0
	}
	d := math.Pow(0.5, days/halfLifeDays)
	if d < decayFloor {
		return decayFloor
	}
	return d
}

// reasons picks the top contributing signals, strongest impact first,
// ties broken by raw strength then discovery order.
func reasons(contribs []contribution) []string {
	sort.Slice(contribs, func(i, j int) bool {
		if contribs[i].value != contribs[j].value {
			return contribs[i].value > contribs[j].value
		}
		if contribs[i].sig.Strength != contribs[j].sig.Strength {
			return contribs[i].sig.Strength > contribs[j].sig.Strength
		}
		return contribs[i].sig.DiscoveredAt.Before(contribs[j].sig.DiscoveredAt)
	})
	n := len(contribs)
	if n > maxReasons {
		n = maxReasons
	}
	out := make([]string, 0, n)
	for _, c := range contribs[:n] {
		out = append(out, fmt.Sprintf("%s (strength %.2f, %s)",
			c.sig.Type, c.sig.Strength, c.sig.DiscoveredAt.Format("2006-01-02")))
	}
	return out
}

func junkCheck(company leads.Company, qualifying int, maxStrength float64, onlyWeak bool) (bool, string) {
	if lexicon.JunkName(company.Name) {
		return true, "intermediary company name"
	}
	if qualifying == 0 {
		return true, "no qualifying signals"
	}
	if maxStrength < junkStrengthFloor {
		return true, "all signals below strength floor"
	}
	if onlyWeak {
		return true, "only weak signal types"
	}
	return false, ""
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
