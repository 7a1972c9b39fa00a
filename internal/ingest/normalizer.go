// Package ingest turns raw scraped fragments into companies and typed,
// deduplicated signals.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/readyrobots/leadengine/internal/leads"
	"github.com/readyrobots/leadengine/internal/lexicon"
	"github.com/readyrobots/leadengine/internal/metrics"
	"github.com/readyrobots/leadengine/internal/store"
)

// Strength model: a small base for any classified fragment, plus credit
// per keyword and urgency hit. Persona matches carry fixed strengths
// since the title match is itself the evidence.
const (
	strengthBase        = 0.20
	strengthPerHit      = 0.15
	strengthPerUrgency  = 0.10
	strengthLongText    = 0.05
	longTextChars       = 600
	strengthHintFloor   = 0.30
	strengthPersonaBuy  = 0.80
	strengthPersonaAuto = 0.72

	// Urgency hits at or above this promote labor_pain to labor_shortage.
	shortagePromotion = 2

	maxRawTextChars = 2000
)

// Fragment is one candidate observation extracted from a page or feed.
type Fragment struct {
	CompanyHint   string
	Title         string
	Text          string
	SourceURL     string
	SuggestedType leads.SignalType
}

// BatchResult reports what one ingest pass produced.
type BatchResult struct {
	NewSignalIDs []string
	CompanyIDs   []string
	Deduped      int
	Dropped      int
}

// Normalizer resolves fragments to companies and persists new signals.
type Normalizer struct {
	companies store.CompanyStore
	signals   store.SignalStore
	lex       *lexicon.Lexicon
	clock     leads.Clock
	ids       leads.IDGenerator
	hasher    leads.Hasher
	log       *zap.Logger
}

func NewNormalizer(
	companies store.CompanyStore,
	signals store.SignalStore,
	lex *lexicon.Lexicon,
	clock leads.Clock,
	ids leads.IDGenerator,
	hasher leads.Hasher,
	log *zap.Logger,
) *Normalizer {
	return &Normalizer{
		companies: companies,
		signals:   signals,
		lex:       lex,
		clock:     clock,
		ids:       ids,
		hasher:    hasher,
		log:       log.Named("ingest"),
	}
}

// IngestBatch processes fragments from one scrape of one target. Each
// fragment resolves or creates its company, classifies into a signal
// type, and inserts unless the dedup key already exists. Dedup hits are
// silent no-ops; fragments with no company hint or no classification
// are dropped.
func (n *Normalizer) IngestBatch(ctx context.Context, target leads.ScrapeTarget, frags []Fragment) (BatchResult, error) {
	var res BatchResult
	seen := make(map[string]bool)

	for _, f := range frags {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		name := strings.TrimSpace(f.CompanyHint)
		if name == "" {
			res.Dropped++
			continue
		}

		sig, ok := n.classify(target, f)
		if !ok {
			res.Dropped++
			continue
		}

		company, err := n.resolveCompany(ctx, name, target)
		if err != nil {
			return res, fmt.Errorf("resolving company %q: %w", name, err)
		}
		if !seen[company.ID] {
			seen[company.ID] = true
			res.CompanyIDs = append(res.CompanyIDs, company.ID)
		}

		sig.CompanyID = company.ID
		sig.DedupKey, err = n.dedupKey(company.ID, sig.Type, sig.SourceURL, f.Text)
		if err != nil {
			return res, fmt.Errorf("hashing dedup key: %w", err)
		}
		sig.ID, err = n.ids.NewID()
		if err != nil {
			return res, fmt.Errorf("generating signal id: %w", err)
		}
		sig.DiscoveredAt = n.clock.Now()

		err = n.signals.InsertSignal(ctx, sig)
		switch {
		case errors.Is(err, store.ErrDuplicate):
			res.Deduped++
			metrics.ObserveDedup()
			continue
		case err != nil:
			return res, fmt.Errorf("inserting signal: %w", err)
		}
		res.NewSignalIDs = append(res.NewSignalIDs, sig.ID)
		metrics.ObserveSignal(string(sig.Type))
	}

	n.log.Info("ingest batch complete",
		zap.String("target", target.URL),
		zap.Int("fragments", len(frags)),
		zap.Int("new_signals", len(res.NewSignalIDs)),
		zap.Int("deduped", res.Deduped),
		zap.Int("dropped", res.Dropped),
	)
	return res, nil
}

// classify decides the signal type and strength for a fragment, or
// rejects it when nothing in the text qualifies.
func (n *Normalizer) classify(target leads.ScrapeTarget, f Fragment) (leads.Signal, bool) {
	c := n.lex.Classify(f.Title, f.Text)

	sig := leads.Signal{
		SourceURL: f.SourceURL,
		RawText:   truncate(strings.TrimSpace(f.Title+" "+f.Text), maxRawTextChars),
	}
	if sig.SourceURL == "" {
		sig.SourceURL = target.URL
	}

	if c.Persona != "" {
		sig.Type = c.Persona
		if c.Persona == leads.SignalStrategicHire {
			sig.Strength = strengthPersonaBuy
		} else {
			sig.Strength = strengthPersonaAuto
		}
		return sig, true
	}

	hint := f.SuggestedType
	if hint == "" && len(target.SignalHints) > 0 {
		hint = target.SignalHints[0]
	}
	typ, hits := c.DominantType(hint)
	if typ == "" {
		// No keyword evidence. A hinted fragment still carries weak
		// signal from the source itself; anything else is noise.
		if hint == "" {
			return leads.Signal{}, false
		}
		sig.Type = hint
		sig.Strength = strengthHintFloor
		return sig, true
	}

	if typ == leads.SignalLaborPain && c.UrgencyHits >= shortagePromotion {
		typ = leads.SignalLaborShortage
	}
	sig.Type = typ
	sig.Strength = clamp01(strengthBase +
		strengthPerHit*float64(hits) +
		strengthPerUrgency*float64(c.UrgencyHits) +
		lengthBonus(f.Text))
	return sig, true
}

func (n *Normalizer) resolveCompany(ctx context.Context, name string, target leads.ScrapeTarget) (leads.Company, error) {
	key := lexicon.NormalizeName(name)
	if key == "" {
		return leads.Company{}, fmt.Errorf("empty name key for %q", name)
	}

	company, err := n.companies.GetCompanyByNameKey(ctx, key)
	if err == nil {
		return company, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return leads.Company{}, err
	}

	id, err := n.ids.NewID()
	if err != nil {
		return leads.Company{}, err
	}
	company = leads.Company{
		ID:        id,
		Name:      name,
		NameKey:   key,
		Industry:  firstIndustry(target),
		Source:    "scrape:" + string(target.Kind),
		CreatedAt: n.clock.Now(),
	}
	err = n.companies.CreateCompany(ctx, company)
	if errors.Is(err, store.ErrDuplicate) {
		// Lost a race with a concurrent batch; the winner's row stands.
		return n.companies.GetCompanyByNameKey(ctx, key)
	}
	if err != nil {
		return leads.Company{}, err
	}
	return company, nil
}

func (n *Normalizer) dedupKey(companyID string, typ leads.SignalType, sourceURL, text string) (string, error) {
	textHash, err := n.hasher.Hash([]byte(normalizeText(text)))
	if err != nil {
		return "", err
	}
	return n.hasher.Hash([]byte(companyID + "|" + string(typ) + "|" + sourceURL + "|" + textHash))
}

// normalizeText collapses whitespace and case so trivial reformatting
// of the same posting does not defeat dedup.
func normalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func lengthBonus(text string) float64 {
	if len(text) >= longTextChars {
		return strengthLongText
	}
	return 0
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

func firstIndustry(t leads.ScrapeTarget) string {
	if len(t.Industries) > 0 {
		return t.Industries[0]
	}
	return ""
}
