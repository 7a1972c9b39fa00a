package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/readyrobots/leadengine/internal/hash/sha256"
	"github.com/readyrobots/leadengine/internal/id/uuid"
	"github.com/readyrobots/leadengine/internal/leads"
	"github.com/readyrobots/leadengine/internal/lexicon"
	"github.com/readyrobots/leadengine/internal/store/memory"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func newTestNormalizer(t *testing.T) (*Normalizer, *memory.Store) {
	t.Helper()
	st := memory.New()
	n := NewNormalizer(
		st, st,
		lexicon.New(),
		fixedClock{t: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)},
		uuid.New(),
		sha256.New(),
		zap.NewNop(),
	)
	return n, st
}

func jobTarget() leads.ScrapeTarget {
	return leads.ScrapeTarget{
		ID:          "t1",
		URL:         "https://jobs.example.com/warehouse",
		Kind:        leads.KindJobBoard,
		Industries:  []string{"logistics"},
		SignalHints: []leads.SignalType{leads.SignalLaborPain},
		Active:      true,
	}
}

func TestIngestBatchCreatesCompanyAndSignal(t *testing.T) {
	n, st := newTestNormalizer(t)
	ctx := context.Background()

	res, err := n.IngestBatch(ctx, jobTarget(), []Fragment{{
		CompanyHint: "Midwest Cold Storage, Inc.",
		Title:       "Warehouse Associate",
		Text:        "Forklift operator and material handler openings. Immediate hire.",
		SourceURL:   "https://jobs.example.com/warehouse/123",
	}})
	require.NoError(t, err)
	require.Len(t, res.NewSignalIDs, 1)
	require.Len(t, res.CompanyIDs, 1)

	company, err := st.GetCompanyByNameKey(ctx, "midwest cold storage")
	require.NoError(t, err)
	assert.Equal(t, "Midwest Cold Storage, Inc.", company.Name)
	assert.Equal(t, "logistics", company.Industry)
	assert.Equal(t, "scrape:job_board", company.Source)

	sigs, err := st.ListSignalsByCompany(ctx, company.ID)
	require.NoError(t, err)
	require.Len(t, sigs, 1)
	assert.Equal(t, leads.SignalLaborPain, sigs[0].Type)
	assert.Greater(t, sigs[0].Strength, 0.5)
	assert.LessOrEqual(t, sigs[0].Strength, 1.0)
	assert.Equal(t, "https://jobs.example.com/warehouse/123", sigs[0].SourceURL)
}

func TestIngestBatchDedupesRepeatObservations(t *testing.T) {
	n, st := newTestNormalizer(t)
	ctx := context.Background()

	frag := Fragment{
		CompanyHint: "Grand Pacific Hotels",
		Title:       "Housekeeper",
		Text:        "Room attendant and laundry attendant positions.",
	}
	res, err := n.IngestBatch(ctx, jobTarget(), []Fragment{frag})
	require.NoError(t, err)
	require.Len(t, res.NewSignalIDs, 1)

	// Whitespace and case changes must not defeat dedup.
	frag.Text = "  ROOM attendant  and laundry attendant positions. "
	res, err = n.IngestBatch(ctx, jobTarget(), []Fragment{frag})
	require.NoError(t, err)
	assert.Empty(t, res.NewSignalIDs)
	assert.Equal(t, 1, res.Deduped)

	sigs, err := st.ListSignals(ctx)
	require.NoError(t, err)
	assert.Len(t, sigs, 1)
}

func TestIngestBatchPersonaOverridesKeywords(t *testing.T) {
	n, st := newTestNormalizer(t)
	ctx := context.Background()

	_, err := n.IngestBatch(ctx, jobTarget(), []Fragment{{
		CompanyHint: "Bluebird Senior Living",
		Title:       "VP of Operations",
		Text:        "Oversees housekeeper and dietary aide teams.",
	}})
	require.NoError(t, err)

	company, err := st.GetCompanyByNameKey(ctx, "bluebird senior living")
	require.NoError(t, err)
	sigs, err := st.ListSignalsByCompany(ctx, company.ID)
	require.NoError(t, err)
	require.Len(t, sigs, 1)
	assert.Equal(t, leads.SignalStrategicHire, sigs[0].Type)
	assert.InDelta(t, 0.80, sigs[0].Strength, 1e-9)
}

func TestIngestBatchUrgencyPromotesShortage(t *testing.T) {
	n, st := newTestNormalizer(t)
	ctx := context.Background()

	_, err := n.IngestBatch(ctx, jobTarget(), []Fragment{{
		CompanyHint: "Harbor Diner Group",
		Title:       "Line Cook",
		Text:        "Dishwasher and prep cook needed. Sign-on bonus, hiring now, multiple openings.",
	}})
	require.NoError(t, err)

	sigs, err := st.ListSignals(ctx)
	require.NoError(t, err)
	require.Len(t, sigs, 1)
	assert.Equal(t, leads.SignalLaborShortage, sigs[0].Type)
}

func TestIngestBatchDropsUnclassifiableWithoutHint(t *testing.T) {
	n, _ := newTestNormalizer(t)
	ctx := context.Background()

	target := jobTarget()
	target.SignalHints = nil
	res, err := n.IngestBatch(ctx, target, []Fragment{
		{CompanyHint: "Acme Widgets", Title: "Quarterly newsletter", Text: "Nothing relevant here."},
		{Title: "Warehouse Associate", Text: "No company hint on this one."},
	})
	require.NoError(t, err)
	assert.Empty(t, res.NewSignalIDs)
	assert.Equal(t, 2, res.Dropped)
}

func TestIngestBatchHintFloorsUnmatchedFragments(t *testing.T) {
	n, st := newTestNormalizer(t)
	ctx := context.Background()

	res, err := n.IngestBatch(ctx, jobTarget(), []Fragment{{
		CompanyHint:   "Acme Widgets",
		Title:         "Openings",
		Text:          "Several roles available at our plant.",
		SuggestedType: leads.SignalJobPosting,
	}})
	require.NoError(t, err)
	require.Len(t, res.NewSignalIDs, 1)

	sigs, err := st.ListSignals(ctx)
	require.NoError(t, err)
	assert.Equal(t, leads.SignalJobPosting, sigs[0].Type)
	assert.InDelta(t, 0.30, sigs[0].Strength, 1e-9)
}

func TestImportCompanies(t *testing.T) {
	n, st := newTestNormalizer(t)
	ctx := context.Background()

	res, err := n.ImportCompanies(ctx, []CompanyInput{
		{Name: "Acme Logistics, Inc.", Industry: "logistics", LocationState: "OH"},
		{Name: "ACME Logistics LLC"},
		{Name: "   "},
		{Name: "Grand Pacific Hotels", Industry: "hospitality"},
	})
	require.NoError(t, err)
	require.Len(t, res.Created, 2)
	require.Len(t, res.Skipped, 2)
	assert.Equal(t, "already exists", res.Skipped[0].Reason)
	assert.Equal(t, "empty name", res.Skipped[1].Reason)

	companies, err := st.ListCompanies(ctx)
	require.NoError(t, err)
	assert.Len(t, companies, 2)
	assert.Equal(t, "import", companies[0].Source)
}
