package lexicon

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/readyrobots/leadengine/internal/leads"
)

func TestClassifyLaborPain(t *testing.T) {
	lex := New()

	c := lex.Classify(
		"Warehouse Associate",
		"Seeking warehouse associate and forklift operator for night shift.",
	)
	assert.Empty(t, c.Persona)
	assert.GreaterOrEqual(t, c.HitsByType[leads.SignalLaborPain], 2)

	typ, hits := c.DominantType("")
	assert.Equal(t, leads.SignalLaborPain, typ)
	assert.GreaterOrEqual(t, hits, 2)
}

func TestClassifyUrgency(t *testing.T) {
	lex := New()

	c := lex.Classify(
		"Line Cook - Hiring Now",
		"Immediate hire, sign-on bonus, multiple openings across various shifts.",
	)
	assert.GreaterOrEqual(t, c.UrgencyHits, 3)
}

func TestClassifyBuyerPersona(t *testing.T) {
	lex := New()

	c := lex.Classify("VP of Operations and Supply Chain", "")
	assert.Equal(t, leads.SignalStrategicHire, c.Persona)

	c = lex.Classify("Director of Process Improvement", "")
	assert.Equal(t, leads.SignalAutomationIntent, c.Persona)

	// Builders are not buyers.
	c = lex.Classify("Senior Robotics Software Engineer", "")
	assert.Empty(t, c.Persona)
}

func TestClassifyMoneyEvents(t *testing.T) {
	lex := New()

	c := lex.Classify(
		"Acme Logistics raises $40M Series B",
		"The funding round will support a new distribution center.",
	)
	assert.Positive(t, c.HitsByType[leads.SignalFundingRound])
	assert.Positive(t, c.HitsByType[leads.SignalExpansion])

	typ, _ := c.DominantType("")
	assert.Equal(t, leads.SignalFundingRound, typ)
}

func TestDominantTypeHonorsHint(t *testing.T) {
	lex := New()

	// One hit each; the hint should break the tie.
	c := lex.Classify("", "planned a merger and a new facility")
	require.Equal(t, 1, c.HitsByType[leads.SignalMAActivity])
	require.Equal(t, 1, c.HitsByType[leads.SignalExpansion])

	typ, _ := c.DominantType(leads.SignalExpansion)
	assert.Equal(t, leads.SignalExpansion, typ)
}

func TestJunkName(t *testing.T) {
	junk := []string{
		"Apex Staffing Group",
		"Confidential Employer",
		"National Recruiters LLC",
		"Gold Star Franchise Opportunities",
	}
	for _, name := range junk {
		assert.True(t, JunkName(name), name)
	}

	clean := []string{
		"Grand Pacific Hotels",
		"Midwest Cold Storage",
		"Bluebird Senior Living",
	}
	for _, name := range clean {
		assert.False(t, JunkName(name), name)
	}
}

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "acme logistics", NormalizeName("Acme Logistics, Inc."))
	assert.Equal(t, "acme logistics", NormalizeName("ACME LOGISTICS LLC"))
	assert.Equal(t, "grand pacific", NormalizeName("  Grand   Pacific Holdings "))
}

func TestCategoryByKey(t *testing.T) {
	c, ok := CategoryByKey("Acquisitions")
	require.True(t, ok)
	assert.Equal(t, "Acquisitions & Mergers", c.Label)
	assert.Contains(t, c.Types, leads.SignalMAActivity)

	_, ok = CategoryByKey("nope")
	assert.False(t, ok)
}
