// Package extract turns fetched pages into ingest fragments, one
// extractor per scraper kind.
package extract

import (
	"fmt"

	"github.com/readyrobots/leadengine/internal/leads"
	"github.com/readyrobots/leadengine/internal/scrape"
)

// For returns the extractor for a scraper kind. The switch is
// exhaustive; an unknown kind is a registration bug, not something to
// paper over at scrape time.
func For(kind leads.ScraperKind) (scrape.Extractor, error) {
	switch kind {
	case leads.KindJobBoard:
		return &JobBoard{}, nil
	case leads.KindNewsFeed:
		return &NewsFeed{}, nil
	case leads.KindDirectory:
		return &Directory{}, nil
	default:
		return nil, fmt.Errorf("no extractor for kind %q", kind)
	}
}
