// Package scrape defines the fetch and extraction surfaces. Fetchers
// pull raw pages (plain HTTP or headless browser); extractors turn a
// page into candidate fragments for ingest.
package scrape

import (
	"context"
	"net/http"
	"time"

	"github.com/readyrobots/leadengine/internal/ingest"
	"github.com/readyrobots/leadengine/internal/leads"
)

// FetchRequest describes one page fetch.
type FetchRequest struct {
	URL      string
	Headers  http.Header
	Headless bool
}

// FetchResponse is the raw result of one fetch.
type FetchResponse struct {
	URL          string
	StatusCode   int
	Headers      http.Header
	Body         []byte
	Duration     time.Duration
	UsedHeadless bool
}

// Fetcher retrieves one page. Implementations must honor context
// cancellation; a canceled fetch is a failure, never a success.
type Fetcher interface {
	Fetch(ctx context.Context, request FetchRequest) (FetchResponse, error)
}

// Extractor parses one fetched page into fragments. Parse problems are
// extraction errors, not fetch failures; they must not feed the
// breaker.
type Extractor interface {
	Extract(target leads.ScrapeTarget, page FetchResponse) ([]ingest.Fragment, error)
}
