// Package snapshot archives raw fetched pages so scoring decisions stay
// auditable after the source page changes or disappears.
package snapshot

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/readyrobots/leadengine/internal/leads"
	"github.com/readyrobots/leadengine/internal/scrape"
)

// Store persists one raw page per scrape and returns its URI.
type Store interface {
	Save(ctx context.Context, target leads.ScrapeTarget, page scrape.FetchResponse, at time.Time) (string, error)
}

// NoOp discards snapshots; used in dry runs and most tests.
type NoOp struct{}

func (NoOp) Save(context.Context, leads.ScrapeTarget, scrape.FetchResponse, time.Time) (string, error) {
	return "", nil
}

// ObjectPath builds the archive key: kind/host/timestamp.html, stable
// enough to browse by source.
func ObjectPath(target leads.ScrapeTarget, at time.Time) string {
	host := "unknown"
	if u, err := url.Parse(target.URL); err == nil && u.Hostname() != "" {
		host = u.Hostname()
	}
	return fmt.Sprintf("%s/%s/%s.html",
		target.Kind, sanitize(host), at.UTC().Format("20060102T150405Z"))
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '-':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '_'
		}
	}, s)
}
