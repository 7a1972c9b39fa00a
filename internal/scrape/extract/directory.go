package extract

import (
	"bytes"
	"fmt"
	"net/url"

	"github.com/PuerkitoBio/goquery"

	"github.com/readyrobots/leadengine/internal/ingest"
	"github.com/readyrobots/leadengine/internal/leads"
	"github.com/readyrobots/leadengine/internal/scrape"
)

var directoryLayouts = []struct {
	entry string
	name  string
}{
	{"div.result", "a.business-name"},
	{"div.v-card", "a.business-name"},
	{".directory-entry", ".name"},
	{".listing", ".listing-name"},
}

// Directory extracts business listings. Each entry names a company; the
// entry text carries whatever evidence the listing includes.
type Directory struct{}

func (Directory) Extract(target leads.ScrapeTarget, page scrape.FetchResponse) ([]ingest.Fragment, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		return nil, fmt.Errorf("parsing directory html: %w", err)
	}

	var frags []ingest.Fragment
	for _, layout := range directoryLayouts {
		doc.Find(layout.entry).Each(func(_ int, entry *goquery.Selection) {
			name := clean(entry.Find(layout.name).First().Text())
			if name == "" {
				return
			}
			frags = append(frags, ingest.Fragment{
				CompanyHint:   name,
				Title:         name,
				Text:          clean(entry.Text()),
				SourceURL:     cardLink(entry, page.URL),
				SuggestedType: leads.SignalJobPosting,
			})
		})
		if len(frags) > 0 {
			break
		}
	}
	return frags, nil
}

func resolveHref(pageURL, href string) string {
	base, err := url.Parse(pageURL)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return pageURL
	}
	return base.ResolveReference(ref).String()
}
