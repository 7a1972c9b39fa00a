package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/readyrobots/leadengine/internal/ingest"
	"github.com/readyrobots/leadengine/internal/leads"
	"github.com/readyrobots/leadengine/internal/scrape"
)

// Card selector sets for the major job board layouts, tried in order.
// Each gives the listing container plus title and company selectors
// within it.
var jobCardLayouts = []struct {
	card    string
	title   string
	company string
}{
	{"div.job_seen_beacon", "h2.jobTitle", "span.companyName, span[data-testid=company-name]"},
	{"div.base-card", "h3.base-search-card__title", "h4.base-search-card__subtitle"},
	{".job-listing", ".job-title", ".company"},
	{".result", ".title", ".company"},
	{".posting", ".posting-title", ".posting-company"},
}

// JobBoard extracts job cards: title, company, and the card's text.
type JobBoard struct{}

func (JobBoard) Extract(target leads.ScrapeTarget, page scrape.FetchResponse) ([]ingest.Fragment, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		return nil, fmt.Errorf("parsing job board html: %w", err)
	}

	var frags []ingest.Fragment
	for _, layout := range jobCardLayouts {
		doc.Find(layout.card).Each(func(_ int, card *goquery.Selection) {
			title := clean(card.Find(layout.title).First().Text())
			company := clean(card.Find(layout.company).First().Text())
			if title == "" && company == "" {
				return
			}
			frags = append(frags, ingest.Fragment{
				CompanyHint:   company,
				Title:         title,
				Text:          clean(card.Text()),
				SourceURL:     cardLink(card, page.URL),
				SuggestedType: leads.SignalJobPosting,
			})
		})
		if len(frags) > 0 {
			break
		}
	}
	return frags, nil
}

func cardLink(card *goquery.Selection, pageURL string) string {
	href, ok := card.Find("a[href]").First().Attr("href")
	if !ok {
		return pageURL
	}
	return resolveHref(pageURL, href)
}

func clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
