package extract

import (
	"encoding/xml"
	"fmt"
	"regexp"
	"strings"

	"github.com/readyrobots/leadengine/internal/ingest"
	"github.com/readyrobots/leadengine/internal/leads"
	"github.com/readyrobots/leadengine/internal/scrape"
)

// rssFeed covers RSS 2.0 and, loosely, Atom (item vs entry).
type rssFeed struct {
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
	Entries []rssItem `xml:"entry"`
}

type rssItem struct {
	Title       string    `xml:"title"`
	Links       []rssLink `xml:"link"`
	Description string    `xml:"description"`
	Summary     string    `xml:"summary"`
}

// rssLink captures both RSS (<link>url</link>) and Atom
// (<link href="url"/>) forms.
type rssLink struct {
	Href string `xml:"href,attr"`
	Text string `xml:",chardata"`
}

func (i rssItem) link() string {
	for _, l := range i.Links {
		if s := strings.TrimSpace(l.Text); s != "" {
			return s
		}
		if l.Href != "" {
			return l.Href
		}
	}
	return ""
}

// Headline shapes where the leading phrase is the acting company.
// "Acme Logistics raises $40M", "Harbor Foods to open new plant".
var announcePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^(.{2,60}?)\s+(announces|announced|raises|raised|acquires|acquired|acquiring|opens|opened|to open|expands|expanding|launches|launched|invests|investing|plans|unveils|selects|partners with|names|appoints|hires)\b`),
}

// NewsFeed extracts feed items. The company hint comes from the
// headline's announce phrasing; items with no such phrasing still flow
// through, hint-less, and ingest drops them.
type NewsFeed struct{}

func (NewsFeed) Extract(target leads.ScrapeTarget, page scrape.FetchResponse) ([]ingest.Fragment, error) {
	var feed rssFeed
	if err := xml.Unmarshal(page.Body, &feed); err != nil {
		return nil, fmt.Errorf("parsing feed xml: %w", err)
	}

	items := feed.Channel.Items
	if len(items) == 0 {
		items = feed.Entries
	}

	frags := make([]ingest.Fragment, 0, len(items))
	for _, item := range items {
		title := clean(item.Title)
		if title == "" {
			continue
		}
		body := clean(item.Description)
		if body == "" {
			body = clean(item.Summary)
		}
		link := item.link()
		if link == "" {
			link = page.URL
		}
		frags = append(frags, ingest.Fragment{
			CompanyHint:   announcedCompany(title),
			Title:         title,
			Text:          body,
			SourceURL:     link,
			SuggestedType: leads.SignalNews,
		})
	}
	return frags, nil
}

// announcedCompany pulls the subject out of an announce-style headline.
func announcedCompany(title string) string {
	for _, p := range announcePatterns {
		if m := p.FindStringSubmatch(title); m != nil {
			return strings.Trim(m[1], " \t-:,")
		}
	}
	return ""
}
