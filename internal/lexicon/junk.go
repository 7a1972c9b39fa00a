package lexicon

import (
	"regexp"
	"strings"
)

// Names that are obviously not buyer companies: staffing agencies,
// franchise brokers, recruiting platforms. They post the same
// operational roles our lexicon keys on, in volume, for other people.
var junkNameSubstrings = []string{
	"staffing", "recruiting", "recruitment", "talent acquisition",
	"employment agency", "temp agency", "workforce solutions",
	"franchise opportunit", "job board", "careers site",
}

var junkNamePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^(confidential|undisclosed|private)( (company|employer|client))?$`),
	regexp.MustCompile(`(?i)\bstaffing (group|agency|partners|services)\b`),
	regexp.MustCompile(`(?i)\b(recruiters?|headhunters?)\b`),
}

// JunkName reports whether a company name belongs to an intermediary
// rather than a prospective buyer.
func JunkName(name string) bool {
	lower := strings.ToLower(name)
	for _, sub := range junkNameSubstrings {
		if strings.Contains(lower, sub) {
			return true
		}
	}
	for _, p := range junkNamePatterns {
		if p.MatchString(name) {
			return true
		}
	}
	return false
}

var nameKeyStrip = regexp.MustCompile(`[^a-z0-9 ]+`)
var nameKeySuffix = regexp.MustCompile(`\b(inc|llc|ltd|corp|corporation|co|company|group|holdings)\b`)
var nameKeySpaces = regexp.MustCompile(`\s+`)

// NormalizeName reduces a company name to its dedup key: lowercase,
// punctuation stripped, legal suffixes dropped, whitespace collapsed.
func NormalizeName(name string) string {
	key := strings.ToLower(strings.TrimSpace(name))
	key = nameKeyStrip.ReplaceAllString(key, " ")
	key = nameKeySuffix.ReplaceAllString(key, " ")
	key = nameKeySpaces.ReplaceAllString(key, " ")
	return strings.TrimSpace(key)
}
