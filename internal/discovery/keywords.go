package discovery

import (
	"regexp"
	"strings"
)

var (
	unitPattern    = regexp.MustCompile(`(?i)\d+\s*(oz|ml|inch|pack|count|lb|kg|piece|set|mm|cm|ft)\b`)
	parenPattern   = regexp.MustCompile(`\([^)]*\)`)
	bracketPattern = regexp.MustCompile(`\[[^\]]*\]`)
	wordPattern    = regexp.MustCompile(`\w+`)
)

// stopWords are filler terms that carry no search signal in a product
// title.
var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {},
	"be": {}, "by": {}, "for": {}, "from": {}, "has": {}, "he": {},
	"in": {}, "is": {}, "it": {}, "its": {}, "of": {}, "on": {},
	"that": {}, "the": {}, "to": {}, "was": {}, "will": {}, "with": {},
	"pack": {}, "set": {}, "new": {}, "best": {}, "top": {},
	"premium": {}, "professional": {},
}

// maxKeywords caps the terms used for discussion search. Long marketplace
// titles are mostly noise past the first few meaningful words.
const maxKeywords = 3

// ExtractKeywords reduces a marketplace product title to its most
// meaningful search terms: units, parenthesized qualifiers, and stop
// words are stripped, then the first remaining words win.
func ExtractKeywords(productName string) []string {
	clean := strings.ToLower(productName)
	clean = unitPattern.ReplaceAllString(clean, "")
	clean = parenPattern.ReplaceAllString(clean, "")
	clean = bracketPattern.ReplaceAllString(clean, "")

	var keywords []string
	for _, word := range wordPattern.FindAllString(clean, -1) {
		if len(word) <= 2 {
			continue
		}
		if _, skip := stopWords[word]; skip {
			continue
		}
		keywords = append(keywords, word)
		if len(keywords) == maxKeywords {
			break
		}
	}
	return keywords
}
