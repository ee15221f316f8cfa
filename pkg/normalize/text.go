// Package normalize provides listing text cleanup and weight parsing.
// Everything here is a pure string transform; persistence and scoring live
// elsewhere.
package normalize

import (
	"regexp"
	"strings"
)

// Scrapers leak storefront chrome into product names. Each rule removes one
// class of junk; rules run in order and replace matches with a single space
// so that removal never joins two unrelated tokens into a new match.
var junkRules = []*regexp.Regexp{
	// cart/storefront action phrases
	regexp.MustCompile(`(?i)\b(?:add to (?:cart|bag)|shop now|view (?:product|details)|select options|choose options|out of stock|sold out|in stock)\b`),
	// percent-off promo text ("20% off", "save 15% off")
	regexp.MustCompile(`(?i)(?:\bsave\s+)?\d+(?:\.\d+)?\s*%\s*off\b`),
	// stray currency amounts injected next to the name
	regexp.MustCompile(`\$\s*\d+(?:[.,]\d{1,2})?`),
	// repeated bare unit tokens ("mg mg mg"); a single attached unit like
	// "100mg" is left alone
	regexp.MustCompile(`(?i)\b(mg|g|oz|ml)(?:\s+(?:mg|g|oz|ml)\b)+`),
	// HTML tags and entities
	regexp.MustCompile(`<[^>]*>`),
	regexp.MustCompile(`&[a-zA-Z]{2,8};|&#\d{1,5};`),
}

var whitespaceRe = regexp.MustCompile(`\s+`)

// Clean strips scraper-injected junk from a raw product name and collapses
// whitespace. It is deterministic and idempotent, and it never destroys the
// name: if cleaning would leave nothing, the trimmed original is returned.
// Input that is nothing but whitespace has no name to preserve and comes
// back empty.
func Clean(raw string) string {
	cleaned := raw
	for _, rule := range junkRules {
		cleaned = rule.ReplaceAllString(cleaned, " ")
	}

	cleaned = whitespaceRe.ReplaceAllString(cleaned, " ")
	cleaned = strings.TrimSpace(cleaned)
	cleaned = strings.Trim(cleaned, "-|,:; ")
	cleaned = strings.TrimSpace(cleaned)

	if cleaned == "" {
		return strings.TrimSpace(raw)
	}
	return cleaned
}
