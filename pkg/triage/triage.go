// Package triage decides whether a listing that is about to become a new
// canonical product is clean enough to publish immediately.
package triage

import (
	"regexp"
	"strings"

	"github.com/Ramsey-B/clover/pkg/models"
)

// Issue tags appended by Assess. Downstream review tooling filters on these.
const (
	IssueJunkInName   = "junk_in_name"
	IssueMissingPrice = "missing_price"
	IssueUnknownBrand = "unknown_brand"
)

// Brand values sources emit when they don't actually know the brand.
var placeholderBrands = map[string]struct{}{
	"unknown": {},
	"n/a":     {},
	"null":    {},
	"none":    {},
	"-":       {},
	"na":      {},
}

// Junk that should not survive cleaning. If any of these still appear in the
// cleaned name, the upstream scrape was bad enough to hold the product back.
var residualJunkRes = []*regexp.Regexp{
	regexp.MustCompile(`<[^>]*>`),
	regexp.MustCompile(`&[a-zA-Z]{2,8};|&#\d{1,5};`),
	regexp.MustCompile(`\p{C}`), // control / non-printable characters
	regexp.MustCompile(`   +`),  // 3+ consecutive spaces
	regexp.MustCompile(`(?i)add to cart`),
	regexp.MustCompile(`\$\s*\d`),
	regexp.MustCompile(`(?i)\d+\s*%\s*off`),
}

// junkShrinkRatio: a cleaned name more than 30% shorter than the raw name
// means heavy junk was removed and the remainder is suspect.
const junkShrinkRatio = 0.30

// Assess runs the three quality triggers against a listing and the cleaned
// name the pipeline derived for it. Weight and category are deliberately
// never triggers: both are routinely absent from legitimate listings.
func Assess(listing models.Listing, cleanedName string) (bool, []string) {
	var issues []string

	if nameIsJunky(listing.Name, cleanedName) {
		issues = append(issues, IssueJunkInName)
	}

	if listing.Price <= 0 {
		issues = append(issues, IssueMissingPrice)
	}

	if brandIsUnknown(listing.Brand) {
		issues = append(issues, IssueUnknownBrand)
	}

	return len(issues) > 0, issues
}

func nameIsJunky(raw, cleaned string) bool {
	rawLen := len(strings.TrimSpace(raw))
	if rawLen > 0 {
		shrink := 1.0 - float64(len(cleaned))/float64(rawLen)
		if shrink > junkShrinkRatio {
			return true
		}
	}

	for _, re := range residualJunkRes {
		if re.MatchString(cleaned) {
			return true
		}
	}
	return false
}

func brandIsUnknown(brand string) bool {
	brand = strings.TrimSpace(strings.ToLower(brand))
	if brand == "" {
		return true
	}
	_, placeholder := placeholderBrands[brand]
	return placeholder
}
