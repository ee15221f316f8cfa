package matching

import (
	"math"
	"regexp"
	"strings"

	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/normalize"
)

// Decision is the outcome of scoring an incoming listing against a candidate.
type Decision string

const (
	// DecisionMerge attaches the listing to the candidate parent.
	DecisionMerge Decision = "merge"
	// DecisionNew creates a new canonical product.
	DecisionNew Decision = "new"
)

// LegacyReviewThreshold is the lower bound of the historical three-way
// decision band (merge / needs-review / new). The live decision path is
// two-way; the constant is kept for analytics queries over old records.
const LegacyReviewThreshold = 0.60

// Config holds the scoring weights and decision threshold.
//
// CannabinoidWeight defaults to 0.10: THC proximity participates in the
// weighted sum. Deployments that want name+brand-only scoring set it to 0.
type Config struct {
	NameWeight        float64
	BrandWeight       float64
	CannabinoidWeight float64
	MergeThreshold    float64
}

// DefaultConfig returns the production scoring configuration.
func DefaultConfig() Config {
	return Config{
		NameWeight:        0.70,
		BrandWeight:       0.20,
		CannabinoidWeight: 0.10,
		MergeThreshold:    0.90,
	}
}

// Input is the listing-side view the scorer compares against candidates:
// the cleaned, weight-stripped name plus brand and THC.
type Input struct {
	Name       string
	Brand      string
	THCPercent *float64
}

// ProductScorer scores incoming listings against candidate parents.
type ProductScorer struct {
	scorer *Scorer
	config Config
}

// NewProductScorer creates a scorer with the given configuration.
func NewProductScorer(config Config) *ProductScorer {
	return &ProductScorer{
		scorer: NewScorer(),
		config: config,
	}
}

// Score computes the similarity confidence in [0,1] between an incoming
// listing and one candidate parent, and classifies the result. Names and
// brands are normalized on both sides before comparison.
func (p *ProductScorer) Score(in Input, candidate models.Candidate) (float64, Decision) {
	nameScore := p.scorer.TokenSortSimilarity(NormalizeName(in.Name), NormalizeName(candidate.Name))
	brandScore := p.scorer.TokenSortSimilarity(NormalizeBrand(in.Brand), NormalizeBrand(candidate.Brand))
	thcScore := cannabinoidSimilarity(in.THCPercent, candidate.THCPercent)

	confidence := nameScore*p.config.NameWeight +
		brandScore*p.config.BrandWeight +
		thcScore*p.config.CannabinoidWeight

	confidence = clamp01(confidence)

	if confidence >= p.config.MergeThreshold {
		return confidence, DecisionMerge
	}
	return confidence, DecisionNew
}

// FindBestCandidate scans candidates in order and keeps the highest-scoring
// one at or above minThreshold. Ties keep the first encountered, so callers
// get deterministic results for a stable candidate order.
func (p *ProductScorer) FindBestCandidate(in Input, candidates []models.Candidate, minThreshold float64) (*models.Candidate, float64, Decision) {
	var best *models.Candidate
	bestScore := 0.0

	for i := range candidates {
		score, _ := p.Score(in, candidates[i])
		if score >= minThreshold && score > bestScore {
			best = &candidates[i]
			bestScore = score
		}
	}

	if best == nil {
		return nil, 0, DecisionNew
	}
	if bestScore >= p.config.MergeThreshold {
		return best, bestScore, DecisionMerge
	}
	return best, bestScore, DecisionNew
}

// cannabinoidSimilarity is 1.0 when either side has no THC reading; a
// missing value never penalizes a match. Otherwise similarity decays
// linearly, reaching zero at a 30-point difference.
func cannabinoidSimilarity(a, b *float64) float64 {
	if a == nil || b == nil {
		return 1.0
	}
	return math.Max(0, 1.0-math.Abs(*a-*b)/30.0)
}

var (
	trademarkRe  = regexp.MustCompile(`[®™©]`)
	corpSuffixRe = regexp.MustCompile(`(?i)(?:[\s,]+(?:llc|inc|co|corp|company|companies|ltd)\.?)+\s*$`)
	nonAlnumRe   = regexp.MustCompile(`[^a-z0-9\s]`)
	multiSpaceRe = regexp.MustCompile(`\s+`)
)

// NormalizeName prepares a product name for comparison: case-fold, strip
// trademark glyphs and any trailing weight token, drop punctuation, collapse
// whitespace.
func NormalizeName(name string) string {
	name = trademarkRe.ReplaceAllString(name, "")
	if stripped, _, ok := normalize.ExtractWeightFromName(name); ok {
		name = stripped
	}
	name = strings.ToLower(name)
	name = nonAlnumRe.ReplaceAllString(name, " ")
	name = multiSpaceRe.ReplaceAllString(name, " ")
	return strings.TrimSpace(name)
}

// NormalizeBrand prepares a brand string for comparison; corporate suffixes
// ("Tryke Companies LLC" vs "Tryke") carry no signal.
func NormalizeBrand(brand string) string {
	brand = trademarkRe.ReplaceAllString(brand, "")
	brand = corpSuffixRe.ReplaceAllString(brand, "")
	brand = strings.ToLower(brand)
	brand = nonAlnumRe.ReplaceAllString(brand, " ")
	brand = multiSpaceRe.ReplaceAllString(brand, " ")
	return strings.TrimSpace(brand)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
