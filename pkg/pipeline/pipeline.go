package pipeline

import (
	"context"
	"strings"

	"github.com/Gobusters/ectologger"
	"github.com/go-playground/validator/v10"

	"github.com/Ramsey-B/clover/pkg/matching"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/normalize"
	"github.com/Ramsey-B/clover/pkg/tracing"
	"github.com/Ramsey-B/clover/pkg/triage"
)

// BrandStore resolves brand names to brand rows
type BrandStore interface {
	GetOrCreateByName(ctx context.Context, name string) (*models.Brand, error)
}

// ProductStore is the product persistence the pipeline needs
type ProductStore interface {
	Create(ctx context.Context, product *models.Product) (*models.Product, error)
	Get(ctx context.Context, id string) (*models.Product, error)
	ListCandidates(ctx context.Context) ([]models.Candidate, error)
	GetVariantByGrams(ctx context.Context, parentID string, grams *float64) (*models.Product, error)
}

// PriceStore is the price persistence the pipeline needs
type PriceStore interface {
	Upsert(ctx context.Context, variantID, sourceID string, amount float64) error
	ParentHasSource(ctx context.Context, parentID, sourceID string) (bool, error)
}

// ReviewStore records audit and cleanup entries
type ReviewStore interface {
	Create(ctx context.Context, record *models.ReviewRecord) (*models.ReviewRecord, error)
}

// Emitter publishes catalog change events. Implementations must be safe to
// call with a nil-op behavior when event publishing is disabled.
type Emitter interface {
	EmitProductCreated(ctx context.Context, product *models.Product) error
	EmitListingMerged(ctx context.Context, productID, sourceID string, confidence float64) error
}

// BatchResult summarizes one batch run
type BatchResult struct {
	Processed int `json:"processed"`
	Merged    int `json:"merged"`
	Created   int `json:"created"`
	Flagged   int `json:"flagged"`
	Failed    int `json:"failed"`
}

// Pipeline normalizes scraped listings into the canonical catalog. Each
// listing either merges into an existing parent product or creates a new
// parent with its first weight variant.
type Pipeline struct {
	brands   BrandStore
	products ProductStore
	prices   PriceStore
	reviews  ReviewStore
	emitter  Emitter
	scorer   *matching.ProductScorer
	validate *validator.Validate
	logger   ectologger.Logger
}

// New creates a pipeline. emitter may be nil when event publishing is
// disabled.
func New(
	brands BrandStore,
	products ProductStore,
	prices PriceStore,
	reviews ReviewStore,
	emitter Emitter,
	scorer *matching.ProductScorer,
	logger ectologger.Logger,
) *Pipeline {
	return &Pipeline{
		brands:   brands,
		products: products,
		prices:   prices,
		reviews:  reviews,
		emitter:  emitter,
		scorer:   scorer,
		validate: validator.New(),
		logger:   logger,
	}
}

// ProcessBatch runs every listing of a batch through the pipeline in scrape
// order. The candidate index is loaded once and grown in-run, so two listings
// of the same new product in one batch merge instead of duplicating. A
// failing listing is logged and skipped; the rest of the batch proceeds.
func (p *Pipeline) ProcessBatch(ctx context.Context, batch models.ListingBatch) (BatchResult, error) {
	ctx, span := tracing.StartSpan(ctx, "pipeline.ProcessBatch")
	defer span.End()

	result := BatchResult{}

	if err := p.validate.Struct(batch); err != nil {
		return result, err
	}

	candidates, err := p.products.ListCandidates(ctx)
	if err != nil {
		return result, err
	}

	log := p.logger.WithContext(ctx).WithFields(map[string]any{
		"sourceId": batch.SourceID,
		"listings": len(batch.Listings),
	})
	log.Info("Processing listing batch")

	for i := range batch.Listings {
		outcome, err := p.Process(ctx, batch.Listings[i], batch.SourceID, &candidates)
		result.Processed++
		if err != nil {
			result.Failed++
			log.WithError(err).WithFields(map[string]any{"name": batch.Listings[i].Name}).Error("Failed to process listing")
			continue
		}
		switch outcome {
		case models.OutcomeMerged:
			result.Merged++
		case models.OutcomeNew:
			result.Created++
		case models.OutcomeNewFlagged:
			result.Created++
			result.Flagged++
		}
	}

	log.WithFields(map[string]any{
		"merged":  result.Merged,
		"created": result.Created,
		"flagged": result.Flagged,
		"failed":  result.Failed,
	}).Info("Finished listing batch")

	return result, nil
}

// Process runs a single listing. candidates is the in-run match index; a
// newly created parent is appended so later listings can merge into it.
func (p *Pipeline) Process(ctx context.Context, listing models.Listing, sourceID string, candidates *[]models.Candidate) (models.Outcome, error) {
	ctx, span := tracing.StartSpan(ctx, "pipeline.Process")
	defer span.End()

	cleaned := normalize.Clean(listing.Name)
	displayName, weight, hasWeight := resolveWeight(listing, cleaned)

	in := matching.Input{
		Name:       displayName,
		Brand:      listing.Brand,
		THCPercent: listing.THCPercent,
	}

	best, confidence, decision := p.scorer.FindBestCandidate(in, *candidates, matching.LegacyReviewThreshold)
	if decision == matching.DecisionMerge && best != nil {
		return p.merge(ctx, listing, sourceID, best.ID, confidence, weight, hasWeight)
	}

	return p.createNew(ctx, listing, sourceID, cleaned, displayName, weight, hasWeight, candidates)
}

func (p *Pipeline) merge(
	ctx context.Context,
	listing models.Listing,
	sourceID string,
	parentID string,
	confidence float64,
	weight normalize.Weight,
	hasWeight bool,
) (models.Outcome, error) {
	variant, err := p.products.GetVariantByGrams(ctx, parentID, gramsPtr(weight, hasWeight))
	if err != nil {
		return "", err
	}
	if variant == nil {
		parent, err := p.products.Get(ctx, parentID)
		if err != nil {
			return "", err
		}
		variant, err = p.products.Create(ctx, newVariant(parent, listing, weight, hasWeight))
		if err != nil {
			return "", err
		}
	}

	// Checked before the upsert so the first price from a new source is what
	// triggers the audit record.
	hadSource, err := p.prices.ParentHasSource(ctx, parentID, sourceID)
	if err != nil {
		return "", err
	}

	if listing.Price > 0 {
		if err := p.prices.Upsert(ctx, variant.ID, sourceID, listing.Price); err != nil {
			return "", err
		}
	}

	if !hadSource {
		record := reviewFromListing(listing, sourceID)
		record.Kind = models.ReviewKindMatchReview
		record.Status = models.ReviewStatusAutoMerged
		record.MatchedProductID = &parentID
		record.Confidence = confidence
		if _, err := p.reviews.Create(ctx, record); err != nil {
			return "", err
		}
	}

	if p.emitter != nil {
		if err := p.emitter.EmitListingMerged(ctx, parentID, sourceID, confidence); err != nil {
			p.logger.WithContext(ctx).WithError(err).Warn("Failed to emit merge event")
		}
	}

	return models.OutcomeMerged, nil
}

func (p *Pipeline) createNew(
	ctx context.Context,
	listing models.Listing,
	sourceID string,
	cleaned string,
	displayName string,
	weight normalize.Weight,
	hasWeight bool,
	candidates *[]models.Candidate,
) (models.Outcome, error) {
	dirty, issues := triage.Assess(listing, cleaned)

	brand, err := p.brands.GetOrCreateByName(ctx, listing.Brand)
	if err != nil {
		return "", err
	}

	parent := &models.Product{
		BrandID:    &brand.ID,
		BrandName:  brand.Name,
		Name:       displayName,
		Category:   optional(listing.Category),
		THCPercent: listing.THCPercent,
		CBDPercent: listing.CBDPercent,
		IsParent:   true,
		IsActive:   !dirty,
	}
	parent, err = p.products.Create(ctx, parent)
	if err != nil {
		return "", err
	}

	variant, err := p.products.Create(ctx, newVariant(parent, listing, weight, hasWeight))
	if err != nil {
		return "", err
	}

	if listing.Price > 0 {
		if err := p.prices.Upsert(ctx, variant.ID, sourceID, listing.Price); err != nil {
			return "", err
		}
	}

	*candidates = append(*candidates, parent.Candidate())

	if dirty {
		record := reviewFromListing(listing, sourceID)
		record.Kind = models.ReviewKindDataCleanup
		record.Status = models.ReviewStatusPending
		record.MatchedProductID = &parent.ID
		record.Issues = issues
		if _, err := p.reviews.Create(ctx, record); err != nil {
			return "", err
		}
	}

	if p.emitter != nil {
		if err := p.emitter.EmitProductCreated(ctx, parent); err != nil {
			p.logger.WithContext(ctx).WithError(err).Warn("Failed to emit create event")
		}
	}

	if dirty {
		return models.OutcomeNewFlagged, nil
	}
	return models.OutcomeNew, nil
}

// resolveWeight determines the listing's weight, preferring the explicit
// weight field over a token embedded in the name. The returned name has any
// embedded weight token stripped.
func resolveWeight(listing models.Listing, cleaned string) (string, normalize.Weight, bool) {
	stripped, extracted, found := normalize.ExtractWeightFromName(cleaned)

	if listing.Weight != nil && strings.TrimSpace(*listing.Weight) != "" {
		if w, ok := normalize.ParseWeight(*listing.Weight); ok {
			return stripped, w, true
		}
		// Unparseable explicit weight keeps its raw label on a unit-less
		// variant rather than being silently dropped.
		return stripped, normalize.Weight{Label: strings.TrimSpace(*listing.Weight)}, false
	}

	if found {
		return stripped, extracted, true
	}
	return cleaned, normalize.Weight{}, false
}

func newVariant(parent *models.Product, listing models.Listing, weight normalize.Weight, hasWeight bool) *models.Product {
	variant := &models.Product{
		BrandID:    parent.BrandID,
		BrandName:  parent.BrandName,
		Name:       parent.Name,
		Category:   parent.Category,
		THCPercent: listing.THCPercent,
		CBDPercent: listing.CBDPercent,
		IsParent:   false,
		ParentID:   &parent.ID,
		IsActive:   parent.IsActive,
	}
	if hasWeight {
		grams := weight.Grams
		label := weight.Label
		variant.GramsEquivalent = &grams
		variant.Weight = &label
	} else if weight.Label != "" {
		label := weight.Label
		variant.Weight = &label
	}
	return variant
}

func reviewFromListing(listing models.Listing, sourceID string) *models.ReviewRecord {
	return &models.ReviewRecord{
		ScrapedName:       listing.Name,
		ScrapedBrand:      listing.Brand,
		ScrapedCategory:   optional(listing.Category),
		ScrapedTHCPercent: listing.THCPercent,
		ScrapedCBDPercent: listing.CBDPercent,
		ScrapedWeight:     listing.Weight,
		ScrapedPrice:      optionalFloat(listing.Price),
		SourceURL:         listing.SourceURL,
		SourceID:          sourceID,
	}
}

func gramsPtr(weight normalize.Weight, hasWeight bool) *float64 {
	if !hasWeight {
		return nil
	}
	g := weight.Grams
	return &g
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func optionalFloat(v float64) *float64 {
	if v <= 0 {
		return nil
	}
	return &v
}
