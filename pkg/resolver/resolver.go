package resolver

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/normalize"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// AlreadyResolvedError is returned when an operator acts on a review record
// that another resolution already closed. Routes map it to 409.
type AlreadyResolvedError struct {
	ID     string
	Status models.ReviewStatus
}

func (e *AlreadyResolvedError) Error() string {
	return fmt.Sprintf("review record %s already resolved with status %s", e.ID, e.Status)
}

// ReviewStore is the review persistence the resolver needs
type ReviewStore interface {
	GetForUpdate(ctx context.Context, id string) (*models.ReviewRecord, error)
	Resolve(ctx context.Context, record *models.ReviewRecord) error
	ReassignProduct(ctx context.Context, fromProductID, toProductID string) error
}

// ProductStore is the product persistence the resolver needs
type ProductStore interface {
	Get(ctx context.Context, id string) (*models.Product, error)
	Create(ctx context.Context, product *models.Product) (*models.Product, error)
	Update(ctx context.Context, product *models.Product) error
	PropagateToVariants(ctx context.Context, parent *models.Product) error
	ListVariants(ctx context.Context, parentID string) ([]models.Product, error)
	GetVariantByGrams(ctx context.Context, parentID string, grams *float64) (*models.Product, error)
	SetVariantParent(ctx context.Context, variantID, parentID string) error
	MarkMergedInto(ctx context.Context, loserID, winnerID string) error
	DeleteVariant(ctx context.Context, variantID string) error
	DeleteWithVariants(ctx context.Context, parentID string) error
}

// PriceStore is the price persistence the resolver needs
type PriceStore interface {
	Upsert(ctx context.Context, variantID, sourceID string, amount float64) error
	MoveToVariant(ctx context.Context, fromVariantID, toVariantID string) error
	DeleteByParentSource(ctx context.Context, parentID, sourceID string) error
}

// WatchlistStore moves subscriptions between products
type WatchlistStore interface {
	ReassignProduct(ctx context.Context, fromProductID, toProductID string) error
}

// BrandStore resolves corrected brand names
type BrandStore interface {
	GetOrCreateByName(ctx context.Context, name string) (*models.Brand, error)
}

// Emitter publishes resolution events
type Emitter interface {
	EmitProductMerged(ctx context.Context, winnerID, loserID string) error
	EmitReviewResolved(ctx context.Context, record *models.ReviewRecord) error
}

// TagDuplicateMerged marks records closed by folding their product into a
// surviving duplicate.
const TagDuplicateMerged = "duplicate_merged"

// Corrections carries operator field overrides for approve, reject and
// clean_and_activate. Nil fields fall back to the record's scraped originals
// (approve/reject) or leave the product untouched (clean).
type Corrections struct {
	Name       *string  `json:"name,omitempty"`
	Brand      *string  `json:"brand,omitempty"`
	Category   *string  `json:"category,omitempty"`
	THCPercent *float64 `json:"thc_percent,omitempty"`
	CBDPercent *float64 `json:"cbd_percent,omitempty"`
	Weight     *string  `json:"weight,omitempty"`
	Price      *float64 `json:"price,omitempty"`
}

// Service applies operator resolutions to review records. Every operation
// runs in one transaction with the record row-locked, so concurrent
// resolutions of the same record serialize and the loser gets
// AlreadyResolvedError.
type Service struct {
	db        database.DB
	reviews   ReviewStore
	products  ProductStore
	prices    PriceStore
	watchlist WatchlistStore
	brands    BrandStore
	emitter   Emitter
	logger    ectologger.Logger
}

// New creates a resolver service. emitter may be nil.
func New(
	db database.DB,
	reviews ReviewStore,
	products ProductStore,
	prices PriceStore,
	watchlist WatchlistStore,
	brands BrandStore,
	emitter Emitter,
	logger ectologger.Logger,
) *Service {
	return &Service{
		db:        db,
		reviews:   reviews,
		products:  products,
		prices:    prices,
		watchlist: watchlist,
		brands:    brands,
		emitter:   emitter,
		logger:    logger,
	}
}

// ApproveFlag confirms a suggested match: the record's listing attaches to
// the matched parent as a variant plus price, with operator overrides applied
// to the parent and recorded as corrections against the scraped originals.
func (s *Service) ApproveFlag(ctx context.Context, id string, overrides Corrections, resolvedBy string, notes *string) (*models.ReviewRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "resolver.Service.ApproveFlag")
	defer span.End()

	return s.resolve(ctx, id, resolvedBy, notes, []models.ReviewStatus{models.ReviewStatusPending}, func(txCtx context.Context, record *models.ReviewRecord) error {
		if record.Kind != models.ReviewKindMatchReview {
			return httperror.NewHTTPError(http.StatusBadRequest, "record is not a match flag")
		}
		if record.MatchedProductID == nil {
			return httperror.NewHTTPError(http.StatusBadRequest, "record has no matched product")
		}

		parent, err := s.products.Get(txCtx, *record.MatchedProductID)
		if err != nil {
			return err
		}

		diffs := models.CorrectionSet{}
		parentChanged := false
		if v := trimmedOverride(overrides.Name); v != nil {
			if *v != record.ScrapedName {
				diffs["name"] = models.Correction{From: record.ScrapedName, To: *v}
			}
			parent.Name = *v
			parentChanged = true
		}
		if v := trimmedOverride(overrides.Brand); v != nil {
			brand, err := s.brands.GetOrCreateByName(txCtx, *v)
			if err != nil {
				return err
			}
			if brand.Name != record.ScrapedBrand {
				diffs["brand"] = models.Correction{From: record.ScrapedBrand, To: brand.Name}
			}
			parent.BrandID = &brand.ID
			parent.BrandName = brand.Name
			parentChanged = true
		}
		if overrides.Category != nil {
			if record.ScrapedCategory == nil || *overrides.Category != *record.ScrapedCategory {
				diffs["category"] = models.Correction{From: record.ScrapedCategory, To: *overrides.Category}
			}
			parent.Category = overrides.Category
			parentChanged = true
		}
		if overrides.THCPercent != nil {
			if record.ScrapedTHCPercent == nil || *overrides.THCPercent != *record.ScrapedTHCPercent {
				diffs["thc_percent"] = models.Correction{From: record.ScrapedTHCPercent, To: *overrides.THCPercent}
			}
			parent.THCPercent = overrides.THCPercent
			parentChanged = true
		}
		if overrides.CBDPercent != nil {
			if record.ScrapedCBDPercent == nil || *overrides.CBDPercent != *record.ScrapedCBDPercent {
				diffs["cbd_percent"] = models.Correction{From: record.ScrapedCBDPercent, To: *overrides.CBDPercent}
			}
			parent.CBDPercent = overrides.CBDPercent
			parentChanged = true
		}
		if parentChanged {
			if err := s.products.Update(txCtx, parent); err != nil {
				return err
			}
			if err := s.products.PropagateToVariants(txCtx, parent); err != nil {
				return err
			}
		}

		label, grams := effectiveWeight(record, trimmedOverride(overrides.Weight), diffs)
		variant, err := s.products.GetVariantByGrams(txCtx, parent.ID, grams)
		if err != nil {
			return err
		}
		if variant == nil {
			variant, err = s.products.Create(txCtx, &models.Product{
				BrandID:         parent.BrandID,
				BrandName:       parent.BrandName,
				Name:            parent.Name,
				Category:        parent.Category,
				IsParent:        false,
				ParentID:        &parent.ID,
				Weight:          label,
				GramsEquivalent: grams,
				IsActive:        parent.IsActive,
			})
			if err != nil {
				return err
			}
		}

		price := effectivePrice(record, overrides.Price, diffs)
		if price != nil && *price > 0 {
			if err := s.prices.Upsert(txCtx, variant.ID, record.SourceID, *price); err != nil {
				return err
			}
		}

		record.Status = models.ReviewStatusApproved
		if len(diffs) > 0 {
			record.Corrections = database.JSONB[models.CorrectionSet]{Data: diffs}
		}
		return nil
	})
}

// RejectFlag rejects a suggested match: the listing becomes a brand-new
// parent with its own variant and price, built from the scraped originals
// with operator overrides applied.
func (s *Service) RejectFlag(ctx context.Context, id string, overrides Corrections, resolvedBy string, notes *string) (*models.ReviewRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "resolver.Service.RejectFlag")
	defer span.End()

	return s.resolve(ctx, id, resolvedBy, notes, []models.ReviewStatus{models.ReviewStatusPending}, func(txCtx context.Context, record *models.ReviewRecord) error {
		if record.Kind != models.ReviewKindMatchReview {
			return httperror.NewHTTPError(http.StatusBadRequest, "record is not a match flag")
		}

		diffs := models.CorrectionSet{}

		brandName := record.ScrapedBrand
		if v := trimmedOverride(overrides.Brand); v != nil {
			if *v != record.ScrapedBrand {
				diffs["brand"] = models.Correction{From: record.ScrapedBrand, To: *v}
			}
			brandName = *v
		}
		brand, err := s.brands.GetOrCreateByName(txCtx, brandName)
		if err != nil {
			return err
		}

		cleaned := normalize.Clean(record.ScrapedName)
		displayName, _, _ := scrapedWeight(record, cleaned)
		if v := trimmedOverride(overrides.Name); v != nil {
			if *v != record.ScrapedName {
				diffs["name"] = models.Correction{From: record.ScrapedName, To: *v}
			}
			displayName = *v
		}

		category := record.ScrapedCategory
		if overrides.Category != nil {
			if record.ScrapedCategory == nil || *overrides.Category != *record.ScrapedCategory {
				diffs["category"] = models.Correction{From: record.ScrapedCategory, To: *overrides.Category}
			}
			category = overrides.Category
		}
		thc := record.ScrapedTHCPercent
		if overrides.THCPercent != nil {
			if record.ScrapedTHCPercent == nil || *overrides.THCPercent != *record.ScrapedTHCPercent {
				diffs["thc_percent"] = models.Correction{From: record.ScrapedTHCPercent, To: *overrides.THCPercent}
			}
			thc = overrides.THCPercent
		}
		cbd := record.ScrapedCBDPercent
		if overrides.CBDPercent != nil {
			if record.ScrapedCBDPercent == nil || *overrides.CBDPercent != *record.ScrapedCBDPercent {
				diffs["cbd_percent"] = models.Correction{From: record.ScrapedCBDPercent, To: *overrides.CBDPercent}
			}
			cbd = overrides.CBDPercent
		}

		parent, err := s.products.Create(txCtx, &models.Product{
			BrandID:    &brand.ID,
			BrandName:  brand.Name,
			Name:       displayName,
			Category:   category,
			THCPercent: thc,
			CBDPercent: cbd,
			IsParent:   true,
			IsActive:   true,
		})
		if err != nil {
			return err
		}

		label, grams := effectiveWeight(record, trimmedOverride(overrides.Weight), diffs)
		variant, err := s.products.Create(txCtx, &models.Product{
			BrandID:         parent.BrandID,
			BrandName:       parent.BrandName,
			Name:            parent.Name,
			Category:        parent.Category,
			THCPercent:      parent.THCPercent,
			CBDPercent:      parent.CBDPercent,
			IsParent:        false,
			ParentID:        &parent.ID,
			Weight:          label,
			GramsEquivalent: grams,
			IsActive:        true,
		})
		if err != nil {
			return err
		}

		price := effectivePrice(record, overrides.Price, diffs)
		if price != nil && *price > 0 {
			if err := s.prices.Upsert(txCtx, variant.ID, record.SourceID, *price); err != nil {
				return err
			}
		}

		record.Status = models.ReviewStatusRejected
		record.MatchedProductID = &parent.ID
		if len(diffs) > 0 {
			record.Corrections = database.JSONB[models.CorrectionSet]{Data: diffs}
		}
		return nil
	})
}

// DismissFlag closes a record as a false alarm with no side effects. Valid
// for pending flags and auto_merged audit records alike.
func (s *Service) DismissFlag(ctx context.Context, id, resolvedBy string, notes *string) (*models.ReviewRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "resolver.Service.DismissFlag")
	defer span.End()

	return s.resolve(ctx, id, resolvedBy, notes, []models.ReviewStatus{models.ReviewStatusPending, models.ReviewStatusAutoMerged}, func(_ context.Context, record *models.ReviewRecord) error {
		record.Status = models.ReviewStatusDismissed
		return nil
	})
}

// RejectAutoMerge records operator disagreement with an automatic merge. The
// catalog is left untouched; the rejected record feeds scraper-accuracy
// analytics so merge thresholds can be tuned.
func (s *Service) RejectAutoMerge(ctx context.Context, id, resolvedBy string, notes *string) (*models.ReviewRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "resolver.Service.RejectAutoMerge")
	defer span.End()

	return s.resolve(ctx, id, resolvedBy, notes, []models.ReviewStatus{models.ReviewStatusAutoMerged}, func(_ context.Context, record *models.ReviewRecord) error {
		if record.Kind != models.ReviewKindMatchReview {
			return httperror.NewHTTPError(http.StatusBadRequest, "record is not an auto-merge")
		}
		record.Status = models.ReviewStatusRejected
		return nil
	})
}

// MergeDuplicateFlag resolves a pending record by folding its product into
// keptProductID. Variants re-parent to the survivor; same-weight collisions
// move their prices and drop the duplicate variant; watchlists and review
// history follow the survivor; the duplicate is retired.
func (s *Service) MergeDuplicateFlag(ctx context.Context, id, keptProductID, resolvedBy string, notes *string) (*models.ReviewRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "resolver.Service.MergeDuplicateFlag")
	defer span.End()

	var loserID string
	record, err := s.resolve(ctx, id, resolvedBy, notes, []models.ReviewStatus{models.ReviewStatusPending, models.ReviewStatusAutoMerged}, func(txCtx context.Context, record *models.ReviewRecord) error {
		if record.MatchedProductID == nil {
			return httperror.NewHTTPError(http.StatusBadRequest, "record has no product to merge")
		}
		loserID = *record.MatchedProductID
		if loserID == keptProductID {
			return httperror.NewHTTPError(http.StatusBadRequest, "cannot merge a product into itself")
		}

		// Fails with 404 before any mutation when the survivor is unknown.
		winner, err := s.products.Get(txCtx, keptProductID)
		if err != nil {
			return err
		}

		variants, err := s.products.ListVariants(txCtx, loserID)
		if err != nil {
			return err
		}
		for i := range variants {
			dup, err := s.products.GetVariantByGrams(txCtx, winner.ID, variants[i].GramsEquivalent)
			if err != nil {
				return err
			}
			if dup == nil {
				if err := s.products.SetVariantParent(txCtx, variants[i].ID, winner.ID); err != nil {
					return err
				}
				continue
			}
			if err := s.prices.MoveToVariant(txCtx, variants[i].ID, dup.ID); err != nil {
				return err
			}
			if err := s.products.DeleteVariant(txCtx, variants[i].ID); err != nil {
				return err
			}
		}

		if err := s.watchlist.ReassignProduct(txCtx, loserID, winner.ID); err != nil {
			return err
		}
		if err := s.reviews.ReassignProduct(txCtx, loserID, winner.ID); err != nil {
			return err
		}
		if err := s.products.MarkMergedInto(txCtx, loserID, winner.ID); err != nil {
			return err
		}

		record.Status = models.ReviewStatusDismissed
		record.MatchedProductID = &winner.ID
		record.Issues = append(record.Issues, TagDuplicateMerged)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.emitter != nil {
		if err := s.emitter.EmitProductMerged(ctx, keptProductID, loserID); err != nil {
			s.logger.WithContext(ctx).WithError(err).Warn("Failed to emit merge event")
		}
	}
	return record, nil
}

// CleanAndActivate applies operator corrections to a flagged product,
// records the per-field diffs, and activates it.
func (s *Service) CleanAndActivate(ctx context.Context, id string, corrections Corrections, resolvedBy string, notes *string) (*models.ReviewRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "resolver.Service.CleanAndActivate")
	defer span.End()

	return s.resolve(ctx, id, resolvedBy, notes, []models.ReviewStatus{models.ReviewStatusPending}, func(txCtx context.Context, record *models.ReviewRecord) error {
		if record.Kind != models.ReviewKindDataCleanup || record.MatchedProductID == nil {
			return httperror.NewHTTPError(http.StatusBadRequest, "record is not a cleanup flag")
		}

		product, err := s.products.Get(txCtx, *record.MatchedProductID)
		if err != nil {
			return err
		}

		diffs := models.CorrectionSet{}
		if corrections.Name != nil && strings.TrimSpace(*corrections.Name) != "" && *corrections.Name != product.Name {
			diffs["name"] = models.Correction{From: product.Name, To: *corrections.Name}
			product.Name = strings.TrimSpace(*corrections.Name)
		}
		if corrections.Brand != nil && strings.TrimSpace(*corrections.Brand) != "" && *corrections.Brand != product.BrandName {
			brand, err := s.brands.GetOrCreateByName(txCtx, *corrections.Brand)
			if err != nil {
				return err
			}
			diffs["brand"] = models.Correction{From: product.BrandName, To: brand.Name}
			product.BrandID = &brand.ID
			product.BrandName = brand.Name
		}
		if corrections.Category != nil {
			diffs["category"] = models.Correction{From: product.Category, To: *corrections.Category}
			product.Category = corrections.Category
		}
		if corrections.THCPercent != nil {
			diffs["thc_percent"] = models.Correction{From: product.THCPercent, To: *corrections.THCPercent}
			product.THCPercent = corrections.THCPercent
		}
		if corrections.CBDPercent != nil {
			diffs["cbd_percent"] = models.Correction{From: product.CBDPercent, To: *corrections.CBDPercent}
			product.CBDPercent = corrections.CBDPercent
		}

		if corrections.Weight != nil || corrections.Price != nil {
			variant, err := s.flaggedVariant(txCtx, product.ID, record)
			if err != nil {
				return err
			}
			if corrections.Weight != nil && strings.TrimSpace(*corrections.Weight) != "" {
				from := variant.Weight
				if w, ok := normalize.ParseWeight(*corrections.Weight); ok {
					variant.Weight = &w.Label
					variant.GramsEquivalent = &w.Grams
				} else {
					raw := strings.TrimSpace(*corrections.Weight)
					variant.Weight = &raw
					variant.GramsEquivalent = nil
				}
				diffs["weight"] = models.Correction{From: from, To: variant.Weight}
				if err := s.products.Update(txCtx, variant); err != nil {
					return err
				}
			}
			if corrections.Price != nil && *corrections.Price > 0 {
				diffs["price"] = models.Correction{From: record.ScrapedPrice, To: *corrections.Price}
				// Upsert so a corrected price rolls the old amount into the
				// change-history fields the same way a scraped update would.
				if err := s.prices.Upsert(txCtx, variant.ID, record.SourceID, *corrections.Price); err != nil {
					return err
				}
			}
		}

		product.IsActive = true
		if err := s.products.Update(txCtx, product); err != nil {
			return err
		}
		if err := s.products.PropagateToVariants(txCtx, product); err != nil {
			return err
		}

		record.Status = models.ReviewStatusCleaned
		record.Corrections = database.JSONB[models.CorrectionSet]{Data: diffs}
		return nil
	})
}

// DeleteFlaggedProduct resolves a cleanup flag by hard-deleting the product
// and everything under it. For listings an operator judges to be junk rather
// than a real product.
func (s *Service) DeleteFlaggedProduct(ctx context.Context, id, resolvedBy string, notes *string) (*models.ReviewRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "resolver.Service.DeleteFlaggedProduct")
	defer span.End()

	return s.resolve(ctx, id, resolvedBy, notes, []models.ReviewStatus{models.ReviewStatusPending}, func(txCtx context.Context, record *models.ReviewRecord) error {
		if record.Kind != models.ReviewKindDataCleanup || record.MatchedProductID == nil {
			return httperror.NewHTTPError(http.StatusBadRequest, "record is not a cleanup flag")
		}
		if err := s.products.DeleteWithVariants(txCtx, *record.MatchedProductID); err != nil {
			return err
		}
		record.Status = models.ReviewStatusDismissed
		record.MatchedProductID = nil
		return nil
	})
}

// resolve is the shared transaction skeleton: lock the record, verify it is
// still in the expected status, run the action, stamp and persist the
// resolution, commit. The emitter fires after commit so consumers never see
// an event for a rolled-back resolution.
func (s *Service) resolve(
	ctx context.Context,
	id, resolvedBy string,
	notes *string,
	expected []models.ReviewStatus,
	fn func(txCtx context.Context, record *models.ReviewRecord) error,
) (*models.ReviewRecord, error) {
	if strings.TrimSpace(resolvedBy) == "" {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "resolved_by is required")
	}

	txCtx, tx, err := s.db.GetTx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, err
	}
	// Rollback gets the pre-transaction ctx so it actually fires on error
	// paths instead of deferring to an outer owner.
	defer tx.Rollback(ctx)

	record, err := s.reviews.GetForUpdate(txCtx, id)
	if err != nil {
		return nil, err
	}
	allowed := false
	for _, status := range expected {
		if record.Status == status {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, &AlreadyResolvedError{ID: record.ID, Status: record.Status}
	}

	if err := fn(txCtx, record); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	record.ResolvedBy = &resolvedBy
	record.ResolvedAt = &now
	if notes != nil && strings.TrimSpace(*notes) != "" {
		record.AdminNotes = notes
	}
	if err := s.reviews.Resolve(txCtx, record); err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	if s.emitter != nil {
		if err := s.emitter.EmitReviewResolved(ctx, record); err != nil {
			s.logger.WithContext(ctx).WithError(err).Warn("Failed to emit resolution event")
		}
	}

	return record, nil
}

// trimmedOverride normalizes a string override: nil or blank means the
// operator left the field alone.
func trimmedOverride(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// effectiveWeight resolves a record's variant weight, preferring the operator
// override over the scraped original. An unparseable value keeps its raw text
// as the label with no grams equivalent. Override diffs land in diffs.
func effectiveWeight(record *models.ReviewRecord, override *string, diffs models.CorrectionSet) (label *string, grams *float64) {
	if override != nil {
		scraped := ""
		if record.ScrapedWeight != nil {
			scraped = strings.TrimSpace(*record.ScrapedWeight)
		}
		if *override != scraped {
			diffs["weight"] = models.Correction{From: record.ScrapedWeight, To: *override}
		}
		if w, ok := normalize.ParseWeight(*override); ok {
			return &w.Label, &w.Grams
		}
		return override, nil
	}

	cleaned := normalize.Clean(record.ScrapedName)
	if _, w, ok := scrapedWeight(record, cleaned); ok {
		return &w.Label, &w.Grams
	}
	if record.ScrapedWeight != nil && strings.TrimSpace(*record.ScrapedWeight) != "" {
		raw := strings.TrimSpace(*record.ScrapedWeight)
		return &raw, nil
	}
	return nil, nil
}

// effectivePrice resolves a record's price, preferring the operator override
// over the scraped original. Override diffs land in diffs.
func effectivePrice(record *models.ReviewRecord, override *float64, diffs models.CorrectionSet) *float64 {
	if override == nil {
		return record.ScrapedPrice
	}
	if record.ScrapedPrice == nil || *override != *record.ScrapedPrice {
		diffs["price"] = models.Correction{From: record.ScrapedPrice, To: *override}
	}
	return override
}

// flaggedVariant locates the variant the flagged listing created, keyed by
// the grams the pipeline parsed when it built the product.
func (s *Service) flaggedVariant(ctx context.Context, parentID string, record *models.ReviewRecord) (*models.Product, error) {
	cleaned := normalize.Clean(record.ScrapedName)
	_, w, ok := scrapedWeight(record, cleaned)
	var grams *float64
	if ok {
		grams = &w.Grams
	}
	variant, err := s.products.GetVariantByGrams(ctx, parentID, grams)
	if err != nil {
		return nil, err
	}
	if variant == nil {
		return nil, httperror.NewHTTPError(http.StatusNotFound, "flagged variant not found")
	}
	return variant, nil
}

func scrapedWeight(record *models.ReviewRecord, cleaned string) (string, normalize.Weight, bool) {
	stripped, extracted, found := normalize.ExtractWeightFromName(cleaned)
	if record.ScrapedWeight != nil {
		if w, ok := normalize.ParseWeight(*record.ScrapedWeight); ok {
			return stripped, w, true
		}
	}
	if found {
		return stripped, extracted, true
	}
	return cleaned, normalize.Weight{}, false
}
