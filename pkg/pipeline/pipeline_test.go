package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/pkg/matching"
	"github.com/Ramsey-B/clover/pkg/models"
)

// fakeCatalog backs all four store interfaces with maps so pipeline behavior
// can be asserted without a database.
type fakeCatalog struct {
	brands   map[string]*models.Brand
	products map[string]*models.Product
	prices   map[string]float64 // "variantID|sourceID" -> amount
	reviews  []*models.ReviewRecord
	seq      int

	brandErr error
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		brands:   map[string]*models.Brand{},
		products: map[string]*models.Product{},
		prices:   map[string]float64{},
	}
}

func (f *fakeCatalog) nextID(prefix string) string {
	f.seq++
	return fmt.Sprintf("%s-%d", prefix, f.seq)
}

func (f *fakeCatalog) GetOrCreateByName(ctx context.Context, name string) (*models.Brand, error) {
	if f.brandErr != nil {
		return nil, f.brandErr
	}
	key := strings.ToLower(strings.TrimSpace(name))
	if b, ok := f.brands[key]; ok {
		return b, nil
	}
	b := &models.Brand{ID: f.nextID("brand"), Name: strings.TrimSpace(name)}
	f.brands[key] = b
	return b, nil
}

func (f *fakeCatalog) Create(ctx context.Context, product *models.Product) (*models.Product, error) {
	if product.ID == "" {
		product.ID = f.nextID("prod")
	}
	f.products[product.ID] = product
	return product, nil
}

func (f *fakeCatalog) Get(ctx context.Context, id string) (*models.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return nil, fmt.Errorf("product %s not found", id)
	}
	return p, nil
}

func (f *fakeCatalog) ListCandidates(ctx context.Context) ([]models.Candidate, error) {
	var out []models.Candidate
	for _, p := range f.products {
		if p.IsParent && p.DeletedAt == nil {
			out = append(out, p.Candidate())
		}
	}
	return out, nil
}

func (f *fakeCatalog) GetVariantByGrams(ctx context.Context, parentID string, grams *float64) (*models.Product, error) {
	for _, p := range f.products {
		if p.IsParent || p.ParentID == nil || *p.ParentID != parentID {
			continue
		}
		if grams == nil && p.GramsEquivalent == nil {
			return p, nil
		}
		if grams != nil && p.GramsEquivalent != nil && *grams == *p.GramsEquivalent {
			return p, nil
		}
	}
	return nil, nil
}

func (f *fakeCatalog) Upsert(ctx context.Context, variantID, sourceID string, amount float64) error {
	f.prices[variantID+"|"+sourceID] = amount
	return nil
}

func (f *fakeCatalog) ParentHasSource(ctx context.Context, parentID, sourceID string) (bool, error) {
	for key := range f.prices {
		variantID, source, _ := strings.Cut(key, "|")
		if source != sourceID {
			continue
		}
		if v, ok := f.products[variantID]; ok && v.ParentID != nil && *v.ParentID == parentID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeCatalog) CreateReview(ctx context.Context, record *models.ReviewRecord) (*models.ReviewRecord, error) {
	if record.ID == "" {
		record.ID = f.nextID("review")
	}
	f.reviews = append(f.reviews, record)
	return record, nil
}

// reviewStore adapts fakeCatalog's CreateReview to the ReviewStore shape
// without colliding with the product Create method.
type reviewStore struct{ *fakeCatalog }

func (r reviewStore) Create(ctx context.Context, record *models.ReviewRecord) (*models.ReviewRecord, error) {
	return r.CreateReview(ctx, record)
}

type fakeEmitter struct {
	created []string
	merged  []string
}

func (f *fakeEmitter) EmitProductCreated(ctx context.Context, product *models.Product) error {
	f.created = append(f.created, product.ID)
	return nil
}

func (f *fakeEmitter) EmitListingMerged(ctx context.Context, productID, sourceID string, confidence float64) error {
	f.merged = append(f.merged, productID)
	return nil
}

func newTestPipeline(catalog *fakeCatalog, emitter Emitter) *Pipeline {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	scorer := matching.NewProductScorer(matching.DefaultConfig())
	return New(catalog, catalog, catalog, reviewStore{catalog}, emitter, scorer, logger)
}

func (f *fakeCatalog) parent(t *testing.T) *models.Product {
	t.Helper()
	for _, p := range f.products {
		if p.IsParent {
			return p
		}
	}
	t.Fatal("no parent product created")
	return nil
}

func (f *fakeCatalog) variants(parentID string) []*models.Product {
	var out []*models.Product
	for _, p := range f.products {
		if p.ParentID != nil && *p.ParentID == parentID {
			out = append(out, p)
		}
	}
	return out
}

func strPtr(s string) *string { return &s }

func TestProcessBatch_NewProduct(t *testing.T) {
	catalog := newFakeCatalog()
	emitter := &fakeEmitter{}
	pipe := newTestPipeline(catalog, emitter)

	batch := models.ListingBatch{
		SourceID: "src-1",
		Listings: []models.Listing{
			{Name: "Blue Dream (3.5g)", Brand: "House Exotics", Price: 45},
		},
	}

	result, err := pipe.ProcessBatch(context.Background(), batch)
	require.NoError(t, err)
	assert.Equal(t, BatchResult{Processed: 1, Created: 1}, result)

	parent := catalog.parent(t)
	assert.Equal(t, "Blue Dream", parent.Name)
	assert.Equal(t, "House Exotics", parent.BrandName)
	assert.True(t, parent.IsActive)
	require.NotNil(t, parent.BrandID)

	variants := catalog.variants(parent.ID)
	require.Len(t, variants, 1)
	require.NotNil(t, variants[0].GramsEquivalent)
	assert.InDelta(t, 3.5, *variants[0].GramsEquivalent, 0.0001)
	assert.Equal(t, "3.5g", *variants[0].Weight)
	assert.False(t, variants[0].IsParent)

	assert.Equal(t, 45.0, catalog.prices[variants[0].ID+"|src-1"])
	assert.Empty(t, catalog.reviews)
	assert.Equal(t, []string{parent.ID}, emitter.created)
}

func TestProcessBatch_DirtyListingHeldInactive(t *testing.T) {
	catalog := newFakeCatalog()
	pipe := newTestPipeline(catalog, nil) // nil emitter must be safe

	batch := models.ListingBatch{
		SourceID: "src-1",
		Listings: []models.Listing{
			{Name: "Blue Dream", Brand: "unknown", Price: 0},
		},
	}

	result, err := pipe.ProcessBatch(context.Background(), batch)
	require.NoError(t, err)
	assert.Equal(t, BatchResult{Processed: 1, Created: 1, Flagged: 1}, result)

	parent := catalog.parent(t)
	assert.False(t, parent.IsActive)

	require.Len(t, catalog.reviews, 1)
	record := catalog.reviews[0]
	assert.Equal(t, models.ReviewKindDataCleanup, record.Kind)
	assert.Equal(t, models.ReviewStatusPending, record.Status)
	require.NotNil(t, record.MatchedProductID)
	assert.Equal(t, parent.ID, *record.MatchedProductID)
	assert.Contains(t, []string(record.Issues), "missing_price")
	assert.Contains(t, []string(record.Issues), "unknown_brand")

	// No price row for an unpriced listing.
	assert.Empty(t, catalog.prices)
}

func TestProcessBatch_SameProductTwiceInOneBatch(t *testing.T) {
	catalog := newFakeCatalog()
	emitter := &fakeEmitter{}
	pipe := newTestPipeline(catalog, emitter)

	batch := models.ListingBatch{
		SourceID: "src-1",
		Listings: []models.Listing{
			{Name: "Blue Dream", Brand: "House Exotics", Price: 45, Weight: strPtr("3.5g")},
			{Name: "Blue Dream", Brand: "House Exotics", Price: 80, Weight: strPtr("7g")},
		},
	}

	result, err := pipe.ProcessBatch(context.Background(), batch)
	require.NoError(t, err)
	assert.Equal(t, BatchResult{Processed: 2, Created: 1, Merged: 1}, result)

	parent := catalog.parent(t)
	variants := catalog.variants(parent.ID)
	assert.Len(t, variants, 2)

	// The merging listing came from the same source that created the parent,
	// so no audit record is written.
	assert.Empty(t, catalog.reviews)
	assert.Equal(t, []string{parent.ID}, emitter.merged)
}

func TestProcessBatch_MergeFromNewSource(t *testing.T) {
	catalog := newFakeCatalog()
	emitter := &fakeEmitter{}
	pipe := newTestPipeline(catalog, emitter)

	seed := models.ListingBatch{
		SourceID: "src-1",
		Listings: []models.Listing{{Name: "Blue Dream (3.5g)", Brand: "House Exotics", Price: 45}},
	}
	_, err := pipe.ProcessBatch(context.Background(), seed)
	require.NoError(t, err)
	parent := catalog.parent(t)

	batch := models.ListingBatch{
		SourceID: "src-2",
		Listings: []models.Listing{{Name: "Blue Dream (3.5g)", Brand: "House Exotics", Price: 42}},
	}
	result, err := pipe.ProcessBatch(context.Background(), batch)
	require.NoError(t, err)
	assert.Equal(t, BatchResult{Processed: 1, Merged: 1}, result)

	// Existing variant is reused, not duplicated.
	variants := catalog.variants(parent.ID)
	require.Len(t, variants, 1)
	assert.Equal(t, 42.0, catalog.prices[variants[0].ID+"|src-2"])
	assert.Equal(t, 45.0, catalog.prices[variants[0].ID+"|src-1"])

	// First contact from a new source writes an auto-merged audit record.
	require.Len(t, catalog.reviews, 1)
	record := catalog.reviews[0]
	assert.Equal(t, models.ReviewKindMatchReview, record.Kind)
	assert.Equal(t, models.ReviewStatusAutoMerged, record.Status)
	require.NotNil(t, record.MatchedProductID)
	assert.Equal(t, parent.ID, *record.MatchedProductID)
	assert.GreaterOrEqual(t, record.Confidence, 0.90)
	assert.Equal(t, "src-2", record.SourceID)
}

func TestProcessBatch_MergeUnseenWeightAddsVariant(t *testing.T) {
	catalog := newFakeCatalog()
	pipe := newTestPipeline(catalog, nil)

	seed := models.ListingBatch{
		SourceID: "src-1",
		Listings: []models.Listing{{Name: "Blue Dream", Brand: "House Exotics", Price: 45, Weight: strPtr("3.5g")}},
	}
	_, err := pipe.ProcessBatch(context.Background(), seed)
	require.NoError(t, err)
	parent := catalog.parent(t)

	batch := models.ListingBatch{
		SourceID: "src-1",
		Listings: []models.Listing{{Name: "Blue Dream", Brand: "House Exotics", Price: 150, Weight: strPtr("1oz")}},
	}
	result, err := pipe.ProcessBatch(context.Background(), batch)
	require.NoError(t, err)
	assert.Equal(t, BatchResult{Processed: 1, Merged: 1}, result)

	variants := catalog.variants(parent.ID)
	require.Len(t, variants, 2)

	ounce, err := catalog.GetVariantByGrams(context.Background(), parent.ID, f64Ptr(28))
	require.NoError(t, err)
	require.NotNil(t, ounce)
	assert.Equal(t, "1oz", *ounce.Weight)
	assert.Equal(t, 150.0, catalog.prices[ounce.ID+"|src-1"])
}

func TestProcessBatch_UnparseableWeightKeepsRawLabel(t *testing.T) {
	catalog := newFakeCatalog()
	pipe := newTestPipeline(catalog, nil)

	batch := models.ListingBatch{
		SourceID: "src-1",
		Listings: []models.Listing{
			{Name: "Blue Dream", Brand: "House Exotics", Price: 45, Weight: strPtr("fun size")},
		},
	}

	_, err := pipe.ProcessBatch(context.Background(), batch)
	require.NoError(t, err)

	parent := catalog.parent(t)
	variants := catalog.variants(parent.ID)
	require.Len(t, variants, 1)
	assert.Nil(t, variants[0].GramsEquivalent)
	require.NotNil(t, variants[0].Weight)
	assert.Equal(t, "fun size", *variants[0].Weight)
}

func TestProcessBatch_InvalidBatchRejected(t *testing.T) {
	catalog := newFakeCatalog()
	pipe := newTestPipeline(catalog, nil)

	_, err := pipe.ProcessBatch(context.Background(), models.ListingBatch{
		Listings: []models.Listing{{Name: "Blue Dream"}},
	})
	assert.Error(t, err)
}

func TestProcessBatch_FailingListingDoesNotStopBatch(t *testing.T) {
	catalog := newFakeCatalog()
	catalog.brandErr = errors.New("brand store down")
	pipe := newTestPipeline(catalog, nil)

	batch := models.ListingBatch{
		SourceID: "src-1",
		Listings: []models.Listing{
			{Name: "Blue Dream", Brand: "House Exotics", Price: 45},
			{Name: "Sour Diesel", Brand: "Tryke", Price: 40},
		},
	}

	result, err := pipe.ProcessBatch(context.Background(), batch)
	require.NoError(t, err)
	assert.Equal(t, BatchResult{Processed: 2, Failed: 2}, result)
	assert.Empty(t, catalog.products)
}

func f64Ptr(v float64) *float64 { return &v }
