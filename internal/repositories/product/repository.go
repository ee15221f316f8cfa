package product

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

const productTable = "products"

var productStruct = database.NewStruct(new(models.Product))

// Repository handles product persistence for both parents and variants
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new product repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a product row. The caller sets IsParent, ParentID and weight
// fields; ID and timestamps are assigned here when unset.
func (r *Repository) Create(ctx context.Context, product *models.Product) (*models.Product, error) {
	ctx, span := tracing.StartSpan(ctx, "product.Repository.Create")
	defer span.End()

	if product.ID == "" {
		product.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	product.CreatedAt = now
	product.UpdatedAt = now

	ib := productStruct.InsertInto(productTable, product)

	query, args := ib.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"name": product.Name}).Error("Failed to create product")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create product")
	}

	return product, nil
}

// Get retrieves a product by ID
func (r *Repository) Get(ctx context.Context, id string) (*models.Product, error) {
	ctx, span := tracing.StartSpan(ctx, "product.Repository.Get")
	defer span.End()

	sb := r.selectBuilder()
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	var product models.Product
	if err := r.db.GetContext(ctx, &product, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, httperror.NewHTTPError(http.StatusNotFound, "product not found")
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get product")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get product")
	}

	return &product, nil
}

// ListCandidates returns every non-deleted parent product as a match-index
// descriptor. Inactive parents are included so repeat listings of a product
// awaiting cleanup attach to it instead of spawning another duplicate.
func (r *Repository) ListCandidates(ctx context.Context) ([]models.Candidate, error) {
	ctx, span := tracing.StartSpan(ctx, "product.Repository.ListCandidates")
	defer span.End()

	query := `
		SELECT id, name, brand_name AS brand, thc_percent
		FROM products
		WHERE is_parent = true AND deleted_at IS NULL
		ORDER BY created_at
	`

	candidates := []models.Candidate{}
	if err := r.db.SelectContext(ctx, &candidates, query); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list match candidates")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list match candidates")
	}

	return candidates, nil
}

// ListParents returns parent products, optionally filtered by brand or
// active state.
func (r *Repository) ListParents(ctx context.Context, brandID *string, isActive *bool, limit int) ([]models.Product, error) {
	ctx, span := tracing.StartSpan(ctx, "product.Repository.ListParents")
	defer span.End()

	sb := r.selectBuilder()
	sb.Where(sb.Equal("is_parent", true), sb.IsNull("deleted_at"))
	if brandID != nil {
		sb.Where(sb.Equal("brand_id", *brandID))
	}
	if isActive != nil {
		sb.Where(sb.Equal("is_active", *isActive))
	}
	sb.OrderBy("created_at").Desc()
	if limit > 0 {
		sb.Limit(limit)
	}

	query, args := sb.Build()
	products := []models.Product{}
	if err := r.db.SelectContext(ctx, &products, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list parent products")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list parent products")
	}

	return products, nil
}

// ListVariants returns the weight variants of a parent ordered by grams,
// with the unit-less variant last.
func (r *Repository) ListVariants(ctx context.Context, parentID string) ([]models.Product, error) {
	ctx, span := tracing.StartSpan(ctx, "product.Repository.ListVariants")
	defer span.End()

	sb := r.selectBuilder()
	sb.Where(sb.Equal("parent_id", parentID), sb.Equal("is_parent", false), sb.IsNull("deleted_at"))
	sb.OrderBy("grams_equivalent ASC NULLS LAST")

	query, args := sb.Build()
	variants := []models.Product{}
	if err := r.db.SelectContext(ctx, &variants, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list variants")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list variants")
	}

	return variants, nil
}

// GetVariantByGrams finds the variant of a parent with the given grams
// equivalent. A nil grams matches the single unit-less variant. Returns nil
// when no such variant exists.
func (r *Repository) GetVariantByGrams(ctx context.Context, parentID string, grams *float64) (*models.Product, error) {
	ctx, span := tracing.StartSpan(ctx, "product.Repository.GetVariantByGrams")
	defer span.End()

	sb := r.selectBuilder()
	sb.Where(sb.Equal("parent_id", parentID), sb.Equal("is_parent", false), sb.IsNull("deleted_at"))
	if grams == nil {
		sb.Where(sb.IsNull("grams_equivalent"))
	} else {
		sb.Where(sb.Equal("grams_equivalent", *grams))
	}

	query, args := sb.Build()
	var variant models.Product
	if err := r.db.GetContext(ctx, &variant, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get variant by grams")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get variant")
	}

	return &variant, nil
}

// Update persists the mutable descriptive fields of a product
func (r *Repository) Update(ctx context.Context, product *models.Product) error {
	ctx, span := tracing.StartSpan(ctx, "product.Repository.Update")
	defer span.End()

	product.UpdatedAt = time.Now().UTC()

	sb := database.NewUpdateBuilder()
	sb.Update(productTable)
	sb.Set(
		sb.Assign("brand_id", product.BrandID),
		sb.Assign("brand_name", product.BrandName),
		sb.Assign("name", product.Name),
		sb.Assign("category", product.Category),
		sb.Assign("thc_percent", product.THCPercent),
		sb.Assign("cbd_percent", product.CBDPercent),
		sb.Assign("weight", product.Weight),
		sb.Assign("grams_equivalent", product.GramsEquivalent),
		sb.Assign("is_active", product.IsActive),
		sb.Assign("updated_at", product.UpdatedAt),
	)
	sb.Where(sb.Equal("id", product.ID))

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to update product")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update product")
	}

	return nil
}

// PropagateToVariants copies descriptive fields from a parent down to its
// variants so corrected names and brands show everywhere.
func (r *Repository) PropagateToVariants(ctx context.Context, parent *models.Product) error {
	ctx, span := tracing.StartSpan(ctx, "product.Repository.PropagateToVariants")
	defer span.End()

	sb := database.NewUpdateBuilder()
	sb.Update(productTable)
	sb.Set(
		sb.Assign("brand_id", parent.BrandID),
		sb.Assign("brand_name", parent.BrandName),
		sb.Assign("name", parent.Name),
		sb.Assign("category", parent.Category),
		sb.Assign("thc_percent", parent.THCPercent),
		sb.Assign("cbd_percent", parent.CBDPercent),
		sb.Assign("is_active", parent.IsActive),
		sb.Assign("updated_at", time.Now().UTC()),
	)
	sb.Where(sb.Equal("parent_id", parent.ID), sb.Equal("is_parent", false))

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to propagate parent fields to variants")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update variants")
	}

	return nil
}

// SetVariantParent moves a single variant under a new parent
func (r *Repository) SetVariantParent(ctx context.Context, variantID, parentID string) error {
	ctx, span := tracing.StartSpan(ctx, "product.Repository.SetVariantParent")
	defer span.End()

	sb := database.NewUpdateBuilder()
	sb.Update(productTable)
	sb.Set(
		sb.Assign("parent_id", parentID),
		sb.Assign("updated_at", time.Now().UTC()),
	)
	sb.Where(sb.Equal("id", variantID), sb.Equal("is_parent", false))

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to reparent variant")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to reparent variant")
	}

	return nil
}

// MarkMergedInto retires a duplicate parent after a merge. The row is kept
// for audit with parent_id pointing at the survivor.
func (r *Repository) MarkMergedInto(ctx context.Context, loserID, winnerID string) error {
	ctx, span := tracing.StartSpan(ctx, "product.Repository.MarkMergedInto")
	defer span.End()

	now := time.Now().UTC()
	sb := database.NewUpdateBuilder()
	sb.Update(productTable)
	sb.Set(
		sb.Assign("is_active", false),
		sb.Assign("parent_id", winnerID),
		sb.Assign("deleted_at", now),
		sb.Assign("updated_at", now),
	)
	sb.Where(sb.Equal("id", loserID))

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to retire merged product")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to retire merged product")
	}

	return nil
}

// DeleteVariant hard-deletes a single variant row
func (r *Repository) DeleteVariant(ctx context.Context, variantID string) error {
	ctx, span := tracing.StartSpan(ctx, "product.Repository.DeleteVariant")
	defer span.End()

	sb := database.NewDeleteBuilder()
	sb.DeleteFrom(productTable)
	sb.Where(sb.Equal("id", variantID), sb.Equal("is_parent", false))

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to delete variant")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete variant")
	}

	return nil
}

// DeleteWithVariants hard-deletes a parent and everything under it. Price
// records go with the variants via ON DELETE CASCADE.
func (r *Repository) DeleteWithVariants(ctx context.Context, parentID string) error {
	ctx, span := tracing.StartSpan(ctx, "product.Repository.DeleteWithVariants")
	defer span.End()

	query := `DELETE FROM products WHERE id = $1 OR parent_id = $1`
	if _, err := r.db.ExecContext(ctx, query, parentID); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to delete product tree")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete product")
	}

	return nil
}

func (r *Repository) selectBuilder() *database.SelectBuilder {
	return productStruct.SelectFrom(productTable)
}
