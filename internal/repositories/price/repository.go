package price

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

const priceTable = "price_records"

var priceStruct = database.NewStruct(new(models.PriceRecord))

// Repository handles price record persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new price repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Upsert writes the current price of a variant at a source. When the row
// already exists and the amount changed, the old amount rolls into
// previous_amount with the percent change and change timestamp; an
// unchanged amount only refreshes updated_at.
func (r *Repository) Upsert(ctx context.Context, variantID, sourceID string, amount float64) error {
	ctx, span := tracing.StartSpan(ctx, "price.Repository.Upsert")
	defer span.End()

	now := time.Now().UTC()
	ib := database.NewInsertBuilder().
		InsertInto(priceTable).
		Cols("id", "variant_id", "source_id", "amount", "created_at", "updated_at").
		Values(uuid.New().String(), variantID, sourceID, amount, now, now)

	ub := ib.OnConflict("variant_id", "source_id")
	ub.Set(
		`previous_amount = CASE
			WHEN price_records.amount IS DISTINCT FROM EXCLUDED.amount THEN price_records.amount
			ELSE price_records.previous_amount
		END`,
		`percent_change = CASE
			WHEN price_records.amount IS DISTINCT FROM EXCLUDED.amount AND price_records.amount > 0
				THEN (EXCLUDED.amount - price_records.amount) / price_records.amount * 100
			WHEN price_records.amount IS DISTINCT FROM EXCLUDED.amount
				THEN NULL
			ELSE price_records.percent_change
		END`,
		`last_changed_at = CASE
			WHEN price_records.amount IS DISTINCT FROM EXCLUDED.amount THEN EXCLUDED.updated_at
			ELSE price_records.last_changed_at
		END`,
		ub.Assign("amount", database.Excluded("amount")),
		ub.Assign("updated_at", database.Excluded("updated_at")),
	)

	query, args := ib.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"variantId": variantID,
			"sourceId":  sourceID,
		}).Error("Failed to upsert price record")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to upsert price record")
	}

	return nil
}

// GetByVariantSource returns the price record for one variant at one source,
// or nil when the source has never priced the variant.
func (r *Repository) GetByVariantSource(ctx context.Context, variantID, sourceID string) (*models.PriceRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "price.Repository.GetByVariantSource")
	defer span.End()

	sb := priceStruct.SelectFrom(priceTable)
	sb.Where(sb.Equal("variant_id", variantID), sb.Equal("source_id", sourceID))

	query, args := sb.Build()
	var record models.PriceRecord
	if err := r.db.GetContext(ctx, &record, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get price record")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get price record")
	}

	return &record, nil
}

// ListByParent returns all price records across a parent's variants
func (r *Repository) ListByParent(ctx context.Context, parentID string) ([]models.PriceRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "price.Repository.ListByParent")
	defer span.End()

	query := `
		SELECT pr.id, pr.variant_id, pr.source_id, pr.amount,
			pr.previous_amount, pr.percent_change, pr.last_changed_at,
			pr.created_at, pr.updated_at
		FROM price_records pr
		JOIN products v ON v.id = pr.variant_id
		WHERE v.parent_id = $1
		ORDER BY v.grams_equivalent ASC NULLS LAST, pr.amount ASC
	`

	records := []models.PriceRecord{}
	if err := r.db.SelectContext(ctx, &records, query, parentID); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list prices for product")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list prices")
	}

	return records, nil
}

// ParentHasSource reports whether any variant of a parent already carries a
// price from the given source. Used to decide whether an auto-merge brought
// genuinely new coverage worth an audit record.
func (r *Repository) ParentHasSource(ctx context.Context, parentID, sourceID string) (bool, error) {
	ctx, span := tracing.StartSpan(ctx, "price.Repository.ParentHasSource")
	defer span.End()

	query := `
		SELECT EXISTS (
			SELECT 1
			FROM price_records pr
			JOIN products v ON v.id = pr.variant_id
			WHERE v.parent_id = $1 AND pr.source_id = $2
		)
	`

	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, parentID, sourceID); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to check source coverage")
		return false, httperror.NewHTTPError(http.StatusInternalServerError, "failed to check source coverage")
	}

	return exists, nil
}

// DeleteByParentSource removes every price row a source contributed to a
// parent's variants. Used when an auto-merge is rejected and the source's
// listing was attached to the wrong product.
func (r *Repository) DeleteByParentSource(ctx context.Context, parentID, sourceID string) error {
	ctx, span := tracing.StartSpan(ctx, "price.Repository.DeleteByParentSource")
	defer span.End()

	query := `
		DELETE FROM price_records
		USING products v
		WHERE price_records.variant_id = v.id
			AND v.parent_id = $1
			AND price_records.source_id = $2
	`
	if _, err := r.db.ExecContext(ctx, query, parentID, sourceID); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to delete source prices for product")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete price records")
	}

	return nil
}

// MoveToVariant re-points price rows from one variant to another. Rows whose
// source already prices the destination variant are dropped; the destination
// keeps its own record.
func (r *Repository) MoveToVariant(ctx context.Context, fromVariantID, toVariantID string) error {
	ctx, span := tracing.StartSpan(ctx, "price.Repository.MoveToVariant")
	defer span.End()

	moveQuery := `
		UPDATE price_records
		SET variant_id = $2, updated_at = $3
		WHERE variant_id = $1
			AND source_id NOT IN (
				SELECT source_id FROM price_records WHERE variant_id = $2
			)
	`
	if _, err := r.db.ExecContext(ctx, moveQuery, fromVariantID, toVariantID, time.Now().UTC()); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to move price records")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to move price records")
	}

	del := database.NewDeleteBuilder()
	del.DeleteFrom(priceTable)
	del.Where(del.Equal("variant_id", fromVariantID))

	dropQuery, dropArgs := del.Build()
	if _, err := r.db.ExecContext(ctx, dropQuery, dropArgs...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to drop superseded price records")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to drop superseded price records")
	}

	return nil
}
