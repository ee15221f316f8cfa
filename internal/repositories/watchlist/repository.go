package watchlist

import (
	"context"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

const watchlistTable = "watchlist_items"

var watchlistStruct = database.NewStruct(new(models.WatchlistItem))

// Repository handles watchlist persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new watchlist repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Add subscribes a user to a parent product. Adding twice is a no-op.
func (r *Repository) Add(ctx context.Context, userID, productID string) (*models.WatchlistItem, error) {
	ctx, span := tracing.StartSpan(ctx, "watchlist.Repository.Add")
	defer span.End()

	item := &models.WatchlistItem{
		ID:        uuid.New().String(),
		UserID:    userID,
		ProductID: productID,
		CreatedAt: time.Now().UTC(),
	}

	ib := watchlistStruct.InsertInto(watchlistTable, item).OnConflictDoNothing()

	query, args := ib.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to add watchlist item")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to add watchlist item")
	}

	return item, nil
}

// ListByProduct returns the subscriptions attached to a product
func (r *Repository) ListByProduct(ctx context.Context, productID string) ([]models.WatchlistItem, error) {
	ctx, span := tracing.StartSpan(ctx, "watchlist.Repository.ListByProduct")
	defer span.End()

	sb := watchlistStruct.SelectFrom(watchlistTable)
	sb.Where(sb.Equal("product_id", productID))
	sb.OrderBy("created_at").Asc()

	query, args := sb.Build()
	items := []models.WatchlistItem{}
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list watchlist items")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list watchlist items")
	}

	return items, nil
}

// ReassignProduct moves subscriptions from one product to another when a
// duplicate parent merges into a survivor. Users already watching the
// survivor keep their single row.
func (r *Repository) ReassignProduct(ctx context.Context, fromProductID, toProductID string) error {
	ctx, span := tracing.StartSpan(ctx, "watchlist.Repository.ReassignProduct")
	defer span.End()

	moveQuery := `
		UPDATE watchlist_items
		SET product_id = $2
		WHERE product_id = $1
			AND user_id NOT IN (
				SELECT user_id FROM watchlist_items WHERE product_id = $2
			)
	`
	if _, err := r.db.ExecContext(ctx, moveQuery, fromProductID, toProductID); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to reassign watchlist items")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to reassign watchlist items")
	}

	del := database.NewDeleteBuilder()
	del.DeleteFrom(watchlistTable)
	del.Where(del.Equal("product_id", fromProductID))

	dropQuery, dropArgs := del.Build()
	if _, err := r.db.ExecContext(ctx, dropQuery, dropArgs...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to drop duplicate watchlist items")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to drop duplicate watchlist items")
	}

	return nil
}
