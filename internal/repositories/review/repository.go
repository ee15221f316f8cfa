package review

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

const reviewTable = "review_records"

var reviewStruct = database.NewStruct(new(models.ReviewRecord))

// ListFilter narrows the pending review listing
type ListFilter struct {
	Kind     *models.ReviewKind
	Status   *models.ReviewStatus
	SourceID *string
	Limit    int
}

// SourceStats aggregates resolution outcomes and field corrections for one
// source, for scraper-accuracy reporting.
type SourceStats struct {
	SourceID         string         `json:"source_id"`
	Total            int            `json:"total"`
	ByStatus         map[string]int `json:"by_status"`
	FieldCorrections map[string]int `json:"field_corrections"`
}

// Repository handles review record persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new review repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a review record
func (r *Repository) Create(ctx context.Context, record *models.ReviewRecord) (*models.ReviewRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "review.Repository.Create")
	defer span.End()

	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	record.CreatedAt = now
	record.UpdatedAt = now

	ib := reviewStruct.InsertInto(reviewTable, record)

	query, args := ib.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"kind": record.Kind}).Error("Failed to create review record")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create review record")
	}

	return record, nil
}

// Get retrieves a review record by ID
func (r *Repository) Get(ctx context.Context, id string) (*models.ReviewRecord, error) {
	return r.get(ctx, id, false)
}

// GetForUpdate retrieves a review record with a row lock. Callers must hold
// an open transaction; the lock serializes concurrent resolutions of the
// same record.
func (r *Repository) GetForUpdate(ctx context.Context, id string) (*models.ReviewRecord, error) {
	return r.get(ctx, id, true)
}

func (r *Repository) get(ctx context.Context, id string, forUpdate bool) (*models.ReviewRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "review.Repository.Get")
	defer span.End()

	sb := reviewStruct.SelectFrom(reviewTable)
	sb.Where(sb.Equal("id", id))
	if forUpdate {
		sb.SQL("FOR UPDATE")
	}

	query, args := sb.Build()
	var record models.ReviewRecord
	if err := r.db.GetContext(ctx, &record, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, httperror.NewHTTPError(http.StatusNotFound, "review record not found")
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get review record")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get review record")
	}

	return &record, nil
}

// List returns review records matching the filter, oldest first so operators
// work the backlog in arrival order.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]models.ReviewRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "review.Repository.List")
	defer span.End()

	sb := reviewStruct.SelectFrom(reviewTable)
	if filter.Kind != nil {
		sb.Where(sb.Equal("kind", *filter.Kind))
	}
	if filter.Status != nil {
		sb.Where(sb.Equal("status", *filter.Status))
	}
	if filter.SourceID != nil {
		sb.Where(sb.Equal("source_id", *filter.SourceID))
	}
	sb.OrderBy("created_at").Asc()
	if filter.Limit > 0 {
		sb.Limit(filter.Limit)
	}

	query, args := sb.Build()
	records := []models.ReviewRecord{}
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list review records")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list review records")
	}

	return records, nil
}

// Resolve persists a resolution. The caller has already validated the status
// transition under a row lock.
func (r *Repository) Resolve(ctx context.Context, record *models.ReviewRecord) error {
	ctx, span := tracing.StartSpan(ctx, "review.Repository.Resolve")
	defer span.End()

	record.UpdatedAt = time.Now().UTC()

	sb := database.NewUpdateBuilder()
	sb.Update(reviewTable)
	sb.Set(
		sb.Assign("status", record.Status),
		sb.Assign("issues", record.Issues),
		sb.Assign("matched_product_id", record.MatchedProductID),
		sb.Assign("admin_notes", record.AdminNotes),
		sb.Assign("corrections", record.Corrections),
		sb.Assign("resolved_by", record.ResolvedBy),
		sb.Assign("resolved_at", record.ResolvedAt),
		sb.Assign("updated_at", record.UpdatedAt),
	)
	sb.Where(sb.Equal("id", record.ID))

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to resolve review record")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to resolve review record")
	}

	return nil
}

// ReassignProduct re-points review records from one product to another,
// used when a duplicate parent merges into a survivor.
func (r *Repository) ReassignProduct(ctx context.Context, fromProductID, toProductID string) error {
	ctx, span := tracing.StartSpan(ctx, "review.Repository.ReassignProduct")
	defer span.End()

	sb := database.NewUpdateBuilder()
	sb.Update(reviewTable)
	sb.Set(
		sb.Assign("matched_product_id", toProductID),
		sb.Assign("updated_at", time.Now().UTC()),
	)
	sb.Where(sb.Equal("matched_product_id", fromProductID))

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to reassign review records")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to reassign review records")
	}

	return nil
}

// StatsBySource aggregates resolution outcomes and per-field correction
// counts grouped by source.
func (r *Repository) StatsBySource(ctx context.Context, sourceID *string) ([]SourceStats, error) {
	ctx, span := tracing.StartSpan(ctx, "review.Repository.StatsBySource")
	defer span.End()

	type statusRow struct {
		SourceID string `db:"source_id"`
		Status   string `db:"status"`
		Count    int    `db:"count"`
	}
	statusQuery := `
		SELECT source_id, status, COUNT(*) AS count
		FROM review_records
		WHERE ($1::text IS NULL OR source_id = $1)
		GROUP BY source_id, status
		ORDER BY source_id
	`
	statusRows := []statusRow{}
	if err := r.db.SelectContext(ctx, &statusRows, statusQuery, sourceID); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to aggregate review statuses")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to aggregate review statuses")
	}

	type fieldRow struct {
		SourceID string `db:"source_id"`
		Field    string `db:"field"`
		Count    int    `db:"count"`
	}
	fieldQuery := `
		SELECT source_id, corrections.key AS field, COUNT(*) AS count
		FROM review_records, jsonb_each(review_records.corrections) AS corrections
		WHERE jsonb_typeof(review_records.corrections) = 'object'
			AND ($1::text IS NULL OR source_id = $1)
		GROUP BY source_id, corrections.key
	`
	fieldRows := []fieldRow{}
	if err := r.db.SelectContext(ctx, &fieldRows, fieldQuery, sourceID); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to aggregate corrections")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to aggregate corrections")
	}

	bySource := map[string]*SourceStats{}
	order := []string{}
	statsFor := func(id string) *SourceStats {
		if s, ok := bySource[id]; ok {
			return s
		}
		s := &SourceStats{
			SourceID:         id,
			ByStatus:         map[string]int{},
			FieldCorrections: map[string]int{},
		}
		bySource[id] = s
		order = append(order, id)
		return s
	}
	for _, row := range statusRows {
		s := statsFor(row.SourceID)
		s.ByStatus[row.Status] = row.Count
		s.Total += row.Count
	}
	for _, row := range fieldRows {
		statsFor(row.SourceID).FieldCorrections[row.Field] = row.Count
	}

	stats := make([]SourceStats, 0, len(order))
	for _, id := range order {
		stats = append(stats, *bySource[id])
	}
	return stats, nil
}
