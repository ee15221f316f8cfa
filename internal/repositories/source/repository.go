package source

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

const sourceTable = "sources"

var sourceStruct = database.NewStruct(new(models.Source))

// Repository handles scrape source persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new source repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create registers a scrape source
func (r *Repository) Create(ctx context.Context, source *models.Source) (*models.Source, error) {
	ctx, span := tracing.StartSpan(ctx, "source.Repository.Create")
	defer span.End()

	if source.ID == "" {
		source.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	source.CreatedAt = now
	source.UpdatedAt = now

	ib := sourceStruct.InsertInto(sourceTable, source)

	query, args := ib.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"name": source.Name}).Error("Failed to create source")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create source")
	}

	return source, nil
}

// Get retrieves a source by ID
func (r *Repository) Get(ctx context.Context, id string) (*models.Source, error) {
	ctx, span := tracing.StartSpan(ctx, "source.Repository.Get")
	defer span.End()

	sb := sourceStruct.SelectFrom(sourceTable)
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	var source models.Source
	if err := r.db.GetContext(ctx, &source, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, httperror.NewHTTPError(http.StatusNotFound, "source not found")
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get source")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get source")
	}

	return &source, nil
}

// List returns all registered sources
func (r *Repository) List(ctx context.Context) ([]models.Source, error) {
	ctx, span := tracing.StartSpan(ctx, "source.Repository.List")
	defer span.End()

	sb := sourceStruct.SelectFrom(sourceTable)
	sb.OrderBy("name").Asc()

	query, args := sb.Build()
	sources := []models.Source{}
	if err := r.db.SelectContext(ctx, &sources, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list sources")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list sources")
	}

	return sources, nil
}
