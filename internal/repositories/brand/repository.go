package brand

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

const brandTable = "brands"

var brandStruct = database.NewStruct(new(models.Brand))

// Repository handles brand persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new brand repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// GetOrCreateByName looks a brand up case-insensitively, creating it when
// absent. It never fails on a missing brand; every listing gets a brand row.
func (r *Repository) GetOrCreateByName(ctx context.Context, name string) (*models.Brand, error) {
	ctx, span := tracing.StartSpan(ctx, "brand.Repository.GetOrCreateByName")
	defer span.End()

	name = strings.TrimSpace(name)
	if name == "" {
		name = "Unknown"
	}

	existing, err := r.getByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	now := time.Now().UTC()
	brand := &models.Brand{
		ID:        uuid.New().String(),
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}

	ib := brandStruct.InsertInto(brandTable, brand)
	ib.SQL("ON CONFLICT (lower(name)) DO NOTHING")

	query, args := ib.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"name": name}).Error("Failed to create brand")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create brand")
	}

	// A concurrent writer may have won the insert; read back the canonical row.
	created, err := r.getByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if created == nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create brand")
	}
	return created, nil
}

// Get retrieves a brand by ID
func (r *Repository) Get(ctx context.Context, id string) (*models.Brand, error) {
	ctx, span := tracing.StartSpan(ctx, "brand.Repository.Get")
	defer span.End()

	sb := brandStruct.SelectFrom(brandTable)
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	var brand models.Brand
	if err := r.db.GetContext(ctx, &brand, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, httperror.NewHTTPError(http.StatusNotFound, "brand not found")
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get brand")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get brand")
	}

	return &brand, nil
}

func (r *Repository) getByName(ctx context.Context, name string) (*models.Brand, error) {
	query := `
		SELECT id, name, created_at, updated_at
		FROM brands
		WHERE lower(name) = lower($1)
		LIMIT 1
	`

	var brand models.Brand
	if err := r.db.GetContext(ctx, &brand, query, name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to look up brand by name")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to look up brand")
	}

	return &brand, nil
}
