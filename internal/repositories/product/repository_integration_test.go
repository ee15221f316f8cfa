package product_test

import (
	"context"
	"net/http"
	"os"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	pricerepo "github.com/Ramsey-B/clover/internal/repositories/price"
	productrepo "github.com/Ramsey-B/clover/internal/repositories/product"
	sourcerepo "github.com/Ramsey-B/clover/internal/repositories/source"
	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/models"
)

func getTestLogger() ectologger.Logger {
	zapLogger, _ := zap.NewDevelopment()
	return zapadapter.NewZapEctoLogger(zapLogger, nil)
}

func getTestDB(t *testing.T) database.DB {
	// Use environment variables or defaults for test DB
	dbHost := os.Getenv("DB_HOST")
	if dbHost == "" {
		dbHost = "localhost"
	}
	dbUser := os.Getenv("DB_USER_NAME")
	if dbUser == "" {
		dbUser = "user"
	}
	dbPass := os.Getenv("DB_PASSWORD")
	if dbPass == "" {
		dbPass = "password"
	}
	dbName := os.Getenv("DB_NAME")
	if dbName == "" {
		dbName = "clover"
	}

	dsn := "host=" + dbHost + " user=" + dbUser + " password=" + dbPass + " dbname=" + dbName + " sslmode=disable"
	db, err := sqlx.Connect("postgres", dsn)
	require.NoError(t, err, "Failed to connect to test database")

	return database.NewDatabaseInstance(db, getTestLogger())
}

func strPtr(s string) *string { return &s }

func f64Ptr(v float64) *float64 { return &v }

func TestProductRepository_Postgres(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := getTestDB(t)
	logger := getTestLogger()
	repo := productrepo.NewRepository(db, logger)
	ctx := context.Background()

	parent, err := repo.Create(ctx, &models.Product{
		Name:      "Integration Kush",
		BrandName: "Integration Brand",
		IsParent:  true,
		IsActive:  true,
	})
	require.NoError(t, err)
	defer repo.DeleteWithVariants(context.Background(), parent.ID)

	got, err := repo.Get(ctx, parent.ID)
	require.NoError(t, err)
	assert.Equal(t, "Integration Kush", got.Name)
	assert.True(t, got.IsParent)

	eighth, err := repo.Create(ctx, &models.Product{
		Name:            parent.Name,
		BrandName:       parent.BrandName,
		ParentID:        &parent.ID,
		Weight:          strPtr("3.5g"),
		GramsEquivalent: f64Ptr(3.5),
		IsActive:        true,
	})
	require.NoError(t, err)
	ounce, err := repo.Create(ctx, &models.Product{
		Name:            parent.Name,
		BrandName:       parent.BrandName,
		ParentID:        &parent.ID,
		Weight:          strPtr("1oz"),
		GramsEquivalent: f64Ptr(28),
		IsActive:        true,
	})
	require.NoError(t, err)
	unitless, err := repo.Create(ctx, &models.Product{
		Name:      parent.Name,
		BrandName: parent.BrandName,
		ParentID:  &parent.ID,
		Weight:    strPtr("fun size"),
		IsActive:  true,
	})
	require.NoError(t, err)

	// Variants come back ordered by grams with the unit-less row last.
	variants, err := repo.ListVariants(ctx, parent.ID)
	require.NoError(t, err)
	require.Len(t, variants, 3)
	assert.Equal(t, eighth.ID, variants[0].ID)
	assert.Equal(t, ounce.ID, variants[1].ID)
	assert.Equal(t, unitless.ID, variants[2].ID)

	found, err := repo.GetVariantByGrams(ctx, parent.ID, f64Ptr(28))
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, ounce.ID, found.ID)

	missing, err := repo.GetVariantByGrams(ctx, parent.ID, f64Ptr(99))
	require.NoError(t, err)
	assert.Nil(t, missing)

	noGrams, err := repo.GetVariantByGrams(ctx, parent.ID, nil)
	require.NoError(t, err)
	require.NotNil(t, noGrams)
	assert.Equal(t, unitless.ID, noGrams.ID)

	candidates, err := repo.ListCandidates(ctx)
	require.NoError(t, err)
	ids := make([]string, 0, len(candidates))
	for _, c := range candidates {
		ids = append(ids, c.ID)
	}
	assert.Contains(t, ids, parent.ID)
	assert.NotContains(t, ids, eighth.ID)

	_, err = repo.Get(ctx, uuid.New().String())
	require.Error(t, err)
	assert.True(t, httperror.IsHTTPError(err))
	assert.Equal(t, http.StatusNotFound, httperror.GetStatusCode(err))
}

func TestPriceRepository_UpsertHistory(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := getTestDB(t)
	logger := getTestLogger()
	products := productrepo.NewRepository(db, logger)
	sources := sourcerepo.NewRepository(db, logger)
	prices := pricerepo.NewRepository(db, logger)
	ctx := context.Background()

	src, err := sources.Create(ctx, &models.Source{
		Name:     "integration-source-" + uuid.New().String(),
		IsActive: true,
	})
	require.NoError(t, err)
	defer db.ExecContext(context.Background(), "DELETE FROM sources WHERE id = $1", src.ID)

	parent, err := products.Create(ctx, &models.Product{
		Name:      "Integration Diesel",
		BrandName: "Integration Brand",
		IsParent:  true,
		IsActive:  true,
	})
	require.NoError(t, err)
	defer products.DeleteWithVariants(context.Background(), parent.ID)

	variant, err := products.Create(ctx, &models.Product{
		Name:            parent.Name,
		BrandName:       parent.BrandName,
		ParentID:        &parent.ID,
		Weight:          strPtr("3.5g"),
		GramsEquivalent: f64Ptr(3.5),
		IsActive:        true,
	})
	require.NoError(t, err)

	require.NoError(t, prices.Upsert(ctx, variant.ID, src.ID, 45))
	rec, err := prices.GetByVariantSource(ctx, variant.ID, src.ID)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, 45.0, rec.Amount)
	assert.Nil(t, rec.PreviousAmount)
	assert.Nil(t, rec.LastChangedAt)

	// A changed amount rolls the old value into the history fields.
	require.NoError(t, prices.Upsert(ctx, variant.ID, src.ID, 40))
	rec, err = prices.GetByVariantSource(ctx, variant.ID, src.ID)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, 40.0, rec.Amount)
	require.NotNil(t, rec.PreviousAmount)
	assert.Equal(t, 45.0, *rec.PreviousAmount)
	require.NotNil(t, rec.PercentChange)
	assert.InDelta(t, -11.11, *rec.PercentChange, 0.01)
	require.NotNil(t, rec.LastChangedAt)
	firstChange := *rec.LastChangedAt

	// An unchanged amount leaves the history alone.
	require.NoError(t, prices.Upsert(ctx, variant.ID, src.ID, 40))
	rec, err = prices.GetByVariantSource(ctx, variant.ID, src.ID)
	require.NoError(t, err)
	require.NotNil(t, rec)
	require.NotNil(t, rec.PreviousAmount)
	assert.Equal(t, 45.0, *rec.PreviousAmount)
	require.NotNil(t, rec.LastChangedAt)
	assert.Equal(t, firstChange, *rec.LastChangedAt)

	has, err := prices.ParentHasSource(ctx, parent.ID, src.ID)
	require.NoError(t, err)
	assert.True(t, has)

	has, err = prices.ParentHasSource(ctx, parent.ID, uuid.New().String())
	require.NoError(t, err)
	assert.False(t, has)
}
