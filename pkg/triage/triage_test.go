package triage

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Ramsey-B/clover/pkg/models"
)

func TestAssess(t *testing.T) {
	t.Run("clean listing passes", func(t *testing.T) {
		listing := models.Listing{Name: "Blue Dream", Brand: "House Exotics", Price: 45}

		dirty, issues := Assess(listing, "Blue Dream")
		assert.False(t, dirty)
		assert.Empty(t, issues)
	})

	t.Run("heavy shrink flags junk in name", func(t *testing.T) {
		raw := "Blue Dream Add to Cart - Out of Stock - 20% off today only"
		listing := models.Listing{Name: raw, Brand: "House Exotics", Price: 45}

		dirty, issues := Assess(listing, "Blue Dream")
		assert.True(t, dirty)
		assert.Contains(t, issues, IssueJunkInName)
	})

	t.Run("residual junk flags even without shrink", func(t *testing.T) {
		listing := models.Listing{Name: "Add to Cart", Brand: "House Exotics", Price: 45}

		dirty, issues := Assess(listing, "Add to Cart")
		assert.True(t, dirty)
		assert.Contains(t, issues, IssueJunkInName)
	})

	t.Run("zero price flags missing price", func(t *testing.T) {
		listing := models.Listing{Name: "Blue Dream", Brand: "House Exotics", Price: 0}

		dirty, issues := Assess(listing, "Blue Dream")
		assert.True(t, dirty)
		assert.Equal(t, []string{IssueMissingPrice}, issues)
	})

	t.Run("negative price flags missing price", func(t *testing.T) {
		listing := models.Listing{Name: "Blue Dream", Brand: "House Exotics", Price: -1}

		dirty, issues := Assess(listing, "Blue Dream")
		assert.True(t, dirty)
		assert.Contains(t, issues, IssueMissingPrice)
	})

	t.Run("empty brand flags unknown brand", func(t *testing.T) {
		listing := models.Listing{Name: "Blue Dream", Brand: "", Price: 45}

		dirty, issues := Assess(listing, "Blue Dream")
		assert.True(t, dirty)
		assert.Equal(t, []string{IssueUnknownBrand}, issues)
	})

	t.Run("placeholder brands flag unknown brand", func(t *testing.T) {
		for _, brand := range []string{"Unknown", "N/A", "null", "none", "-", " NA "} {
			listing := models.Listing{Name: "Blue Dream", Brand: brand, Price: 45}

			dirty, issues := Assess(listing, "Blue Dream")
			assert.True(t, dirty, "brand %q should flag", brand)
			assert.Contains(t, issues, IssueUnknownBrand)
		}
	})

	t.Run("multiple problems accumulate", func(t *testing.T) {
		listing := models.Listing{Name: "Sour Diesel $45.00 Add to Cart", Brand: "n/a", Price: 0}

		dirty, issues := Assess(listing, "Sour Diesel")
		assert.True(t, dirty)
		assert.Equal(t, []string{IssueJunkInName, IssueMissingPrice, IssueUnknownBrand}, issues)
	})

	t.Run("missing weight and category never flag", func(t *testing.T) {
		listing := models.Listing{Name: "Blue Dream", Brand: "House Exotics", Price: 45, Category: "", Weight: nil}

		dirty, issues := Assess(listing, "Blue Dream")
		assert.False(t, dirty)
		assert.Empty(t, issues)
	})
}
