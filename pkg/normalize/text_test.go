package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClean(t *testing.T) {
	t.Run("strips cart phrases", func(t *testing.T) {
		assert.Equal(t, "Blue Dream", Clean("Blue Dream Add to Cart"))
		assert.Equal(t, "Sour Diesel", Clean("Sour Diesel - Out of Stock"))
	})

	t.Run("strips promo and price text", func(t *testing.T) {
		assert.Equal(t, "OG Kush", Clean("OG Kush 20% off"))
		assert.Equal(t, "OG Kush", Clean("OG Kush save 15% off"))
		assert.Equal(t, "Gelato Cartridge", Clean("Gelato Cartridge $45.00"))
	})

	t.Run("strips html tags and entities", func(t *testing.T) {
		assert.Equal(t, "Wedding Cake", Clean("<b>Wedding Cake</b>"))
		assert.Equal(t, "Pineapple Express", Clean("Pineapple&nbsp;Express"))
	})

	t.Run("collapses repeated bare unit tokens", func(t *testing.T) {
		assert.Equal(t, "Gummies 100mg", Clean("Gummies 100mg mg mg"))
	})

	t.Run("keeps attached units", func(t *testing.T) {
		assert.Equal(t, "Gummies 100mg", Clean("Gummies 100mg"))
		assert.Equal(t, "Blue Dream 3.5g", Clean("Blue Dream 3.5g"))
	})

	t.Run("collapses whitespace", func(t *testing.T) {
		assert.Equal(t, "Blue Dream", Clean("  Blue   Dream  "))
	})

	t.Run("never returns empty for junk-only input", func(t *testing.T) {
		got := Clean("Add to Cart")
		assert.NotEmpty(t, got)
		assert.Equal(t, "Add to Cart", got)
	})

	t.Run("whitespace-only input has no name to preserve", func(t *testing.T) {
		assert.Equal(t, "", Clean("   "))
		assert.Equal(t, "", Clean(""))
	})

	t.Run("is idempotent", func(t *testing.T) {
		inputs := []string{
			"Blue Dream Add to Cart $45.00",
			"<b>Wedding Cake</b> 20% off",
			"Gummies 100mg mg mg",
			"  Sour   Diesel  ",
			"OG Kush",
		}
		for _, in := range inputs {
			once := Clean(in)
			assert.Equal(t, once, Clean(once), "Clean not idempotent for %q", in)
		}
	})
}
